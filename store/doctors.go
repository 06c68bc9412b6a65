package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/models/registry"
)

// DoctorStore handles persistence of Doctor rows.
type DoctorStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewDoctorStore creates a new DoctorStore.
func NewDoctorStore(db *sqlx.DB, log zerolog.Logger) *DoctorStore {
	return &DoctorStore{db: db, log: log}
}

// MarkAllWillUpdate provisionally marks every stored doctor as not yet
// reconfirmed by the current index.
func (s *DoctorStore) MarkAllWillUpdate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE doctors SET status = $1`, registry.DoctorWillUpdate)
	if err != nil {
		return &WriteError{Op: "mark doctors WILL_UPDATE", Err: err}
	}
	return nil
}

// UpsertFromIndex records one extracted index row: new doctors insert
// as ADDING with last_update set to the index timestamp, known doctors
// move to UPDATING. On conflict last_update is deliberately left
// untouched; the stalled-update recovery safeguard depends on it still
// carrying the timestamp of the run that inserted the row.
func (s *DoctorStore) UpsertFromIndex(ctx context.Context, gln, lastName, firstName string, indexedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO doctors (gln, last_name, first_name, status, last_update)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (gln) DO UPDATE SET status = $6`,
		gln, lastName, firstName, registry.DoctorAdding, indexedAt, registry.DoctorUpdating)
	if err != nil {
		return &WriteError{Op: fmt.Sprintf("upsert doctor %s from index", gln), Err: err}
	}
	return nil
}

// DeleteUnconfirmed moves every doctor still marked WILL_UPDATE to
// DELETED, confirming its absence from the latest index.
func (s *DoctorStore) DeleteUnconfirmed(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE doctors SET status = $1, last_update = $2 WHERE status = $3`,
		registry.DoctorDeleted, now, registry.DoctorWillUpdate)
	if err != nil {
		return 0, &WriteError{Op: "delete unconfirmed doctors", Err: err}
	}
	return res.RowsAffected()
}

// ResetStalled turns doctors left UPDATING by a previous partial run of
// the same index back into ADDING so their enrichment is retried as a
// fresh add.
func (s *DoctorStore) ResetStalled(ctx context.Context, indexedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE doctors SET status = $1 WHERE status = $2 AND last_update = $3`,
		registry.DoctorAdding, registry.DoctorUpdating, indexedAt)
	if err != nil {
		return 0, &WriteError{Op: "reset stalled doctors", Err: err}
	}
	return res.RowsAffected()
}

// CountPending returns the number of doctors awaiting enrichment.
func (s *DoctorStore) CountPending(ctx context.Context) (int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM doctors WHERE status IN ($1, $2, $3)`,
		registry.DoctorUpdating, registry.DoctorAdding, registry.DoctorError)
	if err != nil {
		return 0, fmt.Errorf("count pending doctors: %w", err)
	}
	return total, nil
}

// EachPending streams doctors awaiting enrichment in ascending GLN
// order. The cursor holds one pooled connection and advances only when
// fn returns, so writes issued from inside fn go through a separate
// connection and exactly one doctor is in flight at a time.
func (s *DoctorStore) EachPending(ctx context.Context, fn func(registry.Doctor) error) error {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT gln, last_name, first_name, diploma_code, diploma_family,
		       license_authority, gender, status, last_update
		FROM doctors
		WHERE status IN ($1, $2, $3)
		ORDER BY gln ASC`,
		registry.DoctorUpdating, registry.DoctorAdding, registry.DoctorError)
	if err != nil {
		return fmt.Errorf("query pending doctors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc registry.Doctor
		if err := rows.StructScan(&doc); err != nil {
			return fmt.Errorf("scan pending doctor: %w", err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pending doctors: %w", err)
	}
	return nil
}

// SetStatus writes a doctor's status together with last_update.
func (s *DoctorStore) SetStatus(ctx context.Context, gln string, status registry.DoctorStatus, now time.Time) error {
	if !status.Valid() {
		return &WriteError{Op: fmt.Sprintf("set status of doctor %s", gln), Err: fmt.Errorf("invalid status %q", status)}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE doctors SET status = $1, last_update = $2 WHERE gln = $3`,
		status, now, gln)
	if err != nil {
		return &WriteError{Op: fmt.Sprintf("set status of doctor %s", gln), Err: err}
	}
	return nil
}

// MarkStatus writes a doctor's status without touching last_update.
// Used for NOT_MODIFIED, where nothing about the record changed.
func (s *DoctorStore) MarkStatus(ctx context.Context, gln string, status registry.DoctorStatus) error {
	if !status.Valid() {
		return &WriteError{Op: fmt.Sprintf("mark status of doctor %s", gln), Err: fmt.Errorf("invalid status %q", status)}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE doctors SET status = $1 WHERE gln = $2`, status, gln)
	if err != nil {
		return &WriteError{Op: fmt.Sprintf("mark status of doctor %s", gln), Err: err}
	}
	return nil
}

// UpdateDetails overwrites a doctor's descriptive fields together with
// its status and last_update, as the outcome of an enrichment.
func (s *DoctorStore) UpdateDetails(ctx context.Context, doc registry.Doctor) error {
	if !doc.Status.Valid() {
		return &WriteError{Op: fmt.Sprintf("update doctor %s", doc.GLN), Err: fmt.Errorf("invalid status %q", doc.Status)}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE doctors
		SET last_name = $1, first_name = $2, diploma_code = $3,
		    diploma_family = $4, license_authority = $5, gender = $6,
		    status = $7, last_update = $8
		WHERE gln = $9`,
		doc.LastName, doc.FirstName, doc.DiplomaCode, doc.DiplomaFamily,
		doc.LicenseAuthority, doc.Gender, doc.Status, doc.LastUpdate, doc.GLN)
	if err != nil {
		return &WriteError{Op: fmt.Sprintf("update doctor %s", doc.GLN), Err: err}
	}
	return nil
}

// StatusCounts groups doctors by status for the run summary.
func (s *DoctorStore) StatusCounts(ctx context.Context) (map[registry.DoctorStatus]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT status, COUNT(*) AS total FROM doctors GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count doctors by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[registry.DoctorStatus]int)
	for rows.Next() {
		var (
			status registry.DoctorStatus
			total  int
		)
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan doctor status count: %w", err)
		}
		counts[status] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doctor status counts: %w", err)
	}
	return counts, nil
}
