package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/models/registry"
)

// SpecializationStore handles persistence of Specialization rows.
type SpecializationStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewSpecializationStore creates a new SpecializationStore.
func NewSpecializationStore(db *sqlx.DB, log zerolog.Logger) *SpecializationStore {
	return &SpecializationStore{db: db, log: log}
}

// MarkPendingConfirm moves every previously reconciled specialization
// to UPDATING so the enrichment pass can reconfirm it.
func (s *SpecializationStore) MarkPendingConfirm(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE specializations SET status = $1 WHERE status IN ($2, $3)`,
		registry.EntryUpdating, registry.EntryAdded, registry.EntryNotModified)
	if err != nil {
		return &WriteError{Op: "mark specializations UPDATING", Err: err}
	}
	return nil
}

// InsertIgnoreDuplicate inserts a specialization as ADDED; an existing
// row with the same composite key is left untouched.
func (s *SpecializationStore) InsertIgnoreDuplicate(ctx context.Context, spec registry.Specialization, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO specializations (gln, speciality, status, last_update)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (gln, speciality) DO NOTHING`,
		spec.GLN, spec.Speciality, registry.EntryAdded, now)
	if err != nil {
		return &WriteError{Op: fmt.Sprintf("insert specialization of doctor %s", spec.GLN), Err: err}
	}
	return nil
}

// UpsertConfirm inserts a specialization as ADDED or, when the
// composite key already exists, reconfirms it as NOT_MODIFIED.
func (s *SpecializationStore) UpsertConfirm(ctx context.Context, spec registry.Specialization, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO specializations (gln, speciality, status, last_update)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (gln, speciality) DO UPDATE SET status = $5`,
		spec.GLN, spec.Speciality, registry.EntryAdded, now, registry.EntryNotModified)
	if err != nil {
		return &WriteError{Op: fmt.Sprintf("confirm specialization of doctor %s", spec.GLN), Err: err}
	}
	return nil
}

// PruneStale moves every specialization never reconfirmed by the
// enrichment pass to DELETED.
func (s *SpecializationStore) PruneStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE specializations SET status = $1, last_update = $2 WHERE status = $3`,
		registry.EntryDeleted, now, registry.EntryUpdating)
	if err != nil {
		return 0, &WriteError{Op: "prune stale specializations", Err: err}
	}
	return res.RowsAffected()
}

// StatusCounts groups specializations by status for the run summary.
func (s *SpecializationStore) StatusCounts(ctx context.Context) (map[registry.EntryStatus]int, error) {
	return entryStatusCounts(ctx, s.db, "specializations")
}
