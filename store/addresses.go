package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/models/registry"
)

// AddressStore handles persistence of Address rows.
type AddressStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewAddressStore creates a new AddressStore.
func NewAddressStore(db *sqlx.DB, log zerolog.Logger) *AddressStore {
	return &AddressStore{db: db, log: log}
}

// MarkPendingConfirm moves every previously reconciled address to
// UPDATING so the enrichment pass can reconfirm it.
func (s *AddressStore) MarkPendingConfirm(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE addresses SET status = $1 WHERE status IN ($2, $3)`,
		registry.EntryUpdating, registry.EntryAdded, registry.EntryNotModified)
	if err != nil {
		return &WriteError{Op: "mark addresses UPDATING", Err: err}
	}
	return nil
}

// InsertIgnoreDuplicate inserts an address as ADDED; an existing row
// with the same composite key is left untouched.
func (s *AddressStore) InsertIgnoreDuplicate(ctx context.Context, addr registry.Address, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO addresses (gln, street, zip, city, status, last_update)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (gln, street, zip, city) DO NOTHING`,
		addr.GLN, addr.Street, addr.Zip, addr.City, registry.EntryAdded, now)
	if err != nil {
		return &WriteError{Op: fmt.Sprintf("insert address of doctor %s", addr.GLN), Err: err}
	}
	return nil
}

// UpsertConfirm inserts an address as ADDED or, when the composite key
// already exists, reconfirms it as NOT_MODIFIED.
func (s *AddressStore) UpsertConfirm(ctx context.Context, addr registry.Address, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO addresses (gln, street, zip, city, status, last_update)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (gln, street, zip, city) DO UPDATE SET status = $7`,
		addr.GLN, addr.Street, addr.Zip, addr.City, registry.EntryAdded, now, registry.EntryNotModified)
	if err != nil {
		return &WriteError{Op: fmt.Sprintf("confirm address of doctor %s", addr.GLN), Err: err}
	}
	return nil
}

// PruneStale moves every address never reconfirmed by the enrichment
// pass to DELETED.
func (s *AddressStore) PruneStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE addresses SET status = $1, last_update = $2 WHERE status = $3`,
		registry.EntryDeleted, now, registry.EntryUpdating)
	if err != nil {
		return 0, &WriteError{Op: "prune stale addresses", Err: err}
	}
	return res.RowsAffected()
}

// StatusCounts groups addresses by status for the run summary.
func (s *AddressStore) StatusCounts(ctx context.Context) (map[registry.EntryStatus]int, error) {
	return entryStatusCounts(ctx, s.db, "addresses")
}

func entryStatusCounts(ctx context.Context, db *sqlx.DB, table string) (map[registry.EntryStatus]int, error) {
	rows, err := db.QueryxContext(ctx,
		`SELECT status, COUNT(*) AS total FROM `+table+` GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count %s by status: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[registry.EntryStatus]int)
	for rows.Next() {
		var (
			status registry.EntryStatus
			total  int
		)
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan %s status count: %w", table, err)
		}
		counts[status] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s status counts: %w", table, err)
	}
	return counts, nil
}
