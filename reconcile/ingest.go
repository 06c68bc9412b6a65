package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/index"
)

// RowSource yields extracted index rows in document order.
type RowSource interface {
	Each(fn func(index.Row) error) error
}

// IngestSummary reports what the bulk ingest pass did.
type IngestSummary struct {
	Rows    int   // index rows upserted
	Deleted int64 // doctors confirmed absent from the index
	Reset   int64 // stalled updates retried as fresh adds
}

// Ingester replays the bulk index into the doctor store, marking
// survivors and stale entries.
type Ingester struct {
	doctors DoctorStore
	log     zerolog.Logger
	clock   Clock
}

// NewIngester creates an Ingester. A nil clock defaults to time.Now.
func NewIngester(doctors DoctorStore, log zerolog.Logger, clock Clock) *Ingester {
	if clock == nil {
		clock = time.Now
	}
	return &Ingester{doctors: doctors, log: log, clock: clock}
}

// Run performs the bulk ingest pass: every stored doctor is
// provisionally marked WILL_UPDATE, every index row is upserted
// (insert as ADDING, reconfirm as UPDATING), then doctors never
// reconfirmed move to DELETED and doctors left UPDATING by a previous
// partial run of this same index (their last_update still equals the
// index timestamp) are reset to ADDING so their enrichment is retried.
// Any row write failure is fatal: a malformed index must not silently
// produce a half-populated registry.
func (i *Ingester) Run(ctx context.Context, rows RowSource, indexedAt time.Time) (IngestSummary, error) {
	var summary IngestSummary

	if err := i.doctors.MarkAllWillUpdate(ctx); err != nil {
		return summary, err
	}

	err := rows.Each(func(row index.Row) error {
		if err := i.doctors.UpsertFromIndex(ctx, row.GLN, row.LastName, row.FirstName, indexedAt); err != nil {
			return fmt.Errorf("persist index row %d: %w", row.Number, err)
		}
		summary.Rows++
		return nil
	})
	if err != nil {
		return summary, err
	}

	deleted, err := i.doctors.DeleteUnconfirmed(ctx, i.clock())
	if err != nil {
		return summary, err
	}
	summary.Deleted = deleted

	// Same-timestamp matching assumes the index file's modification
	// time is stable across retries of one snapshot; see DESIGN.md.
	reset, err := i.doctors.ResetStalled(ctx, indexedAt)
	if err != nil {
		return summary, err
	}
	summary.Reset = reset

	i.log.Info().
		Int("rows", summary.Rows).
		Int64("deleted", summary.Deleted).
		Int64("reset", summary.Reset).
		Msg("Bulk index ingested")
	return summary, nil
}
