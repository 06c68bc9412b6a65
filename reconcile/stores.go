// Package reconcile drives each registry entity through its status
// lifecycle across the three passes of a sync run: bulk-index ingest,
// per-record enrichment, and stale-record pruning.
package reconcile

import (
	"context"
	"time"

	"github.com/planadoc/medregsync/models/registry"
)

// Clock supplies wall-clock time, injectable for tests.
type Clock func() time.Time

// DoctorStore is the persistence the reconciliation engine needs for
// doctors. The write handle is an explicit dependency of every
// component, never ambient state.
type DoctorStore interface {
	MarkAllWillUpdate(ctx context.Context) error
	UpsertFromIndex(ctx context.Context, gln, lastName, firstName string, indexedAt time.Time) error
	DeleteUnconfirmed(ctx context.Context, now time.Time) (int64, error)
	ResetStalled(ctx context.Context, indexedAt time.Time) (int64, error)
	CountPending(ctx context.Context) (int, error)
	// EachPending streams doctors awaiting enrichment in ascending GLN
	// order, one at a time; the stream does not advance while fn runs.
	EachPending(ctx context.Context, fn func(registry.Doctor) error) error
	SetStatus(ctx context.Context, gln string, status registry.DoctorStatus, now time.Time) error
	MarkStatus(ctx context.Context, gln string, status registry.DoctorStatus) error
	UpdateDetails(ctx context.Context, doc registry.Doctor) error
}

// AddressStore is the persistence the engine needs for addresses.
type AddressStore interface {
	MarkPendingConfirm(ctx context.Context) error
	InsertIgnoreDuplicate(ctx context.Context, addr registry.Address, now time.Time) error
	UpsertConfirm(ctx context.Context, addr registry.Address, now time.Time) error
	PruneStale(ctx context.Context, now time.Time) (int64, error)
}

// SpecializationStore is the persistence the engine needs for
// specializations.
type SpecializationStore interface {
	MarkPendingConfirm(ctx context.Context) error
	InsertIgnoreDuplicate(ctx context.Context, spec registry.Specialization, now time.Time) error
	UpsertConfirm(ctx context.Context, spec registry.Specialization, now time.Time) error
	PruneStale(ctx context.Context, now time.Time) (int64, error)
}
