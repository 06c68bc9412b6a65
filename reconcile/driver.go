package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/models/registry"
	"github.com/planadoc/medregsync/search"
)

// ResultKind classifies the outcome of one key's enrichment.
type ResultKind string

const (
	// Success means fetch and reconciliation both completed.
	Success ResultKind = "success"
	// EmptyRecord means the lookup found no unambiguous match; the
	// doctor is durably EMPTY.
	EmptyRecord ResultKind = "empty-record"
	// FetchFailure means the lookup failed; the doctor is durably
	// ERROR.
	FetchFailure ResultKind = "fetch-failure"
	// ReconcileFailure means the fetched record could not be applied
	// to the store.
	ReconcileFailure ResultKind = "reconcile-failure"
)

// Result is the outcome of one key's fetch+reconcile.
type Result struct {
	GLN  string
	Kind ResultKind
	Err  error
}

// Summary reports a full driver run.
type Summary struct {
	Total                 int // pending doctors at the start of the run
	Processed             int
	Counts                map[ResultKind]int
	PrunedAddresses       int64
	PrunedSpecializations int64
}

// ProgressFunc is invoked once per key as "current/total (key X)".
type ProgressFunc func(current, total int, gln string)

// Driver walks every pending doctor in ascending GLN order, fetching
// and reconciling one at a time. A failing key is logged and the batch
// continues; no key aborts the run.
type Driver struct {
	doctors         DoctorStore
	addresses       AddressStore
	specializations SpecializationStore
	fetcher         *Fetcher
	reconciler      *Reconciler
	log             zerolog.Logger
	clock           Clock
	progress        ProgressFunc
}

// DriverParams wires a Driver. Clock defaults to time.Now; Progress is
// optional.
type DriverParams struct {
	Doctors         DoctorStore
	Addresses       AddressStore
	Specializations SpecializationStore
	Fetcher         *Fetcher
	Reconciler      *Reconciler
	Log             zerolog.Logger
	Clock           Clock
	Progress        ProgressFunc
}

// NewDriver creates a Driver.
func NewDriver(p DriverParams) *Driver {
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Driver{
		doctors:         p.Doctors,
		addresses:       p.Addresses,
		specializations: p.Specializations,
		fetcher:         p.Fetcher,
		reconciler:      p.Reconciler,
		log:             p.Log,
		clock:           clock,
		progress:        p.Progress,
	}
}

// Run executes the enrichment pass. Non-recovery runs first mark every
// previously reconciled address and specialization as awaiting
// reconfirmation and, after the iteration, prune the ones never
// reconfirmed. Recovery runs skip both, retrying only unresolved
// doctors without disturbing reconciled address/specialization state.
func (d *Driver) Run(ctx context.Context, recovery bool) (Summary, error) {
	summary := Summary{Counts: make(map[ResultKind]int)}

	if !recovery {
		if err := d.addresses.MarkPendingConfirm(ctx); err != nil {
			return summary, err
		}
		if err := d.specializations.MarkPendingConfirm(ctx); err != nil {
			return summary, err
		}
	}

	total, err := d.doctors.CountPending(ctx)
	if err != nil {
		return summary, err
	}
	summary.Total = total

	err = d.doctors.EachPending(ctx, func(doc registry.Doctor) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Processed++
		if d.progress != nil {
			d.progress(summary.Processed, total, doc.GLN)
		}

		res := d.processOne(ctx, doc)
		summary.Counts[res.Kind]++
		if res.Err != nil {
			d.log.Warn().
				Str("gln", res.GLN).
				Str("outcome", string(res.Kind)).
				Err(res.Err).
				Msg("Enrichment failed, continuing")
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	if !recovery {
		now := d.clock()
		if summary.PrunedAddresses, err = d.addresses.PruneStale(ctx, now); err != nil {
			return summary, err
		}
		if summary.PrunedSpecializations, err = d.specializations.PruneStale(ctx, now); err != nil {
			return summary, err
		}
	}

	d.log.Info().
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("succeeded", summary.Counts[Success]).
		Int("empty", summary.Counts[EmptyRecord]).
		Int("fetchFailures", summary.Counts[FetchFailure]).
		Int("reconcileFailures", summary.Counts[ReconcileFailure]).
		Msg("Enrichment pass done")
	return summary, nil
}

// processOne runs fetch+reconcile for a single doctor and classifies
// the outcome. Exactly one enrichment is in flight at a time: the
// pending-doctor stream does not advance until this returns.
func (d *Driver) processOne(ctx context.Context, doc registry.Doctor) Result {
	rec, err := d.fetcher.Fetch(ctx, doc)
	if err != nil {
		kind := FetchFailure
		var emptyErr *search.EmptyRecordError
		if errors.As(err, &emptyErr) {
			kind = EmptyRecord
		}
		return Result{GLN: doc.GLN, Kind: kind, Err: err}
	}

	if err := d.reconciler.Apply(ctx, doc, rec); err != nil {
		return Result{GLN: doc.GLN, Kind: ReconcileFailure, Err: err}
	}
	return Result{GLN: doc.GLN, Kind: Success}
}
