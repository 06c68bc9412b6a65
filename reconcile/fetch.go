package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/models/registry"
	"github.com/planadoc/medregsync/search"
)

// Lookuper performs a single remote record lookup.
type Lookuper interface {
	Lookup(ctx context.Context, gln string) (*search.Record, error)
}

// Fetcher looks up one doctor's record and durably records lookup
// failures on the doctor row, so the condition survives the process
// and is visible to the next recovery run.
type Fetcher struct {
	client  Lookuper
	doctors DoctorStore
	log     zerolog.Logger
	clock   Clock
}

// NewFetcher creates a Fetcher. A nil clock defaults to time.Now.
func NewFetcher(client Lookuper, doctors DoctorStore, log zerolog.Logger, clock Clock) *Fetcher {
	if clock == nil {
		clock = time.Now
	}
	return &Fetcher{client: client, doctors: doctors, log: log, clock: clock}
}

// Fetch looks up the doctor's record. On an empty or failed lookup the
// doctor's status moves to EMPTY or ERROR before the error is
// returned; when that status write fails too, both causes are reported
// together without masking the primary one.
func (f *Fetcher) Fetch(ctx context.Context, doc registry.Doctor) (*search.Record, error) {
	rec, lookupErr := f.client.Lookup(ctx, doc.GLN)
	if lookupErr == nil {
		return rec, nil
	}

	event := registry.DoctorEventLookupFailed
	var emptyErr *search.EmptyRecordError
	if errors.As(lookupErr, &emptyErr) {
		event = registry.DoctorEventLookupEmpty
	}

	status, err := registry.NextDoctorStatus(doc.Status, event)
	if err != nil {
		return nil, errors.Join(lookupErr, err)
	}
	if err := f.doctors.SetStatus(ctx, doc.GLN, status, f.clock()); err != nil {
		return nil, errors.Join(lookupErr,
			fmt.Errorf("additionally, recording status %s failed: %w", status, err))
	}
	return nil, lookupErr
}
