package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/models/registry"
	"github.com/planadoc/medregsync/search"
)

// Reconciler applies a fetched record to the doctor, address and
// specialization stores according to the doctor's current status.
type Reconciler struct {
	doctors         DoctorStore
	addresses       AddressStore
	specializations SpecializationStore
	log             zerolog.Logger
	clock           Clock
}

// NewReconciler creates a Reconciler. A nil clock defaults to time.Now.
func NewReconciler(doctors DoctorStore, addresses AddressStore, specializations SpecializationStore, log zerolog.Logger, clock Clock) *Reconciler {
	if clock == nil {
		clock = time.Now
	}
	return &Reconciler{
		doctors:         doctors,
		addresses:       addresses,
		specializations: specializations,
		log:             log,
		clock:           clock,
	}
}

// Apply reconciles one fetched record. Doctors in ADDING or ERROR take
// the add branch, doctors in UPDATING the update branch. Any other
// status is logged and skipped.
func (r *Reconciler) Apply(ctx context.Context, doc registry.Doctor, rec *search.Record) error {
	switch doc.Status {
	case registry.DoctorAdding, registry.DoctorError:
		return r.add(ctx, doc, rec)
	case registry.DoctorUpdating:
		return r.update(ctx, doc, rec)
	default:
		r.log.Warn().
			Str("gln", doc.GLN).
			Str("status", string(doc.Status)).
			Msg("Doctor not eligible for enrichment, skipping")
		return nil
	}
}

func (r *Reconciler) add(ctx context.Context, doc registry.Doctor, rec *search.Record) error {
	now := r.clock()

	for _, addr := range rec.Addresses {
		err := r.addresses.InsertIgnoreDuplicate(ctx, registry.Address{
			GLN:    doc.GLN,
			Street: addr.Street,
			Zip:    addr.Zip,
			City:   addr.City,
		}, now)
		if err != nil {
			return fmt.Errorf("add addresses of doctor %s: %w", doc.GLN, err)
		}
	}
	for _, code := range rec.Specialities {
		err := r.specializations.InsertIgnoreDuplicate(ctx, registry.Specialization{
			GLN:        doc.GLN,
			Speciality: code,
		}, now)
		if err != nil {
			return fmt.Errorf("add specializations of doctor %s: %w", doc.GLN, err)
		}
	}

	status, err := registry.NextDoctorStatus(doc.Status, registry.DoctorEventEnrichedNew)
	if err != nil {
		return err
	}
	return r.doctors.UpdateDetails(ctx, enriched(doc, rec, status, now))
}

func (r *Reconciler) update(ctx context.Context, doc registry.Doctor, rec *search.Record) error {
	now := r.clock()

	for _, addr := range rec.Addresses {
		err := r.addresses.UpsertConfirm(ctx, registry.Address{
			GLN:    doc.GLN,
			Street: addr.Street,
			Zip:    addr.Zip,
			City:   addr.City,
		}, now)
		if err != nil {
			return fmt.Errorf("confirm addresses of doctor %s: %w", doc.GLN, err)
		}
	}
	for _, code := range rec.Specialities {
		err := r.specializations.UpsertConfirm(ctx, registry.Specialization{
			GLN:        doc.GLN,
			Speciality: code,
		}, now)
		if err != nil {
			return fmt.Errorf("confirm specializations of doctor %s: %w", doc.GLN, err)
		}
	}

	if doc.EnrichmentEquals(rec.LastName, rec.FirstName, rec.DiplomaCode,
		rec.DiplomaFamily, rec.LicenseAuthority, rec.Gender) {
		status, err := registry.NextDoctorStatus(doc.Status, registry.DoctorEventEnrichedSame)
		if err != nil {
			return err
		}
		// No field changed, so last_update stays put.
		return r.doctors.MarkStatus(ctx, doc.GLN, status)
	}

	status, err := registry.NextDoctorStatus(doc.Status, registry.DoctorEventEnrichedChanged)
	if err != nil {
		return err
	}
	return r.doctors.UpdateDetails(ctx, enriched(doc, rec, status, now))
}

func enriched(doc registry.Doctor, rec *search.Record, status registry.DoctorStatus, now time.Time) registry.Doctor {
	doc.LastName = rec.LastName
	doc.FirstName = rec.FirstName
	doc.DiplomaCode = rec.DiplomaCode
	doc.DiplomaFamily = rec.DiplomaFamily
	doc.LicenseAuthority = rec.LicenseAuthority
	doc.Gender = rec.Gender
	doc.Status = status
	doc.LastUpdate = now
	return doc
}
