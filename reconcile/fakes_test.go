package reconcile

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slices"

	"github.com/planadoc/medregsync/models/registry"
	"github.com/planadoc/medregsync/search"
)

// fakeDoctors is an in-memory DoctorStore mirroring the SQL semantics
// of the Postgres implementation.
type fakeDoctors struct {
	docs         map[string]*registry.Doctor
	upsertErr    map[string]error
	setStatusErr map[string]error
}

func newFakeDoctors(docs ...registry.Doctor) *fakeDoctors {
	f := &fakeDoctors{
		docs:         make(map[string]*registry.Doctor),
		upsertErr:    make(map[string]error),
		setStatusErr: make(map[string]error),
	}
	for _, d := range docs {
		doc := d
		f.docs[d.GLN] = &doc
	}
	return f
}

func (f *fakeDoctors) get(gln string) registry.Doctor { return *f.docs[gln] }

func (f *fakeDoctors) MarkAllWillUpdate(context.Context) error {
	for _, d := range f.docs {
		d.Status = registry.DoctorWillUpdate
	}
	return nil
}

func (f *fakeDoctors) UpsertFromIndex(_ context.Context, gln, lastName, firstName string, indexedAt time.Time) error {
	if err := f.upsertErr[gln]; err != nil {
		return err
	}
	if d, ok := f.docs[gln]; ok {
		d.Status = registry.DoctorUpdating
		return nil
	}
	f.docs[gln] = &registry.Doctor{
		GLN:        gln,
		LastName:   lastName,
		FirstName:  firstName,
		Status:     registry.DoctorAdding,
		LastUpdate: indexedAt,
	}
	return nil
}

func (f *fakeDoctors) DeleteUnconfirmed(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, d := range f.docs {
		if d.Status == registry.DoctorWillUpdate {
			d.Status = registry.DoctorDeleted
			d.LastUpdate = now
			n++
		}
	}
	return n, nil
}

func (f *fakeDoctors) ResetStalled(_ context.Context, indexedAt time.Time) (int64, error) {
	var n int64
	for _, d := range f.docs {
		if d.Status == registry.DoctorUpdating && d.LastUpdate.Equal(indexedAt) {
			d.Status = registry.DoctorAdding
			n++
		}
	}
	return n, nil
}

func (f *fakeDoctors) pendingGLNs() []string {
	var glns []string
	for gln, d := range f.docs {
		if d.Status.Pending() {
			glns = append(glns, gln)
		}
	}
	slices.Sort(glns)
	return glns
}

func (f *fakeDoctors) CountPending(context.Context) (int, error) {
	return len(f.pendingGLNs()), nil
}

func (f *fakeDoctors) EachPending(_ context.Context, fn func(registry.Doctor) error) error {
	for _, gln := range f.pendingGLNs() {
		if err := fn(*f.docs[gln]); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeDoctors) SetStatus(_ context.Context, gln string, status registry.DoctorStatus, now time.Time) error {
	if err := f.setStatusErr[gln]; err != nil {
		return err
	}
	d, ok := f.docs[gln]
	if !ok {
		return fmt.Errorf("no doctor %s", gln)
	}
	d.Status = status
	d.LastUpdate = now
	return nil
}

func (f *fakeDoctors) MarkStatus(_ context.Context, gln string, status registry.DoctorStatus) error {
	d, ok := f.docs[gln]
	if !ok {
		return fmt.Errorf("no doctor %s", gln)
	}
	d.Status = status
	return nil
}

func (f *fakeDoctors) UpdateDetails(_ context.Context, doc registry.Doctor) error {
	d, ok := f.docs[doc.GLN]
	if !ok {
		return fmt.Errorf("no doctor %s", doc.GLN)
	}
	*d = doc
	return nil
}

type addressKey struct{ gln, street, zip, city string }

// fakeAddresses is an in-memory AddressStore mirroring the SQL
// semantics of the Postgres implementation.
type fakeAddresses struct {
	entries       map[addressKey]*registry.Address
	markedPending bool
	insertErr     error
}

func newFakeAddresses(addrs ...registry.Address) *fakeAddresses {
	f := &fakeAddresses{entries: make(map[addressKey]*registry.Address)}
	for _, a := range addrs {
		addr := a
		f.entries[addressKey{a.GLN, a.Street, a.Zip, a.City}] = &addr
	}
	return f
}

func (f *fakeAddresses) get(a registry.Address) registry.Address {
	return *f.entries[addressKey{a.GLN, a.Street, a.Zip, a.City}]
}

func (f *fakeAddresses) has(a registry.Address) bool {
	_, ok := f.entries[addressKey{a.GLN, a.Street, a.Zip, a.City}]
	return ok
}

func (f *fakeAddresses) MarkPendingConfirm(context.Context) error {
	f.markedPending = true
	for _, a := range f.entries {
		if a.Status == registry.EntryAdded || a.Status == registry.EntryNotModified {
			a.Status = registry.EntryUpdating
		}
	}
	return nil
}

func (f *fakeAddresses) InsertIgnoreDuplicate(_ context.Context, addr registry.Address, now time.Time) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	key := addressKey{addr.GLN, addr.Street, addr.Zip, addr.City}
	if _, ok := f.entries[key]; ok {
		return nil
	}
	addr.Status = registry.EntryAdded
	addr.LastUpdate = now
	f.entries[key] = &addr
	return nil
}

func (f *fakeAddresses) UpsertConfirm(_ context.Context, addr registry.Address, now time.Time) error {
	key := addressKey{addr.GLN, addr.Street, addr.Zip, addr.City}
	if existing, ok := f.entries[key]; ok {
		existing.Status = registry.EntryNotModified
		return nil
	}
	addr.Status = registry.EntryAdded
	addr.LastUpdate = now
	f.entries[key] = &addr
	return nil
}

func (f *fakeAddresses) PruneStale(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, a := range f.entries {
		if a.Status == registry.EntryUpdating {
			a.Status = registry.EntryDeleted
			a.LastUpdate = now
			n++
		}
	}
	return n, nil
}

type specKey struct{ gln, speciality string }

// fakeSpecializations is an in-memory SpecializationStore.
type fakeSpecializations struct {
	entries       map[specKey]*registry.Specialization
	markedPending bool
}

func newFakeSpecializations(specs ...registry.Specialization) *fakeSpecializations {
	f := &fakeSpecializations{entries: make(map[specKey]*registry.Specialization)}
	for _, s := range specs {
		spec := s
		f.entries[specKey{s.GLN, s.Speciality}] = &spec
	}
	return f
}

func (f *fakeSpecializations) get(s registry.Specialization) registry.Specialization {
	return *f.entries[specKey{s.GLN, s.Speciality}]
}

func (f *fakeSpecializations) MarkPendingConfirm(context.Context) error {
	f.markedPending = true
	for _, s := range f.entries {
		if s.Status == registry.EntryAdded || s.Status == registry.EntryNotModified {
			s.Status = registry.EntryUpdating
		}
	}
	return nil
}

func (f *fakeSpecializations) InsertIgnoreDuplicate(_ context.Context, spec registry.Specialization, now time.Time) error {
	key := specKey{spec.GLN, spec.Speciality}
	if _, ok := f.entries[key]; ok {
		return nil
	}
	spec.Status = registry.EntryAdded
	spec.LastUpdate = now
	f.entries[key] = &spec
	return nil
}

func (f *fakeSpecializations) UpsertConfirm(_ context.Context, spec registry.Specialization, now time.Time) error {
	key := specKey{spec.GLN, spec.Speciality}
	if existing, ok := f.entries[key]; ok {
		existing.Status = registry.EntryNotModified
		return nil
	}
	spec.Status = registry.EntryAdded
	spec.LastUpdate = now
	f.entries[key] = &spec
	return nil
}

func (f *fakeSpecializations) PruneStale(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, s := range f.entries {
		if s.Status == registry.EntryUpdating {
			s.Status = registry.EntryDeleted
			s.LastUpdate = now
			n++
		}
	}
	return n, nil
}

// fakeLookup serves canned lookup outcomes per GLN.
type fakeLookup struct {
	records map[string]*search.Record
	errs    map[string]error
	calls   []string
}

func (f *fakeLookup) Lookup(_ context.Context, gln string) (*search.Record, error) {
	f.calls = append(f.calls, gln)
	if err, ok := f.errs[gln]; ok {
		return nil, err
	}
	if rec, ok := f.records[gln]; ok {
		return rec, nil
	}
	return nil, &search.EmptyRecordError{GLN: gln}
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
