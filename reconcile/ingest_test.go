package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planadoc/medregsync/index"
	"github.com/planadoc/medregsync/models/registry"
)

type fakeRows []index.Row

func (r fakeRows) Each(fn func(index.Row) error) error {
	for _, row := range r {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

func TestIngestRun(t *testing.T) {
	indexedAt := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 31, 6, 0, 0, 0, time.UTC)

	// Index lists 111 and 222; the store knows 111 and 333.
	doctors := newFakeDoctors(
		registry.Doctor{GLN: "111", Status: registry.DoctorNotModified, LastUpdate: now.Add(-48 * time.Hour)},
		registry.Doctor{GLN: "333", Status: registry.DoctorAdded, LastUpdate: now.Add(-48 * time.Hour)},
	)
	rows := fakeRows{
		{Number: 2, GLN: "111", LastName: "Vessaz", FirstName: "Anne"},
		{Number: 3, GLN: "222", LastName: "Favre", FirstName: "Luc"},
	}

	ing := NewIngester(doctors, zerolog.Nop(), fixedClock(now))
	summary, err := ing.Run(context.Background(), rows, indexedAt)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, int64(1), summary.Deleted)
	assert.Equal(t, int64(0), summary.Reset)

	assert.Equal(t, registry.DoctorUpdating, doctors.get("111").Status)
	assert.Equal(t, registry.DoctorAdding, doctors.get("222").Status)
	assert.Equal(t, indexedAt, doctors.get("222").LastUpdate)
	assert.Equal(t, registry.DoctorDeleted, doctors.get("333").Status)
	assert.Equal(t, now, doctors.get("333").LastUpdate)
}

func TestIngestResetsStalledUpdates(t *testing.T) {
	indexedAt := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)

	// 444 was inserted by a previous run of this same index whose
	// enrichment never resolved: its last_update still equals the
	// index timestamp.
	doctors := newFakeDoctors(
		registry.Doctor{GLN: "444", Status: registry.DoctorUpdating, LastUpdate: indexedAt},
	)
	rows := fakeRows{{Number: 2, GLN: "444", LastName: "Blanc", FirstName: "Eva"}}

	ing := NewIngester(doctors, zerolog.Nop(), nil)
	summary, err := ing.Run(context.Background(), rows, indexedAt)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Reset)
	assert.Equal(t, registry.DoctorAdding, doctors.get("444").Status)
}

func TestIngestRunTwiceIsIdempotent(t *testing.T) {
	indexedAt := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	doctors := newFakeDoctors()
	rows := fakeRows{{Number: 2, GLN: "111", LastName: "Vessaz", FirstName: "Anne"}}
	ing := NewIngester(doctors, zerolog.Nop(), nil)

	_, err := ing.Run(context.Background(), rows, indexedAt)
	require.NoError(t, err)
	require.Equal(t, registry.DoctorAdding, doctors.get("111").Status)

	// Replaying the unchanged index reconfirms the doctor, and the
	// stalled-update safeguard sends it back to ADDING instead of
	// leaving it stuck.
	summary, err := ing.Run(context.Background(), rows, indexedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Reset)
	assert.Equal(t, registry.DoctorAdding, doctors.get("111").Status)
}

func TestIngestRowFailureIsFatal(t *testing.T) {
	doctors := newFakeDoctors()
	doctors.upsertErr["222"] = assert.AnError
	rows := fakeRows{
		{Number: 2, GLN: "111", LastName: "Vessaz", FirstName: "Anne"},
		{Number: 3, GLN: "222", LastName: "Favre", FirstName: "Luc"},
		{Number: 4, GLN: "555", LastName: "Roux", FirstName: "Jo"},
	}

	ing := NewIngester(doctors, zerolog.Nop(), nil)
	summary, err := ing.Run(context.Background(), rows, time.Now())
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "index row 3")

	// The pass stopped at the failing row.
	assert.Equal(t, 1, summary.Rows)
	_, ok := doctors.docs["555"]
	assert.False(t, ok)
}
