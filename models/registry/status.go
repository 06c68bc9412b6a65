package registry

import "fmt"

// DoctorStatus is the lifecycle status of a Doctor row. The set is
// closed; transitions happen only through the table below.
type DoctorStatus string

const (
	// DoctorAdding marks a doctor newly seen in the bulk index and not
	// yet enriched.
	DoctorAdding DoctorStatus = "ADDING"
	// DoctorUpdating marks a previously known doctor re-seen in the
	// bulk index and pending enrichment.
	DoctorUpdating DoctorStatus = "UPDATING"
	// DoctorAdded marks a successful enrichment of a new doctor.
	DoctorAdded DoctorStatus = "ADDED"
	// DoctorModified marks a successful enrichment that changed at
	// least one compared field.
	DoctorModified DoctorStatus = "MODIFIED"
	// DoctorNotModified marks a successful enrichment that changed
	// nothing.
	DoctorNotModified DoctorStatus = "NOT_MODIFIED"
	// DoctorError marks a failed enrichment fetch; retried by the next
	// run.
	DoctorError DoctorStatus = "ERROR"
	// DoctorEmpty marks a lookup that returned zero or ambiguous
	// matches.
	DoctorEmpty DoctorStatus = "EMPTY"
	// DoctorWillUpdate is the transient "not yet reconfirmed by this
	// run's index" marker set before ingest.
	DoctorWillUpdate DoctorStatus = "WILL_UPDATE"
	// DoctorDeleted marks a doctor confirmed absent from the latest
	// index. Only reachable from DoctorWillUpdate.
	DoctorDeleted DoctorStatus = "DELETED"
)

// DoctorStatuses lists every valid doctor status.
var DoctorStatuses = []DoctorStatus{
	DoctorAdding, DoctorUpdating, DoctorAdded, DoctorModified,
	DoctorNotModified, DoctorError, DoctorEmpty, DoctorWillUpdate,
	DoctorDeleted,
}

// Valid reports whether s is one of the enumerated doctor statuses.
func (s DoctorStatus) Valid() bool {
	for _, known := range DoctorStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Pending reports whether a doctor in this status is waiting for
// enrichment. The driver iterates exactly these.
func (s DoctorStatus) Pending() bool {
	return s == DoctorAdding || s == DoctorUpdating || s == DoctorError
}

// DoctorEvent is something that happens to a doctor during a sync run.
type DoctorEvent string

const (
	// DoctorEventIndexSweep provisionally marks every stored doctor as
	// unconfirmed before the index is replayed.
	DoctorEventIndexSweep DoctorEvent = "index-sweep"
	// DoctorEventIndexSeen reconfirms a stored doctor present in the
	// index.
	DoctorEventIndexSeen DoctorEvent = "index-seen"
	// DoctorEventIndexAbsent fires when the index finished without
	// reconfirming the doctor.
	DoctorEventIndexAbsent DoctorEvent = "index-absent"
	// DoctorEventRetryReset resets a doctor left unresolved by a
	// previous partial run of the same index.
	DoctorEventRetryReset DoctorEvent = "retry-reset"
	// DoctorEventEnrichedNew fires when enrichment succeeds for a
	// doctor that had no reconciled details yet.
	DoctorEventEnrichedNew DoctorEvent = "enriched-new"
	// DoctorEventEnrichedSame fires when enrichment confirms all six
	// compared fields unchanged.
	DoctorEventEnrichedSame DoctorEvent = "enriched-same"
	// DoctorEventEnrichedChanged fires when enrichment changed at
	// least one compared field.
	DoctorEventEnrichedChanged DoctorEvent = "enriched-changed"
	// DoctorEventLookupEmpty fires when the lookup returned zero or
	// ambiguous matches.
	DoctorEventLookupEmpty DoctorEvent = "lookup-empty"
	// DoctorEventLookupFailed fires when the lookup failed at the
	// transport or parse level.
	DoctorEventLookupFailed DoctorEvent = "lookup-failed"
)

// doctorTransitions is the from-status set and target status per event.
var doctorTransitions = map[DoctorEvent]struct {
	from []DoctorStatus // nil means any valid status
	to   DoctorStatus
}{
	DoctorEventIndexSweep:      {from: nil, to: DoctorWillUpdate},
	DoctorEventIndexSeen:       {from: []DoctorStatus{DoctorWillUpdate, DoctorUpdating}, to: DoctorUpdating},
	DoctorEventIndexAbsent:     {from: []DoctorStatus{DoctorWillUpdate}, to: DoctorDeleted},
	DoctorEventRetryReset:      {from: []DoctorStatus{DoctorUpdating}, to: DoctorAdding},
	DoctorEventEnrichedNew:     {from: []DoctorStatus{DoctorAdding, DoctorError}, to: DoctorAdded},
	DoctorEventEnrichedSame:    {from: []DoctorStatus{DoctorUpdating}, to: DoctorNotModified},
	DoctorEventEnrichedChanged: {from: []DoctorStatus{DoctorUpdating}, to: DoctorModified},
	DoctorEventLookupEmpty:     {from: []DoctorStatus{DoctorAdding, DoctorUpdating, DoctorError}, to: DoctorEmpty},
	DoctorEventLookupFailed:    {from: []DoctorStatus{DoctorAdding, DoctorUpdating, DoctorError}, to: DoctorError},
}

// NextDoctorStatus returns the status a doctor in from moves to when ev
// is applied. It fails when the transition is not in the table, so a
// miswired caller surfaces loudly instead of silently writing a wrong
// status.
func NextDoctorStatus(from DoctorStatus, ev DoctorEvent) (DoctorStatus, error) {
	t, ok := doctorTransitions[ev]
	if !ok {
		return "", fmt.Errorf("unknown doctor event %q", ev)
	}
	if !from.Valid() {
		return "", fmt.Errorf("invalid doctor status %q", from)
	}
	if t.from == nil {
		return t.to, nil
	}
	for _, allowed := range t.from {
		if from == allowed {
			return t.to, nil
		}
	}
	return "", fmt.Errorf("doctor event %q not allowed from status %q", ev, from)
}

// EntryStatus is the lifecycle status of an Address or Specialization
// row. Both follow the same pattern: set to UPDATING at the start of a
// full enrichment pass, reconfirmed to NOT_MODIFIED by the fetch, and
// pruned to DELETED when never reconfirmed.
type EntryStatus string

const (
	EntryAdded       EntryStatus = "ADDED"
	EntryNotModified EntryStatus = "NOT_MODIFIED"
	EntryUpdating    EntryStatus = "UPDATING"
	EntryDeleted     EntryStatus = "DELETED"
)

// EntryStatuses lists every valid address/specialization status.
var EntryStatuses = []EntryStatus{EntryAdded, EntryNotModified, EntryUpdating, EntryDeleted}

// Valid reports whether s is one of the enumerated entry statuses.
func (s EntryStatus) Valid() bool {
	for _, known := range EntryStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// EntryEvent is something that happens to an owned entry during a run.
type EntryEvent string

const (
	// EntryEventPendingConfirm marks previously reconciled entries as
	// awaiting reconfirmation at the start of a full pass.
	EntryEventPendingConfirm EntryEvent = "pending-confirm"
	// EntryEventConfirmed fires when the fetch re-reports an existing
	// entry.
	EntryEventConfirmed EntryEvent = "confirmed"
	// EntryEventPruned fires for entries never reconfirmed by the end
	// of the pass.
	EntryEventPruned EntryEvent = "pruned"
)

var entryTransitions = map[EntryEvent]struct {
	from []EntryStatus // nil means any valid status
	to   EntryStatus
}{
	EntryEventPendingConfirm: {from: []EntryStatus{EntryAdded, EntryNotModified}, to: EntryUpdating},
	// A DELETED entry can resurface in a later fetch, so confirmation
	// is allowed from any status.
	EntryEventConfirmed: {from: nil, to: EntryNotModified},
	EntryEventPruned:    {from: []EntryStatus{EntryUpdating}, to: EntryDeleted},
}

// NextEntryStatus returns the status an entry in from moves to when ev
// is applied, failing on transitions outside the table.
func NextEntryStatus(from EntryStatus, ev EntryEvent) (EntryStatus, error) {
	t, ok := entryTransitions[ev]
	if !ok {
		return "", fmt.Errorf("unknown entry event %q", ev)
	}
	if !from.Valid() {
		return "", fmt.Errorf("invalid entry status %q", from)
	}
	if t.from == nil {
		return t.to, nil
	}
	for _, allowed := range t.from {
		if from == allowed {
			return t.to, nil
		}
	}
	return "", fmt.Errorf("entry event %q not allowed from status %q", ev, from)
}
