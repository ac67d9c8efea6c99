package edp

import "time"

// DefaultCriticalDays is the waiting threshold beyond which a pending record is critical.
const DefaultCriticalDays = 30

// Deriver computes waiting time, criticality, validation and stage.
type Deriver struct {
	criticalDays int
}

// NewDeriver builds a deriver. Non-positive thresholds fall back to DefaultCriticalDays.
func NewDeriver(criticalDays int) *Deriver {
	if criticalDays <= 0 {
		criticalDays = DefaultCriticalDays
	}
	return &Deriver{criticalDays: criticalDays}
}

// CriticalDays returns the threshold in use.
func (d *Deriver) CriticalDays() int {
	return d.criticalDays
}

// Derive returns a copy of r with the derived fields recomputed. Waiting time
// runs from the sent date to the conformance date, or to now when unconformed.
func (d *Deriver) Derive(r Record, now time.Time) Record {
	ref := dateOnly(now)
	if !r.ConformedAt.IsZero() {
		ref = r.ConformedAt
	}
	r.WaitingDays = nil
	r.BusinessWaitingDays = nil
	if !r.SentAt.IsZero() {
		waiting := CalendarDays(r.SentAt, ref)
		business := BusinessDays(r.SentAt, ref)
		r.WaitingDays = &waiting
		r.BusinessWaitingDays = &business
	}
	r.Critical = r.WaitingDays != nil && *r.WaitingDays > d.criticalDays && r.Status.CriticalEligible()
	r.Validated = r.Status == StatusValidated
	r.Stage = StageOf(r)
	return r
}

// DeriveAll derives every record into a new slice.
func (d *Deriver) DeriveAll(records []Record, now time.Time) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = d.Derive(r, now)
	}
	return out
}

// StageOf places a record on the payment cycle.
func StageOf(r Record) Stage {
	switch {
	case r.Status == StatusPaid:
		return StageCollected
	case r.Status == StatusValidated || !r.ConformedAt.IsZero():
		return StageConformed
	case r.Status == StatusApproved:
		return StageApproved
	case r.Status == StatusSent || r.Status == StatusRevision || r.Status == StatusRework:
		return StageInReview
	default:
		return StageIssued
	}
}

// CalendarDays counts whole days from one date to another; negative when to precedes from.
func CalendarDays(from, to time.Time) int {
	return int(dateOnly(to).Sub(dateOnly(from)).Hours() / 24)
}

// BusinessDays counts Monday to Friday dates d with from < d <= to.
// When to precedes from the count is negated.
func BusinessDays(from, to time.Time) int {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return -BusinessDays(to, from)
	}
	days := CalendarDays(from, to)
	weeks := days / 7
	count := weeks * 5
	cursor := from.AddDate(0, 0, weeks*7)
	for cursor.Before(to) {
		cursor = cursor.AddDate(0, 0, 1)
		if wd := cursor.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}
