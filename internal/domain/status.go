package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is shared by orders and their dish lines; both walk the same five stages.
type Status string

const (
	StatusCreated       Status = "CREATED"
	StatusConfirmed     Status = "CONFIRMED"
	StatusInPreparation Status = "IN_PREPARATION"
	StatusFinished      Status = "FINISHED"
	StatusServed        Status = "SERVED"
)

var statusOrder = []Status{
	StatusCreated,
	StatusConfirmed,
	StatusInPreparation,
	StatusFinished,
	StatusServed,
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", NewValidationError("status", fmt.Sprintf("unknown status %q", s))
	}
	return st, nil
}

func (s Status) Valid() bool {
	return s.rank() >= 0
}

// rank is the position in the lifecycle, -1 for unknown values.
func (s Status) rank() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the unique legal successor. SERVED has none.
func (s Status) Next() (Status, bool) {
	r := s.rank()
	if r < 0 || r == len(statusOrder)-1 {
		return "", false
	}
	return statusOrder[r+1], true
}

// AtOrPast reports whether s is the given stage or any later one.
func (s Status) AtOrPast(other Status) bool {
	r := s.rank()
	return r >= 0 && r >= other.rank()
}

func (s Status) Terminal() bool {
	return s == StatusServed
}

type StatusEntry struct {
	Status    Status
	ChangedAt time.Time
}

// StatusHistory is an append-only log. The current status is always the last entry.
type StatusHistory struct {
	entries []StatusEntry
}

func NewStatusHistory(initial Status, at time.Time) StatusHistory {
	return StatusHistory{entries: []StatusEntry{{Status: initial, ChangedAt: at}}}
}

// RestoreStatusHistory rebuilds a history loaded from storage, ordered by time.
// Entries sharing a timestamp keep their stored order.
func RestoreStatusHistory(entries []StatusEntry) StatusHistory {
	cp := make([]StatusEntry, len(entries))
	copy(cp, entries)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].ChangedAt.Before(cp[j].ChangedAt)
	})
	return StatusHistory{entries: cp}
}

func (h *StatusHistory) append(st Status, at time.Time) {
	h.entries = append(h.entries, StatusEntry{Status: st, ChangedAt: at})
}

// Current returns "" for an empty history.
func (h StatusHistory) Current() Status {
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1].Status
}

func (h StatusHistory) Len() int { return len(h.entries) }

func (h StatusHistory) Entries() []StatusEntry {
	cp := make([]StatusEntry, len(h.entries))
	copy(cp, h.entries)
	return cp
}

// FirstAt returns when the given status was first reached.
func (h StatusHistory) FirstAt(st Status) (time.Time, bool) {
	for _, e := range h.entries {
		if e.Status == st {
			return e.ChangedAt, true
		}
	}
	return time.Time{}, false
}

func (h StatusHistory) clone() StatusHistory {
	return StatusHistory{entries: h.Entries()}
}
