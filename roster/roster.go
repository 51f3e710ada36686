/*
Package roster maintains the ordered list of staff on duty for the current
day, with a transient busy status.

PURPOSE:
  The front desk keeps a daily ordering of available staff. An entry can be
  marked busy until some time (end of a session); whether it IS busy is
  decided at read time by comparing that timestamp against now.

NO TIMERS, NO STORED FLAG:
  There is no boolean that a background process must flip back. Busy status
  lapses purely because later reads compare against a later now. The same
  rule applies to the day boundary: the roster belongs to one calendar day,
  and any access on a later day clears it first.

LIFECYCLE:
  Entries exist from Add until Remove or Clear (or the day rollover).
  Positions are a dense display order 1..N; Remove compacts, Reorder swaps.
  Nothing here is ever persisted.

SEE ALSO:
  - api/handlers.go: Exposes these operations
*/
package roster

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// ENTRIES AND STATUS
// =============================================================================

type EntryStatus string

const (
	StatusAvailable EntryStatus = "available"
	StatusBusy      EntryStatus = "busy"
)

// Entry is one staff member on today's roster.
type Entry struct {
	Position  int
	StaffName string

	// BusyUntil is the moment the entry becomes available again.
	// Zero means never marked busy.
	BusyUntil time.Time
}

// Status derives busy/available at read time. No stored flag, no timer.
func (e Entry) Status(now time.Time) EntryStatus {
	if !e.BusyUntil.IsZero() && now.Before(e.BusyUntil) {
		return StatusBusy
	}
	return StatusAvailable
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrPositionNotFound = errors.New("no roster entry at position")
	ErrEmptyStaffName   = errors.New("staff name is required")
)

// =============================================================================
// ROSTER
// =============================================================================

// Roster is the in-memory daily on-duty list. Safe for concurrent use.
type Roster struct {
	mu      sync.Mutex
	day     time.Time // midnight of the day the entries belong to
	entries []Entry
	clock   func() time.Time
}

type Option func(*Roster)

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option {
	return func(r *Roster) { r.clock = clock }
}

func New(opts ...Option) *Roster {
	r := &Roster{clock: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends a staff member at the next free position.
func (r *Roster) Add(staffName string) (Entry, error) {
	staffName = strings.TrimSpace(staffName)
	if staffName == "" {
		return Entry{}, ErrEmptyStaffName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollLocked()

	e := Entry{Position: len(r.entries) + 1, StaffName: staffName}
	r.entries = append(r.entries, e)
	return e, nil
}

// Remove deletes the entry at position and compacts the display order.
func (r *Roster) Remove(position int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollLocked()

	i, err := r.indexLocked(position)
	if err != nil {
		return err
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	r.renumberLocked()
	return nil
}

// Reorder swaps the entries at two positions.
func (r *Roster) Reorder(positionA, positionB int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollLocked()

	i, err := r.indexLocked(positionA)
	if err != nil {
		return err
	}
	j, err := r.indexLocked(positionB)
	if err != nil {
		return err
	}
	r.entries[i], r.entries[j] = r.entries[j], r.entries[i]
	r.renumberLocked()
	return nil
}

// SetBusy marks the entry at position busy until the given time.
func (r *Roster) SetBusy(position int, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollLocked()

	i, err := r.indexLocked(position)
	if err != nil {
		return err
	}
	r.entries[i].BusyUntil = until
	return nil
}

// Clear empties the roster.
func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = nil
	r.day = time.Time{}
}

// Entries returns a snapshot in display order.
func (r *Roster) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollLocked()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// StatusOf returns the derived status of the entry at position.
func (r *Roster) StatusOf(position int) (EntryStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollLocked()

	i, err := r.indexLocked(position)
	if err != nil {
		return "", err
	}
	return r.entries[i].Status(r.clock()), nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// rollLocked clears yesterday's roster on the first access of a new day.
// Derived at read time, same as busy expiry - no midnight job involved.
func (r *Roster) rollLocked() {
	now := r.clock()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if r.day.IsZero() {
		r.day = today
		return
	}
	if !today.Equal(r.day) {
		r.entries = nil
		r.day = today
	}
}

func (r *Roster) indexLocked(position int) (int, error) {
	for i, e := range r.entries {
		if e.Position == position {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrPositionNotFound, position)
}

func (r *Roster) renumberLocked() {
	for i := range r.entries {
		r.entries[i].Position = i + 1
	}
}
