// Package id formats journal entry identifiers and generates movement IDs.
package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FormatEntryID returns an entry ID like "2025-01-001".
func FormatEntryID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// ParseEntryID parses "2025-01-001" into year, month, seq.
func ParseEntryID(id string) (year, month, seq int, err error) {
	parts := strings.SplitN(id, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid entry ID format: %q", id)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in entry ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid month in entry ID %q", id)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in entry ID %q: %w", id, err)
	}

	return year, month, seq, nil
}

// Sequencer hands out per-month entry numbers. It is not safe for concurrent
// use; the journal poster serializes access.
type Sequencer struct {
	last map[string]int
}

// NewSequencer creates an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{last: make(map[string]int)}
}

// Observe records an existing entry ID so Next never reissues it.
// IDs that do not parse are ignored.
func (s *Sequencer) Observe(entryID string) {
	year, month, seq, err := ParseEntryID(entryID)
	if err != nil {
		return
	}
	key := monthKey(year, month)
	if seq > s.last[key] {
		s.last[key] = seq
	}
}

// Peek returns the ID Next would hand out for date without consuming it.
func (s *Sequencer) Peek(date time.Time) string {
	key := monthKey(date.Year(), int(date.Month()))
	return FormatEntryID(date.Year(), int(date.Month()), s.last[key]+1)
}

// Next returns the next entry ID for the month of date.
func (s *Sequencer) Next(date time.Time) string {
	key := monthKey(date.Year(), int(date.Month()))
	s.last[key]++
	return FormatEntryID(date.Year(), int(date.Month()), s.last[key])
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// NewMovementID returns a time-ordered UUIDv7 string for a kardex row.
func NewMovementID() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// NewItemID returns a random identifier for an inventory item.
func NewItemID() string {
	return uuid.NewString()
}
