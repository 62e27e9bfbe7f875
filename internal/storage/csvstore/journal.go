package csvstore

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/journal"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// LoadPostedEntries reads the tenant's posting log, voided entries included.
func (s *Store) LoadPostedEntries(ctx context.Context, tenant model.Tenant) ([]model.JournalEntry, error) {
	path, err := s.path(tenant, journalFile)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return readFile(ctx, path, journal.ReadEntries)
}

// Append writes all lines of entry in one write and returns its ID.
func (s *Store) Append(_ context.Context, tenant model.Tenant, entry model.JournalEntry) (string, error) {
	path, err := s.path(tenant, journalFile)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err = appendFile(path, writeJournalHeader, func(w io.Writer) error {
		return journal.AppendEntry(w, entry)
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

// MarkVoided flips an entry's status in place.
func (s *Store) MarkVoided(ctx context.Context, tenant model.Tenant, entryID string, at time.Time) error {
	path, err := s.path(tenant, journalFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := readFile(ctx, path, journal.ReadEntries)
	if err != nil {
		return err
	}
	found := false
	for i := range entries {
		if entries[i].ID == entryID {
			entries[i].Status = model.StatusVoided
			entries[i].VoidedAt = at
			found = true
		}
	}
	if !found {
		return &apperr.NotFoundError{Entity: "entry", ID: entryID}
	}
	return rewriteFile(path, func(w io.Writer) error {
		return journal.WriteEntries(w, entries)
	})
}

func writeJournalHeader(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(journal.Header); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
