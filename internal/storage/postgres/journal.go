package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/model"
)

const (
	entriesTable = "journal_entries"
	linesTable   = "journal_lines"
)

type entryRow struct {
	ID        string     `db:"id"`
	Seq       int64      `db:"seq"`
	Date      time.Time  `db:"date"`
	Concept   string     `db:"concept"`
	Reference string     `db:"reference"`
	Status    string     `db:"status"`
	PostedAt  time.Time  `db:"posted_at"`
	VoidedAt  *time.Time `db:"voided_at"`
}

type lineRow struct {
	EntryID     string          `db:"entry_id"`
	LineNo      int             `db:"line_no"`
	AccountCode string          `db:"account_code"`
	Debit       decimal.Decimal `db:"debit"`
	Credit      decimal.Decimal `db:"credit"`
}

func (r entryRow) toModel() model.JournalEntry {
	e := model.JournalEntry{
		ID:        r.ID,
		Seq:       r.Seq,
		Date:      dateOnly(r.Date),
		Concept:   r.Concept,
		Reference: r.Reference,
		Status:    model.EntryStatus(r.Status),
		PostedAt:  r.PostedAt.UTC(),
	}
	if r.VoidedAt != nil {
		e.VoidedAt = r.VoidedAt.UTC()
	}
	return e
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s *Store) loadEntriesQuery(tenant model.Tenant) squirrel.SelectBuilder {
	return s.builder.
		Select("id", "seq", "date", "concept", "reference", "status", "posted_at", "voided_at").
		From(entriesTable).
		Where(squirrel.Eq{"tenant": string(tenant)}).
		OrderBy("seq")
}

func (s *Store) loadLinesQuery(tenant model.Tenant) squirrel.SelectBuilder {
	return s.builder.
		Select("entry_id", "line_no", "account_code", "debit", "credit").
		From(linesTable).
		Where(squirrel.Eq{"tenant": string(tenant)}).
		OrderBy("entry_id", "line_no")
}

// LoadPostedEntries returns the posting log, voided entries included, in
// insertion order.
func (s *Store) LoadPostedEntries(ctx context.Context, tenant model.Tenant) ([]model.JournalEntry, error) {
	var (
		entryRows []entryRow
		lineRows  []lineRow
	)
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		q := s.txm.Querier(ctx)

		sql, args, err := s.loadEntriesQuery(tenant).ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		if err := pgxscan.Select(ctx, q, &entryRows, sql, args...); err != nil {
			return fmt.Errorf("load entries: %w", err)
		}

		sql, args, err = s.loadLinesQuery(tenant).ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		if err := pgxscan.Select(ctx, q, &lineRows, sql, args...); err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assembleEntries(entryRows, lineRows), nil
}

// assembleEntries attaches lines to their entries. Lines must be ordered by
// line number within each entry.
func assembleEntries(entryRows []entryRow, lineRows []lineRow) []model.JournalEntry {
	byID := make(map[string][]model.Line, len(entryRows))
	for _, l := range lineRows {
		byID[l.EntryID] = append(byID[l.EntryID], model.Line{
			AccountCode: l.AccountCode,
			Debit:       l.Debit,
			Credit:      l.Credit,
		})
	}
	out := make([]model.JournalEntry, 0, len(entryRows))
	for _, r := range entryRows {
		e := r.toModel()
		e.Lines = byID[r.ID]
		out = append(out, e)
	}
	return out
}

func (s *Store) insertEntryQuery(tenant model.Tenant, e model.JournalEntry) squirrel.InsertBuilder {
	return s.builder.
		Insert(entriesTable).
		Columns("tenant", "id", "seq", "date", "concept", "reference", "status", "posted_at", "voided_at").
		Values(string(tenant), e.ID, e.Seq, dateOnly(e.Date), e.Concept, e.Reference, string(e.Status), e.PostedAt, nullTime(e.VoidedAt))
}

func (s *Store) insertLinesQuery(tenant model.Tenant, e model.JournalEntry) squirrel.InsertBuilder {
	q := s.builder.
		Insert(linesTable).
		Columns("tenant", "entry_id", "line_no", "account_code", "debit", "credit")
	for i, l := range e.Lines {
		q = q.Values(string(tenant), e.ID, i+1, l.AccountCode, l.Debit, l.Credit)
	}
	return q
}

// Append inserts the entry and all its lines in one transaction.
func (s *Store) Append(ctx context.Context, tenant model.Tenant, entry model.JournalEntry) (string, error) {
	if len(entry.Lines) == 0 {
		return "", &apperr.InvalidInputError{Field: "lines", Reason: "entry has no lines"}
	}
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := s.txm.Querier(ctx)

		sql, args, err := s.insertEntryQuery(tenant, entry).ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		if _, err := q.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert entry %s: %w", entry.ID, err)
		}

		sql, args, err = s.insertLinesQuery(tenant, entry).ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		if _, err := q.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert lines of %s: %w", entry.ID, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (s *Store) markVoidedQuery(tenant model.Tenant, entryID string, at time.Time) squirrel.UpdateBuilder {
	return s.builder.
		Update(entriesTable).
		Set("status", string(model.StatusVoided)).
		Set("voided_at", at).
		Where(squirrel.Eq{"tenant": string(tenant), "id": entryID})
}

// MarkVoided flips an entry's status.
func (s *Store) MarkVoided(ctx context.Context, tenant model.Tenant, entryID string, at time.Time) error {
	sql, args, err := s.markVoidedQuery(tenant, entryID, at).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	tag, err := s.txm.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("void entry %s: %w", entryID, err)
	}
	if tag.RowsAffected() == 0 {
		return &apperr.NotFoundError{Entity: "entry", ID: entryID}
	}
	return nil
}
