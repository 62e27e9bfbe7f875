package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/model"
)

// Header is the CSV header for journal.csv. Each row is one line of an
// entry; rows of the same entry are contiguous.
var Header = []string{"entry_id", "seq", "date", "concept", "reference", "status", "posted_at", "voided_at", "account_code", "debit", "credit"}

const (
	numFields    = 11
	dateFormat   = "2006-01-02"
	colEntryID   = 0
	colSeq       = 1
	colDate      = 2
	colConcept   = 3
	colReference = 4
	colStatus    = 5
	colPostedAt  = 6
	colVoidedAt  = 7
	colAccount   = 8
	colDebit     = 9
	colCredit    = 10
)

// ReadEntries reads all entries from a journal.csv reader.
func ReadEntries(r io.Reader) ([]model.JournalEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []model.JournalEntry
	for i, rec := range records[1:] {
		entry, line, err := unmarshalRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if n := len(entries); n > 0 && entries[n-1].ID == entry.ID {
			entries[n-1].Lines = append(entries[n-1].Lines, line)
			continue
		}
		entry.Lines = []model.Line{line}
		entries = append(entries, entry)
	}
	return entries, nil
}

// WriteEntries writes entries to a journal.csv writer (including header).
func WriteEntries(w io.Writer, entries []model.JournalEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, e := range entries {
		if err := writeEntry(cw, e); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AppendEntry appends one entry's rows to an existing journal.csv writer
// (no header).
func AppendEntry(w io.Writer, entry model.JournalEntry) error {
	cw := csv.NewWriter(w)
	if err := writeEntry(cw, entry); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeEntry(cw *csv.Writer, e model.JournalEntry) error {
	for i, l := range e.Lines {
		if err := cw.Write(marshalRow(e, l)); err != nil {
			return fmt.Errorf("writing entry %s line %d: %w", e.ID, i+1, err)
		}
	}
	return nil
}

func marshalRow(e model.JournalEntry, l model.Line) []string {
	row := make([]string, numFields)
	row[colEntryID] = e.ID
	row[colSeq] = strconv.FormatInt(e.Seq, 10)
	row[colDate] = e.Date.Format(dateFormat)
	row[colConcept] = e.Concept
	row[colReference] = e.Reference
	row[colStatus] = string(e.Status)
	row[colPostedAt] = formatTimestamp(e.PostedAt)
	row[colVoidedAt] = formatTimestamp(e.VoidedAt)
	row[colAccount] = l.AccountCode
	if !l.Debit.IsZero() {
		row[colDebit] = l.Debit.StringFixed(2)
	}
	if !l.Credit.IsZero() {
		row[colCredit] = l.Credit.StringFixed(2)
	}
	return row
}

func unmarshalRow(record []string) (model.JournalEntry, model.Line, error) {
	var e model.JournalEntry
	var l model.Line
	var err error

	e.ID = record[colEntryID]
	if e.Seq, err = strconv.ParseInt(record[colSeq], 10, 64); err != nil {
		return e, l, fmt.Errorf("parsing seq %q: %w", record[colSeq], err)
	}
	if e.Date, err = time.Parse(dateFormat, record[colDate]); err != nil {
		return e, l, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}
	e.Concept = record[colConcept]
	e.Reference = record[colReference]
	e.Status = model.EntryStatus(record[colStatus])
	if e.PostedAt, err = parseTimestamp(record[colPostedAt]); err != nil {
		return e, l, fmt.Errorf("parsing posted_at: %w", err)
	}
	if e.VoidedAt, err = parseTimestamp(record[colVoidedAt]); err != nil {
		return e, l, fmt.Errorf("parsing voided_at: %w", err)
	}

	l.AccountCode = record[colAccount]
	if l.Debit, err = parseAmount(record[colDebit]); err != nil {
		return e, l, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
	}
	if l.Credit, err = parseAmount(record[colCredit]); err != nil {
		return e, l, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
	}
	return e, l, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
