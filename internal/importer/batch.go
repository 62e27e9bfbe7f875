package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/model"
)

// BatchParser parses the journal batch format: one row per line, rows of
// the same entry share a ref.
//
//	ref,date,concept,account_code,debit,credit
type BatchParser struct{}

const (
	batchDateFormat = "2006-01-02"
	batchNumFields  = 6
	batchColRef     = 0
	batchColDate    = 1
	batchColConcept = 2
	batchColAccount = 3
	batchColDebit   = 4
	batchColCredit  = 5
)

// BatchHeader is the expected header row.
var BatchHeader = []string{"ref", "date", "concept", "account_code", "debit", "credit"}

// Format returns the parser name.
func (p *BatchParser) Format() string { return "journal" }

// Parse reads a batch CSV and returns draft entries in order of first
// appearance. The date and concept of an entry come from its first row; a
// later row with a different date is rejected.
func (p *BatchParser) Parse(r io.Reader) ([]model.JournalEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = batchNumFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading batch CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []model.JournalEntry
	index := make(map[string]int)
	for i, rec := range records[1:] {
		row := i + 2
		ref := strings.TrimSpace(rec[batchColRef])
		if ref == "" {
			return nil, fmt.Errorf("row %d: empty ref", row)
		}
		date, err := time.Parse(batchDateFormat, strings.TrimSpace(rec[batchColDate]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing date %q: %w", row, rec[batchColDate], err)
		}
		line, err := parseBatchLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		if at, ok := index[ref]; ok {
			if !entries[at].Date.Equal(date) {
				return nil, fmt.Errorf("row %d: ref %s has conflicting dates %s and %s",
					row, ref, entries[at].Date.Format(batchDateFormat), date.Format(batchDateFormat))
			}
			entries[at].Lines = append(entries[at].Lines, line)
			continue
		}
		index[ref] = len(entries)
		entries = append(entries, model.JournalEntry{
			Date:      date,
			Concept:   strings.TrimSpace(rec[batchColConcept]),
			Reference: ref,
			Status:    model.StatusDraft,
			Lines:     []model.Line{line},
		})
	}
	return entries, nil
}

func parseBatchLine(rec []string) (model.Line, error) {
	debit, err := parseAmount(rec[batchColDebit])
	if err != nil {
		return model.Line{}, fmt.Errorf("parsing debit %q: %w", rec[batchColDebit], err)
	}
	credit, err := parseAmount(rec[batchColCredit])
	if err != nil {
		return model.Line{}, fmt.Errorf("parsing credit %q: %w", rec[batchColCredit], err)
	}
	return model.Line{
		AccountCode: strings.TrimSpace(rec[batchColAccount]),
		Debit:       debit,
		Credit:      credit,
	}, nil
}

// parseAmount treats an empty cell as zero.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
