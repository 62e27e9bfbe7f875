package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus represents the lifecycle state of a journal entry.
type EntryStatus string

const (
	StatusDraft  EntryStatus = "draft"
	StatusPosted EntryStatus = "posted"
	StatusVoided EntryStatus = "voided"
)

// Line is one side of a double-entry posting.
type Line struct {
	AccountCode string
	Debit       decimal.Decimal // zero if credit side
	Credit      decimal.Decimal // zero if debit side
}

// DebitLine returns a line debiting code.
func DebitLine(code string, amount decimal.Decimal) Line {
	return Line{AccountCode: code, Debit: amount}
}

// CreditLine returns a line crediting code.
func CreditLine(code string, amount decimal.Decimal) Line {
	return Line{AccountCode: code, Credit: amount}
}

// JournalEntry is one asiento in the libro diario.
type JournalEntry struct {
	ID        string // "YYYY-MM-NNN", assigned at posting
	Seq       int64  // insertion order in the tenant's log, assigned at posting
	Date      time.Time
	Concept   string // glosa
	Reference string // free-form document reference (invoice number, etc.)
	Status    EntryStatus
	Lines     []Line
	PostedAt  time.Time
	VoidedAt  time.Time
}

// Totals returns the sum of debits and the sum of credits.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// IsPosted reports whether the entry counts toward aggregations.
func (e JournalEntry) IsPosted() bool {
	return e.Status == StatusPosted
}

// Touches reports whether any line posts to code or one of its descendants.
func (e JournalEntry) Touches(code string) bool {
	for _, l := range e.Lines {
		if CoversCode(code, l.AccountCode) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate a logged entry's lines.
func (e JournalEntry) Clone() JournalEntry {
	c := e
	c.Lines = append([]Line(nil), e.Lines...)
	return c
}

// Before orders entries by (date, insertion order).
func (e JournalEntry) Before(o JournalEntry) bool {
	if !e.Date.Equal(o.Date) {
		return e.Date.Before(o.Date)
	}
	return e.Seq < o.Seq
}
