// Package ledger projects the journal into per-account ledgers (libro mayor)
// with running balances. Every function here is a pure fold over a snapshot
// of the entry log; nothing is cached between calls.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/model"
)

// Chart resolves account codes. *accounts.Registry satisfies it.
type Chart interface {
	Lookup(code string) (model.Account, error)
}

// Period bounds a ledger by entry date, both ends inclusive. A zero From or
// To leaves that end open.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) beforeStart(d time.Time) bool {
	return !p.From.IsZero() && d.Before(p.From)
}

func (p Period) afterEnd(d time.Time) bool {
	return !p.To.IsZero() && d.After(p.To)
}

// Row is one journal line as it appears in an account's ledger.
type Row struct {
	EntryID     string
	Seq         int64
	Date        time.Time
	Concept     string
	AccountCode string // the leaf the line was posted to
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.Decimal // running balance after this line
}

// Ledger is the movement list of one account.
type Ledger struct {
	Account     model.Account
	Opening     decimal.Decimal // balance carried from lines before the period
	Rows        []Row
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Balance     decimal.Decimal
}

// AccountLedger returns the ledger of code over the whole log. For a parent
// code the lines of every descendant are included.
func AccountLedger(entries []model.JournalEntry, chart Chart, code string) (Ledger, error) {
	return AccountLedgerForPeriod(entries, chart, code, Period{})
}

// AccountLedgerForPeriod is AccountLedger restricted to a date range. Lines
// dated before the range fold into the opening balance.
func AccountLedgerForPeriod(entries []model.JournalEntry, chart Chart, code string, period Period) (Ledger, error) {
	acct, err := chart.Lookup(code)
	if err != nil {
		return Ledger{}, err
	}

	var rows []Row
	for _, e := range Journal(entries) {
		for _, l := range e.Lines {
			if model.CoversCode(code, l.AccountCode) {
				rows = append(rows, newRow(e, l))
			}
		}
	}
	return fold(acct, rows, period), nil
}

// All returns one ledger per account that received at least one posted
// line, sorted by code.
func All(entries []model.JournalEntry, chart Chart) ([]Ledger, error) {
	return AllForPeriod(entries, chart, Period{})
}

// AllForPeriod is All restricted to a date range. Accounts whose only lines
// fall after the range are omitted.
func AllForPeriod(entries []model.JournalEntry, chart Chart, period Period) ([]Ledger, error) {
	byCode := make(map[string][]Row)
	for _, e := range Journal(entries) {
		if period.afterEnd(e.Date) {
			continue
		}
		for _, l := range e.Lines {
			byCode[l.AccountCode] = append(byCode[l.AccountCode], newRow(e, l))
		}
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	result := make([]Ledger, 0, len(codes))
	for _, code := range codes {
		acct, err := chart.Lookup(code)
		if err != nil {
			return nil, err
		}
		result = append(result, fold(acct, byCode[code], period))
	}
	return result, nil
}

// Journal returns the posted entries ordered by (date, insertion order): the
// libro diario view.
func Journal(entries []model.JournalEntry) []model.JournalEntry {
	var posted []model.JournalEntry
	for _, e := range entries {
		if e.IsPosted() {
			posted = append(posted, e)
		}
	}
	sort.SliceStable(posted, func(i, j int) bool { return posted[i].Before(posted[j]) })
	return posted
}

// JournalForPeriod is Journal restricted to a date range.
func JournalForPeriod(entries []model.JournalEntry, period Period) []model.JournalEntry {
	var result []model.JournalEntry
	for _, e := range Journal(entries) {
		if period.beforeStart(e.Date) || period.afterEnd(e.Date) {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Movement returns the signed effect of a debit/credit pair on an account of
// the given nature.
func Movement(nature model.Nature, debit, credit decimal.Decimal) decimal.Decimal {
	if nature == model.NatureDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

func newRow(e model.JournalEntry, l model.Line) Row {
	return Row{
		EntryID:     e.ID,
		Seq:         e.Seq,
		Date:        e.Date,
		Concept:     e.Concept,
		AccountCode: l.AccountCode,
		Debit:       l.Debit,
		Credit:      l.Credit,
	}
}

// fold computes running balances over rows already in ledger order.
func fold(acct model.Account, rows []Row, period Period) Ledger {
	nature := acct.Nature()
	led := Ledger{
		Account:     acct,
		Opening:     decimal.Zero,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}

	balance := decimal.Zero
	for _, r := range rows {
		if period.afterEnd(r.Date) {
			break
		}
		balance = balance.Add(Movement(nature, r.Debit, r.Credit))
		if period.beforeStart(r.Date) {
			led.Opening = balance
			continue
		}
		r.Balance = balance
		led.TotalDebit = led.TotalDebit.Add(r.Debit)
		led.TotalCredit = led.TotalCredit.Add(r.Credit)
		led.Rows = append(led.Rows, r)
	}
	led.Balance = balance
	return led
}
