// Package trialbalance computes the balance de comprobación de sumas y
// saldos from the posted journal.
package trialbalance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/ledger"
	"github.com/cuadra-dev/cuadra/internal/logger"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// Row is one account line of the trial balance. Only the balance column
// matching the account's nature is filled, and it keeps its sign: a
// debit-normal account with more credits shows a negative DebtorBalance.
type Row struct {
	Account         model.Account
	TotalDebit      decimal.Decimal
	TotalCredit     decimal.Decimal
	DebtorBalance   decimal.Decimal
	CreditorBalance decimal.Decimal
}

// Report is a full trial balance.
type Report struct {
	AsOf          time.Time // zero means the whole log
	Rows          []Row
	TotalDebit    decimal.Decimal
	TotalCredit   decimal.Decimal
	TotalDebtor   decimal.Decimal
	TotalCreditor decimal.Decimal
}

// Difference returns TotalDebit − TotalCredit.
func (r Report) Difference() decimal.Decimal {
	return r.TotalDebit.Sub(r.TotalCredit)
}

// Options tunes Calculate.
type Options struct {
	// AsOf limits the report to entries dated on or before it.
	AsOf time.Time
	// Epsilon is the per-entry tolerance the poster admitted. The global
	// check allows at most Epsilon × number of entries; zero means exact.
	Epsilon decimal.Decimal
}

// Calculate builds the trial balance. When the debit and credit columns
// disagree beyond what posting could have admitted, the report is returned
// together with a *apperr.TrialBalanceImbalanceError and the fault is logged.
func Calculate(ctx context.Context, entries []model.JournalEntry, chart ledger.Chart, opts Options) (Report, error) {
	period := ledger.Period{To: opts.AsOf}
	ledgers, err := ledger.AllForPeriod(entries, chart, period)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		AsOf:          opts.AsOf,
		Rows:          make([]Row, 0, len(ledgers)),
		TotalDebit:    decimal.Zero,
		TotalCredit:   decimal.Zero,
		TotalDebtor:   decimal.Zero,
		TotalCreditor: decimal.Zero,
	}
	for _, led := range ledgers {
		row := Row{
			Account:         led.Account,
			TotalDebit:      led.TotalDebit,
			TotalCredit:     led.TotalCredit,
			DebtorBalance:   decimal.Zero,
			CreditorBalance: decimal.Zero,
		}
		if led.Account.Nature() == model.NatureDebit {
			row.DebtorBalance = led.Balance
		} else {
			row.CreditorBalance = led.Balance
		}
		report.Rows = append(report.Rows, row)
		report.TotalDebit = report.TotalDebit.Add(row.TotalDebit)
		report.TotalCredit = report.TotalCredit.Add(row.TotalCredit)
		report.TotalDebtor = report.TotalDebtor.Add(row.DebtorBalance)
		report.TotalCreditor = report.TotalCreditor.Add(row.CreditorBalance)
	}

	posted := len(ledger.JournalForPeriod(entries, period))
	allowed := opts.Epsilon.Abs().Mul(decimal.NewFromInt(int64(posted)))
	if report.Difference().Abs().GreaterThan(allowed) {
		fault := &apperr.TrialBalanceImbalanceError{TotalDebit: report.TotalDebit, TotalCredit: report.TotalCredit}
		logger.FromContext(ctx).WithComponent("trialbalance").Errorw("trial balance imbalance",
			"fault", true,
			"code", fault.Code(),
			"total_debit", report.TotalDebit.String(),
			"total_credit", report.TotalCredit.String(),
			"difference", report.Difference().String(),
		)
		return report, fault
	}
	return report, nil
}
