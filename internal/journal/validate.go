package journal

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// DefaultEpsilon is the largest debit/credit difference accepted as balanced.
var DefaultEpsilon = decimal.New(1, -2)

// AccountChecker reports whether an account code can receive postings.
// It returns *apperr.UnknownAccountError when it cannot.
type AccountChecker interface {
	Postable(code string) error
}

var hundred = decimal.NewFromInt(100)

// Validate checks a candidate entry. Rules are applied in order and the
// first violation is returned:
//
//  1. at least two lines
//  2. every account code is postable
//  3. each line has exactly one positive side with at most two decimals
//  4. |Σdebit − Σcredit| ≤ epsilon
func Validate(entry model.JournalEntry, accounts AccountChecker, epsilon decimal.Decimal) error {
	if len(entry.Lines) < 2 {
		return &apperr.MalformedLineError{Line: -1, Reason: "an entry needs at least two lines"}
	}

	for _, l := range entry.Lines {
		if err := accounts.Postable(l.AccountCode); err != nil {
			return err
		}
	}

	for i, l := range entry.Lines {
		if reason := lineProblem(l); reason != "" {
			return &apperr.MalformedLineError{Line: i, Reason: reason}
		}
	}

	debit, credit := entry.Totals()
	if debit.Sub(credit).Abs().GreaterThan(epsilon) {
		return &apperr.UnbalancedEntryError{Debit: debit, Credit: credit}
	}

	if strings.TrimSpace(entry.Concept) == "" {
		return &apperr.InvalidInputError{Field: "concept", Reason: "must not be empty"}
	}
	if entry.Date.IsZero() {
		return &apperr.InvalidInputError{Field: "date", Reason: "is required"}
	}
	return nil
}

func lineProblem(l model.Line) string {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return "amounts must not be negative"
	}
	hasDebit := l.Debit.IsPositive()
	hasCredit := l.Credit.IsPositive()
	if hasDebit == hasCredit {
		return "line must have exactly one of debit or credit"
	}
	amount := l.Debit
	if hasCredit {
		amount = l.Credit
	}
	if scaled := amount.Mul(hundred); !scaled.Equal(scaled.Floor()) {
		return "amount " + amount.String() + " has more than 2 decimal places"
	}
	return ""
}
