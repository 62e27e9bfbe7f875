// Package apperr defines the bookkeeping error taxonomy.
//
// Every error carries a stable machine-readable code. Validation errors are
// recoverable: the caller corrects input and retries, and nothing was
// persisted. Faults are invariant violations that indicate a defect.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Error codes.
const (
	CodeUnknownAccount        = "UNKNOWN_ACCOUNT"
	CodeMalformedLine         = "MALFORMED_LINE"
	CodeUnbalancedEntry       = "UNBALANCED_ENTRY"
	CodeDuplicateCode         = "DUPLICATE_CODE"
	CodeNotFound              = "NOT_FOUND"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidState          = "INVALID_STATE"
	CodeTrialBalanceImbalance = "TRIAL_BALANCE_IMBALANCE"
)

// Coded is implemented by every error in this package.
type Coded interface {
	error
	Code() string
}

// UnknownAccountError is returned when a line references an account that
// cannot receive postings.
type UnknownAccountError struct {
	AccountCode string
	Reason      string // "not found", "aggregate account", "inactive"
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("unknown account %q: %s", e.AccountCode, e.Reason)
}

func (e *UnknownAccountError) Code() string { return CodeUnknownAccount }

// MalformedLineError is returned for structurally invalid entry lines.
// Line is the zero-based line index, or -1 when the entry as a whole is at fault.
type MalformedLineError struct {
	Line   int
	Reason string
}

func (e *MalformedLineError) Error() string {
	if e.Line < 0 {
		return "malformed entry: " + e.Reason
	}
	return fmt.Sprintf("malformed line %d: %s", e.Line+1, e.Reason)
}

func (e *MalformedLineError) Code() string { return CodeMalformedLine }

// UnbalancedEntryError is returned when debits and credits differ by more
// than the posting epsilon.
type UnbalancedEntryError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("unbalanced entry: debits (%s) != credits (%s)",
		e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

func (e *UnbalancedEntryError) Code() string { return CodeUnbalancedEntry }

// Difference returns debit minus credit.
func (e *UnbalancedEntryError) Difference() decimal.Decimal {
	return e.Debit.Sub(e.Credit)
}

// DuplicateCodeError is returned when registering an account or item whose
// code already exists.
type DuplicateCodeError struct {
	Entity string
	Value  string
}

func (e *DuplicateCodeError) Error() string {
	return fmt.Sprintf("%s with code %q already exists", e.Entity, e.Value)
}

func (e *DuplicateCodeError) Code() string { return CodeDuplicateCode }

// NotFoundError is returned when a lookup misses.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Code() string { return CodeNotFound }

// InsufficientStockError is returned when an exit or negative adjustment
// would drive quantity on hand below zero.
type InsufficientStockError struct {
	ItemID    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %s, available %s",
		e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Code() string { return CodeInsufficientStock }

// InvalidInputError covers malformed requests outside the entry-line rules.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Code() string { return CodeInvalidInput }

// InvalidStateError is returned for lifecycle transitions that are not
// allowed, such as voiding an entry twice.
type InvalidStateError struct {
	Entity string
	ID     string
	State  string
	Action string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %q in state %s", e.Action, e.Entity, e.ID, e.State)
}

func (e *InvalidStateError) Code() string { return CodeInvalidState }

// TrialBalanceImbalanceError means the posted log no longer satisfies
// Σdebit == Σcredit. It is never a user error.
type TrialBalanceImbalanceError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e *TrialBalanceImbalanceError) Error() string {
	return fmt.Sprintf("trial balance out of balance: total debit %s, total credit %s (difference %s)",
		e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2), e.TotalDebit.Sub(e.TotalCredit).StringFixed(2))
}

func (e *TrialBalanceImbalanceError) Code() string { return CodeTrialBalanceImbalance }

// CodeOf returns the code of the first Coded error in err's chain, or "".
func CodeOf(err error) string {
	var c Coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// IsFault reports whether err signals a broken invariant rather than bad input.
func IsFault(err error) bool {
	var tb *TrialBalanceImbalanceError
	return errors.As(err, &tb)
}

// IsRecoverable reports whether err is a validation error the user can fix.
// Infrastructure errors and faults are not recoverable.
func IsRecoverable(err error) bool {
	code := CodeOf(err)
	return code != "" && code != CodeTrialBalanceImbalance
}

// HTTPStatus returns the suggested HTTP status for err.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateCode, CodeInvalidState:
		return http.StatusConflict
	case CodeInvalidInput, CodeMalformedLine:
		return http.StatusBadRequest
	case CodeUnknownAccount, CodeUnbalancedEntry, CodeInsufficientStock:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
