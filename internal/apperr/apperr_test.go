package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		code        string
		recoverable bool
		fault       bool
		status      int
	}{
		{"unknown account", &UnknownAccountError{AccountCode: "9999", Reason: "not found"}, CodeUnknownAccount, true, false, http.StatusUnprocessableEntity},
		{"malformed", &MalformedLineError{Line: 0, Reason: "both sides"}, CodeMalformedLine, true, false, http.StatusBadRequest},
		{"unbalanced", &UnbalancedEntryError{Debit: decimal.NewFromInt(500), Credit: decimal.NewFromInt(400)}, CodeUnbalancedEntry, true, false, http.StatusUnprocessableEntity},
		{"duplicate", &DuplicateCodeError{Entity: "account", Value: "1141"}, CodeDuplicateCode, true, false, http.StatusConflict},
		{"not found", &NotFoundError{Entity: "entry", ID: "2025-01-001"}, CodeNotFound, true, false, http.StatusNotFound},
		{"stock", &InsufficientStockError{ItemID: "x"}, CodeInsufficientStock, true, false, http.StatusUnprocessableEntity},
		{"imbalance", &TrialBalanceImbalanceError{TotalDebit: decimal.NewFromInt(1), TotalCredit: decimal.Zero}, CodeTrialBalanceImbalance, false, true, http.StatusInternalServerError},
		{"plain", errors.New("disk full"), "", false, false, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("posting: %w", tt.err)
			assert.Equal(t, tt.code, CodeOf(wrapped))
			assert.Equal(t, tt.recoverable, IsRecoverable(wrapped))
			assert.Equal(t, tt.fault, IsFault(wrapped))
			assert.Equal(t, tt.status, HTTPStatus(wrapped))
		})
	}
}

func TestMessages(t *testing.T) {
	err := &UnbalancedEntryError{Debit: decimal.NewFromInt(500), Credit: decimal.NewFromInt(400)}
	assert.Equal(t, "unbalanced entry: debits (500.00) != credits (400.00)", err.Error())
	assert.True(t, err.Difference().Equal(decimal.NewFromInt(100)))

	assert.Equal(t, "malformed entry: needs at least two lines", (&MalformedLineError{Line: -1, Reason: "needs at least two lines"}).Error())
	assert.Equal(t, "malformed line 2: negative amount", (&MalformedLineError{Line: 1, Reason: "negative amount"}).Error())
}
