package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// mockAccounts implements AccountChecker for testing.
type mockAccounts struct {
	codes map[string]bool
}

func (m *mockAccounts) Postable(code string) error {
	if !m.codes[code] {
		return &apperr.UnknownAccountError{AccountCode: code, Reason: "not found"}
	}
	return nil
}

func newMockAccounts(codes ...string) *mockAccounts {
	m := &mockAccounts{codes: make(map[string]bool)}
	for _, c := range codes {
		m.codes[c] = true
	}
	return m
}

var defaultAccounts = newMockAccounts("1111", "1141", "2111", "4111", "5111")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func entry(lines ...model.Line) model.JournalEntry {
	return model.JournalEntry{Date: date(2025, 1, 15), Concept: "Compra de mercaderías", Lines: lines}
}

func TestValidate_Balanced(t *testing.T) {
	e := entry(model.DebitLine("1141", dec("1000")), model.CreditLine("2111", dec("1000")))
	assert.NoError(t, Validate(e, defaultAccounts, DefaultEpsilon))
}

func TestValidate_MultiLineBalanced(t *testing.T) {
	e := entry(
		model.DebitLine("1141", dec("1000.00")),
		model.CreditLine("1111", dec("400.00")),
		model.CreditLine("2111", dec("600.00")),
	)
	assert.NoError(t, Validate(e, defaultAccounts, DefaultEpsilon))
}

func TestValidate_TooFewLines(t *testing.T) {
	err := Validate(entry(model.DebitLine("1141", dec("10"))), defaultAccounts, DefaultEpsilon)
	var mal *apperr.MalformedLineError
	require.True(t, errors.As(err, &mal))
	assert.Equal(t, -1, mal.Line)
}

func TestValidate_UnknownAccount(t *testing.T) {
	e := entry(model.DebitLine("9999", dec("50")), model.CreditLine("1111", dec("50")))
	err := Validate(e, defaultAccounts, DefaultEpsilon)
	var unk *apperr.UnknownAccountError
	require.True(t, errors.As(err, &unk))
	assert.Equal(t, "9999", unk.AccountCode)
}

func TestValidate_MalformedLines(t *testing.T) {
	tests := []struct {
		name string
		line model.Line
	}{
		{"both sides", model.Line{AccountCode: "1141", Debit: dec("10"), Credit: dec("10")}},
		{"neither side", model.Line{AccountCode: "1141"}},
		{"negative debit", model.Line{AccountCode: "1141", Debit: dec("-10")}},
		{"negative credit with debit", model.Line{AccountCode: "1141", Debit: dec("10"), Credit: dec("-10")}},
		{"three decimals", model.Line{AccountCode: "1141", Debit: dec("10.123")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := entry(tt.line, model.CreditLine("2111", dec("10")))
			err := Validate(e, defaultAccounts, DefaultEpsilon)
			var mal *apperr.MalformedLineError
			require.True(t, errors.As(err, &mal), "got %v", err)
			assert.Equal(t, 0, mal.Line)
		})
	}
}

func TestValidate_Unbalanced(t *testing.T) {
	e := entry(model.DebitLine("1141", dec("500")), model.CreditLine("2111", dec("400")))
	err := Validate(e, defaultAccounts, DefaultEpsilon)
	var unb *apperr.UnbalancedEntryError
	require.True(t, errors.As(err, &unb))
	assert.True(t, unb.Difference().Equal(dec("100")))
}

func TestValidate_Epsilon(t *testing.T) {
	e := entry(model.DebitLine("1141", dec("100.01")), model.CreditLine("2111", dec("100.00")))
	assert.NoError(t, Validate(e, defaultAccounts, DefaultEpsilon))
	assert.Error(t, Validate(e, defaultAccounts, decimal.Zero))

	e = entry(model.DebitLine("1141", dec("100.02")), model.CreditLine("2111", dec("100.00")))
	assert.Error(t, Validate(e, defaultAccounts, DefaultEpsilon))
}

func TestValidate_RuleOrder(t *testing.T) {
	// Unknown account and unbalanced: rule 2 wins over rule 4.
	e := entry(model.DebitLine("9999", dec("500")), model.CreditLine("2111", dec("400")))
	assert.Equal(t, apperr.CodeUnknownAccount, apperr.CodeOf(Validate(e, defaultAccounts, DefaultEpsilon)))

	// Malformed line and unbalanced: rule 3 wins over rule 4.
	e = entry(model.Line{AccountCode: "1141"}, model.CreditLine("2111", dec("400")))
	assert.Equal(t, apperr.CodeMalformedLine, apperr.CodeOf(Validate(e, defaultAccounts, DefaultEpsilon)))
}

func TestValidate_ConceptAndDate(t *testing.T) {
	e := entry(model.DebitLine("1141", dec("10")), model.CreditLine("2111", dec("10")))
	e.Concept = "  "
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(Validate(e, defaultAccounts, DefaultEpsilon)))

	e.Concept = "ok"
	e.Date = time.Time{}
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(Validate(e, defaultAccounts, DefaultEpsilon)))
}
