package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccountTypeNature(t *testing.T) {
	tests := []struct {
		typ  AccountType
		want Nature
	}{
		{AccountTypeAsset, NatureDebit},
		{AccountTypeExpense, NatureDebit},
		{AccountTypeLiability, NatureCredit},
		{AccountTypeEquity, NatureCredit},
		{AccountTypeRevenue, NatureCredit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.Nature(), "Nature(%s)", tt.typ)
		assert.True(t, tt.typ.Valid())
	}
	assert.False(t, AccountType("income").Valid())
}

func TestIsDescendantCode(t *testing.T) {
	tests := []struct {
		code, parent string
		want         bool
	}{
		{"1141", "11", true},
		{"1141", "1", true},
		{"11", "11", false},
		{"2111", "11", false},
		{"1", "11", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDescendantCode(tt.code, tt.parent), "IsDescendantCode(%q, %q)", tt.code, tt.parent)
	}
	assert.True(t, CoversCode("11", "11"))
}

func TestEntryTotalsAndOrder(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	e := JournalEntry{
		Date: day,
		Seq:  2,
		Lines: []Line{
			DebitLine("1141", decimal.RequireFromString("1000")),
			CreditLine("2111", decimal.RequireFromString("600")),
			CreditLine("1111", decimal.RequireFromString("400")),
		},
	}
	d, c := e.Totals()
	assert.True(t, d.Equal(decimal.NewFromInt(1000)))
	assert.True(t, c.Equal(decimal.NewFromInt(1000)))
	assert.True(t, e.Touches("11"))
	assert.False(t, e.Touches("5"))

	earlier := JournalEntry{Date: day, Seq: 1}
	assert.True(t, earlier.Before(e))
	assert.False(t, e.Before(earlier))
	assert.True(t, JournalEntry{Date: day.AddDate(0, 0, -1), Seq: 9}.Before(earlier))

	clone := e.Clone()
	clone.Lines[0].AccountCode = "9999"
	assert.Equal(t, "1141", e.Lines[0].AccountCode)
}

func TestItemValuationRounds(t *testing.T) {
	item := InventoryItem{
		QuantityOnHand:  decimal.NewFromInt(3),
		AverageUnitCost: decimal.NewFromInt(10).Div(decimal.NewFromInt(3)),
	}
	assert.True(t, item.Valuation().Equal(decimal.NewFromInt(10)), "got %s", item.Valuation())
}
