package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places used for posted amounts.
const MoneyPlaces = 2

// InventoryItem is a stocked product with its weighted-average cost.
type InventoryItem struct {
	ID              string
	Code            string
	Name            string
	QuantityOnHand  decimal.Decimal
	AverageUnitCost decimal.Decimal // unrounded
}

// Valuation returns quantity × average cost rounded to MoneyPlaces.
func (i InventoryItem) Valuation() decimal.Decimal {
	return i.QuantityOnHand.Mul(i.AverageUnitCost).Round(MoneyPlaces)
}

// MovementType classifies a stock change.
type MovementType string

const (
	MovementEntry      MovementType = "entry"
	MovementExit       MovementType = "exit"
	MovementAdjustment MovementType = "adjustment"
)

// Movement is one row of the kardex. Movements are append-only.
type Movement struct {
	ID                   string
	Seq                  int64
	ItemID               string
	Date                 time.Time
	Type                 MovementType
	Quantity             decimal.Decimal // always > 0; direction comes from Type or the before/after pair
	UnitCost             decimal.Decimal
	QuantityBefore       decimal.Decimal
	QuantityAfter        decimal.Decimal
	ResultingAverageCost decimal.Decimal
	Reason               string
	Reference            string
}

// Value returns quantity × unit cost rounded to MoneyPlaces.
func (m Movement) Value() decimal.Decimal {
	return m.Quantity.Mul(m.UnitCost).Round(MoneyPlaces)
}

// Increases reports whether the movement added stock.
func (m Movement) Increases() bool {
	return m.QuantityAfter.GreaterThan(m.QuantityBefore)
}
