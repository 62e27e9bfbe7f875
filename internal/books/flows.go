package books

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/inventory"
	"github.com/cuadra-dev/cuadra/internal/logger"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// PurchaseParams describes goods bought for resale.
type PurchaseParams struct {
	ItemID    string
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	Date      time.Time
	Reference string
	Concept   string // defaults to "Compra de <item>"
	Credit    string // account credited; defaults to the payable account
}

// PurchaseResult is the movement and entry a purchase produced.
type PurchaseResult struct {
	Movement model.Movement
	Entry    model.JournalEntry
}

// RecordPurchase receives stock and posts Dr inventory / Cr payable (or the
// given credit account) for quantity × unit cost.
func (b *Books) RecordPurchase(ctx context.Context, p PurchaseParams) (PurchaseResult, error) {
	if !p.Quantity.IsPositive() {
		return PurchaseResult{}, &apperr.InvalidInputError{Field: "quantity", Reason: "must be greater than zero"}
	}
	item, err := b.engine.Item(p.ItemID)
	if err != nil {
		return PurchaseResult{}, err
	}

	credit := orDefault(p.Credit, b.settings.Accounts.Payable)
	amount := p.Quantity.Mul(p.UnitCost).Round(model.MoneyPlaces)
	entry := draft(p.Date, orDefault(p.Concept, "Compra de "+itemLabel(item)), p.Reference,
		model.DebitLine(b.settings.Accounts.Inventory, amount),
		model.CreditLine(credit, amount),
	)
	if err := b.poster.Validate(entry); err != nil {
		return PurchaseResult{}, err
	}

	mov, err := b.engine.ApplyEntry(ctx, p.ItemID, p.Quantity, p.UnitCost, p.Date, p.Reference)
	if err != nil {
		return PurchaseResult{}, err
	}
	posted, err := b.postAfterMovement(ctx, entry, mov)
	if err != nil {
		return PurchaseResult{}, err
	}
	return PurchaseResult{Movement: mov, Entry: posted}, nil
}

// SaleParams describes goods sold.
type SaleParams struct {
	ItemID    string
	Quantity  decimal.Decimal
	Price     decimal.Decimal // total sale amount
	Date      time.Time
	Reference string
	Concept   string // defaults to "Venta de <item>"
	Debit     string // account debited; defaults to cash
}

// SaleResult is the exit and the entries a sale produced. COGS is nil when
// the goods carried no cost.
type SaleResult struct {
	Exit    inventory.ExitResult
	Revenue model.JournalEntry
	COGS    *model.JournalEntry
}

// RecordSale posts the revenue entry and the mirrored cost-of-sales entry
// (Dr COGS / Cr inventory at the exit's cost basis). Both entries are
// validated before any stock leaves.
func (b *Books) RecordSale(ctx context.Context, p SaleParams) (SaleResult, error) {
	if !p.Quantity.IsPositive() {
		return SaleResult{}, &apperr.InvalidInputError{Field: "quantity", Reason: "must be greater than zero"}
	}
	item, err := b.engine.Item(p.ItemID)
	if err != nil {
		return SaleResult{}, err
	}
	if p.Quantity.GreaterThan(item.QuantityOnHand) {
		return SaleResult{}, &apperr.InsufficientStockError{ItemID: item.ID, Requested: p.Quantity, Available: item.QuantityOnHand}
	}

	label := itemLabel(item)
	price := p.Price.Round(model.MoneyPlaces)
	revenue := draft(p.Date, orDefault(p.Concept, "Venta de "+label), p.Reference,
		model.DebitLine(orDefault(p.Debit, b.settings.Accounts.Cash), price),
		model.CreditLine(b.settings.Accounts.Sales, price),
	)
	if err := b.poster.Validate(revenue); err != nil {
		return SaleResult{}, err
	}
	cogs := b.cogsEntry(p.Date, "Costo de venta de "+label, p.Reference, p.Quantity.Mul(item.AverageUnitCost).Round(model.MoneyPlaces))
	if !cogsAmount(cogs).IsZero() {
		if err := b.poster.Validate(cogs); err != nil {
			return SaleResult{}, err
		}
	}

	exit, err := b.engine.ApplyExit(ctx, p.ItemID, p.Quantity, p.Date, p.Reference)
	if err != nil {
		return SaleResult{}, err
	}
	if !exit.CostBasis.Equal(cogsAmount(cogs)) {
		cogs = b.cogsEntry(p.Date, cogs.Concept, p.Reference, exit.CostBasis)
	}
	if p.Reference == "" {
		// Pair the two entries for the consistency check.
		revenue.Reference = "kardex:" + exit.Movement.ID
		cogs.Reference = revenue.Reference
	}

	result := SaleResult{Exit: exit}
	if result.Revenue, err = b.postAfterMovement(ctx, revenue, exit.Movement); err != nil {
		return SaleResult{}, err
	}
	if exit.CostBasis.IsPositive() {
		posted, err := b.postAfterMovement(ctx, cogs, exit.Movement)
		if err != nil {
			return SaleResult{}, err
		}
		result.COGS = &posted
	}
	return result, nil
}

// AdjustmentParams describes a physical-count correction.
type AdjustmentParams struct {
	ItemID    string
	Delta     decimal.Decimal // positive for surplus, negative for shortage
	Reason    string
	Date      time.Time
	Reference string
}

// AdjustmentResult is the movement and optional entry an adjustment produced.
type AdjustmentResult struct {
	Adjustment inventory.AdjustmentResult
	Entry      *model.JournalEntry
}

// RecordAdjustment applies the count difference at the current average and
// posts it against the surplus or shortage account when it carries value.
func (b *Books) RecordAdjustment(ctx context.Context, p AdjustmentParams) (AdjustmentResult, error) {
	if p.Delta.IsZero() {
		return AdjustmentResult{}, &apperr.InvalidInputError{Field: "delta", Reason: "must not be zero"}
	}
	if strings.TrimSpace(p.Reason) == "" {
		return AdjustmentResult{}, &apperr.InvalidInputError{Field: "reason", Reason: "must not be empty"}
	}
	item, err := b.engine.Item(p.ItemID)
	if err != nil {
		return AdjustmentResult{}, err
	}

	concept := fmt.Sprintf("Ajuste de inventario %s: %s", itemLabel(item), p.Reason)
	build := func(value decimal.Decimal) model.JournalEntry {
		if p.Delta.IsPositive() {
			return draft(p.Date, concept, p.Reference,
				model.DebitLine(b.settings.Accounts.Inventory, value),
				model.CreditLine(b.settings.Accounts.InventorySurplus, value))
		}
		return draft(p.Date, concept, p.Reference,
			model.DebitLine(b.settings.Accounts.InventoryShortage, value),
			model.CreditLine(b.settings.Accounts.Inventory, value))
	}

	expected := p.Delta.Abs().Mul(item.AverageUnitCost).Round(model.MoneyPlaces)
	if expected.IsPositive() {
		if err := b.poster.Validate(build(expected)); err != nil {
			return AdjustmentResult{}, err
		}
	}

	adj, err := b.engine.ApplyAdjustment(ctx, p.ItemID, p.Delta, p.Reason, p.Date)
	if err != nil {
		return AdjustmentResult{}, err
	}
	result := AdjustmentResult{Adjustment: adj}
	if adj.Value.IsPositive() {
		posted, err := b.postAfterMovement(ctx, build(adj.Value), adj.Movement)
		if err != nil {
			return AdjustmentResult{}, err
		}
		result.Entry = &posted
	}
	return result, nil
}

// postAfterMovement posts an entry whose stock movement is already applied.
// A failure here leaves the kardex ahead of the journal, which the
// consistency check reports as a valuation mismatch.
func (b *Books) postAfterMovement(ctx context.Context, entry model.JournalEntry, m model.Movement) (model.JournalEntry, error) {
	posted, err := b.poster.Post(ctx, entry)
	if err != nil {
		logger.Error(ctx, "movement applied but entry not posted",
			"tenant", string(b.tenant),
			"movement_id", m.ID,
			"item_id", m.ItemID,
			"error", err,
		)
		return model.JournalEntry{}, fmt.Errorf("posting entry for movement %s: %w", m.ID, err)
	}
	return posted, nil
}

func (b *Books) cogsEntry(date time.Time, concept, ref string, amount decimal.Decimal) model.JournalEntry {
	return draft(date, concept, ref,
		model.DebitLine(b.settings.Accounts.COGS, amount),
		model.CreditLine(b.settings.Accounts.Inventory, amount),
	)
}

func cogsAmount(e model.JournalEntry) decimal.Decimal {
	return e.Lines[0].Debit
}

func draft(date time.Time, concept, ref string, lines ...model.Line) model.JournalEntry {
	return model.JournalEntry{
		Date:      date,
		Concept:   concept,
		Reference: ref,
		Status:    model.StatusDraft,
		Lines:     lines,
	}
}

func itemLabel(item model.InventoryItem) string {
	if item.Name != "" {
		return item.Name
	}
	return item.Code
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
