// Package inventory keeps per-item stock and weighted-average cost.
//
// Every stock change is a Movement appended to the kardex; item state is the
// fold of its movements. The engine never posts journal entries: exits
// report the cost basis and the caller posts the cost-of-sales entry.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/id"
	"github.com/cuadra-dev/cuadra/internal/logger"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// Repository persists kardex rows and item snapshots. CommitMovement must
// store the movement and the item state it produced together or not at all.
type Repository interface {
	SaveItemState(ctx context.Context, tenant model.Tenant, item model.InventoryItem) error
	CommitMovement(ctx context.Context, tenant model.Tenant, m model.Movement, item model.InventoryItem) error
}

// ExitResult is the outcome of a stock exit.
type ExitResult struct {
	Movement  model.Movement
	CostBasis decimal.Decimal // quantity × average, rounded for posting
}

// AdjustmentResult is the outcome of a physical-count adjustment.
type AdjustmentResult struct {
	Movement model.Movement
	Value    decimal.Decimal // |delta| × average, rounded for posting
}

type itemSlot struct {
	mu   sync.Mutex
	item model.InventoryItem
}

// Engine applies movements for one tenant. Changes to the same item are
// serialized by a per-item lock; different items proceed in parallel.
type Engine struct {
	tenant model.Tenant
	repo   Repository

	mu     sync.RWMutex // guards slots and byCode
	slots  map[string]*itemSlot
	byCode map[string]string

	logMu     sync.Mutex // guards movements and lastSeq
	movements []model.Movement
	lastSeq   int64
}

// NewEngine creates an engine with no items. Use Load to hydrate it.
func NewEngine(tenant model.Tenant, repo Repository) *Engine {
	return &Engine{
		tenant: tenant,
		repo:   repo,
		slots:  make(map[string]*itemSlot),
		byCode: make(map[string]string),
	}
}

// Load replaces the engine state with persisted items and movements.
func (e *Engine) Load(items []model.InventoryItem, movements []model.Movement) error {
	slots := make(map[string]*itemSlot, len(items))
	byCode := make(map[string]string, len(items))
	for _, it := range items {
		if _, dup := slots[it.ID]; dup {
			return &apperr.DuplicateCodeError{Entity: "item id", Value: it.ID}
		}
		if _, dup := byCode[it.Code]; dup {
			return &apperr.DuplicateCodeError{Entity: "item", Value: it.Code}
		}
		slots[it.ID] = &itemSlot{item: it}
		byCode[it.Code] = it.ID
	}

	kardex := append([]model.Movement(nil), movements...)
	sort.SliceStable(kardex, func(i, j int) bool { return kardex[i].Seq < kardex[j].Seq })

	e.mu.Lock()
	e.slots, e.byCode = slots, byCode
	e.mu.Unlock()

	e.logMu.Lock()
	defer e.logMu.Unlock()
	e.movements = kardex
	e.lastSeq = 0
	if n := len(kardex); n > 0 {
		e.lastSeq = kardex[n-1].Seq
	}
	return nil
}

// RegisterItem creates an empty item. Codes are unique per tenant.
func (e *Engine) RegisterItem(ctx context.Context, code, name string) (model.InventoryItem, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.InventoryItem{}, &apperr.InvalidInputError{Field: "code", Reason: "must not be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.byCode[code]; dup {
		return model.InventoryItem{}, &apperr.DuplicateCodeError{Entity: "item", Value: code}
	}

	item := model.InventoryItem{
		ID:              id.NewItemID(),
		Code:            code,
		Name:            strings.TrimSpace(name),
		QuantityOnHand:  decimal.Zero,
		AverageUnitCost: decimal.Zero,
	}
	if err := e.repo.SaveItemState(ctx, e.tenant, item); err != nil {
		return model.InventoryItem{}, fmt.Errorf("saving item %s: %w", code, err)
	}
	e.slots[item.ID] = &itemSlot{item: item}
	e.byCode[code] = item.ID

	logger.Info(ctx, "item registered", "item_id", item.ID, "code", code)
	return item, nil
}

// Item returns the current state of an item.
func (e *Engine) Item(itemID string) (model.InventoryItem, error) {
	slot, err := e.slot(itemID)
	if err != nil {
		return model.InventoryItem{}, err
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.item, nil
}

// ItemByCode returns the current state of the item with code.
func (e *Engine) ItemByCode(code string) (model.InventoryItem, error) {
	e.mu.RLock()
	itemID, ok := e.byCode[code]
	e.mu.RUnlock()
	if !ok {
		return model.InventoryItem{}, &apperr.NotFoundError{Entity: "item", ID: code}
	}
	return e.Item(itemID)
}

// Items returns every item sorted by code.
func (e *Engine) Items() []model.InventoryItem {
	e.mu.RLock()
	slots := make([]*itemSlot, 0, len(e.slots))
	for _, s := range e.slots {
		slots = append(slots, s)
	}
	e.mu.RUnlock()

	items := make([]model.InventoryItem, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		items = append(items, s.item)
		s.mu.Unlock()
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
	return items
}

// Movements returns the kardex in application order, optionally for one item.
func (e *Engine) Movements(itemID *string) []model.Movement {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	var result []model.Movement
	for _, m := range e.movements {
		if itemID == nil || m.ItemID == *itemID {
			result = append(result, m)
		}
	}
	return result
}

// ApplyEntry receives quantity units at unitCost and recomputes the average:
// newAvg = (qty·avg + quantity·unitCost) / (qty + quantity).
func (e *Engine) ApplyEntry(ctx context.Context, itemID string, quantity, unitCost decimal.Decimal, date time.Time, reference string) (model.Movement, error) {
	if err := checkQuantity(quantity); err != nil {
		return model.Movement{}, err
	}
	if unitCost.IsNegative() {
		return model.Movement{}, &apperr.InvalidInputError{Field: "unit_cost", Reason: "must not be negative"}
	}
	return e.apply(ctx, itemID, func(item model.InventoryItem) (model.Movement, error) {
		return entryMovement(item, model.MovementEntry, quantity, unitCost), nil
	}, date, "", reference)
}

// ApplyExit removes quantity units at the current average. The average does
// not change. Exiting more than is on hand fails with InsufficientStockError.
func (e *Engine) ApplyExit(ctx context.Context, itemID string, quantity decimal.Decimal, date time.Time, reference string) (ExitResult, error) {
	if err := checkQuantity(quantity); err != nil {
		return ExitResult{}, err
	}
	m, err := e.apply(ctx, itemID, func(item model.InventoryItem) (model.Movement, error) {
		return exitMovement(item, model.MovementExit, quantity)
	}, date, "", reference)
	if err != nil {
		return ExitResult{}, err
	}
	return ExitResult{Movement: m, CostBasis: m.Value()}, nil
}

// ApplyAdjustment applies a physical-count difference. A positive delta is
// received at the current average; a negative one follows the exit rule.
func (e *Engine) ApplyAdjustment(ctx context.Context, itemID string, delta decimal.Decimal, reason string, date time.Time) (AdjustmentResult, error) {
	if delta.IsZero() {
		return AdjustmentResult{}, &apperr.InvalidInputError{Field: "delta", Reason: "must not be zero"}
	}
	m, err := e.apply(ctx, itemID, func(item model.InventoryItem) (model.Movement, error) {
		if delta.IsPositive() {
			return entryMovement(item, model.MovementAdjustment, delta, item.AverageUnitCost), nil
		}
		return exitMovement(item, model.MovementAdjustment, delta.Neg())
	}, date, reason, "")
	if err != nil {
		return AdjustmentResult{}, err
	}
	return AdjustmentResult{Movement: m, Value: m.Value()}, nil
}

// apply runs one read-modify-write under the item lock. The movement and the
// new item state are committed together before memory changes; once the
// commit starts it is not cancellable.
func (e *Engine) apply(ctx context.Context, itemID string, build func(model.InventoryItem) (model.Movement, error), date time.Time, reason, reference string) (model.Movement, error) {
	if date.IsZero() {
		return model.Movement{}, &apperr.InvalidInputError{Field: "date", Reason: "is required"}
	}
	slot, err := e.slot(itemID)
	if err != nil {
		return model.Movement{}, err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	m, err := build(slot.item)
	if err != nil {
		return model.Movement{}, err
	}
	m.ID = id.NewMovementID()
	m.ItemID = itemID
	m.Date = date
	m.Reason = reason
	m.Reference = reference

	next := slot.item
	next.QuantityOnHand = m.QuantityAfter
	next.AverageUnitCost = m.ResultingAverageCost

	e.logMu.Lock()
	defer e.logMu.Unlock()
	m.Seq = e.lastSeq + 1

	if err := ctx.Err(); err != nil {
		return model.Movement{}, err
	}
	if err := e.repo.CommitMovement(context.WithoutCancel(ctx), e.tenant, m, next); err != nil {
		return model.Movement{}, fmt.Errorf("saving movement for item %s: %w", itemID, err)
	}

	e.lastSeq = m.Seq
	e.movements = append(e.movements, m)
	slot.item = next

	logger.Info(ctx, "inventory movement applied",
		"item_id", itemID,
		"type", string(m.Type),
		"quantity", m.Quantity.String(),
		"quantity_after", m.QuantityAfter.String(),
		"average_cost", m.ResultingAverageCost.String(),
	)
	return m, nil
}

func (e *Engine) slot(itemID string) (*itemSlot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.slots[itemID]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "item", ID: itemID}
	}
	return s, nil
}

func checkQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return &apperr.InvalidInputError{Field: "quantity", Reason: "must be greater than zero"}
	}
	return nil
}

func entryMovement(item model.InventoryItem, typ model.MovementType, quantity, unitCost decimal.Decimal) model.Movement {
	newQty := item.QuantityOnHand.Add(quantity)
	total := item.QuantityOnHand.Mul(item.AverageUnitCost).Add(quantity.Mul(unitCost))
	return model.Movement{
		Type:                 typ,
		Quantity:             quantity,
		UnitCost:             unitCost,
		QuantityBefore:       item.QuantityOnHand,
		QuantityAfter:        newQty,
		ResultingAverageCost: total.Div(newQty),
	}
}

func exitMovement(item model.InventoryItem, typ model.MovementType, quantity decimal.Decimal) (model.Movement, error) {
	if quantity.GreaterThan(item.QuantityOnHand) {
		return model.Movement{}, &apperr.InsufficientStockError{
			ItemID:    item.ID,
			Requested: quantity,
			Available: item.QuantityOnHand,
		}
	}
	return model.Movement{
		Type:                 typ,
		Quantity:             quantity,
		UnitCost:             item.AverageUnitCost,
		QuantityBefore:       item.QuantityOnHand,
		QuantityAfter:        item.QuantityOnHand.Sub(quantity),
		ResultingAverageCost: item.AverageUnitCost,
	}, nil
}
