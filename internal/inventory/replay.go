package inventory

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/model"
)

// Replay folds a kardex from empty stock and returns the resulting quantity
// and average per item ID. Each movement is re-applied with the engine's
// rules; a movement whose recorded before/after quantities disagree with the
// fold, or that would drive stock negative, is an error.
func Replay(movements []model.Movement) (map[string]model.InventoryItem, error) {
	ordered := append([]model.Movement(nil), movements...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	state := make(map[string]model.InventoryItem)
	for _, m := range ordered {
		item, ok := state[m.ItemID]
		if !ok {
			item = model.InventoryItem{ID: m.ItemID, QuantityOnHand: decimal.Zero, AverageUnitCost: decimal.Zero}
		}
		if !m.QuantityBefore.Equal(item.QuantityOnHand) {
			return nil, fmt.Errorf("movement %s: recorded quantity before %s, replayed %s", m.ID, m.QuantityBefore, item.QuantityOnHand)
		}

		var next model.Movement
		var err error
		if m.Type == model.MovementEntry || (m.Type == model.MovementAdjustment && m.Increases()) {
			next = entryMovement(item, m.Type, m.Quantity, m.UnitCost)
		} else {
			next, err = exitMovement(item, m.Type, m.Quantity)
			if err != nil {
				return nil, fmt.Errorf("movement %s: %w", m.ID, err)
			}
		}
		if !next.QuantityAfter.Equal(m.QuantityAfter) {
			return nil, fmt.Errorf("movement %s: recorded quantity after %s, replayed %s", m.ID, m.QuantityAfter, next.QuantityAfter)
		}

		item.QuantityOnHand = next.QuantityAfter
		item.AverageUnitCost = next.ResultingAverageCost
		state[m.ItemID] = item
	}
	return state, nil
}

// Drift compares stored item snapshots with the replayed kardex and returns
// the IDs whose quantity or average disagree, sorted.
func Drift(items []model.InventoryItem, movements []model.Movement) ([]string, error) {
	replayed, err := Replay(movements)
	if err != nil {
		return nil, err
	}
	var drifted []string
	for _, it := range items {
		want, ok := replayed[it.ID]
		if !ok {
			if !it.QuantityOnHand.IsZero() {
				drifted = append(drifted, it.ID)
			}
			continue
		}
		if !want.QuantityOnHand.Equal(it.QuantityOnHand) || !want.AverageUnitCost.Equal(it.AverageUnitCost) {
			drifted = append(drifted, it.ID)
		}
	}
	sort.Strings(drifted)
	return drifted, nil
}
