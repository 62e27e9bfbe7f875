package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/model"
)

const (
	itemsTable     = "inventory_items"
	movementsTable = "inventory_movements"
)

type itemRow struct {
	ID              string          `db:"id"`
	Code            string          `db:"code"`
	Name            string          `db:"name"`
	QuantityOnHand  decimal.Decimal `db:"quantity_on_hand"`
	AverageUnitCost decimal.Decimal `db:"average_unit_cost"`
}

type movementRow struct {
	ID                   string          `db:"id"`
	Seq                  int64           `db:"seq"`
	ItemID               string          `db:"item_id"`
	Date                 time.Time       `db:"date"`
	Type                 string          `db:"type"`
	Quantity             decimal.Decimal `db:"quantity"`
	UnitCost             decimal.Decimal `db:"unit_cost"`
	QuantityBefore       decimal.Decimal `db:"quantity_before"`
	QuantityAfter        decimal.Decimal `db:"quantity_after"`
	ResultingAverageCost decimal.Decimal `db:"resulting_average_cost"`
	Reason               string          `db:"reason"`
	Reference            string          `db:"reference"`
}

func (r movementRow) toModel() model.Movement {
	return model.Movement{
		ID:                   r.ID,
		Seq:                  r.Seq,
		ItemID:               r.ItemID,
		Date:                 dateOnly(r.Date),
		Type:                 model.MovementType(r.Type),
		Quantity:             r.Quantity,
		UnitCost:             r.UnitCost,
		QuantityBefore:       r.QuantityBefore,
		QuantityAfter:        r.QuantityAfter,
		ResultingAverageCost: r.ResultingAverageCost,
		Reason:               r.Reason,
		Reference:            r.Reference,
	}
}

func (s *Store) loadItemsQuery(tenant model.Tenant) squirrel.SelectBuilder {
	return s.builder.
		Select("id", "code", "name", "quantity_on_hand", "average_unit_cost").
		From(itemsTable).
		Where(squirrel.Eq{"tenant": string(tenant)}).
		OrderBy("code")
}

// LoadItems returns the tenant's items ordered by code.
func (s *Store) LoadItems(ctx context.Context, tenant model.Tenant) ([]model.InventoryItem, error) {
	sql, args, err := s.loadItemsQuery(tenant).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []itemRow
	if err := pgxscan.Select(ctx, s.txm.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	out := make([]model.InventoryItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.InventoryItem{
			ID:              r.ID,
			Code:            r.Code,
			Name:            r.Name,
			QuantityOnHand:  r.QuantityOnHand,
			AverageUnitCost: r.AverageUnitCost,
		})
	}
	return out, nil
}

func (s *Store) saveItemQuery(tenant model.Tenant, item model.InventoryItem) squirrel.InsertBuilder {
	return s.builder.
		Insert(itemsTable).
		Columns("tenant", "id", "code", "name", "quantity_on_hand", "average_unit_cost").
		Values(string(tenant), item.ID, item.Code, item.Name, item.QuantityOnHand, item.AverageUnitCost).
		Suffix(`ON CONFLICT (tenant, id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			quantity_on_hand = EXCLUDED.quantity_on_hand,
			average_unit_cost = EXCLUDED.average_unit_cost`)
}

// SaveItemState upserts the item's current quantity and average.
func (s *Store) SaveItemState(ctx context.Context, tenant model.Tenant, item model.InventoryItem) error {
	sql, args, err := s.saveItemQuery(tenant, item).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.txm.Querier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("save item %s: %w", item.Code, err)
		}
		return nil
	})
}

func (s *Store) loadMovementsQuery(tenant model.Tenant, itemID *string) squirrel.SelectBuilder {
	where := squirrel.Eq{"tenant": string(tenant)}
	if itemID != nil {
		where["item_id"] = *itemID
	}
	return s.builder.
		Select("id", "seq", "item_id", "date", "type", "quantity", "unit_cost",
			"quantity_before", "quantity_after", "resulting_average_cost", "reason", "reference").
		From(movementsTable).
		Where(where).
		OrderBy("seq")
}

// LoadMovements returns kardex rows in sequence order. A nil itemID loads
// every item.
func (s *Store) LoadMovements(ctx context.Context, tenant model.Tenant, itemID *string) ([]model.Movement, error) {
	sql, args, err := s.loadMovementsQuery(tenant, itemID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []movementRow
	if err := pgxscan.Select(ctx, s.txm.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("load movements: %w", err)
	}
	out := make([]model.Movement, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Store) saveMovementQuery(tenant model.Tenant, m model.Movement) squirrel.InsertBuilder {
	return s.builder.
		Insert(movementsTable).
		Columns("tenant", "id", "seq", "item_id", "date", "type", "quantity", "unit_cost",
			"quantity_before", "quantity_after", "resulting_average_cost", "reason", "reference").
		Values(string(tenant), m.ID, m.Seq, m.ItemID, dateOnly(m.Date), string(m.Type), m.Quantity, m.UnitCost,
			m.QuantityBefore, m.QuantityAfter, m.ResultingAverageCost, m.Reason, m.Reference)
}

// SaveMovement appends one kardex row.
func (s *Store) SaveMovement(ctx context.Context, tenant model.Tenant, m model.Movement) error {
	sql, args, err := s.saveMovementQuery(tenant, m).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.txm.Querier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("save movement %s: %w", m.ID, err)
		}
		return nil
	})
}

// CommitMovement writes a kardex row and the item state it produced in one
// transaction. When ctx already carries a transaction it is reused.
func (s *Store) CommitMovement(ctx context.Context, tenant model.Tenant, m model.Movement, item model.InventoryItem) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.SaveMovement(ctx, tenant, m); err != nil {
			return err
		}
		return s.SaveItemState(ctx, tenant, item)
	})
}
