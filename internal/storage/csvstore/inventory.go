package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/model"
)

// ItemHeader is the CSV header for items.csv.
var ItemHeader = []string{"id", "code", "name", "quantity_on_hand", "average_unit_cost"}

// MovementHeader is the CSV header for movements.csv (the kardex).
var MovementHeader = []string{"id", "seq", "item_id", "date", "type", "quantity", "unit_cost",
	"quantity_before", "quantity_after", "resulting_average_cost", "reason", "reference"}

const dateFormat = "2006-01-02"

// LoadItems reads the tenant's item snapshots.
func (s *Store) LoadItems(ctx context.Context, tenant model.Tenant) ([]model.InventoryItem, error) {
	path, err := s.path(tenant, itemsFile)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return readFile(ctx, path, ReadItems)
}

// SaveItemState inserts or replaces one item snapshot.
func (s *Store) SaveItemState(ctx context.Context, tenant model.Tenant, item model.InventoryItem) error {
	path, err := s.path(tenant, itemsFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveItem(ctx, path, item)
}

func saveItem(ctx context.Context, path string, item model.InventoryItem) error {
	items, err := readFile(ctx, path, ReadItems)
	if err != nil {
		return err
	}
	replaced := false
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			replaced = true
		}
	}
	if !replaced {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
	return rewriteFile(path, func(w io.Writer) error { return WriteItems(w, items) })
}

// LoadMovements reads the kardex, optionally for one item.
func (s *Store) LoadMovements(ctx context.Context, tenant model.Tenant, itemID *string) ([]model.Movement, error) {
	path, err := s.path(tenant, movementsFile)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := readFile(ctx, path, ReadMovements)
	if err != nil || itemID == nil {
		return all, err
	}
	var filtered []model.Movement
	for _, m := range all {
		if m.ItemID == *itemID {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// SaveMovement appends one kardex row.
func (s *Store) SaveMovement(_ context.Context, tenant model.Tenant, m model.Movement) error {
	path, err := s.path(tenant, movementsFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendMovement(path, m)
}

// CommitMovement appends a kardex row and saves the item state it produced.
// If the item cannot be saved the row is cut off again, so the kardex never
// runs ahead of items.csv.
func (s *Store) CommitMovement(ctx context.Context, tenant model.Tenant, m model.Movement, item model.InventoryItem) error {
	movPath, err := s.path(tenant, movementsFile)
	if err != nil {
		return err
	}
	itemPath, err := s.path(tenant, itemsFile)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var size int64
	if info, err := os.Stat(movPath); err == nil {
		size = info.Size()
	}
	if err := appendMovement(movPath, m); err != nil {
		return err
	}
	if err := saveItem(ctx, itemPath, item); err != nil {
		if terr := os.Truncate(movPath, size); terr != nil {
			return fmt.Errorf("%w (restoring %s: %v)", err, filepath.Base(movPath), terr)
		}
		return err
	}
	return nil
}

func appendMovement(path string, m model.Movement) error {
	return appendFile(path,
		func(w io.Writer) error { return writeRecords(w, [][]string{MovementHeader}) },
		func(w io.Writer) error { return writeRecords(w, [][]string{marshalMovement(m)}) },
	)
}

// ReadItems decodes items.csv.
func ReadItems(r io.Reader) ([]model.InventoryItem, error) {
	records, err := readRecords(r, len(ItemHeader))
	if err != nil {
		return nil, fmt.Errorf("reading items CSV: %w", err)
	}
	var items []model.InventoryItem
	for i, rec := range records {
		qty, err := decimal.NewFromString(rec[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing quantity %q: %w", i+2, rec[3], err)
		}
		avg, err := decimal.NewFromString(rec[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing average cost %q: %w", i+2, rec[4], err)
		}
		items = append(items, model.InventoryItem{ID: rec[0], Code: rec[1], Name: rec[2], QuantityOnHand: qty, AverageUnitCost: avg})
	}
	return items, nil
}

// WriteItems encodes items.csv, header included. Averages are written at
// full precision.
func WriteItems(w io.Writer, items []model.InventoryItem) error {
	records := [][]string{ItemHeader}
	for _, it := range items {
		records = append(records, []string{it.ID, it.Code, it.Name, it.QuantityOnHand.String(), it.AverageUnitCost.String()})
	}
	return writeRecords(w, records)
}

// ReadMovements decodes movements.csv.
func ReadMovements(r io.Reader) ([]model.Movement, error) {
	records, err := readRecords(r, len(MovementHeader))
	if err != nil {
		return nil, fmt.Errorf("reading movements CSV: %w", err)
	}
	var movements []model.Movement
	for i, rec := range records {
		m, err := unmarshalMovement(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}

func marshalMovement(m model.Movement) []string {
	return []string{
		m.ID,
		strconv.FormatInt(m.Seq, 10),
		m.ItemID,
		m.Date.Format(dateFormat),
		string(m.Type),
		m.Quantity.String(),
		m.UnitCost.String(),
		m.QuantityBefore.String(),
		m.QuantityAfter.String(),
		m.ResultingAverageCost.String(),
		m.Reason,
		m.Reference,
	}
}

func unmarshalMovement(rec []string) (model.Movement, error) {
	m := model.Movement{
		ID:        rec[0],
		ItemID:    rec[2],
		Type:      model.MovementType(rec[4]),
		Reason:    rec[10],
		Reference: rec[11],
	}
	var err error
	if m.Seq, err = strconv.ParseInt(rec[1], 10, 64); err != nil {
		return m, fmt.Errorf("parsing seq %q: %w", rec[1], err)
	}
	if m.Date, err = time.Parse(dateFormat, rec[3]); err != nil {
		return m, fmt.Errorf("parsing date %q: %w", rec[3], err)
	}
	fields := []struct {
		dst *decimal.Decimal
		col int
	}{
		{&m.Quantity, 5},
		{&m.UnitCost, 6},
		{&m.QuantityBefore, 7},
		{&m.QuantityAfter, 8},
		{&m.ResultingAverageCost, 9},
	}
	for _, f := range fields {
		if *f.dst, err = decimal.NewFromString(rec[f.col]); err != nil {
			return m, fmt.Errorf("parsing %s %q: %w", MovementHeader[f.col], rec[f.col], err)
		}
	}
	return m, nil
}

// readRecords reads all rows after the header.
func readRecords(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

func writeRecords(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}
