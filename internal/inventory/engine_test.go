package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// memRepo records what the engine persists. failSave fails the whole
// commit; failItem fails it on the item snapshot.
type memRepo struct {
	mu        sync.Mutex
	movements []model.Movement
	items     map[string]model.InventoryItem
	failSave  error
	failItem  error
	commitCtx context.Context
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[string]model.InventoryItem)}
}

func (r *memRepo) SaveItemState(_ context.Context, _ model.Tenant, item model.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return nil
}

func (r *memRepo) CommitMovement(ctx context.Context, _ model.Tenant, m model.Movement, item model.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitCtx = ctx
	if r.failSave != nil {
		return r.failSave
	}
	if r.failItem != nil {
		return r.failItem
	}
	r.movements = append(r.movements, m)
	r.items[item.ID] = item
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var today = time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *memRepo, string) {
	t.Helper()
	repo := newMemRepo()
	e := NewEngine(model.DefaultTenant, repo)
	item, err := e.RegisterItem(context.Background(), "ARROZ-50", "Arroz grano de oro 50kg")
	require.NoError(t, err)
	return e, repo, item.ID
}

func TestWeightedAverageRoundTrip(t *testing.T) {
	e, _, itemID := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ApplyEntry(ctx, itemID, dec("10"), dec("100"), today, "F-1")
	require.NoError(t, err)
	m, err := e.ApplyEntry(ctx, itemID, dec("10"), dec("200"), today, "F-2")
	require.NoError(t, err)
	assert.True(t, m.ResultingAverageCost.Equal(dec("150")))
	assert.True(t, m.QuantityBefore.Equal(dec("10")))
	assert.True(t, m.QuantityAfter.Equal(dec("20")))

	res, err := e.ApplyExit(ctx, itemID, dec("5"), today, "V-1")
	require.NoError(t, err)
	assert.True(t, res.CostBasis.Equal(dec("750")))
	assert.True(t, res.Movement.UnitCost.Equal(dec("150")))

	item, err := e.Item(itemID)
	require.NoError(t, err)
	assert.True(t, item.QuantityOnHand.Equal(dec("15")))
	assert.True(t, item.AverageUnitCost.Equal(dec("150")))
	assert.True(t, item.Valuation().Equal(dec("2250")))
}

func TestAverageIsNotRoundedMidComputation(t *testing.T) {
	e, _, itemID := newTestEngine(t)
	ctx := context.Background()

	_, err := e.ApplyEntry(ctx, itemID, dec("3"), dec("10"), today, "")
	require.NoError(t, err)
	_, err = e.ApplyEntry(ctx, itemID, dec("3"), dec("10.01"), today, "")
	require.NoError(t, err)
	_, err = e.ApplyEntry(ctx, itemID, dec("1"), dec("0"), today, "")
	require.NoError(t, err)

	item, err := e.Item(itemID)
	require.NoError(t, err)
	// (30 + 30.03) / 7 = 8.5757142857...
	assert.True(t, item.AverageUnitCost.GreaterThan(dec("8.5757")))
	assert.True(t, item.AverageUnitCost.LessThan(dec("8.5758")))

	res, err := e.ApplyExit(ctx, itemID, dec("7"), today, "")
	require.NoError(t, err)
	assert.True(t, res.CostBasis.Equal(dec("60.03")))
}

func TestExitOnEmptyStock(t *testing.T) {
	e, repo, itemID := newTestEngine(t)

	_, err := e.ApplyExit(context.Background(), itemID, dec("5"), today, "")
	var ins *apperr.InsufficientStockError
	require.True(t, errors.As(err, &ins))
	assert.True(t, ins.Available.IsZero())
	assert.True(t, apperr.IsRecoverable(err))

	assert.Empty(t, repo.movements)
	assert.Empty(t, e.Movements(nil))
}

func TestAdjustments(t *testing.T) {
	e, _, itemID := newTestEngine(t)
	ctx := context.Background()
	_, err := e.ApplyEntry(ctx, itemID, dec("10"), dec("20"), today, "")
	require.NoError(t, err)

	up, err := e.ApplyAdjustment(ctx, itemID, dec("2"), "sobrante en conteo", today)
	require.NoError(t, err)
	assert.Equal(t, model.MovementAdjustment, up.Movement.Type)
	assert.True(t, up.Movement.UnitCost.Equal(dec("20")))
	assert.True(t, up.Movement.ResultingAverageCost.Equal(dec("20")))
	assert.True(t, up.Value.Equal(dec("40")))

	down, err := e.ApplyAdjustment(ctx, itemID, dec("-4"), "merma", today)
	require.NoError(t, err)
	assert.True(t, down.Movement.Quantity.Equal(dec("4")))
	assert.True(t, down.Movement.QuantityAfter.Equal(dec("8")))
	assert.False(t, down.Movement.Increases())

	_, err = e.ApplyAdjustment(ctx, itemID, dec("-9"), "merma", today)
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))

	_, err = e.ApplyAdjustment(ctx, itemID, decimal.Zero, "nada", today)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

func TestInvalidInputs(t *testing.T) {
	e, _, itemID := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		code string
	}{
		{"zero quantity", func() error { _, err := e.ApplyEntry(ctx, itemID, decimal.Zero, dec("1"), today, ""); return err }, apperr.CodeInvalidInput},
		{"negative cost", func() error { _, err := e.ApplyEntry(ctx, itemID, dec("1"), dec("-1"), today, ""); return err }, apperr.CodeInvalidInput},
		{"missing date", func() error { _, err := e.ApplyEntry(ctx, itemID, dec("1"), dec("1"), time.Time{}, ""); return err }, apperr.CodeInvalidInput},
		{"negative exit", func() error { _, err := e.ApplyExit(ctx, itemID, dec("-1"), today, ""); return err }, apperr.CodeInvalidInput},
		{"unknown item", func() error { _, err := e.ApplyEntry(ctx, "nope", dec("1"), dec("1"), today, ""); return err }, apperr.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, apperr.CodeOf(tt.run()))
		})
	}
}

func TestPersistFailureLeavesStateUnchanged(t *testing.T) {
	e, repo, itemID := newTestEngine(t)
	repo.failSave = errors.New("disk full")

	_, err := e.ApplyEntry(context.Background(), itemID, dec("1"), dec("1"), today, "")
	require.Error(t, err)

	item, err := e.Item(itemID)
	require.NoError(t, err)
	assert.True(t, item.QuantityOnHand.IsZero())
	assert.Empty(t, e.Movements(nil))
}

func TestItemSaveFailureKeepsSequence(t *testing.T) {
	e, repo, itemID := newTestEngine(t)
	ctx := context.Background()

	repo.failItem = errors.New("items.csv locked")
	_, err := e.ApplyEntry(ctx, itemID, dec("10"), dec("5"), today, "F-1")
	require.Error(t, err)
	assert.Empty(t, repo.movements)
	assert.Empty(t, e.Movements(nil))

	repo.failItem = nil
	m, err := e.ApplyEntry(ctx, itemID, dec("1"), dec("5"), today, "F-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Seq)
	assert.True(t, m.QuantityBefore.IsZero())

	_, err = Replay(repo.movements)
	assert.NoError(t, err)
}

func TestCancelledContextPersistsNothing(t *testing.T) {
	e, repo, itemID := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ApplyEntry(ctx, itemID, dec("10"), dec("5"), today, "F-1")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, repo.movements)
	assert.Nil(t, repo.commitCtx)

	m, err := e.ApplyEntry(context.Background(), itemID, dec("1"), dec("5"), today, "F-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Seq)
}

func TestCommitIsNotCancellable(t *testing.T) {
	e, repo, itemID := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := e.ApplyEntry(ctx, itemID, dec("1"), dec("5"), today, "")
	require.NoError(t, err)
	require.NotNil(t, repo.commitCtx)
	cancel()
	assert.NoError(t, repo.commitCtx.Err())
}

func TestRegisterItemDuplicate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.RegisterItem(context.Background(), "ARROZ-50", "otra")
	assert.Equal(t, apperr.CodeDuplicateCode, apperr.CodeOf(err))

	_, err = e.RegisterItem(context.Background(), " ", "vacío")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	item, err := e.ItemByCode("ARROZ-50")
	require.NoError(t, err)
	assert.Equal(t, "Arroz grano de oro 50kg", item.Name)
}

func TestConcurrentMovementsOnSameItem(t *testing.T) {
	e, repo, itemID := newTestEngine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(cost int64) {
			defer wg.Done()
			_, err := e.ApplyEntry(ctx, itemID, dec("1"), decimal.NewFromInt(cost), today, "")
			assert.NoError(t, err)
		}(int64(i%2*100 + 100))
	}
	wg.Wait()

	item, err := e.Item(itemID)
	require.NoError(t, err)
	assert.True(t, item.QuantityOnHand.Equal(dec("50")))
	assert.True(t, item.AverageUnitCost.Round(6).Equal(dec("150")))

	movs := e.Movements(&itemID)
	require.Len(t, movs, 50)
	for i, m := range movs {
		assert.Equal(t, int64(i+1), m.Seq)
		assert.True(t, m.QuantityBefore.Equal(decimal.NewFromInt(int64(i))), "movement %d saw stale quantity", i)
	}
	assert.Len(t, repo.movements, 50)
}

func TestLoadAndReplay(t *testing.T) {
	e, repo, itemID := newTestEngine(t)
	ctx := context.Background()
	_, err := e.ApplyEntry(ctx, itemID, dec("10"), dec("100"), today, "")
	require.NoError(t, err)
	_, err = e.ApplyEntry(ctx, itemID, dec("10"), dec("200"), today, "")
	require.NoError(t, err)
	_, err = e.ApplyExit(ctx, itemID, dec("5"), today, "")
	require.NoError(t, err)

	replayed, err := Replay(repo.movements)
	require.NoError(t, err)
	assert.True(t, replayed[itemID].QuantityOnHand.Equal(dec("15")))
	assert.True(t, replayed[itemID].AverageUnitCost.Equal(dec("150")))

	stored := []model.InventoryItem{repo.items[itemID]}
	drifted, err := Drift(stored, repo.movements)
	require.NoError(t, err)
	assert.Empty(t, drifted)

	stored[0].QuantityOnHand = dec("14")
	drifted, err = Drift(stored, repo.movements)
	require.NoError(t, err)
	assert.Equal(t, []string{itemID}, drifted)

	fresh := NewEngine(model.DefaultTenant, newMemRepo())
	require.NoError(t, fresh.Load([]model.InventoryItem{repo.items[itemID]}, repo.movements))
	m, err := fresh.ApplyExit(ctx, itemID, dec("1"), today, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), m.Movement.Seq)
}

func TestReplayRejectsNegativeStock(t *testing.T) {
	_, err := Replay([]model.Movement{{
		ID: "m1", Seq: 1, ItemID: "i", Type: model.MovementExit,
		Quantity: dec("1"), QuantityBefore: decimal.Zero, QuantityAfter: dec("-1"),
	}})
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
}
