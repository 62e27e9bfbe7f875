package csvstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuadra-dev/cuadra/internal/accounts"
	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/books"
	"github.com/cuadra-dev/cuadra/internal/inventory"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// Store must satisfy every repository the books session consumes.
var (
	_ books.EntryRepository     = (*Store)(nil)
	_ books.AccountRepository   = (*Store)(nil)
	_ books.InventoryRepository = (*Store)(nil)
)

const tenant = model.Tenant("illimani")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	require.NoError(t, s.Init(tenant))
	return s
}

func TestAccounts(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	got, err := s.LoadAccounts(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SaveAccounts(ctx, tenant, accounts.DefaultChart()))
	require.NoError(t, s.SaveAccount(ctx, tenant, model.Account{Code: "1113", Name: "Caja chica", Type: model.AccountTypeAsset, Active: true}))
	require.NoError(t, s.SaveAccount(ctx, tenant, model.Account{Code: "1111", Name: "Caja general", Type: model.AccountTypeAsset, Active: false}))

	got, err = s.LoadAccounts(ctx, tenant)
	require.NoError(t, err)
	assert.Len(t, got, len(accounts.DefaultChart())+1)

	reg, err := accounts.NewRegistry(got)
	require.NoError(t, err)
	cash, err := reg.Lookup("1111")
	require.NoError(t, err)
	assert.Equal(t, "Caja general", cash.Name)
	assert.False(t, cash.Active)
}

func TestJournal(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	posted := time.Date(2025, 6, 1, 15, 4, 5, 0, time.UTC)

	for i, amt := range []string{"1000", "250.5"} {
		e := model.JournalEntry{
			ID: []string{"2025-06-001", "2025-06-002"}[i], Seq: int64(i + 1), Date: date,
			Concept: "Compra", Status: model.StatusPosted, PostedAt: posted,
			Lines: []model.Line{model.DebitLine("1141", dec(amt)), model.CreditLine("2111", dec(amt))},
		}
		id, err := s.Append(ctx, tenant, e)
		require.NoError(t, err)
		assert.Equal(t, e.ID, id)
	}

	require.NoError(t, s.MarkVoided(ctx, tenant, "2025-06-001", posted.Add(time.Hour)))
	err := s.MarkVoided(ctx, tenant, "2025-06-999", posted)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	entries, err := s.LoadPostedEntries(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.StatusVoided, entries[0].Status)
	assert.True(t, entries[0].VoidedAt.Equal(posted.Add(time.Hour)))
	assert.Equal(t, model.StatusPosted, entries[1].Status)
	require.Len(t, entries[1].Lines, 2)
	assert.True(t, entries[1].Lines[0].Debit.Equal(dec("250.5")))

	// Only one header line after appends and a rewrite.
	data, err := os.ReadFile(filepath.Join(s.TenantDir(tenant), "journal", "journal.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "entry_id,"))
}

func TestInventory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	item := model.InventoryItem{ID: "it-1", Code: "ACE", Name: "Aceite, 1L", QuantityOnHand: decimal.Zero, AverageUnitCost: decimal.Zero}
	require.NoError(t, s.SaveItemState(ctx, tenant, item))
	item.QuantityOnHand = dec("7")
	item.AverageUnitCost = dec("8.5757142857142857")
	require.NoError(t, s.SaveItemState(ctx, tenant, item))
	require.NoError(t, s.SaveItemState(ctx, tenant, model.InventoryItem{ID: "it-2", Code: "ARR", QuantityOnHand: decimal.Zero, AverageUnitCost: decimal.Zero}))

	items, err := s.LoadItems(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Aceite, 1L", items[0].Name)
	assert.True(t, items[0].AverageUnitCost.Equal(dec("8.5757142857142857")), "average must survive at full precision")

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	movs := []model.Movement{
		{ID: "m1", Seq: 1, ItemID: "it-1", Date: day, Type: model.MovementEntry, Quantity: dec("7"), UnitCost: dec("8"),
			QuantityBefore: decimal.Zero, QuantityAfter: dec("7"), ResultingAverageCost: dec("8"), Reference: "F-1"},
		{ID: "m2", Seq: 2, ItemID: "it-2", Date: day, Type: model.MovementAdjustment, Quantity: dec("1"), UnitCost: decimal.Zero,
			QuantityBefore: decimal.Zero, QuantityAfter: dec("1"), ResultingAverageCost: decimal.Zero, Reason: "conteo"},
	}
	for _, m := range movs {
		require.NoError(t, s.SaveMovement(ctx, tenant, m))
	}

	all, err := s.LoadMovements(ctx, tenant, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "F-1", all[0].Reference)
	assert.Equal(t, "conteo", all[1].Reason)
	assert.True(t, all[0].Date.Equal(day))

	id := "it-2"
	one, err := s.LoadMovements(ctx, tenant, &id)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "m2", one[0].ID)
}

func TestTenantsAreIsolated(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.SaveAccounts(ctx, "a", accounts.DefaultChart()))

	got, err := s.LoadAccounts(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.LoadAccounts(ctx, "../a")
	assert.Error(t, err)
}

func TestLoadCancelled(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.LoadPostedEntries(ctx, tenant)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBooksOverCSV(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveAccounts(ctx, tenant, accounts.DefaultChart()))
	repos := books.Repositories{Entries: s, Accounts: s, Inventory: s}

	b, err := books.Open(ctx, tenant, repos, books.DefaultSettings())
	require.NoError(t, err)
	item, err := b.RegisterItem(ctx, "ACE", "Aceite")
	require.NoError(t, err)
	day := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	_, err = b.RecordPurchase(ctx, books.PurchaseParams{ItemID: item.ID, Quantity: dec("3"), UnitCost: dec("10"), Date: day})
	require.NoError(t, err)
	_, err = b.RecordSale(ctx, books.SaleParams{ItemID: item.ID, Quantity: dec("1"), Price: dec("15"), Date: day})
	require.NoError(t, err)

	reopened, err := books.Open(ctx, tenant, repos, books.DefaultSettings())
	require.NoError(t, err)
	assert.Len(t, reopened.Entries(), 3)
	stock, err := reopened.Item(item.ID)
	require.NoError(t, err)
	assert.True(t, stock.QuantityOnHand.Equal(dec("2")))
	assert.Empty(t, reopened.Check())
}

func TestCommitMovement(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	item := model.InventoryItem{ID: "it-1", Code: "ACE", Name: "Aceite", QuantityOnHand: decimal.Zero, AverageUnitCost: decimal.Zero}
	require.NoError(t, s.SaveItemState(ctx, tenant, item))

	m := model.Movement{ID: "m1", Seq: 1, ItemID: "it-1", Date: day, Type: model.MovementEntry, Quantity: dec("4"), UnitCost: dec("9"),
		QuantityBefore: decimal.Zero, QuantityAfter: dec("4"), ResultingAverageCost: dec("9")}
	item.QuantityOnHand = dec("4")
	item.AverageUnitCost = dec("9")
	require.NoError(t, s.CommitMovement(ctx, tenant, m, item))

	items, err := s.LoadItems(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].QuantityOnHand.Equal(dec("4")))
	movs, err := s.LoadMovements(ctx, tenant, nil)
	require.NoError(t, err)
	require.Len(t, movs, 1)
}

func TestCommitMovementRollsBackRowWhenItemSaveFails(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	first := model.Movement{ID: "m1", Seq: 1, ItemID: "it-1", Date: day, Type: model.MovementEntry, Quantity: dec("4"), UnitCost: dec("9"),
		QuantityBefore: decimal.Zero, QuantityAfter: dec("4"), ResultingAverageCost: dec("9")}
	require.NoError(t, s.SaveMovement(ctx, tenant, first))
	before, err := os.ReadFile(filepath.Join(s.TenantDir(tenant), "inventory", "movements.csv"))
	require.NoError(t, err)

	itemsPath := filepath.Join(s.TenantDir(tenant), "inventory", "items.csv")
	require.NoError(t, os.WriteFile(itemsPath, []byte("id,code\nbroken\n"), 0o644))

	second := first
	second.ID, second.Seq = "m2", 2
	err = s.CommitMovement(ctx, tenant, second, model.InventoryItem{ID: "it-1", Code: "ACE"})
	require.Error(t, err)

	after, err := os.ReadFile(filepath.Join(s.TenantDir(tenant), "inventory", "movements.csv"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestCancelledPurchaseLeavesKardexReplayable(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveAccounts(ctx, tenant, accounts.DefaultChart()))
	repos := books.Repositories{Entries: s, Accounts: s, Inventory: s}

	b, err := books.Open(ctx, tenant, repos, books.DefaultSettings())
	require.NoError(t, err)
	item, err := b.RegisterItem(ctx, "ACE", "Aceite")
	require.NoError(t, err)
	day := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.RecordPurchase(cancelled, books.PurchaseParams{ItemID: item.ID, Quantity: dec("10"), UnitCost: dec("5"), Date: day})
	require.ErrorIs(t, err, context.Canceled)

	_, err = b.RecordPurchase(ctx, books.PurchaseParams{ItemID: item.ID, Quantity: dec("1"), UnitCost: dec("5"), Date: day})
	require.NoError(t, err)

	movs, err := s.LoadMovements(ctx, tenant, nil)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, int64(1), movs[0].Seq)

	items, err := s.LoadItems(ctx, tenant)
	require.NoError(t, err)
	drifted, err := inventory.Drift(items, movs)
	require.NoError(t, err)
	assert.Empty(t, drifted)

	reopened, err := books.Open(ctx, tenant, repos, books.DefaultSettings())
	require.NoError(t, err)
	stock, err := reopened.Item(item.ID)
	require.NoError(t, err)
	assert.True(t, stock.QuantityOnHand.Equal(dec("1")))
	assert.Empty(t, reopened.Check())
}
