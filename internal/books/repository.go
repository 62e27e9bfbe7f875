package books

import (
	"context"
	"time"

	"github.com/cuadra-dev/cuadra/internal/model"
)

// EntryRepository stores the journal. LoadPostedEntries returns the whole
// posting log (posted and voided entries) in insertion order.
type EntryRepository interface {
	LoadPostedEntries(ctx context.Context, tenant model.Tenant) ([]model.JournalEntry, error)
	Append(ctx context.Context, tenant model.Tenant, entry model.JournalEntry) (string, error)
	MarkVoided(ctx context.Context, tenant model.Tenant, entryID string, at time.Time) error
}

// AccountRepository stores the chart of accounts.
type AccountRepository interface {
	LoadAccounts(ctx context.Context, tenant model.Tenant) ([]model.Account, error)
	SaveAccount(ctx context.Context, tenant model.Tenant, account model.Account) error
}

// InventoryRepository stores items and the kardex. A nil itemID loads every
// item's movements. CommitMovement saves a movement and the item state it
// produced as one unit.
type InventoryRepository interface {
	LoadItems(ctx context.Context, tenant model.Tenant) ([]model.InventoryItem, error)
	LoadMovements(ctx context.Context, tenant model.Tenant, itemID *string) ([]model.Movement, error)
	SaveMovement(ctx context.Context, tenant model.Tenant, m model.Movement) error
	SaveItemState(ctx context.Context, tenant model.Tenant, item model.InventoryItem) error
	CommitMovement(ctx context.Context, tenant model.Tenant, m model.Movement, item model.InventoryItem) error
}

// Repositories bundles the collaborators a Books session needs.
type Repositories struct {
	Entries   EntryRepository
	Accounts  AccountRepository
	Inventory InventoryRepository
}
