// Package books is one tenant's session over its ledger and inventory. It
// loads state through the repository interfaces, wires the account registry,
// journal poster and cost engine together, and runs the flows that touch
// more than one of them.
package books

import (
	"context"
	"fmt"
	"time"

	"github.com/cuadra-dev/cuadra/internal/accounts"
	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/consistency"
	"github.com/cuadra-dev/cuadra/internal/inventory"
	"github.com/cuadra-dev/cuadra/internal/journal"
	"github.com/cuadra-dev/cuadra/internal/ledger"
	"github.com/cuadra-dev/cuadra/internal/logger"
	"github.com/cuadra-dev/cuadra/internal/model"
	"github.com/cuadra-dev/cuadra/internal/trialbalance"
)

// Books is an open tenant session.
type Books struct {
	tenant   model.Tenant
	settings Settings
	repos    Repositories

	accounts *accounts.Registry
	poster   *journal.Poster
	engine   *inventory.Engine
}

// Open loads the tenant's chart, journal and inventory. The load honours
// ctx cancellation between repository calls.
func Open(ctx context.Context, tenant model.Tenant, repos Repositories, settings Settings) (*Books, error) {
	if settings.Clock == nil {
		settings.Clock = time.Now
	}

	accts, err := repos.Accounts.LoadAccounts(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	registry, err := accounts.NewRegistry(accts)
	if err != nil {
		return nil, fmt.Errorf("building chart of accounts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := repos.Entries.LoadPostedEntries(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("loading journal: %w", err)
	}
	poster := journal.NewPoster(tenant, registry, repos.Entries,
		journal.WithEpsilon(settings.Epsilon),
		journal.WithClock(settings.Clock),
	)
	if err := poster.Load(entries); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := repos.Inventory.LoadItems(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	movements, err := repos.Inventory.LoadMovements(ctx, tenant, nil)
	if err != nil {
		return nil, fmt.Errorf("loading movements: %w", err)
	}
	if drifted, err := inventory.Drift(items, movements); err != nil {
		logger.Warn(ctx, "kardex does not replay", "tenant", string(tenant), "error", err)
	} else if len(drifted) > 0 {
		logger.Warn(ctx, "item state differs from kardex", "tenant", string(tenant), "items", drifted)
	}
	engine := inventory.NewEngine(tenant, repos.Inventory)
	if err := engine.Load(items, movements); err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}

	logger.Debug(ctx, "books opened",
		"tenant", string(tenant),
		"accounts", len(accts),
		"entries", len(entries),
		"items", len(items),
	)
	return &Books{
		tenant:   tenant,
		settings: settings,
		repos:    repos,
		accounts: registry,
		poster:   poster,
		engine:   engine,
	}, nil
}

// Tenant returns the tenant this session belongs to.
func (b *Books) Tenant() model.Tenant { return b.tenant }

// Settings returns the session settings.
func (b *Books) Settings() Settings { return b.settings }

// Account looks up one account.
func (b *Books) Account(code string) (model.Account, error) { return b.accounts.Lookup(code) }

// AccountsByType returns the accounts of one type sorted by code. An empty
// type returns the whole chart.
func (b *Books) AccountsByType(t model.AccountType) []model.Account {
	if t == "" {
		return b.accounts.All()
	}
	return b.accounts.ByType(t)
}

// DeactivateAccount marks an account inactive and persists it. Posted lines
// keep referencing it; new postings to it are rejected.
func (b *Books) DeactivateAccount(ctx context.Context, code string) (model.Account, error) {
	a, err := b.accounts.Lookup(code)
	if err != nil {
		return model.Account{}, err
	}
	if !a.Active {
		return model.Account{}, &apperr.InvalidStateError{Entity: "account", ID: code, State: "inactive", Action: "deactivate"}
	}
	a.Active = false
	if err := b.repos.Accounts.SaveAccount(ctx, b.tenant, a); err != nil {
		return model.Account{}, fmt.Errorf("saving account %s: %w", code, err)
	}
	if err := b.accounts.Deactivate(code); err != nil {
		return model.Account{}, err
	}
	logger.Info(ctx, "account deactivated", "tenant", string(b.tenant), "account_code", code)
	return a, nil
}

// AddAccount persists and registers a new account.
func (b *Books) AddAccount(ctx context.Context, a model.Account) error {
	if err := b.accounts.CanRegister(a); err != nil {
		return err
	}
	if err := b.repos.Accounts.SaveAccount(ctx, b.tenant, a); err != nil {
		return fmt.Errorf("saving account %s: %w", a.Code, err)
	}
	return b.accounts.Register(a)
}

// Post validates and posts a manual entry.
func (b *Books) Post(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error) {
	return b.poster.Post(ctx, entry)
}

// Void voids a posted entry.
func (b *Books) Void(ctx context.Context, entryID string) (model.JournalEntry, error) {
	return b.poster.Void(ctx, entryID)
}

// Reverse posts the compensating entry for entryID.
func (b *Books) Reverse(ctx context.Context, entryID string, date time.Time, concept string) (model.JournalEntry, error) {
	return b.poster.Reverse(ctx, entryID, date, concept)
}

// Entry returns one entry from the log.
func (b *Books) Entry(entryID string) (model.JournalEntry, error) { return b.poster.Get(entryID) }

// Validate checks a draft entry without posting it.
func (b *Books) Validate(entry model.JournalEntry) error { return b.poster.Validate(entry) }

// Entries returns a snapshot of the whole log, voided entries included.
func (b *Books) Entries() []model.JournalEntry { return b.poster.Entries() }

// Journal returns the posted entries of a period in (date, insertion) order.
func (b *Books) Journal(period ledger.Period) []model.JournalEntry {
	return ledger.JournalForPeriod(b.poster.Entries(), period)
}

// Ledger returns the ledger of code for a period.
func (b *Books) Ledger(code string, period ledger.Period) (ledger.Ledger, error) {
	return ledger.AccountLedgerForPeriod(b.poster.Entries(), b.accounts, code, period)
}

// TrialBalance computes the trial balance as of a date (zero for all).
func (b *Books) TrialBalance(ctx context.Context, asOf time.Time) (trialbalance.Report, error) {
	return trialbalance.Calculate(ctx, b.poster.Entries(), b.accounts, trialbalance.Options{
		AsOf:    asOf,
		Epsilon: b.poster.Epsilon(),
	})
}

// Check runs the consistency checks over a snapshot of journal and stock.
func (b *Books) Check() consistency.Issues {
	return consistency.Check(consistency.Input{
		Entries: b.poster.Entries(),
		Chart:   b.accounts,
		Items:   b.engine.Items(),
	}, b.settings.Rules)
}

// RegisterItem adds an inventory item.
func (b *Books) RegisterItem(ctx context.Context, code, name string) (model.InventoryItem, error) {
	return b.engine.RegisterItem(ctx, code, name)
}

// Item returns an item by ID.
func (b *Books) Item(itemID string) (model.InventoryItem, error) { return b.engine.Item(itemID) }

// ItemByCode returns an item by code.
func (b *Books) ItemByCode(code string) (model.InventoryItem, error) { return b.engine.ItemByCode(code) }

// Items returns every item sorted by code.
func (b *Books) Items() []model.InventoryItem { return b.engine.Items() }

// Movements returns the kardex, optionally for one item.
func (b *Books) Movements(itemID *string) []model.Movement { return b.engine.Movements(itemID) }
