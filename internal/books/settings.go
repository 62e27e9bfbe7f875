package books

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/accounts"
	"github.com/cuadra-dev/cuadra/internal/config"
	"github.com/cuadra-dev/cuadra/internal/consistency"
	"github.com/cuadra-dev/cuadra/internal/journal"
)

// AccountMap names the chart codes the flows post to.
type AccountMap struct {
	Inventory         string
	COGS              string
	Payable           string
	Cash              string
	Receivable        string
	Sales             string
	InventorySurplus  string
	InventoryShortage string
	DirectExpense     []string
}

// Settings tunes a Books session.
type Settings struct {
	Epsilon  decimal.Decimal
	Accounts AccountMap
	Rules    consistency.Rules
	Clock    func() time.Time
}

// DefaultSettings matches the default chart of accounts.
func DefaultSettings() Settings {
	return Settings{
		Epsilon: journal.DefaultEpsilon,
		Accounts: AccountMap{
			Inventory:         accounts.CodeInventory,
			COGS:              accounts.CodeCOGS,
			Payable:           accounts.CodePayables,
			Cash:              accounts.CodeCash,
			Receivable:        accounts.CodeReceivables,
			Sales:             accounts.CodeSales,
			InventorySurplus:  accounts.CodeInventorySurplus,
			InventoryShortage: accounts.CodeInventoryShortage,
			DirectExpense:     []string{accounts.CodeDirectPurchases},
		},
		Rules: consistency.DefaultRules(),
		Clock: time.Now,
	}
}

// SettingsFromConfig builds Settings from cuadra.yaml.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	purchase, err := regexp.Compile(cfg.Consistency.PurchasePattern)
	if err != nil {
		return Settings{}, fmt.Errorf("compiling purchase pattern: %w", err)
	}
	sale, err := regexp.Compile(cfg.Consistency.SalePattern)
	if err != nil {
		return Settings{}, fmt.Errorf("compiling sale pattern: %w", err)
	}

	a := cfg.Accounts
	return Settings{
		Epsilon: cfg.Posting.Epsilon,
		Accounts: AccountMap{
			Inventory:         a.Inventory,
			COGS:              a.COGS,
			Payable:           a.Payable,
			Cash:              a.Cash,
			Receivable:        a.Receivable,
			Sales:             a.Sales,
			InventorySurplus:  a.InventorySurplus,
			InventoryShortage: a.InventoryShortage,
			DirectExpense:     a.DirectExpense,
		},
		Rules: consistency.Rules{
			InventoryAccounts:     []string{a.Inventory},
			DirectExpenseAccounts: a.DirectExpense,
			COGSAccounts:          []string{a.COGS},
			PurchasePattern:       purchase,
			SalePattern:           sale,
			Tolerance:             cfg.Consistency.Tolerance,
		},
		Clock: time.Now,
	}, nil
}
