// Package consistency cross-checks the journal against inventory state.
// Findings are reported as Issues; nothing here returns an error for a
// business-process problem or mutates the books.
package consistency

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/ledger"
	"github.com/cuadra-dev/cuadra/internal/model"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue codes.
const (
	CodeNegativeInventory  = "NEGATIVE_INVENTORY"
	CodePurchaseExpensed   = "PURCHASE_EXPENSED"
	CodeSaleWithoutCOGS    = "SALE_WITHOUT_COGS"
	CodeValuationMismatch  = "VALUATION_MISMATCH"
	CodeValuationDrift     = "VALUATION_DRIFT"
	CodeUnknownRuleAccount = "UNKNOWN_RULE_ACCOUNT"
)

// Issue is one finding.
type Issue struct {
	Severity    Severity
	Code        string
	Description string
	AccountCode string
	EntryID     string
	Amount      decimal.NullDecimal
}

// Issues is the result of a Check.
type Issues []Issue

// Summary counts issues by severity.
func (is Issues) Summary() map[Severity]int {
	counts := map[Severity]int{SeverityError: 0, SeverityWarning: 0, SeverityInfo: 0}
	for _, i := range is {
		counts[i.Severity]++
	}
	return counts
}

// HasErrors reports whether any issue has error severity.
func (is Issues) HasErrors() bool {
	for _, i := range is {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Rules configures which accounts and concepts the checks look at.
type Rules struct {
	InventoryAccounts     []string
	DirectExpenseAccounts []string
	COGSAccounts          []string
	PurchasePattern       *regexp.Regexp
	SalePattern           *regexp.Regexp
	Tolerance             decimal.Decimal
}

// Default patterns match concepts starting with "compra(s)" or "venta(s)".
const (
	DefaultPurchasePattern = `(?i)^\s*compras?\b`
	DefaultSalePattern     = `(?i)^\s*ventas?\b`
)

// DefaultRules uses the default chart's codes and a 0.01 tolerance.
func DefaultRules() Rules {
	return Rules{
		InventoryAccounts:     []string{"1141"},
		DirectExpenseAccounts: []string{"5211"},
		COGSAccounts:          []string{"5111"},
		PurchasePattern:       regexp.MustCompile(DefaultPurchasePattern),
		SalePattern:           regexp.MustCompile(DefaultSalePattern),
		Tolerance:             decimal.New(1, -2),
	}
}

// Input is the snapshot a Check runs over.
type Input struct {
	Entries []model.JournalEntry
	Chart   ledger.Chart
	Items   []model.InventoryItem
}

// Check runs every check and returns the findings in check order.
func Check(in Input, rules Rules) Issues {
	var issues Issues

	inventoryBalance, ok := inventoryBalances(in, rules, &issues)
	issues = append(issues, purchasesExpensed(in.Entries, rules)...)
	issues = append(issues, salesWithoutCOGS(in.Entries, rules)...)
	if ok {
		issues = append(issues, valuation(inventoryBalance, in.Items, rules)...)
	}
	return issues
}

// inventoryBalances flags negative inventory ledgers and returns their sum.
// ok is false when an inventory account could not be resolved.
func inventoryBalances(in Input, rules Rules, issues *Issues) (decimal.Decimal, bool) {
	total := decimal.Zero
	ok := true
	for _, code := range rules.InventoryAccounts {
		led, err := ledger.AccountLedger(in.Entries, in.Chart, code)
		if err != nil {
			*issues = append(*issues, Issue{
				Severity:    SeverityWarning,
				Code:        CodeUnknownRuleAccount,
				Description: fmt.Sprintf("inventory account %s cannot be resolved: %v", code, err),
				AccountCode: code,
			})
			ok = false
			continue
		}
		if led.Balance.IsNegative() {
			*issues = append(*issues, Issue{
				Severity:    SeverityError,
				Code:        CodeNegativeInventory,
				Description: fmt.Sprintf("inventory account %s has a negative balance", code),
				AccountCode: code,
				Amount:      amount(led.Balance),
			})
		}
		total = total.Add(led.Balance)
	}
	return total, ok
}

func purchasesExpensed(entries []model.JournalEntry, rules Rules) Issues {
	if rules.PurchasePattern == nil {
		return nil
	}
	var issues Issues
	for _, e := range ledger.Journal(entries) {
		if !rules.PurchasePattern.MatchString(e.Concept) {
			continue
		}
		for _, l := range e.Lines {
			if l.Debit.IsPositive() && coveredBy(rules.DirectExpenseAccounts, l.AccountCode) {
				issues = append(issues, Issue{
					Severity:    SeverityError,
					Code:        CodePurchaseExpensed,
					Description: fmt.Sprintf("purchase %q debits expense account %s instead of inventory", e.Concept, l.AccountCode),
					AccountCode: l.AccountCode,
					EntryID:     e.ID,
					Amount:      amount(l.Debit),
				})
			}
		}
	}
	return issues
}

// salesWithoutCOGS flags sale entries with no cost-of-sales debit. The cost
// line may sit in a separate entry sharing the sale's reference.
func salesWithoutCOGS(entries []model.JournalEntry, rules Rules) Issues {
	if rules.SalePattern == nil {
		return nil
	}
	posted := ledger.Journal(entries)

	costedRefs := make(map[string]bool)
	for _, e := range posted {
		if e.Reference != "" && debitsAny(e, rules.COGSAccounts) {
			costedRefs[e.Reference] = true
		}
	}

	var issues Issues
	for _, e := range posted {
		if !rules.SalePattern.MatchString(e.Concept) {
			continue
		}
		if debitsAny(e, rules.COGSAccounts) || (e.Reference != "" && costedRefs[e.Reference]) {
			continue
		}
		debit, _ := e.Totals()
		issues = append(issues, Issue{
			Severity:    SeverityWarning,
			Code:        CodeSaleWithoutCOGS,
			Description: fmt.Sprintf("sale %q has no cost-of-goods-sold line", e.Concept),
			EntryID:     e.ID,
			Amount:      amount(debit),
		})
	}
	return issues
}

func valuation(ledgerBalance decimal.Decimal, items []model.InventoryItem, rules Rules) Issues {
	physical := decimal.Zero
	for _, it := range items {
		physical = physical.Add(it.Valuation())
	}
	delta := ledgerBalance.Sub(physical)
	if delta.IsZero() {
		return nil
	}

	code := ""
	if len(rules.InventoryAccounts) == 1 {
		code = rules.InventoryAccounts[0]
	}
	if delta.Abs().GreaterThan(rules.Tolerance) {
		return Issues{{
			Severity: SeverityError,
			Code:     CodeValuationMismatch,
			Description: fmt.Sprintf("inventory ledger balance %s differs from item valuation %s by %s",
				ledgerBalance.StringFixed(2), physical.StringFixed(2), delta.StringFixed(2)),
			AccountCode: code,
			Amount:      amount(delta),
		}}
	}
	return Issues{{
		Severity:    SeverityInfo,
		Code:        CodeValuationDrift,
		Description: fmt.Sprintf("inventory ledger and item valuation differ by %s, within tolerance", delta.String()),
		AccountCode: code,
		Amount:      amount(delta),
	}}
}

func debitsAny(e model.JournalEntry, codes []string) bool {
	for _, l := range e.Lines {
		if l.Debit.IsPositive() && coveredBy(codes, l.AccountCode) {
			return true
		}
	}
	return false
}

func coveredBy(parents []string, code string) bool {
	for _, p := range parents {
		if model.CoversCode(p, code) {
			return true
		}
	}
	return false
}

func amount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
