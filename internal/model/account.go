package model

import "strings"

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the five known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Nature returns the side on which accounts of this type increase.
func (t AccountType) Nature() Nature {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NatureDebit
	default:
		return NatureCredit
	}
}

// Nature is the normal balance side of an account.
type Nature string

const (
	NatureDebit  Nature = "debit"
	NatureCredit Nature = "credit"
)

// Account represents a row in chart-of-accounts.csv.
//
// Codes are hierarchical: "1141" is a child of "114", "11" and "1". Only leaf
// accounts receive postings; parents are aggregation views.
type Account struct {
	Code        string
	Name        string
	Type        AccountType
	Active      bool
	Description string
}

// Nature returns the account's normal balance side.
func (a Account) Nature() Nature {
	return a.Type.Nature()
}

// IsDescendantCode reports whether code sits below parent in the code tree.
// "1141" is a descendant of "11"; "11" is not a descendant of itself.
func IsDescendantCode(code, parent string) bool {
	return len(code) > len(parent) && strings.HasPrefix(code, parent)
}

// CoversCode reports whether a ledger for parent includes postings to code.
func CoversCode(parent, code string) bool {
	return code == parent || IsDescendantCode(code, parent)
}
