package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuadra-dev/cuadra/internal/consistency"
	"github.com/cuadra-dev/cuadra/internal/ledger"
	"github.com/cuadra-dev/cuadra/internal/model"
	"github.com/cuadra-dev/cuadra/internal/trialbalance"
)

const dateLayout = "2006-01-02"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AccountResponse is one chart account.
type AccountResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Nature      string `json:"nature"`
	Active      bool   `json:"active"`
	Description string `json:"description,omitempty"`
}

func fromAccount(a model.Account) AccountResponse {
	return AccountResponse{
		Code:        a.Code,
		Name:        a.Name,
		Type:        string(a.Type),
		Nature:      string(a.Nature()),
		Active:      a.Active,
		Description: a.Description,
	}
}

// LineRequest is one line of a posted entry.
type LineRequest struct {
	AccountCode string          `json:"account_code" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// PostEntryRequest is the body of POST /entries.
type PostEntryRequest struct {
	Date      string        `json:"date" binding:"required"`
	Concept   string        `json:"concept" binding:"required"`
	Reference string        `json:"reference"`
	Lines     []LineRequest `json:"lines" binding:"required"`
}

func (r PostEntryRequest) toModel() (model.JournalEntry, error) {
	date, err := parseDate("date", r.Date)
	if err != nil {
		return model.JournalEntry{}, err
	}
	lines := make([]model.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, model.Line{AccountCode: l.AccountCode, Debit: l.Debit, Credit: l.Credit})
	}
	return model.JournalEntry{
		Date:      date,
		Concept:   r.Concept,
		Reference: r.Reference,
		Status:    model.StatusDraft,
		Lines:     lines,
	}, nil
}

// LineResponse is one line of an entry.
type LineResponse struct {
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// EntryResponse is a journal entry.
type EntryResponse struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Date      string         `json:"date"`
	Concept   string         `json:"concept"`
	Reference string         `json:"reference,omitempty"`
	Status    string         `json:"status"`
	PostedAt  time.Time      `json:"posted_at"`
	VoidedAt  *time.Time     `json:"voided_at,omitempty"`
	Lines     []LineResponse `json:"lines"`
}

func fromEntry(e model.JournalEntry) EntryResponse {
	out := EntryResponse{
		ID:        e.ID,
		Seq:       e.Seq,
		Date:      e.Date.Format(dateLayout),
		Concept:   e.Concept,
		Reference: e.Reference,
		Status:    string(e.Status),
		PostedAt:  e.PostedAt,
		Lines:     make([]LineResponse, 0, len(e.Lines)),
	}
	if !e.VoidedAt.IsZero() {
		v := e.VoidedAt
		out.VoidedAt = &v
	}
	for _, l := range e.Lines {
		out.Lines = append(out.Lines, LineResponse{AccountCode: l.AccountCode, Debit: l.Debit, Credit: l.Credit})
	}
	return out
}

// LedgerRowResponse is one ledger line.
type LedgerRowResponse struct {
	EntryID     string          `json:"entry_id"`
	Date        string          `json:"date"`
	Concept     string          `json:"concept"`
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// LedgerResponse is an account ledger.
type LedgerResponse struct {
	Account     AccountResponse     `json:"account"`
	Opening     decimal.Decimal     `json:"opening"`
	Rows        []LedgerRowResponse `json:"rows"`
	TotalDebit  decimal.Decimal     `json:"total_debit"`
	TotalCredit decimal.Decimal     `json:"total_credit"`
	Balance     decimal.Decimal     `json:"balance"`
}

func fromLedger(l ledger.Ledger) LedgerResponse {
	out := LedgerResponse{
		Account:     fromAccount(l.Account),
		Opening:     l.Opening,
		Rows:        make([]LedgerRowResponse, 0, len(l.Rows)),
		TotalDebit:  l.TotalDebit,
		TotalCredit: l.TotalCredit,
		Balance:     l.Balance,
	}
	for _, r := range l.Rows {
		out.Rows = append(out.Rows, LedgerRowResponse{
			EntryID:     r.EntryID,
			Date:        r.Date.Format(dateLayout),
			Concept:     r.Concept,
			AccountCode: r.AccountCode,
			Debit:       r.Debit,
			Credit:      r.Credit,
			Balance:     r.Balance,
		})
	}
	return out
}

// TrialBalanceRowResponse is one trial balance account.
type TrialBalanceRowResponse struct {
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	TotalDebit      decimal.Decimal `json:"total_debit"`
	TotalCredit     decimal.Decimal `json:"total_credit"`
	DebtorBalance   decimal.Decimal `json:"debtor_balance"`
	CreditorBalance decimal.Decimal `json:"creditor_balance"`
}

// TrialBalanceResponse is the trial balance report.
type TrialBalanceResponse struct {
	AsOf          string                    `json:"as_of,omitempty"`
	Rows          []TrialBalanceRowResponse `json:"rows"`
	TotalDebit    decimal.Decimal           `json:"total_debit"`
	TotalCredit   decimal.Decimal           `json:"total_credit"`
	TotalDebtor   decimal.Decimal           `json:"total_debtor"`
	TotalCreditor decimal.Decimal           `json:"total_creditor"`
	Balanced      bool                      `json:"balanced"`
}

func fromTrialBalance(r trialbalance.Report, balanced bool) TrialBalanceResponse {
	out := TrialBalanceResponse{
		Rows:          make([]TrialBalanceRowResponse, 0, len(r.Rows)),
		TotalDebit:    r.TotalDebit,
		TotalCredit:   r.TotalCredit,
		TotalDebtor:   r.TotalDebtor,
		TotalCreditor: r.TotalCreditor,
		Balanced:      balanced,
	}
	if !r.AsOf.IsZero() {
		out.AsOf = r.AsOf.Format(dateLayout)
	}
	for _, row := range r.Rows {
		out.Rows = append(out.Rows, TrialBalanceRowResponse{
			Code:            row.Account.Code,
			Name:            row.Account.Name,
			TotalDebit:      row.TotalDebit,
			TotalCredit:     row.TotalCredit,
			DebtorBalance:   row.DebtorBalance,
			CreditorBalance: row.CreditorBalance,
		})
	}
	return out
}

// ItemResponse is an inventory item with its valuation.
type ItemResponse struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	QuantityOnHand  decimal.Decimal `json:"quantity_on_hand"`
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"`
	Valuation       decimal.Decimal `json:"valuation"`
}

func fromItem(i model.InventoryItem) ItemResponse {
	return ItemResponse{
		ID:              i.ID,
		Code:            i.Code,
		Name:            i.Name,
		QuantityOnHand:  i.QuantityOnHand,
		AverageUnitCost: i.AverageUnitCost.Round(6),
		Valuation:       i.Valuation(),
	}
}

// IssueResponse is one consistency finding.
type IssueResponse struct {
	Severity    string           `json:"severity"`
	Code        string           `json:"code"`
	Description string           `json:"description"`
	AccountCode string           `json:"account_code,omitempty"`
	EntryID     string           `json:"entry_id,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// ConsistencyResponse is the result of GET /consistency.
type ConsistencyResponse struct {
	Issues  []IssueResponse `json:"issues"`
	Summary map[string]int  `json:"summary"`
	OK      bool            `json:"ok"`
}

func fromIssues(is consistency.Issues) ConsistencyResponse {
	out := ConsistencyResponse{
		Issues:  make([]IssueResponse, 0, len(is)),
		Summary: make(map[string]int),
		OK:      !is.HasErrors(),
	}
	for sev, n := range is.Summary() {
		out.Summary[string(sev)] = n
	}
	for _, i := range is {
		r := IssueResponse{
			Severity:    string(i.Severity),
			Code:        i.Code,
			Description: i.Description,
			AccountCode: i.AccountCode,
			EntryID:     i.EntryID,
		}
		if i.Amount.Valid {
			a := i.Amount.Decimal
			r.Amount = &a
		}
		out.Issues = append(out.Issues, r)
	}
	return out
}

// MovementResponse is one kardex row.
type MovementResponse struct {
	ID                   string `json:"id"`
	Date                 string `json:"date"`
	Type                 string `json:"type"`
	Quantity             string `json:"quantity"`
	UnitCost             string `json:"unit_cost"`
	QuantityAfter        string `json:"quantity_after"`
	ResultingAverageCost string `json:"resulting_average_cost"`
	Value                string `json:"value"`
	Reason               string `json:"reason,omitempty"`
	Reference            string `json:"reference,omitempty"`
}
