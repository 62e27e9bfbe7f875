// Package httpapi serves the books as a JSON API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/auditlog"
	"github.com/cuadra-dev/cuadra/internal/buildinfo"
	"github.com/cuadra-dev/cuadra/internal/consistency"
	"github.com/cuadra-dev/cuadra/internal/ledger"
	"github.com/cuadra-dev/cuadra/internal/logger"
	"github.com/cuadra-dev/cuadra/internal/model"
	"github.com/cuadra-dev/cuadra/internal/trialbalance"
)

// Books is the part of a books session the API serves. *books.Books
// satisfies it.
type Books interface {
	Tenant() model.Tenant
	AccountsByType(t model.AccountType) []model.Account
	DeactivateAccount(ctx context.Context, code string) (model.Account, error)
	Ledger(code string, period ledger.Period) (ledger.Ledger, error)
	TrialBalance(ctx context.Context, asOf time.Time) (trialbalance.Report, error)
	Journal(period ledger.Period) []model.JournalEntry
	Entry(entryID string) (model.JournalEntry, error)
	Post(ctx context.Context, entry model.JournalEntry) (model.JournalEntry, error)
	Void(ctx context.Context, entryID string) (model.JournalEntry, error)
	Items() []model.InventoryItem
	ItemByCode(code string) (model.InventoryItem, error)
	Movements(itemID *string) []model.Movement
	Check() consistency.Issues
}

// ChangeFunc is called after a request changed the books.
type ChangeFunc func(ctx context.Context, action, subject, details string)

// Options configures the router.
type Options struct {
	Logger   *logger.Logger
	OnChange ChangeFunc
}

type server struct {
	books    Books
	onChange ChangeFunc
}

// NewRouter builds the gin engine serving b.
func NewRouter(b Books, opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &server{books: b, onChange: opts.OnChange}

	r := gin.New()
	r.Use(requestID(log.WithComponent("http")), accessLog(), errorHandler(), recovery())

	r.GET("/health", s.health)
	r.GET("/accounts", s.listAccounts)
	r.POST("/accounts/:code/deactivate", s.deactivateAccount)
	r.GET("/ledger/:code", s.accountLedger)
	r.GET("/trial-balance", s.trialBalance)
	r.GET("/journal", s.journal)
	r.GET("/entries/:id", s.getEntry)
	r.POST("/entries", s.postEntry)
	r.POST("/entries/:id/void", s.voidEntry)
	r.GET("/inventory/items", s.listItems)
	r.GET("/inventory/items/:code/movements", s.itemMovements)
	r.GET("/consistency", s.consistency)
	return r
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func (s *server) changed(c *gin.Context, action, subject, details string) {
	if s.onChange != nil {
		s.onChange(c.Request.Context(), action, subject, details)
	}
}

func parseDate(field, v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, &apperr.InvalidInputError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// periodQuery reads optional from/to query parameters.
func periodQuery(c *gin.Context) (ledger.Period, error) {
	var p ledger.Period
	if v := c.Query("from"); v != "" {
		t, err := parseDate("from", v)
		if err != nil {
			return p, err
		}
		p.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate("to", v)
		if err != nil {
			return p, err
		}
		p.To = t
	}
	return p, nil
}

// GET /health
func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"tenant":  string(s.books.Tenant()),
		"version": buildinfo.String(),
	})
}

// GET /accounts?type=asset
func (s *server) listAccounts(c *gin.Context) {
	typ := model.AccountType(c.Query("type"))
	if typ != "" && !typ.Valid() {
		fail(c, &apperr.InvalidInputError{Field: "type", Reason: "unknown account type"})
		return
	}
	out := make([]AccountResponse, 0)
	for _, a := range s.books.AccountsByType(typ) {
		out = append(out, fromAccount(a))
	}
	c.JSON(http.StatusOK, out)
}

// POST /accounts/:code/deactivate
func (s *server) deactivateAccount(c *gin.Context) {
	a, err := s.books.DeactivateAccount(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	s.changed(c, auditlog.ActionAccountDeactivate, a.Code, a.Name)
	c.JSON(http.StatusOK, fromAccount(a))
}

// GET /ledger/:code?from=&to=
func (s *server) accountLedger(c *gin.Context) {
	period, err := periodQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	l, err := s.books.Ledger(c.Param("code"), period)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fromLedger(l))
}

// GET /trial-balance?as_of=
func (s *server) trialBalance(c *gin.Context) {
	var asOf time.Time
	if v := c.Query("as_of"); v != "" {
		t, err := parseDate("as_of", v)
		if err != nil {
			fail(c, err)
			return
		}
		asOf = t
	}
	report, err := s.books.TrialBalance(c.Request.Context(), asOf)
	var imbalance *apperr.TrialBalanceImbalanceError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, fromTrialBalance(report, true))
	case errors.As(err, &imbalance):
		// The fault is already logged; the report still shows where it is.
		c.JSON(http.StatusOK, fromTrialBalance(report, false))
	default:
		fail(c, err)
	}
}

// GET /journal?from=&to=
func (s *server) journal(c *gin.Context) {
	period, err := periodQuery(c)
	if err != nil {
		fail(c, err)
		return
	}
	entries := s.books.Journal(period)
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, fromEntry(e))
	}
	c.JSON(http.StatusOK, out)
}

// GET /entries/:id
func (s *server) getEntry(c *gin.Context) {
	e, err := s.books.Entry(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, fromEntry(e))
}

// POST /entries
func (s *server) postEntry(c *gin.Context) {
	var req PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, &apperr.InvalidInputError{Field: "body", Reason: err.Error()})
		return
	}
	draft, err := req.toModel()
	if err != nil {
		fail(c, err)
		return
	}
	posted, err := s.books.Post(c.Request.Context(), draft)
	if err != nil {
		fail(c, err)
		return
	}
	s.changed(c, auditlog.ActionEntryPost, posted.ID, posted.Concept)
	c.JSON(http.StatusCreated, fromEntry(posted))
}

// POST /entries/:id/void
func (s *server) voidEntry(c *gin.Context) {
	voided, err := s.books.Void(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	s.changed(c, auditlog.ActionEntryVoid, voided.ID, voided.Concept)
	c.JSON(http.StatusOK, fromEntry(voided))
}

// GET /inventory/items
func (s *server) listItems(c *gin.Context) {
	items := s.books.Items()
	out := make([]ItemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, fromItem(i))
	}
	c.JSON(http.StatusOK, out)
}

// GET /inventory/items/:code/movements
func (s *server) itemMovements(c *gin.Context) {
	item, err := s.books.ItemByCode(c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	movements := s.books.Movements(&item.ID)
	out := make([]MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, MovementResponse{
			ID:                   m.ID,
			Date:                 m.Date.Format(dateLayout),
			Type:                 string(m.Type),
			Quantity:             m.Quantity.String(),
			UnitCost:             m.UnitCost.Round(6).String(),
			QuantityAfter:        m.QuantityAfter.String(),
			ResultingAverageCost: m.ResultingAverageCost.Round(6).String(),
			Value:                m.Value().StringFixed(2),
			Reason:               m.Reason,
			Reference:            m.Reference,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GET /consistency
func (s *server) consistency(c *gin.Context) {
	c.JSON(http.StatusOK, fromIssues(s.books.Check()))
}
