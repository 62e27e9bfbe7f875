package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuadra-dev/cuadra/internal/accounts"
	"github.com/cuadra-dev/cuadra/internal/apperr"
	"github.com/cuadra-dev/cuadra/internal/books"
	"github.com/cuadra-dev/cuadra/internal/model"
	"github.com/cuadra-dev/cuadra/internal/storage/csvstore"
)

var _ Books = (*books.Books)(nil)

func init() {
	gin.SetMode(gin.TestMode)
}

type change struct{ action, subject string }

func newTestServer(t *testing.T) (*gin.Engine, *books.Books, *[]change) {
	t.Helper()
	ctx := context.Background()
	const tenant = model.Tenant("acme")

	store := csvstore.New(t.TempDir())
	require.NoError(t, store.Init(tenant))
	require.NoError(t, store.SaveAccounts(ctx, tenant, accounts.DefaultChart()))

	settings := books.DefaultSettings()
	settings.Clock = func() time.Time { return time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC) }
	b, err := books.Open(ctx, tenant, books.Repositories{Entries: store, Accounts: store, Inventory: store}, settings)
	require.NoError(t, err)

	var changes []change
	r := NewRouter(b, Options{OnChange: func(_ context.Context, action, subject, _ string) {
		changes = append(changes, change{action, subject})
	}})
	return r, b, &changes
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func saleEntry(amount string) PostEntryRequest {
	return PostEntryRequest{
		Date:    "2024-03-05",
		Concept: "Venta al contado",
		Lines: []LineRequest{
			{AccountCode: accounts.CodeCash, Debit: decimal.RequireFromString(amount)},
			{AccountCode: accounts.CodeSales, Credit: decimal.RequireFromString(amount)},
		},
	}
}

func TestHealth(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := do(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "acme", body["tenant"])
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestListAccounts(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := do(t, r, http.MethodGet, "/accounts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]AccountResponse](t, w)
	assert.Len(t, all, len(accounts.DefaultChart()))

	w = do(t, r, http.MethodGet, "/accounts?type=revenue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, a := range decode[[]AccountResponse](t, w) {
		assert.Equal(t, "revenue", a.Type)
		assert.Equal(t, "credit", a.Nature)
	}

	w = do(t, r, http.MethodGet, "/accounts?type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeactivateAccount(t *testing.T) {
	r, b, changes := newTestServer(t)

	w := do(t, r, http.MethodPost, "/accounts/"+accounts.CodeSales+"/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[AccountResponse](t, w).Active)
	assert.Equal(t, []change{{"account_deactivate", accounts.CodeSales}}, *changes)

	a, err := b.Account(accounts.CodeSales)
	require.NoError(t, err)
	assert.False(t, a.Active)

	w = do(t, r, http.MethodPost, "/accounts/"+accounts.CodeSales+"/deactivate", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/entries", saleEntry("10"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperr.CodeUnknownAccount, decode[ErrorResponse](t, w).Code)
}

func TestPostEntryAndReports(t *testing.T) {
	r, _, changes := newTestServer(t)

	w := do(t, r, http.MethodPost, "/entries", saleEntry("250.50"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	posted := decode[EntryResponse](t, w)
	assert.Equal(t, "2024-03-001", posted.ID)
	assert.Equal(t, "posted", posted.Status)
	assert.Equal(t, []change{{"entry_post", "2024-03-001"}}, *changes)

	w = do(t, r, http.MethodGet, "/ledger/"+accounts.CodeCash, nil)
	require.Equal(t, http.StatusOK, w.Code)
	l := decode[LedgerResponse](t, w)
	require.Len(t, l.Rows, 1)
	assert.True(t, l.Balance.Equal(decimal.RequireFromString("250.50")))

	w = do(t, r, http.MethodGet, "/trial-balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tb := decode[TrialBalanceResponse](t, w)
	assert.True(t, tb.Balanced)
	assert.True(t, tb.TotalDebit.Equal(tb.TotalCredit))
	assert.Len(t, tb.Rows, 2)

	w = do(t, r, http.MethodGet, "/journal?from=2024-03-01&to=2024-03-31", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]EntryResponse](t, w), 1)

	w = do(t, r, http.MethodGet, "/journal?from=2024-04-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]EntryResponse](t, w))
}

func TestPostEntryErrors(t *testing.T) {
	r, b, changes := newTestServer(t)

	unbalanced := saleEntry("100")
	unbalanced.Lines[1].Credit = decimal.RequireFromString("90")

	unknown := saleEntry("100")
	unknown.Lines[0].AccountCode = "9999"

	badDate := saleEntry("100")
	badDate.Date = "05/03/2024"

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"unbalanced", unbalanced, http.StatusUnprocessableEntity, apperr.CodeUnbalancedEntry},
		{"unknown account", unknown, http.StatusUnprocessableEntity, apperr.CodeUnknownAccount},
		{"bad date", badDate, http.StatusBadRequest, apperr.CodeInvalidInput},
		{"missing fields", map[string]string{"concept": "x"}, http.StatusBadRequest, apperr.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/entries", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
		})
	}
	assert.Empty(t, b.Entries())
	assert.Empty(t, *changes)
}

func TestVoidEntry(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := do(t, r, http.MethodPost, "/entries", saleEntry("100"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPost, "/entries/2024-03-001/void", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	voided := decode[EntryResponse](t, w)
	assert.Equal(t, "voided", voided.Status)
	assert.NotNil(t, voided.VoidedAt)

	w = do(t, r, http.MethodPost, "/entries/2024-03-001/void", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperr.CodeInvalidState, decode[ErrorResponse](t, w).Code)

	w = do(t, r, http.MethodPost, "/entries/2024-03-999/void", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/ledger/"+accounts.CodeCash, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[LedgerResponse](t, w).Rows)
}

func TestLedgerUnknownAccount(t *testing.T) {
	r, _, _ := newTestServer(t)
	w := do(t, r, http.MethodGet, "/ledger/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperr.CodeNotFound, decode[ErrorResponse](t, w).Code)
}

func TestInventoryAndConsistency(t *testing.T) {
	r, b, _ := newTestServer(t)
	ctx := context.Background()

	item, err := b.RegisterItem(ctx, "P-01", "Arroz")
	require.NoError(t, err)
	for _, cost := range []int64{100, 200} {
		_, err := b.RecordPurchase(ctx, books.PurchaseParams{
			ItemID:   item.ID,
			Quantity: decimal.NewFromInt(10),
			UnitCost: decimal.NewFromInt(cost),
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	w := do(t, r, http.MethodGet, "/inventory/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]ItemResponse](t, w)
	require.Len(t, items, 1)
	assert.True(t, items[0].AverageUnitCost.Equal(decimal.NewFromInt(150)))
	assert.True(t, items[0].Valuation.Equal(decimal.NewFromInt(3000)))

	w = do(t, r, http.MethodGet, "/inventory/items/P-01/movements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	movements := decode[[]MovementResponse](t, w)
	require.Len(t, movements, 2)
	assert.Equal(t, "150", movements[1].ResultingAverageCost)

	w = do(t, r, http.MethodGet, "/consistency", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[ConsistencyResponse](t, w)
	assert.True(t, report.OK)
	assert.Equal(t, 0, report.Summary["error"])
}

func TestPanicIsRendered(t *testing.T) {
	r := gin.New()
	r.Use(errorHandler(), recovery())
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, codeInternal, decode[ErrorResponse](t, w).Code)
}
