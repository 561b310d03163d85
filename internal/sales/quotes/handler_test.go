package quotes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-erp/festa/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, fixture) {
	t.Helper()
	f := newFixture()
	h := NewHandler(nil, f.svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithCompany(req.Context(), tenantA)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.MountRoutes(r)
	return r, f
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const createBody = `{
  "client_id": 10,
  "event_date": "2026-11-20T00:00:00Z",
  "items": [
    {"item_id": 1, "quantity": 1.5, "unit_price_cents": 333},
    {"item_id": 2, "quantity": "1", "unit_price_cents": 2000, "discount_cents": 250}
  ]
}`

func TestHandlerCreateAndShow(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/quotes", createBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, int64(2250), created.TotalCents)
	assert.Equal(t, int64(500), created.Items[0].TotalCents)
	assert.Equal(t, "DRAFT", string(created.Status))

	rec = do(t, h, http.MethodGet, "/quotes/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerRejectsEmptyItems(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/quotes", `{"client_id": 10, "event_date": "2026-11-20T00:00:00Z", "items": []}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "add at least one item")
}

func TestHandlerStatusTransitions(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/quotes", createBody).Code)

	rec := do(t, h, http.MethodPost, "/quotes/1/status", `{"status":"APPROVED"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/quotes/1/status", `{"status":"SENT"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"SENT"}`, rec.Body.String())
}

func TestHandlerDuplicateItemWarns(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/quotes", createBody).Code)

	rec := do(t, h, http.MethodPost, "/quotes/1/items", `{"item_id": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp quoteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Warnings)
	assert.Len(t, resp.Items, 2)
}

func TestHandlerDeleteTwice(t *testing.T) {
	h, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/quotes", createBody).Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/quotes/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/quotes/1", "").Code)
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodDelete, "/quotes/1", "").Code)
}
