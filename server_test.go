package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/models"
	"bitbucket.org/mmdatafocus/payables_backend/models/reports"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestServer wires a seeded in-memory database and miniredis behind the router.
func newTestServer(t *testing.T) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	t.Setenv("DB_MAX_OPEN_CONNS", "1")
	t.Setenv("DB_CONN_MAX_LIFETIME_SECONDS", "0")
	t.Setenv("DB_CONN_MAX_IDLE_TIME_SECONDS", "0")
	require.NoError(t, config.OpenDatabase(sqlite.Open(":memory:")))
	t.Cleanup(config.CloseDatabase)
	require.NoError(t, models.MigrateTable())

	mr := miniredis.RunT(t)
	config.UseRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(config.CloseRedis)

	require.NoError(t, models.Seed(t.Context()))
	return setupRouter(config.GetLogger()), mr
}

func doJSON(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("token", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func login(t *testing.T, r http.Handler, username, password string) string {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decodeBody(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthzAndReadiness(t *testing.T) {
	r := setupRouter(config.GetLogger())

	w := doJSON(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(r, http.MethodGet, "/suppliers", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLogin(t *testing.T) {
	r, mr := newTestServer(t)

	w := doJSON(r, http.MethodPost, "/login", "", gin.H{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid username or password", decodeBody(t, w)["error"])

	w = doJSON(r, http.MethodPost, "/login", "", gin.H{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password is required", decodeBody(t, w)["error"])

	// form posts work too, and the token comes back as a cookie
	form := url.Values{"username": {"user"}, "password": {"user123"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "user", body["role"])

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, body["token"], cookie.Value)
	assert.True(t, mr.Exists("Token:"+cookie.Value))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	index := decodeBody(t, w)
	assert.Equal(t, false, index["admin"])
	assert.Equal(t, float64(2), index["id"])
}

// tokenCookieOf returns the last token cookie set, which is the one browsers keep.
func tokenCookieOf(w *httptest.ResponseRecorder) *http.Cookie {
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	return cookie
}

func TestStaleCookieDoesNotBlockLogin(t *testing.T) {
	r, mr := newTestServer(t)
	token := login(t, r, "admin", "admin123")
	mr.Del("Token:" + token)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"admin","password":"admin123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fresh := tokenCookieOf(w)
	require.NotNil(t, fresh)
	assert.NotEqual(t, token, fresh.Value)
	assert.True(t, mr.Exists("Token:"+fresh.Value))

	// a protected route with the stale cookie is anonymous and gets the cookie cleared
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	cleared := tokenCookieOf(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	// a stale header token is still rejected
	w = doJSON(r, http.MethodPost, "/login", token, gin.H{"username": "admin", "password": "admin123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionGate(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(r, http.MethodGet, "/suppliers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/suppliers", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userToken := login(t, r, "user", "user123")
	w = doJSON(r, http.MethodGet, "/suppliers", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "you do not have permission to access this page", decodeBody(t, w)["error"])

	adminToken := login(t, r, "admin", "admin123")
	w = doJSON(r, http.MethodGet, "/suppliers", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["suppliers"], 2)

	w = doJSON(r, http.MethodPost, "/logout", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(r, http.MethodGet, "/suppliers", adminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTransactionRoutes(t *testing.T) {
	r, _ := newTestServer(t)
	token := login(t, r, "admin", "admin123")

	// seeded invoice 1 is (supplier 1, 1000.00)
	w := doJSON(r, http.MethodPost, "/transactions", token, gin.H{"supplier_id": 1, "kind": "CR", "amount": "1,000.00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	transaction := decodeBody(t, w)["transaction"].(map[string]any)
	assert.Equal(t, float64(1), transaction["settled_invoice_id"])
	id := int(transaction["id"].(float64))

	w = doJSON(r, http.MethodGet, "/invoices/1", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/suppliers/1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3600", decodeBody(t, w)["supplier"].(map[string]any)["balance"])

	w = doJSON(r, http.MethodPut, "/transactions/"+itoa(id), token, gin.H{"supplier_id": 2, "kind": "DB", "amount": 1000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodGet, "/suppliers/1/reconcile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	check := decodeBody(t, w)["reconcile"].(map[string]any)
	assert.Equal(t, true, check["consistent"])
	assert.Equal(t, "2600", check["stored_balance"])

	w = doJSON(r, http.MethodPost, "/transactions", token, gin.H{"supplier_id": 1, "kind": "XX", "amount": "5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(r, http.MethodPost, "/transactions", token, gin.H{"supplier_id": 99, "kind": "CR", "amount": "5"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(r, http.MethodDelete, "/transactions/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/transactions?kind=DB", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["transactions"], 2)
}

func TestSupplierDeleteRefused(t *testing.T) {
	r, _ := newTestServer(t)
	token := login(t, r, "admin", "admin123")

	w := doJSON(r, http.MethodDelete, "/suppliers/1", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/suppliers", token, gin.H{"name": "Proveedor C", "opening_balance": 10})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := int(decodeBody(t, w)["supplier"].(map[string]any)["id"].(float64))

	w = doJSON(r, http.MethodDelete, "/suppliers/"+itoa(id), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReportRoute(t *testing.T) {
	r, _ := newTestServer(t)
	token := login(t, r, "user", "user123")

	w := doJSON(r, http.MethodPost, "/reports", token, gin.H{"table": "suppliers", "format": "csv"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/reports", token, gin.H{"table": "invoices", "format": "pdf"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reports.ContentTypePDF, w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=report_invoices.pdf", w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestRateLimiter(t *testing.T) {
	_, _ = newTestServer(t)
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "2")
	r := setupRouter(config.GetLogger())

	for i := 0; i < 2; i++ {
		w := doJSON(r, http.MethodGet, "/suppliers", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := doJSON(r, http.MethodGet, "/suppliers", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
