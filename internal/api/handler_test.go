package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sheikh-saqib/payments-transfer-engine/internal/idempotency"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/interfaces/mocks"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/ledger"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/metrics"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/models"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/stats"
	"github.com/sheikh-saqib/payments-transfer-engine/internal/storage/memory"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newMemoryRouter(t *testing.T) (*gin.Engine, *memory.AccountStore) {
	t.Helper()
	accounts := memory.NewAccountStore(0)
	l := ledger.NewLedger(accounts, idempotency.New(time.Minute), stats.New())
	return NewRouter(NewTransferHandler(l, discard), discard, RouterConfig{}), accounts
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func transferBody(key, from, to string, amount int64, currency string) map[string]any {
	return map[string]any{
		"idempotencyKey":   key,
		"fromAccount":      from,
		"toAccount":        to,
		"amountMinorUnits": amount,
		"currency":         currency,
	}
}

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) models.TransferOutcome {
	t.Helper()
	var out models.TransferOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateTransferCompleted(t *testing.T) {
	r, accounts := newMemoryRouter(t)
	accounts.Open("A", 100_000)

	w := do(r, http.MethodPost, "/api/transfers", transferBody("k1", "A", "B", 500, "brl"))
	require.Equal(t, http.StatusAccepted, w.Code)

	out := decodeOutcome(t, w)
	assert.Equal(t, "k1", out.TransferID)
	assert.Equal(t, models.StatusCompleted, out.Status)
	assert.Equal(t, int64(99_500), out.FromBalanceAfter)
	assert.Equal(t, int64(500), out.ToBalanceAfter)

	replay := do(r, http.MethodPost, "/api/transfers", transferBody("k1", "A", "B", 500, "BRL"))
	require.Equal(t, http.StatusAccepted, replay.Code)
	assert.Equal(t, out, decodeOutcome(t, replay))
	assert.Equal(t, int64(99_500), accounts.Current("A"))
}

func TestCreateTransferInsufficientFunds(t *testing.T) {
	r, accounts := newMemoryRouter(t)
	accounts.Open("C", 100)

	w := do(r, http.MethodPost, "/api/transfers", transferBody("k2", "C", "D", 5_000, "USD"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	out := decodeOutcome(t, w)
	assert.Equal(t, models.StatusFailedInsufficientFunds, out.Status)
	assert.Equal(t, models.MessageInsufficientFunds, out.Message)
	assert.Equal(t, int64(100), out.FromBalanceAfter)
	assert.Equal(t, int64(0), out.ToBalanceAfter)
}

func TestCreateTransferValidation(t *testing.T) {
	r, accounts := newMemoryRouter(t)

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"idempotencyKey":`},
		{"missing key", transferBody("", "A", "B", 1, "BRL")},
		{"blank key", transferBody("   ", "A", "B", 1, "BRL")},
		{"missing account", transferBody("k", "", "B", 1, "BRL")},
		{"same account", transferBody("k", "A", "A", 1, "BRL")},
		{"same account after trim", transferBody("k", "A", " A ", 1, "BRL")},
		{"zero amount", transferBody("k", "A", "B", 0, "BRL")},
		{"negative amount", transferBody("k", "A", "B", -5, "BRL")},
		{"short currency", transferBody("k", "A", "B", 1, "BR")},
		{"numeric currency", transferBody("k", "A", "B", 1, "B1L")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/transfers", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Equal(t, int64(0), accounts.TotalAccounts(), "rejected requests never reach the ledger")
}

func TestCreateTransferServiceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockTransferService(ctrl)
	service.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(models.TransferOutcome{}, errors.New("db down"))

	r := NewRouter(NewTransferHandler(service, discard), discard, RouterConfig{})
	w := do(r, http.MethodPost, "/api/transfers", transferBody("k", "A", "B", 1, "BRL"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestGetStats(t *testing.T) {
	r, accounts := newMemoryRouter(t)
	accounts.Open("A", 1_000)
	accounts.Open("C", 0)

	do(r, http.MethodPost, "/api/transfers", transferBody("s1", "A", "B", 100, "BRL"))
	do(r, http.MethodPost, "/api/transfers", transferBody("s2", "C", "D", 100, "BRL"))

	w := do(r, http.MethodGet, "/api/transfers/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var s models.StatsSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, int64(2), s.Processed)
	assert.Equal(t, int64(1), s.Successful)
	assert.Equal(t, int64(1), s.Rejected)
	assert.Equal(t, int64(100), s.TotalVolume)
	assert.Equal(t, int64(2), s.CachedKeys)
	assert.Equal(t, int64(4), s.ProvisionedAccounts)
	assert.GreaterOrEqual(t, s.UptimeSeconds, int64(1))
}

func TestGetStatsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := mocks.NewMockTransferService(ctrl)
	service.EXPECT().Stats(gomock.Any()).Return(models.StatsSnapshot{}, errors.New("db down"))

	r := NewRouter(NewTransferHandler(service, discard), discard, RouterConfig{})
	w := do(r, http.MethodGet, "/api/transfers/stats", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetBalance(t *testing.T) {
	r, accounts := newMemoryRouter(t)
	accounts.Open("A", 4_200)

	w := do(r, http.MethodGet, "/api/accounts/A/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"accountId":"A","balanceMinorUnits":4200}`, w.Body.String())

	missing := do(r, http.MethodGet, "/api/accounts/nobody/balance", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, int64(1), accounts.TotalAccounts())
}

func TestHealthAndRequestID(t *testing.T) {
	r, _ := newMemoryRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	accounts := memory.NewAccountStore(1_000)
	l := ledger.NewLedger(accounts, idempotency.New(time.Minute), stats.New(stats.WithObserver(m)))
	r := NewRouter(NewTransferHandler(l, discard), discard, RouterConfig{Metrics: m, Gatherer: reg, MetricsPath: "/metrics"})

	do(r, http.MethodPost, "/api/transfers", transferBody("m1", "A", "B", 10, "BRL"))

	w := do(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `payments_http_requests_total{code="202",method="POST",route="/api/transfers"} 1`)
	assert.Contains(t, w.Body.String(), `payments_transfers_total{status="COMPLETED"} 1`)
}
