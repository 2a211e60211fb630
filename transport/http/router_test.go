package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/carbx/core"
	"github.com/layer-3/carbx/internal/metrics"
	"github.com/layer-3/carbx/internal/testutil"
	"github.com/layer-3/carbx/ports"
	"github.com/layer-3/carbx/service"
	transporthttp "github.com/layer-3/carbx/transport/http"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	fixture  *testutil.Fixture
	router   *gin.Engine
	registry *prometheus.Registry
}

func newServer(t *testing.T, wallet ports.Wallet) *server {
	t.Helper()
	f := testutil.NewFixture(t, wallet)
	registry := prometheus.NewRegistry()
	router := transporthttp.SetupRouter(f.Dashboard, transporthttp.RouterConfig{
		Metrics:        metrics.New(registry),
		Gatherer:       registry,
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	return &server{fixture: f, router: router, registry: registry}
}

func (s *server) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndRequestID(t *testing.T) {
	s := newServer(t, testutil.NewWallet())

	w := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestWalletEndpoints(t *testing.T) {
	wallet := testutil.NewWallet()
	s := newServer(t, wallet)

	w := s.do(t, http.MethodGet, "/api/wallet", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, wallet.Address(), body["address"])

	w = s.do(t, http.MethodPost, "/api/wallet/disconnect", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["connected"])

	w = s.do(t, http.MethodPost, "/api/session/sign-in", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["signedIn"])
	assert.Equal(t, core.ErrWalletNotConnected.Error(), body["reason"])

	w = s.do(t, http.MethodPost, "/api/wallet/connect", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["connected"])
}

func TestSessionEndpoints(t *testing.T) {
	s := newServer(t, testutil.NewWallet())

	w := s.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["session"])

	w = s.do(t, http.MethodPost, "/api/session/sign-in", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["signedIn"])
	session := body["session"].(map[string]any)
	assert.Equal(t, true, session["hasBackendSession"])

	w = s.do(t, http.MethodPost, "/api/session/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["alive"])
}

func TestSignInBackendFailure(t *testing.T) {
	s := newServer(t, testutil.NewWallet())
	s.fixture.Backend.Set(func(b *testutil.Backend) {
		b.NonceErr = &core.RequestError{Method: http.MethodPost, Path: "/auth/nonce", StatusCode: http.StatusServiceUnavailable, Body: "down"}
	})

	w := s.do(t, http.MethodPost, "/api/session/sign-in", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "/auth/nonce")
}

func TestProtectedRoutes(t *testing.T) {
	t.Run("signs in on demand", func(t *testing.T) {
		s := newServer(t, testutil.NewWallet())
		s.fixture.Backend.Set(func(b *testutil.Backend) {
			b.PuroAccount = &core.PuroAccount{PuroAccountNumber: "PURO-7"}
		})

		w := s.do(t, http.MethodGet, "/api/puro-account", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "PURO-7", decode(t, w)["puroAccountNumber"])
		assert.Equal(t, 1, s.fixture.Backend.CallCount("RequestNonce"))

		w = s.do(t, http.MethodGet, "/api/orders", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, s.fixture.Backend.CallCount("RequestNonce"))
	})

	t.Run("wallet cannot sign", func(t *testing.T) {
		s := newServer(t, testutil.TxOnlyWallet{Inner: testutil.NewWallet()})

		w := s.do(t, http.MethodGet, "/api/orders", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, 0, s.fixture.Backend.CallCount("FetchGroupedOrders"))
	})
}

func TestRedemptionFlow(t *testing.T) {
	s := newServer(t, testutil.NewWallet())
	mint := s.fixture.Mint

	w := s.do(t, http.MethodGet, "/api/tokens", "")
	require.Equal(t, http.StatusOK, w.Code)
	tokens := decode(t, w)["tokens"].([]any)
	require.Len(t, tokens, 1)
	assert.Equal(t, mint, tokens[0].(map[string]any)["mint"])

	w = s.do(t, http.MethodPost, "/api/redemption", `{"mint":"unknown"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/redemption", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/redemption", `{"mint":"`+mint+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/api/redemption", `{"amount":"-5","destination":""}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/redemption/submit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, service.MsgInvalidAmount, decode(t, w)["error"])

	w = s.do(t, http.MethodPatch, "/api/redemption", `{"amount":"1.25","destination":"puro-user"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/redemption/submit", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "5ignature", body["signature"])
	assert.Equal(t, "https://solscan.io/tx/5ignature?cluster=devnet", body["explorerUrl"])

	w = s.do(t, http.MethodGet, "/api/redemption", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(service.RedemptionSettledSuccess), decode(t, w)["state"])

	w = s.do(t, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	notifications := decode(t, w)["notifications"].([]any)
	require.Len(t, notifications, 2)
	assert.Equal(t, service.MsgInvalidAmount, notifications[0].(map[string]any)["text"])
	assert.Equal(t, service.MsgConfirmed, notifications[1].(map[string]any)["text"])
}

func TestCloseRedemptionWhileBusy(t *testing.T) {
	s := newServer(t, testutil.NewWallet())
	mint := s.fixture.Mint

	gate := make(chan struct{})
	s.fixture.Chain.Set(func(c *testutil.Chain) { c.ConfirmGate = gate })

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/redemption", `{"mint":"`+mint+`"}`).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPatch, "/api/redemption", `{"amount":"1","destination":"puro-user"}`).Code)

	done := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/api/redemption/submit", nil)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		done <- w.Code
	}()

	require.Eventually(t, func() bool {
		return s.fixture.Dashboard.Redemption().State == service.RedemptionConfirming
	}, 2*time.Second, 5*time.Millisecond)

	w := s.do(t, http.MethodDelete, "/api/redemption", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	close(gate)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/redemption", "").Code)
}

func TestDismissNotification(t *testing.T) {
	s := newServer(t, testutil.NewWallet())

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/notifications/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/notifications/99", "").Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/redemption", `{"mint":"`+s.fixture.Mint+`"}`).Code)
	require.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/api/redemption/submit", "").Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/notifications/1", "").Code)
	assert.Empty(t, s.fixture.Dashboard.Notifications())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t, testutil.NewWallet())
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "").Code)

	w := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `carbx_api_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestCORS(t *testing.T) {
	s := newServer(t, testutil.NewWallet())

	req := httptest.NewRequest(http.MethodOptions, "/api/wallet", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
