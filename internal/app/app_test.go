package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pinkpay/internal/clock"
	"pinkpay/internal/config"
	"pinkpay/internal/middleware"
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, _, err := config.Load("")
	require.NoError(t, err)
	cfg.Settlement.SimulateDelay = false
	cfg.Queue.AsyncProcessing = false
	cfg.HTTP.PayLimitPerMinute = 0
	cfg.HTTP.RefundLimitPerMinute = 0
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	clk := clock.NewMock(time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC))
	a, err := New(context.Background(), cfg, zap.NewNop(), WithClock(clk))
	require.NoError(t, err)
	return a
}

func do(t *testing.T, a *App, method, path string, body any, headers ...string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := a.HTTP.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type txnView struct {
	TxnID    string         `json:"txn_id"`
	Status   string         `json:"status"`
	Amount   string         `json:"amount"`
	Metadata map[string]any `json:"metadata"`
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := a.HTTP.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestPayAndStatus(t *testing.T) {
	a := newTestApp(t, nil)

	status, env := do(t, a, http.MethodPost, "/api/pay", map[string]any{
		"user_id":       "user_1",
		"merchant_id":   "MERCH_001",
		"merchant_name": "Kopi Kedai",
		"amount":        "25.50",
		"currency":      "MYR",
		"payment_rail":  "duitnow",
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	txn := decode[txnView](t, env.Data)
	assert.Equal(t, "completed", txn.Status)
	assert.Equal(t, "APPROVE", txn.Metadata["risk_action"])

	status, env = do(t, a, http.MethodGet, "/api/status/"+txn.TxnID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, txn.TxnID, decode[txnView](t, env.Data).TxnID)

	status, env = do(t, a, http.MethodGet, "/api/transactions/"+txn.TxnID+"/logs", nil)
	require.Equal(t, http.StatusOK, status)
	logs := decode[[]map[string]any](t, env.Data)
	assert.NotEmpty(t, logs)
}

func TestPay_Errors(t *testing.T) {
	a := newTestApp(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "zero amount",
			method:     http.MethodPost,
			path:       "/api/pay",
			body:       map[string]any{"user_id": "user_1", "amount": "0", "currency": "MYR"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_AMOUNT",
		},
		{
			name:       "unsupported currency",
			method:     http.MethodPost,
			path:       "/api/pay",
			body:       map[string]any{"user_id": "user_1", "amount": "10", "currency": "JPY"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "UNSUPPORTED_CURRENCY",
		},
		{
			name:       "unknown transaction",
			method:     http.MethodGet,
			path:       "/api/status/TXN_MISSING",
			wantStatus: http.StatusNotFound,
			wantCode:   "TRANSACTION_NOT_FOUND",
		},
		{
			name:       "review of a transaction that is not held",
			method:     http.MethodPost,
			path:       "/api/transactions/TXN_MISSING/review",
			body:       map[string]any{"approve": true, "reviewer": "ops"},
			wantStatus: http.StatusNotFound,
			wantCode:   "TRANSACTION_NOT_FOUND",
		},
		{
			name:       "review without decision",
			method:     http.MethodPost,
			path:       "/api/transactions/TXN_MISSING/review",
			body:       map[string]any{"reviewer": "ops"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, a, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestRefund(t *testing.T) {
	a := newTestApp(t, nil)

	_, env := do(t, a, http.MethodPost, "/api/pay", map[string]any{
		"user_id": "user_1", "merchant_id": "MERCH_001", "amount": "40.00", "currency": "MYR",
	})
	txn := decode[txnView](t, env.Data)
	require.Equal(t, "completed", txn.Status)

	status, env := do(t, a, http.MethodPost, "/api/transactions/"+txn.TxnID+"/refund",
		map[string]any{"amount": "15.00", "reason": "damaged goods"})
	require.Equal(t, http.StatusCreated, status, env.Error)
	result := decode[struct {
		Original txnView `json:"original"`
		Refund   txnView `json:"refund"`
	}](t, env.Data)
	assert.Equal(t, "partially_refunded", result.Original.Status)
	assert.Equal(t, "completed", result.Refund.Status)
	assert.Equal(t, "partial", result.Refund.Metadata["refund_type"])

	status, env = do(t, a, http.MethodPost, "/api/transactions/"+txn.TxnID+"/refund", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "REFUND_NOT_ALLOWED", env.Code)
}

func TestQRFlow(t *testing.T) {
	a := newTestApp(t, nil)

	status, env := do(t, a, http.MethodPost, "/api/qr", map[string]any{
		"qr_type": "merchant", "merchant_id": "MERCH_001", "amount": "10.00",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	code := decode[struct {
		QRID   string `json:"qr_id"`
		Status string `json:"status"`
	}](t, env.Data)
	assert.Equal(t, "active", code.Status)

	pay := map[string]any{"scanner_wallet": "tng", "user_id": "user_9"}

	status, env = do(t, a, http.MethodPost, "/api/qr/"+code.QRID+"/pay", pay)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "QR_NOT_SCANNED", env.Code)

	status, _ = do(t, a, http.MethodPost, "/api/qr/"+code.QRID+"/scan", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, a, http.MethodPost, "/api/qr/"+code.QRID+"/pay", pay)
	require.Equal(t, http.StatusOK, status, env.Error)
	result := decode[struct {
		Transaction txnView `json:"transaction"`
		Routing     struct {
			Method string `json:"routing_method"`
			Fee    string `json:"routing_fee"`
		} `json:"routing"`
	}](t, env.Data)
	assert.Equal(t, "completed", result.Transaction.Status)
	assert.Equal(t, "cross_wallet", result.Routing.Method)
	assert.Equal(t, "0.05", result.Routing.Fee)

	status, env = do(t, a, http.MethodPost, "/api/qr/"+code.QRID+"/pay", pay)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "QR_CONSUMED", env.Code)

	status, env = do(t, a, http.MethodPost, "/api/qr/"+code.QRID+"/scan", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "QR_INACTIVE", env.Code)
}

func TestQRRouting(t *testing.T) {
	a := newTestApp(t, nil)

	status, env := do(t, a, http.MethodGet, "/api/qr/routing?qr_type=boost&scanner_wallet=tng", nil)
	require.Equal(t, http.StatusOK, status)
	decision := decode[struct {
		Compatible bool   `json:"compatible"`
		Fee        string `json:"routing_fee"`
		Priority   string `json:"priority"`
	}](t, env.Data)
	assert.True(t, decision.Compatible)
	assert.Equal(t, "0.12", decision.Fee)
	assert.Equal(t, "high", decision.Priority)

	status, _ = do(t, a, http.MethodGet, "/api/qr/routing?qr_type=boost", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOfflineTokenFlow(t *testing.T) {
	a := newTestApp(t, nil)

	status, env := do(t, a, http.MethodPut, "/api/wallets/user_1", map[string]any{"balance": "100.00", "currency": "MYR"})
	require.Equal(t, http.StatusOK, status, env.Error)

	status, env = do(t, a, http.MethodPost, "/api/tokens", map[string]any{
		"user_id": "user_1", "amount": "50.00", "currency": "MYR",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	tok := decode[struct {
		TokenID   string `json:"token_id"`
		Signature string `json:"signature"`
	}](t, env.Data)
	assert.Regexp(t, `^TOK_[0-9A-F]{32}$`, tok.TokenID)
	assert.NotEmpty(t, tok.Signature)

	status, env = do(t, a, http.MethodPost, "/api/tokens/"+tok.TokenID+"/verify", map[string]any{"amount": "50.00"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[struct {
		CanProceed bool `json:"can_proceed"`
	}](t, env.Data).CanProceed)

	status, env = do(t, a, http.MethodPost, "/api/tokens/"+tok.TokenID+"/redeem", map[string]any{"merchant_id": "MERCH_002"})
	require.Equal(t, http.StatusOK, status, env.Error)
	txn := decode[txnView](t, env.Data)
	assert.Regexp(t, `^OFFLINE_`, txn.TxnID)
	assert.Equal(t, "completed", txn.Status)

	status, env = do(t, a, http.MethodPost, "/api/tokens/"+tok.TokenID+"/redeem", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TOKEN_REDEEMED", env.Code)

	status, env = do(t, a, http.MethodPost, "/api/tokens/"+tok.TokenID+"/cancel", map[string]any{"user_id": "user_1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TOKEN_REDEEMED", env.Code)
}

func TestAdminEndpoints(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) { cfg.HTTP.AdminKey = "operator-key" })
	key := []string{middleware.AdminKeyHeader, "operator-key"}

	status, _ := do(t, a, http.MethodGet, "/api/plugins", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := do(t, a, http.MethodGet, "/api/plugins", nil, key...)
	require.Equal(t, http.StatusOK, status)
	plugins := decode[[]struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	}](t, env.Data)
	require.Len(t, plugins, 3)
	for _, p := range plugins {
		assert.True(t, p.Enabled, p.Name)
	}

	status, _ = do(t, a, http.MethodPost, "/api/plugins/token_handler/disable", nil, key...)
	assert.Equal(t, http.StatusOK, status)

	status, env = do(t, a, http.MethodPost, "/api/plugins/nope/enable", nil, key...)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)

	status, env = do(t, a, http.MethodGet, "/api/queue/stats", nil, key...)
	require.Equal(t, http.StatusOK, status)
	stats := decode[map[string]any](t, env.Data)
	assert.EqualValues(t, 4, stats["workers"])
}

func TestQueuedPayment(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) { cfg.Queue.AsyncProcessing = true })
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})

	status, env := do(t, a, http.MethodPost, "/api/pay", map[string]any{
		"user_id": "user_1", "merchant_id": "MERCH_001", "amount": "12.00", "currency": "MYR",
	})
	require.Equal(t, http.StatusAccepted, status, env.Error)
	txn := decode[txnView](t, env.Data)
	assert.Equal(t, "pending", txn.Status)

	assert.Eventually(t, func() bool {
		got, err := a.Transactions.Get(context.Background(), txn.TxnID)
		return err == nil && got.Status == "completed"
	}, 5*time.Second, 10*time.Millisecond)
}
