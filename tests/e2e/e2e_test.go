//go:build integration

package e2e

// e2e_test.go
// End-to-end integration tests using real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v
//
// These tests:
//   T-E2E-1: Full invoice cycle (login → create → approve → pay partial → pay rest → paid)
//   T-E2E-2: Concurrent payments — combined overshoot yields exactly one success
//   T-E2E-3: Reversal re-opens a paid invoice and is idempotent
//   T-E2E-4: Bulk reject isolates the already-paid item
//   T-E2E-5: CSV export projects reconciliation columns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"paylog/internal/config"
	"paylog/internal/infra"
	"paylog/internal/model"
	"paylog/internal/router"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// assertDecimalEqual compares money values ignoring trailing-zero scale.
func assertDecimalEqual(t *testing.T, want, got string) {
	t.Helper()
	w := decimal.RequireFromString(want)
	g := decimal.RequireFromString(got)
	assert.True(t, w.Equal(g), "want %s, got %s", want, got)
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("paylog"),
		tcPostgres.WithUsername("paylog"),
		tcPostgres.WithPassword("paylog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	redisC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	redisURL, err := redisC.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(redisURL)
	require.NoError(t, err)

	// Seed admin + a vendor directly
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), 4)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{
		Username:     "admin",
		FullName:     "Test Admin",
		PasswordHash: string(hash),
		Role:         "admin",
		Active:       true,
	}).Error)
	require.NoError(t, db.Create(&model.Vendor{
		Name:   "Acme Supplies",
		TaxID:  "ACME-1",
		Active: true,
	}).Error)

	cfg := &config.Config{
		Env:                "development",
		JWTSecret:          "e2e-secret",
		JWTExpirationHours: 1,
		JWTRefreshHours:    2,
	}

	gin.SetMode(gin.TestMode)
	engine := router.New(cfg, db, rdb, infra.NewCircuitBreaker("webhook", infra.DefaultCBConfig()))
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	env := &testEnv{server: server}

	// Login
	resp := do(t, server, http.MethodPost, "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin", "password": "secret123"}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, resp, &login)
	env.token = login.AccessToken
	return env
}

func (e *testEnv) createInvoice(t *testing.T, amount string) uint {
	t.Helper()
	resp := do(t, e.server, http.MethodPost, "/v1/invoices", jsonBody(t, map[string]any{
		"invoice_number": fmt.Sprintf("INV-%d", time.Now().UnixNano()),
		"vendor_id":      1,
		"invoice_amount": amount,
	}), e.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var inv struct {
		ID uint `json:"id"`
	}
	decodeJSON(t, resp, &inv)
	return inv.ID
}

func (e *testEnv) approveInvoice(t *testing.T, id uint) {
	t.Helper()
	resp := do(t, e.server, http.MethodPost, fmt.Sprintf("/v1/invoices/%d/approve", id), nil, e.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

type invoiceSnapshot struct {
	ID        uint   `json:"id"`
	Status    string `json:"status"`
	Remaining string `json:"remaining"`
}

type paymentResult struct {
	Payment struct {
		ID uint `json:"id"`
	} `json:"payment"`
	Invoice invoiceSnapshot `json:"invoice"`
}

func (e *testEnv) recordPayment(t *testing.T, invoiceID uint, amount string) (*http.Response, *paymentResult) {
	t.Helper()
	resp := do(t, e.server, http.MethodPost, "/v1/payments", jsonBody(t, map[string]any{
		"invoice_id":   invoiceID,
		"amount":       amount,
		"payment_date": "2026-08-01",
	}), e.token)
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		return resp, nil
	}
	var res paymentResult
	decodeJSON(t, resp, &res)
	return resp, &res
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_InvoiceLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	id := env.createInvoice(t, "22.98")
	env.approveInvoice(t, id)

	resp, res := env.recordPayment(t, id, "20.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "partial", res.Invoice.Status)
	assertDecimalEqual(t, "2.98", res.Invoice.Remaining)

	resp, res = env.recordPayment(t, id, "2.98")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "paid", res.Invoice.Status)
	assertDecimalEqual(t, "0", res.Invoice.Remaining)
}

// T-E2E-2 — the no-lost-update property: two concurrent payments whose sum
// exceeds the remaining balance must yield exactly one success.
func TestE2E_ConcurrentPaymentsNoLostUpdate(t *testing.T) {
	env := setupTestEnv(t)

	id := env.createInvoice(t, "100.00")
	env.approveInvoice(t, id)

	var wg sync.WaitGroup
	statuses := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, _ := env.recordPayment(t, id, "60.00")
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created, conflicted := 0, 0
	for _, s := range statuses {
		switch s {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		}
	}
	assert.Equal(t, 1, created, "exactly one payment must win")
	assert.Equal(t, 1, conflicted, "the loser must get OverpaymentRejected, statuses=%v", statuses)

	// The invoice holds exactly one 60.00 payment
	resp := do(t, env.server, http.MethodGet, fmt.Sprintf("/v1/invoices/%d", id), nil, env.token)
	var snap struct {
		Status        string `json:"status"`
		TotalApproved string `json:"total_approved"`
	}
	decodeJSON(t, resp, &snap)
	assert.Equal(t, "partial", snap.Status)
	assertDecimalEqual(t, "60", snap.TotalApproved)
}

func TestE2E_ReversalReopensAndIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)

	id := env.createInvoice(t, "50.00")
	env.approveInvoice(t, id)

	_, res := env.recordPayment(t, id, "50.00")
	require.NotNil(t, res)
	assert.Equal(t, "paid", res.Invoice.Status)

	reverse := func() invoiceSnapshot {
		resp := do(t, env.server, http.MethodDelete, fmt.Sprintf("/v1/payments/%d", res.Payment.ID), nil, env.token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out paymentResult
		decodeJSON(t, resp, &out)
		return out.Invoice
	}

	first := reverse()
	assert.Equal(t, "unpaid", first.Status)

	second := reverse() // no-op
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Remaining, second.Remaining)
}

func TestE2E_BulkRejectIsolatesPaidInvoice(t *testing.T) {
	env := setupTestEnv(t)

	a := env.createInvoice(t, "10.00")
	b := env.createInvoice(t, "20.00")
	c := env.createInvoice(t, "30.00")

	// Settle b so it is terminal
	env.approveInvoice(t, b)
	_, res := env.recordPayment(t, b, "20.00")
	require.Equal(t, "paid", res.Invoice.Status)

	resp := do(t, env.server, http.MethodPost, "/v1/invoices/bulk-reject", jsonBody(t, map[string]any{
		"ids":    []uint{a, b, c},
		"reason": "duplicate vendor charge",
	}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		SuccessCount int `json:"success_count"`
		Failures     []struct {
			ID     uint   `json:"id"`
			Reason string `json:"reason"`
		} `json:"failures"`
	}
	decodeJSON(t, resp, &out)
	assert.Equal(t, 2, out.SuccessCount)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, b, out.Failures[0].ID)
	assert.Equal(t, "InvalidTransition", out.Failures[0].Reason)
}

func TestE2E_HealthReportsPipelineState(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		OK                  bool             `json:"ok"`
		DB                  string           `json:"db"`
		Redis               string           `json:"redis"`
		NotificationBreaker string           `json:"notification_breaker"`
		DLQ                 map[string]int64 `json:"dlq"`
	}
	decodeJSON(t, resp, &health)
	assert.True(t, health.OK)
	assert.Equal(t, "closed", health.NotificationBreaker)
	assert.Equal(t, int64(0), health.DLQ["jobs:notification"])
	assert.Equal(t, int64(0), health.DLQ["jobs:email"])
}

func TestE2E_ExportCSV(t *testing.T) {
	env := setupTestEnv(t)

	id := env.createInvoice(t, "40.00")
	env.approveInvoice(t, id)
	_, _ = env.recordPayment(t, id, "15.00")

	resp := do(t, env.server, http.MethodPost, "/v1/invoices/export", jsonBody(t, map[string]any{
		"ids":     []uint{id},
		"columns": []string{"id", "status", "total_approved", "remaining"},
	}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	csvText := buf.String()
	assert.Contains(t, csvText, "id,status,total_approved,remaining")
	assert.Contains(t, csvText, fmt.Sprintf("%d,partial,15.00,25.00", id))
}
