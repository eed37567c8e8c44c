//go:build integration

package router

// End-to-end flow against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fastclick/internal/config"
	"fastclick/internal/infra"
	"fastclick/internal/model"
	"fastclick/internal/realtime"
	"fastclick/internal/repository"
	"fastclick/internal/service"
	"fastclick/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
	rdb    *redis.Client
	token  string
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("fastclick_test"),
		tcPostgres.WithUsername("fastclick"),
		tcPostgres.WithPassword("fastclick"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "test-secret-key-32-chars-minimum!!",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		BasketTTLHours:     1,
		CashRatio:          "0.10",
		DefaultPhoneRegion: "FR",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, false)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := infra.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	gate := service.NewSessionGate(repository.NewSessionRepository(db), time.Now)
	require.NoError(t, gate.Load(ctx))
	core := Core{
		Gate:    gate,
		Hub:     realtime.NewHub(nil),
		Jobs:    worker.NewDispatcher(rdb),
		Store:   store,
		Breaker: infra.NewCircuitBreaker(infra.MailBreakerConfig()),
	}
	svcs := BuildServices(cfg, db, rdb, core)
	srv := httptest.NewServer(New(cfg, db, rdb, core, svcs))
	t.Cleanup(srv.Close)

	hash, err := service.HashPassword("admin-pass")
	require.NoError(t, err)
	admin := &model.User{Email: "admin@fastclick.local", FirstName: "Admin", Role: model.RoleAdmin, Active: true, PasswordHash: &hash}
	require.NoError(t, repository.NewUserRepository(db).Create(ctx, admin))

	env := &testEnv{server: srv, db: db, rdb: rdb}
	resp := env.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"email": admin.Email, "password": "admin-pass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, resp, &login)
	env.token = login.AccessToken
	return env
}

// ── Flow ─────────────────────────────────────────────────────────────────────

func TestE2E_SaleCycle(t *testing.T) {
	env := setupTestEnv(t)

	// Deposits are refused while no session is open.
	deposit := map[string]any{
		"name":                  "Catan",
		"price":                 "20",
		"commission_percentage": "10",
		"deposit_fee":           "2",
		"deposit_fee_type":      "fixed",
		"seller_email":          "ana@example.com",
		"seller_first_name":     "Ana",
		"seller_last_name":      "Lopez",
	}
	resp := env.do(t, http.MethodPost, "/v1/inventory/deposit", deposit)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/session", map[string]any{
		"event": "Spring Fair", "ends_at": time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/inventory/deposit", deposit)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var dep struct {
		Item struct {
			ID          string `json:"id"`
			StockStatus string `json:"stock_status"`
		} `json:"item"`
		SellerCreated bool `json:"seller_created"`
	}
	decode(t, resp, &dep)
	assert.True(t, dep.SellerCreated)
	assert.Equal(t, model.StockPending, dep.Item.StockStatus)

	// Pending items cannot enter the basket.
	resp = env.do(t, http.MethodPost, "/v1/basket/items", map[string]string{"item_id": dep.Item.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPatch, "/v1/inventory/"+dep.Item.ID+"/available", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/basket/items", map[string]string{"item_id": dep.Item.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var basket struct {
		Count int    `json:"count"`
		Total string `json:"total"`
	}
	decode(t, resp, &basket)
	assert.Equal(t, 1, basket.Count)
	assert.Equal(t, "20.00", basket.Total)

	// The basket lives in Redis.
	keys, err := env.rdb.Keys(context.Background(), "basket:*").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, keys)

	resp = env.do(t, http.MethodPost, "/v1/checkout", map[string]string{"buyer_email": "buyer@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Succeeded []struct {
			ItemID string `json:"item_id"`
		} `json:"succeeded"`
		Failed  []any `json:"failed"`
		Receipt *struct {
			ID    string `json:"id"`
			Total string `json:"total"`
		} `json:"receipt"`
		BasketCleared bool `json:"basket_cleared"`
	}
	decode(t, resp, &out)
	require.Len(t, out.Succeeded, 1)
	assert.Empty(t, out.Failed)
	require.NotNil(t, out.Receipt)
	assert.Equal(t, "20.00", out.Receipt.Total)
	assert.True(t, out.BasketCleared)

	// Follow-up jobs were queued.
	n, err := env.rdb.LLen(context.Background(), worker.QueueReceiptEmail).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// The last copy is gone.
	var item model.InventoryItem
	require.NoError(t, env.db.First(&item, "id = ?", dep.Item.ID).Error)
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, model.StockSoldOut, item.StockStatus)

	resp = env.do(t, http.MethodGet, "/v1/receipts/"+out.Receipt.ID+"/pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/statements/recompute", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var set struct {
		House struct {
			GamesSold            int    `json:"games_sold"`
			TotalEarnings        string `json:"total_earnings"`
			TotalDue             string `json:"total_due"`
			CommissionsCollected string `json:"commissions_collected"`
			DepositFeesCollected string `json:"deposit_fees_collected"`
		} `json:"house"`
		Sellers []struct {
			TotalDue string `json:"total_due"`
		} `json:"sellers"`
	}
	decode(t, resp, &set)
	assert.Equal(t, 1, set.House.GamesSold)
	assert.Equal(t, "20.00", set.House.TotalEarnings)
	assert.Equal(t, "16.00", set.House.TotalDue)
	assert.Equal(t, "2.00", set.House.CommissionsCollected)
	assert.Equal(t, "2.00", set.House.DepositFeesCollected)
	require.Len(t, set.Sellers, 1)
	assert.Equal(t, "16.00", set.Sellers[0].TotalDue)

	resp = env.do(t, http.MethodPost, "/v1/session/close", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/v1/checkout", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}
