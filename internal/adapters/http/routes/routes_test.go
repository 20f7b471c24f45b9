package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/testdb"
	"unionpass-api/internal/config"
	"unionpass-api/internal/core/services"
	"unionpass-api/internal/pkg/clock"
	"unionpass-api/internal/pkg/jwt"
	"unionpass-api/internal/pkg/metrics"
	"unionpass-api/internal/pkg/ratelimit"
	"unionpass-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "test_secret"

type testServer struct {
	t      *testing.T
	app    *fiber.App
	db     *gorm.DB
	cfg    *config.Config
	sender *captureSender
}

// captureSender keeps the last OTP sent to each destination
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *captureSender) Send(_ context.Context, _, destination, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[destination] = code
	return nil
}

func (s *captureSender) code(destination string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[destination]
}

func strPtr(s string) *string { return &s }

func newTestServer(t *testing.T, mode string) *testServer {
	t.Helper()

	db := testdb.New(t)
	cfg := &config.Config{
		AppMode: mode,
		JWT: config.JWTConfig{
			Secret:           testSecret,
			RefreshSecret:    "test_refresh_secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		Payment:   config.PaymentConfig{QRCodeExpiry: 15 * time.Minute, QRCodeMaxSkew: time.Minute},
		Security:  config.SecurityConfig{DemoOverrideTTL: 24 * time.Hour, UserManagementRateLimit: 10 * time.Minute},
		RateLimit: config.RateLimitConfig{Backend: "memory"},
	}
	cfg.SetFlag(config.FlagAllowDemoRoleUpgrade, false)
	cfg.SetFlag(config.FlagAllowUserManagement, false)

	clk := clock.New()
	log := zap.NewNop()
	sender := &captureSender{codes: make(map[string]string)}
	app := fiber.New()
	Setup(app, Dependencies{
		DB:      db,
		Config:  cfg,
		Logger:  log,
		Metrics: metrics.New(mode),
		Limiter: ratelimit.NewMemoryStore(clk),
		OTP:     services.NewOTPService(services.OTPOptions{}, clk, log),
		Sender:  sender,
		Clock:   clk,
		CheckDB: func() error { return nil },
	})

	require.NoError(t, db.Create(&[]models.Company{
		{ID: "sgv", Name: "SGV"},
		{ID: "other", Name: "Other Co"},
	}).Error)
	require.NoError(t, db.Create(&[]models.Venue{
		{ID: "v1", CompanyID: "sgv", Name: "ET", Type: "ktv"},
		{ID: "o1", CompanyID: "other", Name: "Elsewhere", Type: "bar"},
	}).Error)
	require.NoError(t, db.Create(&[]models.User{
		{ID: "cust1", Email: strPtr("john@example.com"), FullName: strPtr("John Smith"), Role: "customer", IsActive: true},
		{ID: "cust2", Email: strPtr("jane@example.com"), Role: "customer", IsActive: true},
		{ID: "staff1", Email: strPtr("alice@sgv.example"), Role: "staff", CompanyID: strPtr("sgv"), VenueID: strPtr("v1"), IsActive: true},
		{ID: "cadmin1", Email: strPtr("boss@sgv.example"), Role: "company_admin", CompanyID: strPtr("sgv"), IsActive: true},
		{ID: "admin1", Email: strPtr("admin@example.com"), Role: "super_admin", IsActive: true},
	}).Error)
	require.NoError(t, db.Create(&[]models.Membership{
		{ID: "m1", UserID: "cust1", CompanyID: "sgv", Balance: decimal.RequireFromString("150.75"), Status: "active"},
		{ID: "m2", UserID: "cust2", CompanyID: "sgv", Balance: decimal.RequireFromString("20.00"), Status: "active"},
	}).Error)

	return &testServer{t: t, app: app, db: db, cfg: cfg, sender: sender}
}

func (s *testServer) token(userID string) string {
	s.t.Helper()
	token, err := jwt.GenerateAccessToken(userID, nil, nil, testSecret, 15)
	require.NoError(s.t, err)
	return token
}

// do sends a request as userID (anonymous when empty) and decodes the envelope
func (s *testServer) do(method, path, userID string, body any) (int, response.Response) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(userID))
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var out response.Response
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (s *testServer) issueQR(userID, membershipID string) string {
	s.t.Helper()
	status, out := s.do(http.MethodGet, "/api/v1/memberships/"+membershipID+"/qr", userID, nil)
	require.Equal(s.t, http.StatusOK, status, out.Error)
	return out.Data.(map[string]any)["qr_data"].(string)
}

func (s *testServer) balance(membershipID string) decimal.Decimal {
	s.t.Helper()
	var m models.Membership
	require.NoError(s.t, s.db.First(&m, "id = ?", membershipID).Error)
	return m.Balance
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "dev")

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLookupAndCharge(t *testing.T) {
	s := newTestServer(t, "dev")
	qr := s.issueQR("cust1", "m1")

	status, out := s.do(http.MethodGet, "/api/v1/transactions/process?qrData="+url.QueryEscape(qr), "staff1", nil)
	require.Equal(t, http.StatusOK, status, out.Error)
	customer := out.Data.(map[string]any)["customer"].(map[string]any)
	assert.Equal(t, "John Smith", customer["name"])

	status, out = s.do(http.MethodPost, "/api/v1/transactions/process", "staff1", map[string]any{
		"qrData":      qr,
		"amount":      15.75,
		"description": "Drinks",
		"venueId":     "v1",
	})
	require.Equal(t, http.StatusOK, status, out.Error)
	data := out.Data.(map[string]any)
	assert.NotEmpty(t, data["transaction_id"])
	assert.Contains(t, data, "customer_info")
	assert.True(t, decimal.RequireFromString("135").Equal(s.balance("m1")))

	var txn models.Transaction
	require.NoError(t, s.db.First(&txn, "id = ?", data["transaction_id"]).Error)
	require.NotNil(t, txn.ProcessedBy)
	assert.Equal(t, "staff1", *txn.ProcessedBy)
	assert.Equal(t, "Drinks", txn.Description)

	var audits int64
	require.NoError(t, s.db.Model(&models.AuditLog{}).
		Where("action = ? AND user_id = ?", services.AuditChargeProcessed, "staff1").
		Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestChargeRejections(t *testing.T) {
	s := newTestServer(t, "dev")
	qr := s.issueQR("cust2", "m2")

	tests := []struct {
		name   string
		userID string
		body   map[string]any
		status int
		code   string
	}{
		{"anonymous", "", map[string]any{"qrData": qr, "amount": 5}, http.StatusUnauthorized, "unauthenticated"},
		{"customer", "cust1", map[string]any{"qrData": qr, "amount": 5}, http.StatusForbidden, "insufficient_role"},
		{"zero amount", "staff1", map[string]any{"qrData": qr, "amount": 0}, http.StatusBadRequest, "invalid_amount"},
		{"garbage qr", "staff1", map[string]any{"qrData": "not-a-token", "amount": 5}, http.StatusBadRequest, "invalid_qr_code"},
		{"over balance", "staff1", map[string]any{"qrData": qr, "amount": 20.01}, http.StatusConflict, "insufficient_balance"},
		{"unknown venue", "staff1", map[string]any{"qrData": qr, "amount": 5, "venueId": "nope"}, http.StatusNotFound, "venue_not_found"},
		{"foreign venue", "staff1", map[string]any{"qrData": qr, "amount": 5, "venueId": "o1"}, http.StatusForbidden, "access_denied"},
		{"venue of another company", "admin1", map[string]any{"qrData": qr, "amount": 5, "venueId": "o1"}, http.StatusConflict, "venue_company_mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := s.do(http.MethodPost, "/api/v1/transactions/process", tt.userID, tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, out.Code)
		})
	}

	assert.True(t, decimal.RequireFromString("20").Equal(s.balance("m2")))
}

func TestInvalidTokenIsRejected(t *testing.T) {
	s := newTestServer(t, "dev")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHistoryIsScopedForCustomers(t *testing.T) {
	s := newTestServer(t, "dev")

	for _, c := range []struct{ user, membership string }{{"cust1", "m1"}, {"cust2", "m2"}} {
		status, out := s.do(http.MethodPost, "/api/v1/transactions/process", "staff1", map[string]any{
			"qrData": s.issueQR(c.user, c.membership),
			"amount": 1,
		})
		require.Equal(t, http.StatusOK, status, out.Error)
	}

	// a customer asking for someone else's rows still gets only their own
	status, out := s.do(http.MethodGet, "/api/v1/transactions/history?userId=cust2", "cust1", nil)
	require.Equal(t, http.StatusOK, status)
	rows := out.Data.(map[string]any)["transactions"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "cust1", rows[0].(map[string]any)["user_id"])

	status, out = s.do(http.MethodGet, "/api/v1/transactions/history", "staff1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, out.Data.(map[string]any)["transactions"].([]any), 2)
}

func TestDebugEnvIsDevelopmentOnly(t *testing.T) {
	dev := newTestServer(t, "dev")
	status, out := dev.do(http.MethodGet, "/api/v1/debug/env", "", nil)
	require.Equal(t, http.StatusOK, status)
	env := out.Data.(map[string]any)["environment"].(map[string]any)
	assert.Equal(t, false, env[config.FlagAllowDemoRoleUpgrade])

	prod := newTestServer(t, "prod")
	status, out = prod.do(http.MethodGet, "/api/v1/debug/env", "", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "development_only", out.Code)
}

func TestDemoUpgrade(t *testing.T) {
	s := newTestServer(t, "dev")

	status, out := s.do(http.MethodPost, "/api/v1/admin/upgrade", "cust1", map[string]any{"role": "staff"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "feature_disabled", out.Code)

	s.cfg.SetFlag(config.FlagAllowDemoRoleUpgrade, true)

	status, out = s.do(http.MethodPost, "/api/v1/admin/upgrade", "cust1", map[string]any{"role": "customer"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_role", out.Code)

	status, out = s.do(http.MethodPost, "/api/v1/admin/upgrade", "cust1", map[string]any{"role": "staff"})
	require.Equal(t, http.StatusOK, status, out.Error)

	status, out = s.do(http.MethodGet, "/api/v1/auth/me", "cust1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "staff", out.Data.(map[string]any)["user"].(map[string]any)["role"])

	// the stored role is untouched
	var user models.User
	require.NoError(t, s.db.First(&user, "id = ?", "cust1").Error)
	assert.Equal(t, "customer", user.Role)

	status, _ = s.do(http.MethodDelete, "/api/v1/admin/upgrade", "cust1", nil)
	require.Equal(t, http.StatusOK, status)
	status, out = s.do(http.MethodGet, "/api/v1/auth/me", "cust1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "customer", out.Data.(map[string]any)["user"].(map[string]any)["role"])
}

func TestSetUserRoleIsRateLimited(t *testing.T) {
	s := newTestServer(t, "dev")

	status, out := s.do(http.MethodPost, "/api/v1/admin/users", "staff1", map[string]any{"userId": "new1", "role": "staff"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "insufficient_role", out.Code)

	status, out = s.do(http.MethodPost, "/api/v1/admin/users", "admin1", map[string]any{
		"userId": "new1", "role": "staff", "email": "new1@sgv.example", "companyId": "sgv", "venueId": "v1",
	})
	require.Equal(t, http.StatusCreated, status, out.Error)

	status, out = s.do(http.MethodPost, "/api/v1/admin/users", "admin1", map[string]any{"userId": "new2", "role": "staff"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", out.Code)
	assert.Equal(t, "Rate limited. Please wait 10 minute(s) before trying again.", out.Error)
}

func TestUserManagementFlagGatesProd(t *testing.T) {
	s := newTestServer(t, "prod")

	status, out := s.do(http.MethodPost, "/api/v1/admin/users", "admin1", map[string]any{"userId": "new1", "role": "staff"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "feature_disabled", out.Code)
}

func TestGetUsers(t *testing.T) {
	s := newTestServer(t, "dev")

	status, out := s.do(http.MethodGet, "/api/v1/admin/users?userId=cust1", "cadmin1", nil)
	require.Equal(t, http.StatusOK, status, out.Error)

	status, out = s.do(http.MethodGet, "/api/v1/admin/users", "cadmin1", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "insufficient_role", out.Code)

	status, out = s.do(http.MethodGet, "/api/v1/admin/users", "admin1", nil)
	require.Equal(t, http.StatusOK, status, out.Error)
	assert.Len(t, out.Data.(map[string]any)["users"].([]any), 5)
}

func TestAccessAdministration(t *testing.T) {
	s := newTestServer(t, "dev")

	// users may read their own access, not someone else's
	status, _ := s.do(http.MethodGet, "/api/v1/access/users/cust1/companies", "cust1", nil)
	assert.Equal(t, http.StatusOK, status)
	status, out := s.do(http.MethodGet, "/api/v1/access/users/cust2/companies", "cust1", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "access_denied", out.Code)

	status, out = s.do(http.MethodPost, "/api/v1/access/users/cust2/companies", "cadmin1", map[string]any{"companyId": "other", "role": "manager"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "access_denied", out.Code)

	status, out = s.do(http.MethodPost, "/api/v1/access/users/cust2/venues", "cadmin1", map[string]any{"venueId": "v1", "role": "staff"})
	require.Equal(t, http.StatusOK, status, out.Error)

	status, out = s.do(http.MethodGet, "/api/v1/access/users/cust2/venues", "cadmin1", nil)
	require.Equal(t, http.StatusOK, status)
	venues := out.Data.(map[string]any)["venues"].([]any)
	require.Len(t, venues, 1)
	assert.Equal(t, "v1", venues[0].(map[string]any)["id"])

	status, _ = s.do(http.MethodDelete, "/api/v1/access/users/cust2/venues/v1", "cadmin1", nil)
	require.Equal(t, http.StatusOK, status)
	status, out = s.do(http.MethodGet, "/api/v1/access/users/cust2/venues", "cadmin1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, out.Data.(map[string]any)["venues"])
}

func TestQRIsOwnerOnly(t *testing.T) {
	s := newTestServer(t, "dev")

	status, out := s.do(http.MethodGet, "/api/v1/memberships/m1/qr", "cust2", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "membership_not_found", out.Code)
}

func TestOTPSignIn(t *testing.T) {
	s := newTestServer(t, "dev")

	status, out := s.do(http.MethodPost, "/api/v1/auth/otp/request", "", map[string]any{
		"channel": "email", "destination": "New.User@Example.com",
	})
	require.Equal(t, http.StatusOK, status, out.Error)
	code := s.sender.code("new.user@example.com")
	require.Len(t, code, 6)

	status, out = s.do(http.MethodPost, "/api/v1/auth/otp/verify", "", map[string]any{
		"channel": "email", "destination": "new.user@example.com", "code": code,
	})
	require.Equal(t, http.StatusOK, status, out.Error)
	data := out.Data.(map[string]any)
	assert.Equal(t, true, data["is_new_user"])
	assert.Equal(t, "customer", data["user"].(map[string]any)["role"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+data["access_token"].(string))
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
