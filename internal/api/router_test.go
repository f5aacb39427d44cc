package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/baharkarakas/provider-payouts/internal/auth"
	"github.com/baharkarakas/provider-payouts/internal/config"
	"github.com/baharkarakas/provider-payouts/internal/models"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
	"github.com/baharkarakas/provider-payouts/internal/services"
)

const (
	providerID   = "5a2f1c1e-7d1b-4c3a-9b51-0e6f2a7c9d01"
	clientID     = "6b3e2d2f-8e2c-4d4b-8c62-1f7a3b8dae02"
	otherClient  = "7c4f3e30-9f3d-4e5c-9d73-208b4c9ebf03"
	adminID      = "8d504f41-a04e-4f6d-8e84-319c5dafc004"
	pmID         = "9e615052-b15f-4a7e-9f95-42ad6eb0d105"
	orderID      = "af726163-c260-4b8f-8a06-53be7fc1e206"
	withdrawalID = "b0837274-d371-4c90-9b17-64cf80d2f307"
	notifID      = "c1948385-e482-4da1-8c28-75d091e30408"
	foreignNotif = "d2a59496-f593-4eb2-9d39-86e1a2f41509"
)

var (
	providerTok = "dev-provider-" + providerID
	clientTok   = "dev-client-" + clientID
	adminTok    = "dev-admin-" + adminID
)

type stubWithdrawals struct {
	checkErr  error
	submitErr error
	statusErr error
	settings  models.PlatformSettings
}

func (s *stubWithdrawals) Check(_ context.Context, providerID string, amount int64, _ string) (services.BalanceContext, error) {
	bc := services.BalanceContext{
		Balance:  models.Balance{ProviderID: providerID, AvailableCents: 10000},
		Settings: models.PlatformSettings{FeePercentage: 2.5, MinWithdrawalCents: 2000},
	}
	return bc, s.checkErr
}

func (s *stubWithdrawals) Submit(_ context.Context, providerID string, amount int64, pmID string) (services.SubmitResult, error) {
	if s.submitErr != nil {
		return services.SubmitResult{}, s.submitErr
	}
	return services.SubmitResult{
		Request:  models.WithdrawalRequest{ID: "w1", ProviderID: providerID, AmountCents: amount, PaymentMethodID: pmID},
		FeeCents: 75, NetCents: amount - 75,
	}, nil
}

func (s *stubWithdrawals) UpdateStatus(_ context.Context, id string, to models.WithdrawalStatus, _ string) (models.WithdrawalRequest, error) {
	return models.WithdrawalRequest{ID: id, Status: to}, s.statusErr
}

func (s *stubWithdrawals) List(context.Context, string, int, int) ([]models.WithdrawalRequest, error) {
	return []models.WithdrawalRequest{}, nil
}

func (s *stubWithdrawals) Recent(context.Context, string) ([]models.WithdrawalRequest, error) {
	return []models.WithdrawalRequest{}, nil
}

func (s *stubWithdrawals) Settings(context.Context) (models.PlatformSettings, error) {
	return s.settings, nil
}

func (s *stubWithdrawals) SaveSettings(_ context.Context, st models.PlatformSettings) error {
	if st.FeePercentage >= 100 {
		return fmt.Errorf("%w: fee", services.ErrInvalidSettings)
	}
	s.settings = st
	return nil
}

type stubEarnings struct{}

func (stubEarnings) Summary(_ context.Context, providerID, _ string) (services.EarningsSummary, error) {
	return services.EarningsSummary{Balance: models.Balance{ProviderID: providerID, AvailableCents: 5000}}, nil
}

type stubNotifications struct{ unread int }

func (s *stubNotifications) List(context.Context, string, int, int, bool) (services.NotificationPage, error) {
	return services.NotificationPage{}, nil
}
func (s *stubNotifications) UnreadCount(context.Context, string) (int, error) { return s.unread, nil }
func (s *stubNotifications) MarkRead(_ context.Context, id, _ string) error {
	if id == foreignNotif {
		return services.ErrNotRecipient
	}
	return nil
}
func (s *stubNotifications) MarkAllRead(context.Context, string) (int64, error) { return 0, nil }
func (s *stubNotifications) RegisterDevice(context.Context, string, string) error { return nil }

type stubRefunds struct{ list []models.RefundRequest }

func (s *stubRefunds) Create(_ context.Context, by string, in services.NewRefund) (models.RefundRequest, error) {
	return models.RefundRequest{ID: "r1", RequestedBy: by, OrderID: in.OrderID}, nil
}
func (s *stubRefunds) ListByOrder(context.Context, string) ([]models.RefundRequest, error) {
	return append([]models.RefundRequest(nil), s.list...), nil
}
func (s *stubRefunds) ListMine(context.Context, string, int, int) ([]models.RefundRequest, error) {
	return nil, nil
}
func (s *stubRefunds) Transition(context.Context, string, models.RefundStatus, string) (models.RefundRequest, error) {
	return models.RefundRequest{}, nil
}

type stubMethods struct {
	updateErr error
	updated   services.UpdatePaymentMethod
}

func (s *stubMethods) Create(_ context.Context, providerID string, in services.NewPaymentMethod) (models.PaymentMethod, error) {
	return models.PaymentMethod{ID: pmID, ProviderID: providerID, Type: in.Type, Label: in.Label}, nil
}
func (s *stubMethods) List(context.Context, string) ([]models.PaymentMethod, error) {
	return []models.PaymentMethod{}, nil
}
func (s *stubMethods) Update(_ context.Context, providerID, id string, in services.UpdatePaymentMethod) (models.PaymentMethod, error) {
	if s.updateErr != nil {
		return models.PaymentMethod{}, s.updateErr
	}
	s.updated = in
	return models.PaymentMethod{ID: id, ProviderID: providerID, Label: in.Label, Details: in.Details}, nil
}
func (s *stubMethods) SetDefault(context.Context, string, string) error { return nil }
func (s *stubMethods) Delete(context.Context, string, string) error     { return nil }
func (s *stubMethods) Verify(context.Context, string, bool) error       { return nil }

type testServer struct {
	h  http.Handler
	wd *stubWithdrawals
	pm *stubMethods
	tm *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	tm := auth.NewTokenManager("a", "r", 15*time.Minute, time.Hour)
	wd := &stubWithdrawals{}
	pm := &stubMethods{}
	h := NewRouter(RouterDeps{
		Cfg:            config.Config{Env: "dev", AppURL: "http://localhost:3000"},
		Tokens:         tm,
		Withdrawals:    wd,
		Earnings:       stubEarnings{},
		PaymentMethods: pm,
		Notifications:  &stubNotifications{unread: 3},
		Refunds: &stubRefunds{list: []models.RefundRequest{
			{ID: "r1", RequestedBy: clientID}, {ID: "r2", RequestedBy: otherClient},
		}},
	})
	return &testServer{h: h, wd: wd, pm: pm, tm: tm}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return m
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "GET", "/health", "", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("health = %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id")
	}
}

func TestAuthAndRoles(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"no token", "/api/v1/provider/earnings", "", http.StatusUnauthorized},
		{"garbage token", "/api/v1/provider/earnings", "nope", http.StatusUnauthorized},
		{"dev token without uuid", "/api/v1/provider/earnings", "dev-provider-p1", http.StatusUnauthorized},
		{"client on provider route", "/api/v1/provider/earnings", clientTok, http.StatusForbidden},
		{"provider", "/api/v1/provider/earnings", providerTok, http.StatusOK},
		{"provider on admin route", "/api/v1/admin/platform-settings", providerTok, http.StatusForbidden},
		{"admin", "/api/v1/admin/platform-settings", adminTok, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := s.do(t, "GET", tt.path, tt.token, ""); w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestDevTokenThenUseIt(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "POST", "/api/v1/auth/token", "", `{"user_id":"`+clientID+`","role":"client"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("token = %d %s", w.Code, w.Body.String())
	}
	access, _ := decode(t, w)["access_token"].(string)

	w = s.do(t, "GET", "/api/v1/notifications/unread-count", access, "")
	if w.Code != http.StatusOK || decode(t, w)["count"] != float64(3) {
		t.Fatalf("unread = %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, "POST", "/api/v1/auth/token", "", `{"user_id":"`+clientID+`","role":"root"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad role = %d", w.Code)
	}
}

func TestValidateWithdrawalReportsRuleInline(t *testing.T) {
	s := newTestServer(t)
	s.wd.checkErr = services.ErrBelowMinimum
	w := s.do(t, "POST", "/api/v1/provider/withdrawals/validate", providerTok,
		`{"amount_cents":100,"payment_method_id":"`+pmID+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	m := decode(t, w)
	if m["valid"] != false || m["code"] != "below_minimum" {
		t.Fatalf("body = %v", m)
	}

	s.wd.checkErr = nil
	m = decode(t, s.do(t, "POST", "/api/v1/provider/withdrawals/validate", providerTok,
		`{"amount_cents":3000,"payment_method_id":"`+pmID+`"}`))
	if m["valid"] != true || m["fee_cents"] != float64(75) || m["net_cents"] != float64(2925) {
		t.Fatalf("body = %v", m)
	}
}

func TestSubmitWithdrawal(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "POST", "/api/v1/provider/withdrawals", providerTok,
		`{"amount_cents":3000,"payment_method_id":"`+pmID+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}

	s.wd.submitErr = services.ErrCooldownActive
	w = s.do(t, "POST", "/api/v1/provider/withdrawals", providerTok,
		`{"amount_cents":3000,"payment_method_id":"`+pmID+`"}`)
	if w.Code != http.StatusUnprocessableEntity || decode(t, w)["code"] != "cooldown_active" {
		t.Fatalf("cooldown = %d %s", w.Code, w.Body.String())
	}

	s.wd.submitErr = services.ErrNoPaymentMethod
	w = s.do(t, "POST", "/api/v1/provider/withdrawals", providerTok,
		`{"amount_cents":3000,"payment_method_id":"not-a-uuid"}`)
	if w.Code != http.StatusUnprocessableEntity || decode(t, w)["code"] != "no_payment_method" {
		t.Fatalf("unknown method = %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, "POST", "/api/v1/provider/withdrawals", providerTok, `{"amount":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown field = %d", w.Code)
	}
}

func TestAdminWithdrawalStatus(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "POST", "/api/v1/admin/withdrawals/"+withdrawalID+"/status", adminTok, `{"status":"pending"}`)
	if w.Code != http.StatusBadRequest || decode(t, w)["code"] != "validation_failed" {
		t.Fatalf("pending = %d %s", w.Code, w.Body.String())
	}

	s.wd.statusErr = fmt.Errorf("%w: completed -> failed", repo.ErrInvalidTransition)
	w = s.do(t, "POST", "/api/v1/admin/withdrawals/"+withdrawalID+"/status", adminTok, `{"status":"failed"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("invalid transition = %d", w.Code)
	}

	s.wd.statusErr = repo.ErrNotFound
	w = s.do(t, "POST", "/api/v1/admin/withdrawals/"+withdrawalID+"/status", adminTok, `{"status":"processing"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing = %d", w.Code)
	}
}

func TestPlatformSettingsRoundTrip(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "PUT", "/api/v1/admin/platform-settings", adminTok,
		`{"fee_percentage":3,"min_withdrawal_cents":1000,"max_withdrawal_cents":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put = %d %s", w.Code, w.Body.String())
	}
	if s.wd.settings.FeePercentage != 3 {
		t.Fatalf("settings = %+v", s.wd.settings)
	}
	w = s.do(t, "PUT", "/api/v1/admin/platform-settings", adminTok,
		`{"fee_percentage":120,"min_withdrawal_cents":1000,"max_withdrawal_cents":0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid = %d", w.Code)
	}
}

func TestNotificationOwnership(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, "POST", "/api/v1/notifications/"+notifID+"/read", clientTok, ""); w.Code != http.StatusNoContent {
		t.Fatalf("own = %d", w.Code)
	}
	if w := s.do(t, "POST", "/api/v1/notifications/"+foreignNotif+"/read", clientTok, ""); w.Code != http.StatusNotFound {
		t.Fatalf("other = %d", w.Code)
	}
}

func TestRefundListByOrderFiltersForNonAdmin(t *testing.T) {
	s := newTestServer(t)
	items := func(token string) []any {
		w := s.do(t, "GET", "/api/v1/refunds?order_id="+orderID, token, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		list, _ := decode(t, w)["items"].([]any)
		return list
	}
	if got := len(items(clientTok)); got != 1 {
		t.Fatalf("client sees %d refunds, want 1", got)
	}
	if got := len(items(adminTok)); got != 2 {
		t.Fatalf("admin sees %d refunds, want 2", got)
	}
}

func TestUpdatePaymentMethod(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, "PUT", "/api/v1/provider/payment-methods/"+pmID, providerTok,
		`{"label":"Salary","details":{"iban":"DE00 2"}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d %s", w.Code, w.Body.String())
	}
	if s.pm.updated.Label != "Salary" || s.pm.updated.Details["iban"] != "DE00 2" {
		t.Fatalf("service got %+v", s.pm.updated)
	}

	s.pm.updateErr = services.ErrPaymentMethodInUse
	w = s.do(t, "PUT", "/api/v1/provider/payment-methods/"+pmID, providerTok, `{"label":"Salary"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("in use = %d %s", w.Code, w.Body.String())
	}

	if w := s.do(t, "PUT", "/api/v1/provider/payment-methods/"+pmID, clientTok, `{"label":"x"}`); w.Code != http.StatusForbidden {
		t.Fatalf("client = %d", w.Code)
	}
}

func TestMalformedIDsAreRejected(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
	}{
		{"edit method", "PUT", "/api/v1/provider/payment-methods/pm1", providerTok, `{"label":"x"}`},
		{"default method", "POST", "/api/v1/provider/payment-methods/pm1/default", providerTok, ""},
		{"delete method", "DELETE", "/api/v1/provider/payment-methods/pm1", providerTok, ""},
		{"mark read", "POST", "/api/v1/notifications/n1/read", clientTok, ""},
		{"withdrawal status", "POST", "/api/v1/admin/withdrawals/w1/status", adminTok, `{"status":"processing"}`},
		{"refund status", "POST", "/api/v1/admin/refunds/r1/status", adminTok, `{"status":"approved"}`},
		{"verify method", "POST", "/api/v1/admin/payment-methods/pm1/verify", adminTok, `{"verified":true}`},
		{"refunds by order", "GET", "/api/v1/refunds?order_id=o1", clientTok, ""},
		{"dev token user", "POST", "/api/v1/auth/token", "", `{"user_id":"u9","role":"client"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.token, tt.body)
			if w.Code != http.StatusBadRequest || decode(t, w)["code"] != "validation_failed" {
				t.Fatalf("status = %d %s", w.Code, w.Body.String())
			}
		})
	}
}
