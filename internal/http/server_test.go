package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"riyalmind/internal/auth"
	"riyalmind/internal/service"
	"riyalmind/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	tokens := auth.NewJWTManager("test-secret-at-least-32-bytes-long", time.Hour)
	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(repo), tokens)
	expenseSvc := service.NewExpenseService(repo, nil)
	ledgerSvc := service.NewLedgerService(repo, nil)

	srv := NewServer(":0", authSvc, expenseSvc, ledgerSvc)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// registerUser creates an account and returns (userID, token).
func registerUser(t *testing.T, srv *Server, email string) (string, string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/auth/register", "", map[string]string{
		"email":        email,
		"display_name": email,
		"password":     "a long enough password",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		User  struct{ ID string }
		Token string
	}
	decodeBody(t, rec, &resp)
	return resp.User.ID, resp.Token
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	_, token := registerUser(t, srv, "sara@example.com")
	if token == "" {
		t.Fatal("expected a session token from register")
	}

	rec := doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "sara@example.com", "password": "a long enough password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "sara@example.com", "password": "wrong password here",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}

	// Protected routes reject missing and garbage tokens.
	rec = doJSON(t, srv, http.MethodGet, "/expenses", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/expenses", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", rec.Code)
	}
}

func TestPersonalExpenseFlow(t *testing.T) {
	srv := newTestServer(t)
	_, token := registerUser(t, srv, "solo@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/expenses", token, map[string]string{
		"date": "2026-08-10", "description": "Coffee", "amount": "3.50", "category": "Dining",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, "/expenses", token, map[string]string{
		"date": "2026-08-10", "description": "Coffee", "amount": "-3.50",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative amount status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/expenses?year=2026&month=8", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []struct {
		Description string `json:"description"`
		AmountCents int64  `json:"amount_cents"`
	}
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].AmountCents != 350 {
		t.Errorf("list = %+v", list)
	}

	rec = doJSON(t, srv, http.MethodGet, "/overview?year=2026&month=8", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview status = %d", rec.Code)
	}
	var overview struct {
		TotalCents int64 `json:"total_cents"`
	}
	decodeBody(t, rec, &overview)
	if overview.TotalCents != 350 {
		t.Errorf("overview total = %d, want 350", overview.TotalCents)
	}
}

func TestGroupLedgerFlow(t *testing.T) {
	srv := newTestServer(t)

	aliceID, aliceToken := registerUser(t, srv, "alice@example.com")
	bobID, bobToken := registerUser(t, srv, "bob@example.com")
	_, eveToken := registerUser(t, srv, "eve@example.com")

	// Alice creates the flat group and invites Bob.
	rec := doJSON(t, srv, http.MethodPost, "/groups", aliceToken, map[string]string{
		"name": "Flat 12", "type": "roommates",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d body %s", rec.Code, rec.Body.String())
	}
	var group struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &group)

	rec = doJSON(t, srv, http.MethodPost, "/groups/"+group.ID+"/members", aliceToken, map[string]any{
		"user_id": bobID, "share_percentage": 50,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member status = %d body %s", rec.Code, rec.Body.String())
	}

	// Bob cannot invite; he is not an admin.
	rec = doJSON(t, srv, http.MethodPost, "/groups/"+group.ID+"/members", bobToken, map[string]any{
		"user_id": aliceID,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin invite status = %d, want 403", rec.Code)
	}

	// Alice fronts 100.00 split equally.
	rec = doJSON(t, srv, http.MethodPost, "/groups/"+group.ID+"/expenses", aliceToken, map[string]string{
		"amount": "100.00", "description": "Utilities", "split_type": "equal", "date": "2026-08-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add expense status = %d body %s", rec.Code, rec.Body.String())
	}

	// Eve is not a member and cannot read the report.
	rec = doJSON(t, srv, http.MethodGet, "/groups/"+group.ID+"/report", eveToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider report status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/groups/"+group.ID+"/report", bobToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d body %s", rec.Code, rec.Body.String())
	}
	var report struct {
		Balances    map[string]int64 `json:"balances"`
		NetBalances map[string]int64 `json:"net_balances"`
		Repayments  []struct {
			From        string `json:"from"`
			To          string `json:"to"`
			AmountCents int64  `json:"amount_cents"`
		} `json:"repayments"`
	}
	decodeBody(t, rec, &report)
	if report.Balances[aliceID] != 5000 || report.Balances[bobID] != -5000 {
		t.Errorf("balances = %v, want alice +5000 bob -5000", report.Balances)
	}
	if len(report.Repayments) != 1 || report.Repayments[0].From != bobID || report.Repayments[0].AmountCents != 5000 {
		t.Errorf("repayments = %+v", report.Repayments)
	}

	// Bob settles his 50.00 debt.
	rec = doJSON(t, srv, http.MethodPost, "/groups/"+group.ID+"/settlements", bobToken, map[string]string{
		"from_user_id": bobID, "to_user_id": aliceID, "amount": "50.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("settle status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/groups/"+group.ID+"/report", aliceToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report after settle status = %d", rec.Code)
	}
	decodeBody(t, rec, &report)
	// Raw balances are untouched by the settlement; net balances are zeroed.
	if report.Balances[bobID] != -5000 {
		t.Errorf("raw bob balance after settle = %d, want -5000", report.Balances[bobID])
	}
	if report.NetBalances[bobID] != 0 || report.NetBalances[aliceID] != 0 {
		t.Errorf("net balances after settle = %v, want zeros", report.NetBalances)
	}
	if len(report.Repayments) != 0 {
		t.Errorf("repayments after settle = %+v, want none", report.Repayments)
	}

	// Unknown group answers 404.
	rec = doJSON(t, srv, http.MethodGet, "/groups/nope/report", aliceToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing group status = %d, want 404", rec.Code)
	}
}

func TestGroupExpenseCustomSplitRejected(t *testing.T) {
	srv := newTestServer(t)

	aliceID, aliceToken := registerUser(t, srv, "alice@example.com")
	bobID, _ := registerUser(t, srv, "bob@example.com")

	rec := doJSON(t, srv, http.MethodPost, "/groups", aliceToken, map[string]string{
		"name": "Trip", "type": "friends",
	})
	var group struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &group)
	doJSON(t, srv, http.MethodPost, "/groups/"+group.ID+"/members", aliceToken, map[string]any{"user_id": bobID})

	// Splits that do not add up to the total are rejected.
	rec = doJSON(t, srv, http.MethodPost, "/groups/"+group.ID+"/expenses", aliceToken, map[string]any{
		"amount": "100.00", "split_type": "custom",
		"splits": []map[string]string{
			{"user_id": aliceID, "amount": "40.00"},
			{"user_id": bobID, "amount": "50.00"},
		},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("mismatched custom split status = %d, want 422", rec.Code)
	}
}
