package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quotefunnel/quotefunnel/internal/assign"
	"github.com/quotefunnel/quotefunnel/internal/config"
	"github.com/quotefunnel/quotefunnel/internal/server"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"github.com/quotefunnel/quotefunnel/internal/testutil"
)

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	s := testutil.SetupTestStore(t)
	cfg := config.Default()
	cfg.RedirectURL = "https://quotes.example.com/thanks"
	return server.New(s, cfg, nil, "")
}

func postJSON(t *testing.T, handler http.Handler, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func validLeadBody() map[string]any {
	return map[string]any{
		"age": 35, "state": "PA", "zipCode": "19101",
		"vehicleType": "Sedan", "vehicleYear": 2020,
		"hasRecentAccidents": "no", "currentInsurer": "State Farm",
		"coverageType": "Full Coverage", "ownershipStatus": "owned",
		"firstName": "John", "lastName": "Doe",
		"email": "john@example.com", "phone": "5551234567",
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("got status %v, want ok", resp["status"])
	}
}

func TestVariantEndpoint_NewVisitorGetsSessionCookie(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/variant", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}

	var resp struct {
		SessionID string          `json:"session_id"`
		Variant   json.RawMessage `json:"variant"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.SessionID, "s_") {
		t.Errorf("got session id %q", resp.SessionID)
	}
	if string(resp.Variant) != "null" {
		t.Errorf("got variant %s, want null with no variants configured", resp.Variant)
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == assign.SessionKey && c.Value == resp.SessionID {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}
}

func TestVariantEndpoint_StableAcrossRequests(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 4; i++ {
		testutil.SeedVariant(t, srv.Store(), fmt.Sprintf("v%d", i), fmt.Sprintf("H%d", i))
	}

	sessionCookie := &http.Cookie{Name: assign.SessionKey, Value: "s_1700000000000_stablecheck"}

	var firstID float64
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/variant", nil)
		req.AddCookie(sessionCookie)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)

		var resp struct {
			SessionID string         `json:"session_id"`
			Variant   map[string]any `json:"variant"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.SessionID != sessionCookie.Value {
			t.Errorf("got session %s, want cookie value", resp.SessionID)
		}
		if resp.Variant == nil {
			t.Fatal("expected a variant")
		}
		id := resp.Variant["id"].(float64)
		if i == 0 {
			firstID = id
		} else if id != firstID {
			t.Fatalf("request %d: got variant %v, want %v", i, id, firstID)
		}
	}

	// Repeated renders record one view
	events, err := srv.Store().GetVariantEvents(context.Background(), int64(firstID))
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	views := 0
	for _, e := range events {
		if e.EventType == store.EventView {
			views++
		}
	}
	if views != 1 {
		t.Errorf("got %d views, want 1", views)
	}
}

func TestVariantEndpoint_SessionQueryParam(t *testing.T) {
	srv := newTestServer(t)
	testutil.SeedVariant(t, srv.Store(), "only", "The One")

	req := httptest.NewRequest(http.MethodGet, "/api/variant?session=s_1_queryparam", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != "s_1_queryparam" {
		t.Errorf("got session %s, want query param value", resp.SessionID)
	}
}

func TestBeacon_Preflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/b", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestBeacon_Events(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		body       map[string]any
		wantStatus int
	}{
		{map[string]any{"e": "form_step_completed", "sid": "s_1_x", "step": 3, "step_name": "ZIP Code"}, http.StatusNoContent},
		{map[string]any{"e": "form_abandoned", "sid": "s_1_x", "step": 5}, http.StatusNoContent},
		{map[string]any{"e": "form_submitted", "sid": "s_1_x", "lead_id": 7}, http.StatusNoContent},
		{map[string]any{"e": "bogus_event", "sid": "s_1_x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := postJSON(t, srv.Handler(), "/b", tt.body)
		if w.Code != tt.wantStatus {
			t.Errorf("event %v: got status %d, want %d", tt.body["e"], w.Code, tt.wantStatus)
		}
	}
}

func TestBeacon_InvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/b", strings.NewReader("{nope"))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}

func TestLeadSubmit_Accepted(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.Handler(), "/api/leads", validLeadBody())
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success     bool   `json:"success"`
		LeadID      int64  `json:"leadId"`
		RedirectURL string `json:"redirectUrl"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success || resp.LeadID == 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.RedirectURL != "https://quotes.example.com/thanks" {
		t.Errorf("got redirect %s", resp.RedirectURL)
	}

	lead, err := srv.Store().GetLead(context.Background(), resp.LeadID)
	if err != nil {
		t.Fatalf("lead not persisted: %v", err)
	}
	if lead.Email != "john@example.com" {
		t.Errorf("lead mangled: %+v", lead)
	}
}

func TestLeadSubmit_ValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	body := validLeadBody()
	body["age"] = 15
	body["email"] = "bad"

	w := postJSON(t, srv.Handler(), "/api/leads", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Errors  []struct {
			Field string `json:"field"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if len(resp.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %+v", len(resp.Errors), resp.Errors)
	}
}

func TestLeadSubmit_RecordsConversionForSession(t *testing.T) {
	srv := newTestServer(t)
	v := testutil.SeedVariant(t, srv.Store(), "only", "The One")

	sessionCookie := &http.Cookie{Name: assign.SessionKey, Value: "s_1700000000000_converter000"}

	// Visitor sees the landing page first
	req := httptest.NewRequest(http.MethodGet, "/api/variant", nil)
	req.AddCookie(sessionCookie)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	w := postJSON(t, srv.Handler(), "/api/leads", validLeadBody(), sessionCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}

	events, err := srv.Store().GetVariantEvents(context.Background(), v.ID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	conversions := 0
	for _, e := range events {
		if e.EventType == store.EventConversion {
			conversions++
		}
	}
	if conversions != 1 {
		t.Errorf("got %d conversions, want 1", conversions)
	}
}

func TestExpressSubmit(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.Handler(), "/api/leads/express", map[string]string{
		"email": "quick@example.com", "phone": "5559876543",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}

	w = postJSON(t, srv.Handler(), "/api/leads/express", map[string]string{
		"email": "bad", "phone": "1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}

func TestContact(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.Handler(), "/api/contact", map[string]string{
		"name": "Jane", "email": "jane@example.com",
		"message": "How do I cancel my quote request?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", w.Code, w.Body.String())
	}

	// Message too short
	w = postJSON(t, srv.Handler(), "/api/contact", map[string]string{
		"name": "Jane", "email": "jane@example.com", "message": "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}

func TestDashboard_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/dashboard?token=wrong", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401 for wrong token", w.Code)
	}
}

func TestDashboard_TokenFlow(t *testing.T) {
	srv := newTestServer(t)

	// Query token sets the cookie and redirects without the param
	req := httptest.NewRequest(http.MethodGet, "/dashboard?token="+srv.Token(), nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("got status %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); strings.Contains(loc, "token=") {
		t.Errorf("redirect must strip the token param, got %s", loc)
	}

	var tokenCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "qf_token" {
			tokenCookie = c
		}
	}
	if tokenCookie == nil {
		t.Fatal("expected token cookie")
	}

	// Cookie grants access
	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(tokenCookie)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "quotefunnel") {
		t.Error("dashboard body missing expected content")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// Generate some metric samples
	postJSON(t, srv.Handler(), "/api/leads", validLeadBody())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "quotefunnel_leads_accepted_total") {
		t.Errorf("metrics output missing lead counter:\n%s", body)
	}
}
