package distribute_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quotefunnel/quotefunnel/internal/config"
	"github.com/quotefunnel/quotefunnel/internal/distribute"
	"github.com/quotefunnel/quotefunnel/internal/store"
)

func distributableLead() *store.Lead {
	return &store.Lead{
		ID:                 7,
		Age:                35,
		State:              "PA",
		ZipCode:            "19101",
		VehicleType:        "Sedan",
		VehicleYear:        2020,
		HasRecentAccidents: "no",
		CurrentInsurer:     "State Farm",
		CoverageType:       "Full Coverage",
		OwnershipStatus:    "owned",
		FirstName:          "John",
		LastName:           "Doe",
		Email:              "john@example.com",
		Phone:              "5551234567",
		UTMSource:          "google",
		CreatedAt:          time.Now(),
	}
}

func TestDistribute_SendsSnakeCasePayload(t *testing.T) {
	var gotAuth, gotPartner string
	var payload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPartner = r.Header.Get("X-Partner")
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := distribute.NewDistributor([]config.Network{{
		Name:    "leadnet",
		URL:     srv.URL,
		APIKey:  "secret",
		Headers: map[string]string{"X-Partner": "quotefunnel"},
	}}, nil)

	network, err := d.Distribute(context.Background(), distributableLead())
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if network != "leadnet" {
		t.Errorf("got network %s, want leadnet", network)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("got auth header %q", gotAuth)
	}
	if gotPartner != "quotefunnel" {
		t.Errorf("got partner header %q", gotPartner)
	}

	if payload["first_name"] != "John" || payload["zip_code"] != "19101" {
		t.Errorf("payload keys wrong: %v", payload)
	}
	if payload["has_recent_accidents"] != false {
		t.Errorf("got has_recent_accidents %v, want false", payload["has_recent_accidents"])
	}
	if payload["lead_id"] != float64(7) {
		t.Errorf("got lead_id %v, want 7", payload["lead_id"])
	}
	if _, ok := payload["utm_medium"]; ok {
		t.Error("empty utm_medium should be omitted")
	}
}

func TestDistribute_FirstAcceptingNetworkWins(t *testing.T) {
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer rejecting.Close()
	accepting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer accepting.Close()

	d := distribute.NewDistributor([]config.Network{
		{Name: "rejector", URL: rejecting.URL},
		{Name: "acceptor", URL: accepting.URL},
	}, nil)

	network, err := d.Distribute(context.Background(), distributableLead())
	if err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if network != "acceptor" {
		t.Errorf("got network %s, want acceptor", network)
	}
}

func TestDistribute_AllNetworksReject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := distribute.NewDistributor([]config.Network{
		{Name: "a", URL: srv.URL},
		{Name: "b", URL: ""}, // unconfigured
	}, nil)

	if _, err := d.Distribute(context.Background(), distributableLead()); err == nil {
		t.Fatal("expected error when every network rejects")
	}
}

func TestDistribute_NoNetworksConfigured(t *testing.T) {
	d := distribute.NewDistributor(nil, nil)
	if _, err := d.Distribute(context.Background(), distributableLead()); err == nil {
		t.Fatal("expected error with no networks")
	}
}

func TestDistribute_FansOutInParallel(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := distribute.NewDistributor([]config.Network{
		{Name: "a", URL: srv.URL},
		{Name: "b", URL: srv.URL},
		{Name: "c", URL: srv.URL},
	}, nil)

	if _, err := d.Distribute(context.Background(), distributableLead()); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("got %d webhook calls, want 3", got)
	}
}

func TestCheckCompliance(t *testing.T) {
	if errs := distribute.CheckCompliance(distributableLead()); len(errs) > 0 {
		t.Fatalf("valid lead flagged: %v", errs)
	}

	bad := distributableLead()
	bad.Email = "nope"
	bad.Phone = "123"
	bad.State = "Pennsylvania"

	errs := distribute.CheckCompliance(bad)
	if len(errs) != 3 {
		t.Errorf("got %d violations, want 3: %v", len(errs), errs)
	}
}
