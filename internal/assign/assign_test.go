package assign_test

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/quotefunnel/quotefunnel/internal/assign"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"github.com/quotefunnel/quotefunnel/internal/testutil"
)

func seedVariants(t *testing.T, s *store.SQLiteStore, n int) []*store.Variant {
	t.Helper()
	variants := make([]*store.Variant, 0, n)
	for i := 0; i < n; i++ {
		v := testutil.SeedVariant(t, s, fmt.Sprintf("variant-%d", i), fmt.Sprintf("Headline %d", i))
		variants = append(variants, v)
	}
	return variants
}

func TestHashSessionID_Stable(t *testing.T) {
	tests := []struct {
		in string
	}{
		{"s_1700000000000_abcdef123456"},
		{"s_1700000000001_000000000000"},
		{""},
		{"short"},
	}
	for _, tt := range tests {
		a := assign.HashSessionID(tt.in)
		b := assign.HashSessionID(tt.in)
		if a != b {
			t.Errorf("hash of %q not stable: %d != %d", tt.in, a, b)
		}
	}

	if assign.HashSessionID("a") == assign.HashSessionID("b") {
		t.Error("distinct ids should land on distinct hashes here")
	}
}

func TestAssign_Deterministic(t *testing.T) {
	s := testutil.SetupTestStore(t)
	seedVariants(t, s, 4)
	a := assign.New(s, s, nil)
	ctx := context.Background()

	sessionID := "s_1700000000000_abcdef123456"
	first, err := a.Assign(ctx, sessionID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if first == nil {
		t.Fatal("expected a variant")
	}

	for i := 0; i < 100; i++ {
		v, err := a.Assign(ctx, sessionID)
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		if v.ID != first.ID {
			t.Fatalf("call %d: got variant %d, want %d", i, v.ID, first.ID)
		}
	}
}

func TestAssign_Distribution(t *testing.T) {
	s := testutil.SetupTestStore(t)
	variants := seedVariants(t, s, 4)
	a := assign.New(s, s, nil)
	ctx := context.Background()

	counts := make(map[int64]int)
	const n = 10000
	for i := 0; i < n; i++ {
		v, err := a.Assign(ctx, fmt.Sprintf("s_170000000%04d_%012d", i, i*7919))
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		counts[v.ID]++
	}

	// Roughly uniform: each of 4 variants within 25% ± 5%
	for _, v := range variants {
		share := float64(counts[v.ID]) / n
		if share < 0.20 || share > 0.30 {
			t.Errorf("variant %d got %.1f%% of sessions, want ~25%%", v.ID, share*100)
		}
	}
}

func TestAssign_NoActiveVariants(t *testing.T) {
	s := testutil.SetupTestStore(t)
	a := assign.New(s, s, nil)

	v, err := a.Assign(context.Background(), "s_1_x")
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if v != nil {
		t.Errorf("got variant %v, want nil", v)
	}
}

func TestAssign_SingleActiveVariant(t *testing.T) {
	s := testutil.SetupTestStore(t)
	only := testutil.SeedVariant(t, s, "only", "The One")
	a := assign.New(s, s, nil)

	for _, sid := range []string{"s_1_a", "s_2_b", "s_3_c"} {
		v, err := a.Assign(context.Background(), sid)
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		if v == nil || v.ID != only.ID {
			t.Errorf("session %s: got %v, want variant %d", sid, v, only.ID)
		}
	}
}

func TestAssign_DefaultOverridesBucketing(t *testing.T) {
	s := testutil.SetupTestStore(t)
	variants := seedVariants(t, s, 4)
	ctx := context.Background()

	promoted := variants[2]
	if err := s.SetDefaultVariant(ctx, promoted.ID); err != nil {
		t.Fatalf("failed to set default: %v", err)
	}

	a := assign.New(s, s, nil)
	for i := 0; i < 200; i++ {
		v, err := a.Assign(ctx, fmt.Sprintf("s_%d_x", i))
		if err != nil {
			t.Fatalf("assign failed: %v", err)
		}
		if v == nil || v.ID != promoted.ID {
			t.Fatalf("session %d: got %v, want default variant %d for every session", i, v, promoted.ID)
		}
	}
}

func TestAssignAndRecordView_RecordsExactlyOneView(t *testing.T) {
	s := testutil.SetupTestStore(t)
	seedVariants(t, s, 4)
	a := assign.New(s, s, nil)
	ctx := context.Background()

	sessionID := "s_1700000000000_repeatrender"
	var assigned *store.Variant
	for i := 0; i < 100; i++ {
		v := a.AssignAndRecordView(ctx, sessionID, "test-agent")
		if v == nil {
			t.Fatal("expected a variant")
		}
		if assigned == nil {
			assigned = v
		} else if v.ID != assigned.ID {
			t.Fatalf("render %d: got variant %d, want %d", i, v.ID, assigned.ID)
		}
	}

	events, err := s.GetVariantEvents(ctx, assigned.ID)
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	views := 0
	for _, e := range events {
		if e.EventType == store.EventView && e.SessionID == sessionID {
			views++
		}
	}
	if views != 1 {
		t.Errorf("got %d view events, want exactly 1", views)
	}
}

func TestRecordConversion_AttributesToAssignedVariant(t *testing.T) {
	s := testutil.SetupTestStore(t)
	seedVariants(t, s, 4)
	a := assign.New(s, s, nil)
	ctx := context.Background()

	sessionID := "s_1700000000000_converter000"
	assigned := a.AssignAndRecordView(ctx, sessionID, "test-agent")
	if assigned == nil {
		t.Fatal("expected a variant")
	}

	a.RecordConversion(ctx, sessionID, "test-agent", 42)
	a.RecordConversion(ctx, sessionID, "test-agent", 42) // dedup at the store

	events, err := s.GetVariantEvents(ctx, assigned.ID)
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	conversions := 0
	for _, e := range events {
		if e.EventType == store.EventConversion && e.SessionID == sessionID {
			conversions++
			if e.LeadID == nil || *e.LeadID != 42 {
				t.Errorf("conversion lead id: got %v, want 42", e.LeadID)
			}
		}
	}
	if conversions != 1 {
		t.Errorf("got %d conversion events, want exactly 1", conversions)
	}
}

func TestRecordConversion_EmptySessionIsNoop(t *testing.T) {
	s := testutil.SetupTestStore(t)
	v := seedVariants(t, s, 1)[0]
	a := assign.New(s, s, nil)
	ctx := context.Background()

	a.RecordConversion(ctx, "", "test-agent", 1)

	events, err := s.GetVariantEvents(ctx, v.ID)
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestNewSessionID_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^s_\d+_[0-9a-f]{12}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := assign.NewSessionID()
		if !pattern.MatchString(id) {
			t.Fatalf("session id %q does not match expected shape", id)
		}
		if strings.Contains(id, "-") {
			t.Fatalf("session id %q contains a dash", id)
		}
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}
