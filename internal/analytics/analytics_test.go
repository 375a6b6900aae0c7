package analytics_test

import (
	"testing"

	"github.com/quotefunnel/quotefunnel/internal/analytics"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapEmitter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := analytics.NewZapEmitter(zap.New(core))

	e.Emit(analytics.EventStepCompleted, map[string]any{"step": 3})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["event"] != analytics.EventStepCompleted {
		t.Errorf("got event %v, want %s", fields["event"], analytics.EventStepCompleted)
	}
	if fields["step"] != int64(3) {
		t.Errorf("got step %v, want 3", fields["step"])
	}
}

func TestNopEmitter(t *testing.T) {
	// Must not panic with nil fields
	analytics.NopEmitter{}.Emit("anything", nil)
}
