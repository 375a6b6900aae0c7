// Package analytics defines the one-way event sink the funnel emits
// into. Emission is fire-and-forget: Emit never returns an error, never
// blocks on delivery, and callers must not depend on its outcome.
package analytics

import "go.uber.org/zap"

// Event names emitted by the form wizard.
const (
	EventStepCompleted = "form_step_completed"
	EventSubmission    = "form_submitted"
	EventAbandoned     = "form_abandoned"
)

// Emitter receives analytics events.
type Emitter interface {
	Emit(name string, fields map[string]any)
}

// ZapEmitter writes events to a structured log.
type ZapEmitter struct {
	logger *zap.Logger
}

func NewZapEmitter(logger *zap.Logger) *ZapEmitter {
	return &ZapEmitter{logger: logger}
}

func (e *ZapEmitter) Emit(name string, fields map[string]any) {
	zapFields := make([]zap.Field, 0, len(fields)+1)
	zapFields = append(zapFields, zap.String("event", name))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	e.logger.Info("analytics event", zapFields...)
}

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) Emit(string, map[string]any) {}
