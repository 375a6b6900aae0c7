// Package assign deterministically buckets visitor sessions into
// landing-page variants and records view and conversion events against
// the chosen variant.
package assign

import (
	"context"
	"fmt"

	"github.com/quotefunnel/quotefunnel/internal/store"
	"go.uber.org/zap"
)

// VariantSource is the read side of the variant store the assigner
// depends on.
type VariantSource interface {
	GetDefaultVariant(ctx context.Context) (*store.Variant, error)
	GetActiveVariants(ctx context.Context) ([]*store.Variant, error)
}

// EventSink records view and conversion events. Recording is
// best-effort from the assigner's perspective.
type EventSink interface {
	RecordVariantEvent(ctx context.Context, variantID int64, eventType store.EventType, sessionID, userAgent string, leadID *int64) error
}

// Assigner selects exactly one variant per session.
type Assigner struct {
	source VariantSource
	events EventSink
	logger *zap.Logger
}

func New(source VariantSource, events EventSink, logger *zap.Logger) *Assigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assigner{source: source, events: events, logger: logger}
}

// Assign picks the variant for a session:
//
//  1. A default variant, when set, wins for every session. This is a
//     global override, not a per-session choice.
//  2. Otherwise the active set decides: empty means no variant (the
//     caller falls back to its static copy), a single active variant is
//     chosen outright, and multiple active variants are bucketed by a
//     stable hash of the session id.
//
// The selection is re-derivable from the session id and the variant set
// alone; nothing about it needs to be persisted to replay it.
func (a *Assigner) Assign(ctx context.Context, sessionID string) (*store.Variant, error) {
	def, err := a.source.GetDefaultVariant(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read default variant: %w", err)
	}
	if def != nil {
		return def, nil
	}

	active, err := a.source.GetActiveVariants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read active variants: %w", err)
	}
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		return active[0], nil
	}

	idx := int(HashSessionID(sessionID) % uint32(len(active)))
	return active[idx], nil
}

// AssignAndRecordView assigns a variant and records the session's view
// event. The store deduplicates per session, so repeated renders within
// a visit record at most one view. A failing variant read degrades to
// "no variant" so page rendering is never blocked; a failing event
// write is logged and swallowed.
func (a *Assigner) AssignAndRecordView(ctx context.Context, sessionID, userAgent string) *store.Variant {
	variant, err := a.Assign(ctx, sessionID)
	if err != nil {
		a.logger.Warn("variant assignment unavailable, falling back to static copy",
			zap.String("session_id", sessionID), zap.Error(err))
		return nil
	}
	if variant == nil {
		return nil
	}

	if err := a.events.RecordVariantEvent(ctx, variant.ID, store.EventView, sessionID, userAgent, nil); err != nil {
		a.logger.Warn("failed to record variant view",
			zap.Int64("variant_id", variant.ID), zap.String("session_id", sessionID), zap.Error(err))
	}
	return variant
}

// RecordConversion records the conversion event for a session that
// submitted a lead. The variant is re-derived from the session id; a
// session with no assigned variant records nothing. Failures are logged
// and never surfaced to the submission flow.
func (a *Assigner) RecordConversion(ctx context.Context, sessionID, userAgent string, leadID int64) {
	if sessionID == "" {
		return
	}

	variant, err := a.Assign(ctx, sessionID)
	if err != nil || variant == nil {
		if err != nil {
			a.logger.Warn("skipping conversion, assignment unavailable",
				zap.String("session_id", sessionID), zap.Error(err))
		}
		return
	}

	if err := a.events.RecordVariantEvent(ctx, variant.ID, store.EventConversion, sessionID, userAgent, &leadID); err != nil {
		a.logger.Warn("failed to record variant conversion",
			zap.Int64("variant_id", variant.ID), zap.Int64("lead_id", leadID), zap.Error(err))
	}
}

// HashSessionID computes a stable 32-bit hash of a session id. The same
// id always yields the same value, and distinct ids spread roughly
// uniformly across buckets.
func HashSessionID(sessionID string) uint32 {
	var h int32
	for _, c := range sessionID {
		h = (h << 5) - h + int32(c)
	}
	if h < 0 {
		// Mirror of two's-complement abs; MinInt32 maps to itself,
		// which is fine for bucketing.
		h = -h
	}
	return uint32(h)
}
