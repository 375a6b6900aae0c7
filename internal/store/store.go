package store

import "context"

// Store defines the interface for funnel storage operations
type Store interface {
	// Variant operations
	CreateVariant(ctx context.Context, v *Variant) (*Variant, error)
	GetVariant(ctx context.Context, id int64) (*Variant, error)
	ListVariants(ctx context.Context) ([]*Variant, error)
	GetActiveVariants(ctx context.Context) ([]*Variant, error)
	GetDefaultVariant(ctx context.Context) (*Variant, error)
	UpdateVariant(ctx context.Context, v *Variant) error
	SetVariantActive(ctx context.Context, id int64, active bool) error
	SetDefaultVariant(ctx context.Context, id int64) error
	ClearDefaultVariant(ctx context.Context) error
	DeleteVariant(ctx context.Context, id int64) error

	// Variant event operations
	RecordVariantEvent(ctx context.Context, variantID int64, eventType EventType, sessionID, userAgent string, leadID *int64) error
	GetVariantStats(ctx context.Context) ([]VariantStats, error)
	GetVariantEvents(ctx context.Context, variantID int64) ([]*VariantEvent, error)

	// Lead operations
	CreateLead(ctx context.Context, lead *Lead) (int64, error)
	GetLead(ctx context.Context, id int64) (*Lead, error)
	ListLeads(ctx context.Context, limit int) ([]*Lead, error)
	UpdateLeadStatus(ctx context.Context, id int64, status LeadStatus, network string) error

	// Express lead operations
	CreateExpressLead(ctx context.Context, lead *ExpressLead) (int64, error)
	ListExpressLeads(ctx context.Context, limit int) ([]*ExpressLead, error)

	// Contact messages
	CreateContactMessage(ctx context.Context, msg *ContactMessage) (int64, error)

	// Lifecycle
	Close() error
}
