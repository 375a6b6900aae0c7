package store

import "time"

type LeadStatus string

const (
	LeadStatusNew    LeadStatus = "new"
	LeadStatusSent   LeadStatus = "sent"
	LeadStatusFailed LeadStatus = "failed"
)

// EventType distinguishes variant events. A "view" is recorded when a
// session first sees a variant, a "conversion" when that session later
// submits a lead.
type EventType string

const (
	EventView       EventType = "view"
	EventConversion EventType = "conversion"
)

// Variant is one set of landing-page copy eligible for display.
// At most one variant may be the default at any time; the default
// overrides bucketing for every session.
type Variant struct {
	ID          int64
	Name        string
	Headline    string
	Subheadline string
	CTAText     string
	Description string
	IsActive    bool
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VariantEvent is a recorded view or conversion for a session.
// LeadID is set only on conversions.
type VariantEvent struct {
	ID        int64
	VariantID int64
	EventType EventType
	SessionID string
	UserAgent string
	LeadID    *int64
	CreatedAt time.Time
}

// VariantStats aggregates distinct-session views and conversions per variant.
type VariantStats struct {
	VariantID   int64
	Views       int
	Conversions int
}

// Lead is a full quote request: the answers from all ten wizard steps
// plus contact details and request metadata.
type Lead struct {
	ID                 int64
	Age                int
	State              string
	ZipCode            string
	VehicleType        string
	VehicleYear        int
	HasRecentAccidents string // "yes" or "no"
	CurrentInsurer     string
	CoverageType       string
	OwnershipStatus    string // "owned", "financed" or "leased"
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	IPAddress          string
	UserAgent          string
	Referrer           string
	UTMSource          string
	UTMMedium          string
	UTMCampaign        string
	Status             LeadStatus
	SentToNetwork      string
	SentAt             *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ExpressLead is the reduced two-field quote request from the short form.
type ExpressLead struct {
	ID          int64
	Email       string
	Phone       string
	IPAddress   string
	UserAgent   string
	Referrer    string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	Status      string
	CreatedAt   time.Time
}

// ContactMessage is a contact-form submission.
type ContactMessage struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Subject   string
	Message   string
	Status    string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
