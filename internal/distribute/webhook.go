// Package distribute pushes accepted leads downstream: webhook fan-out
// to CPA networks and owner notifications. Everything here is invoked
// after persistence and never blocks or fails the visitor-facing flow.
package distribute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/quotefunnel/quotefunnel/internal/config"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"go.uber.org/zap"
)

const webhookTimeout = 10 * time.Second

// Distributor sends leads to the configured CPA networks.
type Distributor struct {
	networks []config.Network
	client   *http.Client
	logger   *zap.Logger
}

func NewDistributor(networks []config.Network, logger *zap.Logger) *Distributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Distributor{
		networks: networks,
		client:   &http.Client{Timeout: webhookTimeout},
		logger:   logger,
	}
}

// Configured reports whether any network targets exist. With none, a
// lead simply stays in its stored state.
func (d *Distributor) Configured() bool {
	return len(d.networks) > 0
}

// networkPayload is the snake_case shape CPA networks expect.
type networkPayload struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	State              string `json:"state"`
	ZipCode            string `json:"zip_code"`
	VehicleType        string `json:"vehicle_type"`
	VehicleYear        int    `json:"vehicle_year"`
	OwnershipStatus    string `json:"ownership_status"`
	CurrentInsurer     string `json:"current_insurer"`
	CoverageType       string `json:"coverage_type"`
	HasRecentAccidents bool   `json:"has_recent_accidents"`
	Age                int    `json:"age"`
	IPAddress          string `json:"ip_address,omitempty"`
	UserAgent          string `json:"user_agent,omitempty"`
	Referrer           string `json:"referrer,omitempty"`
	UTMSource          string `json:"utm_source,omitempty"`
	UTMMedium          string `json:"utm_medium,omitempty"`
	UTMCampaign        string `json:"utm_campaign,omitempty"`
	LeadID             int64  `json:"lead_id"`
	CreatedAt          string `json:"created_at"`
}

func payloadFromLead(lead *store.Lead) networkPayload {
	return networkPayload{
		FirstName:          lead.FirstName,
		LastName:           lead.LastName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		State:              lead.State,
		ZipCode:            lead.ZipCode,
		VehicleType:        lead.VehicleType,
		VehicleYear:        lead.VehicleYear,
		OwnershipStatus:    lead.OwnershipStatus,
		CurrentInsurer:     lead.CurrentInsurer,
		CoverageType:       lead.CoverageType,
		HasRecentAccidents: lead.HasRecentAccidents == "yes",
		Age:                lead.Age,
		IPAddress:          lead.IPAddress,
		UserAgent:          lead.UserAgent,
		Referrer:           lead.Referrer,
		UTMSource:          lead.UTMSource,
		UTMMedium:          lead.UTMMedium,
		UTMCampaign:        lead.UTMCampaign,
		LeadID:             lead.ID,
		CreatedAt:          lead.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Distribute sends the lead to every configured network in parallel and
// returns the name of the first network that accepted it. An error is
// returned only when no network accepted the lead.
func (d *Distributor) Distribute(ctx context.Context, lead *store.Lead) (string, error) {
	if len(d.networks) == 0 {
		return "", fmt.Errorf("no networks configured")
	}

	type outcome struct {
		network string
		err     error
	}

	results := make([]outcome, len(d.networks))
	var wg sync.WaitGroup
	for i, network := range d.networks {
		if network.URL == "" {
			results[i] = outcome{network: network.Name, err: fmt.Errorf("no webhook URL configured")}
			continue
		}
		wg.Add(1)
		go func(i int, network config.Network) {
			defer wg.Done()
			results[i] = outcome{network: network.Name, err: d.send(ctx, network, lead)}
		}(i, network)
	}
	wg.Wait()

	accepted := ""
	for _, r := range results {
		if r.err != nil {
			d.logger.Warn("network rejected lead",
				zap.Int64("lead_id", lead.ID), zap.String("network", r.network), zap.Error(r.err))
			continue
		}
		d.logger.Info("lead delivered to network",
			zap.Int64("lead_id", lead.ID), zap.String("network", r.network))
		if accepted == "" {
			accepted = r.network
		}
	}

	if accepted == "" {
		return "", fmt.Errorf("all %d networks rejected lead %d", len(d.networks), lead.ID)
	}
	return accepted, nil
}

func (d *Distributor) send(ctx context.Context, network config.Network, lead *store.Lead) error {
	body, err := json.Marshal(payloadFromLead(lead))
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, network.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range network.Headers {
		req.Header.Set(k, v)
	}
	if network.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+network.APIKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// CheckCompliance verifies a persisted lead meets the baseline CPA
// network requirements before distribution. Returns the list of
// violations; empty means distributable.
func CheckCompliance(lead *store.Lead) []string {
	var errs []string

	if lead.Email == "" || !strings.Contains(lead.Email, "@") {
		errs = append(errs, "invalid email address")
	}
	if len(lead.Phone) < 10 {
		errs = append(errs, "invalid phone number")
	}
	if lead.Age < 16 || lead.Age > 100 {
		errs = append(errs, "invalid age")
	}
	if len(lead.ZipCode) < 5 {
		errs = append(errs, "invalid ZIP code")
	}
	if len(lead.State) != 2 {
		errs = append(errs, "invalid state")
	}
	if lead.FirstName == "" || lead.LastName == "" {
		errs = append(errs, "missing name information")
	}
	if lead.VehicleType == "" || lead.VehicleYear == 0 {
		errs = append(errs, "missing vehicle information")
	}

	return errs
}
