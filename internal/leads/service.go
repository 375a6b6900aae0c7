// Package leads implements lead acceptance: server-authoritative
// validation, persistence, conversion attribution and downstream
// distribution. It is the collaborator the form wizard submits to.
package leads

import (
	"context"
	"regexp"
	"time"

	"github.com/quotefunnel/quotefunnel/internal/assign"
	"github.com/quotefunnel/quotefunnel/internal/distribute"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"github.com/quotefunnel/quotefunnel/internal/wizard"
	"go.uber.org/zap"
)

// Meta carries request metadata captured at acceptance time.
type Meta struct {
	SessionID string
	IPAddress string
	UserAgent string
	Referrer  string
}

// Throwaway addresses seen in junk submissions. Matching leads are
// still stored but skipped for distribution.
var fraudPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)test@test\.com`),
	regexp.MustCompile(`(?i)fake@fake\.com`),
	regexp.MustCompile(`(?i)example@example\.com`),
	regexp.MustCompile(`(?i)123@123\.com`),
}

const distributeTimeout = 30 * time.Second

// Service accepts validated submissions and fans them out.
type Service struct {
	store       store.Store
	assigner    *assign.Assigner
	distributor *distribute.Distributor
	notifier    *distribute.Notifier
	logger      *zap.Logger
}

func NewService(st store.Store, assigner *assign.Assigner, distributor *distribute.Distributor, notifier *distribute.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       st,
		assigner:    assigner,
		distributor: distributor,
		notifier:    notifier,
		logger:      logger,
	}
}

// Accept validates the full payload, persists it and kicks off
// conversion attribution, owner notification and network distribution.
// Validation failures are returned as field errors; only persistence
// failures surface as errors. Everything after the insert is
// best-effort and never fails the submission.
func (s *Service) Accept(ctx context.Context, sub *wizard.LeadSubmission, meta Meta) (int64, []wizard.FieldError, error) {
	if errs := wizard.ValidateSubmission(sub); len(errs) > 0 {
		return 0, errs, nil
	}

	suspicious := false
	for _, p := range fraudPatterns {
		if p.MatchString(sub.Email) {
			suspicious = true
			break
		}
	}
	if suspicious {
		s.logger.Warn("suspicious lead detected", zap.String("email", sub.Email))
	}

	lead := &store.Lead{
		Age:                sub.Age,
		State:              sub.State,
		ZipCode:            sub.ZipCode,
		VehicleType:        sub.VehicleType,
		VehicleYear:        sub.VehicleYear,
		HasRecentAccidents: sub.HasRecentAccidents,
		CurrentInsurer:     sub.CurrentInsurer,
		CoverageType:       sub.CoverageType,
		OwnershipStatus:    sub.OwnershipStatus,
		FirstName:          sub.FirstName,
		LastName:           sub.LastName,
		Email:              sub.Email,
		Phone:              sub.Phone,
		IPAddress:          meta.IPAddress,
		UserAgent:          meta.UserAgent,
		Referrer:           meta.Referrer,
		UTMSource:          sub.UTMSource,
		UTMMedium:          sub.UTMMedium,
		UTMCampaign:        sub.UTMCampaign,
	}

	id, err := s.store.CreateLead(ctx, lead)
	if err != nil {
		return 0, nil, err
	}
	lead.ID = id
	lead.CreatedAt = time.Now()

	// Conversion attribution for the session's assigned variant.
	if s.assigner != nil {
		s.assigner.RecordConversion(ctx, meta.SessionID, meta.UserAgent, id)
	}

	if s.notifier != nil {
		go s.notifier.NotifyLead(context.Background(), lead)
	}

	if !suspicious {
		s.distribute(lead)
	}

	return id, nil, nil
}

// distribute sends the lead to CPA networks in the background and
// records the outcome on the lead's status.
func (s *Service) distribute(lead *store.Lead) {
	if s.distributor == nil || !s.distributor.Configured() {
		return
	}
	if violations := distribute.CheckCompliance(lead); len(violations) > 0 {
		s.logger.Warn("lead failed compliance check, not distributing",
			zap.Int64("lead_id", lead.ID), zap.Strings("violations", violations))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), distributeTimeout)
		defer cancel()

		network, err := s.distributor.Distribute(ctx, lead)
		if err != nil {
			s.logger.Warn("lead distribution failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
			if err := s.store.UpdateLeadStatus(ctx, lead.ID, store.LeadStatusFailed, ""); err != nil {
				s.logger.Warn("failed to mark lead failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
			}
			return
		}
		if err := s.store.UpdateLeadStatus(ctx, lead.ID, store.LeadStatusSent, network); err != nil {
			s.logger.Warn("failed to mark lead sent", zap.Int64("lead_id", lead.ID), zap.Error(err))
		}
	}()
}

// AcceptExpress validates and persists a two-field quick quote request.
func (s *Service) AcceptExpress(ctx context.Context, email, phone string, meta Meta) (int64, []wizard.FieldError, error) {
	if errs := wizard.ValidateExpress(email, phone); len(errs) > 0 {
		return 0, errs, nil
	}

	lead := &store.ExpressLead{
		Email:     email,
		Phone:     phone,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	}
	id, err := s.store.CreateExpressLead(ctx, lead)
	if err != nil {
		return 0, nil, err
	}
	lead.ID = id

	if s.notifier != nil {
		go s.notifier.NotifyExpressLead(context.Background(), lead)
	}
	return id, nil, nil
}

// Acceptor adapts the service to the wizard's LeadAcceptor interface
// with fixed request metadata, used by drivers that run the wizard
// in-process.
func (s *Service) Acceptor(meta Meta) wizard.LeadAcceptor {
	return acceptorFunc(func(ctx context.Context, sub *wizard.LeadSubmission) (wizard.AcceptResult, error) {
		id, errs, err := s.Accept(ctx, sub, meta)
		if err != nil {
			return wizard.AcceptResult{}, err
		}
		if len(errs) > 0 {
			// The wizard validated each step already; a rejection here
			// means the payload was tampered with in between.
			return wizard.AcceptResult{Success: false}, nil
		}
		return wizard.AcceptResult{Success: true, LeadID: id}, nil
	})
}

type acceptorFunc func(ctx context.Context, sub *wizard.LeadSubmission) (wizard.AcceptResult, error)

func (f acceptorFunc) SubmitLead(ctx context.Context, sub *wizard.LeadSubmission) (wizard.AcceptResult, error) {
	return f(ctx, sub)
}
