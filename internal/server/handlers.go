package server

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/quotefunnel/quotefunnel/internal/analytics"
	"github.com/quotefunnel/quotefunnel/internal/assign"
	"github.com/quotefunnel/quotefunnel/internal/leads"
	"github.com/quotefunnel/quotefunnel/internal/store"
	"github.com/quotefunnel/quotefunnel/internal/wizard"
	"go.uber.org/zap"
)

type HealthResponse struct {
	Status        string `json:"status"`
	VariantCount  int    `json:"variant_count"`
	LeadCount     int    `json:"lead_count"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	variants, err := s.store.ListVariants(ctx)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var leadCount int
	if err := s.store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&leadCount); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var dbSize int64
	row := s.store.DB().QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
	if err := row.Scan(&dbSize); err != nil {
		if info, statErr := os.Stat(s.cfg.DBPath); statErr == nil {
			dbSize = info.Size()
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		VariantCount:  len(variants),
		LeadCount:     leadCount,
		DBSizeBytes:   dbSize,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	})
}

// VariantResponse is the assignment returned to the landing page. A
// null variant means the caller should render its static default copy.
type VariantResponse struct {
	SessionID string       `json:"session_id"`
	Variant   *variantBody `json:"variant"`
}

type variantBody struct {
	ID          int64  `json:"id"`
	Headline    string `json:"headline"`
	Subheadline string `json:"subheadline,omitempty"`
	CTAText     string `json:"cta_text"`
}

// handleVariant assigns (or re-derives) the variant for the caller's
// session and records the view. The session id comes from the session
// cookie or the ?session query param; a brand new visitor gets a fresh
// id and the cookie set here.
func (s *Server) handleVariant(w http.ResponseWriter, r *http.Request) {
	sessionID := s.sessionID(r)
	if sessionID == "" {
		sessionID = assign.NewSessionID()
		http.SetCookie(w, &http.Cookie{
			Name:     assign.SessionKey,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(365 * 24 * time.Hour / time.Second),
			SameSite: http.SameSiteLaxMode,
		})
	}

	variant := s.assigner.AssignAndRecordView(r.Context(), sessionID, r.UserAgent())

	resp := VariantResponse{SessionID: sessionID}
	if variant != nil {
		s.metrics.VariantViews.WithLabelValues(variantLabel(variant.ID)).Inc()
		resp.Variant = &variantBody{
			ID:          variant.ID,
			Headline:    variant.Headline,
			Subheadline: variant.Subheadline,
			CTAText:     variant.CTAText,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// BeaconRequest is a fire-and-forget analytics event from the form
// wizard. The endpoint never reports delivery problems to the client.
type BeaconRequest struct {
	Event     string `json:"e"`
	SessionID string `json:"sid"`
	Step      int    `json:"step,omitempty"`
	StepName  string `json:"step_name,omitempty"`
	LeadID    int64  `json:"lead_id,omitempty"`
}

func (s *Server) handleBeacon(w http.ResponseWriter, r *http.Request) {
	// CORS headers, the beacon may come from a separately hosted page
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req BeaconRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	switch req.Event {
	case analytics.EventStepCompleted:
		s.metrics.FormSteps.WithLabelValues(stepLabel(req.Step)).Inc()
		s.emitter.Emit(req.Event, map[string]any{
			"step": req.Step, "step_name": req.StepName, "session_id": req.SessionID,
		})
	case analytics.EventAbandoned:
		s.metrics.FormAbandoned.WithLabelValues(stepLabel(req.Step)).Inc()
		s.emitter.Emit(req.Event, map[string]any{
			"step": req.Step, "step_name": req.StepName, "session_id": req.SessionID,
		})
	case analytics.EventSubmission:
		s.emitter.Emit(req.Event, map[string]any{
			"lead_id": req.LeadID, "session_id": req.SessionID,
		})
	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LeadSubmitRequest is the acceptance payload: the wizard's submission
// plus the session id for conversion attribution.
type LeadSubmitRequest struct {
	wizard.LeadSubmission
	SessionID string `json:"sessionId,omitempty"`
}

type LeadSubmitResponse struct {
	Success     bool                `json:"success"`
	LeadID      int64               `json:"leadId,omitempty"`
	RedirectURL string              `json:"redirectUrl,omitempty"`
	Errors      []wizard.FieldError `json:"errors,omitempty"`
}

func (s *Server) handleLeadSubmit(w http.ResponseWriter, r *http.Request) {
	var req LeadSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	meta := s.requestMeta(r, req.SessionID)
	id, fieldErrs, err := s.leads.Accept(r.Context(), &req.LeadSubmission, meta)
	if err != nil {
		s.logger.Error("lead acceptance failed", zap.Error(err))
		s.metrics.LeadsAccepted.WithLabelValues("error").Inc()
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(fieldErrs) > 0 {
		s.metrics.LeadsAccepted.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, LeadSubmitResponse{Success: false, Errors: fieldErrs})
		return
	}

	s.metrics.LeadsAccepted.WithLabelValues("accepted").Inc()
	if meta.SessionID != "" {
		if variant, err := s.assigner.Assign(r.Context(), meta.SessionID); err == nil && variant != nil {
			s.metrics.VariantConversions.WithLabelValues(variantLabel(variant.ID)).Inc()
		}
	}
	writeJSON(w, http.StatusOK, LeadSubmitResponse{
		Success:     true,
		LeadID:      id,
		RedirectURL: s.cfg.RedirectURL,
	})
}

type ExpressSubmitRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (s *Server) handleExpressSubmit(w http.ResponseWriter, r *http.Request) {
	var req ExpressSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	meta := s.requestMeta(r, "")
	id, fieldErrs, err := s.leads.AcceptExpress(r.Context(), req.Email, req.Phone, meta)
	if err != nil {
		s.logger.Error("express lead acceptance failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, LeadSubmitResponse{Success: false, Errors: fieldErrs})
		return
	}

	s.metrics.ExpressLeads.Inc()
	writeJSON(w, http.StatusOK, LeadSubmitResponse{Success: true, LeadID: id})
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" || len(req.Message) < 10 {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	_, err := s.store.CreateContactMessage(r.Context(), &store.ContactMessage{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Subject:   req.Subject,
		Message:   req.Message,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		s.logger.Error("failed to store contact message", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// sessionID extracts the visitor's session id from the cookie or the
// query string.
func (s *Server) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(assign.SessionKey); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("session")
}

func (s *Server) requestMeta(r *http.Request, sessionID string) leads.Meta {
	if sessionID == "" {
		sessionID = s.sessionID(r)
	}
	return leads.Meta{
		SessionID: sessionID,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
