package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/quotefunnel/quotefunnel/internal/analytics"
)

var (
	// ErrStaleStep is returned when the caller's step index does not
	// match the session's current step, e.g. a double-clicked Next
	// control replaying an already-advanced step.
	ErrStaleStep = errors.New("wizard: stale step index")

	// ErrFinalStep is returned by Advance on the last step; the final
	// step completes through Submit.
	ErrFinalStep = errors.New("wizard: final step must be completed via Submit")

	// ErrNotFinalStep is returned by Submit before the last step.
	ErrNotFinalStep = errors.New("wizard: submit is only reachable from the final step")

	// ErrAlreadySubmitted is returned once the session reached its
	// terminal state.
	ErrAlreadySubmitted = errors.New("wizard: session already submitted")

	// ErrSubmitRejected wraps a failed acceptance call. The session
	// state and answers are untouched; the caller may retry.
	ErrSubmitRejected = errors.New("wizard: lead was not accepted")
)

// AcceptResult is the outcome of a lead acceptance call.
type AcceptResult struct {
	Success bool
	LeadID  int64
}

// LeadAcceptor persists and distributes a finished submission. The
// wizard does not retry on failure; acceptance is not idempotent.
type LeadAcceptor interface {
	SubmitLead(ctx context.Context, sub *LeadSubmission) (AcceptResult, error)
}

// Session walks one visitor through the step sequence. It is owned by a
// single visitor flow and is not safe for concurrent use.
type Session struct {
	steps   []StepDefinition
	step    int // 1-based; len(steps)+1 is the terminal submitted state
	answers map[string]string
	emitter analytics.Emitter
	leadID  int64
}

// NewSession starts a session at step 1 with no answers. A nil emitter
// discards analytics events.
func NewSession(steps []StepDefinition, emitter analytics.Emitter) *Session {
	if emitter == nil {
		emitter = analytics.NopEmitter{}
	}
	return &Session{
		steps:   steps,
		step:    1,
		answers: make(map[string]string),
		emitter: emitter,
	}
}

// Step returns the current 1-based step index.
func (s *Session) Step() int {
	return s.step
}

// TotalSteps returns the number of question steps.
func (s *Session) TotalSteps() int {
	return len(s.steps)
}

// StepName returns the analytics label of the current step.
func (s *Session) StepName() string {
	if s.Submitted() {
		return "Submitted"
	}
	return s.steps[s.step-1].Name
}

// Current returns the definition of the current step.
func (s *Session) Current() StepDefinition {
	return s.steps[s.step-1]
}

// Submitted reports whether the session reached its terminal state.
func (s *Session) Submitted() bool {
	return s.step > len(s.steps)
}

// LeadID returns the identifier handed back by acceptance, zero before
// a successful submit.
func (s *Session) LeadID() int64 {
	return s.leadID
}

// Answer returns a previously committed value.
func (s *Session) Answer(field string) string {
	return s.answers[field]
}

// Answers returns a copy of all committed values.
func (s *Session) Answers() map[string]string {
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Advance validates the current step's input and, on success, commits
// the step's values, emits a step-completed event and moves forward.
// On validation failure the returned errors list every failing field
// and the session is unchanged.
//
// step must equal the session's current step; a stale index (the same
// Next control fired twice) returns ErrStaleStep without emitting a
// duplicate event or skipping a step.
func (s *Session) Advance(step int, input map[string]string) ([]FieldError, error) {
	if s.Submitted() {
		return nil, ErrAlreadySubmitted
	}
	if step != s.step {
		return nil, ErrStaleStep
	}
	if s.step == len(s.steps) {
		return nil, ErrFinalStep
	}

	def := s.steps[s.step-1]
	merged := s.mergedView(def, input)
	if errs := def.Validate(merged); len(errs) > 0 {
		return errs, nil
	}

	s.commit(def, merged)
	s.emitter.Emit(analytics.EventStepCompleted, map[string]any{
		"step":      s.step,
		"step_name": def.Name,
	})
	s.step++
	return nil, nil
}

// Retreat moves back one step. Navigation backwards is unrestricted:
// no validation runs, no events fire and committed answers are kept.
// At step 1 it is a no-op.
func (s *Session) Retreat() {
	if s.Submitted() {
		return
	}
	if s.step > 1 {
		s.step--
	}
}

// Submit completes the final step and hands the accumulated answers to
// the acceptor. Only the final step is re-validated here; earlier steps
// were validated when they were advanced past and cannot be mutated
// except through Advance.
//
// rawQuery is the submitting page's URL query string; utm_source,
// utm_medium and utm_campaign are extracted from it at this point and
// not earlier.
//
// On acceptance failure the session stays on the final step with all
// answers intact and ErrSubmitRejected (or the transport error) is
// returned; the caller may retry.
func (s *Session) Submit(ctx context.Context, step int, input map[string]string, rawQuery string, acceptor LeadAcceptor) (AcceptResult, []FieldError, error) {
	if s.Submitted() {
		return AcceptResult{}, nil, ErrAlreadySubmitted
	}
	if s.step != len(s.steps) {
		return AcceptResult{}, nil, ErrNotFinalStep
	}
	if step != s.step {
		return AcceptResult{}, nil, ErrStaleStep
	}

	def := s.steps[s.step-1]
	merged := s.mergedView(def, input)
	if errs := def.Validate(merged); len(errs) > 0 {
		return AcceptResult{}, errs, nil
	}
	s.commit(def, merged)

	sub := NewLeadSubmission(s.answers, rawQuery)

	res, err := acceptor.SubmitLead(ctx, sub)
	if err != nil {
		return AcceptResult{}, nil, fmt.Errorf("%w: %w", ErrSubmitRejected, err)
	}
	if !res.Success {
		return AcceptResult{}, nil, ErrSubmitRejected
	}

	s.step = len(s.steps) + 1
	s.leadID = res.LeadID
	s.emitter.Emit(analytics.EventSubmission, map[string]any{
		"lead_id": res.LeadID,
	})
	return res, nil, nil
}

// Abandon emits a best-effort abandonment event for the current step.
// Intended for page-unload style teardown; calling it after a
// successful submit does nothing.
func (s *Session) Abandon() {
	if s.Submitted() {
		return
	}
	s.emitter.Emit(analytics.EventAbandoned, map[string]any{
		"step":      s.step,
		"step_name": s.steps[s.step-1].Name,
	})
}

// mergedView overlays the step's own input fields on the committed
// answers. Fields outside the step are ignored so input cannot
// stale-date an earlier answer.
func (s *Session) mergedView(def StepDefinition, input map[string]string) map[string]string {
	merged := make(map[string]string, len(s.answers)+len(def.Fields))
	for k, v := range s.answers {
		merged[k] = v
	}
	for _, f := range def.Fields {
		if v, ok := input[f]; ok {
			merged[f] = v
		}
	}
	return merged
}

func (s *Session) commit(def StepDefinition, merged map[string]string) {
	for _, f := range def.Fields {
		if v, ok := merged[f]; ok {
			s.answers[f] = v
		}
	}
}
