// Package session applies questionnaire actions to stored sessions and
// evaluates them.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pieme/nzpoints/internal/engine"
	"github.com/pieme/nzpoints/internal/metrics"
	"github.com/pieme/nzpoints/internal/questionnaire"
	"github.com/pieme/nzpoints/internal/schema"
	"github.com/pieme/nzpoints/internal/store"
)

// Actions recorded in the session event log.
const (
	ActionCreate = "create"
	ActionFinal  = "final"
	ActionSave   = "save"
	ActionReset  = "reset"
	ActionClear  = "clear"
)

// SetAction is the event name for answering step.
func SetAction(step questionnaire.Step) string {
	return "set:" + string(step)
}

// InvalidError carries the validation problems that stopped a write. Step
// is empty when a whole state was rejected.
type InvalidError struct {
	Step   questionnaire.Step
	Errors []schema.ValidationError
}

func (e *InvalidError) Error() string {
	if e.Step == "" {
		return "session: invalid answers: " + schema.AsError(e.Errors).Error()
	}
	return "session: invalid " + string(e.Step) + " answers: " + schema.AsError(e.Errors).Error()
}

// Service wraps a store with validation, evaluation and instrumentation.
type Service struct {
	store   *store.Store
	engine  *engine.Engine
	now     func() time.Time
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewService returns a service. now and log may be nil.
func NewService(st *store.Store, eng *engine.Engine, now func() time.Time, log *zap.Logger, m *metrics.Metrics) *Service {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, engine: eng, now: now, log: log, metrics: m}
}

// Create starts a session from initial. Every answered category must
// pass the same checks SetStep applies.
func (s *Service) Create(ctx context.Context, initial questionnaire.State) (*store.Session, error) {
	if errs := schema.ValidateState(initial, s.engine.Table(), s.now()); len(errs) > 0 {
		return nil, &InvalidError{Errors: errs}
	}
	sess, err := s.store.Create(ctx, initial)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementSessionUpdate(ActionCreate)
	s.log.Info("session created", zap.String("session_id", sess.ID))
	return sess, nil
}

// Get returns a session.
func (s *Service) Get(ctx context.Context, id string) (*store.Session, error) {
	return s.store.Get(ctx, id)
}

// List returns recent sessions.
func (s *Service) List(ctx context.Context, limit int) ([]store.Summary, error) {
	return s.store.List(ctx, limit)
}

// Events returns a session's change log.
func (s *Service) Events(ctx context.Context, id string) ([]store.Event, error) {
	return s.store.Events(ctx, id)
}

// Delete removes a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("session deleted", zap.String("session_id", id))
	return nil
}

// SetStep validates c and stores it as the answer to its step.
func (s *Service) SetStep(ctx context.Context, id string, c questionnaire.Category) (*store.Session, error) {
	if errs := schema.ValidateStep(c, s.engine.Table(), s.now()); len(errs) > 0 {
		return nil, &InvalidError{Step: c.Step(), Errors: errs}
	}
	return s.apply(ctx, id, SetAction(c.Step()), func(st questionnaire.State) questionnaire.State {
		return st.Set(c)
	})
}

// MarkFinal flags the session as complete.
func (s *Service) MarkFinal(ctx context.Context, id string) (*store.Session, error) {
	return s.apply(ctx, id, ActionFinal, questionnaire.State.MarkFinal)
}

// SaveHistory moves the current answers into history.
func (s *Service) SaveHistory(ctx context.Context, id string) (*store.Session, error) {
	return s.apply(ctx, id, ActionSave, questionnaire.State.SaveCurrent)
}

// Reset discards the current answers and keeps history.
func (s *Service) Reset(ctx context.Context, id string) (*store.Session, error) {
	return s.apply(ctx, id, ActionReset, questionnaire.State.Reset)
}

// Clear discards answers and history.
func (s *Service) Clear(ctx context.Context, id string) (*store.Session, error) {
	return s.apply(ctx, id, ActionClear, questionnaire.State.Clear)
}

func (s *Service) apply(ctx context.Context, id, action string, fn func(questionnaire.State) questionnaire.State) (*store.Session, error) {
	sess, err := s.store.Update(ctx, id, action, func(st questionnaire.State) (questionnaire.State, error) {
		return fn(st), nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementSessionUpdate(action)
	s.log.Debug("session updated",
		zap.String("session_id", id),
		zap.String("action", action),
		zap.Int("version", sess.Version),
	)
	return sess, nil
}

// Result evaluates the session's current answers.
func (s *Service) Result(ctx context.Context, id string) (engine.ResultSet, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return engine.ResultSet{}, err
	}
	return s.engine.Evaluate(sess.State, s.now()), nil
}
