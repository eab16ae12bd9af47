package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pieme/nzpoints/internal/engine"
	"github.com/pieme/nzpoints/internal/questionnaire"
	"github.com/pieme/nzpoints/internal/render"
	"github.com/pieme/nzpoints/internal/rules"
	"github.com/pieme/nzpoints/internal/session"
	"github.com/pieme/nzpoints/internal/store"
)

// Handler holds the dependencies of the HTTP endpoints.
type Handler struct {
	logger   *zap.Logger
	engine   *engine.Engine
	sessions *session.Service
	now      func() time.Time
}

// NewHandler returns a Handler. now defaults to time.Now.
func NewHandler(logger *zap.Logger, eng *engine.Engine, sessions *session.Service, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{logger: logger, engine: eng, sessions: sessions, now: now}
}

type resultResponse struct {
	Result  engine.ResultSet `json:"result"`
	Outcome string           `json:"outcome"`
	Share   string           `json:"share"`
}

func newResultResponse(rs engine.ResultSet) resultResponse {
	return resultResponse{Result: rs, Outcome: render.Outcome(rs), Share: render.ShareMessage(rs)}
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListRules handles GET /v1/rules.
func (h *Handler) ListRules(c *gin.Context) {
	names, err := rules.List()
	if err != nil {
		h.logger.Error("list rule tables failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list rule tables"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": names, "active": h.engine.Table().Name})
}

// GetRules handles GET /v1/rules/:name.
func (h *Handler) GetRules(c *gin.Context) {
	name := c.Param("name")
	if name == h.engine.Table().Name {
		c.JSON(http.StatusOK, gin.H{"table": h.engine.Table()})
		return
	}
	t, err := rules.LoadBuiltin(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown rule table"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": t})
}

// Evaluate handles POST /v1/evaluate. The body is an answers document;
// the optional now query parameter fixes the evaluation date.
func (h *Handler) Evaluate(c *gin.Context) {
	now, ok := h.evaluationTime(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	st, err := questionnaire.ParseState(body)
	if err != nil {
		h.logger.Warn("invalid evaluate request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, newResultResponse(h.engine.Evaluate(st, now)))
}

func (h *Handler) evaluationTime(c *gin.Context) (time.Time, bool) {
	raw := c.Query("now")
	if raw == "" {
		return h.now(), true
	}
	d, err := questionnaire.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
}

// ListSessions handles GET /v1/sessions.
func (h *Handler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.sessions.List(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "list sessions failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

// CreateSession handles POST /v1/sessions. An empty body starts from the
// empty state.
func (h *Handler) CreateSession(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	st, err := questionnaire.ParseState(body)
	if err != nil {
		h.logger.Warn("invalid create session request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.sessions.Create(c.Request.Context(), st)
	if err != nil {
		h.fail(c, "create session failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

// GetSession handles GET /v1/sessions/:id.
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get session failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// DeleteSession handles DELETE /v1/sessions/:id.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete session failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetStep handles PUT /v1/sessions/:id/steps/:step.
func (h *Handler) SetStep(c *gin.Context) {
	step := questionnaire.Step(c.Param("step"))
	if !step.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown step"})
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	cat, err := questionnaire.DecodeStep(step, body)
	if err != nil {
		h.logger.Warn("invalid step request", zap.String("step", string(step)), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.sessions.SetStep(c.Request.Context(), c.Param("id"), cat)
	if err != nil {
		h.fail(c, "set step failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *Handler) transition(c *gin.Context, what string, fn func(id string) (*store.Session, error)) {
	sess, err := fn(c.Param("id"))
	if err != nil {
		h.fail(c, what+" failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// MarkFinal handles POST /v1/sessions/:id/final.
func (h *Handler) MarkFinal(c *gin.Context) {
	h.transition(c, "mark final", func(id string) (*store.Session, error) {
		return h.sessions.MarkFinal(c.Request.Context(), id)
	})
}

// SaveHistory handles POST /v1/sessions/:id/history.
func (h *Handler) SaveHistory(c *gin.Context) {
	h.transition(c, "save history", func(id string) (*store.Session, error) {
		return h.sessions.SaveHistory(c.Request.Context(), id)
	})
}

// Reset handles POST /v1/sessions/:id/reset.
func (h *Handler) Reset(c *gin.Context) {
	h.transition(c, "reset", func(id string) (*store.Session, error) {
		return h.sessions.Reset(c.Request.Context(), id)
	})
}

// Clear handles POST /v1/sessions/:id/clear.
func (h *Handler) Clear(c *gin.Context) {
	h.transition(c, "clear", func(id string) (*store.Session, error) {
		return h.sessions.Clear(c.Request.Context(), id)
	})
}

// SessionResult handles GET /v1/sessions/:id/result.
func (h *Handler) SessionResult(c *gin.Context) {
	rs, err := h.sessions.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "session result failed", err)
		return
	}
	c.JSON(http.StatusOK, newResultResponse(rs))
}

// SessionEvents handles GET /v1/sessions/:id/events.
func (h *Handler) SessionEvents(c *gin.Context) {
	events, err := h.sessions.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "session events failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// fail maps service errors to responses.
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	var invalid *session.InvalidError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid answers", "problems": invalid.Errors})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "session changed, retry"})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
