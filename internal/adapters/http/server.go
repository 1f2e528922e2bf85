package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wyrdbound/grimoire"
	"github.com/wyrdbound/grimoire/internal/logging"
	"github.com/wyrdbound/grimoire/pkg/domain"
	"github.com/wyrdbound/grimoire/pkg/objects"
	"github.com/wyrdbound/grimoire/pkg/runner"
	"github.com/wyrdbound/grimoire/pkg/schema"
)

// Server exposes a loaded game system over a JSON API: flow discovery,
// one-shot execution and persisted sessions. Input steps are fed from the
// answers array of the request body; a run that needs more answers suspends
// its session at the last checkpoint.
type Server struct {
	eng     *grimoire.Engine
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the request logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics instruments requests and mounts /metrics for scraping.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewHandler builds the HTTP handler for an engine.
func NewHandler(eng *grimoire.Engine, opts ...Option) http.Handler {
	s := &Server{eng: eng, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/flows", s.listFlows)
	r.Get("/flows/{flowID}", s.getFlow)
	r.Post("/flows/{flowID}/run", s.runFlow)
	r.Post("/sessions", s.createSession)
	r.Get("/sessions", s.listSessions)
	r.Get("/sessions/{sessionID}", s.getSession)
	r.Delete("/sessions/{sessionID}", s.deleteSession)
	r.Post("/sessions/{sessionID}/input", s.postSessionInput)
	r.Get("/events", s.subscribeEvents)
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -- Wire types --

type runRequest struct {
	Inputs map[string]any `json:"inputs,omitempty"`
	// Answers feed player_input and player_choice steps in order: strings
	// for free-form input, 0-based numbers or option ids for choices.
	Answers []any `json:"answers,omitempty"`
}

type createSessionRequest struct {
	FlowID  string         `json:"flow_id"`
	Inputs  map[string]any `json:"inputs,omitempty"`
	Answers []any          `json:"answers,omitempty"`
}

type sessionInputRequest struct {
	Answers []any `json:"answers"`
}

type runResponse struct {
	FlowID  string         `json:"flow_id"`
	Outputs map[string]any `json:"outputs"`
}

type sessionResponse struct {
	Session *domain.Session `json:"session"`
	Outputs map[string]any  `json:"outputs,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Changes is the delta since the snapshot the client last saw, so
	// frontends can patch local state instead of reloading the session.
	Changes *domain.SessionDiff `json:"changes,omitempty"`
}

type flowSummary struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name,omitempty"`
	Description  string                   `json:"description,omitempty"`
	Inputs       []domain.FlowInputOutput `json:"inputs,omitempty"`
	Outputs      []domain.FlowInputOutput `json:"outputs,omitempty"`
	ResumePoints []string                 `json:"resume_points,omitempty"`
}

type stepSummary struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

type flowDetail struct {
	flowSummary
	Steps []stepSummary `json:"steps"`

	// Slot schemas serialize as field-name to type-name maps; model-typed
	// slots carry the model id as their type.
	InputSchema  schema.Schema `json:"input_schema,omitempty"`
	OutputSchema schema.Schema `json:"output_schema,omitempty"`
}

func summarize(flow *domain.FlowDefinition) flowSummary {
	return flowSummary{
		ID:           flow.ID,
		Name:         flow.Name,
		Description:  flow.Description,
		Inputs:       flow.Inputs,
		Outputs:      flow.Outputs,
		ResumePoints: flow.ResumePoints,
	}
}

// -- Handlers --

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "grimoire-http",
		"version": grimoire.Version,
		"system":  s.eng.System().System.ID,
	})
}

func (s *Server) listFlows(w http.ResponseWriter, r *http.Request) {
	sys := s.eng.System()
	flows := make([]flowSummary, 0, len(sys.Flows))
	for _, id := range sys.FlowIDs() {
		flow, err := sys.Flow(id)
		if err != nil {
			continue
		}
		flows = append(flows, summarize(flow))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"flows": flows})
}

func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := s.eng.System().Flow(chi.URLParam(r, "flowID"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	detail := flowDetail{
		flowSummary:  summarize(flow),
		Steps:        make([]stepSummary, 0, len(flow.Steps)),
		InputSchema:  objects.SlotSchema(flow.Inputs),
		OutputSchema: objects.SlotSchema(flow.Outputs),
	}
	for _, step := range flow.Steps {
		detail.Steps = append(detail.Steps, stepSummary{ID: step.ID, Name: step.Name, Type: step.Type})
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) runFlow(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")

	var body runRequest
	if !s.decode(w, r, &body) {
		return
	}
	if !s.validateFlowInputs(w, flowID, body.Inputs) {
		return
	}

	ctx := runner.WithAnswers(r.Context(), body.Answers)
	result, err := s.eng.RunFlow(ctx, flowID, body.Inputs)
	if err != nil {
		var unknown *domain.UnknownReferenceError
		if errors.As(err, &unknown) {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Warn("flow run failed", "flow", flowID, "err", err)
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, runResponse{FlowID: result.FlowID, Outputs: result.Outputs})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.FlowID == "" {
		s.writeError(w, http.StatusBadRequest, "flow_id is required")
		return
	}
	if !s.validateFlowInputs(w, body.FlowID, body.Inputs) {
		return
	}

	ctx := runner.WithAnswers(r.Context(), body.Answers)
	sess, result, err := s.eng.StartSession(ctx, body.FlowID, body.Inputs)
	switch {
	case errors.Is(err, grimoire.ErrNoStore):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil && sess == nil:
		s.writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		// The run stopped early; the session keeps its checkpoint so the
		// client can continue via /sessions/{id}/input.
		s.writeJSON(w, http.StatusCreated, sessionResponse{Session: sess, Error: err.Error()})
	default:
		s.writeJSON(w, http.StatusCreated, sessionResponse{Session: sess, Outputs: result.Outputs})
	}
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.eng.Sessions(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sessions": ids})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.eng.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Outputs: sess.Outputs})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) postSessionInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	var body sessionInputRequest
	if !s.decode(w, r, &body) {
		return
	}

	// Snapshot before resuming so the response can carry the delta.
	before, err := s.eng.Session(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	ctx := runner.WithAnswers(r.Context(), body.Answers)
	sess, result, err := s.eng.ResumeSession(ctx, id)
	switch {
	case errors.Is(err, grimoire.ErrNoStore) || errors.Is(err, domain.ErrSessionNotFound):
		s.writeStoreError(w, err)
	case err != nil && sess == nil:
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		s.writeJSON(w, http.StatusOK, sessionResponse{
			Session: sess,
			Error:   err.Error(),
			Changes: domain.DiffSessions(before, sess),
		})
	default:
		s.writeJSON(w, http.StatusOK, sessionResponse{
			Session: sess,
			Outputs: result.Outputs,
			Changes: domain.DiffSessions(before, sess),
		})
	}
}

// subscribeEvents streams system change notifications as SSE, for authoring
// frontends that reload on save.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := s.eng.Watch(r.Context())
	if err != nil {
		s.writeError(w, http.StatusNotImplemented, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// -- Helpers --

// validateFlowInputs rejects malformed inputs up front, reporting every
// missing or mistyped slot at once instead of failing mid-run.
func (s *Server) validateFlowInputs(w http.ResponseWriter, flowID string, inputs map[string]any) bool {
	flow, err := s.eng.System().Flow(flowID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return false
	}
	if err := objects.ValidateInputs(flow, inputs); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, grimoire.ErrNoStore):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
