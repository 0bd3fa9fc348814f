package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/merakitalent/fernando-format/internal/adapter/chat"
	"github.com/merakitalent/fernando-format/internal/adapter/extraction"
	"github.com/merakitalent/fernando-format/internal/domain"
	"github.com/merakitalent/fernando-format/internal/usecase"
)

// ReadyCheck probes one dependency for the readiness endpoint.
type ReadyCheck struct {
	Name  string
	Probe func() error
}

// Server wires the webhook endpoint to the intent router and pipeline.
type Server struct {
	ServiceName string
	Extractor   *extraction.Adapter
	Router      *usecase.Router
	Service     *usecase.Service
	Checks      []ReadyCheck

	validate *validator.Validate
	started  time.Time
}

func NewServer(serviceName string, ex *extraction.Adapter, router *usecase.Router, svc *usecase.Service, checks []ReadyCheck) *Server {
	return &Server{
		ServiceName: serviceName,
		Extractor:   ex,
		Router:      router,
		Service:     svc,
		Checks:      checks,
		validate:    validator.New(),
		started:     time.Now().UTC(),
	}
}

// MessagesHandler receives inbound activities from the chat gateway. The
// gateway retries non-2xx deliveries, so processing failures are logged and
// acknowledged rather than surfaced.
func (s *Server) MessagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var act chat.Activity
		if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed activity"})
			return
		}
		if err := s.validate.Struct(act); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required activity fields"})
			return
		}
		if act.Type != "message" {
			w.WriteHeader(http.StatusOK)
			return
		}

		ctx := r.Context()
		lg := LoggerFrom(r)
		turn := act.ToTurn()
		conv := domain.Conversation{ID: turn.ConversationID, ServiceURL: turn.ServiceURL}

		res := s.Extractor.Collect(ctx, turn.Attachments)
		action := s.Router.Route(ctx, turn, res.Contents, res.FileErrors)
		lg.Info("turn routed",
			"action", string(action.Kind),
			"role", action.Role.ID,
			"contents", len(action.Contents),
			"file_errors", len(res.FileErrors),
		)
		if err := s.Service.Execute(ctx, conv, action); err != nil {
			lg.Error("turn execution failed", "error", err)
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":     "healthy",
			"service":    s.ServiceName,
			"started_at": s.started.Format(time.RFC3339),
		})
	}
}

// ReadyzHandler probes the wired dependencies; any failing probe flips the
// endpoint to 503 with the failing names.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		failing := []string{}
		for _, c := range s.Checks {
			if err := c.Probe(); err != nil {
				failing = append(failing, c.Name)
			}
		}
		if len(failing) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failing": failing})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
