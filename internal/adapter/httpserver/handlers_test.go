package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merakitalent/fernando-format/internal/adapter/extraction"
	"github.com/merakitalent/fernando-format/internal/domain"
	"github.com/merakitalent/fernando-format/internal/usecase"
)

type noopStore struct{}

func (noopStore) Get(context.Context, string, domain.IntentKind) (*domain.PendingIntent, error) {
	return nil, nil
}
func (noopStore) Set(context.Context, domain.PendingIntent) error { return nil }

func (noopStore) Clear(context.Context, string, domain.IntentKind) error { return nil }

type recordingReplier struct {
	texts []string
	helps int
}

func (r *recordingReplier) SendText(_ context.Context, _ domain.Conversation, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingReplier) SendHelp(_ context.Context, _ domain.Conversation, _ []domain.Role) error {
	r.helps++
	return nil
}

func (r *recordingReplier) SendWithStartNew(_ context.Context, _ domain.Conversation, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func newTestServer(reply domain.Replier) *Server {
	reg := usecase.NewRegistry(nil, 0)
	store := noopStore{}
	router := usecase.NewRouter(store, reg, nil)
	svc := usecase.NewService(nil, nil, store, reply, reg, nil, 168*time.Hour)
	ex := extraction.New(nil, nil, 10<<20)
	return NewServer("fernando-format", ex, router, svc, nil)
}

func postActivity(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.MessagesHandler()(rec, req)
	return rec
}

func TestMessagesHandler_HelpFlow(t *testing.T) {
	reply := &recordingReplier{}
	s := newTestServer(reply)

	rec := postActivity(t, s, `{"type":"message","text":"help","conversation":{"id":"conv-9"},"serviceUrl":"https://smba.example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, reply.helps)
}

func TestMessagesHandler_IgnoresNonMessageTypes(t *testing.T) {
	reply := &recordingReplier{}
	s := newTestServer(reply)

	rec := postActivity(t, s, `{"type":"conversationUpdate","conversation":{"id":"conv-9"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, reply.helps)
	require.Empty(t, reply.texts)
}

func TestMessagesHandler_MalformedJSON(t *testing.T) {
	s := newTestServer(&recordingReplier{})
	rec := postActivity(t, s, `{"type":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessagesHandler_MissingConversationID(t *testing.T) {
	s := newTestServer(&recordingReplier{})
	rec := postActivity(t, s, `{"type":"message","text":"hi","conversation":{}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessagesHandler_ButtonSelectsRole(t *testing.T) {
	reply := &recordingReplier{}
	s := newTestServer(reply)

	rec := postActivity(t, s, `{"type":"message","conversation":{"id":"conv-9"},"value":{"action":"select_role","role":"spec-email"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, reply.texts, 1)
	require.Contains(t, reply.texts[0], "Send me the details")
}

func TestHealthzHandler(t *testing.T) {
	s := newTestServer(&recordingReplier{})
	rec := httptest.NewRecorder()
	s.HealthzHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"healthy"`)
	require.Contains(t, rec.Body.String(), `"service":"fernando-format"`)
}

func TestReadyzHandler_ReportsFailingProbe(t *testing.T) {
	s := newTestServer(&recordingReplier{})
	s.Checks = []ReadyCheck{
		{Name: "redis", Probe: func() error { return nil }},
		{Name: "postgres", Probe: func() error { return errors.New("down") }},
	}
	rec := httptest.NewRecorder()
	s.ReadyzHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "postgres")
}
