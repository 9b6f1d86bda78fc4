package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/events"
)

type webhookSink struct {
	mu       sync.Mutex
	received []map[string]any
	status   int
}

func (s *webhookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" ||
		json.NewDecoder(r.Body).Decode(&body) != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.received = append(s.received, body)
	status := s.status
	s.mu.Unlock()
	if status == 0 {
		status = http.StatusAccepted
	}
	w.WriteHeader(status)
}

func (s *webhookSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.received))
	for _, b := range s.received {
		out = append(out, b["type"].(string))
	}
	return out
}

func publishSessionEvents(t *testing.T, dispatcher events.Dispatcher) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventSessionStarted,
		UserID:  "user-1",
		Payload: events.SessionStartedPayload{Method: events.LoginMethodPassword, SessionID: "s-1"},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:   events.EventSessionRefreshed,
		UserID: "user-1",
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventSessionRevokeFailed,
		Payload: events.RevokeFailedPayload{Reason: "db down"},
	}))
}

func TestAuditService_LogsSessionEvents(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.New(core), config.AuditConfig{}).RegisterHandlers()

	publishSessionEvents(t, dispatcher)

	started := logs.FilterMessage(string(events.EventSessionStarted)).All()
	require.Len(t, started, 1)
	require.Equal(t, zapcore.InfoLevel, started[0].Level)
	require.Equal(t, "user-1", started[0].ContextMap()["user_id"])

	refreshed := logs.FilterMessage(string(events.EventSessionRefreshed)).All()
	require.Len(t, refreshed, 1)
	require.Equal(t, zapcore.DebugLevel, refreshed[0].Level)

	failed := logs.FilterMessage(string(events.EventSessionRevokeFailed)).All()
	require.Len(t, failed, 1)
	require.Equal(t, zapcore.WarnLevel, failed[0].Level)
}

func TestAuditService_PostsEventsToWebhook(t *testing.T) {
	t.Parallel()

	sink := &webhookSink{}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	dispatcher := events.NewInMemoryDispatcher()
	audit := NewAuditService(dispatcher, zap.NewNop(), config.AuditConfig{WebhookURL: srv.URL})
	audit.RegisterHandlers()

	publishSessionEvents(t, dispatcher)
	audit.Wait()

	require.ElementsMatch(t,
		[]string{string(events.EventSessionStarted), string(events.EventSessionRevokeFailed)},
		sink.types())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, body := range sink.received {
		require.NotEmpty(t, body["id"])
		require.NotEmpty(t, body["timestamp"])
	}
}

func TestAuditService_WebhookFailureIsLogged(t *testing.T) {
	t.Parallel()

	sink := &webhookSink{status: http.StatusInternalServerError}
	srv := httptest.NewServer(sink)
	defer srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	audit := NewAuditService(dispatcher, zap.New(core), config.AuditConfig{WebhookURL: srv.URL})
	audit.RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventSessionEnded}))
	audit.Wait()

	require.Equal(t, 1, logs.FilterMessage("audit webhook delivery failed").Len())
}
