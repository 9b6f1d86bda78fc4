package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/events"
)

// AuditService records session lifecycle events and forwards them to the
// configured webhook.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AuditConfig
	client     *http.Client
	inflight   sync.WaitGroup
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout()},
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleInfo)
	a.dispatcher.Subscribe(events.EventSessionStarted, a.handleInfo)
	a.dispatcher.Subscribe(events.EventSessionRefreshed, a.handleDebug)
	a.dispatcher.Subscribe(events.EventSessionEnded, a.handleInfo)
	a.dispatcher.Subscribe(events.EventSessionRevokeFailed, a.handleRevokeFailed)
}

// Wait blocks until every pending webhook delivery has finished.
func (a *AuditService) Wait() {
	a.inflight.Wait()
}

func (a *AuditService) handleInfo(ctx context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), eventFields(event)...)
	a.deliver(ctx, event)
	return nil
}

func (a *AuditService) handleDebug(_ context.Context, event events.Event) error {
	a.logger.Debug(string(event.Type), eventFields(event)...)
	return nil
}

func (a *AuditService) handleRevokeFailed(ctx context.Context, event events.Event) error {
	a.logger.Warn(string(event.Type), eventFields(event)...)
	a.deliver(ctx, event)
	return nil
}

// deliver posts the event in the background so request latency does not
// depend on the sink. Failures are logged only.
func (a *AuditService) deliver(ctx context.Context, event events.Event) {
	if strings.TrimSpace(a.cfg.WebhookURL) == "" {
		return
	}

	ctx = context.WithoutCancel(ctx)
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		if err := a.post(ctx, event); err != nil {
			a.logger.Warn("audit webhook delivery failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}()
}

func (a *AuditService) post(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func eventFields(event events.Event) []zap.Field {
	fields := []zap.Field{zap.String("event_id", event.ID), zap.Time("timestamp", event.Timestamp)}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	return fields
}
