// Package notify is C10: a fire-and-forget webhook notifier. It never
// returns an error to the caller — a notification that can't be delivered
// after retries is logged and dropped.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	metrics "github.com/neptunehub/campus-errand-engine/internal/adapter/observability"
	"github.com/neptunehub/campus-errand-engine/internal/config"
	"github.com/neptunehub/campus-errand-engine/internal/domain"
	"github.com/neptunehub/campus-errand-engine/internal/observability"
)

// circuitBreakerName identifies the shared breaker guarding the webhook
// endpoint in the process-wide circuit breaker registry.
const circuitBreakerName = "notify_webhook"

// singleRecipientPayload is the §6.3 wire shape used by C6 (errand
// assignment notifications): one user, one message.
type singleRecipientPayload struct {
	UserID  string         `json:"userId"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// broadcastPayload is the §6.3 wire shape used by C7 (lifecycle timeout
// notifications): many users, a message key instead of freeform text.
type broadcastPayload struct {
	RecipientUserIDs []string       `json:"recipientUserIds"`
	MessageKey       string         `json:"messageKey"`
	Data             map[string]any `json:"data,omitempty"`
}

// Notifier posts notifications to a configured webhook URL.
type Notifier struct {
	webhookURL string
	timeout    time.Duration
	cfg        config.Config
	client     *http.Client
	log        *slog.Logger
	observable *observability.IntegratedObservableClient
	breaker    *metrics.CircuitBreaker
}

// New constructs a Notifier from cfg. A blank cfg.NotifyWebhookURL is
// allowed — Notify becomes a no-op logger in that case, matching local
// dev environments that don't run a notification receiver.
func New(cfg config.Config, log *slog.Logger) *Notifier {
	return &Notifier{
		webhookURL: cfg.NotifyWebhookURL,
		timeout:    cfg.NotifyTimeout,
		cfg:        cfg,
		client:     &http.Client{},
		log:        log,
		observable: observability.NewIntegratedObservableClient(
			observability.ConnectionTypeNotification,
			observability.OperationTypeNotify,
			cfg.NotifyWebhookURL,
			"notify",
			cfg.NotifyBackoffMaxTime,
			cfg.NotifyTimeout,
			2*cfg.NotifyBackoffMaxTime,
		),
		breaker: metrics.GetCircuitBreaker(circuitBreakerName, 5, cfg.NotifyBackoffMaxTime),
	}
}

var _ domain.Notifier = (*Notifier)(nil)

// Notify posts n to the configured webhook, retrying transient failures
// with exponential backoff. It never returns an error; a failure after
// retries is logged and the notification is dropped.
func (n *Notifier) Notify(ctx domain.Context, notification domain.Notification) {
	if n.webhookURL == "" {
		n.log.Debug("notify: webhook not configured, dropping notification", "op", "notify.notify")
		return
	}

	body, err := encode(notification)
	if err != nil {
		n.log.Error("notify: failed to encode notification", "op", "notify.notify.encode", "err", err)
		return
	}

	maxElapsed, initial, maxInterval, multiplier := n.cfg.GetNotifyBackoffConfig()

	err = n.observable.ExecuteWithMetrics(ctx, "webhook", func(execCtx context.Context) error {
		return n.breaker.Call(func() error {
			op := func() error { return n.post(execCtx, body) }

			expo := backoff.NewExponentialBackOff()
			expo.MaxElapsedTime = maxElapsed
			expo.InitialInterval = initial
			expo.MaxInterval = maxInterval
			expo.Multiplier = multiplier
			bo := backoff.WithContext(expo, execCtx)

			return backoff.Retry(op, bo)
		})
	})
	if err != nil {
		n.log.Error("notify: delivery failed after retries", "op", "notify.notify.retry",
			"err", err, "userId", notification.UserID.String(), "messageKey", notification.MessageKey)
	}
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	callCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("op=notify.post.new_request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("op=notify.post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("op=notify.post: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("op=notify.post: status %d", resp.StatusCode))
	}
	return nil
}

// encode picks the single-recipient or broadcast wire shape based on
// which fields of n are populated (§6.3: C6 uses the former, C7 the
// latter).
func encode(n domain.Notification) ([]byte, error) {
	if len(n.RecipientUserIDs) > 0 || n.MessageKey != "" {
		ids := make([]string, len(n.RecipientUserIDs))
		for i, id := range n.RecipientUserIDs {
			ids[i] = id.String()
		}
		return json.Marshal(broadcastPayload{
			RecipientUserIDs: ids,
			MessageKey:       n.MessageKey,
			Data:             n.Data,
		})
	}
	return json.Marshal(singleRecipientPayload{
		UserID:  n.UserID.String(),
		Message: n.Message,
		Data:    n.Data,
	})
}
