// Package dispatch delivers data-only actions to an external HTTP endpoint.
//
// WebhookSink implements the §6 UI/Audio/Analytics downstream boundary: it
// is handed every action the script runtime's execution loop does not
// interpret itself (stack display, timer display, sound, metrics, error)
// and POSTs each as a JSON envelope to a configured URL.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SergeiGolos/wod-wiki-sub004/iox"
	"github.com/SergeiGolos/wod-wiki-sub004/log"
	"github.com/SergeiGolos/wod-wiki-sub004/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the webhook sink.
type Config struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure. New applies no
	// default, so 0 means no retries; DefaultRetries is what `run` passes.
	Retries int
}

// Envelope is the JSON shape POSTed for every dispatched action.
type Envelope struct {
	Kind      types.ActionKind `json:"kind"`
	Payload   any              `json:"payload,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// WebhookSink POSTs actions to a configured URL. It satisfies the
// script.Runtime Sink signature (func(types.Action)) and so never returns
// an error to its caller; failures are logged and swallowed.
type WebhookSink struct {
	config Config
	client *http.Client
	logger *log.SugaredLogger
}

// New creates a webhook sink from the given config.
// Returns an error if the URL is empty.
func New(cfg Config, logger *log.SugaredLogger) (*WebhookSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("dispatch: webhook sink requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("dispatch: retries must be >= 0, got %d", cfg.Retries)
	}

	return &WebhookSink{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Handle dispatches a single action as a JSON envelope. It never returns an
// error: failures (including exhausted retries) are logged at Warn level
// and the action is dropped, since the caller's drain loop has already
// moved on by the time delivery matters.
func (s *WebhookSink) Handle(action types.Action) {
	env := Envelope{
		Kind:      action.Kind,
		Payload:   action.Payload,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(env)
	if err != nil {
		s.logger.Warnf("dispatch: marshal action %s: %v", action.Kind, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout*time.Duration(1+s.config.Retries))
	defer cancel()

	if err := s.publish(ctx, body); err != nil {
		s.logger.Warnf("dispatch: deliver action %s: %v", action.Kind, err)
	}
}

// publish performs the POST with exponential backoff, mirroring the same
// retry classification as a one-shot HTTP adapter: 4xx responses fail
// immediately, 5xx and network errors retry.
func (s *WebhookSink) publish(ctx context.Context, body []byte) error {
	var lastErr error
	attempts := 1 + s.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = s.doRequest(ctx, body)
		if lastErr == nil {
			return nil
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
			return fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

func (s *WebhookSink) doRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}

	return nil
}

// Close releases sink resources.
func (s *WebhookSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
