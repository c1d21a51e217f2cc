package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"
)

const defaultMaxAttempts = 3

// DeliveryError wraps a send failure with its retry classification.
// Dropped connections are retryable; protocol and auth errors are
// fatal and abort retrying immediately.
type DeliveryError struct {
	Retryable bool
	Err       error
}

func (e *DeliveryError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("delivery failed (%s): %v", kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Sender is the mail-transport boundary. Implementations return
// *DeliveryError so the engine can classify the failure.
type Sender interface {
	Send(ctx context.Context, subject, body string) error
}

// Engine drives a Sender with bounded retries. It reports plain
// success or failure; interpreting failure as "notification not
// confirmed" is the caller's job.
type Engine struct {
	sender      Sender
	maxAttempts int
	backoff     func(attempt int) time.Duration
	sleep       func(time.Duration)
}

type EngineOption func(*Engine)

func WithMaxSendAttempts(n int) EngineOption {
	return func(e *Engine) { e.maxAttempts = n }
}

func WithSendBackoff(backoff func(attempt int) time.Duration) EngineOption {
	return func(e *Engine) { e.backoff = backoff }
}

func NewEngine(sender Sender, opts ...EngineOption) *Engine {
	e := &Engine{
		sender:      sender,
		maxAttempts: defaultMaxAttempts,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * 5 * time.Second
		},
		sleep: time.Sleep,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run attempts delivery up to the configured bound. Only retryable
// failures are retried, with linearly increasing backoff.
func (e *Engine) Run(ctx context.Context, subject, body string) bool {
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err := e.sender.Send(ctx, subject, body)
		if err == nil {
			slog.Info("Notification delivered", "subject", subject, "attempt", attempt)
			return true
		}

		var deliveryErr *DeliveryError
		if !errors.As(err, &deliveryErr) || !deliveryErr.Retryable {
			slog.Error("Notification failed, not retrying", "subject", subject, "error", err)
			return false
		}

		slog.Warn("Connection lost during delivery, retrying",
			"subject", subject, "attempt", attempt, "max_attempts", e.maxAttempts, "error", err)
		if attempt < e.maxAttempts {
			e.sleep(e.backoff(attempt))
		}
	}

	slog.Error("Notification failed after retries", "subject", subject, "attempts", e.maxAttempts)
	return false
}

// classify wraps err as a DeliveryError, marking connection-level
// failures retryable.
func classify(err error) *DeliveryError {
	return &DeliveryError{Retryable: isConnectionError(err), Err: err}
}

func isConnectionError(err error) bool {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
