// Package retry wraps remote calls with bounded exponential backoff.
// Failures are normalized into a canonical record, classified as
// transient or terminal, and only transient failures are retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries is the number of additional attempts after the
	// first failure.
	DefaultMaxRetries = 5

	// DefaultInitialDelay is the wait before the first retry. It doubles
	// on every subsequent retry, with no cap and no jitter.
	DefaultInitialDelay = 2 * time.Second
)

// ErrServiceBusy is surfaced after transient retries are exhausted. It
// deliberately hides provider status detail from the caller.
var ErrServiceBusy = errors.New("the generation service is temporarily busy, please try again in a moment")

// RemoteError is the canonical shape every remote failure is normalized
// into before classification. Provider adapters wrap their SDK errors
// into it; Body carries the raw error payload where one exists.
type RemoteError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Message, e.StatusCode, e.Body)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// Class is the result of classifying a normalized remote failure.
type Class int

const (
	// Terminal failures are propagated immediately, unchanged.
	Terminal Class = iota
	// Transient failures are expected to resolve on retry.
	Transient
)

// Markers that flag a transient provider failure when they appear in the
// lower-cased error text. Status codes 429/500/503 are transient too.
var transientMarkers = []string{
	"429",
	"resource_exhausted",
	"quota",
	"internal",
	"overloaded",
	"server error",
}

// Normalize maps any remote-call failure into a RemoteError. Errors that
// already carry one (directly or wrapped) keep their status and body;
// everything else is classified on message text alone.
func Normalize(err error) RemoteError {
	var re *RemoteError
	if errors.As(err, &re) {
		return *re
	}
	return RemoteError{Message: err.Error()}
}

// Classify is a pure function from a normalized failure to its class.
func Classify(rec RemoteError) Class {
	switch rec.StatusCode {
	case 429, 500, 503:
		return Transient
	}
	text := strings.ToLower(rec.Message + " " + rec.Body)
	for _, marker := range transientMarkers {
		if strings.Contains(text, marker) {
			return Transient
		}
	}
	return Terminal
}

// Executor retries transient remote failures with exponential backoff.
// The zero value is not usable; call New.
type Executor struct {
	MaxRetries   int
	InitialDelay time.Duration
	logger       *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns an Executor with the default retry bound and delay.
func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		logger:       logger,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry state machine.
type state int

const (
	stateAttempting state = iota
	stateWaiting
	stateSucceeded
	stateFailedExhausted
	stateFailedTerminal
)

// Do runs op, retrying transient failures up to ex.MaxRetries times.
// Terminal failures propagate unchanged. Exhausted transient failures
// surface as ErrServiceBusy. Retries are visible only through logging.
func Do[T any](ctx context.Context, ex *Executor, name string, op func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
		retries int
		delay   = ex.InitialDelay
		st      = stateAttempting
	)

	for {
		switch st {
		case stateAttempting:
			result, lastErr = op(ctx)
			if lastErr == nil {
				st = stateSucceeded
				break
			}
			rec := Normalize(lastErr)
			if Classify(rec) == Terminal {
				st = stateFailedTerminal
				break
			}
			if retries >= ex.MaxRetries {
				st = stateFailedExhausted
				break
			}
			st = stateWaiting

		case stateWaiting:
			ex.logger.Warn("transient failure, retrying",
				"op", name,
				"attempt", retries+1,
				"delay", delay,
				"error", lastErr,
			)
			if err := ex.sleep(ctx, delay); err != nil {
				var zero T
				return zero, err
			}
			retries++
			delay *= 2
			st = stateAttempting

		case stateSucceeded:
			return result, nil

		case stateFailedExhausted:
			ex.logger.Error("retries exhausted", "op", name, "retries", retries, "error", lastErr)
			var zero T
			return zero, fmt.Errorf("%s: %w", name, ErrServiceBusy)

		case stateFailedTerminal:
			var zero T
			return zero, lastErr
		}
	}
}
