// Package pipeline drives the staged generation flow: ideation, design
// rendering, listing copy, mockup batches, and finalization. Every
// remote call goes through the retry executor; within a batch, calls
// are strictly sequential.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"holiday_merch_forge/retry"
)

// defaultMockupPace is the unconditional delay between consecutive
// mockup renders, independent of error-triggered backoff.
const defaultMockupPace = 1500 * time.Millisecond

// Pipeline holds the collaborators shared by every stage.
type Pipeline struct {
	text   TextGenerator
	image  ImageGenerator
	exec   *retry.Executor
	logger *slog.Logger

	mockupPace time.Duration

	// pause is swapped out in tests.
	pause func(ctx context.Context, d time.Duration) error
}

func New(text TextGenerator, image ImageGenerator, exec *retry.Executor, logger *slog.Logger) (*Pipeline, error) {
	if text == nil {
		return nil, errors.New("text generator is required")
	}
	if image == nil {
		return nil, errors.New("image generator is required")
	}
	if exec == nil {
		return nil, errors.New("retry executor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		text:       text,
		image:      image,
		exec:       exec,
		logger:     logger,
		mockupPace: defaultMockupPace,
		pause:      waitCtx,
	}, nil
}

func waitCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SetMockupPace overrides the inter-render delay. Used by tests and the
// CLI dry-run mode.
func (p *Pipeline) SetMockupPace(d time.Duration) {
	if d > 0 {
		p.mockupPace = d
	}
}
