package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yuukiLike/cc-catch-news/internal/domain"
	"github.com/yuukiLike/cc-catch-news/internal/ports"
)

// Dispatch sends the digest to every output in order and returns how many
// deliveries succeeded. Failures, panics included, are logged, never returned.
func Dispatch(ctx context.Context, outputs []ports.Output, digest domain.Digest, logger *slog.Logger, metrics Metrics) int {
	delivered := 0
	for _, out := range outputs {
		logger.Info("sending digest to output", "output", out.Name())
		if err := sendOutput(ctx, out, digest); err != nil {
			logger.Error("output send failed", "output", out.Name(), "error", err)
			metrics.OutputFailed(out.Name())
			continue
		}
		delivered++
	}
	return delivered
}

func sendOutput(ctx context.Context, out ports.Output, digest domain.Digest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("output panic: %v", r)
		}
	}()
	return out.Send(ctx, digest)
}
