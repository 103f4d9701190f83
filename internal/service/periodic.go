package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"
)

// runPeriodic calls tick once after a random start delay of up to 10% of
// interval, then on every interval until ctx is done. Tick errors are logged
// and the loop keeps going. Returns nil on cancellation.
func runPeriodic(ctx context.Context, logger *slog.Logger, name string, interval time.Duration, tick func(context.Context) error) error {
	logger.InfoContext(ctx, "starting "+name, "interval", interval)

	// Spread instances that start together.
	waitWithJitter(ctx, logger, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logTickError(ctx, logger, name, tick(ctx))
	for {
		select {
		case <-ctx.Done():
			logger.InfoContext(ctx, name+" stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			logTickError(ctx, logger, name, tick(ctx))
		}
	}
}

func waitWithJitter(ctx context.Context, logger *slog.Logger, interval time.Duration) {
	maxJitter := int64(interval / 10)
	if maxJitter <= 0 {
		return
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func logTickError(ctx context.Context, logger *slog.Logger, name string, err error) {
	if err == nil {
		return
	}
	if isContextCancellation(err) {
		logger.DebugContext(ctx, name+" tick cancelled", "error", err)
		return
	}
	logger.ErrorContext(ctx, name+" tick failed", "error", err)
}
