package store

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartRetentionLoop deletes submissions older than maxAge every interval in
// a goroutine. Returns a cancel function to stop the loop.
func StartRetentionLoop(ctx context.Context, st Store, maxAge, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Run immediately on start, then on each tick
		runRetention(ctx, st, maxAge)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runRetention(ctx, st, maxAge)
			}
		}
	}()
	return cancel
}

func runRetention(ctx context.Context, st Store, maxAge time.Duration) {
	removed, err := st.DeleteOlderThan(ctx, maxAge)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("submission retention failed")
		}
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Dur("max_age", maxAge).Msg("expired submissions deleted")
	}
}
