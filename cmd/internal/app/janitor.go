package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/WillyWilliam00/gestione-fotocopie/cmd/internal/auth/session"
)

// runJanitor purges long-expired refresh credentials every interval until
// ctx is done.
func runJanitor(ctx context.Context, log *slog.Logger, sessions *session.Service, interval time.Duration, now func() time.Time) error {
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			purgeOnce(ctx, log, sessions, now())
		}
	}
}

func purgeOnce(ctx context.Context, log *slog.Logger, sessions *session.Service, now time.Time) {
	n, err := sessions.Purge(ctx, now)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("janitor.purge.fail", "err", err)
		}
		return
	}
	if n > 0 {
		log.Info("janitor.purge", "deleted", n)
	}
}
