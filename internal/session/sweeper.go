package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically removes expired records from stores that support it.
// Verification still deletes expired records lazily; the sweeper only bounds
// storage growth for sessions nobody comes back to.
type Sweeper struct {
	store    ExpiredDeleter
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewSweeper(store ExpiredDeleter, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Sweep runs one pass and returns the number of deleted records.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.now())
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("expired session sweep failed")
				continue
			}
			if n > 0 {
				s.log.Info().Int64("deleted", n).Msg("expired sessions swept")
			}
		}
	}
}
