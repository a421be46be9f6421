package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Counter reports how many documents a collection currently holds.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Scheduler runs the nightly stats job: document counts for both collections
// go to the log and to a redis hash for dashboards.
type Scheduler struct {
	cron        *cron.Cron
	cache       *redis.Client
	users       Counter
	collectives Counter
	log         zerolog.Logger
}

func NewScheduler(cache *redis.Client, users, collectives Counter, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:        c,
		cache:       cache,
		users:       users,
		collectives: collectives,
		log:         log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 0 * * *", s.recordStats); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for any running job to finish, up to a
// deadline.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) recordStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userCount, err := s.users.Count(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("count users failed")
		return
	}
	collectiveCount, err := s.collectives.Count(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("count collectives failed")
		return
	}

	s.log.Info().
		Int64("users", userCount).
		Int64("collectives", collectiveCount).
		Msg("document stats")

	if s.cache == nil {
		return
	}
	err = s.cache.HSet(ctx, "stats:documents",
		"users", userCount,
		"collectives", collectiveCount,
		"updatedAt", time.Now().Format(time.RFC3339),
	).Err()
	if err != nil {
		s.log.Error().Err(err).Msg("record stats failed")
	}
}
