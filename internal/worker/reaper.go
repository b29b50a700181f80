package worker

import (
	"context"
	"time"

	"github.com/quizforge/quizforge-backend/internal/service"
	"github.com/rs/zerolog"
)

// Reaper force-submits attempts whose countdown ran out. It ticks every
// second so an expired attempt is graded within a second of its deadline
// whether or not the client is still connected.
type Reaper struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewReaper creates a new Reaper.
func NewReaper(attemptService *service.AttemptService, log zerolog.Logger) *Reaper {
	return &Reaper{
		attemptService: attemptService,
		log:            log.With().Str("component", "reaper").Logger(),
	}
}

func (r *Reaper) Start(ctx context.Context) {
	r.log.Info().Msg("Reaper started")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Reaper stopped")
			return
		case <-ticker.C:
			r.attemptService.Reap(ctx)
		}
	}
}
