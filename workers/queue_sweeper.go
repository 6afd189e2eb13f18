package workers

import (
	"context"
	"log"
	"time"

	"baghchal-server/services"

	"github.com/go-co-op/gocron/v2"
)

// StartQueueSweeper runs a periodic liveness sweep: dead queue tickets are
// purged, and user->match bindings whose match has expired are dropped, so
// neither piles up for clients that vanished without polling.
func StartQueueSweeper(ctx context.Context, mm *services.MatchmakingService, interval time.Duration) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[SWEEPER] failed to create scheduler: %v", err)
		return
	}
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			removed, err := mm.SweepDeadTickets(ctx)
			if err != nil {
				log.Printf("[SWEEPER] ticket sweep failed: %v", err)
			} else if removed > 0 {
				log.Printf("[SWEEPER] purged %d dead ticket(s) from the queue", removed)
			}

			dropped, err := mm.SweepStaleBindings(ctx)
			if err != nil {
				log.Printf("[SWEEPER] binding sweep failed: %v", err)
			} else if dropped > 0 {
				log.Printf("[SWEEPER] dropped %d stale match binding(s)", dropped)
			}
		}),
	)

	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
	}()
}
