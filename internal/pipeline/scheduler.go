package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RunLoop executes a cycle immediately, then on the given interval until ctx
// is canceled. Cycles never overlap: the scheduler skips a tick while a run
// is still in flight.
func (p *Pipeline) RunLoop(ctx context.Context, interval time.Duration) error {
	if interval < time.Minute {
		return fmt.Errorf("interval %s too short, minimum is 1m", interval)
	}

	p.RunCycle(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		p.RunCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule harvest: %w", err)
	}

	p.logger.Info("scheduler started", zap.Duration("interval", interval))
	c.Start()
	<-ctx.Done()

	stop := c.Stop()
	<-stop.Done()
	p.logger.Info("scheduler stopped")
	return nil
}
