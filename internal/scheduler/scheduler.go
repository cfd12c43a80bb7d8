package scheduler

import (
	"context"
	"log"
	"time"
)

// Sweeper is the interface the scheduler drives on every tick.
type Sweeper interface {
	// AutoRepaySweep processes every active loan once and returns how many
	// loans were handled.
	AutoRepaySweep(ctx context.Context) (int, error)
}

// AutoPayScheduler owns the recurring auto-repayment sweep. It is started and
// stopped explicitly by the process lifecycle, and RunOnce triggers a single
// synchronous sweep without waiting on the timer.
type AutoPayScheduler struct {
	sweeper  Sweeper
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func New(sweeper Sweeper, interval time.Duration) *AutoPayScheduler {
	return &AutoPayScheduler{
		sweeper:  sweeper,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the ticker goroutine. Call Stop to shut it down.
func (s *AutoPayScheduler) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Printf("[AUTOPAY] scheduler started, interval %s", s.interval)
		for {
			select {
			case <-ticker.C:
				s.RunOnce(context.Background())
			case <-s.stop:
				log.Println("[AUTOPAY] scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the ticker and waits for the loop to exit. A sweep already in
// flight runs to completion.
func (s *AutoPayScheduler) Stop() {
	close(s.stop)
	<-s.done
}

// RunOnce performs one sweep and returns the number of loans handled.
func (s *AutoPayScheduler) RunOnce(ctx context.Context) int {
	log.Println("[AUTOPAY] running auto-pay sweep...")
	processed, err := s.sweeper.AutoRepaySweep(ctx)
	if err != nil {
		log.Printf("[AUTOPAY] sweep failed: %v", err)
		return processed
	}
	log.Printf("[AUTOPAY] sweep complete, %d loans processed", processed)
	return processed
}
