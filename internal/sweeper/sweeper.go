// Package sweeper periodically expires pending invitations that are past
// their expiry.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/orgs/internal/telemetry"
)

// Expirer moves overdue pending invitations to expired. *orgs.Service
// satisfies it.
type Expirer interface {
	RevokeExpiredInvitationSet(ctx context.Context) (int64, error)
}

// Sweeper runs an Expirer on a fixed interval until stopped.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a sweeper that runs every interval.
// The first sweep runs synchronously, then a background goroutine takes over
// until Stop() is called or ctx is done.
func New(ctx context.Context, expirer Expirer, interval time.Duration) *Sweeper {
	sweepCtx, cancel := context.WithCancel(ctx)

	sw := &Sweeper{
		expirer:  expirer,
		interval: interval,
		ctx:      sweepCtx,
		cancel:   cancel,
	}

	sw.sweep(sweepCtx)

	sw.wg.Add(1)
	go sw.loop()

	return sw
}

// Stop gracefully stops the background sweep goroutine.
func (sw *Sweeper) Stop() {
	sw.cancel()
	sw.wg.Wait()
}

func (sw *Sweeper) loop() {
	defer sw.wg.Done()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.ctx.Done():
			log.Info().Msg("Invitation sweeper stopped")
			return

		case <-ticker.C:
			sw.sweep(sw.ctx)
		}
	}
}

// sweep runs one expiry pass. Failures are logged and retried on the next tick.
func (sw *Sweeper) sweep(ctx context.Context) {
	started := time.Now()

	count, err := sw.expirer.RevokeExpiredInvitationSet(ctx)

	telemetry.GetMetrics().SweepDuration.Record(ctx, float64(time.Since(started).Milliseconds()))

	if err != nil {
		log.Error().Err(err).Msg("Failed to expire invitations")
		return
	}

	if count > 0 {
		log.Info().Int64("count", count).Dur("duration", time.Since(started)).Msg("Expired pending invitations")
		return
	}

	log.Debug().Dur("duration", time.Since(started)).Msg("No invitations to expire")
}
