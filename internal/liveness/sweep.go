// FilePath: internal/liveness/sweep.go
// Package liveness owns the active/inactive state machine's downward edge:
// a periodic sweep that demotes devices whose newest record has gone stale.
// The upward edge (any fresh telemetry) belongs to ingestion.
package liveness

import (
	"context"
	"errors"
	"time"

	"github.com/ecohack/envhub/internal/config"
	"github.com/ecohack/envhub/internal/hubservice"
	"github.com/ecohack/envhub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// EventDeviceDemoted is emitted once per device demoted by a sweep cycle.
const EventDeviceDemoted = "device.demoted"

// Stats summarizes one sweep cycle.
type Stats struct {
	Active  int // active devices at the start of the cycle
	Demoted int
	Skipped int // active devices with zero records (invariant violation)
}

// Sweeper is the single recurring background task. At most one cycle is in
// flight at a time; Stop cancels the loop and waits for the current cycle
// to drain.
type Sweeper struct {
	hub        *hubservice.HubService
	interval   time.Duration
	staleAfter time.Duration

	// Observer, when set, receives the stats of every completed cycle.
	Observer func(Stats)

	cancel context.CancelFunc
	done   chan struct{}
}

func New(hub *hubservice.HubService, cfg config.SweepConfig) *Sweeper {
	if cfg.Interval > cfg.StaleAfter {
		nuts.L.Warnf("[Sweep] Interval %v exceeds stale_after %v; stale devices may linger", cfg.Interval, cfg.StaleAfter)
	}
	return &Sweeper{
		hub:        hub,
		interval:   cfg.Interval,
		staleAfter: cfg.StaleAfter,
	}
}

// Start launches the sweep loop. It returns immediately.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx)
	nuts.L.Infof("[Sweep] Started (interval %v, stale after %v)", s.interval, s.staleAfter)
}

// Stop cancels the loop and blocks until the in-flight cycle finishes.
func (s *Sweeper) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	nuts.L.Infof("[Sweep] Stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			stats, err := s.RunCycle(ctx, now.UTC())
			if err != nil {
				// Storage trouble must not kill the loop; next tick retries.
				nuts.L.Errorf("[Sweep] Cycle failed: %v", err)
				continue
			}
			if s.Observer != nil {
				s.Observer(stats)
			}
		}
	}
}

// RunCycle re-evaluates every currently-active device against the staleness
// threshold at the given observation time. Idempotent: a second cycle with
// no intervening telemetry changes nothing.
func (s *Sweeper) RunCycle(ctx context.Context, now time.Time) (Stats, error) {
	var stats Stats

	devices, err := s.hub.Devices.ListActive(ctx)
	if err != nil {
		return stats, err
	}
	stats.Active = len(devices)
	staleBefore := now.Add(-s.staleAfter)

	for _, device := range devices {
		latest, err := s.hub.Records.LatestByDevice(ctx, device.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// A device cannot be active with zero records.
				nuts.L.Warnf("[Sweep] Active device %s has no records; skipping", device.Name)
				stats.Skipped++
				continue
			}
			nuts.L.Errorf("[Sweep] Failed to read latest record for %s: %v", device.Name, err)
			continue
		}

		// Strictly older than the threshold; a record aged exactly
		// staleAfter still counts as fresh.
		if latest.Time.Before(staleBefore) {
			demoted, err := s.hub.Devices.Deactivate(ctx, device.ID, staleBefore)
			if err != nil {
				nuts.L.Errorf("[Sweep] Failed to demote %s: %v", device.Name, err)
				continue
			}
			if demoted {
				nuts.L.Infof("[Sweep] Device %s inactive; last record at %v", device.Name, latest.Time)
				s.hub.Events.Emit(EventDeviceDemoted, device.Name)
				stats.Demoted++
			}
		}
	}
	return stats, nil
}
