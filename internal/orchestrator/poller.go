// Package orchestrator coordinates the human-in-the-loop review of one
// outreach campaign: it polls the backend for authoritative snapshots,
// reconciles them with locally applied decisions, and drives the approval
// and completion transitions.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"outreach-engine/orchestrator/internal/logging"
	"outreach-engine/orchestrator/pkg/models"
)

// CampaignFetcher fetches one authoritative campaign snapshot.
type CampaignFetcher interface {
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
}

// loopHandle identifies one running poll loop so a loop that terminates on
// its own can disarm itself without racing a concurrent Stop.
type loopHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Poller owns a cancellable repeating fetch loop bound to one campaign.
// At most one loop is live at a time: Start cancels any existing loop first,
// and the loop self-terminates when a snapshot reports terminal status.
type Poller struct {
	fetcher  CampaignFetcher
	interval time.Duration
	logger   *logging.Logger

	// startMu serializes whole Start/Stop sequences so two concurrent
	// Starts cannot each pass the cancel step and install two live loops.
	startMu sync.Mutex

	mu     sync.Mutex
	handle *loopHandle
}

// NewPoller creates a Poller with a fixed poll period.
func NewPoller(fetcher CampaignFetcher, interval time.Duration, logger *logging.Logger) *Poller {
	return &Poller{fetcher: fetcher, interval: interval, logger: logger}
}

// Start begins polling the given campaign, cancelling any loop already
// running. Each successful tick invokes onSnapshot with the fetched
// snapshot before the next tick is scheduled.
func (p *Poller) Start(campaignID string, onSnapshot func(*models.Campaign)) {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	p.stop()

	ctx, cancel := context.WithCancel(context.Background())
	h := &loopHandle{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	p.handle = h
	p.mu.Unlock()

	go p.loop(ctx, h, campaignID, onSnapshot)
}

// Stop cancels the poll loop and waits for it to exit. Calling Stop when no
// loop is running is a no-op.
func (p *Poller) Stop() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	p.stop()
}

func (p *Poller) stop() {
	p.mu.Lock()
	h := p.handle
	p.handle = nil
	p.mu.Unlock()

	if h != nil {
		h.cancel()
		<-h.done
	}
}

// Running reports whether a poll loop is currently live.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

func (p *Poller) loop(ctx context.Context, h *loopHandle, campaignID string, onSnapshot func(*models.Campaign)) {
	defer close(h.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// One fetch per tick; a hung request is bounded by the poll
			// period so it cannot block future ticks indefinitely.
			tickCtx, cancel := context.WithTimeout(ctx, p.interval)
			snapshot, err := p.fetcher.GetCampaign(tickCtx, campaignID)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				p.logger.Warn("poll tick failed", "campaign_id", campaignID, "error", err)
				continue
			}

			onSnapshot(snapshot)

			if snapshot.Status.Terminal() {
				p.logger.Info("campaign reached terminal status, stopping poll loop",
					"campaign_id", campaignID, "status", snapshot.Status)
				p.disarm(h)
				return
			}
		}
	}
}

// disarm clears the stored handle if it still belongs to this loop, so a
// later Start does not wait on an already-finished loop.
func (p *Poller) disarm(h *loopHandle) {
	p.mu.Lock()
	if p.handle == h {
		p.handle = nil
	}
	p.mu.Unlock()
}
