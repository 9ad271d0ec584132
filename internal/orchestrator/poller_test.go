package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine/orchestrator/internal/logging"
	"outreach-engine/orchestrator/pkg/models"
)

// fakeFetcher serves canned campaign snapshots and counts fetches per id.
type fakeFetcher struct {
	mu        sync.Mutex
	status    models.CampaignStatus
	failures  int
	fetches   map[string]int
	fetchErrs int
}

func newFakeFetcher(status models.CampaignStatus) *fakeFetcher {
	return &fakeFetcher{status: status, fetches: make(map[string]int)}
}

func (f *fakeFetcher) GetCampaign(_ context.Context, id string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[id]++
	if f.failures > 0 {
		f.failures--
		f.fetchErrs++
		return nil, errors.New("connection refused")
	}
	return &models.Campaign{ID: id, Status: f.status}, nil
}

func (f *fakeFetcher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[id]
}

func (f *fakeFetcher) setStatus(status models.CampaignStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func TestPollerDeliversSnapshots(t *testing.T) {
	fetcher := newFakeFetcher(models.CampaignRunning)
	p := NewPoller(fetcher, 5*time.Millisecond, logging.NewLogger())

	var mu sync.Mutex
	var seen []*models.Campaign
	p.Start("c-1", func(c *models.Campaign) {
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
	})
	defer p.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, "c-1", seen[0].ID)
	mu.Unlock()
	assert.True(t, p.Running())
}

func TestPollerSingleActiveLoop(t *testing.T) {
	fetcher := newFakeFetcher(models.CampaignRunning)
	p := NewPoller(fetcher, 5*time.Millisecond, logging.NewLogger())

	p.Start("first", func(*models.Campaign) {})
	p.Start("second", func(*models.Campaign) {})
	defer p.Stop()

	require.Eventually(t, func() bool {
		return fetcher.count("second") >= 2
	}, time.Second, time.Millisecond)

	// The replaced loop must be fully cancelled: no further fetches for it.
	before := fetcher.count("first")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, fetcher.count("first"))
	assert.True(t, p.Running())
}

func TestPollerConcurrentStartsLeaveOneLoop(t *testing.T) {
	fetcher := newFakeFetcher(models.CampaignRunning)
	p := NewPoller(fetcher, time.Millisecond, logging.NewLogger())

	ids := []string{"c-0", "c-1", "c-2", "c-3", "c-4", "c-5", "c-6", "c-7"}
	var ready, done sync.WaitGroup
	ready.Add(len(ids))
	done.Add(len(ids))
	release := make(chan struct{})
	for _, id := range ids {
		go func(id string) {
			defer done.Done()
			ready.Done()
			<-release
			p.Start(id, func(*models.Campaign) {})
		}(id)
	}
	ready.Wait()
	close(release)
	done.Wait()

	// One Stop must cancel everything; an orphaned loop would keep fetching.
	p.Stop()
	before := make(map[string]int, len(ids))
	for _, id := range ids {
		before[id] = fetcher.count(id)
	}
	time.Sleep(50 * time.Millisecond)
	for _, id := range ids {
		assert.Equal(t, before[id], fetcher.count(id), "loop for %s survived Stop", id)
	}
	assert.False(t, p.Running())
}

func TestPollerStopIsIdempotent(t *testing.T) {
	fetcher := newFakeFetcher(models.CampaignRunning)
	p := NewPoller(fetcher, 5*time.Millisecond, logging.NewLogger())

	p.Stop() // never started

	p.Start("c-1", func(*models.Campaign) {})
	p.Stop()
	p.Stop()
	assert.False(t, p.Running())
}

func TestPollerStopsOnTerminalStatus(t *testing.T) {
	for _, status := range []models.CampaignStatus{models.CampaignCompleted, models.CampaignFailed} {
		t.Run(string(status), func(t *testing.T) {
			fetcher := newFakeFetcher(status)
			p := NewPoller(fetcher, 5*time.Millisecond, logging.NewLogger())

			p.Start("c-1", func(*models.Campaign) {})

			require.Eventually(t, func() bool {
				return !p.Running()
			}, time.Second, time.Millisecond)

			// No further ticks are scheduled after the terminal snapshot.
			count := fetcher.count("c-1")
			time.Sleep(50 * time.Millisecond)
			assert.Equal(t, count, fetcher.count("c-1"))
		})
	}
}

func TestPollerToleratesTransientFailures(t *testing.T) {
	fetcher := newFakeFetcher(models.CampaignRunning)
	fetcher.failures = 3
	p := NewPoller(fetcher, 5*time.Millisecond, logging.NewLogger())

	var delivered sync.WaitGroup
	delivered.Add(1)
	var once sync.Once
	p.Start("c-1", func(*models.Campaign) {
		once.Do(delivered.Done)
	})
	defer p.Stop()

	done := make(chan struct{})
	go func() {
		delivered.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("snapshot was never delivered after transient failures")
	}
	assert.True(t, p.Running())
}
