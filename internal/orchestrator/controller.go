package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"outreach-engine/orchestrator/internal/logging"
	"outreach-engine/orchestrator/pkg/models"
)

// Backend is the collaborator surface the controller consumes.
type Backend interface {
	CampaignFetcher
	StartCampaign(ctx context.Context, inputType, content, sessionID string) (*models.Campaign, error)
	UploadCampaign(ctx context.Context, filename string, content []byte, sessionID string) (*models.Campaign, error)
	SubmitApprovals(ctx context.Context, campaignID string, approved, regen, skipped []models.Channel) error
	GetSession(ctx context.Context, id string) (*models.SessionDetail, error)
}

// InputKind selects how launch input is interpreted.
type InputKind string

const (
	InputURL  InputKind = "url"
	InputText InputKind = "text"
	InputFile InputKind = "file"
)

var (
	// ErrNoCampaign is returned by operations that require a loaded campaign.
	ErrNoCampaign = errors.New("no campaign loaded")
	// ErrChoicesPending is returned by Complete while decisions are unsubmitted.
	ErrChoicesPending = errors.New("approval choices are still pending")
	// ErrEmptyInput is returned by Launch when no payload was supplied.
	ErrEmptyInput = errors.New("launch input is empty")
)

// Controller owns the single active campaign slot: the poller writes server
// snapshots into it, the approval aggregator layers local decisions on top,
// and completion finalizes it. All mutations are serialized by one mutex so
// consumers never observe a partially applied snapshot.
type Controller struct {
	backend Backend
	poller  *Poller
	logger  *logging.Logger

	mu        sync.Mutex
	campaign  *models.Campaign
	sessionID string
	choices   map[models.Channel]Decision
	offline   bool
}

// NewController creates a Controller polling at the given fixed interval.
func NewController(backend Backend, pollInterval time.Duration, logger *logging.Logger) *Controller {
	c := &Controller{
		backend: backend,
		logger:  logger,
		choices: make(map[models.Channel]Decision),
	}
	c.poller = NewPoller(backend, pollInterval, logger)
	return c
}

// applySnapshot installs an authoritative server snapshot, overwriting any
// local state. Local optimistic edits persist only until the next
// successful poll supersedes them.
func (c *Controller) applySnapshot(snapshot *models.Campaign) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.campaign = snapshot
	if c.sessionID == "" && snapshot.SessionID != "" {
		c.sessionID = snapshot.SessionID
	}
}

// Snapshot returns a deep copy of the active campaign, or nil when none is
// loaded.
func (c *Controller) Snapshot() *models.Campaign {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.campaign.Clone()
}

// SessionID returns the active session identifier, if any.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Offline reports whether the active campaign is a degraded-mode fallback.
func (c *Controller) Offline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline
}

// Polling reports whether a poll loop is live.
func (c *Controller) Polling() bool {
	return c.poller.Running()
}

// Launch starts a new campaign from a URL, free text, or a file path. On
// any transport failure it falls back to a synthetic offline campaign
// instead of surfacing an error, so the review workflow stays usable with
// an absent backend.
func (c *Controller) Launch(ctx context.Context, kind InputKind, payload string) (*models.Campaign, error) {
	if payload == "" {
		return nil, ErrEmptyInput
	}

	// Read the input file before tearing down the previous campaign's
	// state, so an unreadable path cannot leave the controller stripped of
	// its poll loop with nothing to show.
	var content []byte
	var readErr error
	switch kind {
	case InputURL, InputText:
	case InputFile:
		content, readErr = os.ReadFile(payload)
	default:
		return nil, fmt.Errorf("unknown input kind %q", kind)
	}

	// Cancel any loop belonging to a previous campaign before replacing it.
	c.poller.Stop()

	c.mu.Lock()
	sessionID := c.sessionID
	c.choices = make(map[models.Channel]Decision)
	c.mu.Unlock()

	var snapshot *models.Campaign
	var err error
	if kind == InputFile {
		if readErr != nil {
			err = fmt.Errorf("failed to read input file: %w", readErr)
		} else {
			snapshot, err = c.backend.UploadCampaign(ctx, filepath.Base(payload), content, sessionID)
		}
	} else {
		snapshot, err = c.backend.StartCampaign(ctx, string(kind), payload, sessionID)
	}

	if err != nil {
		c.logger.Warn("campaign launch failed, entering degraded mode", "error", err)
		snapshot = FallbackCampaign(sessionID, time.Now().UTC())
		c.mu.Lock()
		c.campaign = snapshot
		c.offline = true
		c.mu.Unlock()
		return snapshot.Clone(), nil
	}

	c.mu.Lock()
	c.campaign = snapshot
	c.offline = false
	if c.sessionID == "" && snapshot.SessionID != "" {
		c.sessionID = snapshot.SessionID
	}
	campaignID := snapshot.ID
	terminal := snapshot.Status.Terminal()
	c.mu.Unlock()

	if !terminal {
		c.poller.Start(campaignID, c.applySnapshot)
	}
	return snapshot.Clone(), nil
}

// RecordChoice sets or overwrites the pending decision for a channel.
// Decisions are mutually exclusive per channel; the latest one wins.
func (c *Controller) RecordChoice(channel models.Channel, decision Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.choices[channel] = decision
}

// PendingChoices returns a copy of the pending decision map.
func (c *Controller) PendingChoices() map[models.Channel]Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[models.Channel]Decision, len(c.choices))
	for ch, d := range c.choices {
		out[ch] = d
	}
	return out
}

// Submit partitions the pending choices, applies the optimistic local
// transformation, clears the choice map, and forwards the batch to the
// backend. A transport failure is logged and the locally applied state
// stands until the next successful poll supersedes it.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.campaign == nil {
		c.mu.Unlock()
		return ErrNoCampaign
	}
	if len(c.choices) == 0 {
		c.mu.Unlock()
		return nil
	}

	approved, regen, skipped := partitionChoices(c.choices)
	applyDecisions(c.campaign, approved, regen, skipped, time.Now())
	c.choices = make(map[models.Channel]Decision)

	campaignID := c.campaign.ID
	offline := c.offline
	c.mu.Unlock()

	if offline {
		// Nothing authoritative to confirm against; local state is the truth.
		return nil
	}

	if err := c.backend.SubmitApprovals(ctx, campaignID, approved, regen, skipped); err != nil {
		c.logger.Warn("approval submission failed, keeping local state",
			"campaign_id", campaignID, "error", err)
		return nil
	}

	// The backend may still be processing regenerations.
	if !c.poller.Running() {
		c.poller.Start(campaignID, c.applySnapshot)
	}
	return nil
}

// completionDurations synthesizes nonzero stage durations for stages the
// backend never timed.
var completionDurations = map[models.Stage]int64{
	models.StageApproval:    4200,
	models.StageExecution:   860,
	models.StagePersistence: 320,
}

// Complete marks every approved draft as sent, finalizes the approval,
// execution and persistence stage records, and moves the campaign to its
// terminal completed state. It is the sole transition into that state and
// refuses to run while decisions are still pending.
func (c *Controller) Complete() error {
	// Stop outside the lock; the poll loop callback takes the same mutex.
	c.poller.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.campaign == nil {
		return ErrNoCampaign
	}
	if len(c.choices) > 0 {
		return ErrChoicesPending
	}

	now := time.Now().UTC()
	for i := range c.campaign.Drafts {
		if c.campaign.Drafts[i].Approved {
			c.campaign.Drafts[i].Sent = true
		}
	}
	for _, stage := range []models.Stage{models.StageApproval, models.StageExecution, models.StagePersistence} {
		finalizeStage(c.campaign, stage, completionDurations[stage], now)
	}
	c.campaign.Status = models.CampaignCompleted
	c.campaign.CurrentStage = models.StagePersistence
	c.campaign.UpdatedAt = now
	return nil
}

// SelectSession makes the given session active: it cancels any running poll
// loop, clears pending choices, and adopts the session's most recently
// created campaign.
func (c *Controller) SelectSession(ctx context.Context, sessionID string) error {
	c.poller.Stop()

	detail, err := c.backend.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to fetch session: %w", err)
	}

	var latest *models.Campaign
	for i := range detail.Campaigns {
		candidate := &detail.Campaigns[i]
		if latest == nil || !candidate.CreatedAt.Before(latest.CreatedAt) {
			latest = candidate
		}
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.choices = make(map[models.Channel]Decision)
	c.offline = false
	c.campaign = latest.Clone()
	var campaignID string
	var resume bool
	if c.campaign != nil {
		campaignID = c.campaign.ID
		resume = !c.campaign.Status.Terminal()
	}
	c.mu.Unlock()

	if resume {
		c.poller.Start(campaignID, c.applySnapshot)
	}
	return nil
}

// Close stops any running poll loop.
func (c *Controller) Close() {
	c.poller.Stop()
}

// finalizeStage marks a stage record completed with a nonzero duration,
// creating the record if the backend never reported it. Records already
// completed are left untouched.
func finalizeStage(c *models.Campaign, name models.Stage, defaultDurationMS int64, now time.Time) {
	rec := c.FindStage(name)
	if rec == nil {
		c.Stages = append(c.Stages, models.StageRecord{Name: name, Status: models.StagePending})
		rec = &c.Stages[len(c.Stages)-1]
	}
	if rec.Status == models.StageCompleted {
		return
	}
	dur := defaultDurationMS
	if rec.StartedAt != nil {
		if measured := now.Sub(*rec.StartedAt).Milliseconds(); measured > 0 {
			dur = measured
		}
	} else {
		started := now.Add(-time.Duration(dur) * time.Millisecond)
		rec.StartedAt = &started
	}
	completed := now
	rec.CompletedAt = &completed
	rec.DurationMS = &dur
	rec.Status = models.StageCompleted
}
