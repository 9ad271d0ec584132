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

// fakeBackend implements Backend with canned responses.
type fakeBackend struct {
	mu sync.Mutex

	campaign  *models.Campaign
	session   *models.SessionDetail
	startErr  error
	submitErr error
	getErr    error

	submitted []submission
}

type submission struct {
	campaignID string
	approved   []models.Channel
	regen      []models.Channel
	skipped    []models.Channel
}

func (f *fakeBackend) GetCampaign(context.Context, string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.campaign.Clone(), nil
}

func (f *fakeBackend) StartCampaign(_ context.Context, _, _, _ string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.campaign.Clone(), nil
}

func (f *fakeBackend) UploadCampaign(_ context.Context, _ string, _ []byte, _ string) (*models.Campaign, error) {
	return f.StartCampaign(context.Background(), "file", "", "")
}

func (f *fakeBackend) SubmitApprovals(_ context.Context, campaignID string, approved, regen, skipped []models.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, submission{campaignID, approved, regen, skipped})
	return nil
}

func (f *fakeBackend) GetSession(context.Context, string) (*models.SessionDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil, errors.New("session not found")
	}
	return f.session, nil
}

func (f *fakeBackend) submissions() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submission(nil), f.submitted...)
}

// newTestController uses an hour-long poll period so ticks never interfere
// with synchronous assertions.
func newTestController(backend Backend) *Controller {
	return NewController(backend, time.Hour, logging.NewLogger())
}

func launchedController(t *testing.T, backend *fakeBackend) *Controller {
	t.Helper()
	c := newTestController(backend)
	t.Cleanup(c.Close)
	_, err := c.Launch(context.Background(), InputText, "profile text")
	require.NoError(t, err)
	return c
}

func TestLaunchAdoptsCampaignAndSession(t *testing.T) {
	campaign := reviewableCampaign()
	campaign.SessionID = "s-9"
	backend := &fakeBackend{campaign: campaign}

	c := launchedController(t, backend)

	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "c-1", snap.ID)
	assert.Equal(t, "s-9", c.SessionID())
	assert.False(t, c.Offline())
	assert.True(t, c.Polling())
}

func TestLaunchRejectsEmptyInput(t *testing.T) {
	c := newTestController(&fakeBackend{campaign: reviewableCampaign()})
	defer c.Close()

	_, err := c.Launch(context.Background(), InputURL, "")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, c.Snapshot())
}

func TestLaunchFallsBackWhenBackendUnreachable(t *testing.T) {
	backend := &fakeBackend{startErr: errors.New("connection refused")}
	c := newTestController(backend)
	defer c.Close()

	snap, err := c.Launch(context.Background(), InputURL, "https://example.com/profile")
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.True(t, c.Offline())
	assert.False(t, c.Polling(), "degraded mode must not poll")
	assert.True(t, NeedsApproval(snap))
}

func TestLaunchUnreadableFileFallsBack(t *testing.T) {
	backend := &fakeBackend{campaign: reviewableCampaign()}
	c := newTestController(backend)
	defer c.Close()

	snap, err := c.Launch(context.Background(), InputFile, "/nonexistent/targets.txt")
	require.NoError(t, err, "an unreadable file is a launch failure, not a hard error")
	require.NotNil(t, snap)

	assert.True(t, c.Offline())
	assert.False(t, c.Polling())
	assert.True(t, NeedsApproval(snap))
}

func TestRecordChoiceLastDecisionWins(t *testing.T) {
	c := launchedController(t, &fakeBackend{campaign: reviewableCampaign()})

	c.RecordChoice(models.ChannelEmail, DecisionApprove)
	c.RecordChoice(models.ChannelEmail, DecisionRegenerate)
	c.RecordChoice(models.ChannelEmail, DecisionSkip)

	choices := c.PendingChoices()
	assert.Equal(t, DecisionSkip, choices[models.ChannelEmail])
	assert.Len(t, choices, 1)
}

func TestSubmitWithoutCampaign(t *testing.T) {
	c := newTestController(&fakeBackend{})
	defer c.Close()

	assert.ErrorIs(t, c.Submit(context.Background()), ErrNoCampaign)
}

func TestSubmitWithNoChoicesIsIdentity(t *testing.T) {
	backend := &fakeBackend{campaign: reviewableCampaign()}
	c := launchedController(t, backend)
	before := c.Snapshot()

	require.NoError(t, c.Submit(context.Background()))

	assert.Equal(t, before.Drafts, c.Snapshot().Drafts)
	assert.Empty(t, backend.submissions())
}

func TestSubmitApproveAndSkipScenario(t *testing.T) {
	// email scored 8.5, sms scored 6.0, both unapproved.
	backend := &fakeBackend{campaign: reviewableCampaign()}
	c := launchedController(t, backend)

	c.RecordChoice(models.ChannelEmail, DecisionApprove)
	c.RecordChoice(models.ChannelSMS, DecisionSkip)
	require.NoError(t, c.Submit(context.Background()))

	snap := c.Snapshot()
	require.Len(t, snap.Drafts, 1)
	assert.Equal(t, models.ChannelEmail, snap.Drafts[0].Channel)
	assert.True(t, snap.Drafts[0].Approved)
	assert.Equal(t, 8.5, *snap.Drafts[0].Score)
	assert.Empty(t, c.PendingChoices(), "choices are cleared on submit")

	subs := backend.submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, []models.Channel{models.ChannelEmail}, subs[0].approved)
	assert.Empty(t, subs[0].regen)
	assert.Equal(t, []models.Channel{models.ChannelSMS}, subs[0].skipped)
}

func TestSubmitRegenerateTransformsDraft(t *testing.T) {
	backend := &fakeBackend{campaign: reviewableCampaign()}
	c := launchedController(t, backend)

	c.RecordChoice(models.ChannelSMS, DecisionRegenerate)
	require.NoError(t, c.Submit(context.Background()))

	d := c.Snapshot().FindDraft(models.ChannelSMS)
	require.NotNil(t, d)
	assert.Equal(t, 2, d.Version)
	assert.Equal(t, 1, d.RegenerateCount)
	assert.False(t, d.Approved)
	require.NotNil(t, d.Score)
	assert.GreaterOrEqual(t, *d.Score, 0.0)
	assert.LessOrEqual(t, *d.Score, 10.0)
}

func TestSubmitKeepsLocalStateOnTransportFailure(t *testing.T) {
	backend := &fakeBackend{campaign: reviewableCampaign(), submitErr: errors.New("boom")}
	c := launchedController(t, backend)

	c.RecordChoice(models.ChannelEmail, DecisionApprove)
	require.NoError(t, c.Submit(context.Background()), "transport failure is not surfaced")

	// No rollback: the optimistic transformation stands.
	d := c.Snapshot().FindDraft(models.ChannelEmail)
	require.NotNil(t, d)
	assert.True(t, d.Approved)
	assert.Empty(t, c.PendingChoices())
}

func TestSubmitOfflineSkipsBackend(t *testing.T) {
	backend := &fakeBackend{startErr: errors.New("no backend")}
	c := newTestController(backend)
	defer c.Close()
	_, err := c.Launch(context.Background(), InputText, "profile")
	require.NoError(t, err)

	c.RecordChoice(models.ChannelEmail, DecisionApprove)
	require.NoError(t, c.Submit(context.Background()))

	assert.Empty(t, backend.submissions())
	assert.True(t, c.Snapshot().FindDraft(models.ChannelEmail).Approved)
}

func TestCompleteMarksApprovedDraftsSent(t *testing.T) {
	campaign := reviewableCampaign()
	campaign.Drafts[0].Approved = true
	backend := &fakeBackend{campaign: campaign}
	c := launchedController(t, backend)

	require.NoError(t, c.Complete())

	snap := c.Snapshot()
	assert.Equal(t, models.CampaignCompleted, snap.Status)
	assert.Equal(t, models.StagePersistence, snap.CurrentStage)
	assert.True(t, snap.FindDraft(models.ChannelEmail).Sent)
	assert.False(t, snap.FindDraft(models.ChannelSMS).Sent)
	assert.False(t, c.Polling())

	for _, stage := range []models.Stage{models.StageApproval, models.StageExecution, models.StagePersistence} {
		rec := snap.FindStage(stage)
		require.NotNil(t, rec, "stage %s must be finalized", stage)
		assert.Equal(t, models.StageCompleted, rec.Status)
		require.NotNil(t, rec.DurationMS)
		assert.Positive(t, *rec.DurationMS)
	}
}

func TestCompleteRefusesWithPendingChoices(t *testing.T) {
	c := launchedController(t, &fakeBackend{campaign: reviewableCampaign()})

	c.RecordChoice(models.ChannelEmail, DecisionApprove)
	assert.ErrorIs(t, c.Complete(), ErrChoicesPending)
}

func TestCompleteWithoutCampaign(t *testing.T) {
	c := newTestController(&fakeBackend{})
	defer c.Close()

	assert.ErrorIs(t, c.Complete(), ErrNoCampaign)
}

func TestSelectSessionAdoptsLatestCampaign(t *testing.T) {
	older := reviewableCampaign()
	older.ID = "c-old"
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := reviewableCampaign()
	newer.ID = "c-new"
	newer.Status = models.CampaignCompleted
	newer.CreatedAt = time.Now()

	backend := &fakeBackend{
		campaign: newer,
		session: &models.SessionDetail{
			ID:        "s-1",
			Name:      "Session 1",
			Campaigns: []models.Campaign{*older, *newer},
		},
	}
	c := newTestController(backend)
	defer c.Close()

	require.NoError(t, c.SelectSession(context.Background(), "s-1"))

	assert.Equal(t, "s-1", c.SessionID())
	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "c-new", snap.ID)
	assert.False(t, c.Polling(), "terminal campaign is not polled")
}

func TestSelectSessionResumesPollingForLiveCampaign(t *testing.T) {
	live := reviewableCampaign()
	backend := &fakeBackend{
		campaign: live,
		session: &models.SessionDetail{
			ID:        "s-2",
			Campaigns: []models.Campaign{*live},
		},
	}
	c := newTestController(backend)
	defer c.Close()

	require.NoError(t, c.SelectSession(context.Background(), "s-2"))
	assert.True(t, c.Polling())
}

func TestPollSnapshotOverwritesLocalState(t *testing.T) {
	backend := &fakeBackend{campaign: reviewableCampaign()}
	c := NewController(backend, 5*time.Millisecond, logging.NewLogger())
	defer c.Close()

	_, err := c.Launch(context.Background(), InputText, "profile")
	require.NoError(t, err)

	// The server starts reporting an approved email draft.
	updated := reviewableCampaign()
	updated.Drafts[0].Approved = true
	backend.mu.Lock()
	backend.campaign = updated
	backend.mu.Unlock()

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		d := snap.FindDraft(models.ChannelEmail)
		return d != nil && d.Approved
	}, time.Second, time.Millisecond, "poll snapshot must overwrite local state")
}
