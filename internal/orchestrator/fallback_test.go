package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine/orchestrator/pkg/models"
)

func TestFallbackCampaignIsReviewable(t *testing.T) {
	c := FallbackCampaign("s-1", time.Now().UTC())

	// Offline mode must always present a reviewable state.
	assert.True(t, NeedsApproval(c))
	assert.True(t, ShowApprovalUI(c))
	assert.Equal(t, models.CampaignApproval, c.Status)
	assert.Equal(t, models.StageApproval, c.CurrentStage)
	assert.Equal(t, "s-1", c.SessionID)
}

func TestFallbackCampaignDrafts(t *testing.T) {
	c := FallbackCampaign("", time.Now().UTC())

	require.Len(t, c.Drafts, len(models.Channels()))
	for i, ch := range models.Channels() {
		d := c.Drafts[i]
		assert.Equal(t, ch, d.Channel)
		require.NotNil(t, d.Score, "draft %s must be scored", ch)
		assert.GreaterOrEqual(t, *d.Score, 0.0)
		assert.LessOrEqual(t, *d.Score, 10.0)
		assert.NotEmpty(t, d.ScoreRationale)
		assert.NotEmpty(t, d.Body)
		assert.False(t, d.Approved)
		assert.False(t, d.Sent)
		assert.Equal(t, 1, d.Version)
	}
	email := c.FindDraft(models.ChannelEmail)
	require.NotNil(t, email)
	assert.NotEmpty(t, email.Subject)
}

func TestFallbackCampaignStages(t *testing.T) {
	c := FallbackCampaign("", time.Now().UTC())

	require.Len(t, c.Stages, len(models.Stages()))
	for _, stage := range []models.Stage{models.StageIngestion, models.StagePersona, models.StageDrafting, models.StageScoring} {
		rec := c.FindStage(stage)
		require.NotNil(t, rec)
		assert.Equal(t, models.StageCompleted, rec.Status)
		require.NotNil(t, rec.DurationMS)
		assert.Positive(t, *rec.DurationMS)
		assert.NotNil(t, rec.StartedAt)
		assert.NotNil(t, rec.CompletedAt)
	}

	approval := c.FindStage(models.StageApproval)
	require.NotNil(t, approval)
	assert.Equal(t, models.StageRunning, approval.Status)

	for _, stage := range []models.Stage{models.StageExecution, models.StagePersistence} {
		rec := c.FindStage(stage)
		require.NotNil(t, rec)
		assert.Equal(t, models.StagePending, rec.Status)
	}
}

func TestFallbackCampaignActionLog(t *testing.T) {
	c := FallbackCampaign("", time.Now().UTC())

	require.NotEmpty(t, c.Actions)
	covered := make(map[models.Stage]bool)
	for _, a := range c.Actions {
		covered[a.Stage] = true
		assert.Equal(t, models.ActionSuccess, a.Status)
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.Agent)
		assert.Positive(t, a.DurationMS)
	}
	for _, stage := range []models.Stage{models.StageIngestion, models.StagePersona, models.StageDrafting, models.StageScoring} {
		assert.True(t, covered[stage], "no agent action covers stage %s", stage)
	}
}
