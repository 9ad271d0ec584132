package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine/orchestrator/pkg/models"
)

func TestParseDecision(t *testing.T) {
	for input, want := range map[string]Decision{
		"approve":    DecisionApprove,
		"Regenerate": DecisionRegenerate,
		" skip ":     DecisionSkip,
	} {
		got, err := ParseDecision(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseDecision("reject")
	assert.Error(t, err)
}

func TestPartitionChoices(t *testing.T) {
	choices := map[models.Channel]Decision{
		models.ChannelEmail:    DecisionApprove,
		models.ChannelSMS:      DecisionSkip,
		models.ChannelLinkedIn: DecisionRegenerate,
		models.ChannelWhatsApp: DecisionApprove,
	}

	approved, regen, skipped := partitionChoices(choices)

	assert.Equal(t, []models.Channel{models.ChannelEmail, models.ChannelWhatsApp}, approved)
	assert.Equal(t, []models.Channel{models.ChannelLinkedIn}, regen)
	assert.Equal(t, []models.Channel{models.ChannelSMS}, skipped)
}

func TestApplyDecisions(t *testing.T) {
	now := time.Now()

	t.Run("approve keeps body and score", func(t *testing.T) {
		c := reviewableCampaign()
		body, score := c.Drafts[0].Body, *c.Drafts[0].Score

		applyDecisions(c, []models.Channel{models.ChannelEmail}, nil, nil, now)

		d := c.FindDraft(models.ChannelEmail)
		require.NotNil(t, d)
		assert.True(t, d.Approved)
		assert.Equal(t, body, d.Body)
		assert.Equal(t, score, *d.Score)
		assert.Equal(t, 1, d.Version)
	})

	t.Run("regenerate bumps version and resets approval", func(t *testing.T) {
		c := reviewableCampaign()
		c.Drafts[0].Approved = true
		oldBody := c.Drafts[0].Body

		applyDecisions(c, nil, []models.Channel{models.ChannelEmail}, nil, now)

		d := c.FindDraft(models.ChannelEmail)
		require.NotNil(t, d)
		assert.Equal(t, 2, d.Version)
		assert.Equal(t, 1, d.RegenerateCount)
		assert.False(t, d.Approved)
		assert.NotEqual(t, oldBody, d.Body)
		assert.Contains(t, d.Body, now.Format("15:04:05"))
		require.NotNil(t, d.Score)
		assert.GreaterOrEqual(t, *d.Score, 0.0)
		assert.LessOrEqual(t, *d.Score, 10.0)
		assert.NotEmpty(t, d.ScoreRationale)
	})

	t.Run("sent drafts cannot be regenerated", func(t *testing.T) {
		c := reviewableCampaign()
		c.Drafts[0].Sent = true

		applyDecisions(c, nil, []models.Channel{models.ChannelEmail}, nil, now)

		d := c.FindDraft(models.ChannelEmail)
		require.NotNil(t, d)
		assert.Equal(t, 1, d.Version)
		assert.Equal(t, 0, d.RegenerateCount)
	})

	t.Run("skip removes the draft", func(t *testing.T) {
		c := reviewableCampaign()

		applyDecisions(c, nil, nil, []models.Channel{models.ChannelSMS}, now)

		assert.Nil(t, c.FindDraft(models.ChannelSMS))
		assert.Len(t, c.Drafts, 1)
	})

	t.Run("repeated regeneration keeps score in range", func(t *testing.T) {
		c := reviewableCampaign()
		for i := 0; i < 20; i++ {
			applyDecisions(c, nil, []models.Channel{models.ChannelEmail}, nil, now)
		}
		d := c.FindDraft(models.ChannelEmail)
		require.NotNil(t, d)
		assert.Equal(t, 21, d.Version)
		assert.Equal(t, 20, d.RegenerateCount)
		assert.LessOrEqual(t, *d.Score, 10.0)
	})
}
