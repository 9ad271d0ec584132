package orchestrator

import "outreach-engine/orchestrator/pkg/models"

// NeedsApproval derives whether the campaign is implicitly awaiting human
// review: it has drafts, every draft has been scored, none has been
// approved yet, and the campaign is not completed. The backend does not
// send an explicit "awaiting input" flag, so this is inferred from the data
// shape alone.
func NeedsApproval(c *models.Campaign) bool {
	if c == nil || len(c.Drafts) == 0 {
		return false
	}
	if c.Status == models.CampaignCompleted {
		return false
	}
	for _, d := range c.Drafts {
		if d.Score == nil || d.Approved {
			return false
		}
	}
	return true
}

// ShowApprovalUI reports whether the review surface should be presented.
// The backend may signal "awaiting review" through the current stage,
// through the status, or only implicitly through the data shape; any of the
// three is sufficient so an inconsistent snapshot cannot strand the user.
func ShowApprovalUI(c *models.Campaign) bool {
	if c == nil {
		return false
	}
	return c.CurrentStage == models.StageApproval ||
		c.Status == models.CampaignApproval ||
		NeedsApproval(c)
}
