package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"outreach-engine/orchestrator/pkg/models"
)

// Decision is one reviewer choice for one channel.
type Decision string

const (
	DecisionApprove    Decision = "approve"
	DecisionRegenerate Decision = "regenerate"
	DecisionSkip       Decision = "skip"
)

// ParseDecision maps user input to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionRegenerate:
		return DecisionRegenerate, nil
	case DecisionSkip:
		return DecisionSkip, nil
	}
	return "", fmt.Errorf("unknown decision %q (want approve, regenerate or skip)", s)
}

// partitionChoices splits the pending choice map into the three disjoint
// channel sets, in the fixed channel order so submissions are
// deterministic.
func partitionChoices(choices map[models.Channel]Decision) (approved, regen, skipped []models.Channel) {
	for _, ch := range models.Channels() {
		switch choices[ch] {
		case DecisionApprove:
			approved = append(approved, ch)
		case DecisionRegenerate:
			regen = append(regen, ch)
		case DecisionSkip:
			skipped = append(skipped, ch)
		}
	}
	return approved, regen, skipped
}

// applyDecisions performs the optimistic local transformation for a
// submitted decision batch: approved drafts are flagged, regenerated drafts
// get a bumped version, a fresh body and score, and a cleared approval, and
// skipped drafts are removed from the campaign entirely.
func applyDecisions(c *models.Campaign, approved, regen, skipped []models.Channel, now time.Time) {
	for _, ch := range approved {
		if d := c.FindDraft(ch); d != nil {
			d.Approved = true
		}
	}

	for _, ch := range regen {
		d := c.FindDraft(ch)
		if d == nil || d.Sent {
			continue
		}
		score := regeneratedScore(d.Score)
		d.Version++
		d.RegenerateCount++
		d.Approved = false
		d.Body = regeneratedBody(d.Body, now)
		d.Score = &score
		d.ScoreRationale = fmt.Sprintf("Regenerated take %d: reuses the original hook with a tighter close.", d.RegenerateCount)
	}

	if len(skipped) > 0 {
		skip := make(map[models.Channel]bool, len(skipped))
		for _, ch := range skipped {
			skip[ch] = true
		}
		kept := c.Drafts[:0]
		for _, d := range c.Drafts {
			if !skip[d.Channel] {
				kept = append(kept, d)
			}
		}
		c.Drafts = kept
	}
}

// regeneratedBody reuses the first sentence of the old draft and appends a
// synthesized continuation framed with a timestamp.
func regeneratedBody(body string, now time.Time) string {
	head := strings.TrimSpace(body)
	if i := strings.IndexAny(body, ".\n"); i >= 0 {
		head = strings.TrimSpace(body[:i+1])
	}
	return head + "\n\nReworked at " + now.Format("15:04:05") +
		": kept the opening, tightened the ask, ended on a concrete next step."
}

// regeneratedScore assigns the fresh score for a regenerated draft:
// slightly above the previous score, capped below 10 so repeated
// regenerations stay in range.
func regeneratedScore(old *float64) float64 {
	score := 7.0
	if old != nil {
		score = *old + 0.4
	}
	if score > 9.8 {
		score = 9.8
	}
	if score < 0 {
		score = 0
	}
	return score
}
