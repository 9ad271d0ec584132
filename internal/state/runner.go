package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"outreach-engine/orchestrator/internal/logging"
	"outreach-engine/orchestrator/pkg/models"
)

// stubModel is the model name stamped on simulated agent actions.
const stubModel = "mistral"

// Runner drives a stub campaign through the pipeline stages. It simulates
// the real agent graph: ingestion, persona and drafting run with a fixed
// per-stage delay, drafts come out scored, and the campaign then parks in
// the approval stage until a decision batch arrives.
type Runner struct {
	mgr       *Manager
	logger    *logging.Logger
	stepDelay time.Duration
}

// NewRunner creates a Runner with the given simulated per-stage delay.
func NewRunner(mgr *Manager, logger *logging.Logger, stepDelay time.Duration) *Runner {
	return &Runner{mgr: mgr, logger: logger, stepDelay: stepDelay}
}

// Run advances the campaign from created through scoring and parks it in
// approval. It blocks for the simulated stage delays, so callers usually
// run it on its own goroutine.
func (r *Runner) Run(ctx context.Context, campaignID, inputType, content string) {
	company, role := deriveTarget(inputType, content)

	err := r.mgr.UpdateCampaign(ctx, campaignID, func(c *models.Campaign) {
		c.Status = models.CampaignRunning
		c.TargetCompany = company
		c.TargetRole = role
	})
	if err != nil {
		r.logger.Warn("stub run aborted", "campaign_id", campaignID, "error", err)
		return
	}

	type stageStep struct {
		stage models.Stage
		apply func(c *models.Campaign)
	}
	steps := []stageStep{
		{models.StageIngestion, func(c *models.Campaign) {
			c.Actions = append(c.Actions, models.NewAgentAction(
				models.StageIngestion, "ingestion_agent", "extract_target", stubModel,
				fmt.Sprintf("Extract company and role from %s input", inputType),
				fmt.Sprintf("company=%s role=%s", company, role),
				r.stepDelay.Milliseconds()))
		}},
		{models.StagePersona, func(c *models.Campaign) {
			confidence := 0.82
			c.Persona = &models.Persona{
				Name:               "Alex Morgan",
				Company:            company,
				Role:               role,
				CommunicationStyle: "direct, numbers-driven, allergic to fluff",
				PainPoints:         []string{"pipeline stalls after the first touch", "reporting is manual"},
				ConfidenceScore:    &confidence,
			}
			c.Actions = append(c.Actions, models.NewAgentAction(
				models.StagePersona, "persona_agent", "build_persona", stubModel,
				fmt.Sprintf("Build a buyer persona for a %s at %s", role, company),
				"Synthesized persona Alex Morgan", r.stepDelay.Milliseconds()))
		}},
		{models.StageDrafting, func(c *models.Campaign) {
			for _, ch := range models.Channels() {
				c.Drafts = append(c.Drafts, stubDraft(ch, company, role))
				c.Actions = append(c.Actions, models.NewAgentAction(
					models.StageDrafting, "drafting_agent", "draft_"+string(ch), stubModel,
					fmt.Sprintf("Draft %s outreach for %s", ch, company),
					"Draft generated", r.stepDelay.Milliseconds()))
			}
		}},
		{models.StageScoring, func(c *models.Campaign) {
			for i := range c.Drafts {
				score := stubScore(c.Drafts[i].Channel)
				c.Drafts[i].Score = &score
				c.Drafts[i].ScoreRationale = stubRationale(c.Drafts[i].Channel)
			}
			c.Actions = append(c.Actions, models.NewAgentAction(
				models.StageScoring, "scoring_agent", "score_drafts", stubModel,
				"Score each channel draft on clarity, relevance and call to action",
				"All drafts scored", r.stepDelay.Milliseconds()))
		}},
	}

	for _, step := range steps {
		if !r.runStage(ctx, campaignID, step.stage, step.apply) {
			return
		}
	}

	// Park in approval: the stage stays running until a decision batch
	// arrives, mirroring the graph interrupt in the real pipeline.
	err = r.mgr.UpdateCampaign(ctx, campaignID, func(c *models.Campaign) {
		beginStage(c, models.StageApproval)
		c.Status = models.CampaignApproval
	})
	if err != nil {
		r.logger.Warn("stub run aborted", "campaign_id", campaignID, "error", err)
		return
	}
	r.logger.Info("campaign awaiting approval", "campaign_id", campaignID)
}

// runStage executes one simulated stage with its delay. It reports false
// when the campaign vanished or the context was cancelled.
func (r *Runner) runStage(ctx context.Context, campaignID string, stage models.Stage, apply func(*models.Campaign)) bool {
	if err := r.mgr.UpdateCampaign(ctx, campaignID, func(c *models.Campaign) {
		beginStage(c, stage)
	}); err != nil {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case <-time.After(r.stepDelay):
	}

	if err := r.mgr.UpdateCampaign(ctx, campaignID, func(c *models.Campaign) {
		apply(c)
		completeStage(c, stage)
	}); err != nil {
		return false
	}
	return true
}

// Resume applies a decision batch to a parked campaign. Regenerated drafts
// get a fresh body and score and send the campaign back to approval; a
// batch that leaves approved drafts and nothing to regenerate executes and
// persists the campaign, completing it.
func (r *Runner) Resume(ctx context.Context, campaignID string, approved, regen, skipped []models.Channel) error {
	now := time.Now().UTC()
	return r.mgr.UpdateCampaign(ctx, campaignID, func(c *models.Campaign) {
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
			d.Version++
			d.RegenerateCount++
			d.Approved = false
			d.Body = fmt.Sprintf("%s (rev %d, reworked %s)",
				firstLine(d.Body), d.Version, now.Format("15:04:05"))
			score := stubScore(d.Channel) + 0.3*float64(d.RegenerateCount)
			if score > 9.9 {
				score = 9.9
			}
			d.Score = &score
			d.ScoreRationale = "Revised draft: sharper opening, single concrete ask."
		}
		for _, ch := range skipped {
			kept := c.Drafts[:0]
			for _, d := range c.Drafts {
				if d.Channel != ch {
					kept = append(kept, d)
				}
			}
			c.Drafts = kept
		}

		anyApproved := false
		for i := range c.Drafts {
			if c.Drafts[i].Approved {
				anyApproved = true
				break
			}
		}

		if len(regen) > 0 || !anyApproved {
			// More review to do; stay parked.
			beginStage(c, models.StageApproval)
			c.Status = models.CampaignApproval
			return
		}

		completeStage(c, models.StageApproval)
		beginStage(c, models.StageExecution)
		for i := range c.Drafts {
			if c.Drafts[i].Approved {
				c.Drafts[i].Sent = true
				c.Actions = append(c.Actions, models.NewAgentAction(
					models.StageExecution, "execution_agent", "send_"+string(c.Drafts[i].Channel), stubModel,
					fmt.Sprintf("Send approved %s draft", c.Drafts[i].Channel),
					"Simulated send", 120))
			}
		}
		completeStage(c, models.StageExecution)
		beginStage(c, models.StagePersistence)
		completeStage(c, models.StagePersistence)
		c.Status = models.CampaignCompleted
		c.CurrentStage = models.StagePersistence
	})
}

// beginStage marks a stage running and makes it current.
func beginStage(c *models.Campaign, stage models.Stage) {
	rec := c.FindStage(stage)
	if rec == nil {
		c.Stages = append(c.Stages, models.StageRecord{Name: stage})
		rec = &c.Stages[len(c.Stages)-1]
	}
	if rec.StartedAt == nil {
		started := time.Now().UTC()
		rec.StartedAt = &started
	}
	rec.Status = models.StageRunning
	c.CurrentStage = stage
}

// completeStage closes a stage record with its measured duration.
func completeStage(c *models.Campaign, stage models.Stage) {
	rec := c.FindStage(stage)
	if rec == nil {
		return
	}
	now := time.Now().UTC()
	if rec.StartedAt == nil {
		rec.StartedAt = &now
	}
	rec.CompletedAt = &now
	dur := now.Sub(*rec.StartedAt).Milliseconds()
	if dur < 1 {
		dur = 1
	}
	rec.DurationMS = &dur
	rec.Status = models.StageCompleted
}

// deriveTarget extracts a company and role from the launch input. URL
// inputs use the host's first label as the company; free text honors
// "company:" and "role:" lines. Anything unparseable gets stub defaults.
func deriveTarget(inputType, content string) (company, role string) {
	company, role = "Meridian Labs", "Head of Growth"

	switch inputType {
	case "url":
		host := content
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		if i := strings.IndexAny(host, "/?"); i >= 0 {
			host = host[:i]
		}
		host = strings.TrimPrefix(host, "www.")
		if label, _, ok := strings.Cut(host, "."); ok && label != "" {
			company = strings.ToUpper(label[:1]) + label[1:]
		}
	default:
		for _, line := range strings.Split(content, "\n") {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "company":
				company = value
			case "role":
				role = value
			}
		}
	}
	return company, role
}

// firstLine truncates a draft body at its first newline or sentence end.
func firstLine(body string) string {
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[:i]
	}
	if i := strings.Index(body, ". "); i >= 0 {
		body = body[:i+1]
	}
	return body
}

func stubDraft(ch models.Channel, company, role string) models.Draft {
	subject := ""
	var body string
	switch ch {
	case models.ChannelEmail:
		subject = fmt.Sprintf("Cutting first-touch drop-off at %s", company)
		body = fmt.Sprintf("Hi Alex,\n\nMost %s teams we talk to lose deals between the first reply and the first meeting. We built a workflow that books that meeting automatically. Worth 20 minutes this week?", role)
	case models.ChannelSMS:
		body = fmt.Sprintf("Hi Alex, quick one: we help %s teams turn first replies into booked meetings. Open to a short call?", role)
	case models.ChannelLinkedIn:
		body = fmt.Sprintf("Alex, saw %s is scaling outbound. We automate the step most teams drop: the follow-up after the first reply. Happy to share how.", company)
	case models.ChannelInstagram:
		body = fmt.Sprintf("Loved the recent %s updates. We work with growth teams on keeping outreach personal at volume. DM me if useful.", company)
	case models.ChannelWhatsApp:
		body = fmt.Sprintf("Hi Alex, reaching out about %s's outbound motion. We shave hours off follow-up work. Can I send a 2-minute overview?", company)
	}
	return models.NewDraft(ch, subject, body)
}

func stubScore(ch models.Channel) float64 {
	switch ch {
	case models.ChannelEmail:
		return 8.2
	case models.ChannelSMS:
		return 6.4
	case models.ChannelLinkedIn:
		return 7.8
	case models.ChannelInstagram:
		return 5.9
	case models.ChannelWhatsApp:
		return 6.8
	default:
		return 6.0
	}
}

func stubRationale(ch models.Channel) string {
	switch ch {
	case models.ChannelEmail:
		return "Clear problem statement and a concrete ask; subject line is specific."
	case models.ChannelSMS:
		return "Concise, but the ask could be more specific for a cold text."
	case models.ChannelLinkedIn:
		return "Good personalization hook; call to action is soft."
	case models.ChannelInstagram:
		return "Casual tone fits the channel; weak relevance to the buying role."
	case models.ChannelWhatsApp:
		return "Low-friction ask; assumes an existing relationship it may not have."
	default:
		return "Baseline draft."
	}
}
