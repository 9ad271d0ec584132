package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"outreach-engine/orchestrator/pkg/models"
)

// fallbackDraft seeds one synthetic draft per channel.
type fallbackDraft struct {
	subject   string
	body      string
	score     float64
	rationale string
}

var fallbackDrafts = map[models.Channel]fallbackDraft{
	models.ChannelEmail: {
		subject:   "Cutting your team's reporting time in half",
		body:      "Hi Jordan, I noticed Northwind Analytics is scaling its data platform team. Most teams at that stage lose hours a week stitching reports together by hand; we built a way around that. Would a 20-minute walkthrough next week be useful?",
		score:     8.4,
		rationale: "Strong personalization and a concrete, low-friction ask.",
	},
	models.ChannelSMS: {
		body:      "Hi Jordan, saw Northwind is growing its data team. We help teams like yours automate reporting. Worth a quick chat?",
		score:     6.9,
		rationale: "Concise and on-message, but the hook is generic for SMS.",
	},
	models.ChannelLinkedIn: {
		body:      "Jordan, your post on scaling analytics infrastructure resonated. We work with platform leads facing the same reporting bottlenecks and I'd value your take on our approach.",
		score:     7.8,
		rationale: "References the target's own content, which lifts reply rates.",
	},
	models.ChannelInstagram: {
		body:      "Loved the behind-the-scenes look at Northwind's data culture. We're building tools for exactly that kind of team. Open to connecting?",
		score:     6.2,
		rationale: "Tone fits the channel but the value proposition is thin.",
	},
	models.ChannelWhatsApp: {
		body:      "Hi Jordan, quick one: we help analytics teams cut manual reporting. A mutual contact suggested you'd be the right person at Northwind. Can I send over a two-line summary?",
		score:     7.1,
		rationale: "Polite, permission-based opener appropriate for WhatsApp.",
	},
}

// fallbackStageDurations gives the completed stages plausible timings.
var fallbackStageDurations = map[models.Stage]int64{
	models.StageIngestion: 1240,
	models.StagePersona:   2180,
	models.StageDrafting:  3460,
	models.StageScoring:   1870,
}

// FallbackCampaign builds a fully formed synthetic campaign for degraded
// mode: every stage up to and including scoring is completed, approval is
// running, and each channel carries one scored, unapproved draft so the
// snapshot immediately satisfies the needs-approval derivation.
func FallbackCampaign(sessionID string, now time.Time) *models.Campaign {
	c := &models.Campaign{
		ID:            uuid.New().String(),
		SessionID:     sessionID,
		Status:        models.CampaignApproval,
		CurrentStage:  models.StageApproval,
		TargetCompany: "Northwind Analytics",
		TargetRole:    "Head of Data Platform",
		Persona: &models.Persona{
			Name:                "Jordan Velez",
			Company:             "Northwind Analytics",
			Role:                "Head of Data Platform",
			Industry:            "Business intelligence",
			Seniority:           "Director",
			CommunicationStyle:  "direct",
			ToneKeywords:        []string{"pragmatic", "data-driven", "busy"},
			KeyInterests:        []string{"pipeline reliability", "team velocity"},
			PainPoints:          []string{"manual reporting", "tool sprawl"},
			DecisionFactors:     []string{"time to value", "integration effort"},
			RecommendedApproach: "Lead with a measurable outcome and a small ask.",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	elapsed := now.Add(-12 * time.Second)
	for _, stage := range models.Stages() {
		switch stage {
		case models.StageIngestion, models.StagePersona, models.StageDrafting, models.StageScoring:
			dur := fallbackStageDurations[stage]
			started := elapsed
			completed := started.Add(time.Duration(dur) * time.Millisecond)
			elapsed = completed
			c.Stages = append(c.Stages, models.StageRecord{
				Name:        stage,
				StartedAt:   &started,
				CompletedAt: &completed,
				DurationMS:  &dur,
				Status:      models.StageCompleted,
			})
		case models.StageApproval:
			started := elapsed
			c.Stages = append(c.Stages, models.StageRecord{
				Name:      stage,
				StartedAt: &started,
				Status:    models.StageRunning,
			})
		default:
			c.Stages = append(c.Stages, models.StageRecord{
				Name:   stage,
				Status: models.StagePending,
			})
		}
	}

	for _, ch := range models.Channels() {
		seed := fallbackDrafts[ch]
		d := models.NewDraft(ch, seed.subject, seed.body)
		score := seed.score
		d.Score = &score
		d.ScoreRationale = seed.rationale
		c.Drafts = append(c.Drafts, d)
	}

	c.Actions = []models.AgentAction{
		models.NewAgentAction(models.StageIngestion, "ingestion_agent", "Extracted target profile from provided input", "mistral",
			"Extract the company, role and public links from the following profile text.",
			"Identified Northwind Analytics, Head of Data Platform, 3 public links.", fallbackStageDurations[models.StageIngestion]),
		models.NewAgentAction(models.StagePersona, "persona_agent", "Inferred persona and communication style", "mistral",
			"Given the extracted profile, infer seniority, tone and decision factors.",
			"Director-level, direct communication style, values time to value.", fallbackStageDurations[models.StagePersona]),
		models.NewAgentAction(models.StageScoring, "scoring_agent", fmt.Sprintf("Scored %d channel drafts", len(c.Drafts)), "mistral",
			"Score each draft from 0 to 10 for personalization, clarity and call to action.",
			"Scores assigned with per-draft rationales.", fallbackStageDurations[models.StageScoring]),
	}
	for _, ch := range models.Channels() {
		c.Actions = append(c.Actions, models.NewAgentAction(
			models.StageDrafting, string(ch)+"_draft_agent",
			"Drafted "+string(ch)+" outreach message", "mistral",
			"Write a personalized "+string(ch)+" message for the inferred persona.",
			fallbackDrafts[ch].body, 650))
	}

	return c
}
