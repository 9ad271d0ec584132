// Package models defines the domain models shared by the outreach
// orchestration client and the stub backend.
package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Channel is a fixed named delivery medium for a draft message.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelSMS       Channel = "sms"
	ChannelLinkedIn  Channel = "linkedin"
	ChannelInstagram Channel = "instagram"
	ChannelWhatsApp  Channel = "whatsapp"
)

// Channels returns the channel vocabulary in its fixed order.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelLinkedIn, ChannelInstagram, ChannelWhatsApp}
}

// Stage is one named phase of the generation pipeline.
type Stage string

const (
	StageIngestion   Stage = "ingestion"
	StagePersona     Stage = "persona"
	StageDrafting    Stage = "drafting"
	StageScoring     Stage = "scoring"
	StageApproval    Stage = "approval"
	StageExecution   Stage = "execution"
	StagePersistence Stage = "persistence"
)

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{
		StageIngestion, StagePersona, StageDrafting, StageScoring,
		StageApproval, StageExecution, StagePersistence,
	}
}

// CampaignStatus is the lifecycle status of a campaign.
type CampaignStatus string

const (
	CampaignCreated   CampaignStatus = "created"
	CampaignRunning   CampaignStatus = "running"
	CampaignApproval  CampaignStatus = "approval"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// Terminal reports whether no further lifecycle transitions are possible.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignCompleted || s == CampaignFailed
}

// StageStatus is the execution status of a single stage record.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// ActionOutcome is the outcome of one unit of agent work.
type ActionOutcome string

const (
	ActionSuccess ActionOutcome = "success"
	ActionFailure ActionOutcome = "failure"
)

// Draft is one generated message for one channel within one campaign.
type Draft struct {
	ID              string     `json:"id,omitempty"`
	Channel         Channel    `json:"channel"`
	Subject         string     `json:"subject,omitempty"`
	Body            string     `json:"body"`
	Score           *float64   `json:"score,omitempty"`
	ScoreRationale  string     `json:"score_rationale,omitempty"`
	Approved        bool       `json:"approved"`
	Sent            bool       `json:"sent"`
	Version         int        `json:"version"`
	RegenerateCount int        `json:"regenerate_count"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

// NewDraft creates a fresh unscored draft for a channel.
func NewDraft(channel Channel, subject, body string) Draft {
	now := time.Now().UTC()
	return Draft{
		ID:        uuid.New().String(),
		Channel:   channel,
		Subject:   subject,
		Body:      body,
		Version:   1,
		CreatedAt: &now,
	}
}

// StageRecord tracks the execution of one pipeline stage. Immutable once
// completed.
type StageRecord struct {
	Name        Stage       `json:"name"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	DurationMS  *int64      `json:"duration_ms,omitempty"`
	Status      StageStatus `json:"status"`
}

// AgentAction is an append-only audit entry for one unit of generation work.
type AgentAction struct {
	ID              string        `json:"id"`
	Timestamp       time.Time     `json:"timestamp"`
	Stage           Stage         `json:"stage"`
	Agent           string        `json:"agent"`
	Action          string        `json:"action"`
	Model           string        `json:"model"`
	PromptPreview   string        `json:"prompt_preview"`
	ResponsePreview string        `json:"response_preview"`
	TokensUsed      *int          `json:"tokens_used,omitempty"`
	DurationMS      int64         `json:"duration_ms"`
	Status          ActionOutcome `json:"status"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

// previewLimit caps prompt/response previews on audit entries.
const previewLimit = 200

// NewAgentAction records one successful unit of agent work, truncating the
// prompt and response previews.
func NewAgentAction(stage Stage, agent, action, model, prompt, response string, durationMS int64) AgentAction {
	return AgentAction{
		ID:              uuid.New().String(),
		Timestamp:       time.Now().UTC(),
		Stage:           stage,
		Agent:           agent,
		Action:          action,
		Model:           model,
		PromptPreview:   truncatePreview(prompt),
		ResponsePreview: truncatePreview(response),
		DurationMS:      durationMS,
		Status:          ActionSuccess,
	}
}

func truncatePreview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	// Back off to a rune boundary so the cut never splits a multi-byte rune.
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Persona is the inferred profile of the outreach target.
type Persona struct {
	Name                string   `json:"name,omitempty"`
	Company             string   `json:"company,omitempty"`
	Role                string   `json:"role,omitempty"`
	Industry            string   `json:"industry,omitempty"`
	Seniority           string   `json:"seniority,omitempty"`
	CommunicationStyle  string   `json:"communication_style,omitempty"`
	ToneKeywords        []string `json:"tone_keywords,omitempty"`
	KeyInterests        []string `json:"key_interests,omitempty"`
	PainPoints          []string `json:"pain_points,omitempty"`
	DecisionFactors     []string `json:"decision_factors,omitempty"`
	RecommendedApproach string   `json:"recommended_approach,omitempty"`
	ConfidenceScore     *float64 `json:"confidence_score,omitempty"`
}

// Campaign is the unit of work: one outreach run with its drafts, stage
// records and agent action log.
type Campaign struct {
	ID            string         `json:"campaign_id"`
	SessionID     string         `json:"session_id,omitempty"`
	Status        CampaignStatus `json:"status"`
	CurrentStage  Stage          `json:"current_stage"`
	TargetCompany string         `json:"target_company,omitempty"`
	TargetRole    string         `json:"target_role,omitempty"`
	Drafts        []Draft        `json:"drafts"`
	Actions       []AgentAction  `json:"llm_actions"`
	Stages        []StageRecord  `json:"stages"`
	Persona       *Persona       `json:"persona,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at,omitempty"`
}

// FindDraft returns the draft for a channel, or nil if absent.
func (c *Campaign) FindDraft(channel Channel) *Draft {
	for i := range c.Drafts {
		if c.Drafts[i].Channel == channel {
			return &c.Drafts[i]
		}
	}
	return nil
}

// FindStage returns the stage record with the given name, or nil if absent.
func (c *Campaign) FindStage(name Stage) *StageRecord {
	for i := range c.Stages {
		if c.Stages[i].Name == name {
			return &c.Stages[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the campaign.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	out.Drafts = make([]Draft, len(c.Drafts))
	for i, d := range c.Drafts {
		out.Drafts[i] = d
		if d.Score != nil {
			score := *d.Score
			out.Drafts[i].Score = &score
		}
		if d.CreatedAt != nil {
			created := *d.CreatedAt
			out.Drafts[i].CreatedAt = &created
		}
	}
	out.Stages = make([]StageRecord, len(c.Stages))
	for i, s := range c.Stages {
		out.Stages[i] = s
		if s.StartedAt != nil {
			started := *s.StartedAt
			out.Stages[i].StartedAt = &started
		}
		if s.CompletedAt != nil {
			completed := *s.CompletedAt
			out.Stages[i].CompletedAt = &completed
		}
		if s.DurationMS != nil {
			dur := *s.DurationMS
			out.Stages[i].DurationMS = &dur
		}
	}
	out.Actions = append([]AgentAction(nil), c.Actions...)
	if c.Persona != nil {
		persona := *c.Persona
		out.Persona = &persona
	}
	return &out
}
