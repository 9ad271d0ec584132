package models

import "time"

// SessionSummary is the lightweight index record shown in session lists.
type SessionSummary struct {
	ID            string    `json:"session_id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	CampaignCount int       `json:"campaign_count"`
	LastCompany   string    `json:"last_company,omitempty"`
	LastRole      string    `json:"last_role,omitempty"`
}

// SessionDetail is a session with all of its campaigns.
type SessionDetail struct {
	ID        string     `json:"session_id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Campaigns []Campaign `json:"campaigns"`
}
