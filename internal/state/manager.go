// Package state holds the stub backend's in-memory campaign and session
// registry plus the simulated pipeline runner that drives stub campaigns
// through their stages.
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"outreach-engine/orchestrator/internal/logging"
	"outreach-engine/orchestrator/pkg/models"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCampaignNotFound is returned when a campaign id is unknown.
	ErrCampaignNotFound = errors.New("campaign not found")
)

// SessionArchiver persists session summaries outside the process. Archiving
// is best effort: failures are logged, never surfaced to API callers.
type SessionArchiver interface {
	SaveSession(ctx context.Context, summary models.SessionSummary) error
	DeleteSession(ctx context.Context, id string) error
}

// session is the registry's internal record. Campaign payloads live in the
// manager's campaign map; the session keeps an ordered id list.
type session struct {
	id          string
	name        string
	createdAt   time.Time
	updatedAt   time.Time
	campaignIDs []string
}

// Manager is the single-process state registry backing the stub server.
type Manager struct {
	logger  *logging.Logger
	archive SessionArchiver

	mu        sync.RWMutex
	sessions  map[string]*session
	campaigns map[string]*models.Campaign
}

// NewManager creates an empty registry. archive may be nil to disable
// session archiving.
func NewManager(logger *logging.Logger, archive SessionArchiver) *Manager {
	return &Manager{
		logger:    logger,
		archive:   archive,
		sessions:  make(map[string]*session),
		campaigns: make(map[string]*models.Campaign),
	}
}

// CreateSession registers a new session. An empty name gets the usual
// "Session N" default.
func (m *Manager) CreateSession(ctx context.Context, name string) models.SessionSummary {
	m.mu.Lock()
	s := m.createSessionLocked(name)
	summary := m.summarizeLocked(s)
	m.mu.Unlock()

	m.logger.Info("created session", "session_id", summary.ID, "name", summary.Name)
	m.archiveSave(ctx, summary)
	return summary
}

// createSessionLocked registers a new session record. Callers must hold m.mu.
func (m *Manager) createSessionLocked(name string) *session {
	now := time.Now().UTC()
	if name == "" {
		name = fmt.Sprintf("Session %d", len(m.sessions)+1)
	}
	s := &session{
		id:        uuid.NewString(),
		name:      name,
		createdAt: now,
		updatedAt: now,
	}
	m.sessions[s.id] = s
	return s
}

// GetSession returns the session with its full campaign snapshots.
func (m *Manager) GetSession(id string) (*models.SessionDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	detail := &models.SessionDetail{
		ID:        s.id,
		Name:      s.name,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	for _, cid := range s.campaignIDs {
		if c, ok := m.campaigns[cid]; ok {
			detail.Campaigns = append(detail.Campaigns, *c.Clone())
		}
	}
	return detail, nil
}

// ListSessions returns summaries of every session, most recently updated
// first.
func (m *Manager) ListSessions() []models.SessionSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]models.SessionSummary, 0, len(m.sessions))
	for _, s := range m.sessions {
		summaries = append(summaries, m.summarizeLocked(s))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries
}

// DeleteSession removes a session and every campaign it owns.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	for _, cid := range s.campaignIDs {
		delete(m.campaigns, cid)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	m.logger.Info("deleted session", "session_id", id)
	if m.archive != nil {
		if err := m.archive.DeleteSession(ctx, id); err != nil {
			m.logger.Warn("failed to delete archived session", "session_id", id, "error", err)
		}
	}
	return nil
}

// RenameSession updates a session's display name.
func (m *Manager) RenameSession(ctx context.Context, id, name string) (models.SessionSummary, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return models.SessionSummary{}, ErrSessionNotFound
	}
	s.name = name
	s.updatedAt = time.Now().UTC()
	summary := m.summarizeLocked(s)
	m.mu.Unlock()

	m.archiveSave(ctx, summary)
	return summary, nil
}

// CreateCampaign registers a fresh campaign in the given session, creating
// the session when the id is empty or unknown. The campaign starts in
// status created at the ingestion stage with every stage record pending.
// The whole lookup-or-create-and-append sequence runs under one lock hold
// so a concurrent DeleteSession cannot invalidate the session in between.
func (m *Manager) CreateCampaign(ctx context.Context, sessionID string) *models.Campaign {
	now := time.Now().UTC()
	c := &models.Campaign{
		ID:           uuid.NewString(),
		Status:       models.CampaignCreated,
		CurrentStage: models.StageIngestion,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, stage := range models.Stages() {
		c.Stages = append(c.Stages, models.StageRecord{Name: stage, Status: models.StagePending})
	}

	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if sessionID == "" || !ok {
		s = m.createSessionLocked("")
	}
	c.SessionID = s.id
	m.campaigns[c.ID] = c
	s.campaignIDs = append(s.campaignIDs, c.ID)
	s.updatedAt = now
	summary := m.summarizeLocked(s)
	snapshot := c.Clone()
	m.mu.Unlock()

	m.logger.Info("created campaign", "campaign_id", c.ID, "session_id", c.SessionID)
	m.archiveSave(ctx, summary)
	return snapshot
}

// GetCampaign returns a deep copy of a campaign snapshot.
func (m *Manager) GetCampaign(id string) (*models.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	return c.Clone(), nil
}

// UpdateCampaign applies mutate to the stored campaign under the registry
// lock and bumps both the campaign and its session timestamps.
func (m *Manager) UpdateCampaign(ctx context.Context, id string, mutate func(*models.Campaign)) error {
	m.mu.Lock()
	c, ok := m.campaigns[id]
	if !ok {
		m.mu.Unlock()
		return ErrCampaignNotFound
	}
	mutate(c)
	now := time.Now().UTC()
	c.UpdatedAt = now

	var summary models.SessionSummary
	archived := false
	if s, ok := m.sessions[c.SessionID]; ok {
		s.updatedAt = now
		summary = m.summarizeLocked(s)
		archived = true
	}
	m.mu.Unlock()

	if archived {
		m.archiveSave(ctx, summary)
	}
	return nil
}

// summarizeLocked builds a SessionSummary. Callers must hold m.mu.
func (m *Manager) summarizeLocked(s *session) models.SessionSummary {
	summary := models.SessionSummary{
		ID:            s.id,
		Name:          s.name,
		CreatedAt:     s.createdAt,
		UpdatedAt:     s.updatedAt,
		CampaignCount: len(s.campaignIDs),
	}
	if n := len(s.campaignIDs); n > 0 {
		if last, ok := m.campaigns[s.campaignIDs[n-1]]; ok {
			summary.LastCompany = last.TargetCompany
			summary.LastRole = last.TargetRole
		}
	}
	return summary
}

func (m *Manager) archiveSave(ctx context.Context, summary models.SessionSummary) {
	if m.archive == nil {
		return
	}
	if err := m.archive.SaveSession(ctx, summary); err != nil {
		m.logger.Warn("failed to archive session", "session_id", summary.ID, "error", err)
	}
}
