// Package api implements the HTTP client for the outreach backend
// collaborator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"outreach-engine/orchestrator/pkg/models"
)

// StartCampaignRequest is the request body for launching a campaign from a
// URL or free text.
type StartCampaignRequest struct {
	InputType string `json:"input_type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
}

// ApprovalSubmission carries the partitioned per-channel decisions.
type ApprovalSubmission struct {
	Approved []models.Channel `json:"approved"`
	Regen    []models.Channel `json:"regen"`
	Skipped  []models.Channel `json:"skipped"`
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Name string `json:"name,omitempty"`
}

// Client is an HTTP client for the backend collaborator surface.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Client against the given base endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListSessions returns all session summaries, most recently updated first.
func (c *Client) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	var sessions []models.SessionSummary
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession creates a new session with an optional display name.
func (c *Client) CreateSession(ctx context.Context, name string) (*models.SessionSummary, error) {
	var session models.SessionSummary
	req := CreateSessionRequest{Name: name}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession returns full session details including its campaigns.
func (c *Client) GetSession(ctx context.Context, id string) (*models.SessionDetail, error) {
	var session models.SessionDetail
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(id), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession deletes a session and all its campaigns.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/sessions/"+url.PathEscape(id), nil, nil)
}

// RenameSession updates a session's display name.
func (c *Client) RenameSession(ctx context.Context, id, name string) error {
	path := "/api/v1/sessions/" + url.PathEscape(id) + "?name=" + url.QueryEscape(name)
	return c.doJSON(ctx, http.MethodPut, path, nil, nil)
}

// StartCampaign launches a campaign from a URL or free text and returns the
// initial campaign snapshot.
func (c *Client) StartCampaign(ctx context.Context, inputType, content, sessionID string) (*models.Campaign, error) {
	var campaign models.Campaign
	req := StartCampaignRequest{InputType: inputType, Content: content, SessionID: sessionID}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/campaigns", req, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// UploadCampaign launches a campaign from an uploaded file. The file path
// uses a multipart encoding because it carries binary content.
func (c *Client) UploadCampaign(ctx context.Context, filename string, content []byte, sessionID string) (*models.Campaign, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart form: %w", err)
	}

	path := "/api/v1/campaigns/upload"
	if sessionID != "" {
		path += "?session_id=" + url.QueryEscape(sessionID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload failed: status code %d", resp.StatusCode)
	}

	var campaign models.Campaign
	if err := json.NewDecoder(resp.Body).Decode(&campaign); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	return &campaign, nil
}

// GetCampaign fetches the full campaign snapshot. This is what the poller
// calls each tick.
func (c *Client) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/campaigns/"+url.PathEscape(id), nil, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// SubmitApprovals forwards the partitioned decision sets to the backend.
// The response body is not needed; the caller already applied the
// optimistic transformation.
func (c *Client) SubmitApprovals(ctx context.Context, campaignID string, approved, regen, skipped []models.Channel) error {
	req := ApprovalSubmission{Approved: approved, Regen: regen, Skipped: skipped}
	path := "/api/v1/campaigns/" + url.PathEscape(campaignID) + "/approve"
	return c.doJSON(ctx, http.MethodPost, path, req, nil)
}

// doJSON performs one JSON request against the backend. A nil out discards
// the response body.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status code %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
