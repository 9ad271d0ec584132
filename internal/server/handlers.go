// Package server contains the HTTP handlers for the stub outreach backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"outreach-engine/orchestrator/internal/logging"
	"outreach-engine/orchestrator/internal/state"
	"outreach-engine/orchestrator/pkg/models"
)

// Server holds the dependencies for the stub backend API.
type Server struct {
	state  *state.Manager
	runner *state.Runner
	logger *logging.Logger

	campaignsStarted metric.Int64Counter
	approvalBatches  metric.Int64Counter
}

// NewServer creates a new Server.
func NewServer(mgr *state.Manager, runner *state.Runner, logger *logging.Logger) (*Server, error) {
	meter := otel.Meter("outreach-engine/orchestrator/stubserver")

	campaignsStarted, err := meter.Int64Counter("campaigns_started",
		metric.WithDescription("Number of campaigns launched"))
	if err != nil {
		return nil, fmt.Errorf("failed to create campaigns_started counter: %w", err)
	}
	approvalBatches, err := meter.Int64Counter("approval_batches",
		metric.WithDescription("Number of approval decision batches received"))
	if err != nil {
		return nil, fmt.Errorf("failed to create approval_batches counter: %w", err)
	}

	return &Server{
		state:            mgr,
		runner:           runner,
		logger:           logger,
		campaignsStarted: campaignsStarted,
		approvalBatches:  approvalBatches,
	}, nil
}

// Register mounts all routes on the given Echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.Root)

	g := e.Group("/api/v1")
	g.GET("/health", s.Health)
	g.GET("/sessions", s.ListSessions)
	g.POST("/sessions", s.CreateSession)
	g.GET("/sessions/:id", s.GetSession)
	g.DELETE("/sessions/:id", s.DeleteSession)
	g.PUT("/sessions/:id", s.RenameSession)
	g.POST("/campaigns", s.StartCampaign)
	g.POST("/campaigns/upload", s.UploadCampaign)
	g.GET("/campaigns/:id", s.GetCampaign)
	g.POST("/campaigns/:id/approve", s.SubmitApprovals)
}

// ServiceInfo is the response of the root endpoint.
type ServiceInfo struct {
	Service string    `json:"service"`
	Version string    `json:"version"`
	Status  string    `json:"status"`
	Time    time.Time `json:"time"`
}

// Root returns basic service identification
// (GET /)
func (s *Server) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, ServiceInfo{
		Service: "outreach-orchestrator-stub",
		Version: "1.0.0",
		Status:  "ok",
		Time:    time.Now().UTC(),
	})
}

// Health returns health status (always 200 OK)
// (GET /api/v1/health)
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListSessions returns all session summaries, most recently updated first
// (GET /api/v1/sessions)
func (s *Server) ListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, s.state.ListSessions())
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// CreateSession creates a new session
// (POST /api/v1/sessions)
func (s *Server) CreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	summary := s.state.CreateSession(c.Request().Context(), req.Name)
	return c.JSON(http.StatusCreated, summary)
}

// GetSession returns full session details including campaigns
// (GET /api/v1/sessions/:id)
func (s *Server) GetSession(c echo.Context) error {
	detail, err := s.state.GetSession(c.Param("id"))
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, detail)
}

// DeleteSession removes a session and all its campaigns
// (DELETE /api/v1/sessions/:id)
func (s *Server) DeleteSession(c echo.Context) error {
	if err := s.state.DeleteSession(c.Request().Context(), c.Param("id")); err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// RenameSession updates a session's display name
// (PUT /api/v1/sessions/:id?name=)
func (s *Server) RenameSession(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing name query parameter")
	}
	summary, err := s.state.RenameSession(c.Request().Context(), c.Param("id"), name)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, summary)
}

// StartCampaignRequest is the request body for launching a campaign.
type StartCampaignRequest struct {
	InputType string `json:"input_type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id"`
}

// StartCampaign launches a new campaign from a URL or free text and returns
// the initial snapshot. The pipeline runs asynchronously
// (POST /api/v1/campaigns)
func (s *Server) StartCampaign(c echo.Context) error {
	var req StartCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing campaign content")
	}
	if req.InputType != "url" && req.InputType != "text" {
		return echo.NewHTTPError(http.StatusBadRequest, "input_type must be url or text")
	}

	campaign := s.state.CreateCampaign(c.Request().Context(), req.SessionID)
	s.campaignsStarted.Add(c.Request().Context(), 1)
	s.logger.Info("campaign launched", "campaign_id", campaign.ID, "input_type", req.InputType)

	go s.runner.Run(context.Background(), campaign.ID, req.InputType, req.Content)

	return c.JSON(http.StatusCreated, campaign)
}

// UploadCampaign launches a new campaign from an uploaded file
// (POST /api/v1/campaigns/upload?session_id=)
func (s *Server) UploadCampaign(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file upload: "+err.Error())
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to open upload: "+err.Error())
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read upload: "+err.Error())
	}

	campaign := s.state.CreateCampaign(c.Request().Context(), c.QueryParam("session_id"))
	s.campaignsStarted.Add(c.Request().Context(), 1)
	s.logger.Info("campaign launched from file",
		"campaign_id", campaign.ID, "filename", fileHeader.Filename, "size", fileHeader.Size)

	go s.runner.Run(context.Background(), campaign.ID, "file", string(content))

	return c.JSON(http.StatusCreated, campaign)
}

// GetCampaign returns the full campaign snapshot; this is the poll endpoint
// (GET /api/v1/campaigns/:id)
func (s *Server) GetCampaign(c echo.Context) error {
	campaign, err := s.state.GetCampaign(c.Param("id"))
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, campaign)
}

// ApprovalRequest is the request body carrying a decision batch.
type ApprovalRequest struct {
	Approved []models.Channel `json:"approved"`
	Regen    []models.Channel `json:"regen"`
	Skipped  []models.Channel `json:"skipped"`
}

// SubmitApprovals applies a decision batch to a campaign parked in approval
// (POST /api/v1/campaigns/:id/approve)
func (s *Server) SubmitApprovals(c echo.Context) error {
	var req ApprovalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	id := c.Param("id")
	campaign, err := s.state.GetCampaign(id)
	if err != nil {
		return s.httpError(err)
	}
	if campaign.Status != models.CampaignApproval {
		return echo.NewHTTPError(http.StatusBadRequest, "Campaign is not awaiting approval")
	}

	if err := s.runner.Resume(c.Request().Context(), id, req.Approved, req.Regen, req.Skipped); err != nil {
		return s.httpError(err)
	}
	s.approvalBatches.Add(c.Request().Context(), 1)

	updated, err := s.state.GetCampaign(id)
	if err != nil {
		return s.httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// httpError maps registry errors onto HTTP status codes.
func (s *Server) httpError(err error) error {
	if errors.Is(err, state.ErrSessionNotFound) || errors.Is(err, state.ErrCampaignNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
