package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach-engine/orchestrator/internal/config"
	"outreach-engine/orchestrator/internal/logging"
	"outreach-engine/orchestrator/internal/store"
	"outreach-engine/orchestrator/pkg/models"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to DB
	a := cfg.Stub.Archive
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		a.Host, a.Port, a.User, a.Password, a.Name, a.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	archive := store.NewPostgresSessionArchive(pool)
	if err := archive.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	// Check for existing sessions to prevent duplicates
	existing, err := archive.ListSessions(ctx)
	if err != nil {
		log.Fatalf("Failed to list existing sessions: %v", err)
	}

	existingMap := make(map[string]bool)
	for _, s := range existing {
		existingMap[s.Name] = true
	}

	// Seed demo sessions
	now := time.Now().UTC()
	sessions := []struct {
		Name      string
		Campaigns int
		Company   string
		Role      string
		Age       time.Duration
	}{
		{"Q3 enterprise push", 3, "Northwind Analytics", "VP Sales", 72 * time.Hour},
		{"Founder outreach batch", 1, "Initech", "CTO", 24 * time.Hour},
		{"Scratchpad", 0, "", "", time.Hour},
	}

	for _, s := range sessions {
		if existingMap[s.Name] {
			logger.Info("Skipping existing session", "name", s.Name)
			continue
		}

		summary := models.SessionSummary{
			ID:            uuid.New().String(),
			Name:          s.Name,
			CreatedAt:     now.Add(-s.Age),
			UpdatedAt:     now.Add(-s.Age / 2),
			CampaignCount: s.Campaigns,
			LastCompany:   s.Company,
			LastRole:      s.Role,
		}

		if err := archive.SaveSession(ctx, summary); err != nil {
			log.Printf("Failed to seed session %s: %v", s.Name, err)
		} else {
			logger.Info("Seeded session", "name", s.Name, "id", summary.ID)
		}
	}
	logger.Info("Seeding complete!")
}
