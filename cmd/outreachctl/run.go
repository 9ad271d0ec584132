package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"outreach-engine/orchestrator/internal/orchestrator"
	"outreach-engine/orchestrator/pkg/models"
)

var (
	runURL     string
	runText    string
	runFile    string
	runSession string
	runFinal   bool
)

// runCmd launches a campaign and walks through the interactive review loop.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch a campaign and review its drafts",
	Long: `Launch a campaign from a URL, free text, or a file, wait for the
pipeline to produce scored drafts, then approve, regenerate, or skip each
channel. Finalizing sends the approved drafts and completes the campaign.`,
	RunE: runCampaign,
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "Target profile URL")
	runCmd.Flags().StringVar(&runText, "text", "", "Free-text target description")
	runCmd.Flags().StringVar(&runFile, "file", "", "Path to a target description file")
	runCmd.Flags().StringVar(&runSession, "session", "", "Session to launch into")
	runCmd.Flags().BoolVar(&runFinal, "finalize", false, "Finalize without prompting")
}

func runCampaign(cmd *cobra.Command, args []string) error {
	kind, payload, err := launchInput()
	if err != nil {
		return err
	}

	pollInterval := time.Duration(cfg.Backend.PollIntervalMS) * time.Millisecond
	ctrl := orchestrator.NewController(client, pollInterval, logger)
	defer ctrl.Close()

	ctx := cmd.Context()
	if runSession != "" {
		if err := ctrl.SelectSession(ctx, runSession); err != nil {
			return err
		}
	}

	snap, err := ctrl.Launch(ctx, kind, payload)
	if err != nil {
		return err
	}
	if ctrl.Offline() {
		fmt.Println("Backend unreachable; reviewing an offline sample campaign.")
	}
	fmt.Printf("Campaign %s launched (session %s)\n", snap.ID, ctrl.SessionID())

	snap = waitForReview(ctrl, pollInterval)
	if snap.Status.Terminal() {
		renderCampaign(snap)
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		renderCampaign(snap)
		recordDecisions(ctrl, snap, scanner)

		pending := ctrl.PendingChoices()
		if len(pending) == 0 {
			break
		}
		hadRegen := false
		for _, d := range pending {
			if d == orchestrator.DecisionRegenerate {
				hadRegen = true
			}
		}

		if err := ctrl.Submit(ctx); err != nil {
			return err
		}
		snap = ctrl.Snapshot()
		if !hadRegen {
			break
		}
		fmt.Println("Regenerating drafts...")
		snap = waitForReview(ctrl, pollInterval)
	}

	if !runFinal {
		fmt.Print("Finalize campaign and send approved drafts? [y/N] ")
		if !scanner.Scan() || !strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
			fmt.Println("Campaign left in review.")
			return nil
		}
	}

	if err := ctrl.Complete(); err != nil {
		return err
	}
	final := ctrl.Snapshot()
	renderCampaign(final)
	sent := 0
	for _, d := range final.Drafts {
		if d.Sent {
			sent++
		}
	}
	fmt.Printf("Campaign completed: %d draft(s) sent.\n", sent)
	return nil
}

func launchInput() (orchestrator.InputKind, string, error) {
	set := 0
	for _, v := range []string{runURL, runText, runFile} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return "", "", fmt.Errorf("exactly one of --url, --text or --file is required")
	}
	switch {
	case runURL != "":
		return orchestrator.InputURL, runURL, nil
	case runFile != "":
		return orchestrator.InputFile, runFile, nil
	default:
		return orchestrator.InputText, runText, nil
	}
}

// waitForReview polls the controller snapshot until the campaign needs a
// review decision or reaches a terminal status.
func waitForReview(ctrl *orchestrator.Controller, pollInterval time.Duration) *models.Campaign {
	for {
		snap := ctrl.Snapshot()
		if snap == nil {
			time.Sleep(pollInterval)
			continue
		}
		if snap.Status.Terminal() || orchestrator.ShowApprovalUI(snap) {
			return snap
		}
		fmt.Printf("  stage: %s (%s)\n", snap.CurrentStage, snap.Status)
		time.Sleep(pollInterval)
	}
}

// recordDecisions prompts for one decision per draft. An empty line leaves
// the draft undecided.
func recordDecisions(ctrl *orchestrator.Controller, snap *models.Campaign, scanner *bufio.Scanner) {
	for _, d := range snap.Drafts {
		if d.Sent {
			continue
		}
		fmt.Printf("%s: [a]pprove / [r]egenerate / [s]kip / enter to leave: ", d.Channel)
		if !scanner.Scan() {
			return
		}
		var decision orchestrator.Decision
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "a", "approve":
			decision = orchestrator.DecisionApprove
		case "r", "regenerate", "regen":
			decision = orchestrator.DecisionRegenerate
		case "s", "skip":
			decision = orchestrator.DecisionSkip
		default:
			continue
		}
		ctrl.RecordChoice(d.Channel, decision)
	}
}

func renderCampaign(c *models.Campaign) {
	fmt.Printf("\n%s at %s  [%s / %s]\n", c.TargetRole, c.TargetCompany, c.Status, c.CurrentStage)
	for _, rec := range c.Stages {
		marker := " "
		switch rec.Status {
		case models.StageCompleted:
			marker = "x"
		case models.StageRunning:
			marker = ">"
		}
		fmt.Printf("  [%s] %s\n", marker, rec.Name)
	}
	for _, d := range c.Drafts {
		score := "unscored"
		if d.Score != nil {
			score = fmt.Sprintf("%.1f", *d.Score)
		}
		flags := ""
		if d.Approved {
			flags += " approved"
		}
		if d.Sent {
			flags += " sent"
		}
		if d.RegenerateCount > 0 {
			flags += fmt.Sprintf(" rev%d", d.Version)
		}
		fmt.Printf("\n- %s (score %s)%s\n", d.Channel, score, flags)
		if d.Subject != "" {
			fmt.Printf("  subject: %s\n", d.Subject)
		}
		fmt.Printf("  %s\n", strings.ReplaceAll(d.Body, "\n", "\n  "))
		if d.ScoreRationale != "" {
			fmt.Printf("  rationale: %s\n", d.ScoreRationale)
		}
	}
	fmt.Println()
}
