package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusActions bool

// statusCmd prints the current snapshot of a campaign.
var statusCmd = &cobra.Command{
	Use:   "status <campaign-id>",
	Short: "Show a campaign's current state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusActions, "actions", false, "Include the agent action log")
}

func runStatus(cmd *cobra.Command, args []string) error {
	campaign, err := client.GetCampaign(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch campaign: %w", err)
	}

	renderCampaign(campaign)

	if p := campaign.Persona; p != nil {
		fmt.Printf("persona: %s, %s at %s\n", p.Name, p.Role, p.Company)
		if p.CommunicationStyle != "" {
			fmt.Printf("  style: %s\n", p.CommunicationStyle)
		}
		for _, pain := range p.PainPoints {
			fmt.Printf("  pain point: %s\n", pain)
		}
	}

	if statusActions {
		fmt.Printf("\nagent actions (%d):\n", len(campaign.Actions))
		for _, a := range campaign.Actions {
			fmt.Printf("  %s  %-12s %-24s %s (%dms)\n",
				a.Timestamp.Format("15:04:05"), a.Stage, a.Action, a.Status, a.DurationMS)
		}
	}
	return nil
}
