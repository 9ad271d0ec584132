package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// sessionsCmd manages review sessions on the backend.
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage campaign sessions",
	RunE:  runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	RunE:  runSessionsList,
}

var sessionsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsCreate,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its campaigns",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <name>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionsRename,
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	sessions, err := client.ListSessions(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	for _, s := range sessions {
		line := fmt.Sprintf("%s  %-24s  %d campaigns", s.ID, s.Name, s.CampaignCount)
		if s.LastCompany != "" {
			line += fmt.Sprintf("  (last: %s / %s)", s.LastCompany, s.LastRole)
		}
		fmt.Println(line)
	}
	fmt.Printf("Total: %d sessions\n", len(sessions))
	return nil
}

func runSessionsCreate(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	session, err := client.CreateSession(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	fmt.Printf("Created session %s (%s)\n", session.ID, session.Name)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	if err := client.DeleteSession(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Printf("Deleted session %s\n", args[0])
	return nil
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	if err := client.RenameSession(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}
	fmt.Printf("Renamed session %s to %q\n", args[0], args[1])
	return nil
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsCreateCmd, sessionsDeleteCmd, sessionsRenameCmd)
}
