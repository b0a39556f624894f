package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	credora "github.com/credora-ai/credora/sdk/golang"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reviewCmd)
}

var reviewCmd = &cobra.Command{
	Use:       "review <application-id> <approve|reject>",
	Short:     "Record the final decision on an application (admin)",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"approve", "reject"},
	RunE: func(cmd *cobra.Command, args []string) error {
		appID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("application id must be an integer: %q", args[0])
		}
		decision, err := parseDecision(args[1])
		if err != nil {
			return err
		}

		s, err := loadSettings()
		if err != nil {
			return err
		}
		if !s.file.Auth.IsAdmin {
			return fmt.Errorf("review requires an admin account; signed in as %s", valueOrDefault(s.file.Auth.Email, "(nobody)"))
		}
		client, err := s.client(true)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		resp, err := client.ReviewApplication(ctx, appID, decision)
		if err != nil {
			return fmt.Errorf("failed to review application %d: %w", appID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Application #%d %s by %s\n", resp.ApplicationID, resp.Status, resp.ReviewedBy)
		return nil
	},
}

// parseDecision accepts approve/reject as well as the backend status names.
func parseDecision(arg string) (string, error) {
	switch strings.ToLower(arg) {
	case "approve", "approved":
		return credora.StatusApproved, nil
	case "reject", "rejected":
		return credora.StatusRejected, nil
	}
	return "", fmt.Errorf("decision must be approve or reject, got %q", arg)
}
