package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	credora "github.com/credora-ai/credora/sdk/golang"
	"github.com/spf13/cobra"
)

var statusAll bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "List every user's applications (admin)")
}

var statusCmd = &cobra.Command{
	Use:   "status [application-id]",
	Short: "Show configuration, backend health and loan application status",
	Long:  "Display the current configuration and backend health. With an application ID, show that application; otherwise list your applications.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var appID int
		if len(args) == 1 {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("application id must be an integer: %q", args[0])
			}
			appID = id
		}

		s, err := loadSettings()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		// Print config summary.
		fmt.Fprintln(out, "Configuration:")
		fmt.Fprintf(out, "  API URL:  %s\n", s.env.APIURL)
		fmt.Fprintf(out, "  WS URL:   %s\n", s.env.WSURL)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Auth:")
		fmt.Fprintf(out, "  Email:    %s\n", valueOrDefault(s.file.Auth.Email, "(not signed in)"))
		if s.file.Auth.Token != "" {
			fmt.Fprintf(out, "  Token:    %s\n", maskToken(s.file.Auth.Token))
		} else {
			fmt.Fprintln(out, "  Token:    (not set)")
		}

		client, _ := s.client(false)
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		fmt.Fprintln(out)
		health, err := client.Health(ctx)
		if err != nil {
			fmt.Fprintf(out, "Backend:    unreachable (%v)\n", err)
		} else {
			fmt.Fprintf(out, "Backend:    %s (database %s)\n", health.Status, health.Database)
		}

		if s.file.Auth.Token == "" {
			return nil
		}

		fmt.Fprintln(out)
		if appID != 0 {
			app, err := client.ApplicationStatus(ctx, appID)
			if err != nil {
				return fmt.Errorf("failed to fetch application %d: %w", appID, err)
			}
			printApplication(out, app)
			return nil
		}

		var apps []credora.LoanApplication
		if statusAll {
			apps, err = client.AllApplications(ctx)
		} else {
			apps, err = client.MyApplications(ctx)
		}
		if err != nil {
			return fmt.Errorf("failed to list applications: %w", err)
		}
		if len(apps) == 0 {
			fmt.Fprintln(out, "No loan applications.")
			return nil
		}
		fmt.Fprintf(out, "Applications (%d):\n", len(apps))
		for i := range apps {
			printApplication(out, &apps[i])
		}
		return nil
	},
}

func printApplication(w io.Writer, app *credora.LoanApplication) {
	fmt.Fprintf(w, "  #%d  %-8s  amount=%.0f  term=%d", app.ID, app.Status, app.LoanAmount, app.LoanTerm)
	if app.User != nil {
		fmt.Fprintf(w, "  applicant=%s", app.User.Email)
	}
	if app.Processed() {
		fmt.Fprintf(w, "  approval=%.1f%%", *app.ApprovalProbability*100)
	}
	if app.FraudScore != nil {
		fmt.Fprintf(w, "  fraud=%.2f", *app.FraudScore)
	}
	if app.FinalDecision != nil {
		fmt.Fprintf(w, "  decision=%s", *app.FinalDecision)
	}
	fmt.Fprintln(w)
}
