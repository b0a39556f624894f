package main

import (
	"context"
	"fmt"
	"os"
	"time"

	credora "github.com/credora-ai/credora/sdk/golang"
	"github.com/spf13/cobra"
)

var (
	registerName     string
	registerPassword string
)

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().StringVar(&registerName, "name", "", "Full name (required)")
	registerCmd.Flags().StringVarP(&registerPassword, "password", "p", "", "Account password (defaults to $CREDORA_PASSWORD)")
	_ = registerCmd.MarkFlagRequired("name")
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create a Credora account",
	Long:  "Create a new (non-admin) account. Run 'credora login <email>' afterwards to sign in.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := registerPassword
		if password == "" {
			password = os.Getenv("CREDORA_PASSWORD")
		}
		if password == "" {
			return fmt.Errorf("password required: pass --password or set CREDORA_PASSWORD")
		}

		s, err := loadSettings()
		if err != nil {
			return err
		}
		client, err := s.client(false)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		resp, err := client.Register(ctx, &credora.RegisterRequest{
			Email:    args[0],
			FullName: registerName,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Account created.")
		fmt.Fprintf(out, "  Email:   %s\n", resp.Email)
		fmt.Fprintf(out, "  User ID: %d\n", resp.UserID)
		return nil
	},
}
