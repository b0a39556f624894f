package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var loginPassword string

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (defaults to $CREDORA_PASSWORD)")
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and store the access token",
	Long:  "Sign in with email and password. The returned token and account details are saved to ~/.credora/config.toml.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]
		password := loginPassword
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

		tok, err := client.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		s.file.Auth.Token = tok.AccessToken
		s.file.Auth.Email = tok.User.Email
		s.file.Auth.UserID = tok.User.ID
		s.file.Auth.IsAdmin = tok.User.IsAdmin
		if err := saveConfig(s.file); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Signed in successfully!")
		fmt.Fprintf(out, "  Email:   %s\n", tok.User.Email)
		fmt.Fprintf(out, "  User ID: %d\n", tok.User.ID)
		if tok.User.FullName != "" {
			fmt.Fprintf(out, "  Name:    %s\n", tok.User.FullName)
		}
		if tok.User.IsAdmin {
			fmt.Fprintln(out, "  Role:    admin")
		}
		return nil
	},
}
