package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	credora "github.com/credora-ai/credora/sdk/golang"
	"github.com/spf13/cobra"
)

var sendTimeout time.Duration

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 15*time.Second, "How long to wait for the channel to open")
}

var sendCmd = &cobra.Command{
	Use:   "send <json>",
	Short: "Send one JSON message over the notification channel",
	Long:  "Open the notification channel, send a single JSON payload, and close it.\nExample: credora send '{\"type\":\"ping\"}'",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload any
		if err := json.Unmarshal([]byte(args[0]), &payload); err != nil {
			return fmt.Errorf("invalid JSON payload: %w", err)
		}

		s, err := loadSettings()
		if err != nil {
			return err
		}
		// One shot: no reconnection.
		ch, err := s.channel(-1)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
		defer cancel()

		if err := openChannel(ctx, ch, s.file.Auth.Token); err != nil {
			return err
		}
		defer ch.Disconnect()

		if err := ch.Send(ctx, payload); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Sent.")
		return nil
	},
}

// openChannel connects ch and waits for the first connected or error event.
func openChannel(ctx context.Context, ch *credora.NotificationChannel, token string) error {
	result := make(chan error, 1)
	report := func(err error) {
		select {
		case result <- err:
		default:
		}
	}
	offConnected := ch.Subscribe(credora.EventConnected, func(any) { report(nil) })
	offError := ch.Subscribe(credora.EventError, func(payload any) {
		if err, ok := payload.(error); ok {
			report(err)
			return
		}
		report(fmt.Errorf("%v", payload))
	})
	defer offConnected()
	defer offError()

	ch.Connect(token)

	select {
	case err := <-result:
		if err != nil {
			ch.Disconnect()
			return fmt.Errorf("failed to open notification channel: %w", err)
		}
		return nil
	case <-ctx.Done():
		ch.Disconnect()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("timed out waiting for notification channel")
		}
		return ctx.Err()
	}
}
