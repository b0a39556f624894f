package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	credora "github.com/credora-ai/credora/sdk/golang"
	"github.com/spf13/cobra"
)

var listenJSON bool

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().BoolVar(&listenJSON, "json", false, "Print each notification as raw JSON")
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Follow real-time notifications",
	Long:  "Open the notification channel and print every notification until interrupted. Exits with an error once reconnection gives up.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		ch, err := s.channel(0)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		errOut := cmd.ErrOrStderr()

		ch.Subscribe(credora.EventConnected, func(any) {
			fmt.Fprintln(errOut, "connected")
		})
		ch.Subscribe(credora.EventDisconnected, func(any) {
			fmt.Fprintln(errOut, "disconnected")
		})
		ch.Subscribe(credora.EventError, func(payload any) {
			fmt.Fprintf(errOut, "error: %v\n", payload)
		})
		ch.Subscribe(credora.EventMessage, func(payload any) {
			fmt.Fprintln(out, formatNotification(payload, listenJSON))
		})
		gaveUp := watchGiveUp(ch)

		ch.Connect(s.file.Auth.Token)
		defer ch.Disconnect()

		return waitForGiveUp(ctx, ch, gaveUp)
	},
}

// watchGiveUp signals once a session ends and no automatic reconnect follows.
func watchGiveUp(ch *credora.NotificationChannel) <-chan struct{} {
	gaveUp := make(chan struct{}, 1)
	ch.Subscribe(credora.EventDisconnected, func(any) {
		if !ch.ReconnectBudgetExhausted() {
			return
		}
		select {
		case gaveUp <- struct{}{}:
		default:
		}
	})
	return gaveUp
}

// waitForGiveUp blocks until ctx is done or reconnection is exhausted.
func waitForGiveUp(ctx context.Context, ch *credora.NotificationChannel, gaveUp <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return nil
	case <-gaveUp:
		return fmt.Errorf("notification channel closed after %d reconnect attempts", ch.ReconnectAttempts())
	}
}
