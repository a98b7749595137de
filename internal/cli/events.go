package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput, snapshots bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream realtime events",
		Long: `Connect to the realtime socket and stream events.

Events include:
  - connected: Socket registered
  - matchmaking_status: Queue membership changed
  - match_found: Paired with an opponent
  - invite_received / invite_accepted / invite_declined
  - match_snapshot: Match state each tick (only with --snapshots)
  - match_ended: Final score and winner

While this command runs you are online and can be invited or matched.
Press Ctrl+C to disconnect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sock, err := DialSocket(ctx, cfg.ServerURL, cfg.Token)
			if err != nil {
				return err
			}

			if !jsonOutput {
				fmt.Println("Connected")
			}
			err = stream(ctx, sock, streamOptions{jsonOutput: jsonOutput, snapshots: snapshots})
			if !jsonOutput {
				fmt.Println("Disconnected")
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")
	cmd.Flags().BoolVar(&snapshots, "snapshots", false, "Include per-tick match snapshots")

	return cmd
}

// playUntilEnd opens the socket, sends one command, and streams events until
// the resulting match ends. Closing the socket early forfeits the match.
func playUntilEnd(command string, data any, jsonOutput, snapshots bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sock, err := DialSocket(ctx, cfg.ServerURL, cfg.Token)
	if err != nil {
		return err
	}
	defer func() { _ = sock.Close() }()

	if err := sock.Send(command, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", command, err)
	}

	var failure string
	err = stream(ctx, sock, streamOptions{
		jsonOutput: jsonOutput,
		snapshots:  snapshots,
		until: func(evt Event) bool {
			if msg, failed := commandFailed(evt, command); failed {
				failure = msg
				return true
			}
			return evt.Type == "match_ended"
		},
	})
	if err != nil {
		return err
	}
	if failure != "" {
		return fmt.Errorf("%s", failure)
	}
	return nil
}
