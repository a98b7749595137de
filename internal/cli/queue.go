package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Matchmaking queue commands",
	}

	cmd.AddCommand(newQueueJoinCmd())
	cmd.AddCommand(newQueueLeaveCmd())

	return cmd
}

func newQueueJoinCmd() *cobra.Command {
	var mode string
	var snapshots bool

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a queue and stay connected until the match ends",
		Long: `Join the ranked or casual queue over the realtime socket.

The command stays connected, printing events, until the resulting match
ends. Disconnecting during a match forfeits it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "ranked" && mode != "casual" {
				return fmt.Errorf("--mode must be ranked or casual")
			}
			return playUntilEnd("queue_join", map[string]string{"mode": mode}, cfg.Output == "json", snapshots)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "ranked", "Queue: ranked, casual")
	cmd.Flags().BoolVar(&snapshots, "snapshots", false, "Include per-tick match snapshots")

	return cmd
}

func newQueueLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave whichever queue you are in",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result QueueLeftResult

			if err := client.Delete("/api/v1/matchmaking/queue", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
