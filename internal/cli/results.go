package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players by skill",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result LeaderboardResult

			if err := client.Get(withLimit("/api/v1/leaderboard", limit), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Number of entries (server default if 0)")

	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [player-id]",
		Short: "Show recent matches for a player (default: you)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			playerID := ""
			if len(args) == 1 {
				playerID = args[0]
			} else {
				var me Player
				if err := client.Get("/api/v1/players/me", &me); err != nil {
					return err
				}
				playerID = me.ID
			}

			path := fmt.Sprintf("/api/v1/players/%s/matches", url.PathEscape(playerID))
			var result HistoryResult

			if err := client.Get(withLimit(path, limit), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Number of matches (server default if 0)")

	return cmd
}

func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	return fmt.Sprintf("%s?limit=%d", path, limit)
}
