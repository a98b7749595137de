package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/pongarena/internal/api/apierr"
)

func newInviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Direct invite commands",
	}

	cmd.AddCommand(newInviteSendCmd())
	cmd.AddCommand(newInviteListCmd())
	cmd.AddCommand(newInviteAcceptCmd())
	cmd.AddCommand(newInviteDeclineCmd())

	return cmd
}

func newInviteSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <nick>",
		Short: "Invite a player by nick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"nick": args[0]}
			var result InviteSentResult

			err := client.Post("/api/v1/invites", req, &result)
			if IsCode(err, apierr.CodeNotConnected) {
				return fmt.Errorf("%w; keep 'pongctl events' running while inviting", err)
			}
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newInviteListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List invites waiting for you",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result InvitesResult

			if err := client.Get("/api/v1/invites", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newInviteAcceptCmd() *cobra.Command {
	var snapshots bool

	cmd := &cobra.Command{
		Use:   "accept <nick>",
		Short: "Accept an invite and stay connected until the match ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := map[string]string{"nick": args[0], "action": "accept"}
			return playUntilEnd("invite_respond", data, cfg.Output == "json", snapshots)
		},
	}

	cmd.Flags().BoolVar(&snapshots, "snapshots", false, "Include per-tick match snapshots")

	return cmd
}

func newInviteDeclineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decline <nick>",
		Short: "Decline an invite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"nick": args[0], "action": "decline"}
			var result RespondResult

			if err := client.Post("/api/v1/invites/respond", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
