package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-split/internal/cli"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant interactively",
		Long: `Start an interactive conversation. Confirmed drafts are kept as
context so the next message can correct them ("na verdade foi 50").`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}
	cmd.Flags().String("user", "", "current user (a household participant)")
	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetString("user")

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	interrupts := cli.NewInterruptHandler(cmd.OutOrStdout(), "Até mais! 🌶️")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	session := cli.NewChatSession(a.pipeline, os.Stdin, cmd.OutOrStdout(), a.cfg.Household.Participants, user)
	return session.Run(ctx)
}
