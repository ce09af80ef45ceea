package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Ask the coach a single question without the interactive chat",
	Long: `Sends one message to the coach and prints the reply. The user must already be
registered, either through the interactive chat or the register command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := setupContext()

	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	if err := d.session.Start(ctx); err != nil {
		return err
	}

	snap := d.session.Snapshot()
	if !snap.CredentialAvailable {
		return fmt.Errorf("%s: set %s in your environment or in a .env file", snap.LastError, cfg.CredentialEnvVar())
	}
	if !snap.Registered {
		return errors.New("you are not registered yet: run 'smart-coach register' first")
	}

	out := cmd.OutOrStdout()
	if len(snap.Messages) > 0 {
		fmt.Fprintf(out, "Coach: %s\n\n", snap.Messages[len(snap.Messages)-1].Text)
	}

	turn, err := d.session.Submit(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if turn == nil {
		return errors.New("the message is empty")
	}

	reply, err := turn.Wait(ctx)
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted while waiting for the coach: %w", ctx.Err())
	}
	fmt.Fprintf(out, "Coach: %s\n", reply.Text)
	if err != nil {
		d.logger.Warn("ask failed", zap.Error(err))
		return fmt.Errorf("the coach could not answer: %w", err)
	}
	return nil
}
