package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the registered user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := setupContext()

		d, err := newDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		record, err := d.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load registration: %w", err)
		}
		if record == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not registered")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", record.FirstName, record.LastName, record.Mobile)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored registration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := setupContext()

		d, err := newDeps(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		if err := d.session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Registration deleted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(logoutCmd)
}
