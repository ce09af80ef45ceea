package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cchalm/smart-coach/internal/ai"
	"github.com/cchalm/smart-coach/internal/registration"
)

var registerFlags registration.Record

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Save your name and mobile number",
	Long: `Validates and stores your registration details locally. Registering again
replaces the stored details.`,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerFlags.FirstName, "first-name", "", "Your first name")
	registerCmd.Flags().StringVar(&registerFlags.LastName, "last-name", "", "Your last name")
	registerCmd.Flags().StringVar(&registerFlags.Mobile, "mobile", "", "Your mobile number, e.g. 09123456789")

	_ = registerCmd.MarkFlagRequired("first-name")
	_ = registerCmd.MarkFlagRequired("last-name")
	_ = registerCmd.MarkFlagRequired("mobile")

	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, _ []string) error {
	ctx := setupContext()

	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	saved, err := d.session.Register(ctx, registerFlags)
	var ie *ai.InitializationError
	switch {
	case errors.As(err, &ie):
		// Registration is saved; only the coach is unavailable
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", d.session.Snapshot().LastError)
	case err != nil:
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s %s (%s)\n", saved.FirstName, saved.LastName, saved.Mobile)
	return nil
}
