package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/txt2qr/internal/premium"
)

// PremiumStatus is the output of the premium commands.
type PremiumStatus struct {
	Premium   bool `json:"premium" yaml:"premium"`
	Purchases bool `json:"purchases" yaml:"purchases"`
}

// NewPremiumCommand creates the premium command and its subcommands.
func NewPremiumCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "premium",
		Short: "Ad removal status and purchase",
	}

	printStatus := func(cmd *cobra.Command, s PremiumStatus) error {
		return writeOutput(cmd.OutOrStdout(), rootOpts.Format, s, func(w io.Writer) error {
			if s.Premium {
				_, err := fmt.Fprintln(w, "premium: ads removed")
				return err
			}
			_, err := fmt.Fprintln(w, "free: ads shown")
			return err
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether ads are removed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return printStatus(cmd, PremiumStatus{Premium: a.Premium.IsPremium(), Purchases: a.Platform.Purchases()})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purchase <receipt>",
		Short: "Record the ad removal purchase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.Premium.Purchase(cmd.Context(), args[0])
			switch {
			case errors.Is(err, premium.ErrAlreadyPremium):
				fmt.Fprintln(cmd.ErrOrStderr(), "You already have premium access!")
			case err != nil:
				return WrapExitError(ExitFailure, "purchase failed", err)
			}
			return printStatus(cmd, PremiumStatus{Premium: a.Premium.IsPremium(), Purchases: a.Platform.Purchases()})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore",
		Short: "Restore a previous purchase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return printStatus(cmd, PremiumStatus{Premium: a.Premium.Restore(cmd.Context()), Purchases: a.Platform.Purchases()})
		},
	})

	return cmd
}
