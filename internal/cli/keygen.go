package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/txt2qr/internal/crypto"
)

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create the storage master key",
		Long: `Write a new random master key used when storage.encrypt is on.
Existing keys are never overwritten. The key can also be supplied through
the ` + crypto.MasterKeyEnv + ` environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				cfg, err := rootOpts.LoadConfig()
				if err != nil {
					return err
				}
				out = cfg.MasterKeyFile()
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o700); err != nil {
				return WrapExitError(ExitCommandError, "failed to create key directory", err)
			}
			if err := crypto.GenerateMasterKey(out); err != nil {
				return WrapExitError(ExitFailure, "failed to generate master key", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "master key written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "key file (default <data-dir>/master.key)")
	return cmd
}
