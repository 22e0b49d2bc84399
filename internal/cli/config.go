package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/txt2qr/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after the config file, TXT2QR_* environment
variables and flags are applied. Credentials are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return err
			}
			out, err := config.Format(cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to format config", err)
			}
			if rootOpts.Format != FormatYAML {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			}
			// Re-decode so YAML keys follow the JSON field names.
			var v map[string]any
			if err := json.Unmarshal([]byte(out), &v); err != nil {
				return WrapExitError(ExitFailure, "failed to format config", err)
			}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Format, v, func(io.Writer) error { return nil })
		},
	}
}
