package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/app"
	"github.com/harrylevesque/txt2qr/internal/server"
	"github.com/harrylevesque/txt2qr/internal/utils"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			log, err := utils.NewLogger(cfg.Log)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to set up logging", err)
			}
			a, err := app.New(cmd.Context(), cfg, log)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to start", err)
			}
			defer a.Close()

			if err := server.Run(cmd.Context(), a); err != nil {
				log.Error("server stopped", zap.Error(err))
				return WrapExitError(ExitFailure, "server error", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
