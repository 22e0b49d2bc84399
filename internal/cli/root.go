// Package cli implements the txt2qr command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/app"
	"github.com/harrylevesque/txt2qr/internal/config"
	"github.com/harrylevesque/txt2qr/internal/utils"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string
	ConfigPath string
	DataDir    string
	Backend    string
	Platform   string

	// WorkDir and Env default to the process values; tests override them.
	WorkDir string
	Env     []string
}

// NewRootCommand creates the root command for the txt2qr CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "txt2qr",
		Short: "Turn text into QR codes",
		Long: `txt2qr classifies text (links, emails, phone numbers, Wi-Fi, contacts),
renders it as a QR code and keeps a history of what you saved.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./"+config.FileName+")")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory")
	cmd.PersistentFlags().StringVar(&opts.Backend, "storage", "", "storage backend (file|sqlite|redis|memory)")
	cmd.PersistentFlags().StringVar(&opts.Platform, "platform", "", "client platform (web|mobile)")

	cmd.AddCommand(NewClassifyCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewOCRCommand(opts))
	cmd.AddCommand(NewUploadCommand(opts))
	cmd.AddCommand(NewPremiumCommand(opts))
	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// LoadConfig reads the config file and env, then applies flag overrides.
func (o *RootOptions) LoadConfig() (config.Config, error) {
	workDir := o.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return config.Config{}, err
		}
		workDir = wd
	}
	env := o.Env
	if env == nil {
		env = os.Environ()
	}
	cfg, _, err := config.Load(workDir, o.ConfigPath, env)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.Backend != "" {
		cfg.Storage.Backend = o.Backend
	}
	if o.Platform != "" {
		cfg.Platform = o.Platform
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// openApp builds the App for a one-shot command. Logging stays at warn
// unless --verbose is set.
func (o *RootOptions) openApp(ctx context.Context) (*app.App, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, err
	}
	logOpts := cfg.Log
	if !o.Verbose {
		logOpts.Level = "warn"
	}
	log, err := utils.NewLogger(logOpts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up logging", err)
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Debug("app start failed", zap.Error(err))
		return nil, WrapExitError(ExitCommandError, "failed to start", err)
	}
	return a, nil
}
