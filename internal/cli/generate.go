package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/txt2qr/internal/detect"
	"github.com/harrylevesque/txt2qr/internal/models"
	"github.com/harrylevesque/txt2qr/internal/render"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Output string
	Type   string
	Size   int
	FG     string
	BG     string
	Level  string
	Logo   string
	Save   bool
}

// GenerateResult is the output of the generate command.
type GenerateResult struct {
	File      string             `json:"file" yaml:"file"`
	Type      models.ContentType `json:"type" yaml:"type"`
	Formatted string             `json:"formatted" yaml:"formatted"`
	SavedID   string             `json:"saved_id,omitempty" yaml:"saved_id,omitempty"`
	ShowAd    bool               `json:"show_ad,omitempty" yaml:"show_ad,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <text>",
		Short: "Write a QR code image",
		Long: `Classify and format the text, then write a QR code. The file extension
picks the image format: .svg writes SVG, anything else PNG.

Examples:
  txt2qr generate example.com -o site.png
  txt2qr generate "WIFI:T:WPA;S:home;P:secret;;" -o wifi.svg --save`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "qr.png", "output file (.png or .svg)")
	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", "content type instead of detecting it")
	cmd.Flags().IntVar(&opts.Size, "size", render.DefaultSize, "image size in pixels")
	cmd.Flags().StringVar(&opts.FG, "fg", render.DefaultForeground, "foreground color")
	cmd.Flags().StringVar(&opts.BG, "bg", render.DefaultBackground, "background color")
	cmd.Flags().StringVar(&opts.Level, "level", "", "error correction level (L|M|Q|H)")
	cmd.Flags().StringVar(&opts.Logo, "logo", "", "PNG logo drawn over the center")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "also save the text to history")

	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command, text string) error {
	typ := detect.Classify(text)
	if opts.Type != "" {
		t, err := detect.ParseContentType(opts.Type)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --type", err)
		}
		typ = t
	}

	ropts := render.Options{Size: opts.Size, Foreground: opts.FG, Background: opts.BG, Level: opts.Level}
	if opts.Logo != "" {
		logo, err := os.ReadFile(opts.Logo)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read logo", err)
		}
		ropts.Logo = logo
	}
	formatted := detect.Format(text, typ)
	code, err := render.Render(formatted, ropts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render QR code", err)
	}

	var out []byte
	if strings.EqualFold(filepath.Ext(opts.Output), ".svg") {
		svg, err := code.SVG()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render SVG", err)
		}
		out = []byte(svg)
	} else if out, err = code.PNG(); err != nil {
		return WrapExitError(ExitFailure, "failed to render PNG", err)
	}
	if err := os.WriteFile(opts.Output, out, 0o644); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	res := GenerateResult{File: opts.Output, Type: typ, Formatted: formatted}
	if opts.Save {
		a, err := opts.openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		saved, err := a.Service.Save(cmd.Context(), text, typ, false)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to save", err)
		}
		res.SavedID = saved.Record.ID
		res.ShowAd = saved.ShowAd
	}

	return writeOutput(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) error {
		fmt.Fprintf(w, "wrote %s (%s: %s)\n", res.File, res.Type, res.Formatted)
		if res.SavedID != "" {
			fmt.Fprintf(w, "saved as %s\n", res.SavedID)
		}
		return nil
	})
}
