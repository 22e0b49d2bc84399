package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/txt2qr/internal/render"
	"github.com/harrylevesque/txt2qr/internal/upload"
)

// NewUploadCommand creates the upload command.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	var qrFile string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file and get a shareable link",
		Long: `Upload a file to the configured bucket and print a download link.
With --qr the link is also written as a QR code.

Examples:
  txt2qr upload menu.pdf
  txt2qr upload menu.pdf --qr menu.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open file", err)
			}
			defer f.Close()

			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Uploader == nil {
				return WrapExitError(ExitCommandError, "cannot upload", upload.ErrNotConfigured)
			}

			progress := func(p int) {
				if rootOpts.Verbose {
					fmt.Fprintf(cmd.ErrOrStderr(), "%d%%\n", p)
				}
			}
			res, err := a.Uploader.Upload(cmd.Context(), filepath.Base(args[0]), f, progress)
			if err != nil {
				return WrapExitError(ExitFailure, "upload failed", err)
			}

			if qrFile != "" {
				code, err := render.Render(res.DownloadURL, render.Options{})
				if err != nil {
					return WrapExitError(ExitFailure, "failed to render QR code", err)
				}
				png, err := code.PNG()
				if err != nil {
					return WrapExitError(ExitFailure, "failed to render QR code", err)
				}
				if err := os.WriteFile(qrFile, png, 0o644); err != nil {
					return WrapExitError(ExitCommandError, "failed to write QR code", err)
				}
			}

			return writeOutput(cmd.OutOrStdout(), rootOpts.Format, res, func(w io.Writer) error {
				fmt.Fprintf(w, "%s (%s)\n%s\n", res.FileName, upload.FormatFileSize(res.FileSize), res.DownloadURL)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&qrFile, "qr", "", "also write the link as a QR code PNG")
	return cmd
}
