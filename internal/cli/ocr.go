package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/txt2qr/internal/service"
)

// OCRResult is the output of the ocr command.
type OCRResult struct {
	service.Preview `yaml:",inline"`
	SavedID         string `json:"saved_id,omitempty" yaml:"saved_id,omitempty"`
}

// NewOCRCommand creates the ocr command.
func NewOCRCommand(rootOpts *RootOptions) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "ocr <image-file>",
		Short: "Extract text from an image",
		Long: `Send an image to the OCR service and classify the text it contains.

Examples:
  txt2qr ocr poster.jpg
  txt2qr ocr card.png --save --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read image", err)
			}
			image := "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)

			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			progress := func(s string) {
				if rootOpts.Verbose {
					fmt.Fprintln(cmd.ErrOrStderr(), s)
				}
			}
			p, err := a.Service.Scan(cmd.Context(), image, progress)
			if err != nil {
				return WrapExitError(ExitFailure, "OCR failed", err)
			}

			res := OCRResult{Preview: p}
			if save {
				saved, err := a.Service.Save(cmd.Context(), p.Text, p.Type, false)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to save", err)
				}
				res.SavedID = saved.Record.ID
			}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Format, res, func(w io.Writer) error {
				fmt.Fprintf(w, "type:      %s\nformatted: %s\n", res.Type, res.Formatted)
				if res.SavedID != "" {
					fmt.Fprintf(w, "saved as %s\n", res.SavedID)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "save the extracted text to history")
	return cmd
}
