package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/txt2qr/internal/detect"
	"github.com/harrylevesque/txt2qr/internal/models"
)

// ClassifyResult is the output of the classify command.
type ClassifyResult struct {
	Text      string             `json:"text" yaml:"text"`
	Type      models.ContentType `json:"type" yaml:"type"`
	Formatted string             `json:"formatted" yaml:"formatted"`
	Label     detect.Label       `json:"label" yaml:"label"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Detect the content type of text",
		Long: `Detect what kind of content the text is and show the string a QR code
would encode. Multiple arguments are joined with spaces.

Examples:
  txt2qr classify example.com
  txt2qr classify contact@example.com --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			typ := detect.Classify(text)
			res := ClassifyResult{
				Text:      text,
				Type:      typ,
				Formatted: detect.Format(text, typ),
				Label:     detect.Describe(typ),
			}
			return writeOutput(cmd.OutOrStdout(), rootOpts.Format, res, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "type:      %s\nformatted: %s\n", res.Type, res.Formatted)
				return err
			})
		},
	}
}
