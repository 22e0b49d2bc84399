package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/txt2qr/internal/detect"
	"github.com/harrylevesque/txt2qr/internal/models"
)

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and manage saved QR codes",
	}
	cmd.AddCommand(newHistoryListCommand(rootOpts))
	cmd.AddCommand(newHistoryShowCommand(rootOpts))
	cmd.AddCommand(newHistoryDeleteCommand(rootOpts))
	cmd.AddCommand(newHistoryClearCommand(rootOpts))
	return cmd
}

func newHistoryListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved QR codes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			records := a.History.List()
			return writeOutput(cmd.OutOrStdout(), opts.Format, records, func(w io.Writer) error {
				if len(records) == 0 {
					_, err := fmt.Fprintln(w, "No QR codes saved yet.")
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTYPE\tICON\tSAVED\tTEXT")
				for _, r := range records {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Type, detect.Describe(r.Type).Icon, formatTimestamp(r.Timestamp), truncate(r.Text, 50))
				}
				return tw.Flush()
			})
		},
	}
}

func newHistoryShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one saved QR code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			rec, ok := a.History.Get(args[0])
			if !ok {
				return NewExitError(ExitFailure, "no record with id "+args[0])
			}
			return writeOutput(cmd.OutOrStdout(), opts.Format, rec, func(w io.Writer) error {
				return printRecord(w, rec)
			})
		},
	}
}

func newHistoryDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved QR code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			before := a.History.Len()
			a.History.Remove(cmd.Context(), args[0])
			if a.History.Len() == before {
				fmt.Fprintf(cmd.ErrOrStderr(), "no record with id %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newHistoryClearCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved QR codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "this deletes every saved QR code; pass --yes to confirm")
			}
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n := a.History.Len()
			a.History.Clear(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d records\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

func printRecord(w io.Writer, r models.QRRecord) error {
	_, err := fmt.Fprintf(w, "id:    %s\ntype:  %s\nsaved: %s\ntext:  %s\n", r.ID, r.Type, formatTimestamp(r.Timestamp), r.Text)
	return err
}

func formatTimestamp(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
