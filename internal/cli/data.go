package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/snapshot"
)

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a full JSON backup",
		Long: `Write a full JSON backup of components, cart, settings and transactions.

The default file name is electromanage-backup-YYYY-MM-DD.json in the
current directory. Use --out - to write the backup to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				ctx := commandContext(cmd)
				if out == "-" {
					if err := s.Export(ctx, cmd.OutOrStdout()); err != nil {
						return f.Fail(err)
					}
					return nil
				}

				path := out
				if path == "" {
					path = snapshot.ExportFilename(time.Now())
				}
				if err := exportFile(ctx, s, path); err != nil {
					return f.Fail(err)
				}
				return f.Success(map[string]string{"path": path}, func(w io.Writer) {
					fmt.Fprintf(w, "Exported to %s\n", path)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (- for stdout)")

	return cmd
}

func exportFile(ctx context.Context, s *app.Session, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return s.Export(ctx, file)
}

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore a JSON backup",
		Long: `Restore a JSON backup.

The document is validated before anything is written. Collections present
in the file replace the local ones; settings are merged key by key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				file, err := os.Open(args[0])
				if err != nil {
					return f.Fail(WrapExitError(ExitCommandError, "failed to open backup", err))
				}
				defer file.Close()

				report, err := s.Import(commandContext(cmd), file, args[0])
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(report, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %d component(s), %d cart line(s), %d setting(s), %d transaction(s)\n",
						report.Components, report.CartLines, report.Settings, report.Transactions)
				})
			})
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all local data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to delete all data without --yes")
			}
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				if err := s.Reset(commandContext(cmd)); err != nil {
					return f.Fail(err)
				}
				return f.Success(map[string]bool{"reset": true}, func(w io.Writer) {
					fmt.Fprintln(w, "All local data deleted")
				})
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every component, cart line, setting and transaction")

	return cmd
}
