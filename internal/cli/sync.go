package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/snapshot"
)

// NewSyncCommand creates the sync command group.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronise with the configured remote backend",
		Long: `Synchronise with the configured remote backend (sync.backend: gist or redis).

push overwrites the remote document with local components, cart and synced
settings. pull applies the remote document locally; sales made here since
the last push are re-applied to the remote stock and shortfalls are queued
for review.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Upload the local snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				res, err := s.Push(commandContext(cmd))
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(res, func(w io.Writer) {
					fmt.Fprintf(w, "Pushed %d component(s) and %d cart line(s) to %s\n",
						res.Components, res.CartLines, res.Backend)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pull",
		Short: "Apply the remote snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				res, err := s.Pull(commandContext(cmd))
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(res, func(w io.Writer) {
					if !res.Found {
						fmt.Fprintf(w, "No remote document on %s\n", res.Backend)
						return
					}
					renderReport(w, res.Report)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Apply remote changes as they arrive until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
				defer cancel()
				return watch(ctx, s, f)
			})
		},
	})

	return cmd
}

// watch subscribes until ctx is done. Each applied document is reported
// as one line of output.
func watch(ctx context.Context, s *app.Session, f *OutputFormatter) error {
	stop, err := s.Watch(ctx, func(report snapshot.Report) {
		if err := f.Success(report, func(w io.Writer) { renderReport(w, report) }); err != nil {
			f.VerboseLog("write report: %v", err)
		}
	})
	if err != nil {
		return f.Fail(err)
	}
	defer stop()

	f.VerboseLog("watching %s for changes", s.Backend())
	<-ctx.Done()
	return nil
}

func renderReport(w io.Writer, r snapshot.Report) {
	fmt.Fprintf(w, "Applied %d component(s), %d cart line(s), %d setting(s)\n", r.Components, r.CartLines, r.Settings)
	for _, item := range r.Flagged {
		fmt.Fprintf(w, "  review: %s sold %d of %s, only %d applied\n",
			item.TransactionID, item.Requested, item.ComponentID, item.Applied)
	}
}
