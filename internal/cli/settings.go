package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/settings"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				raw, ok, err := s.Setting(commandContext(cmd), args[0])
				if err != nil {
					return f.Fail(err)
				}
				if !ok {
					return f.Fail(model.NotFound(args[0], "setting not found"))
				}
				return f.Success(map[string]json.RawMessage{args[0]: raw}, func(w io.Writer) {
					fmt.Fprintln(w, string(raw))
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting",
		Long: `Change a setting. The value is read as JSON; anything that is not
valid JSON is stored as a string.

Example:
  electromanage settings set currency USD
  electromanage settings set lowStockThreshold 3
  electromanage settings set autoSync true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				value := settingValue(args[1])
				if err := s.SetSetting(commandContext(cmd), args[0], value); err != nil {
					return f.Fail(err)
				}
				return f.Success(map[string]json.RawMessage{args[0]: value}, func(w io.Writer) {
					fmt.Fprintf(w, "%s = %s\n", args[0], value)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every setting, defaults included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				all, err := s.Settings(commandContext(cmd))
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(all, func(w io.Writer) {
					tw := newTable(w)
					for _, k := range settings.Keys(all) {
						fmt.Fprintf(tw, "%s\t%s\n", k, all[k])
					}
					tw.Flush()
				})
			})
		},
	})

	return cmd
}

// settingValue returns arg as JSON, quoting it when it is not valid JSON.
func settingValue(arg string) json.RawMessage {
	if json.Valid([]byte(arg)) {
		return json.RawMessage(arg)
	}
	quoted, _ := json.Marshal(arg)
	return quoted
}

// NewReviewCommand creates the review command group.
func NewReviewCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect sales that remote stock could not fully cover",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List flagged sales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				items, err := s.ReviewQueue(commandContext(cmd))
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(items, func(w io.Writer) {
					if len(items) == 0 {
						fmt.Fprintln(w, "Nothing to review.")
						return
					}
					tw := newTable(w)
					fmt.Fprintln(tw, "TRANSACTION\tCOMPONENT\tREQUESTED\tAPPLIED\tFLAGGED")
					for _, it := range items {
						fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
							it.TransactionID, it.ComponentID, it.Requested, it.Applied, it.FlaggedAt.Local().Format(timeLayout))
					}
					tw.Flush()
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Acknowledge and drop every flagged sale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				n, err := s.ClearReview(commandContext(cmd))
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(map[string]int{"cleared": n}, func(w io.Writer) {
					fmt.Fprintf(w, "Cleared %d item(s)\n", n)
				})
			})
		},
	})

	return cmd
}
