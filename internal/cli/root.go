package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Config   string
	Database string
	DotEnv   string

	// Open overrides session creation (for testing).
	Open func(app.Options) (*app.Session, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the electromanage CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "electromanage",
		Short: "ElectroManage - electronics parts inventory",
		Long: `Track electronic components, build a cart, check it out against stock
and keep the inventory in sync across devices.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to YAML config (default $ELECTROMANAGE_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.DotEnv, "env-file", ".env", "dotenv file with ELECTROMANAGE_* variables")

	cmd.AddCommand(NewComponentCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))
	cmd.AddCommand(NewCheckoutCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewReviewCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig resolves the configuration from flags, files and environment.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.Config, o.DotEnv)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// openSession loads the configuration and opens a Session. Logs go to
// stderr so that JSON output stays parseable.
func (o *RootOptions) openSession(cmd *cobra.Command) (*app.Session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	})
	logger := slog.New(handler)

	open := o.Open
	if open == nil {
		open = app.Open
	}
	s, err := open(app.Options{Config: cfg, Logger: logger})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return s, nil
}

// withSession opens a session, runs fn and closes the session, flushing
// any pending auto-sync push.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(s *app.Session, f *OutputFormatter) error) error {
	s, err := o.openSession(cmd)
	if err != nil {
		return err
	}
	f := o.formatter(cmd)

	runErr := fn(s, f)
	if err := s.Close(commandContext(cmd)); err != nil {
		s.Logger().Warn("close session", "error", err)
	}
	return runErr
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Execute runs the root command and returns the process exit code.
// Errors raised by cobra itself (unknown commands, bad flags or args) exit
// with ExitCommandError.
func Execute() int {
	err := NewRootCommand().Execute()
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitCommandError
	}
	if !exitErr.Reported {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return exitErr.Code
}
