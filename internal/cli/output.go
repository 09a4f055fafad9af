package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected operation (validation, stock, sync) or failed scenarios
	ExitCommandError = 2 // Command error (bad flags, unreadable config, database not opened)
)

// Error codes for failures that are not domain errors.
const (
	ErrCodeGeneric   = "INTERNAL"
	ErrCodeNoBackend = "NO_BACKEND"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the error was already written by an
	// OutputFormatter.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // domain error code, NO_BACKEND or INTERNAL
	Message string `json:"message"`           // human-readable message
	Entity  string `json:"entity,omitempty"`  // offending component, line or document
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result. In text mode, render prints data;
// a nil render prints data with fmt.Fprintln.
func (f *OutputFormatter) Success(data any, render func(w io.Writer)) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	if render != nil {
		render(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(e CLIError) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "error", Error: &e})
	}

	if e.Entity != "" {
		fmt.Fprintf(f.Writer, "Error [%s]: %s (%s)\n", e.Code, e.Message, e.Entity)
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	}
	if f.Verbose && e.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", e.Details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
//
// A missing sync backend exits with ExitCommandError. Other domain errors
// exit with ExitFailure and keep their code. Errors that are already ExitErrors
// are passed through unreported.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	e := CLIError{Code: ErrCodeGeneric, Message: err.Error()}
	code := ExitCommandError

	var domain *model.Error
	switch {
	case errors.Is(err, app.ErrNoBackend):
		e.Code = ErrCodeNoBackend
		e.Message = app.ErrNoBackend.Error()
	case errors.As(err, &domain):
		e.Code = string(domain.Code)
		e.Message = domain.Message
		e.Entity = domain.Entity
		if domain.Err != nil {
			e.Details = domain.Err.Error()
		} else if len(domain.Details) > 0 {
			e.Details = domain.Details
		}
		code = ExitFailure
	}

	if outErr := f.Error(e); outErr != nil {
		return WrapExitError(code, "failed to write output", outErr)
	}
	return &ExitError{Code: code, Message: e.Message, Err: err, Reported: true}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}
