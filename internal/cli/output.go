package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/sqlbridge/internal/dberr"
	"github.com/roach88/sqlbridge/internal/migrate"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Integrity failure (ledger divergence, failed migration)
	ExitCommandError = 2 // Command error (invalid arguments, database errors, etc.)
)

// Error codes reported in CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeManifest    = "E002" // Manifest could not be loaded
	ErrCodeParams      = "E003" // --params is not a JSON object
	ErrCodeOpen        = "E004" // Database could not be opened
	ErrCodeConnection  = "E005" // Named database not open
	ErrCodeDatabase    = "E101" // SQL or driver failure
	ErrCodeMigration   = "E102" // Ledger divergence or failed migration
	ErrCodeMarshalling = "E103" // Value has no JSON or SQLite counterpart
)

var kindCodes = map[dberr.Kind]string{
	dberr.KindOpen:        ErrCodeOpen,
	dberr.KindConnection:  ErrCodeConnection,
	dberr.KindDatabase:    ErrCodeDatabase,
	dberr.KindMigration:   ErrCodeMigration,
	dberr.KindMarshalling: ErrCodeMarshalling,
}

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
// Returns ExitSuccess for nil and ExitCommandError (2) if the error is not
// an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// exitCodeFor maps an error to its exit code: migration errors are
// integrity failures, everything else is a command error.
func exitCodeFor(err error) int {
	if dberr.IsMigration(err) {
		return ExitFailure
	}
	return ExitCommandError
}

// errorCodeFor returns the CLI error code for err.
func errorCodeFor(err error) string {
	var manifestErr *migrate.ManifestError
	if errors.As(err, &manifestErr) {
		return ErrCodeManifest
	}
	if code, ok := kindCodes[dberr.KindOf(err)]; ok {
		return code
	}
	return ErrCodeGeneric
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
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// errorDetails is the Details payload for taxonomy errors.
type errorDetails struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Render outputs data as the JSON envelope, or calls text for text output.
func (f *OutputFormatter) Render(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return f.Success(data)
	}
	text(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %+v\n", details)
	}
	return nil
}

// Fail outputs err and returns it wrapped with the matching exit code.
func (f *OutputFormatter) Fail(message string, err error) error {
	details := errorDetails{
		Kind:    string(dberr.KindOf(err)),
		Subject: dberr.SubjectOf(err),
	}
	var manifestErr *migrate.ManifestError
	if errors.As(err, &manifestErr) {
		details.Kind = "manifest"
		details.Subject = manifestErr.Path
		details.Line = manifestErr.Line
	}

	var payload interface{}
	if details.Kind != "" {
		payload = details
	}
	_ = f.Error(errorCodeFor(err), fmt.Sprintf("%s: %v", message, err), payload)
	return WrapExitError(exitCodeFor(err), message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
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
