package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jask/slipbook/internal/remote"
	"github.com/jask/slipbook/internal/service"
	"github.com/jask/slipbook/internal/slip"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation ran but did not fully succeed (sync, auth)
	ExitCommandError = 2 // bad input or configuration
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not
// ExitErrors map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the envelope of json and yaml output.
type Response struct {
	Status string         `json:"status" yaml:"status"`
	Data   any            `json:"data,omitempty" yaml:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty" yaml:"error,omitempty"`
}

type ResponseError struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	Details any    `json:"details,omitempty" yaml:"details,omitempty"`
}

// OutputFormatter writes command results in the selected format.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

func (f *OutputFormatter) encode(r Response) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q", f.Format)
}

// Success prints data. Text output is delegated to text, which may be nil.
func (f *OutputFormatter) Success(data any, text func(io.Writer)) error {
	if f.Format != "text" {
		return f.encode(Response{Status: "ok", Data: data})
	}
	if text != nil {
		text(f.Writer)
		return nil
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Fail reports err and returns the ExitError the command should return.
// Structured formats get an error envelope on the main writer.
func (f *OutputFormatter) Fail(err error) error {
	code, exit := classify(err)
	var details any
	var ve *slip.ValidationError
	if errors.As(err, &ve) {
		details = ve.Fields
	}
	if f.Format != "text" {
		_ = f.encode(Response{Status: "error", Error: &ResponseError{Code: code, Message: err.Error(), Details: details}})
	}
	return WrapExitError(exit, code, err)
}

// Warn prints a diagnostic that must not corrupt structured output.
func (f *OutputFormatter) Warn(format string, args ...any) {
	fmt.Fprintf(f.errWriter(), warnStyle.Render("warning: ")+format+"\n", args...)
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func classify(err error) (string, int) {
	switch {
	case slip.IsValidationError(err):
		return "validation", ExitCommandError
	case errors.Is(err, service.ErrIndexOutOfRange):
		return "index_out_of_range", ExitCommandError
	case errors.Is(err, service.ErrRemoteDisabled):
		return "remote_disabled", ExitCommandError
	case errors.Is(err, service.ErrAuthentication):
		return "authentication", ExitFailure
	case errors.Is(err, service.ErrBusy):
		return "busy", ExitFailure
	case errors.Is(err, service.ErrNotLinked):
		return "not_linked", ExitFailure
	case errors.Is(err, service.ErrAlreadyLinked):
		return "already_linked", ExitFailure
	case service.IsSyncError(err):
		return "not_synced", ExitFailure
	case remote.CodeOf(err) != "":
		return "remote_" + string(remote.CodeOf(err)), ExitFailure
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Message, exitErr.Code
	}
	return "error", ExitFailure
}
