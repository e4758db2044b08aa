package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the store refused the operation
	ExitCommandError = 2 // bad flags, unreadable files, missing configuration
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

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that are not an *ExitError.
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

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// emit writes value as JSON, or calls text to render it for people.
func emit(w io.Writer, format string, value any, text func(io.Writer)) error {
	if format == "json" {
		return writeJSON(w, value)
	}
	text(w)
	return nil
}

func formatBytes(value int64) string {
	if value < 0 {
		value = 0
	}
	return humanize.IBytes(uint64(value))
}

func formatAge(moment time.Time, now time.Time) string {
	return humanize.RelTime(moment, now, "ago", "from now")
}
