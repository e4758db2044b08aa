package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/terraincognita07/paindiary/internal/validation"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrDuplicateRecord   = errors.New("duplicate record")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrImportRejected    = errors.New("import rejected")
	ErrInvalidImportMode = errors.New("invalid import mode")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrBackupFailed      = errors.New("backup before mutation failed")
)

// DuplicateRecordError reports the record already holding a date and time slot.
type DuplicateRecordError struct {
	ExistingID string
	Date       string
	Time       string
}

func (err *DuplicateRecordError) Error() string {
	return fmt.Sprintf("a record already exists for %s %s (id %s)", err.Date, err.Time, err.ExistingID)
}

func (err *DuplicateRecordError) Unwrap() error {
	return ErrDuplicateRecord
}

// BackupError aborts an operation whose required snapshot could not be
// written. Nothing has been changed when it is returned.
type BackupError struct {
	Op  string
	Err error
}

func (err *BackupError) Error() string {
	return fmt.Sprintf("%s aborted, snapshot failed: %v", err.Op, err.Err)
}

func (err *BackupError) Unwrap() []error {
	return []error{ErrBackupFailed, err.Err}
}

type ImportItemError struct {
	Index  int                     `json:"index"`
	ID     string                  `json:"id,omitempty"`
	Reason string                  `json:"reason,omitempty"`
	Errors []validation.FieldError `json:"errors,omitempty"`
}

// ImportError lists every rejected item of an import. Nothing is written
// when it is returned.
type ImportError struct {
	Items []ImportItemError
}

func (err *ImportError) Error() string {
	parts := make([]string, 0, len(err.Items))
	for _, item := range err.Items {
		label := fmt.Sprintf("item %d", item.Index)
		if item.ID != "" {
			label += " (" + item.ID + ")"
		}
		if item.Reason != "" {
			parts = append(parts, label+": "+item.Reason)
			continue
		}
		fields := make([]string, 0, len(item.Errors))
		for _, fieldErr := range item.Errors {
			fields = append(fields, fieldErr.Field+" "+fieldErr.Message)
		}
		parts = append(parts, label+": "+strings.Join(fields, ", "))
	}
	return fmt.Sprintf("import rejected, %d invalid item(s): %s", len(err.Items), strings.Join(parts, "; "))
}

func (err *ImportError) Unwrap() error {
	return ErrImportRejected
}

// UnavailableError blocks every operation until the store can be opened.
type UnavailableError struct {
	Err error
}

func (err *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %v", err.Err)
}

func (err *UnavailableError) Unwrap() []error {
	return []error{ErrStoreUnavailable, err.Err}
}
