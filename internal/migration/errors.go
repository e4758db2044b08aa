package migration

import (
	"errors"
	"fmt"
)

var (
	ErrMigrationFailed    = errors.New("migration failed")
	ErrNoMigrationPath    = errors.New("no migration path")
	ErrUnsupportedVersion = errors.New("unsupported schema version")
	ErrInvalidStep        = errors.New("invalid migration step")
)

// MigrationError reports a failed step. Data handed back alongside it is the
// pre-migration document; nothing from a partial run is ever returned.
type MigrationError struct {
	From        int
	To          int
	FailedStep  string
	Err         error
	RollbackErr error
}

func (err *MigrationError) Error() string {
	message := fmt.Sprintf("migration %d -> %d failed at step %q: %v", err.From, err.To, err.FailedStep, err.Err)
	if err.RollbackErr != nil {
		message += fmt.Sprintf(" (rollback failed: %v)", err.RollbackErr)
	}
	return message
}

func (err *MigrationError) Unwrap() []error {
	return []error{ErrMigrationFailed, err.Err}
}

// RolledBack reports whether every completed step was reverted cleanly.
func (err *MigrationError) RolledBack() bool {
	return err.RollbackErr == nil
}
