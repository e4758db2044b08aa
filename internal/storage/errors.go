package storage

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

var (
	ErrStorage          = errors.New("storage failure")
	ErrQuotaExceeded    = errors.New("storage quota exceeded")
	ErrDataCorruption   = errors.New("stored data is corrupted")
	ErrInvalidSnapshot  = errors.New("invalid backup snapshot")
	ErrSnapshotNotFound = errors.New("backup snapshot not found")
)

// StorageError wraps a failure reported by the underlying store.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (err *StorageError) Error() string {
	if err.Key == "" {
		return fmt.Sprintf("storage %s: %v", err.Op, err.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", err.Op, err.Key, err.Err)
}

func (err *StorageError) Unwrap() []error {
	return []error{ErrStorage, err.Err}
}

// QuotaExceededError is returned instead of writing when the write would push
// usage past the ceiling, or when the store itself ran out of space.
type QuotaExceededError struct {
	Key      string
	Used     int64
	Required int64
	Limit    int64
	Err      error
}

func (err *QuotaExceededError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("storage quota exceeded writing %q: %v", err.Key, err.Err)
	}
	return fmt.Sprintf("storage quota exceeded writing %q: %d bytes used, %d required, limit %d", err.Key, err.Used, err.Required, err.Limit)
}

func (err *QuotaExceededError) Unwrap() []error {
	if err.Err == nil {
		return []error{ErrQuotaExceeded}
	}
	return []error{ErrQuotaExceeded, err.Err}
}

type DataCorruptionError struct {
	Key string
	Err error
}

func (err *DataCorruptionError) Error() string {
	return fmt.Sprintf("stored payload %q is corrupted: %v", err.Key, err.Err)
}

func (err *DataCorruptionError) Unwrap() []error {
	return []error{ErrDataCorruption, err.Err}
}

const sqliteFull = 13

// isPlatformFull reports whether err is the host running out of space
// rather than a generic failure.
func isPlatformFull(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ENOSPC) {
		return true
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) && coded.Code()&0xff == sqliteFull {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database or disk is full") || strings.Contains(message, "no space left on device")
}
