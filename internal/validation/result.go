package validation

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidRecord = errors.New("invalid record")

const (
	CodeRequired         = "required"
	CodeOutOfRange       = "out_of_range"
	CodeInvalidFormat    = "invalid_format"
	CodeInvalidOption    = "invalid_option"
	CodeTooMany          = "too_many"
	CodeRepeated         = "repeated_value"
	CodeTooLong          = "too_long"
	CodeFutureDate       = "future_date"
	CodeBeforeMinimum    = "before_minimum_date"
	CodeSensitiveData    = "possible_sensitive_data"
	CodeNoEffectiveness  = "missing_effectiveness"
	CodeZeroPainWithMeds = "zero_pain_with_medication"
	CodeNoDosage         = "missing_dosage"
)

// FieldError blocks persistence.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FieldWarning is advisory only.
type FieldWarning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Result struct {
	IsValid  bool           `json:"isValid"`
	Errors   []FieldError   `json:"errors"`
	Warnings []FieldWarning `json:"warnings"`
}

func newResult() Result {
	return Result{IsValid: true, Errors: []FieldError{}, Warnings: []FieldWarning{}}
}

func (result *Result) addError(field string, code string, message string) {
	result.IsValid = false
	result.Errors = append(result.Errors, FieldError{Field: field, Code: code, Message: message})
}

func (result *Result) addWarning(field string, code string, message string) {
	result.Warnings = append(result.Warnings, FieldWarning{Field: field, Code: code, Message: message})
}

// merge folds a nested result in, prefixing its field names.
func (result *Result) merge(prefix string, nested Result) {
	for _, fieldErr := range nested.Errors {
		result.addError(prefix+"."+fieldErr.Field, fieldErr.Code, fieldErr.Message)
	}
	for _, warning := range nested.Warnings {
		result.addWarning(prefix+"."+warning.Field, warning.Code, warning.Message)
	}
}

// HasError reports whether field failed with code. An empty code matches any.
func (result Result) HasError(field string, code string) bool {
	for _, fieldErr := range result.Errors {
		if fieldErr.Field == field && (code == "" || fieldErr.Code == code) {
			return true
		}
	}
	return false
}

func (result Result) HasWarning(field string, code string) bool {
	for _, warning := range result.Warnings {
		if warning.Field == field && (code == "" || warning.Code == code) {
			return true
		}
	}
	return false
}

// Err returns nil for a valid result and an *Error otherwise.
func (result Result) Err() error {
	if result.IsValid {
		return nil
	}
	return &Error{Result: result}
}

// Error carries a failing Result across error returns.
type Error struct {
	Result Result
}

func (err *Error) Error() string {
	parts := make([]string, 0, len(err.Result.Errors))
	for _, fieldErr := range err.Result.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fieldErr.Field, fieldErr.Message))
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

func (err *Error) Unwrap() error {
	return ErrInvalidRecord
}
