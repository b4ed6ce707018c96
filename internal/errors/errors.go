package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes the failures this core can surface.
type ErrorType string

const (
	// Parsing errors
	ErrorTypeParse             ErrorType = "parse"
	ErrorTypeStrategyExhausted ErrorType = "strategy_exhausted"

	// Merge errors
	ErrorTypeEmptyMergeInput ErrorType = "empty_merge_input"

	// Analysis errors
	ErrorTypeAnalysis ErrorType = "analysis"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypeFileTooLarge ErrorType = "file_too_large"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ErrEmptyMergeInput is returned by the merger when called with no
// trees. This is a programmer error, not a degraded condition.
var ErrEmptyMergeInput = errors.New("merge requires at least one tree")

// ParseError represents a failure inside one parser tier. Recoverable
// parse defects are reported through ParseMetadata instead; a ParseError
// escaping the hybrid parser means every tier was exhausted.
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Strategy   string
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a parse error for the given tier.
func NewParseError(strategy, path string, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Strategy:   strategy,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s parse failed for %s: %v", e.Strategy, e.FilePath, e.Underlying)
	}
	return fmt.Sprintf("%s parse failed: %v", e.Strategy, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// StrategyExhaustedError is raised when structural, chunking, and
// fallback parsing all failed for one input. It is the only parse-time
// condition that propagates as an error to the caller.
type StrategyExhaustedError struct {
	FilePath string
	Attempts []error
}

// NewStrategyExhaustedError records the per-tier failures.
func NewStrategyExhaustedError(path string, attempts ...error) *StrategyExhaustedError {
	filtered := make([]error, 0, len(attempts))
	for _, err := range attempts {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &StrategyExhaustedError{FilePath: path, Attempts: filtered}
}

// Error implements the error interface
func (e *StrategyExhaustedError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("all parse strategies exhausted for %s: %v", e.FilePath, e.Attempts)
	}
	return fmt.Sprintf("all parse strategies exhausted: %v", e.Attempts)
}

// Unwrap returns the per-tier failures for errors.Is/As
func (e *StrategyExhaustedError) Unwrap() []error {
	return e.Attempts
}

// AnalysisError represents a failure analyzing one unit. Failures are
// isolated per unit and never abort sibling units.
type AnalysisError struct {
	UnitID     string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewAnalysisError creates an analysis error scoped to one unit.
func NewAnalysisError(unitID, op string, err error) *AnalysisError {
	return &AnalysisError{
		UnitID:     unitID,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis %s failed for unit %s: %v", e.Operation, e.UnitID, e.Underlying)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	return &FileError{
		Type:       ErrorTypeFileNotFound,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error, dropping nils.
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
