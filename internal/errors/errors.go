package errors

import (
	"errors"
	"fmt"
)

// Standard application errors
var (
	ErrEmptyInput      = errors.New("input is empty or contains only whitespace")
	ErrInvalidJSON     = errors.New("invalid JSON format")
	ErrMultipleJSON    = errors.New("multiple JSON values found at the root, only one is allowed")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileEmpty       = errors.New("file is empty")
	ErrNoInput         = errors.New("no input provided: please specify a file with -i or pipe JSON data to stdin")
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrMissingField    = errors.New("list item is missing its key field")
	ErrMalformedInput  = errors.New("malformed input")
	ErrUnreachable     = errors.New("host is unreachable")
	ErrEmptyDump       = errors.New("dump command produced no output")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput      ErrorType = "input"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeProjection ErrorType = "projection"
	ErrorTypeRemote     ErrorType = "remote"
	ErrorTypeServer     ErrorType = "server"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeOutput     ErrorType = "output"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInput, Message: message, Err: err}
}

// NewParsingError creates a new error related to JSON parsing
func NewParsingError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeParsing, Message: message, Err: err}
}

// NewProjectionError creates a new error raised while building the tree
func NewProjectionError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeProjection, Message: message, Err: err}
}

// NewRemoteError creates a new error related to probing or fetching from a host
func NewRemoteError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeRemote, Message: message, Err: err}
}

// NewServerError creates a new error related to the HTTP endpoint
func NewServerError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeServer, Message: message, Err: err}
}

// NewConfigError creates a new error related to configuration loading
func NewConfigError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeConfig, Message: message, Err: err}
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeOutput, Message: message, Err: err}
}

// MissingFieldError reports a list item that lacks the field its list is keyed by.
type MissingFieldError struct {
	List  string // name of the list the item belongs to
	Field string // field that was expected on the item
	Index int    // position of the item in the list
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("item %d of %q has no %q field", e.Index, e.List, e.Field)
}

// Is reports ErrMissingField as a match.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// MalformedInputError reports a value whose shape cannot be projected.
type MalformedInputError struct {
	Path   string
	Reason string
}

func (e *MalformedInputError) Error() string {
	if e.Path == "" {
		return "malformed input: " + e.Reason
	}
	return fmt.Sprintf("malformed input at %s: %s", e.Path, e.Reason)
}

// Is reports ErrMalformedInput as a match.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeParsing:
			return fmt.Sprintf("JSON parsing error: %s", appErr.Message)
		case ErrorTypeProjection:
			if appErr.Err != nil {
				return fmt.Sprintf("Tree building error: %s: %v", appErr.Message, appErr.Err)
			}
			return fmt.Sprintf("Tree building error: %s", appErr.Message)
		case ErrorTypeRemote:
			if appErr.Err != nil {
				return fmt.Sprintf("Remote error: %s: %v", appErr.Message, appErr.Err)
			}
			return fmt.Sprintf("Remote error: %s", appErr.Message)
		case ErrorTypeServer:
			return fmt.Sprintf("Server error: %s", appErr.Message)
		case ErrorTypeConfig:
			return fmt.Sprintf("Configuration error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	var missing *MissingFieldError
	if errors.As(err, &missing) {
		return fmt.Sprintf("Error: item %d of %q has no %q field. Use --on-error=placeholder to render the rest of the dump.",
			missing.Index, missing.List, missing.Field)
	}
	var malformed *MalformedInputError
	if errors.As(err, &malformed) {
		return fmt.Sprintf("Error: %s", malformed.Error())
	}

	// Handle standard errors
	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide valid JSON data."
	}
	if errors.Is(err, ErrInvalidJSON) {
		return "Error: The input contains invalid JSON. Please check your JSON syntax."
	}
	if errors.Is(err, ErrMultipleJSON) {
		return "Error: Multiple JSON values found. Please provide a single JSON object or array."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrFileEmpty) {
		return "Error: The specified file is empty. Please provide a file with valid JSON content."
	}
	if errors.Is(err, ErrNoInput) {
		return "Error: No input provided. Please specify a file with -i or pipe JSON data to stdin."
	}
	if errors.Is(err, ErrInvalidFilePath) {
		return "Error: Invalid file path. Please provide a valid file path."
	}
	if errors.Is(err, ErrUnreachable) {
		return "Error: The host did not answer a ping. Check the host name and network."
	}

	// Generic error message for unknown errors
	return fmt.Sprintf("Error: %v", err)
}
