package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		expected string
	}{
		{
			name: "error with wrapped error",
			appError: &AppError{
				Type:    ErrorTypeInput,
				Message: "failed to read input",
				Err:     errors.New("file not found"),
			},
			expected: "input: failed to read input: file not found",
		},
		{
			name: "error without wrapped error",
			appError: &AppError{
				Type:    ErrorTypeParsing,
				Message: "invalid JSON syntax",
				Err:     nil,
			},
			expected: "parsing: invalid JSON syntax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.Error()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	appErr := &AppError{
		Type:    ErrorTypeInput,
		Message: "test message",
		Err:     wrappedErr,
	}

	result := appErr.Unwrap()
	assert.Equal(t, wrappedErr, result)
}

func TestAppError_Is(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		target   error
		expected bool
	}{
		{
			name: "same type",
			appError: &AppError{
				Type:    ErrorTypeInput,
				Message: "test message",
				Err:     nil,
			},
			target: &AppError{
				Type:    ErrorTypeInput,
				Message: "different message",
				Err:     errors.New("some error"),
			},
			expected: true,
		},
		{
			name: "different type",
			appError: &AppError{
				Type:    ErrorTypeInput,
				Message: "test message",
				Err:     nil,
			},
			target: &AppError{
				Type:    ErrorTypeParsing,
				Message: "test message",
				Err:     nil,
			},
			expected: false,
		},
		{
			name: "not an AppError",
			appError: &AppError{
				Type:    ErrorTypeInput,
				Message: "test message",
				Err:     nil,
			},
			target:   errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.appError.Is(tt.target)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestUserFriendlyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "input error",
			err:      NewInputError("failed to read file", nil),
			expected: "Input error: failed to read file",
		},
		{
			name:     "parsing error",
			err:      NewParsingError("invalid JSON syntax", nil),
			expected: "JSON parsing error: invalid JSON syntax",
		},
		{
			name:     "projection error",
			err:      NewProjectionError("failed to build tree", nil),
			expected: "Tree building error: failed to build tree",
		},
		{
			name:     "projection error with cause",
			err:      NewProjectionError("failed to build tree", &MissingFieldError{List: "exports", Field: "mapping_path", Index: 2}),
			expected: "Tree building error: failed to build tree: item 2 of \"exports\" has no \"mapping_path\" field",
		},
		{
			name:     "remote error",
			err:      NewRemoteError("failed to fetch dump from node1", ErrUnreachable),
			expected: "Remote error: failed to fetch dump from node1: host is unreachable",
		},
		{
			name:     "server error",
			err:      NewServerError("failed to listen", nil),
			expected: "Server error: failed to listen",
		},
		{
			name:     "config error",
			err:      NewConfigError("invalid on_error value", nil),
			expected: "Configuration error: invalid on_error value",
		},
		{
			name:     "output error",
			err:      NewOutputError("failed to write output", nil),
			expected: "Output error: failed to write output",
		},
		{
			name:     "standard error - empty input",
			err:      ErrEmptyInput,
			expected: "Error: The input is empty. Please provide valid JSON data.",
		},
		{
			name:     "standard error - invalid JSON",
			err:      ErrInvalidJSON,
			expected: "Error: The input contains invalid JSON. Please check your JSON syntax.",
		},
		{
			name:     "bare missing field error",
			err:      &MissingFieldError{List: "outgoing paths", Field: "pathname", Index: 0},
			expected: "Error: item 0 of \"outgoing paths\" has no \"pathname\" field. Use --on-error=placeholder to render the rest of the dump.",
		},
		{
			name:     "bare malformed input error",
			err:      &MalformedInputError{Path: "exports[1]", Reason: "expected an object, got string"},
			expected: "Error: malformed input at exports[1]: expected an object, got string",
		},
		{
			name:     "unknown error",
			err:      errors.New("some unknown error"),
			expected: "Error: some unknown error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := UserFriendlyError(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestMissingFieldError_Is(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &MissingFieldError{List: "imports", Field: "mapping_path", Index: 1})

	assert.True(t, errors.Is(err, ErrMissingField))
	assert.False(t, errors.Is(err, ErrMalformedInput))

	var missing *MissingFieldError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, 1, missing.Index)
	assert.Equal(t, "mapping_path", missing.Field)
}

func TestMalformedInputError_Error(t *testing.T) {
	assert.Equal(t, "malformed input: root is a string", (&MalformedInputError{Reason: "root is a string"}).Error())
	assert.True(t, errors.Is(&MalformedInputError{Reason: "x"}, ErrMalformedInput))
}
