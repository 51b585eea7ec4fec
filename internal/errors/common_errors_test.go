package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	cause := errors.New("file is locked")
	err := NewStorageError("save workbook", cause)

	assert.Equal(t, "[STORAGE] save workbook: file is locked", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewValidationError("length mismatch")
	assert.Equal(t, "[VALIDATION] length mismatch", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	err := (&AppError{Type: ErrTypeParsing, Message: "bad cell"}).
		WithContext("sheet", "history").
		WithContext("row", 7)

	assert.Equal(t, "history", err.Context["sheet"])
	assert.Equal(t, 7, err.Context["row"])
}

func TestIsTypeAndGetErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"config", NewConfigError("bad CRRA", nil), ErrTypeConfig},
		{"insufficient history", NewInsufficientHistoryError("one period", nil), ErrTypeInsufficientHistory},
		{"wrapped parsing", fmt.Errorf("open: %w", NewParsingError("bad cell", nil)), ErrTypeParsing},
		{"not found", NewNotFoundError("sheet"), ErrTypeNotFound},
		{"foreign", errors.New("plain"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
			if tt.want != "" {
				assert.True(t, IsType(tt.err, tt.want))
			}
			assert.False(t, IsType(tt.err, ErrTypeStorage))
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "sheet not found", NewNotFoundError("sheet").Message)
	assert.Equal(t, "report not found", NotFoundError("report").Message)
}
