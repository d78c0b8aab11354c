package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusCode(t *testing.T) {
	cause := errors.New("boom")
	cases := map[string]struct {
		err  error
		want int
	}{
		"nil":          {nil, StatusInternalServerError},
		"plain":        {cause, StatusInternalServerError},
		"invalid":      {NewInvalidRequestError("bad", nil), StatusBadRequest},
		"unauthorized": {NewUnauthorizedError("no", nil), StatusUnauthorized},
		"not found":    {NewNotFoundError("none", cause), StatusNotFound},
		"conflict":     {NewConflictError("dup", cause), StatusConflict},
		"storage":      {NewStorageError("disk", cause), StatusInternalServerError},
		"wrapped":      {fmt.Errorf("submit: %w", NewConflictError("dup", nil)), StatusConflict},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusCode(tc.err))
		})
	}
}

func TestGetHumanReadableMessage_HidesInternalErrors(t *testing.T) {
	assert.Equal(t, genericMessage, GetHumanReadableMessage(errors.New("pq: connection refused")))
	assert.Equal(t, genericMessage, GetHumanReadableMessage(nil))
	assert.Equal(t, "Server error", GetHumanReadableMessage(NewStorageError("Server error", errors.New("disk full"))))
}

func TestAppError_UnwrapAndString(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("Server error", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "STORAGE_ERROR: Server error: disk full", err.Error())
	assert.Equal(t, "NOT_FOUND: none", NewNotFoundError("none", nil).Error())
}

func TestNewValidationError_Details(t *testing.T) {
	assert.Nil(t, GetDetails(NewValidationError("Invalid", nil)))

	fields := []ValidationErrorResponse{{Field: "email", Message: "Valid email required"}}
	assert.Equal(t, fields, GetDetails(NewValidationError("Invalid", fields)))
	assert.Nil(t, GetDetails(errors.New("plain")))
}

func TestIsDuplicateKeyError(t *testing.T) {
	assert.False(t, IsDuplicateKeyError(nil))
	assert.False(t, IsDuplicateKeyError(errors.New("connection reset")))
	assert.True(t, IsDuplicateKeyError(errors.New(`ERROR: duplicate key value violates unique constraint "signups_email_key"`)))
	assert.True(t, IsDuplicateKeyError(errors.New("UNIQUE constraint failed: signups.email")))
	assert.True(t, IsDuplicateKeyError(NewConflictError("dup", nil)))
}

type bindTarget struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"max=3"`
	Plain string `validate:"required"`
}

func TestFormatValidationErrors_UsesJSONNames(t *testing.T) {
	err := validator.New().Struct(bindTarget{Email: "nope", Name: "toolong"})
	require.Error(t, err)

	got := FormatValidationErrors(err, &bindTarget{})
	assert.ElementsMatch(t, []ValidationErrorResponse{
		{Field: "email", Message: "Valid email required"},
		{Field: "name", Message: "Must not exceed 3 characters"},
		{Field: "Plain", Message: "This field is required"},
	}, got)
}

func TestFormatValidationErrors_TypeMismatch(t *testing.T) {
	var target bindTarget
	err := json.Unmarshal([]byte(`{"email": 12}`), &target)
	require.Error(t, err)

	got := FormatValidationErrors(err, &target)
	require.Len(t, got, 1)
	assert.Equal(t, "email", got[0].Field)
	assert.Contains(t, got[0].Message, "Invalid type for field email")
}

func TestFormatValidationErrors_OtherErrors(t *testing.T) {
	assert.Nil(t, FormatValidationErrors(nil, nil))
	assert.Nil(t, FormatValidationErrors(errors.New("EOF"), nil))
}
