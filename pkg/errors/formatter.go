package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var tagMessages = map[string]string{
	"required":    "This field is required",
	"email":       "Valid email required",
	"signup_role": "Invalid role",
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("Must not exceed %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	}
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg
	}
	return "Invalid value"
}

// jsonName resolves a struct field to the name it has on the wire.
func jsonName(structType reflect.Type, fieldName string) string {
	if structType == nil {
		return fieldName
	}
	field, ok := structType.FieldByName(fieldName)
	if !ok {
		return fieldName
	}
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return fieldName
	}
	return name
}

// FormatValidationErrors turns a binding error into per-field messages keyed by
// JSON name. model is the request struct (or a pointer to it) that was bound.
func FormatValidationErrors(err error, model any) []ValidationErrorResponse {
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationErrorResponse{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
		}}
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	var structType reflect.Type
	if model != nil {
		structType = reflect.TypeOf(model)
		for structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
		if structType.Kind() != reflect.Struct {
			structType = nil
		}
	}

	out := make([]ValidationErrorResponse, 0, len(validationErrs))
	for _, fe := range validationErrs {
		out = append(out, ValidationErrorResponse{
			Field:   jsonName(structType, fe.Field()),
			Message: messageFor(fe),
		})
	}
	return out
}
