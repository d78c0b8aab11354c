package errors

import "errors"

const genericMessage = "An unexpected error occurred"

var statusByType = map[string]int{
	ErrorTypeInvalidRequest: StatusBadRequest,
	ErrorTypeUnauthorized:   StatusUnauthorized,
	ErrorTypeNotFound:       StatusNotFound,
	ErrorTypeConflict:       StatusConflict,
	ErrorTypeStorageError:   StatusInternalServerError,
}

// HTTPStatusCode maps err to a response status. Anything that is not an
// AppError is a 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return StatusInternalServerError
}

// GetHumanReadableMessage returns the AppError message. Other errors never
// reach the client verbatim.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return genericMessage
}

func GetDetails(err error) any {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}
