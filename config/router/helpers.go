package router

import (
	"net/http"

	"github.com/akeren/waitlist-signup/internal/log"
)

// GetLogger returns the correlated logger bound to the request.
func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

func OKResult(data any, message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusOK, Data: data, Message: message}
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusBadRequest, Data: payload, Message: message}
}

func NotFoundResult(message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusNotFound, Message: message}
}

func InternalServerErrorResult(message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusInternalServerError, Message: message}
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusTooManyRequests, Data: data, Message: "Too Many Requests"}
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Data: data, Message: message}
}

// RawResult writes body as-is, without the code/data/message envelope.
// The public signup endpoints answer this way.
func RawResult(statusCode int, body any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Body: body}
}

// AttachmentResult streams content as a download named filename.
func AttachmentResult(filename, contentType string, content []byte) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusOK,
		Attachment: &Attachment{
			Filename:    filename,
			ContentType: contentType,
			Content:     content,
		},
	}
}
