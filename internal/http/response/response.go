// Package response задаёт общий JSON-конверт ответов API.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response - конверт всех ответов: {"status":"OK","data":...}
// или {"status":"Error","error":"..."}.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse описывает ошибку в аннотациях @Failure.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"access denied"`
}

// StatusOKWithData оборачивает данные успешного ответа.
func StatusOKWithData(data any) Response {
	return Response{Status: StatusOK, Data: data}
}

// Error оборачивает сообщение об ошибке. Внутренние ошибки сюда не передаются.
func Error(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

// ValidationError собирает нарушения тегов validate в одну строку.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, fieldMessage(err))
	}
	return Error(strings.Join(msgs, ", "))
}

func fieldMessage(err validator.FieldError) string {
	switch err.ActualTag() {
	case "required":
		return fmt.Sprintf("field %s is a required field", err.Field())
	case "uuid":
		return fmt.Sprintf("field %s can contain only uuid", err.Field())
	case "gte", "lte":
		return fmt.Sprintf("field %s is out of range", err.Field())
	default:
		return fmt.Sprintf("field %s is not a valid", err.Field())
	}
}
