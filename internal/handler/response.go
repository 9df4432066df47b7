package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/practice-api/internal/model"
	apperrors "github.com/jwalitptl/practice-api/pkg/errors"
)

// HeaderCascadeOperation names the cascade behind a step-report response.
const HeaderCascadeOperation = "X-Cascade-Operation"

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// ErrorBody renders err without leaking wrapped internals.
func ErrorBody(err error) *Response {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return NewErrorResponse(appErr.Message)
	}
	return NewErrorResponse("internal server error")
}

// Error attaches err to the context and writes the error response.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperrors.HTTPStatus(err), ErrorBody(err))
}

// Cascade writes the outcome of an operation that returns a step report. A
// partial failure still carries the report so the caller can see what was
// committed before retrying.
func Cascade(c *gin.Context, status int, report *model.Report, err error) {
	if report != nil {
		c.Header(HeaderCascadeOperation, report.Operation)
	}
	if err == nil {
		c.JSON(status, NewSuccessResponse(report))
		return
	}
	_ = c.Error(err)
	body := ErrorBody(err)
	if apperrors.Is(err, apperrors.ErrPartialCascade) {
		body.Data = report
	}
	c.JSON(apperrors.HTTPStatus(err), body)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validationMessages = map[string]string{
	"required":         "Field is required",
	"min":              "Value is too short",
	"max":              "Value is too long",
	"url":              "Invalid URL",
	"gtfield":          "Value must be after the referenced field",
	"appointment_kind": "Must be group or individual",
}

// BindJSON binds the body into req and writes a 400 on failure.
func BindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request body: "+err.Error()))
		return false
	}
	fields := make([]ValidationError, 0, len(verrs))
	for _, e := range verrs {
		msg := validationMessages[e.Tag()]
		if msg == "" {
			msg = e.Error()
		}
		fields = append(fields, ValidationError{Field: e.Field(), Message: msg})
	}
	c.JSON(http.StatusBadRequest, &Response{Status: "error", Message: "validation failed", Data: fields})
	return false
}

// ParamID parses a UUID path parameter and writes a 400 when it is malformed.
func ParamID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// QueryID parses an optional UUID query parameter.
func QueryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid "+name))
		return nil, false
	}
	return &id, true
}

// Status is the HTTP status err maps to.
func Status(err error) int {
	return apperrors.HTTPStatus(err)
}
