package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/procurehub/portal/internal/domain/draft"
	"github.com/procurehub/portal/internal/domain/shared"
	"github.com/procurehub/portal/internal/gateway"
	"github.com/procurehub/portal/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return ""
}

// Success sends a success envelope
func (h *BaseHandler) Success(c *gin.Context, body any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(body))
}

// SuccessWithMessage sends a success envelope with an informational message
func (h *BaseHandler) SuccessWithMessage(c *gin.Context, body any, message string) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMessage(body, message))
}

// Created sends a 201 created envelope
func (h *BaseHandler) Created(c *gin.Context, body any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(body))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error envelope with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error envelope, deriving the status from the code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.Error(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with per-field details
func (h *BaseHandler) ValidationError(c *gin.Context, fields []draft.FieldError) {
	details := make([]dto.FieldDetail, 0, len(fields))
	for _, f := range fields {
		details = append(details, dto.FieldDetail{Field: f.Field, Message: f.Message})
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// BindError sends the right 400 for a gin binding failure: per-field
// details for validation tags, a generic invalid-body error otherwise.
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details, ok := dto.BindingFieldDetails(err); ok {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Request validation failed",
			getRequestID(c),
			details,
		))
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
}

// HandleError converts domain and gateway errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	// The forced-logout response is written inside SessionRecovery.Run.
	if errors.Is(err, errSessionRevoked) {
		return
	}

	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	if gateway.IsUnavailable(err) {
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeUpstreamUnavailable,
			gateway.FallbackErrorMessage,
			requestID,
		))
		return
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		code := dto.ErrCodeUpstream
		switch apiErr.Status {
		case http.StatusUnauthorized:
			code = dto.ErrCodeUnauthorized
		case http.StatusForbidden:
			code = dto.ErrCodeForbidden
		case http.StatusNotFound:
			code = dto.ErrCodeNotFound
		case http.StatusConflict:
			code = dto.ErrCodeConflict
		}
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, apiErr.Message, requestID))
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}
