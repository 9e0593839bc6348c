package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storesync/backend/internal/domain/pipeline"
	"github.com/storesync/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	requestID := getRequestID(c)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, requestID))
}

// ErrorWithCode sends an error response, deriving status code from error code
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

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts pipeline errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	h.ErrorWithCode(c, errorCode(err), err.Error())
}

// errorCode maps a pipeline error chain to an API error code
func errorCode(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrSourceUnavailable):
		return dto.ErrCodeUpstreamUnavailable
	case errors.Is(err, pipeline.ErrSourceRequestFailed):
		return dto.ErrCodeUpstreamRejected
	case errors.Is(err, pipeline.ErrSourceInvalidResponse):
		return dto.ErrCodeUpstreamInvalid
	case errors.Is(err, pipeline.ErrSinkPublishFailed):
		return dto.ErrCodeSinkFailed
	case errors.Is(err, pipeline.ErrJoinKeyMissing), errors.Is(err, pipeline.ErrCombinedColumnMissing):
		return dto.ErrCodeSchemaMismatch
	default:
		return dto.ErrCodeInternal
	}
}
