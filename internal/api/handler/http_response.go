package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp-ledger-engine/internal/api/middleware"
	"github.com/erp-ledger-engine/internal/domain/shared"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewResponse creates a new response with data
func NewResponse(data interface{}) *Response {
	return &Response{
		Data: data,
	}
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message string) *Response {
	return &Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	response := NewResponse(data)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	response := NewErrorResponse(code, message)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with a validation error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, shared.CodeValidation, message)
}

// RespondEngineError translates an engine failure into its HTTP form.
// Error codes are the API contract; status codes are a coarse
// transport-level grouping of them.
func RespondEngineError(c *gin.Context, err error) {
	code := shared.CodeOf(err)
	RespondWithError(c, statusOf(code), code, err.Error())
}

// statusOf maps machine codes onto HTTP status codes. Conflicts are
// lifecycle and concurrency breaches; unprocessable entities are
// documents that parsed fine but fail the accounting rules.
func statusOf(code string) int {
	switch code {
	case shared.CodePermissionDenied:
		return http.StatusForbidden
	case shared.CodeNotFound:
		return http.StatusNotFound
	case shared.CodeInvalidState, shared.CodeLineImmutable,
		shared.CodeReplayMutationID, shared.CodeLamportRewind,
		shared.CodeSignatureInvalid:
		return http.StatusConflict
	case shared.CodeBalanceFail, shared.CodePostingsMissing,
		shared.CodeItemMismatch, shared.CodeInventoryEffectMismatch,
		shared.CodeMoveQtyExceeds:
		return http.StatusUnprocessableEntity
	case shared.CodeValidation:
		return http.StatusBadRequest
	case shared.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
