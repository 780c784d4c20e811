package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/farm-credit-ledger/internal/credit_api/middleware"
	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type MetaInfo struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	TotalPages int64 `json:"total_pages,omitempty"`
	TotalItems int64 `json:"total_items,omitempty"`
}

// NewPaginatedResponse creates a new paginated response
func NewPaginatedResponse(data interface{}, page, perPage int, totalItems int64) *Response {
	totalPages := totalItems / int64(perPage)
	if totalItems%int64(perPage) > 0 {
		totalPages++
	}

	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

func RespondWithError(c *gin.Context, statusCode int, info *ErrorInfo) {
	c.JSON(statusCode, &Response{
		Error:         info,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

func RespondWithPaginatedData(c *gin.Context, data interface{}, page, perPage int, totalItems int64) {
	response := NewPaginatedResponse(data, page, perPage, totalItems)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(http.StatusOK, response)
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest is used for malformed input rejected before the engine runs
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, &ErrorInfo{Code: string(credit.KindValidation), Message: message})
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind credit.ErrorKind) int {
	switch kind {
	case credit.KindNotFound:
		return http.StatusNotFound
	case credit.KindAlreadyGranted, credit.KindConcurrencyConflict, credit.KindSettlementNotDue:
		return http.StatusConflict
	case credit.KindNotEligible:
		return http.StatusUnprocessableEntity
	case credit.KindValidation:
		return http.StatusBadRequest
	case credit.KindCollaboratorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondEngineError classifies an engine error. Internal errors are logged
// and their message is never returned to the caller.
func RespondEngineError(c *gin.Context, logger *slog.Logger, operation string, err error) {
	kind := credit.KindOf(err)
	status := statusFor(kind)

	info := &ErrorInfo{Code: string(kind), Message: err.Error()}
	var validationErr credit.ErrValidation
	if errors.As(err, &validationErr) {
		info.Field = validationErr.Field
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "Credit operation failed",
			"operation", operation,
			"error", err,
			"correlation_id", middleware.GetCorrelationID(c),
		)
		if kind == credit.KindInternal {
			info.Message = "An internal server error occurred"
		}
	}
	RespondWithError(c, status, info)
}
