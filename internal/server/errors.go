package server

import (
	"errors"
	"net/http"
	"strings"

	applicationdomain "github.com/agrocoop/agrocoop/internal/feeapplication/domain"
	assignmentdomain "github.com/agrocoop/agrocoop/internal/feeassignment/domain"
	feeruledomain "github.com/agrocoop/agrocoop/internal/feerule/domain"
	memberdomain "github.com/agrocoop/agrocoop/internal/member/domain"
	paymentdomain "github.com/agrocoop/agrocoop/internal/payment/domain"
	unitdomain "github.com/agrocoop/agrocoop/internal/unit/domain"
	zonedomain "github.com/agrocoop/agrocoop/internal/zone/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware translates domain errors collected on the gin
// context into the JSON error envelope. Handlers call AbortWithError and let
// the middleware pick the status.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: strings.ReplaceAll(code, "_", " "),
				},
			},
		}
	}

	switch {
	case isPreconditionError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "precondition_failed",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, feeruledomain.ErrInvalidID),
		errors.Is(err, feeruledomain.ErrInvalidName),
		errors.Is(err, feeruledomain.ErrInvalidFeeType),
		errors.Is(err, feeruledomain.ErrInvalidAmount),
		errors.Is(err, feeruledomain.ErrInvalidFrequency),
		errors.Is(err, feeruledomain.ErrInvalidStatus),
		errors.Is(err, feeruledomain.ErrInvalidAppliesTo),
		errors.Is(err, feeruledomain.ErrInvalidEffectiveDate),
		errors.Is(err, applicationdomain.ErrInvalidID),
		errors.Is(err, applicationdomain.ErrInvalidRule),
		errors.Is(err, applicationdomain.ErrInvalidStatus),
		errors.Is(err, assignmentdomain.ErrInvalidRule),
		errors.Is(err, assignmentdomain.ErrInvalidUnit),
		errors.Is(err, assignmentdomain.ErrInvalidAmount),
		errors.Is(err, assignmentdomain.ErrEmptyRequest),
		errors.Is(err, memberdomain.ErrInvalidID),
		errors.Is(err, memberdomain.ErrInvalidName),
		errors.Is(err, memberdomain.ErrInvalidPhone),
		errors.Is(err, memberdomain.ErrInvalidRole),
		errors.Is(err, memberdomain.ErrInvalidStatus),
		errors.Is(err, memberdomain.ErrInvalidUnit),
		errors.Is(err, unitdomain.ErrInvalidID),
		errors.Is(err, unitdomain.ErrInvalidName),
		errors.Is(err, unitdomain.ErrInvalidZone),
		errors.Is(err, unitdomain.ErrInvalidLeader),
		errors.Is(err, zonedomain.ErrInvalidID),
		errors.Is(err, zonedomain.ErrInvalidName),
		errors.Is(err, paymentdomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrMissingReference):
		return true
	default:
		return false
	}
}

// Precondition failures are well-formed requests against entities in the wrong
// state. Unlike validation errors, retrying the same payload later can succeed.
func isPreconditionError(err error) bool {
	switch {
	case errors.Is(err, feeruledomain.ErrNotDue),
		errors.Is(err, applicationdomain.ErrRuleNotActive),
		errors.Is(err, applicationdomain.ErrRuleNotEffective),
		errors.Is(err, applicationdomain.ErrNotOpen),
		errors.Is(err, applicationdomain.ErrAlreadyPaid):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, feeruledomain.ErrRuleHasApplications),
		errors.Is(err, memberdomain.ErrPhoneExists),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, feeruledomain.ErrNotFound),
		errors.Is(err, applicationdomain.ErrNotFound),
		errors.Is(err, memberdomain.ErrNotFound),
		errors.Is(err, unitdomain.ErrNotFound),
		errors.Is(err, zonedomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	switch {
	case strings.Contains(code, "name"):
		return "name"
	case strings.Contains(code, "phone"):
		return "phone"
	case strings.Contains(code, "fee_type"):
		return "fee_type"
	case strings.Contains(code, "amount"):
		return "amount"
	case strings.Contains(code, "frequency"):
		return "frequency"
	case strings.Contains(code, "status"):
		return "status"
	case strings.Contains(code, "applies_to"):
		return "applies_to"
	case strings.Contains(code, "effective_date"):
		return "effective_date"
	case strings.Contains(code, "role"):
		return "role"
	case strings.Contains(code, "unit"):
		return "unit_id"
	case strings.Contains(code, "zone"):
		return "zone_id"
	case strings.Contains(code, "leader"):
		return "leader_id"
	case strings.Contains(code, "rule"):
		return "fee_rule_id"
	case strings.Contains(code, "reference"):
		return "payment_ref"
	case strings.Contains(code, "id"):
		return "id"
	default:
		return "request"
	}
}
