package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError resolves the HTTP status and code for err. Errors without an
// aggregate code become a generic 500 whose message does not leak internals.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch domainagg.CodeOf(err) {
	case domainagg.CodeValidation:
		return New(http.StatusBadRequest, "validation_failed", err)
	case domainagg.CodeNotFound:
		return New(http.StatusNotFound, "not_found", err)
	case domainagg.CodeConflict:
		return New(http.StatusConflict, "conflict", err)
	case domainagg.CodePreconditionFailed:
		return New(http.StatusConflict, "precondition_failed", err)
	case domainagg.CodeInvariantViolation:
		return New(http.StatusUnprocessableEntity, "invariant_violation", err)
	case domainagg.CodeRetryable:
		return New(http.StatusServiceUnavailable, "retryable", err)
	case domainagg.CodePolicyRejected:
		return New(http.StatusInternalServerError, "write_rejected", errors.New("write rejected by access policy"))
	default:
		return New(http.StatusInternalServerError, "internal_error", errors.New("internal error"))
	}
}
