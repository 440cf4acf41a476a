package v1

import (
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/complaintdesk/internal/domain"
)

const complaintNotFound = "complaint not found"

// complaintError maps a service error for a route that names a complaint.
// A denial is reported exactly like a missing complaint so that callers
// cannot probe for references they may not see.
func complaintError(op string, err error) error {
	if errors.Is(err, domain.ErrDenied) || errors.Is(err, domain.ErrNotFound) {
		return huma.Error404NotFound(complaintNotFound)
	}
	return serviceError(op, err)
}

// serviceError maps a service error for a route without a target complaint.
func serviceError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return huma.Error401Unauthorized("authentication required")
	case errors.Is(err, domain.ErrUnconfigured):
		return huma.Error403Forbidden("identity not configured")
	case errors.Is(err, domain.ErrDenied):
		return huma.Error403Forbidden("permission denied")
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		return huma.Error409Conflict("status transition not allowed")
	case errors.Is(err, domain.ErrWrongState):
		return huma.Error409Conflict("complaint is not in a state that allows this action")
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict("complaint was modified concurrently, retry")
	case errors.Is(err, domain.ErrValidation):
		return huma.Error422UnprocessableEntity(validationMessage(err))
	default:
		log.Error().Err(err).Str("op", op).Msg("api: storage failure")
		return huma.Error500InternalServerError("internal error")
	}
}

// validationMessage strips the "pkg.Func: " chain so only the rule that
// failed reaches the client.
func validationMessage(err error) string {
	msg := err.Error()
	for {
		head, rest, ok := strings.Cut(msg, ": ")
		if !ok || strings.Contains(head, " ") || !strings.Contains(head, ".") {
			return msg
		}
		msg = rest
	}
}
