package handlers

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/qr-checkin/internal/apperr"
)

// httpError maps a domain failure onto a huma status error. The message is
// the one shown to the user.
func httpError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch apperr.CodeOf(err) {
	case apperr.CodeMissingField, apperr.CodeMalformedCode:
		return huma.Error422UnprocessableEntity(msg)
	case apperr.CodeDuplicateEmail, apperr.CodeAlreadyScanned, apperr.CodeInvalidState:
		return huma.Error409Conflict(msg)
	case apperr.CodeNotFound:
		return huma.Error404NotFound(msg)
	case apperr.CodeEmailMismatch:
		return huma.Error403Forbidden(msg)
	case apperr.CodeNoCamera:
		return huma.Error400BadRequest(msg)
	case apperr.CodeCameraFailure:
		return huma.Error502BadGateway(msg)
	case apperr.CodeStoreFailure:
		return huma.Error503ServiceUnavailable(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}
