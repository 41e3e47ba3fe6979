package errors

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/exodash/pkg/api/types/errors"
	xe "github.com/opst/exodash/pkg/errors"
	"github.com/opst/exodash/pkg/resolver"
	"github.com/opst/exodash/pkg/workflow"
)

// Kinds in error responses of the dashboard server.
const (
	KindValidation = "validation"
	KindBusy       = "busy"
	KindNotReady   = "not_ready"
	KindNetwork    = "network"
	KindApi        = "api"
	KindContract   = "contract"
	KindNotFound   = "not_found"
	KindInternal   = "internal"
)

func NewErrorMessage(code int, kind string, detail string, err error) *echo.HTTPError {
	msg := apierr.ErrorMessage{Detail: detail, Kind: kind}
	if vf := new(xe.ValidationFailure); errors.As(err, &vf) {
		msg.Fields = vf.Fields
	}
	he := echo.NewHTTPError(code, msg)
	if err != nil {
		he = he.SetInternal(err)
	}
	return he
}

func BadRequest(detail string, err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusBadRequest, KindValidation, detail, err)
}

func Conflict(kind string, detail string, err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusConflict, kind, detail, err)
}

func NotFound(detail string) *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, KindNotFound, detail, nil)
}

func InternalServerError(err error) *echo.HTTPError {
	return NewErrorMessage(http.StatusInternalServerError, KindInternal, "unexpected error", err)
}

// FromError converts err into HTTPError carrying {detail, kind}.
//
// Validation failures are 400, workflows already running are 409,
// failures of the remote API are 502, and contract violations are 500.
func FromError(err error) *echo.HTTPError {
	if he := new(echo.HTTPError); errors.As(err, &he) {
		return he
	}

	detail := xe.Message(err)
	switch {
	case errors.Is(err, xe.ErrValidation):
		return BadRequest(detail, err)
	case errors.Is(err, workflow.ErrBusy):
		return Conflict(KindBusy, "another request is in progress", err)
	case errors.Is(err, resolver.ErrNotReady), errors.Is(err, resolver.ErrSuperseded):
		return Conflict(KindNotReady, "model selection is in progress", err)
	case errors.Is(err, workflow.ErrNoResult):
		return Conflict(KindNotReady, err.Error(), err)
	case errors.Is(err, xe.ErrNetworkFailure):
		return NewErrorMessage(http.StatusBadGateway, KindNetwork, detail, err)
	case errors.Is(err, xe.ErrApi):
		return NewErrorMessage(http.StatusBadGateway, KindApi, detail, err)
	case errors.Is(err, xe.ErrContractViolation):
		return NewErrorMessage(http.StatusInternalServerError, KindContract, detail, err)
	default:
		return InternalServerError(err)
	}
}
