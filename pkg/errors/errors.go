// Error kinds shared by the gateway client, the normalizer and the workflows.
//
// Every failure a user can see is one of:
//
//   - RequestFailed with Kind Network: the server did not answer.
//   - RequestFailed with Kind Api: the server answered with non-2xx.
//   - ValidationFailure: input was rejected before any request.
//   - ErrContractViolation: the server answered with a payload of unexpected shape.
//
// Use errors.Is with the sentinels below to tell them apart.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRequestFailed matches every RequestFailed, regardless of its kind.
	ErrRequestFailed = errors.New("request failed")

	// ErrNetworkFailure matches RequestFailed without server response.
	ErrNetworkFailure = errors.New("network failure")

	// ErrApi matches RequestFailed with non-success status.
	ErrApi = errors.New("api error")

	// ErrValidation matches ValidationFailure.
	ErrValidation = errors.New("validation failure")

	// ErrContractViolation is returned when a server payload has unexpected shape.
	ErrContractViolation = errors.New("unexpected data from server")
)

type Verbose interface {
	Verbose() string
}

type Kind int

const (
	Network Kind = iota
	Api
)

func (k Kind) String() string {
	switch k {
	case Network:
		return "network"
	case Api:
		return "api"
	default:
		return fmt.Sprintf("unknown (%d)", int(k))
	}
}

// RequestFailed is the single error type of the gateway client.
type RequestFailed struct {
	Kind Kind

	// HTTP status code. 0 for Network.
	Status int

	// Message shown to user.
	//
	// For Api, it is the "detail" sent by the server if any.
	Detail string

	Cause error
}

func (rf *RequestFailed) Error() string {
	return rf.Detail
}

func (rf *RequestFailed) Unwrap() error {
	return rf.Cause
}

func (rf *RequestFailed) Is(target error) bool {
	switch target {
	case ErrRequestFailed:
		return true
	case ErrNetworkFailure:
		return rf.Kind == Network
	case ErrApi:
		return rf.Kind == Api
	}
	return false
}

func (rf *RequestFailed) Verbose() string {
	message := []string{rf.Error()}
	if rf.Status != 0 {
		message = append(message, fmt.Sprintf(" (%s error, status code = %d) ", rf.Kind, rf.Status))
	} else {
		message = append(message, fmt.Sprintf(" (%s error) ", rf.Kind))
	}

	switch base := rf.Cause.(type) {
	case nil:
		// no-op
	case Verbose:
		message = append(message, "caused by: ", base.Verbose())
	default:
		message = append(message, "caused by: ", base.Error())
	}
	return strings.Join(message, "\n")
}

// NewNetworkFailure wraps an error caused before any response arrived.
func NewNetworkFailure(cause error) *RequestFailed {
	return &RequestFailed{
		Kind:   Network,
		Detail: "cannot reach the server",
		Cause:  cause,
	}
}

// NewApiError builds RequestFailed for non-2xx response.
//
// When detail is empty, summary is used instead.
func NewApiError(status int, summary string, detail string) *RequestFailed {
	message := detail
	if message == "" {
		message = summary
	}
	return &RequestFailed{
		Kind:   Api,
		Status: status,
		Detail: message,
	}
}

// ValidationFailure tells which input fields are rejected.
type ValidationFailure struct {
	// Fields which are missing or malformed, in the order they are checked.
	Fields []string

	Reason string
}

func NewValidationFailure(reason string, fields ...string) *ValidationFailure {
	return &ValidationFailure{Reason: reason, Fields: fields}
}

func (vf *ValidationFailure) Error() string {
	if len(vf.Fields) == 0 {
		return vf.Reason
	}
	return fmt.Sprintf("%s: %s", vf.Reason, strings.Join(vf.Fields, ", "))
}

func (vf *ValidationFailure) Is(target error) bool {
	return target == ErrValidation
}

// Contract wraps ErrContractViolation with the reason.
func Contract(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// Message returns text to be shown to the user for err.
//
// Contract violations are not explained in detail.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrContractViolation) {
		return ErrContractViolation.Error()
	}
	if rf := new(RequestFailed); errors.As(err, &rf) {
		return rf.Error()
	}
	if vf := new(ValidationFailure); errors.As(err, &vf) {
		return vf.Error()
	}
	return err.Error()
}
