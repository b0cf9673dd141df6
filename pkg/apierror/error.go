package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	Unknown ErrorKind = iota
	InvalidArgument
	Unauthenticated
	PermissionDenied
	NotFound
	Conflict
	ResourceExhausted
	Internal
	Unavailable
)

// ErrorKind is the coarse classification of a failed API call.
// Callers branch on the kind (or on the platform status string),
// never on the message text.
type ErrorKind int

func (k ErrorKind) String() string {

	switch k {
	case InvalidArgument:
		return "invalid-argument"
	case Unauthenticated:
		return "unauthenticated"
	case PermissionDenied:
		return "permission-denied"
	case NotFound:
		return "not-found"
	case Conflict:
		return "conflict"
	case ResourceExhausted:
		return "resource-exhausted"
	case Internal:
		return "internal"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// codeToKind maps an HTTP status code to an error kind.
// Unlisted non-2xx codes classify as Unknown.
var codeToKind = map[int]ErrorKind{
	http.StatusBadRequest:          InvalidArgument,
	http.StatusUnauthorized:        Unauthenticated,
	http.StatusForbidden:           PermissionDenied,
	http.StatusNotFound:            NotFound,
	http.StatusConflict:            Conflict,
	http.StatusTooManyRequests:     ResourceExhausted,
	http.StatusInternalServerError: Internal,
	http.StatusServiceUnavailable:  Unavailable,
}

// statusToKind maps a platform-reported status string to an error kind.
// A recognized string overrides the kind derived from the HTTP status code.
var statusToKind = map[string]ErrorKind{
	"INVALID_ARGUMENT":  InvalidArgument,
	"INTERNAL":          Internal,
	"PERMISSION_DENIED": PermissionDenied,
	"UNAUTHENTICATED":   Unauthenticated,
	"UNAVAILABLE":       Unavailable,
}

// Error is a classified API failure.
//
// Status keeps the raw platform status string when the error body carried
// one, even if it did not map to a kind. API-specific layers use it to
// extract their own finer error codes.
type Error struct {
	Kind    ErrorKind
	Status  string
	Message string
}

// Error is 'error' interface implementation
func (e *Error) Error() string {
	return e.Message
}

// platformBody is the structured error envelope returned by Google backends:
// {"error": {"status": "<STATUS_STRING>", "message": "<text>"}}
type platformBody struct {
	Error *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// FromResponse classifies a non-2xx HTTP response.
//
// The kind is derived from the status code first. If the body is a
// structured platform error, a recognized status string refines the kind
// and a non-empty platform message replaces the generic one. A body that
// fails to parse never masks the underlying HTTP error: the code-derived
// classification is returned unchanged.
func FromResponse(statusCode int, body []byte) *Error {

	retval := &Error{
		Kind:    codeToKind[statusCode],
		Message: genericMessage(statusCode, body),
	}

	var pb platformBody
	if err := json.Unmarshal(body, &pb); err != nil || pb.Error == nil {
		return retval
	}

	retval.Status = pb.Error.Status

	if kind, ok := statusToKind[pb.Error.Status]; ok {
		retval.Kind = kind
	}

	if pb.Error.Message != "" {
		retval.Message = pb.Error.Message
	}

	return retval
}

func genericMessage(statusCode int, body []byte) string {

	name := http.StatusText(statusCode)
	if name == "" {
		name = "unknown"
	}

	return fmt.Sprintf("unexpected http response with status: %d (%s)\n%s",
		statusCode, name, body)
}

// Kind reports the classification of err.
// Foreign errors (including nil) report Unknown.
func Kind(err error) ErrorKind {

	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}

	return Unknown
}
