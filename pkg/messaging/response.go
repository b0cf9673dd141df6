package messaging

import (
	"github.com/ROR44/firebase-admin-go/pkg/apierror"
)

const (
	ErrorCodeUnspecified      ErrorCode = "UNSPECIFIED"
	ErrorCodeUnregistered     ErrorCode = "UNREGISTERED"
	ErrorCodeSenderIDMismatch ErrorCode = "SENDER_ID_MISMATCH"
	ErrorCodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrorCodeThirdPartyAuth   ErrorCode = "THIRD_PARTY_AUTH_ERROR"
)

// ErrorCode is the FCM-specific error vocabulary, finer than the shared
// apierror kinds and disjoint from them:
// https://firebase.google.com/docs/reference/fcm/rest/v1/ErrorCode
type ErrorCode string

// errorCodes is the closed set of recognized FCM sub-codes. A platform
// status string outside this table leaves SendError.Code empty.
var errorCodes = map[ErrorCode]struct{}{
	ErrorCodeUnspecified:      {},
	ErrorCodeUnregistered:     {},
	ErrorCodeSenderIDMismatch: {},
	ErrorCodeQuotaExceeded:    {},
	ErrorCodeThirdPartyAuth:   {},
}

// SendError is one classified messaging failure. Code refines the
// shared classification with the FCM sub-code when the backend reported
// one; it is empty for all other failures.
type SendError struct {
	Err  *apierror.Error
	Code ErrorCode
}

func newSendError(err *apierror.Error) *SendError {

	retval := &SendError{Err: err}

	if _, ok := errorCodes[ErrorCode(err.Status)]; ok {
		retval.Code = ErrorCode(err.Status)
	}

	return retval
}

// Error is 'error' interface implementation
func (e *SendError) Error() string {

	if e.Code != "" {
		return string(e.Code) + ": " + e.Err.Message
	}

	return e.Err.Message
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsUnregistered reports whether err says the device token is no longer
// valid and should be removed from the caller's storage.
func IsUnregistered(err error) bool {
	return hasErrorCode(err, ErrorCodeUnregistered)
}

// IsQuotaExceeded reports whether err says the sending quota for the
// message target was exhausted.
func IsQuotaExceeded(err error) bool {
	return hasErrorCode(err, ErrorCodeQuotaExceeded)
}

// IsSenderIDMismatch reports whether err says the token is tied to a
// different sender ID.
func IsSenderIDMismatch(err error) bool {
	return hasErrorCode(err, ErrorCodeSenderIDMismatch)
}

func hasErrorCode(err error, code ErrorCode) bool {

	e, ok := err.(*SendError)
	return ok && e.Code == code
}

// SendResponse is the outcome of one message inside a batch: either a
// message ID or a classified error, never both.
type SendResponse struct {
	Success   bool
	MessageID string
	Error     *SendError
}

// BatchResponse holds one outcome per input message, in input order,
// regardless of how many of them failed.
type BatchResponse struct {
	SuccessCount int
	FailureCount int
	Responses    []*SendResponse
}
