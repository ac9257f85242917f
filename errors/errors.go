package errors

import (
	stderrors "errors"
	"fmt"
)

// Category roots. Leaf errors wrap one of them so callers can classify with errors.Is.
var (
	ErrTransport      = fmt.Errorf("transport error")
	ErrRemoteService  = fmt.Errorf("remote service error")
	ErrValidation     = fmt.Errorf("validation error")
	ErrState          = fmt.Errorf("state error")
	ErrProtocolDecode = fmt.Errorf("protocol decode error")
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrSocketNotOpen = fmt.Errorf("%w: socket is not open", ErrTransport)
	ErrDialFailed    = fmt.Errorf("%w: unable to open socket", ErrTransport)

	ErrAccessDenied       = fmt.Errorf("%w: access denied", ErrRemoteService)
	ErrUnexpectedResponse = fmt.Errorf("%w: unexpected response", ErrRemoteService)

	ErrMimeTypeUnresolvable = fmt.Errorf("%w: could not parse MIME type from file", ErrValidation)
	ErrUnsupportedMimeType  = fmt.Errorf("%w: file type is not supported", ErrValidation)
	ErrFileUnreadable       = fmt.Errorf("%w: file is not readable", ErrValidation)
	ErrFileSizeUnavailable  = fmt.Errorf("%w: unable to determine file size", ErrValidation)
	ErrInvalidDetails       = fmt.Errorf("%w: invalid details", ErrValidation)

	ErrNoConnection         = fmt.Errorf("%w: no connection details available", ErrState)
	ErrMessageNotFound      = fmt.Errorf("%w: message not found", ErrState)
	ErrMessageNotResendable = fmt.Errorf("%w: message is not in a resendable state", ErrState)
	ErrSessionClosed        = fmt.Errorf("%w: session loop is not running", ErrState)

	ErrUnknownTopic       = fmt.Errorf("%w: unknown topic", ErrProtocolDecode)
	ErrUnknownItemType    = fmt.Errorf("%w: unknown item type", ErrProtocolDecode)
	ErrUnknownContentType = fmt.Errorf("%w: unknown content type", ErrProtocolDecode)
	ErrMalformedFrame     = fmt.Errorf("%w: malformed frame", ErrProtocolDecode)
)

// Is and As forward to the standard library so callers need a single errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
