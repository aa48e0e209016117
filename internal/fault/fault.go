// Package fault defines the tagged error kinds shared by the console's
// identity, routing and REST layers.
package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a fault by where it originates.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindAuthentication
	KindAuthorization
	KindTransport
)

// DefaultMessage is shown when no better message can be extracted.
const DefaultMessage = "An unexpected error occurred"

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is a structured fault. Message is safe to show to an operator;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = DefaultMessage
	}
	if e.Code != "" {
		return fmt.Sprintf("%s fault (%s): %s", e.Kind, e.Code, msg)
	}
	return fmt.Sprintf("%s fault: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Configuration reports missing or invalid settings.
func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// Authentication reports a failed sign-in, token or session operation.
func Authentication(code, message string, err error) *Error {
	return &Error{Kind: KindAuthentication, Code: code, Message: message, Err: err}
}

// Authorization reports a principal lacking a required role. Route checks
// model this as a false predicate; the kind exists for API callers.
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// Transport reports a failed REST call.
func Transport(status int, message string, err error) *Error {
	return &Error{Kind: KindTransport, Status: status, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) && fe != nil {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries a fault of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserMessage extracts the text to surface to an operator, preferring the
// structured fault message, then the error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe != nil {
		if msg := strings.TrimSpace(fe.Message); msg != "" {
			return msg
		}
		if fe.Err != nil {
			if msg := strings.TrimSpace(fe.Err.Error()); msg != "" {
				return msg
			}
		}
		return DefaultMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return DefaultMessage
}
