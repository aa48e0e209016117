package identity

import (
	"errors"
	"strings"

	"github.com/nexus-console/nexus-console/internal/fault"
)

// Provider error codes.
const (
	CodeUserNotFound         = "auth/user-not-found"
	CodeWrongPassword        = "auth/wrong-password"
	CodeInvalidEmail         = "auth/invalid-email"
	CodeUserDisabled         = "auth/user-disabled"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeInvalidCredential    = "auth/invalid-credential"
	CodeNetworkRequestFailed = "auth/network-request-failed"
	CodeEmailAlreadyVerified = "auth/email-already-verified"
	CodeRequiresRecentLogin  = "auth/requires-recent-login"
	CodeNotAuthenticated     = "auth/not-authenticated"
	CodeInternal             = "auth/internal-error"
)

const unexpectedMessage = "An unexpected error occurred."

var messages = map[string]string{
	CodeUserNotFound:         "No account found with this email address.",
	CodeWrongPassword:        "Incorrect password.",
	CodeInvalidEmail:         "Please enter a valid email address.",
	CodeUserDisabled:         "This account has been disabled.",
	CodeTooManyRequests:      "Too many failed attempts. Please try again later.",
	CodeInvalidCredential:    "Invalid email or password.",
	CodeNetworkRequestFailed: "Network error. Please check your connection.",
	CodeEmailAlreadyVerified: "Your email is already verified.",
	CodeRequiresRecentLogin:  "Please sign in again to perform this action.",
}

// NewError wraps a provider failure as an authentication fault. message is
// the provider's own text and is only shown for codes outside the table.
func NewError(code, message string, err error) *fault.Error {
	return fault.Authentication(code, message, err)
}

// ErrNotAuthenticated is returned for token operations on a signed-out
// session.
var ErrNotAuthenticated = NewError(CodeNotAuthenticated, "User is not authenticated", nil)

// rejectingCodes are the failures that mean the stored credential itself is
// no longer accepted.
var rejectingCodes = map[string]bool{
	CodeInvalidCredential:   true,
	CodeRequiresRecentLogin: true,
	CodeUserDisabled:        true,
	CodeUserNotFound:        true,
}

// CredentialRejected reports whether err says the credential is dead, as
// opposed to a network, throttling or provider fault worth retrying.
func CredentialRejected(err error) bool {
	return fault.Is(err, fault.KindAuthentication) && rejectingCodes[Code(err)]
}

// Code returns the provider code carried by err, or "".
func Code(err error) string {
	var fe *fault.Error
	if errors.As(err, &fe) && fe != nil {
		return fe.Code
	}
	return ""
}

// Message maps err onto the operator-facing text for its code. Unknown
// codes fall back to the provider message.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := messages[Code(err)]; ok {
		return msg
	}
	var fe *fault.Error
	if errors.As(err, &fe) && fe != nil {
		if msg := strings.TrimSpace(fe.Message); msg != "" {
			return msg
		}
		return unexpectedMessage
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return unexpectedMessage
}
