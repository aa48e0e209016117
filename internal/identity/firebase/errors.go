package firebase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexus-console/nexus-console/internal/fault"
	"github.com/nexus-console/nexus-console/internal/identity"
)

type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

var providerCodes = map[string]string{
	"EMAIL_NOT_FOUND":                identity.CodeUserNotFound,
	"INVALID_PASSWORD":               identity.CodeWrongPassword,
	"INVALID_EMAIL":                  identity.CodeInvalidEmail,
	"MISSING_EMAIL":                  identity.CodeInvalidEmail,
	"USER_DISABLED":                  identity.CodeUserDisabled,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    identity.CodeTooManyRequests,
	"INVALID_LOGIN_CREDENTIALS":      identity.CodeInvalidCredential,
	"TOKEN_EXPIRED":                  identity.CodeRequiresRecentLogin,
	"INVALID_ID_TOKEN":               identity.CodeRequiresRecentLogin,
	"INVALID_REFRESH_TOKEN":          identity.CodeRequiresRecentLogin,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": identity.CodeRequiresRecentLogin,
	"USER_NOT_FOUND":                 identity.CodeUserNotFound,
}

// decodeError maps an Identity Toolkit or Secure Token error body onto a
// provider code. The message may carry a " : detail" suffix.
func decodeError(status int, raw []byte) *fault.Error {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || strings.TrimSpace(body.Error.Message) == "" {
		return identity.NewError(identity.CodeInternal, "", fmt.Errorf("firebase: status %d: %s", status, strings.TrimSpace(string(raw))))
	}

	message := strings.TrimSpace(body.Error.Message)
	token, detail, _ := strings.Cut(message, " : ")
	token = strings.TrimSpace(token)
	cause := fmt.Errorf("firebase: status %d: %s", status, message)

	if code, ok := providerCodes[token]; ok {
		return identity.NewError(code, strings.TrimSpace(detail), cause)
	}
	code := "auth/" + strings.ReplaceAll(strings.ToLower(token), "_", "-")
	text := strings.TrimSpace(detail)
	if text == "" {
		text = token
	}
	return identity.NewError(code, text, cause)
}
