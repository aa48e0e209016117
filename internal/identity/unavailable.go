package identity

import (
	"context"

	"github.com/nexus-console/nexus-console/internal/fault"
)

const unavailableMessage = "Identity provider not initialized. Check the FIREBASE_* settings (or set IDENTITY_PROVIDER=dev)."

// Unavailable is installed when the provider configuration is incomplete.
// The console still starts; every identity call reports a configuration
// fault.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	msg := unavailableMessage
	if u.Reason != "" {
		msg = unavailableMessage + " " + u.Reason
	}
	return fault.Configuration(msg)
}

func (Unavailable) Name() string { return "unavailable" }

func (u Unavailable) SignIn(context.Context, string, string) (*Credentials, error) {
	return nil, u.err()
}

func (u Unavailable) Refresh(context.Context, string) (*Credentials, error) {
	return nil, u.err()
}

func (u Unavailable) Verify(context.Context, string) (*User, error) {
	return nil, u.err()
}

func (u Unavailable) SendPasswordReset(context.Context, string) error {
	return u.err()
}

func (u Unavailable) SendVerification(context.Context, string) error {
	return u.err()
}
