package identity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexus-console/nexus-console/internal/fault"
)

func TestMessageTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "user not found", err: NewError(CodeUserNotFound, "EMAIL_NOT_FOUND", nil), want: "No account found with this email address."},
		{name: "wrong password", err: NewError(CodeWrongPassword, "", nil), want: "Incorrect password."},
		{name: "invalid email", err: NewError(CodeInvalidEmail, "", nil), want: "Please enter a valid email address."},
		{name: "disabled", err: NewError(CodeUserDisabled, "", nil), want: "This account has been disabled."},
		{name: "throttled", err: NewError(CodeTooManyRequests, "", nil), want: "Too many failed attempts. Please try again later."},
		{name: "invalid credential", err: NewError(CodeInvalidCredential, "", nil), want: "Invalid email or password."},
		{name: "network", err: NewError(CodeNetworkRequestFailed, "", nil), want: "Network error. Please check your connection."},
		{name: "already verified", err: NewError(CodeEmailAlreadyVerified, "", nil), want: "Your email is already verified."},
		{name: "recent login", err: NewError(CodeRequiresRecentLogin, "", nil), want: "Please sign in again to perform this action."},
		{name: "unknown code keeps provider message", err: NewError("auth/weak-password", "Password too short", nil), want: "Password too short"},
		{name: "unknown code without message", err: NewError("auth/odd", "", nil), want: "An unexpected error occurred."},
		{name: "plain error", err: errors.New("boom"), want: "boom"},
		{name: "wrapped", err: errors.Join(errors.New("ctx"), NewError(CodeWrongPassword, "", nil)), want: "Incorrect password."},
	}

	for _, tc := range tests {
		if got := Message(tc.err); got != tc.want {
			t.Fatalf("%s: Message() = %q, want %q", tc.name, got, tc.want)
		}
	}
	if Message(nil) != "" {
		t.Fatal("Message(nil) must be empty")
	}
}

func TestUnavailableReportsConfigurationFault(t *testing.T) {
	t.Parallel()

	var p Provider = Unavailable{Reason: "missing FIREBASE_API_KEY"}
	ctx := context.Background()

	_, err := p.SignIn(ctx, "a@example.com", "pw")
	if !fault.Is(err, fault.KindConfiguration) {
		t.Fatalf("SignIn() error = %v", err)
	}
	if _, err := p.Verify(ctx, "tok"); !fault.Is(err, fault.KindConfiguration) {
		t.Fatalf("Verify() error = %v", err)
	}
	if err := p.SendPasswordReset(ctx, "a@example.com"); !fault.Is(err, fault.KindConfiguration) {
		t.Fatalf("SendPasswordReset() error = %v", err)
	}
}

func TestCredentialsExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	var nilCreds *Credentials
	if !nilCreds.Expired(now, time.Minute) {
		t.Fatal("nil credentials must be expired")
	}
	c := &Credentials{IDToken: "t", Expiry: now.Add(90 * time.Second)}
	if c.Expired(now, time.Minute) {
		t.Fatal("token with 90s left reported expired")
	}
	if !c.Expired(now.Add(31*time.Second), time.Minute) {
		t.Fatal("token inside the leeway must be expired")
	}
}

type countingProvider struct {
	Unavailable
	refreshes atomic.Int32
}

func (p *countingProvider) Refresh(_ context.Context, refreshToken string) (*Credentials, error) {
	n := p.refreshes.Add(1)
	return &Credentials{
		IDToken: "fresh-" + refreshToken + "-" + string(rune('0'+n)),
		Expiry:  time.Now().Add(time.Hour),
	}, nil
}

func TestTokenSourceRefreshesOnlyWhenStale(t *testing.T) {
	t.Parallel()

	p := &countingProvider{}
	fresh := &Credentials{IDToken: "current", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}
	tok, err := IDTokenFunc(TokenSource(context.Background(), p, fresh))(context.Background())
	if err != nil || tok != "current" {
		t.Fatalf("token = %q, %v", tok, err)
	}
	if p.refreshes.Load() != 0 {
		t.Fatal("valid token was refreshed")
	}

	stale := &Credentials{IDToken: "old", RefreshToken: "r", Expiry: time.Now().Add(10 * time.Second)}
	ts := TokenSource(context.Background(), p, stale)
	first, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if first.AccessToken != "fresh-r-1" || first.RefreshToken != "r" {
		t.Fatalf("token = %+v", first)
	}
	second, _ := ts.Token()
	if second.AccessToken != first.AccessToken || p.refreshes.Load() != 1 {
		t.Fatalf("refreshed token was not reused: %q, refreshes=%d", second.AccessToken, p.refreshes.Load())
	}
}

func TestCredentialRejected(t *testing.T) {
	t.Parallel()

	rejected := []string{CodeInvalidCredential, CodeRequiresRecentLogin, CodeUserDisabled, CodeUserNotFound}
	for _, code := range rejected {
		if !CredentialRejected(NewError(code, "", nil)) {
			t.Fatalf("CredentialRejected(%s) = false", code)
		}
	}
	retryable := []error{
		NewError(CodeNetworkRequestFailed, "", nil),
		NewError(CodeTooManyRequests, "", nil),
		NewError(CodeInternal, "", nil),
		fault.Configuration("identity provider is not configured"),
		errors.New("boom"),
		nil,
	}
	for _, err := range retryable {
		if CredentialRejected(err) {
			t.Fatalf("CredentialRejected(%v) = true", err)
		}
	}
}
