// Package notify carries user-visible toast notifications from the layer
// that detects a condition to the layer that renders it.
package notify

import (
	"context"
	"strings"
	"sync"
)

// Severity is the toast category.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ParseSeverity normalises s, defaulting to info.
func ParseSeverity(s string) Severity {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case SeveritySuccess, SeverityError, SeverityWarning, SeverityInfo:
		return v
	default:
		return SeverityInfo
	}
}

// Toast is a single notification.
type Toast struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func newToast(sev Severity, message, title, fallbackTitle string) Toast {
	if strings.TrimSpace(title) == "" {
		title = fallbackTitle
	}
	return Toast{Title: title, Message: message, Severity: sev}
}

// Success builds a success toast; an empty title becomes "Success".
func Success(message, title string) Toast {
	return newToast(SeveritySuccess, message, title, "Success")
}

// Error builds an error toast; an empty title becomes "Error".
func Error(message, title string) Toast {
	return newToast(SeverityError, message, title, "Error")
}

// Warning builds a warning toast; an empty title becomes "Warning".
func Warning(message, title string) Toast {
	return newToast(SeverityWarning, message, title, "Warning")
}

// Info builds an info toast; an empty title becomes "Info".
func Info(message, title string) Toast {
	return newToast(SeverityInfo, message, title, "Info")
}

// Notifier delivers toasts to the operator.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, t Toast)

func (f NotifierFunc) Notify(ctx context.Context, t Toast) {
	f(ctx, t)
}

// Discard drops every toast.
var Discard Notifier = NotifierFunc(func(context.Context, Toast) {})

type ctxKey struct{}

// WithNotifier returns a context that routes toasts to n.
func WithNotifier(ctx context.Context, n Notifier) context.Context {
	return context.WithValue(ctx, ctxKey{}, n)
}

// FromContext returns the notifier carried by ctx, or Discard.
func FromContext(ctx context.Context) Notifier {
	if ctx == nil {
		return Discard
	}
	if n, ok := ctx.Value(ctxKey{}).(Notifier); ok && n != nil {
		return n
	}
	return Discard
}

// Send delivers t through the notifier carried by ctx.
func Send(ctx context.Context, t Toast) {
	FromContext(ctx).Notify(ctx, t)
}

// Recorder keeps every toast it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Notify(_ context.Context, t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// First returns the first recorded toast, if any.
func (r *Recorder) First() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[0], true
}
