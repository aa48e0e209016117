package main

import (
	"fmt"

	"github.com/nexus-console/nexus-console/internal/fault"
)

const (
	exitFailure       = 1
	exitUsage         = 2
	exitAuthFailure   = 3
	exitBackendFailed = 4
	exitCanceled      = 130
)

type exitError struct {
	code   int
	err    error
	silent bool
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func usageError(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

// exitCodeForFault lets scripts tell bad credentials apart from backend
// failures.
func exitCodeForFault(err error) int {
	switch fault.KindOf(err) {
	case fault.KindAuthentication, fault.KindAuthorization:
		return exitAuthFailure
	case fault.KindTransport:
		return exitBackendFailed
	case fault.KindConfiguration:
		return exitUsage
	default:
		return exitFailure
	}
}
