package operations

import (
	"fmt"
)

type FetchErrorKind string

const (
	FetchNetwork FetchErrorKind = "network"
	FetchStatus  FetchErrorKind = "status"
	FetchParse   FetchErrorKind = "parse"
	FetchEmpty   FetchErrorKind = "empty"
)

// FetchError is returned by commit sources when no usable hash could be
// obtained. The poller treats every kind the same way.
type FetchError struct {
	Kind   FetchErrorKind
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s fetch failure", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s fetch failure: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DeployError reports a deploy action that did not succeed. ExitCode is -1
// when the action could not be started at all.
type DeployError struct {
	ExitCode int
	Err      error
}

func (e *DeployError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("deploy could not run: %v", e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("deploy exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("deploy exited with code %d: %v", e.ExitCode, e.Err)
}

func (e *DeployError) Unwrap() error {
	return e.Err
}
