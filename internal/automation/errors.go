package automation

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies automation failures for the caller's retry policy.
type ErrorKind string

const (
	// ErrKindTransient marks network/timeout failures the caller may retry.
	ErrKindTransient ErrorKind = "transient"
	// ErrKindPermanent marks invalid references and bad parameters; retrying
	// cannot help.
	ErrKindPermanent ErrorKind = "permanent"
	// ErrKindNoEligibleUser is reported by the workload balancer when no
	// active user holds the requested role.
	ErrKindNoEligibleUser ErrorKind = "no_eligible_user"
	// ErrKindRuleStoreUnavailable is fatal for the event; no actions run.
	ErrKindRuleStoreUnavailable ErrorKind = "rule_store_unavailable"
)

// Error carries a classification alongside the underlying failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure.
func Transient(err error) error {
	return &Error{Kind: ErrKindTransient, Err: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(err error) error {
	return &Error{Kind: ErrKindPermanent, Err: err}
}

// Transientf and Permanentf format new classified errors.
func Transientf(format string, args ...interface{}) error {
	return Transient(fmt.Errorf(format, args...))
}

func Permanentf(format string, args ...interface{}) error {
	return Permanent(fmt.Errorf(format, args...))
}

// NoEligibleUser reports an empty balancer candidate set for role.
func NoEligibleUser(role string) error {
	return &Error{Kind: ErrKindNoEligibleUser, Err: fmt.Errorf("no active user holds role %q", role)}
}

// KindOf classifies an arbitrary error. Explicit classifications win;
// timeouts and cancelled contexts count as transient, everything else
// defaults to transient so that unknown gateway failures stay retryable.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrKindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ErrKindTransient
	}
	return ErrKindTransient
}
