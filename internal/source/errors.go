package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/git-tkc/self-assistant/internal/model"
)

// Kind classifies a per-source failure.
type Kind int

const (
	// KindNotConfigured means the capability handle is missing or unusable.
	KindNotConfigured Kind = iota + 1
	// KindUnreachable means a network failure or timeout.
	KindUnreachable
	// KindRejected means the source returned an application-level error.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindNotConfigured:
		return "not configured"
	case KindUnreachable:
		return "source unreachable"
	case KindRejected:
		return "source rejected"
	default:
		return "unknown"
	}
}

// Error is the failure type returned by adapters.
type Error struct {
	Kind    Kind
	Source  model.SourceName
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Source, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Source, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NotConfigured builds a KindNotConfigured error.
func NotConfigured(src model.SourceName, msg string) *Error {
	return &Error{Kind: KindNotConfigured, Source: src, Message: msg}
}

// Unreachable builds a KindUnreachable error.
func Unreachable(src model.SourceName, msg string, err error) *Error {
	return &Error{Kind: KindUnreachable, Source: src, Message: msg, Err: err}
}

// Rejected builds a KindRejected error.
func Rejected(src model.SourceName, msg string, err error) *Error {
	return &Error{Kind: KindRejected, Source: src, Message: msg, Err: err}
}

// IsKind reports whether err (or any error in its chain) is a source
// Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var srcErr *Error
	return errors.As(err, &srcErr) && srcErr.Kind == kind
}

// IsNetworkError reports whether err is a transport-level failure:
// unreachable host or network, refused connection, DNS miss, or timeout.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// Classify wraps a transport or client error as Unreachable when it is a
// network failure and as Rejected otherwise.
func Classify(src model.SourceName, msg string, err error) *Error {
	var srcErr *Error
	if errors.As(err, &srcErr) {
		return srcErr
	}
	if IsNetworkError(err) {
		return Unreachable(src, msg, err)
	}
	return Rejected(src, msg, err)
}
