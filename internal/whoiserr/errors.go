// Package whoiserr defines the error taxonomy shared by every component of
// the WHOIS dispatch engine, so handlers can render a consistent response
// regardless of which upstream or cache layer failed.
package whoiserr

import "fmt"

// Kind classifies an error for rendering and logging purposes. Kinds are
// orthogonal: a single failure carries exactly one.
type Kind string

const (
	// InvalidQuery means the classifier rejected the input outright.
	InvalidQuery Kind = "InvalidQuery"
	// NotFound means a lookup completed but produced no hit.
	NotFound Kind = "NotFound"
	// UpstreamUnavailable means a network error, non-2xx, or timeout from a dependency.
	UpstreamUnavailable Kind = "UpstreamUnavailable"
	// UpstreamMalformed means the upstream response could not be parsed.
	UpstreamMalformed Kind = "UpstreamMalformed"
	// FeatureDisabled means a required API key or capability is missing.
	FeatureDisabled Kind = "FeatureDisabled"
	// Timeout means a per-operation deadline elapsed.
	Timeout Kind = "Timeout"
	// Internal means an unexpected condition; callers should log with context.
	Internal Kind = "Internal"
)

// Error is the concrete error type returned by every component in this module.
type Error struct {
	Kind    Kind
	Source  string // upstream/component name, included in UpstreamUnavailable messages
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Source)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Upstream(source, message string, cause error) *Error {
	return &Error{Kind: UpstreamUnavailable, Source: source, Message: message, Cause: cause}
}

func Malformed(source, message string, cause error) *Error {
	return &Error{Kind: UpstreamMalformed, Source: source, Message: message, Cause: cause}
}

func Disabled(feature, envVar string) *Error {
	return &Error{
		Kind:    FeatureDisabled,
		Source:  feature,
		Message: fmt.Sprintf("%s requires the %s environment variable to be set", feature, envVar),
	}
}

func TimeoutErr(source string) *Error {
	return &Error{Kind: Timeout, Source: source, Message: "operation timed out"}
}

// KindOf extracts the Kind from err, defaulting to Internal for anything not
// produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if err == nil {
		return ""
	}
	if as, ok := err.(*Error); ok {
		return as.Kind
	}
	_ = e
	return Internal
}
