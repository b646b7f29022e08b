package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures so the orchestrator can decide
// whether to demote, skip, or surface them.
type ErrorKind string

const (
	// ErrorQuotaExceeded means the credentialed API refused the call for
	// quota reasons. The provider is demoted for the remainder of the call
	// and the condition is never surfaced to the user.
	ErrorQuotaExceeded ErrorKind = "quota_exceeded"

	// ErrorInvalidCredential means the configured credential was rejected.
	// Configuration-class: surfaced as an advisory only if every provider
	// ultimately fails.
	ErrorInvalidCredential ErrorKind = "invalid_credential"

	// ErrorFeatureDisabled means the upstream API is not enabled for the
	// configured credential. Configuration-class, same surfacing rule.
	ErrorFeatureDisabled ErrorKind = "feature_disabled"

	// ErrorNotFound means the channel or content is absent. Recoverable;
	// callers proceed without it.
	ErrorNotFound ErrorKind = "not_found"

	// ErrorTransient covers network failures and timeouts. Always skipped
	// in favor of the next provider.
	ErrorTransient ErrorKind = "transient"

	// ErrorMalformedResponse means a relay returned an unexpected payload
	// shape. Treated as that relay's failure.
	ErrorMalformedResponse ErrorKind = "malformed_response"
)

// ProviderError wraps a provider failure with its diagnostic class.
type ProviderError struct {
	Kind     ErrorKind
	Provider ProviderKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s provider: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s provider: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a classified provider error.
func NewProviderError(provider ProviderKind, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

// KindOf returns the diagnostic class of err, or ErrorTransient when err is
// not a classified provider error. Unknown failures are treated as transient
// so a later provider can compensate.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorTransient
}

// IsConfigClass reports whether the kind indicates misconfiguration rather
// than transient load. Config-class diagnostics are candidates for a
// user-facing advisory.
func IsConfigClass(kind ErrorKind) bool {
	return kind == ErrorInvalidCredential || kind == ErrorFeatureDisabled
}
