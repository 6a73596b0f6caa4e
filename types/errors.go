package types

import "fmt"

// ValidationError reports a caller input that was rejected before anything
// was signed or submitted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Reason)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field string, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	}
}

// GuardKind enumerates the local preconditions a calling workflow must
// establish before invoking gated actions.
type GuardKind string

const (
	GuardTermsNotAccepted      GuardKind = "terms_not_accepted"
	GuardBuilderFeeNotApproved GuardKind = "builder_fee_not_approved"
)

// GuardError is a local precondition failure. It is never produced from a
// server response.
type GuardError struct {
	Kind    GuardKind
	Message string
}

func (e *GuardError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("guard error: %s", e.Kind)
	}
	return fmt.Sprintf("guard error: %s: %s", e.Kind, e.Message)
}

// ErrTermsNotAccepted is returned by workflows whose user has not accepted
// the terms of service.
func ErrTermsNotAccepted(msg string) *GuardError {
	return &GuardError{Kind: GuardTermsNotAccepted, Message: msg}
}

// ErrBuilderFeeNotApproved is returned by workflows that attach a builder
// fee the wallet has not approved.
func ErrBuilderFeeNotApproved(msg string) *GuardError {
	return &GuardError{Kind: GuardBuilderFeeNotApproved, Message: msg}
}
