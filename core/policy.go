package core

import (
	"errors"
	"time"
)

// Defaults match the settings the embedding application ships with.
const (
	DefaultLoanDurationDays       = 30
	DefaultMaxConcurrentPerMember = 4
	DefaultSuspensionDurationDays = 10
)

var ErrInvalidPolicy = errors.New("policy values must be positive")

// Policy holds the static tunables of the loan lifecycle. All values are
// expressed in whole days respectively absolute counts.
type Policy struct {
	// LoanDurationDays is the number of days between delivery and due date.
	LoanDurationDays int

	// MaxConcurrentPerMember caps both pending requests and active loans,
	// and their sum, for a single member.
	MaxConcurrentPerMember int

	// SuspensionDurationDays is the length of a suspension window.
	SuspensionDurationDays int
}

// DefaultPolicy returns the Policy with all default tunables.
func DefaultPolicy() Policy {
	return Policy{
		LoanDurationDays:       DefaultLoanDurationDays,
		MaxConcurrentPerMember: DefaultMaxConcurrentPerMember,
		SuspensionDurationDays: DefaultSuspensionDurationDays,
	}
}

// Validate reports whether the policy is usable.
func (p Policy) Validate() error {
	if p.LoanDurationDays <= 0 || p.MaxConcurrentPerMember <= 0 || p.SuspensionDurationDays <= 0 {
		return ErrInvalidPolicy
	}

	return nil
}

// DueDateFrom computes the due date of a loan delivered on the given day.
func (p Policy) DueDateFrom(startedAt time.Time) time.Time {
	return ToDate(startedAt).AddDate(0, 0, p.LoanDurationDays)
}
