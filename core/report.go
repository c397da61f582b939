package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReportKind classifies an incident recorded against a member.
type ReportKind int

const (
	ReportDamage ReportKind = iota
	ReportLate
	ReportOther
)

// Storage codes, kept compatible with the legacy data.
const (
	reportDamageCode = "D"
	reportLateCode   = "R"
	reportOtherCode  = "A"
)

var ErrUnknownReportKind = errors.New("unknown report kind code")

// Report is a recorded incident against a member. It is immutable once
// created and holds no suspension state itself; it may merely trigger a
// suspension window on the member through the suspension policy.
type Report struct {
	ID          uuid.UUID
	MemberID    uuid.UUID
	Kind        ReportKind
	Description string
	CreatedAt   time.Time
}

// String implements fmt.Stringer.
func (k ReportKind) String() string {
	switch k {
	case ReportDamage:
		return "damage"
	case ReportLate:
		return "late"
	case ReportOther:
		return "other"
	default:
		return fmt.Sprintf("ReportKind(%d)", int(k))
	}
}

// Code returns the one-letter storage code for the kind.
func (k ReportKind) Code() string {
	switch k {
	case ReportDamage:
		return reportDamageCode
	case ReportLate:
		return reportLateCode
	case ReportOther:
		return reportOtherCode
	default:
		return ""
	}
}

// ReportKindFromCode parses a storage code back into a ReportKind.
func ReportKindFromCode(code string) (ReportKind, error) {
	switch code {
	case reportDamageCode:
		return ReportDamage, nil
	case reportLateCode:
		return ReportLate, nil
	case reportOtherCode:
		return ReportOther, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownReportKind, code)
	}
}
