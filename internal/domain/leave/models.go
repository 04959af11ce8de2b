package leave

import (
	"fmt"
	"time"

	"kiwipay/internal/platform/apperror"
)

type Type string

const (
	TypeAnnual         Type = "annual"
	TypeSick           Type = "sick"
	TypeBereavement    Type = "bereavement"
	TypeFamilyViolence Type = "family_violence"
	TypeParental       Type = "parental"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAnnual, TypeSick, TypeBereavement, TypeFamilyViolence, TypeParental:
		return true
	}
	return false
}

func ParseType(value string) (Type, error) {
	t := Type(value)
	if !t.Valid() {
		return "", fmt.Errorf("leave type %q: %w", value, apperror.ErrInvalidInput)
	}
	return t, nil
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Request is a leave request. RequestedOn is the date notice was given and
// defaults to the validation date when unset.
type Request struct {
	ID              string    `json:"id,omitempty"`
	EmployeeID      string    `json:"employeeId,omitempty"`
	Type            Type      `json:"leaveType"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	Status          Status    `json:"status,omitempty"`
	ImmediateFamily bool      `json:"immediateFamily,omitempty"`
	RequestedOn     time.Time `json:"requestedOn,omitempty"`
	Reason          string    `json:"reason,omitempty"`
}
