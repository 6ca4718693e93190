package service

// approval_gate.go — authorization for lifecycle transitions.
// A pure function of (actor role, transition, invoice ownership): no session
// lookups, no hidden state. The HTTP layer already gates routes by role;
// this is the engine-level check that holds regardless of transport.

import (
	"paylog/internal/model"

	"github.com/google/uuid"
)

// Roles. super_admin ⊇ admin ⊇ {manager, associate}.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleAssociate  = "associate"
)

// Actor identifies the caller of an engine operation. Always passed
// explicitly — the engine never reaches into ambient context.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// Transition names an engine operation for authorization purposes.
type Transition string

const (
	TransitionApprove        Transition = "approve"
	TransitionReject         Transition = "reject"
	TransitionHold           Transition = "hold"
	TransitionRelease        Transition = "release"
	TransitionResubmit       Transition = "resubmit"
	TransitionHide           Transition = "hide"
	TransitionRecordPayment  Transition = "record_payment"
	TransitionApprovePayment Transition = "approve_payment"
	TransitionReversePayment Transition = "reverse_payment"
)

// IsAdminTier reports whether the role carries admin privileges.
func IsAdminTier(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// Authorize checks whether actor may perform t on inv. inv may be nil for
// transitions that depend on role alone. Returns a Forbidden domain error on
// denial. There is no implicit superuser bypass beyond the explicit
// super_admin ⊇ admin containment.
func Authorize(actor Actor, t Transition, inv *model.Invoice) error {
	switch t {
	case TransitionApprove, TransitionReject, TransitionHold, TransitionRelease,
		TransitionHide, TransitionApprovePayment, TransitionReversePayment:
		if IsAdminTier(actor.Role) {
			return nil
		}
		return domainErr(CodeForbidden, "operation requires an admin role")

	case TransitionResubmit, TransitionRecordPayment:
		if IsAdminTier(actor.Role) {
			return nil
		}
		if inv != nil && inv.CreatedBy == actor.ID {
			return nil
		}
		return domainErr(CodeForbidden, "only the invoice submitter or an admin may do this")

	default:
		return domainErr(CodeForbidden, "unknown transition")
	}
}
