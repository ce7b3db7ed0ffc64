// Package access consolidates role based visibility and mutation rules into a
// single predicate table. Handlers and services derive both "may mutate" and
// "may see" answers from here instead of duplicating ad hoc boolean checks.
package access

// Role is the resolved role string carried by the session.
type Role string

const (
	RoleStaff      Role = "staff"
	RolePimpinan   Role = "pimpinan"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStaff, RolePimpinan, RoleSuperAdmin:
		return true
	}
	return false
}

// EntryState is the observable state of a balance entry as seen by the
// policy: ownership, whether any quotation link exists, whether a linked
// quotation already has a purchase order (locked), and whether the linked
// quotation is closed.
type EntryState struct {
	IsOwner  bool
	IsLinked bool
	IsLocked bool
	IsClosed bool
}

// ControlState describes how a UI control must be presented. Hidden and
// Disabled are distinct observable states: a hidden control must not be
// rendered at all, a disabled one is rendered read-only.
type ControlState int

const (
	ControlHidden ControlState = iota
	ControlDisabled
	ControlEnabled
)

// CanView reports whether the role may see the entry at all. Staff only see
// their own entries; a pimpinan sees other people's entries once they are
// linked into a quotation.
func CanView(role Role, s EntryState) bool {
	switch role {
	case RoleSuperAdmin:
		return true
	case RoleStaff:
		return s.IsOwner
	case RolePimpinan:
		return s.IsOwner || s.IsLinked
	}
	return false
}

// CanEditItems reports whether the role may add or edit items on the entry.
// Locked entries are read-only for everyone, super_admin included.
func CanEditItems(role Role, s EntryState) bool {
	if s.IsLocked {
		return false
	}
	switch role {
	case RoleSuperAdmin:
		return true
	case RoleStaff, RolePimpinan:
		return s.IsOwner
	}
	return false
}

// CanDeleteEntry reports whether the role may delete the entry. Any
// quotation link blocks deletion regardless of role.
func CanDeleteEntry(role Role, s EntryState) bool {
	if s.IsLinked {
		return false
	}
	switch role {
	case RoleSuperAdmin:
		return true
	case RoleStaff, RolePimpinan:
		return s.IsOwner
	}
	return false
}

// CanSelectForQuotation reports whether the role may include the entry in a
// new quotation.
func CanSelectForQuotation(role Role, s EntryState) bool {
	switch role {
	case RoleSuperAdmin:
		return true
	case RoleStaff, RolePimpinan:
		return s.IsOwner
	}
	return false
}

// SelectionControl resolves how the quotation selection checkbox must be
// presented. A non-owner pimpinan only gets a read-only view of the control
// when the entry is already linked (audit visibility); otherwise the control
// is hidden, not merely disabled.
func SelectionControl(role Role, s EntryState) ControlState {
	if CanSelectForQuotation(role, s) {
		return ControlEnabled
	}
	if role == RolePimpinan && !s.IsOwner && s.IsLinked {
		return ControlDisabled
	}
	return ControlHidden
}
