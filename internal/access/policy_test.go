package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleStaff.Valid())
	assert.True(t, RolePimpinan.Valid())
	assert.True(t, RoleSuperAdmin.Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}

func TestCanView(t *testing.T) {
	cases := []struct {
		name  string
		role  Role
		state EntryState
		want  bool
	}{
		{"staff own entry", RoleStaff, EntryState{IsOwner: true}, true},
		{"staff foreign entry", RoleStaff, EntryState{}, false},
		{"staff foreign linked entry", RoleStaff, EntryState{IsLinked: true}, false},
		{"pimpinan own entry", RolePimpinan, EntryState{IsOwner: true}, true},
		{"pimpinan foreign unlinked", RolePimpinan, EntryState{}, false},
		{"pimpinan foreign linked", RolePimpinan, EntryState{IsLinked: true}, true},
		{"super admin foreign unlinked", RoleSuperAdmin, EntryState{}, true},
		{"unknown role", Role("ops"), EntryState{IsOwner: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanView(tc.role, tc.state))
		})
	}
}

func TestCanEditItems(t *testing.T) {
	cases := []struct {
		name  string
		role  Role
		state EntryState
		want  bool
	}{
		{"owner staff unlinked", RoleStaff, EntryState{IsOwner: true}, true},
		{"owner staff linked but not locked", RoleStaff, EntryState{IsOwner: true, IsLinked: true}, true},
		{"owner staff locked", RoleStaff, EntryState{IsOwner: true, IsLinked: true, IsLocked: true}, false},
		// a pimpinan who can see a foreign entry still cannot edit it,
		// even while the entry is unlinked and unlocked
		{"non-owner pimpinan unlinked", RolePimpinan, EntryState{}, false},
		{"non-owner pimpinan linked", RolePimpinan, EntryState{IsLinked: true}, false},
		{"owner pimpinan", RolePimpinan, EntryState{IsOwner: true}, true},
		{"super admin foreign", RoleSuperAdmin, EntryState{}, true},
		{"super admin locked", RoleSuperAdmin, EntryState{IsLocked: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanEditItems(tc.role, tc.state))
		})
	}
}

func TestCanDeleteEntry(t *testing.T) {
	cases := []struct {
		name  string
		role  Role
		state EntryState
		want  bool
	}{
		{"owner unlinked", RoleStaff, EntryState{IsOwner: true}, true},
		{"owner linked", RoleStaff, EntryState{IsOwner: true, IsLinked: true}, false},
		{"super admin linked", RoleSuperAdmin, EntryState{IsLinked: true}, false},
		{"super admin unlinked foreign", RoleSuperAdmin, EntryState{}, true},
		{"non-owner staff unlinked", RoleStaff, EntryState{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanDeleteEntry(tc.role, tc.state))
		})
	}
}

func TestSelectionControl(t *testing.T) {
	cases := []struct {
		name  string
		role  Role
		state EntryState
		want  ControlState
	}{
		{"owner staff", RoleStaff, EntryState{IsOwner: true}, ControlEnabled},
		{"non-owner staff", RoleStaff, EntryState{}, ControlHidden},
		{"owner pimpinan", RolePimpinan, EntryState{IsOwner: true}, ControlEnabled},
		// hidden vs disabled is load-bearing for the pimpinan view:
		// unlinked foreign entries hide the checkbox entirely, linked
		// ones render it read-only
		{"non-owner pimpinan unlinked", RolePimpinan, EntryState{}, ControlHidden},
		{"non-owner pimpinan linked", RolePimpinan, EntryState{IsLinked: true}, ControlDisabled},
		{"super admin foreign", RoleSuperAdmin, EntryState{}, ControlEnabled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SelectionControl(tc.role, tc.state))
		})
	}
}
