package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedRole(t *testing.T) {
	assert.True(t, AllowedRole(PlaceOffer, Portal))
	assert.False(t, AllowedRole(ManageProperties, Portal))
	assert.True(t, AllowedRole(DeleteProperty, Manager))
	assert.False(t, AllowedRole(DeleteProperty, Agent))
	assert.False(t, AllowedRole("unknown_permission", Admin))
}

func TestEveryPermissionHasRoles(t *testing.T) {
	for perm, roles := range PermissionRoles {
		assert.NotEmpty(t, roles, perm)
		for _, r := range roles {
			assert.True(t, IsValidRole(r), "%s grants unknown role %s", perm, r)
		}
	}
}
