package navigation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/internal/navigation"
)

func TestEntriesForRole_MatchesAllowedSets(t *testing.T) {
	t.Parallel()

	r := navigation.New()

	for _, role := range entity.Roles() {
		got := r.EntriesForRole(role)

		var want []entity.ScreenID

		for _, e := range r.Entries() {
			if e.AllowedRoles[role] {
				want = append(want, e.ScreenID)
			}
		}

		ids := make([]entity.ScreenID, 0, len(got))
		for _, e := range got {
			ids = append(ids, e.ScreenID)
		}

		require.Equal(t, want, ids, "role %s", role)
	}
}

func TestEntriesForRole(t *testing.T) {
	t.Parallel()

	r := navigation.New()

	tests := []struct {
		role entity.Role
		want []entity.ScreenID
	}{
		{entity.RoleCustomer, []entity.ScreenID{entity.ScreenCustomer}},
		{entity.RoleFinance, []entity.ScreenID{entity.ScreenDashboard, entity.ScreenFinance}},
		{entity.RolePartner, []entity.ScreenID{entity.ScreenInventory, entity.ScreenLeads}},
		{entity.RoleLegacyPartner, []entity.ScreenID{
			entity.ScreenLegacyHub, entity.ScreenInventory, entity.ScreenLeads,
			entity.ScreenVideoStudio, entity.ScreenPartners,
		}},
		{entity.RoleNone, []entity.ScreenID{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			t.Parallel()

			ids := []entity.ScreenID{}
			for _, e := range r.EntriesForRole(tt.role) {
				ids = append(ids, e.ScreenID)
			}

			require.Equal(t, tt.want, ids)
		})
	}
}

func TestSuperAdminSeesEverythingButCustomerScreen(t *testing.T) {
	t.Parallel()

	r := navigation.New()

	want := []entity.ScreenID{}
	for _, e := range r.Entries() {
		if e.ScreenID != entity.ScreenCustomer {
			want = append(want, e.ScreenID)
		}
	}

	got := []entity.ScreenID{}
	for _, e := range r.EntriesForRole(entity.RoleSuperAdmin) {
		got = append(got, e.ScreenID)
	}

	require.Equal(t, want, got)
	require.False(t, r.IsAllowed(entity.ScreenCustomer, entity.RoleSuperAdmin))
}

func TestDefaultScreen(t *testing.T) {
	t.Parallel()

	r := navigation.New()

	tests := []struct {
		role entity.Role
		want entity.ScreenID
	}{
		{entity.RoleCustomer, entity.ScreenCustomer},
		{entity.RoleLegacyPartner, entity.ScreenLegacyHub},
		{entity.RoleSales, entity.ScreenLeads},
		{entity.RolePartner, entity.ScreenLeads},
		{entity.RoleAdmin, entity.ScreenDashboard},
		{entity.RoleFinance, entity.ScreenDashboard},
		{entity.RoleNone, entity.ScreenWebsite},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, r.DefaultScreen(tt.role))
		})
	}
}

func TestDefaultScreenIsAlwaysAllowed(t *testing.T) {
	t.Parallel()

	r := navigation.New()

	for _, role := range entity.Roles() {
		require.True(t, r.IsAllowed(r.DefaultScreen(role), role), "role %s", role)
	}
}

func TestIsAllowed(t *testing.T) {
	t.Parallel()

	r := navigation.New()

	require.True(t, r.IsAllowed(entity.ScreenFinance, entity.RoleFinance))
	require.False(t, r.IsAllowed(entity.ScreenCustomer, entity.RoleFinance))
	require.False(t, r.IsAllowed(entity.ScreenWebsite, entity.RoleSuperAdmin))
	require.False(t, r.IsAllowed("nope", entity.RoleSuperAdmin))
}

func TestItemsMarksActive(t *testing.T) {
	t.Parallel()

	items := navigation.New().Items(entity.RoleFinance, entity.ScreenFinance)

	require.Equal(t, []entity.NavigationItem{
		{ScreenID: entity.ScreenDashboard, Label: "Command Center"},
		{ScreenID: entity.ScreenFinance, Label: "Financial Audit", Active: true},
	}, items)
}
