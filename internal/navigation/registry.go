package navigation

import (
	"github.com/SaiWorkProfile/manortha-website/internal/entity"
)

// Registry is the static screen table. It is read-only after New.
type Registry struct {
	entries []entity.NavigationEntry
	byID    map[entity.ScreenID]int
}

func allow(roles ...entity.Role) map[entity.Role]bool {
	m := make(map[entity.Role]bool, len(roles))
	for _, r := range roles {
		m[r] = true
	}

	return m
}

func New() *Registry {
	const (
		sa      = entity.RoleSuperAdmin
		admin   = entity.RoleAdmin
		mgmt    = entity.RoleManagement
		sales   = entity.RoleSales
		crm     = entity.RoleCRMManager
		finance = entity.RoleFinance
		partner = entity.RolePartner
		legacy  = entity.RoleLegacyPartner
	)

	entries := []entity.NavigationEntry{
		{ScreenID: entity.ScreenDashboard, Label: "Command Center", AllowedRoles: allow(sa, admin, mgmt, sales, finance, crm)},
		{ScreenID: entity.ScreenLegacyHub, Label: "Legacy Hub", AllowedRoles: allow(sa, legacy)},
		{ScreenID: entity.ScreenInventory, Label: "Inventory Heatmap", AllowedRoles: allow(sa, admin, mgmt, sales, crm, partner, legacy)},
		{ScreenID: entity.ScreenLeads, Label: "Lead Engine", AllowedRoles: allow(sa, admin, sales, crm, partner, legacy)},
		{ScreenID: entity.ScreenAssetStudio, Label: "Asset Intelligence", AllowedRoles: allow(sa, mgmt)},
		{ScreenID: entity.ScreenVideoStudio, Label: "Video Studio", AllowedRoles: allow(sa, admin, mgmt, legacy)},
		{ScreenID: entity.ScreenPartners, Label: "Channel Partners", AllowedRoles: allow(sa, admin, mgmt, legacy)},
		{ScreenID: entity.ScreenFinance, Label: "Financial Audit", AllowedRoles: allow(sa, admin, finance)},
		{ScreenID: entity.ScreenCustomer, Label: "My Property", AllowedRoles: allow(entity.RoleCustomer)},
		{ScreenID: entity.ScreenSettings, Label: "System Config", AllowedRoles: allow(sa)},
	}

	byID := make(map[entity.ScreenID]int, len(entries))
	for i, e := range entries {
		byID[e.ScreenID] = i
	}

	return &Registry{entries: entries, byID: byID}
}

func (r *Registry) Entries() []entity.NavigationEntry {
	return append([]entity.NavigationEntry(nil), r.entries...)
}

func (r *Registry) Entry(id entity.ScreenID) (entity.NavigationEntry, bool) {
	i, ok := r.byID[id]
	if !ok {
		return entity.NavigationEntry{}, false
	}

	return r.entries[i], true
}

// EntriesForRole keeps declaration order.
func (r *Registry) EntriesForRole(role entity.Role) []entity.NavigationEntry {
	res := []entity.NavigationEntry{}

	if role == entity.RoleNone {
		return res
	}

	for _, e := range r.entries {
		if e.Allows(role) {
			res = append(res, e)
		}
	}

	return res
}

func (r *Registry) IsAllowed(id entity.ScreenID, role entity.Role) bool {
	e, ok := r.Entry(id)
	if !ok {
		return false
	}

	return e.Allows(role)
}

func (r *Registry) DefaultScreen(role entity.Role) entity.ScreenID {
	var preferred entity.ScreenID

	switch role {
	case entity.RoleNone:
		return entity.ScreenWebsite
	case entity.RoleCustomer:
		preferred = entity.ScreenCustomer
	case entity.RoleLegacyPartner:
		preferred = entity.ScreenLegacyHub
	case entity.RoleSales, entity.RolePartner:
		preferred = entity.ScreenLeads
	default:
		preferred = entity.ScreenDashboard
	}

	if r.IsAllowed(preferred, role) {
		return preferred
	}

	if entries := r.EntriesForRole(role); len(entries) > 0 {
		return entries[0].ScreenID
	}

	return entity.ScreenWebsite
}

// Items renders the role's menu with the active screen marked.
func (r *Registry) Items(role entity.Role, active entity.ScreenID) []entity.NavigationItem {
	entries := r.EntriesForRole(role)
	items := make([]entity.NavigationItem, 0, len(entries))

	for _, e := range entries {
		items = append(items, entity.NavigationItem{
			ScreenID: e.ScreenID,
			Label:    e.Label,
			Active:   e.ScreenID == active,
		})
	}

	return items
}
