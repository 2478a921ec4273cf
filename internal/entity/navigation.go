package entity

type ScreenID string

const (
	ScreenWebsite     ScreenID = "website"
	ScreenDashboard   ScreenID = "dashboard"
	ScreenLegacyHub   ScreenID = "legacy-hub"
	ScreenInventory   ScreenID = "inventory"
	ScreenLeads       ScreenID = "leads"
	ScreenAssetStudio ScreenID = "asset-studio"
	ScreenVideoStudio ScreenID = "video-studio"
	ScreenPartners    ScreenID = "partners"
	ScreenFinance     ScreenID = "finance"
	ScreenCustomer    ScreenID = "customer"
	ScreenSettings    ScreenID = "settings"
)

type NavigationEntry struct {
	ScreenID     ScreenID      `json:"screen_id"`
	Label        string        `json:"label"`
	AllowedRoles map[Role]bool `json:"-"`
}

func (e NavigationEntry) Allows(r Role) bool {
	return e.AllowedRoles[r]
}

type NavigationItem struct {
	ScreenID ScreenID `json:"screen_id"`
	Label    string   `json:"label"`
	Active   bool     `json:"active"`
}
