package entity

import "github.com/shopspring/decimal"

type FunnelStage struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type ProjectShare struct {
	Project string `json:"project"`
	Units   int    `json:"units"`
}

type DashboardMetrics struct {
	Revenue        decimal.Decimal `json:"revenue"`
	SoldUnits      int             `json:"sold_units"`
	Enquiries      int             `json:"enquiries"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	Funnel         []FunnelStage   `json:"funnel"`
	Distribution   []ProjectShare  `json:"distribution"`
}
