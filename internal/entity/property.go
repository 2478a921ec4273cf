package entity

import (
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type PropertyStatus string

const (
	PropertyAvailable  PropertyStatus = "AVAILABLE"
	PropertyBlocked    PropertyStatus = "BLOCKED"
	PropertyBooked     PropertyStatus = "BOOKED"
	PropertyRegistered PropertyStatus = "REGISTERED"
	PropertyCancelled  PropertyStatus = "CANCELLED"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyAvailable, PropertyBlocked, PropertyBooked, PropertyRegistered, PropertyCancelled:
		return true
	default:
		return false
	}
}

// Sold reports whether the unit counts towards revenue.
func (s PropertyStatus) Sold() bool {
	return s == PropertyBooked || s == PropertyRegistered
}

type PropertyType string

const (
	PropertyPlot       PropertyType = "Plot"
	PropertyVilla      PropertyType = "Villa"
	PropertyApartment  PropertyType = "Apartment"
	PropertyCommercial PropertyType = "Commercial"
)

func PropertyTypes() []PropertyType {
	return []PropertyType{PropertyPlot, PropertyVilla, PropertyApartment, PropertyCommercial}
}

func Projects() []string {
	return []string{"Manortha Greens", "Skyline Residency", "Emerald Plots", "Business Square"}
}

type Property struct {
	ID             uuid.UUID       `json:"id"`
	Project        string          `json:"project"`
	UnitNo         string          `json:"unit_no"`
	Type           PropertyType    `json:"type"`
	Size           int             `json:"size"`
	Price          decimal.Decimal `json:"price"`
	Status         PropertyStatus  `json:"status"`
	Floor          *int            `json:"floor,omitempty"`
	PublishedToWeb bool            `json:"published_to_web"`
}

type PropertyFilter struct {
	Project   string
	Type      PropertyType
	Status    PropertyStatus
	UnitQuery string
}

type HeatmapCell struct {
	Project   string       `json:"project"`
	Type      PropertyType `json:"type"`
	Available int          `json:"available"`
}

type Landmarks struct {
	Text        string     `json:"text"`
	Citations   []Citation `json:"citations"`
	Unavailable bool       `json:"unavailable,omitempty"`
}

type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}
