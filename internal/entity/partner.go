package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

const (
	QualificationTarget = 3
	QualificationWindow = 90 * 24 * time.Hour
	MaxSubDealers       = 15
)

// Commission rates in percent.
var (
	QualifyingCommissionRate = decimal.RequireFromString("2.5")
	ActiveCommissionRate     = decimal.RequireFromString("3.5")
	NetworkOverrideRate      = decimal.RequireFromString("0.5")
)

type SubDealerStatus string

const (
	SubDealerActive     SubDealerStatus = "Active"
	SubDealerOnboarding SubDealerStatus = "Onboarding"
	SubDealerInactive   SubDealerStatus = "Inactive"
)

type SubDealer struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone"`
	Pincode      string          `json:"pincode"`
	Status       SubDealerStatus `json:"status"`
	TotalSales   int             `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	OnboardedAt  time.Time       `json:"onboarded_at"`
}

type NewSubDealer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Territory is the pincode a legacy partner holds exclusively.
type Territory struct {
	Pincode   string
	UnitsSold int
	StartedAt time.Time
}

type LegacyOverview struct {
	Pincode               string          `json:"pincode"`
	UnitsSold             int             `json:"units_sold"`
	QualificationTarget   int             `json:"qualification_target"`
	QualificationProgress decimal.Decimal `json:"qualification_progress"`
	QualificationDeadline time.Time       `json:"qualification_deadline"`
	Qualified             bool            `json:"qualified"`
	CommissionRate        decimal.Decimal `json:"commission_rate"`
	NetworkRevenue        decimal.Decimal `json:"network_revenue"`
	NetworkOverride       decimal.Decimal `json:"network_override"`
	SubDealers            []SubDealer     `json:"sub_dealers"`
}

type PartnerTier string

const (
	TierPlatinum PartnerTier = "Platinum"
	TierGold     PartnerTier = "Gold"
	TierSilver   PartnerTier = "Silver"
)

type PartnerStanding struct {
	Name       string          `json:"name"`
	Deals      int             `json:"deals"`
	Value      decimal.Decimal `json:"value"`
	Rating     decimal.Decimal `json:"rating"`
	Tier       PartnerTier     `json:"tier"`
	Conversion int             `json:"conversion"`
}

type CommissionPoint struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

type PartnerBoard struct {
	Leaderboard     []PartnerStanding `json:"leaderboard"`
	Commissions     []CommissionPoint `json:"commissions"`
	TotalCommission decimal.Decimal   `json:"total_commission"`
}

type PaymentMilestone struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
	Paid   bool            `json:"paid"`
}

// CustomerAsset is the unit shown on the customer's "My Property" screen.
type CustomerAsset struct {
	Project           string             `json:"project"`
	UnitNo            string             `json:"unit_no"`
	Valuation         decimal.Decimal    `json:"valuation"`
	FinancialProgress decimal.Decimal    `json:"financial_progress"`
	Outstanding       decimal.Decimal    `json:"outstanding"`
	Milestones        []PaymentMilestone `json:"milestones"`
}
