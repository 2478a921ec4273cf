package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
)

var phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

func (s *Service) LegacyOverview(ctx context.Context) (entity.LegacyOverview, error) {
	territory, err := s.crm.Territory(ctx)
	if err != nil {
		return entity.LegacyOverview{}, fmt.Errorf("get territory: %w", err)
	}

	dealers, err := s.crm.SubDealers(ctx, territory.Pincode)
	if err != nil {
		return entity.LegacyOverview{}, fmt.Errorf("list sub-dealers: %w", err)
	}

	return ComputeLegacyOverview(territory, dealers), nil
}

// ComputeLegacyOverview derives the qualification tracker and commission
// figures of a territory.
func ComputeLegacyOverview(t entity.Territory, dealers []entity.SubDealer) entity.LegacyOverview {
	o := entity.LegacyOverview{
		Pincode:               t.Pincode,
		UnitsSold:             t.UnitsSold,
		QualificationTarget:   entity.QualificationTarget,
		QualificationDeadline: t.StartedAt.Add(entity.QualificationWindow),
		Qualified:             t.UnitsSold >= entity.QualificationTarget,
		CommissionRate:        entity.QualifyingCommissionRate,
		NetworkRevenue:        decimal.Zero,
		SubDealers:            dealers,
	}

	if o.Qualified {
		o.CommissionRate = entity.ActiveCommissionRate
		o.QualificationProgress = hundred
	} else {
		o.QualificationProgress = decimal.NewFromInt(int64(t.UnitsSold)).
			Div(decimal.NewFromInt(entity.QualificationTarget)).
			Mul(hundred).
			Round(1)
	}

	for _, d := range dealers {
		o.NetworkRevenue = o.NetworkRevenue.Add(d.TotalRevenue)
	}

	o.NetworkOverride = o.NetworkRevenue.Mul(entity.NetworkOverrideRate).Div(hundred).Round(2)

	if o.SubDealers == nil {
		o.SubDealers = []entity.SubDealer{}
	}

	return o
}

// OnboardSubDealer adds a channel partner to the legacy territory.
func (s *Service) OnboardSubDealer(ctx context.Context, in entity.NewSubDealer) (entity.SubDealer, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)

	if name == "" || !phonePattern.MatchString(phone) {
		return entity.SubDealer{}, fmt.Errorf("%w: %w", entity.ErrValidation, entity.ErrSubDealerInvalid)
	}

	territory, err := s.crm.Territory(ctx)
	if err != nil {
		return entity.SubDealer{}, fmt.Errorf("get territory: %w", err)
	}

	dealers, err := s.crm.SubDealers(ctx, territory.Pincode)
	if err != nil {
		return entity.SubDealer{}, fmt.Errorf("list sub-dealers: %w", err)
	}

	if len(dealers) >= entity.MaxSubDealers {
		return entity.SubDealer{}, fmt.Errorf("%w: %w", entity.ErrConflict, entity.ErrNetworkFull)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return entity.SubDealer{}, fmt.Errorf("generate id: %w", err)
	}

	d := entity.SubDealer{
		ID:           id,
		Name:         name,
		Phone:        phone,
		Pincode:      territory.Pincode,
		Status:       entity.SubDealerOnboarding,
		TotalRevenue: decimal.Zero,
		OnboardedAt:  s.clock.Now().UTC(),
	}

	err = s.crm.CreateSubDealer(ctx, d)
	if err != nil {
		return entity.SubDealer{}, fmt.Errorf("create sub-dealer: %w", err)
	}

	slog.InfoContext(ctx, "sub-dealer onboarded", "pincode", d.Pincode, "sub_dealer_id", d.ID)

	return d, nil
}

func (s *Service) PartnerBoard(ctx context.Context) (entity.PartnerBoard, error) {
	partners, err := s.crm.Partners(ctx)
	if err != nil {
		return entity.PartnerBoard{}, fmt.Errorf("list partners: %w", err)
	}

	series, err := s.crm.CommissionSeries(ctx)
	if err != nil {
		return entity.PartnerBoard{}, fmt.Errorf("list commissions: %w", err)
	}

	sort.SliceStable(partners, func(i, j int) bool {
		return partners[i].Value.GreaterThan(partners[j].Value)
	})

	board := entity.PartnerBoard{
		Leaderboard:     partners,
		Commissions:     series,
		TotalCommission: decimal.Zero,
	}

	for _, p := range series {
		board.TotalCommission = board.TotalCommission.Add(p.Amount)
	}

	return board, nil
}

// CustomerAsset returns the customer's unit with paid share and outstanding
// amount of its payment plan.
func (s *Service) CustomerAsset(ctx context.Context) (entity.CustomerAsset, error) {
	a, err := s.crm.CustomerAsset(ctx)
	if err != nil {
		return entity.CustomerAsset{}, fmt.Errorf("get customer asset: %w", err)
	}

	total, paid := decimal.Zero, decimal.Zero

	for _, m := range a.Milestones {
		total = total.Add(m.Amount)

		if m.Paid {
			paid = paid.Add(m.Amount)
		}
	}

	a.Outstanding = total.Sub(paid)
	a.FinancialProgress = decimal.Zero

	if total.IsPositive() {
		a.FinancialProgress = paid.Div(total).Mul(hundred).Round(1)
	}

	return a, nil
}
