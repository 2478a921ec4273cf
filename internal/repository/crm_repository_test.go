package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/internal/repository"
)

func TestCRMRepository_Leads(t *testing.T) {
	db := SetupTestDatabase(t)
	repo := repository.NewCRMRepository(db)
	ctx := context.Background()

	lead := entity.Lead{
		ID:               uuid.Must(uuid.NewV4()),
		Name:             "Test Lead " + time.Now().Format(time.RFC3339Nano),
		Email:            "lead@example.com",
		Source:           entity.LeadSourceWebsite,
		Stage:            entity.StageNew,
		AssignedTo:       entity.LeadAssigneeQueue,
		Budget:           decimal.NewFromInt(7500000),
		TotalEngagements: 1,
		LastActive:       time.Now(),
		CreatedAt:        time.Now(),
	}

	require.NoError(t, repo.CreateLead(ctx, lead))

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), "DELETE FROM leads WHERE id = $1", lead.ID)
	})

	got, err := repo.Leads(ctx, entity.LeadFilter{Search: lead.Name})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, lead.Budget.Equal(got[0].Budget))
	require.Nil(t, got[0].Score)

	require.NoError(t, repo.UpdateLeadStage(ctx, lead.ID, entity.StageQualified))
	require.NoError(t, repo.SaveLeadScores(ctx, []entity.LeadScore{{LeadID: lead.ID, Score: 81, Reason: "engaged"}}))

	one, err := repo.LeadByID(ctx, lead.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StageQualified, one.Stage)
	require.NotNil(t, one.Score)
	require.Equal(t, 81, *one.Score)
	require.Equal(t, "engaged", one.ScoreReason)

	require.ErrorIs(t, repo.UpdateLeadStage(ctx, uuid.Must(uuid.NewV4()), entity.StageBooking), entity.ErrNotFound)
}

func TestCRMRepository_Properties(t *testing.T) {
	db := SetupTestDatabase(t)
	repo := repository.NewCRMRepository(db)
	ctx := context.Background()

	villas, err := repo.Properties(ctx, entity.PropertyFilter{Project: "Manortha Greens", Type: entity.PropertyVilla})
	require.NoError(t, err)
	require.NotEmpty(t, villas)

	for _, p := range villas {
		require.Equal(t, "Manortha Greens", p.Project)
		require.Equal(t, entity.PropertyVilla, p.Type)
	}

	byUnit, err := repo.Properties(ctx, entity.PropertyFilter{UnitQuery: "pl-4"})
	require.NoError(t, err)
	require.Len(t, byUnit, 2)

	p := byUnit[0]
	original := p

	t.Cleanup(func() {
		_ = repo.UpdateProperty(context.Background(), original)
	})

	p.Status = entity.PropertyBlocked
	p.PublishedToWeb = true
	require.NoError(t, repo.UpdateProperty(ctx, p))

	got, err := repo.PropertyByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, entity.PropertyBlocked, got.Status)
	require.True(t, got.PublishedToWeb)

	_, err = repo.PropertyByID(ctx, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestCRMRepository_LegacyNetwork(t *testing.T) {
	db := SetupTestDatabase(t)
	repo := repository.NewCRMRepository(db)
	ctx := context.Background()

	territory, err := repo.Territory(ctx)
	require.NoError(t, err)
	require.Equal(t, "560001", territory.Pincode)

	before, err := repo.SubDealers(ctx, territory.Pincode)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(before), 3)

	dealer := entity.SubDealer{
		ID:           uuid.Must(uuid.NewV4()),
		Name:         "Kiran Rao",
		Phone:        "9800011122",
		Pincode:      territory.Pincode,
		Status:       entity.SubDealerOnboarding,
		TotalRevenue: decimal.Zero,
		OnboardedAt:  time.Now(),
	}

	require.NoError(t, repo.CreateSubDealer(ctx, dealer))

	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), "DELETE FROM sub_dealers WHERE id = $1", dealer.ID)
	})

	after, err := repo.SubDealers(ctx, territory.Pincode)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	require.Equal(t, dealer.ID, after[len(after)-1].ID)
}

func TestCRMRepository_PartnersAndCustomerAsset(t *testing.T) {
	db := SetupTestDatabase(t)
	repo := repository.NewCRMRepository(db)
	ctx := context.Background()

	partners, err := repo.Partners(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, partners)
	require.Equal(t, "Real Assets Co.", partners[0].Name)

	for i := 1; i < len(partners); i++ {
		require.True(t, partners[i-1].Value.GreaterThanOrEqual(partners[i].Value))
	}

	series, err := repo.CommissionSeries(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, series)
	require.Equal(t, "Jan 2024", series[0].Month)

	asset, err := repo.CustomerAsset(ctx)
	require.NoError(t, err)
	require.Equal(t, "A-101", asset.UnitNo)
	require.Len(t, asset.Milestones, 3)
	require.Equal(t, "Booking", asset.Milestones[0].Label)
}
