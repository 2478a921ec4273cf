package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/internal/service"
)

func TestComputeMetrics(t *testing.T) {
	t.Parallel()

	props := []entity.Property{
		property("Manortha Greens", "MG-101", entity.PropertyVilla, entity.PropertyBooked, 25000000),
		property("Manortha Greens", "MG-102", entity.PropertyVilla, entity.PropertyAvailable, 26000000),
		property("Skyline Residency", "SR-1201", entity.PropertyApartment, entity.PropertyRegistered, 12500000),
		property("Emerald Plots", "EP-44", entity.PropertyPlot, entity.PropertyBlocked, 8500000),
		property("Lakeview", "LV-1", entity.PropertyPlot, entity.PropertyAvailable, 1000000),
	}

	leads := []entity.Lead{
		lead("A", entity.StageNew),
		lead("B", entity.StageQualified),
		lead("C", entity.StageSiteVisit),
		lead("D", entity.StageBooking),
		lead("E", entity.StageRegistry),
		lead("F", entity.StageNew),
	}

	m := service.ComputeMetrics(props, leads)

	require.Equal(t, 2, m.SoldUnits)
	require.True(t, decimal.NewFromInt(37500000).Equal(m.Revenue))
	require.Equal(t, 6, m.Enquiries)
	require.Equal(t, "33.3", m.ConversionRate.String())

	require.Equal(t, []entity.FunnelStage{
		{Name: "New Enquiries", Value: 6},
		{Name: "Qualified", Value: 4},
		{Name: "Site Visits", Value: 3},
		{Name: "Bookings", Value: 2},
	}, m.Funnel)

	require.Equal(t, []entity.ProjectShare{
		{Project: "Manortha Greens", Units: 2},
		{Project: "Skyline Residency", Units: 1},
		{Project: "Emerald Plots", Units: 1},
		{Project: "Lakeview", Units: 1},
	}, m.Distribution)
}

func TestComputeMetricsWithoutLeads(t *testing.T) {
	t.Parallel()

	m := service.ComputeMetrics(nil, nil)

	require.True(t, m.ConversionRate.IsZero())
	require.True(t, m.Revenue.IsZero())
	require.Empty(t, m.Distribution)
	require.Len(t, m.Funnel, 4)
}

func TestHeatmapCountsAvailableUnits(t *testing.T) {
	t.Parallel()

	cells := service.Heatmap([]entity.Property{
		property("Manortha Greens", "1", entity.PropertyVilla, entity.PropertyAvailable, 1),
		property("Manortha Greens", "2", entity.PropertyVilla, entity.PropertyAvailable, 1),
		property("Manortha Greens", "3", entity.PropertyVilla, entity.PropertyBooked, 1),
		property("Business Square", "4", entity.PropertyCommercial, entity.PropertyAvailable, 1),
	})

	require.Len(t, cells, len(entity.Projects())*len(entity.PropertyTypes()))

	counts := make(map[string]int)
	for _, c := range cells {
		counts[c.Project+"/"+string(c.Type)] = c.Available
	}

	require.Equal(t, 2, counts["Manortha Greens/Villa"])
	require.Equal(t, 1, counts["Business Square/Commercial"])
	require.Equal(t, 0, counts["Skyline Residency/Apartment"])
}

func TestAddInquiry(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	l, err := e.svc.AddInquiry(context.Background(), entity.LeadInquiry{
		Name:   " Rahul Varma ",
		Phone:  "+91 98450 00000",
		Budget: decimal.NewFromInt(30000000),
	})
	require.NoError(t, err)
	require.Equal(t, "Rahul Varma", l.Name)
	require.Equal(t, "rahulvarma@example.com", l.Email)
	require.Equal(t, entity.LeadSourceWebsite, l.Source)
	require.Equal(t, entity.StageNew, l.Stage)
	require.Equal(t, entity.LeadAssigneeQueue, l.AssignedTo)
	require.Equal(t, 1, l.TotalEngagements)

	leads, err := e.svc.Leads(context.Background(), entity.LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)

	_, err = e.svc.AddInquiry(context.Background(), entity.LeadInquiry{Name: "  "})
	require.ErrorIs(t, err, entity.ErrValidation)
	require.ErrorIs(t, err, entity.ErrLeadNameEmpty)
}

func TestAdvanceLeadStagePublishesOnQualified(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	l := lead("Priya", entity.StageNew)
	e.crm.leads = []entity.Lead{l}

	got, err := e.svc.AdvanceLeadStage(ctx, l.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StageQualified, got.Stage)

	events := e.bus.list()
	require.Len(t, events, 1)
	require.Equal(t, "Priya", events[0].Recipient)
	require.Equal(t, "priya@example.com", events[0].Address)
	require.Equal(t, entity.QualifiedMessage, events[0].Message)

	for range 5 {
		got, err = e.svc.AdvanceLeadStage(ctx, l.ID)
		require.NoError(t, err)
	}

	require.Equal(t, entity.StageRegistry, got.Stage)
	require.Len(t, e.bus.list(), 1)

	_, err = e.svc.AdvanceLeadStage(ctx, uuid.Must(uuid.NewV4()))
	require.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSendLeadMessage(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	l := lead("Anil", entity.StageSiteVisit)
	e.crm.leads = []entity.Lead{l}

	require.ErrorIs(t, e.svc.SendLeadMessage(context.Background(), l.ID, " "), entity.ErrValidation)
	require.NoError(t, e.svc.SendLeadMessage(context.Background(), l.ID, "Brochure attached"))

	events := e.bus.list()
	require.Len(t, events, 1)
	require.Equal(t, "Brochure attached", events[0].Message)
}

func TestScoreLeadsSortsByScore(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	a, b, c := lead("A", entity.StageNew), lead("B", entity.StageNew), lead("C", entity.StageNew)
	e.crm.leads = []entity.Lead{a, b, c}
	e.ai.scores = []entity.LeadScore{
		{LeadID: a.ID, Score: 40, Reason: "cold"},
		{LeadID: b.ID, Score: 92, Reason: "hot"},
		{LeadID: uuid.Must(uuid.NewV4()), Score: 99, Reason: "ghost"},
	}

	reply, err := e.svc.ScoreLeads(context.Background())
	require.NoError(t, err)
	require.False(t, reply.Unavailable)
	require.Len(t, reply.Leads, 3)
	require.Equal(t, b.ID, reply.Leads[0].ID)
	require.Equal(t, "hot", reply.Leads[0].ScoreReason)
	require.Equal(t, a.ID, reply.Leads[1].ID)
	require.Equal(t, c.ID, reply.Leads[2].ID)
	require.Nil(t, reply.Leads[2].Score)

	require.Len(t, e.crm.scores, 2)
}

func TestScoreLeadsDegrades(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.crm.leads = []entity.Lead{lead("A", entity.StageNew)}
	e.ai.err = &entity.ExternalServiceError{Operation: "score_leads", StatusCode: 503, Err: errors.New("overloaded")}

	reply, err := e.svc.ScoreLeads(context.Background())
	require.NoError(t, err)
	require.True(t, reply.Unavailable)
	require.Equal(t, entity.ScoringUnavailableText, reply.Message)
	require.Len(t, reply.Leads, 1)
	require.Nil(t, reply.Leads[0].Score)
	require.Empty(t, e.crm.scores)
}

func TestUpdatePropertyStatusAndPublish(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	p := property("Emerald Plots", "EP-1", entity.PropertyPlot, entity.PropertyAvailable, 5000000)
	e.crm.props = []entity.Property{p}

	_, err := e.svc.UpdatePropertyStatus(ctx, p.ID, entity.PropertyStatus("SOLD"))
	require.ErrorIs(t, err, entity.ErrValidation)

	got, err := e.svc.UpdatePropertyStatus(ctx, p.ID, entity.PropertyBlocked)
	require.NoError(t, err)
	require.Equal(t, entity.PropertyBlocked, got.Status)

	got, err = e.svc.PublishToWeb(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, got.PublishedToWeb)

	stored, err := e.svc.Inventory(ctx, entity.PropertyFilter{Status: entity.PropertyBlocked})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.True(t, stored[0].PublishedToWeb)

	_, err = e.svc.Inventory(ctx, entity.PropertyFilter{Status: "NOPE"})
	require.ErrorIs(t, err, entity.ErrValidation)
}
