package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/metrics"
)

var hundred = decimal.NewFromInt(100)

func (s *Service) DashboardMetrics(ctx context.Context) (entity.DashboardMetrics, error) {
	props, err := s.crm.Properties(ctx, entity.PropertyFilter{})
	if err != nil {
		return entity.DashboardMetrics{}, fmt.Errorf("list properties: %w", err)
	}

	leads, err := s.crm.Leads(ctx, entity.LeadFilter{})
	if err != nil {
		return entity.DashboardMetrics{}, fmt.Errorf("list leads: %w", err)
	}

	return ComputeMetrics(props, leads), nil
}

// ComputeMetrics derives the command-center figures from inventory and leads.
func ComputeMetrics(props []entity.Property, leads []entity.Lead) entity.DashboardMetrics {
	m := entity.DashboardMetrics{
		Revenue:        decimal.Zero,
		ConversionRate: decimal.Zero,
		Enquiries:      len(leads),
	}

	perProject := make(map[string]int)

	for _, p := range props {
		perProject[p.Project]++

		if p.Status.Sold() {
			m.SoldUnits++
			m.Revenue = m.Revenue.Add(p.Price)
		}
	}

	if len(leads) > 0 {
		m.ConversionRate = decimal.NewFromInt(int64(m.SoldUnits)).
			Div(decimal.NewFromInt(int64(len(leads)))).
			Mul(hundred).
			Round(1)
	}

	var qualified, visits int

	for _, l := range leads {
		if l.Stage != entity.StageNew {
			qualified++
		}

		switch l.Stage {
		case entity.StageSiteVisit, entity.StageBooking, entity.StageRegistry:
			visits++
		}
	}

	m.Funnel = []entity.FunnelStage{
		{Name: "New Enquiries", Value: len(leads)},
		{Name: "Qualified", Value: qualified},
		{Name: "Site Visits", Value: visits},
		{Name: "Bookings", Value: m.SoldUnits},
	}

	m.Distribution = make([]entity.ProjectShare, 0, len(perProject))

	for _, project := range entity.Projects() {
		if n, ok := perProject[project]; ok {
			m.Distribution = append(m.Distribution, entity.ProjectShare{Project: project, Units: n})
			delete(perProject, project)
		}
	}

	rest := make([]string, 0, len(perProject))
	for project := range perProject {
		rest = append(rest, project)
	}

	sort.Strings(rest)

	for _, project := range rest {
		m.Distribution = append(m.Distribution, entity.ProjectShare{Project: project, Units: perProject[project]})
	}

	return m
}

func (s *Service) Leads(ctx context.Context, filter entity.LeadFilter) ([]entity.Lead, error) {
	leads, err := s.crm.Leads(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	return leads, nil
}

// AddInquiry registers a public website inquiry as a new lead.
func (s *Service) AddInquiry(ctx context.Context, inq entity.LeadInquiry) (entity.Lead, error) {
	name := strings.TrimSpace(inq.Name)
	if name == "" {
		return entity.Lead{}, fmt.Errorf("%w: %w", entity.ErrValidation, entity.ErrLeadNameEmpty)
	}

	if inq.Budget.IsNegative() {
		return entity.Lead{}, fmt.Errorf("%w: budget must not be negative", entity.ErrValidation)
	}

	email := strings.TrimSpace(inq.Email)
	if email == "" {
		email = strings.ToLower(strings.Join(strings.Fields(name), "")) + "@example.com"
	}

	now := s.clock.Now()

	lead := entity.Lead{
		ID:               uuid.Must(uuid.NewV4()),
		Name:             name,
		Email:            email,
		Phone:            strings.TrimSpace(inq.Phone),
		Source:           entity.LeadSourceWebsite,
		Stage:            entity.StageNew,
		AssignedTo:       entity.LeadAssigneeQueue,
		Budget:           inq.Budget,
		Location:         strings.TrimSpace(inq.Location),
		Profession:       strings.TrimSpace(inq.Profession),
		TotalEngagements: 1,
		LastActive:       now,
		CreatedAt:        now,
	}

	err := s.crm.CreateLead(ctx, lead)
	if err != nil {
		return entity.Lead{}, fmt.Errorf("create lead: %w", err)
	}

	slog.InfoContext(ctx, "website inquiry received", "lead_id", lead.ID)

	return lead, nil
}

// AdvanceLeadStage moves a lead one stage forward. Reaching Qualified queues
// the site-visit message for the lead.
func (s *Service) AdvanceLeadStage(ctx context.Context, id uuid.UUID) (entity.Lead, error) {
	lead, err := s.crm.LeadByID(ctx, id)
	if err != nil {
		return entity.Lead{}, fmt.Errorf("get lead: %w", err)
	}

	next := lead.Stage.Next()
	if next == lead.Stage {
		return lead, nil
	}

	err = s.crm.UpdateLeadStage(ctx, id, next)
	if err != nil {
		return entity.Lead{}, fmt.Errorf("update lead stage: %w", err)
	}

	lead.Stage = next

	if next == entity.StageQualified {
		s.publish(ctx, lead, entity.QualifiedMessage)
	}

	return lead, nil
}

func (s *Service) SendLeadMessage(ctx context.Context, id uuid.UUID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return fmt.Errorf("%w: message is empty", entity.ErrValidation)
	}

	lead, err := s.crm.LeadByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get lead: %w", err)
	}

	s.publish(ctx, lead, message)

	return nil
}

func (s *Service) publish(ctx context.Context, lead entity.Lead, message string) {
	queued := s.bus.Publish(ctx, entity.OutboundMessageQueued{
		Recipient: lead.Name,
		Address:   lead.Email,
		Message:   message,
	})
	if !queued {
		slog.WarnContext(ctx, "outbound message not queued", "lead_id", lead.ID)
	}
}

// ScoreLeads asks the assistant to score every lead. When scoring is
// unavailable the leads are returned unchanged.
func (s *Service) ScoreLeads(ctx context.Context) (entity.LeadsReply, error) {
	leads, err := s.crm.Leads(ctx, entity.LeadFilter{})
	if err != nil {
		return entity.LeadsReply{}, fmt.Errorf("list leads: %w", err)
	}

	scores, err := s.ai.ScoreLeads(ctx, leads)
	metrics.AssistantCall("score_leads", err)

	if err != nil {
		if !errors.Is(err, entity.ErrExternalService) {
			return entity.LeadsReply{}, err
		}

		slog.ErrorContext(ctx, "lead scoring failed", "error", err)

		return entity.LeadsReply{Leads: leads, Unavailable: true, Message: entity.ScoringUnavailableText}, nil
	}

	byID := make(map[uuid.UUID]entity.LeadScore, len(scores))
	for _, sc := range scores {
		byID[sc.LeadID] = sc
	}

	applied := make([]entity.LeadScore, 0, len(scores))

	for i := range leads {
		sc, ok := byID[leads[i].ID]
		if !ok {
			continue
		}

		score := sc.Score
		leads[i].Score = &score
		leads[i].ScoreReason = sc.Reason
		applied = append(applied, sc)
	}

	err = s.crm.SaveLeadScores(ctx, applied)
	if err != nil {
		return entity.LeadsReply{}, fmt.Errorf("save lead scores: %w", err)
	}

	SortByScore(leads)

	return entity.LeadsReply{Leads: leads}, nil
}

// SortByScore orders leads by score, highest first; unscored leads go last.
func SortByScore(leads []entity.Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		return scoreOf(leads[i]) > scoreOf(leads[j])
	})
}

func scoreOf(l entity.Lead) int {
	if l.Score == nil {
		return -1
	}

	return *l.Score
}

func (s *Service) Inventory(ctx context.Context, filter entity.PropertyFilter) ([]entity.Property, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", entity.ErrValidation, filter.Status)
	}

	props, err := s.crm.Properties(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	return props, nil
}

// InventoryHeatmap counts available units per project and type.
func (s *Service) InventoryHeatmap(ctx context.Context) ([]entity.HeatmapCell, error) {
	props, err := s.crm.Properties(ctx, entity.PropertyFilter{Status: entity.PropertyAvailable})
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	return Heatmap(props), nil
}

func Heatmap(props []entity.Property) []entity.HeatmapCell {
	type key struct {
		project string
		kind    entity.PropertyType
	}

	counts := make(map[key]int)

	for _, p := range props {
		if p.Status == entity.PropertyAvailable {
			counts[key{p.Project, p.Type}]++
		}
	}

	projects := entity.Projects()
	types := entity.PropertyTypes()
	cells := make([]entity.HeatmapCell, 0, len(projects)*len(types))

	for _, project := range projects {
		for _, t := range types {
			cells = append(cells, entity.HeatmapCell{Project: project, Type: t, Available: counts[key{project, t}]})
		}
	}

	return cells
}

func (s *Service) UpdatePropertyStatus(ctx context.Context, id uuid.UUID, status entity.PropertyStatus) (entity.Property, error) {
	if !status.Valid() {
		return entity.Property{}, fmt.Errorf("%w: unknown status %q", entity.ErrValidation, status)
	}

	p, err := s.crm.PropertyByID(ctx, id)
	if err != nil {
		return entity.Property{}, fmt.Errorf("get property: %w", err)
	}

	p.Status = status

	err = s.crm.UpdateProperty(ctx, p)
	if err != nil {
		return entity.Property{}, fmt.Errorf("update property: %w", err)
	}

	slog.InfoContext(ctx, "property status changed", "property_id", id, "status", status)

	return p, nil
}

func (s *Service) PublishToWeb(ctx context.Context, id uuid.UUID) (entity.Property, error) {
	p, err := s.crm.PropertyByID(ctx, id)
	if err != nil {
		return entity.Property{}, fmt.Errorf("get property: %w", err)
	}

	if p.PublishedToWeb {
		return p, nil
	}

	p.PublishedToWeb = true

	err = s.crm.UpdateProperty(ctx, p)
	if err != nil {
		return entity.Property{}, fmt.Errorf("update property: %w", err)
	}

	slog.InfoContext(ctx, "property published to website", "property_id", id, "unit", p.UnitNo)

	return p, nil
}
