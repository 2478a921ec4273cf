package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type LeadStage string

const (
	StageNew       LeadStage = "New"
	StageQualified LeadStage = "Qualified"
	StageSiteVisit LeadStage = "Site Visit"
	StageBooking   LeadStage = "Booking"
	StageRegistry  LeadStage = "Registry"
)

var leadStages = []LeadStage{StageNew, StageQualified, StageSiteVisit, StageBooking, StageRegistry}

func LeadStages() []LeadStage {
	return append([]LeadStage(nil), leadStages...)
}

// Next returns the following pipeline stage; Registry is terminal.
func (s LeadStage) Next() LeadStage {
	for i, stage := range leadStages {
		if stage == s && i+1 < len(leadStages) {
			return leadStages[i+1]
		}
	}

	return StageRegistry
}

func (s LeadStage) Valid() bool {
	for _, stage := range leadStages {
		if stage == s {
			return true
		}
	}

	return false
}

const (
	LeadSourceWebsite = "Website Inquiry"
	LeadAssigneeQueue = "AI Queue"
	QualifiedMessage  = "Your profile is qualified for a site visit!"
)

type Lead struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	Source           string          `json:"source"`
	Stage            LeadStage       `json:"stage"`
	AssignedTo       string          `json:"assigned_to"`
	Budget           decimal.Decimal `json:"budget"`
	Location         string          `json:"location,omitempty"`
	Profession       string          `json:"profession,omitempty"`
	TotalEngagements int             `json:"total_engagements"`
	LastActive       time.Time       `json:"last_active"`
	Score            *int            `json:"score,omitempty"`
	ScoreReason      string          `json:"score_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type LeadInquiry struct {
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	Email      string          `json:"email"`
	Budget     decimal.Decimal `json:"budget"`
	Location   string          `json:"location"`
	Profession string          `json:"profession"`
}

type LeadFilter struct {
	Stage      *LeadStage
	AssignedTo *string
	Search     string
}

type LeadScore struct {
	LeadID uuid.UUID `json:"leadId"`
	Score  int       `json:"score"`
	Reason string    `json:"reason"`
}

type LeadsReply struct {
	Leads       []Lead `json:"leads"`
	Unavailable bool   `json:"unavailable,omitempty"`
	Message     string `json:"message,omitempty"`
}
