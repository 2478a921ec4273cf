package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/internal/navigation"
	"github.com/SaiWorkProfile/manortha-website/internal/portal"
	"github.com/SaiWorkProfile/manortha-website/internal/service"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
)

type fakeSessions struct {
	mu    sync.Mutex
	items map[uuid.UUID]entity.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{items: make(map[uuid.UUID]entity.Session)}
}

func (f *fakeSessions) SaveSession(_ context.Context, s entity.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[s.ID] = s

	return nil
}

func (f *fakeSessions) SessionByID(_ context.Context, id uuid.UUID) (entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.items[id]
	if !ok {
		return entity.Session{}, entity.ErrNotFound
	}

	return s, nil
}

func (f *fakeSessions) DeleteSession(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.items, id)

	return nil
}

func (f *fakeSessions) DeleteExpiredSessions(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64

	for id, s := range f.items {
		if s.UpdatedAt.Before(before) {
			delete(f.items, id)
			n++
		}
	}

	return n, nil
}

func (f *fakeSessions) get(id uuid.UUID) (entity.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.items[id]

	return s, ok
}

type fakeAttempts struct {
	mu    sync.Mutex
	items []entity.Attempt
}

func (f *fakeAttempts) SaveAttempt(_ context.Context, a entity.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = append(f.items, a)

	return nil
}

func (f *fakeAttempts) list() []entity.Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]entity.Attempt(nil), f.items...)
}

type fakeCRM struct {
	mu          sync.Mutex
	leads       []entity.Lead
	props       []entity.Property
	scores      []entity.LeadScore
	territory   *entity.Territory
	dealers     []entity.SubDealer
	partners    []entity.PartnerStanding
	commissions []entity.CommissionPoint
	asset       *entity.CustomerAsset
}

func (f *fakeCRM) Leads(_ context.Context, filter entity.LeadFilter) ([]entity.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.Lead

	for _, l := range f.leads {
		if filter.Stage != nil && l.Stage != *filter.Stage {
			continue
		}

		if filter.Search != "" && !strings.Contains(strings.ToLower(l.Name), strings.ToLower(filter.Search)) {
			continue
		}

		out = append(out, l)
	}

	return out, nil
}

func (f *fakeCRM) LeadByID(_ context.Context, id uuid.UUID) (entity.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, l := range f.leads {
		if l.ID == id {
			return l, nil
		}
	}

	return entity.Lead{}, entity.ErrNotFound
}

func (f *fakeCRM) CreateLead(_ context.Context, l entity.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.leads = append([]entity.Lead{l}, f.leads...)

	return nil
}

func (f *fakeCRM) UpdateLeadStage(_ context.Context, id uuid.UUID, stage entity.LeadStage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads[i].Stage = stage
			return nil
		}
	}

	return entity.ErrNotFound
}

func (f *fakeCRM) SaveLeadScores(_ context.Context, scores []entity.LeadScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.scores = append(f.scores, scores...)

	return nil
}

func (f *fakeCRM) Properties(_ context.Context, filter entity.PropertyFilter) ([]entity.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.Property

	for _, p := range f.props {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}

		if filter.Project != "" && p.Project != filter.Project {
			continue
		}

		if filter.Type != "" && p.Type != filter.Type {
			continue
		}

		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].UnitNo < out[j].UnitNo })

	return out, nil
}

func (f *fakeCRM) PropertyByID(_ context.Context, id uuid.UUID) (entity.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.props {
		if p.ID == id {
			return p, nil
		}
	}

	return entity.Property{}, entity.ErrNotFound
}

func (f *fakeCRM) UpdateProperty(_ context.Context, p entity.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.props {
		if f.props[i].ID == p.ID {
			f.props[i] = p
			return nil
		}
	}

	return entity.ErrNotFound
}

func (f *fakeCRM) Territory(context.Context) (entity.Territory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.territory == nil {
		return entity.Territory{}, entity.ErrNotFound
	}

	return *f.territory, nil
}

func (f *fakeCRM) SubDealers(_ context.Context, pincode string) ([]entity.SubDealer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []entity.SubDealer

	for _, d := range f.dealers {
		if d.Pincode == pincode {
			out = append(out, d)
		}
	}

	return out, nil
}

func (f *fakeCRM) CreateSubDealer(_ context.Context, d entity.SubDealer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dealers = append(f.dealers, d)

	return nil
}

func (f *fakeCRM) Partners(context.Context) ([]entity.PartnerStanding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]entity.PartnerStanding(nil), f.partners...), nil
}

func (f *fakeCRM) CommissionSeries(context.Context) ([]entity.CommissionPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]entity.CommissionPoint(nil), f.commissions...), nil
}

func (f *fakeCRM) CustomerAsset(context.Context) (entity.CustomerAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.asset == nil {
		return entity.CustomerAsset{}, entity.ErrNotFound
	}

	return *f.asset, nil
}

type fakeAI struct {
	mu       sync.Mutex
	err      error
	text     string
	scores   []entity.LeadScore
	image    entity.Image
	location string
	history  []entity.ChatMessage
}

func (f *fakeAI) reply() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.text, f.err
}

func (f *fakeAI) Chat(_ context.Context, history []entity.ChatMessage, _ string, _ entity.Language) (string, error) {
	f.mu.Lock()
	f.history = history
	f.mu.Unlock()

	return f.reply()
}

func (f *fakeAI) Insights(context.Context, any, entity.Language, bool) (string, error) {
	return f.reply()
}

func (f *fakeAI) EditImage(context.Context, entity.Image, string) (entity.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.image, f.err
}

func (f *fakeAI) AnalyzeImage(context.Context, entity.Image) (string, error) {
	return f.reply()
}

func (f *fakeAI) AnalyzeVideo(context.Context, string) (string, error) {
	return f.reply()
}

func (f *fakeAI) FindLandmarks(_ context.Context, location string) (entity.Landmarks, error) {
	f.mu.Lock()
	f.location = location
	f.mu.Unlock()

	text, err := f.reply()

	return entity.Landmarks{Text: text}, err
}

func (f *fakeAI) LeadSummary(context.Context, entity.Lead) (string, error) {
	return f.reply()
}

func (f *fakeAI) ScoreLeads(context.Context, []entity.Lead) ([]entity.LeadScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.scores, f.err
}

func (f *fakeAI) LegacyMentor(context.Context, string) (string, error) {
	return f.reply()
}

type fakeBus struct {
	mu     sync.Mutex
	events []entity.OutboundMessageQueued
}

func (f *fakeBus) Publish(_ context.Context, e entity.OutboundMessageQueued) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, e)

	return true
}

func (f *fakeBus) list() []entity.OutboundMessageQueued {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]entity.OutboundMessageQueued(nil), f.events...)
}

type env struct {
	svc      *service.Service
	clock    *clockwork.FakeClock
	sessions *fakeSessions
	attempts *fakeAttempts
	crm      *fakeCRM
	ai       *fakeAI
	bus      *fakeBus
}

func testConfig() config.Config {
	return config.Config{
		Session: config.SessionConfig{
			Secret: "test-secret",
			TTL:    time.Hour,
		},
		Verification: config.VerificationConfig{
			ChallengeLength: 6,
			Alphabet:        "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
			AcceptedCodes:   []string{"123456", "000000"},
			ResendSeconds:   30,
			SubmitDelay:     1500 * time.Millisecond,
		},
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		clock:    clockwork.NewFakeClock(),
		sessions: newFakeSessions(),
		attempts: &fakeAttempts{},
		crm:      &fakeCRM{},
		ai:       &fakeAI{},
		bus:      &fakeBus{},
	}

	e.svc = service.NewService(
		testConfig(),
		e.clock,
		portal.NewGate(navigation.New()),
		e.sessions,
		e.attempts,
		e.crm,
		e.ai,
		e.bus,
	)
	t.Cleanup(e.svc.Close)

	return e
}

func (e *env) start(t *testing.T) uuid.UUID {
	t.Helper()

	view, token, err := e.svc.StartSession(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	return view.Session.ID
}

func lead(name string, stage entity.LeadStage) entity.Lead {
	return entity.Lead{
		ID:     uuid.Must(uuid.NewV4()),
		Name:   name,
		Email:  strings.ToLower(name) + "@example.com",
		Stage:  stage,
		Budget: decimal.NewFromInt(10000000),
	}
}

func property(project, unit string, kind entity.PropertyType, status entity.PropertyStatus, price int64) entity.Property {
	return entity.Property{
		ID:      uuid.Must(uuid.NewV4()),
		Project: project,
		UnitNo:  unit,
		Type:    kind,
		Status:  status,
		Price:   decimal.NewFromInt(price),
	}
}
