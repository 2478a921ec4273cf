package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/internal/portal"
	"github.com/SaiWorkProfile/manortha-website/internal/verification"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
	"github.com/SaiWorkProfile/manortha-website/pkg/logger"
	"github.com/SaiWorkProfile/manortha-website/pkg/metrics"
)

const maxChatHistory = 20

type SessionRepository interface {
	SaveSession(ctx context.Context, s entity.Session) error
	SessionByID(ctx context.Context, id uuid.UUID) (entity.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

type AttemptRepository interface {
	SaveAttempt(ctx context.Context, attempt entity.Attempt) error
}

type CRMRepository interface {
	Leads(ctx context.Context, filter entity.LeadFilter) ([]entity.Lead, error)
	LeadByID(ctx context.Context, id uuid.UUID) (entity.Lead, error)
	CreateLead(ctx context.Context, l entity.Lead) error
	UpdateLeadStage(ctx context.Context, id uuid.UUID, stage entity.LeadStage) error
	SaveLeadScores(ctx context.Context, scores []entity.LeadScore) error
	Properties(ctx context.Context, filter entity.PropertyFilter) ([]entity.Property, error)
	PropertyByID(ctx context.Context, id uuid.UUID) (entity.Property, error)
	UpdateProperty(ctx context.Context, p entity.Property) error

	Territory(ctx context.Context) (entity.Territory, error)
	SubDealers(ctx context.Context, pincode string) ([]entity.SubDealer, error)
	CreateSubDealer(ctx context.Context, d entity.SubDealer) error
	Partners(ctx context.Context) ([]entity.PartnerStanding, error)
	CommissionSeries(ctx context.Context) ([]entity.CommissionPoint, error)
	CustomerAsset(ctx context.Context) (entity.CustomerAsset, error)
}

type AIClient interface {
	Chat(ctx context.Context, history []entity.ChatMessage, message string, language entity.Language) (string, error)
	Insights(ctx context.Context, data any, language entity.Language, deepThink bool) (string, error)
	EditImage(ctx context.Context, img entity.Image, prompt string) (entity.Image, error)
	AnalyzeImage(ctx context.Context, img entity.Image) (string, error)
	AnalyzeVideo(ctx context.Context, videoURI string) (string, error)
	FindLandmarks(ctx context.Context, location string) (entity.Landmarks, error)
	LeadSummary(ctx context.Context, lead entity.Lead) (string, error)
	ScoreLeads(ctx context.Context, leads []entity.Lead) ([]entity.LeadScore, error)
	LegacyMentor(ctx context.Context, question string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event entity.OutboundMessageQueued) bool
}

type liveSession struct {
	mu      sync.Mutex
	session entity.Session
	flow    *verification.Flow
	chat    []entity.ChatMessage
}

type Service struct {
	cfg      config.Config
	clock    clockwork.Clock
	gate     *portal.Gate
	sessions SessionRepository
	attempts AttemptRepository
	crm      CRMRepository
	ai       AIClient
	bus      Publisher

	mu   sync.Mutex
	live map[uuid.UUID]*liveSession
}

func NewService(
	cfg config.Config,
	clock clockwork.Clock,
	gate *portal.Gate,
	sessions SessionRepository,
	attempts AttemptRepository,
	crm CRMRepository,
	ai AIClient,
	bus Publisher,
) *Service {
	return &Service{
		cfg:      cfg,
		clock:    clock,
		gate:     gate,
		sessions: sessions,
		attempts: attempts,
		crm:      crm,
		ai:       ai,
		bus:      bus,
		live:     make(map[uuid.UUID]*liveSession),
	}
}

func (s *Service) Roles() []entity.RoleInfo {
	roles := entity.Roles()
	out := make([]entity.RoleInfo, 0, len(roles))

	for _, r := range roles {
		out = append(out, entity.RoleInfo{Role: r, Label: r.Label()})
	}

	return out
}

func (s *Service) StartSession(ctx context.Context) (entity.SessionView, entity.SessionToken, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return entity.SessionView{}, entity.SessionToken{}, fmt.Errorf("generate session id: %w", err)
	}

	ls := &liveSession{session: entity.NewSession(id, s.clock.Now())}

	err = s.sessions.SaveSession(ctx, ls.session)
	if err != nil {
		return entity.SessionView{}, entity.SessionToken{}, fmt.Errorf("save session: %w", err)
	}

	token, err := s.issueToken(id)
	if err != nil {
		return entity.SessionView{}, entity.SessionToken{}, err
	}

	s.mu.Lock()
	s.live[id] = ls
	metrics.SetLiveSessions(len(s.live))
	s.mu.Unlock()

	slog.InfoContext(logger.SetSessionID(ctx, id.String()), "session started")

	return s.viewLocked(ls, false), token, nil
}

func (s *Service) issueToken(id uuid.UUID) (entity.SessionToken, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.Session.TTL)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, entity.SessionClaims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.Must(uuid.NewV4()).String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString([]byte(s.cfg.Session.Secret))
	if err != nil {
		return entity.SessionToken{}, fmt.Errorf("sign session token: %w", err)
	}

	return entity.SessionToken{Token: token, ExpiresAt: expiresAt}, nil
}

// ValidateToken returns the session id carried by a signed session token.
func (s *Service) ValidateToken(token string) (uuid.UUID, error) {
	var claims entity.SessionClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		_, ok := t.Method.(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return []byte(s.cfg.Session.Secret), nil
	}, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, fmt.Errorf("%w: %w", entity.ErrUnauthorized, entity.ErrTokenExpired)
		}

		return uuid.Nil, fmt.Errorf("%w: %w: %w", entity.ErrUnauthorized, entity.ErrTokenInvalid, err)
	}

	if !parsed.Valid || claims.SessionID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %w", entity.ErrUnauthorized, entity.ErrTokenInvalid)
	}

	return claims.SessionID, nil
}

// load returns the live session, restoring it from storage when this process
// has not seen it yet. A verification that was running elsewhere cannot be
// resumed and is cancelled.
func (s *Service) load(ctx context.Context, id uuid.UUID) (*liveSession, error) {
	s.mu.Lock()
	ls, ok := s.live[id]
	s.mu.Unlock()

	if ok {
		return ls, nil
	}

	stored, err := s.sessions.SessionByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("%w: session not found", entity.ErrUnauthorized)
		}

		return nil, fmt.Errorf("load session: %w", err)
	}

	if stored.VerificationInProgress {
		s.gate.CancelVerification(&stored)
	}

	s.gate.Revalidate(&stored)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.live[id]; ok {
		return existing, nil
	}

	ls = &liveSession{session: stored}
	s.live[id] = ls
	metrics.SetLiveSessions(len(s.live))

	return ls, nil
}

// persistLocked stores the session snapshot; ls.mu must be held.
func (s *Service) persistLocked(ctx context.Context, ls *liveSession) error {
	ls.session.UpdatedAt = s.clock.Now()

	err := s.sessions.SaveSession(ctx, ls.session)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

func (s *Service) viewLocked(ls *liveSession, redirected bool) entity.SessionView {
	return entity.SessionView{
		Session:    ls.session,
		Navigation: s.gate.Navigation(&ls.session),
		Redirected: redirected,
	}
}

func (s *Service) Session(ctx context.Context, id uuid.UUID) (entity.SessionView, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.SessionView{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	redirected := s.gate.Revalidate(&ls.session)
	if redirected {
		err = s.persistLocked(ctx, ls)
		if err != nil {
			return entity.SessionView{}, err
		}
	}

	return s.viewLocked(ls, redirected), nil
}

func (s *Service) Navigation(ctx context.Context, id uuid.UUID) ([]entity.NavigationItem, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	return s.gate.Navigation(&ls.session), nil
}

func (s *Service) Authorize(ctx context.Context, id uuid.UUID, screen entity.ScreenID) error {
	ls, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	err = s.gate.Authorize(&ls.session, screen)
	if err != nil {
		slog.WarnContext(logger.SetLogType(ctx, "security"), "screen access denied",
			"screen", screen, "role", ls.session.ActiveRole, "error", err)

		return err
	}

	return nil
}

func (s *Service) SelectScreen(ctx context.Context, id uuid.UUID, screen entity.ScreenID) (entity.SessionView, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.SessionView{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	err = s.gate.SelectScreen(&ls.session, screen)
	if err != nil {
		return entity.SessionView{}, err
	}

	err = s.persistLocked(ctx, ls)
	if err != nil {
		return entity.SessionView{}, err
	}

	return s.viewLocked(ls, false), nil
}

func (s *Service) SignOut(ctx context.Context, id uuid.UUID) (entity.SessionView, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.SessionView{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.flow != nil {
		ls.flow.Close()
		ls.flow = nil
	}

	role := ls.session.ActiveRole

	s.gate.SignOut(&ls.session)

	err = s.persistLocked(ctx, ls)
	if err != nil {
		return entity.SessionView{}, err
	}

	slog.InfoContext(ctx, "signed out", "role", role)

	return s.viewLocked(ls, false), nil
}

func (s *Service) RequestRole(ctx context.Context, id uuid.UUID, role entity.Role) (entity.VerificationChallenge, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.VerificationChallenge{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	err = s.gate.RequestRole(&ls.session, role)
	if err != nil {
		return entity.VerificationChallenge{}, err
	}

	hookCtx := logger.SetRole(logger.Detach(ctx), string(role))
	sessionID := ls.session.ID

	var flow *verification.Flow

	flow, err = verification.New(s.cfg.Verification, s.clock, role.Identifier(), verification.Hooks{
		OnVerified: func() error { return s.onVerified(hookCtx, ls, flow) },
		OnRejected: func(input string) { s.onRejected(hookCtx, sessionID, role, input) },
	})
	if err != nil {
		s.gate.CancelVerification(&ls.session)
		return entity.VerificationChallenge{}, fmt.Errorf("start verification: %w", err)
	}

	ls.flow = flow

	err = s.persistLocked(ctx, ls)
	if err != nil {
		ls.flow.Close()
		ls.flow = nil
		s.gate.CancelVerification(&ls.session)

		return entity.VerificationChallenge{}, err
	}

	slog.InfoContext(ctx, "verification started", "pending_role", role)

	return flow.Snapshot(), nil
}

// onVerified runs on the flow's timer goroutine after the one-time code was
// accepted. It fails when the session dropped the flow in the meantime.
func (s *Service) onVerified(ctx context.Context, ls *liveSession, flow *verification.Flow) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.flow != flow {
		return fmt.Errorf("%w: verification is no longer active", entity.ErrState)
	}

	role := ls.session.PendingRole

	ls.flow.Close()
	ls.flow = nil

	_, err := s.gate.OnVerificationSuccess(&ls.session)
	if err != nil {
		slog.ErrorContext(ctx, "promote verified role", "error", err)
		return err
	}

	err = s.persistLocked(ctx, ls)
	if err != nil {
		slog.ErrorContext(ctx, "persist verified session", "error", err)
	}

	metrics.VerificationOutcome(string(entity.AttemptStepOneTimeCode), "verified")
	s.saveAttempt(ctx, ls.session.ID, role, entity.AttemptStepOneTimeCode, true, "")

	slog.InfoContext(logger.SetLogType(ctx, "security"), "role verified",
		"role", role, "screen", ls.session.ActiveScreenID)

	return nil
}

func (s *Service) onRejected(ctx context.Context, sessionID uuid.UUID, role entity.Role, input string) {
	metrics.VerificationOutcome(string(entity.AttemptStepOneTimeCode), "rejected")
	s.saveAttempt(ctx, sessionID, role, entity.AttemptStepOneTimeCode, false, input)

	slog.WarnContext(logger.SetLogType(ctx, "security"), "one-time code rejected", "role", role)
}

func (s *Service) saveAttempt(ctx context.Context, sessionID uuid.UUID, role entity.Role, step entity.AttemptStep, success bool, input string) {
	attempt := entity.Attempt{
		ID:        uuid.Must(uuid.NewV4()),
		SessionID: sessionID,
		Role:      role,
		Step:      step,
		Success:   success,
		IPAddress: entity.IPFromCtx(ctx),
		CreatedAt: s.clock.Now(),
	}

	if !success && input != "" {
		hash, err := s.HashInput(input)
		if err != nil {
			slog.ErrorContext(ctx, "hash attempt input", "error", err)
		}

		attempt.InputHash = hash
	}

	err := s.attempts.SaveAttempt(ctx, attempt)
	if err != nil {
		slog.ErrorContext(ctx, "save verification attempt", "step", step, "error", err)
	}
}

func (s *Service) HashInput(input string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// flowLocked returns the running verification; ls.mu must be held.
func flowLocked(ls *liveSession) (*verification.Flow, error) {
	if ls.flow == nil {
		return nil, fmt.Errorf("%w: no verification in progress", entity.ErrState)
	}

	return ls.flow, nil
}

func (s *Service) VerificationState(ctx context.Context, id uuid.UUID) (entity.VerificationChallenge, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.VerificationChallenge{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	flow, err := flowLocked(ls)
	if err != nil {
		return entity.VerificationChallenge{}, err
	}

	return flow.Snapshot(), nil
}

func (s *Service) SubmitChallenge(ctx context.Context, id uuid.UUID, input string) (entity.VerificationChallenge, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.VerificationChallenge{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	flow, err := flowLocked(ls)
	if err != nil {
		return entity.VerificationChallenge{}, err
	}

	err = flow.SubmitChallenge(input)

	switch {
	case err == nil:
		metrics.VerificationOutcome(string(entity.AttemptStepChallenge), "passed")
		s.saveAttempt(ctx, ls.session.ID, ls.session.PendingRole, entity.AttemptStepChallenge, true, "")
	case errors.Is(err, entity.ErrChallengeMismatch):
		metrics.VerificationOutcome(string(entity.AttemptStepChallenge), "rejected")
		s.saveAttempt(ctx, ls.session.ID, ls.session.PendingRole, entity.AttemptStepChallenge, false, input)
	}

	return flow.Snapshot(), err
}

func (s *Service) RefreshChallenge(ctx context.Context, id uuid.UUID) (entity.VerificationChallenge, error) {
	return s.withFlow(ctx, id, (*verification.Flow).RefreshChallenge)
}

func (s *Service) ResendCode(ctx context.Context, id uuid.UUID) (entity.VerificationChallenge, error) {
	snap, err := s.withFlow(ctx, id, (*verification.Flow).Resend)
	if err == nil {
		slog.InfoContext(ctx, "one-time code resent", "identifier", snap.Identifier)
	}

	return snap, err
}

func (s *Service) withFlow(ctx context.Context, id uuid.UUID, op func(*verification.Flow) error) (entity.VerificationChallenge, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.VerificationChallenge{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	flow, err := flowLocked(ls)
	if err != nil {
		return entity.VerificationChallenge{}, err
	}

	err = op(flow)
	if err != nil {
		return entity.VerificationChallenge{}, err
	}

	return flow.Snapshot(), nil
}

// EnterDigit fills one code slot and reports the slot to focus next.
func (s *Service) EnterDigit(ctx context.Context, id uuid.UUID, index int, value string) (entity.VerificationChallenge, int, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.VerificationChallenge{}, index, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	flow, err := flowLocked(ls)
	if err != nil {
		return entity.VerificationChallenge{}, index, err
	}

	focus, err := flow.EnterDigit(index, value)
	if err != nil {
		return entity.VerificationChallenge{}, focus, err
	}

	return flow.Snapshot(), focus, nil
}

// SubmitOneTimeCode waits for the deferred evaluation of the entered code.
// The session lock is released while waiting.
func (s *Service) SubmitOneTimeCode(ctx context.Context, id uuid.UUID) (entity.SessionView, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.SessionView{}, err
	}

	ls.mu.Lock()

	flow, err := flowLocked(ls)
	if err != nil {
		ls.mu.Unlock()
		return entity.SessionView{}, err
	}

	result, err := flow.SubmitOneTimeCode()

	ls.mu.Unlock()

	if err != nil {
		return entity.SessionView{}, err
	}

	select {
	case <-ctx.Done():
		return entity.SessionView{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return entity.SessionView{}, res.Err
		}
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	return s.viewLocked(ls, false), nil
}

func (s *Service) CancelVerification(ctx context.Context, id uuid.UUID) (entity.SessionView, error) {
	ls, err := s.load(ctx, id)
	if err != nil {
		return entity.SessionView{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	flow, err := flowLocked(ls)
	if err != nil {
		return entity.SessionView{}, err
	}

	err = flow.Cancel()
	if err != nil {
		return entity.SessionView{}, err
	}

	role := ls.session.PendingRole

	ls.flow = nil
	s.gate.CancelVerification(&ls.session)

	err = s.persistLocked(ctx, ls)
	if err != nil {
		return entity.SessionView{}, err
	}

	metrics.VerificationOutcome("flow", "cancelled")
	slog.InfoContext(ctx, "verification cancelled", "pending_role", role)

	return s.viewLocked(ls, false), nil
}

// DeleteExpiredSessions drops sessions idle for longer than the session TTL.
func (s *Service) DeleteExpiredSessions(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.Session.TTL)

	s.mu.Lock()

	var expired []*liveSession

	for id, ls := range s.live {
		ls.mu.Lock()
		stale := ls.session.UpdatedAt.Before(cutoff) && ls.flow == nil
		ls.mu.Unlock()

		if stale {
			expired = append(expired, ls)
			delete(s.live, id)
		}
	}

	metrics.SetLiveSessions(len(s.live))
	s.mu.Unlock()

	n, err := s.sessions.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}

	slog.InfoContext(ctx, "expired sessions deleted", "stored", n, "live", len(expired))

	return nil
}

// Close stops the timers of every running verification.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ls := range s.live {
		ls.mu.Lock()
		if ls.flow != nil {
			ls.flow.Close()
		}
		ls.mu.Unlock()
	}
}

func (s *Service) chatHistory(ctx context.Context, id uuid.UUID) []entity.ChatMessage {
	if id == uuid.Nil {
		return nil
	}

	ls, err := s.load(ctx, id)
	if err != nil {
		return nil
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	return append([]entity.ChatMessage(nil), ls.chat...)
}

func (s *Service) appendChat(ctx context.Context, id uuid.UUID, msgs ...entity.ChatMessage) {
	if id == uuid.Nil {
		return
	}

	ls, err := s.load(ctx, id)
	if err != nil {
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.chat = append(ls.chat, msgs...)
	if len(ls.chat) > maxChatHistory {
		ls.chat = ls.chat[len(ls.chat)-maxChatHistory:]
	}
}
