package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
)

const maxBodyBytes = 16 << 20

type Service interface {
	SessionAuthorizer

	Roles() []entity.RoleInfo
	StartSession(ctx context.Context) (entity.SessionView, entity.SessionToken, error)
	Session(ctx context.Context, id uuid.UUID) (entity.SessionView, error)
	Navigation(ctx context.Context, id uuid.UUID) ([]entity.NavigationItem, error)
	SelectScreen(ctx context.Context, id uuid.UUID, screen entity.ScreenID) (entity.SessionView, error)
	SignOut(ctx context.Context, id uuid.UUID) (entity.SessionView, error)

	RequestRole(ctx context.Context, id uuid.UUID, role entity.Role) (entity.VerificationChallenge, error)
	VerificationState(ctx context.Context, id uuid.UUID) (entity.VerificationChallenge, error)
	SubmitChallenge(ctx context.Context, id uuid.UUID, input string) (entity.VerificationChallenge, error)
	RefreshChallenge(ctx context.Context, id uuid.UUID) (entity.VerificationChallenge, error)
	ResendCode(ctx context.Context, id uuid.UUID) (entity.VerificationChallenge, error)
	EnterDigit(ctx context.Context, id uuid.UUID, index int, value string) (entity.VerificationChallenge, int, error)
	SubmitOneTimeCode(ctx context.Context, id uuid.UUID) (entity.SessionView, error)
	CancelVerification(ctx context.Context, id uuid.UUID) (entity.SessionView, error)

	DashboardMetrics(ctx context.Context) (entity.DashboardMetrics, error)
	Leads(ctx context.Context, filter entity.LeadFilter) ([]entity.Lead, error)
	AddInquiry(ctx context.Context, inq entity.LeadInquiry) (entity.Lead, error)
	AdvanceLeadStage(ctx context.Context, id uuid.UUID) (entity.Lead, error)
	SendLeadMessage(ctx context.Context, id uuid.UUID, message string) error
	ScoreLeads(ctx context.Context) (entity.LeadsReply, error)
	Inventory(ctx context.Context, filter entity.PropertyFilter) ([]entity.Property, error)
	InventoryHeatmap(ctx context.Context) ([]entity.HeatmapCell, error)
	UpdatePropertyStatus(ctx context.Context, id uuid.UUID, status entity.PropertyStatus) (entity.Property, error)
	PublishToWeb(ctx context.Context, id uuid.UUID) (entity.Property, error)

	Chat(ctx context.Context, sessionID uuid.UUID, message string, language entity.Language) (entity.AssistantReply, error)
	Insights(ctx context.Context, language entity.Language, deepThink bool) (entity.AssistantReply, error)
	EditImage(ctx context.Context, image, prompt string) (entity.AssistantReply, error)
	AnalyzeImage(ctx context.Context, image string) (entity.AssistantReply, error)
	AnalyzeVideo(ctx context.Context, videoURI string) (entity.AssistantReply, error)
	FindLandmarks(ctx context.Context, propertyID uuid.UUID) (entity.Landmarks, error)
	LeadSummary(ctx context.Context, leadID uuid.UUID) (entity.AssistantReply, error)

	LegacyOverview(ctx context.Context) (entity.LegacyOverview, error)
	OnboardSubDealer(ctx context.Context, in entity.NewSubDealer) (entity.SubDealer, error)
	LegacyMentor(ctx context.Context, question string) (entity.AssistantReply, error)
	PartnerBoard(ctx context.Context) (entity.PartnerBoard, error)
	CustomerAsset(ctx context.Context) (entity.CustomerAsset, error)
}

type Notifications interface {
	Current() (entity.Toast, bool)
	Dismiss()
}

type Handler struct {
	cfg           config.SessionConfig
	s             Service
	notifications Notifications
}

func NewHandler(cfg config.SessionConfig, s Service, notifications Notifications) *Handler {
	return &Handler{
		cfg:           cfg,
		s:             s,
		notifications: notifications,
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}

	return nil
}

func sessionID(ctx context.Context) uuid.UUID {
	id, _ := entity.SessionIDFromCtx(ctx)
	return id
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad id: %w", entity.ErrValidation, err)
	}

	return id, nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	sendJSON(r.Context(), w, http.StatusOK, h.s.Roles())
}

type StartSessionResponse struct {
	entity.SessionView
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, token, err := h.s.StartSession(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token.Token,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	sendJSON(ctx, w, http.StatusCreated, StartSessionResponse{
		SessionView: view,
		Token:       token.Token,
		ExpiresAt:   token.ExpiresAt,
	})
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.s.Session(ctx, sessionID(ctx))
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, view)
}

func (h *Handler) Navigation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.s.Navigation(ctx, sessionID(ctx))
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, items)
}

type SelectScreenRequest struct {
	ScreenID entity.ScreenID `json:"screen_id"`
}

func (h *Handler) SelectScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SelectScreenRequest

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	view, err := h.s.SelectScreen(ctx, sessionID(ctx), req.ScreenID)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, view)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.s.SignOut(ctx, sessionID(ctx))
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, view)
}

type RequestRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) RequestRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RequestRoleRequest

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	role, err := entity.ParseRole(req.Role)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	challenge, err := h.s.RequestRole(ctx, sessionID(ctx), role)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusCreated, challenge)
}

func (h *Handler) VerificationState(w http.ResponseWriter, r *http.Request) {
	h.challenge(w, r, h.s.VerificationState)
}

func (h *Handler) RefreshChallenge(w http.ResponseWriter, r *http.Request) {
	h.challenge(w, r, h.s.RefreshChallenge)
}

func (h *Handler) ResendCode(w http.ResponseWriter, r *http.Request) {
	h.challenge(w, r, h.s.ResendCode)
}

func (h *Handler) challenge(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, uuid.UUID) (entity.VerificationChallenge, error),
) {
	ctx := r.Context()

	challenge, err := op(ctx, sessionID(ctx))
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, challenge)
}

type SubmitChallengeRequest struct {
	Input string `json:"input"`
}

// ChallengeResponse carries the snapshot even when the attempt was rejected,
// so the client can show the new puzzle and the error text together.
type ChallengeResponse struct {
	Challenge entity.VerificationChallenge `json:"challenge"`
	Message   string                       `json:"message,omitempty"`
}

func (h *Handler) SubmitChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitChallengeRequest

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	challenge, err := h.s.SubmitChallenge(ctx, sessionID(ctx), req.Input)
	if err != nil {
		if challenge.Identifier == "" {
			sendServiceErr(ctx, w, err)
			return
		}

		sendJSON(ctx, w, http.StatusUnprocessableEntity, ChallengeResponse{
			Challenge: challenge,
			Message:   validationText(err),
		})

		return
	}

	sendJSON(ctx, w, http.StatusOK, ChallengeResponse{Challenge: challenge})
}

type EnterDigitRequest struct {
	Value string `json:"value"`
}

type EnterDigitResponse struct {
	Challenge entity.VerificationChallenge `json:"challenge"`
	Focus     int                          `json:"focus"`
}

func (h *Handler) EnterDigit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		sendServiceErr(ctx, w, fmt.Errorf("%w: bad digit index: %w", entity.ErrValidation, err))
		return
	}

	var req EnterDigitRequest

	err = decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	challenge, focus, err := h.s.EnterDigit(ctx, sessionID(ctx), index, req.Value)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, EnterDigitResponse{Challenge: challenge, Focus: focus})
}

func (h *Handler) SubmitOneTimeCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.s.SubmitOneTimeCode(ctx, sessionID(ctx))
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, view)
}

func (h *Handler) CancelVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, err := h.s.CancelVerification(ctx, sessionID(ctx))
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, view)
}

func (h *Handler) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	m, err := h.s.DashboardMetrics(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, m)
}

func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	deepThink, _ := strconv.ParseBool(q.Get("deep_think"))

	reply, err := h.s.Insights(ctx, entity.ParseLanguage(q.Get("language")), deepThink)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, reply)
}

func (h *Handler) Leads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := entity.LeadFilter{Search: strings.TrimSpace(q.Get("search"))}

	if v := q.Get("stage"); v != "" {
		stage := entity.LeadStage(v)
		if !stage.Valid() {
			sendServiceErr(ctx, w, fmt.Errorf("%w: unknown stage %q", entity.ErrValidation, v))
			return
		}

		filter.Stage = &stage
	}

	if v := q.Get("assigned_to"); v != "" {
		filter.AssignedTo = &v
	}

	leads, err := h.s.Leads(ctx, filter)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, leads)
}

func (h *Handler) AddInquiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req entity.LeadInquiry

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	lead, err := h.s.AddInquiry(ctx, req)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusCreated, lead)
}

func (h *Handler) ScoreLeads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reply, err := h.s.ScoreLeads(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, reply)
}

func (h *Handler) AdvanceLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	lead, err := h.s.AdvanceLeadStage(ctx, id)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, lead)
}

type LeadMessageRequest struct {
	Message string `json:"message"`
}

func (h *Handler) SendLeadMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	var req LeadMessageRequest

	err = decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	err = h.s.SendLeadMessage(ctx, id, req.Message)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) LeadSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	reply, err := h.s.LeadSummary(ctx, id)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, reply)
}

func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	props, err := h.s.Inventory(ctx, entity.PropertyFilter{
		Project:   q.Get("project"),
		Type:      entity.PropertyType(q.Get("type")),
		Status:    entity.PropertyStatus(q.Get("status")),
		UnitQuery: strings.TrimSpace(q.Get("unit")),
	})
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, props)
}

func (h *Handler) InventoryHeatmap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cells, err := h.s.InventoryHeatmap(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, cells)
}

type PropertyStatusRequest struct {
	Status entity.PropertyStatus `json:"status"`
}

func (h *Handler) UpdatePropertyStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	var req PropertyStatusRequest

	err = decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	prop, err := h.s.UpdatePropertyStatus(ctx, id, req.Status)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, prop)
}

func (h *Handler) PublishToWeb(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	prop, err := h.s.PublishToWeb(ctx, id)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, prop)
}

func (h *Handler) Landmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := pathID(r)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	landmarks, err := h.s.FindLandmarks(ctx, id)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, landmarks)
}

type ChatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		sendServiceErr(ctx, w, fmt.Errorf("%w: empty message", entity.ErrValidation))
		return
	}

	reply, err := h.s.Chat(ctx, sessionID(ctx), req.Message, entity.ParseLanguage(req.Language))
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, reply)
}

type EditImageRequest struct {
	Image  string `json:"image"`
	Prompt string `json:"prompt"`
}

func (h *Handler) EditImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EditImageRequest

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	reply, err := h.s.EditImage(ctx, req.Image, req.Prompt)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, reply)
}

func (h *Handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EditImageRequest

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	reply, err := h.s.AnalyzeImage(ctx, req.Image)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, reply)
}

type AnalyzeVideoRequest struct {
	VideoURI string `json:"video_uri"`
}

func (h *Handler) AnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AnalyzeVideoRequest

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	if strings.TrimSpace(req.VideoURI) == "" {
		sendServiceErr(ctx, w, fmt.Errorf("%w: empty video uri", entity.ErrValidation))
		return
	}

	reply, err := h.s.AnalyzeVideo(ctx, req.VideoURI)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, reply)
}

func (h *Handler) LegacyOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	o, err := h.s.LegacyOverview(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, o)
}

func (h *Handler) OnboardSubDealer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req entity.NewSubDealer

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	d, err := h.s.OnboardSubDealer(ctx, req)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusCreated, d)
}

type MentorRequest struct {
	Question string `json:"question"`
}

func (h *Handler) LegacyMentor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MentorRequest

	err := decode(w, r, &req)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, errBadRequestText)
		return
	}

	reply, err := h.s.LegacyMentor(ctx, req.Question)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, reply)
}

func (h *Handler) PartnerBoard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	board, err := h.s.PartnerBoard(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, board)
}

func (h *Handler) CustomerAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	a, err := h.s.CustomerAsset(ctx)
	if err != nil {
		sendServiceErr(ctx, w, err)
		return
	}

	sendJSON(ctx, w, http.StatusOK, a)
}

func (h *Handler) Notification(w http.ResponseWriter, r *http.Request) {
	toast, ok := h.notifications.Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	sendJSON(r.Context(), w, http.StatusOK, toast)
}

func (h *Handler) DismissNotification(w http.ResponseWriter, _ *http.Request) {
	h.notifications.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}
