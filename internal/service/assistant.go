package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/metrics"
)

const landmarkCity = "Bangalore"

// degrade reports whether err is an upstream failure that should be shown as
// a fallback text instead of an error.
func degrade(ctx context.Context, op string, err error) bool {
	metrics.AssistantCall(op, err)

	if err == nil || !errors.Is(err, entity.ErrExternalService) {
		return false
	}

	slog.ErrorContext(ctx, "assistant call failed", "operation", op, "error", err)

	return true
}

func (s *Service) Chat(ctx context.Context, sessionID uuid.UUID, message string, language entity.Language) (entity.AssistantReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return entity.AssistantReply{}, fmt.Errorf("%w: message is empty", entity.ErrValidation)
	}

	history := s.chatHistory(ctx, sessionID)

	text, err := s.ai.Chat(ctx, history, message, language)
	if degrade(ctx, "chat", err) {
		return entity.AssistantReply{Text: entity.ChatUnavailableText, Unavailable: true}, nil
	}

	if err != nil {
		return entity.AssistantReply{}, err
	}

	s.appendChat(ctx, sessionID,
		entity.ChatMessage{Role: entity.ChatRoleUser, Text: message},
		entity.ChatMessage{Role: entity.ChatRoleModel, Text: text},
	)

	return entity.AssistantReply{Text: text}, nil
}

func (s *Service) Insights(ctx context.Context, language entity.Language, deepThink bool) (entity.AssistantReply, error) {
	m, err := s.DashboardMetrics(ctx)
	if err != nil {
		return entity.AssistantReply{}, err
	}

	text, err := s.ai.Insights(ctx, m, language, deepThink)
	if degrade(ctx, "insights", err) {
		return entity.AssistantReply{Text: entity.InsightsUnavailableText, Unavailable: true}, nil
	}

	if err != nil {
		return entity.AssistantReply{}, err
	}

	return entity.AssistantReply{Text: text}, nil
}

func (s *Service) EditImage(ctx context.Context, image, prompt string) (entity.AssistantReply, error) {
	img, err := ParseImage(image)
	if err != nil {
		return entity.AssistantReply{}, err
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return entity.AssistantReply{}, fmt.Errorf("%w: prompt is empty", entity.ErrValidation)
	}

	edited, err := s.ai.EditImage(ctx, img, prompt)
	if degrade(ctx, "edit_image", err) {
		return entity.AssistantReply{Text: entity.EditUnavailableText, Unavailable: true}, nil
	}

	if err != nil {
		return entity.AssistantReply{}, err
	}

	return entity.AssistantReply{Image: &edited}, nil
}

func (s *Service) AnalyzeImage(ctx context.Context, image string) (entity.AssistantReply, error) {
	img, err := ParseImage(image)
	if err != nil {
		return entity.AssistantReply{}, err
	}

	text, err := s.ai.AnalyzeImage(ctx, img)
	if degrade(ctx, "analyze_image", err) {
		return entity.AssistantReply{Text: entity.AnalysisUnavailableText, Unavailable: true}, nil
	}

	if err != nil {
		return entity.AssistantReply{}, err
	}

	return entity.AssistantReply{Text: text}, nil
}

func (s *Service) AnalyzeVideo(ctx context.Context, videoURI string) (entity.AssistantReply, error) {
	videoURI = strings.TrimSpace(videoURI)
	if videoURI == "" {
		return entity.AssistantReply{}, fmt.Errorf("%w: video uri is empty", entity.ErrValidation)
	}

	text, err := s.ai.AnalyzeVideo(ctx, videoURI)
	if degrade(ctx, "analyze_video", err) {
		return entity.AssistantReply{Text: entity.AnalysisUnavailableText, Unavailable: true}, nil
	}

	if err != nil {
		return entity.AssistantReply{}, err
	}

	return entity.AssistantReply{Text: text}, nil
}

func (s *Service) FindLandmarks(ctx context.Context, propertyID uuid.UUID) (entity.Landmarks, error) {
	p, err := s.crm.PropertyByID(ctx, propertyID)
	if err != nil {
		return entity.Landmarks{}, fmt.Errorf("get property: %w", err)
	}

	res, err := s.ai.FindLandmarks(ctx, p.Project+", "+landmarkCity)
	if degrade(ctx, "find_landmarks", err) {
		return entity.Landmarks{Text: entity.LandmarksUnavailableText, Citations: []entity.Citation{}, Unavailable: true}, nil
	}

	if err != nil {
		return entity.Landmarks{}, err
	}

	return res, nil
}

func (s *Service) LeadSummary(ctx context.Context, leadID uuid.UUID) (entity.AssistantReply, error) {
	lead, err := s.crm.LeadByID(ctx, leadID)
	if err != nil {
		return entity.AssistantReply{}, fmt.Errorf("get lead: %w", err)
	}

	text, err := s.ai.LeadSummary(ctx, lead)
	if degrade(ctx, "lead_summary", err) {
		return entity.AssistantReply{Text: entity.SummaryUnavailableText, Unavailable: true}, nil
	}

	if err != nil {
		return entity.AssistantReply{}, err
	}

	return entity.AssistantReply{Text: text}, nil
}

func (s *Service) LegacyMentor(ctx context.Context, question string) (entity.AssistantReply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return entity.AssistantReply{}, fmt.Errorf("%w: question is empty", entity.ErrValidation)
	}

	text, err := s.ai.LegacyMentor(ctx, question)
	if degrade(ctx, "legacy_mentor", err) {
		return entity.AssistantReply{Text: entity.MentorUnavailableText, Unavailable: true}, nil
	}

	if err != nil {
		return entity.AssistantReply{}, err
	}

	return entity.AssistantReply{Text: text}, nil
}

// ParseImage accepts a data URL or raw base64 payload. Raw payloads are
// treated as JPEG.
func ParseImage(raw string) (entity.Image, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entity.Image{}, fmt.Errorf("%w: image is empty", entity.ErrValidation)
	}

	if !strings.HasPrefix(raw, "data:") {
		return entity.Image{MimeType: "image/jpeg", Data: raw}, nil
	}

	header, data, ok := strings.Cut(raw, ",")
	if !ok || data == "" {
		return entity.Image{}, fmt.Errorf("%w: malformed data url", entity.ErrValidation)
	}

	mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !strings.HasPrefix(mime, "image/") {
		return entity.Image{}, fmt.Errorf("%w: unsupported media type %q", entity.ErrValidation, mime)
	}

	return entity.Image{MimeType: mime, Data: data}, nil
}
