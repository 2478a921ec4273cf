package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
	"github.com/SaiWorkProfile/manortha-website/pkg/transport"
)

const (
	defaultRetryWaitMax = 5 * time.Second
	deepThinkBudget     = 32768
	maxErrorBody        = 4096
)

var (
	ErrAPIKeyMissing = errors.New("api key is not configured")
	ErrEmptyResponse = errors.New("empty response")
)

// Client talks to the Gemini generateContent REST endpoint.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	models  config.GenAIConfig
}

func NewClient(cfg config.GenAIConfig) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryAttempts
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = defaultRetryWaitMax
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.HTTPClient.Transport = transport.NewLoggingRoundTripper(retryClient.HTTPClient.Transport)
	retryClient.Logger = nil

	return &Client{
		client:  retryClient.StandardClient(),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		models:  cfg,
	}
}

func (c *Client) generate(ctx context.Context, op, model string, req generateRequest) (generateResponse, error) {
	var res generateResponse

	if c.apiKey == "" {
		return res, &entity.ExternalServiceError{Operation: op, Err: ErrAPIKeyMissing}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return res, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return res, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return res, &entity.ExternalServiceError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return res, &entity.ExternalServiceError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Err:        decodeAPIError(resp),
		}
	}

	err = json.NewDecoder(resp.Body).Decode(&res)
	if err != nil {
		return res, &entity.ExternalServiceError{Operation: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return res, nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr apiError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}

	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

func (c *Client) generateText(ctx context.Context, op, model string, req generateRequest) (string, error) {
	res, err := c.generate(ctx, op, model, req)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(res.text())
	if text == "" {
		return "", &entity.ExternalServiceError{Operation: op, StatusCode: http.StatusOK, Err: ErrEmptyResponse}
	}

	return text, nil
}

func userText(text string) []content {
	return []content{{Role: "user", Parts: []part{{Text: text}}}}
}

func system(text string) *content {
	return &content{Parts: []part{{Text: text}}}
}

func (c *Client) Insights(ctx context.Context, data any, language entity.Language, deepThink bool) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal insights data: %w", err)
	}

	req := generateRequest{
		Contents: userText(fmt.Sprintf("Analyze performance data: %s. Provide 3 critical business insights.", payload)),
		SystemInstruction: system(fmt.Sprintf(
			"You are a senior executive advisor for a premier luxury real estate developer. Respond in %s.", language)),
	}

	model := c.models.FastModel
	if deepThink {
		model = c.models.ProModel
		req.GenerationConfig = &generationConfig{ThinkingConfig: &thinkingConfig{ThinkingBudget: deepThinkBudget}}
	}

	return c.generateText(ctx, "insights", model, req)
}

func (c *Client) EditImage(ctx context.Context, img entity.Image, prompt string) (entity.Image, error) {
	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: img.MimeType, Data: img.Data}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	res, err := c.generate(ctx, "edit_image", c.models.ImageModel, req)
	if err != nil {
		return entity.Image{}, err
	}

	out := res.inlineImage()
	if out == nil {
		return entity.Image{}, &entity.ExternalServiceError{Operation: "edit_image", StatusCode: http.StatusOK, Err: ErrEmptyResponse}
	}

	mime := out.MimeType
	if mime == "" {
		mime = "image/png"
	}

	return entity.Image{MimeType: mime, Data: out.Data}, nil
}

func (c *Client) AnalyzeImage(ctx context.Context, img entity.Image) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: img.MimeType, Data: img.Data}},
				{Text: "Analyze this architectural or construction site image."},
			},
		}},
	}

	return c.generateText(ctx, "analyze_image", c.models.ProModel, req)
}

func (c *Client) AnalyzeVideo(ctx context.Context, videoURI string) (string, error) {
	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{FileData: &fileData{MimeType: "video/mp4", FileURI: videoURI}},
				{Text: "Analyze this project footage and estimate progress percentage."},
			},
		}},
	}

	return c.generateText(ctx, "analyze_video", c.models.ProModel, req)
}

func (c *Client) FindLandmarks(ctx context.Context, location string) (entity.Landmarks, error) {
	req := generateRequest{
		Contents: userText(fmt.Sprintf("What are premium landmarks near %s?", location)),
		Tools:    []tool{{GoogleMaps: &struct{}{}}},
	}

	res, err := c.generate(ctx, "find_landmarks", c.models.MapsModel, req)
	if err != nil {
		return entity.Landmarks{}, err
	}

	out := entity.Landmarks{Text: strings.TrimSpace(res.text()), Citations: []entity.Citation{}}

	if len(res.Candidates) > 0 && res.Candidates[0].GroundingMetadata != nil {
		for _, ch := range res.Candidates[0].GroundingMetadata.GroundingChunks {
			src := ch.Maps
			if src == nil {
				src = ch.Web
			}

			if src == nil || src.URI == "" {
				continue
			}

			out.Citations = append(out.Citations, entity.Citation{Title: src.Title, URI: src.URI})
		}
	}

	return out, nil
}

func (c *Client) LeadSummary(ctx context.Context, lead entity.Lead) (string, error) {
	prompt := fmt.Sprintf("Quick summary of lead %s. Stage: %s. Budget: %s. Profession: %s. Location: %s. Engagements: %d.",
		lead.Name, lead.Stage, lead.Budget.StringFixed(0), lead.Profession, lead.Location, lead.TotalEngagements)

	return c.generateText(ctx, "lead_summary", c.models.LiteModel, generateRequest{Contents: userText(prompt)})
}

func (c *Client) ScoreLeads(ctx context.Context, leads []entity.Lead) ([]entity.LeadScore, error) {
	payload, err := json.Marshal(leads)
	if err != nil {
		return nil, fmt.Errorf("marshal leads: %w", err)
	}

	req := generateRequest{
		Contents: userText(fmt.Sprintf("Score these leads 0-100. Return JSON: %s", payload)),
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   leadScoreSchema,
		},
	}

	text, err := c.generateText(ctx, "score_leads", c.models.FastModel, req)
	if err != nil {
		return nil, err
	}

	var parsed leadScoring

	err = json.Unmarshal([]byte(text), &parsed)
	if err != nil {
		return nil, &entity.ExternalServiceError{Operation: "score_leads", StatusCode: http.StatusOK, Err: fmt.Errorf("decode scorings: %w", err)}
	}

	scores := make([]entity.LeadScore, 0, len(parsed.Scorings))

	for _, s := range parsed.Scorings {
		id, err := uuid.FromString(s.LeadID)
		if err != nil {
			continue
		}

		scores = append(scores, entity.LeadScore{
			LeadID: id,
			Score:  clampScore(s.Score),
			Reason: s.Reason,
		})
	}

	return scores, nil
}

func clampScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func (c *Client) Chat(ctx context.Context, history []entity.ChatMessage, message string, language entity.Language) (string, error) {
	contents := make([]content, 0, len(history)+1)

	for _, m := range history {
		contents = append(contents, content{Role: string(m.Role), Parts: []part{{Text: m.Text}}})
	}

	contents = append(contents, content{Role: string(entity.ChatRoleUser), Parts: []part{{Text: message}}})

	req := generateRequest{
		Contents: contents,
		SystemInstruction: system(fmt.Sprintf(
			"You are the Manortha Group Elite AI Concierge. Respond strictly in %s.", language)),
	}

	return c.generateText(ctx, "chat", c.models.FastModel, req)
}

const legacyProgramContext = `You are the Manortha Legacy Program Mentor.
Reference context:
- Legacy Partner: territorial franchise owner with exclusive pincode rights. One pincode, one partner.
- Qualification: sell 3 units within 90 days.
- Direct commission: 2.5%% during qualification, 3.5%% after activation.
- Network override: 0.5%% to 1.0%% on sub-dealer sales.
- Pincode monopoly: all local leads are directed to the partner.
- The business is a transferable family asset.
- RERA compliance is non-negotiable. Carpet area must be used for pricing.
- Terms: CLU (Change of Land Use), NOC (No Objection Certificate), FAR (Floor Area Ratio).

Question: %s`

// LegacyMentor answers a legacy partner's question against the program rules.
func (c *Client) LegacyMentor(ctx context.Context, question string) (string, error) {
	req := generateRequest{
		Contents: userText(fmt.Sprintf(legacyProgramContext, question)),
		SystemInstruction: system("You are a high-level real estate business consultant. " +
			"Speak like a business partner to a CEO, in Indian English, in the Manortha Group brand voice."),
	}

	return c.generateText(ctx, "legacy_mentor", c.models.FastModel, req)
}
