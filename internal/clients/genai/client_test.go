package genai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/SaiWorkProfile/manortha-website/internal/clients/genai"
	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
)

func testConfig(url string) config.GenAIConfig {
	return config.GenAIConfig{
		BaseURL:    url,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
		FastModel:  "fast",
		ProModel:   "pro",
		LiteModel:  "lite",
		ImageModel: "image",
		MapsModel:  "maps",
	}
}

func textResponse(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"role": "model", "parts": []any{map[string]any{"text": text}}}},
		},
	})

	return string(b)
}

type captured struct {
	path   string
	apiKey string
	body   map[string]any
}

func newServer(t *testing.T, status int, response string, got *captured) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		if got != nil {
			got.path = r.URL.Path
			got.apiKey = r.Header.Get("x-goog-api-key")
			require.NoError(t, json.Unmarshal(raw, &got.body))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestChatSendsHistoryAndLanguage(t *testing.T) {
	t.Parallel()

	var got captured

	srv := newServer(t, http.StatusOK, textResponse("  Welcome to Manortha.  "), &got)
	c := genai.NewClient(testConfig(srv.URL))

	history := []entity.ChatMessage{
		{Role: entity.ChatRoleUser, Text: "hi"},
		{Role: entity.ChatRoleModel, Text: "hello"},
	}

	text, err := c.Chat(context.Background(), history, "show villas", entity.LanguageHindi)
	require.NoError(t, err)
	require.Equal(t, "Welcome to Manortha.", text)

	require.Equal(t, "/models/fast:generateContent", got.path)
	require.Equal(t, "test-key", got.apiKey)

	contents, ok := got.body["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 3)

	sys, err := json.Marshal(got.body["systemInstruction"])
	require.NoError(t, err)
	require.Contains(t, string(sys), "Respond strictly in Hindi")
}

func TestInsightsDeepThinkUsesProModel(t *testing.T) {
	t.Parallel()

	var got captured

	srv := newServer(t, http.StatusOK, textResponse("1. 2. 3."), &got)
	c := genai.NewClient(testConfig(srv.URL))

	_, err := c.Insights(context.Background(), map[string]int{"units": 3}, entity.LanguageEnglish, true)
	require.NoError(t, err)
	require.Equal(t, "/models/pro:generateContent", got.path)

	gen, ok := got.body["generationConfig"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, gen, "thinkingConfig")
}

func TestScoreLeadsParsesAndClamps(t *testing.T) {
	t.Parallel()

	id := uuid.Must(uuid.NewV4())
	payload := `{"scorings":[{"leadId":"` + id.String() + `","score":140,"reason":"hot"},{"leadId":"bad","score":10,"reason":"x"}]}`

	var got captured

	srv := newServer(t, http.StatusOK, textResponse(payload), &got)
	c := genai.NewClient(testConfig(srv.URL))

	scores, err := c.ScoreLeads(context.Background(), []entity.Lead{{ID: id, Name: "A"}})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.Equal(t, id, scores[0].LeadID)
	require.Equal(t, 100, scores[0].Score)
	require.Equal(t, "hot", scores[0].Reason)

	gen, ok := got.body["generationConfig"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "application/json", gen["responseMimeType"])
}

func TestFindLandmarksCollectsCitations(t *testing.T) {
	t.Parallel()

	resp := `{"candidates":[{"content":{"parts":[{"text":"Golf course nearby"}]},
		"groundingMetadata":{"groundingChunks":[
			{"maps":{"uri":"https://maps.example/1","title":"Golf"}},
			{"web":{"uri":"https://web.example/2","title":"Mall"}},
			{"maps":{"uri":"","title":"empty"}}
		]}}]}`

	var got captured

	srv := newServer(t, http.StatusOK, resp, &got)
	c := genai.NewClient(testConfig(srv.URL))

	res, err := c.FindLandmarks(context.Background(), "Hyderabad")
	require.NoError(t, err)
	require.Equal(t, "Golf course nearby", res.Text)
	require.Equal(t, []entity.Citation{
		{Title: "Golf", URI: "https://maps.example/1"},
		{Title: "Mall", URI: "https://web.example/2"},
	}, res.Citations)

	tools, ok := got.body["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
}

func TestEditImageReturnsInlineData(t *testing.T) {
	t.Parallel()

	resp := `{"candidates":[{"content":{"parts":[{"text":"done"},{"inlineData":{"mimeType":"image/png","data":"aGVsbG8="}}]}}]}`

	srv := newServer(t, http.StatusOK, resp, nil)
	c := genai.NewClient(testConfig(srv.URL))

	img, err := c.EditImage(context.Background(), entity.Image{MimeType: "image/jpeg", Data: "eA=="}, "add a pool")
	require.NoError(t, err)
	require.Equal(t, entity.Image{MimeType: "image/png", Data: "aGVsbG8="}, img)
}

func TestEditImageWithoutImageFails(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusOK, textResponse("no image"), nil)
	c := genai.NewClient(testConfig(srv.URL))

	_, err := c.EditImage(context.Background(), entity.Image{MimeType: "image/jpeg", Data: "eA=="}, "x")
	require.ErrorIs(t, err, entity.ErrExternalService)
	require.ErrorIs(t, err, genai.ErrEmptyResponse)
}

func TestErrorStatusIsExternalServiceError(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, nil)
	c := genai.NewClient(testConfig(srv.URL))

	_, err := c.AnalyzeImage(context.Background(), entity.Image{MimeType: "image/jpeg", Data: "eA=="})
	require.ErrorIs(t, err, entity.ErrExternalService)

	var extErr *entity.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	require.Equal(t, http.StatusBadRequest, extErr.StatusCode)
	require.Equal(t, "analyze_image", extErr.Operation)
	require.True(t, strings.Contains(extErr.Error(), "API key not valid"))
}

func TestMissingAPIKeyFailsWithoutRequest(t *testing.T) {
	t.Parallel()

	cfg := testConfig("http://127.0.0.1:1")
	cfg.APIKey = ""

	_, err := genai.NewClient(cfg).LeadSummary(context.Background(), entity.Lead{Name: "A"})
	require.ErrorIs(t, err, entity.ErrExternalService)
	require.ErrorIs(t, err, genai.ErrAPIKeyMissing)
}

func TestEmptyTextIsError(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusOK, `{"candidates":[]}`, nil)
	c := genai.NewClient(testConfig(srv.URL))

	_, err := c.AnalyzeVideo(context.Background(), "gs://bucket/site.mp4")
	require.ErrorIs(t, err, genai.ErrEmptyResponse)
}

func TestLegacyMentorEmbedsProgramContext(t *testing.T) {
	t.Parallel()

	var got captured

	srv := newServer(t, http.StatusOK, textResponse("Sell two more units."), &got)
	c := genai.NewClient(testConfig(srv.URL))

	text, err := c.LegacyMentor(context.Background(), "How do I unlock the 3.5% commission?")
	require.NoError(t, err)
	require.Equal(t, "Sell two more units.", text)
	require.Equal(t, "/models/fast:generateContent", got.path)

	contents, err := json.Marshal(got.body["contents"])
	require.NoError(t, err)
	require.Contains(t, string(contents), "Legacy Program Mentor")
	require.Contains(t, string(contents), "How do I unlock the 3.5% commission?")
	require.Contains(t, got.body, "systemInstruction")
}
