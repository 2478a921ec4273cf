package genai

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
	FileData   *fileData   `json:"fileData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type fileData struct {
	MimeType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generationConfig struct {
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     any             `json:"responseSchema,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	ThinkingConfig     *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type tool struct {
	GoogleMaps *struct{} `json:"googleMaps,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
}

type groundingChunk struct {
	Web  *groundingSource `json:"web,omitempty"`
	Maps *groundingSource `json:"maps,omitempty"`
}

type groundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type candidate struct {
	Content           content `json:"content"`
	FinishReason      string  `json:"finishReason"`
	GroundingMetadata *struct {
		GroundingChunks []groundingChunk `json:"groundingChunks"`
	} `json:"groundingMetadata,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// text joins the text parts of the first candidate.
func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}

	var out string

	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}

	return out
}

func (r generateResponse) inlineImage() *inlineData {
	if len(r.Candidates) == 0 {
		return nil
	}

	for _, p := range r.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			return p.InlineData
		}
	}

	return nil
}

var leadScoreSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"scorings": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"leadId": map[string]any{"type": "STRING"},
					"score":  map[string]any{"type": "NUMBER"},
					"reason": map[string]any{"type": "STRING"},
				},
				"required": []string{"leadId", "score", "reason"},
			},
		},
	},
	"required": []string{"scorings"},
}

type leadScoring struct {
	Scorings []struct {
		LeadID string  `json:"leadId"`
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	} `json:"scorings"`
}
