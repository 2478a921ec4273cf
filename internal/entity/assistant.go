package entity

import "strings"

type Language string

const (
	LanguageEnglish Language = "English"
	LanguageHindi   Language = "Hindi"
	LanguageKannada Language = "Kannada"
	LanguageTelugu  Language = "Telugu"
	LanguageTamil   Language = "Tamil"
	LanguageMarathi Language = "Marathi"
)

func Languages() []Language {
	return []Language{LanguageEnglish, LanguageHindi, LanguageKannada, LanguageTelugu, LanguageTamil, LanguageMarathi}
}

// ParseLanguage falls back to English for empty or unknown input.
func ParseLanguage(s string) Language {
	for _, l := range Languages() {
		if strings.EqualFold(string(l), strings.TrimSpace(s)) {
			return l
		}
	}

	return LanguageEnglish
}

type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

type Image struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type AssistantReply struct {
	Text        string `json:"text"`
	Image       *Image `json:"image,omitempty"`
	Unavailable bool   `json:"unavailable,omitempty"`
}

const (
	ChatUnavailableText      = "Assistant is unavailable right now. Please try again shortly."
	InsightsUnavailableText  = "Insights unavailable."
	AnalysisUnavailableText  = "Analysis failed."
	SummaryUnavailableText   = "No summary."
	ScoringUnavailableText   = "Lead scoring is unavailable right now."
	EditUnavailableText      = "Image editing is unavailable right now."
	LandmarksUnavailableText = "Landmark lookup is unavailable right now."
	MentorUnavailableText    = "My apologies, Partner. I encountered a minor data synchronization issue. Please try again."
)
