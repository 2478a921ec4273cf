package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
	jwt "github.com/golang-jwt/jwt/v5"
)

type Session struct {
	ID                     uuid.UUID `json:"id"`
	ActiveRole             Role      `json:"active_role"`
	PendingRole            Role      `json:"pending_role"`
	ActiveScreenID         ScreenID  `json:"active_screen_id"`
	VerificationInProgress bool      `json:"verification_in_progress"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func NewSession(id uuid.UUID, now time.Time) Session {
	return Session{
		ID:             id,
		ActiveScreenID: ScreenWebsite,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

type SessionClaims struct {
	SessionID uuid.UUID `json:"sid"`
	jwt.RegisteredClaims
}

type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionView is what the portal shell renders.
type SessionView struct {
	Session    Session          `json:"session"`
	Navigation []NavigationItem `json:"navigation"`
	Redirected bool             `json:"redirected,omitempty"`
}
