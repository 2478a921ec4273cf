package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

type VerificationStep string

const (
	StepChallenge    VerificationStep = "CHALLENGE"
	StepOneTimeCode  VerificationStep = "ONE_TIME_CODE"
	StepVerified     VerificationStep = "VERIFIED"
	StepCancelled    VerificationStep = "CANCELLED"
	OneTimeCodeSlots                  = 6
)

const (
	ChallengeMismatchText = "Invalid CAPTCHA code. Please try again."
	CodeRejectedText      = "Invalid OTP code. Please use the demo code 123456."
)

type VerificationChallenge struct {
	Identifier             string           `json:"identifier"`
	Step                   VerificationStep `json:"step"`
	ChallengeCode          string           `json:"challenge_code,omitempty"`
	AttemptInput           string           `json:"attempt_input"`
	OneTimeInput           []string         `json:"one_time_input"`
	ExpiryCountdownSeconds int              `json:"expiry_countdown_seconds"`
	CanResend              bool             `json:"can_resend"`
	Submitting             bool             `json:"submitting"`
	Failures               int              `json:"failures"`
	LastError              string           `json:"last_error,omitempty"`
}

type VerificationResult struct {
	Verified bool
	Err      error
}

type AttemptStep string

const (
	AttemptStepChallenge   AttemptStep = "challenge"
	AttemptStepOneTimeCode AttemptStep = "one_time_code"
)

type Attempt struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Role      Role
	Step      AttemptStep
	Success   bool
	InputHash string
	IPAddress string
	CreatedAt time.Time
}
