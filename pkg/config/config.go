package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v7"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort         int    `env:"HTTP_PORT"          envDefault:"8080"`
	PostgresDSN      string `env:"POSTGRES_DSN"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	LogLevel         string `env:"LOG_LEVEL"          envDefault:"info"`
	TrustProxy       bool   `env:"HTTP_TRUST_PROXY"   envDefault:"false"`
	Session          SessionConfig
	Verification     VerificationConfig
	GenAI            GenAIConfig
	Kafka            KafkaConfig
	Mailer           MailerConfig
	Notifications    NotificationsConfig
}

type SessionConfig struct {
	Secret          string        `env:"SESSION_SECRET"`
	TTL             time.Duration `env:"SESSION_TTL"              envDefault:"12h"`
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`
	CookieName      string        `env:"SESSION_COOKIE_NAME"      envDefault:"portal_session"`
	SecureCookie    bool          `env:"SESSION_SECURE_COOKIE"    envDefault:"false"`
}

type VerificationConfig struct {
	ChallengeLength int           `env:"VERIFICATION_CHALLENGE_LENGTH" envDefault:"6"`
	Alphabet        string        `env:"VERIFICATION_ALPHABET"         envDefault:"ABCDEFGHJKLMNPQRSTUVWXYZ23456789"`
	AcceptedCodes   []string      `env:"VERIFICATION_ACCEPTED_CODES"   envDefault:"123456,000000" envSeparator:","`
	ResendSeconds   int           `env:"VERIFICATION_RESEND_SECONDS"   envDefault:"30"`
	SubmitDelay     time.Duration `env:"VERIFICATION_SUBMIT_DELAY"     envDefault:"1500ms"`
	RatePerSecond   float64       `env:"VERIFICATION_RATE_PER_SECOND"  envDefault:"5"`
	RateBurst       int           `env:"VERIFICATION_RATE_BURST"       envDefault:"10"`
}

type GenAIConfig struct {
	BaseURL       string        `env:"GENAI_BASE_URL"       envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	APIKey        string        `env:"GENAI_API_KEY"`
	Timeout       time.Duration `env:"GENAI_TIMEOUT"        envDefault:"30s"`
	RetryAttempts int           `env:"GENAI_RETRY_ATTEMPTS" envDefault:"2"`
	FastModel     string        `env:"GENAI_FAST_MODEL"     envDefault:"gemini-2.5-flash"`
	ProModel      string        `env:"GENAI_PRO_MODEL"      envDefault:"gemini-2.5-pro"`
	LiteModel     string        `env:"GENAI_LITE_MODEL"     envDefault:"gemini-2.5-flash-lite"`
	ImageModel    string        `env:"GENAI_IMAGE_MODEL"    envDefault:"gemini-2.5-flash-image"`
	MapsModel     string        `env:"GENAI_MAPS_MODEL"     envDefault:"gemini-2.5-flash"`
}

type KafkaConfig struct {
	Brokers       []string `env:"KAFKA_BROKERS"        envSeparator:","`
	OutboundTopic string   `env:"KAFKA_OUTBOUND_TOPIC" envDefault:"outbound-messages"`
	ConsumerID    string   `env:"KAFKA_CONSUMER_ID"    envDefault:"notifier"`
}

type MailerConfig struct {
	Host     string `env:"MAILER_HOST"`
	Port     int    `env:"MAILER_PORT"      envDefault:"587"`
	Login    string `env:"MAILER_LOGIN"`
	Password string `env:"MAILER_PASSWORD"`
	From     string `env:"MAILER_FROM"`
	FromName string `env:"MAILER_FROM_NAME" envDefault:"Manortha Estates"`
	Subject  string `env:"MAILER_SUBJECT"   envDefault:"Update from Manortha Estates"`
}

type NotificationsConfig struct {
	SendingDuration time.Duration `env:"TOAST_SENDING_DURATION" envDefault:"2s"`
	VisibleDuration time.Duration `env:"TOAST_VISIBLE_DURATION" envDefault:"3s"`
	BufferSize      int           `env:"EVENT_BUFFER_SIZE"      envDefault:"64"`
}

var (
	ErrSessionSecretMissing = errors.New("SESSION_SECRET is required")
	ErrAlphabetTooShort     = errors.New("verification alphabet needs at least two symbols")
)

func New(envPath string) (Config, error) {
	var c Config

	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	err = env.Parse(&c)
	if err != nil {
		return Config{}, err
	}

	err = c.validate()
	if err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) validate() error {
	if c.Session.Secret == "" {
		return ErrSessionSecretMissing
	}

	if len(c.Verification.Alphabet) < 2 {
		return ErrAlphabetTooShort
	}

	if c.Verification.ChallengeLength <= 0 {
		return fmt.Errorf("invalid VERIFICATION_CHALLENGE_LENGTH: %d", c.Verification.ChallengeLength)
	}

	return nil
}

// KafkaEnabled reports whether outbound events should leave the process.
func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
