package verification

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
)

// Hooks are invoked without the flow lock held. An error from OnVerified
// replaces the successful result.
type Hooks struct {
	OnVerified  func() error
	OnRejected  func(input string)
	OnCancelled func()
}

type countdown struct {
	ticker clockwork.Ticker
	done   chan struct{}
}

type submission struct {
	timer  clockwork.Timer
	input  string
	result chan entity.VerificationResult
}

// Flow is the two-step challenge then one-time-code gate of a single
// session. Every timer it starts is owned by the flow and stopped when the
// flow leaves the one-time-code step.
type Flow struct {
	mu    sync.Mutex
	cfg   config.VerificationConfig
	clock clockwork.Clock
	hooks Hooks

	identifier string
	step       entity.VerificationStep
	challenge  string
	attempt    string
	digits     [entity.OneTimeCodeSlots]string
	remaining  int
	failures   int
	lastErr    string

	cd      *countdown
	pending *submission
}

func New(cfg config.VerificationConfig, clock clockwork.Clock, identifier string, hooks Hooks) (*Flow, error) {
	f := &Flow{
		cfg:        cfg,
		clock:      clock,
		hooks:      hooks,
		identifier: identifier,
		step:       entity.StepChallenge,
	}

	code, err := f.generateChallenge("")
	if err != nil {
		return nil, err
	}

	f.challenge = code

	return f, nil
}

func (f *Flow) Step() entity.VerificationStep {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.step
}

func (f *Flow) Snapshot() entity.VerificationChallenge {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := entity.VerificationChallenge{
		Identifier:             f.identifier,
		Step:                   f.step,
		AttemptInput:           f.attempt,
		OneTimeInput:           append([]string(nil), f.digits[:]...),
		ExpiryCountdownSeconds: f.remaining,
		CanResend:              f.step == entity.StepOneTimeCode && f.remaining == 0,
		Submitting:             f.pending != nil,
		Failures:               f.failures,
		LastError:              f.lastErr,
	}

	if f.step == entity.StepChallenge {
		snap.ChallengeCode = f.challenge
	}

	return snap
}

func (f *Flow) SubmitChallenge(input string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != entity.StepChallenge {
		return fmt.Errorf("%w: challenge already passed or flow closed", entity.ErrState)
	}

	f.attempt = input

	if !strings.EqualFold(strings.TrimSpace(input), f.challenge) {
		code, err := f.generateChallenge(f.challenge)
		if err != nil {
			return err
		}

		f.challenge = code
		f.attempt = ""
		f.failures++
		f.lastErr = entity.ChallengeMismatchText

		return fmt.Errorf("%w: %w", entity.ErrValidation, entity.ErrChallengeMismatch)
	}

	f.lastErr = ""
	f.step = entity.StepOneTimeCode
	f.startCountdownLocked()

	return nil
}

func (f *Flow) RefreshChallenge() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != entity.StepChallenge {
		return fmt.Errorf("%w: challenge can only be refreshed before it is passed", entity.ErrState)
	}

	code, err := f.generateChallenge(f.challenge)
	if err != nil {
		return err
	}

	f.challenge = code
	f.attempt = ""
	f.lastErr = ""

	return nil
}

// EnterDigit stores one slot and returns the slot that should receive focus.
func (f *Flow) EnterDigit(index int, value string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != entity.StepOneTimeCode {
		return index, fmt.Errorf("%w: one-time code is not expected now", entity.ErrState)
	}

	if index < 0 || index >= entity.OneTimeCodeSlots {
		return index, fmt.Errorf("%w: slot %d out of range", entity.ErrValidation, index)
	}

	if value == "" {
		f.digits[index] = ""
		return index, nil
	}

	for _, r := range value {
		if r < '0' || r > '9' {
			return index, fmt.Errorf("%w: slot accepts digits only", entity.ErrValidation)
		}
	}

	f.digits[index] = value[len(value)-1:]

	if index < entity.OneTimeCodeSlots-1 {
		return index + 1, nil
	}

	return index, nil
}

// SubmitOneTimeCode schedules a single deferred evaluation. The returned
// channel receives exactly one result.
func (f *Flow) SubmitOneTimeCode() (<-chan entity.VerificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != entity.StepOneTimeCode {
		return nil, fmt.Errorf("%w: one-time code is not expected now", entity.ErrState)
	}

	if f.pending != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrConflict, entity.ErrSubmitPending)
	}

	code := strings.Join(f.digits[:], "")
	if len(code) != entity.OneTimeCodeSlots {
		return nil, fmt.Errorf("%w: %w", entity.ErrValidation, entity.ErrCodeIncomplete)
	}

	sub := &submission{
		input:  code,
		result: make(chan entity.VerificationResult, 1),
	}
	sub.timer = f.clock.AfterFunc(f.cfg.SubmitDelay, func() { f.evaluate(sub) })
	f.pending = sub

	return sub.result, nil
}

func (f *Flow) evaluate(sub *submission) {
	f.mu.Lock()

	if f.pending != sub || f.step != entity.StepOneTimeCode {
		f.mu.Unlock()
		return
	}

	f.pending = nil

	accepted := f.accepts(sub.input)
	if accepted {
		f.step = entity.StepVerified
		f.lastErr = ""
		f.stopCountdownLocked()
	} else {
		f.lastErr = entity.CodeRejectedText
	}

	f.mu.Unlock()

	if accepted {
		if f.hooks.OnVerified != nil {
			err := f.hooks.OnVerified()
			if err != nil {
				sub.result <- entity.VerificationResult{Err: err}
				return
			}
		}

		sub.result <- entity.VerificationResult{Verified: true}

		return
	}

	if f.hooks.OnRejected != nil {
		f.hooks.OnRejected(sub.input)
	}

	sub.result <- entity.VerificationResult{
		Err: fmt.Errorf("%w: %w", entity.ErrValidation, entity.ErrCodeRejected),
	}
}

func (f *Flow) accepts(code string) bool {
	for _, c := range f.cfg.AcceptedCodes {
		if c == code {
			return true
		}
	}

	return false
}

func (f *Flow) Resend() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != entity.StepOneTimeCode {
		return fmt.Errorf("%w: one-time code is not expected now", entity.ErrState)
	}

	if f.remaining > 0 {
		return fmt.Errorf("%w: %w: %ds left", entity.ErrState, entity.ErrResendNotReady, f.remaining)
	}

	f.lastErr = ""
	f.startCountdownLocked()

	return nil
}

func (f *Flow) Cancel() error {
	f.mu.Lock()

	if f.step != entity.StepChallenge && f.step != entity.StepOneTimeCode {
		f.mu.Unlock()
		return fmt.Errorf("%w: flow already %s", entity.ErrState, f.step)
	}

	f.stopCountdownLocked()

	pending := f.pending
	if pending != nil {
		pending.timer.Stop()
		f.pending = nil
	}

	f.step = entity.StepCancelled
	f.challenge = ""
	f.attempt = ""
	f.digits = [entity.OneTimeCodeSlots]string{}
	f.remaining = 0
	f.lastErr = ""

	f.mu.Unlock()

	if pending != nil {
		pending.result <- entity.VerificationResult{Err: fmt.Errorf("%w: verification cancelled", entity.ErrState)}
	}

	if f.hooks.OnCancelled != nil {
		f.hooks.OnCancelled()
	}

	return nil
}

// Close stops timers without invoking hooks.
func (f *Flow) Close() {
	f.mu.Lock()

	f.stopCountdownLocked()

	pending := f.pending
	if pending != nil {
		pending.timer.Stop()
		f.pending = nil
	}

	f.mu.Unlock()

	if pending != nil {
		pending.result <- entity.VerificationResult{Err: fmt.Errorf("%w: verification closed", entity.ErrState)}
	}
}

func (f *Flow) startCountdownLocked() {
	f.stopCountdownLocked()

	f.remaining = f.cfg.ResendSeconds
	if f.remaining <= 0 {
		return
	}

	cd := &countdown{
		ticker: f.clock.NewTicker(time.Second),
		done:   make(chan struct{}),
	}
	f.cd = cd

	go f.runCountdown(cd)
}

func (f *Flow) stopCountdownLocked() {
	if f.cd == nil {
		return
	}

	close(f.cd.done)
	f.cd = nil
}

func (f *Flow) runCountdown(cd *countdown) {
	defer cd.ticker.Stop()

	for {
		select {
		case <-cd.done:
			return
		case <-cd.ticker.Chan():
		}

		f.mu.Lock()

		if f.cd != cd {
			f.mu.Unlock()
			return
		}

		f.remaining--

		finished := f.remaining <= 0
		if finished {
			f.remaining = 0
			f.cd = nil
		}

		f.mu.Unlock()

		if finished {
			return
		}
	}
}

func (f *Flow) generateChallenge(previous string) (string, error) {
	for {
		code, err := RandomCode(f.cfg.Alphabet, f.cfg.ChallengeLength)
		if err != nil {
			return "", err
		}

		if code != previous {
			return code, nil
		}
	}
}

func RandomCode(alphabet string, length int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))

	var sb strings.Builder

	sb.Grow(length)

	for range length {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate challenge: %w", err)
		}

		sb.WriteByte(alphabet[n.Int64()])
	}

	return sb.String(), nil
}
