package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"time"

	"github.com/emisoft/buzon/core"
)

var (
	nowFunc = time.Now // mockable

	// errors
	ErrSessionNotFound = errors.New("session not found")
	ErrNotPending      = errors.New("no pending verification in session")
	ErrCodeMismatch    = errors.New("incorrect passcode")
	ErrCodeExpired     = errors.New("passcode expired")
	ErrTooManyAttempts = errors.New("too many failed attempts")
)

// Session is the ephemeral per-visitor verification state. Exactly three
// meaningful fields: the pending passcode, the email it was issued to and
// the verified flag. IssuedAt/Attempts only exist to back the optional
// throttling hooks and stay zero when those are disabled.
type Session struct {
	PendingCode  string    `json:"pending_code,omitempty"`
	PendingEmail string    `json:"pending_email,omitempty"`
	Verified     bool      `json:"verified"`
	IssuedAt     time.Time `json:"issued_at,omitempty"`
	Attempts     int       `json:"attempts,omitempty"`
}

// Pending reports whether a passcode is awaiting confirmation.
func (s Session) Pending() bool { return s.PendingEmail != "" && s.PendingCode != "" }

// SessionStore keeps Sessions keyed by an opaque visitor id; the cookie only
// ever carries the id.
type SessionStore interface {
	// Get returns ErrSessionNotFound when no session exists for sid.
	Get(ctx context.Context, sid string) (Session, error)
	Save(ctx context.Context, sid string, s Session) error
	Delete(ctx context.Context, sid string) error
}

// AccessRequest is the email submission opening the verification flow.
type AccessRequest struct {
	Email string `json:"email" form:"email" validate:"required,email,edu_email"`
}

func (ar *AccessRequest) Validate() error {
	ar.Email = core.CleanString(ar.Email, true /* lower */)
	return core.Validate.Struct(ar)
}

// Gate implements the one-time-passcode access flow:
// anonymous → pending_verification → verified → (logout) anonymous.
type Gate struct {
	store   SessionStore
	mailSvc core.EmailService
	logger  core.Logger
}

func NewGate(store SessionStore, mailSvc core.EmailService, logger core.Logger) *Gate {
	return &Gate{store: store, mailSvc: mailSvc, logger: logger}
}

// Current returns the visitor's session, zero-valued when none exists.
func (g *Gate) Current(ctx context.Context, sid string) (Session, error) {
	sess, err := g.store.Get(ctx, sid)
	if err != nil {
		if err == ErrSessionNotFound {
			return Session{}, nil
		}
		return Session{}, err
	}
	return sess, nil
}

// RequestAccess validates the institutional email, issues a fresh 6-digit
// passcode bound to it and emails it to the visitor. The delivery is
// synchronous: without the code the visitor cannot proceed, so a transport
// failure is surfaced to the caller.
func (g *Gate) RequestAccess(ctx context.Context, sid string, ar AccessRequest) error {
	if err := ar.Validate(); err != nil {
		return err
	}

	code, err := GeneratePasscode()
	if err != nil {
		return err
	}
	sess := Session{
		PendingCode:  code,
		PendingEmail: ar.Email,
		IssuedAt:     nowFunc().UTC(),
	}
	if err = g.store.Save(ctx, sid, sess); err != nil {
		return err
	}

	return g.mailSvc.SendMessagesSync(&core.EmailMessage{
		To:           []mail.Address{{Address: ar.Email}},
		Subject:      "Código de verificación",
		TemplateName: "passcode",
		TemplateData: map[string]interface{}{"Passcode": code},
	})
}

// SubmitPasscode compares the submitted code against the pending one.
// On match the verified flag flips and the passcode is cleared: a matched
// code can never be replayed. On mismatch the pending state is left intact,
// the same code stays valid for further attempts (weak throttling is a known
// policy choice; PasscodeTTL/MaxAttempts in config tighten it when set).
func (g *Gate) SubmitPasscode(ctx context.Context, sid, code string) error {
	sess, err := g.store.Get(ctx, sid)
	if err != nil {
		if err == ErrSessionNotFound {
			return ErrNotPending
		}
		return err
	}
	if !sess.Pending() {
		return ErrNotPending
	}

	conf := core.Conf.OTP
	if conf.PasscodeTTL > 0 && nowFunc().UTC().Sub(sess.IssuedAt) > conf.PasscodeTTL {
		_ = g.store.Delete(ctx, sid)
		return ErrCodeExpired
	}
	if conf.MaxAttempts > 0 && sess.Attempts >= conf.MaxAttempts {
		_ = g.store.Delete(ctx, sid)
		return ErrTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(sess.PendingCode)) == 1 {
		sess.Verified = true
		sess.PendingCode = "" // single-use
		sess.Attempts = 0
		return g.store.Save(ctx, sid, sess)
	}

	sess.Attempts++
	if err = g.store.Save(ctx, sid, sess); err != nil {
		return err
	}
	return ErrCodeMismatch
}

// Logout clears all session fields unconditionally.
func (g *Gate) Logout(ctx context.Context, sid string) error {
	if err := g.store.Delete(ctx, sid); err != nil && err != ErrSessionNotFound {
		return err
	}
	return nil
}

// GeneratePasscode returns a uniform random 6-digit numeric passcode,
// leading zeros preserved.
func GeneratePasscode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NewSessionID returns a random opaque visitor id for the session cookie.
func NewSessionID() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
