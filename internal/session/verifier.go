package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"goal-stories/internal/models"

	"github.com/rs/zerolog"
)

// Outcome is the internal classification of one verification attempt. It is
// reported to observers and logs and never reaches a response body.
type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeNoCookie         Outcome = "no_cookie"
	OutcomeSignatureInvalid Outcome = "signature_invalid"
	OutcomeCookieExpired    Outcome = "cookie_expired"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeRecordExpired    Outcome = "record_expired"
	OutcomeStoreError       Outcome = "store_error"
)

// Observer receives the outcome of every verification.
type Observer interface {
	ObserveVerification(Outcome)
}

type VerifierOptions struct {
	// AutoError makes Verify reject requests without a valid session. When
	// false such requests pass through with a nil session.
	AutoError bool
	// StoreTimeout bounds every store call made while verifying.
	StoreTimeout time.Duration
	Observer     Observer
	Logger       zerolog.Logger
	Now          func() time.Time
}

type Verifier struct {
	transport    *Transport
	store        Store
	autoError    bool
	storeTimeout time.Duration
	observer     Observer
	log          zerolog.Logger
	now          func() time.Time
}

func NewVerifier(transport *Transport, store Store, opts VerifierOptions) *Verifier {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Verifier{
		transport:    transport,
		store:        store,
		autoError:    opts.AutoError,
		storeTimeout: timeout,
		observer:     opts.Observer,
		log:          opts.Logger,
		now:          now,
	}
}

func (v *Verifier) AutoError() bool {
	return v.autoError
}

// Verify resolves the session carried by r.
//
// With AutoError it returns ErrNoCookie when no cookie was sent and an
// *AuthError for every other rejection. Without AutoError both cases return
// (nil, nil). Store failures are returned as they are in both modes.
func (v *Verifier) Verify(r *http.Request) (*models.Session, error) {
	s, err := v.check(r)
	if err == nil {
		return s, nil
	}

	if !errors.Is(err, ErrNoCookie) && !IsAuthError(err) {
		return nil, err
	}
	if !v.autoError {
		return nil, nil
	}
	return nil, err
}

// Current is Verify without AutoError: a missing or rejected session gives
// (nil, nil).
func (v *Verifier) Current(r *http.Request) (*models.Session, error) {
	s, err := v.check(r)
	if err == nil {
		return s, nil
	}
	if errors.Is(err, ErrNoCookie) || IsAuthError(err) {
		return nil, nil
	}
	return nil, err
}

func (v *Verifier) check(r *http.Request) (*models.Session, error) {
	id, err := v.transport.Extract(r)
	switch {
	case errors.Is(err, ErrNoCookie):
		v.report(r, OutcomeNoCookie, nil)
		return nil, ErrNoCookie
	case errors.Is(err, ErrExpired):
		v.report(r, OutcomeCookieExpired, nil)
		return nil, &AuthError{reason: ErrExpired}
	case err != nil:
		v.report(r, OutcomeSignatureInvalid, nil)
		return nil, &AuthError{reason: ErrSignatureInvalid}
	}

	ctx, cancel := context.WithTimeout(r.Context(), v.storeTimeout)
	defer cancel()

	s, err := v.store.Read(ctx, id)
	if errors.Is(err, ErrNotFound) {
		v.report(r, OutcomeNotFound, nil)
		return nil, &AuthError{reason: ErrNotFound}
	}
	if err != nil {
		v.report(r, OutcomeStoreError, nil)
		return nil, err
	}

	if s.ExpiredAt(v.now()) {
		if err := v.store.Delete(ctx, s.ID); err != nil {
			v.report(r, OutcomeStoreError, s)
			return nil, err
		}
		v.report(r, OutcomeRecordExpired, s)
		return nil, &AuthError{reason: ErrRecordExpired}
	}

	v.report(r, OutcomeAccepted, s)
	return s, nil
}

func (v *Verifier) report(r *http.Request, outcome Outcome, s *models.Session) {
	if v.observer != nil {
		v.observer.ObserveVerification(outcome)
	}

	ev := v.log.Debug().Str("outcome", string(outcome)).Str("path", r.URL.Path)
	if s != nil {
		ev = ev.Object("session", s)
	}
	ev.Msg("session verification")
}
