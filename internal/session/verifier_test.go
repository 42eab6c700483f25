package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"goal-stories/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (o *recordingObserver) ObserveVerification(outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) last() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.outcomes) == 0 {
		return ""
	}
	return o.outcomes[len(o.outcomes)-1]
}

type failingStore struct {
	err error
}

func (f *failingStore) Create(ctx context.Context, s *models.Session) error { return f.err }
func (f *failingStore) Read(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return nil, f.err
}
func (f *failingStore) Delete(ctx context.Context, id uuid.UUID) error { return f.err }

type verifierFixture struct {
	clock     *testClock
	transport *Transport
	store     *MemoryStore
	observer  *recordingObserver
	verifier  *Verifier
}

func newVerifierFixture(t *testing.T, autoError bool) *verifierFixture {
	clock := newTestClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	tr := newTestTransport(t, clock)
	store := NewMemoryStore()
	observer := &recordingObserver{}

	v := NewVerifier(tr, store, VerifierOptions{
		AutoError: autoError,
		Observer:  observer,
		Logger:    zerolog.Nop(),
		Now:       clock.Now,
	})

	return &verifierFixture{
		clock:     clock,
		transport: tr,
		store:     store,
		observer:  observer,
		verifier:  v,
	}
}

func (f *verifierFixture) createSession(t *testing.T, userID int64, name string, ttl time.Duration) (*models.Session, string) {
	s, err := models.NewSession(userID, name, f.clock.Now(), ttl)
	require.NoError(t, err)
	require.NoError(t, f.store.Create(context.Background(), s))

	value, err := f.transport.Encode(s.ID)
	require.NoError(t, err)
	return s, value
}

func (f *verifierFixture) request(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: f.transport.CookieName(), Value: value})
	}
	return req
}

func TestVerifier_Accepts(t *testing.T) {
	f := newVerifierFixture(t, true)
	s, value := f.createSession(t, 42, "alice", 5*time.Minute)

	got, err := f.verifier.Verify(f.request(value))
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)
	require.Equal(t, int64(42), got.UserID)
	require.Equal(t, "alice", got.DisplayName)
	require.Equal(t, OutcomeAccepted, f.observer.last())
}

func TestVerifier_NoCookie(t *testing.T) {
	f := newVerifierFixture(t, true)

	_, err := f.verifier.Verify(f.request(""))
	require.ErrorIs(t, err, ErrNoCookie)
	require.False(t, IsAuthError(err))
	require.Equal(t, OutcomeNoCookie, f.observer.last())

	passThrough := newVerifierFixture(t, false)
	s, err := passThrough.verifier.Verify(passThrough.request(""))
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestVerifier_RejectionsAreIndistinguishable(t *testing.T) {
	f := newVerifierFixture(t, true)

	_, valid := f.createSession(t, 42, "alice", time.Hour)
	tampered := []byte(valid)
	tampered[len(tampered)-3] ^= 0x01

	revoked, revokedValue := f.createSession(t, 43, "bob", time.Hour)
	require.NoError(t, f.store.Delete(context.Background(), revoked.ID))

	_, errTampered := f.verifier.Verify(f.request(string(tampered)))
	require.True(t, IsAuthError(errTampered))
	require.ErrorIs(t, errTampered, ErrSignatureInvalid)
	require.Equal(t, OutcomeSignatureInvalid, f.observer.last())

	_, errRevoked := f.verifier.Verify(f.request(revokedValue))
	require.True(t, IsAuthError(errRevoked))
	require.ErrorIs(t, errRevoked, ErrNotFound)
	require.Equal(t, OutcomeNotFound, f.observer.last())

	require.Equal(t, errTampered.Error(), errRevoked.Error())
}

func TestVerifier_CookieExpired(t *testing.T) {
	f := newVerifierFixture(t, true)
	_, value := f.createSession(t, 42, "alice", 30*24*time.Hour)

	f.clock.Advance(15 * 24 * time.Hour)

	_, err := f.verifier.Verify(f.request(value))
	require.True(t, IsAuthError(err))
	require.ErrorIs(t, err, ErrExpired)
	require.Equal(t, OutcomeCookieExpired, f.observer.last())
}

func TestVerifier_TTLScenario(t *testing.T) {
	f := newVerifierFixture(t, true)
	start := f.clock.Now()

	s, value := f.createSession(t, 42, "alice", 5*time.Minute)
	require.Equal(t, start.Add(300*time.Second), s.ExpiresAt)

	f.clock.Advance(299 * time.Second)
	got, err := f.verifier.Verify(f.request(value))
	require.NoError(t, err)
	require.Equal(t, s.ID, got.ID)

	f.clock.Advance(2 * time.Second)
	_, err = f.verifier.Verify(f.request(value))
	require.True(t, IsAuthError(err))
	require.ErrorIs(t, err, ErrRecordExpired)

	f.clock.Advance(time.Second)
	_, err = f.store.Read(context.Background(), s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVerifier_ExpiryIdempotence(t *testing.T) {
	f := newVerifierFixture(t, true)
	s, value := f.createSession(t, 42, "alice", time.Minute)

	f.clock.Advance(2 * time.Minute)

	_, err := f.verifier.Verify(f.request(value))
	require.True(t, IsAuthError(err))
	require.Equal(t, OutcomeRecordExpired, f.observer.last())
	require.Equal(t, 0, f.store.Len())

	_, err = f.verifier.Verify(f.request(value))
	require.True(t, IsAuthError(err))
	require.Equal(t, OutcomeNotFound, f.observer.last())

	_, err = f.store.Read(context.Background(), s.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVerifier_PassThrough(t *testing.T) {
	f := newVerifierFixture(t, false)
	_, value := f.createSession(t, 42, "alice", time.Minute)
	f.clock.Advance(2 * time.Minute)

	s, err := f.verifier.Verify(f.request(value))
	require.NoError(t, err)
	require.Nil(t, s)
	require.Equal(t, 0, f.store.Len())

	s, err = f.verifier.Verify(f.request("garbage"))
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestVerifier_Current(t *testing.T) {
	f := newVerifierFixture(t, true)
	sess, value := f.createSession(t, 42, "alice", time.Minute)

	s, err := f.verifier.Current(f.request(""))
	require.NoError(t, err)
	require.Nil(t, s)

	s, err = f.verifier.Current(f.request("garbage"))
	require.NoError(t, err)
	require.Nil(t, s)

	s, err = f.verifier.Current(f.request(value))
	require.NoError(t, err)
	require.Equal(t, sess.ID, s.ID)
}

func TestVerifier_StoreFailurePropagates(t *testing.T) {
	clock := newTestClock(time.Now())
	tr := newTestTransport(t, clock)
	storeErr := errors.New("connection refused")

	for _, autoError := range []bool{true, false} {
		v := NewVerifier(tr, &failingStore{err: storeErr}, VerifierOptions{AutoError: autoError, Logger: zerolog.Nop(), Now: clock.Now})

		value, err := tr.Encode(uuid.New())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: value})

		_, err = v.Verify(req)
		require.ErrorIs(t, err, storeErr)
		require.False(t, IsAuthError(err))

		_, err = v.Current(req)
		require.ErrorIs(t, err, storeErr)
	}
}

func TestVerifier_Middleware(t *testing.T) {
	f := newVerifierFixture(t, true)
	sess, value := f.createSession(t, 42, "alice", time.Minute)

	var seen *models.Session
	handler := f.verifier.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, f.request(value))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, sess.ID, seen.ID)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, f.request(""))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, f.request("garbage"))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	invalidBody := rr.Body.String()

	require.NoError(t, f.store.Delete(context.Background(), sess.ID))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, f.request(value))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, invalidBody, rr.Body.String())
}
