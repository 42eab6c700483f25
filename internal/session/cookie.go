package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	Domain   string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

type TransportOptions struct {
	CookieName string
	// Identifier binds issued cookies to one verifier; a cookie signed for a
	// different identifier fails verification even with the same key.
	Identifier string
	// Keys are tried in order when verifying. New cookies are signed with
	// Keys[0].
	Keys   []string
	MaxAge time.Duration
	Cookie CookieOptions
	Now    func() time.Time
}

// Transport turns session ids into signed cookie values and back. The value
// is an HS256 JWT whose subject is the session id and whose iat is the
// issuance time.
type Transport struct {
	name       string
	identifier string
	keys       [][]byte
	maxAge     time.Duration
	cookie     CookieOptions
	now        func() time.Time
}

type cookieClaims struct {
	jwt.RegisteredClaims
}

func NewTransport(opts TransportOptions) (*Transport, error) {
	if opts.CookieName == "" {
		return nil, errors.New("session: cookie name is required")
	}
	if len(opts.Keys) == 0 {
		return nil, errors.New("session: at least one signing key is required")
	}
	if opts.MaxAge <= 0 {
		return nil, errors.New("session: cookie max age must be positive")
	}

	keys := make([][]byte, 0, len(opts.Keys))
	for i, k := range opts.Keys {
		if k == "" {
			return nil, fmt.Errorf("session: signing key %d is empty", i)
		}
		keys = append(keys, []byte(k))
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Transport{
		name:       opts.CookieName,
		identifier: opts.Identifier,
		keys:       keys,
		maxAge:     opts.MaxAge,
		cookie:     opts.Cookie.normalize(),
		now:        now,
	}, nil
}

func (t *Transport) CookieName() string {
	return t.name
}

// Encode signs id without touching any response.
func (t *Transport) Encode(id uuid.UUID) (string, error) {
	claims := &cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id.String(),
			IssuedAt: jwt.NewNumericDate(t.now()),
		},
	}
	if t.identifier != "" {
		claims.Audience = jwt.ClaimStrings{t.identifier}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	value, err := token.SignedString(t.keys[0])
	if err != nil {
		return "", fmt.Errorf("session: failed to sign cookie: %w", err)
	}
	return value, nil
}

// Issue signs id and writes the session cookie onto w.
func (t *Transport) Issue(w http.ResponseWriter, id uuid.UUID) (string, error) {
	value, err := t.Encode(id)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     t.name,
		Value:    value,
		Path:     t.cookie.Path,
		Domain:   t.cookie.Domain,
		MaxAge:   int(t.maxAge / time.Second),
		HttpOnly: t.cookie.HttpOnly,
		Secure:   t.cookie.Secure,
		SameSite: t.cookie.SameSite,
	})
	return value, nil
}

// Clear removes the session cookie from the client.
func (t *Transport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     t.name,
		Value:    "",
		Path:     t.cookie.Path,
		Domain:   t.cookie.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: t.cookie.HttpOnly,
		Secure:   t.cookie.Secure,
		SameSite: t.cookie.SameSite,
	})
}

// Extract reads the session cookie from r and returns the verified id.
func (t *Transport) Extract(r *http.Request) (uuid.UUID, error) {
	c, err := r.Cookie(t.name)
	if err != nil || c.Value == "" {
		return uuid.Nil, ErrNoCookie
	}
	return t.Decode(c.Value)
}

// Decode verifies a raw cookie value. Any alteration of the value yields
// ErrSignatureInvalid; a correctly signed value older than the max age
// yields ErrExpired.
func (t *Transport) Decode(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, ErrNoCookie
	}

	for _, key := range t.keys {
		claims, err := t.parse(value, key)
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			continue
		}
		if err != nil {
			return uuid.Nil, ErrSignatureInvalid
		}

		if claims.IssuedAt == nil {
			return uuid.Nil, ErrSignatureInvalid
		}
		if !t.now().Before(claims.IssuedAt.Add(t.maxAge)) {
			return uuid.Nil, ErrExpired
		}

		id, err := uuid.Parse(claims.Subject)
		if err != nil {
			return uuid.Nil, ErrSignatureInvalid
		}
		return id, nil
	}

	return uuid.Nil, ErrSignatureInvalid
}

func (t *Transport) parse(value string, key []byte) (*cookieClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(t.now),
	}
	if t.identifier != "" {
		opts = append(opts, jwt.WithAudience(t.identifier))
	}

	token, err := jwt.ParseWithClaims(value, &cookieClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*cookieClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
