package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for a well-signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the JWT payload of a session token.
type Claims struct {
	Role     string `json:"role"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Token is a signed session token and its expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Tokens issues and verifies stateless HS256 session tokens.  There is no
// server-side session table: a token stays valid until it expires.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens returns a token issuer using secret and ttl.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of t that reads time from now.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	c := *t
	c.now = now
	return &c
}

// Issue signs a token for p.
func (t *Tokens) Issue(p Principal) (Token, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := Claims{
		Role:     p.Role,
		Email:    p.Email,
		Username: p.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: exp}, nil
}

// Verify checks signature and expiry and returns the principal.
func (t *Tokens) Verify(raw string) (Principal, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, ErrTokenInvalid
	}
	if !tok.Valid || claims.Subject == "" || claims.Role == "" {
		return Principal{}, ErrTokenInvalid
	}
	return Principal{
		Subject:  claims.Subject,
		Role:     claims.Role,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}
