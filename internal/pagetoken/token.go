// Package pagetoken mints and checks the HS256 tokens the server template
// embeds in each rendered page. A token binds the page id to the viewer's
// role and the validation gates the page enables.
package pagetoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrDisabled     = errors.New("pagetoken: signing secret not configured")
	ErrInvalidToken = errors.New("pagetoken: invalid token")
	ErrMissingPage  = errors.New("pagetoken: token has no page id")
)

// DefaultTTL is how long a rendered page may take to open its socket.
const DefaultTTL = 12 * time.Hour

// Claims are carried by a page token. The page id is the subject.
type Claims struct {
	Role  string   `json:"role,omitempty"`
	Gates []string `json:"gates,omitempty"`
	jwt.RegisteredClaims
}

// PageID returns the subject.
func (c Claims) PageID() string { return c.Subject }

// Signer issues and verifies page tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner returns a signer, or nil when secret is empty.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue mints a token for a page. An empty pageID gets a fresh uuid.
func (s *Signer) Issue(pageID, role string, gates ...string) (string, error) {
	if s == nil {
		return "", ErrDisabled
	}
	if pageID == "" {
		pageID = uuid.NewString()
	}
	now := s.now()
	claims := Claims{
		Role:  role,
		Gates: gates,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pageID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("pagetoken: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the claims.
func (s *Signer) Verify(tokenString string) (Claims, error) {
	if s == nil {
		return Claims{}, ErrDisabled
	}
	claims := Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Claims{}, ErrMissingPage
	}
	return claims, nil
}
