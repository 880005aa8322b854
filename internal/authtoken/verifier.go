// Package authtoken validates the access tokens an external identity
// provider issues. Tokens arrive as an HS256 JWT in a cookie; this service
// never issues production tokens itself, it only verifies and extracts the
// subject.
package authtoken

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var defaultLeeway = 30 * time.Second

// Config sets the shared secret and claim validation behavior.
type Config struct {
	// Secret is the HS256 signing secret shared with the identity provider.
	Secret string
	// Issuer and Audience are enforced when non-empty.
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Verifier validates HS256 tokens against a shared secret.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewVerifier builds a verifier. The secret is required.
func NewVerifier(cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth token secret required")
	}
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Verifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   leeway,
	}, nil
}

// Verify validates the token and returns its subject.
func (v *Verifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("invalid token format")
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience))
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOptions...)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token subject missing")
	}
	return claims.Subject, nil
}

// Sign creates a token the verifier accepts. Meant for tests and local
// development; production tokens come from the identity provider.
func (v *Verifier) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	if v.issuer != "" {
		claims.Issuer = v.issuer
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
