// Package auth is the credential manager: bcrypt password hashing, signed
// session tokens, and the middleware that resolves the caller from a token.
//
// TOKEN FLOW:
//  1. POST /auth/login verifies the password and issues a JWT access token
//  2. The client sends it back as "Authorization: Bearer <token>"
//  3. RequireAuth validates it and stores the author id in the request context
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<author id>","iat":...,"exp":...,"iss":"socialfeed"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// Validation needs only the secret; there is no server-side session table and
// no revocation list. A token is good until its exp claim passes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/socialfeed/internal/apperror"
	"github.com/sakif/socialfeed/internal/clock"
)

const (
	issuer = "socialfeed"

	// DefaultTokenTTL is used when the configured TTL is not positive.
	DefaultTokenTTL = 60 * time.Minute
)

// errInvalidToken is what every validation failure unwraps to. One message for
// all causes: clients learn nothing about why a token was rejected.
var errInvalidToken = apperror.Unauthorized("could not validate credentials")

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration, clk clock.Clock) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, clock: clk}, nil
}

// claims is the JWT payload. "sub" carries the author id.
type claims struct {
	jwt.RegisteredClaims
}

// TTL reports how long issued tokens stay valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate creates and signs a new access token for authorID that expires
// after the configured TTL.
func (s *TokenService) Generate(authorID string) (string, error) {
	return s.GenerateWithDuration(authorID, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(authorID string, d time.Duration) (string, error) {
	now := s.clock.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   authorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiryCeil(now.Add(d))),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// expiryCeil rounds t up to the next whole second. NumericDate truncates to
// seconds, so rounding down would expire a token before its full TTL.
func expiryCeil(t time.Time) time.Time {
	return t.Add(time.Second - time.Nanosecond).Truncate(time.Second)
}

// Validate parses and verifies a JWT string and returns the author id stored
// in its "sub" claim.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid and the algorithm is HS256 (no "none", no RS/HS confusion)
//   - exp is present and still in the future according to the service clock
//   - Issuer matches "socialfeed"
//
// Every failure unwraps to apperror.ErrUnauthorized.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired: %w", errInvalidToken)
		}
		return "", fmt.Errorf("auth: invalid token (%v): %w", err, errInvalidToken)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims: %w", errInvalidToken)
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject: %w", errInvalidToken)
	}

	return c.Subject, nil
}
