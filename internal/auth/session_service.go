package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL defines the fallback validity period for session tokens.
// Sessions are long-lived; the cookie is the only thing keeping a browser
// signed in and there is no server-side refresh flow.
const DefaultSessionTTL = 365 * 24 * time.Hour

// SessionConfig bundles the configuration required to build a SessionService.
// The signing secret is injected here and never read from ambient state.
type SessionConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
	Clock  func() time.Time
}

// SessionClaims represents the payload embedded in issued session tokens.
// The application payload is exactly {userId, email}.
type SessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// SessionService issues and validates self-contained session tokens. Tokens
// are valid until expiry; there is no revocation list, so logout only
// instructs the client to discard the cookie.
type SessionService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionService constructs a SessionService from the supplied configuration.
func NewSessionService(cfg SessionConfig) (*SessionService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session: secret must be provided")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &SessionService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a session token for the given user identity.
func (s *SessionService) Issue(userID, email string) (string, error) {
	if userID == "" {
		return "", errors.New("session: user id is required")
	}
	if email == "" {
		return "", errors.New("session: email is required")
	}

	now := s.now()
	claims := &SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a session token. Any failure -- missing,
// malformed, tampered, or expired token, or a payload missing either
// identity field -- yields an error; callers treat that as "no session".
func (s *SessionService) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, errors.New("session: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims SessionClaims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("session: invalid issuer")
	}

	if claims.UserID == "" {
		return nil, errors.New("session: missing user id claim")
	}
	if claims.Email == "" {
		return nil, errors.New("session: missing email claim")
	}

	return &claims, nil
}
