package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Operator tokens are short-lived HS256 JWTs minted out of band by
// cmd/tokengen. There is no refresh flow; an expired token is re-minted.

// DefaultAccessTokenExpiry is how long tokens are valid when no TTL is given.
const DefaultAccessTokenExpiry = 12 * time.Hour

// DefaultLeeway absorbs clock skew between the dashboard host and the API.
const DefaultLeeway = 30 * time.Second

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingSigningKey  = errors.New("jwt signing key is required")
)

// JWTClaims are the claims carried by operator tokens. The subject is the
// operator id.
type JWTClaims struct {
	jwt.RegisteredClaims

	Name  string `json:"name,omitempty"`
	Roles []Role `json:"roles"`
}

// Operator returns the operator the claims describe.
func (c *JWTClaims) Operator() *Operator {
	return &Operator{ID: c.Subject, Name: c.Name, Roles: c.Roles}
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	SigningKey string

	// Issuer and Audience are written into every token and required on
	// validation, e.g. "https://api.ishigaki-tour.jp" and "pickup-api".
	Issuer   string
	Audience string

	// Leeway is the allowed clock skew (default: DefaultLeeway).
	Leeway time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// JWTService signs and verifies operator tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
	parser     *jwt.Parser
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	leeway := cfg.Leeway
	if leeway == 0 {
		leeway = DefaultLeeway
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		now:        now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(leeway),
			jwt.WithTimeFunc(now),
		),
	}
}

// GenerateAccessToken signs a token for op valid for ttl
// (DefaultAccessTokenExpiry when zero).
func (s *JWTService) GenerateAccessToken(op *Operator, ttl time.Duration) (string, time.Time, error) {
	if len(s.signingKey) == 0 {
		return "", time.Time{}, ErrMissingSigningKey
	}
	if ttl <= 0 {
		ttl = DefaultAccessTokenExpiry
	}
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   op.ID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name:  op.Name,
		Roles: op.Roles,
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies the signature and registered claims and
// returns the claims. Tokens naming a role this build does not know are
// rejected rather than silently downgraded.
func (s *JWTService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidAccessToken)
	}

	for _, role := range claims.Roles {
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidAccessToken, role)
		}
	}
	return claims, nil
}
