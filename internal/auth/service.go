package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidOperator is returned when minting a token for a malformed operator.
var ErrInvalidOperator = errors.New("invalid operator")

// Service mints and verifies operator tokens.
type Service struct {
	jwtService *JWTService
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	JWTService *JWTService
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{jwtService: cfg.JWTService}
}

// IssueToken mints a token for op. An empty ID gets a generated "op_" id;
// an empty role list defaults to dispatcher.
func (s *Service) IssueToken(op Operator, ttl time.Duration) (*TokenResponse, error) {
	if op.ID == "" {
		op.ID = generateOperatorID()
	}
	if len(op.Roles) == 0 {
		op.Roles = []Role{RoleDispatcher}
	}
	for _, r := range op.Roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidOperator, r)
		}
	}

	token, expiresAt, err := s.jwtService.GenerateAccessToken(&op, ttl)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		ExpiresAt:   expiresAt,
		Operator:    &op,
	}, nil
}

// ValidateAccessToken verifies tokenString and returns its operator.
func (s *Service) ValidateAccessToken(tokenString string) (*Operator, error) {
	claims, err := s.jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims.Operator(), nil
}

func generateOperatorID() string {
	return "op_" + uuid.New().String()[:22]
}
