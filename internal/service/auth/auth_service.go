package auth

import (
	"context"
	"fmt"
	"time"

	"pugpool/internal/domain"
	"pugpool/internal/service"
	"pugpool/pkg/errors"
	"pugpool/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// Service implements the TokenService interface for HS256 gateway tokens
type Service struct {
	secret []byte
	logger *logger.Logger
}

// NewService creates a new token service. An empty secret disables
// validation, which suits local development behind a private gateway.
func NewService(secret string, logger *logger.Logger) service.TokenService {
	return &Service{
		secret: []byte(secret),
		logger: logger,
	}
}

// Enabled reports whether token validation is configured
func (s *Service) Enabled() bool {
	return len(s.secret) > 0
}

// ValidateServiceToken checks a bearer token signed by the gateway and
// returns its claims
func (s *Service) ValidateServiceToken(ctx context.Context, tokenString string) (*domain.GatewayClaims, error) {
	if !s.Enabled() {
		return nil, errors.NewUnauthorizedError("token validation not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify the signing algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		s.logger.WithError(err).Debug("Service token rejected")
		return nil, errors.NewUnauthorizedError("invalid service token")
	}
	if !token.Valid {
		return nil, errors.NewUnauthorizedError("invalid service token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.NewUnauthorizedError("invalid service token")
	}

	gatewayClaims := &domain.GatewayClaims{
		Subject:   getStringClaim(claims, "sub"),
		Issuer:    getStringClaim(claims, "iss"),
		IssuedAt:  getInt64Claim(claims, "iat"),
		ExpiresAt: getInt64Claim(claims, "exp"),
	}

	// jwt.Parse already rejects expired tokens; keep an explicit check so
	// a token without the exp handling path cannot slip through
	if gatewayClaims.ExpiresAt > 0 && time.Now().Unix() > gatewayClaims.ExpiresAt {
		return nil, errors.NewUnauthorizedError("service token expired")
	}
	if gatewayClaims.Subject == "" {
		return nil, errors.NewUnauthorizedError("service token has no subject")
	}

	s.logger.WithField("subject", gatewayClaims.Subject).Debug("Service token validated")
	return gatewayClaims, nil
}

// Helper functions to safely extract values from token claims
func getStringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}

func getInt64Claim(claims jwt.MapClaims, key string) int64 {
	if val, ok := claims[key].(float64); ok {
		return int64(val)
	}
	return 0
}
