package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldkit/dispatch-service/internal/domain"
)

// TokenManager verifies externally issued HS256 access tokens. This service
// does not run registration or login; the identity provider does.
type TokenManager struct {
	secret []byte
}

// NewTokenManager builds a manager for the shared signing secret.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

type actorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verify parses and validates a token, returning the actor it names.
func (m *TokenManager) Verify(tokenString string) (*domain.Actor, error) {
	claims := &actorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}
	role := domain.ActorRole(claims.Role)
	switch role {
	case domain.RoleCustomer, domain.RoleDispatcher, domain.RoleTechnician, domain.RoleAdmin:
	default:
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return &domain.Actor{ID: claims.Subject, Role: role}, nil
}
