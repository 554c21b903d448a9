// Package auth verifies the identity tokens that the upstream collaborator hands to the core.
// The core performs no login; it only checks HS256 tokens carrying user_id, role and exp.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-dispatch/pkg/uuid"
)

type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Identify validates token and returns the caller it names.
func (s *TokenService) Identify(ctx context.Context, token string) (models.Caller, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Caller{}, wrap.Error(ctx, ErrExpToken)
		}
		return models.Caller{}, wrap.Error(ctx, fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return models.Caller{}, wrap.Error(ctx, ErrInvalidToken)
	}

	userIDStr, _ := mc["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil || userID.IsZero() {
		return models.Caller{}, wrap.Error(ctx, fmt.Errorf("%w: invalid or missing 'user_id' claim", ErrInvalidToken))
	}

	roleStr, _ := mc["role"].(string)
	role := types.UserRole(roleStr)
	if !role.Valid() {
		return models.Caller{}, wrap.Error(ctx, fmt.Errorf("%w: invalid or missing 'role' claim", ErrInvalidToken))
	}

	return models.Caller{ID: userID, Role: role}, nil
}

// Issue signs a token for caller. Used by the dev token tool and tests; production
// tokens come from the upstream identity service.
func (s *TokenService) Issue(caller models.Caller, ttl time.Duration) (string, error) {
	issuedAt := s.now().UTC()
	claims := jwt.MapClaims{
		"user_id": caller.ID.String(),
		"role":    caller.Role.String(),
		"iat":     issuedAt.Unix(),
		"exp":     issuedAt.Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
