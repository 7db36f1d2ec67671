package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID uuid.UUID   `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	Epoch  int64       `json:"-"`
}

func (i *Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// Gate authorizes session tokens against the current enforcement state.
type Gate struct {
	db          *gorm.DB
	enforcement *EnforcementService
	secret      []byte
}

func NewGate(db *gorm.DB, enforcement *EnforcementService, secret string) *Gate {
	return &Gate{db: db, enforcement: enforcement, secret: []byte(secret)}
}

// Authorize validates a raw bearer token and admits or denies the caller.
func (g *Gate) Authorize(ctx context.Context, raw string) (*Identity, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		metrics.GateDenialsTotal.WithLabelValues("missing_token").Inc()
		return nil, authenticationError("missing session token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			metrics.GateDenialsTotal.WithLabelValues("expired_token").Inc()
			return nil, authenticationError("session token has expired")
		}
		metrics.GateDenialsTotal.WithLabelValues("malformed_token").Inc()
		return nil, authenticationError("invalid session token")
	}
	return g.AuthorizeToken(ctx, token)
}

// AuthorizeToken finishes authorization for a token whose signature and
// expiry were already verified by the JWT middleware.
func (g *Gate) AuthorizeToken(ctx context.Context, token *jwt.Token) (*Identity, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		metrics.GateDenialsTotal.WithLabelValues("malformed_token").Inc()
		return nil, authenticationError("invalid session token")
	}
	return g.authorizeClaims(ctx, claims)
}

func (g *Gate) authorizeClaims(ctx context.Context, claims jwt.MapClaims) (*Identity, error) {
	userID, epoch, err := parseSessionClaims(claims)
	if err != nil {
		metrics.GateDenialsTotal.WithLabelValues("malformed_token").Inc()
		return nil, err
	}

	var user models.User
	if err := g.db.WithContext(ctx).Select("id", "email", "role", "session_epoch").
		First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.GateDenialsTotal.WithLabelValues("unknown_account").Inc()
			return nil, authenticationError("account no longer exists")
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if epoch != user.SessionEpoch {
		metrics.GateDenialsTotal.WithLabelValues("stale_epoch").Inc()
		return nil, authenticationError("session has been invalidated, please sign in again")
	}

	status, err := g.enforcement.GetStatus(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if status.IsBlocked {
		metrics.GateDenialsTotal.WithLabelValues(string(status.Type)).Inc()
		return nil, &RestrictionError{Status: status}
	}

	return &Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Epoch:  user.SessionEpoch,
	}, nil
}

func parseSessionClaims(claims jwt.MapClaims) (uuid.UUID, int64, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, 0, authenticationError("session token is missing its subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, 0, authenticationError("session token has an invalid subject")
	}
	raw, ok := claims["epoch"].(float64)
	if !ok || raw < 0 {
		return uuid.Nil, 0, authenticationError("session token is missing its epoch")
	}
	return userID, int64(raw), nil
}
