package realtime

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/baberlabs/chatr-sub000/internal/models"
	"github.com/baberlabs/chatr-sub000/pkg/utils"
)

// Connection attempt rejection reasons. Each is surfaced verbatim to the
// rejected client.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
	ErrUnknownUser       = errors.New("unknown user")
)

type identityResolver interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Authenticator validates the bearer credential presented with a new realtime
// connection and resolves it to a live user identity. A connection is either
// fully authenticated or rejected before any event is processed.
type Authenticator struct {
	secret string
	users  identityResolver
}

func NewAuthenticator(secret string, users identityResolver) *Authenticator {
	return &Authenticator{secret: secret, users: users}
}

// Authenticate verifies the token and confirms the encoded identity still
// exists. It returns the user id as carried in realtime events.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMissingCredential
	}

	claims, err := utils.ValidateToken(token, a.secret)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			return "", ErrExpiredCredential
		}
		return "", ErrInvalidCredential
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return "", ErrInvalidCredential
	}

	if _, err := a.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUnknownUser
		}
		return "", err
	}

	return claims.UserID, nil
}

// TokenFromRequest extracts the bearer credential from a connection attempt,
// in order of precedence: explicit auth payload, Authorization header, then
// the jwt cookie.
func TokenFromRequest(authPayload, authHeader, cookieJWT string) string {
	if token := strings.TrimSpace(authPayload); token != "" {
		return token
	}

	if header := strings.TrimSpace(authHeader); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	return strings.TrimSpace(cookieJWT)
}
