package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"

	"github.com/baberlabs/chatr-sub000/internal/models"
	"github.com/baberlabs/chatr-sub000/pkg/utils"
)

const testSecret = "realtime-test-secret"

type stubResolver struct {
	user *models.User
	err  error
}

func (s *stubResolver) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.user, s.err
}

func expiredToken(t *testing.T, userID string) string {
	t.Helper()
	claims := utils.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthenticateValidToken(t *testing.T) {
	auth := NewAuthenticator(testSecret, &stubResolver{user: &models.User{ID: 42}})
	token, err := utils.GenerateToken("42", testSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	userID, err := auth.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if userID != "42" {
		t.Fatalf("expected user id 42, got %q", userID)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	valid, err := utils.GenerateToken("42", testSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		resolver identityResolver
		want     error
	}{
		{"missing token", "", &stubResolver{}, ErrMissingCredential},
		{"garbage token", "not-a-jwt", &stubResolver{}, ErrInvalidCredential},
		{"expired token", expiredToken(t, "42"), &stubResolver{}, ErrExpiredCredential},
		{"deleted user", valid, &stubResolver{err: pgx.ErrNoRows}, ErrUnknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuthenticator(testSecret, tt.resolver)
			if _, err := auth.Authenticate(context.Background(), tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAuthenticateWrongSecret(t *testing.T) {
	token, err := utils.GenerateToken("42", "some-other-secret")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	auth := NewAuthenticator(testSecret, &stubResolver{})
	if _, err := auth.Authenticate(context.Background(), token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestTokenFromRequestPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		header  string
		cookie  string
		want    string
	}{
		{"payload wins", "tok-payload", "Bearer tok-header", "tok-cookie", "tok-payload"},
		{"header over cookie", "", "Bearer tok-header", "tok-cookie", "tok-header"},
		{"cookie fallback", "", "", "tok-cookie", "tok-cookie"},
		{"malformed header ignored", "", "tok-header", "tok-cookie", "tok-cookie"},
		{"nothing presented", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenFromRequest(tt.payload, tt.header, tt.cookie); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
