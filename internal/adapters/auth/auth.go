package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"memebid-service/internal/domain/shared"
	"memebid-service/internal/ports/outbound"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrMissingToken = errors.New("access token is required")
	ErrInvalidToken = errors.New("invalid access token")
	ErrTokenExpired = errors.New("access token has expired")
	ErrUnknownUser  = errors.New("invalid access token - user not found")
)

// Claims are the fields read from an HS256 access token
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Authenticator verifies access tokens and loads the user they name
type Authenticator struct {
	secret   []byte
	userRepo outbound.UserRepository
	logger   zerolog.Logger
}

type AuthenticatorParams struct {
	Secret   string
	UserRepo outbound.UserRepository
	Logger   zerolog.Logger
}

func NewAuthenticator(params AuthenticatorParams) *Authenticator {
	return &Authenticator{
		secret:   []byte(params.Secret),
		userRepo: params.UserRepo,
		logger:   params.Logger.With().Str("component", "authenticator").Logger(),
	}
}

// Authenticate verifies the token and returns the current user row
func (a *Authenticator) Authenticate(ctx context.Context, tokenString string) (*shared.User, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		a.logger.Debug().Err(err).Msg("Token verification failed")
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := a.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("failed to load authenticated user: %w", err)
	}
	return user, nil
}

// IssueToken signs a token for userID. Production tokens come from the identity service;
// this exists for local tooling and tests.
func (a *Authenticator) IssueToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// TokenFromRequest reads the bearer token from the Authorization header,
// falling back to the "token" query parameter used by browser WebSocket clients
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

type contextKey struct{}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *shared.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*shared.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*shared.User)
	return user, ok && user != nil
}
