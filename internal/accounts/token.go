package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/maruel/tutordb/internal/store"
)

// ErrInvalidToken is returned for a malformed, expired or forged token.
var ErrInvalidToken = errors.New("invalid token")

// IssueToken returns an HS256 session token for the user.
func (s *Service) IssueToken(u *store.User) (string, error) {
	if u == nil || u.ID == "" {
		return "", errors.New("user is required")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates a session token and returns its user id.
func (s *Service) ParseToken(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// CurrentUser resolves the logged in user. It returns a nil user and no error
// when nobody is logged in.
type CurrentUser interface {
	CurrentUser(ctx context.Context) (*store.User, error)
}

// Static always returns the same user.
type Static struct {
	User *store.User
}

// CurrentUser implements CurrentUser.
func (s Static) CurrentUser(context.Context) (*store.User, error) {
	if s.User == nil {
		return nil, nil
	}
	return s.User.Clone(), nil
}

// TokenSession resolves the user from a session token. An empty token means
// logged out, as does a token whose user no longer exists.
type TokenSession struct {
	Service *Service
	Token   string
}

// CurrentUser implements CurrentUser.
func (t TokenSession) CurrentUser(ctx context.Context) (*store.User, error) {
	if t.Token == "" {
		return nil, nil
	}
	id, err := t.Service.ParseToken(t.Token)
	if err != nil {
		return nil, err
	}
	return t.Service.store.Users().Get(ctx, id)
}
