// Package accounts implements signup, login, session tokens and the user
// mutations of the marketplace on top of the store.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maruel/ksid"
	"golang.org/x/crypto/bcrypt"

	"github.com/maruel/tutordb/internal/config"
	"github.com/maruel/tutordb/internal/store"
)

var (
	// ErrInvalidCredentials is returned by Authenticate for an unknown email or
	// a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput wraps every validation failure of user supplied data.
	ErrInvalidInput = errors.New("invalid input")
)

const minPasswordLen = 8

// Service mutates users and mentor applications.
type Service struct {
	store  *store.Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService returns a Service signing tokens with cfg's secret.
func NewService(st *store.Store, cfg *config.Config) *Service {
	return &Service{store: st, secret: cfg.JWTSecret, ttl: cfg.SessionTTL(), now: time.Now}
}

// RegisterRequest is the signup form.
type RegisterRequest struct {
	FullName string
	Email    string
	Username string
	Password string
	// Role is student or mentor. A mentor signup is stored as a student until a
	// mentor application is approved.
	Role           store.Role
	InstructorType string
}

func (r *RegisterRequest) validate() error {
	switch {
	case strings.TrimSpace(r.FullName) == "":
		return fmt.Errorf("%w: full name is required", ErrInvalidInput)
	case !strings.Contains(r.Email, "@"):
		return fmt.Errorf("%w: email must contain @", ErrInvalidInput)
	case len(r.Password) < minPasswordLen:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	case strings.TrimSpace(r.Username) == "":
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	switch r.Role {
	case "", store.RoleStudent, store.RoleMentor:
	default:
		return fmt.Errorf("%w: role %q cannot sign up", ErrInvalidInput, r.Role)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user. A duplicate email or username fails with a
// [*store.ConstraintError].
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*store.User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u := &store.User{
		ID:             ksid.NewID().String(),
		Email:          normalizeEmail(req.Email),
		Username:       strings.TrimSpace(req.Username),
		FullName:       strings.TrimSpace(req.FullName),
		Role:           store.RoleStudent,
		InstructorType: req.InstructorType,
		PasswordHash:   string(hash),
	}
	u, err = s.store.Users().Insert(ctx, u)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Registered user", "id", u.ID, "mentor_signup", req.Role == store.RoleMentor)
	return u, nil
}

// Authenticate verifies user credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*store.User, error) {
	users, err := s.store.Users().QueryByIndex(ctx, "email", normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 || users[0].PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return users[0], nil
}

// User returns the user with the given id. It fails with store.ErrNotFound
// when absent.
func (s *Service) User(ctx context.Context, id string) (*store.User, error) {
	u, err := s.store.Users().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %q: %w", id, store.ErrNotFound)
	}
	return u, nil
}

// ToggleFavorite adds courseID to the user's favorites, or removes it when
// already present. It returns the updated user and whether the course is now
// a favorite.
func (s *Service) ToggleFavorite(ctx context.Context, userID, courseID string) (*store.User, bool, error) {
	if courseID == "" {
		return nil, false, fmt.Errorf("%w: course id is required", ErrInvalidInput)
	}
	u, err := s.User(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	added := !u.HasFavorite(courseID)
	favorites := make([]string, 0, len(u.Favorites)+1)
	for _, id := range u.Favorites {
		if id != courseID {
			favorites = append(favorites, id)
		}
	}
	if added {
		favorites = append(favorites, courseID)
	}
	u, err = s.store.Users().Update(ctx, userID, store.Patch{"favorites": favorites})
	if err != nil {
		return nil, false, err
	}
	return u, added, nil
}
