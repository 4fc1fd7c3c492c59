package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tienda-labs/storefront/internal/auth"
	"github.com/tienda-labs/storefront/internal/client"
	"github.com/tienda-labs/storefront/internal/domain"
	"github.com/tienda-labs/storefront/internal/repository"
	apperrors "github.com/tienda-labs/storefront/pkg/errors"
)

// UserDirectory looks up user records in the directory boundary.
type UserDirectory interface {
	FindUser(ctx context.Context, username string) (*client.DirectoryUser, error)
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token   string         `json:"token"`
	Session domain.Session `json:"session"`
}

// AuthService verifies credentials against the user directory, issues access
// tokens and manages the session records that keep them valid.
type AuthService struct {
	directory UserDirectory
	sessions  repository.SessionRepository
	jwt       *auth.JWTManager
	logger    *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(directory UserDirectory, sessions repository.SessionRepository, jwt *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		directory: directory,
		sessions:  sessions,
		jwt:       jwt,
		logger:    logger,
	}
}

// Login verifies the credentials and, on success, establishes a session and
// returns a signed access token. Unknown usernames and wrong passwords get
// the same answer.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperrors.InvalidInput("username and password are required")
	}

	user, err := s.directory.FindUser(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}

	if !verifyCredential(user.Credential, password) {
		s.logger.WarnContext(ctx, "failed login attempt",
			slog.String("username", username),
		)
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	sess := domain.Session{
		Customer:     user.Username,
		CustomerName: user.Username,
		Role:         user.Role,
	}

	if err := s.sessions.Save(ctx, &sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	token, err := s.jwt.GenerateToken(sess.Customer, sess.CustomerName, string(sess.Role))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "customer logged in",
		slog.String("customer", sess.Customer),
		slog.String("role", string(sess.Role)),
	)

	return &LoginResult{Token: token, Session: sess}, nil
}

// Logout deletes the customer's session record, invalidating any tokens
// still carrying that identity.
func (s *AuthService) Logout(ctx context.Context, customer string) error {
	if err := s.sessions.Delete(ctx, customer); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.InfoContext(ctx, "customer logged out",
		slog.String("customer", customer),
	)

	return nil
}

// Authenticate validates an access token and checks that its session record
// still exists. Logged-out customers fail here even with an unexpired token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return domain.Session{}, apperrors.Unauthorized("invalid or expired token")
	}

	sess, err := s.sessions.Get(ctx, claims.Customer)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Session{}, apperrors.Unauthorized("session expired")
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}

	return *sess, nil
}

// verifyCredential compares the stored directory credential with the given
// password. Stored values that look like bcrypt hashes are compared with
// bcrypt; legacy plain values fall back to a constant-time comparison.
func verifyCredential(stored, given string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
