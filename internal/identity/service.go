package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"agentmarket/internal/models"
	"agentmarket/internal/session"
	"agentmarket/internal/store"
	"agentmarket/internal/token"
)

// MinPasswordLength is the shortest password accepted at sign-up and reset.
const MinPasswordLength = 8

// Default lifetimes of emailed one-time tokens.
const (
	DefaultRecoveryTTL = time.Hour
	DefaultConfirmTTL  = 24 * time.Hour
)

// Users is the account storage the service needs.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, email, password string, meta models.UserMetadata, confirmed bool) (*models.User, error)
	ConfirmEmail(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, password string) error
	CheckPassword(user *models.User, password string) bool
}

// Sessions is the server-side session and one-time token storage.
type Sessions interface {
	Create(ctx context.Context, data *session.Data) (string, error)
	Rotate(ctx context.Context, id string) (string, *session.Data, error)
	Destroy(ctx context.Context, id string) error
	RevokeUser(ctx context.Context, userID uuid.UUID) error
	IssueToken(ctx context.Context, purpose session.Purpose, userID uuid.UUID, ttl time.Duration) (string, error)
	ConsumeToken(ctx context.Context, purpose session.Purpose, tok string) (uuid.UUID, error)
}

// Mailer delivers confirmation and recovery links.
type Mailer interface {
	SendConfirmation(ctx context.Context, to, token string) error
	SendRecovery(ctx context.Context, to, token, redirectTo string) error
}

// Config tunes the identity service.
type Config struct {
	RequireEmailConfirmation bool
	// SiteURL bounds where recovery links may redirect.
	SiteURL     string
	RecoveryTTL time.Duration
	ConfirmTTL  time.Duration
}

// Service is the server side of the identity provider.
type Service struct {
	users    Users
	sessions Sessions
	issuer   *token.Issuer
	mailer   Mailer
	cfg      Config
}

// NewService creates a Service. Zero token lifetimes take their defaults.
func NewService(users Users, sessions Sessions, issuer *token.Issuer, mailer Mailer, cfg Config) *Service {
	if cfg.RecoveryTTL <= 0 {
		cfg.RecoveryTTL = DefaultRecoveryTTL
	}
	if cfg.ConfirmTTL <= 0 {
		cfg.ConfirmTTL = DefaultConfirmTTL
	}
	return &Service{users: users, sessions: sessions, issuer: issuer, mailer: mailer, cfg: cfg}
}

// SignIn verifies a password and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if user == nil || !s.users.CheckPassword(user, password) {
		return nil, ErrInvalidCredentials
	}
	if s.cfg.RequireEmailConfirmation && !user.EmailConfirmed() {
		return nil, ErrEmailNotConfirmed
	}
	return s.open(ctx, user)
}

// SignUp registers an account. When confirmation is required the result
// carries no session and a confirmation link is emailed instead.
// The admin role cannot be self-assigned and falls back to user.
func (s *Service) SignUp(ctx context.Context, email, password string, meta models.UserMetadata) (*SignUpResult, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	meta = meta.Normalize()
	if meta.Role == models.RoleAdmin {
		meta.Role = models.RoleUser
	}

	confirmed := !s.cfg.RequireEmailConfirmation
	user, err := s.users.Create(ctx, email, password, meta, confirmed)
	if errors.Is(err, store.ErrDuplicateEmail) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	if !confirmed {
		tok, err := s.sessions.IssueToken(ctx, session.PurposeConfirmEmail, user.ID, s.cfg.ConfirmTTL)
		if err != nil {
			return nil, fmt.Errorf("sign up: issue confirmation token: %w", err)
		}
		if err := s.mailer.SendConfirmation(ctx, user.Email, tok); err != nil {
			// The account exists; the user can recover it through password reset.
			slog.Error("confirmation email failed", "user_id", user.ID, "error", err)
		}
		return &SignUpResult{User: *user}, nil
	}

	sess, err := s.open(ctx, user)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{User: *user, Session: sess}, nil
}

// Refresh exchanges a refresh token for a new session. The old refresh
// token stops working.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	newID, data, err := s.sessions.Rotate(ctx, refreshToken)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	// Reload so role changes since sign-in reach the new access token.
	user, err := s.users.FindByID(ctx, data.UserID)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if user == nil {
		_ = s.sessions.Destroy(ctx, newID)
		return nil, ErrInvalidToken
	}
	return s.session(user, newID)
}

// SignOut ends the session identified by refreshToken. Unknown tokens
// are not an error.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, refreshToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// RequestRecovery emails a password recovery link when email belongs to
// an account. Unknown addresses succeed silently. A redirectTo outside
// the site is ignored.
func (s *Service) RequestRecovery(ctx context.Context, email, redirectTo string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	if user == nil {
		slog.Info("recovery requested for unknown email")
		return nil
	}
	tok, err := s.sessions.IssueToken(ctx, session.PurposeRecovery, user.ID, s.cfg.RecoveryTTL)
	if err != nil {
		return fmt.Errorf("recover: issue token: %w", err)
	}
	if err := s.mailer.SendRecovery(ctx, user.Email, tok, s.allowedRedirect(redirectTo)); err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using a recovery token and ends every
// session of the account. Following a recovery link proves ownership of
// the address, so it is confirmed too.
func (s *Service) ResetPassword(ctx context.Context, recoveryToken, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	userID, err := s.sessions.ConsumeToken(ctx, session.PurposeRecovery, recoveryToken)
	if errors.Is(err, session.ErrTokenInvalid) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, password); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.users.ConfirmEmail(ctx, userID); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// VerifyEmail confirms an address using the emailed token and returns the
// now-confirmed user.
func (s *Service) VerifyEmail(ctx context.Context, confirmToken string) (*models.User, error) {
	userID, err := s.sessions.ConsumeToken(ctx, session.PurposeConfirmEmail, confirmToken)
	if errors.Is(err, session.ErrTokenInvalid) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	if err := s.users.ConfirmEmail(ctx, userID); err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("verify email: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// User returns the account behind a verified access token.
func (s *Service) User(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// open creates the server-side session and wraps it for the client.
func (s *Service) open(ctx context.Context, user *models.User) (*Session, error) {
	id, err := s.sessions.Create(ctx, &session.Data{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role(),
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return s.session(user, id)
}

func (s *Service) session(user *models.User, refreshToken string) (*Session, error) {
	access, expiresAt, err := s.issuer.Issue(user, session.Handle(refreshToken))
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int(s.issuer.TTL().Seconds()),
		ExpiresAt:    expiresAt,
		User:         *user,
	}, nil
}

func (s *Service) allowedRedirect(redirectTo string) string {
	if redirectTo == "" || s.cfg.SiteURL == "" {
		return ""
	}
	if redirectTo == s.cfg.SiteURL || strings.HasPrefix(redirectTo, s.cfg.SiteURL+"/") {
		return redirectTo
	}
	slog.Warn("recovery redirect outside site ignored", "redirect_to", redirectTo)
	return ""
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
