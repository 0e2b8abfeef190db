package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"agentmarket/internal/auth"
	"agentmarket/internal/identity"
	"agentmarket/internal/middleware"
	"agentmarket/internal/models"
	"agentmarket/internal/session"
)

// IdentityService is the server-side identity behaviour the handlers expose.
type IdentityService interface {
	SignUp(ctx context.Context, email, password string, meta models.UserMetadata) (*identity.SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*identity.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Session, error)
	SignOut(ctx context.Context, refreshToken string) error
	RequestRecovery(ctx context.Context, email, redirectTo string) error
	ResetPassword(ctx context.Context, recoveryToken, password string) error
	VerifyEmail(ctx context.Context, confirmToken string) (*models.User, error)
	User(ctx context.Context, id uuid.UUID) (*models.User, error)
}

var _ IdentityService = (*identity.Service)(nil)

// SessionCookies sets and clears the browser session cookie.
type SessionCookies interface {
	SetCookie(w http.ResponseWriter, id string)
	ClearCookie(w http.ResponseWriter)
}

// Auth groups all authentication-related HTTP handlers. Sign-in also sets
// the session cookie so browser clients need not handle tokens.
type Auth struct {
	svc     IdentityService
	cookies SessionCookies
}

// NewAuth creates a new Auth handler group.
func NewAuth(svc IdentityService, cookies SessionCookies) *Auth {
	return &Auth{svc: svc, cookies: cookies}
}

type signUpRequest struct {
	Email    string              `json:"email"`
	Password string              `json:"password"`
	Data     models.UserMetadata `json:"data"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type recoverRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Session  *identity.Session `json:"session"`
	Redirect string            `json:"redirect,omitempty"`
}

type userResponse struct {
	User *models.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// SignUp serves POST /api/auth/signup. The session is null while the
// email address awaits confirmation.
func (a *Auth) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	res, err := a.svc.SignUp(r.Context(), req.Email, req.Password, req.Data)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if res.Session != nil {
		a.cookies.SetCookie(w, res.Session.RefreshToken)
	}
	writeJSON(w, http.StatusOK, res)
}

// SignIn serves POST /api/auth/signin and names the caller's landing page.
func (a *Auth) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	sess, err := a.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	a.cookies.SetCookie(w, sess.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess, Redirect: auth.Destination(sess.User.Role())})
}

// Refresh serves POST /api/auth/refresh. The refresh token comes from the
// body or, for browsers, the session cookie.
func (a *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	fromCookie := false
	if req.RefreshToken == "" {
		if c, err := r.Cookie(session.CookieName); err == nil {
			req.RefreshToken = c.Value
			fromCookie = true
		}
	}

	sess, err := a.svc.Refresh(r.Context(), req.RefreshToken)
	if errors.Is(err, identity.ErrInvalidToken) {
		if fromCookie {
			a.cookies.ClearCookie(w)
		}
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: identity.Code(err)})
		return
	}
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	if fromCookie {
		a.cookies.SetCookie(w, sess.RefreshToken)
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: sess})
}

// SignOut serves POST /api/auth/signout. It ends the session named in the
// body, or the cookie session, and always clears the cookie.
func (a *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if req.RefreshToken == "" {
		if p := middleware.PrincipalFromCtx(r.Context()); p != nil {
			req.RefreshToken = p.SessionID
		}
	}
	if err := a.svc.SignOut(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, err, "")
		return
	}
	a.cookies.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Recover serves POST /api/auth/recover. The answer is the same whether
// or not the address has an account.
func (a *Auth) Recover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	err := a.svc.RequestRecovery(r.Context(), req.Email, req.RedirectTo)
	if errors.Is(err, identity.ErrInvalidEmail) {
		writeError(w, r, err, "")
		return
	}
	if err != nil {
		slog.Error("password recovery failed", "error", err)
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "If an account exists for that email, a reset link has been sent."})
}

// Reset serves POST /api/auth/reset.
func (a *Auth) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if err := a.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Verify serves GET /api/auth/verify?token=.
func (a *Auth) Verify(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		writeError(w, r, identity.ErrInvalidToken, "")
		return
	}
	user, err := a.svc.VerifyEmail(r.Context(), tok)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// User serves GET /api/auth/user.
func (a *Auth) User(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromCtx(r.Context())
	if p == nil {
		writeError(w, r, identity.ErrUnauthenticated, "")
		return
	}
	user, err := a.svc.User(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}
