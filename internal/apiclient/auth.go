package apiclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"agentmarket/internal/identity"
	"agentmarket/internal/models"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email    string              `json:"email"`
	Password string              `json:"password"`
	Data     models.UserMetadata `json:"data"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type recoverRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to,omitempty"`
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
	User models.User `json:"user"`
}

// GetSession implements identity.Provider. It loads the persisted session
// on first use and renews it when the access token is about to expire.
// A session that cannot be renewed is discarded and nil is returned.
func (c *Client) GetSession(ctx context.Context) (*identity.Session, error) {
	c.mu.Lock()
	if !c.loaded {
		c.loaded = true
		sess, err := loadSession(c.sessionFile)
		if err != nil {
			slog.Warn("discarding unreadable session file", "path", c.sessionFile, "error", err)
		}
		c.session = sess
	}
	sess := c.session
	c.mu.Unlock()

	if sess == nil {
		return nil, nil
	}
	if c.now().Add(c.refreshMargin).Before(sess.ExpiresAt) {
		c.schedule(sess)
		return copySession(sess), nil
	}

	fresh, err := c.refresh(ctx, sess.RefreshToken)
	var pe *identity.ProviderError
	if errors.As(err, &pe) {
		c.clear()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// SignInWithPassword implements identity.Provider.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signin", "", credentials{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, fmt.Errorf("sign in: response carried no session")
	}
	c.establish(resp.Session)
	return copySession(resp.Session), nil
}

// SignUp implements identity.Provider.
func (c *Client) SignUp(ctx context.Context, email, password string, meta models.UserMetadata) (*identity.SignUpResult, error) {
	var resp identity.SignUpResult
	req := signUpRequest{Email: email, Password: password, Data: meta}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", "", req, &resp); err != nil {
		return nil, err
	}
	if resp.Session != nil {
		c.establish(resp.Session)
	}
	return &resp, nil
}

// SignOut implements identity.Provider. The local session is dropped even
// when the server no longer knows it.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if sess != nil {
		err := c.do(ctx, http.MethodPost, "/api/auth/signout", sess.AccessToken, refreshRequest{RefreshToken: sess.RefreshToken}, nil)
		var pe *identity.ProviderError
		if err != nil && !(errors.As(err, &pe) && pe.Status == http.StatusUnauthorized) {
			return err
		}
	}
	c.clear()
	return nil
}

// ResetPasswordForEmail implements identity.Provider.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/recover", "", recoverRequest{Email: email, RedirectTo: redirectTo}, nil)
}

// ResetPassword sets a new password with the token from a recovery email.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/reset", "", resetRequest{Token: token, Password: password}, nil)
}

// VerifyEmail confirms an address with the token from a confirmation email.
func (c *Client) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/verify?token="+url.QueryEscape(token), "", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// CurrentUser fetches the signed-in account from the server.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", tok, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// accessToken returns a usable access token, renewing it if needed.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	sess, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", identity.ErrUnauthenticated
	}
	return sess.AccessToken, nil
}

// refresh exchanges the refresh token and announces TokenRefreshed.
func (c *Client) refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, fmt.Errorf("refresh: response carried no session")
	}
	c.store(resp.Session)
	c.emit(identity.TokenRefreshed, resp.Session)
	return copySession(resp.Session), nil
}

// autoRefresh runs from the refresh timer.
func (c *Client) autoRefresh() {
	c.mu.Lock()
	sess := c.session
	closed := c.closed
	c.mu.Unlock()
	if sess == nil || closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := c.refresh(ctx, sess.RefreshToken)
	if err == nil {
		return
	}

	var pe *identity.ProviderError
	if errors.As(err, &pe) || !c.now().Before(sess.ExpiresAt) {
		slog.Warn("session could not be renewed", "error", err)
		c.clear()
		return
	}
	slog.Warn("session refresh failed, retrying", "error", err, "retry_in", retryInterval)
	c.mu.Lock()
	if !c.closed && c.session == sess {
		c.resetTimer(retryInterval)
	}
	c.mu.Unlock()
}

func (c *Client) establish(sess *identity.Session) {
	c.store(sess)
	c.emit(identity.SessionEstablished, sess)
}

// store replaces the session, persists it and reschedules the refresh.
func (c *Client) store(sess *identity.Session) {
	c.mu.Lock()
	c.session = copySession(sess)
	c.loaded = true
	if !c.closed {
		c.resetTimer(c.untilRefresh(sess))
	}
	c.mu.Unlock()

	if err := saveSession(c.sessionFile, sess); err != nil {
		slog.Error("persist session failed", "path", c.sessionFile, "error", err)
	}
}

// clear drops the session and announces SessionCleared if there was one.
func (c *Client) clear() {
	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.loaded = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	if err := removeSession(c.sessionFile); err != nil {
		slog.Error("remove session file failed", "path", c.sessionFile, "error", err)
	}
	if had {
		c.emit(identity.SessionCleared, nil)
	}
}

// schedule arms the refresh timer for sess if none is armed.
func (c *Client) schedule(sess *identity.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil && !c.closed {
		c.resetTimer(c.untilRefresh(sess))
	}
}

func (c *Client) untilRefresh(sess *identity.Session) time.Duration {
	d := sess.ExpiresAt.Sub(c.now()) - c.refreshMargin
	if d < 0 {
		return 0
	}
	return d
}

// resetTimer must be called with c.mu held.
func (c *Client) resetTimer(d time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(d, c.autoRefresh)
}

func copySession(s *identity.Session) *identity.Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
