package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"agentmarket/internal/identity"
	"agentmarket/internal/middleware"
	"agentmarket/internal/models"
	"agentmarket/internal/session"
)

func testSession(role models.Role) *identity.Session {
	return &identity.Session{
		AccessToken:  "access",
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		User: models.User{
			ID:       uuid.New(),
			Email:    "ada@example.com",
			Metadata: models.UserMetadata{Role: role},
		},
	}
}

func TestSignInRedirectsByRole(t *testing.T) {
	f := &fakeIdentity{session: testSession(models.RoleCreator)}
	cookies := &fakeCookies{}
	a := NewAuth(f, cookies)

	rec := serve(http.HandlerFunc(a.SignIn), http.MethodPost, "/api/auth/signin", `{"email":"ada@example.com","password":"pw123456"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["redirect"] != "/creator/dashboard" {
		t.Errorf("redirect: got %v", body["redirect"])
	}
	if sess := body["session"].(map[string]any); sess["access_token"] != "access" {
		t.Errorf("session: got %v", sess)
	}
	if len(cookies.set) != 1 || cookies.set[0] != "refresh-1" {
		t.Errorf("cookie: got %v", cookies.set)
	}
}

func TestSignInRejected(t *testing.T) {
	f := &fakeIdentity{err: identity.ErrInvalidCredentials}
	cookies := &fakeCookies{}
	a := NewAuth(f, cookies)

	rec := serve(http.HandlerFunc(a.SignIn), http.MethodPost, "/api/auth/signin", `{"email":"ada@example.com","password":"wrong"}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Invalid login credentials" || body["code"] != "invalid_credentials" {
		t.Errorf("body: got %v", body)
	}
	if len(cookies.set) != 0 {
		t.Error("no cookie should be set on failure")
	}
}

func TestSignUp(t *testing.T) {
	tests := []struct {
		name       string
		result     *identity.SignUpResult
		err        error
		want       int
		wantCookie bool
	}{
		{"awaiting confirmation", &identity.SignUpResult{User: models.User{Email: "ada@example.com"}}, nil, http.StatusOK, false},
		{"immediate session", &identity.SignUpResult{User: models.User{Email: "ada@example.com"}, Session: testSession(models.RoleUser)}, nil, http.StatusOK, true},
		{"taken", nil, identity.ErrEmailTaken, http.StatusConflict, false},
		{"weak password", nil, identity.ErrWeakPassword, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeIdentity{signUp: tt.result, err: tt.err}
			cookies := &fakeCookies{}
			body := `{"email":"ada@example.com","password":"pw123456","data":{"role":"creator","first_name":"Ada"}}`

			rec := serve(http.HandlerFunc(NewAuth(f, cookies).SignUp), http.MethodPost, "/api/auth/signup", body, nil)

			if rec.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.want)
			}
			if got := len(cookies.set) == 1; got != tt.wantCookie {
				t.Errorf("cookie set: got %v, want %v", got, tt.wantCookie)
			}
			if f.gotMeta.Role != models.RoleCreator {
				t.Errorf("metadata role: got %q", f.gotMeta.Role)
			}
		})
	}
}

func TestSignUpAwaitingConfirmationHasNullSession(t *testing.T) {
	f := &fakeIdentity{signUp: &identity.SignUpResult{User: models.User{Email: "ada@example.com"}}}
	rec := serve(http.HandlerFunc(NewAuth(f, &fakeCookies{}).SignUp), http.MethodPost, "/api/auth/signup", `{"email":"ada@example.com","password":"pw123456"}`, nil)

	body := decodeBody(t, rec)
	if v, ok := body["session"]; !ok || v != nil {
		t.Errorf("session: got %v (present %v), want null", v, ok)
	}
}

func TestRefreshFromCookie(t *testing.T) {
	f := &fakeIdentity{session: testSession(models.RoleUser)}
	cookies := &fakeCookies{}
	a := NewAuth(f, cookies)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "old-refresh"})
	rec := httptest.NewRecorder()
	a.Refresh(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if f.gotToken != "old-refresh" {
		t.Errorf("token: got %q", f.gotToken)
	}
	if len(cookies.set) != 1 || cookies.set[0] != "refresh-1" {
		t.Errorf("rotated cookie: got %v", cookies.set)
	}
}

func TestRefreshInvalidToken(t *testing.T) {
	f := &fakeIdentity{err: identity.ErrInvalidToken}
	cookies := &fakeCookies{}
	a := NewAuth(f, cookies)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "stale"})
	rec := httptest.NewRecorder()
	a.Refresh(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", rec.Code)
	}
	if cookies.cleared != 1 {
		t.Errorf("cookie should be cleared, cleared=%d", cookies.cleared)
	}
	if body := decodeBody(t, rec); body["code"] != "invalid_token" {
		t.Errorf("code: got %v", body["code"])
	}
}

func TestRefreshFromBodyLeavesCookieAlone(t *testing.T) {
	f := &fakeIdentity{session: testSession(models.RoleUser)}
	cookies := &fakeCookies{}

	rec := serve(http.HandlerFunc(NewAuth(f, cookies).Refresh), http.MethodPost, "/api/auth/refresh", `{"refresh_token":"body-token"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if f.gotToken != "body-token" {
		t.Errorf("token: got %q", f.gotToken)
	}
	if len(cookies.set) != 0 || cookies.cleared != 0 {
		t.Errorf("cookies touched: %+v", cookies)
	}
}

func TestSignOut(t *testing.T) {
	f := &fakeIdentity{}
	cookies := &fakeCookies{}
	p := &middleware.Principal{UserID: uuid.New(), Method: middleware.AuthCookie, SessionID: "cookie-session"}

	rec := serve(http.HandlerFunc(NewAuth(f, cookies).SignOut), http.MethodPost, "/api/auth/signout", "", p)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
	if f.gotToken != "cookie-session" {
		t.Errorf("token: got %q, want the cookie session", f.gotToken)
	}
	if cookies.cleared != 1 {
		t.Errorf("cleared: got %d, want 1", cookies.cleared)
	}
}

func TestSignOutFailure(t *testing.T) {
	f := &fakeIdentity{err: errors.New("valkey down")}
	rec := serve(http.HandlerFunc(NewAuth(f, &fakeCookies{}).SignOut), http.MethodPost, "/api/auth/signout", `{"refresh_token":"x"}`, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "valkey") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestRecover(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"sent", nil, http.StatusOK},
		{"mail failure looks the same", errors.New("smtp: connection refused"), http.StatusOK},
		{"invalid email", identity.ErrInvalidEmail, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeIdentity{err: tt.err}
			body := `{"email":"ada@example.com","redirect_to":"https://market.example/reset-password"}`
			rec := serve(http.HandlerFunc(NewAuth(f, &fakeCookies{}).Recover), http.MethodPost, "/api/auth/recover", body, nil)

			if rec.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.want)
			}
			if f.gotRedir != "https://market.example/reset-password" {
				t.Errorf("redirect: got %q", f.gotRedir)
			}
		})
	}
}

func TestReset(t *testing.T) {
	f := &fakeIdentity{}
	a := NewAuth(f, &fakeCookies{})

	rec := serve(http.HandlerFunc(a.Reset), http.MethodPost, "/api/auth/reset", `{"token":"rt","password":"newpassword"}`, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
	if f.gotToken != "rt" {
		t.Errorf("token: got %q", f.gotToken)
	}

	f.err = identity.ErrInvalidToken
	rec = serve(http.HandlerFunc(a.Reset), http.MethodPost, "/api/auth/reset", `{"token":"rt","password":"newpassword"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expired token status: got %d, want 400", rec.Code)
	}
}

func TestVerify(t *testing.T) {
	f := &fakeIdentity{user: &models.User{Email: "ada@example.com"}}
	a := NewAuth(f, &fakeCookies{})

	rec := serve(http.HandlerFunc(a.Verify), http.MethodGet, "/api/auth/verify?token=ct", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if f.gotToken != "ct" {
		t.Errorf("token: got %q", f.gotToken)
	}

	rec = serve(http.HandlerFunc(a.Verify), http.MethodGet, "/api/auth/verify", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing token status: got %d, want 400", rec.Code)
	}
}

func TestUser(t *testing.T) {
	f := &fakeIdentity{user: &models.User{Email: "ada@example.com"}}
	a := NewAuth(f, &fakeCookies{})

	rec := serve(http.HandlerFunc(a.User), http.MethodGet, "/api/auth/user", "", creatorPrincipal())
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	user := decodeBody(t, rec)["user"].(map[string]any)
	if user["email"] != "ada@example.com" {
		t.Errorf("email: got %v", user["email"])
	}

	rec = serve(http.HandlerFunc(a.User), http.MethodGet, "/api/auth/user", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status: got %d, want 401", rec.Code)
	}
}
