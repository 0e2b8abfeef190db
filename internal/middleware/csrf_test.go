// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"agentmarket/internal/models"
)

func csrfHandler(secure bool) http.Handler {
	return NewCSRF(secure)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

// csrfCookie performs a GET and returns the issued token cookie.
func csrfCookie(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/agents", nil))
	for _, c := range rr.Result().Cookies() {
		if c.Name == CSRFCookieName {
			return c
		}
	}
	t.Fatal("CSRF cookie not set")
	return nil
}

func withMethod(r *http.Request, m AuthMethod) *http.Request {
	return r.WithContext(WithPrincipal(r.Context(), &Principal{UserID: uuid.New(), Role: models.RoleCreator, Method: m}))
}

func TestNewCSRFSecureFlag(t *testing.T) {
	for _, secure := range []bool{true, false} {
		c := csrfCookie(t, csrfHandler(secure))
		if c.Secure != secure {
			t.Errorf("cookie Secure: got %v, want %v", c.Secure, secure)
		}
		if c.SameSite != http.SameSiteStrictMode {
			t.Errorf("cookie SameSite: got %v, want StrictMode", c.SameSite)
		}
		if c.HttpOnly {
			t.Error("cookie must be readable by the front-end")
		}
		if len(c.Value) != 2*csrfTokenLength {
			t.Errorf("token length: got %d", len(c.Value))
		}
	}
}

func TestCSRFCookieSessionRequiresToken(t *testing.T) {
	h := csrfHandler(false)
	cookie := csrfCookie(t, h)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusForbidden},
		{"wrong header", "deadbeef", http.StatusForbidden},
		{"matching header", cookie.Value, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withMethod(httptest.NewRequest(http.MethodPost, "/api/agents", nil), AuthCookie)
			req.AddCookie(cookie)
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCSRFExemptions(t *testing.T) {
	h := csrfHandler(false)

	tests := []struct {
		name   string
		method string
		auth   AuthMethod
	}{
		{"bearer post", http.MethodPost, AuthBearer},
		{"anonymous post", http.MethodPost, ""},
		{"cookie get", http.MethodGet, AuthCookie},
		{"cookie options", http.MethodOptions, AuthCookie},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/agents", nil)
			if tt.auth != "" {
				req = withMethod(req, tt.auth)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				t.Errorf("status: got %d, want 200", rr.Code)
			}
		})
	}
}

func TestGetCSRFToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetCSRFToken(req); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
	if got := GetCSRFToken(req); got != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}
