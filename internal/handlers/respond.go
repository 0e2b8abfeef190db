// Package handlers implements the marketplace's JSON HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"agentmarket/internal/catalog"
	"agentmarket/internal/identity"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errBadBody is returned for malformed or oversized request bodies.
var errBadBody = errors.New("invalid request body")

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps err to a status code and writes the error envelope.
// Unexpected errors are logged here with detail and answered generically;
// storeMsg, when set, is the answer for catalog store failures.
func writeError(w http.ResponseWriter, r *http.Request, err error, storeMsg string) {
	status, msg := classify(err)
	var se *catalog.StoreError
	if storeMsg != "" && errors.As(err, &se) {
		msg = storeMsg
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: identity.Code(err)})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, catalog.ErrUnauthorized), errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, catalog.ErrInvalidDraft):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "Agent not found"
	case errors.Is(err, catalog.ErrInvalidCategory):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, catalog.ErrCategoryNotFound):
		return http.StatusNotFound, "Category not found"
	case errors.Is(err, catalog.ErrCategoryExists), errors.Is(err, catalog.ErrCategoryInUse):
		return http.StatusConflict, err.Error()
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict, identity.ErrEmailTaken.Error()
	}
	for _, e := range []error{
		identity.ErrInvalidCredentials,
		identity.ErrEmailNotConfirmed,
		identity.ErrInvalidEmail,
		identity.ErrWeakPassword,
		identity.ErrInvalidToken,
	} {
		if errors.Is(err, e) {
			return http.StatusBadRequest, e.Error()
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// decodeJSON reads a JSON body into v. Unknown fields are ignored so
// server-assigned fields sent by clients have no effect.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return errBadBody
	}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}
