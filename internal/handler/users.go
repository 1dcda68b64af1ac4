package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/github-users/internal/service"
)

// UserHandler serves the read-only user query endpoints.
//
// All three endpoints sit behind the access gate (wired in internal/server),
// so by the time a request reaches these methods it is authenticated. The
// handler only parses the request, calls the service, and writes the result —
// no business logic lives here.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleList returns the full filtered dataset.
//
// HTTP: GET /users/
//
// The dataset is small enough to serve whole — there is deliberately no
// pagination on query results.
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleSearch returns records matching the q parameter as a
// case-insensitive substring of login or bio.
//
// HTTP: GET /users/search?q=term
//
// A missing q is treated the same as a too-short one — both are "the search
// term is not long enough to search with".
func (h *UserHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")

	matches, err := h.users.Search(r.Context(), term)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleGet returns a single record by login.
//
// HTTP: GET /users/{login}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	login := r.PathValue("login")

	record, err := h.users.Get(r.Context(), login)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleReload rebuilds the catalog from the current filtered snapshot and
// swaps it in atomically. In-flight requests finish on the snapshot they
// started with.
//
// HTTP: POST /admin/reload
func (h *UserHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Reload(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}
