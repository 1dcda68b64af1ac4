package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/github-users/internal/auth"
)

// TokenHandler issues bearer tokens in exchange for basic credentials.
//
// The route itself sits behind the basic-auth gate, so by the time
// HandleIssue runs the caller has already proven the credential pair. This
// handler just mints the token.
type TokenHandler struct {
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(tokens *auth.TokenService, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, logger: logger}
}

// tokenResponse is the issued-token payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "bearer"
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// HandleIssue mints a short-lived bearer token for the authenticated caller.
//
// HTTP: POST /auth/token
func (h *TokenHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		// The gate should have rejected this request already.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: "authentication required"})
		return
	}

	token, err := h.tokens.Issue(principal)
	if err != nil {
		h.logger.Error("token issuance failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(auth.TokenLifetime.Seconds()),
	})
}
