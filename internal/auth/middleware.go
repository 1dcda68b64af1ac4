package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
// A package-private key type prevents other packages from reading or
// shadowing the authenticated principal in the request context.
type contextKey string

const principalKey contextKey = "principal"

// Gate is the access-gate middleware: every request through it must present
// valid credentials, or it is rejected with 401 before any handler — and
// therefore any catalog lookup — runs. The gate is a precondition, not a
// filter on results.
//
// Two credential forms are accepted:
//   - "Authorization: Basic ..." — checked against the injected Verifier
//   - "Authorization: Bearer ..." — checked against the TokenService,
//     when one is configured (tokens may be nil)
//
// The 401 body is {"detail": ...}, matching the error shape of the rest of
// the API, and the WWW-Authenticate header tells clients which scheme to use.
type Gate struct {
	verifier Verifier
	tokens   *TokenService // nil disables the bearer scheme
	logger   *slog.Logger
}

// NewGate creates the access-gate middleware. Pass a nil TokenService to
// accept basic credentials only.
func NewGate(verifier Verifier, tokens *TokenService, logger *slog.Logger) *Gate {
	return &Gate{verifier: verifier, tokens: tokens, logger: logger}
}

// Require wraps next so it only runs for authenticated requests.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := g.authenticate(r)
		if !ok {
			// Log the rejection but never the credentials themselves.
			g.logger.Warn("request rejected by access gate",
				slog.String("path", r.URL.Path),
				slog.String("remote", r.RemoteAddr),
			)
			w.Header().Set("WWW-Authenticate", `Basic realm="github-users"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"authentication required"}`))
			return
		}

		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate checks the request's credentials and returns the principal
// name on success.
func (g *Gate) authenticate(r *http.Request) (string, bool) {
	if username, password, ok := r.BasicAuth(); ok {
		if g.verifier.Verify(username, password) {
			return username, true
		}
		return "", false
	}

	if g.tokens != nil {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			username, err := g.tokens.Validate(token)
			if err != nil {
				return "", false
			}
			return username, true
		}
	}

	// Missing or malformed Authorization header.
	return "", false
}

// PrincipalFromContext returns the authenticated principal set by Require.
// Returns ("", false) on requests that did not pass through the gate.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey).(string)
	return p, ok && p != ""
}
