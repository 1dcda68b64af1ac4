// Package source implements the RecordSource abstraction: one page-fetch
// call against the external GitHub directory service.
//
// PAGINATION MODEL:
// GitHub's /users endpoint pages with a "since" parameter — each page returns
// accounts with IDs strictly greater than the cursor, and the next cursor is
// the last ID on the page. We wrap that in an opaque Cursor so the extractor
// never has to know the wire format. An empty page means there is no next
// cursor and extraction is complete.
//
// TWO-PHASE FETCH:
// The list endpoint returns only login/id/avatar_url. The fields we filter on
// (created_at, bio) are only available from the per-user detail endpoint
// GET /users/{login}, so each page fetch makes one list call plus one detail
// call per record. This mirrors how the dataset was originally collected and
// is why extraction is rate-limit sensitive in the first place.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/github-users/internal/apperror"
	"github.com/sakif/github-users/internal/model"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github.v3+json"
)

// Cursor identifies the next page to fetch. Callers must treat it as opaque
// and hand it back unmodified — only the source interprets its contents
// (GitHub's "since" user ID).
type Cursor struct {
	SinceID int64
}

// String implements fmt.Stringer for log output.
func (c Cursor) String() string {
	return fmt.Sprintf("since=%d", c.SinceID)
}

// RateLimit is the quota metadata GitHub attaches to every response.
// Remaining counts requests left in the current window; ResetAt is when the
// window rolls over.
type RateLimit struct {
	Remaining int
	ResetAt   time.Time
}

// Page is the result of one page fetch: the records on the page, the cursor
// for the next page (nil when this was the last page), and the rate-limit
// state after the fetch.
type Page struct {
	Records    []model.UserRecord
	NextCursor *Cursor
	RateLimit  RateLimit
}

// RecordSource abstracts one page-fetch call. The extractor depends on this
// interface, not on the GitHub client, so tests can drive it with a fake.
//
// A nil cursor means "first page". Implementations must be stateless — the
// extractor owns all pagination state.
type RecordSource interface {
	FetchPage(ctx context.Context, cursor *Cursor, pageSize int) (*Page, error)
}

// GitHubSource fetches user pages from the GitHub REST API.
type GitHubSource struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewGitHubSource creates a GitHubSource authenticated with the given API
// token.
//
// oauth2.NewClient with a StaticTokenSource returns an *http.Client that
// adds "Authorization: Bearer <token>" to every request. The token itself is
// never logged — it lives only inside the oauth2 transport.
func NewGitHubSource(token string, logger *slog.Logger) *GitHubSource {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHubSource{
		client:  oauth2.NewClient(context.Background(), ts),
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// listEntry is the portion of a GitHub /users list element we care about.
// GitHub returns a much larger object — we only unmarshal the fields we need.
type listEntry struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// detailResponse is the portion of the GitHub /users/{login} response we
// care about. Bio is a pointer because GitHub serialises a missing bio as
// JSON null, not an empty string.
type detailResponse struct {
	Login     string  `json:"login"`
	ID        int64   `json:"id"`
	CreatedAt string  `json:"created_at"`
	AvatarURL string  `json:"avatar_url"`
	Bio       *string `json:"bio"`
}

// FetchPage retrieves one page of user records.
//
// Steps:
//  1. GET /users?since={cursor}&per_page={pageSize} — the page skeleton
//  2. GET /users/{login} for each entry — created_at and bio
//
// A detail fetch that returns 404 skips that record: the account was deleted
// between the list call and the detail call, which is normal on a live
// directory. Any other detail failure propagates and fails the page.
func (s *GitHubSource) FetchPage(ctx context.Context, cursor *Cursor, pageSize int) (*Page, error) {
	var sinceID int64
	if cursor != nil {
		sinceID = cursor.SinceID
	}

	listURL := fmt.Sprintf("%s/users?since=%d&per_page=%d", s.baseURL, sinceID, pageSize)
	var entries []listEntry
	rl, err := s.getJSON(ctx, listURL, &entries)
	if err != nil {
		return nil, err
	}

	page := &Page{RateLimit: rl}
	if len(entries) == 0 {
		// Empty page — we walked off the end of the directory.
		return page, nil
	}

	for _, entry := range entries {
		detailURL := fmt.Sprintf("%s/users/%s", s.baseURL, url.PathEscape(entry.Login))
		var detail detailResponse
		rl, err = s.getJSON(ctx, detailURL, &detail)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				s.logger.Warn("user vanished between list and detail fetch",
					slog.String("login", entry.Login),
				)
				continue
			}
			return nil, err
		}
		page.RateLimit = rl

		bio := ""
		if detail.Bio != nil {
			bio = *detail.Bio
		}
		page.Records = append(page.Records, model.UserRecord{
			Login:     detail.Login,
			ID:        detail.ID,
			CreatedAt: detail.CreatedAt,
			AvatarURL: detail.AvatarURL,
			Bio:       bio,
		})
	}

	page.NextCursor = &Cursor{SinceID: entries[len(entries)-1].ID}
	return page, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
// It classifies failures into the extraction error taxonomy and always
// returns the rate-limit state parsed from the response headers.
func (s *GitHubSource) getJSON(ctx context.Context, rawURL string, out any) (RateLimit, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return RateLimit{}, apperror.Transport("building request", err)
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		// Network, DNS, or TLS failure — no response to read headers from.
		return RateLimit{}, apperror.Transport("calling GitHub API", err)
	}
	defer resp.Body.Close()

	rl := parseRateLimit(resp.Header)

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return rl, apperror.NotFound("user", rawURL)
	case (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests) && rl.Remaining == 0:
		// 403/429 with an exhausted quota is a rate-limit rejection, not an
		// auth failure — GitHub reuses 403 for both.
		io.Copy(io.Discard, resp.Body)
		return rl, &apperror.RateLimitError{ResetAt: rl.ResetAt}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return rl, apperror.Auth(fmt.Sprintf("GitHub API rejected credentials (status %d)", resp.StatusCode))
	default:
		io.Copy(io.Discard, resp.Body)
		return rl, apperror.Transport("calling GitHub API",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return rl, apperror.Decode("decoding GitHub response", err)
	}
	return rl, nil
}

// parseRateLimit reads GitHub's X-RateLimit-* headers.
// Missing or malformed headers yield a zero ResetAt and -1 Remaining so an
// absent header is never mistaken for an exhausted quota.
func parseRateLimit(h http.Header) RateLimit {
	rl := RateLimit{Remaining: -1}
	if v := h.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rl.Remaining = n
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			rl.ResetAt = time.Unix(sec, 0)
		}
	}
	return rl
}
