// Package filter turns a raw dataset into the canonical filtered dataset:
// an acceptance-predicate pass followed by deduplication.
//
// Apply is a pure function — same input dataset and rules always produce the
// same output. There is no I/O and no clock access in here, which is what
// makes the pipeline rerunnable and the idempotence property testable.
package filter

import (
	"net/url"
	"strings"
	"time"

	"github.com/sakif/github-users/internal/model"
)

// Rules is the explicit filter configuration.
type Rules struct {
	MinCreatedAt          time.Time // accept only accounts created strictly after this
	RequireNonEmptyBio    bool
	RequireValidAvatarURL bool
}

// DefaultRules matches how the published dataset is produced: accounts
// created after 2000-01-01 with a non-empty bio and a valid avatar URL.
func DefaultRules() Rules {
	return Rules{
		MinCreatedAt:          time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		RequireNonEmptyBio:    true,
		RequireValidAvatarURL: true,
	}
}

// Stats summarises one filter run, for operator output.
type Stats struct {
	Total      int // records in the raw dataset
	Rejected   int // records failing an acceptance predicate
	Duplicates int // accepted records dropped as duplicate IDs
	Kept       int // records in the filtered dataset
}

// Apply filters and deduplicates a raw dataset.
//
// PREDICATE PASS:
// A record is accepted iff its created_at parses and is strictly after
// MinCreatedAt, its trimmed bio is non-empty (when required), and its
// avatar_url is a syntactically valid absolute URL (when required).
// A record whose created_at does not parse is rejected like any other
// predicate failure — one malformed record never fails the whole pass.
//
// DEDUP PASS:
// Raw pagination can return the same account on overlapping pages. Among
// accepted records sharing an ID, the first occurrence in source order wins;
// later duplicates are dropped silently. First-seen is deterministic, so
// reruns over the same input yield the same output.
//
// Output order is the accepted, deduplicated records in their original
// relative order.
func Apply(raw model.Dataset, rules Rules) (model.Dataset, Stats) {
	stats := Stats{Total: len(raw)}

	filtered := make(model.Dataset, 0, len(raw))
	seen := make(map[int64]struct{}, len(raw))

	for _, rec := range raw {
		if !accept(rec, rules) {
			stats.Rejected++
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			stats.Duplicates++
			continue
		}
		seen[rec.ID] = struct{}{}
		filtered = append(filtered, rec)
	}

	stats.Kept = len(filtered)
	return filtered, stats
}

// accept evaluates all acceptance predicates against one record.
func accept(rec model.UserRecord, rules Rules) bool {
	created, err := rec.CreatedTime()
	if err != nil || !created.After(rules.MinCreatedAt) {
		return false
	}
	if rules.RequireNonEmptyBio && strings.TrimSpace(rec.Bio) == "" {
		return false
	}
	if rules.RequireValidAvatarURL && !validAbsoluteURL(rec.AvatarURL) {
		return false
	}
	return true
}

// validAbsoluteURL reports whether s parses as an absolute URL with a scheme
// and host. url.Parse alone accepts almost anything, so we check the parts
// that make a URL actually fetchable.
func validAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}
