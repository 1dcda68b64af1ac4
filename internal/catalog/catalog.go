// Package catalog provides the in-memory, read-only index over one filtered
// dataset snapshot.
//
// A Catalog is immutable after construction. Reloading a new snapshot builds
// a whole new Catalog and swaps it in (see internal/service) — records are
// never mutated in place, so concurrent readers need no locking.
package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/sakif/github-users/internal/apperror"
	"github.com/sakif/github-users/internal/model"
)

// MinSearchLength is the minimum search-term length, in runes.
// Shorter terms match too much of the dataset to be useful.
const MinSearchLength = 3

// Catalog indexes one filtered dataset: a login → record mapping for O(1)
// lookup plus the ordered sequence for listing and substring search.
// Construction cost and memory are linear in dataset size, which is ≤ a few
// thousand records here — no external index structure is warranted.
type Catalog struct {
	records model.Dataset
	byLogin map[string]int // login → index into records
}

// New builds a Catalog from a filtered dataset.
//
// The dataset is copied so later mutation of the caller's slice cannot leak
// into an index that concurrent requests are reading.
func New(ds model.Dataset) *Catalog {
	records := make(model.Dataset, len(ds))
	copy(records, ds)

	byLogin := make(map[string]int, len(records))
	for i, rec := range records {
		// Filtering dedups by ID, not login, so two records can share a
		// login. First occurrence wins, consistent with the dedup policy.
		if _, ok := byLogin[rec.Login]; !ok {
			byLogin[rec.Login] = i
		}
	}
	return &Catalog{records: records, byLogin: byLogin}
}

// Len reports the number of records in the catalog.
func (c *Catalog) Len() int {
	return len(c.records)
}

// Get returns the record with the given login.
// Returns apperror.ErrNotFound if no such record exists.
func (c *Catalog) Get(login string) (model.UserRecord, error) {
	i, ok := c.byLogin[login]
	if !ok {
		return model.UserRecord{}, apperror.NotFound("user", login)
	}
	return c.records[i], nil
}

// List returns the full dataset in insertion order.
// The returned slice is shared with the catalog — callers must not modify it.
func (c *Catalog) List() model.Dataset {
	return c.records
}

// Search returns records whose login or bio contains term as a
// case-insensitive substring, in dataset order (no relevance ranking).
//
// Terms under MinSearchLength runes fail with apperror.ErrQueryTooShort.
// A well-formed term that matches nothing returns an empty slice, not an
// error — "no results" is an answer, not a failure.
func (c *Catalog) Search(term string) (model.Dataset, error) {
	if utf8.RuneCountInString(term) < MinSearchLength {
		return nil, apperror.QueryTooShort(MinSearchLength)
	}

	needle := strings.ToLower(term)
	matches := model.Dataset{}
	for _, rec := range c.records {
		if strings.Contains(strings.ToLower(rec.Login), needle) ||
			strings.Contains(strings.ToLower(rec.Bio), needle) {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}
