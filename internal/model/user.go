// Package model defines the data structures used throughout the application.
package model

import "time"

// UserRecord is one GitHub account's public profile snapshot, as extracted
// from the directory API.
//
// WHY ID int64?
// GitHub user IDs are integers (e.g. 1234567). Using int64 avoids overflow
// for large GitHub account numbers. The ID is the stable external identifier
// and the canonical deduplication key — logins can be renamed, IDs cannot.
//
// WHY CreatedAt string (not time.Time)?
// Raw data comes from an external API and may carry a malformed timestamp.
// If CreatedAt were a time.Time, one bad record would fail the JSON decode of
// an entire snapshot. Keeping the wire string lets the filter reject bad
// records individually (see CreatedTime). The API serves the same string
// back out, so nothing is lost by not parsing eagerly.
type UserRecord struct {
	Login     string `json:"login"`      // GitHub username, e.g. "torvalds"
	ID        int64  `json:"id"`         // GitHub's numeric user ID — stable, never changes
	CreatedAt string `json:"created_at"` // Account creation timestamp, ISO-8601
	AvatarURL string `json:"avatar_url"` // Profile picture URL
	Bio       string `json:"bio"`        // Profile biography (may be empty in raw data)
}

// CreatedTime parses the record's creation timestamp.
// GitHub emits RFC 3339 ("2007-10-20T05:24:19Z").
func (r UserRecord) CreatedTime() (time.Time, error) {
	return time.Parse(time.RFC3339, r.CreatedAt)
}

// Dataset is an ordered sequence of user records. Insertion order is
// first-seen order and is preserved by every stage of the pipeline.
//
// Two lifecycles share this type:
//   - raw datasets (extractor output) may contain duplicate IDs, because
//     paginated extraction can return the same account on overlapping pages
//   - filtered datasets (filter output) contain no duplicate IDs and every
//     record satisfies the acceptance rules
type Dataset []UserRecord
