package filter

import (
	"reflect"
	"testing"
	"time"

	"github.com/sakif/github-users/internal/model"
)

// goodRecord returns a record that passes every default predicate.
// Tests mutate individual fields to trigger specific rejections.
func goodRecord(id int64, login string) model.UserRecord {
	return model.UserRecord{
		Login:     login,
		ID:        id,
		CreatedAt: "2015-06-01T12:00:00Z",
		AvatarURL: "https://avatars.githubusercontent.com/u/1?v=4",
		Bio:       "writes code",
	}
}

func TestApply_AcceptsGoodRecord(t *testing.T) {
	raw := model.Dataset{goodRecord(1, "octocat")}

	filtered, stats := Apply(raw, DefaultRules())

	if len(filtered) != 1 {
		t.Fatalf("Apply() kept %d records, want 1", len(filtered))
	}
	if stats.Kept != 1 || stats.Rejected != 0 || stats.Duplicates != 0 {
		t.Errorf("stats = %+v, want 1 kept, 0 rejected, 0 duplicates", stats)
	}
}

func TestApply_Predicates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.UserRecord)
	}{
		{"empty bio", func(r *model.UserRecord) { r.Bio = "" }},
		{"whitespace-only bio", func(r *model.UserRecord) { r.Bio = "   \t" }},
		{"relative avatar URL", func(r *model.UserRecord) { r.AvatarURL = "/u/1.png" }},
		{"schemeless avatar URL", func(r *model.UserRecord) { r.AvatarURL = "avatars.example.com/u/1" }},
		{"created before threshold", func(r *model.UserRecord) { r.CreatedAt = "1999-12-31T23:59:59Z" }},
		{"created exactly at threshold", func(r *model.UserRecord) { r.CreatedAt = "2000-01-01T00:00:00Z" }},
		{"unparseable created_at", func(r *model.UserRecord) { r.CreatedAt = "last tuesday" }},
		{"empty created_at", func(r *model.UserRecord) { r.CreatedAt = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := goodRecord(1, "octocat")
			tt.mutate(&rec)

			filtered, stats := Apply(model.Dataset{rec}, DefaultRules())

			if len(filtered) != 0 {
				t.Errorf("Apply() kept a record that should be rejected: %+v", rec)
			}
			if stats.Rejected != 1 {
				t.Errorf("stats.Rejected = %d, want 1", stats.Rejected)
			}
		})
	}
}

// A record with a malformed created_at is rejected like any other predicate
// failure — the pass never errors because of one bad record.
func TestApply_BadRecordDoesNotPoisonTheRest(t *testing.T) {
	bad := goodRecord(1, "broken")
	bad.CreatedAt = "not-a-timestamp"
	raw := model.Dataset{bad, goodRecord(2, "fine")}

	filtered, _ := Apply(raw, DefaultRules())

	if len(filtered) != 1 || filtered[0].Login != "fine" {
		t.Fatalf("Apply() = %+v, want only the valid record", filtered)
	}
}

func TestApply_FlagsDisablePredicates(t *testing.T) {
	rec := goodRecord(1, "quiet")
	rec.Bio = ""
	rec.AvatarURL = "not a url"

	rules := DefaultRules()
	rules.RequireNonEmptyBio = false
	rules.RequireValidAvatarURL = false

	filtered, _ := Apply(model.Dataset{rec}, rules)

	if len(filtered) != 1 {
		t.Fatal("Apply() rejected a record whose failing predicates are disabled")
	}
}

// The creation-date threshold applies even when both boolean flags are off.
func TestApply_DateThresholdIsUnconditional(t *testing.T) {
	rec := goodRecord(1, "ancient")
	rec.CreatedAt = "1998-03-15T00:00:00Z"

	rules := Rules{RequireNonEmptyBio: false, RequireValidAvatarURL: false,
		MinCreatedAt: DefaultRules().MinCreatedAt}

	filtered, _ := Apply(model.Dataset{rec}, rules)

	if len(filtered) != 0 {
		t.Fatal("Apply() kept a record created before MinCreatedAt")
	}
}

func TestApply_FirstSeenWinsOnDuplicateID(t *testing.T) {
	first := goodRecord(1, "a")
	second := goodRecord(1, "a-old") // same ID, later in source order
	raw := model.Dataset{first, second}

	filtered, stats := Apply(raw, DefaultRules())

	if len(filtered) != 1 {
		t.Fatalf("Apply() kept %d records, want 1", len(filtered))
	}
	if filtered[0].Login != "a" {
		t.Errorf("Apply() kept login %q, want the first occurrence %q", filtered[0].Login, "a")
	}
	if stats.Duplicates != 1 {
		t.Errorf("stats.Duplicates = %d, want 1", stats.Duplicates)
	}
}

// A rejected first occurrence does not shadow an accepted later duplicate:
// dedup happens among accepted records only.
func TestApply_DedupAppliesAfterPredicates(t *testing.T) {
	rejected := goodRecord(7, "no-bio")
	rejected.Bio = ""
	accepted := goodRecord(7, "with-bio")
	raw := model.Dataset{rejected, accepted}

	filtered, _ := Apply(raw, DefaultRules())

	if len(filtered) != 1 || filtered[0].Login != "with-bio" {
		t.Fatalf("Apply() = %+v, want the accepted duplicate to survive", filtered)
	}
}

func TestApply_NoTwoRecordsShareAnID(t *testing.T) {
	raw := model.Dataset{
		goodRecord(1, "a"), goodRecord(2, "b"), goodRecord(1, "a-dup"),
		goodRecord(3, "c"), goodRecord(2, "b-dup"), goodRecord(3, "c-dup"),
	}

	filtered, _ := Apply(raw, DefaultRules())

	seen := make(map[int64]bool)
	for _, rec := range filtered {
		if seen[rec.ID] {
			t.Fatalf("filtered dataset contains duplicate ID %d", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestApply_PreservesRelativeOrder(t *testing.T) {
	raw := model.Dataset{
		goodRecord(30, "third"), goodRecord(10, "first-by-id-but-third"),
		goodRecord(20, "middle"),
	}

	filtered, _ := Apply(raw, DefaultRules())

	wantLogins := []string{"third", "first-by-id-but-third", "middle"}
	for i, rec := range filtered {
		if rec.Login != wantLogins[i] {
			t.Fatalf("Apply() order = %v, want source order %v", filtered, wantLogins)
		}
	}
}

// Apply is a pure function: running it twice on the same input yields
// identical output.
func TestApply_Idempotent(t *testing.T) {
	raw := model.Dataset{
		goodRecord(1, "a"), goodRecord(2, "b"), goodRecord(1, "a-dup"),
	}
	bad := goodRecord(3, "bad")
	bad.CreatedAt = "garbage"
	raw = append(raw, bad)

	rules := DefaultRules()
	first, firstStats := Apply(raw, rules)
	second, secondStats := Apply(raw, rules)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Apply() is not deterministic: %+v vs %+v", first, second)
	}
	if firstStats != secondStats {
		t.Errorf("Apply() stats differ between runs: %+v vs %+v", firstStats, secondStats)
	}

	// Filtering an already-filtered dataset changes nothing.
	again, stats := Apply(first, rules)
	if !reflect.DeepEqual(first, again) {
		t.Errorf("Apply() on its own output changed it: %+v vs %+v", first, again)
	}
	if stats.Rejected != 0 || stats.Duplicates != 0 {
		t.Errorf("Apply() on its own output rejected records: %+v", stats)
	}
}

func TestApply_EmptyInput(t *testing.T) {
	filtered, stats := Apply(model.Dataset{}, DefaultRules())
	if len(filtered) != 0 {
		t.Fatalf("Apply() on empty input = %+v, want empty", filtered)
	}
	if stats.Total != 0 {
		t.Errorf("stats.Total = %d, want 0", stats.Total)
	}
}

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()

	want := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	if !rules.MinCreatedAt.Equal(want) {
		t.Errorf("MinCreatedAt = %v, want %v", rules.MinCreatedAt, want)
	}
	if !rules.RequireNonEmptyBio || !rules.RequireValidAvatarURL {
		t.Error("DefaultRules() should require bio and avatar URL")
	}
}
