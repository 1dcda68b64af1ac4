package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCreatedTime(t *testing.T) {
	rec := UserRecord{CreatedAt: "2007-10-20T05:24:19Z"}
	got, err := rec.CreatedTime()
	if err != nil {
		t.Fatalf("CreatedTime() error = %v", err)
	}
	want := time.Date(2007, 10, 20, 5, 24, 19, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("CreatedTime() = %v, want %v", got, want)
	}
}

func TestCreatedTime_MalformedTimestamp(t *testing.T) {
	for _, raw := range []string{"", "yesterday", "2007-10-20", "20/10/2007 05:24:19"} {
		rec := UserRecord{CreatedAt: raw}
		if _, err := rec.CreatedTime(); err == nil {
			t.Errorf("CreatedTime() accepted %q", raw)
		}
	}
}

// A record with a malformed timestamp must still decode — rejecting it is
// the filter's job, not the codec's.
func TestDataset_DecodesRecordsWithBadTimestamps(t *testing.T) {
	raw := `[
		{"login":"good","id":1,"created_at":"2015-01-01T00:00:00Z","avatar_url":"https://example.com/a.png","bio":"ok"},
		{"login":"bad","id":2,"created_at":"not a timestamp","avatar_url":"https://example.com/b.png","bio":"ok"}
	]`

	var ds Dataset
	if err := json.Unmarshal([]byte(raw), &ds); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("decoded %d records, want 2", len(ds))
	}
	if _, err := ds[1].CreatedTime(); err == nil {
		t.Error("the malformed timestamp should fail only at parse time")
	}
}
