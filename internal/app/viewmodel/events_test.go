package viewmodel

import (
	"testing"
	"time"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/google/go-cmp/cmp"
)

func TestMergeTimeline_SortedAndComplete(t *testing.T) {
	simple := []models.Document{
		{"_id": "s1", "dateTime": "2024-03-01T10:00:00Z"},
		{"_id": "s2", "dateTime": "2024-01-15T09:00:00Z"},
		{"_id": "s3", "dateTime": "not a date"},
	}
	detailed := []models.Document{
		{"_id": "d1", "dateTime": "2024-02-10T12:00:00Z", "shortDescription": "x"},
		{"_id": "d2", "dateTime": "2023-12-31T23:00:00Z", "kind": models.KindDetailed},
	}

	out := MergeTimeline(simple, detailed)
	if len(out) != len(simple)+len(detailed) {
		t.Fatalf("expected %d events, got %d", len(simple)+len(detailed), len(out))
	}

	want := []string{"d2", "s2", "d1", "s1", "s3"}
	if diff := cmp.Diff(want, ids(out)); diff != "" {
		t.Errorf("timeline order mismatch (-want +got):\n%s", diff)
	}

	var prev time.Time
	for _, e := range out {
		ts, ok := eventTime(e)
		if !ok {
			continue
		}
		if ts.Before(prev) {
			t.Errorf("timeline not non-decreasing at %s", e.ID())
		}
		prev = ts
	}
}

func TestMergeTimeline_SetsKindWithoutMutatingInput(t *testing.T) {
	simple := []models.Document{{"_id": "s1", "dateTime": "2024-01-01T00:00:00Z"}}
	detailed := []models.Document{{"_id": "d1", "dateTime": "2024-01-02T00:00:00Z"}}

	out := MergeTimeline(simple, detailed)
	if out[0].Kind() != models.KindSimple {
		t.Errorf("expected kind %q, got %q", models.KindSimple, out[0].Kind())
	}
	if out[1].Kind() != models.KindDetailed {
		t.Errorf("expected kind %q, got %q", models.KindDetailed, out[1].Kind())
	}
	if _, ok := simple[0]["kind"]; ok {
		t.Error("input document was modified")
	}
}

func TestMergeTimeline_Empty(t *testing.T) {
	out := MergeTimeline(nil, nil)
	if out == nil || len(out) != 0 {
		t.Errorf("expected non-nil empty slice, got %#v", out)
	}
}

func TestUpcomingLive(t *testing.T) {
	in := []models.Document{
		{"_id": "u1", "isLive": true},
		{"_id": "u2", "isLive": false},
		{"_id": "u3"},
	}
	if diff := cmp.Diff([]string{"u1"}, ids(UpcomingLive(in))); diff != "" {
		t.Errorf("live mismatch (-want +got):\n%s", diff)
	}
}

func TestSortTopics_NewestFirst(t *testing.T) {
	in := []models.Document{
		{"_id": "a", "publishDate": "2024-01-01", "upvotes": float64(1)},
		{"_id": "b", "publishDate": "2024-05-01"},
		{"_id": "c", "publishDate": "2024-01-01", "upvotes": float64(9)},
	}
	if diff := cmp.Diff([]string{"b", "c", "a"}, ids(SortTopics(in))); diff != "" {
		t.Errorf("topic order mismatch (-want +got):\n%s", diff)
	}
}
