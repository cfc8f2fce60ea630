package viewmodel

import (
	"errors"
	"testing"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/google/go-cmp/cmp"
)

func TestBuild_UnknownPage(t *testing.T) {
	if _, err := Build("nope", nil); !errors.Is(err, ErrUnknownPage) {
		t.Errorf("expected ErrUnknownPage, got %v", err)
	}
}

func TestHome_LimitsCarousel(t *testing.T) {
	p := map[string][]models.Document{
		"hotTopics": {
			{"_id": "1", "publishDate": "2024-01-04"},
			{"_id": "2", "publishDate": "2024-01-03"},
			{"_id": "3", "publishDate": "2024-01-02"},
			{"_id": "4", "publishDate": "2024-01-01"},
		},
	}
	home := Home(p)
	if len(home.Featured) != HomeCarouselSize {
		t.Fatalf("expected %d featured, got %d", HomeCarouselSize, len(home.Featured))
	}
	if home.Featured[0].Doc.ID() != "1" {
		t.Errorf("expected newest topic first, got %s", home.Featured[0].Doc.ID())
	}
}

func TestProjects_OmitsVideosWithoutID(t *testing.T) {
	p := map[string][]models.Document{
		"projects": {{
			"_id":   "p1",
			"title": "RISC-V core",
			"videos": []any{
				map[string]any{"url": "https://youtu.be/dQw4w9WgXcQ"},
				map[string]any{"url": "https://example.com/no-id", "caption": "dead"},
			},
		}},
	}
	got := Projects(p)
	want := []Video{{YouTubeID: "dQw4w9WgXcQ", Caption: "RISC-V core"}}
	if diff := cmp.Diff(want, got.Projects[0].Videos); diff != "" {
		t.Errorf("videos mismatch (-want +got):\n%s", diff)
	}
	if got.VideoDumps == nil {
		t.Error("expected non-nil video dumps")
	}
}

func TestPulse_ShapesTopics(t *testing.T) {
	p := map[string][]models.Document{
		"hotTopics": {{
			"_id":     "h1",
			"summary": "one two\n\nthree",
			"imagery": []any{
				map[string]any{"description": "no image"},
				map[string]any{"image": map[string]any{"url": "https://cdn/c.png"}},
			},
		}},
	}
	topic := Pulse(p).Topics[0]
	if topic.ReadingMinutes != 1 {
		t.Errorf("expected 1 minute, got %d", topic.ReadingMinutes)
	}
	if diff := cmp.Diff([]string{"one two", "three"}, topic.Paragraphs); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
	if topic.CoverImage != "https://cdn/c.png" {
		t.Errorf("expected cover image, got %q", topic.CoverImage)
	}
}

func TestEvents_LiveSubset(t *testing.T) {
	p := map[string][]models.Document{
		"upcomingEvents": {{"_id": "u1", "isLive": true}, {"_id": "u2"}},
	}
	ev := Events(p)
	if len(ev.Upcoming) != 2 || len(ev.Live) != 1 {
		t.Errorf("expected 2 upcoming and 1 live, got %d and %d", len(ev.Upcoming), len(ev.Live))
	}
	if len(ev.Timeline) != 0 {
		t.Errorf("expected empty timeline, got %d", len(ev.Timeline))
	}
}
