package viewmodel

import (
	"cmp"
	"slices"
	"time"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
)

// MergeTimeline concatenates simple and detailed events and orders them by
// dateTime, earliest first. Every output event carries an explicit kind;
// events missing one get it from the list they came from. Events whose
// dateTime does not parse sort after the dated ones, in input order.
func MergeTimeline(simple, detailed []models.Document) []models.Document {
	out := make([]models.Document, 0, len(simple)+len(detailed))
	out = appendWithKind(out, simple, models.KindSimple)
	out = appendWithKind(out, detailed, models.KindDetailed)

	slices.SortStableFunc(out, func(a, b models.Document) int {
		ta, okA := eventTime(a)
		tb, okB := eventTime(b)
		switch {
		case okA && okB:
			return ta.Compare(tb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	return out
}

func appendWithKind(dst, src []models.Document, kind string) []models.Document {
	for _, d := range src {
		if d.Kind() == "" {
			d = d.Clone()
			d[models.KindField] = kind
		}
		dst = append(dst, d)
	}
	return dst
}

func eventTime(d models.Document) (time.Time, bool) {
	s := d.String("dateTime")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// UpcomingLive returns the upcoming events flagged isLive.
func UpcomingLive(upcoming []models.Document) []models.Document {
	out := []models.Document{}
	for _, d := range upcoming {
		if d.Bool("isLive") {
			out = append(out, d)
		}
	}
	return out
}

// SortTopics orders hot topics newest first by publishDate, then by upvotes.
func SortTopics(topics []models.Document) []models.Document {
	out := slices.Clone(topics)
	slices.SortStableFunc(out, func(a, b models.Document) int {
		if c := cmp.Compare(b.String("publishDate"), a.String("publishDate")); c != 0 {
			return c
		}
		ua, _ := a.Number("upvotes")
		ub, _ := b.Number("upvotes")
		return cmp.Compare(ub, ua)
	})
	return out
}
