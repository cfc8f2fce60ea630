// Package viewmodel derives page-ready shapes from the aggregated payload.
// Every function here is pure: inputs are never reordered or modified.
package viewmodel

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
)

// LeadershipRank is the fixed display order of club officers.
var LeadershipRank = map[string]int{
	"President": 1,
	"Secretary": 2,
	"Treasurer": 3,
}

// Faculty positions.
const (
	FacultyMentor = "Faculty Mentor"
	FacultyGuide  = "Faculty Guide"
)

// Leadership returns the officers among members ordered by LeadershipRank.
// Equal ranks fall back to the general member order.
func Leadership(members []models.Document) []models.Document {
	out := make([]models.Document, 0, 3)
	for _, m := range members {
		if _, ok := LeadershipRank[position(m)]; ok {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Document) int {
		if c := cmp.Compare(LeadershipRank[position(a)], LeadershipRank[position(b)]); c != 0 {
			return c
		}
		return compareByOrder(a, b)
	})
	return out
}

// GeneralMembers returns every member who is not an officer, ordered by
// the optional numeric `order` field. Members without one sort last.
func GeneralMembers(members []models.Document) []models.Document {
	out := make([]models.Document, 0, len(members))
	for _, m := range members {
		if _, officer := LeadershipRank[position(m)]; !officer {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, compareByOrder)
	return out
}

// SortAlumni orders alumni the same way as general members.
func SortAlumni(alumni []models.Document) []models.Document {
	out := slices.Clone(alumni)
	slices.SortStableFunc(out, compareByOrder)
	return out
}

// FacultyGroups splits faculty by position.
type FacultyGroups struct {
	Mentors []models.Document `json:"mentors"`
	Guides  []models.Document `json:"guides"`
	Other   []models.Document `json:"other"`
}

// GroupFaculty buckets faculty into mentors, guides, and everyone else,
// each ordered by `order`.
func GroupFaculty(faculty []models.Document) FacultyGroups {
	g := FacultyGroups{
		Mentors: []models.Document{},
		Guides:  []models.Document{},
		Other:   []models.Document{},
	}
	for _, f := range faculty {
		switch position(f) {
		case FacultyMentor:
			g.Mentors = append(g.Mentors, f)
		case FacultyGuide:
			g.Guides = append(g.Guides, f)
		default:
			g.Other = append(g.Other, f)
		}
	}
	slices.SortStableFunc(g.Mentors, compareByOrder)
	slices.SortStableFunc(g.Guides, compareByOrder)
	slices.SortStableFunc(g.Other, compareByOrder)
	return g
}

func position(d models.Document) string {
	return strings.TrimSpace(d.String("position"))
}

// orderOf treats a missing or non-numeric order as +Inf.
func orderOf(d models.Document) float64 {
	if v, ok := d.Number("order"); ok && !math.IsNaN(v) {
		return v
	}
	return math.Inf(1)
}

// compareByOrder is a total order: order, then name, then id.
func compareByOrder(a, b models.Document) int {
	if c := cmp.Compare(orderOf(a), orderOf(b)); c != 0 {
		return c
	}
	if c := strings.Compare(a.String("name"), b.String("name")); c != 0 {
		return c
	}
	return strings.Compare(a.ID(), b.ID())
}
