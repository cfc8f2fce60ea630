package viewmodel

import (
	"testing"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/google/go-cmp/cmp"
)

func ids(docs []models.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID())
	}
	return out
}

func sampleMembers() []models.Document {
	return []models.Document{
		{"_id": "m1", "name": "Zed", "position": "Member", "order": float64(2)},
		{"_id": "t1", "name": "Tara", "position": "Treasurer"},
		{"_id": "m2", "name": "Amy", "position": "Member"},
		{"_id": "p1", "name": "Paul", "position": "President"},
		{"_id": "m3", "name": "Bob", "position": "Member", "order": float64(1)},
		{"_id": "s1", "name": "Sam", "position": "Secretary", "order": float64(1)},
		{"_id": "m4", "name": "Ann", "position": "Member"},
	}
}

func TestLeadership_FixedRank(t *testing.T) {
	got := ids(Leadership(sampleMembers()))
	want := []string{"p1", "s1", "t1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("leadership order mismatch (-want +got):\n%s", diff)
	}
}

func TestLeadership_TiesBrokenByOrderThenName(t *testing.T) {
	in := []models.Document{
		{"_id": "b", "name": "Bea", "position": "President"},
		{"_id": "a", "name": "Al", "position": "President"},
		{"_id": "c", "name": "Cy", "position": "President", "order": float64(5)},
	}
	got := ids(Leadership(in))
	want := []string{"c", "a", "b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tie order mismatch (-want +got):\n%s", diff)
	}
}

func TestGeneralMembers_MissingOrderLast(t *testing.T) {
	got := ids(GeneralMembers(sampleMembers()))
	want := []string{"m3", "m1", "m2", "m4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("member order mismatch (-want +got):\n%s", diff)
	}
}

func TestGrouping_IdempotentAndNonMutating(t *testing.T) {
	in := sampleMembers()
	before := ids(in)

	first := ids(Leadership(in))
	second := ids(Leadership(in))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("leadership not idempotent (-first +second):\n%s", diff)
	}

	g1 := ids(GeneralMembers(in))
	g2 := ids(GeneralMembers(in))
	if diff := cmp.Diff(g1, g2); diff != "" {
		t.Errorf("general members not idempotent (-first +second):\n%s", diff)
	}

	if diff := cmp.Diff(before, ids(in)); diff != "" {
		t.Errorf("input reordered (-before +after):\n%s", diff)
	}
}

func TestGroupFaculty(t *testing.T) {
	in := []models.Document{
		{"_id": "f1", "position": "Faculty Guide", "order": float64(2)},
		{"_id": "f2", "position": "Faculty Mentor"},
		{"_id": "f3", "position": "Faculty Guide", "order": float64(1)},
		{"_id": "f4", "position": "Dean"},
	}
	g := GroupFaculty(in)
	if diff := cmp.Diff([]string{"f2"}, ids(g.Mentors)); diff != "" {
		t.Errorf("mentors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"f3", "f1"}, ids(g.Guides)); diff != "" {
		t.Errorf("guides mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"f4"}, ids(g.Other)); diff != "" {
		t.Errorf("other mismatch (-want +got):\n%s", diff)
	}
}

func TestSortAlumni_EmptyInput(t *testing.T) {
	if got := SortAlumni(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}
