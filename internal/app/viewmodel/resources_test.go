package viewmodel

import (
	"testing"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/google/go-cmp/cmp"
)

func TestGroupByCategory_PartitionsInput(t *testing.T) {
	in := []models.Document{
		{"_id": "r1", "category": "Tools"},
		{"_id": "r2", "category": "Books"},
		{"_id": "r3", "category": "Tools"},
		{"_id": "r4"},
		{"_id": "r5", "category": "Books"},
	}

	groups := GroupByCategory(in)

	var cats []string
	seen := map[string]int{}
	for _, g := range groups {
		cats = append(cats, g.Category)
		for _, r := range g.Resources {
			seen[r.ID()]++
		}
	}
	if diff := cmp.Diff([]string{"Tools", "Books", Uncategorized}, cats); diff != "" {
		t.Errorf("category order mismatch (-want +got):\n%s", diff)
	}
	for _, r := range in {
		if seen[r.ID()] != 1 {
			t.Errorf("expected %s in exactly one bucket, got %d", r.ID(), seen[r.ID()])
		}
	}
	if diff := cmp.Diff([]string{"r1", "r3"}, ids(groups[0].Resources)); diff != "" {
		t.Errorf("tools bucket mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupByCategory_Empty(t *testing.T) {
	if got := GroupByCategory(nil); len(got) != 0 {
		t.Errorf("expected no groups, got %d", len(got))
	}
}

func TestGroupByCategory_KeysOnRawValue(t *testing.T) {
	in := []models.Document{
		{"_id": "r1", "category": "Tools"},
		{"_id": "r2", "category": "Tools "},
		{"_id": "r3", "category": ""},
		{"_id": "r4"},
	}

	var cats []string
	for _, g := range GroupByCategory(in) {
		cats = append(cats, g.Category)
	}
	if diff := cmp.Diff([]string{"Tools", "Tools ", Uncategorized}, cats); diff != "" {
		t.Errorf("category mismatch (-want +got):\n%s", diff)
	}
}
