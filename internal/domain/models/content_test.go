package models

import "testing"

func TestDocument_Accessors(t *testing.T) {
	d := Document{
		"_id":    "abc",
		"_type":  "hotTopics",
		"title":  "FinFETs",
		"views":  float64(5),
		"order":  3,
		"isLive": true,
		"image":  map[string]any{"url": "https://cdn/x.png"},
	}

	if d.ID() != "abc" {
		t.Errorf("expected id abc, got %q", d.ID())
	}
	if d.Type() != "hotTopics" {
		t.Errorf("expected type hotTopics, got %q", d.Type())
	}
	if v, ok := d.Number("views"); !ok || v != 5 {
		t.Errorf("expected views 5, got %v (ok=%v)", v, ok)
	}
	if v, ok := d.Number("order"); !ok || v != 3 {
		t.Errorf("expected int order to read as 3, got %v (ok=%v)", v, ok)
	}
	if _, ok := d.Number("title"); ok {
		t.Error("expected string field not to read as a number")
	}
	if !d.Bool("isLive") {
		t.Error("expected isLive true")
	}
	if d.Object("image").String("url") != "https://cdn/x.png" {
		t.Errorf("expected nested url, got %v", d.Object("image"))
	}
	if d.Object("missing") != nil {
		t.Error("expected nil for missing object")
	}
}

func TestDocument_CloneIsShallowCopy(t *testing.T) {
	d := Document{"a": "1"}
	c := d.Clone()
	c["a"] = "2"
	if d["a"] != "1" {
		t.Errorf("expected original untouched, got %v", d["a"])
	}
}

func TestProfile_ApplyMergesOnlySetFields(t *testing.T) {
	p := &Profile{Name: "Asha", Bio: "old", Department: "ECE"}
	bio := "new bio"
	interests := []string{"analog", "layout"}
	p.Apply(ProfileUpdate{Bio: &bio, Interests: &interests})

	if p.Name != "Asha" || p.Department != "ECE" {
		t.Errorf("expected untouched fields to survive, got %+v", p)
	}
	if p.Bio != "new bio" {
		t.Errorf("expected bio updated, got %q", p.Bio)
	}
	interests[0] = "mutated"
	if p.Interests[0] != "analog" {
		t.Error("expected interests to be copied, not aliased")
	}
}

func TestProfileUpdate_Fields(t *testing.T) {
	year := "3"
	u := ProfileUpdate{Year: &year}
	f := u.Fields()
	if len(f) != 1 || f["year"] != "3" {
		t.Errorf("expected only year, got %v", f)
	}
	if (ProfileUpdate{}).IsEmpty() != true {
		t.Error("expected zero update to be empty")
	}
	if u.IsEmpty() {
		t.Error("expected update with year not to be empty")
	}
}
