package validation_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/vlsiclub/internal/app/system/validation"
)

type sample struct {
	ID     string `json:"id" validate:"required"`
	Action string `json:"action" validate:"required,oneof=incrementViews incrementUpvotes"`
	Note   string `json:"note,omitempty" validate:"omitempty,max=5"`
}

func TestStruct_Valid(t *testing.T) {
	if err := validation.Struct(sample{ID: "a", Action: "incrementViews"}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := validation.Struct(sample{Action: "explode", Note: "too long"})

	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *validation.Error, got %T", err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected 3 failures, got %d: %v", len(verr.Fields), verr)
	}
	if verr.First() != "id is required" {
		t.Errorf("expected first message about id, got %q", verr.First())
	}
	if !strings.Contains(verr.Error(), "action must be one of") {
		t.Errorf("expected oneof message, got %q", verr.Error())
	}
	if !strings.Contains(verr.Error(), "note must be at most 5") {
		t.Errorf("expected max message, got %q", verr.Error())
	}
}
