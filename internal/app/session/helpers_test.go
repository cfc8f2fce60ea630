package session_test

import (
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func ignoreTimes() cmp.Option {
	return cmpopts.IgnoreFields(models.Profile{}, "CreatedAt", "UpdatedAt")
}
