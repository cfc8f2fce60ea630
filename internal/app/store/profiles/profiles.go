// Package profiles stores the per-account club profile document. The
// document is created once and merged field by field afterward.
package profiles

import (
	"context"
	"errors"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
)

var (
	// ErrNotFound is returned by Get when the account has no profile yet.
	ErrNotFound = errors.New("profile not found")
	// ErrExists is returned by Create when a profile was already created.
	ErrExists = errors.New("profile already exists")
)

// Store is the profile document contract.
type Store interface {
	Get(ctx context.Context, accountID string) (*models.Profile, error)
	Create(ctx context.Context, p *models.Profile) error
	// Merge writes only the named fields, keyed by storage name.
	Merge(ctx context.Context, accountID string, fields map[string]any) error
}

// Defaults returns the profile written the first time an account is seen.
func Defaults(accountID, email, name string) *models.Profile {
	return &models.Profile{
		AccountID: accountID,
		Email:     email,
		Name:      name,
		Role:      models.DefaultRole,
		Interests: []string{},
	}
}
