// internal/domain/models/account.go
package models

import "time"

// Account is a credential record held by the local identity provider.
// ID is a UUID string; it is the account id every other record is keyed by.
type Account struct {
	ID            string     `bson:"_id" json:"id"`
	Email         string     `bson:"email" json:"email"`
	EmailCI       string     `bson:"email_ci" json:"-"` // lowercase, used for lookups
	DisplayName   string     `bson:"display_name,omitempty" json:"display_name,omitempty"`
	PasswordHash  string     `bson:"password_hash,omitempty" json:"-"`
	EmailVerified bool       `bson:"email_verified" json:"email_verified"`
	GoogleID      string     `bson:"google_id,omitempty" json:"-"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}
