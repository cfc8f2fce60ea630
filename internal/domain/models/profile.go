// internal/domain/models/profile.go
package models

import "time"

// DefaultRole is assigned to every profile created on first sign-in.
const DefaultRole = "client"

// Profile is the per-account club membership document. It is keyed by the
// identity provider's account id and only ever merged after creation.
type Profile struct {
	AccountID  string    `bson:"_id" json:"uid" firestore:"-"`
	Email      string    `bson:"email" json:"email" firestore:"email"`
	Name       string    `bson:"name" json:"name" firestore:"name"`
	Role       string    `bson:"role" json:"role" firestore:"role"`
	Bio        string    `bson:"bio" json:"bio" firestore:"bio"`
	Department string    `bson:"department" json:"department" firestore:"department"`
	Year       string    `bson:"year" json:"year" firestore:"year"`
	Phone      string    `bson:"phone" json:"phone" firestore:"phone"`
	Interests  []string  `bson:"interests" json:"interests" firestore:"interests"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time `bson:"updated_at,omitempty" json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// ProfileUpdate is a partial profile. Nil fields are left untouched.
type ProfileUpdate struct {
	Name       *string   `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Bio        *string   `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Department *string   `json:"department,omitempty" validate:"omitempty,max=100"`
	Year       *string   `json:"year,omitempty" validate:"omitempty,max=20"`
	Phone      *string   `json:"phone,omitempty" validate:"omitempty,max=30"`
	Interests  *[]string `json:"interests,omitempty" validate:"omitempty,max=30,dive,min=1,max=50"`
}

// IsEmpty reports whether the update sets no fields.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Bio == nil && u.Department == nil &&
		u.Year == nil && u.Phone == nil && u.Interests == nil
}

// Fields returns the set fields keyed by their storage name.
func (u ProfileUpdate) Fields() map[string]any {
	out := map[string]any{}
	if u.Name != nil {
		out["name"] = *u.Name
	}
	if u.Bio != nil {
		out["bio"] = *u.Bio
	}
	if u.Department != nil {
		out["department"] = *u.Department
	}
	if u.Year != nil {
		out["year"] = *u.Year
	}
	if u.Phone != nil {
		out["phone"] = *u.Phone
	}
	if u.Interests != nil {
		out["interests"] = append([]string{}, (*u.Interests)...)
	}
	return out
}

// Apply merges the update into p in place.
func (p *Profile) Apply(u ProfileUpdate) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.Department != nil {
		p.Department = *u.Department
	}
	if u.Year != nil {
		p.Year = *u.Year
	}
	if u.Phone != nil {
		p.Phone = *u.Phone
	}
	if u.Interests != nil {
		p.Interests = append([]string{}, (*u.Interests)...)
	}
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Interests = append([]string{}, p.Interests...)
	return &cp
}
