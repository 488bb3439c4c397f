package model

import (
	"github.com/google/uuid"
)

// Roles recognized by the booking surface. Authentication itself is owned by
// the identity subsystem; we only consume the role claims.
const (
	RolePetParent = "pet_parent"
	RoleVet       = "vet"
	RoleAdmin     = "admin"
)

// Identity is the authenticated caller as presented by the auth middleware.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Roles []string  `json:"roles"`
}

func (i Identity) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range i.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (i Identity) IsStaff() bool {
	return i.HasRole(RoleAdmin, RoleVet)
}

// UserContact is the contact projection of a user record owned by the
// identity subsystem. Read-only here.
type UserContact struct {
	ID    uuid.UUID `db:"id" json:"id"`
	Email string    `db:"email" json:"email"`
	Phone string    `db:"phone" json:"phone"`
	Name  string    `db:"name" json:"name"`
}

// Pet is the pet projection of a record owned by the intake subsystem.
// Read-only here; OwnerID gates booking ownership checks.
type Pet struct {
	ID      uuid.UUID `db:"id" json:"id"`
	OwnerID uuid.UUID `db:"owner_id" json:"owner_id"`
	Name    string    `db:"name" json:"name"`
	Species string    `db:"species" json:"species"`
}
