package groups

import (
	"fmt"
	"time"
)

// Key identifies a group. Group names are only unique per owner, so the two
// fields together form the composite key every other package uses to
// reference a group.
type Key struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", k.Owner, k.Name)
}

type Group struct {
	Key

	ID          int    `json:"id"`
	Description string `json:"description"`

	// Members holds the non-owner members. The owner is implicitly a
	// member; use IsMember for membership checks.
	Members []string `json:"members"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (g Group) IsMember(userID string) bool {
	if userID == g.Owner {
		return true
	}
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}

type Repository interface {
	// Get returns the zero Group when no group exists for the key.
	Get(Key) (Group, error)
	// Upsert stores the group, allocating its numeric id on first insert.
	Upsert(*Group) error
	// Delete removes the group and cascades over every sharing grant and
	// layout sharing grant referencing it, atomically. The cascade is
	// mandatory: a deleted group must not leave dangling visibility.
	Delete(Key) error

	ListOwnedBy(owner string) ([]Group, error)
	// ListWithMember returns the groups the user belongs to without
	// owning them.
	ListWithMember(member string) ([]Group, error)
	List() ([]Group, error)
}
