package groups

import (
	"sort"
	"time"

	"github.com/gograph/gograph/users"
)

// inMemRepository keeps groups in a map for the service tests. The bolt
// implementation has its own tests.
type inMemRepository struct {
	groups map[Key]Group
	lastID int
}

func newInMemRepository() *inMemRepository {
	return &inMemRepository{groups: make(map[Key]Group)}
}

func (r *inMemRepository) Get(key Key) (Group, error) {
	return r.groups[key], nil
}

func (r *inMemRepository) Upsert(group *Group) error {
	if group.ID == 0 {
		r.lastID++
		group.ID = r.lastID
		group.CreatedAt = time.Now()
	}
	group.UpdatedAt = time.Now()
	r.groups[group.Key] = *group
	return nil
}

func (r *inMemRepository) Delete(key Key) error {
	delete(r.groups, key)
	return nil
}

func (r *inMemRepository) ListOwnedBy(owner string) ([]Group, error) {
	var groups []Group
	for _, g := range r.groups {
		if g.Owner == owner {
			groups = append(groups, g)
		}
	}
	sortByID(groups)
	return groups, nil
}

func (r *inMemRepository) ListWithMember(member string) ([]Group, error) {
	var groups []Group
	for _, g := range r.groups {
		if g.Owner == member {
			continue
		}
		if g.IsMember(member) {
			groups = append(groups, g)
		}
	}
	sortByID(groups)
	return groups, nil
}

func (r *inMemRepository) List() ([]Group, error) {
	groups := make([]Group, 0, len(r.groups))
	for _, g := range r.groups {
		groups = append(groups, g)
	}
	sortByID(groups)
	return groups, nil
}

func sortByID(groups []Group) {
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
}

type inMemUserRepository struct {
	users map[string]users.User
}

func newInMemUserRepository(ids ...string) *inMemUserRepository {
	r := &inMemUserRepository{users: make(map[string]users.User)}
	for _, id := range ids {
		r.users[id] = users.User{ID: id, Name: id}
	}
	return r
}

func (r *inMemUserRepository) Get(id string) (users.User, error) {
	return r.users[id], nil
}

func (r *inMemUserRepository) Upsert(u *users.User) error {
	r.users[u.ID] = *u
	return nil
}

func (r *inMemUserRepository) Delete(id string) error {
	delete(r.users, id)
	return nil
}

func (r *inMemUserRepository) List() ([]users.User, error) {
	list := make([]users.User, 0, len(r.users))
	for _, u := range r.users {
		list = append(list, u)
	}
	return list, nil
}
