package groups

import (
	"fmt"
	"strings"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/users"
)

func errGroupNotFound(key Key) error {
	return errors.New(fmt.Sprintf("no group %s", key), errors.NotFound())
}

func errNotGroupOwner(key Key) error {
	return errors.New(fmt.Sprintf("you do not own group %s", key), errors.Forbidden())
}

// reservedNames are group names taken by listing routes.
var reservedNames = map[string]bool{
	"all":    true,
	"member": true,
	"public": true,
}

type Service struct {
	repository     Repository
	userRepository users.Repository

	pageSize int
}

func NewService(repo Repository, userRepo users.Repository, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		repository:     repo,
		userRepository: userRepo,

		pageSize: pageSize,
	}
}

// Create allocates a new group owned by the caller. The (owner, name) pair
// must be free.
func (s *Service) Create(caller, name, description string) (Group, error) {
	if name == "" {
		return Group{}, errors.New("group name cannot be empty", errors.BadRequest())
	}
	if strings.Contains(name, "|") {
		return Group{}, errors.New("group name cannot contain '|'", errors.BadRequest())
	}
	if reservedNames[strings.ToLower(name)] {
		return Group{}, errors.New(fmt.Sprintf("group name %s is reserved", name), errors.BadRequest())
	}

	key := Key{Owner: caller, Name: name}
	existing, err := s.repository.Get(key)
	if err != nil {
		return Group{}, err
	} else if existing.ID != 0 {
		return Group{}, errors.New(fmt.Sprintf("group name %s already exists for this account", name), errors.Conflict())
	}

	group := Group{
		Key:         key,
		Description: description,
		Members:     []string{},
	}
	if err := s.repository.Upsert(&group); err != nil {
		return Group{}, err
	}

	return group, nil
}

// Get returns the group to its members. Non-members get a not found, never a
// forbidden: the group's existence is not leaked.
func (s *Service) Get(caller string, key Key) (Group, error) {
	group, err := s.repository.Get(key)
	if err != nil {
		return Group{}, err
	}

	if group.ID == 0 || !group.IsMember(caller) {
		return Group{}, errGroupNotFound(key)
	}

	return group, nil
}

// Delete removes the group. Owner only. The repository cascades the sharing
// grants referencing the group.
func (s *Service) Delete(caller string, key Key) error {
	group, err := s.repository.Get(key)
	if err != nil {
		return err
	} else if group.ID == 0 {
		return errGroupNotFound(key)
	}

	if caller != key.Owner {
		return errNotGroupOwner(key)
	}

	return s.repository.Delete(key)
}

// AddMember subscribes a user to the group. Owner only, idempotent. The
// member must have an account.
func (s *Service) AddMember(caller string, key Key, memberID string) (Group, error) {
	group, err := s.repository.Get(key)
	if err != nil {
		return Group{}, err
	} else if group.ID == 0 {
		return Group{}, errGroupNotFound(key)
	}

	if caller != key.Owner {
		return Group{}, errNotGroupOwner(key)
	}

	member, err := s.userRepository.Get(memberID)
	if err != nil {
		return Group{}, err
	} else if member.ID == "" {
		return Group{}, errors.New(fmt.Sprintf("no user for id %s", memberID), errors.NotFound())
	}

	if group.IsMember(memberID) {
		return group, nil
	}

	group.Members = append(group.Members, memberID)
	if err := s.repository.Upsert(&group); err != nil {
		return Group{}, err
	}

	return group, nil
}

// RemoveMember unsubscribes a user from the group. Allowed to the group
// owner and to the member themself. Idempotent.
func (s *Service) RemoveMember(caller string, key Key, memberID string) (Group, error) {
	group, err := s.repository.Get(key)
	if err != nil {
		return Group{}, err
	} else if group.ID == 0 {
		return Group{}, errGroupNotFound(key)
	}

	if caller != key.Owner && caller != memberID {
		return Group{}, errNotGroupOwner(key)
	}

	if memberID == key.Owner {
		return Group{}, errors.New("the group owner cannot be removed", errors.BadRequest())
	}

	index := -1
	for i, m := range group.Members {
		if m == memberID {
			index = i
			break
		}
	}
	if index == -1 {
		return group, nil
	}

	group.Members = append(group.Members[:index], group.Members[index+1:]...)
	if err := s.repository.Upsert(&group); err != nil {
		return Group{}, err
	}

	return group, nil
}

// ChangeDescription updates the group description. Owner only.
func (s *Service) ChangeDescription(caller string, key Key, description string) (Group, error) {
	group, err := s.repository.Get(key)
	if err != nil {
		return Group{}, err
	} else if group.ID == 0 {
		return Group{}, errGroupNotFound(key)
	}

	if caller != key.Owner {
		return Group{}, errNotGroupOwner(key)
	}

	group.Description = description
	if err := s.repository.Upsert(&group); err != nil {
		return Group{}, err
	}

	return group, nil
}

// IsMember answers membership, owner included. A missing group is simply not
// a membership, never an error.
func (s *Service) IsMember(userID string, key Key) (bool, error) {
	group, err := s.repository.Get(key)
	if err != nil {
		return false, err
	}

	return group.ID != 0 && group.IsMember(userID), nil
}

// GroupsFor returns every group the user can see graphs through: the ones
// they own and the ones they are a member of.
func (s *Service) GroupsFor(userID string) ([]Group, error) {
	owned, err := s.repository.ListOwnedBy(userID)
	if err != nil {
		return nil, err
	}

	member, err := s.repository.ListWithMember(userID)
	if err != nil {
		return nil, err
	}

	return append(owned, member...), nil
}
