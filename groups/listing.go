package groups

import (
	"fmt"
	"sort"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/users"
)

// DefaultPageSize is used when the configuration does not set one.
const DefaultPageSize = 15

// Scope selects which groups a listing covers.
type Scope int

const (
	ScopeOwner Scope = iota
	ScopeMember
	ScopeAll
)

func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "owner":
		return ScopeOwner, nil
	case "member":
		return ScopeMember, nil
	case "all":
		return ScopeAll, nil
	}
	return 0, errors.New(fmt.Sprintf("unknown group scope %s", s), errors.BadRequest())
}

// Sort selects the listing order.
type Sort int

const (
	SortNameAsc Sort = iota
	SortNameDesc
	SortOwnerAsc
	SortOwnerDesc
)

func ParseSort(s string) (Sort, error) {
	switch s {
	case "", "group_ascending":
		return SortNameAsc, nil
	case "group_descending":
		return SortNameDesc, nil
	case "owner_ascending":
		return SortOwnerAsc, nil
	case "owner_descending":
		return SortOwnerDesc, nil
	}
	return 0, errors.New(fmt.Sprintf("unknown group sort %s", s), errors.BadRequest())
}

// EmptyReason tells the caller why a listing came back empty, so the
// presentation layer can pick the right guidance. The engine never formats
// prose.
type EmptyReason string

const (
	NoGroupsOwned      EmptyReason = "no-groups-owned"
	NoGroupMemberships EmptyReason = "no-group-memberships"
	NoGroupsAtAll      EmptyReason = "no-groups-at-all"
)

type Listing struct {
	Groups []Group     `json:"groups"`
	Page   int         `json:"page"`
	Pages  int         `json:"pages"`
	Total  int         `json:"total"`
	Reason EmptyReason `json:"reason,omitempty"`
}

type scopeResolver func(s *Service, viewer users.User) ([]Group, EmptyReason, error)

var scopeResolvers = map[Scope]scopeResolver{
	ScopeOwner: func(s *Service, viewer users.User) ([]Group, EmptyReason, error) {
		groups, err := s.repository.ListOwnedBy(viewer.ID)
		return groups, NoGroupsOwned, err
	},
	ScopeMember: func(s *Service, viewer users.User) ([]Group, EmptyReason, error) {
		groups, err := s.repository.ListWithMember(viewer.ID)
		return groups, NoGroupMemberships, err
	},
	ScopeAll: func(s *Service, viewer users.User) ([]Group, EmptyReason, error) {
		if !viewer.IsAdmin {
			return nil, "", errors.New("the all scope is reserved to admins", errors.Forbidden())
		}
		groups, err := s.repository.List()
		return groups, NoGroupsAtAll, err
	},
}

// List returns the viewer's groups for a scope, sorted and paginated.
// Anonymous viewers have no groups to list.
func (s *Service) List(viewer users.User, scope Scope, order Sort, page int) (Listing, error) {
	if users.IsPublic(viewer.ID) {
		return Listing{}, errors.New("you need to be logged in to list groups", errors.Unauthorized())
	}

	resolve, ok := scopeResolvers[scope]
	if !ok {
		return Listing{}, errors.New(fmt.Sprintf("unknown group scope %d", scope), errors.BadRequest())
	}

	groups, reason, err := resolve(s, viewer)
	if err != nil {
		return Listing{}, err
	}

	sortGroups(groups, order)

	total := len(groups)
	page, pages := clampPage(page, total, s.pageSize)
	if total == 0 {
		return Listing{Groups: []Group{}, Page: page, Pages: pages, Total: 0, Reason: reason}, nil
	}

	start := (page - 1) * s.pageSize
	end := start + s.pageSize
	if end > total {
		end = total
	}

	return Listing{
		Groups: groups[start:end],
		Page:   page,
		Pages:  pages,
		Total:  total,
	}, nil
}

func sortGroups(groups []Group, order Sort) {
	sort.SliceStable(groups, func(i, j int) bool {
		switch order {
		case SortNameDesc:
			return groups[i].Name > groups[j].Name
		case SortOwnerAsc:
			if groups[i].Owner != groups[j].Owner {
				return groups[i].Owner < groups[j].Owner
			}
			return groups[i].Name < groups[j].Name
		case SortOwnerDesc:
			if groups[i].Owner != groups[j].Owner {
				return groups[i].Owner > groups[j].Owner
			}
			return groups[i].Name < groups[j].Name
		default:
			return groups[i].Name < groups[j].Name
		}
	})
}

// clampPage fails closed: pages beyond the last return the last page,
// anything below 1 returns the first.
func clampPage(page, total, pageSize int) (int, int) {
	pages := (total + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}

	if page < 1 {
		page = 1
	} else if page > pages {
		page = pages
	}

	return page, pages
}
