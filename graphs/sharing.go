package graphs

import (
	"fmt"
	"sort"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/groups"
)

func errGroupNotFound(key groups.Key) error {
	return errors.New(fmt.Sprintf("no group %s", key), errors.NotFound())
}

// Share grants a group visibility on one of the caller's graphs. The caller
// must belong to the group, and sharing twice is a no-op.
func (s *Service) Share(caller string, graph Key, group groups.Key) error {
	if _, err := s.ownedGraph(caller, graph); err != nil {
		return err
	}
	if err := s.callerGroup(caller, group); err != nil {
		return err
	}

	grants, err := s.grants.ListForGraph(graph)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if g.Group == group {
			return nil
		}
	}

	return s.grants.Put(Grant{Graph: graph, Group: group})
}

// Unshare revokes a group's grant on one of the caller's graphs. Revoking an
// absent grant is a no-op.
func (s *Service) Unshare(caller string, graph Key, group groups.Key) error {
	if _, err := s.ownedGraph(caller, graph); err != nil {
		return err
	}
	if err := s.callerGroup(caller, group); err != nil {
		return err
	}

	return s.grants.Delete(Grant{Graph: graph, Group: group})
}

// GroupShare pairs one of the caller's groups with whether the graph is
// shared into it.
type GroupShare struct {
	Group  groups.Group `json:"group"`
	Shared bool         `json:"shared"`
}

// GroupsForGraph returns the caller's groups annotated with the graph's
// sharing state, so a client can offer share and unshare toggles in one
// round trip. Graph owner only.
func (s *Service) GroupsForGraph(caller string, graph Key) ([]GroupShare, error) {
	if _, err := s.ownedGraph(caller, graph); err != nil {
		return nil, err
	}

	grants, err := s.grants.ListForGraph(graph)
	if err != nil {
		return nil, err
	}
	granted := make(map[groups.Key]bool, len(grants))
	for _, g := range grants {
		granted[g.Group] = true
	}

	callerGroups, err := s.groups.GroupsFor(caller)
	if err != nil {
		return nil, err
	}

	shares := make([]GroupShare, len(callerGroups))
	for i, g := range callerGroups {
		shares[i] = GroupShare{Group: g, Shared: granted[g.Key]}
	}

	return shares, nil
}

// ShareLayout grants a group visibility on a layout. Allowed to the layout
// owner and to the owner of the parent graph. Idempotent.
func (s *Service) ShareLayout(caller string, layout LayoutKey, group groups.Key) error {
	if _, err := s.ownedLayout(caller, layout); err != nil {
		return err
	}
	if err := s.callerGroup(caller, group); err != nil {
		return err
	}

	grants, err := s.layoutGrants.ListForLayout(layout)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if g.Group == group {
			return nil
		}
	}

	return s.layoutGrants.Put(LayoutGrant{Layout: layout, Group: group})
}

// GroupsForLayout returns the groups the layout is shared into, sorted.
// Allowed to the layout owner and to the owner of the parent graph.
func (s *Service) GroupsForLayout(caller string, key LayoutKey) ([]groups.Key, error) {
	if _, err := s.ownedLayout(caller, key); err != nil {
		return nil, err
	}

	grants, err := s.layoutGrants.ListForLayout(key)
	if err != nil {
		return nil, err
	}

	list := make([]groups.Key, len(grants))
	for i, g := range grants {
		list[i] = g.Group
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Owner != list[j].Owner {
			return list[i].Owner < list[j].Owner
		}
		return list[i].Name < list[j].Name
	})

	return list, nil
}

// UnshareLayout revokes a group's grant on a layout. Idempotent.
func (s *Service) UnshareLayout(caller string, layout LayoutKey, group groups.Key) error {
	if _, err := s.ownedLayout(caller, layout); err != nil {
		return err
	}
	if err := s.callerGroup(caller, group); err != nil {
		return err
	}

	return s.layoutGrants.Delete(LayoutGrant{Layout: layout, Group: group})
}

// MakeLayoutPublic opens the layout to everyone who can see the parent
// graph. Idempotent.
func (s *Service) MakeLayoutPublic(caller string, key LayoutKey) (Layout, error) {
	layout, err := s.ownedLayout(caller, key)
	if err != nil {
		return Layout{}, err
	}

	if layout.IsPublic {
		return layout, nil
	}

	layout.IsPublic = true
	if err := s.layouts.Upsert(&layout); err != nil {
		return Layout{}, err
	}

	return layout, nil
}

// ShareLayoutWithGroups propagates a layout to the audience of its parent
// graph: when the graph is public the layout goes public, otherwise the
// layout is granted to every group the graph is shared with. When the graph
// has no audience beyond its owner there is nothing to share with and the
// call fails.
func (s *Service) ShareLayoutWithGroups(caller string, key LayoutKey) (Layout, error) {
	layout, err := s.ownedLayout(caller, key)
	if err != nil {
		return Layout{}, err
	}

	graph, err := s.repository.Get(key.Graph)
	if err != nil {
		return Layout{}, err
	} else if !graph.Exists() {
		return Layout{}, errGraphNotFound(key.Graph)
	}

	if graph.IsPublic {
		return s.MakeLayoutPublic(caller, key)
	}

	grants, err := s.grants.ListForGraph(key.Graph)
	if err != nil {
		return Layout{}, err
	}
	if len(grants) == 0 {
		return Layout{}, errors.New(
			fmt.Sprintf("graph %s is not shared with any group", key.Graph),
			errors.BadRequest(),
		)
	}

	existing, err := s.layoutGrants.ListForLayout(key)
	if err != nil {
		return Layout{}, err
	}
	granted := make(map[groups.Key]bool, len(existing))
	for _, g := range existing {
		granted[g.Group] = true
	}

	for _, g := range grants {
		if granted[g.Group] {
			continue
		}
		if err := s.layoutGrants.Put(LayoutGrant{Layout: key, Group: g.Group}); err != nil {
			return Layout{}, err
		}
	}

	return layout, nil
}

// callerGroup checks that the caller belongs to the group. Outsiders get a
// not found so the group's existence does not leak.
func (s *Service) callerGroup(caller string, group groups.Key) error {
	ok, err := s.groups.IsMember(caller, group)
	if err != nil {
		return err
	} else if !ok {
		return errGroupNotFound(group)
	}
	return nil
}

// ownedLayout loads a layout for a mutation, allowed to the layout owner and
// to the parent graph's owner. Everybody else gets a not found.
func (s *Service) ownedLayout(caller string, key LayoutKey) (Layout, error) {
	layout, err := s.layouts.Get(key)
	if err != nil {
		return Layout{}, err
	} else if !layout.Exists() {
		return Layout{}, errLayoutNotFound(key)
	}

	if caller != key.Owner && caller != key.Graph.Owner {
		ok, err := s.resolver.CanViewLayout(caller, key)
		if err != nil {
			return Layout{}, err
		} else if !ok {
			return Layout{}, errLayoutNotFound(key)
		}
		return Layout{}, errors.New(fmt.Sprintf("you do not own layout %s", key), errors.Forbidden())
	}

	return layout, nil
}
