package graphs

import (
	"github.com/gograph/gograph/groups"
	"github.com/gograph/gograph/users"
)

// VisibilitySnapshot is everything a view decision needs, gathered at one
// point in time. The bolt source fills it inside a single read transaction so
// a concurrent unshare cannot produce a decision no sequential ordering
// explains.
type VisibilitySnapshot struct {
	Exists   bool
	IsPublic bool

	// Granted holds the groups the graph is shared with, ViewerGroups the
	// groups the viewer owns or belongs to.
	Granted      []groups.Key
	ViewerGroups []groups.Key
}

// LayoutVisibilitySnapshot extends the parent graph's snapshot with the
// layout's own visibility.
type LayoutVisibilitySnapshot struct {
	Graph VisibilitySnapshot

	Exists   bool
	IsPublic bool
	Granted  []groups.Key
}

// Source produces visibility snapshots. Implementations must gather each
// snapshot from a single consistent view of the store.
type Source interface {
	GraphVisibility(viewer string, key Key) (VisibilitySnapshot, error)
	LayoutVisibility(viewer string, key LayoutKey) (LayoutVisibilitySnapshot, error)
}

// Resolver answers view questions. It is read-only and fails closed: a
// missing graph, group or grant record is a deny, never an error.
type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// CanView tells whether the viewer may see the graph. Order: owner, then
// public, then anonymous cut-off, then group grants.
func (r *Resolver) CanView(viewer string, key Key) (bool, error) {
	snapshot, err := r.source.GraphVisibility(viewer, key)
	if err != nil {
		return false, err
	}

	return canView(viewer, key, snapshot), nil
}

// CanViewLayout requires visibility on the parent graph first, then grants
// access to the layout's owner, to everyone when the layout is public, and
// through layout grants into the viewer's groups.
func (r *Resolver) CanViewLayout(viewer string, key LayoutKey) (bool, error) {
	snapshot, err := r.source.LayoutVisibility(viewer, key)
	if err != nil {
		return false, err
	}

	return canViewLayout(viewer, key, snapshot), nil
}

func canView(viewer string, key Key, s VisibilitySnapshot) bool {
	if !s.Exists {
		return false
	}
	if viewer == key.Owner {
		return true
	}
	if s.IsPublic {
		return true
	}
	if users.IsPublic(viewer) {
		return false
	}
	return intersects(s.Granted, s.ViewerGroups)
}

func canViewLayout(viewer string, key LayoutKey, s LayoutVisibilitySnapshot) bool {
	if !canView(viewer, key.Graph, s.Graph) {
		return false
	}
	if !s.Exists {
		return false
	}
	if viewer == key.Owner {
		return true
	}
	if s.IsPublic {
		return true
	}
	if users.IsPublic(viewer) {
		return false
	}
	return intersects(s.Granted, s.Graph.ViewerGroups)
}

func intersects(a, b []groups.Key) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
