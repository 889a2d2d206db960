package graphs

import (
	"fmt"
	"time"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/groups"
	"github.com/gograph/gograph/log"
)

// The in-memory stores below back the service tests. They honor the same
// contracts as the bolt implementations, cascades included; the bolt package
// has its own tests for the persistence itself.

type inMemGraphRepository struct {
	graphs map[Key]Graph

	layouts      *inMemLayoutRepository
	grants       *inMemGrantRepository
	layoutGrants *inMemLayoutGrantRepository
	groups       *inMemGroupService
}

func (r *inMemGraphRepository) Get(key Key) (Graph, error) {
	return r.graphs[key], nil
}

func (r *inMemGraphRepository) Upsert(graph *Graph) error {
	if graph.CreatedAt.IsZero() {
		graph.CreatedAt = time.Now()
	}
	graph.UpdatedAt = time.Now()
	r.graphs[graph.Key] = *graph
	return nil
}

func (r *inMemGraphRepository) Delete(key Key) error {
	delete(r.graphs, key)

	for lk := range r.layouts.layouts {
		if lk.Graph == key {
			r.layouts.Delete(lk)
		}
	}
	kept := r.grants.grants[:0]
	for _, g := range r.grants.grants {
		if g.Graph != key {
			kept = append(kept, g)
		}
	}
	r.grants.grants = kept

	return nil
}

func (r *inMemGraphRepository) ListOwnedBy(owner string) ([]Graph, error) {
	var graphs []Graph
	for _, g := range r.graphs {
		if g.Owner == owner {
			graphs = append(graphs, g)
		}
	}
	return graphs, nil
}

func (r *inMemGraphRepository) ListPublic() ([]Graph, error) {
	var graphs []Graph
	for _, g := range r.graphs {
		if g.IsPublic {
			graphs = append(graphs, g)
		}
	}
	return graphs, nil
}

func (r *inMemGraphRepository) ListSharedWith(user string) ([]Graph, error) {
	viewerGroups, _ := r.groups.GroupsFor(user)

	seen := make(map[Key]bool)
	var graphs []Graph
	for _, group := range viewerGroups {
		grants, _ := r.grants.ListForGroup(group.Key)
		for _, grant := range grants {
			if seen[grant.Graph] {
				continue
			}
			seen[grant.Graph] = true
			if g, ok := r.graphs[grant.Graph]; ok {
				graphs = append(graphs, g)
			}
		}
	}
	return graphs, nil
}

func (r *inMemGraphRepository) List() ([]Graph, error) {
	graphs := make([]Graph, 0, len(r.graphs))
	for _, g := range r.graphs {
		graphs = append(graphs, g)
	}
	return graphs, nil
}

type defaultKey struct {
	viewer string
	graph  Key
}

type inMemLayoutRepository struct {
	layouts  map[LayoutKey]Layout
	defaults map[defaultKey]LayoutKey

	grants *inMemLayoutGrantRepository
}

func (r *inMemLayoutRepository) Get(key LayoutKey) (Layout, error) {
	return r.layouts[key], nil
}

func (r *inMemLayoutRepository) Upsert(layout *Layout) error {
	if layout.CreatedAt.IsZero() {
		layout.CreatedAt = time.Now()
	}
	layout.UpdatedAt = time.Now()
	r.layouts[layout.LayoutKey] = *layout
	return nil
}

func (r *inMemLayoutRepository) Delete(key LayoutKey) error {
	delete(r.layouts, key)

	kept := r.grants.grants[:0]
	for _, g := range r.grants.grants {
		if g.Layout != key {
			kept = append(kept, g)
		}
	}
	r.grants.grants = kept

	for dk, lk := range r.defaults {
		if lk == key {
			delete(r.defaults, dk)
		}
	}

	return nil
}

func (r *inMemLayoutRepository) Rename(key LayoutKey, newName string) (Layout, error) {
	layout, ok := r.layouts[key]
	if !ok {
		return Layout{}, nil
	}

	target := LayoutKey{Owner: key.Owner, Graph: key.Graph, Name: newName}
	if _, taken := r.layouts[target]; taken {
		return Layout{}, errors.New(fmt.Sprintf("a layout named %s already exists", newName), errors.Conflict())
	}

	layout.LayoutKey = target
	layout.UpdatedAt = time.Now()
	delete(r.layouts, key)
	r.layouts[target] = layout

	for i, g := range r.grants.grants {
		if g.Layout == key {
			r.grants.grants[i].Layout = target
		}
	}
	for dk, lk := range r.defaults {
		if lk == key {
			r.defaults[dk] = target
		}
	}

	return layout, nil
}

func (r *inMemLayoutRepository) ListForGraph(graph Key) ([]Layout, error) {
	var layouts []Layout
	for _, l := range r.layouts {
		if l.Graph == graph {
			layouts = append(layouts, l)
		}
	}
	return layouts, nil
}

func (r *inMemLayoutRepository) Default(viewer string, graph Key) (LayoutKey, error) {
	return r.defaults[defaultKey{viewer, graph}], nil
}

func (r *inMemLayoutRepository) SetDefault(viewer string, graph Key, layout LayoutKey) error {
	r.defaults[defaultKey{viewer, graph}] = layout
	return nil
}

func (r *inMemLayoutRepository) ClearDefault(viewer string, graph Key) error {
	delete(r.defaults, defaultKey{viewer, graph})
	return nil
}

type inMemGrantRepository struct {
	grants []Grant
}

func (r *inMemGrantRepository) Put(grant Grant) error {
	r.grants = append(r.grants, grant)
	return nil
}

func (r *inMemGrantRepository) Delete(grant Grant) error {
	kept := r.grants[:0]
	for _, g := range r.grants {
		if g != grant {
			kept = append(kept, g)
		}
	}
	r.grants = kept
	return nil
}

func (r *inMemGrantRepository) ListForGraph(key Key) ([]Grant, error) {
	var grants []Grant
	for _, g := range r.grants {
		if g.Graph == key {
			grants = append(grants, g)
		}
	}
	return grants, nil
}

func (r *inMemGrantRepository) ListForGroup(key groups.Key) ([]Grant, error) {
	var grants []Grant
	for _, g := range r.grants {
		if g.Group == key {
			grants = append(grants, g)
		}
	}
	return grants, nil
}

type inMemLayoutGrantRepository struct {
	grants []LayoutGrant
}

func (r *inMemLayoutGrantRepository) Put(grant LayoutGrant) error {
	r.grants = append(r.grants, grant)
	return nil
}

func (r *inMemLayoutGrantRepository) Delete(grant LayoutGrant) error {
	kept := r.grants[:0]
	for _, g := range r.grants {
		if g != grant {
			kept = append(kept, g)
		}
	}
	r.grants = kept
	return nil
}

func (r *inMemLayoutGrantRepository) ListForLayout(key LayoutKey) ([]LayoutGrant, error) {
	var grants []LayoutGrant
	for _, g := range r.grants {
		if g.Layout == key {
			grants = append(grants, g)
		}
	}
	return grants, nil
}

type inMemGroupService struct {
	groups map[groups.Key]groups.Group
}

func (s *inMemGroupService) add(owner, name string, members ...string) groups.Key {
	key := groups.Key{Owner: owner, Name: name}
	s.groups[key] = groups.Group{Key: key, ID: len(s.groups) + 1, Members: members}
	return key
}

func (s *inMemGroupService) IsMember(userID string, key groups.Key) (bool, error) {
	g, ok := s.groups[key]
	return ok && g.IsMember(userID), nil
}

func (s *inMemGroupService) GroupsFor(userID string) ([]groups.Group, error) {
	var list []groups.Group
	for _, g := range s.groups {
		if g.IsMember(userID) {
			list = append(list, g)
		}
	}
	return list, nil
}

// inMemSource assembles visibility snapshots from the in-memory stores, the
// way the bolt source does from one read transaction.
type inMemSource struct {
	graphs       *inMemGraphRepository
	layouts      *inMemLayoutRepository
	grants       *inMemGrantRepository
	layoutGrants *inMemLayoutGrantRepository
	groups       *inMemGroupService
}

func (s *inMemSource) GraphVisibility(viewer string, key Key) (VisibilitySnapshot, error) {
	graph, ok := s.graphs.graphs[key]

	snapshot := VisibilitySnapshot{
		Exists:   ok,
		IsPublic: graph.IsPublic,
	}

	grants, _ := s.grants.ListForGraph(key)
	for _, g := range grants {
		snapshot.Granted = append(snapshot.Granted, g.Group)
	}

	viewerGroups, _ := s.groups.GroupsFor(viewer)
	for _, g := range viewerGroups {
		snapshot.ViewerGroups = append(snapshot.ViewerGroups, g.Key)
	}

	return snapshot, nil
}

func (s *inMemSource) LayoutVisibility(viewer string, key LayoutKey) (LayoutVisibilitySnapshot, error) {
	graph, err := s.GraphVisibility(viewer, key.Graph)
	if err != nil {
		return LayoutVisibilitySnapshot{}, err
	}

	layout, ok := s.layouts.layouts[key]
	snapshot := LayoutVisibilitySnapshot{
		Graph:    graph,
		Exists:   ok,
		IsPublic: layout.IsPublic,
	}

	grants, _ := s.layoutGrants.ListForLayout(key)
	for _, g := range grants {
		snapshot.Granted = append(snapshot.Granted, g.Group)
	}

	return snapshot, nil
}

type fixture struct {
	graphs       *inMemGraphRepository
	layouts      *inMemLayoutRepository
	grants       *inMemGrantRepository
	layoutGrants *inMemLayoutGrantRepository
	groups       *inMemGroupService

	resolver *Resolver
	service  *Service
}

func newFixture(pageSize int) *fixture {
	grants := &inMemGrantRepository{}
	layoutGrants := &inMemLayoutGrantRepository{}
	gs := &inMemGroupService{groups: make(map[groups.Key]groups.Group)}
	layouts := &inMemLayoutRepository{
		layouts:  make(map[LayoutKey]Layout),
		defaults: make(map[defaultKey]LayoutKey),
		grants:   layoutGrants,
	}
	graphs := &inMemGraphRepository{
		graphs:       make(map[Key]Graph),
		layouts:      layouts,
		grants:       grants,
		layoutGrants: layoutGrants,
		groups:       gs,
	}

	resolver := NewResolver(&inMemSource{
		graphs:       graphs,
		layouts:      layouts,
		grants:       grants,
		layoutGrants: layoutGrants,
		groups:       gs,
	})

	return &fixture{
		graphs:       graphs,
		layouts:      layouts,
		grants:       grants,
		layoutGrants: layoutGrants,
		groups:       gs,

		resolver: resolver,
		service:  NewService(graphs, layouts, grants, layoutGrants, resolver, gs, nil, log.New("test"), pageSize),
	}
}

// addGraph inserts a graph directly in the store, bypassing the service, so
// tests control the timestamps.
func (f *fixture) addGraph(owner, name string, public bool, updatedAt time.Time, tags ...string) Key {
	key := Key{Owner: owner, Name: name}
	f.graphs.graphs[key] = Graph{
		Key:      key,
		IsPublic: public,
		Tags:     tags,

		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
	}
	return key
}

func (f *fixture) addLayout(owner string, graph Key, name string, public bool) LayoutKey {
	key := LayoutKey{Owner: owner, Graph: graph, Name: name}
	f.layouts.layouts[key] = Layout{LayoutKey: key, IsPublic: public}
	return key
}
