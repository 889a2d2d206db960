package graphs

import (
	"fmt"
	"strings"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/groups"
	"github.com/gograph/gograph/log"
	"github.com/gograph/gograph/users"
)

func errGraphNotFound(key Key) error {
	return errors.New(fmt.Sprintf("no graph %s", key), errors.NotFound())
}

func errLayoutNotFound(key LayoutKey) error {
	return errors.New(fmt.Sprintf("no layout %s", key), errors.NotFound())
}

func errNotGraphOwner(key Key) error {
	return errors.New(fmt.Sprintf("you do not own graph %s", key), errors.Forbidden())
}

// GroupService is the slice of the groups service the graph engine needs:
// membership checks for sharing and the viewer's groups for listings.
type GroupService interface {
	IsMember(userID string, key groups.Key) (bool, error)
	GroupsFor(userID string) ([]groups.Group, error)
}

type Service struct {
	repository   Repository
	layouts      LayoutRepository
	grants       GrantRepository
	layoutGrants LayoutGrantRepository

	resolver *Resolver
	groups   GroupService
	index    TagIndex
	logger   log.Logger

	pageSize int
}

func NewService(
	repo Repository,
	layouts LayoutRepository,
	grants GrantRepository,
	layoutGrants LayoutGrantRepository,
	resolver *Resolver,
	gs GroupService,
	index TagIndex,
	logger log.Logger,
	pageSize int,
) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		repository:   repo,
		layouts:      layouts,
		grants:       grants,
		layoutGrants: layoutGrants,

		resolver: resolver,
		groups:   gs,
		index:    index,
		logger:   logger,

		pageSize: pageSize,
	}
}

// Upload stores a new graph for the caller. The name falls back to the
// payload metadata when none is given, and the (caller, name) pair must be
// free.
func (s *Service) Upload(caller, name string, raw []byte) (Graph, error) {
	if users.IsPublic(caller) {
		return Graph{}, errors.New("you need to be logged in to upload a graph", errors.Unauthorized())
	}

	tags, fallback, err := parsePayload(raw)
	if err != nil {
		return Graph{}, err
	}

	if name == "" {
		name = fallback
	}
	if name == "" {
		return Graph{}, errors.New("graph name cannot be empty", errors.BadRequest())
	}
	if strings.Contains(name, "|") {
		return Graph{}, errors.New("graph name cannot contain '|'", errors.BadRequest())
	}

	key := Key{Owner: caller, Name: name}
	existing, err := s.repository.Get(key)
	if err != nil {
		return Graph{}, err
	} else if existing.Exists() {
		return Graph{}, errors.New(fmt.Sprintf("you already have a graph named %s", name), errors.Conflict())
	}

	graph := Graph{
		Key:     key,
		Payload: raw,
		Tags:    tags,
	}
	if err := s.repository.Upsert(&graph); err != nil {
		return Graph{}, err
	}

	s.indexTags(tags)
	return graph, nil
}

// Update replaces the payload of one of the caller's graphs, re-deriving its
// tags.
func (s *Service) Update(caller string, key Key, raw []byte) (Graph, error) {
	graph, err := s.ownedGraph(caller, key)
	if err != nil {
		return Graph{}, err
	}

	tags, _, err := parsePayload(raw)
	if err != nil {
		return Graph{}, err
	}

	graph.Payload = raw
	graph.Tags = tags
	if err := s.repository.Upsert(&graph); err != nil {
		return Graph{}, err
	}

	s.indexTags(tags)
	return graph, nil
}

// Get returns the graph when the viewer may see it. A graph the viewer may
// not see answers exactly like one that does not exist.
func (s *Service) Get(viewer string, key Key) (Graph, error) {
	ok, err := s.resolver.CanView(viewer, key)
	if err != nil {
		return Graph{}, err
	} else if !ok {
		return Graph{}, errGraphNotFound(key)
	}

	graph, err := s.repository.Get(key)
	if err != nil {
		return Graph{}, err
	} else if !graph.Exists() {
		return Graph{}, errGraphNotFound(key)
	}

	return graph, nil
}

// Delete removes the graph. Owner only. The repository cascades the layouts
// and every grant referencing the graph.
func (s *Service) Delete(caller string, key Key) error {
	if _, err := s.ownedGraph(caller, key); err != nil {
		return err
	}

	return s.repository.Delete(key)
}

// MakePublic opens the graph to everyone, anonymous viewers included.
// Idempotent.
func (s *Service) MakePublic(caller string, key Key) (Graph, error) {
	return s.setVisibility(caller, key, true)
}

// MakePrivate restricts the graph back to its owner and group grants.
// Idempotent.
func (s *Service) MakePrivate(caller string, key Key) (Graph, error) {
	return s.setVisibility(caller, key, false)
}

func (s *Service) setVisibility(caller string, key Key, public bool) (Graph, error) {
	graph, err := s.ownedGraph(caller, key)
	if err != nil {
		return Graph{}, err
	}

	if graph.IsPublic == public {
		return graph, nil
	}

	graph.IsPublic = public
	if err := s.repository.Upsert(&graph); err != nil {
		return Graph{}, err
	}

	return graph, nil
}

// Exists tells whether the caller already has a graph under that name. Only
// the caller's own namespace is consulted.
func (s *Service) Exists(caller, name string) (bool, error) {
	graph, err := s.repository.Get(Key{Owner: caller, Name: name})
	if err != nil {
		return false, err
	}
	return graph.Exists(), nil
}

// ownedGraph loads a graph for a mutation. Callers that could not even see
// the graph get a not found, callers that can see it but do not own it get a
// forbidden.
func (s *Service) ownedGraph(caller string, key Key) (Graph, error) {
	graph, err := s.repository.Get(key)
	if err != nil {
		return Graph{}, err
	} else if !graph.Exists() {
		return Graph{}, errGraphNotFound(key)
	}

	if caller != key.Owner {
		ok, err := s.resolver.CanView(caller, key)
		if err != nil {
			return Graph{}, err
		} else if !ok {
			return Graph{}, errGraphNotFound(key)
		}
		return Graph{}, errNotGraphOwner(key)
	}

	return graph, nil
}

func (s *Service) indexTags(tags []string) {
	if s.index == nil {
		return
	}
	for _, tag := range tags {
		if err := s.index.Index(tag); err != nil {
			s.logger.Errorf("could not index tag %s: %v", tag, err)
		}
	}
}

// SearchTags queries the autocomplete index.
func (s *Service) SearchTags(prefix string) ([]string, error) {
	if s.index == nil {
		return []string{}, nil
	}
	return s.index.Search(prefix)
}
