package graphs

import (
	"github.com/gograph/gograph/errors"
)

// SetVisibilityForTag flips IsPublic on every graph of the owner carrying
// the tag. Callers only operate on their own corpus; identically named tags
// of other users are untouched. Returns how many graphs changed.
func (s *Service) SetVisibilityForTag(caller, owner, tag string, public bool) (int, error) {
	graphs, err := s.taggedGraphs(caller, owner, tag)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, graph := range graphs {
		if graph.IsPublic == public {
			continue
		}
		graph.IsPublic = public
		if err := s.repository.Upsert(&graph); err != nil {
			return changed, err
		}
		changed++
	}

	return changed, nil
}

// DeleteAllForTag deletes every graph of the owner carrying the tag, each
// with its layouts and grants. Returns how many graphs were deleted.
func (s *Service) DeleteAllForTag(caller, owner, tag string) (int, error) {
	graphs, err := s.taggedGraphs(caller, owner, tag)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, graph := range graphs {
		if err := s.repository.Delete(graph.Key); err != nil {
			return deleted, err
		}
		deleted++
	}

	return deleted, nil
}

func (s *Service) taggedGraphs(caller, owner, tag string) ([]Graph, error) {
	if caller != owner {
		return nil, errors.New("you can only operate on your own tags", errors.Forbidden())
	}
	if tag == "" {
		return nil, errors.New("tag cannot be empty", errors.BadRequest())
	}

	owned, err := s.repository.ListOwnedBy(owner)
	if err != nil {
		return nil, err
	}

	graphs := owned[:0]
	for _, g := range owned {
		if g.HasTag(tag) {
			graphs = append(graphs, g)
		}
	}

	return graphs, nil
}
