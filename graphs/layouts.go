package graphs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/users"
)

// SaveLayout stores a layout owned by the caller for a graph the caller can
// see. Saving under an existing name of the caller's replaces the points.
func (s *Service) SaveLayout(caller string, graph Key, name string, points json.RawMessage) (Layout, error) {
	if users.IsPublic(caller) {
		return Layout{}, errors.New("you need to be logged in to save a layout", errors.Unauthorized())
	}
	if name == "" {
		return Layout{}, errors.New("layout name cannot be empty", errors.BadRequest())
	}
	if strings.Contains(name, "|") {
		return Layout{}, errors.New("layout name cannot contain '|'", errors.BadRequest())
	}

	ok, err := s.resolver.CanView(caller, graph)
	if err != nil {
		return Layout{}, err
	} else if !ok {
		return Layout{}, errGraphNotFound(graph)
	}

	key := LayoutKey{Owner: caller, Graph: graph, Name: name}
	layout, err := s.layouts.Get(key)
	if err != nil {
		return Layout{}, err
	}

	if !layout.Exists() {
		layout = Layout{LayoutKey: key}
	}
	layout.Points = points

	if err := s.layouts.Upsert(&layout); err != nil {
		return Layout{}, err
	}

	return layout, nil
}

// GetLayout returns the layout when the viewer may see it, answering like a
// missing layout otherwise.
func (s *Service) GetLayout(viewer string, key LayoutKey) (Layout, error) {
	ok, err := s.resolver.CanViewLayout(viewer, key)
	if err != nil {
		return Layout{}, err
	} else if !ok {
		return Layout{}, errLayoutNotFound(key)
	}

	layout, err := s.layouts.Get(key)
	if err != nil {
		return Layout{}, err
	} else if !layout.Exists() {
		return Layout{}, errLayoutNotFound(key)
	}

	return layout, nil
}

// ListLayouts returns the layouts of a graph the viewer may see: their own,
// the public ones, and the ones granted into their groups.
func (s *Service) ListLayouts(viewer string, graph Key) ([]Layout, error) {
	ok, err := s.resolver.CanView(viewer, graph)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, errGraphNotFound(graph)
	}

	layouts, err := s.layouts.ListForGraph(graph)
	if err != nil {
		return nil, err
	}

	visible := make([]Layout, 0, len(layouts))
	for _, layout := range layouts {
		if layout.Owner == viewer || layout.IsPublic {
			visible = append(visible, layout)
			continue
		}

		ok, err := s.resolver.CanViewLayout(viewer, layout.LayoutKey)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, layout)
		}
	}

	return visible, nil
}

// RenameLayout changes the layout's name. Layout owner only, and the new
// name must be free among the owner's layouts for that graph. Sharing grants
// and viewer defaults follow the layout to its new name.
func (s *Service) RenameLayout(caller string, key LayoutKey, newName string) (Layout, error) {
	if newName == "" {
		return Layout{}, errors.New("layout name cannot be empty", errors.BadRequest())
	}
	if strings.Contains(newName, "|") {
		return Layout{}, errors.New("layout name cannot contain '|'", errors.BadRequest())
	}

	layout, err := s.layouts.Get(key)
	if err != nil {
		return Layout{}, err
	} else if !layout.Exists() {
		return Layout{}, errLayoutNotFound(key)
	}

	if caller != key.Owner {
		return Layout{}, errors.New(fmt.Sprintf("you do not own layout %s", key), errors.Forbidden())
	}

	if newName == key.Name {
		return layout, nil
	}

	target := LayoutKey{Owner: key.Owner, Graph: key.Graph, Name: newName}
	existing, err := s.layouts.Get(target)
	if err != nil {
		return Layout{}, err
	} else if existing.Exists() {
		return Layout{}, errors.New(fmt.Sprintf("you already have a layout named %s", newName), errors.Conflict())
	}

	renamed, err := s.layouts.Rename(key, newName)
	if err != nil {
		return Layout{}, err
	} else if !renamed.Exists() {
		return Layout{}, errLayoutNotFound(key)
	}

	return renamed, nil
}

// DeleteLayout removes the layout. Allowed to the layout owner and to the
// parent graph's owner. The repository cascades the layout grants and
// defaults pointing at it.
func (s *Service) DeleteLayout(caller string, key LayoutKey) error {
	if _, err := s.ownedLayout(caller, key); err != nil {
		return err
	}

	return s.layouts.Delete(key)
}

// SetDefaultLayout marks a layout as the viewer's default for its graph.
// Each viewer has at most one default per graph; setting a new one replaces
// the previous one atomically.
func (s *Service) SetDefaultLayout(viewer string, key LayoutKey) error {
	if users.IsPublic(viewer) {
		return errors.New("you need to be logged in to set a default layout", errors.Unauthorized())
	}

	ok, err := s.resolver.CanViewLayout(viewer, key)
	if err != nil {
		return err
	} else if !ok {
		return errLayoutNotFound(key)
	}

	return s.layouts.SetDefault(viewer, key.Graph, key)
}

// RemoveDefaultLayout clears the viewer's default for the graph. Idempotent.
func (s *Service) RemoveDefaultLayout(viewer string, graph Key) error {
	if users.IsPublic(viewer) {
		return errors.New("you need to be logged in to clear a default layout", errors.Unauthorized())
	}

	return s.layouts.ClearDefault(viewer, graph)
}

// DefaultLayout returns the viewer's default layout for the graph, or the
// zero Layout when none is set or the layout is no longer visible.
func (s *Service) DefaultLayout(viewer string, graph Key) (Layout, error) {
	key, err := s.layouts.Default(viewer, graph)
	if err != nil {
		return Layout{}, err
	}
	if key == (LayoutKey{}) {
		return Layout{}, nil
	}

	ok, err := s.resolver.CanViewLayout(viewer, key)
	if err != nil {
		return Layout{}, err
	} else if !ok {
		return Layout{}, nil
	}

	return s.layouts.Get(key)
}
