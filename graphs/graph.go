package graphs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/groups"
)

// Key identifies a graph. Graph names are only unique per owner.
type Key struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", k.Owner, k.Name)
}

type Graph struct {
	Key

	// Payload is the raw document: a JSON object carrying the graph
	// structure under "graph" and its metadata under "metadata".
	Payload json.RawMessage `json:"payload"`

	IsPublic bool     `json:"isPublic"`
	Tags     []string `json:"tags"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Repository interface {
	// Get returns the zero Graph when no graph exists for the key.
	Get(Key) (Graph, error)
	Upsert(*Graph) error
	// Delete removes the graph and cascades over its layouts, sharing
	// grants, layout grants and default-layout entries, atomically.
	Delete(Key) error

	ListOwnedBy(owner string) ([]Graph, error)
	ListPublic() ([]Graph, error)
	// ListSharedWith returns the graphs granted into any group the user
	// owns or belongs to, deduplicated, from a single consistent snapshot
	// of the groups, grants and graphs buckets.
	ListSharedWith(user string) ([]Graph, error)
	List() ([]Graph, error)
}

// LayoutKey identifies a layout. The layout owner is part of the key: two
// users can each save their own layout under the same name for a shared
// graph.
type LayoutKey struct {
	Owner string `json:"owner"`
	Graph Key    `json:"graph"`
	Name  string `json:"name"`
}

func (k LayoutKey) String() string {
	return fmt.Sprintf("(%s, %s, %s)", k.Owner, k.Graph, k.Name)
}

type Layout struct {
	LayoutKey

	// Points holds the node positions, kept opaque.
	Points   json.RawMessage `json:"points"`
	IsPublic bool            `json:"isPublic"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type LayoutRepository interface {
	// Get returns the zero Layout when no layout exists for the key.
	Get(LayoutKey) (Layout, error)
	Upsert(*Layout) error
	// Delete removes the layout and cascades over its grants and any
	// default entry pointing at it.
	Delete(LayoutKey) error
	// Rename moves the layout under the new name in one transaction,
	// carrying its grants and the default entries pointing at it. Returns
	// the zero Layout when no layout exists for the key, Conflict when the
	// target name is taken.
	Rename(key LayoutKey, newName string) (Layout, error)
	ListForGraph(Key) ([]Layout, error)

	// Default returns the zero LayoutKey when the viewer has no default
	// for the graph. SetDefault replaces any prior default for the
	// (viewer, graph) pair in a single write.
	Default(viewer string, graph Key) (LayoutKey, error)
	SetDefault(viewer string, graph Key, layout LayoutKey) error
	ClearDefault(viewer string, graph Key) error
}

// Grant shares a graph with a group.
type Grant struct {
	Graph Key        `json:"graph"`
	Group groups.Key `json:"group"`
}

type GrantRepository interface {
	Put(Grant) error
	Delete(Grant) error
	ListForGraph(Key) ([]Grant, error)
	ListForGroup(groups.Key) ([]Grant, error)
}

// LayoutGrant shares a layout with a group.
type LayoutGrant struct {
	Layout LayoutKey  `json:"layout"`
	Group  groups.Key `json:"group"`
}

type LayoutGrantRepository interface {
	Put(LayoutGrant) error
	Delete(LayoutGrant) error
	ListForLayout(LayoutKey) ([]LayoutGrant, error)
}

// TagIndex is the autocomplete index. It is advisory: listings and
// visibility never consult it, and indexing failures must not fail the
// write path.
type TagIndex interface {
	Index(tag string) error
	Search(prefix string) ([]string, error)
}

type payload struct {
	Graph    json.RawMessage `json:"graph"`
	Metadata *metadata       `json:"metadata"`
}

type metadata struct {
	Name  string   `json:"name"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// parsePayload validates the document shape and extracts the metadata the
// engine cares about: the tags, and a name to fall back on when the upload
// does not carry one.
func parsePayload(raw json.RawMessage) (tags []string, name string, err error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, "", errors.New("payload is not a JSON object", errors.BadRequest(), errors.WithCause(err))
	}
	if len(p.Graph) == 0 || p.Metadata == nil {
		return nil, "", errors.New("payload must carry a graph and a metadata object", errors.BadRequest())
	}

	seen := make(map[string]bool)
	for _, tag := range p.Metadata.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	name = p.Metadata.Name
	if name == "" {
		name = p.Metadata.Title
	}

	return tags, name, nil
}

// Exists tells a zero value from a stored graph.
func (g Graph) Exists() bool {
	return g.Owner != "" || g.Name != ""
}

// Exists tells a zero value from a stored layout.
func (l Layout) Exists() bool {
	return l.Owner != "" || l.Name != ""
}

// HasTag is an exact, case-sensitive tag check. Tags are plain texts scoped
// to their graph's owner.
func (g Graph) HasTag(tag string) bool {
	for _, t := range g.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
