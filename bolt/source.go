package bolt

import (
	"bytes"
	"encoding/json"

	"github.com/boltdb/bolt"

	"github.com/gograph/gograph/graphs"
)

// Source feeds the visibility resolver. Each snapshot is read inside a
// single transaction: the graph record, its grants and the viewer's groups
// all reflect the same point in time, so no interleaved share or unshare can
// produce a decision outside a sequential ordering of the writes.
type Source struct {
	Driver *Driver
}

func (s *Source) GraphVisibility(viewer string, key graphs.Key) (graphs.VisibilitySnapshot, error) {
	var snapshot graphs.VisibilitySnapshot

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		var err error
		snapshot, err = graphVisibilityTx(tx, viewer, key)
		return err
	})
	if err != nil {
		return graphs.VisibilitySnapshot{}, err
	}

	return snapshot, nil
}

func (s *Source) LayoutVisibility(viewer string, key graphs.LayoutKey) (graphs.LayoutVisibilitySnapshot, error) {
	var snapshot graphs.LayoutVisibilitySnapshot

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		graphSnapshot, err := graphVisibilityTx(tx, viewer, key.Graph)
		if err != nil {
			return err
		}
		snapshot.Graph = graphSnapshot

		data := tx.Bucket(layoutBucket).Get(layoutKey(key))
		if data != nil {
			var layout graphs.Layout
			if err := json.Unmarshal(data, &layout); err != nil {
				return err
			}
			snapshot.Exists = true
			snapshot.IsPublic = layout.IsPublic
		}

		prefix := compositePrefix(key.Graph.Owner, key.Graph.Name, key.Owner, key.Name)
		c := tx.Bucket(layoutGrantBucket).Cursor()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var grant graphs.LayoutGrant
			if err := json.Unmarshal(data, &grant); err != nil {
				return err
			}
			snapshot.Granted = append(snapshot.Granted, grant.Group)
		}

		return nil
	})
	if err != nil {
		return graphs.LayoutVisibilitySnapshot{}, err
	}

	return snapshot, nil
}

func graphVisibilityTx(tx *bolt.Tx, viewer string, key graphs.Key) (graphs.VisibilitySnapshot, error) {
	var snapshot graphs.VisibilitySnapshot

	data := tx.Bucket(graphBucket).Get(graphKey(key))
	if data != nil {
		var graph graphs.Graph
		if err := json.Unmarshal(data, &graph); err != nil {
			return graphs.VisibilitySnapshot{}, err
		}
		snapshot.Exists = true
		snapshot.IsPublic = graph.IsPublic
	}

	prefix := compositePrefix(key.Owner, key.Name)
	c := tx.Bucket(grantBucket).Cursor()
	for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
		var grant graphs.Grant
		if err := json.Unmarshal(data, &grant); err != nil {
			return graphs.VisibilitySnapshot{}, err
		}
		snapshot.Granted = append(snapshot.Granted, grant.Group)
	}

	viewerGroups, err := viewerGroupsTx(tx, viewer)
	if err != nil {
		return graphs.VisibilitySnapshot{}, err
	}
	snapshot.ViewerGroups = viewerGroups

	return snapshot, nil
}
