package bolt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/gograph/gograph/errors"
	"github.com/gograph/gograph/graphs"
)

// LayoutStore stores and retrieves layouts in a bolt database, along with
// the per-viewer default layout entries.
type LayoutStore struct {
	Driver *Driver
}

// Layout keys start with the graph key so a graph deletion can sweep them
// with one prefix scan.
func layoutKey(key graphs.LayoutKey) []byte {
	return compositeKey(key.Graph.Owner, key.Graph.Name, key.Owner, key.Name)
}

func defaultLayoutKey(viewer string, graph graphs.Key) []byte {
	return compositeKey(viewer, graph.Owner, graph.Name)
}

func (s *LayoutStore) Get(key graphs.LayoutKey) (graphs.Layout, error) {
	var layout graphs.Layout
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(layoutBucket).Get(layoutKey(key))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &layout)
	})
	if err != nil {
		return graphs.Layout{}, err
	}

	return layout, nil
}

func (s *LayoutStore) Upsert(layout *graphs.Layout) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(layoutBucket)

		if bucket.Get(layoutKey(layout.LayoutKey)) == nil {
			layout.CreatedAt = time.Now()
		}
		layout.UpdatedAt = time.Now()

		data, err := json.Marshal(layout)
		if err != nil {
			return err
		}

		return bucket.Put(layoutKey(layout.LayoutKey), data)
	})
}

// Delete removes the layout and, in the same transaction, its grants and any
// default entry pointing at it.
func (s *LayoutStore) Delete(key graphs.LayoutKey) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(layoutBucket).Delete(layoutKey(key)); err != nil {
			return err
		}

		prefix := compositePrefix(key.Graph.Owner, key.Graph.Name, key.Owner, key.Name)
		if err := deletePrefix(tx.Bucket(layoutGrantBucket), prefix); err != nil {
			return err
		}

		defaults := tx.Bucket(defaultBucket)
		var doomed [][]byte
		c := defaults.Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var target graphs.LayoutKey
			if err := json.Unmarshal(data, &target); err != nil {
				return err
			}
			if target == key {
				doomed = append(doomed, append([]byte(nil), k...))
			}
		}
		for _, k := range doomed {
			if err := defaults.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

// Rename moves the layout under its new name and, in the same transaction,
// rewrites its grants and the default entries pointing at it, so neither a
// group's access nor a viewer's default is lost to a rename.
func (s *LayoutStore) Rename(key graphs.LayoutKey, newName string) (graphs.Layout, error) {
	target := graphs.LayoutKey{Owner: key.Owner, Graph: key.Graph, Name: newName}

	var layout graphs.Layout
	err := s.Driver.store.Update(func(tx *bolt.Tx) error {
		layouts := tx.Bucket(layoutBucket)

		data := layouts.Get(layoutKey(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &layout); err != nil {
			return err
		}
		if layouts.Get(layoutKey(target)) != nil {
			return errors.New(fmt.Sprintf("a layout named %s already exists", newName), errors.Conflict())
		}

		layout.LayoutKey = target
		layout.UpdatedAt = time.Now()
		moved, err := json.Marshal(layout)
		if err != nil {
			return err
		}
		if err := layouts.Put(layoutKey(target), moved); err != nil {
			return err
		}
		if err := layouts.Delete(layoutKey(key)); err != nil {
			return err
		}

		grants := tx.Bucket(layoutGrantBucket)
		prefix := compositePrefix(key.Graph.Owner, key.Graph.Name, key.Owner, key.Name)
		var regrants []graphs.LayoutGrant
		var stale [][]byte
		c := grants.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var grant graphs.LayoutGrant
			if err := json.Unmarshal(v, &grant); err != nil {
				return err
			}
			grant.Layout = target
			regrants = append(regrants, grant)
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := grants.Delete(k); err != nil {
				return err
			}
		}
		for _, grant := range regrants {
			v, err := json.Marshal(grant)
			if err != nil {
				return err
			}
			if err := grants.Put(layoutGrantKey(grant), v); err != nil {
				return err
			}
		}

		defaults := tx.Bucket(defaultBucket)
		var pointing [][]byte
		dc := defaults.Cursor()
		for k, v := dc.First(); k != nil; k, v = dc.Next() {
			var at graphs.LayoutKey
			if err := json.Unmarshal(v, &at); err != nil {
				return err
			}
			if at == key {
				pointing = append(pointing, append([]byte(nil), k...))
			}
		}
		if len(pointing) > 0 {
			v, err := json.Marshal(target)
			if err != nil {
				return err
			}
			for _, k := range pointing {
				if err := defaults.Put(k, v); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return graphs.Layout{}, err
	}

	return layout, nil
}

func (s *LayoutStore) ListForGraph(graph graphs.Key) ([]graphs.Layout, error) {
	var list []graphs.Layout

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		prefix := compositePrefix(graph.Owner, graph.Name)
		c := tx.Bucket(layoutBucket).Cursor()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var layout graphs.Layout
			if err := json.Unmarshal(data, &layout); err != nil {
				return err
			}
			list = append(list, layout)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

func (s *LayoutStore) Default(viewer string, graph graphs.Key) (graphs.LayoutKey, error) {
	var key graphs.LayoutKey
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(defaultBucket).Get(defaultLayoutKey(viewer, graph))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &key)
	})
	if err != nil {
		return graphs.LayoutKey{}, err
	}

	return key, nil
}

// SetDefault replaces the viewer's default for the graph: the entry is keyed
// by (viewer, graph), so one put is the whole swap.
func (s *LayoutStore) SetDefault(viewer string, graph graphs.Key, layout graphs.LayoutKey) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(layout)
		if err != nil {
			return err
		}
		return tx.Bucket(defaultBucket).Put(defaultLayoutKey(viewer, graph), data)
	})
}

func (s *LayoutStore) ClearDefault(viewer string, graph graphs.Key) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(defaultBucket).Delete(defaultLayoutKey(viewer, graph))
	})
}
