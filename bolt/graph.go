package bolt

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"

	"github.com/gograph/gograph/graphs"
	"github.com/gograph/gograph/groups"
)

// GraphStore stores and retrieves graphs in a bolt database.
type GraphStore struct {
	Driver *Driver
}

func graphKey(key graphs.Key) []byte {
	return compositeKey(key.Owner, key.Name)
}

func (s *GraphStore) Get(key graphs.Key) (graphs.Graph, error) {
	var graph graphs.Graph
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(graphBucket).Get(graphKey(key))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &graph)
	})
	if err != nil {
		return graphs.Graph{}, err
	}

	return graph, nil
}

func (s *GraphStore) Upsert(graph *graphs.Graph) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(graphBucket)

		if bucket.Get(graphKey(graph.Key)) == nil {
			graph.CreatedAt = time.Now()
		}
		graph.UpdatedAt = time.Now()

		data, err := json.Marshal(graph)
		if err != nil {
			return err
		}

		return bucket.Put(graphKey(graph.Key), data)
	})
}

// Delete removes the graph and, in the same transaction, its layouts, its
// grants, its layout grants and the default-layout entries pointing into it.
func (s *GraphStore) Delete(key graphs.Key) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(graphBucket).Delete(graphKey(key)); err != nil {
			return err
		}

		prefix := compositePrefix(key.Owner, key.Name)
		for _, bucket := range [][]byte{layoutBucket, grantBucket, layoutGrantBucket} {
			if err := deletePrefix(tx.Bucket(bucket), prefix); err != nil {
				return err
			}
		}

		// Default entries are keyed viewer|graphOwner|graphName: scan for
		// the graph suffix.
		suffix := compositeKey("", key.Owner, key.Name)
		defaults := tx.Bucket(defaultBucket)
		var doomed [][]byte
		c := defaults.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if bytes.HasSuffix(k, suffix) {
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

func (s *GraphStore) ListOwnedBy(owner string) ([]graphs.Graph, error) {
	var list []graphs.Graph

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		prefix := compositePrefix(owner)
		c := tx.Bucket(graphBucket).Cursor()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var graph graphs.Graph
			if err := json.Unmarshal(data, &graph); err != nil {
				return err
			}
			list = append(list, graph)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

func (s *GraphStore) ListPublic() ([]graphs.Graph, error) {
	var list []graphs.Graph

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(graphBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var graph graphs.Graph
			if err := json.Unmarshal(data, &graph); err != nil {
				return err
			}
			if graph.IsPublic {
				list = append(list, graph)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

// ListSharedWith resolves the user's groups, their grants and the granted
// graphs inside one read transaction, so the result reflects a single point
// in time.
func (s *GraphStore) ListSharedWith(user string) ([]graphs.Graph, error) {
	var list []graphs.Graph

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		viewerGroups, err := viewerGroupsTx(tx, user)
		if err != nil {
			return err
		}
		member := make(map[groups.Key]bool, len(viewerGroups))
		for _, k := range viewerGroups {
			member[k] = true
		}

		seen := make(map[graphs.Key]bool)
		c := tx.Bucket(grantBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var grant graphs.Grant
			if err := json.Unmarshal(data, &grant); err != nil {
				return err
			}
			if !member[grant.Group] || seen[grant.Graph] {
				continue
			}
			seen[grant.Graph] = true

			raw := tx.Bucket(graphBucket).Get(graphKey(grant.Graph))
			if raw == nil {
				continue
			}
			var graph graphs.Graph
			if err := json.Unmarshal(raw, &graph); err != nil {
				return err
			}
			list = append(list, graph)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

func (s *GraphStore) List() ([]graphs.Graph, error) {
	var list []graphs.Graph

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(graphBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var graph graphs.Graph
			if err := json.Unmarshal(data, &graph); err != nil {
				return err
			}
			list = append(list, graph)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

func deletePrefix(bucket *bolt.Bucket, prefix []byte) error {
	var doomed [][]byte
	c := bucket.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		doomed = append(doomed, append([]byte(nil), k...))
	}
	for _, k := range doomed {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// viewerGroupsTx lists the keys of the groups the user owns or belongs to,
// inside the caller's transaction.
func viewerGroupsTx(tx *bolt.Tx, user string) ([]groups.Key, error) {
	var keys []groups.Key

	c := tx.Bucket(groupBucket).Cursor()
	for k, data := c.First(); k != nil; k, data = c.Next() {
		var group groups.Group
		if err := json.Unmarshal(data, &group); err != nil {
			return nil, err
		}
		if group.IsMember(user) {
			keys = append(keys, group.Key)
		}
	}

	return keys, nil
}
