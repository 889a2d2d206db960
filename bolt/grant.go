package bolt

import (
	"bytes"
	"encoding/json"

	"github.com/boltdb/bolt"

	"github.com/gograph/gograph/graphs"
	"github.com/gograph/gograph/groups"
)

// GrantStore keeps the graph sharing grants. Grant keys start with the graph
// key so both the per-graph listing and the graph-deletion cascade are
// prefix scans.
type GrantStore struct {
	Driver *Driver
}

func grantKey(grant graphs.Grant) []byte {
	return compositeKey(grant.Graph.Owner, grant.Graph.Name, grant.Group.Owner, grant.Group.Name)
}

func (s *GrantStore) Put(grant graphs.Grant) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(grant)
		if err != nil {
			return err
		}
		return tx.Bucket(grantBucket).Put(grantKey(grant), data)
	})
}

func (s *GrantStore) Delete(grant graphs.Grant) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(grantBucket).Delete(grantKey(grant))
	})
}

func (s *GrantStore) ListForGraph(key graphs.Key) ([]graphs.Grant, error) {
	var list []graphs.Grant

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		prefix := compositePrefix(key.Owner, key.Name)
		c := tx.Bucket(grantBucket).Cursor()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var grant graphs.Grant
			if err := json.Unmarshal(data, &grant); err != nil {
				return err
			}
			list = append(list, grant)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

func (s *GrantStore) ListForGroup(key groups.Key) ([]graphs.Grant, error) {
	var list []graphs.Grant

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(grantBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var grant graphs.Grant
			if err := json.Unmarshal(data, &grant); err != nil {
				return err
			}
			if grant.Group == key {
				list = append(list, grant)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

// LayoutGrantStore keeps the layout sharing grants, keyed under the layout
// key.
type LayoutGrantStore struct {
	Driver *Driver
}

func layoutGrantKey(grant graphs.LayoutGrant) []byte {
	l := grant.Layout
	return compositeKey(l.Graph.Owner, l.Graph.Name, l.Owner, l.Name, grant.Group.Owner, grant.Group.Name)
}

func (s *LayoutGrantStore) Put(grant graphs.LayoutGrant) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(grant)
		if err != nil {
			return err
		}
		return tx.Bucket(layoutGrantBucket).Put(layoutGrantKey(grant), data)
	})
}

func (s *LayoutGrantStore) Delete(grant graphs.LayoutGrant) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(layoutGrantBucket).Delete(layoutGrantKey(grant))
	})
}

func (s *LayoutGrantStore) ListForLayout(key graphs.LayoutKey) ([]graphs.LayoutGrant, error) {
	var list []graphs.LayoutGrant

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		prefix := compositePrefix(key.Graph.Owner, key.Graph.Name, key.Owner, key.Name)
		c := tx.Bucket(layoutGrantBucket).Cursor()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var grant graphs.LayoutGrant
			if err := json.Unmarshal(data, &grant); err != nil {
				return err
			}
			list = append(list, grant)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}
