package bolt

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"

	"github.com/gograph/gograph/groups"
)

// GroupStore stores and retrieves groups in a bolt database.
type GroupStore struct {
	Driver *Driver
}

func groupKey(key groups.Key) []byte {
	return compositeKey(key.Owner, key.Name)
}

func (s *GroupStore) Get(key groups.Key) (groups.Group, error) {
	var group groups.Group
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(groupBucket).Get(groupKey(key))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &group)
	})
	if err != nil {
		return groups.Group{}, err
	}

	return group, nil
}

func (s *GroupStore) Upsert(group *groups.Group) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(groupBucket)

		if group.ID == 0 {
			id, err := bucket.NextSequence()
			if err != nil {
				return err
			}
			group.ID = int(id)
			group.CreatedAt = time.Now()
		}
		group.UpdatedAt = time.Now()

		data, err := json.Marshal(group)
		if err != nil {
			return err
		}

		return bucket.Put(groupKey(group.Key), data)
	})
}

// Delete removes the group and, in the same transaction, every graph grant
// and layout grant referencing it, so a deleted group cannot keep a graph
// visible.
func (s *GroupStore) Delete(key groups.Key) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(groupBucket).Delete(groupKey(key)); err != nil {
			return err
		}

		for _, name := range [][]byte{grantBucket, layoutGrantBucket} {
			if err := deleteGrantsForGroup(tx.Bucket(name), key); err != nil {
				return err
			}
		}

		return nil
	})
}

// deleteGrantsForGroup sweeps a grant bucket for entries referencing the
// group, inside the caller's transaction.
func deleteGrantsForGroup(bucket *bolt.Bucket, key groups.Key) error {
	var doomed [][]byte

	c := bucket.Cursor()
	for k, data := c.First(); k != nil; k, data = c.Next() {
		var grant struct {
			Group groups.Key `json:"group"`
		}
		if err := json.Unmarshal(data, &grant); err != nil {
			return err
		}
		if grant.Group == key {
			doomed = append(doomed, append([]byte(nil), k...))
		}
	}

	for _, k := range doomed {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}

	return nil
}

func (s *GroupStore) ListOwnedBy(owner string) ([]groups.Group, error) {
	var list []groups.Group

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		prefix := compositePrefix(owner)
		c := tx.Bucket(groupBucket).Cursor()
		for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
			var group groups.Group
			if err := json.Unmarshal(data, &group); err != nil {
				return err
			}
			list = append(list, group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

func (s *GroupStore) ListWithMember(member string) ([]groups.Group, error) {
	var list []groups.Group

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(groupBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var group groups.Group
			if err := json.Unmarshal(data, &group); err != nil {
				return err
			}
			if group.Owner != member && group.IsMember(member) {
				list = append(list, group)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

func (s *GroupStore) List() ([]groups.Group, error) {
	var list []groups.Group

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(groupBucket).Cursor()
		for k, data := c.First(); k != nil; k, data = c.Next() {
			var group groups.Group
			if err := json.Unmarshal(data, &group); err != nil {
				return err
			}
			list = append(list, group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}
