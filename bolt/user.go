package bolt

import (
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"

	"github.com/gograph/gograph/users"
)

// UserStore stores and retrieves users in a bolt database.
type UserStore struct {
	Driver *Driver
}

func (s *UserStore) Get(id string) (users.User, error) {
	var user users.User
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(userBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &user)
	})
	if err != nil {
		return users.User{}, err
	}

	return user, nil
}

func (s *UserStore) Upsert(user *users.User) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(userBucket)

		if bucket.Get([]byte(user.ID)) == nil {
			user.CreatedAt = time.Now()
		}
		user.UpdatedAt = time.Now()

		data, err := json.Marshal(user)
		if err != nil {
			return err
		}

		return bucket.Put([]byte(user.ID), data)
	})
}

func (s *UserStore) Delete(id string) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(userBucket).Delete([]byte(id))
	})
}

func (s *UserStore) List() ([]users.User, error) {
	var list []users.User

	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(userBucket).Cursor()
		for id, data := c.First(); id != nil; id, data = c.Next() {
			var user users.User
			if err := json.Unmarshal(data, &user); err != nil {
				return err
			}
			list = append(list, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

// ResetStore keeps the pending password resets, keyed by email. Lookups by
// code scan the bucket: there are never more than a handful of pending
// resets.
type ResetStore struct {
	Driver *Driver
}

func (s *ResetStore) Put(reset users.Reset) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(reset)
		if err != nil {
			return err
		}
		return tx.Bucket(resetBucket).Put([]byte(reset.Email), data)
	})
}

func (s *ResetStore) GetByEmail(email string) (users.Reset, error) {
	var reset users.Reset
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(resetBucket).Get([]byte(email))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &reset)
	})
	if err != nil {
		return users.Reset{}, err
	}

	return reset, nil
}

func (s *ResetStore) GetByCode(code string) (users.Reset, error) {
	var reset users.Reset
	err := s.Driver.store.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(resetBucket).Cursor()
		for email, data := c.First(); email != nil; email, data = c.Next() {
			var r users.Reset
			if err := json.Unmarshal(data, &r); err != nil {
				return err
			}
			if r.Code == code {
				reset = r
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return users.Reset{}, err
	}

	return reset, nil
}

func (s *ResetStore) Delete(email string) error {
	return s.Driver.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resetBucket).Delete([]byte(email))
	})
}
