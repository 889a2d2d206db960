package bolt

import (
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"github.com/gograph/gograph/errors"
)

var (
	userBucket        = []byte("users")
	resetBucket       = []byte("resets")
	groupBucket       = []byte("groups")
	graphBucket       = []byte("graphs")
	layoutBucket      = []byte("layouts")
	grantBucket       = []byte("grants")
	layoutGrantBucket = []byte("layoutGrants")
	defaultBucket     = []byte("defaults")
)

type Driver struct {
	store *bolt.DB
}

// Open opens the connection to the bolt database defined by path. The open
// times out instead of blocking forever on a file another process holds.
func (d *Driver) Open(path string) error {
	if d.store != nil {
		return errors.New("store already open", errors.Unavailable())
	}

	store, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return errors.New("could not open store", errors.Unavailable(), errors.WithCause(err))
	}

	err = store.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			userBucket,
			resetBucket,
			groupBucket,
			graphBucket,
			layoutBucket,
			grantBucket,
			layoutGrantBucket,
			defaultBucket,
		}
		for _, bucket := range buckets {
			_, err := tx.CreateBucketIfNotExists(bucket)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		store.Close()
		return errors.New("could not create buckets", errors.Unavailable(), errors.WithCause(err))
	}

	d.store = store
	return nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	if d.store != nil {
		err := d.store.Close()
		d.store = nil
		return err
	}
	return nil
}

// Composite keys join their parts with '|'. Ids and names are validated
// upstream to never contain it.
func compositeKey(parts ...string) []byte {
	return []byte(strings.Join(parts, "|"))
}

func compositePrefix(parts ...string) []byte {
	return []byte(strings.Join(parts, "|") + "|")
}
