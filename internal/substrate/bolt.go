package substrate

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketKV = "kv"

// Bolt stores values in a single bucket of a bbolt database file.
//
// bbolt holds an exclusive file lock, so a Bolt substrate belongs to one
// process and never reports external changes. Use [File] or [Redis] when
// several processes must share a document.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens (or creates) the database at path.
func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketKV)); err != nil {
			return fmt.Errorf("creating kv bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

// Close releases the database file.
func (s *Bolt) Close() error {
	return s.db.Close()
}

// Get implements [Substrate].
func (s *Bolt) Get(_ context.Context, key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketKV)).Get([]byte(key))
		if data == nil {
			return nil
		}
		// data is only valid for the life of the transaction
		value, ok = string(data), true
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}

	return value, ok, nil
}

// Set implements [Substrate].
func (s *Bolt) Set(_ context.Context, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketKV)).Put([]byte(key), []byte(value))
	})
}

// Remove implements [Substrate].
func (s *Bolt) Remove(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketKV)).Delete([]byte(key))
	})
}
