// Package kvstore defines the minimal Key-Value store interface mwcpayd's
// core consumes from its host (spec.md section 1), and a bbolt-backed
// implementation of it. Grounded on the teacher's channeldb, which wraps
// *bolt.DB with directory creation, a fixed file permission, and a
// directory advisory lock — the same shape spec.md section 6 requires
// ("a single key-value database file + one directory.lock advisory lock
// preventing two daemons from sharing the directory").
package kvstore

import (
	"errors"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

// ErrKeyNotFound is returned by Tx.Bucket when the named bucket does not
// exist. Bucket.Get reports a missing key through its bool result instead.
var ErrKeyNotFound = errors.New("kvstore: key not found")

// Tx is a single read or read-write transaction over one or more buckets.
type Tx interface {
	Bucket(name []byte) (Bucket, error)
	CreateBucketIfNotExists(name []byte) (Bucket, error)
}

// Bucket is a flat key-value namespace within a Tx.
type Bucket interface {
	Get(key []byte) ([]byte, bool)
	Put(key, value []byte) error
	Delete(key []byte) error
	ForEach(fn func(key, value []byte) error) error
	NextSequence() (uint64, error)
}

// Store is the KV store interface the core depends on. Implementations
// must serialize Update calls against each other (spec.md section 4.G's
// "single lock... external drivers must hold around read-then-write
// traversals").
type Store interface {
	View(fn func(tx Tx) error) error
	Update(fn func(tx Tx) error) error
	Close() error
}

const lockFileName = "directory.lock"

// AcquireDirectoryLock creates dir if needed and takes an advisory lock on
// directory.lock inside it, failing if another process already holds it —
// spec.md section 6's "preventing two daemons from sharing the directory".
func AcquireDirectoryLock(dir string) (func() error, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	lockPath := filepath.Join(dir, lockFileName)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	if err := flock(f); err != nil {
		f.Close()
		return nil, err
	}

	return func() error {
		unflock(f)
		return f.Close()
	}, nil
}
