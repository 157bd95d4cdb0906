package kvstore

import (
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
)

const dbFilePermission = 0600

// BoltStore is the bbolt-backed Store implementation, grounded on
// channeldb.DB's Open/createChannelDB shape: create the directory if
// missing, open (or create) a single database file inside it.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if necessary) dbName inside dir.
func OpenBolt(dir, dbName string) (*BoltStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, dbName)
	db, err := bolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// View runs fn in a read-only transaction.
func (s *BoltStore) View(fn func(tx Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(&boltTx{btx: btx})
	})
}

// Update runs fn in a read-write transaction, rolling back on any error
// fn returns (spec.md section 4.G's "all multi-row updates happen inside
// begin/commit/rollback").
func (s *BoltStore) Update(fn func(tx Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(&boltTx{btx: btx})
	})
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

type boltTx struct {
	btx *bolt.Tx
}

func (t *boltTx) Bucket(name []byte) (Bucket, error) {
	b := t.btx.Bucket(name)
	if b == nil {
		return nil, ErrKeyNotFound
	}
	return &boltBucket{b: b}, nil
}

func (t *boltTx) CreateBucketIfNotExists(name []byte) (Bucket, error) {
	b, err := t.btx.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, err
	}
	return &boltBucket{b: b}, nil
}

type boltBucket struct {
	b *bolt.Bucket
}

func (b *boltBucket) Get(key []byte) ([]byte, bool) {
	v := b.b.Get(key)
	if v == nil {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (b *boltBucket) Put(key, value []byte) error {
	return b.b.Put(key, value)
}

func (b *boltBucket) Delete(key []byte) error {
	return b.b.Delete(key)
}

func (b *boltBucket) ForEach(fn func(key, value []byte) error) error {
	return b.b.ForEach(fn)
}

func (b *boltBucket) NextSequence() (uint64, error) {
	return b.b.NextSequence()
}

var _ Store = (*BoltStore)(nil)
