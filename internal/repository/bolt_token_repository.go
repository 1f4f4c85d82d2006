package repository

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	tokensBucket     = []byte("tokens")      // sequence -> token
	tokenIndexBucket = []byte("token_index") // token -> sequence
)

// BoltTokenRepository stores tokens in an embedded bolt database. Keys are
// big-endian insertion sequences so cursor order is registration order.
type BoltTokenRepository struct {
	db *bolt.DB
	mu sync.Mutex
}

func NewBoltTokenRepository(path string) (*BoltTokenRepository, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt db %q", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(tokensBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(tokenIndexBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create token buckets")
	}

	return &BoltTokenRepository{db: db}, nil
}

func (r *BoltTokenRepository) AddIfAbsent(_ context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, ErrEmptyToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	added := false
	err := r.db.Update(func(tx *bolt.Tx) error {
		index := tx.Bucket(tokenIndexBucket)
		if index.Get([]byte(token)) != nil {
			return nil
		}

		tokens := tx.Bucket(tokensBucket)
		seq, err := tokens.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)

		if err := tokens.Put(key, []byte(token)); err != nil {
			return err
		}
		if err := index.Put([]byte(token), key); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "store token")
	}
	return added, nil
}

func (r *BoltTokenRepository) List(_ context.Context) ([]string, error) {
	var tokens []string
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(tokensBucket).ForEach(func(_, v []byte) error {
			tokens = append(tokens, string(v))
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrap(err, "list tokens")
	}
	return tokens, nil
}

func (r *BoltTokenRepository) Count(_ context.Context) (int, error) {
	var n int
	err := r.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(tokensBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "count tokens")
	}
	return n, nil
}

func (r *BoltTokenRepository) Close() error {
	return r.db.Close()
}
