package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrEmptyToken is returned when registering a blank token.
var ErrEmptyToken = errors.New("token is required")

// TokenRepository keeps device tokens in memory and mirrors them to a JSON
// array file. The whole file is rewritten on every change.
type TokenRepository struct {
	path   string
	tokens []string
	index  map[string]struct{}
	mu     sync.RWMutex
}

// NewTokenRepository loads the token file at path. A missing file is an
// empty store.
func NewTokenRepository(path string) (*TokenRepository, error) {
	r := &TokenRepository{
		path:  path,
		index: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, errors.Wrapf(err, "read token file %q", path)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return r, nil
	}

	var stored []string
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, errors.Wrapf(err, "parse token file %q", path)
	}
	for _, token := range stored {
		// Older files may hold duplicates; keep the first occurrence.
		if _, ok := r.index[token]; ok || token == "" {
			continue
		}
		r.index[token] = struct{}{}
		r.tokens = append(r.tokens, token)
	}
	return r, nil
}

// AddIfAbsent appends token and rewrites the file. On a write failure the
// in-memory list is left unchanged.
func (r *TokenRepository) AddIfAbsent(_ context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, ErrEmptyToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[token]; ok {
		return false, nil
	}

	next := make([]string, len(r.tokens), len(r.tokens)+1)
	copy(next, r.tokens)
	next = append(next, token)

	if err := r.persist(next); err != nil {
		return false, err
	}

	r.tokens = next
	r.index[token] = struct{}{}
	return true, nil
}

// List returns all registered tokens in registration order.
func (r *TokenRepository) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokens := make([]string, len(r.tokens))
	copy(tokens, r.tokens)
	return tokens, nil
}

// Count returns the number of registered tokens.
func (r *TokenRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tokens), nil
}

func (r *TokenRepository) Close() error {
	return nil
}

func (r *TokenRepository) persist(tokens []string) error {
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal tokens")
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".tokens-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp token file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write temp token file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync temp token file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp token file")
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return errors.Wrapf(err, "replace token file %q", r.path)
	}
	return nil
}
