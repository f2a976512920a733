package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/nnstream/internal/weights"
)

// ErrNotFound is returned when no parameters are stored under a name.
var ErrNotFound = errors.New("storage: layer not found")

// Storage keys
const keyLayerPrefix = "layer/"

func layerKey(name string) []byte {
	return []byte(keyLayerPrefix + name)
}

// Storage wraps BadgerDB as the layer parameter store.
type Storage struct {
	db *badger.DB
}

// Open opens (creating if needed) a store in dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	return open(opts)
}

// OpenDefault opens the store in the platform data directory.
func OpenDefault() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir)
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return open(opts)
}

func open(opts badger.Options) (*Storage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open parameter store: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveLayer stores p under name, replacing any previous parameters.
func (s *Storage) SaveLayer(name string, p *weights.Params) error {
	if name == "" {
		return fmt.Errorf("storage: empty layer name")
	}
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(layerKey(name), data)
	})
}

// LoadLayer returns the parameters stored under name.
func (s *Storage) LoadLayer(name string) (*weights.Params, error) {
	var p *weights.Params

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(layerKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			p, err = weights.Unmarshal(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// DeleteLayer removes the parameters stored under name.
func (s *Storage) DeleteLayer(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(layerKey(name)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, name)
		} else if err != nil {
			return err
		}
		return txn.Delete(layerKey(name))
	})
}

// ListLayers returns the stored layer names in sorted order.
func (s *Storage) ListLayers() ([]string, error) {
	var names []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyLayerPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			names = append(names, strings.TrimPrefix(key, keyLayerPrefix))
		}
		return nil
	})

	sort.Strings(names)
	return names, err
}
