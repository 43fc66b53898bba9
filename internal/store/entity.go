package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides typed CRUD for one record kind inside a caller-owned transaction.
type Entity[T any] struct {
	prefix  string
	indexes []Index[T]
}

// Index defines a secondary index on an entity.
// Index keys are "<prefix>idx:<name>:<value>" and hold the primary ID.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](prefix string) *Entity[T] {
	return &Entity[T]{prefix: prefix}
}

// WithIndex adds a secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// Prefix returns the key prefix for this entity.
func (e *Entity[T]) Prefix() string {
	return e.prefix
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, txn *badger.Txn, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(e.prefix, id)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get key: %w", err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal entity: %w", err)
	}
	return &entity, nil
}

// Create writes a new entity and its index keys.
// Returns ErrAlreadyExists if an entity with this ID already exists.
func (e *Entity[T]) Create(ctx context.Context, txn *badger.Txn, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(e.prefix + id)
	if _, err := txn.Get(key); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("check existing key: %w", err)
	}

	if err := e.put(txn, key, entity); err != nil {
		return err
	}

	for _, idx := range e.indexes {
		for _, indexKey := range idx.keyGen(entity) {
			if err := txn.Set([]byte(e.prefix+"idx:"+idx.name+":"+indexKey), []byte(id)); err != nil {
				return fmt.Errorf("set index key: %w", err)
			}
		}
	}
	return nil
}

// Put overwrites an entity without touching its indexes.
// Callers use it only when indexed fields cannot change.
func (e *Entity[T]) Put(ctx context.Context, txn *badger.Txn, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.put(txn, []byte(e.prefix+id), entity)
}

func (e *Entity[T]) put(txn *badger.Txn, key []byte, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("set key: %w", err)
	}
	return nil
}

// ScanIndex loads every entity whose index value starts with valuePrefix.
// Dangling index entries are skipped.
func (e *Entity[T]) ScanIndex(ctx context.Context, txn *badger.Txn, indexName, valuePrefix string) ([]*T, error) {
	indexPrefix := []byte(e.prefix + "idx:" + indexName + ":" + valuePrefix)

	var ids []string
	opts := badger.DefaultIteratorOptions
	opts.Prefix = indexPrefix
	opts.PrefetchValues = true

	it := txn.NewIterator(opts)
	for it.Seek(indexPrefix); it.ValidForPrefix(indexPrefix); it.Next() {
		if err := ctx.Err(); err != nil {
			it.Close()
			return nil, err
		}
		if err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		}); err != nil {
			it.Close()
			return nil, err
		}
	}
	it.Close()

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		entity, err := e.Get(ctx, txn, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// ScanPrefix loads every entity whose primary key starts with prefix+keyPrefix.
func (e *Entity[T]) ScanPrefix(ctx context.Context, txn *badger.Txn, keyPrefix string) ([]*T, error) {
	prefix := []byte(e.prefix + keyPrefix)
	indexPrefix := e.prefix + "idx:"

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = true

	it := txn.NewIterator(opts)
	defer it.Close()

	var out []*T
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(indexPrefix) > 0 && hasPrefix(it.Item().Key(), indexPrefix) {
			continue
		}

		var entity T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		}); err != nil {
			return nil, fmt.Errorf("unmarshal entity: %w", err)
		}
		out = append(out, &entity)
	}
	return out, nil
}

func hasPrefix(key []byte, prefix string) bool {
	return len(key) >= len(prefix) && string(key[:len(prefix)]) == prefix
}
