package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different data types
const (
	prefixNetwork = "net:" // full network records
	prefixSummary = "sum:" // listing entries
)

// BadgerBackend is a BadgerDB-backed storage implementation.
//
// Every network is written twice: the full record and a small summary, so
// listing never decodes graphs.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// Save stores the record and its summary in one transaction.
func (b *BadgerBackend) Save(ctx context.Context, rec *NetworkRecord) error {
	if err := ValidateName(rec.Name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return ErrNotInitialized
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling network: %w", err)
	}
	summary, err := json.Marshal(rec.Summary())
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(networkKey(rec.Name), data); err != nil {
			return fmt.Errorf("setting network: %w", err)
		}
		if err := txn.Set(summaryKey(rec.Name), summary); err != nil {
			return fmt.Errorf("setting summary: %w", err)
		}
		return nil
	})
}

// Load returns the record stored under name.
func (b *BadgerBackend) Load(ctx context.Context, name string) (*NetworkRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(networkKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("getting network: %w", err)
	}

	var rec NetworkRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling network %s: %w", name, err)
	}

	return &rec, nil
}

// List returns all summaries. Badger iterates keys in order, so the result
// is sorted by name.
func (b *BadgerBackend) List(ctx context.Context) ([]Summary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}

	txn := b.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixSummary)
	it := txn.NewIterator(opts)
	defer it.Close()

	summaries := []Summary{}
	for it.Rewind(); it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var s Summary
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		}); err != nil {
			return nil, fmt.Errorf("unmarshaling summary %s: %w", it.Item().Key(), err)
		}
		summaries = append(summaries, s)
	}

	return summaries, nil
}

// Delete removes the record and its summary.
func (b *BadgerBackend) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return ErrNotInitialized
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(networkKey(name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			return fmt.Errorf("getting network: %w", err)
		}
		if err := txn.Delete(networkKey(name)); err != nil {
			return fmt.Errorf("deleting network: %w", err)
		}
		if err := txn.Delete(summaryKey(name)); err != nil {
			return fmt.Errorf("deleting summary: %w", err)
		}
		return nil
	})
}

// networkKey returns the BadgerDB key for a network record.
func networkKey(name string) []byte {
	return []byte(prefixNetwork + name)
}

// summaryKey returns the BadgerDB key for a summary.
func summaryKey(name string) []byte {
	return []byte(prefixSummary + name)
}
