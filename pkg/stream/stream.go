// Package stream fetches per-node expansion records lazily and caches
// them on disk.
//
// When the user expands a node that was not in the seed load, the engine
// asks this package for `{node, relationships}`. Results are persisted in
// a BadgerDB cache keyed under a BLAKE2b fingerprint of the dataset, so a
// dataset update invalidates the whole cache namespace at once instead of
// serving records from a stale corpus. Failed or absent fetches are
// negative-cached as tombstones and surfaced as ErrNoRecord, so a node
// with no expansion data never causes a retry storm.
//
// Outbound fetches go through a token-bucket rate limiter.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/time/rate"

	"github.com/anonym-g/Chinese-Elite-sub000/pkg/graph"
)

// ErrNoRecord means the node has no expansion data. This covers both a
// genuinely absent record and a previously failed fetch that was
// negative-cached.
var ErrNoRecord = errors.New("stream: no record for node")

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("stream: store is closed")

// Record is one node's expansion payload: the node itself plus every
// relationship touching it.
type Record struct {
	Node          graph.SourceNode           `json:"node"`
	Relationships []graph.SourceRelationship `json:"relationships"`
}

// Fetcher retrieves a node's expansion record from the upstream source.
// Returning ErrNoRecord marks the node as permanently empty; any other
// error is also negative-cached (the dataset is static per fingerprint,
// retrying buys nothing).
type Fetcher interface {
	Fetch(ctx context.Context, id graph.NodeID) (*Record, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, id graph.NodeID) (*Record, error)

// Fetch calls the wrapped function.
func (f FetcherFunc) Fetch(ctx context.Context, id graph.NodeID) (*Record, error) {
	return f(ctx, id)
}

// Options configures the stream store.
type Options struct {
	// DataDir is the BadgerDB cache directory. Required unless InMemory.
	DataDir string
	// InMemory keeps the cache in RAM only. Used by tests.
	InMemory bool
	// FetchesPerSecond bounds upstream fetch rate. Zero means the
	// default of 10/s with a burst of 20.
	FetchesPerSecond float64
	// Burst is the limiter burst size. Zero means 2x the rate.
	Burst int
}

// tombstone is the serialized negative-cache marker.
var tombstone = []byte("\x00absent")

// Store is the fetch-through cache. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	db          *badger.DB
	fetcher     Fetcher
	limiter     *rate.Limiter
	fingerprint []byte
	closed      bool
}

// Fingerprint derives the cache namespace from raw dataset bytes. Records
// cached under one fingerprint are invisible once the dataset changes.
func Fingerprint(dataset []byte) []byte {
	sum := blake2b.Sum256(dataset)
	return sum[:8]
}

// Open creates the store over a Badger cache directory. dataset is the
// raw seed document whose fingerprint namespaces all cached records.
func Open(opts Options, dataset []byte, fetcher Fetcher) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir).
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("opening stream cache: %w", err)
	}

	perSec := opts.FetchesPerSecond
	if perSec <= 0 {
		perSec = 10
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = int(perSec * 2)
		if burst < 1 {
			burst = 1
		}
	}

	return &Store{
		db:          db,
		fetcher:     fetcher,
		limiter:     rate.NewLimiter(rate.Limit(perSec), burst),
		fingerprint: Fingerprint(dataset),
	}, nil
}

// key builds the namespaced cache key for a node id.
func (s *Store) key(id graph.NodeID) []byte {
	k := make([]byte, 0, len(s.fingerprint)+1+len(id))
	k = append(k, s.fingerprint...)
	k = append(k, ':')
	k = append(k, id...)
	return k
}

// Get returns a node's expansion record, from cache when possible. A
// cache miss rate-limits, fetches upstream, and persists the result. Both
// a missing record and a failed fetch come back as ErrNoRecord, cached so
// the upstream is asked at most once per node per dataset.
func (s *Store) Get(ctx context.Context, id graph.NodeID) (*Record, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	s.mu.RUnlock()

	rec, err := s.cached(id)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ErrNoRecord):
		return nil, ErrNoRecord
	case !errors.Is(err, badger.ErrKeyNotFound):
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	rec, err = s.fetcher.Fetch(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation says nothing about the record; do not
			// tombstone it.
			return nil, ctx.Err()
		}
		if putErr := s.put(id, tombstone); putErr != nil {
			return nil, putErr
		}
		return nil, ErrNoRecord
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record %q: %w", id, err)
	}
	if err := s.put(id, data); err != nil {
		return nil, err
	}
	return rec, nil
}

// cached loads a record from the cache. badger.ErrKeyNotFound means never
// fetched; a tombstone value decodes to ErrNoRecord.
func (s *Store) cached(id graph.NodeID) (*Record, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if string(data) == string(tombstone) {
		return nil, ErrNoRecord
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding cached record %q: %w", id, err)
	}
	return &rec, nil
}

func (s *Store) put(id graph.NodeID, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(id), data)
	})
}

// Cached reports whether the node has any cache entry, and whether that
// entry is a tombstone.
func (s *Store) Cached(id graph.NodeID) (cached, negative bool) {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			negative = string(v) == string(tombstone)
			return nil
		})
	})
	cached = err == nil
	return cached, negative
}

// Close flushes and closes the underlying cache.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
