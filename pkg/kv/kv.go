// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package kv wraps the LevelDB instance backing one whipdb database:
// keys are packed 16-byte addresses (the range's end address — see
// pkg/whipdb), values are recordcodec envelopes.
//
// Adapted from the teacher's pkg/iporgdb/db.go: same Open/Close/Get/Put
// /NewIterator/CompactRange surface and the same snappy-compressed,
// 64MB-write-buffer opt.Options, generalized from a single fixed record
// shape to opaque []byte values so the KV layer stays ignorant of
// recordcodec's envelope format.
package kv

import (
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/wbolster/whipdb/pkg/model"
)

// Store wraps a LevelDB instance.
type Store struct {
	db     *leveldb.DB
	mu     sync.RWMutex
	path   string
	closed bool
}

// Open opens or creates a LevelDB database at path.
func Open(path string) (*Store, error) {
	opts := &opt.Options{
		Compression: opt.SnappyCompression,
		WriteBuffer: 64 * 1024 * 1024,
	}

	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database. Subsequent calls return ErrDatabaseClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return model.ErrDatabaseClosed
	}
	s.closed = true
	return s.db.Close()
}

// IsClosed reports whether Close has already been called.
func (s *Store) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Path returns the database's directory path.
func (s *Store) Path() string {
	return s.path
}

// Get retrieves the value stored under key, or (nil, nil) if absent.
func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, model.ErrDatabaseClosed
	}

	value, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return value, nil
}

// Put stores value under key.
func (s *Store) Put(key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return model.ErrDatabaseClosed
	}
	return s.db.Put(key, value, nil)
}

// Delete removes key.
func (s *Store) Delete(key []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return model.ErrDatabaseClosed
	}
	return s.db.Delete(key, nil)
}

// NewIterator returns an iterator over slice (nil for the whole keyspace).
// Callers seeking a specific address should build slice with util.BytesPrefix
// or an explicit Start/Limit pair over the 16-byte packed key space.
func (s *Store) NewIterator(slice *util.Range) iterator.Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.NewIterator(slice, nil)
}

// BatchOp is one operation in a WriteBatch call.
type BatchOp struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// WriteBatch applies ops atomically.
func (s *Store) WriteBatch(ops []BatchOp) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return model.ErrDatabaseClosed
	}

	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.Delete {
			batch.Delete(op.Key)
		} else {
			batch.Put(op.Key, op.Value)
		}
	}
	return s.db.Write(batch, nil)
}

// CompactRange forces compaction of the entire keyspace. The loader calls
// this once a load completes, matching the teacher's CompactDB.
func (s *Store) CompactRange() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return model.ErrDatabaseClosed
	}
	return s.db.CompactRange(util.Range{Start: nil, Limit: nil})
}
