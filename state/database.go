// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/ethdb/pebble"
)

// Supported backend engines.
const (
	EngineMemory  = "memory"
	EngineLevelDB = "leveldb"
	EnginePebble  = "pebble"
)

// ErrUnknownEngine is returned when a backend engine name is not recognised.
var ErrUnknownEngine = errors.New("unknown database engine")

// Entry is a single key/value pair written to a backend.
type Entry struct {
	Key   []byte
	Value []byte
}

// Backend is the persistent key/value store underneath a StateDB. WriteBatch
// must apply all entries atomically.
type Backend interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	WriteBatch(entries []Entry) error
	Close() error
}

// kvStore is the subset of ethdb.KeyValueStore used by kvBackend.
type kvStore interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	NewBatch() ethdb.Batch
	Close() error
}

// kvBackend adapts a go-ethereum key/value store.
type kvBackend struct {
	db kvStore
}

func (b *kvBackend) Has(key []byte) (bool, error)   { return b.db.Has(key) }
func (b *kvBackend) Get(key []byte) ([]byte, error) { return b.db.Get(key) }
func (b *kvBackend) Close() error                   { return b.db.Close() }

func (b *kvBackend) WriteBatch(entries []Entry) error {
	batch := b.db.NewBatch()
	for _, e := range entries {
		if err := batch.Put(e.Key, e.Value); err != nil {
			return err
		}
	}
	return batch.Write()
}

// NewMemoryBackend returns a backend that keeps everything in memory.
func NewMemoryBackend() Backend {
	return &kvBackend{db: memorydb.New()}
}

// NewLevelDBBackend opens (or creates) a LevelDB backed state database.
func NewLevelDBBackend(path string, cache, handles int) (Backend, error) {
	db, err := leveldb.New(path, cache, handles, "dao/db/state/", false)
	if err != nil {
		return nil, err
	}
	return &kvBackend{db: db}, nil
}

// NewPebbleBackend opens (or creates) a pebble backed state database.
func NewPebbleBackend(path string, cache, handles int) (Backend, error) {
	db, err := pebble.New(path, cache, handles, "dao/db/state/", false)
	if err != nil {
		return nil, err
	}
	return &kvBackend{db: db}, nil
}

// OpenBackend opens the backend for the named engine. The path is ignored for
// the memory engine.
func OpenBackend(engine, path string) (Backend, error) {
	switch engine {
	case EngineMemory:
		return NewMemoryBackend(), nil
	case EngineLevelDB, "":
		return NewLevelDBBackend(path, 16, 16)
	case EnginePebble:
		return NewPebbleBackend(path, 16, 16)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}
