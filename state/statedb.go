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

// Package state implements the journaled key/value ledger state shared by the
// governance programs.
package state

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

type journalEntry struct {
	key     common.Hash
	prev    []byte
	present bool // key was already dirty before the write
}

type revision struct {
	id           int
	journalIndex int
}

// StateDB buffers writes on top of a Backend. Every write is journaled so that
// a failed operation can be rolled back to a snapshot; Commit flushes the
// buffered writes to the backend in a single batch.
//
// StateDB is not safe for concurrent use. The node serializes access.
type StateDB struct {
	backend Backend
	dirty   map[common.Hash][]byte

	journal        []journalEntry
	validRevisions []revision
	nextRevisionID int
}

// New creates a state database on top of the given backend.
func New(backend Backend) *StateDB {
	return &StateDB{
		backend: backend,
		dirty:   make(map[common.Hash][]byte),
	}
}

// Has reports whether a value is stored under key.
func (s *StateDB) Has(key common.Hash) (bool, error) {
	if _, ok := s.dirty[key]; ok {
		return true, nil
	}
	return s.backend.Has(key[:])
}

// Get returns the value stored under key, or nil if there is none.
func (s *StateDB) Get(key common.Hash) ([]byte, error) {
	if val, ok := s.dirty[key]; ok {
		return common.CopyBytes(val), nil
	}
	ok, err := s.backend.Has(key[:])
	if err != nil || !ok {
		return nil, err
	}
	return s.backend.Get(key[:])
}

// Set stores value under key.
func (s *StateDB) Set(key common.Hash, value []byte) {
	prev, present := s.dirty[key]
	s.journal = append(s.journal, journalEntry{key: key, prev: prev, present: present})
	s.dirty[key] = common.CopyBytes(value)
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	id := s.nextRevisionID
	s.nextRevisionID++
	s.validRevisions = append(s.validRevisions, revision{id, len(s.journal)})
	return id
}

// RevertToSnapshot reverts all state changes made since the given revision.
func (s *StateDB) RevertToSnapshot(revid int) {
	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := s.validRevisions[idx].journalIndex

	for i := len(s.journal) - 1; i >= snapshot; i-- {
		entry := s.journal[i]
		if entry.present {
			s.dirty[entry.key] = entry.prev
		} else {
			delete(s.dirty, entry.key)
		}
	}
	s.journal = s.journal[:snapshot]
	s.validRevisions = s.validRevisions[:idx]
}

// Atomic runs fn and reverts every change it made if it returns an error.
// Calls may nest; only the failing level is rolled back.
func (s *StateDB) Atomic(fn func() error) error {
	snap := s.Snapshot()
	if err := fn(); err != nil {
		s.RevertToSnapshot(snap)
		return err
	}
	return nil
}

// Dirty returns the number of keys written since the last commit.
func (s *StateDB) Dirty() int {
	return len(s.dirty)
}

// Commit writes all buffered changes to the backend and resets the journal.
func (s *StateDB) Commit() error {
	if len(s.dirty) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(s.dirty))
	for key, val := range s.dirty {
		entries = append(entries, Entry{Key: common.CopyBytes(key[:]), Value: val})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})
	if err := s.backend.WriteBatch(entries); err != nil {
		return err
	}
	log.Debug("Committed state", "entries", len(entries))
	s.Discard()
	return nil
}

// Discard drops all buffered changes.
func (s *StateDB) Discard() {
	s.dirty = make(map[common.Hash][]byte)
	s.journal = s.journal[:0]
	s.validRevisions = s.validRevisions[:0]
}

// ReadRLP decodes the value stored under key into v. It reports false if no
// value exists.
func (s *StateDB) ReadRLP(key common.Hash, v interface{}) (bool, error) {
	data, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, v); err != nil {
		return false, fmt.Errorf("decode %x: %w", key, err)
	}
	return true, nil
}

// WriteRLP encodes v and stores it under key.
func (s *StateDB) WriteRLP(key common.Hash, v interface{}) error {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	s.Set(key, data)
	return nil
}
