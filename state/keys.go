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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Key derives a storage key from a record prefix and the identities that own
// the record. The same inputs always map to the same key, which is what makes
// insert-if-absent enforce uniqueness.
func Key(prefix string, parts ...[]byte) common.Hash {
	data := make([][]byte, 0, len(parts)+1)
	data = append(data, []byte(prefix))
	data = append(data, parts...)
	return crypto.Keccak256Hash(data...)
}

// DeriveAddress computes a program address from a program ID and seeds:
// keccak256(0xff ++ program ++ keccak256(seeds...))[12:]. No private key
// exists for a derived address, so only the owning program can act for it.
func DeriveAddress(program common.Address, seeds ...[]byte) common.Address {
	seedHash := crypto.Keccak256(seeds...)

	data := make([]byte, 1+common.AddressLength+len(seedHash))
	data[0] = 0xff
	copy(data[1:], program[:])
	copy(data[1+common.AddressLength:], seedHash)

	return common.BytesToAddress(crypto.Keccak256(data)[12:])
}
