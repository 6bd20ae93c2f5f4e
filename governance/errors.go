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

package governance

import "errors"

// Authorization errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidAttestation = errors.New("invalid attestation")
)

// Lifecycle errors
var (
	ErrProposalNotFound     = errors.New("proposal not found")
	ErrProposalNotActive    = errors.New("proposal is not active")
	ErrProposalNotSucceeded = errors.New("proposal has not succeeded")
	ErrNotInVotingPeriod    = errors.New("not in voting period")
	ErrVotingPeriodNotEnded = errors.New("voting period has not ended")
)

// Record errors
var (
	ErrDuplicateRecord    = errors.New("record already exists")
	ErrNotInitialized     = errors.New("dao config not initialized")
	ErrDelegationNotFound = errors.New("delegation not found")
)

// Validation errors
var (
	ErrInputTooLarge      = errors.New("input exceeds size budget")
	ErrInvalidConfig      = errors.New("invalid dao configuration")
	ErrUnknownAction      = errors.New("unknown proposed action")
	ErrInvalidVoteOption  = errors.New("invalid vote option")
	ErrInvalidDelegation  = errors.New("invalid delegation")
	ErrInsufficientWeight = errors.New("vote weight exceeds token balance")
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)
