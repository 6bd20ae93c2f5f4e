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

// Package oracle implements the attestation gateway. It relays the outcome of
// an off-ledger snapshot vote to the governance program on behalf of the
// trusted attestor.
package oracle

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/augustdao/dao/governance"
	"github.com/augustdao/dao/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// ProgramID identifies the oracle program.
var ProgramID = common.HexToAddress("0x0000000000000000000000000000000000001003")

var (
	ErrAlreadyInitialized = errors.New("oracle already initialized")
	ErrNotInitialized     = errors.New("oracle not initialized")

	// Shared with the governance program so callers match one error kind.
	ErrUnauthorized       = governance.ErrUnauthorized
	ErrInvalidAttestation = governance.ErrInvalidAttestation
)

var (
	oracleKey = state.Key("oracle/config")

	attestationCounter = metrics.NewRegisteredCounter("dao/oracle/attestations", nil)
)

// Finalizer is the governance functionality the oracle relays to.
type Finalizer interface {
	GetProposal(id common.Hash) (*governance.Proposal, error)
	UpdateProposalStatus(call governance.Call, id common.Hash, outcome governance.SnapshotOutcome, signature []byte) error
}

// Oracle is the oracle record. Governance names the program the relay was
// deployed for and is informational, the relay always finalizes through the
// Finalizer it was created with.
type Oracle struct {
	Authority  common.Address // attestor
	Governance common.Address // governance program the outcomes are relayed to
}

// Options configures optional attestation checks.
type Options struct {
	// VerifySignatures requires the signature to be a valid secp256k1
	// signature of the attestation digest by the oracle authority, and the
	// attested snapshot to be the one the proposal was created with.
	VerifySignatures bool
}

// Relay is the attestation gateway
type Relay struct {
	db   *state.StateDB
	gov  Finalizer
	opts Options
	log  log.Logger
}

// NewRelay creates an attestation gateway relaying to gov.
func NewRelay(db *state.StateDB, gov Finalizer, opts Options) *Relay {
	return &Relay{
		db:   db,
		gov:  gov,
		opts: opts,
		log:  log.New("module", "oracle"),
	}
}

// Initialize records the signer as the attestor for the governance program.
func (r *Relay) Initialize(signer, governanceProgram common.Address) (*Oracle, error) {
	o := &Oracle{Authority: signer, Governance: governanceProgram}
	err := r.db.Atomic(func() error {
		exists, err := r.db.Has(oracleKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyInitialized
		}
		return r.db.WriteRLP(oracleKey, o)
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("Initialized oracle", "authority", signer, "governance", governanceProgram)
	return o, nil
}

// Oracle returns the oracle record.
func (r *Relay) Oracle() (*Oracle, error) {
	var o Oracle
	found, err := r.db.ReadRLP(oracleKey, &o)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInitialized
	}
	return &o, nil
}

// VerifySnapshotVote checks an attestation of the snapshot vote outcome of a
// proposal and finalizes the proposal accordingly.
func (r *Relay) VerifySnapshotVote(call governance.Call, proposal common.Hash, snapshotID string, outcome governance.SnapshotOutcome, signature []byte) error {
	err := r.db.Atomic(func() error {
		o, err := r.Oracle()
		if err != nil {
			return err
		}
		if call.Signer != o.Authority {
			return ErrUnauthorized
		}
		if len(signature) == 0 {
			return ErrInvalidAttestation
		}
		if r.opts.VerifySignatures {
			p, err := r.gov.GetProposal(proposal)
			if err != nil {
				return err
			}
			if p.SnapshotID != snapshotID {
				return fmt.Errorf("%w: snapshot %q, proposal voted on %q", ErrInvalidAttestation, snapshotID, p.SnapshotID)
			}
			if err := verifyAttestation(o.Authority, proposal, snapshotID, outcome, signature); err != nil {
				return err
			}
		}
		return r.gov.UpdateProposalStatus(call, proposal, outcome, signature)
	})
	if err != nil {
		return err
	}
	attestationCounter.Inc(1)
	r.log.Info("Relayed snapshot outcome", "proposal", proposal, "snapshot", snapshotID, "outcome", outcome)
	return nil
}

// AttestationDigest returns the hash an attestor signs for a snapshot outcome.
func AttestationDigest(proposal common.Hash, snapshotID string, outcome governance.SnapshotOutcome) common.Hash {
	return crypto.Keccak256Hash([]byte("attestation"), proposal.Bytes(), []byte(snapshotID), []byte{byte(outcome)})
}

// SignAttestation signs the attestation digest with the attestor key.
func SignAttestation(key *ecdsa.PrivateKey, proposal common.Hash, snapshotID string, outcome governance.SnapshotOutcome) ([]byte, error) {
	digest := AttestationDigest(proposal, snapshotID, outcome)
	return crypto.Sign(digest.Bytes(), key)
}

func verifyAttestation(authority common.Address, proposal common.Hash, snapshotID string, outcome governance.SnapshotOutcome, signature []byte) error {
	if len(signature) != crypto.SignatureLength {
		return fmt.Errorf("%w: signature length %d", ErrInvalidAttestation, len(signature))
	}
	digest := AttestationDigest(proposal, snapshotID, outcome)
	pub, err := crypto.SigToPub(digest.Bytes(), signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAttestation, err)
	}
	if signer := crypto.PubkeyToAddress(*pub); signer != authority {
		return fmt.Errorf("%w: signed by %v", ErrInvalidAttestation, signer)
	}
	return nil
}
