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

// Package node hosts the DAO programs. It owns the ledger state, serializes
// operations, commits every successful operation atomically and serves the
// JSON-RPC API.
package node

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/augustdao/dao/genesis"
	"github.com/augustdao/dao/governance"
	"github.com/augustdao/dao/internal/config"
	"github.com/augustdao/dao/oracle"
	"github.com/augustdao/dao/state"
	"github.com/augustdao/dao/token"
	"github.com/augustdao/dao/treasury"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gofrs/flock"
	"github.com/rs/cors"
)

var (
	ErrAlreadyInitialized = errors.New("node already initialized")
	ErrDatadirUsed        = errors.New("datadir already used by another process")
)

// MetricsPath is the HTTP path serving the metrics registry when enabled.
const MetricsPath = "/debug/metrics"

// stateDir is the directory below the data directory holding the database.
const stateDir = "state"

// Node is the host environment of the DAO programs
type Node struct {
	config *config.Config

	mu      sync.Mutex // serializes operations
	dirLock *flock.Flock
	backend state.Backend
	db      *state.StateDB
	clock   func() uint64

	tokens     *token.Service
	treasury   *treasury.Service
	oracle     *oracle.Relay
	governance *governance.Governance

	rpc      *rpc.Server
	httpSrv  *http.Server
	listener net.Listener
	log      log.Logger
}

// New opens the state database and wires the programs.
func New(cfg *config.Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dirLock, err := lockDataDir(cfg.Node)
	if err != nil {
		return nil, err
	}
	backend, err := state.OpenBackend(cfg.Node.DBEngine, filepath.Join(cfg.Node.DataDir, stateDir))
	if err != nil {
		releaseDataDir(dirLock)
		return nil, fmt.Errorf("failed to open state: %w", err)
	}
	db := state.New(backend)
	tokens := token.NewService(db)
	vault := treasury.NewService(db, tokens)
	gov := governance.New(db, tokens, vault, cfg.Strict.GovernanceOptions())

	n := &Node{
		config:     cfg,
		dirLock:    dirLock,
		backend:    backend,
		db:         db,
		clock:      func() uint64 { return uint64(time.Now().Unix()) },
		tokens:     tokens,
		treasury:   vault,
		oracle:     oracle.NewRelay(db, gov, cfg.Strict.OracleOptions()),
		governance: gov,
		rpc:        rpc.NewServer(),
		log:        log.New("module", "node"),
	}
	if err := n.rpc.RegisterName("dao", &DAOAPI{n}); err != nil {
		backend.Close()
		releaseDataDir(dirLock)
		return nil, err
	}
	n.log.Info("Opened state", "engine", cfg.Node.DBEngine, "datadir", cfg.Node.DataDir)
	return n, nil
}

// SetClock replaces the source of ledger time, in unix seconds.
func (n *Node) SetClock(clock func() uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clock = clock
}

// Initialized reports whether the DAO has been bootstrapped.
func (n *Node) Initialized() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.initialized()
}

func (n *Node) initialized() (bool, error) {
	_, err := n.governance.Config()
	if errors.Is(err, governance.ErrNotInitialized) {
		return false, nil
	}
	return err == nil, err
}

// Init bootstraps the DAO from the genesis configuration.
func (n *Node) Init() (*genesis.Result, error) {
	var res *genesis.Result
	err := n.Apply(func(now uint64) error {
		ok, err := n.initialized()
		if err != nil {
			return err
		}
		if ok {
			return ErrAlreadyInitialized
		}
		programs := &genesis.Programs{
			Tokens:     n.tokens,
			Treasury:   n.treasury,
			Oracle:     n.oracle,
			Governance: n.governance,
		}
		res, err = genesis.Bootstrap(n.db, programs, &n.config.Genesis, now)
		return err
	})
	return res, err
}

// Apply runs fn as one atomic operation at the current ledger time. Its writes
// are committed if it succeeds and dropped otherwise.
func (n *Node) Apply(fn func(now uint64) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	committed := false
	defer func() {
		if !committed {
			n.db.Discard()
		}
	}()
	if err := fn(n.clock()); err != nil {
		return err
	}
	if err := n.db.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	committed = true
	return nil
}

// View runs a read-only fn against the committed state.
func (n *Node) View(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn()
}

// Start starts the JSON-RPC HTTP server if an address is configured.
func (n *Node) Start() error {
	addr := n.config.Node.HTTPAddr
	if addr == "" {
		return nil
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/", newCorsHandler(n.rpc, n.config.Node.HTTPCors))
	if n.config.Node.Metrics {
		mux.Handle(MetricsPath, exp.ExpHandler(metrics.DefaultRegistry))
	}
	n.listener = listener
	n.httpSrv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go n.httpSrv.Serve(listener)
	n.log.Info("HTTP server started", "endpoint", n.HTTPEndpoint(), "metrics", n.config.Node.Metrics)
	return nil
}

// HTTPEndpoint returns the URL of the HTTP server.
func (n *Node) HTTPEndpoint() string {
	if n.listener == nil {
		return ""
	}
	return "http://" + n.listener.Addr().String()
}

// Attach creates an in-process RPC client.
func (n *Node) Attach() *rpc.Client {
	return rpc.DialInProc(n.rpc)
}

// Close stops the servers and closes the state database.
func (n *Node) Close() error {
	if n.httpSrv != nil {
		n.httpSrv.Close()
		n.log.Info("HTTP server stopped", "endpoint", n.HTTPEndpoint())
	}
	n.rpc.Stop()

	n.mu.Lock()
	defer n.mu.Unlock()
	n.db.Discard()
	err := n.backend.Close()
	releaseDataDir(n.dirLock)
	return err
}

// lockDataDir takes the instance lock of the data directory so that two nodes
// never share a database. The memory engine needs no lock.
func lockDataDir(cfg config.NodeConfig) (*flock.Flock, error) {
	if cfg.DBEngine == state.EngineMemory {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(cfg.DataDir, "LOCK"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrDatadirUsed, cfg.DataDir)
	}
	return lock, nil
}

func releaseDataDir(lock *flock.Flock) {
	if lock == nil {
		return
	}
	if err := lock.Unlock(); err != nil {
		log.Error("Failed to release datadir lock", "err", err)
	}
}

// newCorsHandler wraps h with a CORS handler allowing the given origins.
func newCorsHandler(h http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		return h
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(h)
}

// Governance returns the governance program.
func (n *Node) Governance() *governance.Governance { return n.governance }

// Tokens returns the token service.
func (n *Node) Tokens() *token.Service { return n.tokens }

// Treasury returns the treasury service.
func (n *Node) Treasury() *treasury.Service { return n.treasury }

// Oracle returns the attestation gateway.
func (n *Node) Oracle() *oracle.Relay { return n.oracle }
