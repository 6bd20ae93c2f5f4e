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

// Package config loads the node configuration. Values are layered with
// increasing priority: defaults, the TOML file, environment variables and
// finally command line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/augustdao/dao/genesis"
	"github.com/augustdao/dao/governance"
	"github.com/augustdao/dao/oracle"
)

// Environment variables overriding file values
const (
	EnvDataDir   = "DAO_DATADIR"
	EnvDBEngine  = "DAO_DB_ENGINE"
	EnvHTTPAddr  = "DAO_HTTP_ADDR"
	EnvVerbosity = "DAO_VERBOSITY"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete node configuration
type Config struct {
	Node    NodeConfig
	Genesis genesis.Config
	Strict  StrictConfig
}

// NodeConfig holds the host environment settings
type NodeConfig struct {
	DataDir   string   // state directory, unused by the memory engine
	DBEngine  string   // memory, leveldb or pebble
	HTTPAddr  string   // JSON-RPC listen address, empty disables the server
	HTTPCors  []string // origins allowed to call the JSON-RPC server
	Metrics   bool     // serve the metrics registry next to the JSON-RPC API
	Verbosity int      // log level, 0 (silent) to 5 (trace)
	LogFile   string   // rotated log file, empty logs to the terminal only
}

// StrictConfig enables the optional strict checks of the programs
type StrictConfig struct {
	VoteWeight             bool
	FinalizeAfterVotingEnd bool
	RestrictExecution      bool
	VerifySignatures       bool
}

// GovernanceOptions returns the governance program options.
func (s StrictConfig) GovernanceOptions() governance.Options {
	return governance.Options{
		StrictVoteWeight:       s.VoteWeight,
		FinalizeAfterVotingEnd: s.FinalizeAfterVotingEnd,
		RestrictExecution:      s.RestrictExecution,
	}
}

// OracleOptions returns the oracle options.
func (s StrictConfig) OracleOptions() oracle.Options {
	return oracle.Options{VerifySignatures: s.VerifySignatures}
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			DataDir:   "daodata",
			DBEngine:  "leveldb",
			HTTPAddr:  "127.0.0.1:8645",
			Verbosity: 3,
		},
		Genesis: *genesis.DefaultConfig(),
	}
}

// Load reads the configuration file at path on top of the defaults and applies
// the environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides node settings from the environment
func (c *Config) applyEnv() error {
	c.Node.DataDir = getEnvOrDefault(EnvDataDir, c.Node.DataDir)
	c.Node.DBEngine = getEnvOrDefault(EnvDBEngine, c.Node.DBEngine)
	c.Node.HTTPAddr = getEnvOrDefault(EnvHTTPAddr, c.Node.HTTPAddr)

	verbosity := getEnvOrDefault(EnvVerbosity, strconv.Itoa(c.Node.Verbosity))
	v, err := strconv.Atoi(verbosity)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvVerbosity, verbosity)
	}
	c.Node.Verbosity = v
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Node.DBEngine {
	case "memory":
	case "leveldb", "pebble":
		if c.Node.DataDir == "" {
			return fmt.Errorf("%w: %s engine requires a data directory", ErrInvalidConfig, c.Node.DBEngine)
		}
	default:
		return fmt.Errorf("%w: unknown database engine %q", ErrInvalidConfig, c.Node.DBEngine)
	}
	if c.Node.Verbosity < 0 || c.Node.Verbosity > 5 {
		return fmt.Errorf("%w: verbosity %d out of range", ErrInvalidConfig, c.Node.Verbosity)
	}
	return nil
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
