// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

const (
	DefaultArenaChunkSize  = 64 * 1024
	DefaultInitialCapacity = 256
)

type AggregatorOptions struct {
	ArenaChunkSize  int    `toml:"arenaChunkSize"`
	InitialCapacity int    `toml:"initialCapacity"`
	BatchSize       int    `toml:"batchSize"`
	Parallelism     int    `toml:"parallelism"`
	HashMethod      string `toml:"hashMethod"`
	VerifyStates    bool   `toml:"verifyStates"`
}

type TableOptions struct {
	Name      string   `toml:"name"`
	Path      string   `toml:"path"`
	Format    string   `toml:"format"`
	Columns   []string `toml:"columns"`
	Delimiter string   `toml:"delimiter"`
	Header    bool     `toml:"header"`
}

type ServerOptions struct {
	Addr string `toml:"addr"`
}

type DebugOptions struct {
	LogLevel    string `toml:"logLevel"`
	PrintLayout bool   `toml:"printLayout"`
}

type Config struct {
	Aggregator AggregatorOptions `toml:"aggregator"`
	Tables     []TableOptions    `toml:"tables"`
	Server     ServerOptions     `toml:"server"`
	Debug      DebugOptions      `toml:"debug"`
}

func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Fill()
	return cfg
}

// Fill sets defaults for the zero fields.
func (cfg *Config) Fill() {
	aggr := &cfg.Aggregator
	if aggr.ArenaChunkSize <= 0 {
		aggr.ArenaChunkSize = DefaultArenaChunkSize
	}
	if aggr.InitialCapacity <= 0 {
		aggr.InitialCapacity = DefaultInitialCapacity
	}
	aggr.InitialCapacity = int(NextPowerOfTwo(uint64(aggr.InitialCapacity)))
	if aggr.BatchSize <= 0 {
		aggr.BatchSize = DefaultVectorSize
	}
	if aggr.Parallelism <= 0 {
		aggr.Parallelism = 1
	}
	if aggr.HashMethod == "" {
		aggr.HashMethod = "auto"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:5432"
	}
	if cfg.Debug.LogLevel == "" {
		cfg.Debug.LogLevel = "info"
	}
	for i := range cfg.Tables {
		tab := &cfg.Tables[i]
		if tab.Format == "" {
			tab.Format = "csv"
		}
		if tab.Delimiter == "" {
			tab.Delimiter = ","
		}
	}
}

func (cfg *Config) Table(name string) (*TableOptions, error) {
	for i := range cfg.Tables {
		if cfg.Tables[i].Name == name {
			return &cfg.Tables[i], nil
		}
	}
	return nil, fmt.Errorf("no table %s in config", name)
}

var DefCfgFilePaths = []string{".", "etc"}

const CfgFileName = "groupby.toml"

// FindConfigFile returns the first groupby.toml in the default search paths.
func FindConfigFile() (string, bool) {
	for _, dirPath := range DefCfgFilePaths {
		fpath := filepath.Join(dirPath, CfgFileName)
		if FileIsValid(fpath) {
			return fpath, true
		}
	}
	return "", false
}

func LoadConfig(fpath string) (*Config, error) {
	cfg := &Config{}
	_, err := toml.DecodeFile(fpath, cfg)
	if err != nil {
		Error("load config file failed",
			zap.String("fpath", fpath),
			zap.Error(err))
		return nil, err
	}
	cfg.Fill()
	return cfg, nil
}

func ParseConfig(data string) (*Config, error) {
	cfg := &Config{}
	_, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, err
	}
	cfg.Fill()
	return cfg, nil
}
