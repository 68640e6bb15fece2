// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

// Package config loads the TOML configuration file consumed by the scrate
// CLI: [local.encode], [local.decode], [network.encode], [network.decode],
// and [net], with a legacy flat [encode]/[decode] layout accepted for
// backward compatibility.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// LocalEncodeConfig configures a local (PKCS#7/CMS) encode operation.
type LocalEncodeConfig struct {
	Cert    string `toml:"cert"`
	PKey    string `toml:"pkey"`
	RootCAs []string `toml:"root_ca"`
	Output  string `toml:"output"`
}

// LocalDecodeConfig configures a local decode/verify operation.
type LocalDecodeConfig struct {
	RootCAs []string `toml:"root_ca"`
	Output  string   `toml:"output"`
}

// NetworkEncodeConfig configures a remote PKI encode operation.
type NetworkEncodeConfig struct {
	Output string `toml:"output"`
}

// NetworkDecodeConfig configures a remote PKI decode/verify operation.
type NetworkDecodeConfig struct {
	Output string `toml:"output"`
}

// NetConfig configures the PKI transport shared by network encode/decode.
type NetConfig struct {
	Algo         string `toml:"algo"`
	Flow         string `toml:"flow"`
	Kms          string `toml:"kms"`
	PKIBaseURL   string `toml:"pki_base_url"`
	KeyPairPath  string `toml:"key_pair_path"`
	RetryTimes   int    `toml:"retry_times"`
	RetryDelayMS int    `toml:"retry_delay"`
}

// RetryDelay returns RetryDelayMS as a time.Duration.
func (n NetConfig) RetryDelay() time.Duration {
	return time.Duration(n.RetryDelayMS) * time.Millisecond
}

// Local groups the local-signer config sections.
type Local struct {
	Encode LocalEncodeConfig `toml:"encode"`
	Decode LocalDecodeConfig `toml:"decode"`
}

// Network groups the remote-signer config sections.
type Network struct {
	Encode NetworkEncodeConfig `toml:"encode"`
	Decode NetworkDecodeConfig `toml:"decode"`
}

// Config is the root of the TOML configuration file.
type Config struct {
	Local   Local      `toml:"local"`
	Network Network    `toml:"network"`
	Net     *NetConfig `toml:"net"`
}

// legacyConfig is the pre-[local.*]/[network.*] flat layout: top-level
// [encode]/[decode] sections, mapped onto Local on load.
type legacyConfig struct {
	Encode LocalEncodeConfig `toml:"encode"`
	Decode LocalDecodeConfig `toml:"decode"`
}

// Load reads and parses the configuration file at path. If neither
// [local.*] nor [network.*] decoded to anything, it is re-decoded as the
// legacy flat [encode]/[decode] layout and mapped onto Local.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(raw), &cfg); err != nil {
		return nil, err
	}

	if isZeroLocal(cfg.Local) && isZeroNetwork(cfg.Network) {
		var legacy legacyConfig
		if _, err := toml.Decode(string(raw), &legacy); err != nil {
			return nil, err
		}
		cfg.Local = Local{Encode: legacy.Encode, Decode: legacy.Decode}
	}

	return &cfg, nil
}

func isZeroLocal(l Local) bool {
	return l.Encode.Cert == "" && l.Encode.PKey == "" && len(l.Decode.RootCAs) == 0
}

func isZeroNetwork(n Network) bool {
	return n.Encode.Output == "" && n.Decode.Output == ""
}

// LocalEncode returns the [local.encode] section.
func (c *Config) LocalEncode() LocalEncodeConfig { return c.Local.Encode }

// LocalDecode returns the [local.decode] section.
func (c *Config) LocalDecode() LocalDecodeConfig { return c.Local.Decode }

// NetworkEncode returns the [network.encode] section.
func (c *Config) NetworkEncode() NetworkEncodeConfig { return c.Network.Encode }

// NetworkDecode returns the [network.decode] section.
func (c *Config) NetworkDecode() NetworkDecodeConfig { return c.Network.Decode }

// Validate checks that every path this config names actually exists.
func (c *Config) Validate() error {
	paths := []string{}
	if c.Local.Encode.Cert != "" {
		paths = append(paths, c.Local.Encode.Cert)
	}
	if c.Local.Encode.PKey != "" {
		paths = append(paths, c.Local.Encode.PKey)
	}
	paths = append(paths, c.Local.Encode.RootCAs...)
	paths = append(paths, c.Local.Decode.RootCAs...)
	if c.Net != nil && c.Net.KeyPairPath != "" {
		paths = append(paths, c.Net.KeyPairPath)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return err
		}
	}
	return nil
}
