// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package pki

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// keyPairFileMode is the POSIX permission a persisted KeyPair file is
// written with.
const keyPairFileMode = 0o600

// KeyPair is a bootstrapped signing identity: a private/public key pair
// plus the BaseConfig it was issued under. It is persisted to disk with a
// fixed binary encoding so repeated runs do not re-fetch from the PKI
// service.
type KeyPair struct {
	BaseConfig BaseConfig
	PrivKey    string
	PubKey     string
	KeyID      string
}

// LoadKeyPairFile decodes a KeyPair previously written by SaveKeyPairFile.
func LoadKeyPairFile(path string) (*KeyPair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var kp KeyPair
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&kp); err != nil {
		return nil, fmt.Errorf("pki: could not decode key pair file: %w", err)
	}
	return &kp, nil
}

// SaveKeyPairFile persists kp to path, creating parent directories as
// needed and setting POSIX mode 0600 on the resulting file.
func SaveKeyPairFile(path string, kp *KeyPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("pki: could not create key pair directory: %w", err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(kp); err != nil {
		return fmt.Errorf("pki: could not encode key pair: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), keyPairFileMode); err != nil {
		return err
	}
	return os.Chmod(path, keyPairFileMode)
}

// GetOrFetchKeyPair tries to load a KeyPair from path; on any failure
// (missing file, corrupt encoding) it fetches a fresh one from client and
// persists it to path before returning it.
func GetOrFetchKeyPair(ctx context.Context, client *Client, path string, cfg BaseConfig) (*KeyPair, error) {
	if kp, err := LoadKeyPairFile(path); err == nil {
		return kp, nil
	}

	resp, err := client.FetchKeyPair(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pki: could not fetch key pair: %w", err)
	}
	kp := &KeyPair{
		BaseConfig: resp.BaseConfig,
		PrivKey:    resp.Priv,
		PubKey:     resp.Pub,
		KeyID:      resp.KeyID,
	}
	if err := SaveKeyPairFile(path, kp); err != nil {
		return nil, fmt.Errorf("pki: could not persist key pair: %w", err)
	}
	return kp, nil
}
