// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package pki

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestKeyPairSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "keypair.gob")
	kp := &KeyPair{BaseConfig: BaseConfig{Algo: "ecdsa"}, PrivKey: "priv", PubKey: "pub", KeyID: "k1"}

	if err := SaveKeyPairFile(path, kp); err != nil {
		t.Fatalf("SaveKeyPairFile error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadKeyPairFile(path)
	if err != nil {
		t.Fatalf("LoadKeyPairFile error: %v", err)
	}
	if *got != *kp {
		t.Errorf("LoadKeyPairFile() = %+v, want %+v", got, kp)
	}
}

func TestLoadKeyPairFileMissing(t *testing.T) {
	if _, err := LoadKeyPairFile(filepath.Join(t.TempDir(), "missing.gob")); err == nil {
		t.Error("expected error loading a nonexistent key pair file, got nil")
	}
}

func TestGetOrFetchKeyPairLoadsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keypair.gob")
	want := &KeyPair{PrivKey: "existing-priv", PubKey: "existing-pub"}
	if err := SaveKeyPairFile(path, want); err != nil {
		t.Fatalf("SaveKeyPairFile error: %v", err)
	}

	c := NewClient("http://should-not-be-called.invalid")
	got, err := GetOrFetchKeyPair(context.Background(), c, path, BaseConfig{})
	if err != nil {
		t.Fatalf("GetOrFetchKeyPair error: %v", err)
	}
	if got.PrivKey != "existing-priv" {
		t.Errorf("PrivKey = %q, want %q (should have loaded from disk, not fetched)", got.PrivKey, "existing-priv")
	}
}

func TestGetOrFetchKeyPairFetchesAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(KeyPairResponse{Priv: "fetched-priv", Pub: "fetched-pub", KeyID: "k2"})
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "keypair.gob")
	c := NewClient(srv.URL)

	got, err := GetOrFetchKeyPair(context.Background(), c, path, BaseConfig{Algo: "ecdsa"})
	if err != nil {
		t.Fatalf("GetOrFetchKeyPair error: %v", err)
	}
	if got.PrivKey != "fetched-priv" {
		t.Errorf("PrivKey = %q, want %q", got.PrivKey, "fetched-priv")
	}

	persisted, err := LoadKeyPairFile(path)
	if err != nil {
		t.Fatalf("expected fetched key pair to be persisted: %v", err)
	}
	if persisted.PrivKey != "fetched-priv" {
		t.Errorf("persisted PrivKey = %q, want %q", persisted.PrivKey, "fetched-priv")
	}
}
