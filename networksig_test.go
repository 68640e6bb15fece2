// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import (
	"testing"

	"github.com/crate-spec/scrate/pki"
)

func TestNetworkSignatureRoundTrip(t *testing.T) {
	ns := pki.NetworkSignature{
		PubKey:    "pub-bytes",
		Signature: "sig-bytes",
		Algo:      "ecdsa-p256",
		Flow:      "kms",
		Kms:       "aws-kms",
		KeyID:     "key-1",
	}
	buf, err := encodeNetworkSignature(ns)
	if err != nil {
		t.Fatalf("encodeNetworkSignature error: %v", err)
	}
	got, err := decodeNetworkSignature(buf)
	if err != nil {
		t.Fatalf("decodeNetworkSignature error: %v", err)
	}
	if got != ns {
		t.Errorf("decodeNetworkSignature() = %+v, want %+v", got, ns)
	}
}

func TestDecodeNetworkSignatureMalformed(t *testing.T) {
	if _, err := decodeNetworkSignature([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for malformed gob bytes, got nil")
	}
}
