// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/crate-spec/scrate/pki"
)

// encodeNetworkSignature serialises ns with a fixed binary encoding, the
// payload embedded inside a SigNetwork SIGSTRUCTURE section.
func encodeNetworkSignature(ns pki.NetworkSignature) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ns); err != nil {
		return nil, newErr(KindEncodeError, "could not encode network signature", err)
	}
	return buf.Bytes(), nil
}

// decodeNetworkSignature parses a fixed binary-encoded NetworkSignature.
func decodeNetworkSignature(buf []byte) (pki.NetworkSignature, error) {
	var ns pki.NetworkSignature
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&ns); err != nil {
		return ns, newErr(KindDecodeError, fmt.Sprintf("could not decode network signature: %v", err), nil)
	}
	return ns, nil
}
