// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import (
	"bytes"
	"context"
	"reflect"
	"testing"
)

func newTestContext(t *testing.T, certPEM, keyPEM []byte) *PackageContext {
	t.Helper()
	ctx := NewPackageContext()
	ctx.SetPackageInfo(PackageInfo{Name: "widget", Version: "1.0.0", License: "MIT", Authors: []string{"a"}})
	ctx.AddDepInfo(DepInfo{Name: "serde", VerReq: "1.0", Src: SrcCratesIo, Dump: true})
	ctx.SetCrateBinary([]byte("pretend this is a tarball"))
	if _, err := ctx.AddLocalSig(NewLocalSigner(certPEM, keyPEM), SigCrateBin); err != nil {
		t.Fatalf("AddLocalSig error: %v", err)
	}
	return ctx
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	certPEM, keyPEM := genSelfSignedCert(t)
	ctx := newTestContext(t, certPEM, keyPEM)

	buf, err := ctx.Encode(context.Background())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	out, err := DecodeContainer(context.Background(), buf, [][]byte{certPEM}, nil, nil)
	if err != nil {
		t.Fatalf("DecodeContainer error: %v", err)
	}

	if !reflect.DeepEqual(out.Pack, ctx.Pack) {
		t.Errorf("Pack = %+v, want %+v", out.Pack, ctx.Pack)
	}
	if len(out.Deps) != 1 || out.Deps[0].Name != "serde" {
		t.Errorf("Deps = %+v, want a single serde entry", out.Deps)
	}
	if !bytes.Equal(out.Crate.Bytes, ctx.Crate.Bytes) {
		t.Errorf("Crate.Bytes = %v, want %v", out.Crate.Bytes, ctx.Crate.Bytes)
	}
	if len(out.Sigs) != 1 || out.Sigs[0].Type != SigCrateBin {
		t.Errorf("Sigs = %+v, want a single SigCrateBin entry", out.Sigs)
	}
}

func TestDecodeContainerRejectsFingerprintTamper(t *testing.T) {
	certPEM, keyPEM := genSelfSignedCert(t)
	ctx := newTestContext(t, certPEM, keyPEM)

	buf, err := ctx.Encode(context.Background())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	buf[len(buf)-1] ^= 0xff

	if _, err := DecodeContainer(context.Background(), buf, [][]byte{certPEM}, nil, nil); err == nil {
		t.Error("expected fingerprint mismatch error, got nil")
	}
}

func TestDecodeContainerRejectsBodyTamper(t *testing.T) {
	certPEM, keyPEM := genSelfSignedCert(t)
	ctx := newTestContext(t, certPEM, keyPEM)

	buf, err := ctx.Encode(context.Background())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	// Flip a byte inside the section index (the pack entry's offset field),
	// inside the fingerprinted body, to simulate tampering after signing.
	buf[headerSize+5] ^= 0xff

	if _, err := DecodeContainer(context.Background(), buf, [][]byte{certPEM}, nil, nil); err == nil {
		t.Error("expected an error for a tampered body, got nil")
	}
}

func TestEncodeSignatureFitsSizeBudget(t *testing.T) {
	certPEM, keyPEM := genSelfSignedCert(t)
	ctx := NewPackageContext()
	ctx.SetPackageInfo(PackageInfo{Name: "widget", Version: "1.0.0"})
	ctx.SetCrateBinary([]byte("data"))
	if _, err := ctx.AddLocalSig(NewLocalSigner(certPEM, keyPEM), SigCrateBin); err != nil {
		t.Fatalf("AddLocalSig error: %v", err)
	}
	// A plain CMS signature over a single RSA-2048 signer comfortably fits
	// within maxSigSizeCrateBin, so this asserts the happy path does NOT
	// trip the overflow guard rather than forcing an overflow.
	if _, err := ctx.Encode(context.Background()); err != nil {
		t.Errorf("Encode error: %v, want nil (signature should fit within the size budget)", err)
	}
}

func TestEncodeRequiresPackageNameVersion(t *testing.T) {
	certPEM, keyPEM := genSelfSignedCert(t)
	ctx := NewPackageContext()
	ctx.SetCrateBinary([]byte("data"))
	if _, err := ctx.AddLocalSig(NewLocalSigner(certPEM, keyPEM), SigCrateBin); err != nil {
		t.Fatalf("AddLocalSig error: %v", err)
	}
	if _, err := ctx.Encode(context.Background()); err == nil {
		t.Error("expected error encoding a context with no package name/version, got nil")
	}
}

func TestEncodeDecodeSigFileRoundTrip(t *testing.T) {
	certPEM, keyPEM := genSelfSignedCert(t)
	ctx := NewPackageContext()
	ctx.SetPackageInfo(PackageInfo{Name: "widget", Version: "1.0.0"})
	ctx.SetCrateBinary([]byte("pretend this is a tarball"))
	if _, err := ctx.AddLocalSig(NewLocalSigner(certPEM, keyPEM), SigFile); err != nil {
		t.Fatalf("AddLocalSig error: %v", err)
	}

	buf, err := ctx.Encode(context.Background())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	out, err := DecodeContainer(context.Background(), buf, [][]byte{certPEM}, nil, nil)
	if err != nil {
		t.Fatalf("DecodeContainer error: %v, want a verifying SigFile signature", err)
	}
	if len(out.Sigs) != 1 || out.Sigs[0].Type != SigFile {
		t.Errorf("Sigs = %+v, want a single SigFile entry", out.Sigs)
	}
}

func TestEncodeDecodeMixedFileAndCrateBinSigs(t *testing.T) {
	certPEM, keyPEM := genSelfSignedCert(t)
	ctx := newTestContext(t, certPEM, keyPEM)
	if _, err := ctx.AddLocalSig(NewLocalSigner(certPEM, keyPEM), SigFile); err != nil {
		t.Fatalf("AddLocalSig error: %v", err)
	}

	buf, err := ctx.Encode(context.Background())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	out, err := DecodeContainer(context.Background(), buf, [][]byte{certPEM}, nil, nil)
	if err != nil {
		t.Fatalf("DecodeContainer error: %v, want both signatures to verify", err)
	}
	if len(out.Sigs) != 2 {
		t.Fatalf("Sigs = %+v, want 2 entries", out.Sigs)
	}
}

func TestMaskRegionCoversFullSigEntries(t *testing.T) {
	si := &SectionIndex{Entries: []SectionEntry{
		{Type: SectionPack, Size: 10},
		{Type: SectionSigStructure, Size: 100},
	}}
	start, end := maskRegion(si)
	if start != sectionEntrySize {
		t.Errorf("mask start = %d, want %d (one non-sig entry)", start, sectionEntrySize)
	}
	if end != uint32(si.Len()) {
		t.Errorf("mask end = %d, want %d (whole index)", end, si.Len())
	}
}
