// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import "testing"

func TestPackageContextSetters(t *testing.T) {
	ctx := NewPackageContext()
	ctx.SetPackageInfo(PackageInfo{Name: "widget", Version: "1.0.0"})
	ctx.AddDepInfo(DepInfo{Name: "dep1", Dump: true})
	ctx.SetCrateBinary([]byte("archive bytes"))
	ctx.SetRootCAs([][]byte{[]byte("root")})

	if ctx.Pack.Name != "widget" {
		t.Errorf("Pack.Name = %q, want %q", ctx.Pack.Name, "widget")
	}
	if len(ctx.Deps) != 1 || ctx.Deps[0].Name != "dep1" {
		t.Errorf("Deps = %+v, want a single dep1 entry", ctx.Deps)
	}
	if string(ctx.Crate.Bytes) != "archive bytes" {
		t.Errorf("Crate.Bytes = %q, want %q", ctx.Crate.Bytes, "archive bytes")
	}
	if len(ctx.RootCAs) != 1 {
		t.Errorf("RootCAs = %+v, want one entry", ctx.RootCAs)
	}
}

func TestAddLocalSigRejectsNetworkType(t *testing.T) {
	ctx := NewPackageContext()
	if _, err := ctx.AddLocalSig(&LocalSigner{}, SigNetwork); err == nil {
		t.Error("expected error adding a local signer with SigNetwork type, got nil")
	}
}

func TestAddLocalSigAcceptsFileAndCrateBin(t *testing.T) {
	ctx := NewPackageContext()
	if _, err := ctx.AddLocalSig(&LocalSigner{}, SigFile); err != nil {
		t.Errorf("AddLocalSig(SigFile) error: %v", err)
	}
	if _, err := ctx.AddLocalSig(&LocalSigner{}, SigCrateBin); err != nil {
		t.Errorf("AddLocalSig(SigCrateBin) error: %v", err)
	}
	if len(ctx.Sigs) != 2 {
		t.Errorf("len(Sigs) = %d, want 2", len(ctx.Sigs))
	}
}
