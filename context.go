// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import (
	"github.com/crate-spec/scrate/log"
	"github.com/crate-spec/scrate/pki"
)

// remoteSigner is the configuration a SigNetwork SigRecord signs or
// verifies through: a PKI client, a bootstrapped key pair, and the
// BaseConfig identifying the algorithm/flow/kms triple.
type remoteSigner struct {
	client  *pki.Client
	keyPair *pki.KeyPair
	cfg     pki.BaseConfig
}

// PackageContext aggregates pack info, dependency infos, the embedded
// archive, and signature records, and orchestrates string table/section
// index/local+remote signer collaborators through Encode/DecodeContainer.
type PackageContext struct {
	Pack    PackageInfo
	Deps    []DepInfo
	Crate   CrateBinary
	Sigs    []*SigRecord
	RootCAs [][]byte

	Logger log.Logger
}

// NewPackageContext returns an empty PackageContext.
func NewPackageContext() *PackageContext {
	return &PackageContext{}
}

// SetPackageInfo sets the required identifying metadata.
func (ctx *PackageContext) SetPackageInfo(pi PackageInfo) {
	ctx.Pack = pi
}

// AddDepInfo appends a dependency entry.
func (ctx *PackageContext) AddDepInfo(d DepInfo) {
	ctx.Deps = append(ctx.Deps, d)
}

// SetCrateBinary sets the wrapped archive bytes.
func (ctx *PackageContext) SetCrateBinary(b []byte) {
	ctx.Crate = CrateBinary{Bytes: b}
}

// SetRootCAs records PEM root CA certificates on the context. Encode does
// not read them, and DecodeContainer verifies against the roots passed as its
// own argument, which it stores in RootCAs of the context it returns.
func (ctx *PackageContext) SetRootCAs(roots [][]byte) {
	ctx.RootCAs = roots
}

// AddLocalSig appends a local PKCS#7/CMS signature of the given scope,
// returning its index in Sigs.
func (ctx *PackageContext) AddLocalSig(signer *LocalSigner, typ SigType) (int, error) {
	if typ != SigFile && typ != SigCrateBin {
		return 0, newErr(KindValidationError, "local signer only supports SigFile or SigCrateBin", nil)
	}
	ctx.Sigs = append(ctx.Sigs, &SigRecord{Type: typ, local: signer})
	return len(ctx.Sigs) - 1, nil
}

// AddNetworkSig appends a remote PKI signature, returning its index in Sigs.
func (ctx *PackageContext) AddNetworkSig(client *pki.Client, keyPair *pki.KeyPair, cfg pki.BaseConfig) (int, error) {
	ctx.Sigs = append(ctx.Sigs, &SigRecord{Type: SigNetwork, remote: &remoteSigner{client: client, keyPair: keyPair, cfg: cfg}})
	return len(ctx.Sigs) - 1, nil
}

// logInfof and logDebugf are nil-safe: ctx.Logger is optional, and a nil
// Logger means discard, matching pki.Client's logging contract.
func (ctx *PackageContext) logInfof(format string, v ...interface{}) {
	if ctx.Logger != nil {
		ctx.Logger.Infof(format, v...)
	}
}

func (ctx *PackageContext) logDebugf(format string, v ...interface{}) {
	if ctx.Logger != nil {
		ctx.Logger.Debugf(format, v...)
	}
}
