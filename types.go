// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

// DataSectionType identifies the kind of a data section in the section index.
type DataSectionType uint32

// List of data section types. 2 is intentionally unassigned, mirroring the
// on-disk layout this format was distilled from.
const (
	SectionPack         DataSectionType = 0
	SectionDepTable     DataSectionType = 1
	SectionCrateBinary  DataSectionType = 3
	SectionSigStructure DataSectionType = 4
)

// String implements the Stringer interface for DataSectionType
func (t DataSectionType) String() string {
	switch t {
	case SectionPack:
		return "pack"
	case SectionDepTable:
		return "dep-table"
	case SectionCrateBinary:
		return "crate-binary"
	case SectionSigStructure:
		return "sig-structure"
	}
	return "unknown"
}

// SigType identifies the scope over which a signature's digest is computed.
type SigType uint32

const (
	// SigFile signs the whole canonicalised pre-signature buffer
	SigFile SigType = 0
	// SigCrateBin signs only the raw crate-binary bytes
	SigCrateBin SigType = 1
	// SigNetwork signs only the raw crate-binary bytes, via a remote PKI service
	SigNetwork SigType = 2
)

// String implements the Stringer interface for SigType
func (t SigType) String() string {
	switch t {
	case SigFile:
		return "file"
	case SigCrateBin:
		return "crate-bin"
	case SigNetwork:
		return "network"
	}
	return "unknown"
}

// SrcType identifies where a dependency is resolved from.
type SrcType uint8

const (
	SrcCratesIo SrcType = 0
	SrcGit      SrcType = 1
	SrcURL      SrcType = 2
	SrcRegistry SrcType = 3
	SrcP2P      SrcType = 4
)

// String implements the Stringer interface for SrcType
func (t SrcType) String() string {
	switch t {
	case SrcCratesIo:
		return "crates.io"
	case SrcGit:
		return "git"
	case SrcURL:
		return "url"
	case SrcRegistry:
		return "registry"
	case SrcP2P:
		return "p2p"
	}
	return "unknown"
}

// PackageInfo is the required identifying metadata of a scrate container.
type PackageInfo struct {
	Name    string
	Version string
	License string
	Authors []string
}

// DepInfo describes a single dependency entry. Dump is false when the
// dependency carried a manifest attribute this implementation does not
// understand; such dependencies are retained in memory for diagnostics but
// silently excluded from the encoded dependency table.
type DepInfo struct {
	Name     string
	VerReq   string
	Src      SrcType
	SrcPath  string
	Platform string
	Dump     bool
}

// CrateBinary is the opaque wrapped source-package archive.
type CrateBinary struct {
	Bytes []byte
}

// SigRecord is an in-memory signature: either produced locally via PKCS#7/CMS
// or by a remote PKI service. Its signer is set by PackageContext.AddLocalSig
// or AddNetworkSig; a record returned by DecodeContainer carries no signer.
type SigRecord struct {
	Type   SigType
	Size   uint32
	Bin    []byte
	PubKey string

	local   *LocalSigner
	remote  *remoteSigner
}
