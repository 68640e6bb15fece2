// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/crate-spec/scrate/log"
	"github.com/crate-spec/scrate/pki"
)

// Reserved upper bounds on a single signature's encoded byte length. Chosen
// conservatively for a typical CMS chain (File/CrateBin) and a compact
// NetworkSignature wire value.
const (
	maxSigSizeFile     = 8 * 1024
	maxSigSizeCrateBin = 8 * 1024
	maxSigSizeNetwork  = 1024
)

func maxSigSizeForType(t SigType) int {
	switch t {
	case SigFile:
		return maxSigSizeFile
	case SigCrateBin:
		return maxSigSizeCrateBin
	case SigNetwork:
		return maxSigSizeNetwork
	}
	return maxSigSizeFile
}

// fingerprintSize is the width of the trailing SHA-256 whole-file digest.
const fingerprintSize = 32

// maskRegion is the central design constant of the two-pass signing
// protocol: the byte span, within the section index, holding every
// signature entry. It is zeroed before computing any signature's digest so
// that the digest never depends on the signature entries' own offset/size.
func maskRegion(si *SectionIndex) (start, end uint32) {
	return si.NoneSigSize(), uint32(si.Len())
}

// headerTailOffset/headerTailEnd bound the header fields whose values are
// not yet known the first time a SigFile digest is computed: DsSize,
// StOffset and StSize all depend on the final signature sizes, which are
// only settled after signing. They are zeroed before digesting a SigFile
// scope, identically at encode and decode time, so the digest never
// depends on them either.
const (
	headerTailOffset = 20
	headerTailEnd    = headerSize
)

// maskHeaderTail zeroes buf's header-tail bytes (see headerTailOffset) in
// place. buf must start with a serialised Header.
func maskHeaderTail(buf []byte) {
	for i := headerTailOffset; i < headerTailEnd && i < len(buf); i++ {
		buf[i] = 0
	}
}

// Encode lays out ctx into a complete scrate container: header, section
// index, data sections, string table, and fingerprint trailer. Signatures
// are produced in the order they were added via AddLocalSig/AddNetworkSig.
func (ctx *PackageContext) Encode(signCtx context.Context) ([]byte, error) {
	st := NewStringTable()

	packBytes, err := encodePack(ctx.Pack, st)
	if err != nil {
		return nil, err
	}
	depBytes := encodeDepTable(ctx.Deps, st)
	crateBytes := encodeCrateBinary(ctx.Crate)

	nonSigEntries := []SectionEntry{
		{Type: SectionPack, Size: uint32(len(packBytes))},
		{Type: SectionDepTable, Size: uint32(len(depBytes))},
		{Type: SectionCrateBinary, Size: uint32(len(crateBytes))},
	}
	sigEntries := make([]SectionEntry, len(ctx.Sigs))
	for i, s := range ctx.Sigs {
		sigEntries[i] = SectionEntry{Type: SectionSigStructure, Size: 0}
		_ = s
	}

	si := &SectionIndex{Entries: append(append([]SectionEntry{}, nonSigEntries...), sigEntries...)}
	ctx.logInfof("scrate: encode: section layout pack=%dB deptable=%dB cratebinary=%dB sigs=%d", len(packBytes), len(depBytes), len(crateBytes), len(ctx.Sigs))

	hdr := Header{Version: FormatVersion}
	hdr.SiOffset = headerSize
	hdr.SiSize = uint32(si.Len())
	hdr.DsOffset = hdr.SiOffset + hdr.SiSize

	// Assign offsets to the non-signature entries now; they are fixed for
	// the remainder of encoding.
	off := hdr.DsOffset
	for i := range si.Entries[:len(nonSigEntries)] {
		si.Entries[i].Offset = off
		off += si.Entries[i].Size
	}
	nonSigDataEnd := off

	// buf is the canonicalised pre-signature view: header + full index +
	// non-signature data, with the signature entries of the index zeroed.
	buildMaskedBuf := func() []byte {
		buf := make([]byte, 0, nonSigDataEnd)
		buf = append(buf, hdr.ToBytes()...)
		buf = append(buf, si.ToBytes()...)
		buf = append(buf, packBytes...)
		buf = append(buf, depBytes...)
		buf = append(buf, crateBytes...)

		start, end := maskRegion(si)
		maskStart := hdr.SiOffset + start
		maskEnd := hdr.SiOffset + end
		for i := maskStart; i < maskEnd && int(i) < len(buf); i++ {
			buf[i] = 0
		}
		maskHeaderTail(buf)
		return buf
	}

	sigBlobs := make([][]byte, len(ctx.Sigs))
	for i, rec := range ctx.Sigs {
		var digest []byte
		switch rec.Type {
		case SigFile:
			buf := buildMaskedBuf()
			sum := sha256.Sum256(buf)
			digest = sum[:]
		case SigCrateBin, SigNetwork:
			sum := sha256.Sum256(ctx.Crate.Bytes)
			digest = sum[:]
		default:
			return nil, newErr(KindEncodeError, fmt.Sprintf("unknown signature type %d", rec.Type), nil)
		}
		ctx.logDebugf("scrate: encode: sig[%d] type=%d digest=%x", i, rec.Type, digest)

		if rec.remote != nil && ctx.Logger != nil {
			rec.remote.client.SetLogger(ctx.Logger)
		}
		blob, pub, err := produceSignature(signCtx, rec, digest)
		if err != nil {
			return nil, err
		}
		if len(blob) > maxSigSizeForType(rec.Type) {
			return nil, newErr(KindEncodeError, "signature overflow", nil)
		}
		sigBlobs[i] = blob
		rec.Bin = blob
		rec.PubKey = pub
		ctx.logInfof("scrate: encode: sig[%d] type=%d produced %dB", i, rec.Type, len(blob))
	}

	// Second pass: lay out the real signature sections after the
	// non-signature data, now that their actual sizes are known.
	off = nonSigDataEnd
	sigSectionBytes := make([][]byte, len(ctx.Sigs))
	for i, rec := range ctx.Sigs {
		payload := encodeSigStructure(rec.Type, sigBlobs[i])
		sigSectionBytes[i] = payload
		si.Entries[len(nonSigEntries)+i].Offset = off
		si.Entries[len(nonSigEntries)+i].Size = uint32(len(payload))
		off += uint32(len(payload))
	}
	hdr.DsSize = off - hdr.DsOffset
	hdr.StOffset = off

	strBytes := st.ToBytes()
	hdr.StSize = uint32(len(strBytes))

	out := make([]byte, 0, int(hdr.StOffset)+len(strBytes)+fingerprintSize)
	out = append(out, hdr.ToBytes()...)
	out = append(out, si.ToBytes()...)
	out = append(out, packBytes...)
	out = append(out, depBytes...)
	out = append(out, crateBytes...)
	for _, sb := range sigSectionBytes {
		out = append(out, sb...)
	}
	out = append(out, strBytes...)

	fp := sha256.Sum256(out)
	out = append(out, fp[:]...)
	ctx.logInfof("scrate: encode: wrote %dB container, fingerprint=%x", len(out), fp)
	return out, nil
}

// produceSignature signs digest with rec's configured signer (local or
// remote), returning the encoded signature bytes and, for network
// signatures, the public key to cache on the record.
func produceSignature(ctx context.Context, rec *SigRecord, digest []byte) (blob []byte, pubKey string, err error) {
	switch {
	case rec.local != nil:
		blob, err = rec.local.Sign(digest)
		if err != nil {
			return nil, "", err
		}
		return blob, "", nil
	case rec.remote != nil:
		resp, err := rec.remote.client.SignDigest(ctx, pki.SignDigestRequest{
			BaseConfig: rec.remote.cfg,
			Priv:       rec.remote.keyPair.PrivKey,
			Digest:     pki.DigestToHex(digest),
		})
		if err != nil {
			return nil, "", newErr(KindPkiError, "sign/digest failed", err)
		}
		ns := pki.NetworkSignature{
			PubKey:    rec.remote.keyPair.PubKey,
			Signature: resp.Signature,
			Algo:      rec.remote.cfg.Algo,
			Flow:      rec.remote.cfg.Flow,
			Kms:       rec.remote.cfg.Kms,
			KeyID:     rec.remote.keyPair.KeyID,
		}
		blob, err := encodeNetworkSignature(ns)
		if err != nil {
			return nil, "", err
		}
		return blob, rec.remote.keyPair.PubKey, nil
	default:
		return nil, "", newErr(KindEncodeError, "signature record has no signer configured", nil)
	}
}

// DecodeContainer parses and verifies a complete scrate container, returning
// an equivalent PackageContext. Verification calls out to verifier for
// network signatures (may be nil if the container carries none). logger is
// optional; nil means discard, matching pki.Client's logging contract.
func DecodeContainer(ctx context.Context, buf []byte, roots [][]byte, verifier *pki.Client, logger log.Logger) (*PackageContext, error) {
	logInfof := func(format string, v ...interface{}) {
		if logger != nil {
			logger.Infof(format, v...)
		}
	}
	logDebugf := func(format string, v ...interface{}) {
		if logger != nil {
			logger.Debugf(format, v...)
		}
	}

	if len(buf) < fingerprintSize {
		return nil, newErr(KindDecodeError, "file too short for fingerprint", nil)
	}
	body := buf[:len(buf)-fingerprintSize]
	trailer := buf[len(buf)-fingerprintSize:]
	fp := sha256.Sum256(body)
	if !bytes.Equal(fp[:], trailer) {
		return nil, newErr(KindDecodeError, "fingerprint mismatch", nil)
	}

	hdr, err := ReadHeader(buf)
	if err != nil {
		return nil, err
	}
	if int(hdr.StOffset)+int(hdr.StSize)+fingerprintSize != len(buf) {
		return nil, newErr(KindDecodeError, "string table does not abut fingerprint", nil)
	}

	entryCount := int(hdr.SiSize) / sectionEntrySize
	si, err := ReadSectionIndex(buf[hdr.SiOffset:hdr.SiOffset+hdr.SiSize], entryCount)
	if err != nil {
		return nil, err
	}
	logInfof("scrate: decode: section layout entries=%d dsoffset=%d stoffset=%d", entryCount, hdr.DsOffset, hdr.StOffset)

	st, err := ReadStringTable(buf[hdr.StOffset : hdr.StOffset+hdr.StSize])
	if err != nil {
		return nil, err
	}

	packID, err := si.SectionIDByType(SectionPack)
	if err != nil {
		return nil, err
	}
	depID, err := si.SectionIDByType(SectionDepTable)
	if err != nil {
		return nil, err
	}
	crateID, err := si.SectionIDByType(SectionCrateBinary)
	if err != nil {
		return nil, err
	}

	sectionBytes := func(e SectionEntry) ([]byte, error) {
		start, end := e.Offset, uint64(e.Offset)+uint64(e.Size)
		if end > uint64(len(buf)) {
			return nil, newErr(KindDecodeError, "section exceeds file bounds", nil)
		}
		return buf[start:end], nil
	}

	packBuf, err := sectionBytes(si.Entries[packID])
	if err != nil {
		return nil, err
	}
	pack, err := decodePack(packBuf, st)
	if err != nil {
		return nil, err
	}

	depBuf, err := sectionBytes(si.Entries[depID])
	if err != nil {
		return nil, err
	}
	deps, err := decodeDepTable(depBuf, st)
	if err != nil {
		return nil, err
	}

	crateBuf, err := sectionBytes(si.Entries[crateID])
	if err != nil {
		return nil, err
	}
	crate, err := decodeCrateBinary(crateBuf)
	if err != nil {
		return nil, err
	}

	out := NewPackageContext()
	out.Pack = pack
	out.Deps = deps
	out.Crate = crate
	out.RootCAs = roots
	out.Logger = logger

	// Rebuild the masked buf over the same non-signature region to verify
	// local signatures and recompute network digests.
	nonSigDataEnd := hdr.DsOffset + si.DataSectionSizeWithoutSig()
	maskedBuf := make([]byte, nonSigDataEnd)
	copy(maskedBuf, buf[:nonSigDataEnd])
	start, end := maskRegion(si)
	maskStart := hdr.SiOffset + start
	maskEnd := hdr.SiOffset + end
	for i := maskStart; i < maskEnd && int(i) < len(maskedBuf); i++ {
		maskedBuf[i] = 0
	}
	maskHeaderTail(maskedBuf)

	if verifier != nil && logger != nil {
		verifier.SetLogger(logger)
	}

	for _, e := range si.Entries {
		if e.Type != SectionSigStructure {
			continue
		}
		sigBuf, err := sectionBytes(e)
		if err != nil {
			return nil, err
		}
		sigType, sigBin, err := decodeSigStructure(sigBuf)
		if err != nil {
			return nil, err
		}
		logDebugf("scrate: decode: sig type=%d size=%dB", sigType, len(sigBin))

		rec := &SigRecord{Type: sigType, Bin: sigBin}
		switch sigType {
		case SigFile:
			sum := sha256.Sum256(maskedBuf)
			if err := verifyLocalSig(roots, sigBin, sum[:]); err != nil {
				return nil, err
			}
		case SigCrateBin:
			sum := sha256.Sum256(crate.Bytes)
			if err := verifyLocalSig(roots, sigBin, sum[:]); err != nil {
				return nil, err
			}
		case SigNetwork:
			if verifier == nil {
				return nil, newErr(KindSignatureError, "no PKI client configured to verify network signature", nil)
			}
			ns, err := decodeNetworkSignature(sigBin)
			if err != nil {
				return nil, err
			}
			sum := sha256.Sum256(crate.Bytes)
			resp, err := verifier.VerifyDigest(ctx, pki.VerifyDigestRequest{
				BaseConfig: pki.BaseConfig{Algo: ns.Algo, Flow: ns.Flow, Kms: ns.Kms},
				Pub:        ns.PubKey,
				Digest:     pki.DigestToHex(sum[:]),
				Signature:  ns.Signature,
			})
			if err != nil {
				return nil, newErr(KindPkiError, "verify/digest failed", err)
			}
			if resp.Result != "OK" {
				return nil, newErr(KindSignatureError, fmt.Sprintf("network verification rejected: %s", resp.Result), nil)
			}
			rec.PubKey = ns.PubKey
		}
		out.Sigs = append(out.Sigs, rec)
	}

	logInfof("scrate: decode: verified %d signature(s)", len(out.Sigs))
	return out, nil
}

func verifyLocalSig(roots [][]byte, cms, digest []byte) error {
	signer := &LocalSigner{RootPEMs: roots}
	return signer.Verify(cms, digest)
}
