// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import (
	"encoding/binary"
	"fmt"
)

// appendU32 appends v to buf in little-endian order.
func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// readU32 reads a u32 at offset off, failing if it would read past len(buf).
func readU32(buf []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(buf) {
		return 0, newErr(KindDecodeError, "short read decoding u32", nil)
	}
	return binary.LittleEndian.Uint32(buf[off : off+4]), nil
}

// encodePack serialises a PackageInfo into its PACK section payload,
// interning every string through st.
func encodePack(pi PackageInfo, st *StringTable) ([]byte, error) {
	if pi.Name == "" || pi.Version == "" {
		return nil, newErr(KindEncodeError, "package name and version are required", nil)
	}
	buf := make([]byte, 0, 32+8*len(pi.Authors))
	buf = appendU32(buf, st.Insert(pi.Name))
	buf = appendU32(buf, st.Insert(pi.Version))
	buf = appendU32(buf, st.Insert(pi.License))
	buf = appendU32(buf, uint32(len(pi.Authors)))
	for _, a := range pi.Authors {
		buf = appendU32(buf, st.Insert(a))
	}
	return buf, nil
}

// decodePack parses a PACK section payload, resolving strings through st.
func decodePack(buf []byte, st *StringTable) (PackageInfo, error) {
	var pi PackageInfo
	off := 0
	read := func() (uint32, error) {
		v, err := readU32(buf, off)
		off += 4
		return v, err
	}

	nameOff, err := read()
	if err != nil {
		return pi, err
	}
	verOff, err := read()
	if err != nil {
		return pi, err
	}
	licOff, err := read()
	if err != nil {
		return pi, err
	}
	count, err := read()
	if err != nil {
		return pi, err
	}

	if pi.Name, err = st.Get(nameOff); err != nil {
		return pi, err
	}
	if pi.Version, err = st.Get(verOff); err != nil {
		return pi, err
	}
	if pi.License, err = st.Get(licOff); err != nil {
		return pi, err
	}
	pi.Authors = make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		aOff, err := read()
		if err != nil {
			return pi, err
		}
		a, err := st.Get(aOff)
		if err != nil {
			return pi, err
		}
		pi.Authors = append(pi.Authors, a)
	}
	return pi, nil
}

// encodeDepTable serialises only the dumpable dependencies of deps into a
// DEPTABLE section payload.
func encodeDepTable(deps []DepInfo, st *StringTable) []byte {
	dumpable := make([]DepInfo, 0, len(deps))
	for _, d := range deps {
		if d.Dump {
			dumpable = append(dumpable, d)
		}
	}
	buf := make([]byte, 0, 4+20*len(dumpable))
	buf = appendU32(buf, uint32(len(dumpable)))
	for _, d := range dumpable {
		buf = appendU32(buf, st.Insert(d.Name))
		buf = appendU32(buf, st.Insert(d.VerReq))
		buf = append(buf, byte(d.Src))
		buf = appendU32(buf, st.Insert(d.SrcPath))
		buf = appendU32(buf, st.Insert(d.Platform))
	}
	return buf
}

// decodeDepTable parses a DEPTABLE section payload.
func decodeDepTable(buf []byte, st *StringTable) ([]DepInfo, error) {
	off := 0
	read := func() (uint32, error) {
		v, err := readU32(buf, off)
		off += 4
		return v, err
	}

	count, err := read()
	if err != nil {
		return nil, err
	}
	deps := make([]DepInfo, 0, count)
	for i := uint32(0); i < count; i++ {
		nameOff, err := read()
		if err != nil {
			return nil, err
		}
		verOff, err := read()
		if err != nil {
			return nil, err
		}
		if off >= len(buf) {
			return nil, newErr(KindDecodeError, "short read decoding srctype", nil)
		}
		srctype := SrcType(buf[off])
		off++
		if srctype > SrcP2P {
			return nil, newErr(KindDecodeError, fmt.Sprintf("unknown srctype %d", srctype), nil)
		}
		pathOff, err := read()
		if err != nil {
			return nil, err
		}
		platOff, err := read()
		if err != nil {
			return nil, err
		}

		var d DepInfo
		d.Dump = true
		d.Src = srctype
		if d.Name, err = st.Get(nameOff); err != nil {
			return nil, err
		}
		if d.VerReq, err = st.Get(verOff); err != nil {
			return nil, err
		}
		if d.SrcPath, err = st.Get(pathOff); err != nil {
			return nil, err
		}
		if d.Platform, err = st.Get(platOff); err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, nil
}

// encodeCrateBinary serialises a CRATEBIN section payload.
func encodeCrateBinary(cb CrateBinary) []byte {
	buf := make([]byte, 0, 4+len(cb.Bytes))
	buf = appendU32(buf, uint32(len(cb.Bytes)))
	buf = append(buf, cb.Bytes...)
	return buf
}

// decodeCrateBinary parses a CRATEBIN section payload.
func decodeCrateBinary(buf []byte) (CrateBinary, error) {
	l, err := readU32(buf, 0)
	if err != nil {
		return CrateBinary{}, err
	}
	if uint64(4)+uint64(l) > uint64(len(buf)) {
		return CrateBinary{}, newErr(KindDecodeError, "crate binary length exceeds section size", nil)
	}
	out := make([]byte, l)
	copy(out, buf[4:4+l])
	return CrateBinary{Bytes: out}, nil
}

// encodeSigStructure serialises a SIGSTRUCTURE section payload.
func encodeSigStructure(typ SigType, sig []byte) []byte {
	buf := make([]byte, 0, 8+len(sig))
	buf = appendU32(buf, uint32(typ))
	buf = appendU32(buf, uint32(len(sig)))
	buf = append(buf, sig...)
	return buf
}

// decodeSigStructure parses a SIGSTRUCTURE section payload.
func decodeSigStructure(buf []byte) (SigType, []byte, error) {
	typ, err := readU32(buf, 0)
	if err != nil {
		return 0, nil, err
	}
	if typ > uint32(SigNetwork) {
		return 0, nil, newErr(KindDecodeError, fmt.Sprintf("unknown sig type %d", typ), nil)
	}
	size, err := readU32(buf, 4)
	if err != nil {
		return 0, nil, err
	}
	if uint64(8)+uint64(size) > uint64(len(buf)) {
		return 0, nil, newErr(KindDecodeError, "signature length exceeds section size", nil)
	}
	sig := make([]byte, size)
	copy(sig, buf[8:8+size])
	return SigType(typ), sig, nil
}
