// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import "bytes"

// magic identifies a scrate container; the first 4 bytes of every file.
var magic = [4]byte{'S', 'C', 'R', 'T'}

// FormatVersion is the on-disk format version this package writes and reads.
const FormatVersion uint32 = 1

// headerSize is the fixed on-disk byte width of Header.
const headerSize = 32

// Header is the fixed preamble of a scrate container: magic bytes, format
// version, and the offset/size of the section index, data-section region,
// and string table. All fields are little-endian unsigned integers.
type Header struct {
	Version  uint32
	SiOffset uint32
	SiSize   uint32
	DsOffset uint32
	DsSize   uint32
	StOffset uint32
	StSize   uint32
}

// ToBytes serialises h to its fixed 32-byte on-disk form.
func (h Header) ToBytes() []byte {
	buf := make([]byte, 0, headerSize)
	buf = append(buf, magic[:]...)
	buf = appendU32(buf, h.Version)
	buf = appendU32(buf, h.SiOffset)
	buf = appendU32(buf, h.SiSize)
	buf = appendU32(buf, h.DsOffset)
	buf = appendU32(buf, h.DsSize)
	buf = appendU32(buf, h.StOffset)
	buf = appendU32(buf, h.StSize)
	return buf
}

// ReadHeader parses the fixed header from the start of buf.
func ReadHeader(buf []byte) (Header, error) {
	var h Header
	if len(buf) < headerSize {
		return h, newErr(KindDecodeError, "file too short for header", nil)
	}
	if !bytes.Equal(buf[:4], magic[:]) {
		return h, newErr(KindDecodeError, "bad magic bytes", nil)
	}
	var err error
	read := func(off int) uint32 {
		v, e := readU32(buf, off)
		if e != nil && err == nil {
			err = e
		}
		return v
	}
	h.Version = read(4)
	h.SiOffset = read(8)
	h.SiSize = read(12)
	h.DsOffset = read(16)
	h.DsSize = read(20)
	h.StOffset = read(24)
	h.StSize = read(28)
	if err != nil {
		return Header{}, err
	}
	if h.SiOffset+h.SiSize != h.DsOffset {
		return Header{}, newErr(KindDecodeError, "section index does not abut data sections", nil)
	}
	if h.DsOffset+h.DsSize != h.StOffset {
		return Header{}, newErr(KindDecodeError, "data sections do not abut string table", nil)
	}
	return h, nil
}
