// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import (
	"encoding/binary"
	"fmt"
)

// lengthPrefixBytes is the width of the u32 length prefix of every
// StringTable entry.
const lengthPrefixBytes = 4

// StringTable is a deduplicated, offset-indexed UTF-8 string pool. Every
// entry is `{len u32 LE}{bytes}`, packed back to back with no padding; the
// empty string always occupies offset 0.
type StringTable struct {
	buf     []byte
	offsets map[string]uint32
}

// NewStringTable returns a StringTable with the empty string pre-inserted
// at offset 0, per contract.
func NewStringTable() *StringTable {
	st := &StringTable{
		buf:     make([]byte, 0, 64),
		offsets: make(map[string]uint32),
	}
	st.Insert("")
	return st
}

// Insert adds s to the table if not already present and returns its stable
// offset. Insert is idempotent.
func (st *StringTable) Insert(s string) uint32 {
	if off, ok := st.offsets[s]; ok {
		return off
	}
	off := uint32(len(st.buf))
	var lb [lengthPrefixBytes]byte
	binary.LittleEndian.PutUint32(lb[:], uint32(len(s)))
	st.buf = append(st.buf, lb[:]...)
	st.buf = append(st.buf, s...)
	st.offsets[s] = off
	return off
}

// Get returns the string stored at offset. It fails if offset is not an
// entry boundary produced by Insert or observed by ReadStringTable.
func (st *StringTable) Get(offset uint32) (string, error) {
	if int(offset)+lengthPrefixBytes > len(st.buf) {
		return "", newErr(KindDecodeError, fmt.Sprintf("unknown string offset %d", offset), nil)
	}
	l := binary.LittleEndian.Uint32(st.buf[offset : offset+lengthPrefixBytes])
	start := offset + lengthPrefixBytes
	end := uint64(start) + uint64(l)
	if end > uint64(len(st.buf)) {
		return "", newErr(KindDecodeError, fmt.Sprintf("unknown string offset %d", offset), nil)
	}
	s := string(st.buf[start:end])
	if known, ok := st.offsets[s]; !ok || known != offset {
		return "", newErr(KindDecodeError, fmt.Sprintf("unknown string offset %d", offset), nil)
	}
	return s, nil
}

// ToBytes emits the table's entries, in ascending offset (insertion) order.
func (st *StringTable) ToBytes() []byte {
	out := make([]byte, len(st.buf))
	copy(out, st.buf)
	return out
}

// Len reports the byte size of the table as it would be written to disk.
func (st *StringTable) Len() int {
	return len(st.buf)
}

// ReadStringTable parses a previously-written string table from buf,
// validating that every entry boundary is well-formed. Subsequent Get calls
// against the first offset observed for each string during this read
// succeed; calling Insert on a
// table obtained this way is not supported.
func ReadStringTable(buf []byte) (*StringTable, error) {
	st := &StringTable{buf: make([]byte, len(buf)), offsets: make(map[string]uint32)}
	copy(st.buf, buf)

	off := uint32(0)
	for int(off) < len(st.buf) {
		if int(off)+lengthPrefixBytes > len(st.buf) {
			return nil, newErr(KindDecodeError, "truncated string table entry", nil)
		}
		l := binary.LittleEndian.Uint32(st.buf[off : off+lengthPrefixBytes])
		start := off + lengthPrefixBytes
		end := uint64(start) + uint64(l)
		if end > uint64(len(st.buf)) {
			return nil, newErr(KindDecodeError, "string table entry exceeds table bounds", nil)
		}
		s := string(st.buf[start:end])
		if _, ok := st.offsets[s]; !ok {
			st.offsets[s] = off
		}
		off = uint32(end)
	}
	return st, nil
}
