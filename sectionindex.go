// SPDX-FileCopyrightText: 2024 The scrate Authors
//
// SPDX-License-Identifier: MIT

package scrate

import "fmt"

// sectionEntrySize is the on-disk byte width of one SectionEntry: three u32s.
const sectionEntrySize = 12

// SectionEntry is one {type, offset, size} row of the section index.
type SectionEntry struct {
	Type   DataSectionType
	Offset uint32
	Size   uint32
}

// SectionIndex is the ordered sequence of SectionEntry describing every data
// section in the file. Non-signature entries precede signature entries.
type SectionIndex struct {
	Entries []SectionEntry
}

// SectionIDByType returns the index of the first entry of type t.
func (si *SectionIndex) SectionIDByType(t DataSectionType) (int, error) {
	for i, e := range si.Entries {
		if e.Type == t {
			return i, nil
		}
	}
	return 0, newErr(KindDecodeError, fmt.Sprintf("no section of type %s", t), nil)
}

// SigNum returns the number of SIGSTRUCTURE entries in the index.
func (si *SectionIndex) SigNum() int {
	n := 0
	for _, e := range si.Entries {
		if e.Type == SectionSigStructure {
			n++
		}
	}
	return n
}

// NoneSigSize returns the byte span occupied by the non-signature entries at
// the front of the index.
func (si *SectionIndex) NoneSigSize() uint32 {
	return uint32((len(si.Entries) - si.SigNum()) * sectionEntrySize)
}

// DataSectionSizeWithoutSig returns the sum of the sizes of every
// non-signature data section.
func (si *SectionIndex) DataSectionSizeWithoutSig() uint32 {
	var total uint32
	for _, e := range si.Entries {
		if e.Type != SectionSigStructure {
			total += e.Size
		}
	}
	return total
}

// Len reports the on-disk byte size of the index.
func (si *SectionIndex) Len() int {
	return len(si.Entries) * sectionEntrySize
}

// ToBytes serialises the index in entry order.
func (si *SectionIndex) ToBytes() []byte {
	buf := make([]byte, 0, si.Len())
	for _, e := range si.Entries {
		buf = appendU32(buf, uint32(e.Type))
		buf = appendU32(buf, e.Offset)
		buf = appendU32(buf, e.Size)
	}
	return buf
}

// ReadSectionIndex parses a section index of n entries from buf.
func ReadSectionIndex(buf []byte, n int) (*SectionIndex, error) {
	if n*sectionEntrySize > len(buf) {
		return nil, newErr(KindDecodeError, "section index exceeds buffer bounds", nil)
	}
	si := &SectionIndex{Entries: make([]SectionEntry, 0, n)}
	for i := 0; i < n; i++ {
		base := i * sectionEntrySize
		typ, err := readU32(buf, base)
		if err != nil {
			return nil, err
		}
		offset, err := readU32(buf, base+4)
		if err != nil {
			return nil, err
		}
		size, err := readU32(buf, base+8)
		if err != nil {
			return nil, err
		}
		si.Entries = append(si.Entries, SectionEntry{Type: DataSectionType(typ), Offset: offset, Size: size})
	}
	return si, nil
}
