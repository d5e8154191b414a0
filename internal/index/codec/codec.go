// Package codec serialises an InvertedIndex to a compact binary artifact and
// back. Terms are written in lexicographic order with fixed-width
// little-endian integers throughout, so two builds of the same corpus
// produce byte-identical output. A CRC32 footer over the term records guards
// against silent corruption.
//
// Layout:
//
//	header:  magic u32 | version u32 | term count u32 | doc count u32
//	per term (lexicographic): term len u32 | term bytes |
//	                          posting count u32 | ascending doc ids u32...
//	footer:  crc32 (IEEE) over all term records
package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/mkovalev-dev/termindex/internal/index"
	"github.com/mkovalev-dev/termindex/pkg/errors"
)

const (
	MagicBytes    uint32 = 0x54494458 // "TIDX"
	FormatVersion uint32 = 1
	headerSize           = 16
	footerSize           = 4
)

// Encode serialises a frozen index. An empty index encodes to a header-only
// artifact (plus footer) and round-trips like any other.
func Encode(idx *index.InvertedIndex) ([]byte, error) {
	entries := idx.Entries()

	buf := make([]byte, 0, headerSize+footerSize+len(entries)*16)
	buf = binary.LittleEndian.AppendUint32(buf, MagicBytes)
	buf = binary.LittleEndian.AppendUint32(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(entries)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(idx.DocCount()))

	for _, entry := range entries {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(entry.Term)))
		buf = append(buf, entry.Term...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(entry.Postings)))
		for _, id := range entry.Postings {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(id))
		}
	}

	checksum := crc32.ChecksumIEEE(buf[headerSize:])
	buf = binary.LittleEndian.AppendUint32(buf, checksum)
	return buf, nil
}

// Decode reconstructs an index from Encode output. Structural inconsistency
// (bad magic, unordered terms or ids, checksum mismatch, trailing bytes)
// fails with ErrCorruptIndex; running out of bytes before the declared
// structure is complete fails with ErrTruncatedInput.
func Decode(data []byte) (*index.InvertedIndex, error) {
	if len(data) < headerSize+footerSize {
		return nil, errors.Newf(errors.ErrTruncatedInput,
			"%d bytes is shorter than the fixed header and footer", len(data))
	}
	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != MagicBytes {
		return nil, errors.Newf(errors.ErrCorruptIndex, "bad magic bytes %#x", magic)
	}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != FormatVersion {
		return nil, errors.Newf(errors.ErrCorruptIndex, "unsupported format version %d", version)
	}
	termCount := binary.LittleEndian.Uint32(data[8:12])
	docCount := binary.LittleEndian.Uint32(data[12:16])

	body := data[headerSize : len(data)-footerSize]
	declared := binary.LittleEndian.Uint32(data[len(data)-footerSize:])
	if actual := crc32.ChecksumIEEE(body); actual != declared {
		return nil, errors.Newf(errors.ErrCorruptIndex,
			"checksum mismatch: declared %#x, computed %#x", declared, actual)
	}

	r := reader{buf: body}
	entries := make([]index.TermEntry, 0, termCount)
	prevTerm := ""
	for i := uint32(0); i < termCount; i++ {
		termLen, err := r.uint32()
		if err != nil {
			return nil, err
		}
		termBytes, err := r.bytes(int(termLen))
		if err != nil {
			return nil, err
		}
		term := string(termBytes)
		if i > 0 && term <= prevTerm {
			return nil, errors.Newf(errors.ErrCorruptIndex,
				"term %q out of lexicographic order after %q", term, prevTerm)
		}
		prevTerm = term

		postingCount, err := r.uint32()
		if err != nil {
			return nil, err
		}
		postings := make(index.PostingList, 0, postingCount)
		for j := uint32(0); j < postingCount; j++ {
			id, err := r.uint32()
			if err != nil {
				return nil, err
			}
			postings = append(postings, index.DocID(id))
		}
		entries = append(entries, index.TermEntry{Term: term, Postings: postings})
	}
	if r.off != len(r.buf) {
		return nil, errors.Newf(errors.ErrCorruptIndex,
			"%d trailing bytes after the declared %d terms", len(r.buf)-r.off, termCount)
	}
	return index.FromEntries(entries, int(docCount))
}

// reader is a bounds-checked cursor over the record section.
type reader struct {
	buf []byte
	off int
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.off+n > len(r.buf) {
		return nil, errors.Newf(errors.ErrTruncatedInput,
			"need %d bytes at offset %d, only %d remain", n, r.off, len(r.buf)-r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// WriteFile encodes idx and writes it to path atomically: the bytes go to a
// .tmp sibling first and are renamed into place after a successful sync.
func WriteFile(path string, idx *index.InvertedIndex) error {
	data, err := Encode(idx)
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing index file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	return nil
}

// ReadFile loads and decodes the index artifact at path.
func ReadFile(path string) (*index.InvertedIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}
	idx, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return idx, nil
}
