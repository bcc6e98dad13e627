package gitindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// Signature is the 4-byte tag every index file starts with
const Signature = "DIRC"

const (
	headerSize     = 12
	entryFixedSize = 62

	flagExtended = 0x4000
)

var (
	ErrInvalidSignature = errors.New("invalid index signature")
	ErrInvalidVersion   = errors.New("unsupported index version")
	ErrTruncated        = errors.New("index truncated")
	ErrInvalidPadding   = errors.New("invalid entry padding")
	ErrInvalidPath      = errors.New("invalid entry path")
)

// Entry is a single staged file
type Entry struct {
	CTimeSeconds  uint32
	CTimeNanos    uint32
	MTimeSeconds  uint32
	MTimeNanos    uint32
	Dev           uint32
	Inode         uint32
	Mode          uint32
	UID           uint32
	GID           uint32
	Size          uint32
	Hash          plumbing.Hash
	Flags         uint16
	ExtendedFlags uint16
	Path          string
}

// Index is a decoded index file
type Index struct {
	Version uint32
	Entries []Entry
}

// Parse decodes an index held in memory. Exactly the header's entry count is
// read; trailing extensions and the checksum are not inspected.
func Parse(data []byte) (*Index, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: header", ErrTruncated)
	}
	if string(data[:4]) != Signature {
		return nil, ErrInvalidSignature
	}

	version := binary.BigEndian.Uint32(data[4:8])
	if version < 2 || version > 4 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}
	count := binary.BigEndian.Uint32(data[8:12])

	// the header count is untrusted input
	capHint := int(count)
	if maxEntries := (len(data) - headerSize) / entryFixedSize; capHint > maxEntries {
		capHint = maxEntries
	}

	p := &parser{data: data, off: headerSize, version: version}
	entries := make([]Entry, 0, capHint)
	for i := uint32(0); i < count; i++ {
		entry, err := p.readEntry()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	return &Index{Version: version, Entries: entries}, nil
}

type parser struct {
	data     []byte
	off      int
	version  uint32
	prevPath string
}

func (p *parser) readUint32() uint32 {
	v := binary.BigEndian.Uint32(p.data[p.off:])
	p.off += 4
	return v
}

func (p *parser) readEntry() (Entry, error) {
	var e Entry
	start := p.off
	if len(p.data)-start < entryFixedSize {
		return e, ErrTruncated
	}

	e.CTimeSeconds = p.readUint32()
	e.CTimeNanos = p.readUint32()
	e.MTimeSeconds = p.readUint32()
	e.MTimeNanos = p.readUint32()
	e.Dev = p.readUint32()
	e.Inode = p.readUint32()
	e.Mode = p.readUint32()
	e.UID = p.readUint32()
	e.GID = p.readUint32()
	e.Size = p.readUint32()
	copy(e.Hash[:], p.data[p.off:p.off+20])
	p.off += 20
	e.Flags = binary.BigEndian.Uint16(p.data[p.off:])
	p.off += 2

	if p.version >= 3 && e.Flags&flagExtended != 0 {
		if len(p.data)-p.off < 2 {
			return e, ErrTruncated
		}
		e.ExtendedFlags = binary.BigEndian.Uint16(p.data[p.off:])
		p.off += 2
	}

	if p.version == 4 {
		path, err := p.readPrefixedPath()
		if err != nil {
			return e, err
		}
		e.Path = path
		return e, nil
	}

	nul := bytes.IndexByte(p.data[p.off:], 0)
	if nul < 0 {
		return e, ErrTruncated
	}
	e.Path = string(p.data[p.off : p.off+nul])
	if e.Path == "" {
		return e, ErrInvalidPath
	}

	// 1 to 8 NUL bytes follow the path, the first being its terminator
	consumed := p.off - start + nul
	end := start + (consumed+8)&^7
	if end > len(p.data) {
		return e, ErrTruncated
	}
	for _, b := range p.data[p.off+nul : end] {
		if b != 0 {
			return e, ErrInvalidPadding
		}
	}
	p.off = end

	return e, nil
}

// readPrefixedPath decodes a version 4 path: a varint count of bytes to drop
// from the previous path, then the NUL-terminated remainder.
func (p *parser) readPrefixedPath() (string, error) {
	strip, err := p.readOffsetVarint()
	if err != nil {
		return "", err
	}
	if strip > uint64(len(p.prevPath)) {
		return "", fmt.Errorf("%w: strip %d exceeds previous path", ErrInvalidPath, strip)
	}

	nul := bytes.IndexByte(p.data[p.off:], 0)
	if nul < 0 {
		return "", ErrTruncated
	}

	path := p.prevPath[:len(p.prevPath)-int(strip)] + string(p.data[p.off:p.off+nul])
	if path == "" {
		return "", ErrInvalidPath
	}
	p.off += nul + 1
	p.prevPath = path
	return path, nil
}

// readOffsetVarint reads git's offset varint, where each continuation adds one
// before shifting so every value has a single encoding.
func (p *parser) readOffsetVarint() (uint64, error) {
	if p.off >= len(p.data) {
		return 0, ErrTruncated
	}
	c := p.data[p.off]
	p.off++
	val := uint64(c & 0x7f)
	for c&0x80 != 0 {
		if p.off >= len(p.data) {
			return 0, ErrTruncated
		}
		if val > (1<<56)-1 {
			return 0, fmt.Errorf("%w: varint overflow", ErrInvalidPath)
		}
		c = p.data[p.off]
		p.off++
		val = ((val + 1) << 7) | uint64(c&0x7f)
	}
	return val, nil
}

// Hashes returns the distinct object ids referenced by the index, in entry order
func (idx *Index) Hashes() []plumbing.Hash {
	seen := make(map[plumbing.Hash]struct{}, len(idx.Entries))
	hashes := make([]plumbing.Hash, 0, len(idx.Entries))
	for i := range idx.Entries {
		h := idx.Entries[i].Hash
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		hashes = append(hashes, h)
	}
	return hashes
}
