// Package memory provides atomic snapshots over disjoint ranges of
// emulated work RAM.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrOutOfRange is returned when an address is not covered by a snapshot.
	ErrOutOfRange = errors.New("address out of range")
	// ErrShortRead is returned when a transport returns fewer bytes than
	// requested. The transport contract is broken; this is not transient.
	ErrShortRead = errors.New("short read")
)

// Range is a contiguous block of memory to read.
type Range struct {
	Addr uint32
	Len  int
}

// End returns the first address past the range.
func (r Range) End() uint32 {
	return r.Addr + uint32(r.Len)
}

// Contains reports whether addr is inside r.
func (r Range) Contains(addr uint32) bool {
	return addr >= r.Addr && addr < r.End()
}

func (r Range) String() string {
	return fmt.Sprintf("0x%x-0x%x", r.Addr, r.End()-1)
}

// Source reads one snapshot covering exactly the requested ranges.
type Source interface {
	ReadSnapshot(ctx context.Context, ranges []Range) (*Snapshot, error)
}

type region struct {
	Range
	data []byte
}

// Snapshot holds bytes read from several ranges at a single instant.
type Snapshot struct {
	regions []region
}

// NewSnapshot pairs each range with the bytes read for it.
func NewSnapshot(ranges []Range, data [][]byte) (*Snapshot, error) {
	if len(ranges) != len(data) {
		return nil, fmt.Errorf("%w: expected %d regions, got %d", ErrShortRead, len(ranges), len(data))
	}
	s := &Snapshot{regions: make([]region, 0, len(ranges))}
	for i, r := range ranges {
		if len(data[i]) != r.Len {
			return nil, fmt.Errorf("%w: expected %d bytes at address 0x%x but got %d", ErrShortRead, r.Len, r.Addr, len(data[i]))
		}
		s.regions = append(s.regions, region{Range: r, data: data[i]})
	}
	return s, nil
}

// Ranges returns the ranges covered by the snapshot.
func (s *Snapshot) Ranges() []Range {
	out := make([]Range, len(s.regions))
	for i, r := range s.regions {
		out[i] = r.Range
	}
	return out
}

// Covers reports whether addr can be read from the snapshot.
func (s *Snapshot) Covers(addr uint32) bool {
	for _, r := range s.regions {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// Byte returns the byte at addr.
func (s *Snapshot) Byte(addr uint32) (byte, error) {
	for _, r := range s.regions {
		if r.Contains(addr) {
			return r.data[addr-r.Addr], nil
		}
	}
	valid := make([]string, len(s.regions))
	for i, r := range s.regions {
		valid[i] = r.String()
	}
	return 0, fmt.Errorf("%w: address 0x%x (valid ranges: %s)", ErrOutOfRange, addr, strings.Join(valid, ", "))
}

// Short reads a little-endian 16-bit value.
func (s *Snapshot) Short(addr uint32) (uint16, error) {
	v, err := s.BigNum(addr, 2)
	return uint16(v), err
}

// BigNum reads an n-byte little-endian value, n <= 8.
func (s *Snapshot) BigNum(addr uint32, n int) (uint64, error) {
	if n > 8 {
		return 0, fmt.Errorf("bignum of %d bytes does not fit in 64 bits", n)
	}
	var v uint64
	for i := 0; i < n; i++ {
		b, err := s.Byte(addr + uint32(i))
		if err != nil {
			return 0, err
		}
		v |= uint64(b) << (8 * i)
	}
	return v, nil
}

// BigInt reads an n-byte little-endian value of any size.
func (s *Snapshot) BigInt(addr uint32, n int) (*big.Int, error) {
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := s.Byte(addr + uint32(i))
		if err != nil {
			return nil, err
		}
		buf[n-1-i] = b
	}
	return new(big.Int).SetBytes(buf), nil
}

// Reader wraps a snapshot and remembers the first failed read so that
// decoders can read many fields and check a single error at the end.
type Reader struct {
	snap *Snapshot
	err  error
}

// NewReader returns a Reader over snap.
func NewReader(snap *Snapshot) *Reader {
	return &Reader{snap: snap}
}

// Short reads a 16-bit value, returning 0 after the first error.
func (r *Reader) Short(addr uint32) uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.snap.Short(addr)
	r.err = err
	return v
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}
