// Package blob implements a refcounted, lifecycle-managed view over an
// immutable byte range, the shared ownership primitive that every parsed
// font table in package sfnt borrows against.
package blob

import (
	"os"
	"sync/atomic"
)

// MemoryMode describes how a Blob's backing bytes were obtained, and
// therefore what GetDataWritable is allowed to do with them.
type MemoryMode uint8

const (
	// MemoryModeDuplicate means the Blob owns a private copy; writes
	// are always safe in place.
	MemoryModeDuplicate MemoryMode = iota
	// MemoryModeReadOnly means the bytes must never be mutated in
	// place; GetDataWritable always duplicates first.
	MemoryModeReadOnly
	// MemoryModeWritable means the caller already guarantees the
	// bytes are exclusively owned and mutable.
	MemoryModeWritable
	// MemoryModeReadOnlyMayMakeWritable means the bytes are read-only
	// today but the destructor owns the allocation. GetDataWritable
	// duplicates them exactly as it does for MemoryModeReadOnly; no
	// in-place promotion is attempted.
	MemoryModeReadOnlyMayMakeWritable
)

// Blob is an owned or borrowed view of an immutable byte range plus a
// destructor closure and a reference count. While reachable, the bytes
// in [0, Len()) are valid to read; a Blob never grows or shrinks.
type Blob struct {
	data      []byte
	mode      MemoryMode
	destroy   func()
	immutable atomic.Bool
	refcount  atomic.Int32
	parent    *Blob // non-nil for sub-blobs, which pin their parent's lifetime
}

// nullBlob is the process-wide singleton returned in place of a failed
// allocation (spec §7, OutOfMemory): operations on it are harmless no-ops.
var nullBlob = &Blob{}

// Null returns the shared empty/invalid Blob singleton.
func Null() *Blob { return nullBlob }

// New creates a Blob over data with the given memory mode. destroy, if
// non-nil, is invoked exactly once when the last reference is released.
func New(data []byte, mode MemoryMode, destroy func()) *Blob {
	if data == nil {
		return Null()
	}
	b := &Blob{data: data, mode: mode, destroy: destroy}
	b.refcount.Store(1)
	return b
}

// NewFromFile reads the whole file into an owned, duplicated buffer.
func NewFromFile(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Null(), err
	}
	return New(data, MemoryModeDuplicate, nil), nil
}

// NewSubBlob returns a read-only view of parent[offset:offset+length],
// clamped to the parent's bounds. The sub-blob holds a reference to the
// parent so the parent cannot be freed first.
func (b *Blob) NewSubBlob(offset, length int) *Blob {
	if b == nil || offset < 0 || length < 0 || offset > len(b.data) {
		return Null()
	}
	end := offset + length
	if end > len(b.data) || end < offset {
		end = len(b.data)
	}
	b.Reference()
	sub := &Blob{
		data:   b.data[offset:end],
		mode:   MemoryModeReadOnly,
		parent: b,
	}
	sub.refcount.Store(1)
	sub.immutable.Store(true)
	return sub
}

// Reference increments the refcount and returns b, mirroring the C
// idiom `hb_blob_reference`.
func (b *Blob) Reference() *Blob {
	if b == nil {
		return Null()
	}
	b.refcount.Add(1)
	return b
}

// Destroy decrements the refcount, releasing the backing store and, for
// sub-blobs, the parent reference, once it reaches zero.
func (b *Blob) Destroy() {
	if b == nil || b == nullBlob {
		return
	}
	if b.refcount.Add(-1) != 0 {
		return
	}
	if b.destroy != nil {
		b.destroy()
	}
	if b.parent != nil {
		b.parent.Destroy()
	}
}

// Len returns the number of valid bytes.
func (b *Blob) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Data returns the read-only backing bytes. Callers must not retain a
// reference past the Blob's lifetime without calling Reference first.
func (b *Blob) Data() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// GetDataWritable returns a byte slice the caller may mutate in place,
// duplicating the backing store unless the mode already guarantees
// exclusive ownership. An immutable Blob returns a fresh private copy
// on every call and keeps its own bytes unchanged.
func (b *Blob) GetDataWritable() []byte {
	if b == nil || len(b.data) == 0 {
		return nil
	}
	if b.immutable.Load() {
		cp := make([]byte, len(b.data))
		copy(cp, b.data)
		return cp
	}
	switch b.mode {
	case MemoryModeWritable, MemoryModeDuplicate:
		return b.data
	default:
		cp := make([]byte, len(b.data))
		copy(cp, b.data)
		b.data = cp
		b.mode = MemoryModeDuplicate
		return b.data
	}
}

// MakeImmutable latches the Blob so future writable requests always
// duplicate rather than mutate in place. The latch is one-way.
func (b *Blob) MakeImmutable() {
	if b == nil {
		return
	}
	b.immutable.Store(true)
}

// IsImmutable reports whether MakeImmutable has been called.
func (b *Blob) IsImmutable() bool {
	return b != nil && b.immutable.Load()
}
