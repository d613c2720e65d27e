package sfnt

import (
	"sync"
	"sync/atomic"

	"github.com/textforge/shaping/blob"
)

// GlyphID is a glyph index into a Face.
type GlyphID = uint16

type tableRecord struct {
	offset uint32
	length uint32
}

// ReferenceTableFunc lets a Face be backed by a caller-supplied callback
// rather than a single blob (spec §4.2 "(b)"), mirroring HarfBuzz's
// hb_face_create_for_tables / reference_table collaborator.
type ReferenceTableFunc func(tag Tag) *blob.Blob

// Face is a parsed font file at a given index: it owns (or borrows, via
// ReferenceTableFunc) the table directory and lazily materializes typed
// table views on first access, caching them for the Face's lifetime.
// Once MakeImmutable is called, the table directory and any already
// cached views are frozen.
type Face struct {
	blob      *blob.Blob // nil when backed by refTable
	refTable  ReferenceTableFunc
	index     int
	upem      uint16
	numGlyphs int32 // lazily resolved; -1 until computed

	tables map[Tag]tableRecord // absent when refTable != nil

	cacheMu sync.Mutex
	cache   map[Tag]any

	immutable atomic.Bool

	// plans is the face's shape-plan cache (component G); it lives
	// here because the plan cache is keyed per-face and its head is
	// updated with a lock-free compare-exchange (spec §5).
	plans atomic.Pointer[planNode]
}

type planNode struct {
	key  any
	plan any
	next *planNode
}

// New parses a single-font (or TTC/dfont member) sfnt blob at the given
// font index. The returned error is ErrInvalidFont if the container
// itself cannot be parsed; individual malformed tables are reported
// later, at first access, as ErrInvalidTable (spec §7).
func New(data *blob.Blob, index int) (*Face, error) {
	raw := data.Data()
	c := NewCursor(raw)

	magic, ok := c.U32(0)
	if !ok {
		return nil, ErrInvalidFont
	}

	switch magic {
	case 0x74746366: // 'ttcf'
		return parseTTC(data, raw, index)
	case 0x00010000, 0x4F54544F, 0x74727565, 0x74797031: // TrueType, 'OTTO', 'true', 'typ1'
		if index != 0 {
			return nil, ErrInvalidFont
		}
		return parseOffsetTable(data, raw, 0)
	default:
		return nil, ErrInvalidFont
	}
}

// NewFromTableFunc builds a Face with no backing blob: every table is
// fetched on demand through ref, which must return a fresh reference
// each call (spec §4.2 Face "(b)").
func NewFromTableFunc(ref ReferenceTableFunc) *Face {
	f := &Face{refTable: ref, numGlyphs: -1, cache: map[Tag]any{}}
	return f
}

func parseTTC(data *blob.Blob, raw []byte, index int) (*Face, error) {
	c := NewCursor(raw)
	numFonts, ok := c.U32(8)
	if !ok || index < 0 || uint32(index) >= numFonts {
		return nil, ErrInvalidFont
	}
	offset, ok := c.U32(12 + 4*index)
	if !ok {
		return nil, ErrInvalidFont
	}
	f, err := parseOffsetTable(data, raw, int(offset))
	if f != nil {
		f.index = index
	}
	return f, err
}

func parseOffsetTable(data *blob.Blob, raw []byte, base int) (*Face, error) {
	c := NewCursor(raw)
	if !c.CheckRange(base, 12) {
		return nil, ErrInvalidFont
	}
	numTables, _ := c.U16(base + 4)

	f := &Face{
		blob:      data,
		numGlyphs: -1,
		tables:    make(map[Tag]tableRecord, numTables),
		cache:     map[Tag]any{},
	}
	recBase := base + 12
	for i := 0; i < int(numTables); i++ {
		off := recBase + 16*i
		if !c.CheckRange(off, 16) {
			// A truncated directory invalidates only the tables we
			// could not read; keep what we parsed so far (sanitize
			// continues conservatively rather than aborting).
			break
		}
		tag, _ := c.Tag(off)
		tblOffset, _ := c.U32(off + 8)
		tblLength, _ := c.U32(off + 12)
		f.tables[tag] = tableRecord{offset: tblOffset, length: tblLength}
	}
	return f, nil
}

// HasTable reports whether the table directory names tag, regardless
// of whether its contents sanitize successfully.
func (f *Face) HasTable(tag Tag) bool {
	if f.refTable != nil {
		b := f.refTable(tag)
		ok := b.Len() > 0
		b.Destroy()
		return ok
	}
	_, ok := f.tables[tag]
	return ok
}

// TableData returns the raw bytes for tag, or ErrTableNotFound /
// ErrInvalidTable if unavailable.
func (f *Face) TableData(tag Tag) ([]byte, error) {
	if f.refTable != nil {
		b := f.refTable(tag)
		defer b.Destroy()
		if b.Len() == 0 {
			return nil, ErrTableNotFound
		}
		return b.Data(), nil
	}
	rec, ok := f.tables[tag]
	if !ok {
		return nil, ErrTableNotFound
	}
	raw := f.blob.Data()
	end := uint64(rec.offset) + uint64(rec.length)
	if end > uint64(len(raw)) {
		return nil, ErrInvalidTable
	}
	return raw[rec.offset:end], nil
}

// cachedTable implements the "first access sanitizes, installs a typed
// view; subsequent accesses return the cached view" lazy table cache
// (spec §4.2), using a double-checked lock so a concurrent duplicate
// initializer (under a read-only immutable Face shared across threads)
// simply discards its redundant work rather than racing.
func cachedTable[T any](f *Face, tag Tag, parse func([]byte) (T, error)) (T, error) {
	f.cacheMu.Lock()
	if v, ok := f.cache[tag]; ok {
		f.cacheMu.Unlock()
		if v == nil {
			var zero T
			return zero, ErrInvalidTable
		}
		return v.(T), nil
	}
	f.cacheMu.Unlock()

	data, err := f.TableData(tag)
	if err != nil {
		f.cacheMu.Lock()
		f.cache[tag] = nil
		f.cacheMu.Unlock()
		var zero T
		return zero, err
	}
	parsed, err := parse(data)
	f.cacheMu.Lock()
	if existing, ok := f.cache[tag]; ok && existing != nil {
		// Lost a concurrent race; keep the winner's view.
		f.cacheMu.Unlock()
		return existing.(T), nil
	}
	if err != nil {
		f.cache[tag] = nil
	} else {
		f.cache[tag] = parsed
	}
	f.cacheMu.Unlock()
	return parsed, err
}

// Upem returns the font's units-per-em, defaulting to 1000 (CFF
// convention) if head is absent or malformed.
func (f *Face) Upem() uint16 {
	head, err := f.Head()
	if err != nil || head.UnitsPerEm == 0 {
		return 1000
	}
	return head.UnitsPerEm
}

// NumGlyphs returns the glyph count from maxp, memoized.
func (f *Face) NumGlyphs() int {
	if n := atomic.LoadInt32(&f.numGlyphs); n >= 0 {
		return int(n)
	}
	data, err := f.TableData(TagMaxp)
	n := 0
	if err == nil {
		if c := NewCursor(data); c.CheckRange(4, 2) {
			v, _ := c.U16(4)
			n = int(v)
		}
	}
	atomic.StoreInt32(&f.numGlyphs, int32(n))
	return n
}

// Index returns the sfnt/TTC member index this Face was parsed from.
func (f *Face) Index() int { return f.index }

// MakeImmutable latches the Face so its table directory and cached
// views may no longer change; once latched, a Face may be shared freely
// across goroutines for reads (spec §5).
func (f *Face) MakeImmutable() { f.immutable.Store(true) }

// IsImmutable reports whether MakeImmutable has been called.
func (f *Face) IsImmutable() bool { return f.immutable.Load() }

// RawTable exposes a table's bytes unparsed, for the "Apple layout"
// (morx/mort/kerx/ankr/trak) and bitmap/color payload tables
// (CBDT/CBLC/sbix/SVG) that spec §1 treats as opaque collaborators:
// the shaping core only needs to know whether they are present, not
// their internal structure.
func (f *Face) RawTable(tag Tag) ([]byte, bool) {
	data, err := f.TableData(tag)
	return data, err == nil
}
