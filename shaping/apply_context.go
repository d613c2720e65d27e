package shaping

import (
	"github.com/textforge/shaping/buffer"
	"github.com/textforge/shaping/otfont"
	"github.com/textforge/shaping/sfnt"
)

// TableType distinguishes GSUB from GPOS application, since a handful
// of skip-iterator rules (default-ignorable ZWNJ/hidden handling)
// differ between the two tables (spec §4.8).
type TableType uint8

const (
	TableGSUB TableType = iota
	TableGPOS
)

// glyph class property bits, derived from GDEF's GlyphClassDef on each
// query. Each bit equals the LookupFlag Ignore* bit for its class, so
// masking props with the lookup flag tests the ignore flags directly.
const (
	propBase        uint16 = 1 << 1 // LookupFlagIgnoreBaseGlyphs
	propLigature    uint16 = 1 << 2 // LookupFlagIgnoreLigatures
	propMark        uint16 = 1 << 3 // LookupFlagIgnoreMarks
	propIgnoreMask         = propBase | propLigature | propMark
)

func glyphClassToProp(class uint16) uint16 {
	switch class {
	case sfnt.GlyphClassBase:
		return propBase
	case sfnt.GlyphClassLigature:
		return propLigature
	case sfnt.GlyphClassMark:
		return propMark
	default:
		return 0
	}
}

// ApplyContext carries the state one lookup application needs: which
// buffer and font it runs over, GDEF classification, and the active
// lookup's flags, mirroring HarfBuzz's hb_ot_apply_context_t and the
// teacher's OTApplyContext (spec §4.8, component I).
type ApplyContext struct {
	Buffer *buffer.Buffer
	Font   *otfont.Font
	GDEF   sfnt.GDEF

	Table     TableType
	Direction buffer.Direction

	LookupFlag       LookupFlag
	MarkFilteringSet int // -1 if unset

	AutoZWNJ bool
	AutoZWJ  bool

	// AltIndex is the 1-based alternate a caller's feature value chose
	// for the Alternate Substitution lookup currently running, or 0 for
	// "first alternate" (spec §4.8).
	AltIndex uint32

	NestingLevel int
	recurse      func(ctx *ApplyContext, lookupIndex uint16) bool
}

const maxNestingLevel = 6

// classify returns the GDEF property bits for glyph g, or 0 when the
// font has no GlyphClassDef.
func (ctx *ApplyContext) classify(g sfnt.GlyphID) uint16 {
	if !ctx.GDEF.HasGlyphClassDef() {
		return 0
	}
	return glyphClassToProp(ctx.GDEF.GlyphClass.Class(g))
}

// checkGlyphProperty reports whether the lookup's ignore flags and
// mark-filtering set admit info.
func (ctx *ApplyContext) checkGlyphProperty(info *buffer.GlyphInfo) bool {
	props := ctx.classify(sfnt.GlyphID(info.Codepoint))
	if props&uint16(ctx.LookupFlag)&propIgnoreMask != 0 {
		return false
	}
	if props&propMark != 0 {
		return ctx.matchPropertiesMark(info)
	}
	return true
}

func (ctx *ApplyContext) matchPropertiesMark(info *buffer.GlyphInfo) bool {
	if ctx.LookupFlag&LookupFlagUseMarkFilteringSet != 0 {
		if ctx.MarkFilteringSet < 0 {
			return true
		}
		set, ok := ctx.GDEF.MarkGlyphSet(ctx.MarkFilteringSet)
		if !ok {
			return true
		}
		return set.Contains(sfnt.GlyphID(info.Codepoint))
	}
	if ctx.LookupFlag&lookupFlagMarkAttachTypeMask != 0 {
		markClass := uint16(ctx.GDEF.MarkAttachClass.Class(sfnt.GlyphID(info.Codepoint))) << 8
		return uint16(ctx.LookupFlag)&0xFF00 == markClass
	}
	return true
}

// shouldSkip reports whether the glyph at idx is ignored by this
// lookup's flags (base/ligature/mark filtering and mark-filtering set).
// Default-ignorable glyphs get no special treatment here.
func (ctx *ApplyContext) shouldSkip(idx int) bool {
	info := ctx.Buffer.InfoAt(idx)
	if info == nil {
		return true
	}
	if !ctx.checkGlyphProperty(info) {
		return true
	}
	return false
}

// skipIterator walks forward over the input or backward over the
// output from a given position, skipping glyphs the active lookup
// ignores, and counts the matches it returns in matchCount.
type skipIterator struct {
	ctx        *ApplyContext
	numItems   int
	matchCount int

	// farthest is the farthest index next walked past, matched or not,
	// since the iterator was created. A caller whose overall match
	// fails can pass [start, farthest] to buffer.UnsafeToConcat as a
	// safe over-approximation of how far the failed attempt looked
	// (spec §9 open question 1).
	farthest int
}

func (ctx *ApplyContext) newSkipIterator(numItems int) *skipIterator {
	return &skipIterator{ctx: ctx, numItems: numItems, farthest: -1}
}

// next advances from pos (an index into Buffer.Info) forward over
// skipped glyphs and returns the next matching index, or -1.
func (it *skipIterator) next(pos int) int {
	b := it.ctx.Buffer
	i := pos + 1
	for i < b.Len() {
		if i > it.farthest {
			it.farthest = i
		}
		if !it.ctx.shouldSkip(i) {
			it.matchCount++
			return i
		}
		i++
	}
	return -1
}

// prev walks backward from pos over skipped glyphs in the already
// produced output buffer and returns the previous matching index.
// Unlike next, prev doesn't extend farthest: it walks positions
// already behind the match attempt (backtrack), which a later
// concatenation can't retroactively affect.
func (it *skipIterator) prev(pos int) int {
	b := it.ctx.Buffer
	i := pos - 1
	for i >= 0 {
		info := b.OutInfoAt(i)
		if info != nil && it.ctx.checkGlyphProperty(info) {
			it.matchCount++
			return i
		}
		i--
	}
	return -1
}

// recurseLookup applies lookupIndex as a nested lookup (used by
// GSUB/GPOS context and chain-context subtables' lookup records),
// bounded by maxNestingLevel to stop adversarial self-recursive lookup
// chains from looping forever (spec §8 S7).
func (ctx *ApplyContext) recurseLookup(lookupIndex uint16) bool {
	if ctx.NestingLevel >= maxNestingLevel || ctx.recurse == nil {
		return false
	}
	ctx.NestingLevel++
	defer func() { ctx.NestingLevel-- }()
	return ctx.recurse(ctx, lookupIndex)
}
