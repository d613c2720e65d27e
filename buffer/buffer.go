package buffer

import "unicode/utf8"

// Buffer size limits, matching the proportional-to-length budgets
// spec §4.5 specifies ("max_ops default length × 64, floor 1024").
const (
	maxLenFactor  = 64
	maxLenMin     = 16384
	maxLenDefault = 0x3FFFFFFF

	maxOpsFactor  = 64
	maxOpsMin     = 1024
	maxOpsDefault = 0x1FFFFFFF
)

// Buffer holds input text (pre-shaping) or glyphs (post-shaping) plus
// their positions, using a two-slice rewrite model so GSUB's
// substitutions (which change glyph count) never alias the slice being
// read from (spec §4.5, §4.1 component design doc header comment).
type Buffer struct {
	Props        SegmentProperties
	Flags        Flags
	ClusterLevel ClusterLevel

	Replacement               Codepoint
	Invisible                 Codepoint
	NotFound                  Codepoint
	NotFoundVariationSelector Codepoint

	contentType ContentType

	info []GlyphInfo
	pos  []GlyphPosition

	outInfo []GlyphInfo

	len    int
	outLen int
	idx    int

	successful    bool
	haveOutput    bool
	havePositions bool

	serial       uint8
	scratch      scratchFlags
	shapingFailed bool

	maxLen int
	maxOps int

	digest SetDigest
}

// New creates an empty buffer with default settings.
func New() *Buffer {
	return &Buffer{
		Props:                     SegmentProperties{Direction: DirectionInvalid, Script: ScriptInvalid, Language: LanguageInvalid},
		Flags:                     FlagDefault,
		ClusterLevel:              ClusterLevelDefault,
		Replacement:               ReplacementCodepoint,
		NotFoundVariationSelector: CodepointInvalid,
		contentType:               ContentTypeInvalid,
		successful:                true,
		maxLen:                    maxLenDefault,
		maxOps:                    maxOpsDefault,
	}
}

// Reset clears content and restores every public setting to default.
func (b *Buffer) Reset() {
	b.Props = SegmentProperties{Direction: DirectionInvalid, Script: ScriptInvalid, Language: LanguageInvalid}
	b.Flags = FlagDefault
	b.ClusterLevel = ClusterLevelDefault
	b.Replacement = ReplacementCodepoint
	b.Invisible = 0
	b.NotFound = 0
	b.NotFoundVariationSelector = CodepointInvalid
	b.ClearContents()
}

// ClearContents empties the buffer but keeps direction/script/language/flags.
func (b *Buffer) ClearContents() {
	b.contentType = ContentTypeInvalid
	b.successful = true
	b.haveOutput = false
	b.havePositions = false
	b.shapingFailed = false
	b.idx = 0
	b.len = 0
	b.outLen = 0
	b.outInfo = b.info
	b.serial = 0
	b.scratch = 0
}

// Len returns the number of items currently in the buffer.
func (b *Buffer) Len() int { return b.len }

// Info returns the live glyph-info slice.
func (b *Buffer) Info() []GlyphInfo { return b.info[:b.len] }

// Pos returns the live glyph-position slice; only meaningful once
// HavePositions reports true.
func (b *Buffer) Pos() []GlyphPosition { return b.pos[:b.len] }

// HavePositions reports whether GPOS (or fallback positioning) has run.
func (b *Buffer) HavePositions() bool { return b.havePositions }

// ContentType reports whether the buffer holds Unicode text or glyphs.
func (b *Buffer) ContentType() ContentType { return b.contentType }

// InError reports whether an allocation or budget failure occurred.
func (b *Buffer) InError() bool { return !b.successful }

// ShapingFailed reports whether the max_ops budget was exhausted mid-shape
// (spec §4.5: "the buffer is flagged shaping_failed and the remaining
// lookups are skipped").
func (b *Buffer) ShapingFailed() bool { return b.shapingFailed }

// Add appends one item with an explicit cluster value.
func (b *Buffer) Add(codepoint Codepoint, cluster uint32) {
	if !b.ensure(b.len + 1) {
		return
	}
	b.info[b.len] = GlyphInfo{Codepoint: codepoint, Cluster: cluster}
	b.len++
}

// AddRunes appends a rune slice; clusters are rune indices.
func (b *Buffer) AddRunes(runes []rune) {
	if !b.ensureUnicode() {
		return
	}
	for i, r := range runes {
		b.Add(Codepoint(r), uint32(i))
	}
}

// AddString decodes a UTF-8 string; clusters are byte offsets (spec
// §4.5: "each input code point becomes one item whose cluster is its
// start offset in the source string").
func (b *Buffer) AddString(s string) {
	if !b.ensureUnicode() {
		return
	}
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			b.Add(b.Replacement, uint32(i))
			i++
			continue
		}
		b.Add(Codepoint(r), uint32(i))
		i += size
	}
}

// AddUTF8 decodes a UTF-8 byte slice the same way AddString does.
func (b *Buffer) AddUTF8(text []byte) { b.AddString(string(text)) }

// AddUTF16 decodes UTF-16 code units; clusters are code-unit offsets.
func (b *Buffer) AddUTF16(text []uint16) {
	if !b.ensureUnicode() {
		return
	}
	i := 0
	for i < len(text) {
		u := text[i]
		switch {
		case u >= 0xD800 && u <= 0xDBFF && i+1 < len(text) && text[i+1] >= 0xDC00 && text[i+1] <= 0xDFFF:
			r := (rune(u-0xD800)<<10 | rune(text[i+1]-0xDC00)) + 0x10000
			b.Add(Codepoint(r), uint32(i))
			i += 2
		case u >= 0xD800 && u <= 0xDFFF:
			b.Add(b.Replacement, uint32(i))
			i++
		default:
			b.Add(Codepoint(u), uint32(i))
			i++
		}
	}
}

// AddUTF32 appends already-decoded code points; clusters are indices.
func (b *Buffer) AddUTF32(text []uint32) {
	if !b.ensureUnicode() {
		return
	}
	for i, cp := range text {
		b.Add(cp, uint32(i))
	}
}

// Append copies other's items in [start,end) onto b, preserving their
// cluster values as-is (spec §4.5 "append(other, start, end)") — callers
// joining independently-numbered buffers are responsible for any
// cluster renumbering they need.
func (b *Buffer) Append(other *Buffer, start, end int) {
	if start >= end {
		return
	}
	if !b.ensure(b.len + (end - start)) {
		return
	}
	for i := start; i < end; i++ {
		info := other.info[i]
		b.info[b.len] = info
		if b.havePositions && other.havePositions {
			b.pos[b.len] = other.pos[i]
		}
		b.len++
	}
}

// ReplaceContents overwrites the buffer's items wholesale, used by
// pre-GSUB complex-shaper reordering passes (Hangul Jamo composition)
// that change item count before the two-buffer GSUB model engages.
func (b *Buffer) ReplaceContents(items []GlyphInfo) {
	if !b.ensure(len(items)) {
		return
	}
	copy(b.info, items)
	b.len = len(items)
	b.outInfo = b.info
}

func (b *Buffer) ensure(size int) bool {
	if size <= cap(b.info) {
		if size > len(b.info) {
			b.growSliceLen(size)
		}
		return true
	}
	return b.enlarge(size)
}

func (b *Buffer) growSliceLen(size int) {
	for len(b.info) < size {
		b.info = append(b.info, GlyphInfo{})
	}
	for len(b.pos) < size {
		b.pos = append(b.pos, GlyphPosition{})
	}
	if !b.haveOutput {
		b.outInfo = b.info
	}
}

func (b *Buffer) enlarge(size int) bool {
	if size > b.maxLen {
		b.successful = false
		return false
	}
	if !b.successful {
		return false
	}
	newAlloc := cap(b.info)
	if newAlloc == 0 {
		newAlloc = 32
	}
	for size >= newAlloc {
		newAlloc = newAlloc + newAlloc/2 + 32
	}
	separateOut := b.haveOutput
	newInfo := make([]GlyphInfo, newAlloc)
	newPos := make([]GlyphPosition, newAlloc)
	copy(newInfo, b.info[:b.len])
	copy(newPos, b.pos[:b.len])
	b.info, b.pos = newInfo, newPos
	if separateOut {
		newOut := make([]GlyphInfo, newAlloc)
		copy(newOut, b.outInfo[:b.outLen])
		b.outInfo = newOut
	} else {
		b.outInfo = b.info
	}
	b.growSliceLen(size)
	return true
}

func (b *Buffer) ensureUnicode() bool {
	if b.contentType == ContentTypeUnicode {
		return true
	}
	if b.contentType != ContentTypeInvalid || b.len != 0 {
		return false
	}
	b.contentType = ContentTypeUnicode
	return true
}

// EnsureGlyphs switches the buffer into post-shaping glyph-content mode;
// used by shapers seeding a buffer directly with glyph ids (tests,
// glyph-index APIs).
func (b *Buffer) EnsureGlyphs() bool {
	if b.contentType == ContentTypeGlyphs {
		return true
	}
	if b.contentType != ContentTypeInvalid || b.len != 0 {
		return false
	}
	b.contentType = ContentTypeGlyphs
	return true
}

// GuessSegmentProperties fills in unset Direction/Script/Language from
// the buffer's own content (spec §4.5): script from the first
// non-common/inherited character, direction from that script's default
// horizontal direction.
func (b *Buffer) GuessSegmentProperties(scriptOf func(Codepoint) Script, direction func(Script) Direction) {
	if b.Props.Script == ScriptInvalid {
		b.Props.Script = ScriptCommon
		for i := 0; i < b.len; i++ {
			s := scriptOf(b.info[i].Codepoint)
			if s != ScriptCommon && s != ScriptInherited && s != ScriptInvalid {
				b.Props.Script = s
				break
			}
		}
	}
	if b.Props.Direction == DirectionInvalid {
		d := direction(b.Props.Script)
		if !d.IsValid() {
			d = DirectionLTR
		}
		b.Props.Direction = d
	}
	if b.Props.Language == LanguageInvalid {
		b.Props.Language = "und"
	}
}

// Reverse reverses the whole buffer (for converting an RTL-shaped run
// back into presentation order).
func (b *Buffer) Reverse() { b.ReverseRange(0, b.len) }

// ReverseRange reverses items (and, if present, positions) in [start,end).
func (b *Buffer) ReverseRange(start, end int) {
	if start >= end {
		return
	}
	for i, j := start, end-1; i < j; i, j = i+1, j-1 {
		b.info[i], b.info[j] = b.info[j], b.info[i]
	}
	if b.havePositions {
		for i, j := start, end-1; i < j; i, j = i+1, j-1 {
			b.pos[i], b.pos[j] = b.pos[j], b.pos[i]
		}
	}
}

// ReverseClusters reverses cluster groups while preserving intra-cluster
// glyph order (spec §4.5).
func (b *Buffer) ReverseClusters() { b.reverseGroups(sameCluster, false) }

func sameCluster(a, b *GlyphInfo) bool { return a.Cluster == b.Cluster }

func (b *Buffer) reverseGroups(sameGroup func(a, c *GlyphInfo) bool, merge bool) {
	if b.len == 0 {
		return
	}
	start := 0
	for i := 1; i <= b.len; i++ {
		if i == b.len || !sameGroup(&b.info[i-1], &b.info[i]) {
			if merge {
				b.MergeClusters(start, i)
			}
			b.ReverseRange(start, i)
			start = i
		}
	}
	b.Reverse()
}

// MergeClusters unifies the cluster id of every item in [start,end) to
// their minimum (spec §4.5 "merge_clusters"), or — at a non-monotone
// cluster level — degrades to marking the range unsafe-to-break instead,
// since cluster ids there are already free to diverge.
func (b *Buffer) MergeClusters(start, end int) {
	if end-start < 2 {
		return
	}
	if !b.ClusterLevel.IsMonotone() {
		b.UnsafeToBreak(start, end)
		return
	}
	b.spendOps(end - start)
	if !b.successful {
		return
	}

	cluster := b.info[start].Cluster
	for i := start + 1; i < end; i++ {
		if b.info[i].Cluster < cluster {
			cluster = b.info[i].Cluster
		}
	}
	for end < b.len && b.info[end-1].Cluster == b.info[end].Cluster {
		end++
	}
	for b.idx < start && start > 0 && b.info[start-1].Cluster == b.info[start].Cluster {
		start--
	}
	for i := start; i < end; i++ {
		b.info[i].Cluster = cluster
	}
}

// UnsafeToBreak marks [start,end) as context-dependent: reshaping a
// slice that cuts inside this range is not guaranteed to reproduce the
// glyphs a whole-buffer shape would have produced there (spec §4.5).
func (b *Buffer) UnsafeToBreak(start, end int) {
	b.setGlyphFlags(Mask(GlyphFlagUnsafeToBreak|GlyphFlagUnsafeToConcat), start, end)
}

// UnsafeToConcat marks [start,end) unsafe to concatenate across, a
// weaker guarantee than UnsafeToBreak used when two buffers are joined
// rather than one buffer split (spec §4.5, §9 open question 1).
func (b *Buffer) UnsafeToConcat(start, end int) {
	if b.Flags&FlagProduceUnsafeToConcat == 0 {
		return
	}
	b.setGlyphFlags(Mask(GlyphFlagUnsafeToConcat), start, end)
}

func (b *Buffer) setGlyphFlags(mask Mask, start, end int) {
	if end > b.len {
		end = b.len
	}
	if start < 0 {
		start = 0
	}
	for i := start; i < end; i++ {
		b.info[i].Mask |= mask
	}
}

// ResetMasks sets every item's mask to value (used before feature planning).
func (b *Buffer) ResetMasks(mask Mask) {
	for i := 0; i < b.len; i++ {
		b.info[i].Mask = mask
	}
}

// SetMasks ORs value (restricted to mask's bits) into every item whose
// cluster falls in [clusterStart, clusterEnd) — the mechanism feature
// application uses to turn a feature on/off over a character range.
func (b *Buffer) SetMasks(value, mask Mask, clusterStart, clusterEnd uint32) {
	if mask == 0 {
		return
	}
	notMask := ^mask
	value &= mask
	for i := 0; i < b.len; i++ {
		if b.info[i].Cluster >= clusterStart && b.info[i].Cluster < clusterEnd {
			b.info[i].Mask = (b.info[i].Mask & notMask) | value
		}
	}
}

// UpdateDigest rebuilds the Bloom-filter digest over current codepoints/glyphs.
func (b *Buffer) UpdateDigest() {
	b.digest = SetDigest{}
	for i := 0; i < b.len; i++ {
		b.digest.Add(b.info[i].Codepoint)
	}
}

// Digest returns the buffer's current digest.
func (b *Buffer) Digest() SetDigest { return b.digest }

// Enter scopes a shape() call: it resets the serial counter and
// (re)budgets max_ops proportional to length, per spec §4.5's
// "enter/leave — ref-count scoped entry... on enter the buffer's
// max_ops budget is (re)set proportional to length."
func (b *Buffer) Enter() {
	b.serial = 0
	b.scratch = 0
	b.shapingFailed = false

	mul := b.len * maxLenFactor
	if b.len == 0 || mul/maxLenFactor == b.len {
		if v := mul; v > maxLenMin {
			b.maxLen = v
		} else {
			b.maxLen = maxLenMin
		}
	} else {
		b.maxLen = maxLenDefault
	}

	mul = b.len * maxOpsFactor
	if b.len == 0 || mul/maxOpsFactor == b.len {
		if v := mul; v > maxOpsMin {
			b.maxOps = v
		} else {
			b.maxOps = maxOpsMin
		}
	} else {
		b.maxOps = maxOpsDefault
	}
}

// Leave restores the default budgets after a shape() call completes.
func (b *Buffer) Leave() {
	b.maxLen = maxLenDefault
	b.maxOps = maxOpsDefault
	b.serial = 0
}

// NextSerial returns a monotonically increasing (mod-256, never zero)
// serial number, used by lookups to tag glyphs they have already visited
// this pass.
func (b *Buffer) NextSerial() uint8 {
	b.serial++
	if b.serial == 0 {
		b.serial = 1
	}
	return b.serial
}

// SpendOps deducts n from the remaining op budget, flagging
// ShapingFailed (spec §8 S7) once it is exhausted. Shapers must call
// this for every bounded unit of work they perform (lookup application
// steps, contextual backtrack/lookahead walks, VARC recursion edges).
func (b *Buffer) SpendOps(n int) bool { return b.spendOps(n) }

func (b *Buffer) spendOps(n int) bool {
	b.maxOps -= n
	if b.maxOps < 0 {
		b.successful = false
		b.shapingFailed = true
		return false
	}
	return true
}

// --- Two-buffer (info/out_info) rewrite primitives, consumed by GSUB ---

// StartProcessing switches the buffer into GSUB's two-slice mode: idx
// walks info while out_info accumulates the rewritten run.
func (b *Buffer) StartProcessing() {
	b.Enter()
	b.haveOutput = true
	b.havePositions = false
	b.outLen = 0
	if len(b.outInfo) < len(b.info) {
		b.outInfo = make([]GlyphInfo, len(b.info))
	}
	b.idx = 0
}

// StopProcessing leaves GSUB's two-slice mode, swapping out_info into
// info as the new buffer contents and budget-restoring via Leave.
func (b *Buffer) StopProcessing() {
	if b.haveOutput {
		copy(b.info[:b.outLen], b.outInfo[:b.outLen])
		b.len = b.outLen
		b.outInfo = b.info
	}
	b.haveOutput = false
	b.idx = b.len
	b.Leave()
}

// Idx returns the current read cursor into Info() during GSUB processing.
func (b *Buffer) Idx() int { return b.idx }

// SetIdx repositions the read cursor (used by lookahead/backtrack
// matching, which must restore idx after a trial match).
func (b *Buffer) SetIdx(i int) { b.idx = i }

// OutLen returns the number of items written to the output side so far.
func (b *Buffer) OutLen() int { return b.outLen }

// CurInfo returns a pointer to the item currently at idx.
func (b *Buffer) CurInfo() *GlyphInfo { return &b.info[b.idx] }

// InfoAt returns a pointer to the item at i in the (still-unrewritten)
// input slice, for lookahead/backtrack peeking. It returns nil for an
// out-of-range i rather than panicking, since callers walk past the
// end of the buffer routinely while probing context.
func (b *Buffer) InfoAt(i int) *GlyphInfo {
	if i < 0 || i >= b.len {
		return nil
	}
	return &b.info[i]
}

// OutInfoAt returns a pointer to the item at i on the already-written
// output side, or nil if i is out of range. Backtrack matching walks
// this side rather than the input side, since earlier input positions
// have already been rewritten onto it.
func (b *Buffer) OutInfoAt(i int) *GlyphInfo {
	if i < 0 || i >= b.outLen {
		return nil
	}
	return &b.outInfo[i]
}

// NextGlyph copies the current input item to the output side unchanged
// and advances idx by one (spec §4.5 "next_glyph").
func (b *Buffer) NextGlyph() {
	b.ensureOutCap(b.outLen + 1)
	b.outInfo[b.outLen] = b.info[b.idx]
	b.outLen++
	b.idx++
}

// SkipGlyph advances idx without emitting anything, deleting the
// current input item (used for default-ignorables and mark fallback).
func (b *Buffer) SkipGlyph() { b.idx++ }

// ReplaceGlyph overwrites the current input item's codepoint/glyph id
// with g (preserving cluster) and copies it to the output (spec §4.5
// "replace_glyph").
func (b *Buffer) ReplaceGlyph(g Codepoint) {
	b.ensureOutCap(b.outLen + 1)
	info := b.info[b.idx]
	info.Codepoint = g
	info.SetSubstituted()
	b.outInfo[b.outLen] = info
	b.outLen++
	b.idx++
}

// ReplaceGlyphs consumes nIn input items and emits the glyphs in out,
// giving every emitted glyph the min cluster of the consumed run
// (spec §4.5 "replace_glyphs", ligature substitution's core primitive).
// The same cluster is assigned at every ClusterLevel.
func (b *Buffer) ReplaceGlyphs(nIn int, out []Codepoint) {
	b.ensureOutCap(b.outLen + len(out))
	cluster := b.info[b.idx].Cluster
	for i := 1; i < nIn && b.idx+i < b.len; i++ {
		if c := b.info[b.idx+i].Cluster; c < cluster {
			cluster = c
		}
	}
	ligID := b.NextSerial()
	for i, g := range out {
		info := b.info[b.idx]
		info.Codepoint = g
		info.Cluster = cluster
		info.SetSubstituted()
		info.SetLigated()
		info.SetLigID(ligID)
		info.SetLigComp(uint8(i))
		b.outInfo[b.outLen] = info
		b.outLen++
	}
	b.idx += nIn
}

// OutputGlyph appends a brand-new item (not consuming any input) to
// the output side, inheriting the current item's cluster (spec §4.5
// "output_glyph" — used for inserted glyphs like the dotted circle).
func (b *Buffer) OutputGlyph(g Codepoint) {
	b.ensureOutCap(b.outLen + 1)
	cluster := uint32(0)
	if b.idx < b.len {
		cluster = b.info[b.idx].Cluster
	} else if b.len > 0 {
		cluster = b.info[b.len-1].Cluster
	}
	b.outInfo[b.outLen] = GlyphInfo{Codepoint: g, Cluster: cluster}
	b.outLen++
}

func (b *Buffer) ensureOutCap(size int) {
	if size <= len(b.outInfo) {
		return
	}
	grown := make([]GlyphInfo, size+size/2+8)
	copy(grown, b.outInfo[:b.outLen])
	b.outInfo = grown
}

// MarkHavePositions flips on HavePositions after GPOS (or fallback
// positioning) has filled Pos().
func (b *Buffer) MarkHavePositions() { b.havePositions = true }

// Successful reports whether no allocation/budget failure has occurred.
func (b *Buffer) Successful() bool { return b.successful }
