package shaping

import (
	"github.com/textforge/shaping/buffer"
	"github.com/textforge/shaping/sfnt"
)

// GSUB is the parsed 'GSUB' table (spec §4.7): script/feature/lookup
// lists plus lazily-parsed subtables. Lookup types 1-4, 6 (format 3
// only) and 7 (extension) are applied; Context (type 5) and Reverse
// Chaining (type 8) subtables produce no match.
type GSUB struct {
	layoutHeader
	data []byte
}

// ParseGSUB parses a 'GSUB' table.
func ParseGSUB(data []byte) (*GSUB, error) {
	c := sfnt.NewCursor(data)
	h, ok := parseLayoutHeader(c, data)
	if !ok {
		return nil, sfnt.ErrInvalidTable
	}
	return &GSUB{layoutHeader: h, data: data}, nil
}

type gsubSubtable interface {
	apply(ctx *ApplyContext) bool
}

// lookupSubtables lazily parses and returns every subtable of lookup
// index idx, dispatching on GSUB's lookup-type tags.
func (g *GSUB) lookupSubtables(idx int) []gsubSubtable {
	if idx < 0 || idx >= len(g.Lookups) {
		return nil
	}
	lt := g.Lookups[idx]
	c := sfnt.NewCursor(g.data)
	out := make([]gsubSubtable, 0, len(lt.SubtableOffsets))
	for _, off := range lt.SubtableOffsets {
		st := g.parseSubtable(c, off, lt.Type)
		if st != nil {
			out = append(out, st)
		}
	}
	return out
}

func (g *GSUB) parseSubtable(c *sfnt.Cursor, offset int, lookupType uint16) gsubSubtable {
	format, ok := c.U16(offset)
	if !ok {
		return nil
	}
	switch lookupType {
	case 1:
		return parseSingleSubst(c, offset, format)
	case 2:
		return parseMultipleSubst(c, offset)
	case 3:
		return parseAlternateSubst(c, offset)
	case 4:
		return parseLigatureSubst(c, offset)
	case 5:
		return parseContextSubst(g, c, offset, format)
	case 6:
		return parseChainContextSubst(g, c, offset, format)
	case 7: // Extension
		extOff, ok := c.Offset32(offset + 4)
		if !ok {
			return nil
		}
		realType, ok := c.U16(offset + 2)
		if !ok {
			return nil
		}
		return g.parseSubtable(c, offset+extOff, realType)
	default:
		return nil
	}
}

// --- LookupType 1: Single Substitution ---

type singleSubst struct {
	coverage sfnt.Coverage
	delta    int16            // format 1
	subst    map[sfnt.GlyphID]sfnt.GlyphID // format 2
}

func parseSingleSubst(c *sfnt.Cursor, offset int, format uint16) gsubSubtable {
	covOff, ok := c.Offset16(offset + 2)
	if !ok {
		return nil
	}
	cov, ok := sfnt.ParseCoverage(c, offset+covOff)
	if !ok {
		return nil
	}
	switch format {
	case 1:
		delta, ok := c.I16(offset + 4)
		if !ok {
			return nil
		}
		return &singleSubst{coverage: cov, delta: delta}
	case 2:
		count, ok := c.U16(offset + 4)
		if !ok {
			return nil
		}
		glyphs, ok := c.U16Slice(offset+6, int(count))
		if !ok {
			return nil
		}
		m := make(map[sfnt.GlyphID]sfnt.GlyphID, count)
		for i, g := range cov.Glyphs() {
			if i < len(glyphs) {
				m[g] = sfnt.GlyphID(glyphs[i])
			}
		}
		return &singleSubst{coverage: cov, subst: m}
	default:
		return nil
	}
}

func (s *singleSubst) apply(ctx *ApplyContext) bool {
	info := ctx.Buffer.CurInfo()
	g := sfnt.GlyphID(info.Codepoint)
	idx := s.coverage.Index(g)
	if idx < 0 {
		return false
	}
	var out sfnt.GlyphID
	if s.subst != nil {
		var ok bool
		out, ok = s.subst[g]
		if !ok {
			return false
		}
	} else {
		out = sfnt.GlyphID(int32(g) + int32(s.delta))
	}
	ctx.Buffer.ReplaceGlyph(buffer.Codepoint(out))
	return true
}

// --- LookupType 2: Multiple Substitution ---

type multipleSubst struct {
	coverage sfnt.Coverage
	sets     [][]sfnt.GlyphID
}

func parseMultipleSubst(c *sfnt.Cursor, offset int) gsubSubtable {
	covOff, ok := c.Offset16(offset + 2)
	if !ok {
		return nil
	}
	cov, ok := sfnt.ParseCoverage(c, offset+covOff)
	if !ok {
		return nil
	}
	count, ok := c.U16(offset + 4)
	if !ok {
		return nil
	}
	sets := make([][]sfnt.GlyphID, count)
	for i := 0; i < int(count); i++ {
		seqOff, ok := c.Offset16(offset + 6 + 2*i)
		if !ok {
			continue
		}
		seqBase := offset + seqOff
		glyphCount, ok := c.U16(seqBase)
		if !ok {
			continue
		}
		glyphs, ok := c.U16Slice(seqBase+2, int(glyphCount))
		if !ok {
			continue
		}
		set := make([]sfnt.GlyphID, glyphCount)
		for j, g := range glyphs {
			set[j] = sfnt.GlyphID(g)
		}
		sets[i] = set
	}
	return &multipleSubst{coverage: cov, sets: sets}
}

func (m *multipleSubst) apply(ctx *ApplyContext) bool {
	info := ctx.Buffer.CurInfo()
	idx := m.coverage.Index(sfnt.GlyphID(info.Codepoint))
	if idx < 0 || idx >= len(m.sets) {
		return false
	}
	out := make([]buffer.Codepoint, len(m.sets[idx]))
	for i, g := range m.sets[idx] {
		out[i] = buffer.Codepoint(g)
	}
	ctx.Buffer.ReplaceGlyphs(1, out)
	return true
}

// --- LookupType 3: Alternate Substitution ---

type alternateSubst struct {
	coverage sfnt.Coverage
	sets     [][]sfnt.GlyphID
}

func parseAlternateSubst(c *sfnt.Cursor, offset int) gsubSubtable {
	covOff, ok := c.Offset16(offset + 2)
	if !ok {
		return nil
	}
	cov, ok := sfnt.ParseCoverage(c, offset+covOff)
	if !ok {
		return nil
	}
	count, ok := c.U16(offset + 4)
	if !ok {
		return nil
	}
	sets := make([][]sfnt.GlyphID, count)
	for i := 0; i < int(count); i++ {
		setOff, ok := c.Offset16(offset + 6 + 2*i)
		if !ok {
			continue
		}
		setBase := offset + setOff
		altCount, ok := c.U16(setBase)
		if !ok {
			continue
		}
		alts, ok := c.U16Slice(setBase+2, int(altCount))
		if !ok {
			continue
		}
		set := make([]sfnt.GlyphID, altCount)
		for j, g := range alts {
			set[j] = sfnt.GlyphID(g)
		}
		sets[i] = set
	}
	return &alternateSubst{coverage: cov, sets: sets}
}

// apply picks the alternate ctx.AltIndex names (1-based, spec §4.8
// "picks an alternate by 1-based index encoded in the feature mask");
// an unset or out-of-range index falls back to the first alternate,
// matching the OpenType spec's own guidance for consumers that don't
// support per-glyph alternate choice.
func (a *alternateSubst) apply(ctx *ApplyContext) bool {
	info := ctx.Buffer.CurInfo()
	idx := a.coverage.Index(sfnt.GlyphID(info.Codepoint))
	if idx < 0 || idx >= len(a.sets) || len(a.sets[idx]) == 0 {
		return false
	}
	alts := a.sets[idx]
	choice := 0
	if ctx.AltIndex >= 1 && int(ctx.AltIndex) <= len(alts) {
		choice = int(ctx.AltIndex) - 1
	}
	ctx.Buffer.ReplaceGlyph(buffer.Codepoint(alts[choice]))
	return true
}

// --- LookupType 4: Ligature Substitution ---

type ligature struct {
	glyph      sfnt.GlyphID
	components []sfnt.GlyphID // components[0] is the 2nd glyph of the ligature
}

type ligatureSubst struct {
	coverage sfnt.Coverage
	sets     [][]ligature
}

func parseLigatureSubst(c *sfnt.Cursor, offset int) gsubSubtable {
	covOff, ok := c.Offset16(offset + 2)
	if !ok {
		return nil
	}
	cov, ok := sfnt.ParseCoverage(c, offset+covOff)
	if !ok {
		return nil
	}
	count, ok := c.U16(offset + 4)
	if !ok {
		return nil
	}
	sets := make([][]ligature, count)
	for i := 0; i < int(count); i++ {
		setOff, ok := c.Offset16(offset + 6 + 2*i)
		if !ok {
			continue
		}
		setBase := offset + setOff
		ligCount, ok := c.U16(setBase)
		if !ok {
			continue
		}
		ligs := make([]ligature, 0, ligCount)
		for j := 0; j < int(ligCount); j++ {
			ligOff, ok := c.Offset16(setBase + 2 + 2*j)
			if !ok {
				continue
			}
			ligBase := setBase + ligOff
			glyph, ok := c.U16(ligBase)
			compCount, ok2 := c.U16(ligBase + 2)
			if !ok || !ok2 || compCount == 0 {
				continue
			}
			comps, ok := c.U16Slice(ligBase+4, int(compCount)-1)
			if !ok {
				continue
			}
			lig := ligature{glyph: sfnt.GlyphID(glyph), components: make([]sfnt.GlyphID, len(comps))}
			for k, g := range comps {
				lig.components[k] = sfnt.GlyphID(g)
			}
			ligs = append(ligs, lig)
		}
		sets[i] = ligs
	}
	return &ligatureSubst{coverage: cov, sets: sets}
}

func (l *ligatureSubst) apply(ctx *ApplyContext) bool {
	info := ctx.Buffer.CurInfo()
	idx := l.coverage.Index(sfnt.GlyphID(info.Codepoint))
	if idx < 0 || idx >= len(l.sets) {
		return false
	}
	it := ctx.newSkipIterator(ctx.Buffer.Len())
	for _, lig := range l.sets[idx] {
		pos := ctx.Buffer.Idx()
		matched := true
		for _, comp := range lig.components {
			next := it.next(pos)
			if next < 0 {
				matched = false
				break
			}
			ni := ctx.Buffer.InfoAt(next)
			if ni == nil || sfnt.GlyphID(ni.Codepoint) != comp {
				matched = false
				break
			}
			pos = next
		}
		if !matched {
			continue
		}
		nIn := pos - ctx.Buffer.Idx() + 1
		if !ctx.Buffer.SpendOps(nIn) {
			return false
		}
		ctx.Buffer.ReplaceGlyphs(nIn, []buffer.Codepoint{buffer.Codepoint(lig.glyph)})
		return true
	}
	return false
}

// --- LookupType 5/6: Context / Chaining Context Substitution ---
//
// Only coverage-based format 3 of Chaining Context (type 6) is
// implemented. Type 6 formats 1 and 2, and Context Substitution
// (type 5) in every format, are left unparsed here and produce no
// match.

type chainContext struct {
	backtrack []sfnt.Coverage
	input     []sfnt.Coverage
	lookahead []sfnt.Coverage
	lookups   []chainLookupRecord
}

type chainLookupRecord struct {
	sequenceIndex int
	lookupIndex   uint16
}

func parseContextSubst(g *GSUB, c *sfnt.Cursor, offset int, format uint16) gsubSubtable {
	// Context Substitution is not parsed in any format (see the block
	// comment above chainContext); every subtable yields no match.
	return nil
}

func parseChainContextSubst(g *GSUB, c *sfnt.Cursor, offset int, format uint16) gsubSubtable {
	if format != 3 {
		return nil
	}
	pos := offset + 2
	backCount, ok := c.U16(pos)
	if !ok {
		return nil
	}
	pos += 2
	backtrack := make([]sfnt.Coverage, backCount)
	for i := 0; i < int(backCount); i++ {
		off, ok := c.Offset16(pos)
		pos += 2
		if !ok {
			return nil
		}
		cov, ok := sfnt.ParseCoverage(c, offset+off)
		if !ok {
			return nil
		}
		backtrack[i] = cov
	}
	inputCount, ok := c.U16(pos)
	if !ok {
		return nil
	}
	pos += 2
	input := make([]sfnt.Coverage, inputCount)
	for i := 0; i < int(inputCount); i++ {
		off, ok := c.Offset16(pos)
		pos += 2
		if !ok {
			return nil
		}
		cov, ok := sfnt.ParseCoverage(c, offset+off)
		if !ok {
			return nil
		}
		input[i] = cov
	}
	lookCount, ok := c.U16(pos)
	if !ok {
		return nil
	}
	pos += 2
	lookahead := make([]sfnt.Coverage, lookCount)
	for i := 0; i < int(lookCount); i++ {
		off, ok := c.Offset16(pos)
		pos += 2
		if !ok {
			return nil
		}
		cov, ok := sfnt.ParseCoverage(c, offset+off)
		if !ok {
			return nil
		}
		lookahead[i] = cov
	}
	recCount, ok := c.U16(pos)
	if !ok {
		return nil
	}
	pos += 2
	recs := make([]chainLookupRecord, recCount)
	for i := 0; i < int(recCount); i++ {
		seqIdx, ok := c.U16(pos)
		lookIdx, ok2 := c.U16(pos + 2)
		pos += 4
		if !ok || !ok2 {
			return nil
		}
		recs[i] = chainLookupRecord{sequenceIndex: int(seqIdx), lookupIndex: lookIdx}
	}
	return &gsubChainContext{chainContext{backtrack, input, lookahead, recs}, g}
}

type gsubChainContext struct {
	chainContext
	gsub *GSUB
}

// apply matches the chain-context rule at the buffer's current
// position. On a failed match it marks [start, farthest examined] as
// unsafe to concatenate across (spec §9 open question 1): more text
// appended right after a buffer boundary in that range could complete
// a match this attempt only saw half of.
func (cc *gsubChainContext) apply(ctx *ApplyContext) (matched bool) {
	if len(cc.input) == 0 {
		return false
	}
	info := ctx.Buffer.CurInfo()
	if cc.input[0].Index(sfnt.GlyphID(info.Codepoint)) < 0 {
		return false
	}
	it := ctx.newSkipIterator(ctx.Buffer.Len())
	start := ctx.Buffer.Idx()
	defer func() {
		if !matched && it.farthest > start {
			ctx.Buffer.UnsafeToConcat(start, it.farthest+1)
		}
	}()
	matchPositions := []int{start}
	pos := start
	for i := 1; i < len(cc.input); i++ {
		next := it.next(pos)
		if next < 0 {
			return false
		}
		ni := ctx.Buffer.InfoAt(next)
		if ni == nil || cc.input[i].Index(sfnt.GlyphID(ni.Codepoint)) < 0 {
			return false
		}
		matchPositions = append(matchPositions, next)
		pos = next
	}
	// lookahead
	laPos := pos
	for _, cov := range cc.lookahead {
		next := it.next(laPos)
		if next < 0 {
			return false
		}
		ni := ctx.Buffer.InfoAt(next)
		if ni == nil || cov.Index(sfnt.GlyphID(ni.Codepoint)) < 0 {
			return false
		}
		laPos = next
	}
	// backtrack (walk output side backward from start)
	btPos := ctx.Buffer.OutLen()
	for _, cov := range cc.backtrack {
		prev := it.prev(btPos)
		if prev < 0 {
			return false
		}
		pi := ctx.Buffer.OutInfoAt(prev)
		if pi == nil || cov.Index(sfnt.GlyphID(pi.Codepoint)) < 0 {
			return false
		}
		btPos = prev
	}

	if !ctx.Buffer.SpendOps(len(matchPositions)) {
		return false
	}
	for _, rec := range cc.lookups {
		if rec.sequenceIndex < 0 || rec.sequenceIndex >= len(matchPositions) {
			continue
		}
		ctx.Buffer.SetIdx(matchPositions[rec.sequenceIndex])
		ctx.recurseLookup(rec.lookupIndex)
	}
	ctx.Buffer.SetIdx(matchPositions[len(matchPositions)-1] + 1)
	return true
}

// Apply runs lookupIndex once at the buffer's current position,
// dispatching to the right subtable type and honoring the skip
// iterator via ApplyContext. It is the function GSUB feature
// application and recursive lookup records both call into.
func (g *GSUB) Apply(ctx *ApplyContext, lookupIndex int) bool {
	if lookupIndex < 0 || lookupIndex >= len(g.Lookups) {
		return false
	}
	lt := g.Lookups[lookupIndex]
	ctx.LookupFlag = lt.Flag
	ctx.MarkFilteringSet = lt.MarkFilteringSet
	if ctx.shouldSkip(ctx.Buffer.Idx()) {
		return false
	}
	for _, st := range g.lookupSubtables(lookupIndex) {
		if st.apply(ctx) {
			return true
		}
	}
	return false
}
