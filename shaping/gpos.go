package shaping

import (
	"github.com/textforge/shaping/buffer"
	"github.com/textforge/shaping/sfnt"
)

// GPOS is the parsed 'GPOS' table (spec §4.7): script/feature/lookup
// lists plus lazily-parsed subtables of the positioning lookup types
// single, pair, cursive, mark-to-base, mark-to-mark and extension.
// Mark-to-ligature and (chained) contextual positioning are not
// implemented.
type GPOS struct {
	layoutHeader
	data []byte
}

// ParseGPOS parses a 'GPOS' table.
func ParseGPOS(data []byte) (*GPOS, error) {
	c := sfnt.NewCursor(data)
	h, ok := parseLayoutHeader(c, data)
	if !ok {
		return nil, sfnt.ErrInvalidTable
	}
	return &GPOS{layoutHeader: h, data: data}, nil
}

type gposSubtable interface {
	apply(ctx *ApplyContext) bool
}

func (g *GPOS) lookupSubtables(idx int) []gposSubtable {
	if idx < 0 || idx >= len(g.Lookups) {
		return nil
	}
	lt := g.Lookups[idx]
	c := sfnt.NewCursor(g.data)
	out := make([]gposSubtable, 0, len(lt.SubtableOffsets))
	for _, off := range lt.SubtableOffsets {
		st := g.parseSubtable(c, off, lt.Type)
		if st != nil {
			out = append(out, st)
		}
	}
	return out
}

func (g *GPOS) parseSubtable(c *sfnt.Cursor, offset int, lookupType uint16) gposSubtable {
	switch lookupType {
	case 1:
		return parseSingleAdjust(c, offset)
	case 2:
		return parsePairAdjust(c, offset)
	case 3:
		return parseCursivePos(c, offset)
	case 4:
		return parseMarkToBase(c, offset)
	case 6: // MarkToMark: same attachment-list shape as MarkToBase
		return parseMarkToBase(c, offset)
	case 9: // Extension
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
		// MarkToLigature (5) attachment and contextual positioning
		// (7/8) are not implemented: component-indexed ligature mark
		// attachment and context/chain-context GPOS rules are a much
		// smaller fraction of real-world fonts than the lookup types
		// above, which already cover kerning, single/pair adjustment,
		// cursive joining and the two mark-attachment kinds.
		return nil
	}
}

// attachType values tag GlyphPosition.AttachType so postprocessing
// knows how to interpret AttachChain (spec §4.8 mark/cursive
// positioning details).
const (
	attachTypeMark     uint8 = 1 // mark-to-base/mark-to-mark: AttachChain stores a delta to fold into the parent via propagateAttachmentOffsets
	attachTypeFallback uint8 = 2 // fallbackMarkPosition already wrote absolute offsets; never propagated
	attachTypeCursive  uint8 = 3 // cursive attachment: AttachChain stores a delta to fold into the parent via propagateAttachmentOffsets
)

// --- LookupType 1: Single Adjustment ---

type singleAdjust struct {
	coverage sfnt.Coverage
	format   valueFormat
	value    valueRecord   // format 1: one shared record
	values   []valueRecord // format 2: one per covered glyph
}

func parseSingleAdjust(c *sfnt.Cursor, offset int) gposSubtable {
	format, ok := c.U16(offset)
	if !ok {
		return nil
	}
	covOff, ok := c.Offset16(offset + 2)
	if !ok {
		return nil
	}
	cov, ok := sfnt.ParseCoverage(c, offset+covOff)
	if !ok {
		return nil
	}
	vf, ok := c.U16(offset + 4)
	if !ok {
		return nil
	}
	switch format {
	case 1:
		vr, ok := parseValueRecord(c, offset+6, valueFormat(vf))
		if !ok {
			return nil
		}
		return &singleAdjust{coverage: cov, format: valueFormat(vf), value: vr}
	case 2:
		count, ok := c.U16(offset + 6)
		if !ok {
			return nil
		}
		size := valueFormat(vf).size()
		values := make([]valueRecord, count)
		for i := 0; i < int(count); i++ {
			vr, ok := parseValueRecord(c, offset+8+i*size, valueFormat(vf))
			if !ok {
				return nil
			}
			values[i] = vr
		}
		return &singleAdjust{coverage: cov, format: valueFormat(vf), values: values}
	default:
		return nil
	}
}

func (s *singleAdjust) apply(ctx *ApplyContext) bool {
	info := ctx.Buffer.CurInfo()
	idx := s.coverage.Index(sfnt.GlyphID(info.Codepoint))
	if idx < 0 {
		return false
	}
	var vr valueRecord
	if s.values != nil {
		if idx >= len(s.values) {
			return false
		}
		vr = s.values[idx]
	} else {
		vr = s.value
	}
	pos := &ctx.Buffer.Pos()[ctx.Buffer.Idx()]
	vr.apply(pos)
	ctx.Buffer.SetIdx(ctx.Buffer.Idx() + 1)
	return true
}

// --- LookupType 2: Pair Adjustment ---

type pairAdjust struct {
	coverage sfnt.Coverage
	vf1, vf2 valueFormat

	// format 1
	pairSets [][]pairValue
	// format 2
	classDef1, classDef2 sfnt.ClassDef
	classCount1, classCount2 int
	classPairs               []pairValue // classCount1*classCount2, row-major
	isFormat2                bool
}

type pairValue struct {
	secondGlyph sfnt.GlyphID // only meaningful for format 1
	v1, v2      valueRecord
}

func parsePairAdjust(c *sfnt.Cursor, offset int) gposSubtable {
	format, ok := c.U16(offset)
	if !ok {
		return nil
	}
	covOff, ok := c.Offset16(offset + 2)
	if !ok {
		return nil
	}
	cov, ok := sfnt.ParseCoverage(c, offset+covOff)
	if !ok {
		return nil
	}
	vf1raw, ok := c.U16(offset + 4)
	vf2raw, ok2 := c.U16(offset + 6)
	if !ok || !ok2 {
		return nil
	}
	vf1, vf2 := valueFormat(vf1raw), valueFormat(vf2raw)
	switch format {
	case 1:
		count, ok := c.U16(offset + 8)
		if !ok {
			return nil
		}
		sets := make([][]pairValue, count)
		recSize := 2 + vf1.size() + vf2.size()
		for i := 0; i < int(count); i++ {
			setOff, ok := c.Offset16(offset + 10 + 2*i)
			if !ok {
				continue
			}
			setBase := offset + setOff
			pairCount, ok := c.U16(setBase)
			if !ok {
				continue
			}
			pairs := make([]pairValue, 0, pairCount)
			for j := 0; j < int(pairCount); j++ {
				recBase := setBase + 2 + j*recSize
				g2, ok := c.U16(recBase)
				if !ok {
					continue
				}
				v1, ok1 := parseValueRecord(c, recBase+2, vf1)
				v2, ok2 := parseValueRecord(c, recBase+2+vf1.size(), vf2)
				if !ok1 || !ok2 {
					continue
				}
				pairs = append(pairs, pairValue{secondGlyph: sfnt.GlyphID(g2), v1: v1, v2: v2})
			}
			sets[i] = pairs
		}
		return &pairAdjust{coverage: cov, vf1: vf1, vf2: vf2, pairSets: sets}
	case 2:
		cd1Off, ok := c.Offset16(offset + 8)
		cd2Off, ok2 := c.Offset16(offset + 10)
		class1Count, ok3 := c.U16(offset + 12)
		class2Count, ok4 := c.U16(offset + 14)
		if !ok || !ok2 || !ok3 || !ok4 {
			return nil
		}
		cd1, ok := sfnt.ParseClassDef(c, offset+cd1Off)
		cd2, ok2 := sfnt.ParseClassDef(c, offset+cd2Off)
		if !ok || !ok2 {
			return nil
		}
		recSize := vf1.size() + vf2.size()
		pairs := make([]pairValue, int(class1Count)*int(class2Count))
		base := offset + 16
		for i := range pairs {
			v1, ok1 := parseValueRecord(c, base+i*recSize, vf1)
			v2, ok2 := parseValueRecord(c, base+i*recSize+vf1.size(), vf2)
			if !ok1 || !ok2 {
				continue
			}
			pairs[i] = pairValue{v1: v1, v2: v2}
		}
		return &pairAdjust{
			coverage: cov, vf1: vf1, vf2: vf2, isFormat2: true,
			classDef1: cd1, classDef2: cd2,
			classCount1: int(class1Count), classCount2: int(class2Count),
			classPairs: pairs,
		}
	default:
		return nil
	}
}

func (p *pairAdjust) apply(ctx *ApplyContext) bool {
	info := ctx.Buffer.CurInfo()
	g1 := sfnt.GlyphID(info.Codepoint)
	if p.coverage.Index(g1) < 0 {
		return false
	}
	it := ctx.newSkipIterator(ctx.Buffer.Len())
	next := it.next(ctx.Buffer.Idx())
	if next < 0 {
		return false
	}
	ni := ctx.Buffer.InfoAt(next)
	if ni == nil {
		return false
	}
	g2 := sfnt.GlyphID(ni.Codepoint)

	var v1, v2 valueRecord
	if p.isFormat2 {
		c1 := int(p.classDef1.Class(g1))
		c2 := int(p.classDef2.Class(g2))
		if c1 >= p.classCount1 || c2 >= p.classCount2 {
			return false
		}
		pv := p.classPairs[c1*p.classCount2+c2]
		v1, v2 = pv.v1, pv.v2
	} else {
		idx := p.coverage.Index(g1)
		if idx < 0 || idx >= len(p.pairSets) {
			return false
		}
		found := false
		for _, pv := range p.pairSets[idx] {
			if pv.secondGlyph == g2 {
				v1, v2 = pv.v1, pv.v2
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	positions := ctx.Buffer.Pos()
	v1.apply(&positions[ctx.Buffer.Idx()])
	v2.apply(&positions[next])
	advance := 1
	if v2 != (valueRecord{}) {
		advance = next - ctx.Buffer.Idx() + 1
	}
	ctx.Buffer.SetIdx(ctx.Buffer.Idx() + advance)
	return true
}

// --- LookupType 4/6: Mark-to-Base / Mark-to-Mark Attachment ---

type anchor struct{ x, y int16 }

func parseAnchor(c *sfnt.Cursor, offset int) (anchor, bool) {
	format, ok := c.U16(offset)
	if !ok {
		return anchor{}, false
	}
	x, ok1 := c.I16(offset + 2)
	y, ok2 := c.I16(offset + 4)
	if !ok1 || !ok2 {
		return anchor{}, false
	}
	_ = format // contour-point (format 2) and device (format 3) anchors round to base x,y
	return anchor{x, y}, true
}

type markRecord struct {
	class  uint16
	anchor anchor
}

type baseRecord struct {
	anchors []anchor // indexed by mark class; zero-value if absent
}

type markToBase struct {
	markCoverage sfnt.Coverage
	baseCoverage sfnt.Coverage
	classCount   int
	marks        []markRecord
	bases        []baseRecord
}

func parseMarkToBase(c *sfnt.Cursor, offset int) gposSubtable {
	format, ok := c.U16(offset)
	if !ok || format != 1 {
		return nil
	}
	markCovOff, ok1 := c.Offset16(offset + 2)
	baseCovOff, ok2 := c.Offset16(offset + 4)
	classCount, ok3 := c.U16(offset + 6)
	markArrayOff, ok4 := c.Offset16(offset + 8)
	baseArrayOff, ok5 := c.Offset16(offset + 10)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil
	}
	markCov, ok := sfnt.ParseCoverage(c, offset+markCovOff)
	if !ok {
		return nil
	}
	baseCov, ok := sfnt.ParseCoverage(c, offset+baseCovOff)
	if !ok {
		return nil
	}

	markArrayBase := offset + markArrayOff
	markCount, ok := c.U16(markArrayBase)
	if !ok {
		return nil
	}
	marks := make([]markRecord, markCount)
	for i := 0; i < int(markCount); i++ {
		recBase := markArrayBase + 2 + 4*i
		class, ok1 := c.U16(recBase)
		ancOff, ok2 := c.Offset16(recBase + 2)
		if !ok1 || !ok2 {
			continue
		}
		anc, ok := parseAnchor(c, markArrayBase+ancOff)
		if !ok {
			continue
		}
		marks[i] = markRecord{class: class, anchor: anc}
	}

	baseArrayBase := offset + baseArrayOff
	baseCount, ok := c.U16(baseArrayBase)
	if !ok {
		return nil
	}
	bases := make([]baseRecord, baseCount)
	for i := 0; i < int(baseCount); i++ {
		recBase := baseArrayBase + 2 + 2*int(classCount)*i
		anchors := make([]anchor, classCount)
		for cl := 0; cl < int(classCount); cl++ {
			ancOff, ok := c.Offset16(recBase + 2*cl)
			if !ok || ancOff == 0 {
				continue
			}
			anc, ok := parseAnchor(c, baseArrayBase+ancOff)
			if ok {
				anchors[cl] = anc
			}
		}
		bases[i] = baseRecord{anchors: anchors}
	}

	return &markToBase{markCoverage: markCov, baseCoverage: baseCov, classCount: int(classCount), marks: marks, bases: bases}
}

func (m *markToBase) apply(ctx *ApplyContext) bool {
	info := ctx.Buffer.CurInfo()
	markIdx := m.markCoverage.Index(sfnt.GlyphID(info.Codepoint))
	if markIdx < 0 || markIdx >= len(m.marks) {
		return false
	}
	it := ctx.newSkipIterator(ctx.Buffer.Len())
	basePos := it.prevBase(ctx.Buffer.Idx())
	if basePos < 0 {
		return false
	}
	bi := ctx.Buffer.InfoAt(basePos)
	if bi == nil {
		return false
	}
	baseIdx := m.baseCoverage.Index(sfnt.GlyphID(bi.Codepoint))
	if baseIdx < 0 || baseIdx >= len(m.bases) {
		return false
	}
	mr := m.marks[markIdx]
	if int(mr.class) >= len(m.bases[baseIdx].anchors) {
		return false
	}
	ba := m.bases[baseIdx].anchors[mr.class]

	positions := ctx.Buffer.Pos()
	markPos := &positions[ctx.Buffer.Idx()]
	markPos.XOffset = int32(ba.x) - int32(mr.anchor.x)
	markPos.YOffset = int32(ba.y) - int32(mr.anchor.y)
	markPos.SetAttachType(attachTypeMark)
	markPos.SetAttachChain(int16(basePos - ctx.Buffer.Idx()))
	ctx.Buffer.SetIdx(ctx.Buffer.Idx() + 1)
	return true
}

// --- LookupType 3: Cursive Attachment ---

// entryExitRecord holds a glyph's optional entry and exit anchors
// (either may legitimately be absent: an initial-form glyph has no
// entry anchor, a final-form glyph has no exit anchor).
type entryExitRecord struct {
	hasEntry bool
	entry    anchor
	hasExit  bool
	exit     anchor
}

type cursivePos struct {
	coverage sfnt.Coverage
	records  []entryExitRecord
}

func parseCursivePos(c *sfnt.Cursor, offset int) gposSubtable {
	format, ok := c.U16(offset)
	if !ok || format != 1 {
		return nil
	}
	covOff, ok1 := c.Offset16(offset + 2)
	count, ok2 := c.U16(offset + 4)
	if !ok1 || !ok2 {
		return nil
	}
	cov, ok := sfnt.ParseCoverage(c, offset+covOff)
	if !ok {
		return nil
	}
	records := make([]entryExitRecord, count)
	for i := 0; i < int(count); i++ {
		recBase := offset + 6 + 4*i
		var rec entryExitRecord
		if entryOff, ok := c.Offset16(recBase); ok {
			if anc, ok := parseAnchor(c, offset+entryOff); ok {
				rec.hasEntry, rec.entry = true, anc
			}
		}
		if exitOff, ok := c.Offset16(recBase + 2); ok {
			if anc, ok := parseAnchor(c, offset+exitOff); ok {
				rec.hasExit, rec.exit = true, anc
			}
		}
		records[i] = rec
	}
	return &cursivePos{coverage: cov, records: records}
}

// apply links this glyph's entry anchor to the nearest preceding
// (lookup-flag-filtered) glyph's exit anchor: it slides the two
// glyphs' advances so the anchors coincide along the writing
// direction, then records only the local cross-direction offset delta
// between the two anchors — not the preceding glyph's own (possibly
// still-relative) position — so that propagateAttachmentOffsets can
// fold whole chains in one pass after every GPOS lookup has run (spec
// §4.7 step 8, §4.8 "Cursive"). LookupFlagRightToLeft decides which of
// the pair is the attaching child, matching the OpenType spec's own
// cursive-attachment lookup-flag semantics. This does not reimplement
// reverse_cursive_minor_offset's chain-reversal for a child that was
// already attached elsewhere; a glyph cursively attached twice keeps
// its first attachment.
func (cp *cursivePos) apply(ctx *ApplyContext) bool {
	j := ctx.Buffer.Idx()
	info := ctx.Buffer.InfoAt(j)
	if info == nil {
		return false
	}
	thisIdx := cp.coverage.Index(sfnt.GlyphID(info.Codepoint))
	if thisIdx < 0 || thisIdx >= len(cp.records) || !cp.records[thisIdx].hasEntry {
		return false
	}
	it := ctx.newSkipIterator(ctx.Buffer.Len())
	i := it.prev(j)
	if i < 0 {
		return false
	}
	pi := ctx.Buffer.InfoAt(i)
	if pi == nil {
		return false
	}
	prevCovIdx := cp.coverage.Index(sfnt.GlyphID(pi.Codepoint))
	if prevCovIdx < 0 || prevCovIdx >= len(cp.records) || !cp.records[prevCovIdx].hasExit {
		return false
	}
	entry := cp.records[thisIdx].entry
	exit := cp.records[prevCovIdx].exit

	positions := ctx.Buffer.Pos()
	switch ctx.Direction {
	case buffer.DirectionLTR:
		positions[i].XAdvance = int32(exit.x) + positions[i].XOffset
		d := int32(entry.x) + positions[j].XOffset
		positions[j].XAdvance -= d
		positions[j].XOffset -= d
	case buffer.DirectionRTL:
		d := int32(exit.x) + positions[i].XOffset
		positions[i].XAdvance -= d
		positions[i].XOffset -= d
		positions[j].XAdvance = int32(entry.x) + positions[j].XOffset
	case buffer.DirectionTTB:
		positions[i].YAdvance = int32(exit.y) + positions[i].YOffset
		d := int32(entry.y) + positions[j].YOffset
		positions[j].YAdvance -= d
		positions[j].YOffset -= d
	case buffer.DirectionBTT:
		d := int32(exit.y) + positions[i].YOffset
		positions[i].YAdvance -= d
		positions[i].YOffset -= d
		positions[j].YAdvance = int32(entry.y)
	}

	child, parent := j, i
	xOffset := int32(entry.x) - int32(exit.x)
	yOffset := int32(entry.y) - int32(exit.y)
	if ctx.LookupFlag&LookupFlagRightToLeft == 0 {
		child, parent = parent, child
		xOffset, yOffset = -xOffset, -yOffset
	}
	if ctx.Direction.IsHorizontal() {
		positions[child].YOffset = yOffset
	} else {
		positions[child].XOffset = xOffset
	}
	positions[child].SetAttachType(attachTypeCursive)
	positions[child].SetAttachChain(int16(parent - child))

	ctx.Buffer.SetIdx(j + 1)
	return true
}

// prevBase walks backward (on the input side, since mark-to-base runs
// during the forward input==output GPOS pass) to the nearest preceding
// base glyph this lookup does not ignore.
func (it *skipIterator) prevBase(pos int) int {
	i := pos - 1
	for i >= 0 {
		info := it.ctx.Buffer.InfoAt(i)
		if info != nil && it.ctx.checkGlyphProperty(info) {
			return i
		}
		i--
	}
	return -1
}

// Apply runs lookupIndex once at the buffer's current position.
func (g *GPOS) Apply(ctx *ApplyContext, lookupIndex int) bool {
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
			ctx.Buffer.MarkHavePositions()
			return true
		}
	}
	return false
}
