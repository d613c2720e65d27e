package sfnt

import "sort"

// Cmap maps Unicode code points (and, for format 14, variation
// sequences) to glyph ids. Only the subtable formats spec §6 lists as
// supported core tables are implemented: 0, 4, 6, 10, 12, 13, 14.
type Cmap struct {
	segments []cmapSegment // sorted by Start; formats 0/4/6/10/12/13 normalize to this
	uvs      *uvsTable     // format 14, optional
}

type cmapSegment struct {
	start, end uint32
	startGlyph GlyphID
	delta      bool // when true, glyph = codepoint + int16(startGlyph); else glyph = startGlyph + (cp-start)
	constant   bool // format 13: every codepoint in range maps to the same glyph
}

// Cmap returns the best-match parsed cmap table: it prefers a full
// Unicode (platform 3 encoding 10, or platform 0) subtable, then BMP
// (platform 3 encoding 1 / platform 0), matching HarfBuzz's subtable
// selection order closely enough for shaping purposes.
func (f *Face) Cmap() (Cmap, error) { return cachedTable(f, TagCmap, parseCmapTable) }

func parseCmapTable(data []byte) (Cmap, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 4) {
		return Cmap{}, ErrInvalidTable
	}
	numTables, _ := c.U16(2)

	type encRec struct {
		platform, encoding uint16
		offset             int
	}
	var recs []encRec
	for i := 0; i < int(numTables); i++ {
		base := 4 + 8*i
		if !c.CheckRange(base, 8) {
			break
		}
		plat, _ := c.U16(base)
		enc, _ := c.U16(base + 2)
		off, _ := c.U32(base + 4)
		recs = append(recs, encRec{plat, enc, int(off)})
	}

	score := func(plat, enc uint16) int {
		switch {
		case plat == 3 && enc == 10:
			return 5
		case plat == 0 && enc >= 4:
			return 5
		case plat == 3 && enc == 1:
			return 4
		case plat == 0:
			return 3
		case plat == 3 && enc == 0:
			return 2
		case plat == 1 && enc == 0:
			return 1
		default:
			return 0
		}
	}

	best := -1
	bestScore := -1
	var uvsOffset int = -1
	for _, r := range recs {
		if r.platform == 0 && r.encoding == 5 {
			uvsOffset = r.offset
			continue
		}
		if s := score(r.platform, r.encoding); s > bestScore {
			bestScore = s
			best = r.offset
		}
	}

	out := Cmap{}
	if best >= 0 {
		segs, err := parseCmapSubtable(c, best)
		if err == nil {
			out.segments = segs
		}
	}
	if uvsOffset >= 0 {
		out.uvs, _ = parseUVS(c, uvsOffset)
	}
	if out.segments == nil && out.uvs == nil {
		return Cmap{}, ErrInvalidTable
	}
	sort.Slice(out.segments, func(i, j int) bool { return out.segments[i].start < out.segments[j].start })
	return out, nil
}

func parseCmapSubtable(c *Cursor, offset int) ([]cmapSegment, error) {
	format, ok := c.U16(offset)
	if !ok {
		return nil, ErrInvalidTable
	}
	switch format {
	case 0:
		return parseCmap0(c, offset)
	case 4:
		return parseCmap4(c, offset)
	case 6:
		return parseCmap6(c, offset)
	case 10:
		if !c.CheckRange(offset+12, 8) {
			return nil, ErrInvalidTable
		}
		first, _ := c.U32(offset + 12)
		count, _ := c.U32(offset + 16)
		if !c.CheckArray(offset+20, 2, int(count)) {
			return nil, ErrInvalidTable
		}
		var segs []cmapSegment
		for i := 0; i < int(count); i++ {
			if g, _ := c.U16(offset + 20 + 2*i); g != 0 {
				segs = append(segs, cmapSegment{start: first + uint32(i), end: first + uint32(i), startGlyph: g, constant: true})
			}
		}
		return segs, nil
	case 12, 13:
		return parseCmap12(c, offset, format == 13)
	default:
		return nil, ErrInvalidTable
	}
}

func parseCmap0(c *Cursor, base int) ([]cmapSegment, error) {
	if !c.CheckRange(base+6, 256) {
		return nil, ErrInvalidTable
	}
	var segs []cmapSegment
	for cp := 0; cp < 256; cp++ {
		g, _ := c.U8(base + 6 + cp)
		if g != 0 {
			segs = append(segs, cmapSegment{start: uint32(cp), end: uint32(cp), startGlyph: GlyphID(g), constant: true})
		}
	}
	return segs, nil
}

func parseCmap4(c *Cursor, base int) ([]cmapSegment, error) {
	if !c.CheckRange(base+6, 8) {
		return nil, ErrInvalidTable
	}
	segCountX2, _ := c.U16(base + 6)
	segCount := int(segCountX2 / 2)
	endBase := base + 14
	startBase := endBase + int(segCountX2) + 2
	deltaBase := startBase + int(segCountX2)
	rangeBase := deltaBase + int(segCountX2)
	if !c.CheckArray(endBase, 2, segCount) || !c.CheckArray(startBase, 2, segCount) ||
		!c.CheckArray(deltaBase, 2, segCount) || !c.CheckArray(rangeBase, 2, segCount) {
		return nil, ErrInvalidTable
	}
	var segs []cmapSegment
	for i := 0; i < segCount; i++ {
		end, _ := c.U16(endBase + 2*i)
		start, _ := c.U16(startBase + 2*i)
		delta, _ := c.U16(deltaBase + 2*i)
		rangeOff, _ := c.U16(rangeBase + 2*i)
		if start == 0xFFFF && end == 0xFFFF {
			continue
		}
		if rangeOff == 0 {
			segs = append(segs, cmapSegment{start: uint32(start), end: uint32(end), startGlyph: delta, delta: true})
			continue
		}
		for cp := uint32(start); cp <= uint32(end); cp++ {
			glyphAddr := rangeBase + 2*i + int(rangeOff) + 2*int(cp-uint32(start))
			g, ok := c.U16(glyphAddr)
			if !ok || g == 0 {
				continue
			}
			g = uint16((uint32(g) + uint32(delta)) & 0xFFFF)
			segs = append(segs, cmapSegment{start: cp, end: cp, startGlyph: g, constant: true})
		}
	}
	return segs, nil
}

func parseCmap6(c *Cursor, base int) ([]cmapSegment, error) {
	if !c.CheckRange(base+6, 4) {
		return nil, ErrInvalidTable
	}
	first, _ := c.U16(base + 6)
	count, _ := c.U16(base + 8)
	if !c.CheckArray(base+10, 2, int(count)) {
		return nil, ErrInvalidTable
	}
	var segs []cmapSegment
	for i := 0; i < int(count); i++ {
		g, _ := c.U16(base + 10 + 2*i)
		if g != 0 {
			cp := uint32(first) + uint32(i)
			segs = append(segs, cmapSegment{start: cp, end: cp, startGlyph: g, constant: true})
		}
	}
	return segs, nil
}

func parseCmap12(c *Cursor, base int, constant bool) ([]cmapSegment, error) {
	if !c.CheckRange(base+12, 4) {
		return nil, ErrInvalidTable
	}
	numGroups, _ := c.U32(base + 12)
	groupBase := base + 16
	if !c.CheckArray(groupBase, 12, int(numGroups)) {
		return nil, ErrInvalidTable
	}
	segs := make([]cmapSegment, 0, numGroups)
	for i := 0; i < int(numGroups); i++ {
		off := groupBase + 12*i
		start, _ := c.U32(off)
		end, _ := c.U32(off + 4)
		gid, _ := c.U32(off + 8)
		segs = append(segs, cmapSegment{start: start, end: end, startGlyph: GlyphID(gid), constant: constant})
	}
	return segs, nil
}

// Lookup resolves a codepoint to a glyph id via binary search over the
// normalized, sorted segment list.
func (cm Cmap) Lookup(cp uint32) (GlyphID, bool) {
	segs := cm.segments
	i := sort.Search(len(segs), func(i int) bool { return segs[i].end >= cp })
	if i >= len(segs) || segs[i].start > cp {
		return 0, false
	}
	s := segs[i]
	if s.constant {
		return s.startGlyph, true
	}
	if s.delta {
		return GlyphID((cp + uint32(s.startGlyph)) & 0xFFFF), cp+uint32(s.startGlyph) != 0 || s.startGlyph != 0
	}
	return s.startGlyph + GlyphID(cp-s.start), true
}

type uvsTable struct {
	nonDefault map[[2]uint32]GlyphID // [varSelector, baseCP] -> glyph (format 14 non-default UVS mapping)
	defaultRanges []cmapSegment       // ranges where the font's default mapping applies (no override)
}

func parseUVS(c *Cursor, base int) (*uvsTable, error) {
	if !c.CheckRange(base+6, 4) {
		return nil, ErrInvalidTable
	}
	numRecords, _ := c.U32(base + 6)
	t := &uvsTable{nonDefault: map[[2]uint32]GlyphID{}}
	recBase := base + 10
	if !c.CheckArray(recBase, 11, int(numRecords)) {
		return nil, ErrInvalidTable
	}
	for i := 0; i < int(numRecords); i++ {
		off := recBase + 11*i
		vs, _ := c.U24(off)
		nonDefOff, _ := c.U32(off + 7)
		if nonDefOff == 0 {
			continue
		}
		nonDefBase := base + int(nonDefOff)
		if !c.CheckRange(nonDefBase, 4) {
			continue
		}
		numMappings, _ := c.U32(nonDefBase)
		mapBase := nonDefBase + 4
		if !c.CheckArray(mapBase, 5, int(numMappings)) {
			continue
		}
		for j := 0; j < int(numMappings); j++ {
			mo := mapBase + 5*j
			unicode, _ := c.U24(mo)
			gid, _ := c.U16(mo + 3)
			t.nonDefault[[2]uint32{vs, unicode}] = gid
		}
	}
	return t, nil
}

// LookupVariation resolves a (base, variationSelector) pair using the
// cmap format-14 table, returning ok=false when there is no explicit
// non-default mapping (the caller should then fall back to the
// variation-selector-ignore semantic, spec §4.3).
func (cm Cmap) LookupVariation(base, vs uint32) (GlyphID, bool) {
	if cm.uvs == nil {
		return 0, false
	}
	g, ok := cm.uvs.nonDefault[[2]uint32{vs, base}]
	return g, ok
}
