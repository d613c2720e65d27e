package sfnt

// Head holds the subset of the 'head' table the shaping core needs.
type Head struct {
	UnitsPerEm         uint16
	IndexToLocFormat   int16 // 0 = short loca, 1 = long loca
	FontRevision       uint32
	MacStyle           uint16
}

// Head returns the parsed 'head' table.
func (f *Face) Head() (Head, error) {
	return cachedTable(f, TagHead, parseHead)
}

func parseHead(data []byte) (Head, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 54) {
		return Head{}, ErrInvalidTable
	}
	rev, _ := c.U32(4)
	upem, _ := c.U16(18)
	style, _ := c.U16(44)
	locFmt, _ := c.I16(50)
	return Head{UnitsPerEm: upem, IndexToLocFormat: locFmt, FontRevision: rev, MacStyle: style}, nil
}

// Hhea holds the subset of 'hhea' needed to drive hmtx.
type Hhea struct {
	Ascender         int16
	Descender        int16
	LineGap          int16
	NumberOfHMetrics uint16
}

func (f *Face) Hhea() (Hhea, error) { return cachedTable(f, TagHhea, parseHhea) }

func parseHhea(data []byte) (Hhea, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 36) {
		return Hhea{}, ErrInvalidTable
	}
	asc, _ := c.I16(4)
	desc, _ := c.I16(6)
	gap, _ := c.I16(8)
	n, _ := c.U16(34)
	return Hhea{Ascender: asc, Descender: desc, LineGap: gap, NumberOfHMetrics: n}, nil
}

// Vhea mirrors Hhea for vertical layout.
type Vhea struct {
	Ascender         int16
	Descender        int16
	LineGap          int16
	NumberOfVMetrics uint16
}

func (f *Face) Vhea() (Vhea, error) { return cachedTable(f, TagVhea, parseVhea) }

func parseVhea(data []byte) (Vhea, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 36) {
		return Vhea{}, ErrInvalidTable
	}
	asc, _ := c.I16(4)
	desc, _ := c.I16(6)
	gap, _ := c.I16(8)
	n, _ := c.U16(34)
	return Vhea{Ascender: asc, Descender: desc, LineGap: gap, NumberOfVMetrics: n}, nil
}

// LongMetric is a single (advance, sideBearing) pair as stored in hmtx/vmtx.
type LongMetric struct {
	Advance      uint16
	SideBearing  int16
}

// Mtx is the parsed hmtx or vmtx table: a prefix of explicit
// (advance, bearing) pairs followed by a run of bearing-only entries
// that all share the last explicit advance (OpenType §hmtx).
type Mtx struct {
	metrics       []LongMetric
	trailingSB    []int16
	lastAdvance   uint16
	numGlyphs     int
}

func parseMtx(data []byte, numHMetrics, numGlyphs int) (Mtx, error) {
	c := NewCursor(data)
	if numHMetrics < 0 || numGlyphs < numHMetrics {
		return Mtx{}, ErrInvalidTable
	}
	if !c.CheckArray(0, 4, numHMetrics) {
		return Mtx{}, ErrInvalidTable
	}
	metrics := make([]LongMetric, numHMetrics)
	for i := 0; i < numHMetrics; i++ {
		adv, _ := c.U16(4 * i)
		sb, _ := c.I16(4*i + 2)
		metrics[i] = LongMetric{Advance: adv, SideBearing: sb}
	}
	remaining := numGlyphs - numHMetrics
	sbOffset := 4 * numHMetrics
	trailing := make([]int16, 0, remaining)
	if remaining > 0 {
		if !c.CheckArray(sbOffset, 2, remaining) {
			// A malformed trailing region degrades to "no extra
			// bearings" rather than invalidating the whole table.
			remaining = 0
		}
		for i := 0; i < remaining; i++ {
			sb, _ := c.I16(sbOffset + 2*i)
			trailing = append(trailing, sb)
		}
	}
	lastAdvance := uint16(0)
	if numHMetrics > 0 {
		lastAdvance = metrics[numHMetrics-1].Advance
	}
	return Mtx{metrics: metrics, trailingSB: trailing, lastAdvance: lastAdvance, numGlyphs: numGlyphs}, nil
}

// Advance returns the (h or v) advance for gid, clamping to the last
// explicit entry per the hmtx/vmtx monotone-tail convention.
func (m Mtx) Advance(gid GlyphID) uint16 {
	if int(gid) < len(m.metrics) {
		return m.metrics[gid].Advance
	}
	return m.lastAdvance
}

// SideBearing returns the left/top side bearing for gid.
func (m Mtx) SideBearing(gid GlyphID) int16 {
	if int(gid) < len(m.metrics) {
		return m.metrics[gid].SideBearing
	}
	idx := int(gid) - len(m.metrics)
	if idx >= 0 && idx < len(m.trailingSB) {
		return m.trailingSB[idx]
	}
	return 0
}

// Hmtx returns the parsed horizontal metrics table.
func (f *Face) Hmtx() (Mtx, error) {
	return cachedTable(f, TagHmtx, func(data []byte) (Mtx, error) {
		hhea, err := f.Hhea()
		if err != nil {
			return Mtx{}, err
		}
		return parseMtx(data, int(hhea.NumberOfHMetrics), f.NumGlyphs())
	})
}

// Vmtx returns the parsed vertical metrics table.
func (f *Face) Vmtx() (Mtx, error) {
	return cachedTable(f, TagVmtx, func(data []byte) (Mtx, error) {
		vhea, err := f.Vhea()
		if err != nil {
			return Mtx{}, err
		}
		return parseMtx(data, int(vhea.NumberOfVMetrics), f.NumGlyphs())
	})
}
