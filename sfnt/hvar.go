package sfnt

// HVAR is the parsed 'HVAR' table: variation deltas for horizontal
// advance widths, left side bearings, and right side bearings.
type HVAR struct {
	store        *ItemVariationStore
	advanceMap   *DeltaSetIndexMap
	lsbMap       *DeltaSetIndexMap
	rsbMap       *DeltaSetIndexMap
}

// VVAR mirrors HVAR for vertical metrics.
type VVAR struct {
	store       *ItemVariationStore
	advanceMap  *DeltaSetIndexMap
	tsbMap      *DeltaSetIndexMap
	bsbMap      *DeltaSetIndexMap
	vOrgMap     *DeltaSetIndexMap
}

// HVAR returns the parsed 'HVAR' table.
func (f *Face) HVAR() (*HVAR, error) { return cachedTable(f, TagHVAR, parseHVAR) }

// VVAR returns the parsed 'VVAR' table.
func (f *Face) VVAR() (*VVAR, error) { return cachedTable(f, TagVVAR, parseVVAR) }

func parseHVAR(data []byte) (*HVAR, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 20) {
		return nil, ErrInvalidTable
	}
	storeOff, _ := c.U32(4)
	advMapOff, _ := c.U32(8)
	lsbMapOff, _ := c.U32(12)
	rsbMapOff, _ := c.U32(16)

	store, ok := ParseItemVariationStore(c, int(storeOff))
	if !ok {
		return nil, ErrInvalidTable
	}
	h := &HVAR{store: store}
	if advMapOff != 0 {
		h.advanceMap, _ = ParseDeltaSetIndexMap(c, int(advMapOff))
	}
	if lsbMapOff != 0 {
		h.lsbMap, _ = ParseDeltaSetIndexMap(c, int(lsbMapOff))
	}
	if rsbMapOff != 0 {
		h.rsbMap, _ = ParseDeltaSetIndexMap(c, int(rsbMapOff))
	}
	return h, nil
}

func parseVVAR(data []byte) (*VVAR, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 24) {
		return nil, ErrInvalidTable
	}
	storeOff, _ := c.U32(4)
	advMapOff, _ := c.U32(8)
	tsbMapOff, _ := c.U32(12)
	bsbMapOff, _ := c.U32(16)
	vOrgMapOff, _ := c.U32(20)

	store, ok := ParseItemVariationStore(c, int(storeOff))
	if !ok {
		return nil, ErrInvalidTable
	}
	v := &VVAR{store: store}
	if advMapOff != 0 {
		v.advanceMap, _ = ParseDeltaSetIndexMap(c, int(advMapOff))
	}
	if tsbMapOff != 0 {
		v.tsbMap, _ = ParseDeltaSetIndexMap(c, int(tsbMapOff))
	}
	if bsbMapOff != 0 {
		v.bsbMap, _ = ParseDeltaSetIndexMap(c, int(bsbMapOff))
	}
	if vOrgMapOff != 0 {
		v.vOrgMap, _ = ParseDeltaSetIndexMap(c, int(vOrgMapOff))
	}
	return v, nil
}

// AdvanceDelta returns the horizontal advance-width delta for gid at coords.
func (h *HVAR) AdvanceDelta(gid GlyphID, coords []float64) float64 {
	if h == nil {
		return 0
	}
	outer, inner := h.advanceMap.Lookup(int(gid))
	return h.store.Delta(outer, inner, coords)
}

// LSBDelta returns the left-side-bearing delta for gid at coords, or 0
// if the font carries no LSB variation data (advances must still be
// recomputed from the unvaried table in that case).
func (h *HVAR) LSBDelta(gid GlyphID, coords []float64) float64 {
	if h == nil || h.lsbMap == nil {
		return 0
	}
	outer, inner := h.lsbMap.Lookup(int(gid))
	return h.store.Delta(outer, inner, coords)
}

// AdvanceDelta returns the vertical advance-height delta for gid at coords.
func (v *VVAR) AdvanceDelta(gid GlyphID, coords []float64) float64 {
	if v == nil {
		return 0
	}
	outer, inner := v.advanceMap.Lookup(int(gid))
	return v.store.Delta(outer, inner, coords)
}

// MVAR is the parsed 'MVAR' table: variation deltas for face-wide
// metrics (ascender, underline position, etc.), keyed by metric tag.
type MVAR struct {
	store   *ItemVariationStore
	records map[Tag][2]uint16 // tag -> (outerIndex, innerIndex)
}

// MVAR returns the parsed 'MVAR' table.
func (f *Face) MVAR() (*MVAR, error) { return cachedTable(f, TagMVAR, parseMVAR) }

func parseMVAR(data []byte) (*MVAR, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 12) {
		return nil, ErrInvalidTable
	}
	recordSize, _ := c.U16(6)
	recordCount, _ := c.U16(8)
	storeOff, _ := c.U16(10)

	m := &MVAR{records: map[Tag][2]uint16{}}
	if storeOff != 0 {
		store, ok := ParseItemVariationStore(c, int(storeOff))
		if !ok {
			return nil, ErrInvalidTable
		}
		m.store = store
	}
	base := 12
	for i := 0; i < int(recordCount); i++ {
		rbase := base + int(recordSize)*i
		if !c.CheckRange(rbase, 8) {
			break
		}
		tag, _ := c.Tag(rbase)
		outer, _ := c.U16(rbase + 4)
		inner, _ := c.U16(rbase + 6)
		m.records[tag] = [2]uint16{outer, inner}
	}
	return m, nil
}

// Delta returns the variation delta for a face-wide metric tag (e.g.
// "hasc", "unds") at coords, or 0 if MVAR does not vary that metric.
func (m *MVAR) Delta(tag Tag, coords []float64) float64 {
	if m == nil {
		return 0
	}
	rec, ok := m.records[tag]
	if !ok {
		return 0
	}
	return m.store.Delta(rec[0], rec[1], coords)
}
