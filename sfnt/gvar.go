package sfnt

// Gvar is the parsed 'gvar' table: per-glyph tuple-variation stores that
// deform glyf outlines (spec §4.3, §4.9: "gvar-deltaed glyf outlines").
type Gvar struct {
	data          []byte
	axisCount     int
	sharedTuples  [][]float64
	glyphOffsets  []uint32
	flags         uint16
	dataOffset    int
}

// Gvar returns the parsed 'gvar' table.
func (f *Face) Gvar() (*Gvar, error) { return cachedTable(f, TagGvar, parseGvar) }

func parseGvar(data []byte) (*Gvar, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 20) {
		return nil, ErrInvalidTable
	}
	major, _ := c.U16(0)
	if major != 1 {
		return nil, ErrInvalidTable
	}
	axisCount, _ := c.U16(4)
	sharedTupleCount, _ := c.U16(6)
	sharedTupleOff, _ := c.U32(8)
	glyphCount, _ := c.U16(12)
	flags, _ := c.U16(14)
	glyphVarDataArrayOff, _ := c.U32(16)

	g := &Gvar{data: data, axisCount: int(axisCount), flags: flags, dataOffset: int(glyphVarDataArrayOff)}

	for i := 0; i < int(sharedTupleCount); i++ {
		base := int(sharedTupleOff) + 2*int(axisCount)*i
		tuple := make([]float64, axisCount)
		for a := 0; a < int(axisCount); a++ {
			v, ok := c.I16(base + 2*a)
			if !ok {
				return nil, ErrInvalidTable
			}
			tuple[a] = f2dot14(v)
		}
		g.sharedTuples = append(g.sharedTuples, tuple)
	}

	long := flags&0x1 != 0
	n := int(glyphCount) + 1
	offs := make([]uint32, n)
	if long {
		if !c.CheckArray(20, 4, n) {
			return nil, ErrInvalidTable
		}
		for i := 0; i < n; i++ {
			offs[i], _ = c.U32(20 + 4*i)
		}
	} else {
		if !c.CheckArray(20, 2, n) {
			return nil, ErrInvalidTable
		}
		for i := 0; i < n; i++ {
			v, _ := c.U16(20 + 2*i)
			offs[i] = uint32(v) * 2
		}
	}
	g.glyphOffsets = offs
	return g, nil
}

// GlyphDeltas returns the point-delta contribution for gid at the given
// normalized coordinates, indexed the same way as the glyph's points
// (including the four phantom points appended after real contour
// points, per the gvar spec).
func (g *Gvar) GlyphDeltas(gid GlyphID, numPoints int, coords []float64) ([]GlyphPoint, bool) {
	if g == nil || int(gid)+1 >= len(g.glyphOffsets) {
		return nil, false
	}
	start, end := g.glyphOffsets[gid], g.glyphOffsets[gid+1]
	if end <= start {
		return nil, false
	}
	base := g.dataOffset + int(start)
	c := NewCursor(g.data)
	if !c.CheckRange(base, int(end-start)) || !c.CheckRange(base, 4) {
		return nil, false
	}
	tupleCount, _ := c.U16(base)
	dataOff, _ := c.U16(base + 2)
	sharedPointNumbers := false
	count := int(tupleCount & 0x0FFF)
	if tupleCount&0x8000 != 0 {
		sharedPointNumbers = true
	}
	pos := base + 4
	dataPos := base + int(dataOff)

	var sharedPoints []int
	if sharedPointNumbers {
		pts, next, ok := readPackedPointNumbers(g.data, dataPos, numPoints)
		if !ok {
			return nil, false
		}
		sharedPoints = pts
		dataPos = next
	}

	deltasX := make([]float64, numPoints)
	deltasY := make([]float64, numPoints)

	for i := 0; i < count; i++ {
		if !c.CheckRange(pos, 4) {
			break
		}
		tupleSize, _ := c.U16(pos)
		tupleFlags, _ := c.U16(pos + 2)
		pos += 4

		var peak []float64
		var lo, hi []float64
		hasIntermediate := tupleFlags&0x4000 != 0
		embedded := tupleFlags&0x8000 != 0
		privatePoints := tupleFlags&0x2000 != 0
		index := int(tupleFlags & 0x0FFF)

		if embedded {
			peak = make([]float64, g.axisCount)
			for a := 0; a < g.axisCount; a++ {
				v, ok := c.I16(pos + 2*a)
				if !ok {
					return nil, false
				}
				peak[a] = f2dot14(v)
			}
			pos += 2 * g.axisCount
		} else if index < len(g.sharedTuples) {
			peak = g.sharedTuples[index]
		}
		if hasIntermediate {
			lo = make([]float64, g.axisCount)
			hi = make([]float64, g.axisCount)
			for a := 0; a < g.axisCount; a++ {
				v1, _ := c.I16(pos + 2*a)
				v2, _ := c.I16(pos + 2*g.axisCount + 2*a)
				lo[a], hi[a] = f2dot14(v1), f2dot14(v2)
			}
			pos += 4 * g.axisCount
		}

		hdr := TupleVariationHeader{PeakTuple: peak, IntermediateStart: lo, IntermediateEnd: hi, HasIntermediate: hasIntermediate}
		scalar := hdr.Scalar(coords)

		points := sharedPoints
		thisDataPos := dataPos
		if privatePoints {
			pts, next, ok := readPackedPointNumbers(g.data, dataPos, numPoints)
			if !ok {
				return nil, false
			}
			points = pts
			thisDataPos = next
		}
		if points == nil {
			points = make([]int, numPoints)
			for p := range points {
				points[p] = p
			}
		}

		xs, next, ok := readPackedDeltas(g.data, thisDataPos, len(points))
		if !ok {
			return nil, false
		}
		ys, _, ok := readPackedDeltas(g.data, next, len(points))
		if !ok {
			return nil, false
		}
		dataPos += int(tupleSize)

		if scalar != 0 {
			for k, p := range points {
				if p < numPoints {
					deltasX[p] += scalar * float64(xs[k])
					deltasY[p] += scalar * float64(ys[k])
				}
			}
		}
	}

	out := make([]GlyphPoint, numPoints)
	for i := range out {
		out[i] = GlyphPoint{X: int16(deltasX[i]), Y: int16(deltasY[i])}
	}
	return out, true
}

// readPackedPointNumbers decodes gvar's packed point number list. An
// empty list (count 0) means "all points", returned here as nil so
// callers can fill the identity list themselves.
func readPackedPointNumbers(data []byte, pos, numPoints int) ([]int, int, bool) {
	if pos >= len(data) {
		return nil, pos, false
	}
	count := int(data[pos])
	pos++
	if count == 0 {
		return nil, pos, true
	}
	if count&0x80 != 0 {
		if pos >= len(data) {
			return nil, pos, false
		}
		count = (count&0x7F)<<8 | int(data[pos])
		pos++
	}
	points := make([]int, 0, count)
	cur := 0
	for len(points) < count {
		if pos >= len(data) {
			return nil, pos, false
		}
		control := data[pos]
		pos++
		runCount := int(control&0x7F) + 1
		wordPoints := control&0x80 != 0
		for i := 0; i < runCount && len(points) < count; i++ {
			if wordPoints {
				if pos+2 > len(data) {
					return nil, pos, false
				}
				delta := int(data[pos])<<8 | int(data[pos+1])
				pos += 2
				cur += delta
			} else {
				if pos >= len(data) {
					return nil, pos, false
				}
				cur += int(data[pos])
				pos++
			}
			points = append(points, cur)
		}
	}
	return points, pos, true
}

// readPackedDeltas decodes gvar's packed delta-value run encoding.
func readPackedDeltas(data []byte, pos, count int) ([]int16, int, bool) {
	out := make([]int16, 0, count)
	for len(out) < count {
		if pos >= len(data) {
			return nil, pos, false
		}
		control := data[pos]
		pos++
		runCount := int(control&0x3F) + 1
		switch {
		case control&0x80 != 0: // DELTAS_ARE_ZERO
			for i := 0; i < runCount && len(out) < count; i++ {
				out = append(out, 0)
			}
		case control&0x40 != 0: // DELTAS_ARE_WORDS
			for i := 0; i < runCount && len(out) < count; i++ {
				if pos+2 > len(data) {
					return nil, pos, false
				}
				v := int16(uint16(data[pos])<<8 | uint16(data[pos+1]))
				pos += 2
				out = append(out, v)
			}
		default:
			for i := 0; i < runCount && len(out) < count; i++ {
				if pos >= len(data) {
					return nil, pos, false
				}
				out = append(out, int16(int8(data[pos])))
				pos++
			}
		}
	}
	return out, pos, true
}
