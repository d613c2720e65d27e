package sfnt

// GlyphPoint is a single glyf contour point.
type GlyphPoint struct {
	X, Y    int16
	OnCurve bool
}

// SimpleGlyph is a parsed 'glyf' simple (non-composite) glyph: points
// grouped into contours via EndPts.
type SimpleGlyph struct {
	EndPts []uint16
	Points []GlyphPoint
}

// CompositeComponent is one entry of a composite glyf glyph.
type CompositeComponent struct {
	GlyphIndex             GlyphID
	Dx, Dy                 float64
	ScaleX, Scale01, Scale10, ScaleY float64
	ArgsAreXY              bool
	RoundXYToGrid          bool
	UseMyMetrics           bool
	MoreComponents         bool
}

// GlyphData is either a simple glyph, a composite glyph, or empty
// (space glyphs have a loca entry with zero length).
type GlyphData struct {
	Simple     *SimpleGlyph
	Composite  []CompositeComponent
	XMin, YMin, XMax, YMax int16
}

// Loca returns the per-glyph byte offsets into 'glyf', derived from
// head's indexToLocFormat.
func (f *Face) loca() ([]uint32, error) {
	return cachedTable(f, TagLoca, func(data []byte) ([]uint32, error) {
		head, err := f.Head()
		if err != nil {
			return nil, err
		}
		n := f.NumGlyphs() + 1
		c := NewCursor(data)
		out := make([]uint32, n)
		if head.IndexToLocFormat == 0 {
			if !c.CheckArray(0, 2, n) {
				return nil, ErrInvalidTable
			}
			for i := 0; i < n; i++ {
				v, _ := c.U16(2 * i)
				out[i] = uint32(v) * 2
			}
		} else {
			if !c.CheckArray(0, 4, n) {
				return nil, ErrInvalidTable
			}
			for i := 0; i < n; i++ {
				v, _ := c.U32(4 * i)
				out[i] = v
			}
		}
		return out, nil
	})
}

// GlyphData parses one glyf entry. Returns ok=false for glyphs with no
// outline (e.g. space) without treating that as an error.
func (f *Face) GlyphData(gid GlyphID) (GlyphData, bool) {
	loca, err := f.loca()
	if err != nil || int(gid)+1 >= len(loca) {
		return GlyphData{}, false
	}
	start, end := loca[gid], loca[gid+1]
	if end <= start {
		return GlyphData{}, false
	}
	glyfData, err := f.TableData(TagGlyf)
	if err != nil {
		return GlyphData{}, false
	}
	c := NewCursor(glyfData)
	base := int(start)
	if !c.CheckRange(base, int(end-start)) || !c.CheckRange(base, 10) {
		return GlyphData{}, false
	}
	numContours, _ := c.I16(base)
	xmin, _ := c.I16(base + 2)
	ymin, _ := c.I16(base + 4)
	xmax, _ := c.I16(base + 6)
	ymax, _ := c.I16(base + 8)
	gd := GlyphData{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}

	if numContours >= 0 {
		simple, ok := parseSimpleGlyph(c, base+10, int(numContours))
		if !ok {
			return GlyphData{}, false
		}
		gd.Simple = simple
	} else {
		comps, ok := parseCompositeGlyph(c, base+10)
		if !ok {
			return GlyphData{}, false
		}
		gd.Composite = comps
	}
	return gd, true
}

func parseSimpleGlyph(c *Cursor, offset, numContours int) (*SimpleGlyph, bool) {
	if !c.CheckArray(offset, 2, numContours) {
		return nil, false
	}
	endPts := make([]uint16, numContours)
	for i := 0; i < numContours; i++ {
		endPts[i], _ = c.U16(offset + 2*i)
	}
	numPoints := 0
	if numContours > 0 {
		numPoints = int(endPts[numContours-1]) + 1
	}
	pos := offset + 2*numContours
	insLen, ok := c.U16(pos)
	if !ok {
		return nil, false
	}
	pos += 2 + int(insLen)

	flags := make([]byte, 0, numPoints)
	for len(flags) < numPoints {
		b, ok := c.U8(pos)
		if !ok {
			return nil, false
		}
		pos++
		flags = append(flags, b)
		if b&0x08 != 0 { // REPEAT_FLAG
			rep, ok := c.U8(pos)
			if !ok {
				return nil, false
			}
			pos++
			for r := 0; r < int(rep); r++ {
				flags = append(flags, b)
			}
		}
	}
	if len(flags) != numPoints {
		return nil, false
	}

	readCoords := func(shortBit, sameOrPositiveBit byte) ([]int16, bool) {
		vals := make([]int16, numPoints)
		cur := int16(0)
		for i, fl := range flags {
			short := fl&shortBit != 0
			same := fl&sameOrPositiveBit != 0
			switch {
			case short:
				v, ok := c.U8(pos)
				if !ok {
					return nil, false
				}
				pos++
				if same {
					cur += int16(v)
				} else {
					cur -= int16(v)
				}
			case !same: // 16-bit delta present
				v, ok := c.I16(pos)
				if !ok {
					return nil, false
				}
				pos += 2
				cur += v
			} // else: same as previous, delta 0
			vals[i] = cur
		}
		return vals, true
	}

	xs, ok := readCoords(0x02, 0x10)
	if !ok {
		return nil, false
	}
	ys, ok := readCoords(0x04, 0x20)
	if !ok {
		return nil, false
	}

	points := make([]GlyphPoint, numPoints)
	for i := range points {
		points[i] = GlyphPoint{X: xs[i], Y: ys[i], OnCurve: flags[i]&0x01 != 0}
	}
	return &SimpleGlyph{EndPts: endPts, Points: points}, true
}

func parseCompositeGlyph(c *Cursor, offset int) ([]CompositeComponent, bool) {
	var out []CompositeComponent
	pos := offset
	for {
		if !c.CheckRange(pos, 4) {
			return nil, false
		}
		flags, _ := c.U16(pos)
		glyphIndex, _ := c.U16(pos + 2)
		pos += 4

		comp := CompositeComponent{GlyphIndex: glyphIndex, ScaleX: 1, ScaleY: 1}
		argsAreWords := flags&0x0001 != 0
		argsAreXY := flags&0x0002 != 0
		comp.ArgsAreXY = argsAreXY
		comp.RoundXYToGrid = flags&0x0004 != 0
		comp.UseMyMetrics = flags&0x0200 != 0

		if argsAreWords {
			a, ok1 := c.I16(pos)
			b, ok2 := c.I16(pos + 2)
			if !ok1 || !ok2 {
				return nil, false
			}
			pos += 4
			if argsAreXY {
				comp.Dx, comp.Dy = float64(a), float64(b)
			}
		} else {
			a, ok1 := c.U8(pos)
			b, ok2 := c.U8(pos + 1)
			if !ok1 || !ok2 {
				return nil, false
			}
			pos += 2
			if argsAreXY {
				comp.Dx, comp.Dy = float64(int8(a)), float64(int8(b))
			}
		}

		switch {
		case flags&0x0008 != 0: // WE_HAVE_A_SCALE
			v, ok := c.I16(pos)
			if !ok {
				return nil, false
			}
			pos += 2
			comp.ScaleX = f2dot14(v)
			comp.ScaleY = comp.ScaleX
		case flags&0x0040 != 0: // WE_HAVE_AN_X_AND_Y_SCALE
			vx, ok1 := c.I16(pos)
			vy, ok2 := c.I16(pos + 2)
			if !ok1 || !ok2 {
				return nil, false
			}
			pos += 4
			comp.ScaleX, comp.ScaleY = f2dot14(vx), f2dot14(vy)
		case flags&0x0080 != 0: // WE_HAVE_A_TWO_BY_TWO
			a, ok1 := c.I16(pos)
			b, ok2 := c.I16(pos + 2)
			cc, ok3 := c.I16(pos + 4)
			d, ok4 := c.I16(pos + 6)
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return nil, false
			}
			pos += 8
			comp.ScaleX, comp.Scale01, comp.Scale10, comp.ScaleY = f2dot14(a), f2dot14(b), f2dot14(cc), f2dot14(d)
		}

		more := flags&0x0020 != 0
		comp.MoreComponents = more
		out = append(out, comp)
		if !more {
			break
		}
	}
	return out, true
}

func f2dot14(v int16) float64 { return float64(v) / 16384 }
