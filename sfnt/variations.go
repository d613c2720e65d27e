package sfnt

import "sort"

// VarAxis is one 'fvar' axis record.
type VarAxis struct {
	Tag                    Tag
	Min, Default, Max      float64 // design-space (16.16 fixed, converted to float64)
	Hidden                 bool
}

// Fvar is the parsed 'fvar' table: axes plus named instances.
type Fvar struct {
	Axes      []VarAxis
	Instances []VarNamedInstance
}

// VarNamedInstance is one named preset of axis coordinates.
type VarNamedInstance struct {
	SubfamilyNameID uint16
	Coordinates     []float64 // design-space, one per axis
}

func fixed16_16(v uint32) float64 { return float64(int32(v)) / 65536 }

// Fvar returns the parsed 'fvar' table.
func (f *Face) Fvar() (Fvar, error) { return cachedTable(f, TagFvar, parseFvar) }

func parseFvar(data []byte) (Fvar, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 16) {
		return Fvar{}, ErrInvalidTable
	}
	axesOff, ok := c.U16(4)
	if !ok {
		return Fvar{}, ErrInvalidTable
	}
	axisCount, _ := c.U16(8)
	axisSize, _ := c.U16(10)
	instCount, _ := c.U16(12)
	instSize, _ := c.U16(14)

	out := Fvar{}
	for i := 0; i < int(axisCount); i++ {
		base := int(axesOff) + int(axisSize)*i
		if !c.CheckRange(base, 20) {
			break
		}
		tag, _ := c.Tag(base)
		minV, _ := c.U32(base + 4)
		defV, _ := c.U32(base + 8)
		maxV, _ := c.U32(base + 12)
		flags, _ := c.U16(base + 16)
		out.Axes = append(out.Axes, VarAxis{
			Tag: tag, Min: fixed16_16(minV), Default: fixed16_16(defV), Max: fixed16_16(maxV),
			Hidden: flags&0x0001 != 0,
		})
	}
	instBase := int(axesOff) + int(axisSize)*int(axisCount)
	for i := 0; i < int(instCount); i++ {
		base := instBase + int(instSize)*i
		if !c.CheckRange(base, 4+4*int(axisCount)) {
			break
		}
		nameID, _ := c.U16(base)
		inst := VarNamedInstance{SubfamilyNameID: nameID}
		for a := 0; a < int(axisCount); a++ {
			v, _ := c.U32(base + 4 + 4*a)
			inst.Coordinates = append(inst.Coordinates, fixed16_16(v))
		}
		out.Instances = append(out.Instances, inst)
	}
	return out, nil
}

// AxisIndex returns the index of the axis with the given tag.
func (fv Fvar) AxisIndex(tag Tag) (int, bool) {
	for i, a := range fv.Axes {
		if a.Tag == tag {
			return i, true
		}
	}
	return 0, false
}

// avarSegment is one piecewise-linear axis remap from 'avar'.
type avarSegment struct {
	fromCoord, toCoord []float64 // paired, sorted by fromCoord
}

// Avar is the parsed 'avar' table: one optional remap per fvar axis.
type Avar struct {
	segments []avarSegment // indexed by axis index; nil entry = identity
}

// Avar returns the parsed 'avar' table.
func (f *Face) Avar() (Avar, error) { return cachedTable(f, TagAvar, parseAvar) }

func parseAvar(data []byte) (Avar, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 8) {
		return Avar{}, ErrInvalidTable
	}
	axisCount, _ := c.U16(6)
	out := Avar{segments: make([]avarSegment, axisCount)}
	pos := 8
	for i := 0; i < int(axisCount); i++ {
		count, ok := c.U16(pos)
		if !ok {
			return Avar{}, ErrInvalidTable
		}
		pos += 2
		seg := avarSegment{}
		for j := 0; j < int(count); j++ {
			from, ok1 := c.I16(pos)
			to, ok2 := c.I16(pos + 2)
			if !ok1 || !ok2 {
				return Avar{}, ErrInvalidTable
			}
			pos += 4
			seg.fromCoord = append(seg.fromCoord, f2dot14(from))
			seg.toCoord = append(seg.toCoord, f2dot14(to))
		}
		out.segments[i] = seg
	}
	return out, nil
}

// Map applies the avar piecewise-linear remap for one axis' normalized
// coordinate (spec §4.3: "the avar table (piecewise-linear remap)").
func (av Avar) Map(axisIndex int, normalized float64) float64 {
	if axisIndex < 0 || axisIndex >= len(av.segments) {
		return normalized
	}
	seg := av.segments[axisIndex]
	if len(seg.fromCoord) == 0 {
		return normalized
	}
	i := sort.SearchFloat64s(seg.fromCoord, normalized)
	if i < len(seg.fromCoord) && seg.fromCoord[i] == normalized {
		return seg.toCoord[i]
	}
	if i == 0 {
		return seg.toCoord[0]
	}
	if i == len(seg.fromCoord) {
		return seg.toCoord[len(seg.toCoord)-1]
	}
	x0, x1 := seg.fromCoord[i-1], seg.fromCoord[i]
	y0, y1 := seg.toCoord[i-1], seg.toCoord[i]
	if x1 == x0 {
		return y0
	}
	t := (normalized - x0) / (x1 - x0)
	return y0 + t*(y1-y0)
}

// NormalizeCoords converts design-space axis values into [-1,1]
// normalized coordinates via fvar's min/default/max and avar's remap,
// exactly the two-stage process spec §4.3 describes.
func (f *Face) NormalizeCoords(design map[Tag]float64) []float64 {
	fvar, err := f.Fvar()
	if err != nil || len(fvar.Axes) == 0 {
		return nil
	}
	avar, _ := f.Avar()
	out := make([]float64, len(fvar.Axes))
	for i, axis := range fvar.Axes {
		v, ok := design[axis.Tag]
		if !ok {
			v = axis.Default
		}
		var n float64
		switch {
		case v < axis.Default:
			if axis.Default == axis.Min {
				n = 0
			} else {
				n = -(axis.Default - v) / (axis.Default - axis.Min)
			}
		case v > axis.Default:
			if axis.Max == axis.Default {
				n = 0
			} else {
				n = (v - axis.Default) / (axis.Max - axis.Default)
			}
		default:
			n = 0
		}
		if n < -1 {
			n = -1
		}
		if n > 1 {
			n = 1
		}
		out[i] = avar.Map(i, n)
	}
	return out
}

// TupleVariationHeader is one entry of a gvar/CFF2 tuple-variation store.
type TupleVariationHeader struct {
	PeakTuple          []float64
	IntermediateStart  []float64
	IntermediateEnd    []float64
	HasIntermediate    bool
	PrivatePointNumbers bool
	DataOffset         int
	DataSize           int
}

// Scalar returns this tuple's contribution weight for the given
// normalized instance coordinates, using the standard piecewise-linear
// scalar computation shared by gvar and CFF2 (OpenType spec "Scalar
// calculation for a TupleVariationHeader").
func (h TupleVariationHeader) Scalar(coords []float64) float64 {
	scalar := 1.0
	for i, peak := range h.PeakTuple {
		var v float64
		if i < len(coords) {
			v = coords[i]
		}
		if peak == 0 {
			continue
		}
		var lo, hi float64
		if h.HasIntermediate {
			lo, hi = h.IntermediateStart[i], h.IntermediateEnd[i]
		} else if peak > 0 {
			lo, hi = 0, peak
		} else {
			lo, hi = peak, 0
		}
		switch {
		case v == peak:
			continue
		case v <= lo || v >= hi:
			return 0
		case v < peak:
			if peak == lo {
				continue
			}
			scalar *= (v - lo) / (peak - lo)
		default:
			if peak == hi {
				continue
			}
			scalar *= (hi - v) / (hi - peak)
		}
	}
	return scalar
}
