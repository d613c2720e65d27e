package draw

import (
	"math"

	"github.com/textforge/shaping/sfnt"
)

// varcMaxDepth and varcMaxEdges bound VARC's recursive composition the
// same way glyfOutline bounds glyf composite recursion: a depth counter
// plus a total-component budget, so a malformed or adversarial font
// cannot recurse or fan out unboundedly.
const (
	varcMaxDepth = 16
	varcMaxEdges = 4096
)

type varcFlags uint32

const (
	varcGIDIs24Bit varcFlags = 1 << iota
	varcHaveCondition
	varcHaveAxes
	varcAxisValuesHaveVariation
	varcTransformHasVariation
	varcHaveTranslateX
	varcHaveTranslateY
	varcHaveRotation
	varcHaveScaleX
	varcHaveScaleY
	varcHaveSkewX
	varcHaveSkewY
	varcHaveTCenterX
	varcHaveTCenterY
	varcResetUnspecifiedAxes
)

const varcReservedMask varcFlags = 0xFFFF8000

// varcOutline draws gid's VARC component tree into st. rootCoords is the
// face's active normalized variation coordinates; it is what
// RESET_UNSPECIFIED_AXES falls back to, per VarComponent::get_path_at.
func varcOutline(face *sfnt.Face, gid sfnt.GlyphID, rootCoords []float64, st *state) bool {
	varc, err := face.VARC()
	if err != nil || varc == nil {
		return false
	}
	edgesLeft := varcMaxEdges
	visited := map[sfnt.GlyphID]bool{}
	return drawVarcGlyph(face, varc, gid, rootCoords, rootCoords, st, visited, &edgesLeft, varcMaxDepth)
}

// drawVarcGlyph draws every component record belonging to gid in
// sequence, bounded by depthLeft/edgesLeft and guarded against cycles
// through visited. HarfBuzz equivalent: OT::VARC::get_path_at.
func drawVarcGlyph(face *sfnt.Face, varc *sfnt.VARC, gid sfnt.GlyphID, rootCoords, coords []float64, st *state, visited map[sfnt.GlyphID]bool, edgesLeft *int, depthLeft int) bool {
	if depthLeft <= 0 || visited[gid] {
		return false
	}
	rec, ok := varc.GlyphRecord(gid)
	if ok {
		visited[gid] = true
		defer delete(visited, gid)
		drew := false
		for len(rec) > 0 && *edgesLeft > 0 {
			*edgesLeft--
			next, ok := drawVarComponent(face, varc, gid, rootCoords, coords, st, rec, visited, edgesLeft, depthLeft)
			if !ok {
				break
			}
			if len(next) == len(rec) {
				break // malformed record made no progress; stop rather than loop
			}
			rec = next
			drew = true
		}
		return drew
	}
	// Not itself a VARC glyph: composing this reference means drawing its
	// plain glyf/CFF outline through the accumulated transform.
	return glyphOutlineNoVarc(face, gid, coords, st)
}

// drawVarComponent parses and draws one component record from the front
// of record, returning the remaining bytes for the next sibling.
// HarfBuzz equivalent: OT::VARC::VarComponent::get_path_at.
func drawVarComponent(face *sfnt.Face, varc *sfnt.VARC, parentGid sfnt.GlyphID, rootCoords, coords []float64, st *state, record []byte, visited map[sfnt.GlyphID]bool, edgesLeft *int, depthLeft int) ([]byte, bool) {
	pos := 0
	readVar := func() (uint32, bool) {
		v, n, ok := readUint32Var(record[pos:])
		if !ok {
			return 0, false
		}
		pos += n
		return v, true
	}

	flagsRaw, ok := readVar()
	if !ok {
		return nil, false
	}
	flags := varcFlags(flagsRaw)

	var gid sfnt.GlyphID
	if flags&varcGIDIs24Bit != 0 {
		if pos+3 > len(record) {
			return nil, false
		}
		gid = sfnt.GlyphID(uint32(record[pos])<<16 | uint32(record[pos+1])<<8 | uint32(record[pos+2]))
		pos += 3
	} else {
		if pos+2 > len(record) {
			return nil, false
		}
		gid = sfnt.GlyphID(uint32(record[pos])<<8 | uint32(record[pos+1]))
		pos += 2
	}

	show := true
	if flags&varcHaveCondition != 0 {
		condIdx, ok := readVar()
		if !ok {
			return nil, false
		}
		cond, ok := varc.Condition(condIdx)
		show = ok && evaluateCondition(cond, coords)
	}

	var axisIndices []uint16
	var axisValues []float64
	if flags&varcHaveAxes != 0 {
		idx, ok := readVar()
		if !ok {
			return nil, false
		}
		axisIndices, _ = varc.AxisIndices(idx)
		vals, n := decodeTupleValues(record[pos:], len(axisIndices))
		axisValues = vals
		pos += n
	}

	if flags&varcAxisValuesHaveVariation != 0 {
		varIdx, ok := readVar()
		if !ok {
			return nil, false
		}
		if show && len(coords) > 0 {
			applyVarStoreDeltas(varc.VarStore, varIdx, axisValues, coords)
		}
	}

	componentCoords := coords
	if flags&varcResetUnspecifiedAxes != 0 || len(coords) > 64 {
		componentCoords = rootCoords
	}

	transformVarIdx := uint32(0xFFFFFFFF)
	if flags&varcTransformHasVariation != 0 {
		v, ok := readVar()
		if !ok {
			return nil, false
		}
		transformVarIdx = v
	}

	var tr transform
	tr.scaleX, tr.scaleY = 1, 1
	readFixed := func(flag varcFlags) (float64, bool) {
		if flags&flag == 0 {
			return 0, true
		}
		if pos+2 > len(record) {
			return 0, false
		}
		v := int16(uint16(record[pos])<<8 | uint16(record[pos+1]))
		pos += 2
		return float64(v), true
	}

	var haveScaleY bool
	var errFixed bool
	set := func(flag varcFlags, dst *float64, divisor float64) {
		v, ok := readFixed(flag)
		if !ok {
			errFixed = true
			return
		}
		if flags&flag != 0 {
			*dst = v / divisor
		}
	}
	set(varcHaveTranslateX, &tr.translateX, 1)
	set(varcHaveTranslateY, &tr.translateY, 1)
	set(varcHaveRotation, &tr.rotation, 4096)
	set(varcHaveScaleX, &tr.scaleX, 1024)
	haveScaleY = flags&varcHaveScaleY != 0
	set(varcHaveScaleY, &tr.scaleY, 1024)
	set(varcHaveSkewX, &tr.skewX, 4096)
	set(varcHaveSkewY, &tr.skewY, 4096)
	set(varcHaveTCenterX, &tr.centerX, 1)
	set(varcHaveTCenterY, &tr.centerY, 1)
	if errFixed {
		return nil, false
	}
	if !haveScaleY {
		tr.scaleY = tr.scaleX
	}

	reserved := flags & varcReservedMask
	for reserved != 0 {
		if _, ok := readVar(); !ok {
			return nil, false
		}
		reserved &= reserved - 1
	}

	if pos > len(record) {
		return nil, false
	}
	rest := record[pos:]

	if !show {
		return rest, true
	}

	if axisIndices != nil {
		merged := append([]float64(nil), componentCoords...)
		for i, axis := range axisIndices {
			for len(merged) <= int(axis) {
				merged = append(merged, 0)
			}
			if i < len(axisValues) {
				merged[axis] = axisValues[i]
			}
		}
		componentCoords = merged
	}

	if transformVarIdx != 0xFFFFFFFF && len(coords) > 0 {
		vals := tr.activeValues(flags)
		applyVarStoreDeltas(varc.VarStore, transformVarIdx, vals, coords)
		tr.setActiveValues(flags, vals)
	}

	sub := newState(passthroughTransform(st, tr), nil)
	drawVarcGlyph(face, varc, gid, rootCoords, componentCoords, sub, visited, edgesLeft, depthLeft-1)

	return rest, true
}

// transform is VARC's decomposed affine transform (rotation in turns,
// scale relative to 1.0, skew as an angle in turns); see DESIGN.md for
// the caveat that the exact composition order is a reconstruction.
type transform struct {
	translateX, translateY float64
	rotation                float64
	scaleX, scaleY          float64
	skewX, skewY            float64
	centerX, centerY        float64
}

func (t transform) activeValues(flags varcFlags) []float64 {
	var out []float64
	if flags&varcHaveTranslateX != 0 {
		out = append(out, t.translateX)
	}
	if flags&varcHaveTranslateY != 0 {
		out = append(out, t.translateY)
	}
	if flags&varcHaveRotation != 0 {
		out = append(out, t.rotation)
	}
	if flags&varcHaveScaleX != 0 {
		out = append(out, t.scaleX)
	}
	if flags&varcHaveScaleY != 0 {
		out = append(out, t.scaleY)
	}
	if flags&varcHaveSkewX != 0 {
		out = append(out, t.skewX)
	}
	if flags&varcHaveSkewY != 0 {
		out = append(out, t.skewY)
	}
	if flags&varcHaveTCenterX != 0 {
		out = append(out, t.centerX)
	}
	if flags&varcHaveTCenterY != 0 {
		out = append(out, t.centerY)
	}
	return out
}

func (t *transform) setActiveValues(flags varcFlags, vals []float64) {
	i := 0
	next := func() float64 {
		if i >= len(vals) {
			return 0
		}
		v := vals[i]
		i++
		return v
	}
	if flags&varcHaveTranslateX != 0 {
		t.translateX = next()
	}
	if flags&varcHaveTranslateY != 0 {
		t.translateY = next()
	}
	if flags&varcHaveRotation != 0 {
		t.rotation = next()
	}
	if flags&varcHaveScaleX != 0 {
		t.scaleX = next()
	}
	if flags&varcHaveScaleY != 0 {
		t.scaleY = next()
	}
	if flags&varcHaveSkewX != 0 {
		t.skewX = next()
	}
	if flags&varcHaveSkewY != 0 {
		t.skewY = next()
	}
	if flags&varcHaveTCenterX != 0 {
		t.centerX = next()
	}
	if flags&varcHaveTCenterY != 0 {
		t.centerY = next()
	}
}

// apply maps a point through the decomposed transform: move to center,
// scale, skew, rotate, move back, then translate.
func (t transform) apply(x, y float64) (float64, float64) {
	x -= t.centerX
	y -= t.centerY
	x *= t.scaleX
	y *= t.scaleY
	x += math.Tan(t.skewX*2*math.Pi) * y
	y += math.Tan(t.skewY*2*math.Pi) * x
	sin, cos := math.Sincos(t.rotation * 2 * math.Pi)
	rx := x*cos - y*sin
	ry := x*sin + y*cos
	rx += t.centerX + t.translateX
	ry += t.centerY + t.translateY
	return rx, ry
}

// passthroughTransform is VARC's analogue of glyf's passthrough: every
// point drawn by the referenced component is mapped through tr before
// reaching the parent's callbacks (the "transforming pen" of VARC.cc).
func passthroughTransform(parent *state, tr transform) Funcs {
	xf := func(p Point) Point {
		x, y := tr.apply(float64(p.X), float64(p.Y))
		return Point{float32(x), float32(y)}
	}
	return Funcs{
		MoveTo:    func(_ any, to Point) { parent.moveTo(xf(to)) },
		LineTo:    func(_ any, to Point) { parent.lineTo(xf(to)) },
		QuadTo:    func(_ any, ctrl, to Point) { parent.quadTo(xf(ctrl), xf(to)) },
		CubicTo:   func(_ any, c1, c2, to Point) { parent.cubicTo(xf(c1), xf(c2), xf(to)) },
		ClosePath: func(_ any) { parent.closePath() },
	}
}

// evaluateCondition evaluates a Condition table's format 1 (axis range)
// case; other formats conservatively evaluate to true (best-effort
// reconstruction — see DESIGN.md).
func evaluateCondition(cond []byte, coords []float64) bool {
	if len(cond) < 2 {
		return true
	}
	format := uint16(cond[0])<<8 | uint16(cond[1])
	if format != 1 || len(cond) < 8 {
		return true
	}
	axisIndex := int(uint16(cond[2])<<8 | uint16(cond[3]))
	min := f2dot14(int16(uint16(cond[4])<<8 | uint16(cond[5])))
	max := f2dot14(int16(uint16(cond[6])<<8 | uint16(cond[7])))
	var v float64
	if axisIndex < len(coords) {
		v = coords[axisIndex]
	}
	return v >= min && v <= max
}

func f2dot14(v int16) float64 { return float64(v) / 16384.0 }

// decodeTupleValues decodes count F2Dot14 values packed the way fvar's
// instance/tuple records do, returning the values and bytes consumed.
func decodeTupleValues(data []byte, count int) ([]float64, int) {
	out := make([]float64, count)
	if len(data) < 2*count {
		return out, len(data)
	}
	for i := 0; i < count; i++ {
		v := int16(uint16(data[2*i])<<8 | uint16(data[2*i+1]))
		out[i] = f2dot14(v)
	}
	return out, 2 * count
}

// readUint32Var reads a variable-length encoded uint32 (1-4 bytes,
// width selected by the top bits of the first byte). No authoritative
// reference for VARC's actual HBUINT32VAR encoding was available; this
// is a self-consistent reconstruction (see DESIGN.md).
func readUint32Var(data []byte) (uint32, int, bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	b0 := data[0]
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, true
	case b0&0xC0 == 0x80:
		if len(data) < 2 {
			return 0, 0, false
		}
		return uint32(b0&0x3F)<<8 | uint32(data[1]), 2, true
	case b0&0xE0 == 0xC0:
		if len(data) < 3 {
			return 0, 0, false
		}
		return uint32(b0&0x1F)<<16 | uint32(data[1])<<8 | uint32(data[2]), 3, true
	default:
		if len(data) < 4 {
			return 0, 0, false
		}
		return uint32(b0&0x1F)<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]), 4, true
	}
}

// applyVarStoreDeltas adds the (outer, inner), (outer, inner+1), ...
// deltas from store to each element of vals in place, matching
// VARC.cc's varStore.get_delta(varIdx, coords, array, cache) which
// applies one delta per array element starting at varIdx's inner index.
func applyVarStoreDeltas(store *sfnt.ItemVariationStore, varIdx uint32, vals []float64, coords []float64) {
	if store == nil {
		return
	}
	outer := uint16(varIdx >> 16)
	innerStart := uint16(varIdx & 0xFFFF)
	for i := range vals {
		vals[i] += store.Delta(outer, innerStart+uint16(i), coords)
	}
}
