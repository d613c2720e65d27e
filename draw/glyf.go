package draw

import "github.com/textforge/shaping/sfnt"

// maxCompositeDepth bounds composite-glyph recursion the same way VARC
// bounds its own recursion (spec §4.9, §8 item 9's termination
// property generalizes to every recursive outline format).
const maxCompositeDepth = 16

// glyfPathBuilder turns TrueType on/off-curve contour points into the
// move_to/quad_to/line_to/close_path sequence spec §4.9 requires,
// synthesizing the implicit on-curve midpoint between two consecutive
// off-curve points. Ported from ot/outline.go's pathBuilder, restructured
// to write directly into a draw state instead of a Segment slice.
type glyfPathBuilder struct {
	st *state

	firstOnCurve, firstOffCurve, lastOffCurve *Point
}

func (pb *glyfPathBuilder) consume(p Point, onCurve bool) {
	if pb.firstOnCurve == nil && pb.firstOffCurve == nil && pb.lastOffCurve == nil {
		if onCurve {
			v := p
			pb.firstOnCurve = &v
			pb.st.moveTo(p)
		} else {
			v := p
			pb.firstOffCurve = &v
		}
		return
	}

	if pb.firstOnCurve == nil {
		if onCurve {
			v := p
			pb.firstOnCurve = &v
			pb.st.moveTo(p)
		} else {
			mid := midpoint(*pb.firstOffCurve, p)
			v := mid
			pb.firstOnCurve = &v
			pb.st.moveTo(mid)
			off := p
			pb.lastOffCurve = &off
		}
		return
	}

	if pb.lastOffCurve != nil {
		if onCurve {
			pb.st.quadTo(*pb.lastOffCurve, p)
			pb.lastOffCurve = nil
		} else {
			mid := midpoint(*pb.lastOffCurve, p)
			pb.st.quadTo(*pb.lastOffCurve, mid)
			off := p
			pb.lastOffCurve = &off
		}
		return
	}

	if onCurve {
		pb.st.lineTo(p)
	} else {
		off := p
		pb.lastOffCurve = &off
	}
}

func (pb *glyfPathBuilder) end() {
	defer pb.reset()

	if pb.firstOnCurve == nil {
		if pb.firstOffCurve != nil && pb.lastOffCurve != nil {
			mid := midpoint(*pb.firstOffCurve, *pb.lastOffCurve)
			pb.st.moveTo(mid)
			pb.st.quadTo(*pb.lastOffCurve, *pb.firstOffCurve)
			pb.st.quadTo(*pb.firstOffCurve, mid)
			pb.st.closePath()
		}
		return
	}

	switch {
	case pb.lastOffCurve != nil && pb.firstOffCurve != nil:
		mid := midpoint(*pb.lastOffCurve, *pb.firstOffCurve)
		pb.st.quadTo(*pb.lastOffCurve, mid)
		pb.st.quadTo(*pb.firstOffCurve, *pb.firstOnCurve)
	case pb.lastOffCurve != nil:
		pb.st.quadTo(*pb.lastOffCurve, *pb.firstOnCurve)
	case pb.firstOffCurve != nil:
		pb.st.quadTo(*pb.firstOffCurve, *pb.firstOnCurve)
	default:
		pb.st.lineTo(*pb.firstOnCurve)
	}
	pb.st.closePath()
}

func (pb *glyfPathBuilder) reset() {
	pb.firstOnCurve, pb.firstOffCurve, pb.lastOffCurve = nil, nil, nil
}

func midpoint(a, b Point) Point {
	return Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
}

// glyfOutline draws gid's 'glyf' outline into st, applying gvar point
// deltas at coords (if any) before tracing contours, and recursing
// (bounded by depth) into composite components.
func glyfOutline(face *sfnt.Face, gid sfnt.GlyphID, coords []float64, st *state, depth int) bool {
	if depth > maxCompositeDepth {
		return false
	}
	gd, ok := face.GlyphData(gid)
	if !ok {
		return false
	}

	switch {
	case gd.Simple != nil:
		points := applySimpleDeltas(face, gid, gd.Simple, coords)
		return drawSimpleGlyph(gd.Simple, points, st)
	case len(gd.Composite) > 0:
		return drawCompositeGlyph(face, gid, gd.Composite, coords, st, depth)
	default:
		return false
	}
}

// applySimpleDeltas resolves gvar deltas (if present) onto a simple
// glyph's on-file points; absent gvar or a non-variable font is a no-op.
func applySimpleDeltas(face *sfnt.Face, gid sfnt.GlyphID, g *sfnt.SimpleGlyph, coords []float64) []sfnt.GlyphPoint {
	if len(coords) == 0 {
		return g.Points
	}
	gvar, err := face.Gvar()
	if err != nil {
		return g.Points
	}
	deltas, ok := gvar.GlyphDeltas(gid, len(g.Points)+4, coords)
	if !ok {
		return g.Points
	}
	out := make([]sfnt.GlyphPoint, len(g.Points))
	for i, p := range g.Points {
		out[i] = sfnt.GlyphPoint{
			X:       p.X + deltas[i].X,
			Y:       p.Y + deltas[i].Y,
			OnCurve: p.OnCurve,
		}
	}
	return out
}

func drawSimpleGlyph(g *sfnt.SimpleGlyph, points []sfnt.GlyphPoint, st *state) bool {
	if len(g.EndPts) == 0 {
		return false
	}
	pb := glyfPathBuilder{st: st}
	contour := 0
	for i, p := range points {
		pb.consume(Point{float32(p.X), float32(p.Y)}, p.OnCurve)
		if contour < len(g.EndPts) && uint16(i) == g.EndPts[contour] {
			pb.end()
			contour++
		}
	}
	return true
}

func drawCompositeGlyph(face *sfnt.Face, parent sfnt.GlyphID, comps []sfnt.CompositeComponent, coords []float64, st *state, depth int) bool {
	offsets := applyCompositeDeltas(face, parent, comps, coords)
	drew := false
	for i, comp := range comps {
		dx, dy := comp.Dx, comp.Dy
		if i < len(offsets) {
			dx += offsets[i].X
			dy += offsets[i].Y
		}
		sub := newState(passthrough(st, comp, dx, dy), nil)
		if glyfOutline(face, comp.GlyphIndex, coords, sub, depth+1) {
			drew = true
		}
	}
	return drew
}

// applyCompositeDeltas resolves gvar's per-component offset deltas; the
// gvar spec treats each component origin as one point of the variation
// store, followed by the usual four phantom points.
func applyCompositeDeltas(face *sfnt.Face, gid sfnt.GlyphID, comps []sfnt.CompositeComponent, coords []float64) []struct{ X, Y float64 } {
	out := make([]struct{ X, Y float64 }, len(comps))
	if len(coords) == 0 {
		return out
	}
	gvar, err := face.Gvar()
	if err != nil {
		return out
	}
	deltas, ok := gvar.GlyphDeltas(gid, len(comps)+4, coords)
	if !ok {
		return out
	}
	for i := range comps {
		out[i].X = float64(deltas[i].X)
		out[i].Y = float64(deltas[i].Y)
	}
	return out
}

// passthrough builds a Funcs table that applies comp's affine transform
// (plus the resolved gvar translation) to every point before forwarding
// to parent's callbacks, implementing composite-glyph composition
// without building an intermediate segment list.
func passthrough(parent *state, comp sfnt.CompositeComponent, dx, dy float64) Funcs {
	transform := func(p Point) Point {
		x := float64(p.X)*comp.ScaleX + float64(p.Y)*comp.Scale10 + dx
		y := float64(p.X)*comp.Scale01 + float64(p.Y)*comp.ScaleY + dy
		return Point{float32(x), float32(y)}
	}
	return Funcs{
		MoveTo:  func(_ any, to Point) { parent.moveTo(transform(to)) },
		LineTo:  func(_ any, to Point) { parent.lineTo(transform(to)) },
		QuadTo:  func(_ any, ctrl, to Point) { parent.quadTo(transform(ctrl), transform(to)) },
		CubicTo: func(_ any, c1, c2, to Point) { parent.cubicTo(transform(c1), transform(c2), transform(to)) },
		ClosePath: func(_ any) { parent.closePath() },
	}
}
