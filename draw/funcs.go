// Package draw implements the glyph outline extractor (component J):
// dispatching a glyph id through the font's function table to glyf,
// CFF/CFF2, or VARC, and streaming the resulting path through a
// caller-supplied callback table (spec §4.9).
//
// Grounded on ot/outline.go's path-builder and ot/cff_outline.go's
// charstring interpreter, restructured to stream segments through
// callbacks instead of buffering a Segment slice, matching the
// draw_funcs_t callback table spec §4.9/§6 describes.
package draw

// Point is a 2D coordinate in font design units, scaled by the caller's
// x/y-scale before reaching Funcs (spec §6: "Coordinates are in font
// units scaled by the font's x_scale/y_scale").
type Point struct{ X, Y float32 }

// Funcs is the draw callback table (spec §4.9, §6): a glyph's outline is
// reported as a sequence of move_to/line_to/quadratic_to/cubic_to calls
// bracketed by close_path, mirroring HarfBuzz's draw_funcs_t record of
// function pointers plus opaque user data.
type Funcs struct {
	MoveTo    func(data any, to Point)
	LineTo    func(data any, to Point)
	QuadTo    func(data any, ctrl, to Point)
	CubicTo   func(data any, ctrl1, ctrl2, to Point)
	ClosePath func(data any)
}

// state tracks the open/closed path invariant a draw session must
// uphold (spec §8 item 8: every move_to is paired with a later
// close_path; no segment escapes outside that bracket).
type state struct {
	data       any
	funcs      Funcs
	pathOpen   bool
	startX, startY float32
	curX, curY float32
}

func newState(funcs Funcs, data any) *state {
	return &state{data: data, funcs: withQuadSynthesis(funcs)}
}

func (s *state) moveTo(p Point) {
	if s.pathOpen {
		s.closePath()
	}
	s.pathOpen = true
	s.startX, s.startY = p.X, p.Y
	s.curX, s.curY = p.X, p.Y
	if s.funcs.MoveTo != nil {
		s.funcs.MoveTo(s.data, p)
	}
}

func (s *state) lineTo(p Point) {
	if !s.pathOpen {
		return
	}
	s.curX, s.curY = p.X, p.Y
	if s.funcs.LineTo != nil {
		s.funcs.LineTo(s.data, p)
	}
}

func (s *state) quadTo(ctrl, to Point) {
	if !s.pathOpen {
		return
	}
	s.curX, s.curY = to.X, to.Y
	if s.funcs.QuadTo != nil {
		s.funcs.QuadTo(s.data, ctrl, to)
	}
}

func (s *state) cubicTo(c1, c2, to Point) {
	if !s.pathOpen {
		return
	}
	s.curX, s.curY = to.X, to.Y
	if s.funcs.CubicTo != nil {
		s.funcs.CubicTo(s.data, c1, c2, to)
	}
}

func (s *state) closePath() {
	if !s.pathOpen {
		return
	}
	s.pathOpen = false
	if s.funcs.ClosePath != nil {
		s.funcs.ClosePath(s.data)
	}
}

// withQuadSynthesis returns funcs unchanged if it implements QuadTo
// natively; otherwise it returns a copy that lowers each quadratic
// segment into one exact cubic curve with control points at
// (start + 2*ctrl)/3 and (end + 2*ctrl)/3, which reproduces the
// quadratic precisely since cubics are a strict superset.
func withQuadSynthesis(funcs Funcs) Funcs {
	if funcs.QuadTo != nil || funcs.CubicTo == nil {
		return funcs
	}
	cubic := funcs.CubicTo
	synthesized := funcs
	synthesized.QuadTo = nil
	var lastX, lastY float32
	synthesized.MoveTo = func(data any, to Point) {
		lastX, lastY = to.X, to.Y
		if funcs.MoveTo != nil {
			funcs.MoveTo(data, to)
		}
	}
	synthesized.LineTo = func(data any, to Point) {
		lastX, lastY = to.X, to.Y
		if funcs.LineTo != nil {
			funcs.LineTo(data, to)
		}
	}
	synthesized.CubicTo = func(data any, c1, c2, to Point) {
		lastX, lastY = to.X, to.Y
		cubic(data, c1, c2, to)
	}
	// This closure is installed as the table's QuadTo so callers that
	// never implement quadratic_to still draw correct curves.
	synthesized2 := synthesized
	synthesized2.QuadTo = func(data any, ctrl, to Point) {
		c1 := Point{(lastX + 2*ctrl.X) / 3, (lastY + 2*ctrl.Y) / 3}
		c2 := Point{(to.X + 2*ctrl.X) / 3, (to.Y + 2*ctrl.Y) / 3}
		cubic(data, c1, c2, to)
		lastX, lastY = to.X, to.Y
	}
	return synthesized2
}
