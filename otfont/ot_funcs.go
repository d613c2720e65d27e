package otfont

import (
	"github.com/textforge/shaping/draw"
	"github.com/textforge/shaping/sfnt"
)

// otGetNominalGlyph resolves u through cmap, the default and only
// strategy the builtin function table offers (spec §4.3's
// get_nominal_glyph), grounded on the teacher's cmap-backed glyph
// lookup in ot/font.go.
func otGetNominalGlyph(f *Font, u rune) (sfnt.GlyphID, bool) {
	cmap, err := f.Face.Cmap()
	if err != nil {
		return 0, false
	}
	return cmap.Lookup(uint32(u))
}

func otGetVariationGlyph(f *Font, u, vs rune) (sfnt.GlyphID, bool) {
	cmap, err := f.Face.Cmap()
	if err != nil {
		return 0, false
	}
	if g, ok := cmap.LookupVariation(uint32(u), uint32(vs)); ok {
		return g, true
	}
	// Default variation-selector-ignore semantic (spec §4.3): an
	// unmapped (base, vs) pair falls back to the base glyph alone.
	return otGetNominalGlyph(f, u)
}

func otGetGlyphHAdvance(f *Font, g sfnt.GlyphID) int32 {
	hmtx, err := f.Face.Hmtx()
	if err != nil {
		return int32(f.Face.Upem()) / 2
	}
	adv := int32(hmtx.Advance(g))
	if hvar, err := f.Face.HVAR(); err == nil {
		adv += int32(hvar.AdvanceDelta(g, f.Coords()))
	}
	return adv
}

func otGetGlyphVAdvance(f *Font, g sfnt.GlyphID) int32 {
	vmtx, err := f.Face.Vmtx()
	if err != nil {
		head, _ := f.Face.Head()
		_ = head
		return int32(f.Face.Upem())
	}
	adv := int32(vmtx.Advance(g))
	if vvar, err := f.Face.VVAR(); err == nil {
		adv += int32(vvar.AdvanceDelta(g, f.Coords()))
	}
	return adv
}

func otGetGlyphHOrigin(f *Font, g sfnt.GlyphID) (int32, int32, bool) {
	return 0, 0, true
}

// otGetGlyphVOrigin composes from the horizontal origin plus the
// vertical metric's top side bearing, the default rule spec §4.3
// describes.
func otGetGlyphVOrigin(f *Font, g sfnt.GlyphID) (int32, int32, bool) {
	hx, _, _ := f.GetGlyphHOrigin(g)
	_, by, _, _, ok := f.GetGlyphExtents(g)
	if !ok {
		return hx, int32(f.Face.Upem()), true
	}
	vmtx, err := f.Face.Vmtx()
	if err != nil {
		return hx, by, true
	}
	tsb := int32(vmtx.SideBearing(g))
	return hx, by + tsb, true
}

func otGetGlyphExtents(f *Font, g sfnt.GlyphID) (int32, int32, int32, int32, bool) {
	gd, ok := f.Face.GlyphData(g)
	if ok {
		return int32(gd.XMin), int32(gd.YMax), int32(gd.XMax - gd.XMin), int32(gd.YMin - gd.YMax), true
	}
	if bx, by, w, h, ok := cffExtents(f, g); ok {
		return bx, by, w, h, true
	}
	return 0, 0, 0, 0, false
}

// cffExtents computes a CFF/CFF2 glyph's ink bounding box by tracing its
// outline through the draw package and tracking the min/max of every
// point the path visits, since CFF carries no precomputed bbox the way
// glyf's loca/glyf pair does.
func cffExtents(f *Font, g sfnt.GlyphID) (bx, by, w, h int32, ok bool) {
	var minX, minY, maxX, maxY float32
	seen := false
	track := func(p draw.Point) {
		if !seen {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			seen = true
			return
		}
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	funcs := draw.Funcs{
		MoveTo:  func(_ any, to draw.Point) { track(to) },
		LineTo:  func(_ any, to draw.Point) { track(to) },
		QuadTo:  func(_ any, ctrl, to draw.Point) { track(ctrl); track(to) },
		CubicTo: func(_ any, c1, c2, to draw.Point) { track(c1); track(c2); track(to) },
	}
	if !draw.Glyph(f.Face, g, f.Coords(), funcs, nil) || !seen {
		return 0, 0, 0, 0, false
	}
	return int32(minX), int32(maxY), int32(maxX - minX), int32(minY - maxY), true
}

// otDrawGlyph wraps the caller's callbacks with a upem-to-Font.XScale/
// YScale conversion and dispatches through draw.Glyph (spec §4.9).
func otDrawGlyph(f *Font, g sfnt.GlyphID, funcs draw.Funcs, data any) bool {
	upem := float64(f.Face.Upem())
	if upem == 0 {
		return false
	}
	xs := float64(f.XScale) / upem
	ys := float64(f.YScale) / upem
	scale := func(p draw.Point) draw.Point {
		return draw.Point{X: float32(float64(p.X) * xs), Y: float32(float64(p.Y) * ys)}
	}
	scaled := draw.Funcs{}
	if funcs.MoveTo != nil {
		scaled.MoveTo = func(d any, to draw.Point) { funcs.MoveTo(d, scale(to)) }
	}
	if funcs.LineTo != nil {
		scaled.LineTo = func(d any, to draw.Point) { funcs.LineTo(d, scale(to)) }
	}
	if funcs.QuadTo != nil {
		scaled.QuadTo = func(d any, ctrl, to draw.Point) { funcs.QuadTo(d, scale(ctrl), scale(to)) }
	}
	if funcs.CubicTo != nil {
		scaled.CubicTo = func(d any, c1, c2, to draw.Point) {
			funcs.CubicTo(d, scale(c1), scale(c2), scale(to))
		}
	}
	scaled.ClosePath = funcs.ClosePath
	return draw.Glyph(f.Face, g, f.Coords(), scaled, data)
}

func otGetGlyphContourPoint(f *Font, g sfnt.GlyphID, i int) (int32, int32, bool) {
	gd, ok := f.Face.GlyphData(g)
	if !ok || gd.Simple == nil || i < 0 || i >= len(gd.Simple.Points) {
		return 0, 0, false
	}
	p := gd.Simple.Points[i]
	return int32(p.X), int32(p.Y), true
}

func otGetGlyphName(f *Font, g sfnt.GlyphID) (string, bool) {
	post, err := f.Face.Post()
	if err == nil {
		if name, ok := post.GlyphName(g); ok {
			return name, true
		}
	}
	return "", false
}

func otGetGlyphFromName(f *Font, name string) (sfnt.GlyphID, bool) {
	post, err := f.Face.Post()
	if err != nil {
		return 0, false
	}
	return post.GlyphFromName(name)
}
