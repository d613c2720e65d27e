// Package otfont implements the font-level function table (component D):
// a Font wraps an sfnt.Face with device scale, variation coordinates, and
// synthetic emboldening/slant, and dispatches glyph queries through a
// pluggable, composable set of functions the way the teacher's ot.Font
// dispatches glyph metric and outline queries through its own table.
package otfont

import (
	"sync"

	"github.com/textforge/shaping/draw"
	"github.com/textforge/shaping/sfnt"
)

// Funcs is the font function table (spec §4.3): every glyph query goes
// through here so a caller can swap in an external backend (e.g. a
// different outline engine) while the defaults compose from simpler ops.
type Funcs struct {
	GetNominalGlyph    func(f *Font, u rune) (sfnt.GlyphID, bool)
	GetVariationGlyph  func(f *Font, u rune, vs rune) (sfnt.GlyphID, bool)
	GetGlyphHAdvance   func(f *Font, g sfnt.GlyphID) int32
	GetGlyphVAdvance   func(f *Font, g sfnt.GlyphID) int32
	GetGlyphHOrigin    func(f *Font, g sfnt.GlyphID) (x, y int32, ok bool)
	GetGlyphVOrigin    func(f *Font, g sfnt.GlyphID) (x, y int32, ok bool)
	GetGlyphExtents    func(f *Font, g sfnt.GlyphID) (bx, by, w, h int32, ok bool)
	GetGlyphContourPoint func(f *Font, g sfnt.GlyphID, i int) (x, y int32, ok bool)
	GetGlyphName       func(f *Font, g sfnt.GlyphID) (string, bool)
	GetGlyphFromName   func(f *Font, name string) (sfnt.GlyphID, bool)
	DrawGlyph          func(f *Font, g sfnt.GlyphID, funcs draw.Funcs, data any) bool
}

// defaultFuncs builds the standard OpenType-backed function table;
// SetFuncs fills every nil field of a caller-supplied table from these.
var defaultFuncs = Funcs{
	GetNominalGlyph:   otGetNominalGlyph,
	GetVariationGlyph: otGetVariationGlyph,
	GetGlyphHAdvance:  otGetGlyphHAdvance,
	GetGlyphVAdvance:  otGetGlyphVAdvance,
	GetGlyphHOrigin:   otGetGlyphHOrigin,
	GetGlyphVOrigin:   otGetGlyphVOrigin,
	GetGlyphExtents:   otGetGlyphExtents,
	GetGlyphContourPoint: otGetGlyphContourPoint,
	GetGlyphName:      otGetGlyphName,
	GetGlyphFromName:  otGetGlyphFromName,
	DrawGlyph:         otDrawGlyph,
}

// Font is a sized, variation-instantiated view of an sfnt.Face (spec
// §4.3). Multiple Fonts commonly share one immutable Face.
type Font struct {
	Face *sfnt.Face

	XScale, YScale int32 // target units per em; NewFont sets both to the face's upem
	XPpem, YPpem   uint16
	Ptem           float32

	SyntheticBold  float32 // embolden amount, in font units at upem scale; 0 = none
	SyntheticSlant float32 // shear ratio (dx per unit y); 0 = none

	funcs Funcs

	mu             sync.RWMutex
	coords         []float64      // normalized, one per fvar axis
	designCoords   map[sfnt.Tag]float64
}

// NewFont creates a Font over face at the face's natural upem scale.
func NewFont(face *sfnt.Face) *Font {
	upem := int32(face.Upem())
	return &Font{Face: face, XScale: upem, YScale: upem, funcs: defaultFuncs}
}

// SetFuncs installs a caller-supplied function table; any nil field
// keeps falling back to the OpenType default for that operation.
func (f *Font) SetFuncs(custom Funcs) {
	merged := defaultFuncs
	if custom.GetNominalGlyph != nil {
		merged.GetNominalGlyph = custom.GetNominalGlyph
	}
	if custom.GetVariationGlyph != nil {
		merged.GetVariationGlyph = custom.GetVariationGlyph
	}
	if custom.GetGlyphHAdvance != nil {
		merged.GetGlyphHAdvance = custom.GetGlyphHAdvance
	}
	if custom.GetGlyphVAdvance != nil {
		merged.GetGlyphVAdvance = custom.GetGlyphVAdvance
	}
	if custom.GetGlyphHOrigin != nil {
		merged.GetGlyphHOrigin = custom.GetGlyphHOrigin
	}
	if custom.GetGlyphVOrigin != nil {
		merged.GetGlyphVOrigin = custom.GetGlyphVOrigin
	}
	if custom.GetGlyphExtents != nil {
		merged.GetGlyphExtents = custom.GetGlyphExtents
	}
	if custom.GetGlyphContourPoint != nil {
		merged.GetGlyphContourPoint = custom.GetGlyphContourPoint
	}
	if custom.GetGlyphName != nil {
		merged.GetGlyphName = custom.GetGlyphName
	}
	if custom.GetGlyphFromName != nil {
		merged.GetGlyphFromName = custom.GetGlyphFromName
	}
	if custom.DrawGlyph != nil {
		merged.DrawGlyph = custom.DrawGlyph
	}
	f.funcs = merged
}

// SetVariations resolves design-space (tag, value) pairs against the
// face's fvar/avar tables into normalized coordinates (spec §4.3).
func (f *Font) SetVariations(vars map[sfnt.Tag]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.designCoords = vars
	f.coords = f.Face.NormalizeCoords(vars)
}

// SetNamedInstance selects a named instance from fvar by index,
// resolving its stored design-space coordinates the same way
// SetVariations does.
func (f *Font) SetNamedInstance(index int) bool {
	fvar, err := f.Face.Fvar()
	if err != nil || index < 0 || index >= len(fvar.Instances) {
		return false
	}
	inst := fvar.Instances[index]
	vars := make(map[sfnt.Tag]float64, len(fvar.Axes))
	for i, axis := range fvar.Axes {
		if i < len(inst.Coordinates) {
			vars[axis.Tag] = inst.Coordinates[i]
		}
	}
	f.SetVariations(vars)
	return true
}

// Coords returns the current normalized variation coordinates.
func (f *Font) Coords() []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.coords
}

// GetNominalGlyph resolves a Unicode code point to a glyph id.
func (f *Font) GetNominalGlyph(u rune) (sfnt.GlyphID, bool) { return f.funcs.GetNominalGlyph(f, u) }

// GetNominalGlyphs batches GetNominalGlyph; the default composes one
// call per rune, matching spec §4.3's "default batched op" rule.
func (f *Font) GetNominalGlyphs(us []rune) []sfnt.GlyphID {
	out := make([]sfnt.GlyphID, len(us))
	for i, u := range us {
		out[i], _ = f.GetNominalGlyph(u)
	}
	return out
}

// GetVariationGlyph resolves a (base, variation-selector) pair.
func (f *Font) GetVariationGlyph(u, vs rune) (sfnt.GlyphID, bool) {
	return f.funcs.GetVariationGlyph(f, u, vs)
}

// GetGlyphHAdvance returns the horizontal advance, in font design units.
func (f *Font) GetGlyphHAdvance(g sfnt.GlyphID) int32 { return f.funcs.GetGlyphHAdvance(f, g) }

// GetGlyphVAdvance returns the vertical advance, in font design units.
func (f *Font) GetGlyphVAdvance(g sfnt.GlyphID) int32 { return f.funcs.GetGlyphVAdvance(f, g) }

// GetGlyphHAdvances batches GetGlyphHAdvance.
func (f *Font) GetGlyphHAdvances(gs []sfnt.GlyphID) []int32 {
	out := make([]int32, len(gs))
	for i, g := range gs {
		out[i] = f.GetGlyphHAdvance(g)
	}
	return out
}

// GetGlyphVAdvances batches GetGlyphVAdvance.
func (f *Font) GetGlyphVAdvances(gs []sfnt.GlyphID) []int32 {
	out := make([]int32, len(gs))
	for i, g := range gs {
		out[i] = f.GetGlyphVAdvance(g)
	}
	return out
}

// GetGlyphHOrigin returns the horizontal origin of g, if the font
// defines one explicitly (most don't; it defaults to (0,0)).
func (f *Font) GetGlyphHOrigin(g sfnt.GlyphID) (x, y int32, ok bool) {
	return f.funcs.GetGlyphHOrigin(f, g)
}

// GetGlyphVOrigin returns the vertical origin of g. The default
// composes it from the horizontal origin plus a vertical metric (spec
// §4.3's "default v-origin computes from h-origin plus a vertical
// metric").
func (f *Font) GetGlyphVOrigin(g sfnt.GlyphID) (x, y int32, ok bool) {
	return f.funcs.GetGlyphVOrigin(f, g)
}

// GetGlyphExtents returns g's ink bounding box in font design units.
func (f *Font) GetGlyphExtents(g sfnt.GlyphID) (bx, by, w, h int32, ok bool) {
	return f.funcs.GetGlyphExtents(f, g)
}

// GetGlyphContourPoint returns the i'th point of g's outline (used by
// mark attachment fallback and some complex shapers' anchor heuristics).
func (f *Font) GetGlyphContourPoint(g sfnt.GlyphID, i int) (x, y int32, ok bool) {
	return f.funcs.GetGlyphContourPoint(f, g, i)
}

// GetGlyphName resolves a glyph id to its PostScript name.
func (f *Font) GetGlyphName(g sfnt.GlyphID) (string, bool) { return f.funcs.GetGlyphName(f, g) }

// GetGlyphFromName resolves a PostScript name back to a glyph id.
func (f *Font) GetGlyphFromName(name string) (sfnt.GlyphID, bool) {
	return f.funcs.GetGlyphFromName(f, name)
}

// DrawGlyph traces g's outline through funcs, in this Font's XScale/
// YScale units (spec §4.9).
func (f *Font) DrawGlyph(g sfnt.GlyphID, funcs draw.Funcs, data any) bool {
	return f.funcs.DrawGlyph(f, g, funcs, data)
}

// ScaleX converts a font-design-unit X value into the Font's XScale units.
func (f *Font) ScaleX(v int32) int32 {
	upem := int32(f.Face.Upem())
	if upem == 0 {
		return v
	}
	return v * f.XScale / upem
}

// ScaleY converts a font-design-unit Y value into the Font's YScale units.
func (f *Font) ScaleY(v int32) int32 {
	upem := int32(f.Face.Upem())
	if upem == 0 {
		return v
	}
	return v * f.YScale / upem
}
