package draw

import "github.com/textforge/shaping/sfnt"

// Glyph draws gid's outline into the callback table funcs, dispatching
// through whichever outline format the face actually carries: VARC
// (variable composite glyphs) first, then CFF/CFF2, then glyf. coords
// are the face's active normalized variation coordinates (spec §4.9);
// pass nil for a non-variable instance.
func Glyph(face *sfnt.Face, gid sfnt.GlyphID, coords []float64, funcs Funcs, data any) bool {
	st := newState(funcs, data)
	if face.HasTable(sfnt.TagVARC) {
		if varcOutline(face, gid, coords, st) {
			return true
		}
	}
	return glyphOutlineNoVarc(face, gid, coords, st)
}

// glyphOutlineNoVarc draws gid's CFF/CFF2 or glyf outline, skipping the
// VARC dispatch — used both by the top-level Glyph entrypoint (after
// VARC has already been tried) and by the VARC engine itself when a
// component record references a glyph that is not itself VARC-covered.
func glyphOutlineNoVarc(face *sfnt.Face, gid sfnt.GlyphID, coords []float64, st *state) bool {
	if cff, err := face.CFF2(); err == nil {
		return cffOutline(cff, gid, coords, st)
	}
	if cff, err := face.CFF(); err == nil {
		return cffOutline(cff, gid, coords, st)
	}
	return glyfOutline(face, gid, coords, st, 0)
}
