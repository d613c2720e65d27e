package shaping

import "github.com/textforge/shaping/buffer"

// indicShaper covers the Brahmic-derived scripts (Devanagari, Bengali,
// Gurmukhi, Gujarati, Oriya, Tamil, Telugu, Kannada, Malayalam,
// Sinhala). The teacher's indic.go reorders a syllable's
// left-matra/reph glyphs around a detected base consonant via a
// Ragel-generated syllable classifier (indic_machine.go); that
// classifier is not ported here (see the complexShaper doc comment),
// so pre-base matra reordering across a whole syllable is not
// performed. What this shaper does provide is fallback positioning for
// any mark with a non-zero combining class (a virama or nukta, for
// example) the font's GPOS doesn't anchor explicitly; vowel signs with
// combining class 0, which is most of them, are treated as bases. This
// recovers correct rendering for
// fonts whose GSUB already supplies correctly-ordered glyphs (most
// shaping engines' test fonts included) even without the reordering
// pass.
type indicShaper struct{}

func (indicShaper) name() string           { return "indic" }
func (indicShaper) reorder(*buffer.Buffer) {}

func (indicShaper) postProcess(ctx *ApplyContext) {
	fallbackMarkPosition(ctx)
}
