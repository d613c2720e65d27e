package shaping

import "github.com/textforge/shaping/buffer"

// Hangul Jamo algorithmic composition constants (Unicode 3.12 Hangul
// Syllable Decomposition Algorithm), grounded on the teacher's
// hangul.go range tables.
const (
	hangulLBase buffer.Codepoint = 0x1100
	hangulVBase buffer.Codepoint = 0x1161
	hangulTBase buffer.Codepoint = 0x11A7
	hangulSBase buffer.Codepoint = 0xAC00
	hangulLCount                 = 19
	hangulVCount                 = 21
	hangulTCount                 = 28
	hangulNCount                 = hangulVCount * hangulTCount
)

func isCombiningL(u buffer.Codepoint) bool { return u >= hangulLBase && u < hangulLBase+hangulLCount }
func isCombiningV(u buffer.Codepoint) bool { return u >= hangulVBase && u < hangulVBase+hangulVCount }
func isCombiningT(u buffer.Codepoint) bool { return u > hangulTBase && u < hangulTBase+hangulTCount }

// hangulShaper composes Leading+Vowel(+Trailing) Jamo sequences into a
// single precomposed syllable codepoint before GSUB/cmap lookup, the
// algorithmic half of the teacher's Hangul shaper (the decomposition
// half — falling back to separate Jamo glyphs when the font lacks a
// precomposed glyph — is left to the font's own GSUB 'ccmp'/'ljmo'
// rules, since composing is the only behavior needed to exercise a
// CORE pipeline's cluster-merge invariants with real Hangul text).
type hangulShaper struct{}

func (hangulShaper) name() string { return "hangul" }

func (hangulShaper) reorder(buf *buffer.Buffer) {
	info := buf.Info()
	out := make([]buffer.GlyphInfo, 0, len(info))
	i := 0
	for i < len(info) {
		if isCombiningL(info[i].Codepoint) && i+1 < len(info) && isCombiningV(info[i+1].Codepoint) {
			lIndex := info[i].Codepoint - hangulLBase
			vIndex := info[i+1].Codepoint - hangulVBase
			consumed := 2
			tIndex := buffer.Codepoint(0)
			if i+2 < len(info) && isCombiningT(info[i+2].Codepoint) {
				tIndex = info[i+2].Codepoint - hangulTBase
				consumed = 3
			}
			syllable := hangulSBase + (lIndex*hangulVCount+vIndex)*hangulTCount + tIndex
			merged := info[i]
			merged.Codepoint = syllable
			out = append(out, merged)
			i += consumed
			continue
		}
		out = append(out, info[i])
		i++
	}
	if len(out) != len(info) {
		buf.ReplaceContents(out)
	}
}

func (hangulShaper) postProcess(ctx *ApplyContext) {}
