package shaping

import (
	"github.com/textforge/shaping/buffer"
	"github.com/textforge/shaping/otfont"
	"github.com/textforge/shaping/unicodedata"
)

// normalize decomposes any codepoint the font cannot map directly
// (via GetNominalGlyph) into its canonical two-codepoint decomposition
// when the Unicode function table offers one, reorders marks within
// each cluster by combining class, then recomposes a reordered
// starter+mark run back into a single precomposed codepoint wherever
// the font has a nominal glyph for it — the full decompose/reorder/
// compose pass HarfBuzz runs between GSUB-map-to-nominal and GSUB
// proper (spec §4.4's Decompose/Compose collaborator, §4.7 step 6,
// §4.5 cluster semantics).
func normalize(buf *buffer.Buffer, font *otfont.Font, uni *unicodedata.Funcs) {
	reorderMarks(buf, uni)
	decomposeUnmapped(buf, font, uni)
	reorderMarks(buf, uni)
	recompose(buf, font, uni)
}

// recompose folds each reordered starter+mark run back into the
// font's precomposed glyph when uni.Compose offers one and the font
// can display it, completing the round trip decomposeUnmapped only
// half-does. Marks are tried against their starter in storage order,
// which covers a starter composing with one or several immediately
// adjacent marks but not the rarer case of an intervening mark
// blocking composition with one further away (Unicode canonical
// composition's full blocking rule, UAX #15).
func recompose(buf *buffer.Buffer, font *otfont.Font, uni *unicodedata.Funcs) {
	info := buf.Info()
	if len(info) < 2 {
		return
	}
	out := make([]buffer.GlyphInfo, 0, len(info))
	changed := false
	i := 0
	for i < len(info) {
		starter := info[i]
		if starter.ModifiedCombiningClass() != 0 {
			out = append(out, starter)
			i++
			continue
		}
		j := i + 1
		for j < len(info) && info[j].Cluster == starter.Cluster && info[j].ModifiedCombiningClass() != 0 {
			composed, ok := uni.Compose(rune(starter.Codepoint), rune(info[j].Codepoint))
			if !ok {
				break
			}
			if _, ok := font.GetNominalGlyph(composed); !ok {
				break
			}
			starter.Codepoint = buffer.Codepoint(composed)
			starter.SetUnicodeGeneralCategory(uint8(uni.GeneralCategory(composed)))
			starter.SetModifiedCombiningClass(uni.CombiningClass(composed))
			changed = true
			j++
		}
		out = append(out, starter)
		i = j
	}
	if changed {
		buf.ReplaceContents(out)
	}
}

func decomposeUnmapped(buf *buffer.Buffer, font *otfont.Font, uni *unicodedata.Funcs) {
	info := buf.Info()
	var out []buffer.GlyphInfo
	changed := false
	for i := range info {
		cp := rune(info[i].Codepoint)
		if _, ok := font.GetNominalGlyph(cp); ok {
			out = append(out, info[i])
			continue
		}
		a, b, ok := uni.Decompose(cp)
		if !ok {
			out = append(out, info[i])
			continue
		}
		changed = true
		first := info[i]
		first.Codepoint = buffer.Codepoint(a)
		second := info[i]
		second.Codepoint = buffer.Codepoint(b)
		second.SetUnicodeGeneralCategory(uint8(uni.GeneralCategory(b)))
		second.SetModifiedCombiningClass(uni.CombiningClass(b))
		out = append(out, first, second)
	}
	if changed {
		buf.ReplaceContents(out)
	}
}

// reorderMarks stable-sorts combining marks within a cluster by
// canonical combining class (Unicode Normalization Annex #15's
// canonical ordering algorithm), so e.g. a base letter followed by an
// above-mark and a below-mark always shows the below-mark first in
// storage order regardless of input order, matching NFC/NFD's
// normative mark ordering.
func reorderMarks(buf *buffer.Buffer, uni *unicodedata.Funcs) {
	info := buf.Info()
	n := len(info)
	for i := range info {
		info[i].SetUnicodeGeneralCategory(uint8(uni.GeneralCategory(rune(info[i].Codepoint))))
		info[i].SetModifiedCombiningClass(uni.CombiningClass(rune(info[i].Codepoint)))
	}
	i := 0
	for i < n {
		if info[i].ModifiedCombiningClass() == 0 {
			i++
			continue
		}
		j := i
		for j < n && info[j].ModifiedCombiningClass() != 0 && info[j].Cluster == info[i].Cluster {
			j++
		}
		for k := i + 1; k < j; k++ {
			for m := k; m > i && info[m-1].ModifiedCombiningClass() > info[m].ModifiedCombiningClass(); m-- {
				info[m-1], info[m] = info[m], info[m-1]
			}
		}
		i = j
	}
}
