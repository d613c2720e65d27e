package shaping

import "github.com/textforge/shaping/buffer"

// Unicode combining-class bands used to decide which side of the base
// glyph a mark stacks on, grounded on the teacher's constant table
// (itself Unicode Standard Chapter 4.3's canonical combining classes).
const (
	cccBelow uint8 = 220
	cccAbove uint8 = 230
)

// fallbackMarkPosition stacks any combining mark GPOS left unattached
// (AttachType still zero) above or below the preceding base glyph,
// using the font's reported advance/extents rather than real GPOS
// anchors — the same reduced-fidelity fallback HarfBuzz's
// _hb_ot_shape_fallback_mark_position provides for fonts/scripts
// without full mark-attachment coverage (spec §4.7's "GPOS absent or
// incomplete" edge case).
func fallbackMarkPosition(ctx *ApplyContext) {
	buf := ctx.Buffer
	info := buf.Info()
	positions := buf.Pos()
	n := len(info)

	i := 0
	for i < n {
		if info[i].ModifiedCombiningClass() != 0 {
			i++
			continue
		}
		base := i
		j := i + 1
		for j < n && info[j].ModifiedCombiningClass() != 0 {
			j++
		}
		stackAroundBase(ctx, base, j, info, positions)
		i = j
	}
	if n > 0 {
		buf.MarkHavePositions()
	}
}

func stackAroundBase(ctx *ApplyContext, base, end int, info []buffer.GlyphInfo, positions []buffer.GlyphPosition) {
	if end-base < 2 {
		return
	}
	baseGlyph := uint16(info[base].Codepoint)
	_, by, _, bh, ok := ctx.Font.GetGlyphExtents(baseGlyph)
	width := ctx.Font.GetGlyphHAdvance(baseGlyph)
	if !ok {
		by, bh = 0, 0
	}

	above, below := int32(0), int32(0)
	for i := base + 1; i < end; i++ {
		if positions[i].AttachType() != 0 {
			continue // GPOS already attached this mark
		}
		markGlyph := uint16(info[i].Codepoint)
		markWidth := ctx.Font.GetGlyphHAdvance(markGlyph)
		ccc := info[i].ModifiedCombiningClass()

		x := (width - markWidth) / 2
		var y int32
		switch {
		case ccc >= cccAbove:
			above += markWidth / 4
			y = by + bh + above
		case ccc >= cccBelow:
			below += markWidth / 4
			y = by - below
		default:
			y = by
		}
		positions[i].XOffset = x
		positions[i].YOffset = y
		positions[i].XAdvance = 0
		positions[i].YAdvance = 0
		positions[i].SetAttachType(2)
		positions[i].SetAttachChain(int16(base - i))
	}
}
