package shaping

import (
	"github.com/textforge/shaping/buffer"
	"github.com/textforge/shaping/otfont"
	"github.com/textforge/shaping/unicodedata"
)

// Shape runs the full OpenType shaping pipeline over buf using font
// (spec §4.7): run the complex shaper's reorder pass, normalize, map
// each code point to its nominal glyph, run the Arabic joining pass
// (Arabic-type scripts only), apply the plan's GSUB lookups, then its
// GPOS lookups, then the complex shaper's post-processing (fallback
// mark positioning) and attachment-offset propagation. For backward
// directions the buffer is reversed last, so the output is in visual
// order. buf must already
// hold Unicode content with a resolved SegmentProperties (call
// buf.GuessSegmentProperties first if unset).
func Shape(font *otfont.Font, buf *buffer.Buffer, uni *unicodedata.Funcs, features ...UserFeature) {
	if uni == nil {
		uni = unicodedata.Default
	}
	buf.Enter()
	defer buf.Leave()

	plan := BuildPlan(font, buf.Props, features)

	setupMasks(buf, plan, features)

	ctx := &ApplyContext{
		Buffer:    buf,
		Font:      font,
		GDEF:      plan.GDEF,
		Direction: buf.Props.Direction,
		AutoZWJ:   true,
		AutoZWNJ:  true,
		recurse:   recurseInto(plan),
	}

	plan.Complex.reorder(buf)

	normalize(buf, font, uni)

	mapToNominalGlyphs(buf, font)

	if arabic, ok := plan.Complex.(arabicShaper); ok {
		ctx.Table = TableGSUB
		arabic.applyJoining(ctx, plan)
	}

	if plan.GSUB != nil {
		ctx.Table = TableGSUB
		for _, lookupIdx := range plan.GSUBLookups {
			runGSUBLookup(ctx, plan, lookupIdx)
			if buf.ShapingFailed() {
				break
			}
		}
	}

	if plan.GPOS != nil {
		ctx.Table = TableGPOS
		zeroPositions(buf)
		for _, lookupIdx := range plan.GPOSLookups {
			runGPOSLookup(ctx, plan, lookupIdx)
			if buf.ShapingFailed() {
				break
			}
		}
	}

	if !buf.HavePositions() {
		zeroPositions(buf)
		setAdvancesFromFont(buf, font)
	}

	plan.Complex.postProcess(ctx)

	propagateAttachmentOffsets(buf)

	if buf.Props.Direction.IsBackward() {
		buf.Reverse()
	}
}

// setupMasks implements spec §4.7 step 1: seed every glyph with the
// plan's default-enabled feature bits, then OR (or clear) each
// caller-requested feature's bit into the masks of items whose
// cluster falls in [start,end) — buf.SetMasks already restricts the
// write to mask's own bits, so a single call handles both a global
// override (the whole buffer) and a ranged one.
func setupMasks(buf *buffer.Buffer, plan *ShapePlan, features []UserFeature) {
	buf.ResetMasks(plan.GlobalMask)
	for _, f := range features {
		bit, ok := plan.FeatureBits[f.Tag]
		if !ok || f.End <= f.Start {
			continue
		}
		value := buffer.Mask(0)
		if f.Value != 0 {
			value = bit
		}
		buf.SetMasks(value, bit, f.Start, f.End)
	}
}

func recurseInto(plan *ShapePlan) func(ctx *ApplyContext, lookupIndex uint16) bool {
	return func(ctx *ApplyContext, lookupIndex uint16) bool {
		switch ctx.Table {
		case TableGSUB:
			if plan.GSUB == nil {
				return false
			}
			return plan.GSUB.Apply(ctx, int(lookupIndex))
		default:
			if plan.GPOS == nil {
				return false
			}
			return plan.GPOS.Apply(ctx, int(lookupIndex))
		}
	}
}

func mapToNominalGlyphs(buf *buffer.Buffer, font *otfont.Font) {
	info := buf.Info()
	for i := range info {
		g, ok := font.GetNominalGlyph(rune(info[i].Codepoint))
		if !ok {
			g, _ = font.GetNominalGlyph(rune(buf.NotFound))
		}
		info[i].Codepoint = buffer.Codepoint(g)
	}
	buf.UpdateDigest()
}

// runGSUBLookup applies lookupIdx across the whole buffer, honoring
// the per-cluster feature mask setupMasks wrote: a glyph whose mask
// shares no bit with the lookup's required mask (plan.GSUBLookupMask,
// 0 meaning unconditional) is passed over untouched, the mechanism
// spec §4.7 step 1 describes for turning a feature on/off over a
// range. ctx.AltIndex is set once per lookup run so Alternate
// Substitution subtables (spec §4.8) can honor a caller-chosen index.
func runGSUBLookup(ctx *ApplyContext, plan *ShapePlan, lookupIdx int) {
	buf := ctx.Buffer
	mask := plan.GSUBLookupMask[lookupIdx]
	ctx.AltIndex = plan.GSUBAltIndex[lookupIdx]
	buf.StartProcessing()
	for buf.Idx() < buf.Len() {
		if !buf.SpendOps(1) {
			break
		}
		if info := buf.CurInfo(); mask != 0 && info != nil && info.Mask&mask == 0 {
			buf.NextGlyph()
			continue
		}
		if !plan.GSUB.Apply(ctx, lookupIdx) {
			buf.NextGlyph()
		}
	}
	buf.StopProcessing()
}

func runGPOSLookup(ctx *ApplyContext, plan *ShapePlan, lookupIdx int) {
	buf := ctx.Buffer
	mask := plan.GPOSLookupMask[lookupIdx]
	idx := 0
	for idx < buf.Len() {
		if !buf.SpendOps(1) {
			break
		}
		buf.SetIdx(idx)
		if info := buf.CurInfo(); mask != 0 && info != nil && info.Mask&mask == 0 {
			idx++
			continue
		}
		plan.GPOS.Apply(ctx, lookupIdx)
		next := buf.Idx()
		if next <= idx {
			next = idx + 1
		}
		idx = next
	}
}

func zeroPositions(buf *buffer.Buffer) {
	positions := buf.Pos()
	for i := range positions {
		positions[i] = buffer.GlyphPosition{}
	}
}

func setAdvancesFromFont(buf *buffer.Buffer, font *otfont.Font) {
	info := buf.Info()
	positions := buf.Pos()
	horizontal := buf.Props.Direction.IsHorizontal()
	for i := range info {
		g := uint16(info[i].Codepoint)
		if horizontal {
			positions[i].XAdvance = font.GetGlyphHAdvance(g)
		} else {
			positions[i].YAdvance = -font.GetGlyphVAdvance(g)
		}
	}
	buf.MarkHavePositions()
}
