package shaping

import "github.com/textforge/shaping/buffer"

// maxAttachChainDepth bounds propagateAttachmentOffsets's recursion
// against a malformed font whose mark-to-base or cursive chains cycle
// back on themselves.
const maxAttachChainDepth = 32

// propagateAttachmentOffsets folds mark-to-base/mark-to-mark and
// cursive attachment chains into absolute glyph offsets (spec §4.7
// step 8's postprocess "apply cursive attach chains (propagate
// attachment x/y offsets along chains...)"). markToBase.apply and
// cursivePos.apply each record only the delta between a glyph and its
// immediate attachment parent (attachTypeMark/attachTypeCursive,
// AttachChain holding the parent's relative index); this walks every
// chain once, parent before child, adding each resolved parent's
// offset into its children. attachTypeFallback glyphs already carry
// an absolute, self-contained offset from fallbackMarkPosition and are
// left untouched. Must run before any direction-reversing
// buf.Reverse(), while AttachChain's relative indices still refer to
// the array positions they were recorded against.
func propagateAttachmentOffsets(buf *buffer.Buffer) {
	positions := buf.Pos()
	horizontal := buf.Props.Direction.IsHorizontal()
	resolved := make([]bool, len(positions))

	var resolve func(i, depth int)
	resolve = func(i, depth int) {
		if i < 0 || i >= len(positions) || resolved[i] {
			return
		}
		resolved[i] = true
		pos := &positions[i]
		attachType := pos.AttachType()
		if attachType != attachTypeMark && attachType != attachTypeCursive {
			return
		}
		if depth >= maxAttachChainDepth {
			pos.SetAttachChain(0)
			return
		}
		parent := i + int(pos.AttachChain())
		if parent == i || parent < 0 || parent >= len(positions) {
			pos.SetAttachChain(0)
			return
		}
		resolve(parent, depth+1)
		if attachType == attachTypeCursive {
			// Cursive attachment only carries the cross-direction
			// offset forward; the in-direction offset is governed by
			// the glyphs' own advances, not inherited from the parent.
			if horizontal {
				pos.YOffset += positions[parent].YOffset
			} else {
				pos.XOffset += positions[parent].XOffset
			}
		} else {
			pos.XOffset += positions[parent].XOffset
			pos.YOffset += positions[parent].YOffset
		}
		pos.SetAttachChain(0)
	}

	for i := range positions {
		resolve(i, 0)
	}
}
