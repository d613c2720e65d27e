package shaping

import (
	"github.com/textforge/shaping/buffer"
	"github.com/textforge/shaping/sfnt"
)

// valueFormat bits select which ValueRecord fields are present on disk
// (OpenType GPOS ValueFormat), in storage order.
type valueFormat uint16

const (
	vfXPlacement valueFormat = 1 << iota
	vfYPlacement
	vfXAdvance
	vfYAdvance
	vfXPlaDevice
	vfYPlaDevice
	vfXAdvDevice
	vfYAdvDevice
)

// valueRecord holds the four positioning deltas GPOS ValueRecords carry
// (device-table fine-tuning is a Non-goal for the CORE pipeline; it only
// refines values at specific ppem and is not needed for correct shaping).
type valueRecord struct {
	xPlacement, yPlacement, xAdvance, yAdvance int16
}

// size returns the number of bytes a ValueRecord with this format
// occupies on disk.
func (f valueFormat) size() int {
	n := 0
	for b := valueFormat(1); b <= vfYAdvDevice; b <<= 1 {
		if f&b != 0 {
			n += 2
		}
	}
	return n
}

func parseValueRecord(c *sfnt.Cursor, offset int, format valueFormat) (valueRecord, bool) {
	var vr valueRecord
	pos := offset
	read := func() (int16, bool) {
		v, ok := c.I16(pos)
		pos += 2
		return v, ok
	}
	if format&vfXPlacement != 0 {
		v, ok := read()
		if !ok {
			return vr, false
		}
		vr.xPlacement = v
	}
	if format&vfYPlacement != 0 {
		v, ok := read()
		if !ok {
			return vr, false
		}
		vr.yPlacement = v
	}
	if format&vfXAdvance != 0 {
		v, ok := read()
		if !ok {
			return vr, false
		}
		vr.xAdvance = v
	}
	if format&vfYAdvance != 0 {
		v, ok := read()
		if !ok {
			return vr, false
		}
		vr.yAdvance = v
	}
	// Device/variation-index offsets (4 more possible fields) are
	// skipped: pos already advances past xAdvance above; any remaining
	// fields just consume bytes we don't interpret.
	return vr, true
}

func (vr valueRecord) apply(pos *buffer.GlyphPosition) {
	pos.XOffset += int32(vr.xPlacement)
	pos.YOffset += int32(vr.yPlacement)
	pos.XAdvance += int32(vr.xAdvance)
	pos.YAdvance += int32(vr.yAdvance)
}
