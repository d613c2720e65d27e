package buffer

// GlyphInfo describes one item in the buffer. Before shaping, Codepoint
// holds a Unicode code point; after GSUB/mapping it holds a glyph id.
// Mask carries feature flags during shaping and, after shaping, the
// public GlyphFlags in its low bits.
type GlyphInfo struct {
	Codepoint Codepoint
	Mask      Mask
	Cluster   uint32

	// var1/var2 hold internal shaping state (glyph class/ligature
	// tracking, Unicode properties, syllable index), mirroring
	// HarfBuzz's hb_glyph_info_t var1/var2 fields.
	var1 uint32
	var2 uint32
}

// Flags returns the public glyph flags recorded in Mask.
func (g *GlyphInfo) Flags() GlyphFlags { return GlyphFlags(g.Mask) & GlyphFlagDefined }

const (
	glyphPropsBase        uint16 = 1 << 0
	glyphPropsLigature    uint16 = 1 << 1
	glyphPropsMark        uint16 = 1 << 2
	glyphPropsComponent   uint16 = 1 << 3
	glyphPropsSubstituted uint16 = 1 << 4
	glyphPropsLigated     uint16 = 1 << 5
	glyphPropsMultiplied  uint16 = 1 << 6
)

func (g *GlyphInfo) glyphProps() uint16        { return uint16(g.var1) }
func (g *GlyphInfo) setGlyphProps(p uint16)    { g.var1 = (g.var1 &^ 0xFFFF) | uint32(p) }

// IsBase reports whether GDEF classified this glyph as a base.
func (g *GlyphInfo) IsBase() bool { return g.glyphProps()&glyphPropsBase != 0 }

// IsLigature reports whether this glyph is the output of a ligature substitution.
func (g *GlyphInfo) IsLigature() bool { return g.glyphProps()&glyphPropsLigature != 0 }

// IsMark reports whether GDEF (or Unicode category fallback) classified
// this glyph as a combining mark.
func (g *GlyphInfo) IsMark() bool { return g.glyphProps()&glyphPropsMark != 0 }

// IsComponent reports whether this glyph is a decomposed ligature component.
func (g *GlyphInfo) IsComponent() bool { return g.glyphProps()&glyphPropsComponent != 0 }

// IsSubstituted reports whether GSUB rewrote this glyph.
func (g *GlyphInfo) IsSubstituted() bool { return g.glyphProps()&glyphPropsSubstituted != 0 }

// IsLigated reports whether this glyph absorbed other glyphs via ligature.
func (g *GlyphInfo) IsLigated() bool { return g.glyphProps()&glyphPropsLigated != 0 }

// IsMultiplied reports whether this glyph was expanded from one input
// glyph into several (a multiple substitution).
func (g *GlyphInfo) IsMultiplied() bool { return g.glyphProps()&glyphPropsMultiplied != 0 }

// SetBase marks this glyph as a base.
func (g *GlyphInfo) SetBase() { g.setGlyphProps(g.glyphProps() | glyphPropsBase) }

// SetMark marks this glyph as a combining mark.
func (g *GlyphInfo) SetMark() { g.setGlyphProps(g.glyphProps() | glyphPropsMark) }

// SetLigature marks this glyph as ligature output.
func (g *GlyphInfo) SetLigature() { g.setGlyphProps(g.glyphProps() | glyphPropsLigature) }

// SetComponent marks this glyph as a ligature component.
func (g *GlyphInfo) SetComponent() { g.setGlyphProps(g.glyphProps() | glyphPropsComponent) }

// SetSubstituted marks this glyph as GSUB output.
func (g *GlyphInfo) SetSubstituted() { g.setGlyphProps(g.glyphProps() | glyphPropsSubstituted) }

// SetLigated marks this glyph as having absorbed ligature components.
func (g *GlyphInfo) SetLigated() { g.setGlyphProps(g.glyphProps() | glyphPropsLigated) }

// SetMultiplied marks this glyph as multiple-substitution output.
func (g *GlyphInfo) SetMultiplied() { g.setGlyphProps(g.glyphProps() | glyphPropsMultiplied) }

// LigID returns the ligature-group id used to pair ligated bases with
// their later-processed mark attachments.
func (g *GlyphInfo) LigID() uint8 { return uint8(g.var1 >> 16) }

// SetLigID sets the ligature-group id.
func (g *GlyphInfo) SetLigID(id uint8) { g.var1 = (g.var1 &^ (0xFF << 16)) | (uint32(id) << 16) }

// LigComp returns this glyph's component index within its ligature group.
func (g *GlyphInfo) LigComp() uint8 { return uint8(g.var1 >> 24) }

// SetLigComp sets the component index.
func (g *GlyphInfo) SetLigComp(comp uint8) { g.var1 = (g.var1 &^ (0xFF << 24)) | (uint32(comp) << 24) }

// UnicodeGeneralCategory returns the 5-bit general category cached in var2.
func (g *GlyphInfo) UnicodeGeneralCategory() uint8 { return uint8(g.var2 & 0x1F) }

// SetUnicodeGeneralCategory caches a general category value.
func (g *GlyphInfo) SetUnicodeGeneralCategory(gc uint8) {
	g.var2 = (g.var2 &^ 0x1F) | uint32(gc&0x1F)
}

// ModifiedCombiningClass returns the cached (possibly shaper-rewritten)
// canonical combining class.
func (g *GlyphInfo) ModifiedCombiningClass() uint8 { return uint8(g.var2 >> 8) }

// SetModifiedCombiningClass sets the cached combining class.
func (g *GlyphInfo) SetModifiedCombiningClass(ccc uint8) {
	g.var2 = (g.var2 &^ (0xFF << 8)) | (uint32(ccc) << 8)
}

// Syllable returns the complex shaper's syllable index for this glyph.
func (g *GlyphInfo) Syllable() uint8 { return uint8(g.var2 >> 24) }

// SetSyllable sets the syllable index.
func (g *GlyphInfo) SetSyllable(s uint8) { g.var2 = (g.var2 &^ (0xFF << 24)) | (uint32(s) << 24) }

// GlyphPosition holds the positioning deltas GPOS (or fallback
// positioning) produces for one glyph.
type GlyphPosition struct {
	XAdvance, YAdvance Position
	XOffset, YOffset   Position

	attach uint32 // attachment type (low byte) + chain index (high 16 bits)
}

// AttachType returns the cursive/mark attachment type recorded during GPOS.
func (p *GlyphPosition) AttachType() uint8 { return uint8(p.attach) }

// SetAttachType sets the attachment type.
func (p *GlyphPosition) SetAttachType(t uint8) { p.attach = (p.attach &^ 0xFF) | uint32(t) }

// AttachChain returns the signed glyph offset to this glyph's attachment anchor.
func (p *GlyphPosition) AttachChain() int16 { return int16(p.attach >> 16) }

// SetAttachChain sets the attachment chain offset.
func (p *GlyphPosition) SetAttachChain(c int16) {
	p.attach = (p.attach &^ 0xFFFF0000) | (uint32(uint16(c)) << 16)
}
