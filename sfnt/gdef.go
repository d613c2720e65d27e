package sfnt

// Glyph classes recorded by GDEF's GlyphClassDef (OpenType spec).
const (
	GlyphClassNone      = 0
	GlyphClassBase      = 1
	GlyphClassLigature  = 2
	GlyphClassMark      = 3
	GlyphClassComponent = 4
)

// GDEF is the parsed 'GDEF' table: glyph classes, mark-attachment
// classes, and mark-filtering sets, all of which the skip iterator
// (spec §4.8, component I) consults. Ligature caret lists are not
// parsed.
type GDEF struct {
	GlyphClass      ClassDef
	MarkAttachClass ClassDef
	hasGlyphClass   bool
	hasMarkAttach   bool
	markGlyphSets   []Coverage // indexed by mark-filtering-set index
}

// GDEF returns the parsed 'GDEF' table. A font with no GDEF reports a
// zero-value GDEF (every glyph class None), which is a safe default
// for shaping.
func (f *Face) GDEF() (GDEF, error) { return cachedTable(f, TagGDEF, parseGDEF) }

func parseGDEF(data []byte) (GDEF, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 12) {
		return GDEF{}, ErrInvalidTable
	}
	major, _ := c.U16(0)
	minor, _ := c.U16(2)
	if major != 1 {
		return GDEF{}, ErrInvalidTable
	}
	var g GDEF
	if off, ok := c.Offset16(4); ok {
		if cd, ok := ParseClassDef(c, off); ok {
			g.GlyphClass = cd
			g.hasGlyphClass = true
		}
	}
	if minor >= 2 {
		if off, ok := c.Offset16(10); ok {
			if cd, ok := ParseClassDef(c, off); ok {
				g.MarkAttachClass = cd
				g.hasMarkAttach = true
			}
		}
	}
	if minor >= 3 && c.CheckRange(0, 14) {
		if off, ok := c.Offset16(12); ok {
			g.markGlyphSets = parseMarkGlyphSetsDef(c, off)
		}
	}
	return g, nil
}

func parseMarkGlyphSetsDef(c *Cursor, base int) []Coverage {
	format, ok := c.U16(base)
	if !ok || format != 1 {
		return nil
	}
	count, ok := c.U16(base + 2)
	if !ok {
		return nil
	}
	out := make([]Coverage, 0, count)
	for i := 0; i < int(count); i++ {
		offOff := base + 4 + 4*i
		off, ok := c.U32(offOff)
		if !ok || off == 0 {
			out = append(out, Coverage{})
			continue
		}
		cov, ok := ParseCoverage(c, base+int(off))
		if !ok {
			out = append(out, Coverage{})
			continue
		}
		out = append(out, cov)
	}
	return out
}

// HasGlyphClassDef reports whether GDEF carries an explicit GlyphClassDef.
func (g GDEF) HasGlyphClassDef() bool { return g.hasGlyphClass }

// MarkGlyphSet returns the mark-filtering-set coverage at index, used
// by IgnoreMarks lookups that specify useMarkFilteringSet (spec §4.8).
func (g GDEF) MarkGlyphSet(index int) (Coverage, bool) {
	if index < 0 || index >= len(g.markGlyphSets) {
		return Coverage{}, false
	}
	return g.markGlyphSets[index], true
}
