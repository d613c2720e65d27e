// Package shaping implements the OpenType shaping engine (components
// G, H, I): the shape-plan cache, the GSUB/GPOS lookup-application
// pipeline with its skip iterator, and the complex-shaper dispatch
// that picks per-script reordering and mark-placement behavior,
// adapted from the teacher's ot package.
package shaping

import "github.com/textforge/shaping/sfnt"

// LookupFlag bits control the skip iterator (spec §4.8): which glyph
// classes a lookup ignores while walking input/context.
type LookupFlag uint16

const (
	LookupFlagRightToLeft         LookupFlag = 0x0001
	LookupFlagIgnoreBaseGlyphs    LookupFlag = 0x0002
	LookupFlagIgnoreLigatures     LookupFlag = 0x0004
	LookupFlagIgnoreMarks         LookupFlag = 0x0008
	LookupFlagUseMarkFilteringSet LookupFlag = 0x0010
	lookupFlagMarkAttachTypeMask  LookupFlag = 0xFF00
)

// scriptTagDFLT and scriptTagLatn are the fallback scripts FindLangSys
// tries, in that order, when a font's ScriptList lacks the requested
// script.
var scriptTagDFLT = sfnt.NewTagFromString("DFLT")
var scriptTagLatn = sfnt.NewTagFromString("latn")

// LangSys is one Script's (or DefaultLangSys's) feature selection.
type LangSys struct {
	RequiredFeature uint16 // index into FeatureList, or 0xFFFF if none
	FeatureIndices  []uint16
}

// Script is one entry in a ScriptList: a default LangSys plus any
// named ones (spec §4.6 language/script selection).
type Script struct {
	Tag            sfnt.Tag
	DefaultLangSys LangSys
	LangSystems    map[sfnt.Tag]LangSys
}

// ScriptList is the 'GSUB'/'GPOS' ScriptList table.
type ScriptList struct {
	Scripts map[sfnt.Tag]Script
}

func parseScriptList(c *sfnt.Cursor, base int) (ScriptList, bool) {
	count, ok := c.U16(base)
	if !ok {
		return ScriptList{}, false
	}
	sl := ScriptList{Scripts: make(map[sfnt.Tag]Script, count)}
	for i := 0; i < int(count); i++ {
		recBase := base + 2 + 6*i
		tag, ok := c.Tag(recBase)
		off, ok2 := c.Offset16(recBase + 4)
		if !ok || !ok2 {
			continue
		}
		scriptBase := base + off
		sc, ok := parseScript(c, scriptBase, tag)
		if ok {
			sl.Scripts[tag] = sc
		}
	}
	return sl, true
}

func parseScript(c *sfnt.Cursor, base int, tag sfnt.Tag) (Script, bool) {
	defOff, ok := c.U16(base)
	if !ok {
		return Script{}, false
	}
	sc := Script{Tag: tag, LangSystems: map[sfnt.Tag]LangSys{}}
	sc.DefaultLangSys = LangSys{RequiredFeature: 0xFFFF}
	if defOff != 0 {
		if ls, ok := parseLangSys(c, base+int(defOff)); ok {
			sc.DefaultLangSys = ls
		}
	}
	count, ok := c.U16(base + 2)
	if !ok {
		return sc, true
	}
	for i := 0; i < int(count); i++ {
		recBase := base + 4 + 6*i
		langTag, ok := c.Tag(recBase)
		off, ok2 := c.Offset16(recBase + 4)
		if !ok || !ok2 {
			continue
		}
		if ls, ok := parseLangSys(c, base+off); ok {
			sc.LangSystems[langTag] = ls
		}
	}
	return sc, true
}

func parseLangSys(c *sfnt.Cursor, base int) (LangSys, bool) {
	if !c.CheckRange(base, 6) {
		return LangSys{}, false
	}
	required, _ := c.U16(base + 2)
	count, _ := c.U16(base + 4)
	indices, ok := c.U16Slice(base+6, int(count))
	if !ok {
		return LangSys{}, false
	}
	return LangSys{RequiredFeature: required, FeatureIndices: indices}, true
}

// FindLangSys picks the LangSys for (script, language). It looks the
// script tag up as given, then falls back to DFLT, then latn, and
// finally to whichever script map iteration yields first; no script-tag
// aliases are tried. Within the chosen script it returns lang's LangSys
// if present, else the default one.
func (sl ScriptList) FindLangSys(script sfnt.Tag, lang sfnt.Tag) (LangSys, bool) {
	sc, ok := sl.Scripts[script]
	if !ok {
		sc, ok = sl.Scripts[scriptTagDFLT]
	}
	if !ok {
		sc, ok = sl.Scripts[scriptTagLatn]
	}
	if !ok {
		for _, any := range sl.Scripts {
			sc, ok = any, true
			break
		}
	}
	if !ok {
		return LangSys{}, false
	}
	if lang != 0 {
		if ls, ok := sc.LangSystems[lang]; ok {
			return ls, true
		}
	}
	return sc.DefaultLangSys, true
}

// Feature is one 'GSUB'/'GPOS' FeatureList entry: a tag and the
// lookup indices it activates.
type Feature struct {
	Tag     sfnt.Tag
	Lookups []uint16
}

// FeatureList is the parsed 'GSUB'/'GPOS' FeatureList table.
type FeatureList []Feature

func parseFeatureList(c *sfnt.Cursor, base int) (FeatureList, bool) {
	count, ok := c.U16(base)
	if !ok {
		return nil, false
	}
	fl := make(FeatureList, 0, count)
	for i := 0; i < int(count); i++ {
		recBase := base + 2 + 6*i
		tag, ok := c.Tag(recBase)
		off, ok2 := c.Offset16(recBase + 4)
		if !ok || !ok2 {
			continue
		}
		featBase := base + off
		if !c.CheckRange(featBase, 4) {
			continue
		}
		lcount, _ := c.U16(featBase + 2)
		lookups, ok := c.U16Slice(featBase+4, int(lcount))
		if !ok {
			continue
		}
		fl = append(fl, Feature{Tag: tag, Lookups: lookups})
	}
	return fl, true
}

// LookupTable is one 'GSUB'/'GPOS' Lookup record: its flag plus the
// byte ranges of its subtables (parsed lazily by table-specific code,
// since a GSUB lookup's subtable format differs from GPOS's).
type LookupTable struct {
	Type             uint16
	Flag             LookupFlag
	SubtableOffsets  []int // absolute offsets into the owning table's data
	MarkFilteringSet int   // -1 if UseMarkFilteringSet is unset
}

func parseLookupList(c *sfnt.Cursor, base int) ([]LookupTable, bool) {
	count, ok := c.U16(base)
	if !ok {
		return nil, false
	}
	out := make([]LookupTable, 0, count)
	for i := 0; i < int(count); i++ {
		off, ok := c.Offset16(base + 2 + 2*i)
		if !ok {
			out = append(out, LookupTable{MarkFilteringSet: -1})
			continue
		}
		lt, ok := parseLookup(c, base+off)
		if !ok {
			lt = LookupTable{MarkFilteringSet: -1}
		}
		out = append(out, lt)
	}
	return out, true
}

func parseLookup(c *sfnt.Cursor, base int) (LookupTable, bool) {
	if !c.CheckRange(base, 6) {
		return LookupTable{}, false
	}
	typ, _ := c.U16(base)
	flag, _ := c.U16(base + 2)
	subCount, _ := c.U16(base + 4)
	lt := LookupTable{Type: typ, Flag: LookupFlag(flag), MarkFilteringSet: -1}
	for i := 0; i < int(subCount); i++ {
		off, ok := c.Offset16(base + 6 + 2*i)
		if !ok {
			continue
		}
		lt.SubtableOffsets = append(lt.SubtableOffsets, base+off)
	}
	if flag&uint16(LookupFlagUseMarkFilteringSet) != 0 {
		if mfs, ok := c.U16(base + 6 + 2*int(subCount)); ok {
			lt.MarkFilteringSet = int(mfs)
		}
	}
	return lt, true
}

// layoutHeader is the common 'GSUB'/'GPOS' table prologue: version
// plus the three offsets shared by both tables.
type layoutHeader struct {
	Scripts  ScriptList
	Features FeatureList
	Lookups  []LookupTable
}

func parseLayoutHeader(c *sfnt.Cursor, data []byte) (layoutHeader, bool) {
	if !c.CheckRange(0, 10) {
		return layoutHeader{}, false
	}
	major, _ := c.U16(0)
	minor, _ := c.U16(2)
	if major != 1 {
		return layoutHeader{}, false
	}
	scriptOff, _ := c.Offset16(4)
	featureOff, _ := c.Offset16(6)
	lookupOff, _ := c.Offset16(8)

	var h layoutHeader
	if sl, ok := parseScriptList(c, scriptOff); ok {
		h.Scripts = sl
	}
	if fl, ok := parseFeatureList(c, featureOff); ok {
		h.Features = fl
	}
	if ll, ok := parseLookupList(c, lookupOff); ok {
		h.Lookups = ll
	}
	_ = minor // FeatureVariations (minor >= 1) are a Non-goal for the CORE pipeline
	return h, true
}
