package sfnt

// Post is the parsed 'post' table (version 1.0 and 2.0 glyph names;
// versions 2.5/3.0 carry no names).
type Post struct {
	Version        uint32
	ItalicAngle    int32
	glyphNameIndex []uint16
	names          []string // custom names (index >= 258), in string-pool order
}

// Post returns the parsed 'post' table.
func (f *Face) Post() (Post, error) { return cachedTable(f, TagPost, parsePost) }

func parsePost(data []byte) (Post, error) {
	c := NewCursor(data)
	if !c.CheckRange(0, 32) {
		return Post{}, ErrInvalidTable
	}
	version, _ := c.U32(0)
	angle, _ := c.I32(4)
	p := Post{Version: version, ItalicAngle: angle}

	if version != 0x00020000 {
		return p, nil
	}
	if !c.CheckRange(32, 2) {
		return p, nil
	}
	numGlyphs, _ := c.U16(32)
	idxOff := 34
	idx, ok := c.U16Slice(idxOff, int(numGlyphs))
	if !ok {
		return p, nil
	}
	p.glyphNameIndex = idx

	pool := idxOff + 2*int(numGlyphs)
	for pool < len(data) {
		n := int(data[pool])
		if pool+1+n > len(data) {
			break
		}
		p.names = append(p.names, string(data[pool+1:pool+1+n]))
		pool += 1 + n
	}
	return p, nil
}

// GlyphName returns the glyph name for gid if the table records one.
func (p Post) GlyphName(gid GlyphID) (string, bool) {
	switch p.Version {
	case 0x00010000:
		if int(gid) < len(macRomanGlyphNames) {
			return macRomanGlyphNames[gid], true
		}
	case 0x00020000:
		if int(gid) >= len(p.glyphNameIndex) {
			return "", false
		}
		idx := p.glyphNameIndex[gid]
		if idx < 258 {
			if int(idx) < len(macRomanGlyphNames) {
				return macRomanGlyphNames[idx], true
			}
			return "", false
		}
		custom := int(idx) - 258
		if custom >= 0 && custom < len(p.names) {
			return p.names[custom], true
		}
	}
	return "", false
}

// GlyphFromName reverse-looks-up a name recorded by the post table.
func (p Post) GlyphFromName(name string) (GlyphID, bool) {
	switch p.Version {
	case 0x00010000:
		for i, n := range macRomanGlyphNames {
			if n == name {
				return GlyphID(i), true
			}
		}
	case 0x00020000:
		for gid := range p.glyphNameIndex {
			if n, ok := p.GlyphName(GlyphID(gid)); ok && n == name {
				return GlyphID(gid), true
			}
		}
	}
	return 0, false
}

// macRomanGlyphNames are the 258 standard glyph names used by post
// format 1.0/2.0 (OpenType spec, "Standard Macintosh Ordering").
var macRomanGlyphNames = [258]string{
	".notdef", ".null", "nonmarkingreturn", "space", "exclam",
	"quotedbl", "numbersign", "dollar", "percent", "ampersand",
	"quotesingle", "parenleft", "parenright", "asterisk", "plus",
	"comma", "hyphen", "period", "slash", "zero",
	"one", "two", "three", "four", "five",
	"six", "seven", "eight", "nine", "colon",
	"semicolon", "less", "equal", "greater", "question",
	"at", "A", "B", "C", "D",
	"E", "F", "G", "H", "I",
	"J", "K", "L", "M", "N",
	"O", "P", "Q", "R", "S",
	"T", "U", "V", "W", "X",
	"Y", "Z", "bracketleft", "backslash", "bracketright",
	"asciicircum", "underscore", "grave", "a", "b",
	"c", "d", "e", "f", "g",
	"h", "i", "j", "k", "l",
	"m", "n", "o", "p", "q",
	"r", "s", "t", "u", "v",
	"w", "x", "y", "z", "braceleft",
	"bar", "braceright", "asciitilde", "Adieresis", "Aring",
	"Ccedilla", "Eacute", "Ntilde", "Odieresis", "Udieresis",
	"aacute", "agrave", "acircumflex", "adieresis", "atilde",
	"aring", "ccedilla", "eacute", "egrave", "ecircumflex",
	"edieresis", "iacute", "igrave", "icircumflex", "idieresis",
	"ntilde", "oacute", "ograve", "ocircumflex", "odieresis",
	"otilde", "uacute", "ugrave", "ucircumflex", "udieresis",
	"dagger", "degree", "cent", "sterling", "section",
	"bullet", "paragraph", "germandbls", "registered", "copyright",
	"trademark", "acute", "dieresis", "notequal", "AE",
	"Oslash", "infinity", "plusminus", "lessequal", "greaterequal",
	"yen", "mu", "partialdiff", "summation", "product",
	"pi", "integral", "ordfeminine", "ordmasculine", "Omega",
	"ae", "oslash", "questiondown", "exclamdown", "logicalnot",
	"radical", "florin", "approxequal", "Delta", "guillemotleft",
	"guillemotright", "ellipsis", "nonbreakingspace", "Agrave", "Atilde",
	"Otilde", "OE", "oe", "endash", "emdash",
	"quotedblleft", "quotedblright", "quoteleft", "quoteright", "divide",
	"lozenge", "ydieresis", "Ydieresis", "fraction", "currency",
	"guilsinglleft", "guilsinglright", "fi", "fl", "daggerdbl",
	"periodcentered", "quotesinglbase", "quotedblbase", "perthousand", "Acircumflex",
	"Ecircumflex", "Aacute", "Edieresis", "Egrave", "Iacute",
	"Icircumflex", "Idieresis", "Igrave", "Oacute", "Ocircumflex",
	"apple", "Ograve", "Uacute", "Ucircumflex", "Ugrave",
	"dotlessi", "circumflex", "tilde", "macron", "breve",
	"dotaccent", "ring", "cedilla", "hungarumlaut", "ogonek",
	"caron", "Lslash", "lslash", "Scaron", "scaron",
	"Zcaron", "zcaron", "brokenbar", "Eth", "eth",
	"Yacute", "yacute", "Thorn", "thorn", "minus",
	"multiply", "onesuperior", "twosuperior", "threesuperior", "onehalf",
	"onequarter", "threequarters", "franc", "Gbreve", "gbreve",
	"Idotaccent", "Scedilla", "scedilla", "Cacute", "cacute",
	"Ccaron", "ccaron", "dcroat",
}
