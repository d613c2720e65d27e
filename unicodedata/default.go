package unicodedata

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// defaultGeneralCategory classifies r the way the teacher's
// getGeneralCategory does: a chain of unicode.Is checks against the
// standard library's RangeTables, ordered letters, marks, numbers,
// punctuation, symbols, separators, other.
func defaultGeneralCategory(r rune) GeneralCategory {
	switch {
	case unicode.Is(unicode.Lu, r):
		return UppercaseLetter
	case unicode.Is(unicode.Ll, r):
		return LowercaseLetter
	case unicode.Is(unicode.Lt, r):
		return TitlecaseLetter
	case unicode.Is(unicode.Lm, r):
		return ModifierLetter
	case unicode.Is(unicode.Lo, r):
		return OtherLetter
	case unicode.Is(unicode.Mn, r):
		return NonSpacingMark
	case unicode.Is(unicode.Mc, r):
		return SpacingMark
	case unicode.Is(unicode.Me, r):
		return EnclosingMark
	case unicode.Is(unicode.Nd, r):
		return DecimalNumber
	case unicode.Is(unicode.Nl, r):
		return LetterNumber
	case unicode.Is(unicode.No, r):
		return OtherNumber
	case unicode.Is(unicode.Pc, r):
		return ConnectPunctuation
	case unicode.Is(unicode.Pd, r):
		return DashPunctuation
	case unicode.Is(unicode.Ps, r):
		return OpenPunctuation
	case unicode.Is(unicode.Pe, r):
		return ClosePunctuation
	case unicode.Is(unicode.Pi, r):
		return InitialPunctuation
	case unicode.Is(unicode.Pf, r):
		return FinalPunctuation
	case unicode.Is(unicode.Po, r):
		return OtherPunctuation
	case unicode.Is(unicode.Sm, r):
		return MathSymbol
	case unicode.Is(unicode.Sc, r):
		return CurrencySymbol
	case unicode.Is(unicode.Sk, r):
		return ModifierSymbol
	case unicode.Is(unicode.So, r):
		return OtherSymbol
	case unicode.Is(unicode.Zs, r):
		return SpaceSeparator
	case unicode.Is(unicode.Zl, r):
		return LineSeparator
	case unicode.Is(unicode.Zp, r):
		return ParagraphSeparator
	case unicode.Is(unicode.Cc, r):
		return Control
	case unicode.Is(unicode.Cf, r):
		return Format
	case unicode.Is(unicode.Cs, r):
		return Surrogate
	case unicode.Is(unicode.Co, r):
		return PrivateUse
	default:
		return Unassigned
	}
}

// IsMark reports whether r's general category is one the shaping
// pipeline treats as a combining mark (spec's cluster-merge rules).
func IsMark(r rune) bool {
	gc := defaultGeneralCategory(r)
	return gc == NonSpacingMark || gc == SpacingMark || gc == EnclosingMark
}

// defaultCombiningClass reads the canonical combining class straight
// out of golang.org/x/text/unicode/norm's per-rune property table,
// which is exactly the value the Unicode Character Database assigns.
func defaultCombiningClass(r rune) uint8 {
	p := norm.NFD.PropertiesString(string(r))
	return p.CCC()
}

// defaultCompose and defaultDecompose expose canonical composition and
// decomposition through norm, the same library the AMBIENT STACK uses
// for the buffer's NFC/NFD normalization pass (spec §4.7 "normalize").
func defaultCompose(a, b rune) (rune, bool) {
	var buf [8]byte
	n := copy(buf[:], string(a))
	n += copy(buf[n:], string(b))
	composed := norm.NFC.String(string(buf[:n]))
	rs := []rune(composed)
	if len(rs) != 1 {
		return 0, false
	}
	return rs[0], true
}

func defaultDecompose(r rune) (rune, rune, bool) {
	d := norm.NFD.String(string(r))
	rs := []rune(d)
	switch len(rs) {
	case 1:
		return 0, 0, false
	case 2:
		return rs[0], rs[1], true
	default:
		// Decompositions longer than two runes can't be represented by
		// the shaper's binary decompose op; treat as non-decomposable
		// at this level (the buffer's normalizer falls back to NFC).
		return 0, 0, false
	}
}

// defaultMirroring looks up r's BidiMirroring pair among the common
// paired punctuation the OT shaper actually swaps in RTL runs; it is
// intentionally a small curated table rather than the full UCD
// BidiMirroring.txt, matching the scope spec §4.4 sets for the CORE
// pipeline (RTL fallback mirroring, not a general bidi library).
var mirrorPairs = map[rune]rune{
	'(': ')', ')': '(',
	'[': ']', ']': '[',
	'{': '}', '}': '{',
	'<': '>', '>': '<',
	'«': '»', '»': '«',
	'‘': '’', '’': '‘',
	'“': '”', '”': '“',
	'‹': '›', '›': '‹',
	'≤': '≥', '≥': '≤',
	'≦': '≧', '≧': '≦',
	'〈': '〉', '〉': '〈',
	'（': '）', '）': '（',
}

func defaultMirroring(r rune) (rune, bool) {
	m, ok := mirrorPairs[r]
	return m, ok
}

func defaultScript(r rune) string {
	return scriptOf(r)
}
