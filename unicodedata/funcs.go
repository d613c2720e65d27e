// Package unicodedata implements the pluggable Unicode-properties
// function table (component E): combining class, general category,
// mirroring, script, and Unicode normalization, with a default
// implementation backed by the standard library's unicode tables and
// golang.org/x/text's normalization package.
package unicodedata

import "sync/atomic"

// GeneralCategory mirrors the Unicode General_Category groups the OT
// shaper pipeline dispatches on, ordered to match the values the teacher's
// category table already used so downstream callers reuse one vocabulary.
type GeneralCategory uint8

const (
	Control GeneralCategory = iota
	Format
	Unassigned
	PrivateUse
	Surrogate
	LowercaseLetter
	ModifierLetter
	OtherLetter
	TitlecaseLetter
	UppercaseLetter
	SpacingMark
	EnclosingMark
	NonSpacingMark
	DecimalNumber
	LetterNumber
	OtherNumber
	ConnectPunctuation
	DashPunctuation
	ClosePunctuation
	FinalPunctuation
	InitialPunctuation
	OtherPunctuation
	OpenPunctuation
	CurrencySymbol
	ModifierSymbol
	MathSymbol
	OtherSymbol
	LineSeparator
	ParagraphSeparator
	SpaceSeparator
)

// Funcs is the pluggable Unicode function table (spec §4.4).
type Funcs struct {
	CombiningClass func(r rune) uint8
	GeneralCategory func(r rune) GeneralCategory
	Mirroring       func(r rune) (rune, bool)
	Script          func(r rune) string // ISO 15924 4-letter code, "" if undetermined
	Compose         func(a, b rune) (rune, bool)
	Decompose       func(r rune) (a, b rune, ok bool)

	immutable atomic.Bool
}

// Default is the builtin function table (spec §4.4 "Defaults to a
// built-in Unicode tables implementation").
var Default = &Funcs{
	CombiningClass:  defaultCombiningClass,
	GeneralCategory: defaultGeneralCategory,
	Mirroring:       defaultMirroring,
	Script:          defaultScript,
	Compose:         defaultCompose,
	Decompose:       defaultDecompose,
}

func init() { Default.immutable.Store(true) }

// MakeImmutable latches f so SetFunc calls are rejected from then on,
// mirroring the one-way latch used by blob.Blob and sfnt.Face.
func (f *Funcs) MakeImmutable() { f.immutable.Store(true) }

// IsImmutable reports whether f has been latched.
func (f *Funcs) IsImmutable() bool { return f.immutable.Load() }

// Clone returns a mutable copy of f, letting callers override individual
// operations on the default table without that table's own immutability
// getting in the way (spec §4.4: "external implementations may be
// swapped in, but only into non-immutable Unicode-functions objects").
func (f *Funcs) Clone() *Funcs {
	c := *f
	c.immutable.Store(false)
	return &c
}

// SetCombiningClass overrides the combining-class operation; it is a
// no-op (silently ignored) once f is immutable.
func (f *Funcs) SetCombiningClass(fn func(rune) uint8) {
	if f.IsImmutable() {
		return
	}
	f.CombiningClass = fn
}

// SetScript overrides the script-detection operation.
func (f *Funcs) SetScript(fn func(rune) string) {
	if f.IsImmutable() {
		return
	}
	f.Script = fn
}

// SetMirroring overrides the mirroring operation.
func (f *Funcs) SetMirroring(fn func(rune) (rune, bool)) {
	if f.IsImmutable() {
		return
	}
	f.Mirroring = fn
}
