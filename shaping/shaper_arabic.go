package shaping

import "github.com/textforge/shaping/buffer"

// joiningType is a script-agnostic simplification of the Arabic
// cursive-joining classes ArabicShaping.txt defines (U=non-joining,
// R=right-joining, D=dual-joining, T=transparent/combining). The
// teacher's arabic.go drives this from a generated per-codepoint table
// built from that UCD file, which isn't available here; this shaper
// instead classifies by Unicode block membership, covering the common
// Arabic, Syriac and related scripts' letters at reduced precision
// (a handful of right-joining-only letters like alef/dal/reh/waw are
// named explicitly; everything else in the Arabic block defaults to
// dual-joining, which is correct for the overwhelming majority of
// letters).
type joiningType uint8

const (
	joinNone joiningType = iota
	joinRight
	joinDual
	joinTransparent
)

var arabicRightJoining = map[buffer.Codepoint]bool{
	0x0622: true, 0x0623: true, 0x0624: true, 0x0625: true, 0x0627: true, // alef forms
	0x0629: true, // teh marbuta
	0x062F: true, 0x0630: true, // dal, thal
	0x0631: true, 0x0632: true, // reh, zain
	0x0648: true, // waw
	0x0698: true, // jeh
	0x06C0: true, 0x06D2: true, 0x06D3: true,
}

func classifyJoining(u buffer.Codepoint) joiningType {
	switch {
	case u >= 0x0610 && u <= 0x061A, u >= 0x064B && u <= 0x065F, u == 0x0670,
		u >= 0x06D6 && u <= 0x06DC, u >= 0x06DF && u <= 0x06E4, u >= 0x06E7 && u <= 0x06E8,
		u >= 0x06EA && u <= 0x06ED:
		return joinTransparent
	case arabicRightJoining[u]:
		return joinRight
	case u >= 0x0620 && u <= 0x064A, u >= 0x066E && u <= 0x06D5, u >= 0x06EE && u <= 0x06FF,
		u >= 0x0750 && u <= 0x077F, u >= 0x0700 && u <= 0x074F:
		return joinDual
	default:
		return joinNone
	}
}

// arabicPosition is the cursive join-state a letter takes given its
// own joining type and its neighbors': isolated, initial (joins to
// the following letter only), medial (joins both sides), or final
// (joins to the preceding letter only) — the four OpenType Arabic
// positional features ("isol"/"init"/"medi"/"fina").
type arabicPosition uint8

const (
	posIsolated arabicPosition = iota
	posInitial
	posMedial
	posFinal
)

var arabicPositionTag = map[arabicPosition]string{
	posIsolated: "isol", posInitial: "init", posMedial: "medi", posFinal: "fina",
}

// arabicShaper computes each letter's cursive join position and
// substitutes it via the font's corresponding GSUB positional feature,
// applied directly per glyph rather than through the buffer-wide mask
// mechanism the teacher uses (see the package doc comment on
// complexShaper for why: the full mask/plan matrix is Indic/Arabic
// state-machine infrastructure this port does not reproduce).
type arabicShaper struct{}

func (arabicShaper) name() string           { return "arabic" }
func (arabicShaper) reorder(*buffer.Buffer) {}

func (arabicShaper) postProcess(ctx *ApplyContext) {}

// applyJoining runs before the generic GSUB feature loop (called from
// the main Shape pipeline) and substitutes each Arabic letter for its
// positional form, when the font's GSUB table defines one.
func (arabicShaper) applyJoining(ctx *ApplyContext, plan *ShapePlan) {
	if plan.GSUB == nil {
		return
	}
	buf := ctx.Buffer
	n := buf.Len()
	joinTypes := make([]joiningType, n)
	info := buf.Info()
	for i := range info {
		joinTypes[i] = classifyJoining(info[i].Codepoint)
	}

	prevJoining := func(i int) joiningType {
		for j := i - 1; j >= 0; j-- {
			if joinTypes[j] == joinTransparent {
				continue
			}
			return joinTypes[j]
		}
		return joinNone
	}
	nextJoining := func(i int) joiningType {
		for j := i + 1; j < n; j++ {
			if joinTypes[j] == joinTransparent {
				continue
			}
			return joinTypes[j]
		}
		return joinNone
	}

	positions := make([]arabicPosition, n)
	for i := 0; i < n; i++ {
		jt := joinTypes[i]
		if jt != joinDual && jt != joinRight {
			positions[i] = posIsolated
			continue
		}
		joinsPrev := prevJoining(i) == joinDual
		joinsNext := jt == joinDual && (nextJoining(i) == joinDual || nextJoining(i) == joinRight)
		switch {
		case joinsPrev && joinsNext:
			positions[i] = posMedial
		case joinsPrev:
			positions[i] = posFinal
		case joinsNext:
			positions[i] = posInitial
		default:
			positions[i] = posIsolated
		}
	}

	buf.StartProcessing()
	for buf.Idx() < n {
		i := buf.Idx()
		jt := joinTypes[i]
		applied := false
		if jt == joinDual || jt == joinRight {
			applied = applyPositionalFeature(ctx, plan, arabicPositionTag[positions[i]])
		}
		if !applied {
			buf.NextGlyph()
		}
	}
	buf.StopProcessing()
}

// applyPositionalFeature tries every lookup under tag against the
// buffer's current input position, in feature order, stopping at the
// first one that substitutes something.
func applyPositionalFeature(ctx *ApplyContext, plan *ShapePlan, tag string) bool {
	for _, f := range plan.GSUB.Features {
		if f.Tag.String() != tag {
			continue
		}
		for _, lookupIdx := range f.Lookups {
			if plan.GSUB.Apply(ctx, int(lookupIdx)) {
				return true
			}
		}
	}
	return false
}
