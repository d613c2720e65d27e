package shaping

import (
	"github.com/textforge/shaping/buffer"
	"github.com/textforge/shaping/otfont"
	"github.com/textforge/shaping/sfnt"
)

// planKey identifies a cacheable shape plan: segment properties, the
// font's current variation coordinates (a plan built for one instance
// of a variable font is not valid for another), and the caller's
// requested features — the full tuple spec §3 "Shape plan key" names:
// `(face_id, segment_properties, user_features[], variation_coords[],
// chosen_shaper_name)`. face_id is implicit (this key only ever lives
// in that face's own plan list) and shaper_name is implicit too (this
// CORE pipeline has exactly one OT shaper; see BuildPlan's doc comment
// on shaper-list fallback). features is folded into a hash, the same
// way coords is, so planKey stays comparable with `==` for the
// lock-free cache's linear scan (sfnt.Face.PlanLookup).
type planKey struct {
	props        buffer.SegmentProperties
	coordsHash   uint64
	featuresHash uint64
}

func hashCoords(coords []float64) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	for _, c := range coords {
		bits := uint64(int64(c * 65536))
		h ^= bits
		h *= 1099511628211
	}
	return h
}

// ShapePlan is the resolved, reusable recipe for shaping one
// (font, segment-properties) combination: which GSUB/GPOS lookups to
// run, in what order, and which complex shaper governs reordering and
// mark placement (spec §4.6).
type ShapePlan struct {
	Props       buffer.SegmentProperties
	GSUB        *GSUB
	GPOS        *GPOS
	GDEF        sfnt.GDEF
	GSUBLookups []int
	GPOSLookups []int
	Complex     complexShaper

	// FeatureBits assigns each feature tag in play (the CORE pipeline's
	// defaults plus any tag the caller's features mention) one bit of
	// a 32-bit mask, per spec §4.6 step 3 ("the planner assigns each
	// active feature a bit in a 32-bit mask").
	FeatureBits map[sfnt.Tag]buffer.Mask
	// GlobalMask is the baseline mask ResetMasks seeds every glyph
	// with: the bits of features enabled by default (DefaultGSUBFeatures
	// and DefaultGPOSFeatures), before any caller override is applied.
	GlobalMask buffer.Mask
	// GSUBLookupMask/GPOSLookupMask record, per lookup index, the OR of
	// the bits of every feature that reaches it; a lookup only applies
	// at a glyph whose mask shares a bit with its entry (spec §4.7 step
	// 1, §4.8's feature-mask-gated application). A lookup absent from
	// the map (mask 0) is treated as unconditional.
	GSUBLookupMask map[int]buffer.Mask
	GPOSLookupMask map[int]buffer.Mask
	// GSUBAltIndex records, per Alternate Substitution lookup index,
	// the 1-based alternate the caller asked for via a UserFeature with
	// Value > 0 on the feature that reaches it (spec §4.8 "Alternate
	// ... picks an alternate by 1-based index encoded in the feature
	// mask"). Index 0 (unset) means "first alternate".
	GSUBAltIndex map[int]uint32
}

// DefaultGSUBFeatures is the CORE pipeline's fixed feature list applied
// during GSUB, in application order. Per-script feature matrices
// (HarfBuzz's ot_shape_complex "zero_width_marks"/"disable_feature"
// tables etc) are a Non-goal here; every script gets this same list,
// with the complex shaper layered on top for reordering/mask setup.
var DefaultGSUBFeatures = []sfnt.Tag{
	sfnt.NewTagFromString("ccmp"),
	sfnt.NewTagFromString("locl"),
	sfnt.NewTagFromString("rlig"),
	sfnt.NewTagFromString("liga"),
	sfnt.NewTagFromString("clig"),
	sfnt.NewTagFromString("calt"),
}

// DefaultGPOSFeatures is the CORE pipeline's fixed GPOS feature list.
var DefaultGPOSFeatures = []sfnt.Tag{
	sfnt.NewTagFromString("kern"),
	sfnt.NewTagFromString("mark"),
	sfnt.NewTagFromString("mkmk"),
}

// resolveFeatureLookupsWithMask resolves langSys's feature/lookup
// table against the tags the caller cares about (wanted), returning
// the deduplicated, application-ordered lookup list plus, per lookup,
// the OR of the mask bits of every wanted feature that reaches it
// (spec §4.6 step 3's per-stage lookup-index lists, now mask-tagged so
// §4.7 step 1's per-cluster feature masks can gate application) and
// the raw tag→lookups map so callers needing finer detail (alternate
// index selection) don't have to re-walk langSys themselves.
func resolveFeatureLookupsWithMask(fl FeatureList, langSys LangSys, wanted []sfnt.Tag, bits map[sfnt.Tag]buffer.Mask) ([]int, map[int]buffer.Mask, map[sfnt.Tag][]int) {
	byTag := make(map[sfnt.Tag][]int)
	for _, idx := range langSys.FeatureIndices {
		if int(idx) >= len(fl) {
			continue
		}
		f := fl[idx]
		byTag[f.Tag] = append(byTag[f.Tag], toIntSlice(f.Lookups)...)
	}
	var order []int
	seen := map[int]bool{}
	masks := map[int]buffer.Mask{}
	for _, tag := range wanted {
		bit := bits[tag]
		for _, l := range byTag[tag] {
			if !seen[l] {
				seen[l] = true
				order = append(order, l)
			}
			masks[l] |= bit
		}
	}
	return order, masks, byTag
}

// featureBitBase reserves buffer.Mask's low bits for the public
// GlyphFlags (buffer.GlyphFlagDefined); feature bits start above them.
const featureBitBase = 3
const maxFeatureBits = 32 - featureBitBase

// assignFeatureBits orders the tags in play — the CORE pipeline's
// fixed defaults first (so their bit assignment is stable across
// plans), then any tag only named by a caller feature — and hands out
// one bit per tag up to the 32-bit mask's budget (spec §4.6 step 3).
// Tags beyond the budget get no bit and are treated as always-on by
// setupMasks/runGSUBLookup/runGPOSLookup's "mask 0 means unconditional"
// rule.
func assignFeatureBits(features []UserFeature) ([]sfnt.Tag, map[sfnt.Tag]buffer.Mask) {
	seen := make(map[sfnt.Tag]bool)
	var tags []sfnt.Tag
	add := func(t sfnt.Tag) {
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	for _, t := range DefaultGSUBFeatures {
		add(t)
	}
	for _, t := range DefaultGPOSFeatures {
		add(t)
	}
	for _, f := range features {
		add(f.Tag)
	}
	bits := make(map[sfnt.Tag]buffer.Mask, len(tags))
	for i, t := range tags {
		if i >= maxFeatureBits {
			break
		}
		bits[t] = buffer.Mask(1) << uint(featureBitBase+i)
	}
	return tags, bits
}

func toIntSlice(u []uint16) []int {
	out := make([]int, len(u))
	for i, v := range u {
		out[i] = int(v)
	}
	return out
}

// BuildPlan resolves a ShapePlan for font under props and the
// caller's requested features, consulting (and populating) the face's
// lock-free plan cache (spec §4.6/§5). This CORE pipeline implements a
// single OT shaper, so the shaper-list fallback chain spec §4.6 step 2
// and original_source's hb-shape-plan.cc describe — "the first listed
// shaper whose backend reports capability for face wins" — has nothing
// to fall through to beyond it; BackendUnavailable never arises here,
// only in a multi-shaper build (see DESIGN.md).
func BuildPlan(font *otfont.Font, props buffer.SegmentProperties, features []UserFeature) *ShapePlan {
	canon := canonicalFeatures(features)
	key := planKey{props: props, coordsHash: hashCoords(font.Coords()), featuresHash: hashFeatures(canon)}
	v := font.Face.PlanLookup(key, func() any {
		return buildPlan(font, props, canon)
	})
	return v.(*ShapePlan)
}

func buildPlan(font *otfont.Font, props buffer.SegmentProperties, features []UserFeature) *ShapePlan {
	plan := &ShapePlan{Props: props, GSUBAltIndex: map[int]uint32{}}

	gdef, err := font.Face.GDEF()
	if err == nil {
		plan.GDEF = gdef
	}

	scriptTag := scriptToOTTag(props.Script)
	langTag := sfnt.Tag(0)

	tagOrder, tagBits := assignFeatureBits(features)
	plan.FeatureBits = tagBits

	defaultOn := make(map[sfnt.Tag]bool, len(DefaultGSUBFeatures)+len(DefaultGPOSFeatures))
	for _, t := range DefaultGSUBFeatures {
		defaultOn[t] = true
	}
	for _, t := range DefaultGPOSFeatures {
		defaultOn[t] = true
	}
	for _, t := range tagOrder {
		if defaultOn[t] {
			plan.GlobalMask |= tagBits[t]
		}
	}

	userTags := make([]sfnt.Tag, 0, len(features))
	for _, f := range features {
		userTags = append(userTags, f.Tag)
	}
	wantedGSUB := append(append([]sfnt.Tag{}, DefaultGSUBFeatures...), userTags...)
	wantedGPOS := append(append([]sfnt.Tag{}, DefaultGPOSFeatures...), userTags...)

	if data, err := font.Face.TableData(sfnt.TagGSUB); err == nil {
		if gsub, err := ParseGSUB(data); err == nil {
			plan.GSUB = gsub
			if ls, ok := gsub.Scripts.FindLangSys(scriptTag, langTag); ok {
				var byTag map[sfnt.Tag][]int
				plan.GSUBLookups, plan.GSUBLookupMask, byTag = resolveFeatureLookupsWithMask(gsub.Features, ls, wantedGSUB, tagBits)
				for _, f := range features {
					if f.Value > 1 {
						for _, l := range byTag[f.Tag] {
							plan.GSUBAltIndex[l] = f.Value
						}
					}
				}
			}
		}
	}
	if data, err := font.Face.TableData(sfnt.TagGPOS); err == nil {
		if gpos, err := ParseGPOS(data); err == nil {
			plan.GPOS = gpos
			if ls, ok := gpos.Scripts.FindLangSys(scriptTag, langTag); ok {
				plan.GPOSLookups, plan.GPOSLookupMask, _ = resolveFeatureLookupsWithMask(gpos.Features, ls, wantedGPOS, tagBits)
			}
		}
	}

	plan.Complex = complexShaperFor(props.Script)
	return plan
}

// scriptToOTTag converts a buffer.Script (an ISO 15924 tag, e.g.
// "Deva") into an OpenType script tag by lowercasing it ("deva").
// This covers the large majority of scripts; it does not reproduce
// HarfBuzz's full exception table for scripts whose OpenType tag
// differs from a simple lowercase (e.g. the "mym2"/"dev2" OpenType
// 1.6+ re-encodings some Indic fonts still ship only the old tag
// for) — ScriptList.FindLangSys's DFLT/latn fallback keeps those
// fonts shaping with default rules rather than failing outright.
func scriptToOTTag(s buffer.Script) sfnt.Tag {
	if s == buffer.ScriptInvalid || s == buffer.ScriptCommon || s == buffer.ScriptInherited {
		return scriptTagDFLT
	}
	b := uint32(s)
	lower := func(c byte) byte {
		if c >= 'A' && c <= 'Z' {
			return c + 32
		}
		return c
	}
	b0, b1, b2, b3 := byte(b>>24), byte(b>>16), byte(b>>8), byte(b)
	return sfnt.NewTag(lower(b0), lower(b1), lower(b2), lower(b3))
}
