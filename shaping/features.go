package shaping

import (
	"sort"

	"github.com/textforge/shaping/sfnt"
)

// GlobalStart and GlobalEnd are the cluster-range sentinels a caller
// passes to select "every cluster in the buffer" for a feature, named
// after HarfBuzz's HB_FEATURE_GLOBAL_START/HB_FEATURE_GLOBAL_END (spec
// §6 "Feature syntax", §4.6 step 1).
const (
	GlobalStart uint32 = 0
	GlobalEnd   uint32 = 0xFFFFFFFF
)

// UserFeature is a caller-requested override of one OpenType feature
// over a cluster range (spec §3 "Shape plan key", §4.6, §4.7 step 1).
// Value is 0 to turn the feature off and 1 to turn it on; for
// Alternate Substitution lookups (spec §4.8) it is the 1-based
// alternate index to select.
type UserFeature struct {
	Tag        sfnt.Tag
	Value      uint32
	Start, End uint32
}

// canonicalFeatures copies and sorts features, folding any range that
// covers the whole buffer onto [GlobalStart, GlobalEnd) so that two
// feature lists which are equivalent hash and compare equal — spec
// §4.6 step 1's "canonicalizing user feature `[start,end)` ranges:
// `GLOBAL` or `[1,2)` to fold equivalent ranges".
func canonicalFeatures(features []UserFeature) []UserFeature {
	out := make([]UserFeature, len(features))
	copy(out, features)
	for i := range out {
		if out[i].Start == GlobalStart && out[i].End >= GlobalEnd {
			out[i].Start, out[i].End = GlobalStart, GlobalEnd
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tag != out[j].Tag {
			return out[i].Tag < out[j].Tag
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		if out[i].End != out[j].End {
			return out[i].End < out[j].End
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// hashFeatures folds a canonicalized feature list into a single
// comparable value for planKey, the same trick hashCoords uses for
// variation coordinates (spec §4.6 "Equality is value-based").
func hashFeatures(features []UserFeature) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	mix := func(v uint64) {
		h ^= v
		h *= 1099511628211
	}
	for _, f := range features {
		mix(uint64(f.Tag))
		mix(uint64(f.Value))
		mix(uint64(f.Start))
		mix(uint64(f.End))
	}
	return h
}
