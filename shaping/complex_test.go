package shaping

import (
	"testing"

	"github.com/textforge/shaping/buffer"
	"github.com/textforge/shaping/sfnt"
)

func TestComplexShaperForDispatchesKnownScripts(t *testing.T) {
	cases := []struct {
		script string
		want   string
	}{
		{"Arab", "arabic"},
		{"Hebr", "mark-fallback"},
		{"Hang", "hangul"},
		{"Deva", "indic"},
		{"Beng", "indic"},
		{"Latn", "default"},
		{"Zzzz", "default"},
	}
	for _, c := range cases {
		got := complexShaperFor(iso(c.script)).name()
		if got != c.want {
			t.Errorf("script %s: want shaper %q, got %q", c.script, c.want, got)
		}
	}
}

func TestScriptToOTTagLowercases(t *testing.T) {
	got := scriptToOTTag(buffer.MakeScript('D', 'e', 'v', 'a'))
	want := sfnt.NewTag('d', 'e', 'v', 'a')
	if got != want {
		t.Errorf("scriptToOTTag(Deva) = %v, want %v", got, want)
	}
}

func TestIsoPadsShortTags(t *testing.T) {
	got := iso("Han")
	want := buffer.MakeScript('H', 'a', 'n', ' ')
	if got != want {
		t.Errorf("iso(\"Han\") = %v, want %v", got, want)
	}
}
