package shaping

import (
	"os"
	"testing"

	"github.com/textforge/shaping/blob"
	"github.com/textforge/shaping/buffer"
	"github.com/textforge/shaping/internal/testutil"
	"github.com/textforge/shaping/otfont"
	"github.com/textforge/shaping/sfnt"
)

func loadTestFont(t *testing.T, name string) *otfont.Font {
	t.Helper()
	path := testutil.FindTestFont(name)
	if path == "" {
		t.Skipf("%s not found", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	b := blob.New(data, blob.MemoryModeReadOnly, nil)
	face, err := sfnt.New(b, 0)
	if err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return otfont.NewFont(face)
}

var scriptLatin = buffer.MakeScript('L', 'a', 't', 'n')

func shapeString(t *testing.T, font *otfont.Font, s string) *buffer.Buffer {
	t.Helper()
	buf := buffer.New()
	buf.AddString(s)
	buf.Props = buffer.SegmentProperties{
		Direction: buffer.DirectionLTR,
		Script:    scriptLatin,
		Language:  buffer.LanguageInvalid,
	}
	Shape(font, buf, nil)
	return buf
}

func TestShapeASCIIIsNoOpOnClusters(t *testing.T) {
	font := loadTestFont(t, "Roboto-Regular.ttf")
	buf := shapeString(t, font, "Hello")
	info := buf.Info()
	if len(info) == 0 {
		t.Fatal("expected glyphs")
	}
	for i, g := range info {
		if g.Cluster != uint32(i) {
			t.Errorf("glyph %d: expected cluster %d, got %d", i, i, g.Cluster)
		}
	}
	if !buf.HavePositions() {
		t.Fatal("expected positions to be computed")
	}
}

func TestShapeProducesNonZeroAdvances(t *testing.T) {
	font := loadTestFont(t, "Roboto-Regular.ttf")
	buf := shapeString(t, font, "W")
	positions := buf.Pos()
	if len(positions) != 1 {
		t.Fatalf("expected 1 glyph, got %d", len(positions))
	}
	if positions[0].XAdvance <= 0 {
		t.Errorf("expected positive advance for 'W', got %d", positions[0].XAdvance)
	}
}

func TestShapeLigature(t *testing.T) {
	font := loadTestFont(t, "Roboto-Regular.ttf")
	buf := shapeString(t, font, "ffi")
	info := buf.Info()
	if len(info) == 0 {
		t.Fatal("expected glyphs")
	}
	// A ligature, if the font has one, merges clusters; either way every
	// cluster value present in the input must still be reachable.
	seen := map[uint32]bool{}
	for _, g := range info {
		seen[g.Cluster] = true
	}
	if len(seen) == 0 || len(seen) > 3 {
		t.Errorf("unexpected cluster count %d for a 3-rune input", len(seen))
	}
}

func TestShapeEmptyBufferIsNoOp(t *testing.T) {
	font := loadTestFont(t, "Roboto-Regular.ttf")
	buf := buffer.New()
	buf.Props = buffer.SegmentProperties{Direction: buffer.DirectionLTR, Script: scriptLatin}
	Shape(font, buf, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected 0 glyphs, got %d", buf.Len())
	}
}

func TestShapeRTLReversesVisualOrder(t *testing.T) {
	font := loadTestFont(t, "Roboto-Regular.ttf")
	buf := buffer.New()
	buf.AddString("ab")
	buf.Props = buffer.SegmentProperties{Direction: buffer.DirectionRTL, Script: scriptLatin}
	Shape(font, buf, nil)
	info := buf.Info()
	if len(info) != 2 {
		t.Fatalf("expected 2 glyphs, got %d", len(info))
	}
	if info[0].Cluster != 1 || info[1].Cluster != 0 {
		t.Errorf("expected visual order to reverse clusters, got %d,%d", info[0].Cluster, info[1].Cluster)
	}
}
