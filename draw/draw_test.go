package draw

import (
	"os"
	"testing"

	"github.com/textforge/shaping/blob"
	"github.com/textforge/shaping/internal/testutil"
	"github.com/textforge/shaping/sfnt"
)

func loadTestFace(t *testing.T, name string) *sfnt.Face {
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
	return face
}

type countingCallbacks struct {
	moveTo, lineTo, quadTo, cubicTo, closePath int
}

func (c *countingCallbacks) funcs() Funcs {
	return Funcs{
		MoveTo:    func(_ any, _ Point) { c.moveTo++ },
		LineTo:    func(_ any, _ Point) { c.lineTo++ },
		QuadTo:    func(_ any, _, _ Point) { c.quadTo++ },
		CubicTo:   func(_ any, _, _, _ Point) { c.cubicTo++ },
		ClosePath: func(_ any) { c.closePath++ },
	}
}

func TestGlyphDrawsSomethingForA(t *testing.T) {
	face := loadTestFace(t, "Roboto-Regular.ttf")
	cmap, err := face.Cmap()
	if err != nil {
		t.Fatalf("cmap: %v", err)
	}
	gid, ok := cmap.Lookup(uint32('A'))
	if !ok {
		t.Fatal("no glyph for 'A'")
	}
	var c countingCallbacks
	if !Glyph(face, gid, nil, c.funcs(), nil) {
		t.Fatal("Glyph returned false")
	}
	if c.moveTo == 0 {
		t.Error("expected at least one move_to")
	}
	if c.moveTo != c.closePath {
		t.Errorf("unbalanced path: %d move_to vs %d close_path", c.moveTo, c.closePath)
	}
}

func TestGlyphNotFoundReturnsFalse(t *testing.T) {
	face := loadTestFace(t, "Roboto-Regular.ttf")
	var c countingCallbacks
	// A glyph id far beyond any real font's glyph count.
	if Glyph(face, 0xFFFE, nil, c.funcs(), nil) {
		t.Error("expected Glyph to fail for an out-of-range glyph id")
	}
}

func TestQuadSynthesisIsExactAtMidpoint(t *testing.T) {
	var got []Point
	funcs := Funcs{
		CubicTo: func(_ any, c1, c2, to Point) {
			got = append(got, c1, c2, to)
		},
	}
	st := newState(funcs, nil)
	st.moveTo(Point{0, 0})
	st.quadTo(Point{50, 100}, Point{100, 0})
	st.closePath()
	if len(got) != 3 {
		t.Fatalf("expected 3 synthesized points, got %d", len(got))
	}
	c1, c2, to := got[0], got[1], got[2]
	wantC1 := Point{(0 + 2*50) / 3, (0 + 2*100) / 3}
	wantC2 := Point{(100 + 2*50) / 3, (0 + 2*100) / 3}
	if c1 != wantC1 || c2 != wantC2 || to != (Point{100, 0}) {
		t.Errorf("got c1=%v c2=%v to=%v, want c1=%v c2=%v to=%v", c1, c2, to, wantC1, wantC2, Point{100, 0})
	}
}

func TestMidpointIsAverage(t *testing.T) {
	m := midpoint(Point{0, 0}, Point{10, 20})
	if m != (Point{5, 10}) {
		t.Errorf("got %v, want {5 10}", m)
	}
}

func TestStateClosesImplicitlyOnSecondMoveTo(t *testing.T) {
	var closes int
	funcs := Funcs{
		MoveTo:    func(_ any, _ Point) {},
		ClosePath: func(_ any) { closes++ },
	}
	st := newState(funcs, nil)
	st.moveTo(Point{0, 0})
	st.moveTo(Point{1, 1})
	if closes != 1 {
		t.Errorf("expected one implicit close_path, got %d", closes)
	}
	st.closePath()
	if closes != 2 {
		t.Errorf("expected explicit close_path to fire, got %d total", closes)
	}
	st.closePath() // no-op: path already closed
	if closes != 2 {
		t.Errorf("expected closePath on an already-closed path to be a no-op, got %d", closes)
	}
}

func TestDecodeCSOperand(t *testing.T) {
	cases := []struct {
		name     string
		data     []byte
		want     float64
		consumed int
	}{
		{"small int", []byte{139}, 0, 1},
		{"small int max", []byte{246}, 107, 1},
		{"2-byte positive", []byte{247, 0}, 108, 2},
		{"2-byte negative", []byte{251, 0}, -108, 2},
		{"3-byte int", []byte{28, 0xFF, 0xFF}, -1, 3},
		{"fixed point", []byte{255, 0, 1, 0, 0}, 1, 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, n := decodeCSOperand(c.data)
			if got != c.want || n != c.consumed {
				t.Errorf("got (%v, %d), want (%v, %d)", got, n, c.want, c.consumed)
			}
		})
	}
}

func TestReadUint32Var(t *testing.T) {
	cases := []struct {
		data []byte
		want uint32
		n    int
	}{
		{[]byte{0x05}, 5, 1},
		{[]byte{0x81, 0x02}, 0x0102, 2},
		{[]byte{0xC1, 0x02, 0x03}, 0x010203, 3},
		{[]byte{0xE1, 0x02, 0x03, 0x04}, 0x01020304, 4},
	}
	for _, c := range cases {
		got, n, ok := readUint32Var(c.data)
		if !ok || got != c.want || n != c.n {
			t.Errorf("readUint32Var(% x) = (%v, %d, %v), want (%v, %d, true)", c.data, got, n, ok, c.want, c.n)
		}
	}
}

func TestEvaluateConditionAxisRange(t *testing.T) {
	// format 1, axis 0, range [0.0, 0.5] as F2Dot14.
	cond := []byte{0, 1, 0, 0, 0, 0, 0x20, 0x00}
	if !evaluateCondition(cond, []float64{0.25}) {
		t.Error("expected 0.25 to be within [0, 0.5]")
	}
	if evaluateCondition(cond, []float64{0.75}) {
		t.Error("expected 0.75 to be outside [0, 0.5]")
	}
}
