package shaping

import (
	"testing"

	"github.com/textforge/shaping/buffer"
)

func TestHangulShaperComposesLV(t *testing.T) {
	buf := buffer.New()
	// GA (U+1100 choseong kiyeok) + A (U+1161 jungseong a) -> GA (U+AC00)
	buf.Add(0x1100, 0)
	buf.Add(0x1161, 1)
	hangulShaper{}.reorder(buf)
	info := buf.Info()
	if len(info) != 1 {
		t.Fatalf("expected composition to 1 glyph, got %d", len(info))
	}
	if info[0].Codepoint != 0xAC00 {
		t.Errorf("expected U+AC00, got %#x", info[0].Codepoint)
	}
}

func TestHangulShaperComposesLVTWithFinal(t *testing.T) {
	buf := buffer.New()
	buf.Add(0x1100, 0) // L
	buf.Add(0x1161, 1) // V
	buf.Add(0x11A8, 2) // T (kiyeok final)
	hangulShaper{}.reorder(buf)
	info := buf.Info()
	if len(info) != 1 {
		t.Fatalf("expected composition to 1 glyph, got %d", len(info))
	}
	if info[0].Codepoint != 0xAC01 {
		t.Errorf("expected U+AC01, got %#x", info[0].Codepoint)
	}
}

func TestHangulShaperLeavesNonHangulAlone(t *testing.T) {
	buf := buffer.New()
	buf.AddString("abc")
	hangulShaper{}.reorder(buf)
	if buf.Len() != 3 {
		t.Fatalf("expected 3 glyphs unchanged, got %d", buf.Len())
	}
}
