package buffer

import "testing"

func TestAddStringSetsClusterToByteOffset(t *testing.T) {
	b := New()
	b.AddString("aé中")
	if b.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", b.Len())
	}
	info := b.Info()
	want := []uint32{0, 1, 3}
	for i, w := range want {
		if info[i].Cluster != w {
			t.Fatalf("item %d: expected cluster %d, got %d", i, w, info[i].Cluster)
		}
	}
}

func TestMergeClustersTakesMinimum(t *testing.T) {
	b := New()
	b.AddRunes([]rune("abc"))
	b.MergeClusters(0, 3)
	for i, info := range b.Info() {
		if info.Cluster != 0 {
			t.Fatalf("item %d: expected cluster 0 after merge, got %d", i, info.Cluster)
		}
	}
}

func TestMergeClustersNonMonotoneFallsBackToUnsafeToBreak(t *testing.T) {
	b := New()
	b.AddRunes([]rune("abc"))
	b.ClusterLevel = ClusterLevelCharacters
	b.MergeClusters(0, 3)
	for i, info := range b.Info() {
		if info.Cluster != uint32(i) {
			t.Fatalf("item %d: cluster should be untouched at non-monotone level, got %d", i, info.Cluster)
		}
		if info.Flags()&GlyphFlagUnsafeToBreak == 0 {
			t.Fatalf("item %d: expected UnsafeToBreak flag", i)
		}
	}
}

func TestReverseClustersKeepsClusterGroupsIntact(t *testing.T) {
	b := New()
	b.Add(10, 0)
	b.Add(11, 0)
	b.Add(12, 1)
	b.ReverseClusters()
	info := b.Info()
	if info[0].Cluster != 1 || info[1].Cluster != 0 || info[2].Cluster != 0 {
		t.Fatalf("unexpected cluster order after ReverseClusters: %+v", info)
	}
	if info[1].Codepoint != 10 || info[2].Codepoint != 11 {
		t.Fatalf("expected intra-cluster order preserved, got %+v", info)
	}
}

func TestEnterBudgetsOpsProportionalToLength(t *testing.T) {
	b := New()
	b.AddRunes([]rune("abcdefghij"))
	b.Enter()
	if b.maxOps != maxOpsMin {
		t.Fatalf("expected floor maxOps %d for short input, got %d", maxOpsMin, b.maxOps)
	}

	big := New()
	n := 10000
	runes := make([]rune, n)
	for i := range runes {
		runes[i] = 'a'
	}
	big.AddRunes(runes)
	big.Enter()
	if big.maxOps != n*maxOpsFactor {
		t.Fatalf("expected maxOps %d, got %d", n*maxOpsFactor, big.maxOps)
	}
}

func TestSpendOpsFlagsShapingFailedOnExhaustion(t *testing.T) {
	b := New()
	b.AddRunes([]rune("abc"))
	b.maxOps = 2
	if b.SpendOps(1); !b.Successful() {
		t.Fatalf("buffer should still be successful after spending within budget")
	}
	if b.SpendOps(5); b.Successful() || !b.ShapingFailed() {
		t.Fatalf("expected ShapingFailed once ops budget is exhausted")
	}
}

func TestTwoBufferReplaceGlyphsPropagatesClusterAndLigature(t *testing.T) {
	b := New()
	b.EnsureGlyphs()
	b.Add(1, 5)
	b.Add(2, 6)
	b.StartProcessing()
	b.ReplaceGlyphs(2, []Codepoint{100})
	b.StopProcessing()

	info := b.Info()
	if len(info) != 1 {
		t.Fatalf("expected ligature to collapse two items into one, got %d", len(info))
	}
	if info[0].Cluster != 5 {
		t.Fatalf("expected ligature to keep the first component's cluster, got %d", info[0].Cluster)
	}
	if !info[0].IsLigated() {
		t.Fatalf("expected ligature output to be flagged IsLigated")
	}
}

func TestNextGlyphPreservesUnmatchedInput(t *testing.T) {
	b := New()
	b.EnsureGlyphs()
	b.Add(7, 0)
	b.Add(8, 1)
	b.StartProcessing()
	b.NextGlyph()
	b.NextGlyph()
	b.StopProcessing()

	info := b.Info()
	if len(info) != 2 || info[0].Codepoint != 7 || info[1].Codepoint != 8 {
		t.Fatalf("expected unmodified passthrough, got %+v", info)
	}
}

func TestDigestMayHave(t *testing.T) {
	var d SetDigest
	d.Add(65)
	d.Add(97)
	if !d.MayHave(65) || !d.MayHave(97) {
		t.Fatalf("expected digest to report added members as possibly present")
	}
}
