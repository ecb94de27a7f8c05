package kmer

import "testing"

func mustFromASCII(t *testing.T, s string) Kmer {
	t.Helper()
	km, err := FromASCII([]byte(s))
	if err != nil {
		t.Fatalf("FromASCII(%q): %v", s, err)
	}
	return km
}

func TestBytesRoundTrip(t *testing.T) {
	for _, s := range []string{"A", "ACGT", "ACGTACGTACGTACGTACGTACGTACGTACGTA", "TTTTGGGGCCCCAAAA"} {
		km := mustFromASCII(t, s)
		if got := km.String(); got != s {
			t.Errorf("String() = %q, want %q", got, s)
		}
	}
}

func TestReverseComplementInvolution(t *testing.T) {
	km := mustFromASCII(t, "ACGTACGGT")
	rc := km.ReverseComplement()
	rrc := rc.ReverseComplement()
	if Compare(km, rrc) != 0 {
		t.Errorf("rc(rc(x)) != x: got %s, want %s", rrc, km)
	}
	if rc.String() != "ACCGTACGT" {
		t.Errorf("ReverseComplement() = %s, want ACCGTACGT", rc)
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	km := mustFromASCII(t, "TTTTACGT")
	c1 := km.Canonical()
	c2 := c1.Canonical()
	if Compare(c1, c2) != 0 {
		t.Errorf("Canonical() not idempotent")
	}
	rc := km.ReverseComplement()
	if Compare(c1, rc.Canonical()) != 0 {
		t.Errorf("canonical(rc(x)) != canonical(x)")
	}
}

func TestRollForwardBackward(t *testing.T) {
	km := mustFromASCII(t, "ACGTACGT")
	rolled := km.RollForward(Base2Bnt['A'])
	if rolled.String() != "CGTACGTA" {
		t.Errorf("RollForward = %s, want CGTACGTA", rolled)
	}
	back := rolled.RollBackward(Base2Bnt['A'])
	if back.String() != km.String() {
		t.Errorf("RollBackward(RollForward(x)) = %s, want %s", back, km)
	}
}

func TestRollForwardAcrossWordBoundary(t *testing.T) {
	// 40 bases forces 2 words (BasesPerWord=32); exercise the carry path.
	seq := "ACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT"[:40]
	km := mustFromASCII(t, seq)
	rolled := km.RollForward(Base2Bnt['G'])
	want := seq[1:] + "G"
	if rolled.String() != want {
		t.Errorf("RollForward across word boundary = %s, want %s", rolled, want)
	}
}

func TestPrefixSuffix(t *testing.T) {
	edge := mustFromASCII(t, "ACGTA")
	pfx := Prefix(edge)
	sfx := Suffix(edge)
	if pfx.String() != "ACGT" {
		t.Errorf("Prefix = %s, want ACGT", pfx)
	}
	if sfx.String() != "CGTA" {
		t.Errorf("Suffix = %s, want CGTA", sfx)
	}
}

func TestCompareLexicographic(t *testing.T) {
	a := mustFromASCII(t, "ACGT")
	b := mustFromASCII(t, "ACGG")
	if Compare(a, b) <= 0 {
		t.Errorf("Compare(ACGT, ACGG) should be > 0")
	}
	if Compare(a, a) != 0 {
		t.Errorf("Compare(x, x) should be 0")
	}
}

func TestHash64Deterministic(t *testing.T) {
	a := mustFromASCII(t, "ACGTACGT")
	b := mustFromASCII(t, "ACGTACGT")
	if a.Hash64() != b.Hash64() {
		t.Errorf("Hash64 not deterministic for identical k-mers")
	}
}
