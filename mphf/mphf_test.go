package mphf

import (
	"testing"

	"github.com/mudesheng/cuttler/kmer"
)

func mustKmer(t *testing.T, s string) kmer.Kmer {
	t.Helper()
	km, err := kmer.FromASCII([]byte(s))
	if err != nil {
		t.Fatalf("FromASCII(%q): %v", s, err)
	}
	return km
}

func TestBuildFoldsReverseComplementsOntoOneBucket(t *testing.T) {
	// ACG and its reverse complement CGT key the same vertex, so Build
	// must assign them a single shared bucket, and a third, unrelated
	// k-mer must land on a distinct one.
	keys := []kmer.Kmer{mustKmer(t, "ACG"), mustKmer(t, "CGT"), mustKmer(t, "TTT")}
	tbl, err := Build(keys)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tbl.N() != 2 {
		t.Fatalf("N() = %d, want 2", tbl.N())
	}

	b1, ok := tbl.Lookup(mustKmer(t, "ACG"))
	if !ok {
		t.Fatalf("Lookup(ACG) missing")
	}
	b2, ok := tbl.Lookup(mustKmer(t, "CGT"))
	if !ok {
		t.Fatalf("Lookup(CGT) missing")
	}
	if b1 != b2 {
		t.Fatalf("ACG and its reverse complement CGT landed on different buckets: %d vs %d", b1, b2)
	}

	b3, ok := tbl.Lookup(mustKmer(t, "TTT"))
	if !ok {
		t.Fatalf("Lookup(TTT) missing")
	}
	if b3 == b1 {
		t.Fatalf("unrelated k-mer TTT shares a bucket with ACG/CGT")
	}
}

func TestBuildDedupesRepeatedKeysFirstOccurrenceWins(t *testing.T) {
	keys := []kmer.Kmer{mustKmer(t, "ACG"), mustKmer(t, "ACG"), mustKmer(t, "TTT")}
	tbl, err := Build(keys)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tbl.N() != 2 {
		t.Fatalf("N() = %d, want 2", tbl.N())
	}
}

func TestLookupMissingKeyReportsNotFound(t *testing.T) {
	tbl, err := Build([]kmer.Kmer{mustKmer(t, "ACG")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := tbl.Lookup(mustKmer(t, "TTT")); ok {
		t.Fatalf("Lookup(TTT) reported found, want not found")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tbl, err := Build([]kmer.Kmer{mustKmer(t, "ACG"), mustKmer(t, "GGG"), mustKmer(t, "TAC")})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	path := t.TempDir() + "/mphf.br"
	if err := tbl.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.N() != tbl.N() {
		t.Fatalf("N mismatch: %d vs %d", loaded.N(), tbl.N())
	}
	for _, s := range []string{"ACG", "GGG", "TAC"} {
		km := mustKmer(t, s)
		want, ok := tbl.Lookup(km)
		if !ok {
			t.Fatalf("original table missing %s", s)
		}
		got, ok := loaded.Lookup(km)
		if !ok {
			t.Fatalf("loaded table missing %s", s)
		}
		if got != want {
			t.Fatalf("bucket mismatch for %s after round trip: %d vs %d", s, got, want)
		}
	}
}
