package kmerdb

import (
	"sort"
	"sync"
	"testing"

	"github.com/mudesheng/cuttler/kmer"
)

func TestRunPoolDeliversEveryKmerExactlyOnce(t *testing.T) {
	path := t.TempDir() + "/stream.kdb"
	w, err := Create(path, 6)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	seqs := []string{"ACGTAC", "TTTTTT", "GGGGGG", "CCCCCC", "ACGTAC", "AAAAAA"}
	for _, s := range seqs {
		if err := w.Write(mustKmer(t, s)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	var mu sync.Mutex
	got := make([]string, 0, len(seqs))
	RunPool(r, 3, 2, func(km kmer.Kmer) {
		mu.Lock()
		got = append(got, km.String())
		mu.Unlock()
	})

	sort.Strings(got)
	sort.Strings(seqs)
	if len(got) != len(seqs) {
		t.Fatalf("got %d k-mers, want %d: %v", len(got), len(seqs), got)
	}
	for i := range seqs {
		if got[i] != seqs[i] {
			t.Fatalf("mismatch at %d: got %q want %q (full: %v)", i, got[i], seqs[i], got)
		}
	}
}
