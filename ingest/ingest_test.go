package ingest

import (
	"os"
	"testing"

	"github.com/mudesheng/cuttler/kmerdb"
)

func writeFasta(t *testing.T, records map[string]string) string {
	t.Helper()
	path := t.TempDir() + "/in.fa"
	fp, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer fp.Close()
	for name, seq := range records {
		if _, err := fp.WriteString(">" + name + "\n" + seq + "\n"); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return path
}

func TestBuildEdgeDBCountMatchesWindows(t *testing.T) {
	path := writeFasta(t, map[string]string{"r1": "ACGTACGTAC"})
	k := 4
	out := t.TempDir() + "/edges.kdb"
	n, err := BuildEdgeDB(path, out, k)
	if err != nil {
		t.Fatalf("BuildEdgeDB: %v", err)
	}
	want := int64(len("ACGTACGTAC") - (k + 1) + 1)
	if n != want {
		t.Fatalf("count = %d, want %d", n, want)
	}

	r, err := kmerdb.Open(out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if r.K != k+1 {
		t.Fatalf("K = %d, want %d", r.K, k+1)
	}
}

func TestBuildVertexDBEmitsCanonicalForm(t *testing.T) {
	path := writeFasta(t, map[string]string{"r1": "ACGTT"})
	k := 3
	out := t.TempDir() + "/vertices.kdb"
	if _, err := BuildVertexDB(path, out, k); err != nil {
		t.Fatalf("BuildVertexDB: %v", err)
	}
	r, err := kmerdb.Open(out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	for {
		km, err := r.Next()
		if err != nil {
			break
		}
		if !km.IsCanonical() {
			t.Fatalf("emitted non-canonical k-mer %s", km.String())
		}
	}
}

func TestBuildEdgeDBBreaksOnAmbiguousBase(t *testing.T) {
	path := writeFasta(t, map[string]string{"r1": "ACGTNACGT"})
	k := 3
	out := t.TempDir() + "/edges.kdb"
	n, err := BuildEdgeDB(path, out, k)
	if err != nil {
		t.Fatalf("BuildEdgeDB: %v", err)
	}
	// "ACGT" contributes 1 (k+1=4)-mer, "ACGT" after the N contributes 1 more.
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}
