package assembler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mudesheng/cuttler/edgeconsumer"
	"github.com/mudesheng/cuttler/graphstate"
	"github.com/mudesheng/cuttler/kmer"
	"github.com/mudesheng/cuttler/mphf"
	"github.com/mudesheng/cuttler/writer"
)

func mustKmer(t *testing.T, s string) kmer.Kmer {
	t.Helper()
	km, err := kmer.FromASCII([]byte(s))
	if err != nil {
		t.Fatalf("FromASCII(%q): %v", s, err)
	}
	return km
}

type memSink struct {
	buf bytes.Buffer
	raw []string
}

func (m *memSink) WriteRaw(chunk []byte) error {
	m.raw = append(m.raw, string(chunk))
	m.buf.Write(chunk)
	return nil
}
func (m *memSink) Close() error { return nil }

func buildWorker(t *testing.T, edges []string) (*Worker, *memSink) {
	t.Helper()
	var verts []kmer.Kmer
	for _, s := range edges {
		e := mustKmer(t, s)
		verts = append(verts, kmer.Prefix(e), kmer.Suffix(e))
	}
	m, err := mphf.Build(verts)
	if err != nil {
		t.Fatalf("mphf.Build: %v", err)
	}
	tbl := graphstate.NewStateTable(m.N())
	c := edgeconsumer.New(tbl, m, edgeconsumer.ModeUnitig)
	for _, s := range edges {
		c.ConsumeEdge(mustKmer(t, s))
	}
	sink := &memSink{}
	buf := writer.NewBuffer(sink, writer.DefaultBufferCapacity)
	return NewWorker(tbl, m, buf), sink
}

func recordBodies(raw string) []string {
	var bodies []string
	for _, line := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
		if !strings.HasPrefix(line, ">") {
			bodies = append(bodies, line)
		}
	}
	return bodies
}

func TestExtractLinearChainEmitsOneCanonicalRecord(t *testing.T) {
	// k=3 edges of ACGTACGT, same topology as unitigwalker's test. The
	// sequence is its own reverse complement: its 3-mers fold onto two
	// canonical vertices, ACG (=CGT) and GTA (=TAC), each with a
	// one-sided loop on its back side (edges ACGT and GTAC), so the one
	// maximal unitig is TACG, emitted canonically as CGTA.
	edges := []string{"ACGT", "CGTA", "GTAC", "TACG"}
	w, sink := buildWorker(t, edges)

	seed := mustKmer(t, "CGT").Canonical()
	if err := w.Extract(seed); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := w.Out.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if w.Stats.UnitigCount != 1 {
		t.Fatalf("UnitigCount = %d, want 1", w.Stats.UnitigCount)
	}
	if w.Stats.DCCCount != 0 {
		t.Fatalf("DCCCount = %d, want 0", w.Stats.DCCCount)
	}

	bodies := recordBodies(sink.buf.String())
	if len(bodies) != 1 {
		t.Fatalf("record count = %d, want 1 (raw=%q)", len(bodies), sink.buf.String())
	}
	got := bodies[0]
	rc := string(reverseComplementBytes([]byte(got)))
	if got != "CGTA" && rc != "CGTA" {
		t.Fatalf("assembled label = %q (rc=%q), want CGTA up to rc", got, rc)
	}
}

func TestExtractIsIdempotentAfterFirstClaim(t *testing.T) {
	edges := []string{"ACGT", "CGTA", "GTAC", "TACG"}
	w, sink := buildWorker(t, edges)

	seed := mustKmer(t, "CGT").Canonical()
	if err := w.Extract(seed); err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	// A second extraction from any constituent vertex must be a no-op:
	// every vertex is already marked output.
	again := mustKmer(t, "GTA").Canonical()
	if err := w.Extract(again); err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if w.Stats.UnitigCount != 1 {
		t.Fatalf("UnitigCount = %d, want 1 after re-extraction", w.Stats.UnitigCount)
	}
	_ = sink
}

func TestExtractDetachedChordlessCycleEmitsRotatedLabel(t *testing.T) {
	// k=3 cycle ACG -> CGA -> GAC -> ACG, matching unitigwalker's cycle test.
	edges := []string{"ACGA", "CGAC", "GACG"}
	w, sink := buildWorker(t, edges)

	seed := mustKmer(t, "ACG").Canonical()
	if err := w.Extract(seed); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := w.Out.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if w.Stats.DCCCount != 1 {
		t.Fatalf("DCCCount = %d, want 1", w.Stats.DCCCount)
	}
	bodies := recordBodies(sink.buf.String())
	if len(bodies) != 1 {
		t.Fatalf("record count = %d, want 1", len(bodies))
	}
	// vertex_count=3, k=3 -> label length 3 + (k-1) = 5.
	if len(bodies[0]) != 5 {
		t.Fatalf("DCC label length = %d, want 5 (label=%q)", len(bodies[0]), bodies[0])
	}
}

func TestExtractDeadEndDisconnectedVertexStillEmitsShortUnitig(t *testing.T) {
	edges := []string{"ACGT"}
	w, sink := buildWorker(t, edges)

	seed := mustKmer(t, "ACG").Canonical()
	if err := w.Extract(seed); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := w.Out.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if w.Stats.UnitigCount != 1 {
		t.Fatalf("UnitigCount = %d, want 1", w.Stats.UnitigCount)
	}
	bodies := recordBodies(sink.buf.String())
	if len(bodies) != 1 {
		t.Fatalf("record count = %d, want 1", len(bodies))
	}
	got := bodies[0]
	rc := string(reverseComplementBytes([]byte(got)))
	if got != "ACGT" && rc != "ACGT" {
		t.Fatalf("assembled label = %q (rc=%q), want ACGT up to rc", got, rc)
	}
}

func TestExtractSingleBaseSelfLoopEmitsOnePerDistinctBase(t *testing.T) {
	// k=1 boundary case (spec.md §8): loops on a single base must branch
	// on both sides and the extractor must emit exactly one record per
	// distinct canonical base that has any edge. A, C, G, T self-loop
	// edges only ever reach two canonical vertices (A folds with T, C
	// folds with G), so two one-base records come out, not four.
	edges := []string{"AA", "CC", "GG", "TT"}
	w, sink := buildWorker(t, edges)

	for _, base := range []string{"A", "C"} {
		seed := mustKmer(t, base).Canonical()
		if err := w.Extract(seed); err != nil {
			t.Fatalf("Extract(%s): %v", base, err)
		}
	}
	if err := w.Out.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if w.Stats.UnitigCount != 2 {
		t.Fatalf("UnitigCount = %d, want 2", w.Stats.UnitigCount)
	}
	bodies := recordBodies(sink.buf.String())
	if len(bodies) != 2 {
		t.Fatalf("record count = %d, want 2 (raw=%q)", len(bodies), sink.buf.String())
	}
	seen := make(map[string]bool)
	for _, body := range bodies {
		if len(body) != 1 {
			t.Fatalf("record %q has length %d, want 1", body, len(body))
		}
		seen[body] = true
	}
	if !seen["A"] || !seen["C"] {
		t.Fatalf("expected records {A, C}, got %v", bodies)
	}
}

func TestCanonicalizeLabelPicksLexicographicMinimum(t *testing.T) {
	s := []byte("TTTT")
	got := canonicalizeLabel(s)
	if string(got) != "AAAA" {
		t.Fatalf("canonicalizeLabel(%q) = %q, want AAAA", s, got)
	}
	// Already-minimal input must be returned unchanged.
	min := []byte("AACG")
	got2 := canonicalizeLabel(min)
	if string(got2) != "AACG" {
		t.Fatalf("canonicalizeLabel(%q) = %q, want unchanged", min, got2)
	}
}
