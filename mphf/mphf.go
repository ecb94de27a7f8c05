// Package mphf stands in for the minimal-perfect-hash-function builder
// spec.md §1 names as an external collaborator ("K-mer
// enumeration/counting from raw sequence files, MPHF construction ...
// are supplied by external libraries; the core consumes their
// results"). No MPHF library appears anywhere in the retrieval pack,
// so this package gives the rest of the module a concrete,
// injectable implementation of the MPHF contract of spec.md §6
// ("lookup(kmer) -> u64 in [0, N)"), built once over the distinct
// canonical k-mers of the vertex database and owned by the
// orchestrator for the run, matching spec §3's ownership/lifecycle
// note.
//
// The table below gives every supplied key its own bucket as long as
// no two distinct canonical k-mers share a 64-bit Hash64 (keys whose
// hashes collide share one bucket), and it is not minimal in the
// information-theoretic sense a real MPHF (BBHash, PTHash, ...) would
// be: it is backed by a Go map from the k-mer's canonical Hash64 to a
// densely assigned bucket id. That's an explicit simplification,
// recorded in DESIGN.md, not a hidden one.
package mphf

import (
	"bufio"
	"encoding/gob"
	"os"

	"github.com/google/brotli/go/cbrotli"
	"github.com/mudesheng/cuttler/kmer"
)

// Table maps each of a fixed set of canonical k-mers to a distinct
// bucket id in [0, N).
type Table struct {
	buckets map[uint64]uint64
	n       uint64
}

// Build assigns each distinct canonical k-mer in keys a unique bucket
// id in [0, len(keys)). Duplicate keys collapse to the same bucket
// (the first occurrence wins), exactly as repeated k-mers in the
// vertex database denote the same vertex.
func Build(keys []kmer.Kmer) (*Table, error) {
	t := &Table{buckets: make(map[uint64]uint64, len(keys))}
	for _, k := range keys {
		h := k.Canonical().Hash64()
		if _, ok := t.buckets[h]; ok {
			continue
		}
		t.buckets[h] = t.n
		t.n++
	}
	return t, nil
}

// Lookup returns the bucket id for k's canonical form.
func (t *Table) Lookup(k kmer.Kmer) (uint64, bool) {
	b, ok := t.buckets[k.Canonical().Hash64()]
	return b, ok
}

// N reports the number of distinct canonical vertices the table was
// built over.
func (t *Table) N() uint64 { return t.n }

type persisted struct {
	Buckets map[uint64]uint64
	N       uint64
}

// Save persists the table, brotli-compressed, the way
// ga/cuckoofilter.go's MmapWriter gob-encodes the cuckoo filter.
func (t *Table) Save(path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	bw := cbrotli.NewWriter(fp, cbrotli.WriterOptions{Quality: 5})
	defer bw.Close()
	buf := bufio.NewWriterSize(bw, 1<<20)
	if err := gob.NewEncoder(buf).Encode(persisted{Buckets: t.buckets, N: t.n}); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	return bw.Flush()
}

// Load restores a table previously written by Save.
func Load(path string) (*Table, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	br := cbrotli.NewReader(fp)
	defer br.Close()
	buf := bufio.NewReaderSize(br, 1<<20)
	var p persisted
	if err := gob.NewDecoder(buf).Decode(&p); err != nil {
		return nil, err
	}
	return &Table{buckets: p.Buckets, n: p.N}, nil
}
