// Package ingest supplements the out-of-scope external k-mer-count
// database enumerator (spec.md §1, §6) with a small FASTA-driven
// builder, useful for small inputs and for tests where standing up the
// real enumeration collaborator would be overkill. It walks every
// sequence record of a FASTA file with biogo, the same
// fasta.NewReader/linear.Seq/alphabet.DNA combination
// ga/mapDBG/mapDBG.go's GetRawReads and ga/constructdbg/mapDBG.go use
// to load reference/read FASTA, and emits the file pair kmerdb.Reader
// expects: every (k+1)-mer for the edge phase, and the canonical form
// of every k-mer window (repeats included) for the vertex phase.
package ingest

import (
	"fmt"
	"io"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/mudesheng/cuttler/kmer"
	"github.com/mudesheng/cuttler/kmerdb"
)

// BuildEdgeDB reads every sequence record of fastaPath and writes every
// (k+1)-mer it contains, in encounter order, to edgeDBPath. A record
// shorter than k+1 bases contributes nothing. Ambiguous (non-ACGT)
// bytes break the current window, matching how the teacher's GetNextKmer
// callers treat an N as a hard break rather than attempting to encode it.
func BuildEdgeDB(fastaPath, edgeDBPath string, k int) (int64, error) {
	return buildDB(fastaPath, edgeDBPath, k+1, false)
}

// BuildVertexDB reads every sequence record of fastaPath and writes the
// canonical form of every k-mer window it contains to vertexDBPath.
// Ordering is encounter order. No de-duplication is done here: a
// vertex that occurs more than once is written once per occurrence,
// and mphf.Build collapses the repeats once this file is read back.
func BuildVertexDB(fastaPath, vertexDBPath string, k int) (int64, error) {
	return buildDB(fastaPath, vertexDBPath, k, true)
}

func buildDB(fastaPath, outPath string, width int, canonicalize bool) (int64, error) {
	infile, err := os.Open(fastaPath)
	if err != nil {
		return 0, fmt.Errorf("ingest: open %s: %w", fastaPath, err)
	}
	defer infile.Close()

	w, err := kmerdb.Create(outPath, width)
	if err != nil {
		return 0, fmt.Errorf("ingest: create %s: %w", outPath, err)
	}

	var count int64
	fafp := fasta.NewReader(infile, linear.NewSeq("", nil, alphabet.DNA))
	for {
		s, rerr := fafp.Read()
		if rerr != nil {
			if rerr == io.EOF {
				break
			}
			w.Close()
			return count, fmt.Errorf("ingest: read %s: %w", fastaPath, rerr)
		}
		l := s.(*linear.Seq)
		bases := make([]byte, 0, len(l.Seq))
		flush := func() error {
			for start := 0; start+width <= len(bases); start++ {
				km, e := kmer.FromBases(bases[start : start+width])
				if e != nil {
					return e
				}
				if canonicalize {
					km = km.Canonical()
				}
				if e := w.Write(km); e != nil {
					return e
				}
				count++
			}
			return nil
		}
		for _, residue := range l.Seq {
			b := kmer.Base2Bnt[residue]
			if b > 3 {
				if err := flush(); err != nil {
					w.Close()
					return count, err
				}
				bases = bases[:0]
				continue
			}
			bases = append(bases, b)
		}
		if err := flush(); err != nil {
			w.Close()
			return count, err
		}
	}
	return count, w.Close()
}
