// Package unitigwalker implements the unitig walk (C6): starting from
// a seed canonical vertex, it walks outward on one side through a
// chain of unique-neighbour transitions, building the path's literal
// label and per-vertex hash list until it hits a branching endpoint,
// closes into a cycle, or discovers that some other worker has already
// claimed the unitig it would produce.
package unitigwalker

import (
	"github.com/mudesheng/cuttler/graphstate"
	"github.com/mudesheng/cuttler/kmer"
	"github.com/mudesheng/cuttler/mphf"
)

// Result reports how a walk ended.
type Result int

const (
	// OK means the walk reached a proper endpoint (branching side,
	// dead end, or cycle closure) without racing another worker.
	OK Result = iota
	// Abort means a concurrent worker has already claimed this region
	// (an Out_NonBranch or Out_Branch mark was observed); the caller
	// must abandon the whole maximal-unitig extraction for this seed.
	Abort
)

// Scratch is the per-walk accumulator of spec §3's "unitig scratch":
// anchor and current endpoint vertex, the lexicographically minimum
// vertex observed (and its index in Hashes) for signature-vertex
// selection, the literal label in "as encountered" orientation, the
// per-vertex canonical-hash list, and a cycle flag.
type Scratch struct {
	Anchor    graphstate.DirectedVertex
	Endpoint  graphstate.DirectedVertex
	MinVertex graphstate.DirectedVertex
	MinIndex  int
	Label     []byte
	Hashes    []uint64
	Buckets   []uint64
	Cycle     bool
}

func newScratch(anchor graphstate.DirectedVertex, anchorBucket uint64) *Scratch {
	return &Scratch{
		Anchor:    anchor,
		Endpoint:  anchor,
		MinVertex: anchor,
		MinIndex:  0,
		Label:     append([]byte(nil), anchor.Kmer.Bytes()...),
		Hashes:    []uint64{anchor.CanonicalHash64()},
		Buckets:   []uint64{anchorBucket},
	}
}

func (s *Scratch) extend(next graphstate.DirectedVertex, bucket uint64, b byte) {
	s.Label = append(s.Label, kmer.BntChar[b])
	s.Hashes = append(s.Hashes, next.CanonicalHash64())
	s.Buckets = append(s.Buckets, bucket)
	s.Endpoint = next
	idx := len(s.Hashes) - 1
	if kmer.Compare(next.Canonical(), s.MinVertex.Canonical()) < 0 {
		s.MinVertex = next
		s.MinIndex = idx
	}
}

// Walk performs the walk of spec §4.3, extending outward from seed on
// side s. seed must be in canonical orientation, as every vertex drawn
// from the canonical-vertex stream is.
func Walk(tbl *graphstate.StateTable, m *mphf.Table, seed kmer.Kmer, s graphstate.Side) (*Scratch, Result) {
	var anchorDV graphstate.DirectedVertex
	if s == graphstate.Back {
		anchorDV = graphstate.NewDirectedVertex(seed)
	} else {
		anchorDV = graphstate.NewDirectedVertex(seed.ReverseComplement())
	}
	anchorBucket, ok := m.Lookup(anchorDV.Kmer)
	if !ok {
		panic("unitigwalker: seed vertex has no MPHF bucket")
	}
	scratch := newScratch(anchorDV, anchorBucket)

	cur := anchorDV
	for {
		exitBucket, ok := m.Lookup(cur.Kmer)
		if !ok {
			panic("unitigwalker: vertex has no MPHF bucket")
		}
		exitTableSide := cur.TableSide(graphstate.Back)
		exitEnc := cur.NaturalExt(tbl.Read(exitBucket).At(exitTableSide))

		if exitEnc.IsOutputMark() {
			return scratch, Abort
		}
		if exitEnc == graphstate.Empty || exitEnc == graphstate.Branching {
			return scratch, OK
		}

		// exitEnc is a concrete base: roll forward and inspect the
		// entrance side of the vertex it leads to.
		b := byte(exitEnc)
		nextKmer := cur.Kmer.RollForward(b)
		next := graphstate.NewDirectedVertex(nextKmer)

		entranceBucket, ok := m.Lookup(next.Kmer)
		if !ok {
			panic("unitigwalker: vertex has no MPHF bucket")
		}
		entranceTableSide := next.TableSide(graphstate.Front)
		entranceEnc := tbl.Read(entranceBucket).At(entranceTableSide)

		if entranceEnc.IsOutputMark() {
			return scratch, Abort
		}

		// A cycle closes when the rolled-forward k-mer is the anchor
		// itself. Detected before appending (rather than append-then-
		// detect) so the scratch label ends up exactly
		// vertex_count + (k-1) bases long — the closing edge carries
		// no new sequence information beyond what spec §4.4's
		// rotated-cycle convention already accounts for.
		if kmer.Compare(next.Canonical(), anchorDV.Canonical()) == 0 {
			scratch.Cycle = true
			return scratch, OK
		}

		if entranceEnc == graphstate.Branching || entranceEnc == graphstate.Empty {
			scratch.extend(next, entranceBucket, b)
			return scratch, OK
		}

		scratch.extend(next, entranceBucket, b)
		cur = next
	}
}
