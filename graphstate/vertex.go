package graphstate

import "github.com/mudesheng/cuttler/kmer"

// DirectedVertex pairs a k-mer as encountered (e.g. the literal prefix
// or suffix of a parsed (k+1)-mer, or the current endpoint of an
// in-progress unitig walk) with its reverse complement. Per the design
// note "avoid cyclic data types", this holds both k-mers directly and
// recomputes which one is canonical (IsCanonical) and its hash
// (CanonicalHash64) on each call, rather than keeping a
// self-referential pointer to "the canonical one" (mirroring how ga/constructdbg.go's GetMinDBGNode recomputes
// the canonical form on demand instead of caching a pointer to it).
//
// A DirectedVertex is transient scratch: ownership is local to a
// single worker goroutine for the duration of one walk step.
type DirectedVertex struct {
	Kmer kmer.Kmer
	RC   kmer.Kmer
}

// NewDirectedVertex wraps k, precomputing its reverse complement.
func NewDirectedVertex(k kmer.Kmer) DirectedVertex {
	return DirectedVertex{Kmer: k, RC: k.ReverseComplement()}
}

// IsCanonical reports whether Kmer (rather than RC) is the vertex's
// canonical form.
func (v DirectedVertex) IsCanonical() bool {
	return kmer.Compare(v.Kmer, v.RC) <= 0
}

// Canonical returns the lexicographically smaller of Kmer and RC.
func (v DirectedVertex) Canonical() kmer.Kmer {
	if v.IsCanonical() {
		return v.Kmer
	}
	return v.RC
}

// CanonicalHash64 hashes the canonical form; two DirectedVertex values
// over the same underlying vertex, regardless of which strand they
// were encountered on, hash identically.
func (v DirectedVertex) CanonicalHash64() uint64 {
	return v.Canonical().Hash64()
}

// Reverse flips which k-mer is "as encountered": walking off a vertex
// through one side continues from the other vertex's opposite side,
// expressed in directed terms as swapping Kmer and RC.
func (v DirectedVertex) Reverse() DirectedVertex {
	return DirectedVertex{Kmer: v.RC, RC: v.Kmer}
}

// TableSide translates a side expressed relative to v's "as
// encountered" orientation (v.Kmer) into the side used to index the
// state table, which is always keyed in canonical-vertex coordinates:
// unchanged if v is already canonical, flipped otherwise.
func (v DirectedVertex) TableSide(natural Side) Side {
	if v.IsCanonical() {
		return natural
	}
	return natural.Other()
}

// NaturalExt is the inverse of the complement half of
// EndpointSideAndEnc: given an encoding read directly out of the state
// table, it returns the encoding as it applies to v's "as encountered"
// orientation. Empty/Branching/Out_* marks carry no directionality and
// pass through unchanged; a concrete base is complemented when v is
// not in canonical orientation.
func (v DirectedVertex) NaturalExt(tableEnc ExtEnc) ExtEnc {
	if v.IsCanonical() || !tableEnc.IsBase() {
		return tableEnc
	}
	return Base2Ext(kmer.BntRev[byte(tableEnc)])
}

// EndpointSideAndEnc derives the side and extended-base encoding that
// this directed vertex's 'natural' endpoint (Back for a (k+1)-mer's
// prefix vertex, Front for its suffix vertex, per spec §4.2) presents
// to the rest of the graph, given the incident nucleotide read off
// the (k+1)-mer on that same natural side. If the vertex is not in
// canonical orientation, the touching side flips and the nucleotide
// is recorded as its complement, since everything in the state table
// is keyed, and oriented, by the canonical k-mer.
func (v DirectedVertex) EndpointSideAndEnc(natural Side, incidentBase byte) (Side, ExtEnc) {
	if v.IsCanonical() {
		return natural, Base2Ext(incidentBase)
	}
	return natural.Other(), Base2Ext(kmer.BntRev[incidentBase])
}
