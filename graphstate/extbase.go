// Package graphstate holds the per-vertex state representation shared
// by the edge consumer, the unitig walker and the maximal-unitig
// assembler: the extended-base encoding (C2), the bit-packed,
// sparse-lock-guarded state table (C3), and the directed vertex (C4).
package graphstate

// Side names which end of a vertex, relative to its canonical
// orientation, an incident edge attaches to.
type Side uint8

const (
	Back Side = iota
	Front
)

func (s Side) Other() Side {
	if s == Back {
		return Front
	}
	return Back
}

func (s Side) String() string {
	if s == Back {
		return "back"
	}
	return "front"
}

// ExtEnc is the 3-bit extended-base encoding of one side of a vertex.
type ExtEnc uint8

const (
	BaseA ExtEnc = iota
	BaseC
	BaseG
	BaseT
	Empty
	Branching
	OutNonBranch
	OutBranch
)

// base2Ext maps a 2-bit nucleotide code (A=0,C=1,G=2,T=3) to its
// extended-base encoding; the two encodings coincide for 0..3 but the
// conversion documents that this is a semantically distinct space.
func Base2Ext(b byte) ExtEnc { return ExtEnc(b) }

// IsBase reports whether e denotes a concrete A/C/G/T neighbour.
func (e ExtEnc) IsBase() bool { return e <= BaseT }

// IsOutputMark reports whether e is a post-output sentinel.
func (e ExtEnc) IsOutputMark() bool { return e == OutNonBranch || e == OutBranch }

func (e ExtEnc) String() string {
	switch e {
	case BaseA:
		return "A"
	case BaseC:
		return "C"
	case BaseG:
		return "G"
	case BaseT:
		return "T"
	case Empty:
		return "Empty"
	case Branching:
		return "Branching"
	case OutNonBranch:
		return "Out_NB"
	case OutBranch:
		return "Out_B"
	default:
		return "invalid"
	}
}

// Code packs the two per-side extended-base encodings of a vertex
// into 6 bits: bits [5:3) the front side, bits [2:0) the back side.
type Code uint8

func PackCode(front, back ExtEnc) Code {
	return Code(front)<<3 | Code(back)
}

func (c Code) At(s Side) ExtEnc {
	if s == Front {
		return ExtEnc(c >> 3 & 0x7)
	}
	return ExtEnc(c & 0x7)
}

// With returns a copy of c with side s replaced by e.
func (c Code) With(s Side, e ExtEnc) Code {
	if s == Front {
		return PackCode(e, c.At(Back))
	}
	return PackCode(c.At(Front), e)
}

// outputMarkFor converts a pre-output encoding to its Out_* analogue,
// preserving whether the side was branching; §4.4 step 5 and the
// monotone lattice of spec §3.
func outputMarkFor(e ExtEnc) ExtEnc {
	if e == Branching || e == OutBranch {
		return OutBranch
	}
	return OutNonBranch
}

// MarkOutput returns c with both sides converted to their Out_*
// analogue; used by the assembler to claim every constituent vertex
// of an emitted unitig (spec §4.4 step 5), and is idempotent.
func (c Code) MarkOutput() Code {
	return PackCode(outputMarkFor(c.At(Front)), outputMarkFor(c.At(Back)))
}

// emptyCode is the initial state of every table cell.
const emptyCode = Code(Empty)<<3 | Code(Empty)

// latticeRank orders ExtEnc values in the monotone lattice described
// in spec §3: Empty < {A,C,G,T} < Branching < Out_Branch, with the
// single-base values all incomparable to each other but each strictly
// below Branching; Out_NonBranch is only reachable from Empty or a
// single base, never from Branching.
func latticeRank(e ExtEnc) int {
	switch e {
	case Empty:
		return 0
	case BaseA, BaseC, BaseG, BaseT:
		return 1
	case Branching:
		return 2
	case OutNonBranch:
		return 2
	case OutBranch:
		return 3
	}
	return -1
}

// Monotone reports whether moving from 'from' to 'to' on a single
// side is a legal, non-decreasing lattice transition (spec §3). Equal
// values are always legal (a no-op write).
func Monotone(from, to ExtEnc) bool {
	if from == to {
		return true
	}
	if from == Branching {
		return to == OutBranch
	}
	return latticeRank(to) > latticeRank(from) || (from.IsBase() && to == OutNonBranch)
}
