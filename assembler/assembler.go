// Package assembler implements the maximal-unitig assembler (C7):
// given a seed canonical vertex, it joins the back-walk and
// front-walk of unitigwalker at the seed, claims the unitig for
// output via a single atomic mark at its signature vertex, marks
// every other constituent vertex output, canonicalizes the label, and
// emits a FASTA record through writer.Buffer. It also accumulates the
// per-worker meta-info counters spec §4.4 names.
package assembler

import (
	"bytes"

	"github.com/mudesheng/cuttler/graphstate"
	"github.com/mudesheng/cuttler/kmer"
	"github.com/mudesheng/cuttler/mphf"
	"github.com/mudesheng/cuttler/unitigwalker"
	"github.com/mudesheng/cuttler/writer"
)

// Stats accumulates spec §4.4's "Meta-info" per-worker counters; the
// orchestrator merges one of these per worker, one after another, once
// every worker has finished.
type Stats struct {
	UnitigCount  uint64
	KmerCount    uint64
	MinLen       int
	MaxLen       int
	SumLen       uint64
	DCCCount     uint64
	DCCKmerSum   uint64
	DCCLengthSum uint64
}

func (s *Stats) recordLinear(kmerCount, length int) {
	s.UnitigCount++
	s.KmerCount += uint64(kmerCount)
	s.SumLen += uint64(length)
	if s.MinLen == 0 || length < s.MinLen {
		s.MinLen = length
	}
	if length > s.MaxLen {
		s.MaxLen = length
	}
}

func (s *Stats) recordDCC(vertexCount, length int) {
	s.UnitigCount++
	s.DCCCount++
	s.KmerCount += uint64(vertexCount)
	s.DCCKmerSum += uint64(vertexCount)
	s.DCCLengthSum += uint64(length)
	s.SumLen += uint64(length)
	if s.MinLen == 0 || length < s.MinLen {
		s.MinLen = length
	}
	if length > s.MaxLen {
		s.MaxLen = length
	}
}

// Merge folds other into s, for aggregating per-worker Stats after the
// vertex phase. It takes no lock.
func (s *Stats) Merge(other *Stats) {
	s.UnitigCount += other.UnitigCount
	s.KmerCount += other.KmerCount
	s.SumLen += other.SumLen
	s.DCCCount += other.DCCCount
	s.DCCKmerSum += other.DCCKmerSum
	s.DCCLengthSum += other.DCCLengthSum
	if other.MinLen != 0 && (s.MinLen == 0 || other.MinLen < s.MinLen) {
		s.MinLen = other.MinLen
	}
	if other.MaxLen > s.MaxLen {
		s.MaxLen = other.MaxLen
	}
}

// Worker is a per-goroutine assembler instance: it owns no state of
// its own beyond its output buffer and Stats (the table and MPHF are
// shared, read/written only through their own synchronisation).
type Worker struct {
	Table *graphstate.StateTable
	MPHF  *mphf.Table
	Out   *writer.Buffer
	Stats Stats
}

// NewWorker constructs a Worker writing through buf.
func NewWorker(tbl *graphstate.StateTable, m *mphf.Table, buf *writer.Buffer) *Worker {
	return &Worker{Table: tbl, MPHF: m, Out: buf}
}

// Extract runs spec §4.4 for one seed vertex drawn from the canonical
// vertex stream. It is a no-op if the vertex is already fully output,
// and abandons cleanly (no output, no panic) if it loses a race to
// another worker extracting an overlapping unitig.
func (w *Worker) Extract(seed kmer.Kmer) error {
	bucket, ok := w.MPHF.Lookup(seed)
	if !ok {
		panic("assembler: seed vertex has no MPHF bucket")
	}
	seedCode := w.Table.Read(bucket)
	if seedCode.At(graphstate.Front).IsOutputMark() && seedCode.At(graphstate.Back).IsOutputMark() {
		return nil
	}

	back, backRes := unitigwalker.Walk(w.Table, w.MPHF, seed, graphstate.Back)
	if backRes == unitigwalker.Abort {
		return nil
	}
	if back.Cycle {
		return w.emitDCC(back)
	}

	front, frontRes := unitigwalker.Walk(w.Table, w.MPHF, seed, graphstate.Front)
	if frontRes == unitigwalker.Abort {
		return nil
	}

	return w.emitLinear(back, front)
}

// signatureBucketLinear picks spec §4.4 step 4's signature vertex for
// a linear maximal unitig: the lexicographically smaller of the two
// walk endpoints.
func signatureBucketLinear(back, front *unitigwalker.Scratch) uint64 {
	backEnd := back.Endpoint.Canonical()
	frontEnd := front.Endpoint.Canonical()
	if kmer.Compare(backEnd, frontEnd) <= 0 {
		return back.Buckets[len(back.Buckets)-1]
	}
	return front.Buckets[len(front.Buckets)-1]
}

// claim attempts the signature-vertex CAS of spec §4.4 step 4: convert
// whatever code is currently stored to its Out_* analogue, retrying
// only on a CAS miss (never on an already-output state, which means
// another worker won the race).
func claim(tbl *graphstate.StateTable, bucket uint64) bool {
	for {
		cur := tbl.Read(bucket)
		if cur.At(graphstate.Front).IsOutputMark() && cur.At(graphstate.Back).IsOutputMark() {
			return false
		}
		if tbl.TryUpdate(bucket, cur, cur.MarkOutput()) {
			return true
		}
	}
}

// markAllOutput unconditionally converts every constituent vertex of
// an emitted unitig to its Out_* analogue (spec §4.4 step 5); this is
// monotone and idempotent so visiting the same bucket twice (as
// happens for the shared anchor in a linear unitig's back/front
// scratches) is harmless.
func markAllOutput(tbl *graphstate.StateTable, buckets ...uint64) {
	for _, b := range buckets {
		tbl.UpdateWith(b, func(c graphstate.Code) graphstate.Code { return c.MarkOutput() })
	}
}

func (w *Worker) emitLinear(back, front *unitigwalker.Scratch) error {
	sigBucket := signatureBucketLinear(back, front)
	if !claim(w.Table, sigBucket) {
		return nil
	}
	markAllOutput(w.Table, back.Buckets...)
	markAllOutput(w.Table, front.Buckets...)

	label := assembleLinearLabel(back, front)
	kmerCount := len(back.Buckets) + len(front.Buckets) - 1
	sigVertex := back.Endpoint
	if kmer.Compare(back.Endpoint.Canonical(), front.Endpoint.Canonical()) > 0 {
		sigVertex = front.Endpoint
	}
	id := sigVertex.CanonicalHash64()

	if err := w.Out.WriteRecord(id, label); err != nil {
		return err
	}
	w.Stats.recordLinear(kmerCount, len(label))
	return nil
}

func (w *Worker) emitDCC(back *unitigwalker.Scratch) error {
	minBucket := back.Buckets[back.MinIndex]
	if !claim(w.Table, minBucket) {
		return nil
	}
	markAllOutput(w.Table, back.Buckets...)

	label := rotateCycleLabel(back)
	vertexCount := len(back.Buckets)
	id := back.MinVertex.CanonicalHash64()

	if err := w.Out.WriteRecord(id, label); err != nil {
		return err
	}
	w.Stats.recordDCC(vertexCount, len(label))
	return nil
}

// assembleLinearLabel implements spec §4.4 step 6. front.Label reads,
// in the "as encountered" orientation of the front walk, as
// [rc(seed)'s k bases][front extension bases]; reverse-complementing
// the whole thing turns it into [rc(extension)][seed's own k bases],
// whose trailing k bases duplicate back.Label's leading k bases and
// are dropped before the two segments are concatenated. The result is
// canonicalised to the lexicographically smaller of itself and its own
// reverse complement, per spec §8's round-trip law.
func assembleLinearLabel(back, front *unitigwalker.Scratch) []byte {
	k := back.Anchor.Kmer.K
	frontRC := reverseComplementBytes(front.Label)
	frontPrefix := frontRC[:len(frontRC)-k]

	s := make([]byte, 0, len(frontPrefix)+len(back.Label))
	s = append(s, frontPrefix...)
	s = append(s, back.Label...)
	return canonicalizeLabel(s)
}

// rotateCycleLabel implements spec §4.4 step 7: rotate the cycle's
// label so the lexicographically minimum canonical vertex sits at
// offset 0, then append the first k-1 bases again so a linear reader
// can recover every k-mer window by sliding across the string once.
// back.Label already holds exactly vertex_count + (k-1) bases
// (unitigwalker stops appending at the closing edge, spec §4.4's
// length formula), so its first vertex_count bases are the cycle's
// one fundamental period.
func rotateCycleLabel(back *unitigwalker.Scratch) []byte {
	k := back.Anchor.Kmer.K
	vertexCount := len(back.Buckets)
	core := back.Label[:vertexCount]

	rotated := make([]byte, vertexCount)
	for i := 0; i < vertexCount; i++ {
		rotated[i] = core[(back.MinIndex+i)%vertexCount]
	}
	out := make([]byte, 0, vertexCount+k-1)
	out = append(out, rotated...)
	out = append(out, rotated[:k-1]...)
	return canonicalizeLabel(out)
}

func complementByte(c byte) byte {
	return kmer.BntChar[kmer.BntRev[kmer.Base2Bnt[c]]]
}

func reverseComplementBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = complementByte(c)
	}
	return out
}

// canonicalizeLabel returns the lexicographically smaller of s and its
// reverse complement.
func canonicalizeLabel(s []byte) []byte {
	rc := reverseComplementBytes(s)
	if bytes.Compare(rc, s) < 0 {
		return rc
	}
	return s
}
