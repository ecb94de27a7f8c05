package kmerdb

import (
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/mudesheng/cuttler/kmer"
)

// Slab status values, spec §4.5: the producer rotates among consumer
// slots busy-finding one that is Pending, fills it and marks it
// Available; each consumer busy-waits on its own slot, drains it, and
// flips back to Pending; at end of stream the producer marks every
// slot NoMore and exits.
const (
	Pending int32 = iota
	Available
	NoMore
)

// defaultSlabKmers stands in for the nominal slab size spec §4.5 names
// (16 MB), counted here in k-mers rather than raw bytes since this
// package's slabs are already parsed kmer.Kmer values rather than
// opaque byte runs.
const defaultSlabKmers = 1 << 16

// Slot is one consumer's slab buffer plus its atomic status word.
type Slot struct {
	status int32 // atomic, one of Pending/Available/NoMore
	Kmers  []kmer.Kmer
	Filled int
}

func (s *Slot) loadStatus() int32 { return atomic.LoadInt32(&s.status) }
func (s *Slot) storeStatus(v int32) { atomic.StoreInt32(&s.status, v) }

// Stream is the single-producer/multi-consumer streaming iterator of
// spec §4.5: one producer goroutine reads slabs from a Reader into a
// fixed ring of per-consumer Slots; each consumer goroutine claims its
// own slot index and spins on its status word. Unlike spec's OS-thread
// model, consumers here are goroutines, but the handoff protocol
// (pending -> available -> pending, busy-spin both directions, no
// sleep) is the same one described for the edge/vertex phases.
type Stream struct {
	reader *Reader
	slots  []Slot
	err    error
}

// NewStream allocates a stream with one slot per consumer, each able to
// hold up to slabKmers k-mers; slabKmers <= 0 selects a default sized
// for sub-second producer turnaround on typical inputs.
func NewStream(r *Reader, numConsumers, slabKmers int) *Stream {
	if slabKmers <= 0 {
		slabKmers = defaultSlabKmers
	}
	st := &Stream{reader: r, slots: make([]Slot, numConsumers)}
	for i := range st.slots {
		st.slots[i].Kmers = make([]kmer.Kmer, slabKmers)
		st.slots[i].status = Pending
	}
	return st
}

// Run is the producer loop: it busy-finds a Pending slot, fills it from
// the underlying Reader, and marks it Available, repeating until the
// Reader is exhausted, at which point every slot is marked NoMore. Run
// blocks until the whole database has been streamed and must be
// launched in its own goroutine by the caller (orchestrator owns that
// decision, matching spec §4.5's "producer thread" framing).
func (s *Stream) Run() {
	i := 0
	for {
		slot := &s.slots[i]
		if slot.loadStatus() != Pending {
			i = (i + 1) % len(s.slots)
			runtime.Gosched()
			continue
		}
		filled, err := s.reader.ReadNextSlab(slot.Kmers)
		slot.Filled = filled
		if err != nil && err != io.EOF {
			// spec §4.6/§7 names disk I/O errors kind-1 fatal for the
			// run: recorded on the stream and surfaced through Err()
			// once every slot has drained and the producer has exited,
			// so the caller can tell a real failure apart from a clean
			// end of stream (both would otherwise look like NoMore).
			slot.Filled = 0
			s.err = err
			slot.storeStatus(NoMore)
			s.drainAll()
			return
		}
		if filled > 0 {
			slot.storeStatus(Available)
		}
		if err == io.EOF {
			s.drainAll()
			return
		}
		i = (i + 1) % len(s.slots)
	}
}

// drainAll waits for every slot's last Available slab (if any) to be
// consumed, then marks every slot NoMore, once the producer has
// reached end of stream.
func (s *Stream) drainAll() {
	for j := range s.slots {
		for s.slots[j].loadStatus() == Available {
			runtime.Gosched() // let the consumer drain what's already Available
		}
		s.slots[j].storeStatus(NoMore)
	}
}

// Consume runs process over every k-mer handed to consumer slot idx,
// busy-waiting for Available slabs and flipping its slot back to
// Pending once drained, until the slot is marked NoMore.
func (s *Stream) Consume(idx int, process func(kmer.Kmer)) {
	slot := &s.slots[idx]
	for {
		switch slot.loadStatus() {
		case Available:
			for i := 0; i < slot.Filled; i++ {
				process(slot.Kmers[i])
			}
			slot.storeStatus(Pending)
		case NoMore:
			return
		default:
			runtime.Gosched()
		}
	}
}

// Err reports the I/O error that aborted the stream, if any. It must
// only be read after Run (or RunPool) has returned and every consumer
// has observed NoMore; a nil Err after a clean return means the stream
// reached a genuine end of file.
func (s *Stream) Err() error { return s.err }

// RunPool launches the producer and numConsumers goroutines running
// process concurrently, and blocks until every k-mer in r has been
// delivered and consumed. This is the convenience entry point the
// orchestrator calls once per phase. A non-nil error means the
// underlying reader hit a fatal I/O error partway through (spec
// §4.6/§7 kind-1): the caller must treat the phase as incomplete and
// abort the run rather than proceed as if it had reached end of
// stream.
func RunPool(r *Reader, numConsumers, slabKmers int, process func(kmer.Kmer)) error {
	s := NewStream(r, numConsumers, slabKmers)
	var wg sync.WaitGroup
	wg.Add(numConsumers)
	for i := 0; i < numConsumers; i++ {
		go func(i int) {
			defer wg.Done()
			s.Consume(i, process)
		}(i)
	}
	s.Run()
	wg.Wait()
	return s.Err()
}
