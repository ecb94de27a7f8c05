package graphstate

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/google/brotli/go/cbrotli"
)

const entriesPerWord = 10 // 6 bits * 10 = 60 bits used, 4 spillover bits wasted per word
const bitsPerEntry = 6

// numSparseLocks is fixed at 2^16 per spec §4.1 / design note: a
// dense per-bucket lock would cost more memory than the payload.
const numSparseLocks = 1 << 16

// spinlock is an atomic test-and-set lock with bounded spin, mirroring
// the acquire/release CAS loops in ga/cuckoofilter.go's CFItem/Bucket
// methods (CompareAndSwapUint16 there, sync/atomic here since the
// state table is packed into native 64-bit words rather than cgo'd
// 16-bit cuckoo-filter items).
type spinlock struct {
	state uint32
	_     [15]uint32 // pad to a cache line, avoid false sharing between adjacent locks
}

func (l *spinlock) Lock() {
	for !atomic.CompareAndSwapUint32(&l.state, 0, 1) {
		runtime.Gosched()
	}
}

func (l *spinlock) Unlock() {
	atomic.StoreUint32(&l.state, 0)
}

// StateTable is the fixed-size, bit-packed per-vertex state array of
// spec §3/§4.1: N canonical-vertex cells, 6 bits each, guarded by a
// sparse array of spinlocks partitioning the index space into
// contiguous blocks.
type StateTable struct {
	words     []uint64
	n         uint64
	locks     []spinlock
	blockSize uint64
}

// NewStateTable allocates a table for n canonical vertices, every
// cell initialised to (Empty, Empty).
func NewStateTable(n uint64) *StateTable {
	nWords := (n + entriesPerWord - 1) / entriesPerWord
	if nWords == 0 {
		nWords = 1
	}
	t := &StateTable{
		words:     make([]uint64, nWords),
		n:         n,
		locks:     make([]spinlock, numSparseLocks),
		blockSize: (n + numSparseLocks - 1) / numSparseLocks,
	}
	if t.blockSize == 0 {
		t.blockSize = 1
	}
	// the zero value of Code is (A, A), not PackCode(Empty, Empty) ==
	// 0x24, so the zero-initialised words array does NOT already mean
	// Empty; every word must be seeded with the correct bit pattern.
	t.fill(emptyCode)
	return t
}

func (t *StateTable) fill(c Code) {
	for idx := uint64(0); idx < t.n; idx++ {
		t.rawSet(idx, c)
	}
}

func (t *StateTable) lockFor(bucket uint64) *spinlock {
	li := bucket / t.blockSize
	if li >= numSparseLocks {
		li = numSparseLocks - 1
	}
	return &t.locks[li]
}

func (t *StateTable) rawGet(bucket uint64) Code {
	bitPos := (bucket % entriesPerWord) * bitsPerEntry
	word := t.words[bucket/entriesPerWord]
	return Code((word >> bitPos) & 0x3F)
}

func (t *StateTable) rawSet(bucket uint64, c Code) {
	bitPos := (bucket % entriesPerWord) * bitsPerEntry
	wi := bucket / entriesPerWord
	t.words[wi] &^= uint64(0x3F) << bitPos
	t.words[wi] |= uint64(c&0x3F) << bitPos
}

// N returns the number of distinct canonical vertices the table was
// sized for.
func (t *StateTable) N() uint64 { return t.n }

// Read takes the lock guarding bucket and returns a snapshot of its
// code.
func (t *StateTable) Read(bucket uint64) Code {
	l := t.lockFor(bucket)
	l.Lock()
	c := t.rawGet(bucket)
	l.Unlock()
	return c
}

// TryUpdate takes the lock guarding bucket, writes newCode iff the
// current value equals expected, and reports success. The edge
// consumer's maximal-unitig retry loops and the assembler's
// signature-vertex claim mutate the table through this.
func (t *StateTable) TryUpdate(bucket uint64, expected, newCode Code) bool {
	l := t.lockFor(bucket)
	l.Lock()
	defer l.Unlock()
	if t.rawGet(bucket) != expected {
		return false
	}
	t.rawSet(bucket, newCode)
	return true
}

// UpdateUnchecked overwrites bucket's code unconditionally. The
// assembler's output-mark path does not call it; it marks through
// UpdateWith.
func (t *StateTable) UpdateUnchecked(bucket uint64, newCode Code) {
	l := t.lockFor(bucket)
	l.Lock()
	t.rawSet(bucket, newCode)
	l.Unlock()
}

// UpdateWith reads, applies f, and writes back under a single lock
// acquisition; used for the idempotent, unconditional output-mark
// conversion of a unitig's non-signature constituent vertices.
func (t *StateTable) UpdateWith(bucket uint64, f func(Code) Code) Code {
	l := t.lockFor(bucket)
	l.Lock()
	defer l.Unlock()
	newCode := f(t.rawGet(bucket))
	t.rawSet(bucket, newCode)
	return newCode
}

// TryUpdatePair locks the two buckets' guarding locks in ascending
// lock-identity order (not bucket-id order — two far-apart buckets can
// share a lock) to avoid deadlock, checks both expectations, and
// commits atomically. This is the only way the path-cover variant of
// the edge consumer ties an edge addition to two vertices at once.
func (t *StateTable) TryUpdatePair(b1, b2 uint64, expected1, new1, expected2, new2 Code) bool {
	l1, l2 := t.lockFor(b1), t.lockFor(b2)
	if l1 == l2 {
		l1.Lock()
		defer l1.Unlock()
		if t.rawGet(b1) != expected1 || t.rawGet(b2) != expected2 {
			return false
		}
		t.rawSet(b1, new1)
		t.rawSet(b2, new2)
		return true
	}
	first, second := l1, l2
	if uintptr(unsafe.Pointer(l2)) < uintptr(unsafe.Pointer(l1)) {
		first, second = l2, l1
	}
	first.Lock()
	defer first.Unlock()
	second.Lock()
	defer second.Unlock()
	if t.rawGet(b1) != expected1 || t.rawGet(b2) != expected2 {
		return false
	}
	t.rawSet(b1, new1)
	t.rawSet(b2, new2)
	return true
}

// Save persists the packed state table to a brotli-compressed raw
// little-endian blob, preceded by an 8-byte N header, mirroring
// ga/cuckoofilter.go's MmapWriter (gob+brotli) but with the table's
// own raw word layout instead of gob, since the payload is already
// a flat []uint64.
func (t *StateTable) Save(path string) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fp.Close()
	bw := cbrotli.NewWriter(fp, cbrotli.WriterOptions{Quality: 5})
	defer bw.Close()
	buf := bufio.NewWriterSize(bw, 1<<20)
	if err := binary.Write(buf, binary.LittleEndian, t.n); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, t.words); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	return bw.Flush()
}

// Load restores a StateTable previously written by Save.
func Load(path string) (*StateTable, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	br := cbrotli.NewReader(fp)
	defer br.Close()
	buf := bufio.NewReaderSize(br, 1<<20)
	var n uint64
	if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	t := NewStateTable(n)
	if err := binary.Read(buf, binary.LittleEndian, t.words); err != nil {
		if err != io.EOF {
			return nil, err
		}
	}
	return t, nil
}

