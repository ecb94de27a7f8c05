// Package kmerdb implements the core's view of the external k-mer
// database collaborator (spec.md §6): a pair of files holding, in the
// edge phase, every (k+1)-mer of the corpus, and in the vertex phase,
// canonical k-mers, repeats allowed (mphf.Build collapses them).
// spec.md places the real enumerator
// (KMC-style counting from raw reads) out of scope; this package gives
// the rest of the module a concrete, self-consistent realisation of
// the "read_next_slab" iterator contract spec.md §6 describes, built
// the way ga/constructdbg.go's GetNodeRecord/GetKmerRecord stream
// fixed-size records out of a binary file into pooled buffers.
//
// On-disk layout: an 8-byte little-endian k (base count), followed by
// back-to-back records, each record big-endian-byte-packed 4-bases-
// per-byte (the first base of the k-mer occupying the most
// significant 2 bits of the first byte). Endian-reversal into the
// package's own little-endian Kmer.Words happens once per record at
// read time, the same "reverse then renormalise" step spec.md §6
// calls for, just against this package's own wire format rather than
// KMC's.
package kmerdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/mudesheng/cuttler/kmer"
)

func byteLen(k int) int { return (k + 3) / 4 }

// packBases encodes k 2-bit bases into big-endian bytes, 4 per byte,
// first base in the high bits of the first byte.
func packBases(bases []byte) []byte {
	out := make([]byte, byteLen(len(bases)))
	for i, b := range bases {
		byteIdx := i / 4
		shift := uint(6 - 2*(i%4))
		out[byteIdx] |= b << shift
	}
	return out
}

func unpackBases(raw []byte, k int) []byte {
	bases := make([]byte, k)
	for i := 0; i < k; i++ {
		byteIdx := i / 4
		shift := uint(6 - 2*(i%4))
		bases[i] = (raw[byteIdx] >> shift) & 0x3
	}
	return bases
}

// Writer appends k-mers to a database file, zstd-compressed the way
// ga/preprocess.go's writeCorrectReads streams its output through
// zstd.NewWriter.
type Writer struct {
	fp  *os.File
	zw  *zstd.Encoder
	buf *bufio.Writer
	k   int
}

// Create opens path for writing a database of k-mers of length k.
func Create(path string, k int) (*Writer, error) {
	fp, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(fp, zstd.WithEncoderCRC(false), zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		fp.Close()
		return nil, err
	}
	if err := binary.Write(zw, binary.LittleEndian, uint64(k)); err != nil {
		zw.Close()
		fp.Close()
		return nil, err
	}
	return &Writer{fp: fp, zw: zw, buf: bufio.NewWriterSize(zw, 1<<20), k: k}, nil
}

// Write appends one k-mer. The k-mer must have length k.
func (w *Writer) Write(km kmer.Kmer) error {
	if km.K != w.k {
		return fmt.Errorf("kmerdb: k-mer length %d != database k %d", km.K, w.k)
	}
	bases := make([]byte, km.K)
	for i := 0; i < km.K; i++ {
		bases[i] = km.BaseAt(km.K - 1 - i)
	}
	_, err := w.buf.Write(packBases(bases))
	return err
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.zw.Close()
		w.fp.Close()
		return err
	}
	if err := w.zw.Close(); err != nil {
		w.fp.Close()
		return err
	}
	return w.fp.Close()
}

// Reader streams k-mers back out of a database file written by Writer.
type Reader struct {
	fp  *os.File
	zr  *zstd.Decoder
	buf *bufio.Reader
	K   int
}

// Open opens path, reading its k header.
func Open(path string) (*Reader, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	zr, err := zstd.NewReader(fp)
	if err != nil {
		fp.Close()
		return nil, err
	}
	var k uint64
	if err := binary.Read(zr, binary.LittleEndian, &k); err != nil {
		zr.Close()
		fp.Close()
		return nil, err
	}
	return &Reader{fp: fp, zr: zr, buf: bufio.NewReaderSize(zr, 1<<20), K: int(k)}, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	r.zr.Close()
	return r.fp.Close()
}

// Next returns the next k-mer, or io.EOF when the database is
// exhausted.
func (r *Reader) Next() (kmer.Kmer, error) {
	raw := make([]byte, byteLen(r.K))
	if _, err := io.ReadFull(r.buf, raw); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return kmer.Kmer{}, err
	}
	bases := unpackBases(raw, r.K)
	return kmer.FromBases(bases)
}

// ReadNextSlab fills buf with up to len(buf) consecutive k-mers,
// returning how many were filled; it returns io.EOF once the
// database has been fully drained (filled may be > 0 on the same
// call that returns io.EOF, mirroring ga/constructdbg.go's
// GetNodeRecord/GetKmerRecord end-of-file handling).
func (r *Reader) ReadNextSlab(buf []kmer.Kmer) (filled int, err error) {
	for filled < len(buf) {
		km, e := r.Next()
		if e != nil {
			return filled, e
		}
		buf[filled] = km
		filled++
	}
	return filled, nil
}
