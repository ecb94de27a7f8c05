package orchestrator

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mudesheng/cuttler/assembler"
	"github.com/mudesheng/cuttler/edgeconsumer"
	"github.com/mudesheng/cuttler/graphstate"
	"github.com/mudesheng/cuttler/kmer"
	"github.com/mudesheng/cuttler/kmerdb"
	"github.com/mudesheng/cuttler/mphf"
	"github.com/mudesheng/cuttler/writer"
)

func loadVertices(path string) ([]kmer.Kmer, int) {
	r, err := kmerdb.Open(path)
	if err != nil {
		log.Fatalf("[Run] open vertex db: %s failed, err: %v\n", path, err)
	}
	defer r.Close()
	var verts []kmer.Kmer
	for {
		km, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("[Run] read vertex db: %s failed, err: %v\n", path, err)
		}
		verts = append(verts, km)
	}
	return verts, r.K
}

func openOutputSink(cfg Config) writer.RecordSink {
	if cfg.CompressOutput {
		s, err := writer.NewZstdFile(cfg.OutputPath)
		if err != nil {
			log.Fatalf("[Run] create output: %s failed, err: %v\n", cfg.OutputPath, err)
		}
		return s
	}
	fp, err := os.Create(cfg.OutputPath)
	if err != nil {
		log.Fatalf("[Run] create output: %s failed, err: %v\n", cfg.OutputPath, err)
	}
	return writer.NewPlain(fp)
}

// Run executes both phases of spec §4.5 over cfg: build the MPHF and
// state table from the vertex database, fold every edge of the edge
// database into the table (phase 1), join, then extract and emit
// every maximal unitig and detached chordless cycle by walking the
// canonical vertex stream a second time (phase 2). It returns the
// aggregated per-worker Stats for cmd/cuttler's JSON summary.
func Run(cfg Config) assembler.Stats {
	CheckConfig(cfg)

	fmt.Fprintf(os.Stderr, "[Run] loading vertex database: %s\n", cfg.VertexDBPath)
	verts, k := loadVertices(cfg.VertexDBPath)
	if k != cfg.K {
		log.Fatalf("[Run] vertex db k:%d does not match configured kmer:%d\n", k, cfg.K)
	}
	m, err := mphf.Build(verts)
	if err != nil {
		log.Fatalf("[Run] mphf.Build failed, err: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "[Run] built MPHF over %d distinct vertices\n", m.N())

	var tbl *graphstate.StateTable
	if cfg.StatePersistPath != "" {
		if loaded, err := graphstate.Load(cfg.StatePersistPath); err == nil {
			fmt.Fprintf(os.Stderr, "[Run] loaded persisted state table: %s\n", cfg.StatePersistPath)
			tbl = loaded
		}
	}
	if tbl == nil {
		tbl = graphstate.NewStateTable(m.N())
	}

	mode := edgeconsumer.ModeUnitig
	if cfg.PathCover {
		mode = edgeconsumer.ModePathCover
	}
	runEdgePhase(cfg, tbl, m, mode)

	if cfg.StatePersistPath != "" {
		if err := tbl.Save(cfg.StatePersistPath); err != nil {
			log.Fatalf("[Run] save state table: %s failed, err: %v\n", cfg.StatePersistPath, err)
		}
	}
	if cfg.GraphDotPath != "" {
		if err := DumpStateGraph(tbl, m.N(), cfg.GraphDotPath); err != nil {
			log.Fatalf("[Run] dump state graph: %s failed, err: %v\n", cfg.GraphDotPath, err)
		}
	}

	return runVertexPhase(cfg, tbl, m)
}

func runEdgePhase(cfg Config, tbl *graphstate.StateTable, m *mphf.Table, mode edgeconsumer.Mode) {
	r, err := kmerdb.Open(cfg.EdgeDBPath)
	if err != nil {
		log.Fatalf("[Run] open edge db: %s failed, err: %v\n", cfg.EdgeDBPath, err)
	}
	defer r.Close()

	consumer := edgeconsumer.New(tbl, m, mode)
	progress := NewProgress(0)
	stop := make(chan struct{})
	Report("EdgePhase", progress, time.Second, stop)

	err = kmerdb.RunPool(r, cfg.NumCPU, cfg.SlabKmers, func(e kmer.Kmer) {
		consumer.ConsumeEdge(e)
		progress.Add(1)
	})
	close(stop)
	if err != nil {
		log.Fatalf("[Run] edge phase aborted: read edge db: %s failed, err: %v\n", cfg.EdgeDBPath, err)
	}
	fmt.Fprintf(os.Stderr, "[Run] edge phase complete: %d edges processed\n", consumer.EdgesProcessed())
}

func runVertexPhase(cfg Config, tbl *graphstate.StateTable, m *mphf.Table) assembler.Stats {
	r, err := kmerdb.Open(cfg.VertexDBPath)
	if err != nil {
		log.Fatalf("[Run] reopen vertex db: %s failed, err: %v\n", cfg.VertexDBPath, err)
	}
	defer r.Close()

	sink := openOutputSink(cfg)
	defer sink.Close()

	bufCap := cfg.BufferCapacity
	if bufCap <= 0 {
		bufCap = writer.DefaultBufferCapacity
	}

	numWorkers := cfg.NumCPU
	stream := kmerdb.NewStream(r, numWorkers, cfg.SlabKmers)
	workers := make([]*assembler.Worker, numWorkers)
	progress := NewProgress(m.N())
	stop := make(chan struct{})
	Report("VertexPhase", progress, time.Second, stop)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		buf := writer.NewBuffer(sink, bufCap)
		workers[i] = assembler.NewWorker(tbl, m, buf)
		go func(idx int) {
			defer wg.Done()
			stream.Consume(idx, func(km kmer.Kmer) {
				if err := workers[idx].Extract(km); err != nil {
					log.Fatalf("[Run] vertex phase extract failed, err: %v\n", err)
				}
				progress.Add(1)
			})
		}(i)
	}
	stream.Run()
	wg.Wait()
	close(stop)
	if err := stream.Err(); err != nil {
		log.Fatalf("[Run] vertex phase aborted: read vertex db: %s failed, err: %v\n", cfg.VertexDBPath, err)
	}

	var total assembler.Stats
	for _, w := range workers {
		if err := w.Out.Flush(); err != nil {
			log.Fatalf("[Run] flush output failed, err: %v\n", err)
		}
		total.Merge(&w.Stats)
	}
	fmt.Fprintf(os.Stderr, "[Run] vertex phase complete: %d unitigs, %d DCCs\n", total.UnitigCount, total.DCCCount)
	return total
}
