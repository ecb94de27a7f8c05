// Command cuttler is the CLI entrypoint: it wires odin/cli subcommands
// onto the orchestrator and ingest packages, mirroring ga.go's
// cli.New/app.Define*Flag/app.DefineSubCommand structure exactly, down
// to the bracketed-tag log.Fatalf convention of utils.CheckGlobalArgs.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jwaldrip/odin/cli"

	"github.com/mudesheng/cuttler/assembler"
	"github.com/mudesheng/cuttler/ingest"
	"github.com/mudesheng/cuttler/kmer"
	"github.com/mudesheng/cuttler/orchestrator"
)

var app = cli.New("1.0.0", "concurrent de Bruijn graph compaction", func(c cli.Command) {})

func init() {
	compact := app.DefineSubCommand("compact", "fold an edge/vertex kmer database pair into maximal unitigs and DCCs", Compact)
	{
		compact.DefineStringFlag("C", "cuttler.cfg", "configuration file")
		compact.DefineIntFlag("t", 1, "number of worker threads")
		compact.DefineBoolFlag("PathCover", false, "use the path-cover alternate mode instead of maximal unitigs")
		compact.DefineBoolFlag("Compress", false, "zstd-compress the output FASTA")
		compact.DefineStringFlag("Graph", "", "optional debug dot-file path for the state table snapshot")
		compact.DefineStringFlag("StatePersist", "", "optional path to persist/reuse the state table across runs")
		compact.DefineStringFlag("Summary", "", "optional path to write a JSON meta-info summary")
	}

	ing := app.DefineSubCommand("ingest", "build an edge/vertex kmerdb pair directly from a FASTA file", Ingest)
	{
		ing.DefineStringFlag("fasta", "", "input FASTA file")
		ing.DefineStringFlag("prefix", "", "output prefix; writes prefix.edges.db and prefix.verts.db")
		ing.DefineIntFlag("K", 21, "kmer length")
	}
}

func main() {
	app.Start()
}

// Compact runs the "compact" subcommand: parse the .cfg named by -C,
// apply any CLI flag overrides, run the two-phase orchestrator, and
// optionally write a JSON summary and a debug dot-file.
func Compact(c cli.Command) {
	cfgPath := c.Flag("C").String()
	if cfgPath == "" {
		log.Fatalf("[Compact] argument 'C' not set\n")
	}
	cfg, err := orchestrator.ParseCfg(cfgPath)
	if err != nil {
		log.Fatalf("[Compact] ParseCfg 'C': %v err: %v\n", cfgPath, err)
	}

	if t, ok := c.Flag("t").Get().(int); ok && t > 0 {
		cfg.NumCPU = t
	}
	if pc, ok := c.Flag("PathCover").Get().(bool); ok && pc {
		cfg.PathCover = true
	}
	if compress, ok := c.Flag("Compress").Get().(bool); ok && compress {
		cfg.CompressOutput = true
	}
	if graph := c.Flag("Graph").String(); graph != "" {
		cfg.GraphDotPath = graph
	}
	if statePath := c.Flag("StatePersist").String(); statePath != "" {
		cfg.StatePersistPath = statePath
	}

	fmt.Printf("[Compact] config: %+v\n", cfg)
	stats := orchestrator.Run(cfg)

	if summaryPath := c.Flag("Summary").String(); summaryPath != "" {
		writeSummary(summaryPath, stats)
	}
}

// writeSummary emits the per-run meta-info as JSON. This lives at the
// CLI layer, outside the core packages, preserving spec.md §1's
// out-of-scope boundary for summary emission while still giving the
// command a complete, runnable shape.
func writeSummary(path string, stats assembler.Stats) {
	fp, err := os.Create(path)
	if err != nil {
		log.Fatalf("[writeSummary] create file: %s failed, err: %v\n", path, err)
	}
	defer fp.Close()
	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		log.Fatalf("[writeSummary] encode failed, err: %v\n", err)
	}
}

// Ingest runs the "ingest" subcommand: build a kmerdb edge/vertex file
// pair directly from a FASTA file, for small inputs and demos where
// standing up the real external enumerator is overkill.
func Ingest(c cli.Command) {
	fasta := c.Flag("fasta").String()
	if fasta == "" {
		log.Fatalf("[Ingest] argument 'fasta' not set\n")
	}
	prefix := c.Flag("prefix").String()
	if prefix == "" {
		log.Fatalf("[Ingest] argument 'prefix' not set\n")
	}
	k, ok := c.Flag("K").Get().(int)
	if !ok || k <= 0 || k%2 != 1 {
		log.Fatalf("[Ingest] argument 'K': %v must be a positive odd number\n", c.Flag("K").String())
	}
	if k > kmer.KMax {
		log.Fatalf("[Ingest] argument 'K': %d exceeds K_MAX:%d\n", k, kmer.KMax)
	}

	edgeDBPath := prefix + ".edges.db"
	vertexDBPath := prefix + ".verts.db"
	edgeCount, err := ingest.BuildEdgeDB(fasta, edgeDBPath, k)
	if err != nil {
		log.Fatalf("[Ingest] BuildEdgeDB failed, err: %v\n", err)
	}
	vertexCount, err := ingest.BuildVertexDB(fasta, vertexDBPath, k)
	if err != nil {
		log.Fatalf("[Ingest] BuildVertexDB failed, err: %v\n", err)
	}
	fmt.Printf("[Ingest] wrote %d edges to %s, %d vertices to %s\n", edgeCount, edgeDBPath, vertexCount, vertexDBPath)
}
