// Package orchestrator implements the two-phase streaming driver (C8
// consumer half): it parses the run configuration, builds the MPHF and
// state table, runs the edge phase to completion behind a strict join
// barrier, then runs the vertex phase, aggregating per-worker Stats
// and optionally emitting a debug dot-file of the state table.
package orchestrator

import (
	"bufio"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/mudesheng/cuttler/kmer"
)

// Config is the parsed run configuration: the two kmerdb file
// paths, k, thread count, and the path-cover flag, matching
// SPEC_FULL §1's ".cfg key-value file" description.
type Config struct {
	VertexDBPath     string
	EdgeDBPath       string
	OutputPath       string
	K                int
	NumCPU           int
	PathCover        bool
	CompressOutput   bool
	GraphDotPath     string
	StatePersistPath string
	SlabKmers        int
	BufferCapacity   int
}

// ParseCfg parses a "key = value" configuration file, the way
// constructcf.ParseCfg parses ga.cfg: one assignment per line, `#`/`;`
// comments, blank lines ignored.
func ParseCfg(path string) (cfg Config, err error) {
	fp, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer fp.Close()

	reader := bufio.NewReader(fp)
	eof := false
	for !eof {
		line, rerr := reader.ReadString('\n')
		if rerr == io.EOF {
			rerr = nil
			eof = true
		} else if rerr != nil {
			return cfg, rerr
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0][0] == '#' || fields[0][0] == ';' {
			continue
		}
		if len(fields) < 3 || fields[1] != "=" {
			log.Fatalf("[ParseCfg] malformed line: %q\n", line)
		}
		key, val := fields[0], fields[2]
		var perr error
		switch key {
		case "vertex_db":
			cfg.VertexDBPath = val
		case "edge_db":
			cfg.EdgeDBPath = val
		case "output":
			cfg.OutputPath = val
		case "kmer":
			cfg.K, perr = strconv.Atoi(val)
		case "threads":
			cfg.NumCPU, perr = strconv.Atoi(val)
		case "path_cover":
			cfg.PathCover, perr = strconv.ParseBool(val)
		case "compress_output":
			cfg.CompressOutput, perr = strconv.ParseBool(val)
		case "graph_dot":
			cfg.GraphDotPath = val
		case "state_persist":
			cfg.StatePersistPath = val
		case "slab_kmers":
			cfg.SlabKmers, perr = strconv.Atoi(val)
		case "buffer_capacity":
			cfg.BufferCapacity, perr = strconv.Atoi(val)
		default:
			log.Fatalf("[ParseCfg] unknown key: %q\n", key)
		}
		if perr != nil {
			return cfg, perr
		}
	}
	return cfg, nil
}

// CheckConfig validates cfg, fataling at the boundary that detects the
// problem, exactly as utils.CheckGlobalArgs does for the teacher's
// global flags: a parameter-invalid condition (spec §7 kind 3) is a
// programmer/operator error, not a recoverable one.
func CheckConfig(cfg Config) {
	if cfg.VertexDBPath == "" {
		log.Fatalf("[CheckConfig] 'vertex_db' not set\n")
	}
	if cfg.EdgeDBPath == "" {
		log.Fatalf("[CheckConfig] 'edge_db' not set\n")
	}
	if cfg.OutputPath == "" {
		log.Fatalf("[CheckConfig] 'output' not set\n")
	}
	if cfg.K <= 0 || cfg.K%2 != 1 {
		log.Fatalf("[CheckConfig] 'kmer':%d must be a positive odd number\n", cfg.K)
	}
	if cfg.K > kmer.KMax {
		log.Fatalf("[CheckConfig] 'kmer':%d exceeds K_MAX:%d\n", cfg.K, kmer.KMax)
	}
	if cfg.NumCPU <= 0 {
		log.Fatalf("[CheckConfig] 'threads':%d must be positive\n", cfg.NumCPU)
	}
}
