package orchestrator

import (
	"log"
	"os"
	"strconv"

	"github.com/awalterschulze/gographviz"

	"github.com/mudesheng/cuttler/graphstate"
)

// DumpStateGraph writes a debug dot-file snapshot of the state table
// to path, one record node per bucket that has seen at least one
// incident edge (Empty/Empty buckets are omitted as noise), labeled
// "{back|id|front}" the way constructdbg.GraphvizDBGArr labels a
// DBGNode's incoming/outgoing edge-id record. The real per-vertex
// neighbour k-mer is not recoverable from a bucket id alone (the MPHF
// here is one-directional), so this cannot draw literal adjacency
// edges the way GraphvizDBGArr does from a materialised DBGNode/DBGEdge
// array; it is a structural-state debug aid, not a sequence graph,
// and is documented as such rather than silently pretending otherwise.
func DumpStateGraph(tbl *graphstate.StateTable, n uint64, path string) error {
	g := gographviz.NewGraph()
	g.SetName("G")
	g.SetDir(false)
	g.SetStrict(false)

	for b := uint64(0); b < n; b++ {
		code := tbl.Read(b)
		front, back := code.At(graphstate.Front), code.At(graphstate.Back)
		if front == graphstate.Empty && back == graphstate.Empty {
			continue
		}
		attr := make(map[string]string)
		attr["shape"] = "record"
		if front.IsOutputMark() || back.IsOutputMark() {
			attr["color"] = "Gray"
		} else if front == graphstate.Branching || back == graphstate.Branching {
			attr["color"] = "Red"
		} else {
			attr["color"] = "Green"
		}
		attr["label"] = "\"{" + back.String() + "|" + strconv.FormatUint(b, 10) + "|" + front.String() + "}\""
		if err := g.AddNode("G", strconv.FormatUint(b, 10), attr); err != nil {
			return err
		}
	}

	fp, err := os.Create(path)
	if err != nil {
		log.Fatalf("[DumpStateGraph] create file: %s failed, err: %v\n", path, err)
	}
	defer fp.Close()
	_, err = fp.WriteString(g.String())
	return err
}
