// Package edgeconsumer implements the edge-phase state-transition
// engine (C5): for each parsed (k+1)-mer it derives the two endpoint
// vertices touched by that edge and folds the observation into the
// shared graphstate.StateTable via the monotone retry loops of
// spec §4.2, grounded on the CAS-retry-loop pattern already used for
// the cuckoo filter's concurrent bucket updates in
// ga/cuckoofilter.go's CFItem/Bucket methods.
package edgeconsumer

import (
	"sync/atomic"

	"github.com/mudesheng/cuttler/graphstate"
	"github.com/mudesheng/cuttler/kmer"
	"github.com/mudesheng/cuttler/mphf"
)

// Mode selects between the default maximal-unitig-producing edge
// folding and the path-cover alternate mode recovered from
// original_source (SPEC_FULL §3): path cover ties at most one edge per
// vertex side, committing both endpoints of an edge atomically so a
// vertex never ends up with a dangling half of a chosen edge.
type Mode int

const (
	ModeUnitig Mode = iota
	ModePathCover
)

// Consumer owns the shared state table and MPHF for one run and counts
// edges processed purely for progress logging (spec §4.2 "Progress").
type Consumer struct {
	Table *graphstate.StateTable
	MPHF  *mphf.Table
	Mode  Mode

	edgesProcessed uint64
}

// New constructs a Consumer over an already-built state table and MPHF.
func New(tbl *graphstate.StateTable, m *mphf.Table, mode Mode) *Consumer {
	return &Consumer{Table: tbl, MPHF: m, Mode: mode}
}

// EdgesProcessed reports the running count of edges folded so far.
func (c *Consumer) EdgesProcessed() uint64 {
	return atomic.LoadUint64(&c.edgesProcessed)
}

func (c *Consumer) bucketOf(km kmer.Kmer) uint64 {
	b, ok := c.MPHF.Lookup(km)
	if !ok {
		// Every k-mer appearing in the edge stream must have its
		// canonical vertex already registered in the MPHF built over
		// the vertex database; a miss here means the two databases
		// disagree, an invariant-violation per spec §7 kind 2.
		panic("edgeconsumer: k-mer has no MPHF bucket; vertex and edge databases disagree")
	}
	return b
}

// ConsumeEdge folds one (k+1)-mer into the state table, dispatching to
// add_incident / add_crossing_loop / add_one_sided_loop per spec §4.2's
// classification, or to the path-cover tied-pair update in ModePathCover.
func (c *Consumer) ConsumeEdge(e kmer.Kmer) {
	defer atomic.AddUint64(&c.edgesProcessed, 1)

	u := graphstate.NewDirectedVertex(kmer.Prefix(e))
	v := graphstate.NewDirectedVertex(kmer.Suffix(e))

	uSide, uEnc := u.EndpointSideAndEnc(graphstate.Back, e.Back())
	vSide, vEnc := v.EndpointSideAndEnc(graphstate.Front, e.Front())

	uCanon, vCanon := u.Canonical(), v.Canonical()
	uBucket := c.bucketOf(uCanon)

	if kmer.Compare(uCanon, vCanon) != 0 {
		vBucket := c.bucketOf(vCanon)
		if c.Mode == ModePathCover {
			c.addIncidentPair(uBucket, uSide, uEnc, vBucket, vSide, vEnc)
			return
		}
		c.addIncident(uBucket, uSide, uEnc)
		c.addIncident(vBucket, vSide, vEnc)
		return
	}

	// Same underlying vertex on both ends of the edge: a loop.
	if uSide != vSide {
		c.addCrossingLoop(uBucket)
	} else {
		c.addOneSidedLoop(uBucket, uSide)
	}
}

// addIncident is spec §4.2's add_incident retry loop.
func (c *Consumer) addIncident(bucket uint64, s graphstate.Side, e graphstate.ExtEnc) {
	for {
		cur := c.Table.Read(bucket)
		switch cur.At(s) {
		case graphstate.Branching:
			return
		case graphstate.Empty:
			if c.Table.TryUpdate(bucket, cur, cur.With(s, e)) {
				return
			}
		case e:
			return
		default:
			if c.Table.TryUpdate(bucket, cur, cur.With(s, graphstate.Branching)) {
				return
			}
		}
	}
}

// addCrossingLoop is spec §4.2's add_crossing_loop retry loop: both
// sides of the vertex are set Branching, since a crossing loop touches
// the vertex through both sides at once.
func (c *Consumer) addCrossingLoop(bucket uint64) {
	for {
		cur := c.Table.Read(bucket)
		if cur.At(graphstate.Front) == graphstate.Branching && cur.At(graphstate.Back) == graphstate.Branching {
			return
		}
		next := cur.With(graphstate.Front, graphstate.Branching).With(graphstate.Back, graphstate.Branching)
		if c.Table.TryUpdate(bucket, cur, next) {
			return
		}
	}
}

// addOneSidedLoop is spec §4.2's add_one_sided_loop retry loop.
func (c *Consumer) addOneSidedLoop(bucket uint64, s graphstate.Side) {
	for {
		cur := c.Table.Read(bucket)
		if cur.At(s) == graphstate.Branching {
			return
		}
		if c.Table.TryUpdate(bucket, cur, cur.With(s, graphstate.Branching)) {
			return
		}
	}
}

// addIncidentPair is the path-cover variant: an edge is tied onto both
// endpoints only if neither side has already been claimed by some
// other tied edge, committed with a single try_update_pair so a vertex
// never observes only half of a tie.
func (c *Consumer) addIncidentPair(uBucket uint64, uSide graphstate.Side, uEnc graphstate.ExtEnc, vBucket uint64, vSide graphstate.Side, vEnc graphstate.ExtEnc) {
	for {
		curU := c.Table.Read(uBucket)
		curV := c.Table.Read(vBucket)
		if curU.At(uSide) != graphstate.Empty || curV.At(vSide) != graphstate.Empty {
			return
		}
		newU := curU.With(uSide, uEnc)
		newV := curV.With(vSide, vEnc)
		if c.Table.TryUpdatePair(uBucket, vBucket, curU, newU, curV, newV) {
			return
		}
	}
}
