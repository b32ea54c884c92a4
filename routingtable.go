package cpemnet

// routingtable.go extends routes.go's gonum shortest-path machinery to
// build the ECMP routing table of spec.md §3: "destination-IP -> ordered
// list of egress-port indices (ECMP candidates)". routes.go already
// computes single shortest paths via Dijkstra trees cached per source;
// this file additionally asks, for every neighbor of a source device,
// whether that neighbor lies on some shortest path to the destination,
// which is exactly the equal-cost-multipath condition on a graph where
// every link has weight 1 (buildconnGraph's convention).

import (
	"fmt"
	"math"
)

// RoutingTable maps a destination node id to the ordered set of
// candidate egress interface numbers (intrfcStruct.number) a switch may
// use to reach it. The switch core translates interface numbers to its
// own local port index space.
type RoutingTable struct {
	srcID int
}

// NewRoutingTable constructs a RoutingTable for the switch with the
// given topology node id.
func NewRoutingTable(srcID int) *RoutingTable {
	return &RoutingTable{srcID: srcID}
}

// distanceTo returns the shortest-path distance (in hops, since every
// edge has weight 1) from `from` to `to`, using the same cached
// Dijkstra trees routes.go maintains.
func distanceTo(from, to int) (float64, bool) {
	if !connGraphBuilt {
		connGraph = buildconnGraph(topoGraph)
	}
	spTree := getSPTree(from, connGraph)
	_, weight := spTree.To(int64(to))
	if weight < 0 || math.IsInf(weight, 1) {
		return 0, false
	}
	return weight, true
}

// ECMPNextHops returns, in a deterministic order, the interface numbers
// on rt's source switch that lie on some shortest path to dstID, via
// routes.go's equalCostNextHops.
//
// It panics if the destination is unreachable, per spec.md §7's
// "RoutingMiss: destination IP absent from routing table — fatal
// assertion (represents a misconfigured topology)."
func (rt *RoutingTable) ECMPNextHops(dstID int) []int {
	if rt.srcID == dstID {
		return nil
	}

	if _, ok := distanceTo(rt.srcID, dstID); !ok {
		panic(fmt.Sprintf("cpemnet: routing miss, no path from node %d to node %d", rt.srcID, dstID))
	}

	candidates := equalCostNextHops(rt.srcID, dstID, topoGraph[rt.srcID])
	if len(candidates) == 0 {
		panic(fmt.Sprintf("cpemnet: routing miss, no ECMP candidates from node %d to node %d", rt.srcID, dstID))
	}
	return candidates
}
