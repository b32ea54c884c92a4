package cpemnet

// loadbalance.go implements the Load-Balancer Dispatch component of
// spec.md §4.4: next-hop selection among ECMP candidates for forwarded
// packets, and priority-queue selection. DRILL's queue-depth comparison
// uses the same NetDevice.queue.n_bytes_total() contract spec.md names,
// exposed here as the small QueueDepth interface so this module does
// not need to know about concrete interface/device types (the same
// decoupling net.go's topoDev interface provides).

import (
	"github.com/iti/rngstream"
	"golang.org/x/exp/slices"
)

// QueueDepth reports the current egress-queue byte occupancy of a
// candidate next hop, standing in for NetDevice.queue.n_bytes_total().
type QueueDepth interface {
	QueueBytes(port int) float64
}

// FiveTuple is the packet-header subset the ECMP hash and control-packet
// classification need.
type FiveTuple struct {
	SrcIP, DstIP     uint32
	SrcPort, DstPort uint16
	L3Protocol       int
}

// isControlProtocol reports whether l3proto names one of the always-ECMP
// control protocols of spec.md §4.4 ("Control packets... always take
// ECMP").
func isControlProtocol(l3proto int) bool {
	switch l3proto {
	case L3ProtoACK, L3ProtoNACK, L3ProtoQCN, L3ProtoPFC, L3ProtoCPEM:
		return true
	}
	return false
}

// drillMemory remembers, per destination IP, the best next hop DRILL
// picked last time, per spec.md §4.4: "plus the previously remembered
// best for this destination IP".
type drillMemory struct {
	best map[uint32]int
}

func newDrillMemory() *drillMemory {
	return &drillMemory{best: make(map[uint32]int)}
}

// LoadBalancer selects an egress port among ECMP candidates according to
// the switch's configured mode (spec.md §4.4).
type LoadBalancer struct {
	params *CPEMParams
	rng    *rngstream.RngStream
	drill  *drillMemory
}

// NewLoadBalancer constructs a LoadBalancer bound to the switch's
// configuration and RNG stream.
func NewLoadBalancer(params *CPEMParams, rng *rngstream.RngStream) *LoadBalancer {
	return &LoadBalancer{params: params, rng: rng, drill: newDrillMemory()}
}

// SelectNextHop implements spec.md §4.4's GetOutDev dispatch, given the
// ordered list of ECMP candidate egress ports already looked up from the
// routing table for tuple.DstIP. Modes 3 (Conga), 6, and 9 (ConWeave)
// are delegated to an external component and are reported via the
// delegated return value; the caller is expected to hand the packet to
// that collaborator rather than call SelectNextHop for those modes, but
// this function still reports which mode would have applied so callers
// that mis-route are caught early.
func (lb *LoadBalancer) SelectNextHop(tuple FiveTuple, nexthops []int, qDepth QueueDepth) (port int, delegated bool) {
	if len(nexthops) == 0 {
		panic("cpemnet: SelectNextHop called with no ECMP candidates (routing miss)")
	}

	if isControlProtocol(tuple.L3Protocol) {
		idx := EcmpHash(lb.params.EcmpSeed, tuple.SrcIP, tuple.DstIP, tuple.SrcPort, tuple.DstPort, len(nexthops))
		return nexthops[idx], false
	}

	switch lb.params.LBMode {
	case LBModeECMP:
		idx := EcmpHash(lb.params.EcmpSeed, tuple.SrcIP, tuple.DstIP, tuple.SrcPort, tuple.DstPort, len(nexthops))
		return nexthops[idx], false

	case LBModeDrill:
		return lb.selectDrill(tuple.DstIP, nexthops, qDepth), false

	case LBModeConga, LBModeConWeave:
		return 0, true

	default:
		// unrecognized modes (spec.md §4.4 names 6 as delegated too)
		return 0, true
	}
}

// selectDrill implements spec.md §4.4's DRILL algorithm: sample
// drill_candidate candidates plus the remembered best, pick the one with
// the smallest current egress-queue byte count, and remember it.
func (lb *LoadBalancer) selectDrill(dstIP uint32, nexthops []int, qDepth QueueDepth) int {
	n := lb.params.DrillCandidates
	if n > len(nexthops) {
		n = len(nexthops)
	}

	candidates := make([]int, 0, n+1)
	for len(candidates) < n {
		idx := int(lb.rng.RandU01() * float64(len(nexthops)))
		if idx >= len(nexthops) {
			idx = len(nexthops) - 1
		}
		port := nexthops[idx]
		if slices.Contains(candidates, port) {
			continue
		}
		candidates = append(candidates, port)
	}

	if prev, ok := lb.drill.best[dstIP]; ok && !slices.Contains(candidates, prev) {
		candidates = append(candidates, prev)
	}

	best := candidates[0]
	bestDepth := qDepth.QueueBytes(best)
	for _, port := range candidates[1:] {
		d := qDepth.QueueBytes(port)
		if d < bestDepth {
			best = port
			bestDepth = d
		}
	}

	lb.drill.best[dstIP] = best
	return best
}

// SelectQueue implements spec.md §4.4 "Queue selection": control
// protocols and, if AckHighPrio, ACK/NACK go to queue 0; TCP to queue 1;
// otherwise the packet's UDP "pg" field selects the queue.
func SelectQueue(params *CPEMParams, l3proto int, udpPG int) int {
	switch l3proto {
	case L3ProtoPFC, L3ProtoQCN, L3ProtoCPEM:
		return 0
	case L3ProtoACK, L3ProtoNACK:
		if params.AckHighPrio {
			return 0
		}
	case L3ProtoTCP:
		return 1
	}
	if udpPG < 0 || udpPG >= Q {
		return 0
	}
	return udpPG
}
