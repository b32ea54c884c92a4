package cpemnet

import (
	"testing"

	"github.com/iti/rngstream"
)

type fakeQueueDepth struct {
	depth map[int]float64
}

func (f *fakeQueueDepth) QueueBytes(port int) float64 { return f.depth[port] }

func TestIsControlProtocol(t *testing.T) {
	for _, p := range []int{L3ProtoACK, L3ProtoNACK, L3ProtoQCN, L3ProtoPFC, L3ProtoCPEM} {
		if !isControlProtocol(p) {
			t.Errorf("isControlProtocol(%#x) = false, want true", p)
		}
	}
	for _, p := range []int{L3ProtoTCP, L3ProtoUDP} {
		if isControlProtocol(p) {
			t.Errorf("isControlProtocol(%#x) = true, want false", p)
		}
	}
}

func TestSelectNextHopControlAlwaysECMP(t *testing.T) {
	params := DefaultCPEMParams()
	params.LBMode = LBModeConga // even under a delegated mode, control traffic uses ECMP
	rng := rngstream.New("lb-control")
	lb := NewLoadBalancer(params, rng)

	tuple := FiveTuple{SrcIP: 1, DstIP: 2, SrcPort: 100, DstPort: 200, L3Protocol: L3ProtoPFC}
	nexthops := []int{3, 5, 7}

	port, delegated := lb.SelectNextHop(tuple, nexthops, nil)
	if delegated {
		t.Fatalf("control-protocol traffic must never be delegated")
	}
	found := false
	for _, n := range nexthops {
		if n == port {
			found = true
		}
	}
	if !found {
		t.Errorf("SelectNextHop returned %d, not among candidates %v", port, nexthops)
	}
}

func TestSelectNextHopECMPDeterministic(t *testing.T) {
	params := DefaultCPEMParams()
	params.LBMode = LBModeECMP
	rng := rngstream.New("lb-ecmp")
	lb := NewLoadBalancer(params, rng)

	tuple := FiveTuple{SrcIP: 10, DstIP: 20, SrcPort: 1000, DstPort: 2000, L3Protocol: L3ProtoTCP}
	nexthops := []int{1, 2, 3, 4}

	first, _ := lb.SelectNextHop(tuple, nexthops, nil)
	second, _ := lb.SelectNextHop(tuple, nexthops, nil)
	if first != second {
		t.Errorf("ECMP mode must be deterministic for identical tuples: got %d then %d", first, second)
	}
}

func TestSelectNextHopDelegatedModes(t *testing.T) {
	params := DefaultCPEMParams()
	rng := rngstream.New("lb-delegated")
	lb := NewLoadBalancer(params, rng)
	tuple := FiveTuple{SrcIP: 1, DstIP: 2, SrcPort: 1, DstPort: 2, L3Protocol: L3ProtoTCP}

	for _, mode := range []int{LBModeConga, LBModeFlow, LBModeConWeave} {
		params.LBMode = mode
		_, delegated := lb.SelectNextHop(tuple, []int{1, 2}, nil)
		if !delegated {
			t.Errorf("mode %d expected delegated=true", mode)
		}
	}
}

func TestSelectNextHopPanicsOnNoCandidates(t *testing.T) {
	params := DefaultCPEMParams()
	rng := rngstream.New("lb-panic")
	lb := NewLoadBalancer(params, rng)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for empty next-hop set")
		}
	}()
	lb.SelectNextHop(FiveTuple{L3Protocol: L3ProtoTCP}, nil, nil)
}

func TestSelectDrillPicksShallowestQueue(t *testing.T) {
	params := DefaultCPEMParams()
	params.LBMode = LBModeDrill
	params.DrillCandidates = 3
	rng := rngstream.New("lb-drill")
	lb := NewLoadBalancer(params, rng)

	nexthops := []int{1, 2, 3}
	qd := &fakeQueueDepth{depth: map[int]float64{1: 5000, 2: 100, 3: 9000}}

	tuple := FiveTuple{SrcIP: 1, DstIP: 42, L3Protocol: L3ProtoTCP}
	port, delegated := lb.SelectNextHop(tuple, nexthops, qd)
	if delegated {
		t.Fatalf("drill mode must not be delegated")
	}
	if port != 2 {
		t.Errorf("expected drill to pick the shallowest queue (port 2), got %d", port)
	}
}

func TestSelectDrillRemembersBest(t *testing.T) {
	params := DefaultCPEMParams()
	params.DrillCandidates = 2
	rng := rngstream.New("lb-drill-memory")
	lb := NewLoadBalancer(params, rng)

	nexthops := []int{10, 20, 30}
	qd := &fakeQueueDepth{depth: map[int]float64{10: 1, 20: 1, 30: 1}}

	first := lb.selectDrill(99, nexthops, qd)
	if remembered, ok := lb.drill.best[99]; !ok || remembered != first {
		t.Errorf("selectDrill did not remember its choice for destination 99")
	}
}

func TestSelectQueueControlAndACK(t *testing.T) {
	params := DefaultCPEMParams()
	params.AckHighPrio = true

	for _, p := range []int{L3ProtoPFC, L3ProtoQCN, L3ProtoCPEM} {
		if q := SelectQueue(params, p, 0); q != 0 {
			t.Errorf("SelectQueue(%#x) = %d, want 0", p, q)
		}
	}
	if q := SelectQueue(params, L3ProtoACK, 0); q != 0 {
		t.Errorf("ACK with AckHighPrio=true should route to queue 0, got %d", q)
	}

	params.AckHighPrio = false
	if q := SelectQueue(params, L3ProtoNACK, 3); q != 3 {
		t.Errorf("NACK with AckHighPrio=false should route to its pg queue 3, got %d", q)
	}
}

func TestSelectQueueTCPAndUDP(t *testing.T) {
	params := DefaultCPEMParams()

	if q := SelectQueue(params, L3ProtoTCP, 0); q != 1 {
		t.Errorf("TCP should route to queue 1, got %d", q)
	}
	if q := SelectQueue(params, L3ProtoUDP, 4); q != 4 {
		t.Errorf("UDP should route to its pg queue, got %d", q)
	}
	if q := SelectQueue(params, L3ProtoUDP, -1); q != 0 {
		t.Errorf("UDP with out-of-range pg should fall back to queue 0, got %d", q)
	}
	if q := SelectQueue(params, L3ProtoUDP, Q); q != 0 {
		t.Errorf("UDP with pg==Q should fall back to queue 0, got %d", q)
	}
}
