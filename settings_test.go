package cpemnet

import "testing"

func TestNodeIDToIPRoundTrip(t *testing.T) {
	for _, id := range []int{0, 1, 255, 256, 257, 65535} {
		ip := NodeIDToIP(id)
		got := IPToNodeID(ip)
		if got != id {
			t.Errorf("IPToNodeID(NodeIDToIP(%d)) = %d, want %d", id, got, id)
		}
	}
}

func TestNodeIDToIPBaseAddress(t *testing.T) {
	if ip := NodeIDToIP(0); ip != 0x0B000001 {
		t.Errorf("NodeIDToIP(0) = %#x, want %#x", ip, 0x0B000001)
	}
}

func TestDefaultCPEMParamsMatchesTunablesTable(t *testing.T) {
	p := DefaultCPEMParams()

	if p.CpemEnabled {
		t.Errorf("CpemEnabled default should be false")
	}
	if p.MaxCredit != 1000 {
		t.Errorf("MaxCredit default = %v, want 1000", p.MaxCredit)
	}
	if p.MinRateRatio != 0.1 {
		t.Errorf("MinRateRatio default = %v, want 0.1", p.MinRateRatio)
	}
	if p.CreditDecayAlpha != 0.8 {
		t.Errorf("CreditDecayAlpha default = %v, want 0.8", p.CreditDecayAlpha)
	}
	if p.QueueThresholdLow >= p.QueueThresholdHigh {
		t.Errorf("QueueThresholdLow (%v) must be below QueueThresholdHigh (%v)", p.QueueThresholdLow, p.QueueThresholdHigh)
	}
	if p.DrillCandidates < 1 {
		t.Errorf("DrillCandidates default = %v, want >= 1", p.DrillCandidates)
	}
}
