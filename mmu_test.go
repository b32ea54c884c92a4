package cpemnet

import "testing"

func silentWarn(string, ...any) {}

func TestMMUIngressConservation(t *testing.T) {
	cfg := NewBufferConfig(1_000_000, true, 0.5, 0.5)
	m := NewMMUState(cfg, silentWarn)

	sizes := []float64{1000, 1500, 2000, 500}
	for _, s := range sizes {
		if res := m.CheckIngressAdmission(1, 3, s); res != Admitted {
			t.Fatalf("CheckIngressAdmission(%v) = %v, want Admitted", s, res)
		}
		m.UpdateIngress(1, 3, s)
	}
	for _, s := range sizes {
		m.RemoveIngress(1, 3, s)
	}

	if m.UsedTotal != 0 {
		t.Errorf("UsedTotal = %v, want 0", m.UsedTotal)
	}
	if m.UsedIngressPort[1] != 0 {
		t.Errorf("UsedIngressPort[1] = %v, want 0", m.UsedIngressPort[1])
	}
	if m.UsedIngressPG[1][3] != 0 {
		t.Errorf("UsedIngressPG[1][3] = %v, want 0", m.UsedIngressPG[1][3])
	}
	if m.UsedIngressSP[ingressSPIndex(3)] != 0 {
		t.Errorf("UsedIngressSP = %v, want 0", m.UsedIngressSP[ingressSPIndex(3)])
	}
}

func TestMMUEgressConservation(t *testing.T) {
	cfg := NewBufferConfig(1_000_000, true, 0.5, 0.5)
	m := NewMMUState(cfg, silentWarn)
	qMinCell := cfg.pgSharedLimit()

	sizes := []float64{500, 4000, 1200}
	for _, s := range sizes {
		if res := m.CheckEgressAdmission(2, 4, s); res != Admitted {
			t.Fatalf("CheckEgressAdmission(%v) = %v, want Admitted", s, res)
		}
		m.UpdateEgress(2, 4, s, qMinCell)
	}
	for _, s := range sizes {
		m.RemoveEgress(2, 4, s)
	}

	if m.UsedEgressPort[2] != 0 {
		t.Errorf("UsedEgressPort[2] = %v, want 0", m.UsedEgressPort[2])
	}
	if m.UsedEgressQMin[2][4] != 0 {
		t.Errorf("UsedEgressQMin[2][4] = %v, want 0", m.UsedEgressQMin[2][4])
	}
	if m.UsedEgressQShared[2][4] != 0 {
		t.Errorf("UsedEgressQShared[2][4] = %v, want 0", m.UsedEgressQShared[2][4])
	}
}

func TestMMUAdmissionMonotonicity(t *testing.T) {
	cfg := NewBufferConfig(2000, true, 0.5, 0.5)
	m := NewMMUState(cfg, silentWarn)

	m.UpdateIngress(2, 2, 1900)

	if res := m.CheckIngressAdmission(2, 2, 200); res == Admitted {
		t.Fatalf("expected denial for 200 bytes against 1900/2000 used buffer")
	}
	if res := m.CheckIngressAdmission(2, 2, 300); res == Admitted {
		t.Fatalf("expected denial for 300 bytes to also deny once 200 already denies")
	}
}

func TestMMUUnderflowClamp(t *testing.T) {
	cfg := NewBufferConfig(1_000_000, true, 0.5, 0.5)
	warned := false
	m := NewMMUState(cfg, func(string, ...any) { warned = true })

	m.UpdateIngress(1, 1, 100)
	m.RemoveIngress(1, 1, 500)

	if !warned {
		t.Errorf("expected underflow warning callback")
	}
	if m.UsedIngressPort[1] != 0 {
		t.Errorf("UsedIngressPort[1] = %v, want clamped to 0", m.UsedIngressPort[1])
	}
}

func TestIngressEgressSPIndex(t *testing.T) {
	if ingressSPIndex(1) != 1 {
		t.Errorf("ingressSPIndex(1) = %d, want 1", ingressSPIndex(1))
	}
	if ingressSPIndex(0) != 0 || ingressSPIndex(3) != 0 {
		t.Errorf("ingressSPIndex should be 0 for any q != 1")
	}
	if egressSPIndex(0) != 0 {
		t.Errorf("egressSPIndex(0) = %d, want 0", egressSPIndex(0))
	}
	if egressSPIndex(1) != 1 || egressSPIndex(5) != 1 {
		t.Errorf("egressSPIndex should be 1 for any q != 0")
	}
}
