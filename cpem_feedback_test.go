package cpemnet

import "testing"

// TestCPEMFeedbackSkipS3 implements spec.md §8 S3: with
// used_ingress_port[1]=10000 and a fixed-mode low threshold of 50000,
// a tick must produce no feedback.
func TestCPEMFeedbackSkipS3(t *testing.T) {
	params := DefaultCPEMParams()
	params.CpemEnabled = true
	params.UseDynamicThreshold = false
	params.QueueThresholdLow = 50000
	params.QueueThresholdHigh = 200000

	cfg := NewBufferConfig(1_000_000, false, 0.5, 0.5)
	m := NewMMUState(cfg, silentWarn)
	m.UsedIngressPort[1] = 10000

	fb := NewCPEMFeedback(params, m, cfg, nil)

	_, emit := fb.evaluate(1)
	if emit {
		t.Fatalf("expected no feedback below cpem_queue_threshold_low")
	}
}

func TestCPEMFeedbackEmitsAboveThreshold(t *testing.T) {
	params := DefaultCPEMParams()
	params.CpemEnabled = true
	params.UseDynamicThreshold = false
	params.QueueThresholdLow = 50000
	params.QueueThresholdHigh = 200000

	cfg := NewBufferConfig(1_000_000, false, 0.5, 0.5)
	m := NewMMUState(cfg, silentWarn)
	m.UsedIngressPort[1] = 100000

	fb := NewCPEMFeedback(params, m, cfg, nil)

	pkt, emit := fb.evaluate(1)
	if !emit {
		t.Fatalf("expected feedback once queue exceeds cpem_queue_threshold_low")
	}
	if pkt.Header.CreditValue == 0 {
		t.Errorf("expected a non-zero credit value above threshold, got 0")
	}
}

func TestCreditValueSaturatesAtBounds(t *testing.T) {
	c := creditValue(0, 100, 200, 0, 1000)
	if c != 0 {
		t.Errorf("q<=low should yield credit 0, got %d", c)
	}
	c = creditValue(300, 100, 200, 0, 1000)
	if c != 1000 {
		t.Errorf("q>=high should saturate credit to max_credit, got %d", c)
	}
}

func TestCreditValuePositiveGradientBoostsCredit(t *testing.T) {
	base := creditValue(150, 100, 200, 0, 1000)
	boosted := creditValue(150, 100, 200, 50, 1000)
	if boosted <= base {
		t.Errorf("positive gradient should increase credit: base=%d boosted=%d", base, boosted)
	}
}

func TestCreditValueNegativeGradientReducesCredit(t *testing.T) {
	base := creditValue(150, 100, 200, 0, 1000)
	reduced := creditValue(150, 100, 200, -50, 1000)
	if reduced >= base {
		t.Errorf("negative gradient should decrease credit: base=%d reduced=%d", base, reduced)
	}
}
