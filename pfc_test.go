package cpemnet

import "testing"

// TestPFCPauseRoundTripS2 exercises the pause/resume predicates directly
// (spec.md §8 S2): buffer 375000, alpha=0.0625, packets of 1000 bytes
// are injected at (port=1, q=3), up to 200, until the pause predicate
// trips; removing exactly the packets injected up to that point should
// make the resume predicate hold again.
func TestPFCPauseRoundTripS2(t *testing.T) {
	cfg := NewBufferConfig(375000, true, 0.0625, 0.0625)
	m := NewMMUState(cfg, silentWarn)
	e := NewPFCEngine(m, cfg, 2*MTU)

	pausedAt := -1
	for i := 1; i <= 200; i++ {
		m.UpdateIngress(1, 3, 1000)
		if e.shouldPause(1, 3) {
			pausedAt = i
			break
		}
	}
	if pausedAt == -1 {
		t.Fatalf("expected shouldPause to trip within 200 packets of 1000 bytes")
	}

	for i := 0; i < pausedAt; i++ {
		m.RemoveIngress(1, 3, 1000)
	}
	if !e.shouldResume(1, 3) {
		t.Fatalf("expected shouldResume to hold once all injected bytes are removed")
	}
}

// TestPFCNoPhantomResume checks property 3: the resume predicate must
// not hold while the queue remains above its pause margin.
func TestPFCNoPhantomResume(t *testing.T) {
	cfg := NewBufferConfig(375000, true, 0.0625, 0.0625)
	m := NewMMUState(cfg, silentWarn)
	e := NewPFCEngine(m, cfg, 2*MTU)

	for i := 0; i < 200; i++ {
		m.UpdateIngress(1, 3, 1000)
	}
	if !e.shouldPause(1, 3) {
		t.Fatalf("expected pause predicate to hold with 200000 bytes queued")
	}
	if e.shouldResume(1, 3) {
		t.Fatalf("resume predicate must not hold while queue is still congested")
	}
}

// TestPFCCheckAndResumeRequiresPauseRemote implements the second half of
// property 3: CheckAndResume must not fire (nor clear state) unless
// PauseRemote was previously set.
func TestPFCCheckAndResumeRequiresPauseRemote(t *testing.T) {
	cfg := NewBufferConfig(375000, false, 0.0625, 0.0625)
	m := NewMMUState(cfg, silentWarn)
	e := NewPFCEngine(m, cfg, 2*MTU)

	sink := &recordingSink{}
	e.CheckAndResume(sink, 1, 3)

	if sink.resumes != 0 {
		t.Fatalf("CheckAndResume must be a no-op when PauseRemote was never set, got %d resumes", sink.resumes)
	}
}

type recordingSink struct {
	pauses  int
	resumes int
}

func (s *recordingSink) SendPause(port, q int, pauseTimeUs float64) { s.pauses++ }
func (s *recordingSink) SendResume(port, q int)                     { s.resumes++ }

func TestPFCStaticModeThresholds(t *testing.T) {
	cfg := NewBufferConfig(1_000_000, false, 0.0625, 0.0625)
	m := NewMMUState(cfg, silentWarn)
	e := NewPFCEngine(m, cfg, 2*MTU)

	// static mode pauses once a port's total ingress use exceeds the
	// static port-shared limit (4800*MTU).
	m.UsedIngressPort[5] = cfg.PortMaxSharedStatic + 1
	if !e.shouldPause(5, 2) {
		t.Fatalf("expected static-mode shouldPause to trip once port usage exceeds PortMaxSharedStatic")
	}
}
