package cpemnet

import (
	"math"
	"testing"
)

func newTestCredit(t *testing.T, alpha float64) (*CPEMCredit, *CPEMFeedback) {
	t.Helper()
	params := DefaultCPEMParams()
	params.CpemEnabled = true
	params.CreditDecayAlpha = alpha
	params.UseDynamicThreshold = false
	params.QueueThresholdLow = 50000
	params.QueueThresholdHigh = 200000

	cfg := NewBufferConfig(1_000_000, false, 0.5, 0.5)
	m := NewMMUState(cfg, silentWarn)
	fb := NewCPEMFeedback(params, m, cfg, nil)
	cc := NewCPEMCredit(params, fb)
	cc.InitPort(1, 1e9)
	return cc, fb
}

// TestCPEMCreditMonotoneS4 implements spec.md §8 S4: applying feedback
// C=500 three times at t=0, 10µs, 20µs with alpha=0.8 starting from
// feedback_credit=0 produces 0, 100, 180, 244 (monotonic toward 500).
func TestCPEMCreditMonotoneS4(t *testing.T) {
	cc, _ := newTestCredit(t, 0.8)

	sequence := []float64{}
	sequence = append(sequence, cc.State(1).FeedbackCredit)

	times := []float64{0, 10e-6, 20e-6}
	for _, now := range times {
		cc.OnFeedbackReceived(1, 0, 500, now)
		sequence = append(sequence, cc.State(1).FeedbackCredit)
	}

	want := []float64{0, 100, 180, 244}
	for i, w := range want {
		if math.Abs(sequence[i]-w) > 0.5 {
			t.Errorf("sequence[%d] = %v, want %v (full sequence %v)", i, sequence[i], w, sequence)
		}
	}
}

// TestCPEMRateFloorS6 implements spec.md §8 S6.
func TestCPEMRateFloorS6(t *testing.T) {
	cc, _ := newTestCredit(t, 0.8)
	st := &cc.states[1]
	st.FeedbackCredit = 1000
	st.LastFeedbackTime = 0

	sink := &recordingRateSink{}
	rate := cc.AdjustRate(1, 0, 10e9, sink)

	wantRatio := 0.2
	wantRate := 10e9 * wantRatio
	if math.Abs(rate-wantRate) > 1e-6 {
		t.Errorf("AdjustRate = %v, want %v (ratio %v)", rate, wantRate, wantRatio)
	}

	// clamp: even a credit far beyond max_credit must not push the ratio
	// below min_rate_ratio.
	st.FeedbackCredit = 1e9
	rate2 := cc.AdjustRate(1, 0, 10e9, sink)
	if rate2 < cc.params.MinRateRatio*10e9-1e-6 {
		t.Errorf("AdjustRate below floor: got %v, floor %v", rate2, cc.params.MinRateRatio*10e9)
	}
}

type recordingRateSink struct {
	calls int
}

func (s *recordingRateSink) SetEffectiveRate(port int, rate float64) { s.calls++ }

// TestCPEMCreditBoundsProperty5 checks 0 <= feedback_credit,
// inflight_credit <= max_credit across a range of inputs.
func TestCPEMCreditBoundsProperty5(t *testing.T) {
	cc, _ := newTestCredit(t, 0.5)

	for i := 0; i < 50; i++ {
		cc.OnSend(1, 1, 9000, float64(i)*1e-6)
		cc.OnFeedbackReceived(1, float64(i%7-3), uint16(i*37%1000), float64(i)*1e-6)

		st := cc.State(1)
		if st.FeedbackCredit < 0 || st.FeedbackCredit > cc.params.MaxCredit {
			t.Fatalf("iteration %d: FeedbackCredit=%v out of [0,%v]", i, st.FeedbackCredit, cc.params.MaxCredit)
		}
		if st.InflightCredit < 0 || st.InflightCredit > cc.params.MaxCredit {
			t.Fatalf("iteration %d: InflightCredit=%v out of [0,%v]", i, st.InflightCredit, cc.params.MaxCredit)
		}
	}
}

func TestCPEMOnSendNoopWhenDisabled(t *testing.T) {
	cc, _ := newTestCredit(t, 0.8)
	cc.params.CpemEnabled = false
	cc.OnSend(1, 1, 9000, 1.0)

	if cc.State(1).InflightBytes != 0 {
		t.Errorf("OnSend must be a no-op when CpemEnabled is false")
	}
}

func TestCPEMOnSendNoopForControlQueue(t *testing.T) {
	cc, _ := newTestCredit(t, 0.8)
	cc.OnSend(1, 0, 9000, 1.0)

	if cc.State(1).InflightBytes != 0 {
		t.Errorf("OnSend must be a no-op for q == 0")
	}
}
