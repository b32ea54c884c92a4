package cpemnet

// cpem_credit.go implements the upstream-side CPEM Credit Integrator of
// spec.md §4.6: per-port credit state, EWMA feedback blending, in-flight
// decay, and the resulting send-rate adjustment. All arithmetic is the
// double-precision formulas spec.md §4.6 and §9 specify verbatim
// ("implementations must clamp and round identically... to reproduce
// tests").

import "math"

// RateSink receives the effective rate whenever a rate adjustment
// changes it, standing in for the out-of-scope NetDevice collaborator
// (spec.md §1) that would actually enforce the new send rate.
type RateSink interface {
	SetEffectiveRate(port int, rate float64)
}

// CreditState is the per-port state of spec.md §3 "CPEM port-credit
// state".
type CreditState struct {
	FeedbackCredit   float64
	InflightCredit   float64
	InflightBytes    float64
	LastQueueLen     float64
	LastFeedbackTime float64 // seconds
	LastSendTime     float64 // seconds
	EffectiveRate    float64 // bits/s
	Initialized      bool

	RateAdjustments uint64
}

// CPEMCredit owns per-port CreditState and the parameters governing its
// evolution.
type CPEMCredit struct {
	states [P]CreditState
	params *CPEMParams
	fb     *CPEMFeedback // used to read a port's thresholds (high in OnSend, low in OnFeedbackReceived)
}

// NewCPEMCredit constructs a CPEMCredit bound to the module parameters
// and the feedback generator (needed only to read a port's thresholds:
// the high threshold for the max_inflight computation in OnSend, the low
// threshold for the bonus computation in OnFeedbackReceived).
func NewCPEMCredit(params *CPEMParams, fb *CPEMFeedback) *CPEMCredit {
	return &CPEMCredit{params: params, fb: fb}
}

// InitPort marks a port's credit state as initialized, per spec.md §3
// "Credit state is initialized on first link-up per port." Operations
// on an uninitialized port are silent no-ops (spec.md §7).
func (c *CPEMCredit) InitPort(port int, initialRate float64) {
	c.states[port] = CreditState{Initialized: true, EffectiveRate: initialRate}
}

// State returns a copy of the credit state for a port.
func (c *CPEMCredit) State(port int) CreditState {
	return c.states[port]
}

func clampCredit(v, maxCredit float64) float64 {
	if v < 0 {
		return 0
	}
	if v > maxCredit {
		return maxCredit
	}
	return v
}

// OnSend implements spec.md §4.6 "On send of b bytes through port p
// (q != 0)". now is the current simulated time in seconds.
func (c *CPEMCredit) OnSend(port int, q int, bytes float64, now float64) {
	if !c.params.CpemEnabled || q == 0 {
		return
	}
	st := &c.states[port]
	if !st.Initialized {
		return
	}

	if st.LastSendTime > 0 {
		dtNs := (now - st.LastSendTime) * 1e9
		decay := math.Exp(-dtNs / (2 * c.params.FeedbackIntervalNs))
		st.InflightBytes *= decay
	}
	st.InflightBytes += bytes
	st.LastSendTime = now

	high := c.fb.highThresholdForCredit(port)
	maxInflight := 2 * high
	if maxInflight <= 0 {
		maxInflight = 1
	}
	st.InflightCredit = clampCredit(st.InflightBytes/maxInflight*c.params.MaxCredit, c.params.MaxCredit)
}

// highThresholdForCredit exposes the feedback generator's high
// threshold for a port, used by OnSend's max_inflight computation.
func (f *CPEMFeedback) highThresholdForCredit(port int) float64 {
	_, high := f.thresholds(port)
	return high
}

// OnFeedbackReceived implements spec.md §4.6 "On feedback received on
// port p carrying (q, delta, C)". now is the current simulated time in
// seconds. The port here is the local port the feedback packet arrived
// on; the switch's feedback dispatch passes the packet's InPort, not
// its FlowIdTag.
func (c *CPEMCredit) OnFeedbackReceived(port int, delta float64, credit uint16, now float64) {
	if !c.params.CpemEnabled {
		return
	}
	st := &c.states[port]
	if !st.Initialized {
		return
	}

	low, _ := c.fb.thresholds(port)

	var bonus float64
	if delta > 0 {
		bonus = math.Min(0.3*c.params.MaxCredit, delta/low*0.2*c.params.MaxCredit)
	}

	newCredit := math.Min(c.params.MaxCredit, float64(credit)+bonus)

	alpha := c.params.CreditDecayAlpha
	st.FeedbackCredit = alpha*st.FeedbackCredit + (1-alpha)*newCredit
	st.FeedbackCredit = clampCredit(st.FeedbackCredit, c.params.MaxCredit)

	st.InflightBytes *= 0.5
	st.LastFeedbackTime = now
}

// EffectiveCredit implements spec.md §4.6 "Effective credit for rate
// computation".
func (c *CPEMCredit) EffectiveCredit(port int, now float64) float64 {
	st := &c.states[port]
	interval := c.params.FeedbackIntervalNs * 1e-9

	age := now - st.LastFeedbackTime
	var weight float64
	if age > 10*interval {
		weight = 0.2
	} else {
		weight = math.Exp(-age / (3 * interval))
	}

	effective := weight*st.FeedbackCredit + c.params.InflightDiscount*st.InflightCredit
	return clampCredit(effective, c.params.MaxCredit)
}

// AdjustRate implements spec.md §4.6 "Rate adjustment": given the link
// rate R, computes the new effective rate and, if it changed, notifies
// sink and increments the rate-adjustments statistic.
func (c *CPEMCredit) AdjustRate(port int, now float64, linkRate float64, sink RateSink) float64 {
	st := &c.states[port]
	if !c.params.CpemEnabled || !st.Initialized {
		return linkRate
	}

	effective := c.EffectiveCredit(port, now)
	rateRatio := math.Max(c.params.MinRateRatio, 1-(effective/c.params.MaxCredit)*c.params.CreditToRateGain)
	newRate := linkRate * rateRatio

	if newRate != st.EffectiveRate {
		st.RateAdjustments++
		st.EffectiveRate = newRate
		if sink != nil {
			sink.SetEffectiveRate(port, newRate)
		}
	}
	return newRate
}
