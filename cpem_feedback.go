package cpemnet

// cpem_feedback.go implements the downstream-side CPEM Feedback
// Generator of spec.md §4.5: a periodic per-ingress-port timer that
// evaluates queue length against low/high thresholds and, when
// warranted, emits a credit-feedback packet back upstream on the same
// port. Scheduling follows the evtm/vrtime idiom used throughout the
// corpus for periodic and staggered-init callbacks (spec.md §5
// suspension points b and c).

import (
	"math"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// FeedbackSink is called with a fully-built feedback packet, ready to
// be sent out the same port it concerns. The switch core supplies the
// concrete implementation (spec.md §9: link-local, no routing lookup).
type FeedbackSink interface {
	SendFeedback(evtMgr *evtm.EventManager, port int, pkt *FeedbackPacket)
}

// FeedbackGenState is the per-ingress-port state the feedback generator
// needs between ticks: spec.md §3's `last_queue_len`.
type FeedbackGenState struct {
	LastQueueLen float64
	generation   uint64
}

// CPEMFeedback owns the per-port feedback-generator state and the
// configuration it reads thresholds from.
type CPEMFeedback struct {
	states [P]FeedbackGenState

	params *CPEMParams
	mmu    *MMUState
	cfg    *BufferConfig
	sink   FeedbackSink
}

// NewCPEMFeedback constructs a CPEMFeedback bound to the switch's MMU
// and buffer configuration. sink receives packets this generator
// decides to emit; it is normally the owning switch itself.
func NewCPEMFeedback(params *CPEMParams, mmu *MMUState, cfg *BufferConfig, sink FeedbackSink) *CPEMFeedback {
	return &CPEMFeedback{params: params, mmu: mmu, cfg: cfg, sink: sink}
}

// thresholds computes the low/high thresholds for port p, per spec.md
// §4.5 step 2, in either dynamic or fixed mode.
func (f *CPEMFeedback) thresholds(port int) (low, high float64) {
	if !f.params.UseDynamicThreshold {
		return f.params.QueueThresholdLow, f.params.QueueThresholdHigh
	}

	// dynamic mode ties CPEM thresholds to the PFC dynamic-threshold
	// computation; ingress SP index 0 is used, the same general pool
	// CpemGetDynamicThresholds reads in the switch-mmu model this module
	// is grounded on, not the priority-1-only pool.
	usedSP, spLimit, pgMinPlusPortMin := f.mmu.pfcMargin(port, 0)
	pfcThresh := f.cfg.AlphaIngress*(spLimit-usedSP) + pgMinPlusPortMin

	low = math.Max(10*MTU, pfcThresh*f.params.ThresholdLowRatio)
	high = math.Max(low+5*MTU, pfcThresh*f.params.ThresholdHighRatio)
	return low, high
}

// creditValue implements spec.md §4.5.1.
func creditValue(q, low, high, delta, maxCredit float64) uint16 {
	var qRatio float64
	switch {
	case q <= low:
		qRatio = 0
	case q >= high:
		qRatio = 1
	default:
		qRatio = (q - low) / (high - low)
	}

	gradientFactor := 1.0
	if delta > 0 {
		gradientFactor = 1 + math.Min(delta/low, 1)*0.5
	} else if delta < 0 {
		gradientFactor = 1 - math.Min(-delta/low, 1)*0.3
	}

	c := qRatio * gradientFactor * maxCredit
	if c > maxCredit {
		c = maxCredit
	}
	if c < 0 {
		c = 0
	}
	return uint16(math.Round(c))
}

// cpemTickEvent is the payload scheduled for each feedback tick.
type cpemTickEvent struct {
	port       int
	generation uint64
}

// StartTicks schedules the first, staggered tick for every ingress port
// 1..nPorts-1, per spec.md §4.5: "staggered at init by i * interval /
// n_ports."
func (f *CPEMFeedback) StartTicks(evtMgr *evtm.EventManager, nPorts int) {
	if !f.params.CpemEnabled {
		return
	}
	intervalSec := f.params.FeedbackIntervalNs * 1e-9
	for p := 1; p < nPorts && p < P; p++ {
		offset := float64(p) * intervalSec / float64(nPorts)
		evtMgr.Schedule(f, cpemTickEvent{port: p, generation: f.states[p].generation},
			cpemTick, vrtime.SecondsToTime(offset))
	}
}

// cpemTick is the evtm.EventHandlerFunction fired at each per-port tick.
// It is registered as a free function (not a method value) to match the
// evtm.EventHandlerFunction signature used throughout the corpus
// (scheduler.go's timeSliceComplete does the same).
func cpemTick(evtMgr *evtm.EventManager, context any, data any) any {
	f := context.(*CPEMFeedback)
	ev := data.(cpemTickEvent)
	f.tick(evtMgr, ev.port)
	return nil
}

// evaluate implements spec.md §4.5 steps 1-6 for port p: whether the
// queue is above the low threshold and, if so, the feedback packet the
// tick should emit. It touches no evtm state, so it is the piece of
// tick's logic the scenario test for §8 S3 exercises directly.
func (f *CPEMFeedback) evaluate(port int) (pkt *FeedbackPacket, emit bool) {
	if !f.params.CpemEnabled {
		return nil, false
	}

	st := &f.states[port]
	q := f.mmu.UsedIngressPort[port]
	low, high := f.thresholds(port)

	if q < low {
		return nil, false
	}

	delta := q - st.LastQueueLen
	st.LastQueueLen = q

	c := creditValue(q, low, high, delta, f.params.MaxCredit)
	if c == 0 {
		return nil, false
	}

	h := CreditFeedbackHeader{
		QueueLen:    uint32(q),
		Gradient:    clampInt16(delta),
		CreditValue: c,
		PortIndex:   uint8(port),
	}
	return BuildFeedbackPacket(h, port), true
}

// tick implements one evaluation of spec.md §4.5 steps 1-7 for port p,
// emitting through the sink and rescheduling itself.
func (f *CPEMFeedback) tick(evtMgr *evtm.EventManager, port int) {
	if !f.params.CpemEnabled {
		return
	}

	if pkt, emit := f.evaluate(port); emit && f.sink != nil {
		f.sink.SendFeedback(evtMgr, port, pkt)
	}

	// reschedule the next tick. The event carries the port's generation,
	// but cpemTick does not compare it, so a second StartTicks call adds
	// a second tick chain rather than replacing the first.
	st := &f.states[port]
	intervalSec := f.params.FeedbackIntervalNs * 1e-9
	evtMgr.Schedule(f, cpemTickEvent{port: port, generation: st.generation},
		cpemTick, vrtime.SecondsToTime(intervalSec))
}

// clampInt16 saturates a float64 delta into the wire header's signed
// 16-bit gradient field.
func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
