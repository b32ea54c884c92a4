package cpemnet

// pfc.go implements the per-(port,queue) PFC pause/resume state machine
// of spec.md §4.2. Scheduling of the resume callback follows the
// evtm/vrtime idiom scheduler.go uses for its timeslice-completion
// events; cancellation of a superseded pending resume uses a generation
// counter rather than an explicit cancel-token API (evtm carries no
// native cancellation), the same trick the corpus applies wherever an
// event needs to be "forgotten" without removing it from the manager's
// queue: the stale callback fires, checks its generation against the
// current one, and is a no-op if it does not match.

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
)

// PauseResumeSink is the out-of-scope link-layer collaborator spec.md
// §1 places outside the MMU core ("the physical link layer,
// NetDevice-like"). The PFC engine calls it to actually emit a pause or
// resume frame to the peer; this module owns only the decision of when
// to call it.
type PauseResumeSink interface {
	SendPause(port, q int, pauseTimeUs float64)
	SendResume(port, q int)
}

// PFCState holds the pause bookkeeping for one (port, queue) pair,
// spec.md §3 "PFC state per (port, queue)".
type PFCState struct {
	Paused       bool
	PauseRemote  bool // did we tell the peer to pause
	generation   uint64
	resumePending bool
}

// PFCEngine owns PFCState for every (port,queue) on a switch plus the
// dynamic/static threshold configuration of spec.md §4.2.
type PFCEngine struct {
	states [P][Q]PFCState

	mmu *MMUState
	cfg *BufferConfig

	// OffDiff is the hysteresis margin subtracted in the dynamic resume
	// predicate (spec.md §4.2).
	OffDiff float64

	// Static-mode resume thresholds.
	PGSharedLimitOff [P][Q]float64
	PortMinOff       [P]float64
}

// NewPFCEngine constructs a PFCEngine bound to the switch's MMU state.
func NewPFCEngine(mmu *MMUState, cfg *BufferConfig, offDiff float64) *PFCEngine {
	return &PFCEngine{mmu: mmu, cfg: cfg, OffDiff: offDiff}
}

// State returns the current PFC state for (port,q).
func (e *PFCEngine) State(port, q int) PFCState {
	return e.states[port][q]
}

// shouldPause evaluates the pause predicate of spec.md §4.2.
func (e *PFCEngine) shouldPause(port, q int) bool {
	usedPG := e.mmu.UsedIngressPG[port][q]
	pgMin := e.cfg.PGMin[port][q]
	portMin := e.cfg.PortMin[port]
	hdrmInUse := e.mmu.UsedIngressPGHeadroom[port][q] > 0

	if e.cfg.DynamicThreshold {
		usedSP, spLimit, _ := e.mmu.pfcMargin(port, q)
		margin := e.cfg.AlphaIngress * (spLimit - usedSP)
		return usedPG-pgMin-portMin > margin || hdrmInUse
	}

	if e.mmu.UsedIngressPort[port] > e.cfg.portMaxShared() {
		return true
	}
	return usedPG > e.cfg.pgSharedLimit()
}

// shouldResume evaluates the resume predicate of spec.md §4.2. It only
// makes sense to call when Paused is already true.
func (e *PFCEngine) shouldResume(port, q int) bool {
	usedPG := e.mmu.UsedIngressPG[port][q]
	pgMin := e.cfg.PGMin[port][q]
	portMin := e.cfg.PortMin[port]
	hdrmEmpty := e.mmu.UsedIngressPGHeadroom[port][q] == 0

	if e.cfg.DynamicThreshold {
		usedSP, spLimit, _ := e.mmu.pfcMargin(port, q)
		margin := e.cfg.AlphaIngress * (spLimit - usedSP - e.OffDiff)
		return usedPG-pgMin-portMin < margin && hdrmEmpty
	}

	return usedPG < e.PGSharedLimitOff[port][q] && e.mmu.UsedIngressPort[port] < e.PortMinOff[port]
}

// CheckAndPause evaluates whether (port,q) should transition to paused
// given the buffer state observed after the triggering admission
// update (spec.md §5 ordering guarantee), and if so, emits the pause
// and schedules its resume. It is a no-op if already paused.
func (e *PFCEngine) CheckAndPause(evtMgr *evtm.EventManager, sink PauseResumeSink, port, q int, pauseTimeUs float64) {
	st := &e.states[port][q]
	if st.Paused {
		return
	}
	if !e.shouldPause(port, q) {
		return
	}

	sink.SendPause(port, q, pauseTimeUs)
	st.Paused = true
	st.PauseRemote = true

	// A new pause cancels any pending resume for this (port,q): bump the
	// generation so a stale scheduled callback becomes a no-op.
	st.generation++
	gen := st.generation
	st.resumePending = true

	evtMgr.Schedule(e, pfcResumeEvent{port: port, q: q, generation: gen},
		pfcResumeCallback, vrtime.SecondsToTime(pauseTimeUs*1e-6))
}

// pfcResumeEvent is the payload scheduled for a PFC resume callback.
type pfcResumeEvent struct {
	port, q    int
	generation uint64
}

// pfcResumeCallback fires when a scheduled pause duration elapses. If a
// newer pause has superseded this one (generation mismatch) it is a
// silent no-op, per spec.md §7 "Pause cancellation race".
func pfcResumeCallback(evtMgr *evtm.EventManager, context any, data any) any {
	e := context.(*PFCEngine)
	ev := data.(pfcResumeEvent)

	st := &e.states[ev.port][ev.q]
	if !st.resumePending || st.generation != ev.generation {
		return nil
	}
	st.resumePending = false
	st.Paused = false
	return nil
}

// CheckAndResume is called on dequeue (or whenever buffer state changes
// on the ingress side) to see whether a resume should be sent early,
// ahead of the scheduled timeout. It only sends a resume when
// PauseRemote was true and the resume predicate holds, per spec.md
// §4.2's "Resume transmissions are emitted only when pause_remote[...]
// was true and the resume predicate holds."
func (e *PFCEngine) CheckAndResume(sink PauseResumeSink, port, q int) {
	st := &e.states[port][q]
	if !st.Paused || !st.PauseRemote {
		return
	}
	if !e.shouldResume(port, q) {
		return
	}
	sink.SendResume(port, q)
	st.Paused = false
	st.PauseRemote = false
	st.resumePending = false
	st.generation++
}
