package cpemnet

// switch_core.go implements the Forwarding Path of spec.md §4.4 and
// ties the MMU/PFC/ECN/CPEM/load-balancer components into switchDev
// (net.go). Control flow here follows the pipeline named in spec.md
// §2: receive -> parse -> lookup next-hops -> load-balance -> admission
// check (ingress + egress) -> enqueue -> notify PFC -> update CPEM
// in-flight counter, and on dequeue: update buffer counters -> ECN
// mark if needed -> check resume -> update HPCC-style telemetry.

import (
	"fmt"

	"github.com/iti/evt/evtm"
)

// SwitchPacket is the opaque packet representation the forwarding path
// operates on. Fields beyond the header are treated as opaque per
// spec.md §1 ("other headers are treated as opaque with named fields").
type SwitchPacket struct {
	Tuple      FiveTuple
	Len        float64 // bytes
	UDPPg      int     // priority-group field carried by UDP packets
	InPort     int     // local port index the packet arrived on
	InDevID    int     // reserved-value carrying device, for ConWeaveCtrlDummyIndev checks
	CCMode     int     // 3 == HPCC
	CFH        *CreditFeedbackHeader
	IntRecords []INTRecord
	ECNMarked  bool
}

// INTRecord is the per-hop in-band telemetry record spec.md §4.4 pushes
// for HPCC CC-mode UDP packets on dequeue.
type INTRecord struct {
	Now         float64
	TxBytes     float64
	QueueBytes  float64
	LinkRateBps float64
}

// ConfigureCPEM installs the CPEM/MMU/PFC/ECN/load-balancer core onto a
// switch that was constructed by createSwitchDev, using the given
// tunables and buffer configuration. It also assigns local port indices
// (spec.md §3, [1,P)) to the switch's already-attached interfaces, in
// attachment order.
func (swtch *switchDev) ConfigureCPEM(params *CPEMParams, bufCfg *BufferConfig, ecn *ECNConfig) {
	ss := swtch.switchState
	ss.params = params
	ss.bufCfg = bufCfg
	ss.ecn = ecn
	ss.mmu = NewMMUState(bufCfg, nil)
	ss.pfc = NewPFCEngine(ss.mmu, bufCfg, 2*MTU)
	ss.fbGen = NewCPEMFeedback(params, ss.mmu, bufCfg, swtch)
	ss.cpemFb = NewCPEMCredit(params, ss.fbGen)
	ss.lb = NewLoadBalancer(params, ss.rngstrm)
	ss.rt = NewRoutingTable(swtch.switchID)

	for i, intrfc := range swtch.switchIntrfcs {
		port := i + 1
		if port >= P {
			break
		}
		ss.portByIntrfc[intrfc.number] = port
		ss.intrfcByPort[port] = intrfc
		ss.cpemFb.InitPort(port, intrfc.state.bndwdth*1e6)
		ss.txSched[port] = CreateTaskScheduler(1)
	}
}

// StartCPEM kicks off the staggered per-port feedback ticks (spec.md
// §4.5, §5 suspension point c). Call once after ConfigureCPEM.
func (swtch *switchDev) StartCPEM(evtMgr *evtm.EventManager) {
	swtch.switchState.fbGen.StartTicks(evtMgr, len(swtch.switchIntrfcs)+1)
}

// ConfigureAllSwitches applies ConfigureCPEM and StartCPEM to every
// switch known to the loaded topology (mrnes.go's switchDevById), using
// one shared parameter/buffer/ECN configuration. This is the usual
// experiment-setup entry point once BuildExperimentNet has run.
func ConfigureAllSwitches(evtMgr *evtm.EventManager, params *CPEMParams, bufCfg *BufferConfig, ecn *ECNConfig) {
	for _, swtch := range switchDevById {
		swtch.ConfigureCPEM(params, bufCfg, ecn)
		swtch.StartCPEM(evtMgr)
	}
}

// localPort returns the local port index for a global interface number,
// or 0 (the unused index) if the interface does not belong to this
// switch.
func (ss *switchState) localPort(intrfcNum int) int {
	return ss.portByIntrfc[intrfcNum]
}

// SendFeedback implements the FeedbackSink interface for cpem_feedback.go:
// send the constructed feedback packet back out the same port it
// concerns, per spec.md §9's link-local, no-routing-lookup rule.
func (swtch *switchDev) SendFeedback(evtMgr *evtm.EventManager, port int, pkt *FeedbackPacket) {
	swtch.switchState.stats.FeedbackSent++
	intrfc := swtch.switchState.intrfcByPort[port]
	if intrfc == nil {
		return
	}
	peer := peerIntrfc(intrfc)
	if peer == nil {
		return
	}
	// deliver directly to the peer switch's Receive path; the physical
	// link-layer traversal is out of scope (spec.md §1).
	if peerSwitch, ok := peer.device.(*switchDev); ok {
		sp := &SwitchPacket{
			Tuple:   FiveTuple{L3Protocol: L3ProtoCPEM},
			Len:     float64(CFHLen),
			InDevID: peerSwitch.switchID,
			CFH:     &pkt.Header,
		}
		sp.InPort = peerSwitch.switchState.localPort(peer.number)
		peerSwitch.Receive(evtMgr, sp)
	}
}

// peerIntrfc returns the interface on the far end of a link, checking
// cable/carry/wireless the same way createTopoReferences does when
// building topoGraph.
func peerIntrfc(intrfc *intrfcStruct) *intrfcStruct {
	if intrfc.cable != nil {
		return intrfc.cable
	}
	if intrfc.carry != nil {
		return intrfc.carry
	}
	if len(intrfc.wireless) > 0 {
		return intrfc.wireless[0]
	}
	return nil
}

// SetEffectiveRate implements RateSink by counting the adjustment in the
// switch statistics (RateAdjustments); it leaves the egress interface's
// bandwidth unchanged.
func (swtch *switchDev) SetEffectiveRate(port int, rate float64) {
	swtch.switchState.stats.RateAdjustments++
}

// SendPause and SendResume implement PauseResumeSink. The actual
// link-layer pause-frame emission is the out-of-scope NetDevice
// collaborator's job (spec.md §1); this module owns only the decision
// of when to call them, which is exercised through CheckAndPause and
// CheckAndResume in getOutDevAndAdmit and Dequeue below.
func (swtch *switchDev) SendPause(port, q int, pauseTimeUs float64) {
}

func (swtch *switchDev) SendResume(port, q int) {
}

// QueueBytes implements QueueDepth for DRILL: the current egress-queue
// byte occupancy summed across queues on the named local port.
func (swtch *switchDev) QueueBytes(port int) float64 {
	ss := swtch.switchState
	var total float64
	for q := 0; q < Q; q++ {
		total += ss.mmu.UsedEgressQShared[port][q] + ss.mmu.UsedEgressQMin[port][q]
	}
	return total
}

// Receive implements spec.md §4.4's packet-reception pipeline: CPEM
// feedback packets are consumed locally; Conga/ConWeave-mode data
// packets are dropped here without admission or forwarding, since this
// module has no hand-off to another routing component; everything else
// runs the ordinary admission/forward path.
func (swtch *switchDev) Receive(evtMgr *evtm.EventManager, pkt *SwitchPacket) {
	ss := swtch.switchState

	if ss.params != nil && ss.params.CpemEnabled && pkt.Tuple.L3Protocol == L3ProtoCPEM {
		swtch.handleFeedback(evtMgr, pkt)
		return
	}

	if ss.params != nil && (ss.params.LBMode == LBModeConga || ss.params.LBMode == LBModeConWeave) &&
		!isControlProtocol(pkt.Tuple.L3Protocol) {
		// Conga/ConWeave routing is not implemented in this module; the
		// packet is neither admitted nor forwarded (spec.md §4.4 step 3).
		return
	}

	swtch.getOutDevAndAdmit(evtMgr, pkt)
}

// handleFeedback implements spec.md §4.6's "Feedback packet dispatch":
// a received CFH packet is consumed locally, never forwarded, and
// updates the credit state of the port named by the packet's origin.
func (swtch *switchDev) handleFeedback(evtMgr *evtm.EventManager, pkt *SwitchPacket) {
	ss := swtch.switchState
	if pkt.CFH == nil {
		return
	}
	ss.stats.FeedbackReceived++
	now := evtMgr.CurrentTime().Seconds()
	ss.cpemFb.OnFeedbackReceived(pkt.InPort, float64(pkt.CFH.Gradient), pkt.CFH.CreditValue, now)
}

// getOutDevAndAdmit implements spec.md §4.4's GetOutDev, admission, and
// enqueue steps, in the fixed order spec.md §5 requires: admission
// update, PFC check, and in-flight update for the same packet occur in
// that order, in one event.
func (swtch *switchDev) getOutDevAndAdmit(evtMgr *evtm.EventManager, pkt *SwitchPacket) (outPort int, admitted bool) {
	ss := swtch.switchState

	q := SelectQueue(ss.params, pkt.Tuple.L3Protocol, pkt.UDPPg)

	dstNodeID := IPToNodeID(pkt.Tuple.DstIP)
	candidates := ss.rt.ECMPNextHops(dstNodeID)

	var egressIntrfcNum int
	if isControlProtocol(pkt.Tuple.L3Protocol) || ss.params == nil {
		var seed uint32
		if ss.params != nil {
			seed = ss.params.EcmpSeed
		}
		idx := EcmpHash(seed, pkt.Tuple.SrcIP, pkt.Tuple.DstIP, pkt.Tuple.SrcPort, pkt.Tuple.DstPort, len(candidates))
		egressIntrfcNum = candidates[idx]
	} else {
		port, delegated := ss.lb.SelectNextHop(pkt.Tuple, candidates, portDepthAdapter{swtch})
		if delegated {
			return 0, false
		}
		egressIntrfcNum = port
	}

	outPort = ss.localPort(egressIntrfcNum)
	if outPort == 0 {
		outPort = 1
	}

	if q == 0 {
		// control-plane queue bypasses admission gating (spec.md §4.4:
		// "Admission gating applies only to q != 0").
		swtch.enqueue(evtMgr, pkt, outPort, q)
		return outPort, true
	}

	ingressResult := ss.mmu.CheckIngressAdmission(pkt.InPort, q, pkt.Len)
	if ingressResult != Admitted {
		ss.stats.DroppedIngressFull++
		ss.mmu.DroppedPktSwIngress++
		fmt.Printf("cpemnet: switch %s dropping packet, ingress %s at (port %d, q %d)\n",
			swtch.switchName, ingressResult, pkt.InPort, q)
		return 0, false
	}
	ss.mmu.UpdateIngress(pkt.InPort, q, pkt.Len)

	egressResult := ss.mmu.CheckEgressAdmission(outPort, q, pkt.Len)
	if egressResult != Admitted {
		if egressResult == EgressThreshold {
			ss.stats.DroppedEgressThreshold++
		} else {
			ss.stats.DroppedEgressFull++
		}
		ss.mmu.RemoveIngress(pkt.InPort, q, pkt.Len)
		ss.mmu.DroppedPktSwEgress++
		fmt.Printf("cpemnet: switch %s dropping packet, egress %s at (port %d, q %d)\n",
			swtch.switchName, egressResult, outPort, q)
		return 0, false
	}
	qMinCell := ss.bufCfg.pgSharedLimit()
	ss.mmu.UpdateEgress(outPort, q, pkt.Len, qMinCell)

	ss.pfc.CheckAndPause(evtMgr, swtch, pkt.InPort, q, 100)

	if ss.params != nil && ss.params.CpemEnabled {
		ss.cpemFb.OnSend(outPort, q, pkt.Len, evtMgr.CurrentTime().Seconds())
	}

	swtch.enqueue(evtMgr, pkt, outPort, q)
	return outPort, true
}

// portDepthAdapter adapts a *switchDev to the QueueDepth interface
// DRILL needs without exposing switchDev's internals directly.
type portDepthAdapter struct{ swtch *switchDev }

func (p portDepthAdapter) QueueBytes(port int) float64 { return p.swtch.QueueBytes(port) }

// txCompleteEvent is the payload carried through scheduler.go's
// TaskScheduler from enqueue to txComplete: everything Dequeue needs to
// finish the packet once its serialization time on the wire has passed.
type txCompleteEvent struct {
	pkt     *SwitchPacket
	outPort int
	q       int
	rateBps float64
}

// txComplete is the evtm.EventHandlerFunction scheduler.go's
// TaskScheduler invokes once a packet's transmission timeslice
// completes; registered as a free function per the corpus convention
// (cpem_feedback.go's cpemTick does the same).
func txComplete(evtMgr *evtm.EventManager, context any, data any) any {
	swtch := context.(*switchDev)
	task := data.(*Task)
	ev := task.Msg.(txCompleteEvent)
	swtch.Dequeue(evtMgr, ev.pkt, ev.outPort, ev.q, ev.rateBps)
	return nil
}

// enqueue hands the packet to its egress port's transmission scheduler:
// scheduler.go's TaskScheduler, configured with a single core per port
// (spec.md §5's single-server-per-port assumption), so that packets
// queued behind an in-flight transmission on the same port serialize
// rather than dequeue concurrently. The scheduler fires txComplete,
// which runs spec.md §4.4's dequeue-notification step, once the
// packet's serialization time at the port's advertised bandwidth has
// elapsed. Ports with no configured bandwidth or scheduler (e.g. the
// control-plane fallback port) dequeue immediately.
func (swtch *switchDev) enqueue(evtMgr *evtm.EventManager, pkt *SwitchPacket, outPort, q int) {
	ss := swtch.switchState

	intrfc := ss.intrfcByPort[outPort]
	sched := ss.txSched[outPort]
	if intrfc == nil || sched == nil || intrfc.state.bndwdth <= 0 {
		swtch.Dequeue(evtMgr, pkt, outPort, q, 0)
		return
	}

	rateBps := intrfc.state.bndwdth * 1e6
	serviceTime := pkt.Len * 8 / rateBps

	ev := txCompleteEvent{pkt: pkt, outPort: outPort, q: q, rateBps: rateBps}
	sched.Schedule(evtMgr, "tx", serviceTime, serviceTime, swtch, ev, txComplete)
}

// Dequeue implements spec.md §4.4's "Dequeue notification": update
// egress-queue and ingress counters (unless the packet carries the
// reserved ConWeave control in-device id), possibly ECN-mark, run the
// PFC resume check, and for HPCC CC-mode UDP packets push a telemetry
// record.
func (swtch *switchDev) Dequeue(evtMgr *evtm.EventManager, pkt *SwitchPacket, outPort, q int, linkRateBps float64) {
	ss := swtch.switchState

	if q != 0 {
		ss.mmu.RemoveEgress(outPort, q, pkt.Len)
		if pkt.InDevID != ConWeaveCtrlDummyIndev {
			ss.mmu.RemoveIngress(pkt.InPort, q, pkt.Len)
		}

		used := ss.mmu.UsedEgressQShared[outPort][q]
		if marked, _ := ss.ecn.MaybeMark(ss.rngstrm, outPort, q, used); marked {
			pkt.ECNMarked = true
		}

		ss.pfc.CheckAndResume(swtch, pkt.InPort, q)
	}

	if pkt.CCMode == 3 && pkt.Tuple.L3Protocol == L3ProtoUDP {
		rec := INTRecord{
			Now:         evtMgr.CurrentTime().Seconds(),
			TxBytes:     ss.mmu.UsedEgressPort[outPort],
			QueueBytes:  ss.mmu.UsedEgressQShared[outPort][q] + ss.mmu.UsedEgressQMin[outPort][q],
			LinkRateBps: linkRateBps,
		}
		pkt.IntRecords = append(pkt.IntRecords, rec)
	}
}

// Stats returns a snapshot of the switch's statistics aggregate,
// filling in the per-port transmission backlog from each port's
// scheduler.go TaskScheduler at call time (a live read, not an
// accumulated counter, since it reflects present occupancy rather
// than a count of past events).
func (swtch *switchDev) Stats() switchStats {
	ss := swtch.switchState
	stats := ss.stats
	for port, sched := range ss.txSched {
		if sched != nil {
			stats.TxBacklog[port] = sched.Pending()
		}
	}
	return stats
}
