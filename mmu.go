package cpemnet

// mmu.go implements the switch memory-management unit: per-port,
// per-queue, per-service-pool buffer accounting and ingress/egress
// admission (spec.md §3, §4.1). Counters are plain byte totals mutated
// synchronously within a single simulator callback (spec.md §5), so no
// synchronization is needed here — the same "single-threaded
// cooperative" assumption net.go's counters rely on.

import "fmt"

// AdmitResult names the outcome of an admission check (spec.md §7).
type AdmitResult int

const (
	Admitted AdmitResult = iota
	IngressFull
	EgressFull
	EgressThreshold
)

func (r AdmitResult) String() string {
	switch r {
	case Admitted:
		return "Admitted"
	case IngressFull:
		return "IngressFull"
	case EgressFull:
		return "EgressFull"
	case EgressThreshold:
		return "EgressThreshold"
	}
	return "Unknown"
}

// ingressSPIndex returns the ingress service-pool index for a queue,
// per spec.md §3: "ingress SP index = 1 if queue index == 1 else 0".
func ingressSPIndex(q int) int {
	if q == 1 {
		return 1
	}
	return 0
}

// egressSPIndex returns the egress service-pool index for a queue, per
// spec.md §3: "egress SP index = 0 if queue index == 0 else 1".
func egressSPIndex(q int) int {
	if q == 0 {
		return 0
	}
	return 1
}

// BufferConfig holds the derived and configured limits governing
// admission (spec.md §3 "Configuration").
type BufferConfig struct {
	MaxBuffer float64 // max_buffer, bytes

	// PGMin/PortMin are the per-pg/per-port guaranteed allocations.
	PGMin   [P][Q]float64
	PortMin [P]float64

	// PGHdrmLimit is the per-port headroom limit.
	PGHdrmLimit [P]float64

	// DynamicThreshold enables alpha-scaled dynamic limits; otherwise
	// the static fallback limits below apply.
	DynamicThreshold bool
	AlphaIngress     float64
	AlphaEgress      float64

	// Static fallback limits (spec.md §3): "20*MTU per pg and 4800*MTU
	// per port" when dynamic mode is disabled.
	PGSharedLimitStatic   float64
	PortMaxSharedStatic   float64

	// BufferCellLimitSP is buffer_cell_limit_sp, indexed by SP.
	BufferCellLimitSP [4]float64

	// Egress-side static configuration, per port.
	OpBufferSharedLimit [P]float64 // op_buffer_shared_limit
	OpUCPortConfig      [P]float64 // op_uc_port_config
	OpUCPortConfig1     [P]float64 // op_uc_port_config1
}

// NewBufferConfig builds a BufferConfig from a max-buffer size and
// per-port/per-pg guarantees, applying the dynamic-vs-static defaults of
// spec.md §3: "When dynamic mode is enabled, pg_shared_limit =
// port_max_shared = max_buffer; otherwise 20*MTU per pg and 4800*MTU per
// port."
func NewBufferConfig(maxBuffer float64, dynamic bool, alphaIngress, alphaEgress float64) *BufferConfig {
	bc := &BufferConfig{
		MaxBuffer:        maxBuffer,
		DynamicThreshold: dynamic,
		AlphaIngress:     alphaIngress,
		AlphaEgress:      alphaEgress,
	}
	bc.PGSharedLimitStatic = 20 * MTU
	bc.PortMaxSharedStatic = 4800 * MTU
	for sp := 0; sp < 4; sp++ {
		if dynamic {
			bc.BufferCellLimitSP[sp] = maxBuffer
		} else {
			bc.BufferCellLimitSP[sp] = maxBuffer
		}
	}
	for p := 0; p < P; p++ {
		if dynamic {
			bc.OpBufferSharedLimit[p] = maxBuffer
			bc.OpUCPortConfig[p] = maxBuffer
			bc.OpUCPortConfig1[p] = maxBuffer
		} else {
			bc.OpBufferSharedLimit[p] = maxBuffer
			bc.OpUCPortConfig[p] = bc.PortMaxSharedStatic
			bc.OpUCPortConfig1[p] = bc.PGSharedLimitStatic
		}
	}
	return bc
}

// pgSharedLimit returns the effective per-pg shared-pool limit under the
// current threshold mode.
func (bc *BufferConfig) pgSharedLimit() float64 {
	if bc.DynamicThreshold {
		return bc.MaxBuffer
	}
	return bc.PGSharedLimitStatic
}

// portMaxShared returns the effective per-port shared-pool limit under
// the current threshold mode.
func (bc *BufferConfig) portMaxShared() float64 {
	if bc.DynamicThreshold {
		return bc.MaxBuffer
	}
	return bc.PortMaxSharedStatic
}

// MMUState holds the byte counters of spec.md §3 "MMU counters".
type MMUState struct {
	UsedTotal float64

	UsedIngressPG          [P][Q]float64
	UsedIngressPort        [P]float64
	UsedIngressSP          [4]float64
	UsedIngressPGHeadroom  [P][Q]float64

	UsedEgressQMin    [P][Q]float64
	UsedEgressQShared [P][Q]float64
	UsedEgressPort    [P]float64
	UsedEgressSP      [4]float64

	// DroppedPktSwIngress counts packets denied by CheckIngressAdmission.
	DroppedPktSwIngress uint64
	// DroppedPktSwEgress counts packets denied by CheckEgressAdmission.
	DroppedPktSwEgress uint64

	cfg *BufferConfig
	warnf func(string, ...any)
}

// NewMMUState constructs an MMUState bound to the given BufferConfig.
// warn receives clamp/underflow diagnostics (spec.md §7: "logged,
// counter clamped to zero"); pass nil to use fmt.Printf.
func NewMMUState(cfg *BufferConfig, warn func(string, ...any)) *MMUState {
	if warn == nil {
		warn = func(format string, args ...any) { fmt.Printf(format+"\n", args...) }
	}
	return &MMUState{cfg: cfg, warnf: warn}
}

// clamp subtracts delta from *counter, clamping at zero and warning on
// underflow, per spec.md §3 invariant 4 and §7 "CounterUnderflow".
func (m *MMUState) clamp(counter *float64, delta float64, label string) {
	if delta > *counter {
		m.warnf("cpemnet: mmu counter underflow on %s: have %.0f, removing %.0f, clamping to 0", label, *counter, delta)
		*counter = 0
		return
	}
	*counter -= delta
}

// CheckIngressAdmission implements spec.md §4.1 "Ingress admission".
func (m *MMUState) CheckIngressAdmission(port, q int, psize float64) AdmitResult {
	cfg := m.cfg
	sp := ingressSPIndex(q)

	if m.UsedTotal+psize > cfg.MaxBuffer {
		return IngressFull
	}

	pgMin := cfg.PGMin[port][q]
	portMin := cfg.PortMin[port]
	if m.UsedIngressPG[port][q]+psize <= pgMin && m.UsedIngressPort[port]+psize <= portMin {
		return Admitted
	}

	spLimit := cfg.BufferCellLimitSP[sp]
	if m.UsedIngressSP[sp] <= spLimit {
		return Admitted
	}

	hdrmLimit := cfg.PGHdrmLimit[port]
	if m.UsedIngressPGHeadroom[port][q]+psize <= hdrmLimit {
		return Admitted
	}

	return IngressFull
}

// UpdateIngress admits psize bytes at (port,q). Per spec.md §3 invariant
// 1 ("each add/remove changes used_total, used_ingress_sp[sp],
// used_ingress_port, and used_ingress_pg by the same delta"),
// used_ingress_sp is credited unconditionally on every admit; headroom
// is a separate, additive overflow counter that only tracks bytes
// admitted while the service pool is past its cell limit. The overflow
// test reads used_ingress_sp *after* this packet's bytes are folded in,
// so the packet that pushes the pool over the limit is itself credited
// to headroom.
func (m *MMUState) UpdateIngress(port, q int, psize float64) {
	cfg := m.cfg
	sp := ingressSPIndex(q)

	m.UsedTotal += psize
	m.UsedIngressPort[port] += psize
	m.UsedIngressPG[port][q] += psize
	m.UsedIngressSP[sp] += psize

	if m.UsedIngressSP[sp] > cfg.BufferCellLimitSP[sp] {
		m.UsedIngressPGHeadroom[port][q] += psize
	}
}

// RemoveIngress reverses UpdateIngress for psize bytes at (port,q),
// clamping any counter that would otherwise underflow. used_ingress_sp
// is always decremented alongside total/port/pg; the headroom overflow
// counter is decremented only when this (port,q) currently carries
// headroom bytes, mirroring UpdateIngress's overflow condition.
func (m *MMUState) RemoveIngress(port, q int, psize float64) {
	sp := ingressSPIndex(q)

	hadHeadroom := m.UsedIngressPGHeadroom[port][q] > 0

	m.clamp(&m.UsedTotal, psize, "used_total")
	m.clamp(&m.UsedIngressPort[port], psize, "used_ingress_port")
	m.clamp(&m.UsedIngressPG[port][q], psize, "used_ingress_pg")
	m.clamp(&m.UsedIngressSP[sp], psize, "used_ingress_sp")

	if hadHeadroom {
		m.clamp(&m.UsedIngressPGHeadroom[port][q], psize, "used_ingress_pg_headroom")
	}
}

// CheckEgressAdmission implements spec.md §4.1 "Egress admission".
func (m *MMUState) CheckEgressAdmission(port, q int, psize float64) AdmitResult {
	cfg := m.cfg
	sp := egressSPIndex(q)

	if m.UsedEgressSP[sp]+psize > cfg.OpBufferSharedLimit[port] {
		return EgressFull
	}
	if m.UsedEgressPort[port]+psize > cfg.OpUCPortConfig[port] {
		return EgressFull
	}
	if m.UsedEgressQShared[port][q]+psize > cfg.OpUCPortConfig1[port] {
		return EgressFull
	}
	dynamicLimit := cfg.AlphaEgress * (cfg.OpBufferSharedLimit[port] - m.UsedEgressSP[sp])
	if m.UsedEgressQShared[port][q]+psize > dynamicLimit {
		return EgressThreshold
	}
	return Admitted
}

// UpdateEgress admits psize bytes into the egress path at (port,q),
// tracking the q_min/q_shared split of spec.md §3 invariant 2/3.
func (m *MMUState) UpdateEgress(port, q int, psize float64, qMinCell float64) {
	sp := egressSPIndex(q)

	room := qMinCell - m.UsedEgressQMin[port][q]
	if room < 0 {
		room = 0
	}
	toMin := psize
	if toMin > room {
		toMin = room
	}
	toShared := psize - toMin

	m.UsedEgressQMin[port][q] += toMin
	m.UsedEgressQShared[port][q] += toShared
	m.UsedEgressPort[port] += psize
	m.UsedEgressSP[sp] += toShared
}

// RemoveEgress reverses UpdateEgress for psize bytes at (port,q).
func (m *MMUState) RemoveEgress(port, q int, psize float64) {
	sp := egressSPIndex(q)

	fromMin := psize
	if fromMin > m.UsedEgressQMin[port][q] {
		fromMin = m.UsedEgressQMin[port][q]
	}
	fromShared := psize - fromMin

	m.clamp(&m.UsedEgressQMin[port][q], fromMin, "used_egress_q_min")
	m.clamp(&m.UsedEgressQShared[port][q], fromShared, "used_egress_q_shared")
	m.clamp(&m.UsedEgressPort[port], psize, "used_egress_port")
	m.clamp(&m.UsedEgressSP[sp], fromShared, "used_egress_sp")
}

// pfcMargin returns, for a given (port,q), the raw inputs of the pause
// predicate of spec.md §4.2 that PFC and CPEM both need: the ingress
// service pool's used bytes, that pool's cell limit, and the sum of the
// queue's pg_min and the port's port_min. Callers form the margin
// `used_sp - buffer_cell_limit_sp` themselves.
func (m *MMUState) pfcMargin(port, q int) (usedSP, spLimit, pgMinPlusPortMin float64) {
	sp := ingressSPIndex(q)
	return m.UsedIngressSP[sp], m.cfg.BufferCellLimitSP[sp], m.cfg.PGMin[port][q] + m.cfg.PortMin[port]
}
