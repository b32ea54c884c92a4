package cpemnet

// ecn.go implements egress ECN marking on dequeue (spec.md §4.3), using
// the per-device rngstream.RngStream the corpus attaches to every
// switchDev/routerDev/endptDev for probabilistic decisions (net.go's
// createSwitchState).

import "github.com/iti/rngstream"

// ECNConfig holds the per-port marking thresholds of spec.md §3 "ECN
// marking per port".
type ECNConfig struct {
	Kmin [P]float64
	Kmax [P]float64
	Pmax [P]float64
}

// congestionExperienced is the ECN codepoint spec.md §4.3 mandates be
// set on a marked packet's IP header.
const congestionExperienced = 0x03

// MaybeMark implements spec.md §4.3: given the egress queue occupancy
// for (port,q) with q != 0, decides whether to ECN-mark, and if so
// returns the codepoint to write into the packet's ECN field. Queue 0
// (control-plane) is never marked; callers should not invoke this for
// q == 0, but it is defensively a no-op there too.
func (cfg *ECNConfig) MaybeMark(rng *rngstream.RngStream, port, q int, usedEgressQShared float64) (mark bool, codepoint int) {
	if q == 0 {
		return false, 0
	}

	kmin := cfg.Kmin[port]
	kmax := cfg.Kmax[port]
	pmax := cfg.Pmax[port]

	if usedEgressQShared > kmax {
		return true, congestionExperienced
	}
	if usedEgressQShared > kmin && kmin != kmax {
		p := (usedEgressQShared - kmin) / (kmax - kmin) * pmax
		if rng.RandU01() < p {
			return true, congestionExperienced
		}
	}
	return false, 0
}
