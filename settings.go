package cpemnet

// settings.go holds the process-wide, read-only tunables for the switch
// data-plane core (MMU/PFC/CPEM) and the id<->address mapping used by
// the forwarding path and CPEM packet I/O. The source this module is
// based on kept these as global mutable variables; here they are
// collected into an immutable record built once at switch construction,
// per the DESIGN NOTES in spec.md.

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// MTU is the buffer accounting unit used throughout the MMU and CPEM
// threshold arithmetic.
const MTU = 1048

// P is the number of port index slots per switch; index 0 is unused by
// convention (spec.md §3).
const P = 128

// Q is the number of priority-group queues per port.
const Q = 8

// L3 protocol registry used by the forwarding path (spec.md §6).
const (
	L3ProtoTCP  = 0x06
	L3ProtoUDP  = 0x11
	L3ProtoCPEM = 0xFB
	L3ProtoACK  = 0xFC
	L3ProtoNACK = 0xFD
	L3ProtoQCN  = 0xFE
	L3ProtoPFC  = 0xFF
)

// Load-balancer mode selectors (spec.md §4.4).
const (
	LBModeECMP  = 0
	LBModeDrill = 2
	LBModeConga = 3
	LBModeFlow  = 6
	LBModeConWeave = 9
)

// ConWeaveCtrlDummyIndev is the reserved in-device id used by ConWeave to
// inject control packets that must bypass ingress accounting on dequeue.
const ConWeaveCtrlDummyIndev = 88888888

// CPEMParams is the immutable, process-wide configuration record for the
// Credit-based PFC Enhancement Module and its supporting PFC/MMU
// thresholds. It is read-only after construction: every field here was a
// global mutable variable in the system this module reimplements.
type CPEMParams struct {
	// CpemEnabled is the master switch for the whole module.
	CpemEnabled bool `json:"cpemenabled" yaml:"cpemenabled"`

	// FeedbackIntervalNs is the CPEM feedback tick period, in nanoseconds.
	FeedbackIntervalNs float64 `json:"feedbackintervalns" yaml:"feedbackintervalns"`

	// CreditDecayAlpha is the EWMA factor applied to feedback_credit.
	CreditDecayAlpha float64 `json:"creditdecayalpha" yaml:"creditdecayalpha"`

	// InflightDiscount weights inflight_credit in the effective-credit blend.
	InflightDiscount float64 `json:"inflightdiscount" yaml:"inflightdiscount"`

	// CreditToRateGain is the slope applied to effective credit when
	// attenuating the send rate.
	CreditToRateGain float64 `json:"credittorategain" yaml:"credittorategain"`

	// MinRateRatio is the floor below which rate_ratio never falls.
	MinRateRatio float64 `json:"minrateratio" yaml:"minrateratio"`

	// MaxCredit normalizes all credit quantities to [0, MaxCredit].
	MaxCredit float64 `json:"maxcredit" yaml:"maxcredit"`

	// QueueThresholdLow/High are the fixed-mode CPEM thresholds, in bytes.
	QueueThresholdLow  float64 `json:"queuethresholdlow" yaml:"queuethresholdlow"`
	QueueThresholdHigh float64 `json:"queuethresholdhigh" yaml:"queuethresholdhigh"`

	// UseDynamicThreshold ties CPEM's low/high thresholds to the PFC
	// dynamic-threshold computation instead of the fixed constants above.
	UseDynamicThreshold bool `json:"usedynamicthreshold" yaml:"usedynamicthreshold"`

	// ThresholdLowRatio/HighRatio are fractions of the PFC threshold used
	// in dynamic mode.
	ThresholdLowRatio  float64 `json:"thresholdlowratio" yaml:"thresholdlowratio"`
	ThresholdHighRatio float64 `json:"thresholdhighratio" yaml:"thresholdhighratio"`

	// LBMode selects the load-balancer dispatch algorithm (spec.md §4.4).
	LBMode int `json:"lbmode" yaml:"lbmode"`

	// AckHighPrio routes ACK/NACK traffic to queue 0 when true.
	AckHighPrio bool `json:"ackhighprio" yaml:"ackhighprio"`

	// EcmpSeed seeds the Murmur3-32 ECMP hash.
	EcmpSeed uint32 `json:"ecmpseed" yaml:"ecmpseed"`

	// DrillCandidates is the random sample size DRILL draws from the
	// candidate next-hop set (spec.md §4.4 names 2 as the default).
	DrillCandidates int `json:"drillcandidates" yaml:"drillcandidates"`
}

// DefaultCPEMParams returns the tunables table of spec.md §6, verbatim.
func DefaultCPEMParams() *CPEMParams {
	return &CPEMParams{
		CpemEnabled:         false,
		FeedbackIntervalNs:  10000,
		CreditDecayAlpha:    0.8,
		InflightDiscount:    0.4,
		CreditToRateGain:    0.8,
		MinRateRatio:        0.1,
		MaxCredit:           1000,
		QueueThresholdLow:   50000,
		QueueThresholdHigh:  200000,
		UseDynamicThreshold: true,
		ThresholdLowRatio:   0.5,
		ThresholdHighRatio:  0.8,
		LBMode:              LBModeECMP,
		AckHighPrio:         true,
		EcmpSeed:            0,
		DrillCandidates:     2,
	}
}

// ReadCPEMParams deserializes a byte slice holding a representation of a
// CPEMParams record. If dict is empty the named file is read to acquire
// it. Format (yaml or json) is chosen by useYAML, mirroring
// desc-topo.go's ReadDevExecList.
func ReadCPEMParams(filename string, useYAML bool, dict []byte) (*CPEMParams, error) {
	cp := DefaultCPEMParams()

	var err error
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	if useYAML {
		err = yaml.Unmarshal(dict, cp)
	} else {
		err = json.Unmarshal(dict, cp)
	}
	if err != nil {
		return nil, err
	}
	return cp, nil
}

// WriteToFile stores the CPEMParams record to the file whose name is
// given, choosing yaml or json serialization from the file extension.
func (cp *CPEMParams) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var err error

	switch pathExt {
	case ".yaml", ".YAML", ".yml":
		bytes, err = yaml.Marshal(*cp)
	case ".json", ".JSON":
		bytes, err = json.MarshalIndent(*cp, "", "\t")
	default:
		return fmt.Errorf("unrecognized extension %q for CPEMParams file", pathExt)
	}
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(bytes)
	return err
}

// NodeIDToIP maps a simulator node id to its IPv4 address, per spec.md §6.
func NodeIDToIP(id int) uint32 {
	return 0x0B000001 + uint32(id/256)*0x00010000 + uint32(id%256)*0x00000100
}

// IPToNodeID maps an IPv4 address back to a simulator node id, per
// spec.md §6.
func IPToNodeID(ip uint32) int {
	return int((ip >> 8) & 0xFFFF)
}
