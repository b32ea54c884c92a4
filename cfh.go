package cpemnet

// cfh.go implements the Credit-Feedback Header (CFH): the one wire
// format spec.md pins down bit-exactly (spec.md §6). It also holds the
// small amount of "packet I/O" logic needed to wrap a CFH in the opaque
// packet representation the rest of this module treats headers as
// (tagged data, not parsed C structs — see net.go's networkMsg for the
// same treatment of other headers).

import (
	"encoding/binary"
	"fmt"
)

// CFHLen is the wire length of a Credit-Feedback Header, in bytes.
const CFHLen = 9

// CreditFeedbackHeader is the 9-byte, big-endian feedback message
// carried inside an IPv4 datagram with protocol number L3ProtoCPEM.
type CreditFeedbackHeader struct {
	QueueLen     uint32 // bytes, unsigned
	Gradient     int16  // bytes per interval, signed
	CreditValue  uint16 // [0, max_credit]
	PortIndex    uint8  // downstream port that produced this feedback
}

// Serialize writes the header to its 9-byte big-endian wire form.
func (h CreditFeedbackHeader) Serialize() []byte {
	buf := make([]byte, CFHLen)
	binary.BigEndian.PutUint32(buf[0:4], h.QueueLen)
	binary.BigEndian.PutUint16(buf[4:6], uint16(h.Gradient))
	binary.BigEndian.PutUint16(buf[6:8], h.CreditValue)
	buf[8] = h.PortIndex
	return buf
}

// DeserializeCFH parses a 9-byte wire form back into a
// CreditFeedbackHeader. It returns an error if buf is not exactly
// CFHLen bytes.
func DeserializeCFH(buf []byte) (CreditFeedbackHeader, error) {
	var h CreditFeedbackHeader
	if len(buf) != CFHLen {
		return h, fmt.Errorf("cfh: expected %d bytes, got %d", CFHLen, len(buf))
	}
	h.QueueLen = binary.BigEndian.Uint32(buf[0:4])
	h.Gradient = int16(binary.BigEndian.Uint16(buf[4:6]))
	h.CreditValue = binary.BigEndian.Uint16(buf[6:8])
	h.PortIndex = buf[8]
	return h, nil
}

// FeedbackPacket is the opaque-payload packet wrapper the forwarding
// path recognizes by L3 protocol number and routes straight to the
// feedback handler (spec.md §4.4 step 2), bypassing the load balancer.
// Its FlowIdTag records the emitting switch's port, the one whose queue
// the feedback describes. The receiving switch does not read it: it
// attributes the feedback to the local port the packet arrived on
// (SwitchPacket.InPort).
type FeedbackPacket struct {
	L3Protocol int
	TTL        int
	Broadcast  bool
	Header     CreditFeedbackHeader
	FlowIdTag  int // port on the emitting switch whose queue produced this feedback
}

// BuildFeedbackPacket constructs the single-hop, broadcast, TTL=1
// feedback packet described in spec.md §6, addressed to be consumed by
// whatever sits at the far end of the link the packet is sent out on
// (spec.md §9's first open question: no routing-table lookup, always
// link-local).
func BuildFeedbackPacket(h CreditFeedbackHeader, originPort int) *FeedbackPacket {
	return &FeedbackPacket{
		L3Protocol: L3ProtoCPEM,
		TTL:        1,
		Broadcast:  true,
		Header:     h,
		FlowIdTag:  originPort,
	}
}
