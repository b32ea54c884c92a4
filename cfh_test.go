package cpemnet

import (
	"bytes"
	"testing"
)

func TestCreditFeedbackHeaderSerializeS5(t *testing.T) {
	h := CreditFeedbackHeader{
		QueueLen:    0x01020304,
		Gradient:    -1,
		CreditValue: 500,
		PortIndex:   7,
	}

	got := h.Serialize()
	want := []byte{0x01, 0x02, 0x03, 0x04, 0xFF, 0xFF, 0x01, 0xF4, 0x07}

	if !bytes.Equal(got, want) {
		t.Fatalf("Serialize() = % X, want % X", got, want)
	}
}

func TestCreditFeedbackHeaderRoundTrip(t *testing.T) {
	h := CreditFeedbackHeader{
		QueueLen:    123456,
		Gradient:    -2000,
		CreditValue: 999,
		PortIndex:   42,
	}

	back, err := DeserializeCFH(h.Serialize())
	if err != nil {
		t.Fatalf("DeserializeCFH: %v", err)
	}
	if back != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", back, h)
	}
}

func TestDeserializeCFHWrongLength(t *testing.T) {
	_, err := DeserializeCFH([]byte{1, 2, 3})
	if err == nil {
		t.Fatalf("expected error on short buffer")
	}
}

func TestBuildFeedbackPacket(t *testing.T) {
	h := CreditFeedbackHeader{QueueLen: 10, CreditValue: 5}
	pkt := BuildFeedbackPacket(h, 3)

	if pkt.L3Protocol != L3ProtoCPEM {
		t.Errorf("L3Protocol = %#x, want %#x", pkt.L3Protocol, L3ProtoCPEM)
	}
	if pkt.TTL != 1 {
		t.Errorf("TTL = %d, want 1", pkt.TTL)
	}
	if !pkt.Broadcast {
		t.Errorf("Broadcast = false, want true")
	}
	if pkt.FlowIdTag != 3 {
		t.Errorf("FlowIdTag = %d, want 3", pkt.FlowIdTag)
	}
	if pkt.Header != h {
		t.Errorf("Header = %+v, want %+v", pkt.Header, h)
	}
}
