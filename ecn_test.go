package cpemnet

import (
	"testing"

	"github.com/iti/rngstream"
)

func TestECNNeverMarksQueueZero(t *testing.T) {
	cfg := &ECNConfig{Kmin: [P]float64{0: 10}, Kmax: [P]float64{0: 100}, Pmax: [P]float64{0: 1.0}}
	rng := rngstream.New("ecn-test-q0")

	if mark, _ := cfg.MaybeMark(rng, 1, 0, 1_000_000); mark {
		t.Fatalf("queue 0 must never be ECN-marked")
	}
}

func TestECNAlwaysMarksAboveKmax(t *testing.T) {
	cfg := &ECNConfig{}
	cfg.Kmin[2] = 1000
	cfg.Kmax[2] = 2000
	cfg.Pmax[2] = 0.5
	rng := rngstream.New("ecn-test-above-kmax")

	mark, code := cfg.MaybeMark(rng, 2, 1, 2001)
	if !mark {
		t.Fatalf("expected certain marking above kmax")
	}
	if code != congestionExperienced {
		t.Errorf("codepoint = %#x, want %#x", code, congestionExperienced)
	}
}

func TestECNNeverMarksBelowKmin(t *testing.T) {
	cfg := &ECNConfig{}
	cfg.Kmin[2] = 1000
	cfg.Kmax[2] = 2000
	cfg.Pmax[2] = 1.0
	rng := rngstream.New("ecn-test-below-kmin")

	if mark, _ := cfg.MaybeMark(rng, 2, 1, 999); mark {
		t.Fatalf("must not mark below kmin")
	}
}
