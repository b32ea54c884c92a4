package cpemnet

import "testing"

func TestEcmpHashKeyDistinctForDifferentPorts(t *testing.T) {
	k1 := EcmpHashKey(0x0B000101, 0x0B000201, 1000, 2000)
	k2 := EcmpHashKey(0x0B000101, 0x0B000201, 1001, 2000)

	if k1 == k2 {
		t.Fatalf("expected distinct keys for sport=1000 vs sport=1001, got identical %v", k1)
	}
}

func TestEcmpHashStableAndDeterministic(t *testing.T) {
	idx1 := EcmpHash(0, 0x0B000101, 0x0B000201, 1000, 2000, 4)
	idx2 := EcmpHash(0, 0x0B000101, 0x0B000201, 1000, 2000, 4)

	if idx1 != idx2 {
		t.Fatalf("EcmpHash not deterministic: %d vs %d", idx1, idx2)
	}
	if idx1 < 0 || idx1 >= 4 {
		t.Fatalf("EcmpHash index %d out of range [0,4)", idx1)
	}
}

func TestEcmpHashDifferentKeyLikelyDifferentIndexOrHash(t *testing.T) {
	k1 := EcmpHashKey(0x0B000101, 0x0B000201, 1000, 2000)
	k2 := EcmpHashKey(0x0B000101, 0x0B000201, 1001, 2000)
	h1 := Murmur3_32(k1[:], 0)
	h2 := Murmur3_32(k2[:], 0)

	if h1 == h2 {
		t.Fatalf("expected different Murmur3_32 output for different sport, both were %#x", h1)
	}
}

func TestEcmpHashPanicsOnNoNextHops(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when nexthops == 0")
		}
	}()
	EcmpHash(0, 1, 2, 3, 4, 0)
}
