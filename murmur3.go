package cpemnet

// murmur3.go implements the exact Murmur3-32 variant spec.md §6 pins
// down for ECMP next-hop selection. The constants and rotation amounts
// are specified bit-exactly there, so this is written directly against
// the spec rather than pulled from a general-purpose hashing package —
// see DESIGN.md for why no ecosystem murmur3 module is substituted.

import "encoding/binary"

const (
	murmur3C1 uint32 = 0xcc9e2d51
	murmur3C2 uint32 = 0x1b873593
)

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}

// EcmpHashKey packs the 5-tuple fields spec.md §6 names into the
// 12-byte input to the ECMP hash: {sip(4), dip(4), sport(2), dport(2)}.
func EcmpHashKey(sip, dip uint32, sport, dport uint16) [12]byte {
	var key [12]byte
	binary.BigEndian.PutUint32(key[0:4], sip)
	binary.BigEndian.PutUint32(key[4:8], dip)
	binary.BigEndian.PutUint16(key[8:10], sport)
	binary.BigEndian.PutUint16(key[10:12], dport)
	return key
}

// Murmur3_32 computes the seeded Murmur3-32 hash of data, using exactly
// the constants and mixing steps named in spec.md §6.
func Murmur3_32(data []byte, seed uint32) uint32 {
	h := seed
	length := len(data)
	nblocks := length / 4

	for i := 0; i < nblocks; i++ {
		k := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		k *= murmur3C1
		k = rotl32(k, 15)
		k *= murmur3C2

		h ^= k
		h = rotl32(h, 13)
		h = 5*h + 0xe6546b64
	}

	// tail
	tail := data[nblocks*4:]
	var k1 uint32
	switch len(tail) {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= murmur3C1
		k1 = rotl32(k1, 15)
		k1 *= murmur3C2
		h ^= k1
	}

	// finalization
	h ^= uint32(length)
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h
}

// EcmpHash hashes the 5-tuple and reduces it modulo nexthops, returning
// the index of the chosen next hop. It panics if nexthops is zero,
// mirroring spec.md §7's treatment of a routing miss as a fatal
// assertion (there is no next hop to select among).
func EcmpHash(seed uint32, sip, dip uint32, sport, dport uint16, nexthops int) int {
	if nexthops <= 0 {
		panic("cpemnet: EcmpHash called with zero candidate next hops")
	}
	key := EcmpHashKey(sip, dip, sport, dport)
	h := Murmur3_32(key[:], seed)
	return int(h % uint32(nexthops))
}
