package infinity

import "math/bits"

// scrambleMask selects which of the 64 output bits carry the value (set
// bits, read LSB first) and which carry garbage. It has exactly 32 bits set.
const scrambleMask uint64 = 0x8E55AA1B3999E8AA

// seedConstant initializes the first state word.
const seedConstant = 0xF1EA5EED

// warmup is the number of outputs discarded after seeding.
const warmup = 23

// Generator is the base's pseudo-random number generator. The host seeds it
// during the handshake and checks each value it returns, so the sequence
// must be reproduced exactly.
type Generator struct {
	a, b, c, d uint32
}

// Seed resets the generator state from seed.
func (g *Generator) Seed(seed uint32) {
	g.a = seedConstant
	g.b = seed
	g.c = seed
	g.d = seed
	for i := 0; i < warmup; i++ {
		g.Next()
	}
}

// Next advances the generator and returns the next value.
func (g *Generator) Next() uint32 {
	a, b, c := g.a, g.b, g.c
	ret := bits.RotateLeft32(g.b, 27)

	temp := a - ret
	b ^= bits.RotateLeft32(c, 17)
	a = g.d
	c += a
	ret = b + temp
	a += temp

	g.c = a
	g.a = b
	g.b = c
	g.d = ret
	return ret
}

// Scramble interleaves the 32 bits of value with bits of garbage according
// to scrambleMask. The first bit consumed lands in the most significant
// position of the result.
func Scramble(value, garbage uint32) uint64 {
	mask := scrambleMask
	var ret uint64
	for i := 0; i < 64; i++ {
		ret <<= 1
		if mask&1 != 0 {
			ret |= uint64(value & 1)
			value >>= 1
		} else {
			ret |= uint64(garbage & 1)
			garbage >>= 1
		}
		mask >>= 1
	}
	return ret
}

// Descramble recovers the value interleaved by [Scramble], ignoring the
// garbage bits.
func Descramble(value uint64) uint32 {
	mask := scrambleMask
	var ret uint32
	for i := 0; i < 64; i++ {
		if mask&(1<<63) != 0 {
			ret = ret<<1 | uint32(value&1)
		}
		value >>= 1
		mask <<= 1
	}
	return ret
}
