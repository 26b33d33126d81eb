package infinity

import (
	"math/bits"
	"testing"
)

func TestGenerator(t *testing.T) {
	tests := []struct {
		seed uint32
		want []uint32
	}{
		{0x00000000, []uint32{0x0902BA19, 0x20F1A244, 0x832BC5D2, 0x0BFDB9A1}},
		{0x12345678, []uint32{0x31E53A77, 0x7C50CDFB, 0x1849D870, 0x8ACF3D19}},
		{0xDEADBEEF, []uint32{0x7ABD07E5, 0x19CBDD75, 0x4B2DC247, 0x64721EEF}},
	}

	for _, tt := range tests {
		var g Generator
		g.Seed(tt.seed)
		for i, want := range tt.want {
			if got := g.Next(); got != want {
				t.Errorf("seed %#08x: Next() #%d = %#08x, want %#08x", tt.seed, i, got, want)
			}
		}
	}
}

func TestGenerator_Reseed(t *testing.T) {
	var g Generator
	g.Seed(0xDEADBEEF)
	first := g.Next()
	g.Next()
	g.Seed(0xDEADBEEF)
	if got := g.Next(); got != first {
		t.Errorf("Next() after reseed = %#08x, want %#08x", got, first)
	}
}

func TestScramble(t *testing.T) {
	tests := []struct {
		value, garbage uint32
		want           uint64
	}{
		{0x12345678, 0, 0x0116188810502040},
		{0xFFFFFFFF, 0, 0x5517999CD855AA71},
		{0x12345678, 0xFFFFFFFF, 0xABFE7EEB37FA75CE},
		{0x00000001, 0, 0x4000000000000000},
	}

	for _, tt := range tests {
		if got := Scramble(tt.value, tt.garbage); got != tt.want {
			t.Errorf("Scramble(%#08x, %#08x) = %#016x, want %#016x", tt.value, tt.garbage, got, tt.want)
		}
	}
}

func TestScrambleMask(t *testing.T) {
	if n := bits.OnesCount64(scrambleMask); n != 32 {
		t.Errorf("scrambleMask has %d bits set, want 32", n)
	}
}

func TestDescramble_Inverse(t *testing.T) {
	values := []uint32{0, 1, 0x80000000, 0x12345678, 0xDEADBEEF, 0xFFFFFFFF, 0x0F0F0F0F}
	garbage := []uint32{0, 1, 0xFFFFFFFF, 0xA5A5A5A5, 0x13579BDF}

	for _, v := range values {
		for _, g := range garbage {
			if got := Descramble(Scramble(v, g)); got != v {
				t.Errorf("Descramble(Scramble(%#08x, %#08x)) = %#08x", v, g, got)
			}
		}
	}

	var gen Generator
	gen.Seed(0x2468ACE0)
	for i := 0; i < 1000; i++ {
		v, g := gen.Next(), gen.Next()
		if got := Descramble(Scramble(v, g)); got != v {
			t.Fatalf("Descramble(Scramble(%#08x, %#08x)) = %#08x", v, g, got)
		}
	}
}
