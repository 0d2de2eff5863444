package mathx

import "testing"

func TestFloorDivNegatives(t *testing.T) {
	cases := []struct{ a, b, want int }{
		{0, 16, 0},
		{15, 16, 0},
		{16, 16, 1},
		{-1, 16, -1},
		{-16, 16, -1},
		{-17, 16, -2},
		{32, 16, 2},
	}
	for _, c := range cases {
		if got := FloorDiv(c.a, c.b); got != c.want {
			t.Fatalf("FloorDiv(%d,%d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestModAlwaysNonNegative(t *testing.T) {
	for a := -64; a < 64; a++ {
		m := Mod(a, 16)
		if m < 0 || m >= 16 {
			t.Fatalf("Mod(%d,16) = %d out of range", a, m)
		}
		if FloorDiv(a, 16)*16+m != a {
			t.Fatalf("FloorDiv/Mod do not recompose %d", a)
		}
	}
}

func TestHash2Deterministic(t *testing.T) {
	if Hash2(1337, 5, -3) != Hash2(1337, 5, -3) {
		t.Fatalf("Hash2 not deterministic")
	}
	if Hash2(1337, 5, -3) == Hash2(1338, 5, -3) {
		t.Fatalf("Hash2 ignores seed")
	}
}
