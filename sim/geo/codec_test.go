package geo

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(Bounds{XMax: 3000, YMax: 3000})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func TestNewCodec_RejectsBadBounds(t *testing.T) {
	tests := []struct {
		name   string
		bounds Bounds
	}{
		{"zero", Bounds{}},
		{"negative x", Bounds{XMax: -1, YMax: 10}},
		{"nan y", Bounds{XMax: 10, YMax: math.NaN()}},
		{"inf x", Bounds{XMax: math.Inf(1), YMax: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCodec(tt.bounds); !errors.Is(err, ErrBadBounds) {
				t.Errorf("NewCodec(%v) error = %v, want ErrBadBounds", tt.bounds, err)
			}
		})
	}
}

func TestEncode_Corners(t *testing.T) {
	c := testCodec(t)
	tests := []struct {
		p    Point
		want Key
	}{
		{Point{0, 0}, 0},
		{Point{3000, 0}, 0xaaaaaaaaaaaaaaaa},
		{Point{0, 3000}, 0x5555555555555555},
		{Point{3000, 3000}, 0xffffffffffffffff},
	}
	for _, tt := range tests {
		got, err := c.Encode(tt.p)
		if err != nil {
			t.Fatalf("Encode(%v): %v", tt.p, err)
		}
		if got != tt.want {
			t.Errorf("Encode(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestEncode_OutOfBoundsIsRejected(t *testing.T) {
	c := testCodec(t)
	for _, p := range []Point{{-0.001, 5}, {5, 3000.001}, {math.NaN(), 1}, {1, math.Inf(1)}} {
		if _, err := c.Encode(p); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Encode(%v) error = %v, want ErrOutOfBounds", p, err)
		}
	}
}

func TestEncodeDecode_RoundTripWithinPrecision(t *testing.T) {
	c := testCodec(t)
	prec := c.Precision()
	if prec.X > 1e-5*3000 || prec.Y > 1e-5*3000 {
		t.Fatalf("precision %v coarser than 1e-5 of the range", prec)
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5000; i++ {
		p := Point{X: rng.Float64() * 3000, Y: rng.Float64() * 3000}
		k, err := c.Encode(p)
		if err != nil {
			t.Fatal(err)
		}
		got := c.Decode(k)
		if math.Abs(got.X-p.X) > prec.X || math.Abs(got.Y-p.Y) > prec.Y {
			t.Fatalf("Decode(Encode(%v)) = %v, off by more than %v", p, got, prec)
		}
	}
	// edges decode inside the bounds
	k, _ := c.Encode(Point{3000, 3000})
	if got := c.Decode(k); got.X != 3000 || got.Y != 3000 {
		t.Errorf("Decode(max key) = %v, want (3000, 3000)", got)
	}
}

func TestEncode_NearbyPointsShareLongPrefix(t *testing.T) {
	// GIVEN points a few micrometers apart away from quadrant seams
	c := testCodec(t)
	rng := rand.New(rand.NewSource(10))
	shared := 0
	for i := 0; i < 200; i++ {
		p := Point{X: rng.Float64() * 3000, Y: rng.Float64() * 3000}
		q := Point{X: p.X + rng.Float64()*1e-5, Y: p.Y + rng.Float64()*1e-5}
		if !c.bounds.Contains(q) {
			continue
		}
		k1, _ := c.Encode(p)
		k2, _ := c.Encode(q)
		diff := uint64(k1 ^ k2)
		if diff < 1<<48 {
			shared++
		}
	}
	// THEN most pairs agree on the top 16 bits (curve discontinuities are rare, not absent)
	if shared < 190 {
		t.Errorf("only %d/200 nearby pairs shared a 16-bit prefix", shared)
	}
}

func TestSpreadCompact_Inverse(t *testing.T) {
	for _, v := range []uint32{0, 1, 2, 0xdeadbeef, 0x80000000, 0xffffffff} {
		if got := compact(spread(v)); got != v {
			t.Errorf("compact(spread(%#x)) = %#x", v, got)
		}
		qx, qy := deinterleave(interleave(v, ^v))
		if qx != v || qy != ^v {
			t.Errorf("deinterleave(interleave(%#x, %#x)) = %#x, %#x", v, ^v, qx, qy)
		}
	}
}

func TestCodec_ElongatedWorldSharesScale(t *testing.T) {
	c, err := NewCodec(Bounds{XMax: 1, YMax: 1e6})
	if err != nil {
		t.Fatal(err)
	}
	prec := c.Precision()
	if prec.X != prec.Y {
		t.Fatalf("precision %v differs per axis", prec)
	}
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		p := Point{X: rng.Float64(), Y: rng.Float64() * 1e6}
		k, err := c.Encode(p)
		if err != nil {
			t.Fatal(err)
		}
		if got := c.Decode(k); math.Abs(got.X-p.X) > prec.X || math.Abs(got.Y-p.Y) > prec.Y {
			t.Fatalf("Decode(Encode(%v)) = %v, off by more than %v", p, got, prec)
		}
	}
}
