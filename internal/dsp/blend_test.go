package dsp

import "testing"

func TestBilinear_Corners(t *testing.T) {
	tests := []struct {
		name           string
		tl, tr, bl, br uint8
		wx, wy         uint32
		want           uint8
	}{
		{"pure_tl", 10, 20, 30, 40, 0, 0, 10},
		{"pure_tr", 10, 20, 30, 40, 255, 0, 20},
		{"pure_bl", 10, 20, 30, 40, 0, 255, 30},
		{"pure_br", 10, 20, 30, 40, 255, 255, 40},
		{"midpoint", 0, 0, 255, 255, 0, 128, 128},
		{"flat", 200, 200, 200, 200, 77, 191, 200},
		{"extremes", 0, 255, 0, 255, 128, 128, 128},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bilinear(tt.tl, tt.tr, tt.bl, tt.br, tt.wx, tt.wy)
			if d := int(got) - int(tt.want); d < -1 || d > 1 {
				t.Errorf("Bilinear(%d,%d,%d,%d, wx=%d, wy=%d) = %d, want %d±1",
					tt.tl, tt.tr, tt.bl, tt.br, tt.wx, tt.wy, got, tt.want)
			}
		})
	}
}

// TestBilinear_Monotone: increasing a weight toward the larger sample
// never decreases the output.
func TestBilinear_Monotone(t *testing.T) {
	prev := uint8(0)
	for wx := uint32(0); wx <= 255; wx++ {
		v := Bilinear(10, 240, 10, 240, wx, 0)
		if v < prev {
			t.Fatalf("wx=%d: output %d < previous %d", wx, v, prev)
		}
		prev = v
	}
}

// TestBilinear_Flat: equal corner inputs must reproduce the input
// exactly for every weight pair, otherwise flat regions would shimmer.
func TestBilinear_Flat(t *testing.T) {
	for _, v := range []uint8{0, 1, 127, 128, 254, 255} {
		for _, w := range []uint32{0, 1, 64, 128, 200, 255} {
			if got := Bilinear(v, v, v, v, w, w); got != v {
				t.Fatalf("Bilinear(flat %d, w=%d) = %d", v, w, got)
			}
		}
	}
}

func TestClip8(t *testing.T) {
	tests := []struct {
		in   int
		want uint8
	}{
		{-1000, 0}, {-1, 0}, {0, 0}, {1, 1}, {128, 128}, {255, 255}, {256, 255}, {9999, 255},
	}
	for _, tt := range tests {
		if got := Clip8(tt.in); got != tt.want {
			t.Errorf("Clip8(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDelay_Alignment(t *testing.T) {
	d := NewDelay(4)
	var got []uint8
	for i := 1; i <= 10; i++ {
		got = append(got, d.Push(uint8(i)))
	}
	want := []uint8{0, 0, 0, 0, 1, 2, 3, 4, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("step %d: got %d, want %d", i, got[i], want[i])
		}
	}

	d.Reset()
	if v := d.Push(9); v != 0 {
		t.Errorf("after Reset, first pop = %d, want 0", v)
	}
}
