package clahe

import (
	"errors"
	"math/rand"
	"testing"
)

// pushFrame streams a full frame of luma values and returns the output
// frame reassembled from per-push results plus the EndFrame tail.
func pushFrame(t *testing.T, p *Processor, pix []uint8) []uint8 {
	t.Helper()
	p.BeginFrame()
	out := make([]uint8, 0, len(pix))
	for _, v := range pix {
		if s, ok := p.Push(Sample{Y: v}); ok {
			out = append(out, s.Y)
		}
	}
	tail, err := p.EndFrame()
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range tail {
		out = append(out, s.Y)
	}
	if len(out) != len(pix) {
		t.Fatalf("frame emitted %d samples, want %d", len(out), len(pix))
	}
	return out
}

func randFrame(n int, seed int64) []uint8 {
	rng := rand.New(rand.NewSource(seed))
	pix := make([]uint8, n)
	for i := range pix {
		pix[i] = uint8(rng.Intn(256))
	}
	return pix
}

// TestProcessor_FirstFrameIdentity: both generations start with identity
// tables, so the first frame must pass through bit-exact while its
// statistics accumulate.
func TestProcessor_FirstFrameIdentity(t *testing.T) {
	p, err := NewProcessor(64, 64, Options{TileWidth: 32, TileHeight: 32})
	if err != nil {
		t.Fatal(err)
	}
	pix := randFrame(64*64, 7)
	out := pushFrame(t, p, pix)
	for i := range pix {
		if out[i] != pix[i] {
			t.Fatalf("pixel %d: first frame output %d, want identity %d", i, out[i], pix[i])
		}
	}
}

// TestProcessor_RepeatFrameIdempotence: feeding the same frame
// repeatedly, outputs from the second repetition onward must be
// bit-identical, because from then on the mapping tables derive from an
// identical previous frame.
func TestProcessor_RepeatFrameIdempotence(t *testing.T) {
	p, err := NewProcessor(128, 96, Options{TileWidth: 32, TileHeight: 32})
	if err != nil {
		t.Fatal(err)
	}
	pix := randFrame(128*96, 8)

	var frames [4][]uint8
	for i := range frames {
		frames[i] = pushFrame(t, p, pix)
	}
	for i := 2; i < len(frames); i++ {
		for j := range frames[i] {
			if frames[i][j] != frames[1][j] {
				t.Fatalf("frame %d pixel %d = %d, differs from frame 1's %d",
					i, j, frames[i][j], frames[1][j])
			}
		}
	}
}

// TestProcessor_FlatFrameDegenerate: a constant frame with clipping
// disabled produces single-bin histograms in every tile, and from the
// second frame on the degenerate mid-gray mapping.
func TestProcessor_FlatFrameDegenerate(t *testing.T) {
	p, err := NewProcessor(64, 64, Options{TileWidth: 32, TileHeight: 32, ClipFactor: -1})
	if err != nil {
		t.Fatal(err)
	}
	pix := make([]uint8, 64*64)
	for i := range pix {
		pix[i] = 77
	}
	pushFrame(t, p, pix)
	out := pushFrame(t, p, pix)
	for i, v := range out {
		if v != 128 {
			t.Fatalf("pixel %d = %d, want degenerate 128", i, v)
		}
	}
}

// TestProcessor_BypassAlignment: with enhancement disabled all three
// channels pass through unmodified and mutually aligned.
func TestProcessor_BypassAlignment(t *testing.T) {
	p, err := NewProcessor(32, 32, Options{TileWidth: 32, TileHeight: 32, DisableEnhancement: true})
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(9))
	in := make([]Sample, 32*32)
	for i := range in {
		in[i] = Sample{Y: uint8(rng.Intn(256)), Cb: uint8(rng.Intn(256)), Cr: uint8(rng.Intn(256))}
	}

	p.BeginFrame()
	var out []Sample
	for _, s := range in {
		if o, ok := p.Push(s); ok {
			out = append(out, o)
		}
	}
	tail, err := p.EndFrame()
	if err != nil {
		t.Fatal(err)
	}
	out = append(out, tail...)

	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d: %+v, want passthrough %+v", i, out[i], in[i])
		}
	}
}

// TestProcessor_FrameLengthErrors covers the stream sequencing
// violations the processor reports instead of guessing through.
func TestProcessor_FrameLengthErrors(t *testing.T) {
	p, err := NewProcessor(32, 32, Options{TileWidth: 32, TileHeight: 32})
	if err != nil {
		t.Fatal(err)
	}

	// Push without BeginFrame.
	if _, ok := p.Push(Sample{Y: 1}); ok {
		t.Error("Push outside a frame reported ok")
	}
	if _, err := p.EndFrame(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("EndFrame without BeginFrame: err = %v, want ErrNoFrame", err)
	}

	// Short frame.
	p.BeginFrame()
	p.Push(Sample{Y: 1})
	if _, err := p.EndFrame(); !errors.Is(err, ErrFrameLength) {
		t.Errorf("short frame: err = %v, want ErrFrameLength", err)
	}

	// Overlong frame.
	p.BeginFrame()
	for i := 0; i < 32*32+1; i++ {
		p.Push(Sample{Y: 1})
	}
	if _, err := p.EndFrame(); !errors.Is(err, ErrFrameLength) {
		t.Errorf("overlong frame: err = %v, want ErrFrameLength", err)
	}
}

// TestProcessor_BoundaryContinuity sets up two adjacent tiles with
// nearby mapping tables and walks a scan line across their shared edge:
// consecutive outputs may differ by at most one quantization step, so
// the seam is invisible.
func TestProcessor_BoundaryContinuity(t *testing.T) {
	p, err := NewProcessor(128, 64, Options{TileWidth: 64, TileHeight: 64})
	if err != nil {
		t.Fatal(err)
	}

	// Hand the read generation two constant tables 4 steps apart, the
	// worst case a 64-pixel tile span can still hide.
	gen := p.st.ReadGen()
	l0 := p.st.TileLUT(gen, 0)
	l1 := p.st.TileLUT(gen, 1)
	for i := range l0 {
		l0[i] = 100
		l1[i] = 104
	}

	prev := -1
	for x := 0; x < 128; x++ {
		tid, ox, oy := p.grid.Locate(x, 32)
		v := p.mapPixel(tid, ox, oy, 128)
		if prev >= 0 {
			if d := int(v) - prev; d < 0 || d > 1 {
				t.Fatalf("x=%d: output stepped %d -> %d across the blend", x, prev, v)
			}
		}
		prev = int(v)
	}

	// Tile centers must reproduce their own tables exactly.
	tid, ox, oy := p.grid.Locate(32, 32)
	if v := p.mapPixel(tid, ox, oy, 128); v != 100 {
		t.Errorf("left center = %d, want 100", v)
	}
	tid, ox, oy = p.grid.Locate(96, 32)
	if v := p.mapPixel(tid, ox, oy, 128); v != 104 {
		t.Errorf("right center = %d, want 104", v)
	}
}

// TestProcessor_InterpolationDisabled: every pixel of a tile uses that
// tile's table alone, so a tile with a distinct constant table shows a
// hard seam.
func TestProcessor_InterpolationDisabled(t *testing.T) {
	p, err := NewProcessor(128, 64, Options{
		TileWidth: 64, TileHeight: 64, DisableInterpolation: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	gen := p.st.ReadGen()
	l0 := p.st.TileLUT(gen, 0)
	l1 := p.st.TileLUT(gen, 1)
	for i := range l0 {
		l0[i] = 10
		l1[i] = 200
	}

	for _, tt := range []struct {
		x    int
		want uint8
	}{{0, 10}, {63, 10}, {64, 200}, {127, 200}} {
		tid, ox, oy := p.grid.Locate(tt.x, 10)
		if v := p.mapPixel(tid, ox, oy, 50); v != tt.want {
			t.Errorf("x=%d: got %d, want %d", tt.x, v, tt.want)
		}
	}
}
