package clahe

import (
	"errors"
	"fmt"

	"github.com/deepteams/clahe/internal/dsp"
	"github.com/deepteams/clahe/internal/eq"
	"github.com/deepteams/clahe/internal/store"
	"github.com/deepteams/clahe/internal/tile"
)

// Latency is the fixed pipeline depth of the streaming mapper, in
// samples: output sample i becomes available on the push of sample
// i+Latency, and EndFrame flushes the final Latency samples of a frame.
const Latency = 4

// Streaming sequencing errors.
var (
	ErrFrameLength = errors.New("clahe: frame received wrong number of samples")
	ErrNoFrame     = errors.New("clahe: push outside BeginFrame/EndFrame")
)

// Sample is one pixel time step: the luma intensity that is equalized
// plus two side-channel bytes (typically chrominance) that pass through
// untouched but delay-aligned with the enhanced output.
type Sample struct {
	Y, Cb, Cr uint8
}

// Processor is the streaming equalizer core. It accepts exactly
// width*height samples per frame, one per Push, and emits enhanced
// samples one-for-one at a fixed latency.
//
// Internally it owns the two table generations: the accumulator counts
// the current frame into the write generation while the mapper reads the
// generation whose tables the engine finished last. EndFrame drains the
// accumulator, runs the clip/redistribute/CDF engine over the frozen
// histograms, and flips the generation roles, so the tables derived from
// frame N map frame N+1.
type Processor struct {
	opt  Options
	grid *tile.Grid
	st   *store.Store
	acc  *eq.Accumulator
	eng  *eq.Engine

	// Raw position counters; together with the grid they stand in for
	// the external line/frame timing and tile-locator signals.
	x, y int

	inFrame bool
	pushed  int
	overrun bool

	dy, dcb, dcr *dsp.Delay
}

// NewProcessor creates a streaming equalizer for width x height frames.
// Both generations start with identity mapping tables, so the first
// frame passes through with neutral contrast while its statistics
// accumulate.
func NewProcessor(width, height int, opt Options) (*Processor, error) {
	opt = opt.withDefaults()
	if err := opt.Validate(width, height); err != nil {
		return nil, err
	}
	g, err := tile.New(width, height, opt.TileWidth, opt.TileHeight)
	if err != nil {
		return nil, err
	}
	st := store.New(g)
	return &Processor{
		opt:  opt,
		grid: g,
		st:   st,
		acc:  eq.NewAccumulator(st),
		eng:  eq.NewEngine(st, opt.clip(g.TilePixels())),
		dy:   dsp.NewDelay(Latency),
		dcb:  dsp.NewDelay(Latency),
		dcr:  dsp.NewDelay(Latency),
	}, nil
}

// Grid returns the tile grid geometry (rows, cols).
func (p *Processor) Grid() (rows, cols int) { return p.grid.Rows, p.grid.Cols }

// BeginFrame starts a new frame: the write generation's histograms are
// bulk-zeroed (in parallel across banks) and accumulation is enabled.
// No sample is accepted until zeroing returns, so no count can land in
// a half-cleared histogram.
func (p *Processor) BeginFrame() {
	p.st.Zero(p.st.WriteGen())
	p.acc.Bind()
	p.x, p.y = 0, 0
	p.pushed = 0
	p.overrun = false
	p.inFrame = true
	p.dy.Reset()
	p.dcb.Reset()
	p.dcr.Reset()
}

// Push feeds one sample. The returned sample is the enhanced output from
// Latency steps earlier; ok is false while the pipeline is still filling
// at the start of a frame. Samples pushed outside an active frame, or
// beyond the frame's pixel count, are dropped and reported by EndFrame.
func (p *Processor) Push(s Sample) (out Sample, ok bool) {
	if !p.inFrame || p.pushed >= p.grid.Width*p.grid.Height {
		p.overrun = true
		return Sample{}, false
	}

	t, ox, oy := p.grid.Locate(p.x, p.y)

	var enhanced uint8
	if p.opt.DisableEnhancement {
		enhanced = s.Y
	} else {
		p.acc.Push(t, s.Y)
		enhanced = p.mapPixel(t, ox, oy, s.Y)
	}

	// Advance the raw position counters.
	p.x++
	if p.x == p.grid.Width {
		p.x = 0
		p.y++
	}
	p.pushed++

	out = Sample{
		Y:  p.dy.Push(enhanced),
		Cb: p.dcb.Push(s.Cb),
		Cr: p.dcr.Push(s.Cr),
	}
	return out, p.pushed > Latency
}

// mapPixel produces the enhanced intensity for one pixel from the
// read-source generation: select the four bracketing tiles, fetch their
// mapping results for this intensity in one gathered access, and blend.
func (p *Processor) mapPixel(t, ox, oy int, v uint8) uint8 {
	gen := p.st.ReadGen()
	if p.opt.DisableInterpolation {
		a, _, _, _ := p.st.Gather(gen, t, t, t, t, v)
		return a
	}
	tl, tr, bl, br, wx, wy := p.grid.Neighbors(t, ox, oy)
	a, b, c, d := p.st.Gather(gen, tl, tr, bl, br, v)
	return dsp.Bilinear(a, b, c, d, wx, wy)
}

// EndFrame closes the frame: it flushes the last Latency output samples,
// drains the accumulator pipeline so the frame's histograms are frozen,
// runs the engine over them, and flips the generation roles. The next
// frame is therefore mapped by tables derived from this one.
//
// The returned error reports sequencing violations (frame shorter or
// longer than width*height samples); the flushed tail is valid either
// way.
func (p *Processor) EndFrame() ([]Sample, error) {
	if !p.inFrame {
		return nil, ErrNoFrame
	}
	p.inFrame = false

	tail := make([]Sample, Latency)
	for i := range tail {
		tail[i] = Sample{
			Y:  p.dy.Push(0),
			Cb: p.dcb.Push(0),
			Cr: p.dcr.Push(0),
		}
	}

	p.acc.Drain()
	p.eng.Run(p.st.WriteGen(), p.grid.NumTiles())
	p.st.Flip()

	want := p.grid.Width * p.grid.Height
	if p.pushed != want || p.overrun {
		return tail, fmt.Errorf("%w: got %d, want %d", ErrFrameLength, p.pushed, want)
	}
	return tail, nil
}
