package eq

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/deepteams/clahe/internal/store"
)

// flatValue is emitted for every LUT entry of a tile containing a single
// intensity, where the normalization denominator would be zero.
const flatValue = 128

// Engine sequences over every tile of a frozen generation, turning its
// raw histogram into a normalized mapping table: clip each bin to the
// limit, hand the clipped excess back evenly, integrate to a CDF, and
// rescale the CDF span to [0, 255].
//
// Tiles are fully independent, so they are fanned out across a bounded
// worker group; order does not matter.
type Engine struct {
	st   *store.Store
	clip uint32
}

// NewEngine returns an engine bound to a store with a fixed clip limit.
// A limit of 0 disables clipping (plain adaptive equalization).
func NewEngine(st *store.Store, clip uint32) *Engine {
	return &Engine{st: st, clip: clip}
}

// SetClip changes the clip limit applied to subsequent runs.
func (e *Engine) SetClip(clip uint32) { e.clip = clip }

// Run processes every tile of the given generation. The histograms are
// destructively transformed in place (counts become cumulative sums) and
// each tile's LUT is rewritten. Run returns only when all tiles are
// done; the caller flips the generation roles on completion.
func (e *Engine) Run(gen, numTiles int) {
	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for t := 0; t < numTiles; t++ {
		hist := e.st.TileHist(gen, t)
		lut := e.st.TileLUT(gen, t)
		eg.Go(func() error {
			equalizeTile(hist, lut, e.clip)
			return nil
		})
	}
	eg.Wait() // workers return no errors
}

// equalizeTile runs the full clip / redistribute / integrate / normalize
// sequence for one tile. hist and lut are the tile's 256-entry tables;
// hist holds raw counts on entry and the CDF on return.
func equalizeTile(hist []uint32, lut []uint8, clip uint32) {
	if clip > 0 {
		excess := clipHistogram(hist, clip)
		if excess > 0 {
			redistribute(hist, excess)
		}
	}
	cdfMin, cdfMax := integrate(hist)
	normalize(hist, lut, cdfMin, cdfMax)
}

// clipHistogram truncates every bin above the limit and returns the total
// count removed.
func clipHistogram(hist []uint32, clip uint32) (excess uint32) {
	for i, c := range hist {
		if c > clip {
			excess += c - clip
			hist[i] = clip
		}
	}
	return excess
}

// redistribute hands the clipped excess back across all bins: with
// quotient q and remainder r of excess/256, bins 0..r-1 receive q+1 and
// the rest receive q. The tile's total count is exactly restored, which
// is what keeps the CDF endpoint equal to the tile pixel count.
func redistribute(hist []uint32, excess uint32) {
	q := excess / store.NumBins
	r := excess % store.NumBins
	for i := range hist {
		if uint32(i) < r {
			hist[i] += q + 1
		} else {
			hist[i] += q
		}
	}
}

// integrate replaces counts with the running cumulative sum and returns
// the first strictly positive cumulative value and the final total. The
// sum is nondecreasing, so cdfMin is also the minimum nonzero cumulative.
func integrate(hist []uint32) (cdfMin, cdfMax uint32) {
	var sum uint32
	for i, c := range hist {
		sum += c
		hist[i] = sum
		if cdfMin == 0 && sum > 0 {
			cdfMin = sum
		}
	}
	return cdfMin, sum
}

// normalize rescales the CDF span [cdfMin, cdfMax] onto [0, 255]. A flat
// tile (single intensity, cdfMax == cdfMin) would divide by zero; it maps
// to a constant mid-gray instead.
func normalize(cdf []uint32, lut []uint8, cdfMin, cdfMax uint32) {
	if cdfMax == cdfMin {
		for i := range lut {
			lut[i] = flatValue
		}
		return
	}
	span := uint64(cdfMax - cdfMin)
	for i, c := range cdf {
		if c <= cdfMin {
			lut[i] = 0
			continue
		}
		v := uint64(c-cdfMin) * 255 / span
		if v > 255 {
			v = 255
		}
		lut[i] = uint8(v)
	}
}
