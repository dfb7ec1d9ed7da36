// Package store implements the double-buffered tile store: two complete
// generations of per-tile histograms and mapping tables, physically folded
// into four checkerboard-interleaved banks.
//
// The checkerboard rule bank = (row mod 2, col mod 2) guarantees that any
// 2x2 neighborhood of tiles touches all four banks exactly once, so the
// four neighbor lookups the interpolation mapper issues per pixel can all
// be served in the same step without a bank collision. Within a bank a
// tile's tables live at the folded offset derived from the non-parity
// coordinate bits, which packs many logical tiles into one bank without
// aliasing.
package store

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/deepteams/clahe/internal/tile"
)

// NumBins is the number of histogram bins and mapping-table entries per tile.
const NumBins = 256

// NumBanks is the number of interleaved storage banks per generation.
const NumBanks = 4

// BankOf returns the bank index of the tile at (row, col).
func BankOf(row, col int) int { return (row&1)<<1 | col&1 }

// generation is one complete {histogram, LUT} copy for all tiles,
// split across the four banks.
type generation struct {
	hist [NumBanks][]uint32
	lut  [NumBanks][]uint8
}

// Store holds the two generations and the current role assignment.
// At any instant one generation accepts accumulator writes while the
// other serves the mapper's reads; the roles swap on Flip.
type Store struct {
	grid *tile.Grid

	// Folded per-bank grid dimensions. Each bank covers every second
	// tile row and column, rounded up so odd grids do not alias.
	bankCols int
	bankRows int

	gens  [2]generation
	write int // generation index currently accepting accumulator writes
}

// New allocates a Store sized for the given grid. Mapping tables of both
// generations start as identity so the mapper produces a sane passthrough
// before the first engine run completes.
func New(g *tile.Grid) *Store {
	s := &Store{
		grid:     g,
		bankCols: (g.Cols + 1) / 2,
		bankRows: (g.Rows + 1) / 2,
	}
	n := s.bankCols * s.bankRows * NumBins
	for gi := range s.gens {
		for b := range s.gens[gi].hist {
			s.gens[gi].hist[b] = make([]uint32, n)
			s.gens[gi].lut[b] = make([]uint8, n)
		}
		for b := range s.gens[gi].lut {
			l := s.gens[gi].lut[b]
			for i := range l {
				l[i] = uint8(i & 0xff)
			}
		}
	}
	return s
}

// WriteGen returns the generation currently accepting accumulator writes.
func (s *Store) WriteGen() int { return s.write }

// ReadGen returns the generation currently serving mapper reads.
func (s *Store) ReadGen() int { return 1 - s.write }

// Flip swaps the generation roles. Called exactly once per engine
// completion: the generation whose LUTs just finished becomes the read
// source and the other becomes the new accumulation target.
func (s *Store) Flip() { s.write = 1 - s.write }

// fold returns the bank index and the base offset of a tile's tables
// within that bank.
func (s *Store) fold(t int) (bank, base int) {
	row, col := s.grid.RowCol(t)
	bank = BankOf(row, col)
	base = ((row>>1)*s.bankCols + col>>1) * NumBins
	return bank, base
}

// HistRead returns the current count of one histogram bin.
func (s *Store) HistRead(gen, t int, bin uint8) uint32 {
	bank, base := s.fold(t)
	return s.gens[gen].hist[bank][base+int(bin)]
}

// HistWrite commits a new count to one histogram bin.
func (s *Store) HistWrite(gen, t int, bin uint8, v uint32) {
	bank, base := s.fold(t)
	s.gens[gen].hist[bank][base+int(bin)] = v
}

// TileHist returns the 256-bin histogram slice of one tile. The engine
// transforms it in place (clip, redistribute, cumulative sum).
func (s *Store) TileHist(gen, t int) []uint32 {
	bank, base := s.fold(t)
	return s.gens[gen].hist[bank][base : base+NumBins : base+NumBins]
}

// TileLUT returns the 256-entry mapping table slice of one tile.
func (s *Store) TileLUT(gen, t int) []uint8 {
	bank, base := s.fold(t)
	return s.gens[gen].lut[bank][base : base+NumBins : base+NumBins]
}

// Zero clears every histogram bin of a generation. The work is fanned
// out across banks to keep the wall-clock cost well inside the
// inter-frame gap.
func (s *Store) Zero(gen int) {
	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for b := 0; b < NumBanks; b++ {
		h := s.gens[gen].hist[b]
		eg.Go(func() error {
			clear(h)
			return nil
		})
	}
	eg.Wait() // workers return no errors
}

// Gather serves the mapper's four parallel lookups: the LUT entries for
// intensity v of the TL/TR/BL/BR neighbor tiles of one pixel, all from
// the read-source generation in a single call.
//
// The four raw lookups are issued per bank and then routed back into
// logical slots, because which bank holds a given logical tile is
// data-dependent. The permutation is resolved from each request's own
// bank id; coincident neighbors at frame edges simply select the same
// bank output more than once.
func (s *Store) Gather(gen int, tl, tr, bl, br int, v uint8) (a, b, c, d uint8) {
	g := &s.gens[gen]

	var raw [NumBanks]uint8
	var banks [4]int
	for i, t := range [4]int{tl, tr, bl, br} {
		bank, base := s.fold(t)
		banks[i] = bank
		raw[bank] = g.lut[bank][base+int(v)]
	}
	return raw[banks[0]], raw[banks[1]], raw[banks[2]], raw[banks[3]]
}
