// Package eq implements the histogram side of the equalizer: the
// hazard-aware streaming accumulator that counts each pixel into its
// tile's histogram, and the engine that turns finished histograms into
// normalized mapping tables.
package eq

import "github.com/deepteams/clahe/internal/store"

// The accumulator is a three-stage read-modify-write pipeline. Counting
// is "read old count, add increment, write new", and the read result
// lags the sample by one step, so two hazards exist:
//
//   - an immediate repeat (same tile+bin on consecutive steps) would
//     read the pre-increment value; the pair is merged into a single
//     write carrying an increment of 2;
//   - a distant repeat (same tile+bin while an earlier write is still
//     in flight) would trust a stale memory read; the in-flight value
//     is forwarded instead.
//
// Forwarding consults a scoreboard of outstanding writes rather than a
// single hard-coded slot, so the guard distance tracks the pipeline
// depth by construction.

// pipeDepth is the number of in-flight stages between sample intake and
// the committed histogram write.
const pipeDepth = 3

// addr identifies one histogram bin of one tile.
type addr struct {
	t   int
	bin uint8
}

// pending is a scoreboard entry: a write that has left the pipeline's
// compute stage but, in the modeled timing, is not yet visible to reads.
type pending struct {
	at    addr
	val   uint32
	valid bool
}

// lane is one pipeline stage record.
type lane struct {
	at    addr
	inc   uint32
	valid bool
}

// Accumulator streams pixel samples into the histograms of the active
// write generation of a Store.
type Accumulator struct {
	st  *store.Store
	gen int

	// Stage 1 holds the freshly latched sample, stage 2 the sample
	// whose read is in flight. Stage 3 is represented by the newest
	// scoreboard entry, which commits one step later.
	s1, s2 lane
	board  [pipeDepth - 1]pending // outstanding writes, newest first
}

// NewAccumulator returns an accumulator bound to a store. Bind must be
// called before the first sample of each frame to (re)select the write
// generation.
func NewAccumulator(st *store.Store) *Accumulator {
	return &Accumulator{st: st, gen: st.WriteGen()}
}

// Bind clears the pipeline and attaches the accumulator to the store's
// current write generation. The caller must have finished zeroing that
// generation first; a sample pushed mid-zeroing would land in a bin the
// zero pass then wipes.
func (a *Accumulator) Bind() {
	a.s1 = lane{}
	a.s2 = lane{}
	for i := range a.board {
		a.board[i] = pending{}
	}
	a.gen = a.st.WriteGen()
}

// forward returns the effective current count for an address: the newest
// outstanding write to the same address if one exists, else the stored
// value.
func (a *Accumulator) forward(at addr) uint32 {
	for i := range a.board {
		if a.board[i].valid && a.board[i].at == at {
			return a.board[i].val
		}
	}
	return a.st.HistRead(a.gen, at.t, at.bin)
}

// step advances the pipeline by one time step, optionally latching a new
// sample into stage 1.
func (a *Accumulator) step(in lane) {
	// Oldest scoreboard entry commits to memory.
	last := a.board[len(a.board)-1]
	if last.valid {
		a.st.HistWrite(a.gen, last.at.t, last.at.bin, last.val)
	}

	// Stage 2 completes: its read is served, with outstanding writes
	// forwarded over the stale memory value, and the incremented count
	// enters the scoreboard.
	var out pending
	if a.s2.valid {
		out = pending{at: a.s2.at, val: a.forward(a.s2.at) + a.s2.inc, valid: true}
	}
	copy(a.board[1:], a.board[:len(a.board)-1])
	a.board[0] = out

	// Stage 1 advances, merging an immediate repeat: when the incoming
	// sample targets the address already latched in stage 1, the older
	// occurrence is squashed and the new one carries both increments.
	if in.valid && a.s1.valid && in.at == a.s1.at {
		in.inc += a.s1.inc
		a.s1 = lane{}
	}
	a.s2 = a.s1
	a.s1 = in
}

// Push counts one pixel sample into bin `bin` of tile `t`.
func (a *Accumulator) Push(t int, bin uint8) {
	a.step(lane{at: addr{t: t, bin: bin}, inc: 1, valid: true})
}

// Drain flushes the pipeline so every pushed sample is committed. Called
// on the frame-end pulse; after it returns the generation's histograms
// are frozen and ready for the engine.
func (a *Accumulator) Drain() {
	for a.s1.valid || a.s2.valid || a.outstanding() {
		a.step(lane{})
	}
}

func (a *Accumulator) outstanding() bool {
	for i := range a.board {
		if a.board[i].valid {
			return true
		}
	}
	return false
}
