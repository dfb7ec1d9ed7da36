package dsp

// Delay is a fixed-length shift register for 8-bit samples. The mapper
// has a fixed pipeline latency; every signal that bypasses the blend
// path (the raw intensity when enhancement is off, chrominance side
// channels) runs through one of these so all outputs of a time step
// belong to the same input sample.
type Delay struct {
	buf  []uint8
	head int
}

// NewDelay returns a delay line of n steps. n must be at least 1.
func NewDelay(n int) *Delay {
	return &Delay{buf: make([]uint8, n)}
}

// Push inserts v and returns the sample pushed n steps earlier.
func (d *Delay) Push(v uint8) uint8 {
	old := d.buf[d.head]
	d.buf[d.head] = v
	d.head++
	if d.head == len(d.buf) {
		d.head = 0
	}
	return old
}

// Reset clears the line to zero samples.
func (d *Delay) Reset() {
	clear(d.buf)
	d.head = 0
}
