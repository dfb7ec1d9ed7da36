// Package dsp provides the pixel-rate kernels of the equalizer output
// stage: fixed-point bilinear blending of the four neighbor mapping
// results and the fixed-latency delay lines that keep bypassed and
// side-channel samples time-aligned with the blended output.
package dsp

// Blend weights are 8-bit fractions: weight w selects w/256 of the high
// sample and (256-w)/256 of the low sample. The two-level blend widens
// to 16 bits internally and rescales back to 8 bits with rounding.

// lerp8 blends a (weight 256-w) with b (weight w), w in [0, 255].
func lerp8(a, b uint8, w uint32) uint32 {
	return (uint32(a)*(256-w) + uint32(b)*w + 128) >> 8
}

// Bilinear blends the four neighbor mapping results of one pixel: the
// top and bottom pairs are blended horizontally with wx, then the two
// intermediates vertically with wy. Weights are fractions toward the
// right and bottom neighbors respectively.
func Bilinear(tl, tr, bl, br uint8, wx, wy uint32) uint8 {
	top := lerp8(tl, tr, wx)
	bot := lerp8(bl, br, wx)
	return uint8((top*(256-wy) + bot*wy + 128) >> 8)
}

// Clip8 clamps v to [0, 255].
// Uses unsigned comparison for a single branch on the in-range hot path.
func Clip8(v int) uint8 {
	if uint(v) <= 255 {
		return uint8(v)
	}
	return uint8(^(v >> 63) & 255)
}
