// Package clahe implements real-time tile-based adaptive histogram
// equalization (CLAHE) for 8-bit video and still images in pure Go.
//
// Each frame is divided into a fixed grid of tiles. Every tile's contrast
// is equalized independently through a clipped (overflow-limited)
// histogram, and neighboring tiles' mapping tables are blended bilinearly
// per pixel so no seams appear at tile boundaries.
//
// The package is built around a streaming core that accepts one pixel per
// step and produces one enhanced pixel per step after a fixed latency.
// Histograms for the current frame accumulate while the previous frame's
// tables map the pixel stream; the two table generations swap roles at
// every frame boundary, so video output always lags the statistics by
// exactly one frame.
//
// Basic usage for still images:
//
//	dst, err := clahe.EnhanceGray(img, clahe.Options{})
//
// Basic usage for video streams:
//
//	p, err := clahe.NewProcessor(w, h, clahe.Options{})
//	for each frame {
//		p.BeginFrame()
//		for each pixel {
//			out, ok := p.Push(sample)
//			...
//		}
//		tail, err := p.EndFrame()
//		...
//	}
package clahe
