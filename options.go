package clahe

import (
	"errors"
	"fmt"
)

// Default tile size and clip factor, applied when the corresponding
// Options fields are zero.
const (
	DefaultTileSize   = 64
	DefaultClipFactor = 2.0
)

// ErrGeometry is returned when the frame does not divide evenly into the
// configured tile grid.
var ErrGeometry = errors.New("clahe: frame not divisible into tile grid")

// Options controls the equalizer.
// The zero value selects 64x64 tiles, a clip factor of 2.0, bilinear
// blending, and enhancement enabled.
type Options struct {
	// TileWidth and TileHeight set the tile size in pixels. The frame
	// dimensions must be exact multiples. 0 means DefaultTileSize.
	TileWidth  int
	TileHeight int

	// ClipLimit is the absolute per-bin clip limit. 0 derives the limit
	// from ClipFactor instead.
	ClipLimit int

	// ClipFactor expresses the clip limit as a multiple of the average
	// per-bin population (tile pixels / 256). Used when ClipLimit is 0;
	// 0 means DefaultClipFactor. A negative factor disables clipping
	// entirely (plain adaptive equalization).
	ClipFactor float64

	// DisableInterpolation makes every pixel use only its own tile's
	// mapping table. Tile boundaries become visible; mainly useful for
	// debugging tile statistics.
	DisableInterpolation bool

	// DisableEnhancement bypasses the whole pipeline: input intensities
	// pass through unmodified, delayed by the same fixed latency as
	// enhanced output so side channels stay aligned.
	DisableEnhancement bool
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (o Options) withDefaults() Options {
	if o.TileWidth == 0 {
		o.TileWidth = DefaultTileSize
	}
	if o.TileHeight == 0 {
		o.TileHeight = DefaultTileSize
	}
	if o.ClipFactor == 0 {
		o.ClipFactor = DefaultClipFactor
	}
	return o
}

// clip resolves the effective per-bin clip limit for the given tile
// pixel count. 0 disables clipping.
func (o Options) clip(tilePixels int) uint32 {
	if o.ClipLimit > 0 {
		return uint32(o.ClipLimit)
	}
	if o.ClipFactor < 0 {
		return 0
	}
	c := int(o.ClipFactor * float64(tilePixels) / 256)
	if c < 1 {
		c = 1
	}
	return uint32(c)
}

// Validate reports whether the options describe a usable configuration
// for a width x height frame.
func (o Options) Validate(width, height int) error {
	o = o.withDefaults()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("clahe: invalid frame size %dx%d", width, height)
	}
	if o.TileWidth <= 0 || o.TileHeight <= 0 {
		return fmt.Errorf("clahe: invalid tile size %dx%d", o.TileWidth, o.TileHeight)
	}
	if width%o.TileWidth != 0 || height%o.TileHeight != 0 {
		return fmt.Errorf("%w: frame %dx%d, tiles %dx%d",
			ErrGeometry, width, height, o.TileWidth, o.TileHeight)
	}
	return nil
}
