// Package tile provides the fixed tile partitioning of a frame and the
// per-pixel geometry the equalization engine needs: tile lookup from raw
// pixel coordinates, neighbor selection for bilinear blending, and
// fixed-point interpolation weights computed without runtime division.
package tile

import "fmt"

// weightBits is the fixed-point precision of the reciprocal multiply used
// to turn an in-tile offset into a blend weight.
const weightBits = 16

// Grid describes a frame divided into a fixed rectangle of tiles.
// All tiles have identical dimensions; the frame must divide evenly.
type Grid struct {
	Width, Height int // frame size in pixels
	TileW, TileH  int // tile size in pixels
	Cols, Rows    int // tiles per row / column

	// Precomputed (256 << weightBits) / tileDim reciprocals, so the
	// weight computation is a multiply and a shift per axis.
	recipW uint32
	recipH uint32
}

// New validates the geometry and returns a Grid.
// width and height must be positive multiples of tileW and tileH.
func New(width, height, tileW, tileH int) (*Grid, error) {
	switch {
	case width <= 0 || height <= 0:
		return nil, fmt.Errorf("clahe: invalid frame size %dx%d", width, height)
	case tileW <= 0 || tileH <= 0:
		return nil, fmt.Errorf("clahe: invalid tile size %dx%d", tileW, tileH)
	case width%tileW != 0 || height%tileH != 0:
		return nil, fmt.Errorf("clahe: frame %dx%d not divisible into %dx%d tiles",
			width, height, tileW, tileH)
	}
	return &Grid{
		Width:  width,
		Height: height,
		TileW:  tileW,
		TileH:  tileH,
		Cols:   width / tileW,
		Rows:   height / tileH,
		recipW: uint32((256 << weightBits) / tileW),
		recipH: uint32((256 << weightBits) / tileH),
	}, nil
}

// NumTiles returns the number of tiles in the grid.
func (g *Grid) NumTiles() int { return g.Cols * g.Rows }

// TilePixels returns the number of pixels in one tile.
func (g *Grid) TilePixels() int { return g.TileW * g.TileH }

// Index returns the linear tile index for (row, col).
func (g *Grid) Index(row, col int) int { return row*g.Cols + col }

// RowCol returns the (row, col) coordinates of a linear tile index.
func (g *Grid) RowCol(t int) (row, col int) { return t / g.Cols, t % g.Cols }

// Locate maps a raw pixel position to its tile index and in-tile offset.
// This is the tile-locator contract: it must be called in step with the
// pixel stream so the accumulator and mapper see a consistent tile id.
func (g *Grid) Locate(x, y int) (t, ox, oy int) {
	col := x / g.TileW
	row := y / g.TileH
	return g.Index(row, col), x - col*g.TileW, y - row*g.TileH
}

// weight converts an offset from the low tile's center into a blend
// fraction in [0, 255] using the precomputed reciprocal. Values at or
// past the far center saturate to 255.
func weight(off int, recip uint32) uint32 {
	if off <= 0 {
		return 0
	}
	w := (uint32(off) * recip) >> weightBits
	if w > 255 {
		w = 255
	}
	return w
}

// Neighbors selects, for the pixel at in-tile offset (ox, oy) of tile t,
// the four tiles whose mapping tables are blended, together with the
// fixed-point blend weights along each axis.
//
// Per axis, the sign of the offset from the tile center decides whether
// the bracketing neighbor lies before or after the current tile; edge
// tiles reuse themselves as their own neighbor, which degrades the blend
// to 1-D at borders and to a plain lookup at corners. The returned
// weights are the fraction toward the high tile, in [0, 255].
func (g *Grid) Neighbors(t, ox, oy int) (tl, tr, bl, br int, wx, wy uint32) {
	row, col := g.RowCol(t)

	// Horizontal bracket: tiles c0 <= c1 and the fraction between
	// their centers.
	c0, c1 := col, col
	dx := ox - g.TileW/2
	if dx >= 0 {
		if col+1 < g.Cols {
			c1 = col + 1
		}
		wx = weight(dx, g.recipW)
	} else {
		if col > 0 {
			c0 = col - 1
		}
		wx = weight(dx+g.TileW, g.recipW)
	}
	if c0 == c1 {
		wx = 0
	}

	// Vertical bracket.
	r0, r1 := row, row
	dy := oy - g.TileH/2
	if dy >= 0 {
		if row+1 < g.Rows {
			r1 = row + 1
		}
		wy = weight(dy, g.recipH)
	} else {
		if row > 0 {
			r0 = row - 1
		}
		wy = weight(dy+g.TileH, g.recipH)
	}
	if r0 == r1 {
		wy = 0
	}

	return g.Index(r0, c0), g.Index(r0, c1), g.Index(r1, c0), g.Index(r1, c1), wx, wy
}
