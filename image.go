package clahe

import (
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/deepteams/clahe/internal/dsp"
	"github.com/deepteams/clahe/internal/eq"
	"github.com/deepteams/clahe/internal/store"
	"github.com/deepteams/clahe/internal/tile"
)

// EnhanceGray equalizes a grayscale image and returns the result as a
// new image. The source is used both to build the tile statistics and as
// the frame being mapped, which is the still-image equivalent of the
// video pipeline's one-frame statistics lag converging on a repeated
// frame.
func EnhanceGray(src *image.Gray, opt Options) (*image.Gray, error) {
	opt = opt.withDefaults()
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if err := opt.Validate(w, h); err != nil {
		return nil, err
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	if err := enhancePlane(planeOf(src), plane{dst.Pix, dst.Stride, w, h}, opt); err != nil {
		return nil, err
	}
	return dst, nil
}

// EnhanceYCbCr equalizes the luma plane of a YCbCr image and copies the
// chroma planes through unchanged, the still-image form of the streaming
// side-channel passthrough.
func EnhanceYCbCr(src *image.YCbCr, opt Options) (*image.YCbCr, error) {
	opt = opt.withDefaults()
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	if err := opt.Validate(w, h); err != nil {
		return nil, err
	}

	dst := image.NewYCbCr(image.Rect(0, 0, w, h), src.SubsampleRatio)
	copy(dst.Cb, src.Cb)
	copy(dst.Cr, src.Cr)
	sp := plane{src.Y, src.YStride, w, h}
	dp := plane{dst.Y, dst.YStride, w, h}
	if err := enhancePlane(sp, dp, opt); err != nil {
		return nil, err
	}
	return dst, nil
}

// plane is an 8-bit pixel plane with an arbitrary row stride.
type plane struct {
	pix    []uint8
	stride int
	w, h   int
}

func planeOf(img *image.Gray) plane {
	b := img.Bounds()
	return plane{
		pix:    img.Pix[img.PixOffset(b.Min.X, b.Min.Y):],
		stride: img.Stride,
		w:      b.Dx(),
		h:      b.Dy(),
	}
}

// enhancePlane runs the full equalizer over one plane: accumulate the
// plane's histograms through the streaming accumulator, run the engine,
// flip, then map every pixel against the finished tables with the rows
// fanned out across CPUs.
func enhancePlane(src, dst plane, opt Options) error {
	g, err := tile.New(src.w, src.h, opt.TileWidth, opt.TileHeight)
	if err != nil {
		return err
	}

	if opt.DisableEnhancement {
		for y := 0; y < src.h; y++ {
			copy(dst.pix[y*dst.stride:y*dst.stride+src.w], src.pix[y*src.stride:])
		}
		return nil
	}

	st := store.New(g)
	st.Zero(st.WriteGen())
	acc := eq.NewAccumulator(st)
	acc.Bind()
	for y := 0; y < src.h; y++ {
		row := src.pix[y*src.stride:]
		for x := 0; x < src.w; x++ {
			t, _, _ := g.Locate(x, y)
			acc.Push(t, row[x])
		}
	}
	acc.Drain()
	eq.NewEngine(st, opt.clip(g.TilePixels())).Run(st.WriteGen(), g.NumTiles())
	st.Flip()

	gen := st.ReadGen()
	var eg errgroup.Group
	eg.SetLimit(runtime.NumCPU())
	for y := 0; y < src.h; y++ {
		srow := src.pix[y*src.stride : y*src.stride+src.w]
		drow := dst.pix[y*dst.stride : y*dst.stride+src.w]
		oy := y % g.TileH
		trow := (y / g.TileH) * g.Cols
		eg.Go(func() error {
			for x, v := range srow {
				t := trow + x/g.TileW
				if opt.DisableInterpolation {
					a, _, _, _ := st.Gather(gen, t, t, t, t, v)
					drow[x] = a
					continue
				}
				tl, tr, bl, br, wx, wy := g.Neighbors(t, x%g.TileW, oy)
				a, b, c, d := st.Gather(gen, tl, tr, bl, br, v)
				drow[x] = dsp.Bilinear(a, b, c, d, wx, wy)
			}
			return nil
		})
	}
	return eg.Wait()
}
