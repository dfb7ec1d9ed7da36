// Command gclahe applies tile-based adaptive histogram equalization to
// still images and raw video streams.
//
// Usage:
//
//	gclahe img [options] <input>       Enhance a still image (use "-" for stdin)
//	gclahe y4m [options] <input.y4m>   Enhance a YUV4MPEG2 video stream
//	gclahe info [options] <input>      Display the tile grid an image would use
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/deepteams/clahe"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "img":
		err = runImg(os.Args[2:])
	case "y4m":
		err = runY4M(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "gclahe: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "gclahe: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  gclahe img [options] <input>       Enhance PNG/JPEG/GIF/TIFF/BMP
  gclahe y4m [options] <input.y4m>   Enhance a YUV4MPEG2 stream
  gclahe info [options] <input>      Show tile grid and clip limit

Use "-" as input to read from stdin, "-o -" to write to stdout.

Run "gclahe <command> -h" for command-specific options.
`)
}

// gridFlags holds the flags shared by all subcommands.
type gridFlags struct {
	tiles    *string
	clip     *float64
	clipAbs  *int
	noInterp *bool
	bypass   *bool
}

func addGridFlags(fs *flag.FlagSet) gridFlags {
	return gridFlags{
		tiles:    fs.String("tiles", "8x8", "tile grid as COLSxROWS"),
		clip:     fs.Float64("clip", 2.0, "clip factor (multiple of average bin population, <0 disables clipping)"),
		clipAbs:  fs.Int("cliplimit", 0, "absolute per-bin clip limit (overrides -clip when > 0)"),
		noInterp: fs.Bool("nointerp", false, "disable tile blending (visible tile seams)"),
		bypass:   fs.Bool("bypass", false, "pass pixels through unmodified"),
	}
}

// options resolves the flags into clahe.Options for a width x height
// frame, returning the padded frame size that divides evenly into the
// requested grid.
func (f gridFlags) options(width, height int) (clahe.Options, int, int, error) {
	cols, rows, err := parseTiles(*f.tiles)
	if err != nil {
		return clahe.Options{}, 0, 0, err
	}
	tw := (width + cols - 1) / cols
	th := (height + rows - 1) / rows
	opt := clahe.Options{
		TileWidth:            tw,
		TileHeight:           th,
		ClipLimit:            *f.clipAbs,
		ClipFactor:           *f.clip,
		DisableInterpolation: *f.noInterp,
		DisableEnhancement:   *f.bypass,
	}
	return opt, tw * cols, th * rows, nil
}

func parseTiles(s string) (cols, rows int, err error) {
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &cols, &rows); err != nil {
		return 0, 0, fmt.Errorf("bad -tiles %q (want COLSxROWS, e.g. 8x8)", s)
	}
	if cols < 1 || rows < 1 || cols > 256 || rows > 256 {
		return 0, 0, fmt.Errorf("bad -tiles %q (1..256 per axis)", s)
	}
	return cols, rows, nil
}

// openInput returns an io.ReadCloser for the given path.
// If path is "-", stdin is returned (caller should not close).
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// --- img ---

func runImg(args []string) error {
	fs := flag.NewFlagSet("img", flag.ContinueOnError)
	gf := addGridFlags(fs)
	gray := fs.Bool("gray", false, "convert to grayscale before enhancing")
	quality := fs.Int("q", 90, "JPEG output quality 1-100")
	output := fs.String("o", "", `output path (default: <input>.clahe.png, "-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("img: missing input file\nUsage: gclahe img [options] <input>")
	}
	inputPath := fs.Arg(0)

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	src, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("img: decoding input: %w", err)
	}

	out, err := enhanceImage(src, gf, *gray)
	if err != nil {
		return err
	}
	return writeImage(out, inputPath, *output, *quality)
}

// enhanceImage pads the image to the tile grid, equalizes, and crops
// back to the original size.
func enhanceImage(src image.Image, gf gridFlags, forceGray bool) (image.Image, error) {
	b := src.Bounds()
	opt, pw, ph, err := gf.options(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	if _, isGray := src.(*image.Gray); isGray || forceGray {
		g := toGray(src, pw, ph)
		out, err := clahe.EnhanceGray(g, opt)
		if err != nil {
			return nil, err
		}
		return out.SubImage(image.Rect(0, 0, b.Dx(), b.Dy())), nil
	}

	y := toYCbCr(src, pw, ph)
	out, err := clahe.EnhanceYCbCr(y, opt)
	if err != nil {
		return nil, err
	}
	return out.SubImage(image.Rect(0, 0, b.Dx(), b.Dy())), nil
}

// toGray converts src to a grayscale plane of pw x ph pixels, replicating
// the last row and column into the padding so border tiles keep sane
// statistics.
func toGray(src image.Image, pw, ph int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, pw, ph))
	for y := 0; y < ph; y++ {
		sy := min(y, b.Dy()-1) + b.Min.Y
		for x := 0; x < pw; x++ {
			sx := min(x, b.Dx()-1) + b.Min.X
			dst.Set(x, y, color.GrayModel.Convert(src.At(sx, sy)))
		}
	}
	return dst
}

// toYCbCr converts src to a full-resolution (4:4:4) YCbCr image of
// pw x ph pixels with edge-replicated padding.
func toYCbCr(src image.Image, pw, ph int) *image.YCbCr {
	b := src.Bounds()
	dst := image.NewYCbCr(image.Rect(0, 0, pw, ph), image.YCbCrSubsampleRatio444)
	for y := 0; y < ph; y++ {
		sy := min(y, b.Dy()-1) + b.Min.Y
		for x := 0; x < pw; x++ {
			sx := min(x, b.Dx()-1) + b.Min.X
			r, g, bl, _ := src.At(sx, sy).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			dst.Y[dst.YOffset(x, y)] = yy
			ci := dst.COffset(x, y)
			dst.Cb[ci] = cb
			dst.Cr[ci] = cr
		}
	}
	return dst
}

func writeImage(img image.Image, inputPath, outputPath string, quality int) error {
	if outputPath == "" {
		if inputPath == "-" {
			outputPath = "output.clahe.png"
		} else {
			ext := filepath.Ext(inputPath)
			outputPath = strings.TrimSuffix(inputPath, ext) + ".clahe.png"
		}
	}

	var w io.Writer
	if outputPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case ".gif":
		return gif.Encode(w, img, nil)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, nil)
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return png.Encode(w, img)
	}
}

// --- info ---

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	gf := addGridFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("info: missing input file\nUsage: gclahe info [options] <input>")
	}

	in, err := openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	cfg, format, err := image.DecodeConfig(in)
	if err != nil {
		return fmt.Errorf("info: reading input: %w", err)
	}

	opt, pw, ph, err := gf.options(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	cols := pw / opt.TileWidth
	rows := ph / opt.TileHeight
	clip := opt.ClipLimit
	if clip == 0 && opt.ClipFactor >= 0 {
		clip = int(opt.ClipFactor * float64(opt.TileWidth*opt.TileHeight) / 256)
		if clip < 1 {
			clip = 1
		}
	}

	fmt.Printf("Format:     %s\n", format)
	fmt.Printf("Size:       %dx%d (padded to %dx%d)\n", cfg.Width, cfg.Height, pw, ph)
	fmt.Printf("Tile grid:  %dx%d tiles of %dx%d px\n", cols, rows, opt.TileWidth, opt.TileHeight)
	fmt.Printf("Clip limit: %d per bin (%d px/tile)\n", clip, opt.TileWidth*opt.TileHeight)
	return nil
}
