package main

// YUV4MPEG2 stream handling for the y4m subcommand.
//
// The stream is processed frame by frame through the streaming core, so
// each frame is mapped by the tables built from the previous one, the
// same double-buffered behavior the engine exhibits on live video. Only
// the luma plane is equalized; chroma planes are copied through.

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/deepteams/clahe"
	"github.com/deepteams/clahe/internal/pool"
)

// y4mHeader holds the stream parameters parsed from the YUV4MPEG2
// signature line.
type y4mHeader struct {
	width, height int
	colorspace    string // C tag, e.g. "420jpeg", "444", "mono"
	raw           string // full header line, echoed to the output
}

// chromaSize returns the per-plane chroma byte count for the stream's
// colorspace, or 0 for mono streams.
func (h *y4mHeader) chromaSize() int {
	switch {
	case h.colorspace == "mono":
		return 0
	case strings.HasPrefix(h.colorspace, "420"):
		return (h.width / 2) * (h.height / 2)
	case h.colorspace == "422":
		return (h.width / 2) * h.height
	case h.colorspace == "444":
		return h.width * h.height
	}
	return -1
}

func parseY4MHeader(line string) (*y4mHeader, error) {
	if !strings.HasPrefix(line, "YUV4MPEG2") {
		return nil, fmt.Errorf("not a YUV4MPEG2 stream")
	}
	h := &y4mHeader{colorspace: "420jpeg", raw: line}
	for _, tok := range strings.Fields(line)[1:] {
		if len(tok) < 2 {
			continue
		}
		switch tok[0] {
		case 'W':
			h.width, _ = strconv.Atoi(tok[1:])
		case 'H':
			h.height, _ = strconv.Atoi(tok[1:])
		case 'C':
			h.colorspace = tok[1:]
		}
	}
	if h.width <= 0 || h.height <= 0 {
		return nil, fmt.Errorf("missing W/H in YUV4MPEG2 header")
	}
	if h.chromaSize() < 0 {
		return nil, fmt.Errorf("unsupported colorspace C%s", h.colorspace)
	}
	return h, nil
}

func runY4M(args []string) error {
	fs := flag.NewFlagSet("y4m", flag.ContinueOnError)
	gf := addGridFlags(fs)
	output := fs.String("o", "-", `output path ("-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("y4m: missing input file\nUsage: gclahe y4m [options] <input.y4m>")
	}

	in, err := openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()

	var w io.Writer
	if *output == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	return processY4M(bufio.NewReaderSize(in, 1<<20), bufio.NewWriterSize(w, 1<<20), gf)
}

func processY4M(r *bufio.Reader, w *bufio.Writer, gf gridFlags) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("y4m: reading header: %w", err)
	}
	hdr, err := parseY4MHeader(strings.TrimSuffix(line, "\n"))
	if err != nil {
		return fmt.Errorf("y4m: %w", err)
	}

	opt, pw, ph, err := gf.options(hdr.width, hdr.height)
	if err != nil {
		return err
	}
	p, err := clahe.NewProcessor(pw, ph, opt)
	if err != nil {
		return err
	}

	if _, err := w.WriteString(hdr.raw + "\n"); err != nil {
		return err
	}

	ySize := hdr.width * hdr.height
	cSize := hdr.chromaSize()

	yIn := pool.Get(ySize)
	defer pool.Put(yIn)
	yOut := pool.Get(ySize)
	defer pool.Put(yOut)
	var chroma []byte
	if cSize > 0 {
		chroma = pool.Get(2 * cSize)
		defer pool.Put(chroma)
	}

	frames := 0
	for {
		fline, err := r.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("y4m: frame %d: %w", frames, err)
		}
		if !strings.HasPrefix(fline, "FRAME") {
			return fmt.Errorf("y4m: frame %d: bad frame marker %q", frames, fline)
		}
		if _, err := io.ReadFull(r, yIn); err != nil {
			return fmt.Errorf("y4m: frame %d: luma: %w", frames, err)
		}
		if cSize > 0 {
			if _, err := io.ReadFull(r, chroma); err != nil {
				return fmt.Errorf("y4m: frame %d: chroma: %w", frames, err)
			}
		}

		if err := enhanceY4MFrame(p, yIn, yOut, hdr.width, hdr.height, pw, ph); err != nil {
			return fmt.Errorf("y4m: frame %d: %w", frames, err)
		}

		if _, err := w.WriteString(fline); err != nil {
			return err
		}
		if _, err := w.Write(yOut); err != nil {
			return err
		}
		if cSize > 0 {
			if _, err := w.Write(chroma); err != nil {
				return err
			}
		}
		frames++
	}
	return w.Flush()
}

// enhanceY4MFrame streams one luma plane through the processor. The
// plane is pushed with edge-replicated padding so the padded frame size
// divides the tile grid; outputs falling inside the real frame are kept.
func enhanceY4MFrame(p *clahe.Processor, src, dst []byte, width, height, pw, ph int) error {
	p.BeginFrame()
	emit := 0
	keep := func(s clahe.Sample) {
		// Output index lags input by the pipeline latency.
		x := emit % pw
		y := emit / pw
		if x < width && y < height {
			dst[y*width+x] = s.Y
		}
		emit++
	}
	for y := 0; y < ph; y++ {
		sy := min(y, height-1)
		row := src[sy*width:]
		for x := 0; x < pw; x++ {
			v := row[min(x, width-1)]
			if out, ok := p.Push(clahe.Sample{Y: v}); ok {
				keep(out)
			}
		}
	}
	tail, err := p.EndFrame()
	if err != nil {
		return err
	}
	for _, s := range tail {
		keep(s)
	}
	return nil
}
