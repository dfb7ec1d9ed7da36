package clahe_test

import (
	"fmt"
	"image"

	"github.com/deepteams/clahe"
)

func ExampleEnhanceGray() {
	// A dim 256x256 gradient.
	img := image.NewGray(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			img.Pix[y*img.Stride+x] = uint8(100 + x/16)
		}
	}

	dst, err := clahe.EnhanceGray(img, clahe.Options{})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(dst.Bounds().Dx(), dst.Bounds().Dy())
	// Output: 256 256
}

func ExampleNewProcessor() {
	p, err := clahe.NewProcessor(128, 128, clahe.Options{TileWidth: 32, TileHeight: 32})
	if err != nil {
		fmt.Println(err)
		return
	}

	// Stream one frame of mid-gray pixels.
	p.BeginFrame()
	n := 0
	for i := 0; i < 128*128; i++ {
		if _, ok := p.Push(clahe.Sample{Y: 128}); ok {
			n++
		}
	}
	tail, err := p.EndFrame()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(n + len(tail))
	// Output: 16384
}
