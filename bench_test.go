package clahe

import (
	"image"
	"testing"
)

func benchImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Pix[y*img.Stride+x] = uint8((x*7 + y*13) % 200)
		}
	}
	return img
}

func BenchmarkEnhanceGray(b *testing.B) {
	sizes := []struct {
		name string
		w, h int
	}{
		{"512x512", 512, 512},
		{"1920x1088", 1920, 1088},
	}
	for _, s := range sizes {
		src := benchImage(s.w, s.h)
		b.Run(s.name, func(b *testing.B) {
			b.SetBytes(int64(s.w * s.h))
			for i := 0; i < b.N; i++ {
				if _, err := EnhanceGray(src, Options{}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkProcessorPush(b *testing.B) {
	p, err := NewProcessor(512, 512, Options{})
	if err != nil {
		b.Fatal(err)
	}
	src := benchImage(512, 512)
	b.SetBytes(int64(len(src.Pix)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.BeginFrame()
		for _, v := range src.Pix {
			p.Push(Sample{Y: v})
		}
		if _, err := p.EndFrame(); err != nil {
			b.Fatal(err)
		}
	}
}
