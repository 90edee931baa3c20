package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxImageSide bounds the longest edge handed to an engine. Phone photos
// are far larger than tesseract needs.
const MaxImageSide = 2500

// MaxImagePixels caps the decoded size. Headers are checked before any
// pixel buffer is allocated.
const MaxImagePixels = 40_000_000

// PrepareImage decodes a jpeg, png or webp upload, converts it to
// grayscale, downscales it to MaxImageSide and re-encodes it as PNG.
func PrepareImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return Image{}, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	b := src.Bounds()
	w, h := scaledSize(b.Dx(), b.Dy(), MaxImageSide)

	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return Image{}, fmt.Errorf("encode image: %w", err)
	}
	return Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}

func scaledSize(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		return max, maxInt(1, h*max/w)
	}
	return maxInt(1, w*max/h), max
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
