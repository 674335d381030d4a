package upload

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// PreviewSize bounds the longest side of a preview.
	PreviewSize = 320
	// MaxPreviewPixels caps the decoded size of a source image.
	MaxPreviewPixels = 50_000_000
)

// Preview decodes a png, jpeg, gif or webp image and returns a JPEG
// thumbnail whose longest side is at most PreviewSize pixels.
func Preview(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrUnsupportedType
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPreviewPixels {
		return nil, ErrUnsupportedType
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnsupportedType
	}

	b := src.Bounds()
	w, h := thumbnailSize(b.Dx(), b.Dy(), PreviewSize)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return out.Bytes(), nil
}

func thumbnailSize(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}
