package upload

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPreviewScalesLongestSide(t *testing.T) {
	cases := []struct {
		w, h         int
		wantW, wantH int
	}{
		{640, 480, 320, 240},
		{100, 800, 40, 320},
		{200, 100, 200, 100},
	}
	for _, tc := range cases {
		out, err := Preview(pngOf(t, tc.w, tc.h))
		require.NoError(t, err)
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		require.Equal(t, tc.wantW, cfg.Width)
		require.Equal(t, tc.wantH, cfg.Height)
	}
}

func TestPreviewRejectsUnknownFormat(t *testing.T) {
	_, err := Preview([]byte("not an image"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

// inflatedPNG rewrites the IHDR of a tiny PNG so it declares w x h pixels.
func inflatedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngOf(t, 4, 4)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestPreviewRejectsOversizedDimensions(t *testing.T) {
	data := inflatedPNG(t, 16000, 16000)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 16000, cfg.Width)

	_, err = Preview(data)
	require.ErrorIs(t, err, ErrUnsupportedType)
}
