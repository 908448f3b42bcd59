package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocess_AlwaysProducesModelShape(t *testing.T) {
	sizes := []image.Point{{1, 1}, {224, 224}, {300, 200}, {10, 500}, {640, 480}}

	for _, size := range sizes {
		body := encodePNG(t, solid(size.X, size.Y, color.NRGBA{R: 10, G: 120, B: 200, A: 255}))

		x, err := Preprocess(body)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3, ImageSize, ImageSize}, x.Shape(), "input %v", size)
	}
}

func TestPreprocess_NormalizesRedPixel(t *testing.T) {
	body := encodePNG(t, solid(1, 1, color.NRGBA{R: 255, A: 255}))

	x, err := Preprocess(body)
	require.NoError(t, err)

	plane := ImageSize * ImageSize
	data := x.Data()
	for _, i := range []int{0, plane / 2, plane - 1} {
		assert.InDelta(t, (1-Mean[0])/Std[0], data[i], 1e-2)
		assert.InDelta(t, (0-Mean[1])/Std[1], data[plane+i], 1e-2)
		assert.InDelta(t, (0-Mean[2])/Std[2], data[2*plane+i], 1e-2)
	}
}

func TestPreprocess_AcceptsJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(32, 16, color.NRGBA{R: 90, G: 90, B: 90, A: 255}), nil))

	x, err := Preprocess(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, ImageSize, ImageSize}, x.Shape())
}

func TestPreprocess_MalformedBytes(t *testing.T) {
	_, err := Preprocess([]byte("definitely not an image"))
	assert.ErrorIs(t, err, image.ErrFormat)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = Preprocess(nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecodeRGB_DropsAlpha(t *testing.T) {
	body := encodePNG(t, solid(2, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 0}))

	img, format, err := DecodeRGB(body)
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	c := img.NRGBAAt(1, 1)
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 255}, c)
}

func TestDecodeRGB_KeepsColorOfTranslucentPixels(t *testing.T) {
	body := encodePNG(t, solid(1, 1, color.NRGBA{R: 201, G: 57, B: 3, A: 128}))

	img, _, err := DecodeRGB(body)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 201, G: 57, B: 3, A: 255}, img.NRGBAAt(0, 0))
}

func TestDecodeRGB_ExpandsGrayscale(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := range gray.Pix {
		gray.Pix[i] = 77
	}

	img, _, err := DecodeRGB(encodePNG(t, gray))
	require.NoError(t, err)

	c := img.NRGBAAt(0, 0)
	assert.Equal(t, color.NRGBA{R: 77, G: 77, B: 77, A: 255}, c)
}

func TestToTensor_ChannelOrder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	x := ToTensor(img)
	require.Equal(t, []int{3, 1, 2}, x.Shape())

	data := x.Data()
	// R plane, then G plane, then B plane; pixel 0 is red, pixel 1 is blue.
	assert.InDelta(t, (1-Mean[0])/Std[0], data[0], 1e-6)
	assert.InDelta(t, (0-Mean[0])/Std[0], data[1], 1e-6)
	assert.InDelta(t, (0-Mean[2])/Std[2], data[4], 1e-6)
	assert.InDelta(t, (1-Mean[2])/Std[2], data[5], 1e-6)
}
