// Package imageproc turns raw image bytes into the normalized input tensor the
// classifier expects.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ekisa-team/visionhook/internal/tensor"
)

// ImageSize is the square edge length images are resized to.
const ImageSize = 224

// ErrDecode is matched by every error from undecodable image bytes.
var ErrDecode = errors.New("decode image")

// Per-channel (R, G, B) normalization constants.
var (
	Mean = [3]float32{0.485, 0.456, 0.406}
	Std  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess decodes body and returns a [1, 3, ImageSize, ImageSize] tensor.
func Preprocess(body []byte) (*tensor.Tensor, error) {
	img, _, err := DecodeRGB(body)
	if err != nil {
		return nil, err
	}

	return ToTensor(Resize(img, ImageSize)).Unsqueeze(0), nil
}

// DecodeRGB decodes body and forces it to opaque 3-channel color. Alpha is
// discarded, not composited onto a background.
func DecodeRGB(body []byte) (*image.NRGBA, string, error) {
	src, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}

	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), opaque{src}, bounds.Min, draw.Src)

	return dst, format, nil
}

// opaque reports every pixel of the wrapped image with its stored,
// non-premultiplied color and full alpha.
type opaque struct {
	image.Image
}

func (o opaque) ColorModel() color.Model {
	return color.NRGBAModel
}

func (o opaque) At(x, y int) color.Color {
	c := color.NRGBAModel.Convert(o.Image.At(x, y)).(color.NRGBA)
	c.A = 0xff
	return c
}

// Resize scales img to size x size with bilinear interpolation, ignoring aspect ratio.
func Resize(img image.Image, size int) image.Image {
	return resize.Resize(uint(size), uint(size), img, resize.Bilinear)
}

// ToTensor converts img to a normalized [3, H, W] tensor in CHW order.
func ToTensor(img image.Image) *tensor.Tensor {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	t := tensor.Zeros(3, height, width)
	data := t.Data()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			i := y*width + x
			data[i] = normalize(r, 0)
			data[plane+i] = normalize(g, 1)
			data[2*plane+i] = normalize(b, 2)
		}
	}

	return t
}

// normalize maps a 16-bit color sample to [0,1] on an 8-bit grid, then applies
// the channel mean and std.
func normalize(v uint32, channel int) float32 {
	return (float32(v>>8)/255.0 - Mean[channel]) / Std[channel]
}
