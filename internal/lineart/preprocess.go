package lineart

import (
	"image"
	"image/color"
	_ "image/gif"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/segment"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/bryanchriswhite/speeddraw/internal/animerr"
)

// InkThreshold is the inverted intensity above which a pixel counts as ink.
const InkThreshold = 50

// LoadImage decodes an image file.
func LoadImage(path string) (image.Image, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, animerr.Wrap(animerr.CodeLoad, err, "decode %s", path)
	}
	return img, nil
}

// LoadMask decodes a line-art file and returns its binary ink mask.
func LoadMask(path string) (*image.Gray, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return Binarize(img), nil
}

// Binarize converts a line drawing (dark ink on light paper, optionally with
// transparency) into a mask where ink is 255 and paper is 0.
func Binarize(img image.Image) *image.Gray {
	flat := FlattenAlpha(img)
	gray := effect.GrayscaleWithWeights(flat, 0.299, 0.587, 0.114)
	inverted := effect.Invert(gray)
	// segment.Threshold keeps values >= level.
	binary := segment.Threshold(inverted, InkThreshold+1)
	return Erode(Dilate(binary))
}

// FlattenAlpha composites img over opaque white. Opaque images are returned
// unchanged.
func FlattenAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// Dilate applies one dilation pass with a 2x2 structuring element anchored at
// its bottom-right cell, so each output pixel is the maximum of itself and its
// west, north and north-west neighbours.
func Dilate(src *image.Gray) *image.Gray {
	return morph2x2(src, func(a, b uint8) uint8 { return max(a, b) })
}

// Erode is the min counterpart of Dilate.
func Erode(src *image.Gray) *image.Gray {
	return morph2x2(src, func(a, b uint8) uint8 { return min(a, b) })
}

// morph2x2 folds each pixel with its in-bounds west, north and north-west
// neighbours. Out-of-bounds cells do not take part.
func morph2x2(src *image.Gray, fold func(a, b uint8) uint8) *image.Gray {
	src = zeroOrigin(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(src.Rect)
	at := func(x, y int) uint8 {
		return src.Pix[y*src.Stride+x]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := at(x, y)
			if x > 0 {
				v = fold(v, at(x-1, y))
			}
			if y > 0 {
				v = fold(v, at(x, y-1))
				if x > 0 {
					v = fold(v, at(x-1, y-1))
				}
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

// zeroOrigin returns src itself when its bounds start at (0,0), otherwise a
// copy rebased to the origin.
func zeroOrigin(src *image.Gray) *image.Gray {
	b := src.Bounds()
	if b.Min == (image.Point{}) {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
