package pixfmt

import (
	"fmt"
	"image"
	"image/color"

	"github.com/junsooki/HDMIView/internal/decoder"
)

var jpegDecoder = decoder.NewJPEGDecoder()

// ToRGBA converts one captured buffer of the given format and size.
// The result always has bounds (0,0)-(w,h).
func ToRGBA(f Format, data []byte, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadSize, w, h)
	}
	switch f {
	case YUYV:
		return yuyvToRGBA(data, w, h)
	case MJPEG:
		img, err := jpegDecoder.Decode(data)
		if err != nil {
			return nil, err
		}
		if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
			return nil, fmt.Errorf("%w: jpeg is %dx%d, want %dx%d", ErrBadSize, b.Dx(), b.Dy(), w, h)
		}
		return img, nil
	case RGB24:
		return packed24ToRGBA(data, w, h, 0, 2)
	case BGR24:
		return packed24ToRGBA(data, w, h, 2, 0)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, f)
}

// yuyvToRGBA unpacks Y0 Cb Y1 Cr quads; each quad covers two pixels.
func yuyvToRGBA(data []byte, w, h int) (*image.RGBA, error) {
	if w%2 != 0 {
		return nil, fmt.Errorf("%w: yuyv width %d is odd", ErrBadSize, w)
	}
	stride := w * 2
	if len(data) < stride*h {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, len(data), stride*h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := data[y*stride : (y+1)*stride]
		dst := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i, o := 0, 0; i < len(src); i, o = i+4, o+8 {
			cb, cr := src[i+1], src[i+3]
			r, g, b := color.YCbCrToRGB(src[i], cb, cr)
			dst[o], dst[o+1], dst[o+2], dst[o+3] = r, g, b, 0xFF
			r, g, b = color.YCbCrToRGB(src[i+2], cb, cr)
			dst[o+4], dst[o+5], dst[o+6], dst[o+7] = r, g, b, 0xFF
		}
	}
	return img, nil
}

// packed24ToRGBA expands 3-byte pixels; ri and bi give the red and blue byte
// positions, so BGR input only differs from RGB by the swap.
func packed24ToRGBA(data []byte, w, h, ri, bi int) (*image.RGBA, error) {
	need := w * h * 3
	if len(data) < need {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, len(data), need)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, o := 0, 0; i < need; i, o = i+3, o+4 {
		img.Pix[o] = data[i+ri]
		img.Pix[o+1] = data[i+1]
		img.Pix[o+2] = data[i+bi]
		img.Pix[o+3] = 0xFF
	}
	return img, nil
}
