package extractfaces

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNotAnImage is returned when a file cannot be read or decoded as an image.
	ErrNotAnImage = errors.New("not a decodable image")
	// ErrWriteFailed is returned when an output image cannot be encoded or written.
	ErrWriteFailed = errors.New("could not write image")
)

// DecodeImage reads the image found at path and returns it in NRGBA form with
// the EXIF orientation applied. The returned format is the extension matching
// the sniffed content type, without the leading dot (e.g. "jpg", "png").
func DecodeImage(path string) (*image.NRGBA, string, error) {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, "", fmt.Errorf("%w: %s has content type %s", ErrNotAnImage, path, mime.String())
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return imaging.Clone(img), strings.TrimPrefix(mime.Extension(), "."), nil
}

// EncodeImage writes img to path, overwriting any existing file.
// The encoder is chosen from the file extension.
func EncodeImage(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailed, path, err)
	}
	return nil
}

// CropFace cuts the box out of src and resizes it to width x height.
// The source image is left untouched.
func CropFace(src image.Image, b Box, width, height int) *image.NRGBA {
	face := imaging.Crop(src, b.Rect())
	return imaging.Resize(face, width, height, imaging.Linear)
}
