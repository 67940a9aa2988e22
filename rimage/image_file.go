package rimage

import (
	"bytes"
	"image"
	// registers gif, jpeg and png decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	// registers bmp, tiff and webp decoders.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes a compressed frame, returning the image and its format name.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errors.New("cannot decode an empty frame")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Wrap(err, "decoding frame")
	}
	return img, format, nil
}

// ReadImageFromFile reads an image from disk, applying any EXIF orientation.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "reading image %q", path)
	}
	return img, nil
}

// WriteImageToFile writes the image to disk, the format follows the file extension.
func WriteImageToFile(path string, img image.Image) error {
	return errors.Wrapf(imaging.Save(img, path), "writing image %q", path)
}
