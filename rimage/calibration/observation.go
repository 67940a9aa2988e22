package calibration

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// ViewObservation is the detection result of one image. A detected view holds exactly Rows*Cols
// corners ordered like CalibrationTarget.ObjectPoints; an undetected one holds none.
type ViewObservation struct {
	Index    int
	Corners  []r2.Point
	Detected bool
}

// ImageSize is the size in pixels shared by all images of a calibration.
type ImageSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func imageSizeOf(img image.Image) ImageSize {
	b := img.Bounds()
	return ImageSize{Width: b.Dx(), Height: b.Dy()}
}

// CorrespondenceSet pairs the detected views with the target they observe. Only detected views
// are kept, in image order.
type CorrespondenceSet struct {
	Target    CalibrationTarget
	Views     []ViewObservation
	ImageSize ImageSize
}

// Validate checks that every view is detected with one corner per object point.
func (s *CorrespondenceSet) Validate() error {
	if err := s.Target.Validate(); err != nil {
		return err
	}
	if s.ImageSize.Width <= 0 || s.ImageSize.Height <= 0 {
		return errors.Errorf("invalid image size %dx%d", s.ImageSize.Width, s.ImageSize.Height)
	}
	if len(s.Views) == 0 {
		return ErrEmptyCorrespondences
	}
	n := s.Target.NumCorners()
	for _, v := range s.Views {
		if !v.Detected {
			return errors.Errorf("view of image %d is not detected", v.Index)
		}
		if len(v.Corners) != n {
			return errors.Errorf("view of image %d has %d corners, expected %d", v.Index, len(v.Corners), n)
		}
	}
	return nil
}
