package calibration

import (
	"context"
	"image"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/camcal/logging"
)

// AccumulateOptions tune the detection of the pattern over a batch of images.
type AccumulateOptions struct {
	// Workers bounds the number of images processed at once. Zero means GOMAXPROCS.
	Workers int
	Logger  logging.Logger
}

func (opts AccumulateOptions) workers() int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (opts AccumulateOptions) logger() logging.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return logging.NewBlankLogger("calibration")
}

// Accumulate runs the detector over every image and pairs the detected corners with the target.
// Images are processed concurrently but the returned views keep the input order. Every skipped
// image, undetected or of a different size than the first image, gets one Diagnostic.
func Accumulate(
	ctx context.Context,
	images []image.Image,
	target CalibrationTarget,
	detector Detector,
	opts AccumulateOptions,
) (*CorrespondenceSet, []Diagnostic, error) {
	if len(images) == 0 {
		return nil, nil, ErrEmptyInput
	}
	if err := target.Validate(); err != nil {
		return nil, nil, err
	}
	logger := opts.logger()
	size := imageSizeOf(images[0])

	results := make([]ViewObservation, len(images))
	skipped := make([]error, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, img := range images {
		if got := imageSizeOf(img); got != size {
			skipped[i] = errors.Wrapf(ErrImageSizeMismatch, "got %dx%d, expected %dx%d",
				got.Width, got.Height, size.Width, size.Height)
			continue
		}
		i, img := i, img
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			obs := detector.Detect(img, target.Rows, target.Cols)
			obs.Index = i
			results[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	set := &CorrespondenceSet{Target: target, ImageSize: size}
	var diags []Diagnostic
	for i, obs := range results {
		reason := skipped[i]
		if reason == nil {
			switch {
			case !obs.Detected:
				reason = ErrNotDetected
			case len(obs.Corners) != target.NumCorners():
				reason = errors.Wrapf(ErrNotDetected, "got %d corners, expected %d", len(obs.Corners), target.NumCorners())
			}
		}
		if reason != nil {
			logger.Debugw("skipping image", "image", i, "reason", reason)
			diags = append(diags, Diagnostic{Stage: StageDetect, Index: i, Err: reason})
			continue
		}
		set.Views = append(set.Views, obs)
	}
	logger.Infow("pattern detection done", "images", len(images), "detected", len(set.Views), "skipped", len(diags))

	if len(set.Views) == 0 {
		return nil, diags, ErrEmptyCorrespondences
	}
	return set, diags, nil
}
