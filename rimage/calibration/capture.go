package calibration

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/rimage"
)

// A FrameSource hands out compressed camera frames, e.g. PNG or JPEG bytes from a remote camera.
type FrameSource interface {
	CaptureCompressed(ctx context.Context) ([]byte, error)
}

// Frame is one decoded capture. Index counts every decoded frame of the source, kept or not.
type Frame struct {
	Index  int
	Data   []byte
	Format string
	Image  image.Image
}

// A FrameSelector decides which frames are kept for calibration, e.g. on a key press.
type FrameSelector interface {
	Accept(ctx context.Context, frame Frame) (bool, error)
}

// FrameSelectorFunc adapts a function to the FrameSelector interface.
type FrameSelectorFunc func(ctx context.Context, frame Frame) (bool, error)

// Accept calls f.
func (f FrameSelectorFunc) Accept(ctx context.Context, frame Frame) (bool, error) {
	return f(ctx, frame)
}

// AcceptAll keeps every frame.
var AcceptAll = FrameSelectorFunc(func(context.Context, Frame) (bool, error) { return true, nil })

// AcceptDetected keeps the frames where detector finds the target.
func AcceptDetected(target CalibrationTarget, detector Detector) FrameSelector {
	return FrameSelectorFunc(func(_ context.Context, frame Frame) (bool, error) {
		return detector.Detect(frame.Image, target.Rows, target.Cols).Detected, nil
	})
}

// CaptureOptions configure CollectFrames.
type CaptureOptions struct {
	// QueueSize is the number of decoded frames waiting for the selector. Zero means 4.
	QueueSize int
	Logger    logging.Logger
}

// CollectFrames captures frames from src until the selector has accepted n of them. Capture and
// decoding run in their own goroutine, ahead of the selector by at most QueueSize frames. Frames
// that fail to decode are dropped. A capture or selector error, or the end of ctx, aborts the
// collection and no frame is returned.
func CollectFrames(ctx context.Context, src FrameSource, accept FrameSelector, n int, opts CaptureOptions) ([]Frame, error) {
	if n < 1 {
		return nil, errors.Errorf("number of frames must be positive, got %d", n)
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewBlankLogger("capture")
	}

	produceCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	frames := make(chan Frame, queueSize)
	var produceErr error
	var wg sync.WaitGroup
	wg.Add(1)
	goutils.PanicCapturingGo(func() {
		defer wg.Done()
		defer close(frames)
		produceErr = produceFrames(produceCtx, src, frames, logger)
	})

	var accepted []Frame
	var selectErr error
	for frame := range frames {
		ok, err := accept.Accept(ctx, frame)
		if err != nil {
			selectErr = errors.Wrapf(err, "selecting frame %d", frame.Index)
			break
		}
		if !ok {
			continue
		}
		logger.Debugw("frame accepted", "frame", frame.Index, "accepted", len(accepted)+1)
		if accepted = append(accepted, frame); len(accepted) == n {
			break
		}
	}
	cancel()
	wg.Wait()

	switch {
	case selectErr != nil:
		return nil, selectErr
	case len(accepted) == n:
		return accepted, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case produceErr != nil:
		return nil, produceErr
	default:
		return nil, errors.New("frame source stopped")
	}
}

func produceFrames(ctx context.Context, src FrameSource, out chan<- Frame, logger logging.Logger) error {
	for seq := 0; ; {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := src.CaptureCompressed(ctx)
		if err != nil {
			return errors.Wrap(err, "capturing frame")
		}
		img, format, err := rimage.DecodeImage(data)
		if err != nil {
			logger.Warnw("dropping undecodable frame", "error", err)
			continue
		}
		select {
		case out <- Frame{Index: seq, Data: data, Format: format, Image: img}:
			seq++
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
