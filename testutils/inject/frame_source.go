package inject

import (
	"context"

	"go.viam.com/camcal/rimage/calibration"
)

// FrameSource is an injected frame source.
type FrameSource struct {
	calibration.FrameSource
	CaptureCompressedFunc func(ctx context.Context) ([]byte, error)
}

// CaptureCompressed calls the injected CaptureCompressed or the real version.
func (s *FrameSource) CaptureCompressed(ctx context.Context) ([]byte, error) {
	if s.CaptureCompressedFunc == nil {
		return s.FrameSource.CaptureCompressed(ctx)
	}
	return s.CaptureCompressedFunc(ctx)
}
