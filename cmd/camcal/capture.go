package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/rimage"
	"go.viam.com/camcal/rimage/calibration"
	"go.viam.com/camcal/rimage/detection/chessboard"
)

// maxFrameBytes bounds the size of a snapshot.
const maxFrameBytes = 32 << 20

// httpFrameSource fetches one compressed frame per GET request.
type httpFrameSource struct {
	client *http.Client
	url    string
}

func (s *httpFrameSource) CaptureCompressed(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("snapshot request returned %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
}

func captureAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	outDir := c.Path(flagOutDir)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	logger := logging.Global()
	detector := calibration.NewDetector(chessboard.NewDetector(cfg.Detection, logger.Sublogger("chessboard")))
	src := &httpFrameSource{client: http.DefaultClient, url: c.String(flagURL)}

	frames, err := calibration.CollectFrames(c.Context, src, calibration.AcceptDetected(cfg.Target, detector),
		c.Int(flagCount), calibration.CaptureOptions{Logger: logger})
	if err != nil {
		return err
	}
	for i, f := range frames {
		if err := writeFrame(outDir, i, f); err != nil {
			return err
		}
	}
	logger.Infow("frames saved", "count", len(frames), "dir", outDir)
	return nil
}

// writeFrame saves a frame as calibration_image_<i>.png so that the default image glob of the
// calibrate command picks it up. PNG frames are written as received, others are re-encoded.
func writeFrame(dir string, i int, f calibration.Frame) error {
	path := filepath.Join(dir, fmt.Sprintf("calibration_image_%d.png", i))
	if f.Format != "png" {
		return rimage.WriteImageToFile(path, f.Image)
	}
	return errors.Wrapf(os.WriteFile(path, f.Data, 0o600), "writing %q", path)
}
