package app

import (
	"fmt"
	"time"

	"github.com/ayusman/safedistance/internal/capture"
	"github.com/ayusman/safedistance/internal/monitoring"
	"github.com/ayusman/safedistance/internal/overlay"
	"github.com/ayusman/safedistance/internal/pipeline"
	"gocv.io/x/gocv"
)

// jpegQuality is used when encoding annotated frames.
const jpegQuality = 85

// runPipeline is the session loop. Each tick it reads a frame, orients it,
// detects bodies, runs the frame pipeline against a settings snapshot and
// publishes the annotated result.
//
// A result finished after stopCh is closed is dropped.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}, driver *pipeline.Driver) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.processFrame(driver)
			if err != nil {
				a.logOnce.Logf("Error processing frame: %v", err)
				continue
			}

			select {
			case <-stopCh:
				return
			default:
			}

			a.alerts.observe(frame.Result, frame.Settings, frame.Timestamp)
			a.publish(frame)
		}
	}
}

// processFrame runs one camera frame through the pipeline.
func (a *App) processFrame(driver *pipeline.Driver) (*Frame, error) {
	raw, err := a.camera.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	defer raw.Close()

	rotation, facing := a.Orientation()
	cfg := a.settings.Snapshot()
	in := pipeline.Input{
		Width:       raw.Cols(),
		Height:      raw.Rows(),
		Rotation:    rotation,
		FrontFacing: facing.Mirrored(),
	}

	upright, err := capture.Orient(*raw, rotation)
	if err != nil {
		// The driver reports the invalid geometry as a skipped frame.
		res := driver.Process(in, cfg)
		a.logErrors(res)
		return &Frame{Timestamp: time.Now(), Result: res, Settings: cfg}, nil
	}
	defer upright.Close()

	if d := a.Detector(); d != nil {
		bodies, err := d.Detect(&upright)
		if err != nil {
			a.logOnce.Logf("Error detecting poses: %v", err)
		}
		in.Bodies = bodies
	}

	res := driver.Process(in, cfg)
	a.logErrors(res)

	frame := &Frame{Timestamp: time.Now(), Result: res, Settings: cfg}
	if !res.Skipped {
		jpeg, err := encodeFrame(upright, res)
		if err != nil {
			return nil, err
		}
		frame.JPEG = jpeg
	}
	return frame, nil
}

func (a *App) logErrors(res pipeline.Result) {
	for _, e := range res.Errors {
		a.logOnce.Logf("%s", e)
	}
	if res.GeometryChanged {
		monitoring.Logf("Frame geometry %dx%d rotation %d mirrored=%t",
			res.Geometry.Width, res.Geometry.Height, res.Geometry.Rotation, res.Geometry.Mirrored)
	}
}

// encodeFrame draws the result's commands over the upright frame and
// returns it as JPEG.
func encodeFrame(upright gocv.Mat, res pipeline.Result) ([]byte, error) {
	out := overlay.Compose(upright, res.Mapper, res.Commands)
	defer out.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, out, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// publish stores f as the latest frame and hands it to every sink.
func (a *App) publish(f *Frame) {
	a.mu.Lock()
	a.seq++
	f.Seq = a.seq
	a.latest = f
	sinks := make([]Sink, len(a.sinks))
	copy(sinks, a.sinks)
	a.mu.Unlock()

	for _, s := range sinks {
		s.Publish(f)
	}
}
