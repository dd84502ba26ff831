// Package capture provides camera capture and frame orientation using GoCV
// (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/safedistance/internal/monitoring"
)

// Capture defaults. The requested size is a hint; drivers may deliver
// another resolution.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a closed camera.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrReadFailed is returned when the device delivers no frame.
	ErrReadFailed = errors.New("camera read failed")
	// ErrEmptyFrame is returned when the device delivers an empty frame.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Camera is a source of raw sensor frames. Frames are returned as delivered
// by the sensor, before rotation. The caller closes every returned Mat.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
	Device() int
}

// DeviceOptions selects a capture device and the format requested from it.
type DeviceOptions struct {
	ID     int
	Width  int
	Height int
	FPS    int
}

func (o DeviceOptions) withDefaults() DeviceOptions {
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = DefaultWidth, DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	return o
}

// device reads frames from a gocv.VideoCapture.
type device struct {
	mu   sync.Mutex
	opts DeviceOptions
	vc   *gocv.VideoCapture
}

// NewCamera returns a camera for deviceID with the default capture format.
func NewCamera(deviceID int) Camera {
	return NewDevice(DeviceOptions{ID: deviceID})
}

// NewDevice returns a closed camera for opts.
func NewDevice(opts DeviceOptions) Camera {
	return &device{opts: opts.withDefaults()}
}

// Open starts capture. Opening an open camera is a no-op.
func (d *device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.opts.ID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", d.opts.ID, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.opts.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.opts.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.opts.FPS))

	w := int(vc.Get(gocv.VideoCaptureFrameWidth))
	h := int(vc.Get(gocv.VideoCaptureFrameHeight))
	if w != d.opts.Width || h != d.opts.Height {
		monitoring.Logf("Camera %d delivers %dx%d (requested %dx%d)", d.opts.ID, w, h, d.opts.Width, d.opts.Height)
	}

	d.vc = vc
	return nil
}

// Close releases the device. Closing a closed camera is a no-op.
func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil
	}
	err := d.vc.Close()
	d.vc = nil
	return err
}

// ReadFrame grabs the next sensor frame.
func (d *device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if !d.vc.Read(&mat) {
		mat.Close()
		return nil, fmt.Errorf("camera %d: %w", d.opts.ID, ErrReadFailed)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("camera %d: %w", d.opts.ID, ErrEmptyFrame)
	}
	return &mat, nil
}

// SetFPS changes the requested frame rate. Non-positive values are ignored.
func (d *device) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.opts.FPS = fps
	if d.vc != nil {
		d.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (d *device) FPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts.FPS
}

func (d *device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vc != nil
}

func (d *device) Device() int {
	return d.opts.ID
}
