// Package app provides the scanning session: the loaded photograph, picked
// points, the lattice, the active model, and the events raised as they change.
package app

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"plate-scanner/internal/calibration"
	"plate-scanner/internal/config"
	"plate-scanner/internal/grid"
	"plate-scanner/internal/image"
	"plate-scanner/internal/sampler"
	"plate-scanner/internal/scan"
	"plate-scanner/internal/viewport"
	"plate-scanner/pkg/geometry"

	"github.com/tliron/commonlog"
)

var (
	ErrNoImage       = errors.New("no image loaded")
	ErrNoLattice     = scan.ErrNoLattice
	ErrNoActiveModel = scan.ErrNoActiveModel
	ErrNoFitResult   = errors.New("no calibration has been fitted")
)

var log = commonlog.GetLogger("platescan.app")

// Phase is how far a session has progressed.
type Phase int

const (
	PhaseNoImage Phase = iota
	PhaseImageLoaded
	PhaseAnchorsPicked // lattice built
	PhaseCalibrating   // collecting calibration points
	PhaseModelFitted
	PhaseModelLoaded
	PhaseScanned
)

func (p Phase) String() string {
	switch p {
	case PhaseNoImage:
		return "NoImage"
	case PhaseImageLoaded:
		return "ImageLoaded"
	case PhaseAnchorsPicked:
		return "AnchorsPicked"
	case PhaseCalibrating:
		return "Calibrating"
	case PhaseModelFitted:
		return "ModelFitted"
	case PhaseModelLoaded:
		return "ModelLoaded"
	case PhaseScanned:
		return "Scanned"
	default:
		return "Unknown"
	}
}

// Mode decides what picked points are for.
type Mode int

const (
	ModeCalibrate Mode = iota // points are standard wells, in target order
	ModeScan                  // the last three points are the lattice anchors
)

func (m Mode) String() string {
	if m == ModeScan {
		return "scan"
	}
	return "calibrate"
}

// EventType identifies session events.
type EventType int

const (
	EventImageLoaded  EventType = iota // data: *Session
	EventModeChanged                   // data: Mode
	EventPointAdded                    // data: geometry.Point2D (real)
	EventLatticeBuilt                  // data: *grid.Lattice
	EventModelFitted                   // data: *calibration.FitResult
	EventModelChanged                  // data: calibration.Model
	EventScanComplete                  // data: *scan.Matrix
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Session holds one user's work on one photograph at a time. Reloading an
// image discards points, lattice, fit and scan results; the active model is
// kept (as a loaded model) so one curve can be applied to several plates.
type Session struct {
	mu sync.RWMutex

	cfg *config.Config

	frame     sampler.Frame
	imagePath string
	imageHash uint64
	viewport  viewport.Viewport

	layout  grid.Layout
	mode    Mode
	phase   Phase
	points  []geometry.Point2D // real coordinates, in pick order
	lattice *grid.Lattice
	fit     *calibration.FitResult
	model   *calibration.Model
	fitted  bool // model came from fit rather than the store
	matrix  *scan.Matrix

	listeners map[EventType][]EventListener
}

// NewSession creates an empty session. A nil cfg uses the defaults.
func NewSession(cfg *config.Config) *Session {
	if cfg == nil {
		cfg = &config.Config{
			DisplayWidth:      config.DefaultDisplayWidth,
			CalibrationRadius: config.DefaultCalibrationRadius,
			ScanRadius:        config.DefaultScanRadius,
			Layout:            config.DefaultLayout,
		}
	}
	return &Session{
		cfg:       cfg,
		layout:    cfg.PlateLayout(),
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// LoadImage decodes path and makes it the session's photograph.
func (s *Session) LoadImage(path string) error {
	buf, err := image.Load(path)
	if err != nil {
		return err
	}
	return s.Attach(buf, path, buf.Hash)
}

// Attach replaces the session's photograph with frame. If the previous frame
// is an io.Closer it is closed.
func (s *Session) Attach(frame sampler.Frame, path string, hash uint64) error {
	b := frame.Bounds()
	vp, err := viewport.New(b.Dx(), b.Dy(), s.cfg.DisplayWidth)
	if err != nil {
		return fmt.Errorf("failed to attach image: %w", err)
	}

	s.mu.Lock()
	old := s.frame
	s.frame = frame
	s.imagePath = path
	s.imageHash = hash
	s.viewport = vp
	s.points = nil
	s.lattice = nil
	s.fit = nil
	s.matrix = nil
	s.fitted = false
	s.settle()
	s.mu.Unlock()

	if c, ok := old.(io.Closer); ok && old != frame {
		c.Close()
	}

	log.Infof("image %s attached (%dx%d, display scale %.3f)", path, b.Dx(), b.Dy(), vp.ScaleX)
	s.Emit(EventImageLoaded, s)
	return nil
}

// Close releases the current frame.
func (s *Session) Close() error {
	s.mu.Lock()
	frame := s.frame
	s.frame = nil
	s.settle()
	s.mu.Unlock()

	if c, ok := frame.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SetMode switches between calibration and scanning and clears the points
// collected so far.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.points = nil
	s.settle()
	s.mu.Unlock()

	s.Emit(EventModeChanged, m)
}

// SetLayout selects the plate layout for the next lattice.
func (s *Session) SetLayout(l grid.Layout) {
	s.mu.Lock()
	s.layout = l
	s.mu.Unlock()
}

// AddPoint records a click given in display coordinates. In scan mode every
// third and later point rebuilds the lattice from the last three.
func (s *Session) AddPoint(display geometry.Point2D) (geometry.Point2D, error) {
	s.mu.RLock()
	vp := s.viewport
	s.mu.RUnlock()
	return s.AddRealPoint(vp.ToReal(display))
}

// AddRealPoint records a point already in real image coordinates.
func (s *Session) AddRealPoint(p geometry.Point2D) (geometry.Point2D, error) {
	s.mu.Lock()
	if s.frame == nil {
		s.mu.Unlock()
		return geometry.Point2D{}, ErrNoImage
	}
	s.points = append(s.points, p)
	var anchors *grid.Anchors
	if s.mode == ModeScan && len(s.points) >= 3 {
		n := len(s.points)
		anchors = &grid.Anchors{A1: s.points[n-3], RowEnd: s.points[n-2], ColumnEnd: s.points[n-1]}
	}
	s.settle()
	s.mu.Unlock()

	s.Emit(EventPointAdded, p)

	if anchors != nil {
		if _, err := s.SetAnchors(*anchors); err != nil {
			return p, err
		}
	}
	return p, nil
}

// Points returns the real coordinates collected in the current mode.
func (s *Session) Points() []geometry.Point2D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]geometry.Point2D(nil), s.points...)
}

// ClearPoints drops the collected points.
func (s *Session) ClearPoints() {
	s.mu.Lock()
	s.points = nil
	s.settle()
	s.mu.Unlock()
}

// SetAnchors builds the lattice from real-coordinate anchors. A degenerate
// triple leaves the previous lattice in place.
func (s *Session) SetAnchors(a grid.Anchors) (*grid.Lattice, error) {
	s.mu.Lock()
	if s.frame == nil {
		s.mu.Unlock()
		return nil, ErrNoImage
	}
	lat, err := grid.BuildLattice(s.layout, a)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.lattice = lat
	s.matrix = nil
	s.settle()
	s.mu.Unlock()

	log.Debugf("lattice built: col step %v, row step %v", lat.ColStep, lat.RowStep)
	s.Emit(EventLatticeBuilt, lat)
	return lat, nil
}

// Calibrate samples the collected points and fits every channel against
// targets. The best model becomes active.
func (s *Session) Calibrate(targets []float64) (*calibration.FitResult, error) {
	s.mu.RLock()
	frame := s.frame
	points := append([]geometry.Point2D(nil), s.points...)
	radius := s.cfg.CalibrationRadius
	s.mu.RUnlock()

	if frame == nil {
		return nil, ErrNoImage
	}

	results := sampler.Points(frame, points, radius)
	for i, r := range results {
		if !r.OK {
			log.Warningf("calibration point %d at %v could not be sampled", i+1, r.Point)
		}
	}

	fit, err := calibration.Fit(sampler.Valid(results), targets)
	if err != nil {
		return nil, err
	}
	best, ok := fit.Best()
	if !ok {
		return fit, calibration.ErrFitFailed
	}

	s.mu.Lock()
	s.fit = fit
	s.model = &best
	s.fitted = true
	s.matrix = nil
	s.settle()
	s.mu.Unlock()

	s.Emit(EventModelFitted, fit)
	s.Emit(EventModelChanged, best)
	return fit, nil
}

// SelectChannel makes the fitted model of another channel active.
func (s *Session) SelectChannel(ch sampler.Channel) (calibration.Model, error) {
	s.mu.Lock()
	if s.fit == nil {
		s.mu.Unlock()
		return calibration.Model{}, ErrNoFitResult
	}
	m, ok := s.fit.ForChannel(ch)
	if !ok {
		s.mu.Unlock()
		return calibration.Model{}, fmt.Errorf("channel %s: %w", ch, calibration.ErrDegenerateChannel)
	}
	s.model = &m
	s.matrix = nil
	s.settle()
	s.mu.Unlock()

	s.Emit(EventModelChanged, m)
	return m, nil
}

// UseModel activates a model from the store.
func (s *Session) UseModel(m calibration.Model) {
	s.mu.Lock()
	s.model = &m
	s.fitted = false
	s.matrix = nil
	s.settle()
	s.mu.Unlock()

	s.Emit(EventModelChanged, m)
}

// Scan applies the active model at every lattice point.
func (s *Session) Scan() (*scan.Matrix, error) {
	s.mu.RLock()
	frame, lattice, model := s.frame, s.lattice, s.model
	radius := s.cfg.ScanRadius
	s.mu.RUnlock()

	if frame == nil {
		return nil, ErrNoImage
	}
	m, err := scan.Apply(model, lattice, frame, radius)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.matrix = m
	s.settle()
	s.mu.Unlock()

	s.Emit(EventScanComplete, m)
	return m, nil
}

// settle derives the phase from what the session holds. Callers hold mu.
func (s *Session) settle() {
	switch {
	case s.frame == nil:
		s.phase = PhaseNoImage
	case s.matrix != nil:
		s.phase = PhaseScanned
	case s.model != nil && s.fitted:
		s.phase = PhaseModelFitted
	case s.model != nil:
		s.phase = PhaseModelLoaded
	case s.mode == ModeCalibrate && len(s.points) > 0:
		s.phase = PhaseCalibrating
	case s.lattice != nil:
		s.phase = PhaseAnchorsPicked
	default:
		s.phase = PhaseImageLoaded
	}
}

// Phase returns the session's current phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Mode returns the current picking mode.
func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Layout returns the plate layout lattices are built for.
func (s *Session) Layout() grid.Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout
}

// Viewport returns the display mapping of the current image.
func (s *Session) Viewport() viewport.Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

// Image returns the current frame with its path and fingerprint.
func (s *Session) Image() (frame sampler.Frame, path string, hash uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.imagePath, s.imageHash
}

// Lattice returns the current lattice, or nil.
func (s *Session) Lattice() *grid.Lattice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lattice
}

// FitResult returns the last calibration fit, or nil.
func (s *Session) FitResult() *calibration.FitResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fit
}

// Model returns the active model.
func (s *Session) Model() (calibration.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return calibration.Model{}, false
	}
	return *s.model, true
}

// Matrix returns the last scan result, or nil.
func (s *Session) Matrix() *scan.Matrix {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matrix
}
