// Package app provides the measurement session: the open document, its
// active scale, measurement ledger and annotations, and session events.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"histo-analyzer/internal/calibration"
	"histo-analyzer/internal/image"
	"histo-analyzer/internal/measure"
	"histo-analyzer/internal/morphometry"
	"histo-analyzer/internal/project"
	"histo-analyzer/pkg/geometry"
)

var (
	// ErrNoScaleLine is returned by ApplyLineCalibration before a scale line was drawn.
	ErrNoScaleLine = errors.New("no scale line drawn")
	// ErrNoThicknessPair is returned when thickness needs two boundary curves that do not exist.
	ErrNoThicknessPair = errors.New("draw both thickness_1 and thickness_2 curves")
	// ErrUnknownStroke is returned for an unrecognized stroke kind.
	ErrUnknownStroke = errors.New("unknown stroke kind")
)

// StrokeKind tags a point sequence emitted by the canvas.
type StrokeKind string

const (
	StrokeLine       StrokeKind = "line"
	StrokePolyline   StrokeKind = "polyline"
	StrokeArea       StrokeKind = "area"
	StrokeThickness1 StrokeKind = "thickness_1"
	StrokeThickness2 StrokeKind = "thickness_2"
	StrokeScaleLine  StrokeKind = "scale_line"
)

// Valid reports whether k is a stroke kind the session handles.
func (k StrokeKind) Valid() bool {
	switch k {
	case StrokeLine, StrokePolyline, StrokeArea, StrokeThickness1, StrokeThickness2, StrokeScaleLine:
		return true
	}
	return false
}

// Stroke is one finished drawing on the canvas.
type Stroke struct {
	Kind   StrokeKind
	Points []geometry.Point2D
}

// StrokeResult reports what a stroke produced. At most one field is set.
type StrokeResult struct {
	Measurement *measure.Measurement
	ScalePx     *float64 // pixel length of a scale line
}

// EventType identifies different session events.
type EventType int

const (
	EventProjectLoaded EventType = iota
	EventProjectSaved
	EventImageLoaded
	EventMeasurementAdded
	EventMeasurementsChanged
	EventScaleChanged
	EventProfilesChanged
	EventModified
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State holds one measurement session. Operations other than On and Emit
// are meant to be called from a single goroutine.
type State struct {
	mu sync.RWMutex

	// Project
	ProjectPath string
	Modified    bool
	Created     time.Time

	// Document
	ImagePath string
	Image     *image.Source
	MaskPath  string

	// Calibration
	Scale   calibration.ActiveScale
	Library *calibration.Library

	// Measurements and drawn shapes
	Ledger      *measure.Ledger
	Annotations []project.Annotation

	pendingScalePx   *float64
	thicknessSamples int
	labels           measure.UnitLabels
	now              func() time.Time

	// Event listeners
	listeners map[EventType][]EventListener
}

// Option configures a State.
type Option func(*State)

// WithLabels selects the physical unit labels.
func WithLabels(labels measure.UnitLabels) Option {
	return func(s *State) { s.labels = labels }
}

// WithThicknessSamples sets how many points each thickness boundary is resampled to.
func WithThicknessSamples(n int) Option {
	return func(s *State) { s.thicknessSamples = n }
}

// WithClock overrides the time source for measurements and profiles.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// NewState creates a session with no document open. library may be nil, in
// which case profiles live only in the session and its project files.
func NewState(library *calibration.Library, opts ...Option) *State {
	s := &State{
		Library:          library,
		thicknessSamples: geometry.DefaultResampleCount,
		labels:           measure.CyrillicLabels,
		now:              time.Now,
		listeners:        make(map[EventType][]EventListener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Library == nil {
		s.Library = calibration.NewSessionLibrary()
	}
	s.reset()
	return s
}

func (s *State) reset() {
	s.Scale = calibration.ActiveScale{Mode: calibration.ModeNone}
	s.Ledger = measure.NewLedger(&s.Scale, measure.WithLabels(s.labels), measure.WithClock(s.now))
	s.Annotations = nil
	s.pendingScalePx = nil
	s.ImagePath = ""
	s.Image = nil
	s.MaskPath = ""
	s.ProjectPath = ""
	s.Created = s.now()
	s.Modified = false
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the project as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.Modified = modified
	s.Emit(EventModified, modified)
}

// NewDocument starts a fresh document for imagePath. The scale, ledger and
// annotations are reset. The image is decoded and fingerprinted when
// possible; a decode failure is logged and leaves Image nil.
func (s *State) NewDocument(imagePath string) {
	s.reset()
	s.loadImage(imagePath)
}

func (s *State) loadImage(imagePath string) {
	s.ImagePath = imagePath
	if imagePath == "" {
		return
	}
	src, err := image.Load(imagePath)
	if err != nil {
		slog.Warn("image not loaded", "path", imagePath, "error", err)
		return
	}
	s.Image = src
	slog.Info("image loaded", "path", imagePath, "width", src.Width(), "height", src.Height(), "hash", src.Hash)
	s.Emit(EventImageLoaded, src)
}

// ImageHash returns the fingerprint of the open image, or "".
func (s *State) ImageHash() string {
	if s.Image == nil {
		return ""
	}
	return s.Image.Hash
}

// HandleStroke turns a finished canvas stroke into a measurement, an
// annotation or a pending scale line. Strokes with too few points are not
// rejected: they measure 0, and a degenerate scale line yields a very large
// but finite scale once applied.
func (s *State) HandleStroke(st Stroke) (StrokeResult, error) {
	if !st.Kind.Valid() {
		return StrokeResult{}, fmt.Errorf("%w: %q", ErrUnknownStroke, st.Kind)
	}

	switch st.Kind {
	case StrokeLine:
		p := endpoints(st.Points)
		m := s.addMeasurement(measure.KindLine, geometry.PolylineLength(p), measure.PointCountDetails(len(p)))
		return StrokeResult{Measurement: &m}, nil
	case StrokePolyline:
		m := s.addMeasurement(measure.KindPolyline, geometry.PolylineLength(st.Points), measure.PointCountDetails(len(st.Points)))
		return StrokeResult{Measurement: &m}, nil
	case StrokeArea:
		m := s.addMeasurement(measure.KindArea, geometry.PolygonArea(st.Points), measure.PointCountDetails(len(st.Points)))
		return StrokeResult{Measurement: &m}, nil
	case StrokeThickness1:
		s.addAnnotation(st)
		return StrokeResult{}, nil
	case StrokeThickness2:
		s.addAnnotation(st)
		first, ok := s.latestAnnotation(StrokeThickness1)
		if !ok {
			return StrokeResult{}, nil
		}
		m := s.MeasureThickness(first, st.Points)
		return StrokeResult{Measurement: &m}, nil
	default: // StrokeScaleLine
		d := geometry.PolylineLength(endpoints(st.Points))
		s.pendingScalePx = &d
		slog.Debug("scale line drawn", "px", d)
		return StrokeResult{ScalePx: &d}, nil
	}
}

// endpoints returns at most the first two points of a straight-line stroke.
func endpoints(points []geometry.Point2D) []geometry.Point2D {
	return points[:min(2, len(points))]
}

// MeasureThickness records the thickness distribution between two boundary
// curves. The mean becomes the measurement value.
func (s *State) MeasureThickness(a, b []geometry.Point2D) measure.Measurement {
	dist := morphometry.ThicknessDistribution(a, b, s.thicknessSamples)
	return s.addMeasurement(measure.KindThickness, dist.Mean, measure.DistributionDetails(dist))
}

// ComputeThickness pairs the most recent thickness_1 and thickness_2 curves.
func (s *State) ComputeThickness() (measure.Measurement, error) {
	a, okA := s.latestAnnotation(StrokeThickness1)
	b, okB := s.latestAnnotation(StrokeThickness2)
	if !okA || !okB {
		return measure.Measurement{}, ErrNoThicknessPair
	}
	return s.MeasureThickness(a, b), nil
}

func (s *State) addMeasurement(kind measure.Kind, valuePx float64, details measure.Details) measure.Measurement {
	m := s.Ledger.Add(kind, valuePx, details)
	slog.Debug("measurement added", "type", m.Kind, "value_px", m.ValuePx, "units", m.Units)
	s.Emit(EventMeasurementAdded, m)
	s.SetModified(true)
	return m
}

func (s *State) addAnnotation(st Stroke) {
	pts := make([]geometry.Point2D, len(st.Points))
	copy(pts, st.Points)
	s.Annotations = append(s.Annotations, project.Annotation{Type: string(st.Kind), Points: pts})
	s.SetModified(true)
}

func (s *State) latestAnnotation(kind StrokeKind) ([]geometry.Point2D, bool) {
	for i := len(s.Annotations) - 1; i >= 0; i-- {
		if s.Annotations[i].Type == string(kind) {
			return s.Annotations[i].Points, true
		}
	}
	return nil, false
}

// DeleteMeasurements removes the records at the given positions.
func (s *State) DeleteMeasurements(indices ...int) int {
	n := s.Ledger.Delete(indices...)
	if n > 0 {
		s.Emit(EventMeasurementsChanged, s.Ledger.Len())
		s.SetModified(true)
	}
	return n
}

// ClearMeasurements empties the ledger.
func (s *State) ClearMeasurements() {
	s.Ledger.Clear()
	s.Emit(EventMeasurementsChanged, 0)
	s.SetModified(true)
}

// PendingScaleLine returns the pixel length of the last scale line, if any.
func (s *State) PendingScaleLine() (float64, bool) {
	if s.pendingScalePx == nil {
		return 0, false
	}
	return *s.pendingScalePx, true
}

// ApplyLineCalibration sets the scale from the pending scale line and its
// real length in micrometers.
func (s *State) ApplyLineCalibration(realUm float64) (float64, error) {
	px, ok := s.PendingScaleLine()
	if !ok {
		return 0, ErrNoScaleLine
	}
	v := calibration.LineScale(px, realUm)
	if err := s.ApplyScale(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ApplyScale sets a manually entered micrometers-per-pixel factor.
func (s *State) ApplyScale(umPerPx float64) error {
	if err := s.Scale.Set(umPerPx, calibration.ModeLine); err != nil {
		return err
	}
	s.scaleChanged()
	return nil
}

// SaveLineProfile stores the pending scale line calibration as a named profile
// without selecting it.
func (s *State) SaveLineProfile(name, objective string, realUm float64) (calibration.Profile, error) {
	px, ok := s.PendingScaleLine()
	if !ok {
		return calibration.Profile{}, ErrNoScaleLine
	}
	p, err := calibration.LineProfile(name, objective, px, realUm, s.ImageHash(), s.now())
	if err != nil {
		return calibration.Profile{}, err
	}
	if err := s.saveProfile(p); err != nil {
		return calibration.Profile{}, err
	}
	return p, nil
}

// CalibrateMicrometer builds a profile from a stage micrometer session, saves
// it and makes it the active scale.
func (s *State) CalibrateMicrometer(name string, m calibration.Micrometer) (calibration.Profile, error) {
	p, err := m.Profile(name, s.ImageHash(), s.now())
	if err != nil {
		return calibration.Profile{}, err
	}
	if err := s.saveProfile(p); err != nil {
		return calibration.Profile{}, err
	}
	slog.Info("micrometer calibration", "profile", p.Name, "um_per_px", p.UmPerPx, "sd", p.SD, "n_repeats", p.NRepeats)
	s.Scale.Select(p)
	s.scaleChanged()
	return p, nil
}

func (s *State) saveProfile(p calibration.Profile) error {
	if err := s.Library.Save(p); err != nil {
		return err
	}
	s.Emit(EventProfilesChanged, p.Name)
	s.SetModified(true)
	return nil
}

// SelectProfile makes the named profile the active scale.
func (s *State) SelectProfile(name string) error {
	p, ok := s.Library.Get(name)
	if !ok {
		return fmt.Errorf("%w: %q", calibration.ErrProfileNotFound, name)
	}
	s.Scale.Select(p)
	s.scaleChanged()
	return nil
}

// ClearProfile drops the active calibration.
func (s *State) ClearProfile() {
	s.Scale.Clear()
	s.scaleChanged()
}

// DeleteProfile removes a profile from the library. The active scale keeps its
// value but is no longer tied to the deleted profile.
func (s *State) DeleteProfile(name string) error {
	if err := s.Library.Delete(name); err != nil {
		return err
	}
	if s.Scale.ProfileName == name && s.Scale.UmPerPx != nil {
		_ = s.Scale.Set(*s.Scale.UmPerPx, calibration.ModeLine)
		s.Emit(EventScaleChanged, s.Scale)
	}
	s.Emit(EventProfilesChanged, name)
	return nil
}

// scaleChanged re-converts the ledger after the active scale changed.
func (s *State) scaleChanged() {
	s.Ledger.RecalculateWithScale(s.Scale.ScaleFactor())
	slog.Info("scale changed", "scale", s.Scale.String())
	s.Emit(EventScaleChanged, s.Scale)
	s.Emit(EventMeasurementsChanged, s.Ledger.Len())
	s.SetModified(true)
}

// Summary aggregates the ledger at the active scale.
func (s *State) Summary() measure.Summary {
	return s.Ledger.Summary()
}
