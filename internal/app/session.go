// Package app provides the application session: the loaded photograph, its
// detected landmarks and the generated texture, with change events.
package app

import (
	"context"
	"errors"
	"fmt"
	goimage "image"
	"sync"

	"go.uber.org/zap"

	"facewarp/internal/config"
	"facewarp/internal/image"
	"facewarp/internal/landmark"
	"facewarp/internal/overlay"
	"facewarp/internal/topology"
	"facewarp/internal/warp"
	"facewarp/pkg/colorutil"
	"facewarp/pkg/geometry"
)

var (
	// ErrNoImage is returned when an operation needs a source photograph.
	ErrNoImage = errors.New("no image loaded")
	// ErrNoFace is returned by Generate when detection found no face.
	ErrNoFace = errors.New("no face detected")
	// ErrNotDetected is returned by Generate before detection has run.
	ErrNotDetected = errors.New("landmarks not detected yet")
	// ErrNoTexture is returned by SaveTexture before a texture exists.
	ErrNoTexture = errors.New("no texture generated")
)

// EventType identifies different session events.
type EventType int

const (
	EventImageLoaded EventType = iota
	EventDetectionStarted
	EventDetectionComplete
	EventTextureGenerated
	EventTextureSaved
	EventError
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// Session holds the state of one unwrap workflow.
type Session struct {
	mu sync.RWMutex

	cfg      *config.Config
	log      *zap.Logger
	topo     *topology.Topology
	engine   *warp.Engine
	detector landmark.Detector

	source   *image.Layer
	result   landmark.Result
	detected bool
	texture  *goimage.RGBA
	// generation increments with every new source so late detections of a
	// replaced image are dropped.
	generation int

	listeners map[EventType][]EventListener
}

// NewSession creates a session over topo using detector for landmarks.
func NewSession(cfg *config.Config, topo *topology.Topology, detector landmark.Detector, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		cfg:      cfg,
		log:      log,
		topo:     topo,
		detector: detector,
		engine: warp.NewEngine(topo, warp.Options{
			Background: cfg.Background(),
			Workers:    cfg.Warp.Workers,
			Logger:     log.Named("warp"),
		}),
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

// Config returns the session configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Topology returns the mesh the session warps over.
func (s *Session) Topology() *topology.Topology { return s.topo }

// Engine returns the warp engine.
func (s *Session) Engine() *warp.Engine { return s.engine }

// Source returns the loaded photograph, or nil.
func (s *Session) Source() *image.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Result returns the last detection result and whether detection has run
// on the current source.
func (s *Session) Result() (landmark.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.detected
}

// Texture returns the last generated texture, or nil.
func (s *Session) Texture() *goimage.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.texture
}

// LoadImage loads a photograph from path and makes it the source.
func (s *Session) LoadImage(path string) error {
	layer, err := image.Load(path)
	if err != nil {
		s.Emit(EventError, err)
		return err
	}
	s.SetImage(layer)
	return nil
}

// SetImage makes layer the source, discarding landmarks and texture of the
// previous one.
func (s *Session) SetImage(layer *image.Layer) {
	s.mu.Lock()
	s.source = layer
	s.result = landmark.Result{}
	s.detected = false
	s.texture = nil
	s.generation++
	s.mu.Unlock()

	s.log.Info("image loaded",
		zap.String("name", layer.Name()),
		zap.Int("width", layer.Width()),
		zap.Int("height", layer.Height()))
	s.Emit(EventImageLoaded, layer)
}

// Detect runs the landmark detector on the source and stores the result.
// The configured timeout bounds the wait; a result arriving after the
// source was replaced is dropped.
func (s *Session) Detect(ctx context.Context) (landmark.Result, error) {
	s.mu.RLock()
	src, gen := s.source, s.generation
	s.mu.RUnlock()
	if src == nil || src.Image == nil {
		return landmark.Result{}, ErrNoImage
	}
	if s.detector == nil {
		return landmark.Result{}, errors.New("no landmark detector configured")
	}

	if timeout := s.cfg.Detector.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.Emit(EventDetectionStarted, src)

	var out landmark.Outcome
	select {
	case out = <-landmark.Request(ctx, s.detector, src.Image):
	case <-ctx.Done():
		out.Err = ctx.Err()
	}
	if out.Err != nil {
		err := fmt.Errorf("detect landmarks: %w", out.Err)
		s.log.Warn("detection failed", zap.Error(out.Err))
		s.Emit(EventError, err)
		return landmark.Result{}, err
	}

	res := out.Result.WithContours(s.topo.Contours())
	for i, f := range res.Faces {
		if len(f.Keypoints) != s.topo.Len() {
			s.log.Warn("detector keypoint count does not match topology",
				zap.Int("face", i),
				zap.Int("keypoints", len(f.Keypoints)),
				zap.Int("expected", s.topo.Len()))
		}
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("dropping detection for replaced image")
		return res, context.Canceled
	}
	s.result = res
	s.detected = true
	s.texture = nil
	s.mu.Unlock()

	s.log.Info("detection complete", zap.Int("faces", len(res.Faces)))
	s.Emit(EventDetectionComplete, res)
	return res, nil
}

// Generate unwraps the primary face onto the configured texture size. A
// texture finished after the source was replaced is dropped.
func (s *Session) Generate() (*goimage.RGBA, error) {
	s.mu.RLock()
	src, res, detected, gen := s.source, s.result, s.detected, s.generation
	s.mu.RUnlock()

	if src == nil || src.Image == nil {
		return nil, ErrNoImage
	}
	if !detected {
		return nil, ErrNotDetected
	}
	face, ok := res.Primary()
	if !ok {
		return nil, ErrNoFace
	}

	tex, err := s.engine.Unwrap(src.Image, face.Keypoints, s.cfg.Texture.Width, s.cfg.Texture.Height)
	if err != nil {
		s.Emit(EventError, err)
		return nil, err
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.log.Debug("dropping texture for replaced image")
		return nil, context.Canceled
	}
	s.texture = tex
	s.mu.Unlock()

	s.Emit(EventTextureGenerated, tex)
	return tex, nil
}

// SaveTexture writes the generated texture to path.
func (s *Session) SaveTexture(path string) error {
	tex := s.Texture()
	if tex == nil {
		return ErrNoTexture
	}
	if err := image.Save(tex, path); err != nil {
		s.Emit(EventError, err)
		return err
	}
	s.log.Info("texture saved", zap.String("path", path))
	s.Emit(EventTextureSaved, path)
	return nil
}

// OverlayOptions returns the overlay settings from the configuration.
func (s *Session) OverlayOptions() overlay.Options {
	opts := overlay.DefaultOptions()
	s.mu.RLock()
	oc := s.cfg.Overlay
	s.mu.RUnlock()
	opts.Points = oc.Points
	opts.Contours = oc.Contours
	opts.PointRadius = oc.PointRadius
	opts.LineWidth = oc.LineWidth
	opts.PointColor = s.cfg.OverlayColor()
	opts.ContourColor = opts.PointColor
	return opts
}

// SetOverlayVisibility chooses whether keypoints and contours are drawn
// over the photograph.
func (s *Session) SetOverlayVisibility(points, contours bool) {
	s.mu.Lock()
	s.cfg.Overlay.Points = points
	s.cfg.Overlay.Contours = contours
	s.mu.Unlock()
}

// SourcePreview returns the photograph with the detected mesh drawn over
// it, or the bare photograph before detection.
func (s *Session) SourcePreview() goimage.Image {
	s.mu.RLock()
	src, res, detected := s.source, s.result, s.detected
	s.mu.RUnlock()

	if src == nil || src.Image == nil {
		return nil
	}
	if !detected {
		return src.Image
	}
	return overlay.Render(src.Image, res.Keypoints(), res.Contours, s.OverlayOptions())
}

// TexturePreview returns the generated texture, or the empty mesh layout
// on black when nothing has been generated.
func (s *Session) TexturePreview() goimage.Image {
	if tex := s.Texture(); tex != nil {
		return tex
	}
	return overlay.Mesh(s.topo, s.cfg.Texture.Width, s.cfg.Texture.Height, colorutil.Black, s.OverlayOptions(), false)
}

// MeshKeypoints returns the primary face's keypoints, or nil.
func (s *Session) MeshKeypoints() []geometry.Point2D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	face, ok := s.result.Primary()
	if !ok {
		return nil
	}
	return face.Keypoints
}
