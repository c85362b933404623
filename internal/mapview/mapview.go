// Package mapview is a headless map widget: it owns the authoritative
// center/zoom, mounts exactly one basemap tile layer plus at most a small
// set of vector overlays, and fits the view to geographic bounds.
//
// The widget is the source of truth for the viewport. Callers read state
// back after every mutation instead of mirroring it forward, which keeps
// controller state and widget state from fighting each other.
package mapview

import (
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// View is a geographic center plus an integer zoom level.
type View struct {
	Lat  float64
	Lng  float64
	Zoom int
}

// TileLayer is a raster basemap layer definition.
type TileLayer struct {
	URLTemplate string
	Attribution string
	MaxZoom     int
}

// Style is the fixed visual style applied to a mounted feature layer.
type Style struct {
	FillColor   string
	FillOpacity float64
	Color       string
	Weight      float64
	Opacity     float64
}

// FeatureLayer is a vector overlay: a feature collection, one style, and
// per-feature popup text. Popups is aligned with Collection.Features; an
// empty string means the feature has no popup.
type FeatureLayer struct {
	Name       string
	Collection *geojson.FeatureCollection
	Style      Style
	Popups     []string
}

// Bound returns the union of all feature bounds. Geometry decoded from
// hostile input can panic deep inside bound computation, so the walk is
// recovered and reported as an error instead.
func (l *FeatureLayer) Bound() (b orb.Bound, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errBoundPanic{r}
		}
	}()

	if l.Collection == nil || len(l.Collection.Features) == 0 {
		return orb.Bound{}, errEmptyLayer
	}

	first := true
	for _, f := range l.Collection.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		fb := f.Geometry.Bound()
		if first {
			b = fb
			first = false
			continue
		}
		b = b.Union(fb)
	}
	if first {
		return orb.Bound{}, errEmptyLayer
	}
	return b, nil
}

// LayerHandle identifies a mounted overlay. The zero handle is never issued.
type LayerHandle uint64

// MoveEndFunc receives the widget view after any move or zoom completes.
type MoveEndFunc func(View)

// Map is the widget itself. All methods are safe for concurrent use.
// Move-end callbacks fire synchronously but outside the internal lock, so
// a callback may read the widget; it must not mutate it.
type Map struct {
	mu         sync.Mutex
	view       View
	base       *TileLayer
	overlays   map[LayerHandle]*FeatureLayer
	nextHandle LayerHandle
	width      int
	height     int
	onMoveEnd  []MoveEndFunc
}

// Option configures a Map.
type Option func(*Map)

// WithSize sets the viewport pixel size used for bounds fitting.
func WithSize(width, height int) Option {
	return func(m *Map) {
		m.width = width
		m.height = height
	}
}

// New creates a widget with a default 1024x768 viewport.
func New(opts ...Option) *Map {
	m := &Map{
		overlays:   make(map[LayerHandle]*FeatureLayer),
		nextHandle: 1,
		width:      1024,
		height:     768,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnMoveEnd registers a callback for move/zoom completion.
func (m *Map) OnMoveEnd(fn MoveEndFunc) {
	m.mu.Lock()
	m.onMoveEnd = append(m.onMoveEnd, fn)
	m.mu.Unlock()
}

// View returns the current view.
func (m *Map) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// BaseLayer returns the mounted tile layer, if any.
func (m *Map) BaseLayer() (TileLayer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.base == nil {
		return TileLayer{}, false
	}
	return *m.base, true
}

// MountTile replaces whatever basemap is mounted with t. The widget never
// holds more than one tile layer, and the view is left untouched.
func (m *Map) MountTile(t TileLayer) {
	m.mu.Lock()
	layer := t
	m.base = &layer
	m.mu.Unlock()
}

// MountOverlay mounts a feature layer and returns its handle.
func (m *Map) MountOverlay(l *FeatureLayer) LayerHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.nextHandle
	m.nextHandle++
	m.overlays[h] = l
	return h
}

// UnmountOverlay removes a mounted overlay. Unknown handles are ignored.
func (m *Map) UnmountOverlay(h LayerHandle) {
	m.mu.Lock()
	delete(m.overlays, h)
	m.mu.Unlock()
}

// Overlay returns the layer for a handle.
func (m *Map) Overlay(h LayerHandle) (*FeatureLayer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.overlays[h]
	return l, ok
}

// OverlayCount reports how many overlays are mounted.
func (m *Map) OverlayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.overlays)
}

// SetView moves the widget to the given center/zoom, clamping out-of-range
// values, and fires move-end.
func (m *Map) SetView(v View) View {
	m.mu.Lock()
	m.view = m.clamp(v)
	out := m.view
	fns := append([]MoveEndFunc(nil), m.onMoveEnd...)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(out)
	}
	return out
}

// EndGesture reports a user pan/zoom completing at the given center/zoom.
// The widget clamps and adopts the values, then fires move-end; this is
// the only path by which user interaction reaches the rest of the system.
func (m *Map) EndGesture(v View) View {
	return m.SetView(v)
}

// FitBounds frames the view to contain b and fires move-end. Degenerate
// bounds (zero extent, non-finite coordinates) return an error and leave
// the view untouched.
func (m *Map) FitBounds(b orb.Bound) (View, error) {
	m.mu.Lock()
	fit, err := fitView(b, m.width, m.height)
	if err != nil {
		m.mu.Unlock()
		return View{}, err
	}
	m.view = m.clamp(fit)
	out := m.view
	fns := append([]MoveEndFunc(nil), m.onMoveEnd...)
	m.mu.Unlock()

	for _, fn := range fns {
		fn(out)
	}
	return out, nil
}

// clamp is called with m.mu held.
func (m *Map) clamp(v View) View {
	v.Lat = math.Max(-90, math.Min(90, v.Lat))
	v.Lng = math.Max(-180, math.Min(180, v.Lng))
	maxZoom := 19
	if m.base != nil && m.base.MaxZoom > 0 {
		maxZoom = m.base.MaxZoom
	}
	if v.Zoom < 0 {
		v.Zoom = 0
	}
	if v.Zoom > maxZoom {
		v.Zoom = maxZoom
	}
	return v
}
