// Package viewer owns the map viewer state: the current viewport readout,
// the selected basemap, and the single active overlay. All mutation goes
// through the Controller; event handlers hold a reference to it instead of
// sharing ambient globals.
package viewer

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Liando18/development-geotax/internal/basemap"
	"github.com/Liando18/development-geotax/internal/mapview"
	"github.com/Liando18/development-geotax/internal/overlay"
)

// Viewport is the user-facing readout: latitude and longitude rounded to
// four decimal places, integer zoom.
type Viewport struct {
	Lat  float64 `json:"lat" doc:"Latitude, 4 decimal places" example:"-0.8947"`
	Lng  float64 `json:"lng" doc:"Longitude, 4 decimal places" example:"100.3357"`
	Zoom int     `json:"zoom" doc:"Zoom level" example:"11"`
}

// DefaultViewport is the reset target: Padang city center.
var DefaultViewport = Viewport{Lat: -0.8947, Lng: 100.3357, Zoom: 11}

// overlayFallback frames the datasets when overlay bounds cannot be
// computed. Not the same coordinate as the reset default.
var overlayFallback = mapview.View{Lat: -0.9492, Lng: 100.3543, Zoom: 13}

// ErrSuperseded reports that a finished overlay load was discarded because
// a newer load started while it was in flight. Callers treat it as a
// silent no-op, not a user-facing failure.
var ErrSuperseded = errors.New("overlay load superseded")

// Loader is the overlay fetch dependency.
type Loader interface {
	Load(ctx context.Context, d overlay.Dataset) (*overlay.Result, error)
}

// Controller wires the widget, the loader, and the event bus together.
//
// Two locks: mu guards the basemap/overlay slots and the load generation;
// vpMu guards only the viewport readout. The split matters because widget
// mutations fire the move-end callback synchronously, and that callback
// must be able to update the readout while an overlay load still holds mu.
type Controller struct {
	widget *mapview.Map
	loader Loader
	bus    *Bus
	log    *zap.Logger

	vpMu     sync.Mutex
	viewport Viewport

	mu            sync.Mutex
	activeBasemap basemap.Key
	activeOverlay overlay.Dataset
	overlayHandle mapview.LayerHandle
	loadGen       uint64
}

// New creates a controller, mounts the default basemap, and moves the
// widget to the default viewport.
func New(widget *mapview.Map, loader Loader, bus *Bus, log *zap.Logger) *Controller {
	if bus == nil {
		bus = NewBus()
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		widget: widget,
		loader: loader,
		bus:    bus,
		log:    log,
	}
	widget.OnMoveEnd(c.syncViewport)

	spec, _ := basemap.Lookup(basemap.Default)
	widget.MountTile(tileLayer(spec))
	c.activeBasemap = basemap.Default

	widget.SetView(mapview.View{
		Lat:  DefaultViewport.Lat,
		Lng:  DefaultViewport.Lng,
		Zoom: DefaultViewport.Zoom,
	})
	return c
}

// Bus returns the controller's event bus.
func (c *Controller) Bus() *Bus { return c.bus }

// syncViewport adopts the widget's authoritative view into the readout.
// The widget is the source of truth; the readout never writes back.
func (c *Controller) syncViewport(v mapview.View) {
	c.vpMu.Lock()
	c.viewport = Viewport{
		Lat:  round4(v.Lat),
		Lng:  round4(v.Lng),
		Zoom: v.Zoom,
	}
	c.vpMu.Unlock()

	c.bus.Publish(Event{Resource: "viewport", Action: "moved"})
}

func round4(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}

// Viewport returns the current readout.
func (c *Controller) Viewport() Viewport {
	c.vpMu.Lock()
	defer c.vpMu.Unlock()
	return c.viewport
}

// ActiveBasemap returns the selected basemap key.
func (c *Controller) ActiveBasemap() basemap.Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeBasemap
}

// ActiveOverlay returns the loaded dataset, if any.
func (c *Controller) ActiveOverlay() (overlay.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeOverlay, c.activeOverlay != ""
}

// EndGesture propagates a completed user pan/zoom from the map widget.
func (c *Controller) EndGesture(lat, lng float64, zoom int) Viewport {
	c.widget.EndGesture(mapview.View{Lat: lat, Lng: lng, Zoom: zoom})
	return c.Viewport()
}

// SelectBasemap swaps the mounted tile layer. Idempotent by key; the
// viewport and any active overlay are left untouched.
func (c *Controller) SelectBasemap(k basemap.Key) error {
	spec, ok := basemap.Lookup(k)
	if !ok {
		return eris.Errorf("basemap %q not in registry", k)
	}

	c.mu.Lock()
	c.widget.MountTile(tileLayer(spec))
	c.activeBasemap = k
	c.mu.Unlock()

	c.log.Info("basemap selected", zap.String("basemap", string(k)))
	c.bus.Publish(Event{Resource: "basemap", Action: "selected", ID: string(k)})
	return nil
}

// LoadOverlay fetches a dataset and, on success, swaps it in as the single
// active overlay and frames the viewport to its bounds.
//
// Loads are serialized latest-wins: each call bumps a generation counter,
// and a completion that is no longer the newest generation is discarded
// before touching any state (ErrSuperseded). On failure the previous
// overlay, viewport, and basemap remain exactly as they were.
func (c *Controller) LoadOverlay(ctx context.Context, d overlay.Dataset) error {
	c.mu.Lock()
	c.loadGen++
	gen := c.loadGen
	c.mu.Unlock()

	res, err := c.loader.Load(ctx, d)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.loadGen {
		c.log.Info("overlay load superseded", zap.String("dataset", string(d)))
		return ErrSuperseded
	}
	if err != nil {
		c.log.Warn("overlay load failed", zap.String("dataset", string(d)), zap.Error(err))
		return err
	}

	layer := res.Layer()
	if c.overlayHandle != 0 {
		c.widget.UnmountOverlay(c.overlayHandle)
	}
	c.overlayHandle = c.widget.MountOverlay(layer)
	c.activeOverlay = d

	c.fitOverlay(layer, d)

	c.bus.Publish(Event{Resource: "overlay", Action: "loaded", ID: string(d)})
	return nil
}

// fitOverlay frames the viewport to the layer bounds, falling back to the
// fixed secondary coordinate when the bounds are degenerate or the
// computation fails. Called with mu held.
func (c *Controller) fitOverlay(layer *mapview.FeatureLayer, d overlay.Dataset) {
	b, err := layer.Bound()
	if err == nil {
		var fitErr error
		if _, fitErr = c.widget.FitBounds(b); fitErr == nil {
			return
		}
		err = fitErr
	}
	c.log.Warn("overlay bounds unusable, using fallback view",
		zap.String("dataset", string(d)),
		zap.Error(&overlay.LoadError{Kind: overlay.KindBounds, Dataset: d, Err: err}),
	)
	c.widget.SetView(overlayFallback)
}

// Reset returns the viewport to the default and clears any active overlay.
// The basemap selection survives. Safe to call with nothing loaded.
func (c *Controller) Reset() {
	c.mu.Lock()
	if c.overlayHandle != 0 {
		c.widget.UnmountOverlay(c.overlayHandle)
		c.overlayHandle = 0
		c.activeOverlay = ""
	}
	// Invalidate in-flight loads so a fetch finishing after the reset
	// cannot resurrect an overlay.
	c.loadGen++
	c.mu.Unlock()

	c.widget.SetView(mapview.View{
		Lat:  DefaultViewport.Lat,
		Lng:  DefaultViewport.Lng,
		Zoom: DefaultViewport.Zoom,
	})

	c.log.Info("viewer reset")
	c.bus.Publish(Event{Resource: "overlay", Action: "cleared"})
}

// OverlayPopup returns the popup text of the active overlay's i-th
// feature, or false when no overlay is loaded, the index is out of range,
// or the feature has no properties.
func (c *Controller) OverlayPopup(i int) (string, bool) {
	c.mu.Lock()
	handle := c.overlayHandle
	c.mu.Unlock()
	if handle == 0 {
		return "", false
	}
	layer, ok := c.widget.Overlay(handle)
	if !ok || i < 0 || i >= len(layer.Popups) || layer.Popups[i] == "" {
		return "", false
	}
	return layer.Popups[i], true
}

func tileLayer(s basemap.Spec) mapview.TileLayer {
	return mapview.TileLayer{
		URLTemplate: s.URLTemplate,
		Attribution: s.Attribution,
		MaxZoom:     s.MaxZoom,
	}
}
