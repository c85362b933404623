package viewer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Liando18/development-geotax/internal/basemap"
	"github.com/Liando18/development-geotax/internal/mapview"
	"github.com/Liando18/development-geotax/internal/overlay"
)

type loaderFunc func(ctx context.Context, d overlay.Dataset) (*overlay.Result, error)

func (f loaderFunc) Load(ctx context.Context, d overlay.Dataset) (*overlay.Result, error) {
	return f(ctx, d)
}

// polygonResult builds a one-feature result covering the given bound.
func polygonResult(d overlay.Dataset, minLng, minLat, maxLng, maxLat float64) *overlay.Result {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Polygon{{
		{minLng, minLat}, {maxLng, minLat}, {maxLng, maxLat}, {minLng, maxLat}, {minLng, minLat},
	}}))
	return &overlay.Result{Dataset: d, Collection: fc, Popups: []string{"zona: ZNT-01"}}
}

// pointResult builds a single-point result whose bound is degenerate.
func pointResult(d overlay.Dataset) *overlay.Result {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{100.36, -0.94}))
	return &overlay.Result{Dataset: d, Collection: fc, Popups: []string{""}}
}

func fixedLoader(results map[overlay.Dataset]*overlay.Result, errs map[overlay.Dataset]error) Loader {
	return loaderFunc(func(_ context.Context, d overlay.Dataset) (*overlay.Result, error) {
		if err, ok := errs[d]; ok {
			return nil, err
		}
		return results[d], nil
	})
}

func newTestController(t *testing.T, loader Loader) (*Controller, *mapview.Map) {
	t.Helper()
	widget := mapview.New(mapview.WithSize(1024, 768))
	return New(widget, loader, NewBus(), nil), widget
}

func TestInitialState(t *testing.T) {
	c, widget := newTestController(t, fixedLoader(nil, nil))

	assert.Equal(t, DefaultViewport, c.Viewport())
	assert.Equal(t, basemap.Default, c.ActiveBasemap())

	_, ok := c.ActiveOverlay()
	assert.False(t, ok)

	base, ok := widget.BaseLayer()
	require.True(t, ok)
	spec, _ := basemap.Lookup(basemap.Default)
	assert.Equal(t, spec.URLTemplate, base.URLTemplate)
}

func TestGestureRoundsReadout(t *testing.T) {
	c, _ := newTestController(t, fixedLoader(nil, nil))

	vp := c.EndGesture(1.2345678, 99.1234567, 14)
	assert.Equal(t, Viewport{Lat: 1.2346, Lng: 99.1235, Zoom: 14}, vp)
	assert.Equal(t, vp, c.Viewport())
}

func TestSelectBasemapKeepsOverlayAndViewport(t *testing.T) {
	c, widget := newTestController(t, fixedLoader(map[overlay.Dataset]*overlay.Result{
		overlay.LandParcels: polygonResult(overlay.LandParcels, 100.35, -0.95, 100.37, -0.93),
	}, nil))

	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandParcels))
	before := c.Viewport()
	require.Equal(t, 1, widget.OverlayCount())

	require.NoError(t, c.SelectBasemap(basemap.DarkMatter))

	assert.Equal(t, basemap.DarkMatter, c.ActiveBasemap())
	assert.Equal(t, before, c.Viewport(), "basemap switch must not move the viewport")
	assert.Equal(t, 1, widget.OverlayCount(), "basemap switch must not touch the overlay")

	active, ok := c.ActiveOverlay()
	require.True(t, ok)
	assert.Equal(t, overlay.LandParcels, active)
}

func TestSelectBasemapIdempotent(t *testing.T) {
	c, widget := newTestController(t, fixedLoader(nil, nil))

	for i := 0; i < 5; i++ {
		require.NoError(t, c.SelectBasemap(basemap.OpenStreetMap))
	}
	base, ok := widget.BaseLayer()
	require.True(t, ok)
	spec, _ := basemap.Lookup(basemap.OpenStreetMap)
	assert.Equal(t, spec.URLTemplate, base.URLTemplate)
}

func TestLoadOverlayReplacesPrevious(t *testing.T) {
	c, widget := newTestController(t, fixedLoader(map[overlay.Dataset]*overlay.Result{
		overlay.LandParcels:    polygonResult(overlay.LandParcels, 100.35, -0.95, 100.37, -0.93),
		overlay.LandValueZones: polygonResult(overlay.LandValueZones, 100.30, -1.00, 100.40, -0.90),
	}, nil))

	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandParcels))
	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandValueZones))

	assert.Equal(t, 1, widget.OverlayCount(), "exactly one overlay after replacement")
	active, ok := c.ActiveOverlay()
	require.True(t, ok)
	assert.Equal(t, overlay.LandValueZones, active)
}

func TestLoadOverlayFailureLeavesStateIntact(t *testing.T) {
	loadErr := &overlay.LoadError{Kind: overlay.KindInvalid, Dataset: overlay.LandValueZones}
	c, widget := newTestController(t, fixedLoader(map[overlay.Dataset]*overlay.Result{
		overlay.LandParcels: polygonResult(overlay.LandParcels, 100.35, -0.95, 100.37, -0.93),
	}, map[overlay.Dataset]error{
		overlay.LandValueZones: loadErr,
	}))

	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandParcels))
	before := c.Viewport()

	err := c.LoadOverlay(context.Background(), overlay.LandValueZones)
	require.ErrorAs(t, err, new(*overlay.LoadError))

	assert.Equal(t, 1, widget.OverlayCount(), "previous overlay stays mounted")
	active, ok := c.ActiveOverlay()
	require.True(t, ok)
	assert.Equal(t, overlay.LandParcels, active)
	assert.Equal(t, before, c.Viewport())
}

func TestLoadOverlayFitsBounds(t *testing.T) {
	c, _ := newTestController(t, fixedLoader(map[overlay.Dataset]*overlay.Result{
		overlay.LandParcels: polygonResult(overlay.LandParcels, 100.29, -1.05, 100.45, -0.75),
	}, nil))

	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandParcels))

	vp := c.Viewport()
	assert.InDelta(t, -0.9, vp.Lat, 0.05)
	assert.InDelta(t, 100.37, vp.Lng, 0.05)
	assert.NotEqual(t, DefaultViewport, vp)
}

func TestLoadOverlayDegenerateBoundsFallsBack(t *testing.T) {
	c, widget := newTestController(t, fixedLoader(map[overlay.Dataset]*overlay.Result{
		overlay.LandParcels: pointResult(overlay.LandParcels),
	}, nil))

	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandParcels))

	// Fallback coordinate, not the reset default and not a crash.
	assert.Equal(t, Viewport{Lat: -0.9492, Lng: 100.3543, Zoom: 13}, c.Viewport())
	assert.Equal(t, 1, widget.OverlayCount(), "overlay stays mounted even when bounds are unusable")
}

func TestDegenerateBoundsLoggedAsBoundsError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	widget := mapview.New(mapview.WithSize(1024, 768))
	c := New(widget, fixedLoader(map[overlay.Dataset]*overlay.Result{
		overlay.LandParcels: pointResult(overlay.LandParcels),
	}, nil), NewBus(), zap.New(core))

	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandParcels))

	entries := logs.FilterMessage("overlay bounds unusable, using fallback view").All()
	require.Len(t, entries, 1)

	var logged error
	for _, f := range entries[0].Context {
		if f.Key == "error" {
			logged, _ = f.Interface.(error)
		}
	}
	require.Error(t, logged)

	var loadErr *overlay.LoadError
	require.ErrorAs(t, logged, &loadErr)
	assert.Equal(t, overlay.KindBounds, loadErr.Kind)
	assert.Equal(t, overlay.LandParcels, loadErr.Dataset)
}

func TestReset(t *testing.T) {
	c, widget := newTestController(t, fixedLoader(map[overlay.Dataset]*overlay.Result{
		overlay.LandParcels: polygonResult(overlay.LandParcels, 100.35, -0.95, 100.37, -0.93),
	}, nil))

	require.NoError(t, c.SelectBasemap(basemap.Positron))
	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandParcels))
	c.EndGesture(5, 5, 15)

	c.Reset()

	assert.Equal(t, DefaultViewport, c.Viewport())
	assert.Equal(t, 0, widget.OverlayCount())
	_, ok := c.ActiveOverlay()
	assert.False(t, ok)
	assert.Equal(t, basemap.Positron, c.ActiveBasemap(), "reset keeps the basemap selection")
}

func TestResetWithoutOverlayIsSafe(t *testing.T) {
	c, _ := newTestController(t, fixedLoader(nil, nil))
	c.Reset()
	c.Reset()
	assert.Equal(t, DefaultViewport, c.Viewport())
}

func TestStaleLoadDiscarded(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	started := false

	loader := loaderFunc(func(_ context.Context, d overlay.Dataset) (*overlay.Result, error) {
		if d == overlay.LandParcels {
			mu.Lock()
			started = true
			mu.Unlock()
			<-release
			return polygonResult(d, 100.35, -0.95, 100.37, -0.93), nil
		}
		return polygonResult(d, 100.30, -1.00, 100.40, -0.90), nil
	})

	c, widget := newTestController(t, loader)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.LoadOverlay(context.Background(), overlay.LandParcels)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return started
	}, time.Second, time.Millisecond, "first load should be in flight")

	// Second load starts and finishes while the first is still fetching.
	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandValueZones))

	close(release)
	assert.ErrorIs(t, <-errCh, ErrSuperseded)

	assert.Equal(t, 1, widget.OverlayCount())
	active, ok := c.ActiveOverlay()
	require.True(t, ok)
	assert.Equal(t, overlay.LandValueZones, active, "slow first load must not clobber the newer one")
}

func TestResetInvalidatesInFlightLoad(t *testing.T) {
	release := make(chan struct{})
	loader := loaderFunc(func(_ context.Context, d overlay.Dataset) (*overlay.Result, error) {
		<-release
		return polygonResult(d, 100.35, -0.95, 100.37, -0.93), nil
	})

	c, widget := newTestController(t, loader)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.LoadOverlay(context.Background(), overlay.LandParcels)
	}()

	// Give the goroutine a moment to bump the generation.
	time.Sleep(10 * time.Millisecond)
	c.Reset()
	close(release)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	assert.Equal(t, 0, widget.OverlayCount(), "a reset must not be undone by a late fetch")
}

func TestOverlayPopup(t *testing.T) {
	c, _ := newTestController(t, fixedLoader(map[overlay.Dataset]*overlay.Result{
		overlay.LandParcels: polygonResult(overlay.LandParcels, 100.35, -0.95, 100.37, -0.93),
	}, nil))

	_, ok := c.OverlayPopup(0)
	assert.False(t, ok, "no popup before a load")

	require.NoError(t, c.LoadOverlay(context.Background(), overlay.LandParcels))

	text, ok := c.OverlayPopup(0)
	require.True(t, ok)
	assert.Equal(t, "zona: ZNT-01", text)

	_, ok = c.OverlayPopup(7)
	assert.False(t, ok, "out of range index")
}

func TestBusPublishesViewportEvents(t *testing.T) {
	c, _ := newTestController(t, fixedLoader(nil, nil))
	ch := c.Bus().Subscribe()
	defer c.Bus().Unsubscribe(ch)

	c.EndGesture(1, 2, 3)

	select {
	case ev := <-ch:
		assert.Equal(t, "viewport", ev.Resource)
		assert.Equal(t, "moved", ev.Action)
	case <-time.After(time.Second):
		t.Fatal("no viewport event published")
	}
}
