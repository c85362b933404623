package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Liando18/development-geotax/internal/basemap"
	"github.com/Liando18/development-geotax/internal/mapview"
	"github.com/Liando18/development-geotax/internal/overlay"
	"github.com/Liando18/development-geotax/internal/viewer"
)

type loaderFunc func(ctx context.Context, d overlay.Dataset) (*overlay.Result, error)

func (f loaderFunc) Load(ctx context.Context, d overlay.Dataset) (*overlay.Result, error) {
	return f(ctx, d)
}

func okLoader() viewer.Loader {
	return loaderFunc(func(_ context.Context, d overlay.Dataset) (*overlay.Result, error) {
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(orb.Polygon{{
			{100.35, -0.95}, {100.37, -0.95}, {100.37, -0.93}, {100.35, -0.93}, {100.35, -0.95},
		}}))
		return &overlay.Result{Dataset: d, Collection: fc, Popups: []string{"nop: 13.71-0001"}}, nil
	})
}

func failLoader(kind overlay.ErrorKind) viewer.Loader {
	return loaderFunc(func(_ context.Context, d overlay.Dataset) (*overlay.Result, error) {
		return nil, &overlay.LoadError{Kind: kind, Dataset: d}
	})
}

func newTestAPI(t *testing.T, loader viewer.Loader) humatest.TestAPI {
	t.Helper()
	widget := mapview.New()
	ctrl := viewer.New(widget, loader, viewer.NewBus(), nil)

	_, api := humatest.New(t)
	huma.AutoRegister(api, NewAPIHandler(&Services{Viewer: ctrl}))
	return api
}

func TestGetHealth(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var body HealthBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestGetBasemaps(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Get("/api/v1/basemaps")
	require.Equal(t, http.StatusOK, resp.Code)

	var body BasemapsBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, string(basemap.Default), body.Active)
	assert.Len(t, body.Basemaps, len(basemap.Keys()))
	for _, e := range body.Basemaps {
		assert.NotEmpty(t, e.Key)
		assert.NotEmpty(t, e.URLTemplate)
	}
}

func TestSelectBasemap(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Put("/api/v1/viewer/basemap", map[string]any{"key": "osm"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body ViewerStateBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "osm", body.Basemap)
	assert.Equal(t, viewer.DefaultViewport, body.Viewport, "basemap switch must not move the viewport")
}

func TestSelectBasemapUnknownKey(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Put("/api/v1/viewer/basemap", map[string]any{"key": "mapbox"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetViewerInitialState(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Get("/api/v1/viewer")
	require.Equal(t, http.StatusOK, resp.Code)

	var body ViewerStateBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, viewer.DefaultViewport, body.Viewport)
	assert.Equal(t, string(basemap.Default), body.Basemap)
	assert.Empty(t, body.Overlay)
}

func TestMoveRoundsCoordinates(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Post("/api/v1/viewer/move", map[string]any{
		"lat": -0.89473219, "lng": 100.33571444, "zoom": 14,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var vp viewer.Viewport
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &vp))
	assert.Equal(t, viewer.Viewport{Lat: -0.8947, Lng: 100.3357, Zoom: 14}, vp)
}

func TestMoveRejectsOutOfRange(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Post("/api/v1/viewer/move", map[string]any{
		"lat": 91.0, "lng": 0.0, "zoom": 5,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestLoadOverlay(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Post("/api/v1/viewer/overlay", map[string]any{"dataset": "bidang-tanah"})
	require.Equal(t, http.StatusOK, resp.Code)

	var body ViewerStateBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "bidang-tanah", body.Overlay)
	assert.NotEqual(t, viewer.DefaultViewport, body.Viewport, "viewport should frame the overlay")
}

func TestLoadOverlayUnknownDataset(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Post("/api/v1/viewer/overlay", map[string]any{"dataset": "jalan"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLoadOverlayErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		kind overlay.ErrorKind
		code int
	}{
		{"fetch failure maps to bad gateway", overlay.KindFetch, http.StatusBadGateway},
		{"invalid document maps to unprocessable", overlay.KindInvalid, http.StatusUnprocessableEntity},
		{"bounds failure maps to internal error", overlay.KindBounds, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, failLoader(tt.kind))

			resp := api.Post("/api/v1/viewer/overlay", map[string]any{"dataset": "bidang-tanah"})
			assert.Equal(t, tt.code, resp.Code)

			state := api.Get("/api/v1/viewer")
			var body ViewerStateBody
			require.NoError(t, json.Unmarshal(state.Body.Bytes(), &body))
			assert.Empty(t, body.Overlay, "failed load must not mount an overlay")
		})
	}
}

func TestGetOverlays(t *testing.T) {
	api := newTestAPI(t, okLoader())

	resp := api.Get("/api/v1/overlays")
	require.Equal(t, http.StatusOK, resp.Code)

	var body OverlaysBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Empty(t, body.Active)
	require.Len(t, body.Datasets, 2)
	assert.Equal(t, "bidang-tanah", string(body.Datasets[0].Dataset))
	assert.Equal(t, "zona-nilai-tanah", string(body.Datasets[1].Dataset))

	api.Post("/api/v1/viewer/overlay", map[string]any{"dataset": "zona-nilai-tanah"})
	resp = api.Get("/api/v1/overlays")
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "zona-nilai-tanah", body.Active)
}

func TestResetClearsOverlayKeepsBasemap(t *testing.T) {
	api := newTestAPI(t, okLoader())

	api.Put("/api/v1/viewer/basemap", map[string]any{"key": "dark-matter"})
	api.Post("/api/v1/viewer/overlay", map[string]any{"dataset": "bidang-tanah"})

	resp := api.Post("/api/v1/viewer/reset")
	require.Equal(t, http.StatusOK, resp.Code)

	var body ViewerStateBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, viewer.DefaultViewport, body.Viewport)
	assert.Empty(t, body.Overlay)
	assert.Equal(t, "dark-matter", body.Basemap)
}

func TestGetInfo(t *testing.T) {
	_, api := humatest.New(t)
	NewInfoHandler("data", true).RegisterRoutes(api)

	resp := api.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)

	var body InfoBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "development-geotax", body.Name)
	assert.Contains(t, body.Features, "geojson-overlays")
}

func TestLinkHeaders(t *testing.T) {
	widget := mapview.New()
	ctrl := viewer.New(widget, okLoader(), viewer.NewBus(), nil)

	config := huma.DefaultConfig("test", "0.0.1")
	config.Transformers = append(config.Transformers, LinkTransformer())
	_, api := humatest.New(t, config)
	huma.AutoRegister(api, NewAPIHandler(&Services{Viewer: ctrl}))

	resp := api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	links := resp.Result().Header.Values("Link")
	assert.Contains(t, links, `</api/v1/viewer>; rel="viewer"`)
	assert.Contains(t, links, `</api/v1/basemaps>; rel="basemaps"`)
}
