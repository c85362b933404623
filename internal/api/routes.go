// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Liando18/development-geotax/internal/basemap"
	"github.com/Liando18/development-geotax/internal/overlay"
	"github.com/Liando18/development-geotax/internal/viewer"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Viewer *viewer.Controller
}

// Types

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// BasemapEntry is one registry row plus its key.
type BasemapEntry struct {
	Key string `json:"key" doc:"Registry key" example:"satellite-labeled"`
	basemap.Spec
}

type BasemapsBody struct {
	Active   string         `json:"active" doc:"Currently mounted basemap key"`
	Basemaps []BasemapEntry `json:"basemaps" doc:"All available basemaps"`
}

// ViewerStateBody is the full viewer readout.
type ViewerStateBody struct {
	Viewport viewer.Viewport `json:"viewport" doc:"Current viewport"`
	Basemap  string          `json:"basemap" doc:"Active basemap key"`
	Overlay  string          `json:"overlay,omitempty" doc:"Active overlay dataset, empty when none"`
}

type OverlaysBody struct {
	Active   string          `json:"active,omitempty" doc:"Active overlay dataset"`
	Datasets []overlay.Entry `json:"datasets" doc:"Overlay catalog"`
}

type SelectBasemapInput struct {
	Body struct {
		Key string `json:"key" required:"true" doc:"Basemap registry key" example:"osm"`
	}
}

type LoadOverlayInput struct {
	Body struct {
		Dataset string `json:"dataset" required:"true" doc:"Catalog dataset key" example:"bidang-tanah"`
	}
}

type MoveInput struct {
	Body struct {
		Lat  float64 `json:"lat" required:"true" minimum:"-90" maximum:"90" doc:"Gesture end latitude"`
		Lng  float64 `json:"lng" required:"true" minimum:"-180" maximum:"180" doc:"Gesture end longitude"`
		Zoom int     `json:"zoom" required:"true" minimum:"0" doc:"Gesture end zoom"`
	}
}

type ViewportOutput struct {
	Body viewer.Viewport
}

type ViewerStateOutput struct {
	Body ViewerStateBody
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterBasemaps registers basemap registry routes.
func (h *APIHandler) RegisterBasemaps(api huma.API) {
	huma.Get(api, "/api/v1/basemaps", h.GetBasemaps, huma.OperationTags("basemaps"))
	huma.Put(api, "/api/v1/viewer/basemap", h.SelectBasemap, huma.OperationTags("basemaps"))
}

// RegisterViewer registers viewer state routes.
func (h *APIHandler) RegisterViewer(api huma.API) {
	huma.Get(api, "/api/v1/viewer", h.GetViewer, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/move", h.Move, huma.OperationTags("viewer"))
	huma.Post(api, "/api/v1/viewer/reset", h.Reset, huma.OperationTags("viewer"))
}

// RegisterOverlays registers overlay catalog and load routes.
func (h *APIHandler) RegisterOverlays(api huma.API) {
	huma.Get(api, "/api/v1/overlays", h.GetOverlays, huma.OperationTags("overlays"))
	huma.Post(api, "/api/v1/viewer/overlay", h.LoadOverlay, huma.OperationTags("overlays"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetBasemaps(ctx context.Context, input *struct{}) (*struct{ Body BasemapsBody }, error) {
	body := BasemapsBody{Active: string(h.svc.Viewer.ActiveBasemap())}
	for _, k := range basemap.Keys() {
		spec, _ := basemap.Lookup(k)
		body.Basemaps = append(body.Basemaps, BasemapEntry{Key: string(k), Spec: spec})
	}
	return &struct{ Body BasemapsBody }{Body: body}, nil
}

func (h *APIHandler) SelectBasemap(ctx context.Context, input *SelectBasemapInput) (*ViewerStateOutput, error) {
	key, err := basemap.Parse(input.Body.Key)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if err := h.svc.Viewer.SelectBasemap(key); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return h.state(), nil
}

func (h *APIHandler) GetViewer(ctx context.Context, input *struct{}) (*ViewerStateOutput, error) {
	return h.state(), nil
}

func (h *APIHandler) Move(ctx context.Context, input *MoveInput) (*ViewportOutput, error) {
	vp := h.svc.Viewer.EndGesture(input.Body.Lat, input.Body.Lng, input.Body.Zoom)
	return &ViewportOutput{Body: vp}, nil
}

func (h *APIHandler) Reset(ctx context.Context, input *struct{}) (*ViewerStateOutput, error) {
	h.svc.Viewer.Reset()
	return h.state(), nil
}

func (h *APIHandler) GetOverlays(ctx context.Context, input *struct{}) (*struct{ Body OverlaysBody }, error) {
	body := OverlaysBody{Datasets: overlay.Catalog()}
	if active, ok := h.svc.Viewer.ActiveOverlay(); ok {
		body.Active = string(active)
	}
	return &struct{ Body OverlaysBody }{Body: body}, nil
}

func (h *APIHandler) LoadOverlay(ctx context.Context, input *LoadOverlayInput) (*ViewerStateOutput, error) {
	dataset, err := overlay.Parse(input.Body.Dataset)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	err = h.svc.Viewer.LoadOverlay(ctx, dataset)
	switch {
	case err == nil:
		return h.state(), nil
	case errors.Is(err, viewer.ErrSuperseded):
		// A newer load won; report current state as a no-op.
		return h.state(), nil
	}

	var loadErr *overlay.LoadError
	if errors.As(err, &loadErr) {
		switch loadErr.Kind {
		case overlay.KindFetch:
			return nil, huma.Error502BadGateway(loadErr.Error())
		case overlay.KindInvalid:
			return nil, huma.Error422UnprocessableEntity(loadErr.Error())
		}
	}
	return nil, huma.Error500InternalServerError("overlay load failed", err)
}

func (h *APIHandler) state() *ViewerStateOutput {
	body := ViewerStateBody{
		Viewport: h.svc.Viewer.Viewport(),
		Basemap:  string(h.svc.Viewer.ActiveBasemap()),
	}
	if active, ok := h.svc.Viewer.ActiveOverlay(); ok {
		body.Overlay = string(active)
	}
	return &ViewerStateOutput{Body: body}
}
