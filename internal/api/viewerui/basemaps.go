// Package viewerui contains Datastar SSE handlers for the map viewer page.
package viewerui

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Liando18/development-geotax/internal/basemap"
	"github.com/Liando18/development-geotax/internal/humastar"
	"github.com/Liando18/development-geotax/internal/templates"
	"github.com/Liando18/development-geotax/internal/viewer"
)

// BasemapHandler drives the basemap selector.
type BasemapHandler struct {
	humastar.Handler
	viewer *viewer.Controller
}

func NewBasemapHandler(v *viewer.Controller, renderer *templates.Renderer) *BasemapHandler {
	return &BasemapHandler{
		Handler: humastar.Handler{Renderer: renderer},
		viewer:  v,
	}
}

func (h *BasemapHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/ui/basemaps", h.ListBasemaps, huma.OperationTags("viewer-ui"))
	huma.Post(api, "/api/v1/ui/basemap", h.SelectBasemap, huma.OperationTags("viewer-ui"))
}

// ListBasemaps patches the basemap <select> options.
func (h *BasemapHandler) ListBasemaps(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(h.renderOptions(), "#basemap-select")
	}), nil
}

// SelectBasemap mounts the basemap named in the "basemap" signal.
func (h *BasemapHandler) SelectBasemap(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	key, err := basemap.Parse(signals.String("basemap"))
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		if err := h.viewer.SelectBasemap(key); err != nil {
			sse.Error(err.Error())
			return
		}
		spec, _ := basemap.Lookup(key)
		sse.Signals(map[string]any{
			"basemap":     string(key),
			"tileURL":     spec.URLTemplate,
			"attribution": spec.Attribution,
			"maxZoom":     spec.MaxZoom,
		})
		sse.Success(fmt.Sprintf("Basemap '%s' selected", spec.Name))
	}), nil
}

func (h *BasemapHandler) renderOptions() string {
	active := h.viewer.ActiveBasemap()
	var options []humastar.SelectOptionData
	for _, k := range basemap.Keys() {
		spec, _ := basemap.Lookup(k)
		options = append(options, humastar.SelectOptionData{
			Value:    string(k),
			Label:    spec.Name,
			Selected: k == active,
		})
	}
	return h.RenderSelect(options)
}
