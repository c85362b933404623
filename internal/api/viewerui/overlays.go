package viewerui

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Liando18/development-geotax/internal/humastar"
	"github.com/Liando18/development-geotax/internal/overlay"
	"github.com/Liando18/development-geotax/internal/templates"
	"github.com/Liando18/development-geotax/internal/viewer"
)

// OverlayHandler drives the overlay catalog list and the load/popup flow.
type OverlayHandler struct {
	humastar.Handler
	viewer *viewer.Controller
}

func NewOverlayHandler(v *viewer.Controller, renderer *templates.Renderer) *OverlayHandler {
	return &OverlayHandler{
		Handler: humastar.Handler{Renderer: renderer},
		viewer:  v,
	}
}

func (h *OverlayHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/ui/overlays", h.ListOverlays, huma.OperationTags("viewer-ui"))
	huma.Post(api, "/api/v1/ui/overlays/{dataset}/load", h.LoadOverlay, huma.OperationTags("viewer-ui"))
	huma.Get(api, "/api/v1/ui/popup/{index}", h.Popup, huma.OperationTags("viewer-ui"))
}

// OverlayCardData feeds the overlay-card fragment.
type OverlayCardData struct {
	Dataset string
	Label   string
	File    string
	Active  bool
}

func (h *OverlayHandler) ListOverlays(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		sse.Patch(renderCatalog(&h.Handler, h.viewer), "#overlay-list")
	}), nil
}

type LoadOverlayInput struct {
	Dataset string `path:"dataset" doc:"Catalog dataset key" example:"bidang-tanah"`
}

// LoadOverlay fetches and mounts a catalog dataset. The loading signal
// disables the catalog buttons while the fetch is in flight; combined with
// the controller's latest-wins serialization, a slow first request can
// never clobber a faster second one.
func (h *OverlayHandler) LoadOverlay(ctx context.Context, input *LoadOverlayInput) (*huma.StreamResponse, error) {
	dataset, err := overlay.Parse(input.Dataset)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(map[string]any{"loading": true})

		err := h.viewer.LoadOverlay(ctx, dataset)
		switch {
		case errors.Is(err, viewer.ErrSuperseded):
			// A newer load owns the overlay slot now; say nothing.
			sse.Signals(map[string]any{"loading": false})
			return
		case err != nil:
			sse.Signals(map[string]any{"loading": false})
			sse.Error(loadErrorMessage(err, dataset))
			return
		}

		vp := h.viewer.Viewport()
		sse.Signals(map[string]any{
			"loading":       false,
			"activeOverlay": string(dataset),
			"lat":           vp.Lat,
			"lng":           vp.Lng,
			"zoom":          vp.Zoom,
		})
		sse.Patch(renderCatalog(&h.Handler, h.viewer), "#overlay-list")
		sse.Success(fmt.Sprintf("Overlay '%s' loaded", dataset))
	}), nil
}

type PopupInput struct {
	Index int `path:"index" minimum:"0" doc:"Feature index within the active overlay"`
}

// Popup patches the popup fragment for one feature of the active overlay.
func (h *OverlayHandler) Popup(ctx context.Context, input *PopupInput) (*huma.StreamResponse, error) {
	text, ok := h.viewer.OverlayPopup(input.Index)
	if !ok {
		return nil, huma.Error404NotFound("no popup for feature")
	}

	return h.Stream(func(sse humastar.SSE) {
		html, err := h.Renderer.Render("popup", map[string]any{"Text": text})
		if err != nil {
			sse.Error("popup render failed")
			return
		}
		sse.Patch(html, "#popup-content")
	}), nil
}

// renderCatalog renders the overlay card list with the active dataset
// highlighted. Shared between the overlay handler and the event stream.
func renderCatalog(h *humastar.Handler, v *viewer.Controller) string {
	active, _ := v.ActiveOverlay()
	var items []any
	for _, e := range overlay.Catalog() {
		items = append(items, OverlayCardData{
			Dataset: string(e.Dataset),
			Label:   e.Label,
			File:    e.File,
			Active:  e.Dataset == active,
		})
	}
	return h.RenderList("overlay-card", items, "No datasets", "The overlay catalog is empty")
}

// loadErrorMessage keeps transport detail out of the user-facing text
// while the full chain still goes to the log.
func loadErrorMessage(err error, d overlay.Dataset) string {
	var loadErr *overlay.LoadError
	if errors.As(err, &loadErr) {
		switch loadErr.Kind {
		case overlay.KindFetch:
			return fmt.Sprintf("Could not fetch overlay '%s'", d)
		case overlay.KindInvalid:
			return fmt.Sprintf("Overlay '%s' contains no usable features", d)
		}
	}
	return fmt.Sprintf("Could not load overlay '%s'", d)
}
