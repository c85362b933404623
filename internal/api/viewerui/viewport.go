package viewerui

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Liando18/development-geotax/internal/humastar"
	"github.com/Liando18/development-geotax/internal/templates"
	"github.com/Liando18/development-geotax/internal/viewer"
)

// ViewportHandler receives move-end gestures from the map page and drives
// the live lat/lng/zoom readout plus the reset action.
type ViewportHandler struct {
	humastar.Handler
	viewer *viewer.Controller
}

func NewViewportHandler(v *viewer.Controller, renderer *templates.Renderer) *ViewportHandler {
	return &ViewportHandler{
		Handler: humastar.Handler{Renderer: renderer},
		viewer:  v,
	}
}

func (h *ViewportHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/ui/move", h.Move, huma.OperationTags("viewer-ui"))
	huma.Post(api, "/api/v1/ui/reset", h.Reset, huma.OperationTags("viewer-ui"))
}

// Move adopts a completed pan/zoom gesture. The widget clamps and rounds;
// whatever it settles on is pushed back as the readout signals.
func (h *ViewportHandler) Move(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	lat := signals.Float("lat")
	lng := signals.Float("lng")
	zoom := signals.Int("zoom")

	return h.Stream(func(sse humastar.SSE) {
		vp := h.viewer.EndGesture(lat, lng, zoom)
		sse.Signals(viewportSignals(vp))
	}), nil
}

// Reset restores the default view and clears any overlay. The basemap
// selection is untouched.
func (h *ViewportHandler) Reset(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.viewer.Reset()
		vp := h.viewer.Viewport()
		signals := viewportSignals(vp)
		signals["activeOverlay"] = ""
		sse.Signals(signals)
		sse.Success("View reset")
	}), nil
}

func viewportSignals(vp viewer.Viewport) map[string]any {
	return map[string]any{
		"lat":  vp.Lat,
		"lng":  vp.Lng,
		"zoom": vp.Zoom,
	}
}
