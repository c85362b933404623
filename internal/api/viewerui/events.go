package viewerui

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Liando18/development-geotax/internal/humastar"
	"github.com/Liando18/development-geotax/internal/templates"
	"github.com/Liando18/development-geotax/internal/viewer"
)

// EventHandler streams viewer change events to connected pages, so every
// open viewer shows the same readout and catalog highlighting.
type EventHandler struct {
	humastar.Handler
	viewer *viewer.Controller
}

func NewEventHandler(v *viewer.Controller, renderer *templates.Renderer) *EventHandler {
	return &EventHandler{
		Handler: humastar.Handler{Renderer: renderer},
		viewer:  v,
	}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/ui/events", h.Events, huma.OperationTags("viewer-ui"))
}

func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := humastar.NewSSE(humaCtx)
			ch := h.viewer.Bus().Subscribe()
			defer h.viewer.Bus().Unsubscribe(ch)

			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					switch ev.Resource {
					case "viewport":
						sse.Signals(viewportSignals(h.viewer.Viewport()))
					case "overlay":
						sse.Patch(renderCatalog(&h.Handler, h.viewer), "#overlay-list")
					}
					sse.DispatchCustomEvent("viewer-changed", map[string]any{
						"resource": ev.Resource,
						"action":   ev.Action,
						"id":       ev.ID,
					})
				}
			}
		},
	}, nil
}
