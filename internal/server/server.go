// Package server wires the viewer controller, the JSON API, the Datastar
// UI handlers, and static hosting into one http.Handler.
package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"go.uber.org/zap"

	"github.com/Liando18/development-geotax/internal/api"
	"github.com/Liando18/development-geotax/internal/api/viewerui"
	"github.com/Liando18/development-geotax/internal/db"
	"github.com/Liando18/development-geotax/internal/mapview"
	"github.com/Liando18/development-geotax/internal/overlay"
	"github.com/Liando18/development-geotax/internal/templates"
	"github.com/Liando18/development-geotax/internal/viewer"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string // directory containing geojson/ with the catalog files
	WebDir  string // path to web/ directory for static files and templates
	DataURL string // optional external static host for /data/geojson; defaults to this server
}

// Server is the geotax viewer HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	viewer   *viewer.Controller
	renderer *templates.Renderer
	log      *zap.Logger
}

// New creates a new viewer server.
func New(cfg Config) *Server {
	log := zap.L().Named("server")
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("development-geotax API", "0.1.0")
	humaConfig.Info.Description = "Interactive map viewer for tax parcel and land value zone data: basemap registry, GeoJSON overlays, and viewport state."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	dataURL := cfg.DataURL
	if dataURL == "" {
		host := cfg.Host
		if host == "0.0.0.0" || host == "" {
			host = "127.0.0.1"
		}
		dataURL = fmt.Sprintf("http://%s:%s", host, cfg.Port)
	}

	widget := mapview.New()
	loader := overlay.NewLoader(dataURL, nil, log.Named("overlay"))
	ctrl := viewer.New(widget, loader, viewer.NewBus(), log.Named("viewer"))

	var renderer *templates.Renderer
	if cfg.WebDir != "" {
		fragmentsDir := filepath.Join(cfg.WebDir, "templates", "fragments")
		if r, err := templates.New(fragmentsDir); err == nil {
			renderer = r
			log.Info("loaded fragment templates", zap.String("dir", fragmentsDir))
		} else {
			log.Warn("fragment templates unavailable", zap.Error(err))
		}
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		viewer:   ctrl,
		renderer: renderer,
		log:      log,
	}

	conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "geotax"})
	if err != nil {
		log.Warn("duckdb unavailable", zap.Error(err))
	} else {
		s.db = conn
		if err := db.RegisterCatalog(conn, cfg.DataDir); err != nil {
			log.Warn("dataset views not registered", zap.Error(err))
		}
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}

// OpenAPI returns the generated spec for export.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Viewer exposes the controller for tests.
func (s *Server) Viewer() *viewer.Controller {
	return s.viewer
}

func (s *Server) routes() {
	services := &api.Services{Viewer: s.viewer}

	handler := api.NewAPIHandler(services)
	handler.RegisterHealth(s.humaAPI)
	handler.RegisterBasemaps(s.humaAPI)
	handler.RegisterViewer(s.humaAPI)
	handler.RegisterOverlays(s.humaAPI)

	api.NewInfoHandler(s.config.DataDir, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	if s.renderer != nil {
		viewerui.NewBasemapHandler(s.viewer, s.renderer).RegisterRoutes(s.humaAPI)
		viewerui.NewOverlayHandler(s.viewer, s.renderer).RegisterRoutes(s.humaAPI)
		viewerui.NewViewportHandler(s.viewer, s.renderer).RegisterRoutes(s.humaAPI)
		viewerui.NewEventHandler(s.viewer, s.renderer).RegisterRoutes(s.humaAPI)
	}

	// Static files and geojson data
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	geojsonDir := filepath.Join(s.config.DataDir, "geojson")
	s.mux.Handle("/data/geojson/", http.StripPrefix("/data/geojson/", s.handleGeoJSON(geojsonDir)))

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "development-geotax",
		"status":  "running",
	})
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	templatePath := filepath.Join(s.config.WebDir, "templates", "viewer.html")
	http.ServeFile(w, r, templatePath)
}

// handleGeoJSON serves the catalog files with CORS headers so an external
// viewer page can fetch them too.
func (s *Server) handleGeoJSON(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(dir)).ServeHTTP(w, r)
	})
}
