// Package basemap defines the closed set of raster tile providers the
// viewer can mount as its base layer.
//
// The registry is static: entries are compiled in, never configured at
// runtime. Keys form an enumerated type so an unknown provider cannot
// reach the map widget from inside the program; free-form strings only
// exist at the API boundary, where Parse rejects them.
package basemap

import "fmt"

// Key identifies one provider in the registry.
type Key string

const (
	OpenStreetMap    Key = "osm"
	Satellite        Key = "satellite"
	SatelliteLabeled Key = "satellite-labeled"
	Topographic      Key = "topographic"
	Terrain          Key = "terrain"
	DarkMatter       Key = "dark-matter"
	Positron         Key = "positron"
	Streets          Key = "streets"
)

// Default is the provider mounted at startup.
const Default = SatelliteLabeled

// Spec describes a tile provider. URLTemplate carries the provider's
// placeholder tokens ({s} subdomain, {z}/{x}/{y} tile address, {r} retina
// suffix where supported). MaxZoom is the deepest level the provider serves.
type Spec struct {
	Name        string `json:"name" doc:"Display name" example:"OpenStreetMap"`
	URLTemplate string `json:"urlTemplate" doc:"Tile URL template with {s},{z},{x},{y} tokens"`
	Attribution string `json:"attribution" doc:"Attribution shown on the map"`
	MaxZoom     int    `json:"maxZoom" doc:"Maximum zoom level the provider serves" example:"19"`
}

var registry = map[Key]Spec{
	OpenStreetMap: {
		Name:        "OpenStreetMap",
		URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MaxZoom:     19,
	},
	Satellite: {
		Name:        "Satellite",
		URLTemplate: "https://{s}.google.com/vt/lyrs=s&x={x}&y={y}&z={z}",
		Attribution: "&copy; Google",
		MaxZoom:     20,
	},
	SatelliteLabeled: {
		Name:        "Satellite Labeled",
		URLTemplate: "https://{s}.google.com/vt/lyrs=y&x={x}&y={y}&z={z}",
		Attribution: "&copy; Google",
		MaxZoom:     20,
	},
	Topographic: {
		Name:        "Topographic",
		URLTemplate: "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: `Map data: &copy; OpenStreetMap contributors, SRTM | Map style: &copy; <a href="https://opentopomap.org">OpenTopoMap</a>`,
		MaxZoom:     17,
	},
	Terrain: {
		Name:        "Terrain",
		URLTemplate: "https://tiles.stadiamaps.com/tiles/stamen_terrain/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; <a href="https://stadiamaps.com/">Stadia Maps</a> &copy; <a href="https://stamen.com/">Stamen Design</a>`,
		MaxZoom:     18,
	},
	DarkMatter: {
		Name:        "Dark Matter",
		URLTemplate: "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; OpenStreetMap contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
	Positron: {
		Name:        "Positron",
		URLTemplate: "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; OpenStreetMap contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     20,
	},
	Streets: {
		Name:        "Streets",
		URLTemplate: "https://{s}.google.com/vt/lyrs=m&x={x}&y={y}&z={z}",
		Attribution: "&copy; Google",
		MaxZoom:     20,
	},
}

// order fixes the UI listing so the selector is stable across restarts.
var order = []Key{
	OpenStreetMap,
	Satellite,
	SatelliteLabeled,
	Topographic,
	Terrain,
	DarkMatter,
	Positron,
	Streets,
}

// Keys returns all registry keys in display order.
func Keys() []Key {
	out := make([]Key, len(order))
	copy(out, order)
	return out
}

// Lookup returns the spec for a key.
func Lookup(k Key) (Spec, bool) {
	s, ok := registry[k]
	return s, ok
}

// Parse converts an API-supplied string into a registry key.
func Parse(s string) (Key, error) {
	k := Key(s)
	if _, ok := registry[k]; !ok {
		return "", fmt.Errorf("unknown basemap %q", s)
	}
	return k, nil
}
