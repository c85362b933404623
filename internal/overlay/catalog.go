// Package overlay loads GeoJSON datasets from static hosting and prepares
// them for mounting as map feature layers.
package overlay

import (
	"fmt"

	"github.com/Liando18/development-geotax/internal/mapview"
)

// Dataset identifies one entry in the static catalog.
type Dataset string

const (
	// LandParcels is the tax parcel boundary dataset.
	LandParcels Dataset = "bidang-tanah"
	// LandValueZones is the land value zone dataset.
	LandValueZones Dataset = "zona-nilai-tanah"
)

// Entry is one catalog row: a dataset key, its UI label, and the file it
// is served from under /data/geojson/.
type Entry struct {
	Dataset Dataset `json:"dataset" doc:"Dataset key" example:"bidang-tanah"`
	Label   string  `json:"label" doc:"Display label" example:"Bidang Tanah"`
	File    string  `json:"file" doc:"GeoJSON file name" example:"bidang_tanah.geojson"`
}

var catalog = []Entry{
	{Dataset: LandParcels, Label: "Bidang Tanah", File: "bidang_tanah.geojson"},
	{Dataset: LandValueZones, Label: "Zona Nilai Tanah", File: "zona_nilai_tanah.geojson"},
}

// Catalog returns all entries in display order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// File returns the file name for a dataset.
func File(d Dataset) (string, bool) {
	for _, e := range catalog {
		if e.Dataset == d {
			return e.File, true
		}
	}
	return "", false
}

// Parse converts an API-supplied string into a catalog dataset.
func Parse(s string) (Dataset, error) {
	for _, e := range catalog {
		if e.Dataset == Dataset(s) {
			return e.Dataset, nil
		}
	}
	return "", fmt.Errorf("unknown dataset %q", s)
}

// DefaultStyle is the fixed style every overlay is drawn with.
var DefaultStyle = mapview.Style{
	FillColor:   "#3388ff",
	FillOpacity: 0.2,
	Color:       "#ff7800",
	Weight:      2,
	Opacity:     0.9,
}
