package overlay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Liando18/development-geotax/internal/mapview"
)

// ErrorKind classifies a load failure. All kinds are recoverable: the
// caller reports them and leaves prior state alone.
type ErrorKind int

const (
	// KindFetch is a transport failure or non-success HTTP status.
	KindFetch ErrorKind = iota
	// KindInvalid is a structurally invalid or empty feature collection.
	KindInvalid
	// KindBounds is a bounds-computation failure on otherwise valid data.
	KindBounds
)

func (k ErrorKind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindInvalid:
		return "invalid"
	case KindBounds:
		return "bounds"
	}
	return "unknown"
}

// LoadError is a classified overlay load failure.
type LoadError struct {
	Kind    ErrorKind
	Dataset Dataset
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("overlay %s: %s: %v", e.Dataset, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Result is a successfully fetched and validated dataset, ready to mount.
type Result struct {
	Dataset    Dataset
	Collection *geojson.FeatureCollection
	// Popups holds per-feature popup text aligned with Collection.Features.
	// An empty string means the feature carries no properties.
	Popups []string
}

// Layer builds the mountable feature layer, styled with DefaultStyle.
func (r *Result) Layer() *mapview.FeatureLayer {
	return &mapview.FeatureLayer{
		Name:       string(r.Dataset),
		Collection: r.Collection,
		Style:      DefaultStyle,
		Popups:     r.Popups,
	}
}

// Loader fetches catalog datasets over HTTP from static hosting.
type Loader struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewLoader creates a loader rooted at baseURL (the host serving
// /data/geojson/). A nil client gets a 30s-timeout default.
func NewLoader(baseURL string, client *http.Client, log *zap.Logger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{baseURL: baseURL, client: client, log: log}
}

// Load fetches, parses, and validates one dataset. Every failure comes
// back as a *LoadError; nothing here mutates viewer state.
func (l *Loader) Load(ctx context.Context, d Dataset) (*Result, error) {
	file, ok := File(d)
	if !ok {
		return nil, &LoadError{Kind: KindFetch, Dataset: d, Err: eris.Errorf("dataset %q not in catalog", d)}
	}

	url := fmt.Sprintf("%s/data/geojson/%s", l.baseURL, file)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &LoadError{Kind: KindFetch, Dataset: d, Err: eris.Wrap(err, "build request")}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &LoadError{Kind: KindFetch, Dataset: d, Err: eris.Wrap(err, "fetch geojson")}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{Kind: KindFetch, Dataset: d, Err: eris.Errorf("unexpected status %s", resp.Status)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LoadError{Kind: KindFetch, Dataset: d, Err: eris.Wrap(err, "read body")}
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, &LoadError{Kind: KindInvalid, Dataset: d, Err: eris.Wrap(err, "parse feature collection")}
	}
	if len(fc.Features) == 0 {
		return nil, &LoadError{Kind: KindInvalid, Dataset: d, Err: eris.New("feature collection is empty")}
	}

	popups, err := buildPopups(raw, fc)
	if err != nil {
		return nil, &LoadError{Kind: KindInvalid, Dataset: d, Err: eris.Wrap(err, "read feature properties")}
	}

	l.log.Info("overlay loaded",
		zap.String("dataset", string(d)),
		zap.String("file", file),
		zap.Int("features", len(fc.Features)),
	)

	return &Result{Dataset: d, Collection: fc, Popups: popups}, nil
}
