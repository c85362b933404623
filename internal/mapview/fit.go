package mapview

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

var (
	errEmptyLayer      = errors.New("feature layer has no geometry")
	errDegenerateBound = errors.New("degenerate bound")
)

type errBoundPanic struct {
	value any
}

func (e errBoundPanic) Error() string {
	return fmt.Sprintf("bound computation panicked: %v", e.value)
}

// webMercatorMaxLat is the latitude limit of the web-mercator projection.
const webMercatorMaxLat = 85.05112878

const (
	tileSize   = 256
	fitMaxZoom = 19
)

// fitView computes the center/zoom that frames b inside a width x height
// pixel viewport, using fractional tile coordinates at zoom zero.
func fitView(b orb.Bound, width, height int) (View, error) {
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return View{}, errDegenerateBound
		}
	}
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return View{}, errDegenerateBound
	}

	min := mercatorFraction(b.Min)
	max := mercatorFraction(b.Max)

	// Fraction y grows southward, so the min-latitude corner has the
	// larger y.
	dx := max[0] - min[0]
	dy := min[1] - max[1]
	if dx <= 0 && dy <= 0 {
		return View{}, errDegenerateBound
	}

	zoom := float64(fitMaxZoom)
	if dx > 0 {
		zoom = math.Min(zoom, math.Log2(float64(width)/(dx*tileSize)))
	}
	if dy > 0 {
		zoom = math.Min(zoom, math.Log2(float64(height)/(dy*tileSize)))
	}
	z := int(math.Floor(zoom))
	if z < 0 {
		z = 0
	}

	cx := (min[0] + max[0]) / 2
	cy := (min[1] + max[1]) / 2
	return View{
		Lat:  fractionLat(cy),
		Lng:  cx*360 - 180,
		Zoom: z,
	}, nil
}

// mercatorFraction projects a lng/lat point to fractional tile coordinates
// at zoom zero, clamping latitude to the mercator range first.
func mercatorFraction(p orb.Point) orb.Point {
	lat := math.Max(-webMercatorMaxLat, math.Min(webMercatorMaxLat, p[1]))
	return maptile.Fraction(orb.Point{p[0], lat}, 0)
}

// fractionLat inverts the zoom-zero y fraction back to latitude.
func fractionLat(y float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
}
