/*
Copyright © 2023 the MetBuild authors.
This file is part of MetBuild.

MetBuild is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MetBuild is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MetBuild.  If not, see <http://www.gnu.org/licenses/>.
*/

package met

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/golang/geo/s2"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/metbuild/index/kdtree"
)

// EarthRadius is the radius of the Earth at the equator.
const EarthRadius = 6.3781e6 // meters

// Coverage is the oriented polygon bounding the region a source grid
// provides data for.
type Coverage struct {
	ring geom.Polygon
}

// NewCoverage builds a coverage region from a counterclockwise ring.
// The ring must be simple; that is the caller's obligation and is not
// checked.
func NewCoverage(ring []geom.Point) *Coverage {
	closed := make(geom.Path, 0, len(ring)+1)
	closed = append(closed, ring...)
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		closed = append(closed, ring[0])
	}
	return &Coverage{ring: geom.Polygon{closed}}
}

// Inside reports whether p is inside the region. Points exactly on an
// edge count as inside.
func (c *Coverage) Inside(p geom.Point) bool {
	return p.Within(c.ring) != geom.Outside
}

// Polygon returns the coverage ring.
func (c *Coverage) Polygon() geom.Polygon { return c.ring }

// AreaM2 returns the approximate spherical area of the region in
// square meters, treating the ring coordinates as degrees longitude
// and latitude.
func (c *Coverage) AreaM2() float64 {
	if len(c.ring) == 0 || len(c.ring[0]) < 3 {
		return 0
	}
	path := c.ring[0]
	pts := make([]s2.Point, 0, len(path))
	for i, v := range path {
		if i == len(path)-1 && v == path[0] {
			break
		}
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(v.Y, v.X)))
	}
	return s2.LoopFromPoints(pts).Area() * EarthRadius * EarthRadius
}

// NormalizeLongitude maps v to the interval [-180, 180).
func NormalizeLongitude(v float64) float64 {
	out := math.Mod(v+180, 360)
	if out < 0 {
		out += 360
	}
	return out - 180
}

// SourceField presents one decoded forecast snapshot: its native
// (i, j) grid geometry, value lookup by variable, a nearest-neighbor
// index over its coordinates, and its coverage polygon. Reading
// values blocks on disk I/O via the decoder; once read they are
// cached for the life of the field.
type SourceField struct {
	kind SourceKind
	path string
	dec  Decoder
	h    Handle

	ni, nj, n int
	lon, lat  []float64
	corners   [4]geom.Point
	coverage  *Coverage
	index     *kdtree.Tree

	values map[Variable][]float64
}

// NewSourceField opens the snapshot at path using the context's
// decoder and prepares its geometry: coordinates are read and
// longitude-normalized, the corner quadrilateral is derived, and the
// spatial index is built.
func NewSourceField(ctx *DecoderContext, path string, kind SourceKind) (*SourceField, error) {
	h, err := ctx.Decoder.Open(path)
	if err != nil {
		return nil, err
	}
	ni, nj, n, err := ctx.Decoder.Dims(h)
	if err != nil {
		return nil, err
	}
	if n != ni*nj {
		return nil, fmt.Errorf("%w: %s reports %d points for a %dx%d grid", ErrDecode, path, n, ni, nj)
	}

	lon, err := ctx.Decoder.ReadFloat64Array(h, "longitudes")
	if err != nil {
		return nil, err
	}
	lat, err := ctx.Decoder.ReadFloat64Array(h, "latitudes")
	if err != nil {
		return nil, err
	}
	if len(lon) != n || len(lat) != n {
		return nil, fmt.Errorf("%w: %s coordinate arrays have %d/%d values, want %d",
			ErrDecode, path, len(lon), len(lat), n)
	}
	lonN := make([]float64, n)
	for i, v := range lon {
		lonN[i] = NormalizeLongitude(v)
	}
	lat = append([]float64(nil), lat...)

	f := &SourceField{
		kind:   kind,
		path:   path,
		dec:    ctx.Decoder,
		h:      h,
		ni:     ni,
		nj:     nj,
		n:      n,
		lon:    lonN,
		lat:    lat,
		values: make(map[Variable][]float64),
	}
	f.deriveCorners()
	f.coverage = NewCoverage(f.corners[:])
	f.index, err = kdtree.New(f.lon, f.lat)
	if err != nil {
		return nil, err
	}

	if ctx.Log != nil {
		ctx.Log.WithFields(logrus.Fields{
			"path":   path,
			"source": kind.String(),
			"ni":     ni,
			"nj":     nj,
		}).Info("opened source snapshot")
	}
	return f, nil
}

// deriveCorners computes the corner quadrilateral from the first and
// last grid rows. This is an axis-aligned approximation: for grids
// rotated relative to longitude/latitude it under-reports coverage.
func (f *SourceField) deriveCorners() {
	xmin, xmax := math.Inf(1), math.Inf(-1)
	ymin, ymax := math.Inf(1), math.Inf(-1)
	scanRow := func(start int) {
		for k := start; k < start+f.nj; k++ {
			if f.lon[k] < xmin {
				xmin = f.lon[k]
			}
			if f.lon[k] > xmax {
				xmax = f.lon[k]
			}
			if f.lat[k] < ymin {
				ymin = f.lat[k]
			}
			if f.lat[k] > ymax {
				ymax = f.lat[k]
			}
		}
	}
	scanRow(0)
	scanRow((f.ni - 1) * f.nj)
	f.corners = [4]geom.Point{
		{X: xmin, Y: ymin},
		{X: xmax, Y: ymin},
		{X: xmax, Y: ymax},
		{X: xmin, Y: ymax},
	}
}

// Kind returns the forecast source the snapshot came from.
func (f *SourceField) Kind() SourceKind { return f.kind }

// Path returns the snapshot file path.
func (f *SourceField) Path() string { return f.path }

// Dims returns the native grid shape (ni rows, nj columns).
func (f *SourceField) Dims() (ni, nj int) { return f.ni, f.nj }

// Len returns the number of grid points.
func (f *SourceField) Len() int { return f.n }

// Lon returns the normalized longitude array, indexed k = i*nj + j.
func (f *SourceField) Lon() []float64 { return f.lon }

// Lat returns the latitude array, indexed k = i*nj + j.
func (f *SourceField) Lat() []float64 { return f.lat }

// Corners returns the corner quadrilateral, counterclockwise from the
// minimum corner.
func (f *SourceField) Corners() [4]geom.Point { return f.corners }

// Coverage returns the coverage region for the snapshot.
func (f *SourceField) Coverage() *Coverage { return f.coverage }

// Values returns the raw value array for the given variable, reading
// it on first use and caching it. Per-source unit scaling is not
// applied here.
func (f *SourceField) Values(v Variable) ([]float64, error) {
	if vals, ok := f.values[v]; ok {
		return vals, nil
	}
	attrs, err := f.kind.Attrs(v)
	if err != nil {
		return nil, err
	}
	vals, err := f.dec.ReadFloat64Array(f.h, attrs.ShortName)
	if err != nil {
		return nil, err
	}
	if len(vals) != f.n {
		return nil, fmt.Errorf("%w: record %q in %s has %d values, want %d",
			ErrDecode, attrs.ShortName, f.path, len(vals), f.n)
	}
	f.values[v] = vals
	return vals, nil
}

// Values2D returns the variable as an ni x nj matrix.
func (f *SourceField) Values2D(v Variable) (*sparse.DenseArray, error) {
	vals, err := f.Values(v)
	if err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(f.ni, f.nj)
	copy(out.Elements, vals)
	return out, nil
}

// Nearest returns the index of the grid point closest to the given
// location.
func (f *SourceField) Nearest(lon, lat float64) int {
	return f.index.Nearest(lon, lat)
}

// PointInside reports whether the location is within the snapshot's
// coverage region.
func (f *SourceField) PointInside(lon, lat float64) bool {
	return f.coverage.Inside(geom.Point{X: lon, Y: lat})
}

// IndexToIJ converts a flat grid index to row and column.
func (f *SourceField) IndexToIJ(k int) (i, j int) {
	return k / f.nj, k % f.nj
}

// Close releases the decoder handle. Cached values remain readable.
func (f *SourceField) Close() error {
	return f.dec.Close(f.h)
}
