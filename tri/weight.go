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

package tri

import (
	"math"

	"github.com/ctessum/geom"
)

// InterpolationWeight holds barycentric interpolation weights for a
// query point inside a triangle. Vertices are input indices; weight i
// multiplies the value at vertex i. When Valid is false the query
// point was outside the triangulation and the other fields are zero.
//
// Weights sum to 1 and may be very slightly negative (about -1e-10)
// for points on a triangle edge; callers must tolerate this.
type InterpolationWeight struct {
	Vertices [3]int
	Weights  [3]float64
	Valid    bool
}

// Apply evaluates the weighted combination of the given values, which
// are indexed by vertex input index. It returns NaN for an invalid
// weight.
func (w InterpolationWeight) Apply(values []float64) float64 {
	if !w.Valid {
		return math.NaN()
	}
	return w.Weights[0]*values[w.Vertices[0]] +
		w.Weights[1]*values[w.Vertices[1]] +
		w.Weights[2]*values[w.Vertices[2]]
}

// ApplyMany evaluates each weight against values, returning one
// result per weight. Invalid weights yield NaN.
func ApplyMany(weights []InterpolationWeight, values []float64) []float64 {
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = w.Apply(values)
	}
	return out
}

// InterpolateAt computes interpolation weights for p without a locate
// hint.
func (t *Triangulation) InterpolateAt(p geom.Point) InterpolationWeight {
	var cur LocateCursor
	return t.InterpolateAtCursor(p, &cur)
}

// InterpolateAtCursor computes interpolation weights for p, starting
// the point location from the cursor's last hit. The cursor is reset
// if the triangulation has been modified since it was captured.
func (t *Triangulation) InterpolateAtCursor(p geom.Point, cur *LocateCursor) InterpolationWeight {
	start := t.lastFace
	if cur.ok && cur.gen == t.gen {
		start = cur.face
	}
	f, loc := t.locate(p, start)
	switch loc {
	case locateFace, locateEdge, locateVertex:
	default:
		return InterpolationWeight{}
	}
	cur.face = f
	cur.gen = t.gen
	cur.ok = true
	return t.barycentric(f, p)
}

// InterpolateMany computes weights for a batch of points, threading a
// single locate cursor through the queries.
func (t *Triangulation) InterpolateMany(points []geom.Point) []InterpolationWeight {
	out := make([]InterpolationWeight, len(points))
	var cur LocateCursor
	for i, p := range points {
		out[i] = t.InterpolateAtCursor(p, &cur)
	}
	return out
}

// barycentric computes the weight triple for p inside face f. The
// weight ordering matches the face's vertex ordering: the first
// weight multiplies vertex 0.
func (t *Triangulation) barycentric(f int32, p geom.Point) InterpolationWeight {
	fc := &t.faces[f]
	p0 := t.pts[fc.v[0]]
	p1 := t.pts[fc.v[1]]
	p2 := t.pts[fc.v[2]]

	v0x, v0y := p2.X-p0.X, p2.Y-p0.Y
	v1x, v1y := p1.X-p0.X, p1.Y-p0.Y
	v2x, v2y := p.X-p0.X, p.Y-p0.Y

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	inv := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * inv
	v := (dot00*dot12 - dot01*dot02) * inv
	w := 1.0 - u - v

	// A collinear face yields non-finite weights; report the point
	// as uncovered rather than returning garbage.
	if math.IsNaN(w) || math.IsInf(w, 0) ||
		math.IsNaN(v) || math.IsInf(v, 0) ||
		math.IsNaN(u) || math.IsInf(u, 0) {
		return InterpolationWeight{}
	}

	return InterpolationWeight{
		Vertices: [3]int{t.ext[fc.v[0]], t.ext[fc.v[1]], t.ext[fc.v[2]]},
		Weights:  [3]float64{w, v, u},
		Valid:    true,
	}
}
