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
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/ctessum/geom"
)

// regularGrid returns the points of an n x n grid covering [0,1]²,
// row-major.
func regularGrid(n int) (x, y []float64) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x = append(x, float64(j)/float64(n-1))
			y = append(y, float64(i)/float64(n-1))
		}
	}
	return
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
	}{
		{"size mismatch", []float64{0, 1, 2}, []float64{0, 1}},
		{"too few points", []float64{0, 1}, []float64{0, 1}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := New(test.x, test.y); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestUnitTriangleCentroid(t *testing.T) {
	tr, err := New([]float64{0, 1, 0.5}, []float64{0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	w := tr.InterpolateAt(geom.Point{X: 0.5, Y: 1.0 / 3.0})
	if !w.Valid {
		t.Fatal("centroid query should be valid")
	}
	var sum float64
	for i := 0; i < 3; i++ {
		if math.Abs(w.Weights[i]-1.0/3.0) > 1e-10 {
			t.Errorf("weight %d: %v != 1/3", i, w.Weights[i])
		}
		sum += w.Weights[i]
	}
	if math.Abs(sum-1) > 1e-10 {
		t.Errorf("weights sum to %v", sum)
	}
	seen := make(map[int]bool)
	for _, v := range w.Vertices {
		seen[v] = true
	}
	for i := 0; i < 3; i++ {
		if !seen[i] {
			t.Errorf("vertex %d missing from %v", i, w.Vertices)
		}
	}
}

func TestUnitTriangleExterior(t *testing.T) {
	tr, err := New([]float64{0, 1, 0.5}, []float64{0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	w := tr.InterpolateAt(geom.Point{X: 10, Y: 10})
	if w.Valid {
		t.Fatal("exterior query should be invalid")
	}
	if !math.IsNaN(w.Apply([]float64{1, 2, 3})) {
		t.Error("applying an invalid weight should yield NaN")
	}
}

func TestLinearExactness(t *testing.T) {
	x, y := regularGrid(5)
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	f := func(px, py float64) float64 { return 2*px + 3*py }
	values := make([]float64, len(x))
	for i := range x {
		values[i] = f(x[i], y[i])
	}

	queries := []geom.Point{
		{X: 0.7, Y: 0.3},
		{X: 0.1, Y: 0.9},
		{X: 0.5, Y: 0.5},
		{X: 0.33, Y: 0.77},
		{X: 0, Y: 0}, // grid corner
		{X: 0.25, Y: 0.5},
	}
	for _, q := range queries {
		t.Run(fmt.Sprintf("%g,%g", q.X, q.Y), func(t *testing.T) {
			w := tr.InterpolateAt(q)
			if !w.Valid {
				t.Fatal("interior query should be valid")
			}
			if got, want := w.Apply(values), f(q.X, q.Y); math.Abs(got-want) > 1e-10 {
				t.Errorf("interpolated %v, want %v", got, want)
			}
		})
	}
}

func TestWeightProperties(t *testing.T) {
	x, y := regularGrid(5)
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	var cur LocateCursor
	for qi := 0; qi < 21; qi++ {
		for qj := 0; qj < 21; qj++ {
			q := geom.Point{X: float64(qi) / 20, Y: float64(qj) / 20}
			w := tr.InterpolateAtCursor(q, &cur)
			if !w.Valid {
				t.Fatalf("query %v should be inside the hull", q)
			}
			sum := w.Weights[0] + w.Weights[1] + w.Weights[2]
			if math.Abs(sum-1) > 1e-10 {
				t.Errorf("query %v: weights sum to %v", q, sum)
			}
			for i := 0; i < 3; i++ {
				if w.Weights[i] < -1e-9 {
					t.Errorf("query %v: weight %d is %v", q, i, w.Weights[i])
				}
			}
		}
	}
}

func TestVertexIdentity(t *testing.T) {
	x, y := regularGrid(4)
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	for k := range x {
		w := tr.InterpolateAt(geom.Point{X: x[k], Y: y[k]})
		if !w.Valid {
			t.Fatalf("vertex %d query should be valid", k)
		}
		ones := 0
		for i := 0; i < 3; i++ {
			if math.Abs(w.Weights[i]-1) < 1e-10 {
				ones++
				if w.Vertices[i] != k {
					t.Errorf("vertex %d: unit weight on vertex %d", k, w.Vertices[i])
				}
			} else if math.Abs(w.Weights[i]) > 1e-10 {
				t.Errorf("vertex %d: unexpected weight %v", k, w.Weights[i])
			}
		}
		if ones != 1 {
			t.Errorf("vertex %d: %d unit weights in %v", k, ones, w.Weights)
		}
	}
}

func TestVerticesOrder(t *testing.T) {
	x := []float64{0, 1, 0.5, 0.2}
	y := []float64{0, 0, 1, 0.3}
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	verts := tr.Vertices()
	if len(verts) != len(x) {
		t.Fatalf("got %d vertices, want %d", len(verts), len(x))
	}
	for i := range x {
		if verts[i] != (geom.Point{X: x[i], Y: y[i]}) {
			t.Errorf("vertex %d: %v != (%v, %v)", i, verts[i], x[i], y[i])
		}
	}
}

func TestTrianglesEmptyBeforeConstraint(t *testing.T) {
	x, y := regularGrid(3)
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if tris := tr.Triangles(); len(tris) != 0 {
		t.Errorf("expected no in-domain triangles before constraints, got %d", len(tris))
	}
}

func TestConstraintErrors(t *testing.T) {
	x, y := regularGrid(3)
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.ApplyConstraintPolygon([]float64{0, 1}, []float64{0, 1}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for 2-vertex polygon, got %v", err)
	}
	if err := tr.ApplyConstraintPolygon([]float64{0, 1, 1}, []float64{0, 0}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for mismatched sizes, got %v", err)
	}
}

// triangleArea returns the area of the triangle with the given vertex
// indices.
func triangleArea(verts []geom.Point, tri [3]int) float64 {
	a, b, c := verts[tri[0]], verts[tri[1]], verts[tri[2]]
	return math.Abs((b.X-a.X)*(c.Y-a.Y)-(c.X-a.X)*(b.Y-a.Y)) / 2
}

func TestSquareConstraintCoverage(t *testing.T) {
	x, y := regularGrid(5)
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	err = tr.ApplyConstraintPolygon(
		[]float64{0, 1, 1, 0},
		[]float64{0, 0, 1, 1})
	if err != nil {
		t.Fatal(err)
	}

	tris := tr.Triangles()
	if len(tris) == 0 {
		t.Fatal("expected in-domain triangles after constraint")
	}
	verts := tr.Vertices()
	var area float64
	for _, tri := range tris {
		area += triangleArea(verts, tri)
	}
	if math.Abs(area-1) > 1e-9 {
		t.Errorf("in-domain area %v, want 1", area)
	}

	// The constrained triangulation still interpolates linear
	// functions exactly.
	values := make([]float64, len(verts))
	for i, v := range verts {
		values[i] = 2*v.X + 3*v.Y
	}
	w := tr.InterpolateAt(geom.Point{X: 0.7, Y: 0.3})
	if !w.Valid {
		t.Fatal("query should be valid")
	}
	if got := w.Apply(values); math.Abs(got-2.3) > 1e-10 {
		t.Errorf("interpolated %v, want 2.3", got)
	}
}

// starPolygon returns n points with radii alternating between inner
// and outer, starting with inner at angle zero.
func starPolygon(n int, inner, outer float64) (x, y []float64) {
	for k := 0; k < n; k++ {
		r := inner
		if k%2 == 1 {
			r = outer
		}
		angle := 2 * math.Pi * float64(k) / float64(n)
		x = append(x, r*math.Cos(angle))
		y = append(y, r*math.Sin(angle))
	}
	return
}

// inDomainAt reports whether p falls within any in-domain triangle.
func inDomainAt(tr *Triangulation, p geom.Point) bool {
	verts := tr.Vertices()
	for _, tri := range tr.Triangles() {
		a, b, c := verts[tri[0]], verts[tri[1]], verts[tri[2]]
		o1 := (b.X-a.X)*(p.Y-a.Y) - (p.X-a.X)*(b.Y-a.Y)
		o2 := (c.X-b.X)*(p.Y-b.Y) - (p.X-b.X)*(c.Y-b.Y)
		o3 := (a.X-c.X)*(p.Y-c.Y) - (p.X-c.X)*(a.Y-c.Y)
		if (o1 >= 0 && o2 >= 0 && o3 >= 0) || (o1 <= 0 && o2 <= 0 && o3 <= 0) {
			return true
		}
	}
	return false
}

func TestStarConstraint(t *testing.T) {
	x, y := starPolygon(10, 0.5, 1.0)
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.ApplyConstraintPolygon(x, y); err != nil {
		t.Fatal(err)
	}

	if !inDomainAt(tr, geom.Point{X: 0, Y: 0}) {
		t.Error("star center should be inside the constrained domain")
	}
	if inDomainAt(tr, geom.Point{X: 0.9, Y: 0}) {
		t.Error("(0.9, 0) lies in a concave notch and should be outside the domain")
	}
	// Also outside the domain, but inside the convex hull.
	if inDomainAt(tr, geom.Point{X: 0.7, Y: 0}) {
		t.Error("(0.7, 0) lies in a concave notch and should be outside the domain")
	}
	if w := tr.InterpolateAt(geom.Point{X: 0.7, Y: 0}); !w.Valid {
		t.Error("(0.7, 0) is inside the convex hull, so interpolation should succeed")
	}
}

func TestCursorSurvivesConstraint(t *testing.T) {
	x, y := regularGrid(5)
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	var cur LocateCursor
	q := geom.Point{X: 0.4, Y: 0.6}
	before := tr.InterpolateAtCursor(q, &cur)
	if !before.Valid {
		t.Fatal("query should be valid")
	}

	// Adding a constraint invalidates the cursor; queries through it
	// must still give correct results.
	if err := tr.ApplyConstraintPolygon([]float64{0, 1, 1, 0}, []float64{0, 0, 1, 1}); err != nil {
		t.Fatal(err)
	}
	after := tr.InterpolateAtCursor(q, &cur)
	if !after.Valid {
		t.Fatal("query after constraint should be valid")
	}
	values := make([]float64, len(tr.Vertices()))
	for i, v := range tr.Vertices() {
		values[i] = v.X - v.Y
	}
	if got, want := after.Apply(values), q.X-q.Y; math.Abs(got-want) > 1e-10 {
		t.Errorf("interpolated %v, want %v", got, want)
	}
}

func TestInterpolateMany(t *testing.T) {
	x, y := regularGrid(5)
	tr, err := New(x, y)
	if err != nil {
		t.Fatal(err)
	}
	values := make([]float64, len(x))
	for i := range x {
		values[i] = x[i] + y[i]
	}
	pts := []geom.Point{
		{X: 0.1, Y: 0.1},
		{X: 0.2, Y: 0.1},
		{X: 0.9, Y: 0.8},
		{X: 5, Y: 5}, // outside
		{X: 0.5, Y: 0.5},
	}
	got := ApplyMany(tr.InterpolateMany(pts), values)
	for i, q := range pts {
		want := q.X + q.Y
		if q.X > 1 {
			if !math.IsNaN(got[i]) {
				t.Errorf("query %v: got %v, want NaN", q, got[i])
			}
			continue
		}
		if math.Abs(got[i]-want) > 1e-10 {
			t.Errorf("query %v: got %v, want %v", q, got[i], want)
		}
	}
}

func TestDegenerateInput(t *testing.T) {
	// All points collinear: there is no containing triangle for any
	// query.
	tr, err := New([]float64{0, 1, 2, 3}, []float64{0, 1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if w := tr.InterpolateAt(geom.Point{X: 1, Y: 1}); w.Valid {
		t.Error("queries against collinear input should be invalid")
	}
}

func TestPlotEdges(t *testing.T) {
	tr, err := New([]float64{0, 1, 0.5}, []float64{0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	edges := tr.PlotEdges()
	if len(edges) != 3 {
		t.Errorf("a single triangle has 3 edges, got %d", len(edges))
	}
	for _, e := range edges {
		if e.Len() != 2 {
			t.Errorf("edge with %d points", e.Len())
		}
	}
}
