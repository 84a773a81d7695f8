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
	"fmt"

	"github.com/ctessum/geom"
)

// ApplyConstraintPolygon inserts the polygon as a closed chain of
// constraint edges and re-marks the face domain classification. The
// polygon's vertices are inserted into the triangulation if not
// already present; Steiner points are introduced where a constraint
// segment crosses an existing constraint. Faces inside an odd number
// of constraint polygons are in the domain.
//
// Applying a constraint invalidates outstanding locate cursors.
func (t *Triangulation) ApplyConstraintPolygon(x, y []float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d x coordinates and %d y coordinates", ErrInvalidArgument, len(x), len(y))
	}
	n := len(x)
	// Tolerate an explicitly closed ring.
	if n > 1 && x[0] == x[n-1] && y[0] == y[n-1] {
		n--
	}
	if n < 3 {
		return fmt.Errorf("%w: a constraint polygon requires at least 3 vertices, got %d", ErrInvalidArgument, n)
	}

	handles := make([]int32, n)
	for i := 0; i < n; i++ {
		handles[i] = t.insertPoint(geom.Point{X: x[i], Y: y[i]})
	}
	for i := 0; i < n; i++ {
		if err := t.enforceSegment(handles[i], handles[(i+1)%n]); err != nil {
			return err
		}
	}

	t.markDomains()
	t.degenerate = !t.hasRealFace()
	t.gen++
	return nil
}

// facesAround calls fn for every face containing vertex a, passing
// the face handle and a's position in it. fn returns true to stop.
func (t *Triangulation) facesAround(a int32, fn func(f int32, k int) bool) {
	for f := range t.faces {
		fc := &t.faces[f]
		for k := 0; k < 3; k++ {
			if fc.v[k] == a {
				if fn(int32(f), k) {
					return
				}
				break
			}
		}
	}
}

// findEdge returns a face and edge index for the edge connecting a
// and b, if it exists.
func (t *Triangulation) findEdge(a, b int32) (int32, int, bool) {
	var rf int32
	var re int
	found := false
	t.facesAround(a, func(f int32, k int) bool {
		fc := &t.faces[f]
		if fc.v[(k+1)%3] == b {
			rf, re, found = f, (k+2)%3, true
		} else if fc.v[(k+2)%3] == b {
			rf, re, found = f, (k+1)%3, true
		}
		return found
	})
	return rf, re, found
}

// markConstrainedEdge flags edge e of face f, and its twin in the
// neighboring face, as constraint edges.
func (t *Triangulation) markConstrainedEdge(f int32, e int) {
	t.faces[f].constrained[e] = true
	if g := t.faces[f].n[e]; g != nilFace {
		t.faces[g].constrained[t.sharedEdge(g, f)] = true
	}
}

// enforceSegment makes the segment between vertices a and b appear as
// a chain of constraint edges, flipping crossed edges where possible
// and splitting them with Steiner points where not.
func (t *Triangulation) enforceSegment(a, b int32) error {
	work := [][2]int32{{a, b}}
	guard := 0
	limit := 100 * (len(t.faces) + 10)
	for len(work) > 0 {
		guard++
		if guard > limit {
			return fmt.Errorf("tri: constraint enforcement did not converge between vertices %d and %d", a, b)
		}
		seg := work[len(work)-1]
		work = work[:len(work)-1]
		ca, cb := seg[0], seg[1]
		if ca == cb {
			continue
		}
		if f, e, ok := t.findEdge(ca, cb); ok {
			t.markConstrainedEdge(f, e)
			continue
		}
		more, err := t.advanceSegment(ca, cb)
		if err != nil {
			return err
		}
		work = append(work, more...)
	}
	return nil
}

// advanceSegment resolves the first obstruction along the segment
// (a, b), returning the subsegments that remain to be enforced.
func (t *Triangulation) advanceSegment(a, b int32) ([][2]int32, error) {
	pa, pb := t.pts[a], t.pts[b]
	var out [][2]int32
	var err error
	resolved := false

	t.facesAround(a, func(f int32, k int) bool {
		fc := &t.faces[f]
		m := fc.v[(k+1)%3]
		n := fc.v[(k+2)%3]
		if t.isFrame(m) || t.isFrame(n) {
			return false
		}
		pm, pn := t.pts[m], t.pts[n]

		// A vertex lying exactly on the segment splits it.
		if orient(pa, pm, pb) == 0 && along(pa, pm, pb) {
			t.markConstrainedEdge(f, (k+2)%3)
			out = append(out, [2]int32{m, b})
			resolved = true
			return true
		}
		if orient(pa, pn, pb) == 0 && along(pa, pn, pb) {
			t.markConstrainedEdge(f, (k+1)%3)
			out = append(out, [2]int32{n, b})
			resolved = true
			return true
		}

		// The segment leaves f through the edge opposite a.
		if orient(pa, pm, pb) > 0 && orient(pa, pn, pb) < 0 &&
			segmentsCross(pa, pb, pm, pn) {
			out = t.resolveCrossing(f, k, a, b)
			resolved = true
			return true
		}
		return false
	})

	if !resolved {
		err = fmt.Errorf("tri: cannot trace constraint segment between vertices %d and %d", a, b)
	}
	return out, err
}

// resolveCrossing handles the constraint segment (a, b) crossing the
// edge opposite a in face f: the crossed edge is flipped when the
// surrounding quadrilateral allows it, otherwise a Steiner point is
// inserted at the intersection.
func (t *Triangulation) resolveCrossing(f int32, k int, a, b int32) [][2]int32 {
	fc := &t.faces[f]
	m := fc.v[(k+1)%3]
	n := fc.v[(k+2)%3]
	g := fc.n[k]
	j := t.sharedEdge(g, f)
	d := t.faces[g].v[j]

	flippable := !fc.constrained[k] && !t.isFrame(d) &&
		segmentsCross(t.pts[a], t.pts[d], t.pts[m], t.pts[n])
	if flippable {
		t.flip(f, k, g, j)
		return [][2]int32{{a, b}}
	}

	s := segmentIntersection(t.pts[a], t.pts[b], t.pts[m], t.pts[n])
	h := t.newVertex(s)
	t.splitEdge(f, k, h)
	return [][2]int32{{a, h}, {h, b}}
}

// along reports whether p, collinear with the segment (a, b), lies
// strictly between a and b.
func along(a, p, b geom.Point) bool {
	dx, dy := b.X-a.X, b.Y-a.Y
	dot := (p.X-a.X)*dx + (p.Y-a.Y)*dy
	return dot > 0 && dot < dx*dx+dy*dy
}

// markDomains classifies every face as inside or outside the
// constrained domain. Starting from the unbounded region (the faces
// touching the frame), faces are flooded breadth-first; crossing a
// constraint edge increments the nesting level. Odd nesting levels
// are in the domain.
func (t *Triangulation) markDomains() {
	level := make([]int, len(t.faces))
	for i := range level {
		level[i] = -1
	}

	type item struct {
		f int32
		l int
	}
	var queue []item
	for f := range t.faces {
		if t.faceHasFrame(int32(f)) {
			queue = append(queue, item{int32(f), 0})
			break
		}
	}

	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if level[it.f] >= 0 {
			continue
		}
		// Flood the zone reachable without crossing a constraint.
		stack := []int32{it.f}
		level[it.f] = it.l
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			fc := &t.faces[cur]
			for i := 0; i < 3; i++ {
				nb := fc.n[i]
				if nb == nilFace {
					continue
				}
				if fc.constrained[i] {
					if level[nb] < 0 {
						queue = append(queue, item{nb, it.l + 1})
					}
				} else if level[nb] < 0 {
					level[nb] = it.l
					stack = append(stack, nb)
				}
			}
		}
	}

	for f := range t.faces {
		t.faces[f].inDomain = level[f] >= 0 && level[f]%2 == 1 &&
			!t.faceHasFrame(int32(f))
	}
}
