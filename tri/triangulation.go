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

/*
Package tri implements a constrained Delaunay triangulation over 2-D
points with barycentric interpolation-weight extraction.

The triangulation is stored as an arena of faces and vertices keyed by
dense integer handles; neighbor and incidence pointers are handles into
the arena. Three synthetic "frame" vertices far outside the input
bounding box bound the mesh; faces incident to them play the role of
the infinite face and are never reported to callers.

Mutating operations (construction, constraint insertion) must be
serialized by the caller. Query methods are read-only and safe for
concurrent use, except that a LocateCursor must not be shared between
goroutines.
*/
package tri

import (
	"errors"
	"fmt"

	"github.com/ctessum/geom"

	"github.com/spatialmodel/metbuild/plot"
)

// ErrInvalidArgument is returned for mismatched coordinate slices,
// fewer than 3 triangulation points, or fewer than 3 constraint
// polygon vertices.
var ErrInvalidArgument = errors.New("tri: invalid argument")

// nilFace marks a missing face neighbor.
const nilFace = int32(-1)

// frameVertices is the number of synthetic bounding vertices; they
// occupy handles [0, frameVertices).
const frameVertices = 3

type face struct {
	// v holds vertex handles in counterclockwise order. Edge i is
	// the edge opposite v[i], connecting v[(i+1)%3] and v[(i+2)%3].
	v [3]int32
	// n[i] is the face across edge i, or nilFace.
	n [3]int32
	// constrained[i] marks edge i as a constraint edge.
	constrained [3]bool
	// inDomain is set by domain marking; false until a constraint
	// polygon has been applied.
	inDomain bool
}

// Triangulation is a constrained Delaunay triangulation. Vertices
// supplied to New carry a stable input index (their position in the
// input slices) which identifies them in all interpolation results.
type Triangulation struct {
	pts   []geom.Point
	ext   []int // input index by vertex handle; -1 for the frame
	faces []face

	// next input index to assign; counts distinct inserted vertices
	// including Steiner points introduced by constraints.
	nextExt int

	// degenerate is true while every input point is collinear, in
	// which case all queries report outside-affine-hull.
	degenerate bool

	// gen invalidates locate cursors when the face arena changes
	// shape (constraint insertion).
	gen uint32

	// lastFace is the starting simplex for hintless locates.
	lastFace int32
}

// New builds a Delaunay triangulation over the given points. Input
// index i is assigned to point (x[i], y[i]); exact duplicate points
// collapse onto the first occurrence. New returns ErrInvalidArgument
// when the slices differ in length or hold fewer than 3 points.
func New(x, y []float64) (*Triangulation, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x coordinates and %d y coordinates", ErrInvalidArgument, len(x), len(y))
	}
	if len(x) < 3 {
		return nil, fmt.Errorf("%w: at least 3 points are required, got %d", ErrInvalidArgument, len(x))
	}

	t := new(Triangulation)
	t.initFrame(x, y)
	for i := range x {
		p := geom.Point{X: x[i], Y: y[i]}
		if h := t.insertPoint(p); t.ext[h] != i {
			// An exact duplicate collapses onto the earlier vertex in
			// the mesh; an unlinked vertex keeps index i in use so that
			// later points keep their positions as input indices.
			t.newVertex(p)
		}
	}
	t.degenerate = !t.hasRealFace()
	return t, nil
}

// initFrame creates the three far-away frame vertices and the initial
// face spanning them.
func (t *Triangulation) initFrame(x, y []float64) {
	xmin, xmax := x[0], x[0]
	ymin, ymax := y[0], y[0]
	for i := range x {
		if x[i] < xmin {
			xmin = x[i]
		}
		if x[i] > xmax {
			xmax = x[i]
		}
		if y[i] < ymin {
			ymin = y[i]
		}
		if y[i] > ymax {
			ymax = y[i]
		}
	}
	cx, cy := (xmin+xmax)/2, (ymin+ymax)/2
	d := xmax - xmin
	if dy := ymax - ymin; dy > d {
		d = dy
	}
	if d < 1 {
		d = 1
	}
	r := d * 1e5

	t.pts = []geom.Point{
		{X: cx - 3*r, Y: cy - r},
		{X: cx + 3*r, Y: cy - r},
		{X: cx, Y: cy + 3*r},
	}
	t.ext = []int{-1, -1, -1}
	t.faces = []face{{
		v: [3]int32{0, 1, 2},
		n: [3]int32{nilFace, nilFace, nilFace},
	}}
	t.lastFace = 0
}

func (t *Triangulation) isFrame(h int32) bool { return h < frameVertices }

func (t *Triangulation) faceHasFrame(f int32) bool {
	fc := &t.faces[f]
	return t.isFrame(fc.v[0]) || t.isFrame(fc.v[1]) || t.isFrame(fc.v[2])
}

func (t *Triangulation) hasRealFace() bool {
	for f := range t.faces {
		if !t.faceHasFrame(int32(f)) {
			return true
		}
	}
	return false
}

// newVertex appends a vertex and assigns it the next input index.
func (t *Triangulation) newVertex(p geom.Point) int32 {
	h := int32(len(t.pts))
	t.pts = append(t.pts, p)
	t.ext = append(t.ext, t.nextExt)
	t.nextExt++
	return h
}

// insertPoint adds p to the triangulation, returning the handle of
// its vertex. A point coinciding exactly with an existing vertex
// returns that vertex's handle.
func (t *Triangulation) insertPoint(p geom.Point) int32 {
	f := t.walk(p, t.lastFace)
	fc := &t.faces[f]

	// Orientation of p against each edge of the located face.
	var o [3]float64
	var zeros, zeroEdge int
	for i := 0; i < 3; i++ {
		a := t.pts[fc.v[(i+1)%3]]
		b := t.pts[fc.v[(i+2)%3]]
		o[i] = orient(a, b, p)
		if o[i] == 0 {
			zeros++
			zeroEdge = i
		}
	}

	switch zeros {
	case 2:
		// Coincides with the vertex shared by the two zero edges.
		for i := 0; i < 3; i++ {
			if t.pts[fc.v[i]] == p {
				return fc.v[i]
			}
		}
		// Fall through to an interior split when the zeros were
		// an artifact of a degenerate face.
		fallthrough
	case 0:
		h := t.newVertex(p)
		t.splitFace(f, h)
		return h
	default: // 1
		h := t.newVertex(p)
		t.splitEdge(f, zeroEdge, h)
		return h
	}
}

// splitFace replaces face f with three faces joining its corners to
// the new vertex p, then restores the Delaunay property.
func (t *Triangulation) splitFace(f int32, p int32) {
	fc := t.faces[f]
	a, b, c := fc.v[0], fc.v[1], fc.v[2]
	na, nb, nc := fc.n[0], fc.n[1], fc.n[2]
	ca, cb, cc := fc.constrained[0], fc.constrained[1], fc.constrained[2]

	f1 := int32(len(t.faces))
	f2 := f1 + 1

	t.faces[f] = face{
		v:           [3]int32{a, b, p},
		n:           [3]int32{f1, f2, nc},
		constrained: [3]bool{false, false, cc},
	}
	t.faces = append(t.faces,
		face{
			v:           [3]int32{b, c, p},
			n:           [3]int32{f2, f, na},
			constrained: [3]bool{false, false, ca},
		},
		face{
			v:           [3]int32{c, a, p},
			n:           [3]int32{f, f1, nb},
			constrained: [3]bool{false, false, cb},
		})

	t.replaceNeighbor(na, f, f1)
	t.replaceNeighbor(nb, f, f2)

	t.lastFace = f
	t.legalize(p, [][2]int32{{f, 2}, {f1, 2}, {f2, 2}})
}

// splitEdge inserts vertex p lying exactly on edge e of face f,
// splitting f and (when present) the face across the edge.
func (t *Triangulation) splitEdge(f int32, e int, p int32) {
	fc := t.faces[f]
	i1, i2 := (e+1)%3, (e+2)%3
	c := fc.v[e]  // vertex opposite the split edge
	x := fc.v[i1] // split edge runs x -> y in f's boundary
	y := fc.v[i2]
	edgeConstrained := fc.constrained[e]
	g := fc.n[e]
	nA := fc.n[i1] // across edge (y, c)
	nB := fc.n[i2] // across edge (c, x)
	cA := fc.constrained[i1]
	cB := fc.constrained[i2]

	fn := int32(len(t.faces))
	t.faces[f] = face{
		v:           [3]int32{c, x, p},
		n:           [3]int32{nilFace, fn, nB},
		constrained: [3]bool{edgeConstrained, false, cB},
	}
	t.faces = append(t.faces, face{
		v:           [3]int32{c, p, y},
		n:           [3]int32{nilFace, nA, f},
		constrained: [3]bool{edgeConstrained, cA, false},
	})
	t.replaceNeighbor(nA, f, fn)

	pending := [][2]int32{{f, 2}, {fn, 1}}

	if g != nilFace {
		gc := t.faces[g]
		j := t.sharedEdge(g, f)
		j1, j2 := (j+1)%3, (j+2)%3
		d := gc.v[j]
		nC := gc.n[j1] // across edge (x, d)
		nD := gc.n[j2] // across edge (d, y)
		cC := gc.constrained[j1]
		cD := gc.constrained[j2]

		gn := int32(len(t.faces))
		t.faces[g] = face{
			v:           [3]int32{d, p, x},
			n:           [3]int32{f, nC, gn},
			constrained: [3]bool{edgeConstrained, cC, false},
		}
		t.faces = append(t.faces, face{
			v:           [3]int32{d, y, p},
			n:           [3]int32{fn, g, nD},
			constrained: [3]bool{edgeConstrained, false, cD},
		})
		t.replaceNeighbor(nD, g, gn)

		t.faces[f].n[0] = g
		t.faces[fn].n[0] = gn
		pending = append(pending, [2]int32{g, 1}, [2]int32{gn, 2})
	}

	t.lastFace = f
	t.legalize(p, pending)
}

// sharedEdge returns the index of the edge of face g that borders
// face f.
func (t *Triangulation) sharedEdge(g, f int32) int {
	for j := 0; j < 3; j++ {
		if t.faces[g].n[j] == f {
			return j
		}
	}
	panic("tri: inconsistent face adjacency")
}

func (t *Triangulation) replaceNeighbor(f, old, new int32) {
	if f == nilFace {
		return
	}
	for i := 0; i < 3; i++ {
		if t.faces[f].n[i] == old {
			t.faces[f].n[i] = new
			return
		}
	}
	panic("tri: inconsistent face adjacency")
}

// conflict reports whether d lies inside the circumcircle of the
// counterclockwise face (a, b, c). Frame vertices are treated as
// points at infinity: a face with one frame vertex has a degenerate
// circumcircle equal to the half-plane left of its finite edge.
func (t *Triangulation) conflict(a, b, c, d int32) bool {
	if t.isFrame(d) {
		return false
	}
	switch {
	case t.isFrame(a):
		if t.isFrame(b) || t.isFrame(c) {
			return false
		}
		return orient(t.pts[b], t.pts[c], t.pts[d]) > 0
	case t.isFrame(b):
		if t.isFrame(c) {
			return false
		}
		return orient(t.pts[c], t.pts[a], t.pts[d]) > 0
	case t.isFrame(c):
		return orient(t.pts[a], t.pts[b], t.pts[d]) > 0
	default:
		return inCircle(t.pts[a], t.pts[b], t.pts[c], t.pts[d])
	}
}

// legalize restores the Delaunay property after inserting p by
// flipping illegal edges. pending holds (face, edge) pairs where the
// edge is opposite p in the face.
func (t *Triangulation) legalize(p int32, pending [][2]int32) {
	for len(pending) > 0 {
		fe := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		f, e := fe[0], int(fe[1])

		fc := &t.faces[f]
		if fc.v[e] != p {
			// The face was rewritten by a later flip; skip.
			continue
		}
		g := fc.n[e]
		if g == nilFace || fc.constrained[e] {
			continue
		}
		j := t.sharedEdge(g, f)
		d := t.faces[g].v[j]
		if !t.conflict(fc.v[0], fc.v[1], fc.v[2], d) {
			continue
		}
		t.flip(f, e, g, j)
		// After the flip, face f holds (p, x, d) and face g holds
		// (p, d, y); the edges opposite p may now be illegal.
		pending = append(pending, [2]int32{f, 0}, [2]int32{g, 0})
	}
}

// flip replaces the edge shared by faces f and g with the edge
// joining their opposite vertices. e and j are the shared-edge
// indices in f and g. After the flip, f = (c, x, d) and g = (c, d, y)
// where c = f.v[e], d = g.v[j] and the shared edge ran x->y in f.
func (t *Triangulation) flip(f int32, e int, g int32, j int) {
	fc := t.faces[f]
	gc := t.faces[g]
	i1, i2 := (e+1)%3, (e+2)%3
	j1, j2 := (j+1)%3, (j+2)%3

	c := fc.v[e]
	x := fc.v[i1]
	y := fc.v[i2]
	d := gc.v[j]

	nA := fc.n[i1] // across (y, c)
	nB := fc.n[i2] // across (c, x)
	nC := gc.n[j1] // across (x, d)
	nD := gc.n[j2] // across (d, y)
	cA := fc.constrained[i1]
	cB := fc.constrained[i2]
	cC := gc.constrained[j1]
	cD := gc.constrained[j2]

	t.faces[f] = face{
		v:           [3]int32{c, x, d},
		n:           [3]int32{nC, g, nB},
		constrained: [3]bool{cC, false, cB},
	}
	t.faces[g] = face{
		v:           [3]int32{c, d, y},
		n:           [3]int32{nD, nA, f},
		constrained: [3]bool{cD, cA, false},
	}
	t.replaceNeighbor(nC, g, f)
	t.replaceNeighbor(nA, f, g)
}

// Vertices returns the inserted points ordered by input index,
// including exact duplicates of earlier inputs. Steiner points
// introduced by constraint insertion appear after the original inputs.
func (t *Triangulation) Vertices() []geom.Point {
	out := make([]geom.Point, t.nextExt)
	for h := frameVertices; h < len(t.pts); h++ {
		out[t.ext[h]] = t.pts[h]
	}
	return out
}

// Triangles returns the vertex input-index triples of every finite
// face inside the constrained domain. Before any constraint polygon
// has been applied, no face is in the domain and the result is empty.
func (t *Triangulation) Triangles() [][3]int {
	var out [][3]int
	for f := range t.faces {
		fc := &t.faces[f]
		if !fc.inDomain || t.faceHasFrame(int32(f)) {
			continue
		}
		out = append(out, [3]int{
			t.ext[fc.v[0]],
			t.ext[fc.v[1]],
			t.ext[fc.v[2]],
		})
	}
	return out
}

// PlotEdges returns the finite triangulation edges as two-point lines
// for plotting.
func (t *Triangulation) PlotEdges() []plot.XYs {
	var out []plot.XYs
	for f := range t.faces {
		fc := &t.faces[f]
		for i := 0; i < 3; i++ {
			if fc.n[i] != nilFace && fc.n[i] < int32(f) {
				continue // already emitted from the other side
			}
			a := fc.v[(i+1)%3]
			b := fc.v[(i+2)%3]
			if t.isFrame(a) || t.isFrame(b) {
				continue
			}
			out = append(out, plot.XYs{
				{X: t.pts[a].X, Y: t.pts[a].Y},
				{X: t.pts[b].X, Y: t.pts[b].Y},
			})
		}
	}
	return out
}
