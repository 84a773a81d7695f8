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

import "github.com/ctessum/geom"

// locateType classifies the result of a point-location query.
type locateType int

const (
	locateFace locateType = iota
	locateEdge
	locateVertex
	locateOutsideConvexHull
	locateOutsideAffineHull
)

// LocateCursor carries the face found by a previous query as the
// starting simplex for the next one, giving near-constant amortized
// cost on spatially coherent query streams. The zero value is ready
// to use. A cursor is owned by a single call site and must not be
// shared between goroutines; it is invalidated automatically when a
// constraint is added to the triangulation.
type LocateCursor struct {
	face int32
	gen  uint32
	ok   bool
}

// walk locates the face containing p with a straight walk from the
// start face, falling back to an exhaustive scan if the walk fails to
// make progress.
func (t *Triangulation) walk(p geom.Point, start int32) int32 {
	f := start
	if f < 0 || int(f) >= len(t.faces) {
		f = 0
	}
	prev := nilFace
	for step := 0; step <= 4*len(t.faces); step++ {
		fc := &t.faces[f]
		moved := false
		for i := 0; i < 3; i++ {
			g := fc.n[i]
			if g == nilFace || g == prev {
				continue
			}
			a := t.pts[fc.v[(i+1)%3]]
			b := t.pts[fc.v[(i+2)%3]]
			if orient(a, b, p) < 0 {
				prev, f = f, g
				moved = true
				break
			}
		}
		if !moved {
			return f
		}
	}
	return t.scan(p)
}

// scan finds a face containing p by brute force.
func (t *Triangulation) scan(p geom.Point) int32 {
	for f := range t.faces {
		fc := &t.faces[f]
		inside := true
		for i := 0; i < 3; i++ {
			a := t.pts[fc.v[(i+1)%3]]
			b := t.pts[fc.v[(i+2)%3]]
			if orient(a, b, p) < 0 {
				inside = false
				break
			}
		}
		if inside {
			return int32(f)
		}
	}
	// Unreachable: the frame triangle covers the plane of interest.
	return 0
}

// locate returns the face containing p and the hit classification.
// For hits on the hull boundary the returned face is always a finite
// one.
func (t *Triangulation) locate(p geom.Point, start int32) (int32, locateType) {
	if t.degenerate {
		return nilFace, locateOutsideAffineHull
	}
	f := t.walk(p, start)

	if t.faceHasFrame(f) {
		return t.resolveHullHit(p, f)
	}

	fc := &t.faces[f]
	zeros := 0
	for i := 0; i < 3; i++ {
		a := t.pts[fc.v[(i+1)%3]]
		b := t.pts[fc.v[(i+2)%3]]
		if orient(a, b, p) == 0 {
			zeros++
		}
	}
	switch zeros {
	case 0:
		return f, locateFace
	case 1:
		return f, locateEdge
	default:
		return f, locateVertex
	}
}

// resolveHullHit handles walks that end in a frame-incident face: the
// query is outside the convex hull unless it lies exactly on the hull
// boundary, in which case the finite face across the hull edge is
// returned.
func (t *Triangulation) resolveHullHit(p geom.Point, f int32) (int32, locateType) {
	fc := &t.faces[f]
	for i := 0; i < 3; i++ {
		a := fc.v[(i+1)%3]
		b := fc.v[(i+2)%3]
		if t.isFrame(a) || t.isFrame(b) {
			continue
		}
		pa, pb := t.pts[a], t.pts[b]
		if orient(pa, pb, p) != 0 || !onSegment(pa, pb, p) {
			continue
		}
		g := fc.n[i]
		if g == nilFace || t.faceHasFrame(g) {
			continue
		}
		if p == pa || p == pb {
			return g, locateVertex
		}
		return g, locateEdge
	}
	// A query at an exact hull vertex can end in an "ear" face whose
	// only finite feature is that vertex.
	for i := 0; i < 3; i++ {
		h := fc.v[i]
		if !t.isFrame(h) && t.pts[h] == p {
			if g := t.finiteFaceWithVertex(h); g != nilFace {
				return g, locateVertex
			}
		}
	}
	return nilFace, locateOutsideConvexHull
}

// finiteFaceWithVertex returns a finite face incident to vertex h, or
// nilFace if none exists.
func (t *Triangulation) finiteFaceWithVertex(h int32) int32 {
	for f := range t.faces {
		if t.faceHasFrame(int32(f)) {
			continue
		}
		fc := &t.faces[f]
		if fc.v[0] == h || fc.v[1] == h || fc.v[2] == h {
			return int32(f)
		}
	}
	return nilFace
}

// onSegment reports whether p, already known to be collinear with a
// and b, lies within the segment's bounding box.
func onSegment(a, b, p geom.Point) bool {
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
