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

// orient returns a positive value when c lies to the left of the
// directed line a->b, negative to the right, and zero when the three
// points are collinear.
func orient(a, b, c geom.Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
}

// inCircle reports whether d lies strictly inside the circle through
// a, b and c, where (a, b, c) is counterclockwise.
func inCircle(a, b, c, d geom.Point) bool {
	ax, ay := a.X-d.X, a.Y-d.Y
	bx, by := b.X-d.X, b.Y-d.Y
	cx, cy := c.X-d.X, c.Y-d.Y
	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)
	return det > 0
}

// segmentsCross reports whether segments (a,b) and (c,d) properly
// intersect (crossing at a single interior point of both).
func segmentsCross(a, b, c, d geom.Point) bool {
	o1 := orient(a, b, c)
	o2 := orient(a, b, d)
	o3 := orient(c, d, a)
	o4 := orient(c, d, b)
	return o1*o2 < 0 && o3*o4 < 0
}

// segmentIntersection returns the intersection point of the lines
// through (a,b) and (c,d). The caller must ensure the lines are not
// parallel.
func segmentIntersection(a, b, c, d geom.Point) geom.Point {
	rX, rY := b.X-a.X, b.Y-a.Y
	sX, sY := d.X-c.X, d.Y-c.Y
	denom := rX*sY - rY*sX
	t := ((c.X-a.X)*sY - (c.Y-a.Y)*sX) / denom
	return geom.Point{X: a.X + t*rX, Y: a.Y + t*rY}
}
