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

package metbuild

import "time"

// GenerateTimeWeight returns the linear blending factor between two
// adjacent snapshots at times t1 and t2 for an output time tOut: 0
// when tOut <= t1, 1 when tOut >= t2, and the linear fraction in
// between.
func GenerateTimeWeight(t1, t2, tOut time.Time) float64 {
	if !tOut.Before(t2) {
		return 1
	}
	if !tOut.After(t1) {
		return 0
	}
	return float64(tOut.Sub(t1)) / float64(t2.Sub(t1))
}
