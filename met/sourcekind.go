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
Package met adapts decoded meteorological model snapshots for
resampling: it identifies forecast sources and their variables,
applies per-source naming and scaling conventions, and wraps one
decoded snapshot as a queryable source field with a spatial index and
a coverage polygon.
*/
package met

import "fmt"

// SourceKind identifies a meteorological forecast system. Each kind
// carries a fixed per-variable naming and scaling convention.
type SourceKind int

const (
	UnknownSource SourceKind = iota
	GFS
	GEFS
	NAM
	HWRF
	COAMPS
	HRRRConus
	HRRRAlaska
	WPC
	HAFS
)

func (k SourceKind) String() string {
	switch k {
	case GFS:
		return "gfs-ncep"
	case GEFS:
		return "gefs-ncep"
	case NAM:
		return "nam-ncep"
	case HWRF:
		return "hwrf"
	case COAMPS:
		return "coamps-tc"
	case HRRRConus:
		return "hrrr-conus"
	case HRRRAlaska:
		return "hrrr-alaska"
	case WPC:
		return "wpc-ncep"
	case HAFS:
		return "ncep-hafs"
	default:
		return "unknown"
	}
}

// SourceKindFromString converts a source name to a SourceKind.
func SourceKindFromString(s string) (SourceKind, error) {
	switch s {
	case "gfs-ncep":
		return GFS, nil
	case "gefs-ncep":
		return GEFS, nil
	case "nam-ncep":
		return NAM, nil
	case "hwrf":
		return HWRF, nil
	case "coamps-tc", "coamps-ctcx":
		return COAMPS, nil
	case "hrrr-conus":
		return HRRRConus, nil
	case "hrrr-alaska":
		return HRRRAlaska, nil
	case "wpc-ncep":
		return WPC, nil
	case "ncep-hafs-a", "ncep-hafs-b":
		return HAFS, nil
	default:
		return UnknownSource, fmt.Errorf("met: invalid meteorological source: %s", s)
	}
}
