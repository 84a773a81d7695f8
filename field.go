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
Package metbuild resamples gridded meteorological forecast fields
onto user-defined output grids for use by hydrodynamic and wave
models. It blends pairs of forecast snapshots in time and
interpolates them in space with a constrained Delaunay triangulation
over the source grid.
*/
package metbuild

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// Field holds an N-component resampled field on an ni x nj grid.
// Component matrices are initialized to a per-component background
// value. Out-of-range access is a programming error and panics.
type Field struct {
	ni, nj int
	comps  []*sparse.DenseArray
}

// NewField creates a field with one component per background value.
func NewField(ni, nj int, backgrounds []float64) *Field {
	f := &Field{
		ni:    ni,
		nj:    nj,
		comps: make([]*sparse.DenseArray, len(backgrounds)),
	}
	for c, bg := range backgrounds {
		arr := sparse.ZerosDense(ni, nj)
		if bg != 0 {
			for i := range arr.Elements {
				arr.Elements[i] = bg
			}
		}
		f.comps[c] = arr
	}
	return f
}

// Dims returns the grid shape.
func (f *Field) Dims() (ni, nj int) { return f.ni, f.nj }

// Components returns the number of field components.
func (f *Field) Components() int { return len(f.comps) }

func (f *Field) check(c, i, j int) {
	if c < 0 || c >= len(f.comps) || i < 0 || i >= f.ni || j < 0 || j >= f.nj {
		panic(fmt.Sprintf("metbuild: field index (%d,%d,%d) out of range (%d,%d,%d)",
			c, i, j, len(f.comps), f.ni, f.nj))
	}
}

// Set stores a value in component c at row i, column j.
func (f *Field) Set(c, i, j int, v float64) {
	f.check(c, i, j)
	f.comps[c].Set(v, i, j)
}

// Get returns the value of component c at row i, column j.
func (f *Field) Get(c, i, j int) float64 {
	f.check(c, i, j)
	return f.comps[c].Get(i, j)
}

// Component returns the backing matrix of component c.
func (f *Field) Component(c int) *sparse.DenseArray {
	f.check(c, 0, 0)
	return f.comps[c]
}
