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

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	goshp "github.com/jonas-p/go-shp"
	"gonum.org/v1/gonum/floats"
)

func init() {
	gob.Register(geom.Polygon{})
}

// OutputGrid is the regular planar grid a resampled field is produced
// on: origin (X0, Y0), spacing (Dx, Dy), and Ni rows by Nj columns of
// grid points. SR is the grid's spatial reference; a nil SR means
// WGS84 longitude/latitude.
type OutputGrid struct {
	Name   string
	Ni, Nj int
	Dx, Dy float64
	X0, Y0 float64
	SR     *proj.SR

	Cells []*OutputCell
	rtree *rtree.Rtree

	x, y []float64 // point coordinate columns
}

// OutputCell is one cell of an output grid.
type OutputCell struct {
	geom.Polygonal
	Row, Col int
}

// NewOutputGrid creates a regular output grid. The grid must have
// positive spacing and at least 3 points in each direction.
func NewOutputGrid(name string, x0, y0, dx, dy float64, ni, nj int, sr *proj.SR) (*OutputGrid, error) {
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("metbuild: grid resolution must be greater than 0, got (%g, %g)", dx, dy)
	}
	const minGridPoints = 3
	if ni < minGridPoints || nj < minGridPoints {
		return nil, fmt.Errorf("metbuild: grid must have at least %d points in each direction, got (%d, %d)",
			minGridPoints, ni, nj)
	}

	grid := &OutputGrid{
		Name: name,
		Ni:   ni, Nj: nj,
		Dx: dx, Dy: dy,
		X0: x0, Y0: y0,
		SR: sr,
	}
	grid.x = make([]float64, nj)
	grid.y = make([]float64, ni)
	floats.Span(grid.x, x0, x0+dx*float64(nj-1))
	floats.Span(grid.y, y0, y0+dy*float64(ni-1))

	grid.rtree = rtree.NewTree(25, 50)
	grid.Cells = make([]*OutputCell, 0, (ni-1)*(nj-1))
	for iy := 0; iy < ni-1; iy++ {
		for ix := 0; ix < nj-1; ix++ {
			x := x0 + float64(ix)*dx
			y := y0 + float64(iy)*dy
			cell := &OutputCell{
				Row: iy, Col: ix,
				Polygonal: geom.Polygon([]geom.Path{{
					{X: x, Y: y}, {X: x + dx, Y: y},
					{X: x + dx, Y: y + dy}, {X: x, Y: y + dy}, {X: x, Y: y}}}),
			}
			grid.rtree.Insert(cell)
			grid.Cells = append(grid.Cells, cell)
		}
	}
	return grid, nil
}

// XColumn returns the grid point x coordinates.
func (grid *OutputGrid) XColumn() []float64 { return grid.x }

// YColumn returns the grid point y coordinates.
func (grid *OutputGrid) YColumn() []float64 { return grid.y }

// Point returns the grid point at row i, column j.
func (grid *OutputGrid) Point(i, j int) geom.Point {
	return geom.Point{X: grid.x[j], Y: grid.y[i]}
}

// Points returns all grid points in row-major order (k = i*Nj + j).
func (grid *OutputGrid) Points() []geom.Point {
	out := make([]geom.Point, 0, grid.Ni*grid.Nj)
	for i := 0; i < grid.Ni; i++ {
		for j := 0; j < grid.Nj; j++ {
			out = append(out, geom.Point{X: grid.x[j], Y: grid.y[i]})
		}
	}
	return out
}

// Width returns the grid extent in the x direction.
func (grid *OutputGrid) Width() float64 { return grid.Dx * float64(grid.Nj-1) }

// Height returns the grid extent in the y direction.
func (grid *OutputGrid) Height() float64 { return grid.Dy * float64(grid.Ni-1) }

// Centroid returns the center of the grid extent.
func (grid *OutputGrid) Centroid() geom.Point {
	return geom.Point{X: grid.X0 + grid.Width()/2, Y: grid.Y0 + grid.Height()/2}
}

// Corners returns the corners of the grid extent, counterclockwise
// from the origin.
func (grid *OutputGrid) Corners() [4]geom.Point {
	return [4]geom.Point{
		{X: grid.X0, Y: grid.Y0},
		{X: grid.X0 + grid.Width(), Y: grid.Y0},
		{X: grid.X0 + grid.Width(), Y: grid.Y0 + grid.Height()},
		{X: grid.X0, Y: grid.Y0 + grid.Height()},
	}
}

// IsInside reports whether the point is within the grid extent.
func (grid *OutputGrid) IsInside(p geom.Point) bool {
	return grid.X0 <= p.X && p.X <= grid.X0+grid.Width() &&
		grid.Y0 <= p.Y && p.Y <= grid.Y0+grid.Height()
}

// IJ returns the row and column of the cell containing the given
// location.
func (grid *OutputGrid) IJ(x, y float64) (i, j int) {
	return int((y - grid.Y0) / grid.Dy), int((x - grid.X0) / grid.Dx)
}

// CellAt returns the grid cell containing p, or nil when p is outside
// the grid.
func (grid *OutputGrid) CellAt(p geom.Point) *OutputCell {
	for _, cI := range grid.rtree.SearchIntersect(p.Bounds()) {
		c := cI.(*OutputCell)
		if p.Within(c.Polygonal) != geom.Outside {
			return c
		}
	}
	return nil
}

// WriteToShp writes the grid cells to a shapefile in directory
// outdir.
func (grid *OutputGrid) WriteToShp(outdir string) error {
	var err error
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(filepath.Join(outdir, grid.Name+ext))
	}
	fields := make([]goshp.Field, 2)
	fields[0] = goshp.NumberField("row", 10)
	fields[1] = goshp.NumberField("col", 10)
	var shpf *shp.Encoder
	shpf, err = shp.NewEncoderFromFields(filepath.Join(outdir, grid.Name+".shp"),
		goshp.POLYGON, fields...)
	if err != nil {
		return err
	}
	for _, cell := range grid.Cells {
		data := []interface{}{cell.Row, cell.Col}
		err = shpf.EncodeFields(cell.Polygonal, data...)
		if err != nil {
			return err
		}
	}
	shpf.Close()
	return nil
}
