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
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/metbuild/internal/hash"
	"github.com/spatialmodel/metbuild/met"
	"github.com/spatialmodel/metbuild/tri"
)

var longLatSR *proj.SR

func init() {
	var err error
	longLatSR, err = proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
	if err != nil {
		panic(err)
	}
}

// Snapshot pairs a source field with its forecast valid time.
type Snapshot struct {
	Field *met.SourceField
	Time  time.Time
}

// Options configures a Meteorology driver.
type Options struct {
	// Grid is the output grid fields are resampled onto.
	Grid *OutputGrid
	// Source selects the per-variable naming and scaling
	// conventions.
	Source met.SourceKind
	// Variables selects the variable set to resample.
	Variables met.VariableSelection
	// Backfill fills output cells outside source coverage with the
	// nearest source value instead of the background value.
	Backfill bool
	// DomainLevel is the nesting level of this grid in a multi-domain
	// request; level 0 is the outermost domain.
	DomainLevel int
	// Log receives progress information. Nil disables logging.
	Log *logrus.Logger
}

// Meteorology resamples fields from a pair of adjacent forecast
// snapshots onto an output grid. It owns at most two snapshots at a
// time: the one before and the one after the current output time.
// A driver instance must be used from a single goroutine.
type Meteorology struct {
	opts Options

	s1, s2 *Snapshot

	// queryX and queryY hold the output grid points reprojected into
	// source longitude/latitude space, row-major.
	queryX, queryY []float64
	queryPts       []geom.Point
	gridKey        string

	// tris caches one triangulation per source-grid geometry.
	tris map[string]*tri.Triangulation
	// weightCache caches interpolation weights keyed on the grid and
	// source geometry identities.
	weightCache *requestcache.Cache
}

// weightRequest is the payload for a cached weight computation.
type weightRequest struct {
	t   *tri.Triangulation
	pts []geom.Point
}

// NewMeteorology creates a driver for the given output grid and
// source conventions. The grid is reprojected into source
// longitude/latitude space once, up front.
func NewMeteorology(opts Options) (*Meteorology, error) {
	if opts.Grid == nil {
		return nil, fmt.Errorf("metbuild: an output grid is required")
	}
	m := &Meteorology{
		opts: opts,
		tris: make(map[string]*tri.Triangulation),
	}
	if err := m.projectGrid(); err != nil {
		return nil, err
	}
	m.gridKey = hash.Hash(struct {
		Name           string
		X0, Y0, Dx, Dy float64
		Ni, Nj         int
	}{opts.Grid.Name, opts.Grid.X0, opts.Grid.Y0, opts.Grid.Dx, opts.Grid.Dy,
		opts.Grid.Ni, opts.Grid.Nj})

	m.weightCache = requestcache.NewCache(
		func(ctx context.Context, payload interface{}) (interface{}, error) {
			req := payload.(*weightRequest)
			return req.t.InterpolateMany(req.pts), nil
		},
		runtime.GOMAXPROCS(-1), requestcache.Deduplicate(), requestcache.Memory(10))
	return m, nil
}

// projectGrid computes the output grid points in source
// longitude/latitude space.
func (m *Meteorology) projectGrid() error {
	pts := m.opts.Grid.Points()
	if m.opts.Grid.SR != nil {
		ct, err := m.opts.Grid.SR.NewTransform(longLatSR)
		if err != nil {
			return fmt.Errorf("metbuild: creating grid transform: %w", err)
		}
		for i, p := range pts {
			x, y, err := ct(p.X, p.Y)
			if err != nil {
				return fmt.Errorf("metbuild: reprojecting grid point %v: %w", p, err)
			}
			pts[i] = geom.Point{X: x, Y: y}
		}
	}
	m.queryPts = make([]geom.Point, len(pts))
	m.queryX = make([]float64, len(pts))
	m.queryY = make([]float64, len(pts))
	for i, p := range pts {
		p.X = met.NormalizeLongitude(p.X)
		m.queryPts[i] = p
		m.queryX[i] = p.X
		m.queryY[i] = p.Y
	}
	return nil
}

// Grid returns the output grid.
func (m *Meteorology) Grid() *OutputGrid { return m.opts.Grid }

// F1 returns the earlier snapshot, or nil.
func (m *Meteorology) F1() *Snapshot { return m.s1 }

// F2 returns the later snapshot, or nil.
func (m *Meteorology) F2() *Snapshot { return m.s2 }

// SetNextFile registers the next snapshot to process. The first two
// calls fill the snapshot pair; later calls shift the later snapshot
// into the earlier slot.
func (m *Meteorology) SetNextFile(f *met.SourceField, t time.Time) {
	s := &Snapshot{Field: f, Time: t}
	switch {
	case m.s1 == nil:
		m.s1 = s
	case m.s2 == nil:
		m.s2 = s
	default:
		m.s1, m.s2 = m.s2, s
	}
}

// TimeWeight returns the blending factor for the given output time.
func (m *Meteorology) TimeWeight(t time.Time) float64 {
	return GenerateTimeWeight(m.s1.Time, m.s2.Time, t)
}

// triangulationFor returns the cached triangulation over the
// snapshot's source points, building it with the snapshot's coverage
// polygon as constraint on first use.
func (m *Meteorology) triangulationFor(s *Snapshot) (*tri.Triangulation, string, error) {
	key := hash.Hash(struct {
		Lon, Lat []float64
	}{s.Field.Lon(), s.Field.Lat()})
	if t, ok := m.tris[key]; ok {
		return t, key, nil
	}

	t, err := tri.New(s.Field.Lon(), s.Field.Lat())
	if err != nil {
		return nil, "", fmt.Errorf("metbuild: triangulating %s: %w", s.Field.Path(), err)
	}
	corners := s.Field.Corners()
	cx := make([]float64, len(corners))
	cy := make([]float64, len(corners))
	for i, c := range corners {
		cx[i] = c.X
		cy[i] = c.Y
	}
	if err := t.ApplyConstraintPolygon(cx, cy); err != nil {
		return nil, "", fmt.Errorf("metbuild: constraining %s: %w", s.Field.Path(), err)
	}
	if m.opts.Log != nil {
		m.opts.Log.WithFields(logrus.Fields{
			"path":      s.Field.Path(),
			"points":    s.Field.Len(),
			"triangles": len(t.Triangles()),
		}).Info("built source triangulation")
	}
	m.tris[key] = t
	return t, key, nil
}

// weightsFor returns interpolation weights from the snapshot's
// triangulation to the output grid points, cached on the pair of
// geometry identities.
func (m *Meteorology) weightsFor(s *Snapshot) ([]tri.InterpolationWeight, error) {
	t, geomKey, err := m.triangulationFor(s)
	if err != nil {
		return nil, err
	}
	req := m.weightCache.NewRequest(context.Background(), &weightRequest{t: t, pts: m.queryPts},
		"weights_"+geomKey+"_"+m.gridKey)
	result, err := req.Result()
	if err != nil {
		return nil, err
	}
	return result.([]tri.InterpolationWeight), nil
}

// variables returns the requested variables the configured source
// provides.
func (m *Meteorology) variables() []met.Variable {
	var out []met.Variable
	for _, v := range m.opts.Variables.Select() {
		if m.opts.Source.HasVariable(v) {
			out = append(out, v)
		}
	}
	return out
}

// Get produces the resampled field at the given output time,
// blending the two snapshots linearly in time.
func (m *Meteorology) Get(tOut time.Time) (*Field, error) {
	if m.s1 == nil || m.s2 == nil {
		return nil, fmt.Errorf("metbuild: two snapshots are required before Get")
	}
	return m.GetWithTimeWeight(tOut, m.TimeWeight(tOut))
}

// GetWithTimeWeight produces the resampled field using an explicit
// blending factor instead of one derived from the output time.
func (m *Meteorology) GetWithTimeWeight(tOut time.Time, alpha float64) (*Field, error) {
	if m.s1 == nil || m.s2 == nil {
		return nil, fmt.Errorf("metbuild: two snapshots are required before Get")
	}
	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}

	vars := m.variables()
	if len(vars) == 0 {
		return nil, fmt.Errorf("metbuild: source %s provides none of the requested variables", m.opts.Source)
	}

	w1, err := m.weightsFor(m.s1)
	if err != nil {
		return nil, err
	}
	w2, err := m.weightsFor(m.s2)
	if err != nil {
		return nil, err
	}

	backgrounds := make([]float64, len(vars))
	for c, v := range vars {
		backgrounds[c] = v.DefaultValue()
	}
	field := NewField(m.opts.Grid.Ni, m.opts.Grid.Nj, backgrounds)

	if m.opts.Log != nil {
		m.opts.Log.WithFields(logrus.Fields{
			"time":   tOut,
			"alpha":  alpha,
			"source": m.opts.Source.String(),
		}).Info("resampling")
	}

	for c, v := range vars {
		attrs, err := m.opts.Source.Attrs(v)
		if err != nil {
			return nil, err
		}
		vals1, err := m.s1.Field.Values(v)
		if err != nil {
			return nil, err
		}
		vals2, err := m.s2.Field.Values(v)
		if err != nil {
			return nil, err
		}
		if attrs.Accumulated {
			m.resampleAccumulated(field, c, attrs, tOut, vals1, vals2, w1, w2)
		} else {
			m.resampleInstantaneous(field, c, attrs, alpha, vals1, vals2, w1, w2)
		}
	}
	return field, nil
}

// resampleInstantaneous fills one field component by space- and
// time-interpolating an instantaneous variable.
func (m *Meteorology) resampleInstantaneous(field *Field, c int, attrs met.VarAttrs,
	alpha float64, vals1, vals2 []float64, w1, w2 []tri.InterpolationWeight) {
	nj := m.opts.Grid.Nj
	for k := range m.queryPts {
		var raw float64
		switch {
		case w1[k].Valid && w2[k].Valid:
			raw = (1-alpha)*w1[k].Apply(vals1) + alpha*w2[k].Apply(vals2)
		case w1[k].Valid:
			raw = w1[k].Apply(vals1)
		case w2[k].Valid:
			raw = w2[k].Apply(vals2)
		default:
			if !m.opts.Backfill {
				continue // leave the background value
			}
			v1 := vals1[m.s1.Field.Nearest(m.queryX[k], m.queryY[k])]
			v2 := vals2[m.s2.Field.Nearest(m.queryX[k], m.queryY[k])]
			raw = (1-alpha)*v1 + alpha*v2
		}
		field.Set(c, k/nj, k%nj, raw*attrs.Factor+attrs.Offset)
	}
}

// resampleAccumulated fills one field component for a variable that
// accumulates since forecast start: the output is the positive part
// of the difference between the snapshots divided by their time
// separation.
func (m *Meteorology) resampleAccumulated(field *Field, c int, attrs met.VarAttrs,
	tOut time.Time, vals1, vals2 []float64, w1, w2 []tri.InterpolationWeight) {
	nj := m.opts.Grid.Nj
	dt := m.s2.Time.Sub(m.s1.Time).Seconds()
	if dt <= 0 || tOut.Before(m.s1.Time) || tOut.After(m.s2.Time) {
		return // an accumulated rate is undefined outside the window
	}
	for k := range m.queryPts {
		var v1, v2 float64
		switch {
		case w1[k].Valid && w2[k].Valid:
			v1 = w1[k].Apply(vals1)
			v2 = w2[k].Apply(vals2)
		default:
			if !m.opts.Backfill {
				continue
			}
			v1 = vals1[m.s1.Field.Nearest(m.queryX[k], m.queryY[k])]
			v2 = vals2[m.s2.Field.Nearest(m.queryX[k], m.queryY[k])]
		}
		dv := v2 - v1
		if dv < 0 {
			// Accumulation resets between forecast cycles; a rate
			// can never be negative.
			dv = 0
		}
		field.Set(c, k/nj, k%nj, (dv/dt)*attrs.Factor+attrs.Offset)
	}
}
