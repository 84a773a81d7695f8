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

package met

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
)

func TestNormalizeLongitude(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{179.5, 179.5},
		{180, -180},
		{185, -175},
		{-185, 175},
		{360, 0},
		{-180, -180},
		{540, -180},
		{-540, -180},
	}
	for _, test := range tests {
		t.Run(fmt.Sprint(test.in), func(t *testing.T) {
			got := NormalizeLongitude(test.in)
			if math.Abs(got-test.want) > 1e-12 {
				t.Errorf("normalize(%v) = %v, want %v", test.in, got, test.want)
			}
			if got < -180 || got >= 180 {
				t.Errorf("normalize(%v) = %v outside [-180, 180)", test.in, got)
			}
		})
	}
}

// writeTestSnapshot writes a raw snapshot on a regular ni x nj
// lon/lat grid with the given extra records and returns its path.
func writeTestSnapshot(t *testing.T, ni, nj int, lon0, lat0, d float64, records map[string][]float64) string {
	t.Helper()
	n := ni * nj
	lon := make([]float64, n)
	lat := make([]float64, n)
	for i := 0; i < ni; i++ {
		for j := 0; j < nj; j++ {
			k := i*nj + j
			lon[k] = lon0 + float64(j)*d
			lat[k] = lat0 + float64(i)*d
		}
	}
	all := map[string][]float64{"longitudes": lon, "latitudes": lat}
	for name, vals := range records {
		all[name] = vals
	}
	path := filepath.Join(t.TempDir(), "snapshot.mbrw")
	if err := WriteRawSnapshot(path, ni, nj, all); err != nil {
		t.Fatal(err)
	}
	return path
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func testContext() *DecoderContext {
	ctx := NewDecoderContext(RawDecoder{})
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ctx.Log = log
	return ctx
}

func TestSourceFieldGeometry(t *testing.T) {
	path := writeTestSnapshot(t, 4, 5, 10, 20, 1, map[string][]float64{
		"prmsl": constant(20, 101300),
	})
	f, err := NewSourceField(testContext(), path, GFS)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ni, nj := f.Dims()
	if ni != 4 || nj != 5 {
		t.Fatalf("dims (%d, %d), want (4, 5)", ni, nj)
	}
	if f.Len() != 20 {
		t.Errorf("len %d, want 20", f.Len())
	}

	want := [4]geom.Point{
		{X: 10, Y: 20}, {X: 14, Y: 20}, {X: 14, Y: 23}, {X: 10, Y: 23},
	}
	if got := f.Corners(); got != want {
		t.Errorf("corners %v, want %v", got, want)
	}

	if !f.PointInside(12, 21.5) {
		t.Error("(12, 21.5) should be inside coverage")
	}
	if !f.PointInside(10, 20) {
		t.Error("corner point should count as inside coverage")
	}
	if f.PointInside(9, 21) {
		t.Error("(9, 21) should be outside coverage")
	}

	if got := f.Nearest(12.2, 21.1); got != 1*5+2 {
		t.Errorf("nearest index %d, want %d", got, 1*5+2)
	}

	if a := f.Coverage().AreaM2(); a <= 0 {
		t.Errorf("coverage area %v should be positive", a)
	}
}

func TestIndexRoundtrip(t *testing.T) {
	path := writeTestSnapshot(t, 3, 7, 0, 0, 1, map[string][]float64{
		"prmsl": constant(21, 1),
	})
	f, err := NewSourceField(testContext(), path, GFS)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ni, nj := f.Dims()
	for k := 0; k < ni*nj; k++ {
		i, j := f.IndexToIJ(k)
		if i*nj+j != k {
			t.Errorf("index %d: (%d, %d) does not invert", k, i, j)
		}
		if i < 0 || i >= ni || j < 0 || j >= nj {
			t.Errorf("index %d: (%d, %d) out of range", k, i, j)
		}
	}
}

func TestSourceFieldValues(t *testing.T) {
	vals := make([]float64, 12)
	for i := range vals {
		vals[i] = float64(i) * 100
	}
	path := writeTestSnapshot(t, 3, 4, 0, 0, 1, map[string][]float64{
		"prmsl": vals,
	})
	f, err := NewSourceField(testContext(), path, GFS)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := f.Values(Pressure)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, vals) {
		t.Errorf("values %v != %v", got, vals)
	}

	// A second read returns the cached slice.
	again, err := f.Values(Pressure)
	if err != nil {
		t.Fatal(err)
	}
	if &got[0] != &again[0] {
		t.Error("second read should return the cached array")
	}

	arr, err := f.Values2D(Pressure)
	if err != nil {
		t.Fatal(err)
	}
	if got := arr.Get(1, 2); got != vals[1*4+2] {
		t.Errorf("values2d(1,2) = %v, want %v", got, vals[1*4+2])
	}

	// The snapshot has no wind records.
	if _, err := f.Values(WindU); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode for missing record, got %v", err)
	}
}

func TestLongitudeNormalizedOnLoad(t *testing.T) {
	// Longitudes written in the 0-360 convention.
	path := writeTestSnapshot(t, 3, 3, 358, 10, 1, map[string][]float64{
		"prmsl": constant(9, 1),
	})
	f, err := NewSourceField(testContext(), path, GFS)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	for k, lon := range f.Lon() {
		if lon < -180 || lon >= 180 {
			t.Errorf("longitude %d = %v outside [-180, 180)", k, lon)
		}
	}
	if got := f.Lon()[0]; math.Abs(got-(-2)) > 1e-12 {
		t.Errorf("longitude 0 = %v, want -2", got)
	}
}

func TestRawDecoderErrors(t *testing.T) {
	dec := RawDecoder{}
	if _, err := dec.Open(filepath.Join(t.TempDir(), "missing.mbrw")); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode for missing file, got %v", err)
	}
}

func TestRecordNameNormalization(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.mbrw")
	err := WriteRawSnapshot(path, 2, 2, map[string][]float64{
		"longitudes": {0, 1, 0, 1},
		"latitudes":  {0, 0, 1, 1},
		"PRMSL ":     {1, 2, 3, 4},
	})
	if err != nil {
		t.Fatal(err)
	}
	dec := RawDecoder{}
	h, err := dec.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close(h)
	vals, err := dec.ReadFloat64Array(h, "prmsl")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(vals, []float64{1, 2, 3, 4}) {
		t.Errorf("values %v", vals)
	}
}

func TestSourceKindStrings(t *testing.T) {
	kinds := []SourceKind{GFS, GEFS, NAM, HWRF, COAMPS, HRRRConus, HRRRAlaska, WPC}
	for _, k := range kinds {
		got, err := SourceKindFromString(k.String())
		if err != nil {
			t.Errorf("%s: %v", k, err)
			continue
		}
		if got != k {
			t.Errorf("round trip %s -> %s", k, got)
		}
	}
	if _, err := SourceKindFromString("era5"); err == nil {
		t.Error("expected an error for an unknown source")
	}
}

func TestVariableAttrs(t *testing.T) {
	tests := []struct {
		kind        SourceKind
		v           Variable
		shortName   string
		factor      float64
		accumulated bool
	}{
		{GFS, Pressure, "prmsl", 0.01, false},
		{GFS, WindU, "10u", 1, false},
		{GFS, Precipitation, "prate", 3600, false},
		{GEFS, Precipitation, "tp", 3600, true},
		{NAM, Precipitation, "acpcp", 3600, true},
		{HRRRConus, Pressure, "mslma", 0.01, false},
		{HRRRConus, Humidity, "2r", 1, false},
		{WPC, Precipitation, "tp", 3600, true},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s/%s", test.kind, test.v), func(t *testing.T) {
			a, err := test.kind.Attrs(test.v)
			if err != nil {
				t.Fatal(err)
			}
			if a.ShortName != test.shortName || a.Factor != test.factor ||
				a.Accumulated != test.accumulated {
				t.Errorf("attrs %+v", a)
			}
		})
	}

	if WPC.HasVariable(WindU) {
		t.Error("WPC should not provide wind")
	}
	if _, err := WPC.Attrs(WindU); err == nil {
		t.Error("expected an error for a variable WPC does not provide")
	}
}

func TestSelectionSelect(t *testing.T) {
	tests := []struct {
		sel  VariableSelection
		want []Variable
	}{
		{WindPressure, []Variable{Pressure, WindU, WindV}},
		{PressureOnly, []Variable{Pressure}},
		{WindOnly, []Variable{WindU, WindV}},
		{PrecipitationOnly, []Variable{Precipitation}},
	}
	for _, test := range tests {
		if got := test.sel.Select(); !reflect.DeepEqual(got, test.want) {
			t.Errorf("select %v: %v != %v", test.sel, got, test.want)
		}
	}
}

func TestVariableDefaults(t *testing.T) {
	if got := Pressure.DefaultValue(); got != 1013 {
		t.Errorf("pressure background %v, want 1013", got)
	}
	for _, v := range []Variable{WindU, WindV, Temperature, Humidity, Precipitation, Ice} {
		if got := v.DefaultValue(); got != 0 {
			t.Errorf("%s background %v, want 0", v, got)
		}
	}
}

func TestVariableUnits(t *testing.T) {
	for _, v := range []Variable{Pressure, WindU, Temperature, Precipitation, Humidity, Ice} {
		if u := v.Units(); u == nil {
			t.Errorf("%s has no units", v)
		}
	}
}
