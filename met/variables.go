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
	"fmt"

	"github.com/ctessum/unit"
)

// Variable identifies one meteorological field.
type Variable int

const (
	UnknownVariable Variable = iota
	Pressure
	WindU
	WindV
	Temperature
	Humidity
	Precipitation
	Ice
)

func (v Variable) String() string {
	switch v {
	case Pressure:
		return "pressure"
	case WindU:
		return "wind_u"
	case WindV:
		return "wind_v"
	case Temperature:
		return "temperature"
	case Humidity:
		return "humidity"
	case Precipitation:
		return "precipitation"
	case Ice:
		return "ice"
	default:
		return "unknown"
	}
}

// DefaultValue is the background value a resampled field is
// initialized to where no source data is available.
func (v Variable) DefaultValue() float64 {
	if v == Pressure {
		return 1013.0
	}
	return 0
}

// FillValue marks missing data in written output products.
func (v Variable) FillValue() float64 { return -999.0 }

// Units returns the physical units the variable is reported in after
// per-source scaling: millibars for pressure, m/s for wind, mm/hr for
// precipitation.
func (v Variable) Units() *unit.Unit {
	switch v {
	case Pressure: // millibar
		return unit.New(100, unit.Dimensions{
			unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2,
		})
	case WindU, WindV:
		return unit.New(1, unit.Dimensions{
			unit.LengthDim: 1, unit.TimeDim: -1,
		})
	case Temperature:
		return unit.New(1, unit.Dimensions{unit.TemperatureDim: 1})
	case Precipitation: // mm/hr
		return unit.New(1.0e-3/3600., unit.Dimensions{
			unit.LengthDim: 1, unit.TimeDim: -1,
		})
	case Ice: // fractional concentration
		return unit.New(1, unit.Dimensions{})
	default: // humidity and unknowns are dimensionless
		return unit.New(1, unit.Dimensions{})
	}
}

// VariableSelection names a set of variables requested together from
// a source.
type VariableSelection int

const (
	AllVariables VariableSelection = iota
	WindPressure
	PressureOnly
	WindOnly
	PrecipitationOnly
	TemperatureOnly
	HumidityOnly
	IceOnly
)

// SelectionFromString converts a request name to a VariableSelection.
func SelectionFromString(s string) (VariableSelection, error) {
	switch s {
	case "wind_pressure":
		return WindPressure, nil
	case "pressure":
		return PressureOnly, nil
	case "wind":
		return WindOnly, nil
	case "precipitation", "rain":
		return PrecipitationOnly, nil
	case "temperature":
		return TemperatureOnly, nil
	case "humidity":
		return HumidityOnly, nil
	case "ice":
		return IceOnly, nil
	default:
		return AllVariables, fmt.Errorf("met: invalid data type: %s", s)
	}
}

// Select returns the variables in the selection. For WindPressure the
// order (pressure, u, v) matches the component layout of the output
// field.
func (s VariableSelection) Select() []Variable {
	switch s {
	case WindPressure:
		return []Variable{Pressure, WindU, WindV}
	case PressureOnly:
		return []Variable{Pressure}
	case WindOnly:
		return []Variable{WindU, WindV}
	case PrecipitationOnly:
		return []Variable{Precipitation}
	case TemperatureOnly:
		return []Variable{Temperature}
	case HumidityOnly:
		return []Variable{Humidity}
	case IceOnly:
		return []Variable{Ice}
	default:
		return []Variable{Pressure, WindU, WindV, Temperature, Humidity, Precipitation, Ice}
	}
}
