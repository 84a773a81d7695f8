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

import "fmt"

// VarAttrs describes how one variable is stored by one forecast
// source: the record short name in the source file, the affine
// scaling applied after interpolation (value*Factor + Offset), and
// whether the record accumulates since forecast start rather than
// reporting an instantaneous rate.
type VarAttrs struct {
	ShortName   string
	Offset      float64
	Factor      float64
	Accumulated bool
}

// sourceVariables maps each source kind to its variable table.
// Pressure records arrive in Pa and are reported in mb; rainfall
// records arrive in kg/m²/s (or accumulated kg/m²) and are reported
// per hour.
var sourceVariables = map[SourceKind]map[Variable]VarAttrs{
	GFS: {
		WindU:         {ShortName: "10u", Factor: 1},
		WindV:         {ShortName: "10v", Factor: 1},
		Pressure:      {ShortName: "prmsl", Factor: 0.01},
		Ice:           {ShortName: "icec", Factor: 1},
		Precipitation: {ShortName: "prate", Factor: 3600},
		Humidity:      {ShortName: "r", Factor: 1},
		Temperature:   {ShortName: "t", Factor: 1},
	},
	NAM: {
		WindU:         {ShortName: "10u", Factor: 1},
		WindV:         {ShortName: "10v", Factor: 1},
		Pressure:      {ShortName: "prmsl", Factor: 0.01},
		Precipitation: {ShortName: "acpcp", Factor: 3600, Accumulated: true},
		Humidity:      {ShortName: "r", Factor: 1},
		Temperature:   {ShortName: "t", Factor: 1},
	},
	GEFS: {
		WindU:         {ShortName: "10u", Factor: 1},
		WindV:         {ShortName: "10v", Factor: 1},
		Pressure:      {ShortName: "prmsl", Factor: 0.01},
		Ice:           {ShortName: "icec", Factor: 1},
		Precipitation: {ShortName: "tp", Factor: 3600, Accumulated: true},
	},
	HRRRConus: {
		WindU:         {ShortName: "10u", Factor: 1},
		WindV:         {ShortName: "10v", Factor: 1},
		Pressure:      {ShortName: "mslma", Factor: 0.01},
		Ice:           {ShortName: "icec", Factor: 1},
		Precipitation: {ShortName: "prate", Factor: 3600},
		Humidity:      {ShortName: "2r", Factor: 1},
		Temperature:   {ShortName: "2t", Factor: 1},
	},
	HRRRAlaska: {
		WindU:         {ShortName: "10u", Factor: 1},
		WindV:         {ShortName: "10v", Factor: 1},
		Pressure:      {ShortName: "mslma", Factor: 0.01},
		Ice:           {ShortName: "icec", Factor: 1},
		Precipitation: {ShortName: "prate", Factor: 3600},
		Humidity:      {ShortName: "2r", Factor: 1},
		Temperature:   {ShortName: "2t", Factor: 1},
	},
	HWRF: {
		WindU:         {ShortName: "10u", Factor: 1},
		WindV:         {ShortName: "10v", Factor: 1},
		Pressure:      {ShortName: "prmsl", Factor: 0.01},
		Precipitation: {ShortName: "apcp", Factor: 3600, Accumulated: true},
		Humidity:      {ShortName: "r", Factor: 1},
		Temperature:   {ShortName: "t", Factor: 1},
	},
	WPC: {
		Precipitation: {ShortName: "tp", Factor: 3600, Accumulated: true},
	},
	HAFS: {
		WindU:         {ShortName: "10u", Factor: 1},
		WindV:         {ShortName: "10v", Factor: 1},
		Pressure:      {ShortName: "prmsl", Factor: 0.01},
		Precipitation: {ShortName: "prate", Factor: 3600},
		Humidity:      {ShortName: "2r", Factor: 1},
		Temperature:   {ShortName: "2t", Factor: 1},
	},
	COAMPS: {
		WindU:         {ShortName: "uuwind", Factor: 1},
		WindV:         {ShortName: "vvwind", Factor: 1},
		Pressure:      {ShortName: "slpres", Factor: 1},
		Precipitation: {ShortName: "precip", Factor: 1},
		Humidity:      {ShortName: "relhum", Factor: 1},
		Temperature:   {ShortName: "airtmp", Factor: 1},
	},
}

// Attrs returns the attributes of variable v for source kind k.
func (k SourceKind) Attrs(v Variable) (VarAttrs, error) {
	tbl, ok := sourceVariables[k]
	if !ok {
		return VarAttrs{}, fmt.Errorf("met: no variable table for source %s", k)
	}
	a, ok := tbl[v]
	if !ok {
		return VarAttrs{}, fmt.Errorf("met: source %s does not provide variable %s", k, v)
	}
	return a, nil
}

// HasVariable reports whether source kind k provides variable v.
func (k SourceKind) HasVariable(v Variable) bool {
	_, err := k.Attrs(v)
	return err == nil
}
