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

// Command metbuild resamples meteorological forecast snapshots onto a
// user-defined grid as configured by a TOML file.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/geom/proj"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/metbuild"
	"github.com/spatialmodel/metbuild/met"
)

type config struct {
	Grid struct {
		Name   string
		X0, Y0 float64
		Dx, Dy float64
		Ni, Nj int
		Proj4  string
	}
	Source    string
	Variables string
	Backfill  bool
	OutputDir string `toml:"output_dir"`
	Files     []struct {
		Path string
		Time time.Time
	}
}

var log = logrus.New()

func main() {
	var configFile string
	var writeShp bool

	cmd := &cobra.Command{
		Use:   "metbuild",
		Short: "Resample meteorological forecast fields onto a model grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile, writeShp)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "metbuild.toml",
		"path to the configuration file")
	cmd.Flags().BoolVar(&writeShp, "write-grid-shp", false,
		"write the output grid cells to a diagnostic shapefile")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configFile string, writeShp bool) error {
	var cfg config
	if _, err := toml.DecodeFile(configFile, &cfg); err != nil {
		return fmt.Errorf("reading %s: %w", configFile, err)
	}
	if len(cfg.Files) < 2 {
		return fmt.Errorf("at least 2 input snapshots are required, got %d", len(cfg.Files))
	}

	source, err := met.SourceKindFromString(cfg.Source)
	if err != nil {
		return err
	}
	selection, err := met.SelectionFromString(cfg.Variables)
	if err != nil {
		return err
	}

	var sr *proj.SR
	if cfg.Grid.Proj4 != "" {
		if sr, err = proj.Parse(cfg.Grid.Proj4); err != nil {
			return fmt.Errorf("parsing grid projection: %w", err)
		}
	}
	grid, err := metbuild.NewOutputGrid(cfg.Grid.Name, cfg.Grid.X0, cfg.Grid.Y0,
		cfg.Grid.Dx, cfg.Grid.Dy, cfg.Grid.Ni, cfg.Grid.Nj, sr)
	if err != nil {
		return err
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return err
		}
	}
	if writeShp {
		if err := grid.WriteToShp(cfg.OutputDir); err != nil {
			return fmt.Errorf("writing grid shapefile: %w", err)
		}
	}

	driver, err := metbuild.NewMeteorology(metbuild.Options{
		Grid:      grid,
		Source:    source,
		Variables: selection,
		Backfill:  cfg.Backfill,
		Log:       log,
	})
	if err != nil {
		return err
	}

	sort.Slice(cfg.Files, func(i, j int) bool {
		return cfg.Files[i].Time.Before(cfg.Files[j].Time)
	})

	ctx := met.NewDecoderContext(met.RawDecoder{})
	ctx.Log = log
	for i, fc := range cfg.Files {
		field, err := met.NewSourceField(ctx, fc.Path, source)
		if err != nil {
			return err
		}
		driver.SetNextFile(field, fc.Time)
		if i == 0 {
			continue
		}
		out, err := driver.Get(fc.Time)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%s_%s.txt", cfg.Grid.Name, fc.Time.UTC().Format("2006010215"))
		if err := writeField(filepath.Join(cfg.OutputDir, name), out); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"time": fc.Time, "file": name}).Info("wrote field")
	}
	return nil
}

// writeField writes each field component as a whitespace-separated
// text matrix.
func writeField(path string, field *metbuild.Field) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ni, nj := field.Dims()
	for c := 0; c < field.Components(); c++ {
		if _, err := fmt.Fprintf(f, "# component %d\n", c); err != nil {
			return err
		}
		for i := 0; i < ni; i++ {
			for j := 0; j < nj; j++ {
				sep := " "
				if j == nj-1 {
					sep = "\n"
				}
				if _, err := fmt.Fprintf(f, "%.4f%s", field.Get(c, i, j), sep); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
