/*
Copyright (C) 2026 the MODVIR authors.
This file is part of MODVIR.

MODVIR is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

MODVIR is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with MODVIR.  If not, see <http://www.gnu.org/licenses/>.
*/

package modvirutil

import (
	"fmt"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/modvir"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var logger *logrus.Logger

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	logger = logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	// Options are the configuration options available to MODVIR.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Nlat",
			usage: `
              Nlat specifies the number of rows in the output
              latitude/longitude grid.`,
			defaultVal: 360,
			flagsets:   []*pflag.FlagSet{regridCmd.Flags(), fparCmd.Flags()},
		},
		{
			name: "Nlon",
			usage: `
              Nlon specifies the number of columns in the output
              latitude/longitude grid.`,
			defaultVal: 720,
			flagsets:   []*pflag.FlagSet{regridCmd.Flags(), fparCmd.Flags()},
		},
		{
			name: "InputDir",
			usage: `
              InputDir is the directory holding the granule files (*.hdf)
              for one compositing period.`,
			defaultVal: "",
			shorthand:  "i",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path where the gridded NDVI/fPAR product
              should be written.`,
			defaultVal: "vegind.nc4",
			shorthand:  "o",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags(), fparCmd.Flags()},
		},
		{
			name: "MaskFile",
			usage: `
              MaskFile is the location of an optional netcdf file holding a
              per-cell climatological blend fraction in [0,1]. If empty, no
              blending is applied.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags()},
		},
		{
			name: "MaskVar",
			usage: `
              MaskVar is the name of the blend fraction variable in MaskFile.`,
			defaultVal: "mask",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags()},
		},
		{
			name: "LandCoverFile",
			usage: `
              LandCoverFile is the location of a netcdf file holding the
              per-cell land cover classification. It is only required by the
              'los' fPAR method.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags(), fparCmd.Flags()},
		},
		{
			name: "LandCoverVar",
			usage: `
              LandCoverVar is the name of the classification variable in
              LandCoverFile.`,
			defaultVal: "lctype",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags(), fparCmd.Flags()},
		},
		{
			name: "FPARMethod",
			usage: `
              FPARMethod selects the NDVI-to-fPAR conversion formulation.
              Valid options are los, linear, ramp, and none.`,
			defaultVal: "ramp",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags(), fparCmd.Flags()},
		},
		{
			name: "NumProcessors",
			usage: `
              NumProcessors is the number of granule files to read and bin
              concurrently.`,
			defaultVal: 1,
			shorthand:  "n",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags()},
		},
		{
			name: "Institution",
			usage: `
              Institution is recorded in the output file metadata.`,
			defaultVal: "NASA Goddard Space Flight Center",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags(), fparCmd.Flags()},
		},
		{
			name: "Contact",
			usage: `
              Contact is recorded in the output file metadata.`,
			defaultVal: "Brad Weir <brad.weir@nasa.gov>",
			flagsets:   []*pflag.FlagSet{regridCmd.Flags(), fparCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("MODVIR")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(regridCmd)
	Root.AddCommand(fparCmd)
}

// logChan returns a channel whose messages are forwarded to the
// logger.
func logChan() chan string {
	c := make(chan string)
	go func() {
		for {
			logger.Info(<-c)
		}
	}()
	return c
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("modvir: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "modvir",
	Short: "A MODIS/VIIRS vegetation index (NDVI/fPAR) regridder.",
	Long: `MODVIR bins daily MODIS/VIIRS reflectance granules onto a regular
latitude/longitude grid, derives NDVI, and converts NDVI to fPAR.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'MODVIR_var' where 'var' is
the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of MODVIR.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("MODVIR v%s\n", modvir.Version)
	},
	DisableAutoGenTag: true,
}

// regridCmd aggregates one compositing period of granules into a
// gridded NDVI/fPAR product.
var regridCmd = &cobra.Command{
	Use:   "regrid",
	Short: "Regrid granules to an NDVI/fPAR product.",
	Long: `regrid bins all granule files in InputDir onto the output grid,
derives NDVI, optionally converts it to fPAR using the configured method,
and writes the result to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Regrid(
			cast.ToInt(Cfg.Get("Nlat")),
			cast.ToInt(Cfg.Get("Nlon")),
			Cfg.GetString("InputDir"),
			Cfg.GetString("OutputFile"),
			Cfg.GetString("MaskFile"),
			Cfg.GetString("MaskVar"),
			Cfg.GetString("LandCoverFile"),
			Cfg.GetString("LandCoverVar"),
			Cfg.GetString("FPARMethod"),
			cast.ToInt(Cfg.Get("NumProcessors")),
			Cfg.GetString("Institution"),
			Cfg.GetString("Contact"),
		)
	},
	DisableAutoGenTag: true,
}

// fparCmd adds an fPAR field to an existing gridded NDVI product.
var fparCmd = &cobra.Command{
	Use:   "fpar [NDVI file]",
	Short: "Convert a gridded NDVI file to fPAR.",
	Long: `fpar loads a previously written NDVI product, converts it to fPAR
using the configured method, and writes the result to OutputFile.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return FPAR(
			args[0],
			Cfg.GetString("OutputFile"),
			Cfg.GetString("LandCoverFile"),
			Cfg.GetString("LandCoverVar"),
			Cfg.GetString("FPARMethod"),
		)
	},
	DisableAutoGenTag: true,
}
