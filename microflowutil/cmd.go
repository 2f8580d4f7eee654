/*
Copyright © 2019 the microflow authors.
This file is part of microflow.

microflow is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

microflow is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with microflow.  If not, see <http://www.gnu.org/licenses/>.
*/

package microflowutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"runtime"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/microflow"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	solveFlags := solveCmd.Flags()
	profileFlags := profileCmd.Flags()
	dc := microflow.DefaultConfig()

	// Options are the configuration options available to microflow.
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
			name: "ScenarioFile",
			usage: `
              ScenarioFile is the path to the TOML file that describes the
              grid, the buildings and vegetation, and the weather situations
              to calculate wind fields for. It can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{solveFlags, profileFlags},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired NetCDF output file location.
              If the scenario contains more than one weather situation, the
              situation name is appended to the file name. It can include
              environment variables.`,
			defaultVal: "microflow.nc",
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the logfile
              will be saved in the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which variables should be written to the
              output file, and the expressions used to calculate them from the
              model variables U, V, W, P, TKE, Eps, ViscH, ViscV, Z, and Blocked.
              The functions sqrt, abs, and max are available.`,
			defaultVal: map[string]string{
				"U":     "U",
				"V":     "V",
				"W":     "W",
				"Speed": "sqrt(U*U + V*V)",
				"P":     "P",
				"TKE":   "TKE",
			},
			flagsets: []*pflag.FlagSet{solveFlags},
		},
		{
			name: "OutputMode",
			usage: `
              OutputMode specifies when results are written. It can be 'none',
              'final' to write the wind field of each situation when it is done,
              or 'live' to additionally draw the wind speed every 100 iterations.`,
			defaultVal: "final",
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "LiveOutputDir",
			usage: `
              LiveOutputDir is the directory where live output images are written.
              It defaults to the directory of the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "LiveOutputLayer",
			usage: `
              LiveOutputLayer is the vertical layer, starting at 1, that live
              output images are drawn for.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "FidelityLevel",
			usage: `
              FidelityLevel specifies the type of calculation: 0 only initializes
              the wind field from the profile, 1 additionally makes it
              mass-consistent with a diagnostic pressure solver, and 2 solves the
              prognostic momentum equations.`,
			shorthand:  "f",
			defaultVal: dc.FidelityLevel,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "MinIterations",
			usage: `
              MinIterations is the minimum number of iterations before the
              calculation can be considered converged.`,
			defaultVal: dc.MinIterations,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "MaxIterations",
			usage: `
              MaxIterations is the maximum number of iterations.`,
			defaultVal: dc.MaxIterations,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "RelaxVelocity",
			usage: `
              RelaxVelocity is the under-relaxation factor for velocities.`,
			defaultVal: dc.RelaxVelocity,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "RelaxPressure",
			usage: `
              RelaxPressure is the under-relaxation factor for pressure.`,
			defaultVal: dc.RelaxPressure,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "BuildingRoughness",
			usage: `
              BuildingRoughness is the roughness length of building walls and
              roofs [m].`,
			defaultVal: dc.BuildingRoughness,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "SubDomainRadius",
			usage: `
              SubDomainRadius is the number of grid columns around each obstacle
              that are solved prognostically. If it is 0 or less, the whole
              domain is solved.`,
			defaultVal: dc.SubDomainRadius,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "TurbulenceModel",
			usage: `
              TurbulenceModel selects the turbulence closure: 0 for none,
              1 for an algebraic mixing-length model, and 2 for the k-epsilon
              model.`,
			defaultVal: dc.TurbulenceModel,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "MarginLayers",
			usage: `
              MarginLayers is the number of layers above the tallest obstacle
              that are included in the solution.`,
			defaultVal: dc.MarginLayers,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "WakeSearchRadius",
			usage: `
              WakeSearchRadius is the number of grid columns that are searched
              for upwind obstacles when the diagnostic wake parameterization
              is applied.`,
			defaultVal: dc.WakeSearchRadius,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "Processors",
			usage: `
              Processors is the number of processors to use.`,
			shorthand:  "p",
			defaultVal: runtime.NumCPU(),
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "PressureSweeps",
			usage: `
              PressureSweeps is the number of directional pressure-correction
              sweeps in each iteration.`,
			defaultVal: dc.PressureSweeps,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "ConvergenceThreshold",
			usage: `
              ConvergenceThreshold is the mean maximum pressure change per
              iteration, relative to the squared wind speed at the top of the
              domain, below which the calculation is considered converged.`,
			defaultVal: dc.ConvergenceThreshold,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "RoundingDivisor",
			usage: `
              RoundingDivisor sets the precision that pressures and velocities
              are rounded to (1/RoundingDivisor). If 0, the default for the
              turbulence model is used.`,
			defaultVal: dc.RoundingDivisor,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "Courant",
			usage: `
              Courant is the Courant number used to calculate the pseudo time step.`,
			defaultVal: dc.Courant,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "DiagnosticIterations",
			usage: `
              DiagnosticIterations is the number of pressure-correction
              iterations when FidelityLevel is 1.`,
			defaultVal: dc.DiagnosticIterations,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "MaxHorizontalSpeed",
			usage: `
              MaxHorizontalSpeed is the horizontal velocity [m/s] above which
              velocities are reported as unrealistic.`,
			defaultVal: dc.MaxHorizontalSpeed,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "MaxVerticalSpeed",
			usage: `
              MaxVerticalSpeed is the vertical velocity [m/s] above which
              velocities are reported as unrealistic.`,
			defaultVal: dc.MaxVerticalSpeed,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
		{
			name: "RelativeSpeedFactor",
			usage: `
              RelativeSpeedFactor is the multiple of the largest initial velocity
              above which velocities are reported as unrealistic, if it is larger
              than the absolute limits.`,
			defaultVal: dc.RelativeSpeedFactor,
			flagsets:   []*pflag.FlagSet{solveFlags},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("MICROFLOW")

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
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
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
	Root.AddCommand(solveCmd)
	Root.AddCommand(profileCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("microflow: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "microflow",
	Short: "A microscale prognostic wind field model.",
	Long: `microflow calculates three-dimensional wind fields around buildings and
vegetation from vertical wind profiles. Use the subcommands specified below to
access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'MICROFLOW_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of microflow.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("microflow v%s\n", microflow.Version)
	},
	DisableAutoGenTag: true,
}

// solveCmd is a command that calculates the wind fields of a scenario.
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Calculate wind fields.",
	Long: `solve calculates the wind field for each weather situation in the
scenario file and writes the results to NetCDF files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := ModelConfig(Cfg)
		if err != nil {
			return err
		}
		scenarioFile, err := checkScenarioFile(Cfg.GetString("ScenarioFile"))
		if err != nil {
			return err
		}
		scenario, err := ReadScenarioFile(scenarioFile)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		mode, err := ParseOutputMode(Cfg.GetString("OutputMode"))
		if err != nil {
			return err
		}
		liveDir, err := checkLiveOutputDir(Cfg.GetString("LiveOutputDir"), outputFile, mode)
		if err != nil {
			return err
		}
		return Run(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			outputFile,
			outputVars,
			mode,
			liveDir,
			Cfg.GetInt("LiveOutputLayer"),
			scenario,
			config,
		)
	},
	DisableAutoGenTag: true,
}

// profileCmd is a command that prints the interpolated wind profiles of a
// scenario.
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print wind profiles.",
	Long: `profile prints the wind speed and turbulent kinetic energy of each
weather situation in the scenario file, interpolated to the centre of each
vertical layer of the grid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarioFile, err := checkScenarioFile(Cfg.GetString("ScenarioFile"))
		if err != nil {
			return err
		}
		scenario, err := ReadScenarioFile(scenarioFile)
		if err != nil {
			return err
		}
		g, err := scenario.NewGrid()
		if err != nil {
			return err
		}
		for _, s := range scenario.Situation {
			p := s.Profile().Compact()
			if err := p.Validate(); err != nil {
				return fmt.Errorf("microflow: situation %s: %v", s.Name, err)
			}
			cmd.Printf("%s (power-law exponent %.3f)\n", s.Name, p.Exponent())
			cmd.Printf("%10s %10s %10s %10s %10s\n", "z [m]", "u [m/s]", "v [m/s]", "speed", "TKE")
			for k := 1; k <= g.NKK; k++ {
				z := g.ZSP[k]
				u, v := p.Interpolate(z)
				cmd.Printf("%10.2f %10.3f %10.3f %10.3f %10.4f\n", z, u, v, math.Hypot(u, v), p.TKE(z))
			}
		}
		return nil
	},
	DisableAutoGenTag: true,
}
