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
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/microflow"
	"github.com/spf13/cast"
)

// OutputMode specifies when results are written.
type OutputMode int

// These are the available output modes.
const (
	// OutputNone calculates the wind fields without writing them.
	OutputNone OutputMode = iota

	// OutputFinal writes the wind field of each weather situation
	// after the calculation has finished.
	OutputFinal

	// OutputLive additionally writes an image of the wind field at
	// regular intervals during the calculation.
	OutputLive
)

func (m OutputMode) String() string {
	switch m {
	case OutputNone:
		return "none"
	case OutputFinal:
		return "final"
	case OutputLive:
		return "live"
	default:
		return fmt.Sprintf("OutputMode(%d)", int(m))
	}
}

// ParseOutputMode returns the output mode with the given name.
func ParseOutputMode(s string) (OutputMode, error) {
	switch strings.ToLower(strings.TrimSpace(os.ExpandEnv(s))) {
	case "none":
		return OutputNone, nil
	case "final", "":
		return OutputFinal, nil
	case "live":
		return OutputLive, nil
	default:
		return OutputNone, fmt.Errorf("microflow: OutputMode must be one of none, final, or live; got '%s'", s)
	}
}

// ModelConfig unmarshals the solver settings from a viper configuration
// and checks them for errors.
func ModelConfig(cfg *viper.Viper) (*microflow.Config, error) {
	c := &microflow.Config{
		FidelityLevel:        cfg.GetInt("FidelityLevel"),
		MinIterations:        cfg.GetInt("MinIterations"),
		MaxIterations:        cfg.GetInt("MaxIterations"),
		RelaxVelocity:        cfg.GetFloat64("RelaxVelocity"),
		RelaxPressure:        cfg.GetFloat64("RelaxPressure"),
		BuildingRoughness:    cfg.GetFloat64("BuildingRoughness"),
		SubDomainRadius:      cfg.GetInt("SubDomainRadius"),
		TurbulenceModel:      cfg.GetInt("TurbulenceModel"),
		MarginLayers:         cfg.GetInt("MarginLayers"),
		WakeSearchRadius:     cfg.GetInt("WakeSearchRadius"),
		Processors:           cfg.GetInt("Processors"),
		PressureSweeps:       cfg.GetInt("PressureSweeps"),
		ConvergenceThreshold: cfg.GetFloat64("ConvergenceThreshold"),
		RoundingDivisor:      cfg.GetFloat64("RoundingDivisor"),
		Courant:              cfg.GetFloat64("Courant"),
		DiagnosticIterations: cfg.GetInt("DiagnosticIterations"),
		MaxHorizontalSpeed:   cfg.GetFloat64("MaxHorizontalSpeed"),
		MaxVerticalSpeed:     cfg.GetFloat64("MaxVerticalSpeed"),
		RelativeSpeedFactor:  cfg.GetFloat64("RelativeSpeedFactor"),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("microflow: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

// checkScenarioFile makes sure that the scenario file is specified.
func checkScenarioFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify a scenario file configuration variable (for example: ScenarioFile="scenario.toml")`)
	}
	return os.ExpandEnv(f), nil
}

// checkLiveOutputDir fills in a default value for the live output
// directory and creates it if the live output mode is in use.
func checkLiveOutputDir(dir, outputFile string, mode OutputMode) (string, error) {
	if mode != OutputLive {
		return dir, nil
	}
	if dir == "" {
		dir = filepath.Dir(outputFile)
	}
	dir = os.ExpandEnv(dir)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return dir, fmt.Errorf("microflow: creating live output directory: %v", err)
	}
	return dir, nil
}

// situationFile returns the output file name for the named weather
// situation. If there is more than one situation, the name of the
// situation is appended to the base of the file name.
func situationFile(outputFile, situation string, numSituations int) string {
	if numSituations <= 1 {
		return outputFile
	}
	ext := filepath.Ext(outputFile)
	return strings.TrimSuffix(outputFile, ext) + "_" + situation + ext
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}
