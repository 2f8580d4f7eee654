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
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/microflow"
	"github.com/spf13/cobra"
)

// Run calculates the wind fields for every weather situation in a scenario.
// The domain is allocated once and reused for each situation.
//
// CobraCommand is the cobra.Command instance where Run is called from.
// Log messages are written to its output and to LogFile.
//
// OutputFile is the path to the desired NetCDF output location. When the
// scenario has more than one weather situation, the situation name is
// appended to the file name for each of them.
//
// OutputVariables specifies the variables to be included in the
// output file and the expressions used to calculate them.
//
// mode specifies when results are written. In live mode, an image of the
// horizontal wind speed at layer LiveOutputLayer is written to
// LiveOutputDir every 100 iterations.
func Run(CobraCommand *cobra.Command, LogFile string, OutputFile string, OutputVariables map[string]string,
	mode OutputMode, LiveOutputDir string, LiveOutputLayer int, scenario *Scenario, config *microflow.Config) error {

	startTime := time.Now()

	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("microflow: problem creating log file: %v", err)
	}
	defer logfile.Close()
	log := logrus.New()
	log.Out = io.MultiWriter(CobraCommand.OutOrStdout(), logfile)

	var o *Outputter
	if mode != OutputNone {
		log.Info("Parsing output variable expressions...")
		o, err = NewOutputter(OutputFile, OutputVariables, nil)
		if err != nil {
			return err
		}
	}

	g, err := scenario.NewGrid()
	if err != nil {
		return err
	}
	obstacles, err := scenario.Obstacles(g)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"columns":    g.NII * g.NJJ,
		"layers":     g.NKK,
		"buildings":  len(scenario.Building),
		"vegetation": len(scenario.Vegetation),
		"situations": len(scenario.Situation),
	}).Info("Initializing model...")

	d, err := microflow.NewDomain(g, config, obstacles)
	if err != nil {
		return err
	}
	d.Log = log

	for _, s := range scenario.Situation {
		situationStart := time.Now()
		sLog := log.WithField("situation", s.Name)
		d.Log = sLog

		d.LiveOutput = nil
		if mode == OutputLive {
			d.LiveOutput = LiveImage(LiveOutputDir, s.Name, LiveOutputLayer)
		}

		r, err := d.Solve(s.Profile())
		if err != nil {
			return fmt.Errorf("microflow: situation %s: %v", s.Name, err)
		}
		sLog.WithFields(logrus.Fields{
			"status":     r.Status.String(),
			"iterations": r.Iterations,
			"first_mean": r.FirstWindowMean,
			"last_mean":  r.LastWindowMean,
			"violations": r.NumViolations,
			"seconds":    time.Since(situationStart).Seconds(),
		}).Info("Finished wind field")

		if mode == OutputNone {
			continue
		}
		f := situationFile(OutputFile, s.Name, len(scenario.Situation))
		if err = o.write(f, d, s.Name); err != nil {
			return err
		}
		sLog.WithField("file", f).Info("Wrote output")
	}

	log.Infof("Elapsed time: %f minutes", time.Since(startTime).Minutes())
	return nil
}
