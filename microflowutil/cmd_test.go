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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/microflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI points the example configuration at a temporary output
// directory, which is returned along with a function to remove it.
func setupCLI(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "microflow")
	require.NoError(t, err)
	os.Setenv("MICROFLOW_TESTDATA", "../testdata")
	os.Setenv("MICROFLOW_OUTPUT", dir)
	Cfg.Set("config", "../testdata/config.toml")
	return dir, func() {
		os.RemoveAll(dir)
		Root.SetArgs(nil)
		Root.SetOutput(nil)
	}
}

func TestVersion(t *testing.T) {
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	defer Root.SetOutput(nil)
	Root.SetArgs([]string{"version"})
	require.NoError(t, Root.Execute())
	assert.Equal(t, "microflow v"+microflow.Version+"\n", buf.String())
}

func TestProfileCommand(t *testing.T) {
	_, cleanup := setupCLI(t)
	defer cleanup()

	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	Root.SetArgs([]string{"profile"})
	require.NoError(t, Root.Execute())

	out := buf.String()
	assert.Contains(t, out, "west (power-law exponent")
	assert.Contains(t, out, "southwest (power-law exponent")
	// A header line plus one line per layer for each situation.
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2*(1+1+12))
}

func TestSolveCommand(t *testing.T) {
	dir, cleanup := setupCLI(t)
	defer cleanup()

	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	Root.SetArgs([]string{"solve"})
	require.NoError(t, Root.Execute())
	assert.Contains(t, buf.String(), "Finished wind field")

	_, err := os.Stat(filepath.Join(dir, "cube.log"))
	assert.NoError(t, err, "log file")

	for _, situation := range []string{"west", "southwest"} {
		ff, err := os.Open(filepath.Join(dir, "cube_"+situation+".nc"))
		require.NoError(t, err)
		f, err := cdf.Open(ff)
		require.NoError(t, err)

		assert.Equal(t, situation, f.Header.GetAttribute("", "situation"))
		status := f.Header.GetAttribute("", "status")
		assert.True(t, status == "converged" || status == "iteration cap reached", "status %v", status)
		assert.Equal(t, []int{12, 16, 24}, f.Header.Lengths("Speed"))

		n := 12 * 16 * 24
		blocked := make([]float32, n)
		_, err = f.Reader("Blocked", nil, nil).Read(blocked)
		require.NoError(t, err)
		speed := make([]float32, n)
		_, err = f.Reader("Speed", nil, nil).Read(speed)
		require.NoError(t, err)
		ff.Close()

		idx := func(i, j, k int) int { return (k-1)*16*24 + (j-1)*24 + i - 1 }
		assert.Equal(t, float32(1), blocked[idx(10, 9, 1)], "inside the building")
		assert.Equal(t, float32(0), blocked[idx(10, 9, 6)], "above the building")
		assert.Equal(t, float32(0), blocked[idx(2, 2, 1)], "away from the building")
		for i, v := range speed {
			if v != v || v < 0 || v > 55 {
				t.Errorf("speed[%d] = %g", i, v)
			}
		}
		assert.True(t, speed[idx(2, 2, 10)] > speed[idx(2, 2, 1)], "speed should increase with height")
	}
}

func TestSolveLive(t *testing.T) {
	dir, cleanup := setupCLI(t)
	defer cleanup()
	liveDir := filepath.Join(dir, "live")
	Cfg.Set("OutputMode", "live")
	Cfg.Set("LiveOutputDir", liveDir)
	Cfg.Set("LiveOutputLayer", 2)
	Cfg.Set("MaxIterations", 100)
	defer func() {
		Cfg.Set("OutputMode", "final")
		Cfg.Set("LiveOutputDir", "")
		Cfg.Set("LiveOutputLayer", 1)
		Cfg.Set("MaxIterations", 200)
	}()

	Root.SetOutput(ioutil.Discard)
	Root.SetArgs([]string{"solve"})
	require.NoError(t, Root.Execute())

	for _, f := range []string{"west_000100.png", "southwest_000100.png"} {
		_, err := os.Stat(filepath.Join(liveDir, f))
		assert.NoError(t, err, f)
	}
}
