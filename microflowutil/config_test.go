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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/microflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// defaultViper returns a configuration holding the default value of
// every option.
func defaultViper() *viper.Viper {
	cfg := viper.New()
	for _, o := range options {
		cfg.Set(o.name, o.defaultVal)
	}
	return cfg
}

func TestModelConfig(t *testing.T) {
	cfg := defaultViper()
	c, err := ModelConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, microflow.DefaultConfig(), c)

	cfg.Set("TurbulenceModel", 2)
	cfg.Set("Courant", "0.25")
	c, err = ModelConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, microflow.ModelKEpsilon, c.TurbulenceModel)
	assert.Equal(t, 0.25, c.Courant)

	cfg.Set("FidelityLevel", 3)
	_, err = ModelConfig(cfg)
	assert.Error(t, err)
}

func TestParseOutputMode(t *testing.T) {
	tests := []struct {
		s    string
		mode OutputMode
		err  bool
	}{
		{s: "none", mode: OutputNone},
		{s: "Final", mode: OutputFinal},
		{s: "", mode: OutputFinal},
		{s: " live ", mode: OutputLive},
		{s: "sometimes", err: true},
	}
	for _, test := range tests {
		m, err := ParseOutputMode(test.s)
		if test.err {
			assert.Error(t, err, test.s)
			continue
		}
		require.NoError(t, err, test.s)
		assert.Equal(t, test.mode, m, test.s)
		assert.Equal(t, m, mustParse(t, m.String()))
	}
}

func mustParse(t *testing.T, s string) OutputMode {
	m, err := ParseOutputMode(s)
	require.NoError(t, err)
	return m
}

func TestCheckOutputVars(t *testing.T) {
	os.Setenv("MICROFLOW_TEST_VAR", "U")
	defer os.Unsetenv("MICROFLOW_TEST_VAR")
	o, err := checkOutputVars(map[string]string{"Speed": "sqrt(U*U +\r\nV*V)", "X": "$MICROFLOW_TEST_VAR"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Speed": "sqrt(U*U + V*V)", "X": "U"}, o)

	_, err = checkOutputVars(nil)
	assert.Error(t, err)
}

func TestCheckFiles(t *testing.T) {
	_, err := checkOutputFile("")
	assert.Error(t, err)
	_, err = checkOutputFile("does/not/exist/out.nc")
	assert.Error(t, err)
	f, err := checkOutputFile("out.nc")
	assert.NoError(t, err)
	assert.Equal(t, "out.nc", f)

	assert.Equal(t, "dir/out.log", checkLogFile("", "dir/out.nc"))
	assert.Equal(t, "x.log", checkLogFile("x.log", "dir/out.nc"))

	_, err = checkScenarioFile("")
	assert.Error(t, err)

	assert.Equal(t, "out.nc", situationFile("out.nc", "west", 1))
	assert.Equal(t, "dir/out_west.nc", situationFile("dir/out.nc", "west", 2))
}

func TestCheckLiveOutputDir(t *testing.T) {
	dir, err := ioutil.TempDir("", "microflow")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	d, err := checkLiveOutputDir("", filepath.Join(dir, "out.nc"), OutputFinal)
	assert.NoError(t, err)
	assert.Equal(t, "", d)

	d, err = checkLiveOutputDir("", filepath.Join(dir, "out.nc"), OutputLive)
	assert.NoError(t, err)
	assert.Equal(t, dir, d)

	live := filepath.Join(dir, "live", "images")
	d, err = checkLiveOutputDir(live, filepath.Join(dir, "out.nc"), OutputLive)
	require.NoError(t, err)
	_, err = os.Stat(d)
	assert.NoError(t, err)
}

func TestGetStringMapString(t *testing.T) {
	cfg := viper.New()
	cfg.Set("a", `{"U":"U","Speed":"sqrt(U*U)"}`)
	cfg.Set("b", map[string]interface{}{"U": "U"})
	cfg.Set("c", map[string]string{"V": "V"})
	assert.Equal(t, map[string]string{"U": "U", "Speed": "sqrt(U*U)"}, GetStringMapString("a", cfg))
	assert.Equal(t, map[string]string{"U": "U"}, GetStringMapString("b", cfg))
	assert.Equal(t, map[string]string{"V": "V"}, GetStringMapString("c", cfg))
}
