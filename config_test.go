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

package microflow

import (
	"fmt"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		mod  func(c *Config)
	}{
		{name: "fidelity", mod: func(c *Config) { c.FidelityLevel = -1 }},
		{name: "model", mod: func(c *Config) { c.TurbulenceModel = 3 }},
		{name: "iterations", mod: func(c *Config) { c.MinIterations = 600 }},
		{name: "relax", mod: func(c *Config) { c.RelaxVelocity = 1.5 }},
		{name: "relax pressure", mod: func(c *Config) { c.RelaxPressure = 0 }},
		{name: "courant", mod: func(c *Config) { c.Courant = 0 }},
		{name: "threshold", mod: func(c *Config) { c.ConvergenceThreshold = -1 }},
		{name: "rounding", mod: func(c *Config) { c.RoundingDivisor = -1 }},
		{name: "sweeps", mod: func(c *Config) { c.PressureSweeps = 0 }},
		{name: "diagnostic", mod: func(c *Config) {
			c.FidelityLevel = FidelityDiagnostic
			c.DiagnosticIterations = 0
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := DefaultConfig()
			test.mod(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.HasPrefix(err.Error(), "microflow: ") {
				t.Errorf("error should be prefixed with the package name: %v", err)
			}
		})
	}
}

func TestFrund(t *testing.T) {
	c := DefaultConfig()
	if c.frund() != 1000 {
		t.Errorf("have %g, want 1000", c.frund())
	}
	c.TurbulenceModel = ModelKEpsilon
	if c.frund() != 10000 {
		t.Errorf("have %g, want 10000", c.frund())
	}
	c.RoundingDivisor = 50
	if c.frund() != 50 {
		t.Errorf("have %g, want 50", c.frund())
	}
	if q := quantize(1.23456, 1000); q != 1.235 {
		t.Errorf("quantize: have %g, want 1.235", q)
	}
}

func TestDomainFuncs(t *testing.T) {
	g, err := NewGrid(3, 3, 1, 1, 0, 0, UniformLayers(3, 1))
	if err != nil {
		t.Fatal(err)
	}
	d, err := NewDomain(g, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	d.Log = quietLog()
	var calls []string
	d.InitFuncs = []DomainManipulator{func(d *Domain) error {
		calls = append(calls, "init")
		return nil
	}}
	d.CleanupFuncs = []DomainManipulator{func(d *Domain) error {
		calls = append(calls, "cleanup")
		return nil
	}}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}
	if d.Status != Converged {
		t.Errorf("status without run functions: have %v, want %v", d.Status, Converged)
	}
	if err := d.Cleanup(); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(calls) != "[init cleanup]" {
		t.Errorf("calls: %v", calls)
	}

	d.InitFuncs = []DomainManipulator{func(d *Domain) error { return fmt.Errorf("bad input") }}
	if err := d.Init(); err == nil || !strings.Contains(err.Error(), "bad input") {
		t.Errorf("have %v, want an initialization error", err)
	}
}
