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
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/microflow"
)

// modelVariable is a cell-centred quantity that can be used in
// output expressions.
type modelVariable struct {
	description, units string
	value              func(d *microflow.Domain, i, j, k int) float64
}

// modelVariables are the variables available for output.
var modelVariables = map[string]modelVariable{
	"U": {"Eastward wind", "m/s", func(d *microflow.Domain, i, j, k int) float64 {
		u, _, _ := d.CellVelocity(i, j, k)
		return u
	}},
	"V": {"Northward wind", "m/s", func(d *microflow.Domain, i, j, k int) float64 {
		_, v, _ := d.CellVelocity(i, j, k)
		return v
	}},
	"W": {"Upward wind", "m/s", func(d *microflow.Domain, i, j, k int) float64 {
		_, _, w := d.CellVelocity(i, j, k)
		return w
	}},
	"P": {"Kinematic pressure", "m2/s2", func(d *microflow.Domain, i, j, k int) float64 {
		return d.P.At(i, j, k)
	}},
	"TKE": {"Turbulent kinetic energy", "m2/s2", func(d *microflow.Domain, i, j, k int) float64 {
		return d.TKE.At(i, j, k)
	}},
	"Eps": {"Dissipation rate of turbulent kinetic energy", "m2/s3", func(d *microflow.Domain, i, j, k int) float64 {
		return d.Eps.At(i, j, k)
	}},
	"ViscH": {"Horizontal eddy viscosity", "m2/s", func(d *microflow.Domain, i, j, k int) float64 {
		return d.ViscH.At(i, j, k)
	}},
	"ViscV": {"Vertical eddy viscosity", "m2/s", func(d *microflow.Domain, i, j, k int) float64 {
		return d.ViscV.At(i, j, k)
	}},
	"Z": {"Height of cell centre above ground", "m", func(d *microflow.Domain, i, j, k int) float64 {
		return d.Grid.ZSP[k]
	}},
	"Blocked": {"1 inside obstacles, 0 elsewhere", "-", func(d *microflow.Domain, i, j, k int) float64 {
		if k <= d.ObstacleTop(i, j) {
			return 1
		}
		return 0
	}},
}

// Outputter writes wind field results to NetCDF files.
//
// outputVariables maps the names of the variables to be written to
// expressions that define how they are calculated from the model
// variables and functions.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	outputFunctions map[string]govaluate.ExpressionFunction
	expressions     map[string]*govaluate.EvaluableExpression
	modelVariables  []string
}

// NewOutputter initializes a new Outputter. In addition to any functions
// in outputFunctions, the expressions can use 'sqrt(x)', 'abs(x)', and
// 'max(x, y)'.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	funcs := map[string]govaluate.ExpressionFunction{
		"sqrt": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("microflow: got %d arguments for function 'sqrt', but needs 1", len(arg))
			}
			return math.Sqrt(arg[0].(float64)), nil
		},
		"abs": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("microflow: got %d arguments for function 'abs', but needs 1", len(arg))
			}
			return math.Abs(arg[0].(float64)), nil
		},
		"max": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("microflow: got %d arguments for function 'max', but needs 2", len(arg))
			}
			return math.Max(arg[0].(float64), arg[1].(float64)), nil
		},
	}
	for key, val := range outputFunctions {
		funcs[key] = val
	}
	if err := checkOutputNames(outputVariables); err != nil {
		return nil, err
	}

	o := &Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		outputFunctions: funcs,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
	}
	seen := make(map[string]bool)
	for _, name := range o.names() {
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(outputVariables[name], funcs)
		if err != nil {
			return nil, fmt.Errorf("microflow: output variable %s: %v", name, err)
		}
		for _, v := range expr.Vars() {
			if _, ok := modelVariables[v]; !ok {
				return nil, fmt.Errorf("microflow: output variable %s: undefined variable name '%s'", name, v)
			}
			if !seen[v] {
				seen[v] = true
				o.modelVariables = append(o.modelVariables, v)
			}
		}
		o.expressions[name] = expr
	}
	sort.Strings(o.modelVariables)
	return o, nil
}

// checkOutputNames checks that the output variable names are valid
// NetCDF variable names.
func checkOutputNames(o map[string]string) error {
	valid := regexp.MustCompile(`^[A-Za-z]\w*$`)
	for key := range o {
		if !valid.MatchString(key) {
			return fmt.Errorf("microflow: output variable name '%s' includes unsupported characters", key)
		}
	}
	return nil
}

// names returns the output variable names in sorted order.
func (o *Outputter) names() []string {
	names := make([]string, 0, len(o.outputVariables))
	for n := range o.outputVariables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Results evaluates the output variables in every cell of d. The returned
// arrays have dimensions [z, y, x].
func (o *Outputter) Results(d *microflow.Domain) (map[string]*sparse.DenseArray, error) {
	g := d.Grid
	res := make(map[string]*sparse.DenseArray)
	for name := range o.expressions {
		res[name] = sparse.ZerosDense(g.NKK, g.NJJ, g.NII)
	}
	params := make(map[string]interface{}, len(o.modelVariables))
	for k := 1; k <= g.NKK; k++ {
		for j := 1; j <= g.NJJ; j++ {
			for i := 1; i <= g.NII; i++ {
				for _, v := range o.modelVariables {
					params[v] = modelVariables[v].value(d, i, j, k)
				}
				for name, expr := range o.expressions {
					r, err := expr.Evaluate(params)
					if err != nil {
						return nil, fmt.Errorf("microflow: evaluating output variable %s: %v", name, err)
					}
					v, ok := r.(float64)
					if !ok {
						return nil, fmt.Errorf("microflow: output variable %s is not a number", name)
					}
					res[name].Set(v, k-1, j-1, i-1)
				}
			}
		}
	}
	return res, nil
}

// Output writes the results of d, calculated for the named weather
// situation, to the file name that the Outputter was created with.
func (o *Outputter) Output(d *microflow.Domain, situation string) error {
	return o.write(o.fileName, d, situation)
}

func (o *Outputter) write(fileName string, d *microflow.Domain, situation string) error {
	res, err := o.Results(d)
	if err != nil {
		return err
	}
	g := d.Grid
	r := d.Report()

	h := cdf.NewHeader([]string{"x", "y", "z", "zEdge"}, []int{g.NII, g.NJJ, g.NKK, g.NKK + 1})
	h.AddAttribute("", "comment", "microflow wind field")
	h.AddAttribute("", "situation", situation)
	h.AddAttribute("", "status", r.Status.String())
	h.AddAttribute("", "iterations", []int32{int32(r.Iterations)})
	h.AddAttribute("", "x0", []float64{g.X0})
	h.AddAttribute("", "y0", []float64{g.Y0})
	h.AddAttribute("", "dx", []float64{g.DX})
	h.AddAttribute("", "dy", []float64{g.DY})
	h.AddAttribute("", "version", microflow.Version)

	h.AddVariable("LayerTop", []string{"zEdge"}, []float64{0})
	h.AddAttribute("LayerTop", "description", "Height of layer tops above ground")
	h.AddAttribute("LayerTop", "units", "m")
	names := o.names()
	for _, name := range names {
		h.AddVariable(name, []string{"z", "y", "x"}, []float32{0})
		h.AddAttribute(name, "description", o.outputVariables[name])
		h.AddAttribute(name, "units", o.units(name))
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("microflow: creating output file: %v", errs[0])
	}

	ff, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("microflow: creating output file: %v", err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("microflow: creating output file: %v", err)
	}
	w := f.Writer("LayerTop", []int{0}, []int{len(g.HOKART)})
	if _, err = w.Write(g.HOKART); err != nil {
		return fmt.Errorf("microflow: writing layer tops: %v", err)
	}
	for _, name := range names {
		if err = writeNCF(f, name, res[name]); err != nil {
			return fmt.Errorf("microflow: writing variable %s to output file: %v", name, err)
		}
	}
	if err = cdf.UpdateNumRecs(ff); err != nil {
		return fmt.Errorf("microflow: finalizing output file: %v", err)
	}
	return nil
}

// units returns the units of an output variable if it is a model
// variable, and an empty string otherwise.
func (o *Outputter) units(name string) string {
	if v, ok := modelVariables[strings.TrimSpace(o.outputVariables[name])]; ok {
		return v.units
	}
	return ""
}

func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(Var)
	start := make([]int, len(end))
	w := f.Writer(Var, start, end)
	_, err := w.Write(data32)
	return err
}
