/*
Copyright © 2019 the goesgrid authors.
This file is part of goesgrid.

goesgrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

goesgrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with goesgrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package goesgrid

import (
	"fmt"
	"math"
	"sort"

	"github.com/Knetic/govaluate"
)

// expressionFunctions are the functions available in field expressions
// in addition to the govaluate operators.
var expressionFunctions = map[string]govaluate.ExpressionFunction{
	"exp":  unaryFunc("exp", math.Exp),
	"log":  unaryFunc("log", math.Log),
	"sqrt": unaryFunc("sqrt", math.Sqrt),
	"abs":  unaryFunc("abs", math.Abs),
	"cos":  unaryFunc("cos", math.Cos),
	"sin":  unaryFunc("sin", math.Sin),
}

func unaryFunc(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("goesgrid: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		v, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("goesgrid: function '%s' needs a number but got %T", name, arg[0])
		}
		return f(v), nil
	}
}

// Evaluate calculates a new field named name by evaluating the
// expression expr separately for each cell of the fields in vars, which
// are referred to in expr by their map keys. The fields used in expr
// must all have the same shape. Cells where any of the fields used are
// missing are set to NaN in the result. Boolean results are stored as
// 1 or 0.
func Evaluate(name, expr string, vars map[string]*Field) (*Field, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, expressionFunctions)
	if err != nil {
		return nil, fmt.Errorf("goesgrid: expression %s: %v", name, err)
	}
	used := uniqueStrings(e.Vars())
	if len(used) == 0 {
		return nil, fmt.Errorf("goesgrid: expression %s (%s) does not use any variables", name, expr)
	}
	fields := make([]*Field, len(used))
	for i, v := range used {
		f, ok := vars[v]
		if !ok || f == nil || f.Data == nil {
			return nil, fmt.Errorf("goesgrid: expression %s uses unknown variable %s", name, v)
		}
		if len(f.Data.Shape) != 2 || !sameShape(f.Data.Shape, fields[0].shapeOr(f)) {
			return nil, fmt.Errorf("goesgrid: expression %s: variable %s has shape %v but %s has shape %v: %w",
				name, v, f.Data.Shape, used[0], fields[0].shapeOr(f), ErrInvalidShape)
		}
		fields[i] = f
	}

	o := fields[0].like()
	o.Name = name
	o.LongName = expr
	o.StandardName = ""
	o.Units = ""
	o.Kind = Generic
	o.Missing = math.NaN()
	params := make(map[string]interface{}, len(used))
	for k := range o.Data.Elements {
		missing := false
		for i, f := range fields {
			v := f.Data.Elements[k]
			if f.IsMissing(v) {
				missing = true
				break
			}
			params[used[i]] = v
		}
		if missing {
			o.Data.Elements[k] = math.NaN()
			continue
		}
		r, err := e.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("goesgrid: evaluating expression %s: %v", name, err)
		}
		switch rr := r.(type) {
		case float64:
			o.Data.Elements[k] = rr
		case bool:
			if rr {
				o.Data.Elements[k] = 1
			}
		default:
			return nil, fmt.Errorf("goesgrid: expression %s returned %T rather than a number", name, r)
		}
	}
	return o, nil
}

// shapeOr returns the shape of f, or of alt if f is nil.
func (f *Field) shapeOr(alt *Field) []int {
	if f == nil {
		return alt.Data.Shape
	}
	return f.Data.Shape
}

// EvaluateAll evaluates each of the expressions in exprs, which maps
// output names to expressions, and returns the results in vars. The
// expressions are evaluated in name order, and each result can be used
// by the expressions evaluated after it.
func EvaluateAll(exprs map[string]string, vars map[string]*Field) ([]*Field, error) {
	names := make([]string, 0, len(exprs))
	for n := range exprs {
		names = append(names, n)
	}
	sort.Strings(names)
	all := make(map[string]*Field, len(vars)+len(exprs))
	for k, v := range vars {
		all[k] = v
	}
	o := make([]*Field, 0, len(names))
	for _, n := range names {
		f, err := Evaluate(n, exprs[n], all)
		if err != nil {
			return nil, err
		}
		all[n] = f
		o = append(o, f)
	}
	return o, nil
}

func uniqueStrings(s []string) []string {
	seen := make(map[string]bool, len(s))
	var o []string
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			o = append(o, v)
		}
	}
	return o
}
