package curveplot

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Func maps a label to the value plotted against it.
type Func func(float64) float64

type functionSpec struct {
	description  string
	defaultParam float64
	build        func(param float64) Func
}

var functionCatalog = map[string]functionSpec{
	"identity": {
		description: "y = x",
		build: func(float64) Func {
			return func(x float64) float64 { return x }
		},
	},
	"square": {
		description: "y = x^2",
		build: func(float64) Func {
			return func(x float64) float64 { return x * x }
		},
	},
	"sqrt": {
		description: "y = sqrt(x)",
		build: func(float64) Func {
			return math.Sqrt
		},
	},
	"linear": {
		description:  "y = k*x",
		defaultParam: 1,
		build: func(k float64) Func {
			return func(x float64) float64 { return k * x }
		},
	},
	"constant-product": {
		description:  "y = k/x, the x*y = k reserve curve",
		defaultParam: 1,
		build: func(k float64) Func {
			return func(x float64) float64 { return k / x }
		},
	},
	"constant-sum": {
		description:  "y = k-x, the x+y = k reserve curve",
		defaultParam: 1,
		build: func(k float64) Func {
			return func(x float64) float64 { return k - x }
		},
	},
	"exp": {
		description: "y = e^x",
		build: func(float64) Func {
			return math.Exp
		},
	},
	"log": {
		description: "y = ln(x)",
		build: func(float64) Func {
			return math.Log
		},
	},
}

// LookupFunction resolves "name" or "name:param", e.g. "constant-product:9".
// Functions that take no parameter ignore it.
func LookupFunction(s string) (Func, error) {
	name, paramStr, hasParam := strings.Cut(strings.TrimSpace(s), ":")

	entry, ok := functionCatalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFunction, name, strings.Join(FunctionNames(), ", "))
	}

	param := entry.defaultParam
	if hasParam {
		v, err := strconv.ParseFloat(strings.TrimSpace(paramStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid parameter for %s: %w", name, err)
		}
		param = v
	}

	return entry.build(param), nil
}

// FunctionNames lists the catalog in sorted order.
func FunctionNames() []string {
	names := make([]string, 0, len(functionCatalog))
	for name := range functionCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunctionDescription returns the one line description of a catalog entry.
func FunctionDescription(name string) string {
	return functionCatalog[name].description
}
