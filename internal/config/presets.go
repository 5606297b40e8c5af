package config

import "github.com/nmlab/attractor/internal/attractor"

// Presets are named attractor geometries. The basis rank selects the region
// of attraction: identity leaves the effector free, rank 2 holds it on a
// plane, rank 1 on a line, and the zero matrix pins it to the offset point.
var Presets = map[string]attractor.Params{
	"free": attractor.DefaultParams(),
	"plane-xy": withBasis(
		[]float64{1, 0, 0, 0, 1, 0, 0, 0, 0},
	),
	"plane-yz": withBasis(
		[]float64{0, 0, 0, 0, 1, 0, 0, 0, 1},
	),
	"line-x": withBasis(
		[]float64{1, 0, 0, 0, 0, 0, 0, 0, 0},
	),
	"line-z": withBasis(
		[]float64{0, 0, 0, 0, 0, 0, 0, 0, 1},
	),
	"point": withBasis(
		make([]float64, 9),
	),
}

func withBasis(basis []float64) attractor.Params {
	p := attractor.DefaultParams()
	p.Basis = basis
	return p
}

// GetPreset returns a copy of the named preset, or false when unknown.
func GetPreset(name string) (attractor.Params, bool) {
	p, ok := Presets[name]
	return p, ok
}

// ListPresets returns the preset names in map order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
