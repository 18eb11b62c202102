package cluster

import (
	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// Accumulator is a named per-cluster aggregate. Map extracts the initial value
// from an input point; Reduce combines two partial values and must be
// associative.
type Accumulator struct {
	Name   string
	Map    func(models.Feature) float64
	Reduce func(a, b float64) float64
}

func add(a, b float64) float64 { return a + b }

// Sum accumulates the numeric property prop. Points without it contribute 0.
func Sum(name, prop string) Accumulator {
	return Accumulator{
		Name: name,
		Map: func(f models.Feature) float64 {
			v, _ := f.FloatProp(prop)
			return v
		},
		Reduce: add,
	}
}

// Count accumulates one per point
func Count(name string) Accumulator {
	return Accumulator{
		Name:   name,
		Map:    func(models.Feature) float64 { return 1 },
		Reduce: add,
	}
}
