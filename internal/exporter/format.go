package exporter

import (
	"math"
	"strconv"
)

// formatFloat writes the shortest representation that parses back to f.
// Non-finite values are spelled NaN, +Inf and -Inf.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// cellValue is formatFloat for spreadsheet cells: finite values stay numeric.
func cellValue(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return formatFloat(f)
	}
	return f
}

// at returns s[i], or NaN when s is shorter than the population.
func at(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return math.NaN()
}
