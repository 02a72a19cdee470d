package validation

import (
	"math"
	"strconv"
	"strings"
)

// Genders accepted by the patient form.
const (
	GenderMale   = "Masculino"
	GenderFemale = "Femenino"
)

// ParseNumber reads a numeric form value. Blank, non-numeric and non-finite
// values report ok=false.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func inRange(n, lo, hi float64) bool { return n >= lo && n <= hi }

// ValidAge accepts ages in [0, 120].
func ValidAge(n float64) bool { return inRange(n, 0, 120) }

// ValidHeightCM accepts heights in [30, 250] cm.
func ValidHeightCM(n float64) bool { return inRange(n, 30, 250) }

// ValidWeightKG accepts weights in [0, 300] kg.
func ValidWeightKG(n float64) bool { return inRange(n, 0, 300) }

// ValidGender accepts the two gender options offered by the form.
func ValidGender(g string) bool {
	g = strings.TrimSpace(g)
	return g == GenderMale || g == GenderFemale
}

// RangeHint carries the min/max/step attributes for a numeric input.
type RangeHint struct {
	Min  string
	Max  string
	Step string
}

// RangeHints lists the numeric patient inputs and their attribute hints.
var RangeHints = map[string]RangeHint{
	FieldAge:    {Min: "0", Max: "120", Step: "1"},
	FieldHeight: {Min: "30", Max: "250", Step: "0.01"},
	FieldWeight: {Min: "0", Max: "300", Step: "0.01"},
}
