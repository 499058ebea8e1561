package calibration

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseConcentrations parses a comma separated list such as "0, 0.2, 0.4".
func ParseConcentrations(s string) ([]float64, error) {
	var out []float64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid concentration %q: %w", field, err)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no concentrations in %q", s)
	}
	return out, nil
}

// ExpandTargets repeats each base concentration reps times in a row, matching
// the order calibration wells are picked in (all replicates of a level before
// the next level).
func ExpandTargets(base []float64, reps int) ([]float64, error) {
	if reps < 1 {
		return nil, fmt.Errorf("replicate count must be at least 1, got %d", reps)
	}
	targets := make([]float64, 0, len(base)*reps)
	for _, c := range base {
		for i := 0; i < reps; i++ {
			targets = append(targets, c)
		}
	}
	return targets, nil
}
