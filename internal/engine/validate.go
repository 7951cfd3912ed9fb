package engine

import (
	"strings"

	"github.com/lazypower/momentum/internal/analytics"
	"github.com/lazypower/momentum/internal/store"
)

// maxTriggers caps the triggers kept per check-in or event.
const maxTriggers = 10

// clampCheckIn clamps every reported metric of c into range in place and
// returns one ValidationError per clamped field.
func clampCheckIn(c *store.CheckIn) []*analytics.ValidationError {
	fields := []struct {
		name string
		v    *float64
	}{
		{"energy", c.Energy},
		{"mood", c.Mood},
		{"urges", c.Urges},
		{"stress", c.Stress},
		{"focus", c.Focus},
	}

	var errs []*analytics.ValidationError
	for _, f := range fields {
		if verr := analytics.ClampMetric(f.name, f.v); verr != nil {
			errs = append(errs, verr)
		}
	}
	return errs
}

// cleanTriggers normalizes trigger labels to trimmed lowercase, dropping
// empties and duplicates.
func cleanTriggers(triggers []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(triggers))
	for _, t := range triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxTriggers {
			break
		}
	}
	return out
}
