package analytics

import "fmt"

// Self-reported metrics are on a 0–10 scale.
const (
	MetricMin = 0.0
	MetricMax = 10.0
)

// ValidationError describes a metric outside its range. Out-of-range values
// are clamped rather than rejected; the error exists so callers can log it.
type ValidationError struct {
	Field   string
	Value   float64
	Clamped float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s=%g outside [%g,%g], clamped to %g", e.Field, e.Value, MetricMin, MetricMax, e.Clamped)
}

// ClampMetric clamps *v into [MetricMin, MetricMax] in place. It returns a
// ValidationError when the value changed and nil otherwise (including nil v).
func ClampMetric(field string, v *float64) *ValidationError {
	if v == nil {
		return nil
	}
	c := clamp(*v, MetricMin, MetricMax)
	if c == *v {
		return nil
	}
	verr := &ValidationError{Field: field, Value: *v, Clamped: c}
	*v = c
	return verr
}
