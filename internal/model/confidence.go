package model

// Scores maps a field name to a confidence in [0.0, 1.0]. Scores are advisory
// metadata and never gate pipeline execution.
type Scores map[string]float64

// Set stores score for field, clamped to [0, 1].
func (s Scores) Set(field string, score float64) {
	s[field] = clamp(score)
}

// Adjust adds delta to the field's score and clamps the result. A field
// without a score starts from zero.
func (s Scores) Adjust(field string, delta float64) float64 {
	v := clamp(s[field] + delta)
	s[field] = v
	return v
}

// Get returns the score for field and whether one is set.
func (s Scores) Get(field string) (float64, bool) {
	v, ok := s[field]
	return v, ok
}

// Delete removes the field's score.
func (s Scores) Delete(field string) {
	delete(s, field)
}

// Snapshot returns an independent copy.
func (s Scores) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
