package query

// Summary describes the polarity distribution of one query's hits.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	Neutral  int     `json:"neutral"`
}

// Summarize counts positive, negative and exactly-zero scores.
func Summarize(polarities []float64) Summary {
	var s Summary
	sum := 0.0
	for _, p := range polarities {
		sum += p
		switch {
		case p > 0:
			s.Positive++
		case p < 0:
			s.Negative++
		default:
			s.Neutral++
		}
	}
	s.Count = len(polarities)
	if s.Count > 0 {
		s.Mean = sum / float64(s.Count)
	}
	return s
}
