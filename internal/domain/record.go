package domain

import "time"

// Outcome is the posterior probability of one value of the query variable
type Outcome struct {
	Value       Value   `json:"value"`
	Probability float64 `json:"probability"`
}

// QueryRecord is a completed query kept in the history
type QueryRecord struct {
	ID         string        `json:"id"`
	Network    string        `json:"network"`
	Variable   string        `json:"variable"`
	Evidence   Evidence      `json:"evidence"`
	Algorithm  string        `json:"algorithm"`
	Outcomes   []Outcome     `json:"outcomes"`
	Duration   time.Duration `json:"duration_ns"`
	Operations int64         `json:"operations,omitempty"`
	MaxFactor  int           `json:"max_factor_size,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Probability returns the recorded probability for v, 0 when absent
func (r *QueryRecord) Probability(v Value) float64 {
	for _, o := range r.Outcomes {
		if o.Value == v {
			return o.Probability
		}
	}
	return 0
}
