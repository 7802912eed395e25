package domain

import "time"

// Observation is a single reading for one (site, variable) pair.
type Observation struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Observations is the two-column time-series table.
type Observations []Observation

var observationColumns = []string{"time", "value"}

// Columns implements Table.
func (o Observations) Columns() []string { return append([]string(nil), observationColumns...) }

// Records implements Table.
func (o Observations) Records() [][]string {
	out := make([][]string, len(o))
	for i, obs := range o {
		out[i] = []string{obs.Time.UTC().Format(time.RFC3339), formatFloat(obs.Value)}
	}
	return out
}
