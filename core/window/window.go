// Package window implements the bounded sample windows feeding the charge
// controller. Two windows are kept in lockstep: total house draw and the
// vehicle's own draw, sampled together once per aggregator tick.
package window

import "gonum.org/v1/gonum/stat"

// tailLen is the number of most recent samples that dominate the average.
const tailLen = 5

// tailWeight is the share of the average contributed by the tail.
const tailWeight = 0.8

// Pair holds the house and car sample windows. Both are mutated together and
// are equal in length at every observation point.
type Pair struct {
	House    []float64 `json:"house"`
	Car      []float64 `json:"car"`
	Capacity int       `json:"capacity"`
}

// NewPair returns an empty pair bounded to capacity samples per window.
func NewPair(capacity int) *Pair {
	return &Pair{Capacity: capacity}
}

// Observe appends one sample to each window, then evicts from the front of
// both until both fit the capacity. Eviction is strictly FIFO.
func (p *Pair) Observe(house, car float64) {
	p.House = append(p.House, house)
	p.Car = append(p.Car, car)
	for len(p.House) > p.Capacity {
		p.House = p.House[1:]
		p.Car = p.Car[1:]
	}
}

// Len returns the current number of samples per window.
func (p *Pair) Len() int { return len(p.House) }

// WeightedAverage returns the windowed statistic used by the control law.
// The last five samples carry 80% of the weight so the controller reacts to
// fresh load changes while the rest of the window damps sensor noise.
func WeightedAverage(samples []float64) float64 {
	switch {
	case len(samples) == 0:
		return 0
	case len(samples) < tailLen+1:
		return stat.Mean(samples, nil)
	}
	body := stat.Mean(samples[:len(samples)-tailLen], nil)
	tail := stat.Mean(samples[len(samples)-tailLen:], nil)
	return body*(1-tailWeight) + tail*tailWeight
}
