package engine

import (
	"math"
	"math/rand/v2"
)

// FailureModel maps node reliability to a per-attempt failure probability
// with a logistic curve centred on Midpoint.
type FailureModel struct {
	Slope    float64 `json:"slope"`
	Midpoint float64 `json:"midpoint"`
}

// DefaultFailureModel returns the calibrated curve: reliability 0.3 fails half the time.
func DefaultFailureModel() FailureModel {
	return FailureModel{Slope: 4.0, Midpoint: 0.3}
}

// Probability returns 1/(1+exp(slope*(r-midpoint))). For a positive slope it
// is non-increasing in reliability.
func (f FailureModel) Probability(reliability float64) float64 {
	return 1 / (1 + math.Exp(f.Slope*(reliability-f.Midpoint)))
}

// RandomSource supplies uniform draws in [0,1).
type RandomSource interface {
	Float64() float64
}

// NewRandomSource returns a seeded PCG generator.
func NewRandomSource(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SeedFor derives an independent stream seed for one policy within one trial.
// Equal inputs always produce the same seed. Each component is mixed on its
// own so neighbouring base seeds do not replay each other's trials.
func SeedFor(base uint64, trial, policyIndex int) uint64 {
	return splitmix64(splitmix64(splitmix64(base)^uint64(trial)) ^ uint64(policyIndex))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
