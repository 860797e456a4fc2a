// arraylist/policy.go
package arraylist

import (
	"fmt"
	"math"
)

// Default capacity policy values
const (
	DefaultMinCapacity      = 10
	DefaultMinFilledRatio   = 0.3
	DefaultIdealFilledRatio = 0.5
	DefaultMaxFilledRatio   = 0.7
)

// Policy decides how large the backing buffer of a List should be.
//
// After every length change the fill ratio length/capacity is checked. While
// it stays strictly between MinFilledRatio and MaxFilledRatio the buffer is
// left alone; otherwise it is reallocated so that the ratio becomes
// IdealFilledRatio, bounded below by MinCapacity and above by MaxCapacity.
type Policy struct {
	MinCapacity      int     `json:"min_capacity" yaml:"min_capacity"`
	MinFilledRatio   float64 `json:"min_filled_ratio" yaml:"min_filled_ratio"`
	IdealFilledRatio float64 `json:"ideal_filled_ratio" yaml:"ideal_filled_ratio"`
	MaxFilledRatio   float64 `json:"max_filled_ratio" yaml:"max_filled_ratio"`
	MaxCapacity      int     `json:"max_capacity" yaml:"max_capacity"`
}

// DefaultPolicy returns the default capacity policy
func DefaultPolicy() Policy {
	return Policy{
		MinCapacity:      DefaultMinCapacity,
		MinFilledRatio:   DefaultMinFilledRatio,
		IdealFilledRatio: DefaultIdealFilledRatio,
		MaxFilledRatio:   DefaultMaxFilledRatio,
		MaxCapacity:      math.MaxInt,
	}
}

// Validate checks the policy is self-consistent
func (p Policy) Validate() error {
	if p.MinCapacity < 1 {
		return fmt.Errorf("%w: min capacity %d must be positive", ErrInvalidPolicy, p.MinCapacity)
	}
	if p.MaxCapacity < p.MinCapacity {
		return fmt.Errorf("%w: max capacity %d below min capacity %d",
			ErrInvalidPolicy, p.MaxCapacity, p.MinCapacity)
	}
	if !(p.MinFilledRatio > 0 &&
		p.MinFilledRatio < p.IdealFilledRatio &&
		p.IdealFilledRatio < p.MaxFilledRatio &&
		p.MaxFilledRatio <= 1) {
		return fmt.Errorf("%w: ratios must satisfy 0 < min (%g) < ideal (%g) < max (%g) <= 1",
			ErrInvalidPolicy, p.MinFilledRatio, p.IdealFilledRatio, p.MaxFilledRatio)
	}
	return nil
}

// Acceptable reports whether length/capacity lies strictly inside the
// fill-ratio band. An empty buffer is never acceptable.
func (p Policy) Acceptable(length, capacity int) bool {
	ratio := float64(length) / float64(capacity)
	return ratio > p.MinFilledRatio && ratio < p.MaxFilledRatio
}

// Target returns the capacity that puts length at the ideal fill ratio,
// clamped to [MinCapacity, MaxCapacity].
func (p Policy) Target(length int) int {
	ideal := float64(length) / p.IdealFilledRatio
	if ideal < float64(p.MinCapacity) {
		return p.MinCapacity
	}
	// Compared before conversion so int(ideal) cannot overflow.
	if ideal >= float64(p.MaxCapacity) {
		return p.MaxCapacity
	}
	return int(ideal)
}

// Plan returns the capacity a buffer of the given capacity should have once
// it holds length elements.
func (p Policy) Plan(length, capacity int) int {
	if p.Acceptable(length, capacity) {
		return capacity
	}
	return p.Target(length)
}
