package statistics

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RoundResult is the outcome of one round from the player's side.
type RoundResult struct {
	Net       float64 // net profit in chips
	Wagered   float64
	Hands     int
	Blackjack bool
}

// Statistics accumulates round results for descriptive statistics over net
// profit. The zero value is ready to use.
type Statistics struct {
	Rounds     int
	Hands      int
	Wagered    float64
	Blackjacks int
	Wins       int // rounds with a positive net
	Losses     int
	Pushes     int
	Values     []float64
}

// Add incorporates one round.
func (s *Statistics) Add(r RoundResult) {
	s.Rounds++
	s.Hands += r.Hands
	s.Wagered += r.Wagered
	s.Values = append(s.Values, r.Net)
	if r.Blackjack {
		s.Blackjacks++
	}
	switch {
	case r.Net > 0:
		s.Wins++
	case r.Net < 0:
		s.Losses++
	default:
		s.Pushes++
	}
}

// Merge folds other into s.
func (s *Statistics) Merge(other *Statistics) {
	s.Rounds += other.Rounds
	s.Hands += other.Hands
	s.Wagered += other.Wagered
	s.Blackjacks += other.Blackjacks
	s.Wins += other.Wins
	s.Losses += other.Losses
	s.Pushes += other.Pushes
	s.Values = append(s.Values, other.Values...)
}

// Total is the summed net profit.
func (s *Statistics) Total() float64 {
	return floats.Sum(s.Values)
}

// Mean returns the mean net profit per round.
func (s *Statistics) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance returns the sample variance.
func (s *Statistics) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// StdDev returns the sample standard deviation.
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean.
func (s *Statistics) StdError() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(len(s.Values)))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean.
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Median returns the median net profit.
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the empirical quantile at p (0.0 to 1.0).
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	sorted := slices.Clone(s.Values)
	slices.Sort(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ReturnPerWager is net profit as a fraction of the amount wagered.
func (s *Statistics) ReturnPerWager() float64 {
	if s.Wagered == 0 {
		return 0
	}
	return s.Total() / s.Wagered
}

// Validate checks the counters agree with each other.
func (s *Statistics) Validate() error {
	if len(s.Values) != s.Rounds {
		return fmt.Errorf("values length (%d) does not match rounds (%d)", len(s.Values), s.Rounds)
	}
	if s.Wins+s.Losses+s.Pushes != s.Rounds {
		return fmt.Errorf("outcomes (%d) do not add up to rounds (%d)", s.Wins+s.Losses+s.Pushes, s.Rounds)
	}
	if s.Hands < s.Rounds {
		return fmt.Errorf("hands (%d) fewer than rounds (%d)", s.Hands, s.Rounds)
	}
	return nil
}
