package fountain

import "math"

// solitonDistribution holds the normalized robust-soliton probability mass
// function over degrees [1, k], plus the cumulative distribution used for
// sampling.
type solitonDistribution struct {
	cumulative []float64 // cumulative[d-1] = P(degree <= d)
}

// newSolitonDistribution builds the robust-soliton distribution for k
// blocks and parameters c, delta, following the construction:
//
//	rho(1) = 1/k; rho(d) = 1/(d*(d-1)) for d in [2,k]
//	R = c * ln(k/delta) * sqrt(k); S = max(1, floor(k/R))
//	tau(d) = R/(d*k) for d<S; tau(S) = R*ln(R/delta)/k; tau(d)=0 for d>S
//	mu(d) = (rho(d)+tau(d)) / Z, normalized over d in [1,k]
func newSolitonDistribution(k int, c, delta float64) *solitonDistribution {
	if k < 1 {
		k = 1
	}
	rho := make([]float64, k+1) // 1-indexed
	rho[1] = 1.0 / float64(k)
	for d := 2; d <= k; d++ {
		rho[d] = 1.0 / (float64(d) * float64(d-1))
	}

	R := c * math.Log(float64(k)/delta) * math.Sqrt(float64(k))

	tau := make([]float64, k+1)
	// degenerate parameters (c <= 0, delta >= k) collapse to the ideal
	// soliton: tau stays all-zero
	if R > 0 && !math.IsInf(R, 0) {
		S := int(math.Floor(float64(k) / R))
		if S < 1 {
			S = 1
		}
		for d := 1; d <= k; d++ {
			switch {
			case d < S:
				tau[d] = R / (float64(d) * float64(k))
			case d == S:
				if spike := R * math.Log(R/delta) / float64(k); spike > 0 {
					tau[d] = spike
				}
			}
		}
	}

	mu := make([]float64, k+1)
	var z float64
	for d := 1; d <= k; d++ {
		mu[d] = rho[d] + tau[d]
		z += mu[d]
	}

	cumulative := make([]float64, k)
	running := 0.0
	for d := 1; d <= k; d++ {
		running += mu[d] / z
		cumulative[d-1] = running
	}
	// guard against floating point drift so sampling always terminates.
	cumulative[k-1] = 1.0

	return &solitonDistribution{cumulative: cumulative}
}

// sample draws a degree in [1, k] given a uniform random value u in [0, 1).
func (s *solitonDistribution) sample(u float64) int {
	for d, c := range s.cumulative {
		if u < c {
			return d + 1
		}
	}
	return len(s.cumulative)
}
