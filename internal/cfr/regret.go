package cfr

// regretMatching maps cumulative regrets to a strategy: negative regrets are
// clipped to zero and the positive part normalised; with no positive regret
// the strategy is uniform.
func regretMatching(regrets []float64) []float64 {
	strat := make([]float64, len(regrets))

	total := 0.0
	for i, r := range regrets {
		if r > 0 {
			strat[i] = r
			total += r
		}
	}

	if total <= 0 {
		u := 1.0 / float64(len(strat))
		for i := range strat {
			strat[i] = u
		}
		return strat
	}

	for i := range strat {
		strat[i] /= total
	}
	return strat
}

// sampleIndex draws an index from the distribution. The fallback to the last
// index guards against floating-point shortfall.
func sampleIndex(dist []float64, u float64) int {
	for i, p := range dist {
		u -= p
		if u <= 0 {
			return i
		}
	}
	return len(dist) - 1
}
