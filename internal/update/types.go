package update

// #region td-config
// TDConfig holds the reward shaping and discount parameters for TD targets.
type TDConfig struct {
	Discount         float64 // weight on the best next-state score (default 0.95)
	LatencyWindowMs  float64 // response time at which the speed bonus reaches zero (default 10000)
	IncorrectPenalty float64 // reward for a wrong answer (default -0.5)
}

// DefaultTDConfig returns the shaping used by the tutor.
func DefaultTDConfig() TDConfig {
	return TDConfig{
		Discount:         0.95,
		LatencyWindowMs:  10000,
		IncorrectPenalty: -0.5,
	}
}

// #endregion td-config

// #region td-result
// TDResult bundles the reward and target computed for one outcome.
type TDResult struct {
	Reward     float64
	BestNext   float64
	Target     []float64
	TopicIndex int
	TDError    float64 // target[topic] - current[topic]
}

// #endregion td-result
