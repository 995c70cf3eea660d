package gate

import (
	"fmt"
	"math"
)

// #region gate
// Gate decides whether a TD target is safe to hand to the estimator.
type Gate struct {
	config GateConfig
}

// NewGate creates a gate with the given configuration.
func NewGate(config GateConfig) *Gate {
	return &Gate{config: config}
}

// Evaluate checks the current scores and proposed target for the acted topic.
func (g *Gate) Evaluate(current, target []float64, topicIndex int) GateDecision {
	var vetoes []VetoSignal

	if len(current) != len(target) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoShape,
			Reason: fmt.Sprintf("target length %d differs from current %d", len(target), len(current)),
		})
	}

	if topicIndex < 0 || topicIndex >= len(target) {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoTopicRange,
			Reason: fmt.Sprintf("topic index %d outside [0,%d)", topicIndex, len(target)),
		})
	}

	if i, ok := firstNonFinite(current); ok {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoNonFinite,
			Reason: fmt.Sprintf("current score %d is %v", i, current[i]),
		})
	}
	if i, ok := firstNonFinite(target); ok {
		vetoes = append(vetoes, VetoSignal{
			Type:   VetoNonFinite,
			Reason: fmt.Sprintf("target score %d is %v", i, target[i]),
		})
	}

	if len(vetoes) > 0 {
		return GateDecision{
			Action:      "reject",
			Reason:      fmt.Sprintf("hard veto: %s", vetoes[0].Reason),
			Vetoed:      true,
			VetoSignals: vetoes,
		}
	}

	tdErr := target[topicIndex] - current[topicIndex]
	if g.config.MaxTDError > 0 && math.Abs(tdErr) > g.config.MaxTDError {
		veto := VetoSignal{
			Type:   VetoTDError,
			Reason: fmt.Sprintf("td error %.4f exceeds cap %.4f", tdErr, g.config.MaxTDError),
		}
		return GateDecision{
			Action:      "reject",
			Reason:      fmt.Sprintf("hard veto: %s", veto.Reason),
			Vetoed:      true,
			VetoSignals: []VetoSignal{veto},
			TDError:     tdErr,
		}
	}

	return GateDecision{
		Action:  "commit",
		Reason:  fmt.Sprintf("passed gate: td_error=%.4f", tdErr),
		TDError: tdErr,
	}
}

// #endregion gate

// #region helpers
func firstNonFinite(v []float64) (int, bool) {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i, true
		}
	}
	return 0, false
}

// #endregion helpers
