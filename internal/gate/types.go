package gate

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoNonFinite  VetoType = "non_finite"
	VetoTopicRange VetoType = "topic_out_of_range"
	VetoTDError    VetoType = "td_error_cap"
	VetoShape      VetoType = "shape_mismatch"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType
	Reason string
}

// #endregion veto-signal

// #region gate-config
// GateConfig holds thresholds for gate decisions.
type GateConfig struct {
	MaxTDError float64 `yaml:"max_td_error"` // cap on |target - current| at the acted topic; 0 disables
}

// DefaultGateConfig returns the tutor defaults.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxTDError: 50.0,
	}
}

// #endregion gate-config

// #region gate-decision
// GateDecision is the output of the gate evaluation.
type GateDecision struct {
	Action      string // "commit" | "reject"
	Reason      string
	Vetoed      bool
	VetoSignals []VetoSignal // non-empty if vetoed
	TDError     float64
}

// #endregion gate-decision
