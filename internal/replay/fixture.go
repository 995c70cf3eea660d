package replay

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
	"github.com/danielpatrickdp/adaptive-tutor/internal/orchestrator"
)

// #region fixture-types

// Fixture is a self-contained replay: estimator seed and shape, pipeline
// thresholds, start state, answers and the expected action per turn.
type Fixture struct {
	Description     string                  `json:"description" yaml:"description"`
	Seed            uint64                  `json:"seed" yaml:"seed"`
	Hidden          int                     `json:"hidden" yaml:"hidden"`
	StartState      *learner.State          `json:"start_state,omitempty" yaml:"start_state,omitempty"`
	Config          FixtureConfig           `json:"config" yaml:"config"`
	Answers         []Answer                `json:"answers" yaml:"answers"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results" yaml:"expected_results"`
}

// FixtureConfig overrides pipeline thresholds; zero fields keep defaults.
type FixtureConfig struct {
	DampingRate       float64 `json:"damping_rate" yaml:"damping_rate"`
	Discount          float64 `json:"discount" yaml:"discount"`
	MaxTDError        float64 `json:"max_td_error" yaml:"max_td_error"`
	MaxScoreMagnitude float64 `json:"max_score_magnitude" yaml:"max_score_magnitude"`
}

// FixtureExpectedResult captures the expected action per turn. An empty Topic
// is not checked.
type FixtureExpectedResult struct {
	TurnID string        `json:"turn_id" yaml:"turn_id"`
	Topic  learner.Topic `json:"topic,omitempty" yaml:"topic,omitempty"`
	Action string        `json:"action" yaml:"action"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads a fixture; .yaml and .yml files are parsed as YAML,
// anything else as JSON.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		err = json.Unmarshal(data, &f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Start returns the fixture's start state, or a fresh learner.
func (f *Fixture) Start() learner.State {
	if f.StartState == nil {
		return learner.New()
	}
	return f.StartState.Clone()
}

// Options converts the fixture config to orchestrator options.
func (f *Fixture) Options(log *logging.Logger) orchestrator.Options {
	opts := orchestrator.DefaultOptions()
	opts.Logger = log
	if f.Config.DampingRate > 0 {
		opts.DampingRate = f.Config.DampingRate
	}
	if f.Config.Discount > 0 {
		opts.TD.Discount = f.Config.Discount
	}
	if f.Config.MaxTDError > 0 {
		opts.Gate.MaxTDError = f.Config.MaxTDError
	}
	if f.Config.MaxScoreMagnitude > 0 {
		opts.Eval.MaxScoreMagnitude = f.Config.MaxScoreMagnitude
	}
	return opts
}

// Build creates a fresh seeded estimator and orchestrator for the fixture, so
// the same fixture always replays identically.
func (f *Fixture) Build(log *logging.Logger) (*orchestrator.Orchestrator, error) {
	cfg := estimator.DefaultMLPConfig()
	if f.Hidden > 0 {
		cfg.Hidden = f.Hidden
	}
	m, err := estimator.NewMLP(cfg, rand.New(rand.NewPCG(f.Seed, 1)))
	if err != nil {
		return nil, fmt.Errorf("build estimator: %w", err)
	}
	g := estimator.NewGuarded(m, estimator.GuardedOptions{Outputs: cfg.Outputs})
	return orchestrator.New(g, nil, rand.New(rand.NewPCG(f.Seed, 2)), f.Options(log)), nil
}

// Mismatches compares results against the expected results and describes
// every difference.
func (f *Fixture) Mismatches(results []Result) []string {
	var out []string
	if len(results) != len(f.ExpectedResults) {
		out = append(out, fmt.Sprintf("expected %d results, got %d", len(f.ExpectedResults), len(results)))
	}
	for i, exp := range f.ExpectedResults {
		if i >= len(results) {
			break
		}
		got := results[i]
		if got.TurnID != exp.TurnID {
			out = append(out, fmt.Sprintf("turn %d: expected turn_id=%s, got %s", i, exp.TurnID, got.TurnID))
		}
		if got.Action != exp.Action {
			out = append(out, fmt.Sprintf("turn %d (%s): expected action=%s, got %s (reason: %s)",
				i, exp.TurnID, exp.Action, got.Action, got.Reason))
		}
		if exp.Topic != "" && got.Topic != exp.Topic {
			out = append(out, fmt.Sprintf("turn %d (%s): expected topic=%s, got %s", i, exp.TurnID, exp.Topic, got.Topic))
		}
	}
	return out
}

// #endregion fixture-loader
