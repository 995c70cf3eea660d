// Package config loads tutor settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/eval"
	"github.com/danielpatrickdp/adaptive-tutor/internal/gate"
	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/sampler"
	"github.com/danielpatrickdp/adaptive-tutor/internal/update"
)

// Estimator modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid config")

// #region types
type Config struct {
	Store        StoreConfig     `yaml:"store"`
	Estimator    EstimatorConfig `yaml:"estimator"`
	Selection    SelectionConfig `yaml:"selection"`
	Gate         gate.GateConfig `yaml:"gate"`
	Eval         eval.EvalConfig `yaml:"eval"`
	Learner      LearnerConfig   `yaml:"learner"`
	QuestionBank string          `yaml:"question_bank"`
	Log          LogConfig       `yaml:"log"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type EstimatorConfig struct {
	Mode         string        `yaml:"mode"`
	Addr         string        `yaml:"addr"`
	Hidden       int           `yaml:"hidden"`
	LearningRate float64       `yaml:"learning_rate"`
	Seed         uint64        `yaml:"seed"`
	Timeout      time.Duration `yaml:"timeout"`
}

type SelectionConfig struct {
	DampingRate  float64 `yaml:"damping_rate"`
	Discount     float64 `yaml:"discount"`
	RecentWindow int     `yaml:"recent_window"`
}

type LearnerConfig struct {
	MinAttempts    int     `yaml:"min_attempts"`
	StrongAccuracy float64 `yaml:"strong_accuracy"`
	WeakAccuracy   float64 `yaml:"weak_accuracy"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

// #endregion types

// #region defaults
func DefaultConfig() *Config {
	mlp := estimator.DefaultMLPConfig()
	td := update.DefaultTDConfig()
	th := learner.DefaultThresholds()
	return &Config{
		Store: StoreConfig{Path: "tutor.db"},
		Estimator: EstimatorConfig{
			Mode:         ModeLocal,
			Addr:         "127.0.0.1:50061",
			Hidden:       mlp.Hidden,
			LearningRate: mlp.LearningRate,
			Seed:         1,
			Timeout:      5 * time.Second,
		},
		Selection: SelectionConfig{
			DampingRate:  sampler.DefaultDampingRate,
			Discount:     td.Discount,
			RecentWindow: 20,
		},
		Gate: gate.DefaultGateConfig(),
		Eval: eval.DefaultEvalConfig(),
		Learner: LearnerConfig{
			MinAttempts:    th.MinAttempts,
			StrongAccuracy: th.StrongAccuracy,
			WeakAccuracy:   th.WeakAccuracy,
		},
		Log: LogConfig{Mode: "dev"},
	}
}

// #endregion defaults

// #region load
// Load reads path over the defaults, then applies TUTOR_* environment
// overrides and validates. A missing file is not an error; an empty path
// skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadYAMLFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := applyEnvironment(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvironment(cfg *Config) error {
	if v := os.Getenv("TUTOR_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TUTOR_ESTIMATOR_ADDR"); v != "" {
		cfg.Estimator.Addr = v
		cfg.Estimator.Mode = ModeRemote
	}
	if v := os.Getenv("TUTOR_QUESTION_BANK"); v != "" {
		cfg.QuestionBank = v
	}
	if v := os.Getenv("TUTOR_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("TUTOR_SEED"); v != "" {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("TUTOR_SEED: %w", err)
		}
		cfg.Estimator.Seed = seed
	}
	return nil
}

// #endregion load

// #region validate
func (c *Config) Validate() error {
	switch {
	case !(c.Selection.DampingRate > 0) || math.IsInf(c.Selection.DampingRate, 0):
		return fmt.Errorf("%w: damping_rate must be positive and finite, got %v", ErrInvalid, c.Selection.DampingRate)
	case !(c.Selection.Discount >= 0 && c.Selection.Discount <= 1):
		return fmt.Errorf("%w: discount must be in [0,1], got %v", ErrInvalid, c.Selection.Discount)
	case c.Estimator.Hidden < 1:
		return fmt.Errorf("%w: estimator.hidden must be >= 1, got %d", ErrInvalid, c.Estimator.Hidden)
	case c.Estimator.Mode != ModeLocal && c.Estimator.Mode != ModeRemote:
		return fmt.Errorf("%w: estimator.mode must be %q or %q, got %q", ErrInvalid, ModeLocal, ModeRemote, c.Estimator.Mode)
	case c.Estimator.Mode == ModeRemote && c.Estimator.Addr == "":
		return fmt.Errorf("%w: estimator.addr required in remote mode", ErrInvalid)
	case c.Selection.RecentWindow < 0:
		return fmt.Errorf("%w: recent_window must be >= 0, got %d", ErrInvalid, c.Selection.RecentWindow)
	}
	return nil
}

// #endregion validate

// #region derived
// MLP returns the estimator network configuration.
func (c *Config) MLP() estimator.MLPConfig {
	m := estimator.DefaultMLPConfig()
	m.Hidden = c.Estimator.Hidden
	if c.Estimator.LearningRate > 0 {
		m.LearningRate = c.Estimator.LearningRate
	}
	return m
}

// TD returns the reward and discount configuration.
func (c *Config) TD() update.TDConfig {
	td := update.DefaultTDConfig()
	td.Discount = c.Selection.Discount
	return td
}

func (c *Config) Thresholds() learner.Thresholds {
	return learner.Thresholds{
		MinAttempts:    c.Learner.MinAttempts,
		StrongAccuracy: c.Learner.StrongAccuracy,
		WeakAccuracy:   c.Learner.WeakAccuracy,
	}
}

// #endregion derived
