package eval

import (
	"math"
	"strings"
	"testing"
)

func TestEvalPassesFiniteScores(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run([]float64{0.5, -2, 3.1, 0, 1})

	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Reason)
	}
	if len(result.Metrics) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(result.Metrics))
	}
	if result.Metrics[1].Value != 3.1 {
		t.Fatalf("expected max abs 3.1, got %v", result.Metrics[1].Value)
	}
}

func TestEvalFailsOnNaN(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run([]float64{0, math.NaN(), math.Inf(-1)})

	if result.Passed {
		t.Fatal("expected failure")
	}
	if result.Metrics[0].Value != 2 {
		t.Fatalf("expected 2 non-finite scores, got %v", result.Metrics[0].Value)
	}
	if !strings.Contains(result.Reason, "non-finite") {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestEvalFailsOnMagnitude(t *testing.T) {
	h := NewEvalHarness(EvalConfig{MaxScoreMagnitude: 10})
	result := h.Run([]float64{1, -11})

	if result.Passed {
		t.Fatal("expected failure")
	}
	if result.Metrics[1].Pass {
		t.Fatal("magnitude metric should fail")
	}
}

func TestEvalMagnitudeDisabled(t *testing.T) {
	h := NewEvalHarness(EvalConfig{})
	if result := h.Run([]float64{1e12}); !result.Passed {
		t.Fatalf("expected pass with bound disabled: %s", result.Reason)
	}
}

func TestEvalFailsOnEmpty(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	if result := h.Run(nil); result.Passed {
		t.Fatal("expected failure for empty scores")
	}
}
