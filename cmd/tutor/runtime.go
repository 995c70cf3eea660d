package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/danielpatrickdp/adaptive-tutor/internal/codec"
	"github.com/danielpatrickdp/adaptive-tutor/internal/config"
	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
	"github.com/danielpatrickdp/adaptive-tutor/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/questionbank"
	"github.com/danielpatrickdp/adaptive-tutor/internal/store"
)

// #region runtime
// runtime holds the process-wide estimator handle and its collaborators.
type runtime struct {
	cfg     *config.Config
	log     *logging.Logger
	store   *store.Store
	mlp     *estimator.MLP // nil in remote mode
	client  *codec.Client  // nil in local mode
	guarded *estimator.Guarded
	rng     *rand.Rand

	mu      sync.Mutex
	version string
}

// openRuntime opens the store and builds the estimator named by cfg. In local
// mode the active persisted version is loaded when its shape matches.
func openRuntime(cfg *config.Config, log *logging.Logger) (*runtime, error) {
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt := &runtime{
		cfg:   cfg,
		log:   log,
		store: st,
		rng:   rand.New(rand.NewPCG(cfg.Estimator.Seed, cfg.Estimator.Seed^0x9e3779b97f4a7c15)),
	}

	var inner estimator.ValueEstimator
	switch cfg.Estimator.Mode {
	case config.ModeRemote:
		c, err := codec.NewClient(cfg.Estimator.Addr)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connect estimator at %s: %w", cfg.Estimator.Addr, err)
		}
		rt.client = c
		inner = c
	default:
		m, err := estimator.NewMLP(cfg.MLP(), rt.rng)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("build estimator: %w", err)
		}
		rt.mlp = m
		rt.loadActive()
		inner = m
	}

	rt.guarded = estimator.NewGuarded(inner, estimator.GuardedOptions{
		Timeout: cfg.Estimator.Timeout,
		Outputs: learner.TopicCount,
	})
	return rt, nil
}

func (rt *runtime) loadActive() {
	rec, err := rt.store.ActiveEstimator()
	if errors.Is(err, store.ErrNotFound) {
		rt.log.Info("no active estimator version, starting fresh")
		return
	}
	if err != nil {
		rt.log.Warn("read active estimator failed, starting fresh", "error", err)
		return
	}
	if err := store.LoadInto(rec, rt.mlp); err != nil {
		rt.log.Warn("active estimator incompatible, starting fresh", "version", rec.VersionID, "error", err)
		return
	}
	rt.version = rec.VersionID
	rt.log.Info("loaded estimator", "version", rec.VersionID)
}

// orchestrator builds an orchestrator over the shared handle. bank may be nil.
func (rt *runtime) orchestrator(bank orchestrator.QuestionSource) *orchestrator.Orchestrator {
	opts := orchestrator.DefaultOptions()
	opts.DampingRate = rt.cfg.Selection.DampingRate
	opts.TD = rt.cfg.TD()
	opts.Gate = rt.cfg.Gate
	opts.Eval = rt.cfg.Eval
	opts.Logger = rt.log
	return orchestrator.New(rt.guarded, bank, rt.rng, opts)
}

// bank loads the handcrafted items plus the configured dump.
func (rt *runtime) bank() (*questionbank.Bank, error) {
	b, err := questionbank.NewDefault(rt.cfg.QuestionBank, rt.cfg.Selection.RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("question bank: %w", err)
	}
	return b, nil
}

// currentVersion names the estimator version outcomes are journaled against.
func (rt *runtime) currentVersion() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.version
}

// commit persists the local estimator as a new active version. The parameters
// are read under the exclusive lock so no update is half applied. Remote
// estimators own their persistence and are skipped.
func (rt *runtime) commit(ctx context.Context, metrics any) error {
	if rt.mlp == nil {
		return nil
	}
	var metricsJSON string
	if metrics != nil {
		b, err := json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics: %w", err)
		}
		metricsJSON = string(b)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	var rec store.EstimatorVersion
	err := rt.guarded.Exclusive(ctx, func(context.Context, estimator.ValueEstimator) error {
		var err error
		rec, err = store.VersionFromMLP(rt.version, rt.mlp, metricsJSON)
		return err
	})
	if err != nil {
		return err
	}
	if err := rt.store.CommitEstimator(rec); err != nil {
		return err
	}
	rt.version = rec.VersionID
	rt.log.Info("estimator committed", "version", rec.VersionID, "parent", rec.ParentID)
	return nil
}

func (rt *runtime) Close() {
	if rt.client != nil {
		if err := rt.client.Close(); err != nil {
			rt.log.Warn("close estimator client", "error", err)
		}
	}
	if err := rt.store.Close(); err != nil {
		rt.log.Warn("close store", "error", err)
	}
}

// #endregion runtime
