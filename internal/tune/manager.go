package tune

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/mertune/mertune/internal/mert"
	"github.com/mertune/mertune/internal/metric"
	"github.com/mertune/mertune/internal/nbest"
	"github.com/mertune/mertune/internal/store"
)

// Manager drives the tuning rounds: per round it decodes candidates for
// the current weights, merges them into the pool, fills the statistics
// ledger, runs the multi-start optimization, and decides whether to
// continue. With a store attached, every completed round is persisted so
// a later process can resume the run.
type Manager struct {
	cfg     *Config
	params  []mert.ParamSpec
	names   []string
	corpus  *metric.Corpus
	metric  metric.Metric
	docOf   []int
	decoder Decoder
	fs      *store.FSStore // nil = in-memory, non-resumable run
	ledger  nbest.Ledger
	pool    *nbest.Pool
	coord   *mert.Coordinator
	norm    mert.Normalization
	log     *slog.Logger

	runID     string
	seed      int64
	rng       *mert.RNG
	lambda    []float64
	round     int // last completed round
	streak    int
	bestScore float64
	resumed   bool
}

// NewManager builds a manager for a fresh run. fs may be nil for a
// single-process run without persistence.
func NewManager(cfg *Config, decoder Decoder, fs *store.FSStore, runID string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	params, err := cfg.ParamSpecs()
	if err != nil {
		return nil, err
	}
	warnings, err := mert.Validate(params)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	for _, w := range warnings {
		logger.Warn(w)
	}

	m, corpus, err := cfg.BuildMetric()
	if err != nil {
		return nil, err
	}
	norm, err := cfg.BuildNormalization(params)
	if err != nil {
		return nil, err
	}
	if cfg.Subset.FirstRank > 0 && cfg.Subset.LastRank > corpus.NumDocuments() {
		return nil, configErrorf("subset last_rank %d exceeds the corpus's %d documents", cfg.Subset.LastRank, corpus.NumDocuments())
	}

	coord := &mert.Coordinator{
		Restarts: cfg.Restarts,
		Workers:  cfg.Workers,
		Mode:     mert.StartMode(cfg.Start.Mode),
	}
	if coord.Mode == mert.StartPerturb {
		policy, err := mert.DecayFromConfig(cfg.Start.Decay, cfg.Start.DecayParam)
		if err != nil {
			return nil, &ConfigError{Err: err}
		}
		coord.Perturber = &mert.Perturber{Policy: policy, Mult: cfg.Start.Mult}
	}

	names := make([]string, len(params))
	docOf := make([]int, corpus.NumSentences())
	for c := range params {
		names[c] = params[c].Name
	}
	for i := range docOf {
		docOf[i] = corpus.DocOfSentence(i)
	}

	var ledger nbest.Ledger
	if fs != nil {
		ledger, err = store.NewFSLedger(fs.LedgerDir(runID), corpus.NumSentences())
		if err != nil {
			return nil, err
		}
	} else {
		ledger = nbest.NewMemLedger(corpus.NumSentences())
	}

	seed := cfg.EffectiveSeed()
	return &Manager{
		cfg:       cfg,
		params:    params,
		names:     names,
		corpus:    corpus,
		metric:    m,
		docOf:     docOf,
		decoder:   decoder,
		fs:        fs,
		ledger:    ledger,
		pool:      nbest.NewPool(corpus.NumSentences(), len(params)),
		coord:     coord,
		norm:      norm,
		log:       logger,
		runID:     runID,
		seed:      seed,
		rng:       mert.NewRNG(seed),
		lambda:    mert.Defaults(params),
		bestScore: m.WorstPossibleScore(),
	}, nil
}

// Lambda returns the current weight vector.
func (m *Manager) Lambda() []float64 { return append([]float64(nil), m.lambda...) }

// Round returns the last completed round.
func (m *Manager) Round() int { return m.round }

// BestScore returns the corpus score of the current weights.
func (m *Manager) BestScore() float64 { return m.bestScore }

// Names returns the parameter names in configuration order.
func (m *Manager) Names() []string { return m.names }

// Resume restores the manager from the run's saved state: the weights,
// the random stream position, the stop counters, and the candidate pool
// replayed from the retained round files. The state must sit exactly at
// the round the retained files cover, and the replayed pool must arrive
// at the recorded high-water marks.
func (m *Manager) Resume() error {
	if m.fs == nil {
		return fmt.Errorf("resume needs a store")
	}

	st, err := m.fs.LoadState(m.runID)
	if err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}
	if err := m.checkConfigSummary(st.Config); err != nil {
		return err
	}

	replayed := 0
	for r := 1; ; r++ {
		path := m.fs.RoundFile(m.runID, r)
		if _, err := os.Stat(path); err != nil {
			break
		}
		lists, err := nbest.ReadRoundFile(path, m.corpus.NumSentences(), len(m.params))
		if err != nil {
			return fmt.Errorf("failed to replay round %d: %w", r, err)
		}
		if _, err := m.pool.MergeRound(r, lists); err != nil {
			return fmt.Errorf("failed to replay round %d: %w", r, err)
		}
		replayed = r
	}
	if err := st.CheckRound(replayed); err != nil {
		return err
	}

	sizes := m.pool.Sizes()
	for i := range sizes {
		if sizes[i] != st.PoolSizes[i] {
			return &store.ValidationError{
				Field:  "PoolSizes",
				Reason: fmt.Sprintf("replayed pool has %d candidates for sentence %d, state recorded %d", sizes[i], i, st.PoolSizes[i]),
			}
		}
	}

	m.seed = st.Config.Seed
	m.rng = mert.RestoreRNG(st.Config.Seed, st.RNGDraws)
	m.lambda = append([]float64(nil), st.Lambda...)
	m.round = st.Round
	m.streak = st.Streak
	m.bestScore = st.BestScore
	m.resumed = true

	m.log.Info("run resumed",
		"run_id", m.runID,
		"round", m.round,
		"rng_draws", st.RNGDraws,
		"score", m.bestScore)
	return nil
}

func (m *Manager) checkConfigSummary(s store.RunConfigSummary) error {
	if s.MetricName != m.metric.Name() {
		return configErrorf("saved run uses metric %q, config says %q", s.MetricName, m.metric.Name())
	}
	if s.NumParams != len(m.params) {
		return configErrorf("saved run has %d parameters, config has %d", s.NumParams, len(m.params))
	}
	if s.StatsWidth != m.metric.StatsCount() {
		return configErrorf("saved run's statistics are %d wide, configured metric produces %d (metric options changed?)", s.StatsWidth, m.metric.StatsCount())
	}
	if s.Restarts != m.cfg.Restarts {
		return configErrorf("saved run uses %d restarts, config says %d", s.Restarts, m.cfg.Restarts)
	}
	if s.Window != m.cfg.Window {
		return configErrorf("saved run uses window %d, config says %d", s.Window, m.cfg.Window)
	}
	if m.cfg.Seed != 0 && m.cfg.Seed != s.Seed {
		return configErrorf("saved run uses seed %d, config says %d", s.Seed, m.cfg.Seed)
	}
	return nil
}

// Run executes tuning rounds until a stop condition fires and returns the
// final weight vector. An optimization round that leaves the weights
// unchanged stops the run immediately, even before stop.min_rounds; the
// min-round floor only delays the significance-streak stop.
func (m *Manager) Run(ctx context.Context) ([]float64, error) {
	var tw *store.TraceWriter
	if m.fs != nil {
		var err error
		tw, err = store.NewTraceWriter(m.fs.BaseDir(), m.runID, m.resumed)
		if err != nil {
			return nil, err
		}
		defer tw.Close()
	}

	for round := m.round + 1; round <= m.cfg.Stop.MaxRounds; round++ {
		stop, err := m.runRound(ctx, round, tw)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
	}

	m.log.Info("tuning finished",
		"run_id", m.runID,
		"rounds", m.round,
		"score", m.bestScore)
	return m.Lambda(), nil
}

func (m *Manager) runRound(ctx context.Context, round int, tw *store.TraceWriter) (stop bool, err error) {
	// Decode
	path, err := m.decoder.Decode(ctx, round, m.names, m.lambda)
	if err != nil {
		return false, err
	}
	lists, err := nbest.ReadRoundFile(path, m.corpus.NumSentences(), len(m.params))
	if err != nil {
		return false, fmt.Errorf("round %d: %w", round, err)
	}
	if err := m.retainRound(round, path, lists); err != nil {
		return false, err
	}

	// Merge
	added, err := m.pool.MergeRound(round, lists)
	if err != nil {
		return false, fmt.Errorf("round %d: %w", round, err)
	}
	if added == 0 && !m.cfg.SingleUpdate && round > 1 {
		m.log.Info("candidate pool saturated, stopping", "round", round)
		return true, nil
	}

	computed, err := nbest.ComputeMissing(ctx, m.ledger, m.metric, m.pool, m.cfg.Workers, m.cfg.StatsBatch)
	if err != nil {
		return false, err
	}
	if s, ok := m.ledger.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return false, err
		}
	}

	// Optimize
	view := m.pool.Eligible(round, m.cfg.Window)
	problem := &mert.Problem{
		Params:        m.params,
		Metric:        m.metric,
		FeatVals:      view.FeatVals,
		Stats:         nbest.NewStatsView(view, m.ledger, m.metric),
		DocOfSentence: m.docOf,
		NumDocuments:  m.corpus.NumDocuments(),
		FirstRank:     m.cfg.Subset.FirstRank,
		LastRank:      m.cfg.Subset.LastRank,
		SingleUpdate:  m.cfg.SingleUpdate,
		Norm:          m.norm,
		Logger:        m.log,
	}
	result, bestRestart, err := m.coord.Optimize(ctx, problem, m.lambda, round, m.rng)
	if err != nil {
		return false, err
	}

	// Decide
	maxDelta := 0.0
	for c := range m.params {
		if !m.params[c].Optimizable {
			continue
		}
		if d := math.Abs(result.Lambda[c] - m.lambda[c]); d > maxDelta {
			maxDelta = d
		}
	}
	unchanged := maxDelta == 0
	if m.cfg.Stop.Significance >= 0 && maxDelta <= m.cfg.Stop.Significance {
		m.streak++
	} else {
		m.streak = 0
	}

	m.lambda = append([]float64(nil), result.Lambda...)
	m.bestScore = result.Score
	m.round = round

	m.log.Info("round complete",
		"round", round,
		"new_candidates", added,
		"stats_computed", computed,
		"best_restart", bestRestart,
		"score", result.Score,
		"max_delta", maxDelta,
		"streak", m.streak)

	if tw != nil {
		entry := store.TraceEntry{
			Round:         round,
			Score:         result.Score,
			BestRestart:   bestRestart,
			NewCandidates: added,
			Timestamp:     time.Now(),
			Lambda:        m.Lambda(),
		}
		if err := tw.Write(entry); err != nil {
			return false, err
		}
		if err := tw.Flush(); err != nil {
			return false, err
		}
	}
	if err := m.saveState(); err != nil {
		return false, err
	}
	m.pruneRounds(round)

	if unchanged {
		m.log.Info("weights unchanged, stopping", "round", round)
		return true, nil
	}
	if m.streak >= m.cfg.Stop.Streak && round >= m.cfg.Stop.MinRounds {
		m.log.Info("no significant change for consecutive rounds, stopping",
			"round", round, "streak", m.streak)
		return true, nil
	}
	return false, nil
}

// retainRound copies the round's candidate stream into the run directory,
// where the resume replay expects it.
func (m *Manager) retainRound(round int, srcPath string, lists [][]nbest.Candidate) error {
	if m.fs == nil {
		return nil
	}
	dst := m.fs.RoundFile(m.runID, round)
	if dst == srcPath {
		return nil
	}
	if err := os.MkdirAll(m.fs.RunDir(m.runID), 0755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to retain round file: %w", err)
	}
	if err := nbest.WriteRound(f, lists); err != nil {
		f.Close()
		return fmt.Errorf("failed to retain round file: %w", err)
	}
	return f.Close()
}

// pruneRounds drops retained round files that fell out of the eligibility
// window. Pruned runs can no longer be resumed; the resume replay will
// detect the gap as a round mismatch.
func (m *Manager) pruneRounds(round int) {
	if m.fs == nil || m.cfg.KeepArtifacts {
		return
	}
	stale := round - m.cfg.Window - 1
	if stale < 1 {
		return
	}
	if err := os.Remove(m.fs.RoundFile(m.runID, stale)); err != nil && !os.IsNotExist(err) {
		m.log.Warn("failed to prune round file", "round", stale, "error", err)
	}
}

func (m *Manager) saveState() error {
	if m.fs == nil {
		return nil
	}
	state := &store.RunState{
		RunID:     m.runID,
		Round:     m.round,
		Lambda:    m.Lambda(),
		RNGDraws:  m.rng.Draws(),
		Streak:    m.streak,
		BestScore: m.bestScore,
		PoolSizes: m.pool.Sizes(),
		Timestamp: time.Now(),
		Config: store.RunConfigSummary{
			MetricName: m.metric.Name(),
			StatsWidth: m.metric.StatsCount(),
			NumParams:  len(m.params),
			Restarts:   m.cfg.Restarts,
			Window:     m.cfg.Window,
			Seed:       m.seed,
		},
	}
	return m.fs.SaveState(m.runID, state)
}
