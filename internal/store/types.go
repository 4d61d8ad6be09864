package store

import (
	"fmt"
	"time"
)

// RunConfigSummary captures the configuration facts a resumed run must
// agree on. A resume with a different shape would silently corrupt the
// candidate pool and the random stream, so it is validated up front.
type RunConfigSummary struct {
	MetricName string `json:"metricName"`
	StatsWidth int    `json:"statsWidth"`
	NumParams  int    `json:"numParams"`
	Restarts   int    `json:"restarts"`
	Window     int    `json:"window"`
	Seed       int64  `json:"seed"`
}

// RunState is a saved tuning run position that a later process can resume
// from. All fields are serialized to JSON for persistence.
//
// Together with the retained per-round candidate files and the statistics
// ledger, it restores the run exactly: the weights are restored
// bit-identically, and RNGDraws lets the resumed process skip ahead in
// the seeded random stream so its next draws match an uninterrupted run.
type RunState struct {
	// RunID is the unique identifier for this tuning run
	RunID string `json:"runId"`

	// Round is the last fully completed tuning round (1-based)
	Round int `json:"round"`

	// Lambda is the weight vector adopted at the end of Round, in
	// configuration parameter order
	Lambda []float64 `json:"lambda"`

	// RNGDraws is the number of values consumed from the seeded random
	// stream so far
	RNGDraws uint64 `json:"rngDraws"`

	// Streak counts consecutive rounds without a significant weight
	// change, for the early-stop rule
	Streak int `json:"streak"`

	// BestScore is the best corpus score reached so far
	BestScore float64 `json:"bestScore"`

	// PoolSizes records the per-sentence candidate-pool high-water marks;
	// a resumed process replays the retained round files and must arrive
	// at the same counts
	PoolSizes []int `json:"poolSizes"`

	// Timestamp records when this state was saved
	Timestamp time.Time `json:"timestamp"`

	Config RunConfigSummary `json:"config"`
}

// StateInfo contains metadata about a saved run without the full weight
// and pool data. Used for listing runs.
type StateInfo struct {
	RunID     string    `json:"runId"`
	Round     int       `json:"round"`
	BestScore float64   `json:"bestScore"`
	Timestamp time.Time `json:"timestamp"`
	Metric    string    `json:"metric"`
	NumParams int       `json:"numParams"`
}

// ToInfo converts a full RunState to its listing metadata.
func (s *RunState) ToInfo() StateInfo {
	return StateInfo{
		RunID:     s.RunID,
		Round:     s.Round,
		BestScore: s.BestScore,
		Timestamp: s.Timestamp,
		Metric:    s.Config.MetricName,
		NumParams: s.Config.NumParams,
	}
}

// Validate checks that the state is internally consistent.
func (s *RunState) Validate() error {
	if s.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if s.Round < 1 {
		return &ValidationError{Field: "Round", Reason: "must be at least 1"}
	}
	if len(s.Lambda) == 0 {
		return &ValidationError{Field: "Lambda", Reason: "cannot be empty"}
	}
	if len(s.Lambda) != s.Config.NumParams {
		return &ValidationError{
			Field:  "Lambda",
			Reason: fmt.Sprintf("has %d entries for %d parameters", len(s.Lambda), s.Config.NumParams),
		}
	}
	if s.Streak < 0 {
		return &ValidationError{Field: "Streak", Reason: "cannot be negative"}
	}
	if len(s.PoolSizes) == 0 {
		return &ValidationError{Field: "PoolSizes", Reason: "cannot be empty"}
	}
	for i, n := range s.PoolSizes {
		if n < 1 {
			return &ValidationError{
				Field:  "PoolSizes",
				Reason: fmt.Sprintf("sentence %d has pool size %d, every sentence needs at least one candidate", i, n),
			}
		}
	}
	if s.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if s.Config.MetricName == "" {
		return &ValidationError{Field: "Config.MetricName", Reason: "cannot be empty"}
	}
	if s.Config.StatsWidth < 1 {
		return &ValidationError{Field: "Config.StatsWidth", Reason: "must be positive"}
	}
	if s.Config.Restarts < 1 {
		return &ValidationError{Field: "Config.Restarts", Reason: "must be positive"}
	}
	return nil
}

// CheckRound verifies the saved state sits at the round a resume expects
// to continue from.
func (s *RunState) CheckRound(expected int) error {
	if s.Round != expected {
		return &RoundMismatchError{RunID: s.RunID, Recorded: s.Round, Expected: expected}
	}
	return nil
}

// ValidationError represents a run state validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
