package tune

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mertune/mertune/internal/mert"
	"github.com/mertune/mertune/internal/metric"
)

// ConfigError marks a fatal configuration problem. The CLI maps it to its
// own exit code so pipelines can tell a bad config from a failed run.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "invalid configuration: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// ParamConfig configures one model parameter. Min and Max bound the
// critical range; a nil bound is unbounded on that side.
type ParamConfig struct {
	Name        string   `yaml:"name"`
	Default     float64  `yaml:"default"`
	Optimizable bool     `yaml:"optimizable"`
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	RandMin     float64  `yaml:"rand_min"`
	RandMax     float64  `yaml:"rand_max"`
}

// MetricConfig names the evaluation metric and carries its option list
// verbatim; the metric's constructor interprets the options.
type MetricConfig struct {
	Name    string            `yaml:"name"`
	Options map[string]string `yaml:"options"`
}

// CorpusConfig locates the reference side of the tuning set.
type CorpusConfig struct {
	Refs            string `yaml:"refs"`
	RefsPerSentence int    `yaml:"refs_per_sentence"`
	Docs            string `yaml:"docs"`
}

// SubsetConfig restricts scoring to a rank range of documents.
// FirstRank 0 scores all documents.
type SubsetConfig struct {
	FirstRank int `yaml:"first_rank"`
	LastRank  int `yaml:"last_rank"`
}

// NormConfig selects the weight normalization applied at convergence.
type NormConfig struct {
	Method string  `yaml:"method"`
	Value  float64 `yaml:"value"`
	Param  string  `yaml:"param"`
	Power  float64 `yaml:"power"`
}

// StartConfig selects how restarts beyond the first are seeded.
type StartConfig struct {
	Mode       string  `yaml:"mode"`
	Decay      string  `yaml:"decay"`
	DecayParam float64 `yaml:"decay_param"`
	Mult       float64 `yaml:"mult"`
}

// DecoderConfig configures candidate production: either an external
// decoder command or a directory of pre-produced round files.
type DecoderConfig struct {
	Command     []string `yaml:"command"`
	WeightsFile string   `yaml:"weights_file"`
	OutputFile  string   `yaml:"output_file"`
	RoundsDir   string   `yaml:"rounds_dir"`
}

// StopConfig holds the round-count and early-stop rules. Significance < 0
// disables the early-stop streak.
type StopConfig struct {
	MaxRounds    int     `yaml:"max_rounds"`
	MinRounds    int     `yaml:"min_rounds"`
	Streak       int     `yaml:"streak"`
	Significance float64 `yaml:"significance"`
}

// Config is the full tuning run configuration.
type Config struct {
	Seed          int64 `yaml:"seed"`
	Restarts      int   `yaml:"restarts"`
	Workers       int   `yaml:"workers"`
	Window        int   `yaml:"window"`
	StatsBatch    int   `yaml:"stats_batch"`
	SingleUpdate  bool  `yaml:"single_update"`
	KeepArtifacts bool  `yaml:"keep_artifacts"`

	Metric        MetricConfig  `yaml:"metric"`
	Corpus        CorpusConfig  `yaml:"corpus"`
	Subset        SubsetConfig  `yaml:"subset"`
	Normalization NormConfig    `yaml:"normalization"`
	Start         StartConfig   `yaml:"start"`
	Decoder       DecoderConfig `yaml:"decoder"`
	Stop          StopConfig    `yaml:"stop"`

	Parameters []ParamConfig `yaml:"parameters"`
}

// DefaultConfig returns a config with the historical defaults filled in.
func DefaultConfig() Config {
	return Config{
		Restarts:      1,
		Window:        20,
		StatsBatch:    256,
		KeepArtifacts: true,
		Corpus:        CorpusConfig{RefsPerSentence: 1},
		Normalization: NormConfig{Method: "none"},
		Start:         StartConfig{Mode: "random", Decay: "inverse_power", DecayParam: 1, Mult: 0.5},
		Stop:          StopConfig{MaxRounds: 20, MinRounds: 5, Streak: 3, Significance: -1},
	}
}

// LoadConfig reads and validates a YAML configuration file. Unknown keys
// are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to read config: %w", err)}
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to parse config: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for fatal inconsistencies and returns
// a ConfigError describing the first one found.
func (c *Config) Validate() error {
	if c.Restarts < 1 {
		return configErrorf("restarts must be positive, got %d", c.Restarts)
	}
	if c.Window < 0 {
		return configErrorf("window cannot be negative, got %d", c.Window)
	}
	if c.Stop.MaxRounds < 1 {
		return configErrorf("stop.max_rounds must be positive, got %d", c.Stop.MaxRounds)
	}
	if c.Stop.MinRounds < 0 || c.Stop.MinRounds > c.Stop.MaxRounds {
		return configErrorf("stop.min_rounds %d must be between 0 and stop.max_rounds %d", c.Stop.MinRounds, c.Stop.MaxRounds)
	}
	if c.Stop.Streak < 1 {
		return configErrorf("stop.streak must be positive, got %d", c.Stop.Streak)
	}
	if c.Metric.Name == "" {
		return configErrorf("metric.name is required")
	}
	if c.Corpus.Refs == "" {
		return configErrorf("corpus.refs is required")
	}
	if c.Corpus.RefsPerSentence < 1 {
		return configErrorf("corpus.refs_per_sentence must be positive, got %d", c.Corpus.RefsPerSentence)
	}
	if c.Subset.FirstRank < 0 || (c.Subset.FirstRank > 0 && c.Subset.LastRank < c.Subset.FirstRank) {
		return configErrorf("subset rank range [%d, %d] is invalid", c.Subset.FirstRank, c.Subset.LastRank)
	}

	hasCommand := len(c.Decoder.Command) > 0
	hasRounds := c.Decoder.RoundsDir != ""
	if hasCommand == hasRounds {
		return configErrorf("decoder needs exactly one of command and rounds_dir")
	}
	if hasCommand && (c.Decoder.WeightsFile == "" || c.Decoder.OutputFile == "") {
		return configErrorf("decoder.command needs weights_file and output_file")
	}

	switch c.Start.Mode {
	case "random":
	case "perturb":
		if _, err := mert.DecayFromConfig(c.Start.Decay, c.Start.DecayParam); err != nil {
			return &ConfigError{Err: err}
		}
		if c.Start.Mult <= 0 {
			return configErrorf("start.mult must be positive, got %v", c.Start.Mult)
		}
	default:
		return configErrorf("unknown start mode %q (known: random, perturb)", c.Start.Mode)
	}

	params, err := c.ParamSpecs()
	if err != nil {
		return err
	}
	if _, err := mert.Validate(params); err != nil {
		return &ConfigError{Err: err}
	}
	if _, err := c.BuildNormalization(params); err != nil {
		return err
	}
	return nil
}

// ParamSpecs converts the parameter configuration to the optimizer's
// parameter specs, mapping absent bounds to infinities.
func (c *Config) ParamSpecs() ([]mert.ParamSpec, error) {
	if len(c.Parameters) == 0 {
		return nil, configErrorf("no parameters defined")
	}
	params := make([]mert.ParamSpec, len(c.Parameters))
	for i, pc := range c.Parameters {
		spec := mert.ParamSpec{
			Name:         pc.Name,
			Default:      pc.Default,
			Optimizable:  pc.Optimizable,
			MinThreshold: math.Inf(-1),
			MaxThreshold: math.Inf(1),
			RandMin:      pc.RandMin,
			RandMax:      pc.RandMax,
		}
		if pc.Min != nil {
			spec.MinThreshold = *pc.Min
		}
		if pc.Max != nil {
			spec.MaxThreshold = *pc.Max
		}
		params[i] = spec
	}
	return params, nil
}

// BuildNormalization resolves the configured normalization policy against
// the parameter list.
func (c *Config) BuildNormalization(params []mert.ParamSpec) (mert.Normalization, error) {
	paramIndex := 0
	if mert.NormMethod(c.Normalization.Method) == mert.NormPinParam {
		var err error
		paramIndex, err = mert.ParamIndex(params, c.Normalization.Param)
		if err != nil {
			return mert.Normalization{}, &ConfigError{Err: err}
		}
	}
	norm, err := mert.NewNormalization(
		mert.NormMethod(c.Normalization.Method),
		c.Normalization.Value,
		paramIndex,
		c.Normalization.Power,
	)
	if err != nil {
		return mert.Normalization{}, &ConfigError{Err: err}
	}
	return norm, nil
}

// BuildMetric loads the corpus and constructs the configured metric.
func (c *Config) BuildMetric() (metric.Metric, *metric.Corpus, error) {
	corpus, err := metric.LoadCorpus(c.Corpus.Refs, c.Corpus.RefsPerSentence, c.Corpus.Docs)
	if err != nil {
		return nil, nil, &ConfigError{Err: err}
	}
	m, err := metric.New(c.Metric.Name, metric.Options(c.Metric.Options), corpus)
	if err != nil {
		return nil, nil, &ConfigError{Err: err}
	}
	return m, corpus, nil
}

// EffectiveSeed resolves the configured seed, deriving one from the wall
// clock when the config leaves it at zero.
func (c *Config) EffectiveSeed() int64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return time.Now().UnixNano()
}
