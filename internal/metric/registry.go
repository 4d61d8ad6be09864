package metric

import (
	"fmt"
	"sort"
	"strconv"
)

// Options carries metric-specific configuration as parsed from the run
// configuration. Unknown keys are rejected by the constructors that
// consume them.
type Options map[string]string

// Int returns the integer option for key, or def when absent.
func (o Options) Int(key string, def int) (int, error) {
	s, ok := o[key]
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return v, nil
}

// Float returns the float option for key, or def when absent.
func (o Options) Float(key string, def float64) (float64, error) {
	s, ok := o[key]
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return v, nil
}

// String returns the string option for key, or def when absent.
func (o Options) String(key, def string) string {
	if s, ok := o[key]; ok {
		return s
	}
	return def
}

// Factory constructs a metric over a corpus from its option set.
type Factory func(opts Options, corpus *Corpus) (Metric, error)

var registry = map[string]Factory{}

// Register makes a metric constructor available to New by name.
// It panics on duplicate registration, which indicates a programming error.
func Register(name string, f Factory) {
	if _, dup := registry[name]; dup {
		panic("metric: duplicate registration of " + name)
	}
	registry[name] = f
}

// Known returns the sorted list of registered metric names.
func Known() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the named metric. An unknown name is a configuration
// error; the caller treats it as fatal.
func New(name string, opts Options, corpus *Corpus) (Metric, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q (known: %v)", name, Known())
	}
	m, err := f(opts, corpus)
	if err != nil {
		return nil, fmt.Errorf("metric %s: %w", name, err)
	}
	return m, nil
}

func init() {
	Register("bleu", func(opts Options, corpus *Corpus) (Metric, error) {
		maxOrder, err := opts.Int("max_order", 4)
		if err != nil {
			return nil, err
		}
		return NewBLEU(corpus, maxOrder, EffectiveLength(opts.String("eff_length", "closest")))
	})
	Register("01loss", func(_ Options, corpus *Corpus) (Metric, error) {
		return NewZeroOneLoss(corpus), nil
	})
	Register("diff", func(opts Options, corpus *Corpus) (Metric, error) {
		a, err := subMetric(opts, corpus, "minuend")
		if err != nil {
			return nil, err
		}
		b, err := subMetric(opts, corpus, "subtrahend")
		if err != nil {
			return nil, err
		}
		return NewDiff(a, b), nil
	})
	Register("thresholded", func(opts Options, corpus *Corpus) (Metric, error) {
		primary, err := subMetric(opts, corpus, "primary")
		if err != nil {
			return nil, err
		}
		gate, err := subMetric(opts, corpus, "gate")
		if err != nil {
			return nil, err
		}
		threshold, err := opts.Float("threshold", 0)
		if err != nil {
			return nil, err
		}
		return NewThresholded(primary, gate, threshold), nil
	})
	Register("bidir", func(opts Options, corpus *Corpus) (Metric, error) {
		maxOrder, err := opts.Int("max_order", 4)
		if err != nil {
			return nil, err
		}
		target, err := opts.Float("target_lm_score", 0)
		if err != nil {
			return nil, err
		}
		bleu, err := NewBLEU(corpus, maxOrder, EffectiveLength(opts.String("eff_length", "closest")))
		if err != nil {
			return nil, err
		}
		return NewBidir(bleu, target), nil
	})
}

// subMetric builds a component metric of a composite from the option
// naming it. The component shares the composite's remaining options.
func subMetric(opts Options, corpus *Corpus, key string) (Metric, error) {
	name, ok := opts[key]
	if !ok {
		return nil, fmt.Errorf("missing required option %q", key)
	}
	return New(name, opts, corpus)
}
