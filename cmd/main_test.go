package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mertune/mertune/internal/metric"
	"github.com/mertune/mertune/internal/store"
	"github.com/mertune/mertune/internal/tune"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			"generic error",
			errors.New("boom"),
			exitGeneric,
		},
		{
			"config error",
			&tune.ConfigError{Err: errors.New("bad restarts")},
			exitConfig,
		},
		{
			"wrapped config error",
			fmt.Errorf("loading: %w", &tune.ConfigError{Err: errors.New("bad")}),
			exitConfig,
		},
		{
			"decoder failure",
			&tune.DecoderError{ExitCode: 139, Err: errors.New("signal")},
			exitDecoder,
		},
		{
			"round mismatch",
			&store.RoundMismatchError{RunID: "r", Recorded: 3, Expected: 4},
			exitResume,
		},
		{
			"corrupt state",
			&store.ValidationError{Field: "PoolSizes", Reason: "mismatch"},
			exitResume,
		},
		{
			"missing run",
			&store.NotFoundError{RunID: "r"},
			exitResume,
		},
		{
			"stats width mismatch",
			&metric.WidthError{Metric: "bleu", Want: 10, Got: 8},
			exitStats,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
