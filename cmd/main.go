package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mertune/mertune/internal/metric"
	"github.com/mertune/mertune/internal/store"
	"github.com/mertune/mertune/internal/tune"
)

// Distinct exit codes let the surrounding pipeline tell fatal causes
// apart without parsing log output.
const (
	exitGeneric = 1
	exitConfig  = 2
	exitDecoder = 3
	exitResume  = 4
	exitStats   = 5
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			we, ok := r.(*metric.WidthError)
			if !ok {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", we)
			code = exitStats
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	var cfgErr *tune.ConfigError
	var decErr *tune.DecoderError
	var valErr *store.ValidationError
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &decErr):
		return exitDecoder
	case errors.As(err, &valErr),
		errors.Is(err, store.ErrRoundMismatch),
		errors.Is(err, store.ErrNotFound):
		return exitResume
	case errors.Is(err, metric.ErrWidth):
		return exitStats
	}
	return exitGeneric
}
