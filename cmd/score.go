package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mertune/mertune/internal/metric"
	"github.com/mertune/mertune/internal/tune"
)

var (
	scoreRefs       string
	scoreRefsPerSen int
	scoreDocs       string
	scoreMetricName string
	scoreOptions    []string
)

var scoreCmd = &cobra.Command{
	Use:   "score [candidate-file]",
	Short: "Score a translation file under an evaluation metric",
	Long: `Scores a file of candidate translations (one per line, in sentence
order) against the reference corpus, printing the corpus score and, for the
n-gram precision metric, the per-order precisions and brevity penalty.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreRefs, "refs", "", "Reference translations file (required)")
	scoreCmd.Flags().IntVar(&scoreRefsPerSen, "refs-per-sentence", 1, "Consecutive reference lines per sentence")
	scoreCmd.Flags().StringVar(&scoreDocs, "docs", "", "Per-sentence document label file (optional)")
	scoreCmd.Flags().StringVar(&scoreMetricName, "metric", "bleu", "Evaluation metric name")
	scoreCmd.Flags().StringArrayVar(&scoreOptions, "option", nil, "Metric option as key=value (repeatable)")

	scoreCmd.MarkFlagRequired("refs")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	opts := metric.Options{}
	for _, kv := range scoreOptions {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return &tune.ConfigError{Err: fmt.Errorf("option %q is not key=value", kv)}
		}
		opts[key] = value
	}

	corpus, err := metric.LoadCorpus(scoreRefs, scoreRefsPerSen, scoreDocs)
	if err != nil {
		return &tune.ConfigError{Err: err}
	}
	m, err := metric.New(scoreMetricName, opts, corpus)
	if err != nil {
		return &tune.ConfigError{Err: err}
	}

	candidates, err := readCandidateLines(args[0])
	if err != nil {
		return err
	}
	if len(candidates) != corpus.NumSentences() {
		return fmt.Errorf("candidate file has %d lines, corpus has %d sentences", len(candidates), corpus.NumSentences())
	}

	agg := make([]int, m.StatsCount())
	for i, cand := range candidates {
		for s, v := range m.SuffStats(cand, i) {
			agg[s] += v
		}
	}
	score := m.Score(agg)

	fmt.Printf("%s = %.4f  (%d sentences)\n", m.Name(), score, len(candidates))
	if bleu, ok := m.(*metric.BLEU); ok {
		precisions, bp := bleu.PrecisionDetail(agg)
		for n, prec := range precisions {
			fmt.Printf("  precision %d-gram = %.4f\n", n+1, prec)
		}
		fmt.Printf("  brevity penalty  = %.4f\n", bp)
	}
	return nil
}

func readCandidateLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candidate file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r\n"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
