package nbest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Candidate is one decoder hypothesis: its text and one feature value per
// model parameter, in configuration order.
type Candidate struct {
	Text  string
	Feats []float64
}

// BlockMarker terminates each sentence's block in the candidate stream.
const BlockMarker = "||||||"

const fieldSep = "|||"

// ReadRound parses one round of decoder output: per-sentence blocks in
// sentence-index order, each line "index ||| text ||| f1 f2 ...", each
// block closed by the marker line. Every sentence must contribute at
// least one candidate; anything else makes the round malformed.
func ReadRound(r io.Reader, numSentences, numParams int) ([][]Candidate, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lists := make([][]Candidate, 0, numSentences)
	var block []Candidate
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if line == BlockMarker {
			if len(block) == 0 {
				return nil, fmt.Errorf("line %d: sentence %d has an empty candidate block", lineNo, len(lists))
			}
			lists = append(lists, block)
			block = nil
			continue
		}

		cand, index, err := parseCandidateLine(line, numParams)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if index != len(lists) {
			return nil, fmt.Errorf("line %d: candidate for sentence %d inside sentence %d's block", lineNo, index, len(lists))
		}
		block = append(block, cand)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(block) != 0 {
		return nil, fmt.Errorf("sentence %d's block is not terminated by %q", len(lists), BlockMarker)
	}
	if len(lists) != numSentences {
		return nil, fmt.Errorf("candidate stream covers %d sentences, expected %d", len(lists), numSentences)
	}
	return lists, nil
}

// ReadRoundFile reads one round's candidate stream from a file.
func ReadRoundFile(path string, numSentences, numParams int) ([][]Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candidate stream: %w", err)
	}
	defer f.Close()

	lists, err := ReadRound(f, numSentences, numParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lists, nil
}

func parseCandidateLine(line string, numParams int) (Candidate, int, error) {
	parts := strings.Split(line, fieldSep)
	if len(parts) != 3 {
		return Candidate{}, 0, fmt.Errorf("want 3 %q-separated fields, got %d", fieldSep, len(parts))
	}

	index, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Candidate{}, 0, fmt.Errorf("bad sentence index %q: %w", strings.TrimSpace(parts[0]), err)
	}
	if index < 0 {
		return Candidate{}, 0, fmt.Errorf("negative sentence index %d", index)
	}

	fields := strings.Fields(parts[2])
	if len(fields) != numParams {
		return Candidate{}, 0, fmt.Errorf("candidate has %d feature values, model has %d parameters", len(fields), numParams)
	}
	feats := make([]float64, numParams)
	for c, field := range fields {
		if feats[c], err = strconv.ParseFloat(field, 64); err != nil {
			return Candidate{}, 0, fmt.Errorf("bad feature value %q: %w", field, err)
		}
	}

	return Candidate{Text: strings.TrimSpace(parts[1]), Feats: feats}, index, nil
}

// WriteRound renders candidate lists in the stream format ReadRound
// accepts. The replay decoder and tests use it to produce round files.
func WriteRound(w io.Writer, lists [][]Candidate) error {
	bw := bufio.NewWriter(w)
	for i, block := range lists {
		for _, cand := range block {
			fmt.Fprintf(bw, "%d %s %s %s", i, fieldSep, cand.Text, fieldSep)
			for _, v := range cand.Feats {
				fmt.Fprintf(bw, " %v", v)
			}
			fmt.Fprintln(bw)
		}
		fmt.Fprintln(bw, BlockMarker)
	}
	return bw.Flush()
}
