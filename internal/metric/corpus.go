package metric

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Corpus holds the immutable reference side of a tuning set: one or more
// reference translations per sentence, plus the document each sentence
// belongs to. It is built once at load time and shared (read-only) by all
// metrics and optimizer restarts.
type Corpus struct {
	refs          [][]string // refs[i][r] is the r'th reference for sentence i
	docOfSentence []int
	numDocuments  int
}

// NewCorpus builds a corpus from reference translations and an optional
// document assignment. A nil or empty docOf assigns every sentence to a
// single implicit document.
func NewCorpus(refs [][]string, docOf []int) (*Corpus, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("corpus has no sentences")
	}
	for i, rs := range refs {
		if len(rs) == 0 {
			return nil, fmt.Errorf("sentence %d has no reference translations", i)
		}
	}

	if len(docOf) == 0 {
		docOf = make([]int, len(refs))
	}
	if len(docOf) != len(refs) {
		return nil, fmt.Errorf("document assignment covers %d sentences, corpus has %d", len(docOf), len(refs))
	}

	numDocs := 0
	for i, d := range docOf {
		if d < 0 {
			return nil, fmt.Errorf("sentence %d has negative document index %d", i, d)
		}
		if d >= numDocs {
			numDocs = d + 1
		}
	}

	return &Corpus{refs: refs, docOfSentence: docOf, numDocuments: numDocs}, nil
}

// LoadCorpus reads reference translations from a file holding refsPerSen
// consecutive lines per sentence, and an optional document-label file with
// one label per sentence (empty path = single implicit document).
func LoadCorpus(refPath string, refsPerSen int, docPath string) (*Corpus, error) {
	if refsPerSen < 1 {
		return nil, fmt.Errorf("references per sentence must be positive, got %d", refsPerSen)
	}

	lines, err := readLines(refPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read references: %w", err)
	}
	if len(lines)%refsPerSen != 0 {
		return nil, fmt.Errorf("reference file has %d lines, not a multiple of %d references per sentence", len(lines), refsPerSen)
	}

	numSentences := len(lines) / refsPerSen
	refs := make([][]string, numSentences)
	for i := 0; i < numSentences; i++ {
		refs[i] = lines[i*refsPerSen : (i+1)*refsPerSen]
	}

	var docOf []int
	if docPath != "" {
		labels, err := readLines(docPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read document labels: %w", err)
		}
		if len(labels) != numSentences {
			return nil, fmt.Errorf("document file has %d labels for %d sentences", len(labels), numSentences)
		}
		docOf = make([]int, numSentences)
		index := map[string]int{}
		for i, label := range labels {
			d, ok := index[label]
			if !ok {
				d = len(index)
				index[label] = d
			}
			docOf[i] = d
		}
	}

	return NewCorpus(refs, docOf)
}

// NumSentences returns the number of sentences in the tuning set.
func (c *Corpus) NumSentences() int { return len(c.refs) }

// NumDocuments returns the number of documents in the tuning set.
func (c *Corpus) NumDocuments() int { return c.numDocuments }

// DocOfSentence returns the document index of sentence i.
func (c *Corpus) DocOfSentence(i int) int { return c.docOfSentence[i] }

// References returns the reference translations of sentence i.
func (c *Corpus) References(i int) []string { return c.refs[i] }

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
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
