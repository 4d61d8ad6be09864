package tune

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDecoder(t *testing.T) {
	dir := t.TempDir()
	body := "0 ||| hi ||| 1 2\n||||||\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "round-0001.nbest"), []byte(body), 0644))

	d := &FileDecoder{Dir: dir}

	path, err := d.Decode(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "round-0001.nbest"), path)

	_, err = d.Decode(context.Background(), 2, nil, nil)
	var decErr *DecoderError
	require.ErrorAs(t, err, &decErr)
}

func TestCommandDecoder(t *testing.T) {
	dir := t.TempDir()
	weights := filepath.Join(dir, "weights.txt")
	output := filepath.Join(dir, "out.nbest")

	d := &CommandDecoder{
		Command:     []string{"cp", weights, output},
		WeightsFile: weights,
		OutputFile:  output,
	}

	path, err := d.Decode(context.Background(), 1, []string{"lm", "wp"}, []float64{1.5, -0.25})
	require.NoError(t, err)
	assert.Equal(t, output, path)

	data, err := os.ReadFile(weights)
	require.NoError(t, err)
	assert.Equal(t, "lm 1.5\nwp -0.25\n", string(data))
}

func TestCommandDecoderExitStatus(t *testing.T) {
	dir := t.TempDir()
	d := &CommandDecoder{
		Command:     []string{"false"},
		WeightsFile: filepath.Join(dir, "weights.txt"),
		OutputFile:  filepath.Join(dir, "out.nbest"),
	}

	_, err := d.Decode(context.Background(), 1, []string{"a"}, []float64{1})
	var decErr *DecoderError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, 1, decErr.ExitCode)
}

func TestCommandDecoderMissingOutput(t *testing.T) {
	dir := t.TempDir()
	d := &CommandDecoder{
		Command:     []string{"true"},
		WeightsFile: filepath.Join(dir, "weights.txt"),
		OutputFile:  filepath.Join(dir, "out.nbest"),
	}

	_, err := d.Decode(context.Background(), 1, []string{"a"}, []float64{1})
	var decErr *DecoderError
	require.ErrorAs(t, err, &decErr)
	assert.Contains(t, err.Error(), "no output file")
}
