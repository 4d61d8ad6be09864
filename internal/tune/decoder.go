package tune

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// DecoderError marks a failed external decoder invocation. The CLI maps
// it to its own exit code so pipelines can tell a decoder crash from a
// tuning failure.
type DecoderError struct {
	ExitCode int
	Err      error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("decoder failed (exit status %d): %v", e.ExitCode, e.Err)
}

func (e *DecoderError) Unwrap() error { return e.Err }

// Decoder produces one round's candidate stream for the given weights and
// returns the path of the stream file.
type Decoder interface {
	Decode(ctx context.Context, round int, names []string, lambda []float64) (string, error)
}

// CommandDecoder launches an external decoder process per round. The
// current weights are written to WeightsFile ("name value" per line)
// before the command runs; the command is expected to write the candidate
// stream to OutputFile. A non-zero exit status is fatal.
type CommandDecoder struct {
	Command     []string
	WeightsFile string
	OutputFile  string
	Logger      *slog.Logger
}

func (d *CommandDecoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *CommandDecoder) Decode(ctx context.Context, round int, names []string, lambda []float64) (string, error) {
	if err := writeWeightsFile(d.WeightsFile, names, lambda); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, d.Command[0], d.Command[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "TUNE_ROUND="+strconv.Itoa(round))

	d.logger().Info("launching decoder", "round", round, "command", d.Command[0])
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		code := -1
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		d.logger().Error("decoder failed",
			"round", round,
			"exit_status", code,
			"stderr", stderr.String())
		return "", &DecoderError{ExitCode: code, Err: err}
	}

	if _, err := os.Stat(d.OutputFile); err != nil {
		return "", &DecoderError{ExitCode: 0, Err: fmt.Errorf("decoder produced no output file: %w", err)}
	}
	return d.OutputFile, nil
}

func writeWeightsFile(path string, names []string, lambda []float64) error {
	var buf bytes.Buffer
	for c, name := range names {
		fmt.Fprintf(&buf, "%s %v\n", name, lambda[c])
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write weights file: %w", err)
	}
	return nil
}

// FileDecoder replays pre-produced per-round candidate files from a
// directory, ignoring the weights. It serves pipelines that decode
// out-of-band, and tests.
type FileDecoder struct {
	Dir string
}

// RoundPath returns the expected file name for a round's candidates.
func (d *FileDecoder) RoundPath(round int) string {
	return filepath.Join(d.Dir, fmt.Sprintf("round-%04d.nbest", round))
}

func (d *FileDecoder) Decode(_ context.Context, round int, _ []string, _ []float64) (string, error) {
	path := d.RoundPath(round)
	if _, err := os.Stat(path); err != nil {
		return "", &DecoderError{ExitCode: 0, Err: fmt.Errorf("no candidate file for round %d: %w", round, err)}
	}
	return path, nil
}
