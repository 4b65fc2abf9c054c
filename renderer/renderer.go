// Package renderer runs an external ray tracer binary on a scene file.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultDepth is the recursion depth passed with -r
const DefaultDepth = 5

var (
	// ErrTimeout is returned when the renderer exceeds its time limit
	ErrTimeout = errors.New("renderer timed out")

	// ErrInterrupted is returned when the parent context is cancelled
	ErrInterrupted = errors.New("renderer interrupted")
)

// Renderer describes how to invoke one ray tracer executable
type Renderer struct {
	Executable  string
	SceneConfig string
	Texture     string
	Depth       int
}

// Stdio names the files receiving the renderer's output streams. An empty
// path discards that stream.
type Stdio struct {
	Stdout string
	Stderr string
}

// Args builds the argument list: -r depth [-j config] [-c texture] scene output
func (r Renderer) Args(scene, output string) []string {
	depth := r.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	args := []string{"-r", strconv.Itoa(depth)}
	if r.SceneConfig != "" {
		args = append(args, "-j", r.SceneConfig)
	}
	if r.Texture != "" {
		args = append(args, "-c", r.Texture)
	}
	return append(args, scene, output)
}

// CommandLine returns the full invocation as a single string for logging
func (r Renderer) CommandLine(scene, output string) string {
	return strings.Join(append([]string{r.Executable}, r.Args(scene, output)...), " ")
}

// Run renders scene into output. A non-positive timeout means no limit.
// The process is killed when the timeout expires or ctx is cancelled.
func (r Renderer) Run(ctx context.Context, scene, output string, stdio Stdio, timeout time.Duration) error {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.Executable, r.Args(scene, output)...)
	cmd.WaitDelay = time.Second

	stdout, err := openStream(stdio.Stdout)
	if err != nil {
		return err
	}
	defer stdout.Close()
	stderr, err := openStream(stdio.Stderr)
	if err != nil {
		return err
	}
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Run()
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %s", ErrInterrupted, r.Executable)
	case runCtx.Err() == context.DeadlineExceeded:
		return fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, r.Executable)
	case err != nil:
		return fmt.Errorf("renderer %s failed: %w", r.Executable, err)
	}
	return nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func openStream(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{io.Discard}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", path, err)
	}
	return f, nil
}
