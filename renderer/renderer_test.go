package renderer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "ray")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestArgs(t *testing.T) {
	r := Renderer{Executable: "ray"}
	assert.Equal(t, []string{"-r", "5", "s.json", "o.png"}, r.Args("s.json", "o.png"))

	r = Renderer{Executable: "ray", SceneConfig: "cfg.json", Texture: "cube.png", Depth: 3}
	assert.Equal(t,
		[]string{"-r", "3", "-j", "cfg.json", "-c", "cube.png", "s.json", "o.png"},
		r.Args("s.json", "o.png"))
	assert.Equal(t, "ray -r 3 -j cfg.json -c cube.png s.json o.png", r.CommandLine("s.json", "o.png"))
}

func TestRunCapturesStdio(t *testing.T) {
	exe := writeScript(t, `for a; do out=$a; done
echo "$@"
echo oops >&2
printf rendered > "$out"`)
	dir := t.TempDir()
	output := filepath.Join(dir, "box.png")
	stdio := Stdio{Stdout: filepath.Join(dir, "box.out"), Stderr: filepath.Join(dir, "box.err")}

	r := Renderer{Executable: exe, SceneConfig: "cfg.json"}
	require.NoError(t, r.Run(context.Background(), "box.json", output, stdio, time.Minute))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "rendered", string(data))

	data, err = os.ReadFile(stdio.Stdout)
	require.NoError(t, err)
	assert.Equal(t, "-r 5 -j cfg.json box.json "+output+"\n", string(data))

	data, err = os.ReadFile(stdio.Stderr)
	require.NoError(t, err)
	assert.Equal(t, "oops\n", string(data))
}

func TestRunDiscardsStdio(t *testing.T) {
	exe := writeScript(t, `echo noise`)
	r := Renderer{Executable: exe}
	assert.NoError(t, r.Run(context.Background(), "a.json", "a.png", Stdio{}, 0))
}

func TestRunTimeout(t *testing.T) {
	exe := writeScript(t, `exec sleep 10`)
	r := Renderer{Executable: exe}

	start := time.Now()
	err := r.Run(context.Background(), "a.json", "a.png", Stdio{}, 100*time.Millisecond)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunInterrupted(t *testing.T) {
	exe := writeScript(t, `exec sleep 10`)
	r := Renderer{Executable: exe}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	err := r.Run(ctx, "a.json", "a.png", Stdio{}, time.Minute)
	assert.True(t, errors.Is(err, ErrInterrupted), "got %v", err)
}

func TestRunFailure(t *testing.T) {
	exe := writeScript(t, `exit 3`)
	r := Renderer{Executable: exe}

	err := r.Run(context.Background(), "a.json", "a.png", Stdio{}, time.Minute)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrInterrupted))

	err = Renderer{Executable: filepath.Join(t.TempDir(), "missing")}.
		Run(context.Background(), "a.json", "a.png", Stdio{}, time.Minute)
	assert.Error(t, err)
}
