//go:build unix

package signalhandler

import (
	"bytes"
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"raycheck/logging"
)

func TestNotifyContextCancelsOnSignal(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	defer logging.SetOutput(os.Stdout)

	exited := make(chan int, 1)
	exit = func(code int) { exited <- code }
	defer func() { exit = os.Exit }()

	ctx, stop := NotifyContext(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by SIGINT")
	}

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))
	select {
	case code := <-exited:
		assert.Equal(t, 130, code)
	case <-time.After(5 * time.Second):
		t.Fatal("second signal did not exit")
	}
}

func TestStopCancelsContext(t *testing.T) {
	ctx, stop := NotifyContext(context.Background())
	stop()
	stop()
	assert.Error(t, ctx.Err())
}

func TestGetOptimalProcs(t *testing.T) {
	assert.GreaterOrEqual(t, GetOptimalProcs(), 1)
}
