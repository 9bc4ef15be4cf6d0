package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/clavet/spotmean/internal/errors"
	"github.com/clavet/spotmean/internal/logging"
)

func silentLogger() logging.Logger {
	var buf bytes.Buffer
	return logging.NewLogger(&buf, "app-test")
}

// newTestApp builds an Application whose result file lives in a temp dir.
func newTestApp(t *testing.T, args []string, opts ...AppOption) (*Application, *bytes.Buffer) {
	t.Helper()
	var errBuf bytes.Buffer
	application, err := New(append([]string{"spotmean"}, args...), &errBuf, opts...)
	if err != nil {
		t.Fatalf("New(%v) error = %v\nstderr: %s", args, err, errBuf.String())
	}
	return application, &errBuf
}

// TestNew_UsagePaths verifies every invalid-CLI shape prints usage and
// returns ErrUsage for a clean exit.
func TestNew_UsagePaths(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantMessage string
	}{
		{
			name:        "no arguments",
			args:        []string{"spotmean"},
			wantMessage: "Invalid mode",
		},
		{
			name:        "unknown mode",
			args:        []string{"spotmean", "--mode=stream"},
			wantMessage: "Invalid mode",
		},
		{
			name:        "stray positional argument",
			args:        []string{"spotmean", "cache"},
			wantMessage: "Invalid mode",
		},
		{
			name:        "cache without times",
			args:        []string{"spotmean", "--mode=cache"},
			wantMessage: "Invalid argument for cache mode",
		},
		{
			name:        "malformed flag",
			args:        []string{"spotmean", "--times=ten", "--mode=cache"},
			wantMessage: "Usage:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errBuf bytes.Buffer
			_, err := New(tt.args, &errBuf)
			if !IsUsageError(err) {
				t.Fatalf("New() error = %v, want ErrUsage", err)
			}
			output := errBuf.String()
			if !strings.Contains(output, tt.wantMessage) {
				t.Errorf("stderr should contain %q, got:\n%s", tt.wantMessage, output)
			}
			if !strings.Contains(output, "Usage:") {
				t.Errorf("stderr should contain usage, got:\n%s", output)
			}
		})
	}
}

// TestRun_ReadBeforeCache covers reading before any cache run: a distinct
// "does not exist" message and a success exit.
func TestRun_ReadBeforeCache(t *testing.T) {
	resultFile := filepath.Join(t.TempDir(), "result.txt")
	t.Setenv("SPOTMEAN_RESULT_FILE", resultFile)

	application, _ := newTestApp(t, []string{"--mode=read"}, WithLogger(silentLogger()))

	var out bytes.Buffer
	code := application.Run(context.Background(), &out)

	if code != apperrors.ExitSuccess {
		t.Errorf("exit code = %d, want success", code)
	}
	if !strings.Contains(out.String(), "does not exist") {
		t.Errorf("output should report a missing store, got:\n%s", out.String())
	}
}

// TestRun_ReadEmptyStore covers the present-but-empty store: a message
// distinct from the absent case.
func TestRun_ReadEmptyStore(t *testing.T) {
	resultFile := filepath.Join(t.TempDir(), "result.txt")
	if err := os.WriteFile(resultFile, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SPOTMEAN_RESULT_FILE", resultFile)

	application, _ := newTestApp(t, []string{"--mode=read"}, WithLogger(silentLogger()))

	var out bytes.Buffer
	code := application.Run(context.Background(), &out)

	if code != apperrors.ExitSuccess {
		t.Errorf("exit code = %d, want success", code)
	}
	if !strings.Contains(out.String(), "is empty") {
		t.Errorf("output should report an empty store, got:\n%s", out.String())
	}
	if strings.Contains(out.String(), "does not exist") {
		t.Error("empty-store message must be distinct from the absent-store message")
	}
}

// TestRun_CacheZeroDuration covers the degenerate window end to end: no
// fetches, NaN everywhere, and a persisted NaN marker.
func TestRun_CacheZeroDuration(t *testing.T) {
	resultFile := filepath.Join(t.TempDir(), "result.txt")
	t.Setenv("SPOTMEAN_RESULT_FILE", resultFile)

	application, _ := newTestApp(t,
		[]string{"--mode=cache", "--times=0", "--quiet"},
		WithLogger(silentLogger()))

	var out bytes.Buffer
	code := application.Run(context.Background(), &out)

	if code != apperrors.ExitSuccess {
		t.Fatalf("exit code = %d, want success", code)
	}
	if !strings.Contains(out.String(), "NaN") {
		t.Errorf("output should contain NaN averages, got:\n%s", out.String())
	}

	content, err := os.ReadFile(resultFile)
	if err != nil {
		t.Fatalf("result file not written: %v", err)
	}
	if !strings.Contains(string(content), "Final aggregate of USD prices of BTC: NaN") {
		t.Errorf("persisted line = %q, want a NaN marker", string(content))
	}
}

// TestRun_CacheThenRead covers the full round trip with a stubbed feed:
// every worker averages exactly 100, the persisted line renders the
// aggregate as an integer, and read mode prints it back.
func TestRun_CacheThenRead(t *testing.T) {
	resultFile := filepath.Join(t.TempDir(), "result.txt")
	t.Setenv("SPOTMEAN_RESULT_FILE", resultFile)
	t.Setenv("SPOTMEAN_POLL_INTERVAL", "10ms")
	t.Setenv("SPOTMEAN_WORKERS", "5")

	cacheApp, _ := newTestApp(t,
		[]string{"--mode=cache", "--times=1", "--quiet"},
		WithSampler(fixedSampler(100.0)),
		WithLogger(silentLogger()))

	var cacheOut bytes.Buffer
	if code := cacheApp.Run(context.Background(), &cacheOut); code != apperrors.ExitSuccess {
		t.Fatalf("cache exit code = %d, want success\noutput: %s", code, cacheOut.String())
	}

	for worker := 1; worker <= 5; worker++ {
		if !strings.Contains(cacheOut.String(), "average USD price of BTC is: 100") {
			t.Errorf("output missing per-worker averages, got:\n%s", cacheOut.String())
			break
		}
	}
	if !strings.Contains(cacheOut.String(), "Final aggregate of USD prices of BTC: 100") {
		t.Errorf("output missing final aggregate, got:\n%s", cacheOut.String())
	}

	content, err := os.ReadFile(resultFile)
	if err != nil {
		t.Fatalf("result file not written: %v", err)
	}
	if strings.TrimSpace(string(content)) != "Final aggregate of USD prices of BTC: 100" {
		t.Errorf("persisted line = %q, want exactly the aggregate line", strings.TrimSpace(string(content)))
	}

	readApp, _ := newTestApp(t, []string{"--mode=read"}, WithLogger(silentLogger()))
	var readOut bytes.Buffer
	if code := readApp.Run(context.Background(), &readOut); code != apperrors.ExitSuccess {
		t.Fatalf("read exit code = %d, want success", code)
	}
	if !strings.Contains(readOut.String(), "Final aggregate of USD prices of BTC: 100") {
		t.Errorf("read output = %q, want the persisted line", readOut.String())
	}
}

// TestRun_CacheStoreFailure verifies a persistence failure is fatal to the
// cache run with the store exit code.
func TestRun_CacheStoreFailure(t *testing.T) {
	t.Setenv("SPOTMEAN_RESULT_FILE", filepath.Join(t.TempDir(), "no", "such", "dir", "result.txt"))

	application, _ := newTestApp(t,
		[]string{"--mode=cache", "--times=0", "--quiet"},
		WithLogger(silentLogger()))

	var out bytes.Buffer
	if code := application.Run(context.Background(), &out); code != apperrors.ExitErrorStore {
		t.Errorf("exit code = %d, want %d", code, apperrors.ExitErrorStore)
	}
}

// TestRun_CacheInterrupted verifies an interrupted cache run exits with the
// canceled code and does not persist a partial aggregate.
func TestRun_CacheInterrupted(t *testing.T) {
	resultFile := filepath.Join(t.TempDir(), "result.txt")
	t.Setenv("SPOTMEAN_RESULT_FILE", resultFile)
	t.Setenv("SPOTMEAN_POLL_INTERVAL", "10ms")

	application, _ := newTestApp(t,
		[]string{"--mode=cache", "--times=60", "--quiet"},
		WithSampler(fixedSampler(100.0)),
		WithLogger(silentLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if code := application.Run(ctx, &out); code != apperrors.ExitErrorCanceled {
		t.Errorf("exit code = %d, want %d", code, apperrors.ExitErrorCanceled)
	}
	if _, err := os.Stat(resultFile); !os.IsNotExist(err) {
		t.Errorf("result file should not be written for an interrupted run, stat err = %v", err)
	}
}

// TestRun_CacheWorkerPanic verifies a fatal task-execution failure aborts
// the run with a non-zero exit.
func TestRun_CacheWorkerPanic(t *testing.T) {
	t.Setenv("SPOTMEAN_RESULT_FILE", filepath.Join(t.TempDir(), "result.txt"))
	t.Setenv("SPOTMEAN_POLL_INTERVAL", "10ms")

	application, _ := newTestApp(t,
		[]string{"--mode=cache", "--times=1", "--quiet"},
		WithSampler(panickySampler{}),
		WithLogger(silentLogger()))

	var out bytes.Buffer
	if code := application.Run(context.Background(), &out); code != apperrors.ExitErrorGeneric {
		t.Errorf("exit code = %d, want %d", code, apperrors.ExitErrorGeneric)
	}
}

// TestHasVersionFlag tests version flag detection.
func TestHasVersionFlag(t *testing.T) {
	if !HasVersionFlag([]string{"--version"}) {
		t.Error("--version should be detected")
	}
	if HasVersionFlag([]string{"--mode=read"}) {
		t.Error("--mode=read is not a version flag")
	}
}

// TestPrintVersion tests the version banner.
func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintVersion(&buf)
	if !strings.Contains(buf.String(), "spotmean") {
		t.Errorf("banner = %q, want the program name", buf.String())
	}
}

// fixedSampler returns the same observation on every call.
type fixedSampler float64

func (f fixedSampler) FetchOne(context.Context) (float64, error) { return float64(f), nil }

// panickySampler triggers the fatal task-execution failure path.
type panickySampler struct{}

func (panickySampler) FetchOne(context.Context) (float64, error) {
	panic(errors.New("sampler exploded"))
}
