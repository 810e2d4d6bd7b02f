package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pepe-http/pepe/internal/config"
	"github.com/pepe-http/pepe/internal/control"
	"github.com/pepe-http/pepe/internal/output"
	"github.com/pepe-http/pepe/internal/threshold"
)

func newTarget(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("X-Cache", "HIT")
		_, _ = w.Write([]byte("pong"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func headless(out *bytes.Buffer) streams {
	return streams{in: strings.NewReader(""), out: out, err: out}
}

func TestExecuteHeadlessRun(t *testing.T) {
	srv, hits := newTarget(t)
	dir := t.TempDir()
	report := filepath.Join(dir, "report.json")
	history := filepath.Join(dir, "runs.jsonl")

	args := []string{"-n", "20", "-c", "4", "--ui", "headless", "--output", report, "--history", history, srv.URL}

	var out bytes.Buffer
	if err := execute(context.Background(), args, headless(&out)); err != nil {
		t.Fatalf("execute() error = %v\n%s", err, out.String())
	}
	if got := hits.Load(); got != 20 {
		t.Fatalf("server saw %d requests, want 20", got)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	var sum output.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if sum.Count != 20 || sum.Success != 20 || sum.Timeouts != 0 {
		t.Errorf("unexpected summary counts %+v", sum)
	}
	if sum.Cache.Hit != 20 || sum.Cache.HitRate != 100 {
		t.Errorf("unexpected cache summary %+v", sum.Cache)
	}
	if !strings.Contains(out.String(), "Report written to") {
		t.Errorf("expected report notice in output:\n%s", out.String())
	}

	out.Reset()
	if err := execute(context.Background(), args, headless(&out)); err != nil {
		t.Fatalf("second execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "Previous run") {
		t.Errorf("expected comparison with previous run:\n%s", out.String())
	}
	runs, err := output.ReadHistory(history)
	if err != nil {
		t.Fatalf("ReadHistory() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("history holds %d runs, want 2", len(runs))
	}
}

func TestExecuteThresholds(t *testing.T) {
	srv, hits := newTarget(t)

	var out bytes.Buffer
	args := []string{"-n", "5", "-c", "1", "--ui", "headless",
		"--threshold", "failed:count == 0", "--threshold", "cache:hit_rate < 50", srv.URL}
	err := execute(context.Background(), args, headless(&out))
	if !errors.Is(err, threshold.ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if !strings.Contains(out.String(), "✓ failed:count == 0") || !strings.Contains(out.String(), "✗ cache:hit_rate < 50") {
		t.Errorf("unexpected threshold output:\n%s", out.String())
	}

	before := hits.Load()
	err = execute(context.Background(), []string{"--threshold", "nonsense", srv.URL}, headless(&out))
	if err == nil {
		t.Fatal("expected a malformed threshold to be rejected")
	}
	if hits.Load() != before {
		t.Error("no request should be sent when a threshold is malformed")
	}
}

func TestExecuteRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"concurrency above number", []string{"-n", "2", "-c", "5", "http://localhost"}},
		{"timeout out of range", []string{"-t", "500", "http://localhost"}},
		{"socks4 proxy", []string{"-p", "socks4://127.0.0.1:1080", "http://localhost"}},
		{"unknown ui", []string{"--ui", "fancy", "http://localhost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := execute(context.Background(), tt.args, headless(&out)); err == nil {
				t.Fatalf("expected an error for %v", tt.args)
			}
		})
	}
}

func TestExecuteVersionIsNotAnError(t *testing.T) {
	var out bytes.Buffer
	if err := execute(context.Background(), []string{"--version"}, headless(&out)); err != nil {
		t.Fatalf("execute(--version) error = %v", err)
	}
}

func TestNewPresenter(t *testing.T) {
	var out bytes.Buffer
	for _, mode := range []config.UIMode{config.UICompact, config.UIHeadless} {
		p, release, err := newPresenter(mode, headless(&out))
		if err != nil {
			t.Fatalf("newPresenter(%s) error = %v", mode, err)
		}
		if p == nil || release == nil {
			t.Fatalf("newPresenter(%s) returned nil values", mode)
		}
		release()
	}
	if _, _, err := newPresenter("fancy", headless(&out)); err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
	var _ control.Presenter = output.NewHeadless(&out, 0)
}
