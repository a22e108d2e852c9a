package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestShutdownRunsEveryStep(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var order []string
	step := func(name string, err error) ShutdownStep {
		return ShutdownStep{Name: name, Fn: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}

	err := Shutdown(logger, time.Second,
		step("http", nil),
		step("backend", errors.New("pool busy")),
		ShutdownStep{Name: "skipped"},
		step("redis", errors.New("closed")),
		step("otel", nil),
	)
	if strings.Join(order, ",") != "http,backend,redis,otel" {
		t.Fatalf("unexpected order %v", order)
	}
	if err == nil || !strings.Contains(err.Error(), "backend: pool busy") || !strings.Contains(err.Error(), "redis: closed") {
		t.Fatalf("expected joined failures, got %v", err)
	}
}

func TestShutdownSharesOneDeadline(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var second time.Time
	start := time.Now()

	err := Shutdown(logger, 100*time.Millisecond,
		ShutdownStep{Name: "slow", Fn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
		ShutdownStep{Name: "after", Fn: func(ctx context.Context) error {
			second = time.Now()
			if ctx.Err() == nil {
				return errors.New("deadline should already have passed")
			}
			return nil
		}},
	)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if second.IsZero() || second.Sub(start) > time.Second {
		t.Fatalf("later steps should still run promptly")
	}
}
