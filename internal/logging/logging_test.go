package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewRespectsDebugFlag(t *testing.T) {
	var buf bytes.Buffer
	l := New(true, &buf)
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", l.GetLevel())
	}
	l2 := New(false, &buf)
	if l2.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level, got %v", l2.GetLevel())
	}
}

func TestFromContextReturnsAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(false, &buf)
	entry := logrus.NewEntry(l).WithField("run_id", "abc")
	ctx := WithContext(context.Background(), entry)

	got := FromContext(ctx)
	got.Info("hello")
	if !strings.Contains(buf.String(), "run_id=abc") || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected attached logger's fields and message in output, got %q", buf.String())
	}
}

func TestFromContextWithoutAttachedLoggerDoesNotPanic(t *testing.T) {
	entry := FromContext(context.Background())
	entry.Info("should be discarded silently")
}

func TestForTaskAddsTaskIDField(t *testing.T) {
	var buf bytes.Buffer
	l := New(false, &buf)
	entry := logrus.NewEntry(l)
	ForTask(entry, "tile_task_2-1-1").Warn("retrying")
	if !strings.Contains(buf.String(), "task_id=tile_task_2-1-1") {
		t.Fatalf("expected task_id field in output, got %q", buf.String())
	}
}
