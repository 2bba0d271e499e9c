package core

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lifesim/internal/infra/persistence/memory"
	"lifesim/pkg/domain"
)

func TestNoopLogger(t *testing.T) {
	logger := noopLogger{}
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("noop logger panicked: %v", r)
		}
	}()
	logger.Debug("test message", "arg1", "arg2")
	logger.Info("test message", "arg1", "arg2")
	logger.Warn("test message", "arg1", "arg2")
	logger.Error("test message", "arg1", "arg2")
}

func TestZapLoggerLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Debug("d", "id", "a")
	logger.Info("i", "id", "b")
	logger.Warn("w", "id", "c")
	logger.Error("e", "id", "d")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range entries {
		if entry.Level != wantLevels[i] {
			t.Errorf("entry %d: expected %s, got %s", i, wantLevels[i], entry.Level)
		}
		if _, ok := entry.ContextMap()["id"]; !ok {
			t.Errorf("entry %d: missing id field", i)
		}
	}
}

func TestNewZapLoggerNil(t *testing.T) {
	NewZapLogger(nil).Info("discarded")
}

func TestRepositoryLogsThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	repo := newRepo(t, HandleFor(memory.NewStore()), WithLogger(NewZapLogger(zap.New(core))))
	seeded := logs.FilterMessage("seeded default simulation").All()
	if len(seeded) != 1 {
		t.Fatalf("expected seed log, got %d", len(seeded))
	}
	if got := seeded[0].ContextMap()["id"]; got != domain.DefaultSimulationID {
		t.Fatalf("expected id field %s, got %v", domain.DefaultSimulationID, got)
	}

	if _, err := repo.Delete(context.Background(), "missing"); err == nil {
		t.Fatal("expected not found")
	}
	if logs.FilterMessage("delete simulation").Len() != 1 {
		t.Fatal("expected warning for failed delete")
	}
}
